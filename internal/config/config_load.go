package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/titanous/json5"
)

// Fallback gateway used when no config file and no env overrides exist.
// Matches the default local WAHA deployment so a bare `wahapipe` still runs.
const (
	fallbackGatewayURL     = "http://localhost:3000/api"
	fallbackGatewaySession = "default"
)

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			BaseURL:   fallbackGatewayURL,
			Session:   fallbackGatewaySession,
			SendRate:  5,
			SendBurst: 5,
		},
		Channels: ChannelsConfig{
			Webhook: true,
			Polling: false,
		},
		Pipeline: PipelineConfig{
			Cooldown:          Duration(2 * time.Second),
			DedupRetention:    Duration(24 * time.Hour),
			SweepSchedule:     "@hourly",
			DispatchTick:      Duration(500 * time.Millisecond),
			PollInterval:      Duration(3 * time.Second),
			PollChatLimit:     5,
			QueueCap:          1000,
			MaxAttempts:       2, // initial attempt + one retry
			ReconnectDelay:    Duration(5 * time.Second),
			AlertRingCapacity: 100,
		},
		Responder: ResponderConfig{
			Timeout: Duration(8 * time.Second),
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8787,
			WebhookPath: "/webhook",
		},
		Database: DatabaseConfig{
			SQLitePath: "wahapipe.db",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error: defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("WAHAPIPE_GATEWAY_URL", &c.Gateway.BaseURL)
	envStr("WAHAPIPE_GATEWAY_API_KEY", &c.Gateway.APIKey)
	envStr("WAHAPIPE_GATEWAY_SESSION", &c.Gateway.Session)
	envStr("WAHAPIPE_GATEWAY_WS_URL", &c.Gateway.WebSocketURL)
	envStr("WAHAPIPE_RESPONDER_URL", &c.Responder.URL)
	envStr("WAHAPIPE_RESPONDER_API_KEY", &c.Responder.APIKey)
	envStr("WAHAPIPE_POSTGRES_DSN", &c.Database.PostgresDSN)
	envStr("WAHAPIPE_SQLITE_PATH", &c.Database.SQLitePath)

	if v := os.Getenv("WAHAPIPE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("WAHAPIPE_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Enabled = true
		c.Telemetry.Endpoint = v
	}
}

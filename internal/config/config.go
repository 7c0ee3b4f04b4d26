// Package config holds the wahapipe configuration: a JSON5 file merged over
// built-in defaults, then overlaid with WAHAPIPE_* environment variables.
// Secrets (gateway API key, Postgres DSN) are env-only and never persisted.
package config

import (
	"sync"
	"time"
)

// Config is the root configuration for the pipeline service.
type Config struct {
	Gateway   GatewayConfig   `json:"gateway"`
	Channels  ChannelsConfig  `json:"channels"`
	Pipeline  PipelineConfig  `json:"pipeline"`
	Responder ResponderConfig `json:"responder"`
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`

	mu sync.RWMutex
}

// GatewayConfig identifies the WAHA gateway instance to talk to.
// Immutable after load except through SetGateway (administrator reload).
type GatewayConfig struct {
	BaseURL string `json:"base_url"`
	// APIKey comes from env WAHAPIPE_GATEWAY_API_KEY only.
	APIKey  string `json:"-"`
	Session string `json:"session"`
	// WebSocketURL is the gateway's event socket endpoint. Empty disables
	// the websocket adapter even when channels.websocket is true.
	WebSocketURL string `json:"websocket_url,omitempty"`
	// SendRate / SendBurst pace outbound gateway writes (messages per second).
	SendRate  float64 `json:"send_rate,omitempty"`
	SendBurst int     `json:"send_burst,omitempty"`
}

// ChannelsConfig toggles the three ingestion adapters.
type ChannelsConfig struct {
	Webhook   bool `json:"webhook"`
	Polling   bool `json:"polling"`
	WebSocket bool `json:"websocket"`
}

// PipelineConfig tunes queue, dedup, cooldown and retry behavior.
type PipelineConfig struct {
	Cooldown          Duration `json:"cooldown"`
	DedupRetention    Duration `json:"dedup_retention"`
	SweepSchedule     string   `json:"sweep_schedule"` // cron expression, e.g. "@hourly"
	DispatchTick      Duration `json:"dispatch_tick"`
	PollInterval      Duration `json:"poll_interval"`
	PollChatLimit     int      `json:"poll_chat_limit"`
	QueueCap          int      `json:"queue_cap"`
	MaxAttempts       int      `json:"max_attempts"`
	ReconnectDelay    Duration `json:"reconnect_delay"`
	AlertRingCapacity int      `json:"alert_ring_capacity"`
}

// ResponderConfig points at the AI responder collaborator.
type ResponderConfig struct {
	URL string `json:"url"`
	// APIKey comes from env WAHAPIPE_RESPONDER_API_KEY only.
	APIKey  string   `json:"-"`
	Timeout Duration `json:"timeout"`
}

// ServerConfig configures the HTTP surface (webhook + health/status).
type ServerConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	WebhookPath string `json:"webhook_path"`
}

// DatabaseConfig selects the persistence backend.
// PostgresDSN is NEVER read from the config file (secret) — only from env
// WAHAPIPE_POSTGRES_DSN. When set, the Postgres store and dedup store are
// used; otherwise SQLite at SQLitePath.
type DatabaseConfig struct {
	PostgresDSN string `json:"-"`
	SQLitePath  string `json:"sqlite_path,omitempty"`
}

// TelemetryConfig enables OTLP/HTTP trace export.
type TelemetryConfig struct {
	Enabled  bool   `json:"enabled,omitempty"`
	Endpoint string `json:"endpoint,omitempty"` // host:port of the OTLP collector
	Insecure bool   `json:"insecure,omitempty"`
}

// UsesPostgres reports whether the Postgres backend is configured.
func (c *Config) UsesPostgres() bool {
	return c.Database.PostgresDSN != ""
}

// GatewaySnapshot returns a copy of the gateway section, safe to read while
// an administrator reload is in flight.
func (c *Config) GatewaySnapshot() GatewayConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Gateway
}

// SetGateway swaps the active gateway credentials (administrator reload).
func (c *Config) SetGateway(gw GatewayConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gateway = gw
}

// Duration is a time.Duration that unmarshals from JSON strings ("500ms")
// or bare numbers (seconds).
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		parsed, err := time.ParseDuration(s[1 : len(s)-1])
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}
	secs, err := time.ParseDuration(s + "s")
	if err != nil {
		return err
	}
	*d = Duration(secs)
	return nil
}

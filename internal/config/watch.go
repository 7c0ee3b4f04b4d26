package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch re-reads the gateway section whenever the config file changes and
// swaps it into cfg via SetGateway, then invokes onReload with the new
// section. This is the administrator reload path: edit the file (or redeploy
// it) and the gateway client picks up the new credentials without a restart.
// Blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, cfg *Config, onReload func(GatewayConfig)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		// File may not exist yet; nothing to watch, nothing to reload.
		slog.Debug("config watch disabled", "path", path, "error", err)
		<-ctx.Done()
		return nil
	}

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Editors fire several events per save; coalesce them.
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, func() {
				reloadGateway(path, cfg, onReload)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}

func reloadGateway(path string, cfg *Config, onReload func(GatewayConfig)) {
	fresh, err := Load(path)
	if err != nil {
		slog.Error("config reload failed, keeping previous gateway config", "error", err)
		return
	}
	cfg.SetGateway(fresh.Gateway)
	if onReload != nil {
		onReload(fresh.Gateway)
	}
	slog.Info("gateway config reloaded",
		"base_url", fresh.Gateway.BaseURL,
		"session", fresh.Gateway.Session)
}

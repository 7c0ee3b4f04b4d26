// Package bootstrap constructs the pipeline from config and runs all of its
// loops under one errgroup. Everything is built here and injected — no
// package-level singletons.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/musafirlabs/wahapipe/internal/config"
	"github.com/musafirlabs/wahapipe/internal/cooldown"
	"github.com/musafirlabs/wahapipe/internal/dedup"
	"github.com/musafirlabs/wahapipe/internal/ingest"
	"github.com/musafirlabs/wahapipe/internal/pipeline"
	"github.com/musafirlabs/wahapipe/internal/responder"
	"github.com/musafirlabs/wahapipe/internal/server"
	"github.com/musafirlabs/wahapipe/internal/store"
	"github.com/musafirlabs/wahapipe/internal/tracing"
	"github.com/musafirlabs/wahapipe/internal/waha"
)

// App is the fully wired pipeline service.
type App struct {
	cfg        *config.Config
	cfgPath    string
	version    string
	gateway    *waha.Client
	records    store.Store
	dedupStore dedup.Store
	sweeper    *dedup.Sweeper
	monitor    *pipeline.Monitor
	queue      *pipeline.Queue
	dispatcher *pipeline.Dispatcher
	webhook    *ingest.Webhook
	poller     *ingest.Poller
	wsAdapter  *ingest.WebSocketAdapter
	httpServer *server.Server
}

// New wires the whole service from config. cfgPath is watched for
// administrator gateway reloads.
func New(cfg *config.Config, cfgPath, version string) (*App, error) {
	gw := cfg.GatewaySnapshot()
	gateway := waha.NewClient(gw)

	records, dedupStore, err := openStores(cfg)
	if err != nil {
		return nil, err
	}

	pipeCfg := cfg.Pipeline
	sweeper, err := dedup.NewSweeper(dedupStore, pipeCfg.SweepSchedule, pipeCfg.DedupRetention.Std())
	if err != nil {
		return nil, err
	}

	monitor := pipeline.NewMonitor(pipeCfg.AlertRingCapacity)
	queue := pipeline.NewQueue(pipeCfg.QueueCap)
	limiter := cooldown.NewLimiter(pipeCfg.Cooldown.Std())
	convos := pipeline.NewConversationCache()

	var resp responder.Responder
	if cfg.Responder.URL != "" {
		resp = responder.NewHTTPResponder(cfg.Responder.URL, cfg.Responder.APIKey)
	} else {
		// No responder configured: every message gets the canned replies.
		resp = cannedOnly{}
		slog.Warn("no responder configured, canned replies only")
	}

	processor := pipeline.NewProcessor(gateway, records, dedupStore, limiter,
		resp, monitor, convos, cfg.Responder.Timeout.Std())
	dispatcher := pipeline.NewDispatcher(queue, pipeCfg.DispatchTick.Std(),
		pipeCfg.MaxAttempts, processor.Process, monitor)

	sink := ingest.NewSink(queue, dedupStore, monitor)

	app := &App{
		cfg:        cfg,
		cfgPath:    cfgPath,
		version:    version,
		gateway:    gateway,
		records:    records,
		dedupStore: dedupStore,
		sweeper:    sweeper,
		monitor:    monitor,
		queue:      queue,
		dispatcher: dispatcher,
	}

	if cfg.Channels.Webhook {
		app.webhook = ingest.NewWebhook(sink)
	}
	if cfg.Channels.Polling {
		app.poller = ingest.NewPoller(gateway, sink, pipeCfg.PollInterval.Std(), pipeCfg.PollChatLimit)
	}
	if cfg.Channels.WebSocket && gw.WebSocketURL != "" {
		app.wsAdapter = ingest.NewWebSocketAdapter(gw.WebSocketURL, sink, pipeCfg.ReconnectDelay.Std())
	}

	var webhookHandler http.Handler
	if app.webhook != nil {
		webhookHandler = app.webhook
	}
	app.httpServer = server.New(cfg.Server, webhookHandler, monitor, queue, gateway, records)

	return app, nil
}

// Run starts every loop and blocks until a signal or a fatal error.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, a.cfg.Telemetry, a.version)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	if err := a.gateway.TestConnection(ctx); err != nil {
		// The gateway may come up after us; adapters and sends will retry.
		slog.Warn("gateway not reachable at startup", "error", err)
	} else {
		slog.Info("gateway connected", "base_url", a.cfg.GatewaySnapshot().BaseURL)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.httpServer.Run(ctx) })
	g.Go(func() error { return a.dispatcher.Run(ctx) })
	g.Go(func() error { return a.sweeper.Run(ctx) })
	g.Go(func() error {
		// Keep the client's credentials in sync with the config file.
		if err := config.Watch(ctx, a.cfgPath, a.cfg, a.gateway.SetConfig); err != nil {
			slog.Warn("config watch unavailable", "error", err)
			<-ctx.Done()
		}
		return nil
	})

	for _, adapter := range a.adapters() {
		adapter := adapter
		if err := adapter.Start(ctx); err != nil {
			return fmt.Errorf("start %s adapter: %w", adapter.Name(), err)
		}
		slog.Info("adapter started", "adapter", adapter.Name())
		g.Go(func() error {
			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return adapter.Stop(stopCtx)
		})
	}

	err = g.Wait()

	a.dedupStore.Close()
	a.records.Close()
	return err
}

func (a *App) adapters() []ingest.Adapter {
	var out []ingest.Adapter
	if a.webhook != nil {
		out = append(out, a.webhook)
	}
	if a.poller != nil {
		out = append(out, a.poller)
	}
	if a.wsAdapter != nil {
		out = append(out, a.wsAdapter)
	}
	return out
}

// openStores selects Postgres (when a DSN is configured) or SQLite, sharing
// one pool between message records and dedup claims in the Postgres case.
func openStores(cfg *config.Config) (store.Store, dedup.Store, error) {
	if cfg.UsesPostgres() {
		db, err := store.OpenPG(cfg.Database.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPGStore(db), dedup.NewPGStoreFromDB(db), nil
	}

	records, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	return records, dedup.NewMemoryStore(), nil
}

// cannedOnly always fails so the processor's fallback path answers.
type cannedOnly struct{}

func (cannedOnly) Reply(context.Context, responder.Request) (string, error) {
	return "", fmt.Errorf("no responder configured")
}

// Package server exposes the pipeline's HTTP surface: the provider webhook
// endpoint plus health and status for operators.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/musafirlabs/wahapipe/internal/config"
	"github.com/musafirlabs/wahapipe/internal/pipeline"
	"github.com/musafirlabs/wahapipe/internal/store"
)

// HealthChecker probes gateway reachability.
type HealthChecker interface {
	TestConnection(ctx context.Context) error
}

// Server hosts webhook + health + status.
type Server struct {
	cfg     config.ServerConfig
	webhook http.Handler
	monitor *pipeline.Monitor
	queue   *pipeline.Queue
	gateway HealthChecker
	records store.Store

	httpServer *http.Server
}

// New creates the HTTP server. webhook may be nil when the webhook channel
// is disabled; the route then answers 404.
func New(cfg config.ServerConfig, webhook http.Handler, monitor *pipeline.Monitor, queue *pipeline.Queue, gateway HealthChecker, records store.Store) *Server {
	s := &Server{
		cfg:     cfg,
		webhook: webhook,
		monitor: monitor,
		queue:   queue,
		gateway: gateway,
		records: records,
	}

	mux := http.NewServeMux()
	if webhook != nil {
		mux.Handle(cfg.WebhookPath, webhook)
	}
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.httpServer.Addr, "webhook_path", s.cfg.WebhookPath)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

type healthResponse struct {
	Status  string `json:"status"`
	Gateway string `json:"gateway"`
	Store   string `json:"store"`
}

func (s *Server) handleHealth(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Gateway: "ok", Store: "ok"}
	code := http.StatusOK

	if err := s.gateway.TestConnection(ctx); err != nil {
		resp.Status = "degraded"
		resp.Gateway = err.Error()
		code = http.StatusServiceUnavailable
	}
	if err := s.records.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Store = err.Error()
		code = http.StatusServiceUnavailable
	}

	writeJSON(rw, code, resp)
}

func (s *Server) handleStatus(rw http.ResponseWriter, _ *http.Request) {
	snap := s.monitor.SnapshotNow()
	writeJSON(rw, http.StatusOK, map[string]any{
		"monitor":     snap,
		"queue_depth": s.queue.Len(),
	})
}

func writeJSON(rw http.ResponseWriter, code int, body any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)
	_ = json.NewEncoder(rw).Encode(body)
}

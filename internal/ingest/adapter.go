// Package ingest contains the three message producers — webhook push, HTTP
// polling and WebSocket push — that normalize provider events into canonical
// inbound messages and hand them to the pipeline.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/musafirlabs/wahapipe/internal/bus"
	"github.com/musafirlabs/wahapipe/internal/dedup"
	"github.com/musafirlabs/wahapipe/internal/pipeline"
)

// Adapter is one ingestion transport. Start must be non-blocking after
// setup; Stop must release timers and sockets.
type Adapter interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Result of offering a message to the Sink.
type Result int

const (
	// Accepted: claim taken, message enqueued.
	Accepted Result = iota
	// Duplicate: id already claimed or done; silently dropped.
	Duplicate
	// Shed: queue at capacity; message dropped with an alert.
	Shed
)

// Sink is the single entry point from any adapter into the pipeline: it
// claims the dedup id and enqueues. Because the claim is atomic, the same id
// arriving over two transports at once is accepted exactly once.
type Sink struct {
	queue   *pipeline.Queue
	dedup   dedup.Store
	monitor *pipeline.Monitor
}

// NewSink wires the shared adapter sink.
func NewSink(queue *pipeline.Queue, dedupStore dedup.Store, monitor *pipeline.Monitor) *Sink {
	return &Sink{queue: queue, dedup: dedupStore, monitor: monitor}
}

// Offer claims and enqueues one canonical message.
func (s *Sink) Offer(ctx context.Context, msg bus.InboundMessage) (Result, error) {
	s.monitor.Received()

	claimed, err := s.dedup.TryClaim(ctx, msg.MessageID)
	if err != nil {
		return Duplicate, err
	}
	if !claimed {
		s.monitor.Duplicate()
		slog.Debug("duplicate message dropped",
			"message_id", msg.MessageID, "transport", msg.Transport)
		return Duplicate, nil
	}

	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}

	if err := s.queue.Enqueue(bus.QueueItem{Msg: msg}); err != nil {
		s.monitor.Shed()
		s.monitor.AddAlert("queue full, shed message %s from %s", msg.MessageID, msg.ChatID)
		slog.Warn("queue full, message shed",
			"message_id", msg.MessageID, "chat_id", msg.ChatID)
		return Shed, nil
	}

	s.monitor.Queued()
	return Accepted, nil
}

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/musafirlabs/wahapipe/internal/bus"
)

// ErrQueueFull is returned when the queue is at capacity; the item is shed.
var ErrQueueFull = errors.New("work queue full")

// Queue is a bounded FIFO of pending inbound messages.
type Queue struct {
	mu    sync.Mutex
	items []bus.QueueItem
	cap   int
}

// NewQueue creates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Queue{cap: capacity}
}

// Enqueue appends an item, or returns ErrQueueFull past capacity.
func (q *Queue) Enqueue(item bus.QueueItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.cap {
		return ErrQueueFull
	}
	q.items = append(q.items, item)
	return nil
}

// pop removes and returns the head item.
func (q *Queue) pop() (bus.QueueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return bus.QueueItem{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Len reports the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// ProcessFunc handles one queue item. A returned error makes the item
// eligible for the single retry.
type ProcessFunc func(ctx context.Context, item bus.QueueItem) error

// Dispatcher drains the queue on a background cadence, one item at a time.
// Within a conversation that preserves enqueue order; across conversations
// there is no ordering guarantee.
type Dispatcher struct {
	queue       *Queue
	tick        time.Duration
	maxAttempts int
	process     ProcessFunc
	monitor     *Monitor

	draining atomic.Bool
}

// NewDispatcher wires a dispatcher to its queue and processor.
// maxAttempts counts total attempts (2 = initial attempt + one retry).
func NewDispatcher(queue *Queue, tick time.Duration, maxAttempts int, process ProcessFunc, monitor *Monitor) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = 2
	}
	return &Dispatcher{
		queue:       queue,
		tick:        tick,
		maxAttempts: maxAttempts,
		process:     process,
		monitor:     monitor,
	}
}

// Run ticks until ctx is cancelled. The draining flag guarantees that two
// passes never overlap, so no item is processed by two passes at once.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !d.draining.CompareAndSwap(false, true) {
				continue
			}
			d.drain(ctx)
			d.draining.Store(false)
		}
	}
}

// drain empties the queue, applying the single-retry policy per item.
func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, ok := d.queue.pop()
		if !ok {
			return
		}

		err := d.process(ctx, item)
		if err == nil {
			continue
		}

		item.Attempts++
		if item.Attempts < d.maxAttempts {
			slog.Warn("message processing failed, re-enqueueing",
				"message_id", item.Msg.MessageID, "attempt", item.Attempts, "error", err)
			if qerr := d.queue.Enqueue(item); qerr != nil {
				d.monitor.Dropped()
				d.monitor.AddAlert("retry shed for %s: queue full", item.Msg.MessageID)
			}
			continue
		}

		d.monitor.Dropped()
		d.monitor.AddAlert("message %s dropped after %d attempts: %v",
			item.Msg.MessageID, item.Attempts, err)
		slog.Error("message dropped after exhausting retries",
			"message_id", item.Msg.MessageID, "chat_id", item.Msg.ChatID, "error", err)
	}
}

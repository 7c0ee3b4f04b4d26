package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/musafirlabs/wahapipe/internal/bus"
)

func TestQueueBounded(t *testing.T) {
	q := NewQueue(2)

	if err := q.Enqueue(bus.QueueItem{Msg: bus.InboundMessage{MessageID: "a"}}); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(bus.QueueItem{Msg: bus.InboundMessage{MessageID: "b"}}); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(bus.QueueItem{Msg: bus.InboundMessage{MessageID: "c"}}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("third enqueue err = %v, want ErrQueueFull", err)
	}
	if q.Len() != 2 {
		t.Errorf("len = %d, want 2", q.Len())
	}
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(10)
	for _, id := range []string{"1", "2", "3"} {
		q.Enqueue(bus.QueueItem{Msg: bus.InboundMessage{MessageID: id}})
	}

	for _, want := range []string{"1", "2", "3"} {
		item, ok := q.pop()
		if !ok || item.Msg.MessageID != want {
			t.Fatalf("pop = (%q, %v), want (%q, true)", item.Msg.MessageID, ok, want)
		}
	}
	if _, ok := q.pop(); ok {
		t.Error("pop on empty queue returned an item")
	}
}

func TestDispatcherRetriesExactlyOnce(t *testing.T) {
	q := NewQueue(10)
	monitor := NewMonitor(10)

	var mu sync.Mutex
	attempts := 0
	failing := func(ctx context.Context, item bus.QueueItem) error {
		mu.Lock()
		attempts++
		mu.Unlock()
		return errors.New("boom")
	}

	d := NewDispatcher(q, 10*time.Millisecond, 2, failing, monitor)
	q.Enqueue(bus.QueueItem{Msg: bus.InboundMessage{MessageID: "m1", ChatID: "c1"}})

	// Drain twice: first pass fails and re-enqueues, second drops.
	d.drain(context.Background())
	d.drain(context.Background())
	d.drain(context.Background()) // nothing left: must not add attempts

	mu.Lock()
	got := attempts
	mu.Unlock()
	if got != 2 {
		t.Errorf("attempts = %d, want exactly 2 (initial + one retry)", got)
	}

	snap := monitor.SnapshotNow()
	if snap.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", snap.Dropped)
	}
	if len(snap.Alerts) != 1 {
		t.Errorf("alerts = %d, want 1", len(snap.Alerts))
	}
}

func TestDispatcherSuccessLeavesQueueEmpty(t *testing.T) {
	q := NewQueue(10)
	monitor := NewMonitor(10)

	processed := []string{}
	var mu sync.Mutex
	ok := func(ctx context.Context, item bus.QueueItem) error {
		mu.Lock()
		processed = append(processed, item.Msg.MessageID)
		mu.Unlock()
		return nil
	}

	d := NewDispatcher(q, 10*time.Millisecond, 2, ok, monitor)
	for _, id := range []string{"a", "b", "c"} {
		q.Enqueue(bus.QueueItem{Msg: bus.InboundMessage{MessageID: id}})
	}

	d.drain(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(processed) != 3 {
		t.Fatalf("processed %d items, want 3", len(processed))
	}
	// One pass drains in FIFO order, so per-conversation order is preserved.
	for i, want := range []string{"a", "b", "c"} {
		if processed[i] != want {
			t.Errorf("processed[%d] = %q, want %q", i, processed[i], want)
		}
	}
	if q.Len() != 0 {
		t.Errorf("queue depth after drain = %d, want 0", q.Len())
	}
}

func TestDispatcherSinglePass(t *testing.T) {
	q := NewQueue(10)
	monitor := NewMonitor(10)

	block := make(chan struct{})
	started := make(chan struct{})
	slow := func(ctx context.Context, item bus.QueueItem) error {
		close(started)
		<-block
		return nil
	}

	d := NewDispatcher(q, time.Millisecond, 2, slow, monitor)
	q.Enqueue(bus.QueueItem{Msg: bus.InboundMessage{MessageID: "slow"}})

	go func() {
		d.draining.Store(true)
		d.drain(context.Background())
		d.draining.Store(false)
	}()
	<-started

	// While a pass is in flight the flag rejects a second pass.
	if d.draining.CompareAndSwap(false, true) {
		t.Error("second pass acquired the draining flag during an active pass")
		d.draining.Store(false)
	}
	close(block)
}

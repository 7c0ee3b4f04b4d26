package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketHandleEventFiltering(t *testing.T) {
	tests := []struct {
		name   string
		event  string
		queued int
	}{
		{
			"direct message accepted",
			`{"event":"message","payload":{"id":"w1","from":"967700@c.us","body":"hi"}}`,
			1,
		},
		{
			"self echo skipped",
			`{"event":"message","payload":{"id":"w2","from":"967700@c.us","fromMe":true}}`,
			0,
		},
		{
			"group skipped",
			`{"event":"message","payload":{"id":"w3","from":"123-456@g.us"}}`,
			0,
		},
		{
			"status event skipped",
			`{"event":"session.status","payload":{"id":"w4","from":"967700@c.us"}}`,
			0,
		},
		{
			"missing id skipped",
			`{"event":"message","payload":{"from":"967700@c.us","body":"hi"}}`,
			0,
		},
		{
			"garbage skipped",
			`not json at all`,
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWebhookFixture(10)
			a := NewWebSocketAdapter("ws://unused", f.handler.sink, time.Second)

			a.handleEvent(context.Background(), []byte(tt.event))

			if f.queue.Len() != tt.queued {
				t.Errorf("queue depth = %d, want %d", f.queue.Len(), tt.queued)
			}
		})
	}
}

func TestWebSocketReceivesPushedEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"event":"message","payload":{"id":"ws-push-1","from":"967700@c.us","body":"مرحبا"}}`))
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	f := newWebhookFixture(10)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	a := NewWebSocketAdapter(wsURL, f.handler.sink, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer a.Stop(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for f.queue.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("pushed event never reached the queue")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if snap := f.monitor.SnapshotNow(); snap.Queued < 1 {
		t.Errorf("queued counter = %d, want >= 1", snap.Queued)
	}
}

func TestWebSocketStopWithoutConnection(t *testing.T) {
	f := newWebhookFixture(10)
	a := NewWebSocketAdapter("ws://127.0.0.1:1", f.handler.sink, 10*time.Millisecond)

	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	// Dial fails forever against a closed port; Stop must still unwind.
	time.Sleep(30 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		_ = a.Stop(context.Background())
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop hung with no active connection")
	}
}

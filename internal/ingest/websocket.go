package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/musafirlabs/wahapipe/internal/bus"
	"github.com/musafirlabs/wahapipe/internal/waha"
)

// WebSocketAdapter keeps a persistent connection to the gateway's event
// socket and reconnects after a fixed delay on any failure. Events carry the
// same envelope as webhook callbacks.
type WebSocketAdapter struct {
	url            string
	sink           *Sink
	reconnectDelay time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWebSocketAdapter creates the websocket adapter.
func NewWebSocketAdapter(url string, sink *Sink, reconnectDelay time.Duration) *WebSocketAdapter {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	return &WebSocketAdapter{
		url:            url,
		sink:           sink,
		reconnectDelay: reconnectDelay,
	}
}

// Name implements Adapter.
func (a *WebSocketAdapter) Name() string { return "websocket" }

// Start implements Adapter.
func (a *WebSocketAdapter) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})

	slog.Info("starting websocket adapter", "url", a.url)
	go a.listenLoop(ctx)
	return nil
}

// Stop implements Adapter. Closes the socket and waits for the loop.
func (a *WebSocketAdapter) Stop(_ context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}

	a.mu.Lock()
	if a.conn != nil {
		_ = a.conn.Close()
		a.conn = nil
	}
	a.mu.Unlock()

	if a.done != nil {
		<-a.done
	}
	return nil
}

// listenLoop reads events with automatic reconnection on a fixed delay.
func (a *WebSocketAdapter) listenLoop(ctx context.Context) {
	defer close(a.done)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := a.connect(); err != nil {
			slog.Warn("websocket dial failed, will retry",
				"url", a.url, "delay", a.reconnectDelay, "error", err)
			if !sleepCtx(ctx, a.reconnectDelay) {
				return
			}
			continue
		}

		a.readUntilError(ctx)

		a.mu.Lock()
		if a.conn != nil {
			_ = a.conn.Close()
			a.conn = nil
		}
		a.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		slog.Info("websocket disconnected, reconnecting", "delay", a.reconnectDelay)
		if !sleepCtx(ctx, a.reconnectDelay) {
			return
		}
	}
}

func (a *WebSocketAdapter) connect() error {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(a.url, nil)
	if err != nil {
		return err
	}
	conn.SetReadLimit(1 << 20)

	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()

	slog.Info("websocket connected", "url", a.url)
	return nil
}

func (a *WebSocketAdapter) readUntilError(ctx context.Context) {
	for {
		a.mu.Lock()
		conn := a.conn
		a.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("websocket read failed", "error", err)
			}
			return
		}
		a.handleEvent(ctx, data)
	}
}

// handleEvent applies the same filtering as the webhook adapter.
func (a *WebSocketAdapter) handleEvent(ctx context.Context, data []byte) {
	var event webhookEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Debug("websocket event not decodable", "error", err)
		return
	}
	if event.Event != "message" && event.Event != "message.any" {
		return
	}

	p := event.Payload
	chatID := p.ChatID
	if chatID == "" {
		chatID = p.From
	}
	if p.FromMe || p.IsGroupMsg || waha.IsGroupChat(chatID) || p.ID == "" || chatID == "" {
		return
	}

	mediaURL := p.MediaURL
	if mediaURL == "" {
		mediaURL = p.ClientURL
	}

	if _, err := a.sink.Offer(ctx, bus.InboundMessage{
		ChatID:      waha.NormalizeChatID(chatID),
		MessageID:   p.ID,
		Body:        p.Body,
		ContentType: bus.ContentTypeFromProvider(p.Type),
		MediaURL:    mediaURL,
		PushName:    p.PushName,
		ReceivedAt:  receiptTime(p.Timestamp),
		Transport:   "websocket",
	}); err != nil {
		slog.Warn("websocket offer failed", "message_id", p.ID, "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

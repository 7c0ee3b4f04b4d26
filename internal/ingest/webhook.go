package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/musafirlabs/wahapipe/internal/bus"
	"github.com/musafirlabs/wahapipe/internal/waha"
)

// webhookEvent is the provider callback payload.
type webhookEvent struct {
	Event   string         `json:"event"`
	Payload webhookPayload `json:"payload"`
}

type webhookPayload struct {
	ID         string `json:"id"`
	From       string `json:"from"`
	ChatID     string `json:"chatId"`
	Body       string `json:"body"`
	Type       string `json:"type"`
	FromMe     bool   `json:"fromMe"`
	IsGroupMsg bool   `json:"isGroupMsg"`
	ClientURL  string `json:"clientUrl"`
	MediaURL   string `json:"mediaUrl"`
	PushName   string `json:"pushName"`
	Timestamp  int64  `json:"timestamp"`
}

// Webhook receives provider push callbacks. The handler only canonicalizes
// and enqueues — every response goes out well under the provider's timeout,
// and a malformed or unwanted event is acknowledged as ok with a reason,
// never surfaced to the provider as a failure.
type Webhook struct {
	sink *Sink
}

// NewWebhook creates the webhook adapter.
func NewWebhook(sink *Sink) *Webhook {
	return &Webhook{sink: sink}
}

// Name implements Adapter.
func (w *Webhook) Name() string { return "webhook" }

// Start implements Adapter. The webhook is request-driven: the HTTP server
// owns its lifecycle, so there is no loop to start.
func (w *Webhook) Start(_ context.Context) error { return nil }

// Stop implements Adapter.
func (w *Webhook) Stop(_ context.Context) error { return nil }

// ServeHTTP implements http.Handler for POST <webhook_path>.
func (w *Webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var event webhookEvent
	if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, 1<<20)).Decode(&event); err != nil {
		slog.Debug("webhook payload not decodable", "error", err)
		ack(rw, map[string]any{"status": "ok", "reason": "malformed"})
		return
	}

	if event.Event != "message" && event.Event != "message.any" {
		ack(rw, map[string]any{"status": "ok", "reason": "ignored_event"})
		return
	}

	p := event.Payload
	if p.FromMe {
		ack(rw, map[string]any{"status": "ok", "reason": "self"})
		return
	}
	chatID := p.ChatID
	if chatID == "" {
		chatID = p.From
	}
	if p.IsGroupMsg || waha.IsGroupChat(chatID) {
		ack(rw, map[string]any{"status": "ok", "reason": "group"})
		return
	}
	if p.ID == "" || chatID == "" {
		ack(rw, map[string]any{"status": "ok", "reason": "missing_fields"})
		return
	}

	mediaURL := p.MediaURL
	if mediaURL == "" {
		mediaURL = p.ClientURL
	}

	msg := bus.InboundMessage{
		ChatID:      waha.NormalizeChatID(chatID),
		MessageID:   p.ID,
		Body:        p.Body,
		ContentType: bus.ContentTypeFromProvider(p.Type),
		MediaURL:    mediaURL,
		PushName:    p.PushName,
		ReceivedAt:  receiptTime(p.Timestamp),
		Transport:   "webhook",
	}

	result, err := w.sink.Offer(r.Context(), msg)
	if err != nil {
		slog.Error("webhook enqueue failed", "message_id", p.ID, "error", err)
		ack(rw, map[string]any{"status": "ok", "reason": "internal"})
		return
	}

	switch result {
	case Duplicate:
		ack(rw, map[string]any{"status": "ok", "duplicate": true})
	case Shed:
		ack(rw, map[string]any{"status": "ok", "queued": false, "reason": "overloaded"})
	default:
		ack(rw, map[string]any{"status": "ok", "queued": true})
	}
}

func ack(rw http.ResponseWriter, body map[string]any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(rw).Encode(body)
}

func receiptTime(unix int64) time.Time {
	if unix <= 0 {
		return time.Now()
	}
	return time.Unix(unix, 0)
}

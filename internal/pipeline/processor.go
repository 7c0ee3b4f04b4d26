// Package pipeline contains the work queue, dispatcher loop and message
// processor that sit between the ingestion adapters and the gateway.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/musafirlabs/wahapipe/internal/bus"
	"github.com/musafirlabs/wahapipe/internal/cooldown"
	"github.com/musafirlabs/wahapipe/internal/dedup"
	"github.com/musafirlabs/wahapipe/internal/responder"
	"github.com/musafirlabs/wahapipe/internal/store"
	"github.com/musafirlabs/wahapipe/internal/waha"
)

// Gateway is the slice of the waha client the processor needs.
type Gateway interface {
	SendText(ctx context.Context, chatID, text string) (waha.MessageRef, error)
	SendSeen(ctx context.Context, chatID string) error
}

// Processor orchestrates per-message work: read receipt, persistence,
// cooldown, responder call, outbound send, bookkeeping. The dedup claim is
// already held when an item reaches Process (taken at ingestion).
type Processor struct {
	gateway   Gateway
	records   store.Store
	dedup     dedup.Store
	cooldown  *cooldown.Limiter
	responder responder.Responder
	monitor   *Monitor
	convos    *ConversationCache

	responderTimeout time.Duration
}

// NewProcessor wires a processor from its injected collaborators.
func NewProcessor(
	gateway Gateway,
	records store.Store,
	dedupStore dedup.Store,
	limiter *cooldown.Limiter,
	resp responder.Responder,
	monitor *Monitor,
	convos *ConversationCache,
	responderTimeout time.Duration,
) *Processor {
	if responderTimeout <= 0 {
		responderTimeout = 8 * time.Second
	}
	return &Processor{
		gateway:          gateway,
		records:          records,
		dedup:            dedupStore,
		cooldown:         limiter,
		responder:        resp,
		monitor:          monitor,
		convos:           convos,
		responderTimeout: responderTimeout,
	}
}

// Process handles one queue item. A returned error makes the dispatcher
// apply its single-retry policy; everything absorbed here (read receipts,
// persistence, responder failures) never fails the item.
func (p *Processor) Process(ctx context.Context, item bus.QueueItem) error {
	msg := item.Msg

	ctx, span := otel.Tracer("wahapipe/pipeline").Start(ctx, "pipeline.process")
	span.SetAttributes(
		attribute.String("message.id", msg.MessageID),
		attribute.String("message.transport", msg.Transport),
		attribute.Int("message.attempt", item.Attempts),
	)
	defer span.End()

	// Read receipt is best-effort: never blocks the reply path.
	if err := p.gateway.SendSeen(ctx, msg.ChatID); err != nil {
		slog.Debug("mark-as-read failed", "chat_id", msg.ChatID, "error", err)
	}

	// Persist the inbound record once, on the first attempt only.
	if item.Attempts == 0 {
		rec := store.NewRecord(msg.MessageID, store.DirectionIn, msg.ChatID,
			msg.Body, string(msg.ContentType), store.StatusReceived)
		if err := p.records.SaveMessage(ctx, rec); err != nil {
			slog.Warn("inbound record not persisted", "message_id", msg.MessageID, "error", err)
		}
	}

	info, returning := p.convos.Touch(msg.ChatID, msg.Body)

	// Cooldown suppresses the reply, not the bookkeeping: the message was
	// received and read, it just gets no answer.
	if p.cooldown.InCooldown(msg.ChatID) {
		p.finish(ctx, msg, store.StatusSuppressed)
		p.monitor.Suppressed()
		span.SetAttributes(attribute.Bool("reply.suppressed", true))
		slog.Info("reply suppressed by cooldown", "chat_id", msg.ChatID, "message_id", msg.MessageID)
		return nil
	}

	reply := p.buildReply(ctx, msg, returning)

	if _, err := p.gateway.SendText(ctx, msg.ChatID, reply.Text); err != nil {
		p.monitor.Failure()
		span.SetStatus(codes.Error, "send failed")
		return fmt.Errorf("send reply to %s: %w", msg.ChatID, err)
	}

	p.cooldown.RecordReply(msg.ChatID)

	out := store.NewRecord("", store.DirectionOut, msg.ChatID, reply.Text,
		string(bus.ContentText), store.StatusSent)
	if err := p.records.SaveMessage(ctx, out); err != nil {
		slog.Warn("outbound record not persisted", "chat_id", msg.ChatID, "error", err)
	}

	p.finish(ctx, msg, store.StatusReplied)
	p.monitor.Reply()
	if reply.Fallback {
		p.monitor.Fallback()
	}

	slog.Info("reply sent",
		"chat_id", msg.ChatID,
		"message_id", msg.MessageID,
		"fallback", reply.Fallback,
		"conversation_messages", info.MessageCount)
	return nil
}

// buildReply asks the AI responder under the enforced time budget and falls
// back to the canned keyword replies on any failure. The user always gets an
// answer; internal errors never leak into it.
func (p *Processor) buildReply(ctx context.Context, msg bus.InboundMessage, returning bool) bus.OutboundReply {
	callCtx, cancel := context.WithTimeout(ctx, p.responderTimeout)
	defer cancel()

	text, err := p.responder.Reply(callCtx, responder.Request{
		Text:      msg.Body,
		ChatID:    msg.ChatID,
		MediaURL:  msg.MediaURL,
		Returning: returning,
	})
	if err == nil {
		return bus.OutboundReply{ChatID: msg.ChatID, Text: text}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		slog.Warn("responder exceeded budget, using fallback",
			"chat_id", msg.ChatID, "budget", p.responderTimeout)
	} else {
		slog.Warn("responder failed, using fallback", "chat_id", msg.ChatID, "error", err)
	}
	return bus.OutboundReply{ChatID: msg.ChatID, Text: responder.Fallback(msg.Body), Fallback: true}
}

// finish marks the dedup entry done and records the final inbound status.
func (p *Processor) finish(ctx context.Context, msg bus.InboundMessage, status string) {
	if err := p.dedup.MarkDone(ctx, msg.MessageID); err != nil {
		slog.Warn("dedup mark-done failed", "message_id", msg.MessageID, "error", err)
	}
	if err := p.records.UpdateStatus(ctx, msg.MessageID, status); err != nil {
		slog.Debug("inbound status not updated", "message_id", msg.MessageID, "error", err)
	}
	p.monitor.Processed()
}

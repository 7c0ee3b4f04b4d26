package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/musafirlabs/wahapipe/internal/bus"
	"github.com/musafirlabs/wahapipe/internal/waha"
)

// fetchPerChat bounds how many recent messages one tick pulls from a chat.
const fetchPerChat = 10

// PollingGateway is the slice of the waha client the poller needs.
type PollingGateway interface {
	Chats(ctx context.Context) ([]waha.Chat, error)
	ChatMessages(ctx context.Context, chatID string, limit int) ([]waha.Message, error)
	SendSeen(ctx context.Context, chatID string) error
}

// Poller pulls unread messages on a fixed interval. It is self-paced: the
// next tick is armed only after the current one finishes, so slow gateway
// calls never pile up overlapping ticks.
type Poller struct {
	gateway   PollingGateway
	sink      *Sink
	interval  time.Duration
	chatLimit int

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates the polling adapter. chatLimit bounds the fan-out per
// tick: at most that many unread chats are fetched.
func NewPoller(gateway PollingGateway, sink *Sink, interval time.Duration, chatLimit int) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if chatLimit <= 0 {
		chatLimit = 5
	}
	return &Poller{
		gateway:   gateway,
		sink:      sink,
		interval:  interval,
		chatLimit: chatLimit,
	}
}

// Name implements Adapter.
func (p *Poller) Name() string { return "polling" }

// Start implements Adapter.
func (p *Poller) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	slog.Info("starting polling adapter", "interval", p.interval, "chat_limit", p.chatLimit)
	go p.loop(ctx)
	return nil
}

// Stop implements Adapter. Blocks until the loop exits so no tick outlives
// the shutdown.
func (p *Poller) Stop(_ context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	if p.done != nil {
		<-p.done
	}
	return nil
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	for {
		p.tick(ctx)

		// Re-arm only after the tick drained: self-paced, not fixed-rate.
		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// tick fetches unread chats and offers their recent non-self messages.
func (p *Poller) tick(ctx context.Context) {
	chats, err := p.gateway.Chats(ctx)
	if err != nil {
		slog.Warn("polling: chat list failed", "error", err)
		return
	}

	picked := 0
	for _, chat := range chats {
		if picked >= p.chatLimit {
			break
		}
		if chat.UnreadCount <= 0 || waha.IsGroupChat(chat.ID) {
			continue
		}
		picked++
		p.drainChat(ctx, chat)
	}
}

func (p *Poller) drainChat(ctx context.Context, chat waha.Chat) {
	limit := chat.UnreadCount
	if limit > fetchPerChat {
		limit = fetchPerChat
	}

	msgs, err := p.gateway.ChatMessages(ctx, chat.ID, limit)
	if err != nil {
		slog.Warn("polling: message fetch failed", "chat_id", chat.ID, "error", err)
		return
	}

	offered := 0
	for _, m := range msgs {
		if m.FromMe || m.ID == "" {
			continue
		}
		chatID := m.ChatID
		if chatID == "" {
			chatID = m.From
		}
		if chatID == "" {
			chatID = chat.ID
		}

		_, err := p.sink.Offer(ctx, bus.InboundMessage{
			ChatID:      waha.NormalizeChatID(chatID),
			MessageID:   m.ID,
			Body:        m.Body,
			ContentType: bus.ContentTypeFromProvider(m.Type),
			MediaURL:    m.MediaURL,
			ReceivedAt:  receiptTime(m.Timestamp),
			Transport:   "polling",
		})
		if err != nil {
			slog.Warn("polling: offer failed", "message_id", m.ID, "error", err)
			continue
		}
		offered++
	}

	if offered > 0 {
		// Clear the unread count so the next tick doesn't refetch the same
		// window. Best-effort, same as the processor's read receipt.
		if err := p.gateway.SendSeen(ctx, chat.ID); err != nil {
			slog.Debug("polling: mark seen failed", "chat_id", chat.ID, "error", err)
		}
	}
}

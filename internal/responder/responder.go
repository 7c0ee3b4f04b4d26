// Package responder defines the contract with the booking AI collaborator
// and the deterministic canned fallback used when it fails or times out.
package responder

import (
	"context"
	"errors"
)

// Request carries everything the responder needs for one reply.
type Request struct {
	// Text is the inbound message body; may be empty for bare media.
	Text string `json:"text"`
	// ChatID is the conversation address, for responder-side context.
	ChatID string `json:"chat_id"`
	// MediaURL points at attached media, when present.
	MediaURL string `json:"media_url,omitempty"`
	// Returning marks conversations that contacted us before this process
	// started handling them.
	Returning bool `json:"returning,omitempty"`
}

// ErrEmptyReply is returned when the responder answered successfully but
// with nothing to send.
var ErrEmptyReply = errors.New("responder returned empty reply")

// Responder produces a single reply string for an inbound message. The
// processor enforces a timeout around Reply; implementations should still
// honor ctx cancellation themselves.
type Responder interface {
	Reply(ctx context.Context, req Request) (string, error)
}

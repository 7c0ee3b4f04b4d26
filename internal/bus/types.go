// Package bus defines the canonical message shapes exchanged between the
// ingestion adapters, the work queue and the processor. Adapters normalize
// provider payloads into these types so the rest of the pipeline never sees
// transport-specific formats.
package bus

import "time"

// ContentType classifies an inbound message body.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentImage    ContentType = "image"
	ContentDocument ContentType = "document"
	ContentAudio    ContentType = "audio"
	ContentVideo    ContentType = "video"
)

// ContentTypeFromProvider maps a provider "type" field to a ContentType.
// Unknown types degrade to text so the responder still sees the body.
func ContentTypeFromProvider(t string) ContentType {
	switch t {
	case "image", "sticker":
		return ContentImage
	case "document", "file":
		return ContentDocument
	case "audio", "ptt", "voice":
		return ContentAudio
	case "video":
		return ContentVideo
	default:
		return ContentText
	}
}

// InboundMessage is the canonical representation of a provider message,
// independent of which transport delivered it.
type InboundMessage struct {
	// ChatID is the normalized conversation address (e.g. "96770...@c.us").
	ChatID string `json:"chat_id"`
	// MessageID is the provider-unique message id, used as the dedup key.
	MessageID string `json:"message_id"`
	// Body may be empty (e.g. bare media messages).
	Body        string      `json:"body"`
	ContentType ContentType `json:"content_type"`
	MediaURL    string      `json:"media_url,omitempty"`
	// PushName is the sender's display name when the provider supplies one.
	PushName   string    `json:"push_name,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	// Transport records which adapter produced the message ("webhook",
	// "polling", "websocket"). Diagnostic only.
	Transport string `json:"transport,omitempty"`
}

// QueueItem wraps an InboundMessage while it sits on the work queue.
// Attempts counts completed processing attempts; an item is re-enqueued at
// most once (see pipeline.MaxAttempts).
type QueueItem struct {
	Msg      InboundMessage
	Attempts int
}

// OutboundReply is a reply on its way to the gateway.
type OutboundReply struct {
	ChatID string
	Text   string
	// Fallback marks replies produced by the canned responder rather than
	// the AI collaborator.
	Fallback bool
}

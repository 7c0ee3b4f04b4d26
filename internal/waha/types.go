package waha

import "fmt"

// GatewayError is returned for non-2xx gateway responses and transport
// failures on the send/read paths. The raw response body is kept for
// operator diagnostics; it is never forwarded to end users.
type GatewayError struct {
	Op     string // "sendText", "sendSeen", ...
	Status int    // HTTP status, 0 on transport error
	Body   string
}

func (e *GatewayError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("waha %s: %s", e.Op, e.Body)
	}
	return fmt.Sprintf("waha %s: status %d: %s", e.Op, e.Status, e.Body)
}

// MessageRef identifies a message accepted by the gateway.
type MessageRef struct {
	ID string `json:"id"`
}

// Chat is one entry from GET /{session}/chats.
type Chat struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	UnreadCount int    `json:"unreadCount"`
}

// Message is a provider-native message from GET .../messages.
type Message struct {
	ID        string `json:"id"`
	ChatID    string `json:"chatId"`
	From      string `json:"from"`
	Body      string `json:"body"`
	Type      string `json:"type"`
	FromMe    bool   `json:"fromMe"`
	MediaURL  string `json:"mediaUrl,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Session is one entry from GET /sessions.
type Session struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type sendTextRequest struct {
	Session string `json:"session"`
	ChatID  string `json:"chatId"`
	Text    string `json:"text"`
}

type fileRef struct {
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
}

type sendImageRequest struct {
	Session string  `json:"session"`
	ChatID  string  `json:"chatId"`
	File    fileRef `json:"file"`
	Caption string  `json:"caption,omitempty"`
}

type sendFileRequest struct {
	Session string  `json:"session"`
	ChatID  string  `json:"chatId"`
	File    fileRef `json:"file"`
}

type sendSeenRequest struct {
	Session string `json:"session"`
	ChatID  string `json:"chatId"`
}

// Package waha is a thin HTTP client for a WAHA-style WhatsApp gateway.
// The gateway owns the actual WhatsApp protocol; this client just speaks its
// JSON API: send text/media, mark chats read, list chats and messages.
package waha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/musafirlabs/wahapipe/internal/config"
)

// Client talks to one WAHA gateway instance. Credentials are swappable at
// runtime (administrator reload) via SetConfig; all methods read the current
// snapshot under a read lock.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter

	mu      sync.RWMutex
	baseURL string
	apiKey  string
	session string
}

// NewClient creates a gateway client from the active gateway config.
func NewClient(gw config.GatewayConfig) *Client {
	sendRate := gw.SendRate
	if sendRate <= 0 {
		sendRate = 5
	}
	burst := gw.SendBurst
	if burst <= 0 {
		burst = 5
	}

	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(sendRate), burst),
		baseURL:    gw.BaseURL,
		apiKey:     gw.APIKey,
		session:    gw.Session,
	}
}

// SetConfig swaps the gateway credentials. In-flight requests finish against
// the old endpoint; new requests use the new one.
func (c *Client) SetConfig(gw config.GatewayConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = gw.BaseURL
	c.apiKey = gw.APIKey
	c.session = gw.Session
}

func (c *Client) snapshot() (baseURL, apiKey, session string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL, c.apiKey, c.session
}

// SendText sends a text reply to a chat.
func (c *Client) SendText(ctx context.Context, chatID, text string) (MessageRef, error) {
	_, _, session := c.snapshot()
	var ref MessageRef
	err := c.post(ctx, "sendText", sendTextRequest{Session: session, ChatID: chatID, Text: text}, &ref)
	return ref, err
}

// SendImage sends an image by URL with an optional caption.
func (c *Client) SendImage(ctx context.Context, chatID, imageURL, caption string) (MessageRef, error) {
	_, _, session := c.snapshot()
	var ref MessageRef
	err := c.post(ctx, "sendImage", sendImageRequest{
		Session: session,
		ChatID:  chatID,
		File:    fileRef{URL: imageURL},
		Caption: caption,
	}, &ref)
	return ref, err
}

// SendFile sends a document by URL.
func (c *Client) SendFile(ctx context.Context, chatID, fileURL, filename string) (MessageRef, error) {
	_, _, session := c.snapshot()
	var ref MessageRef
	err := c.post(ctx, "sendFile", sendFileRequest{
		Session: session,
		ChatID:  chatID,
		File:    fileRef{URL: fileURL, Filename: filename},
	}, &ref)
	return ref, err
}

// SendSeen marks a chat as read. Callers treat failure as non-fatal: the
// reply path never blocks on read receipts.
func (c *Client) SendSeen(ctx context.Context, chatID string) error {
	_, _, session := c.snapshot()
	return c.post(ctx, "sendSeen", sendSeenRequest{Session: session, ChatID: chatID}, nil)
}

// Chats lists the session's chats with unread counts (polling mode).
func (c *Client) Chats(ctx context.Context) ([]Chat, error) {
	_, _, session := c.snapshot()
	var chats []Chat
	if err := c.get(ctx, session+"/chats", &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// ChatMessages fetches the most recent messages of one chat.
func (c *Client) ChatMessages(ctx context.Context, chatID string, limit int) ([]Message, error) {
	_, _, session := c.snapshot()
	path := fmt.Sprintf("%s/chats/%s/messages?limit=%s",
		session, url.PathEscape(chatID), strconv.Itoa(limit))
	var msgs []Message
	if err := c.get(ctx, path, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// TestConnection probes the gateway by listing sessions.
func (c *Client) TestConnection(ctx context.Context) error {
	var sessions []Session
	return c.get(ctx, "sessions", &sessions)
}

// post issues a rate-limited JSON POST to a gateway endpoint.
func (c *Client) post(ctx context.Context, op string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &GatewayError{Op: op, Body: err.Error()}
	}

	baseURL, apiKey, _ := c.snapshot()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/"+op, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	setAuth(req, apiKey)

	return c.do(req, op, out)
}

// get issues a JSON GET against a session-relative path.
func (c *Client) get(ctx context.Context, path string, out any) error {
	baseURL, apiKey, _ := c.snapshot()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/"+path, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	setAuth(req, apiKey)

	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &GatewayError{Op: op, Body: err.Error()}
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &GatewayError{Op: op, Status: resp.StatusCode, Body: string(data)}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		// Some gateway builds answer sends with an empty object or plain
		// text; tolerate it rather than failing a delivered message.
		slog.Debug("waha response not decodable", "op", op, "error", err)
	}
	return nil
}

// setAuth attaches the API key both ways gateways expect it; sending both is
// tolerated by every known deployment.
func setAuth(req *http.Request, apiKey string) {
	if apiKey == "" {
		return
	}
	req.Header.Set("X-Api-Key", apiKey)
	req.Header.Set("Authorization", "Bearer "+apiKey)
}

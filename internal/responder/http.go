package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPResponder calls the booking AI service over HTTP: one POST with the
// request fields, one JSON reply back.
type HTTPResponder struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPResponder creates a responder client for the given endpoint.
func NewHTTPResponder(url, apiKey string) *HTTPResponder {
	return &HTTPResponder{
		url:    strings.TrimRight(url, "/"),
		apiKey: apiKey,
		// The processor's per-call timeout is the real budget; this is a
		// hard ceiling against leaked contexts.
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type replyResponse struct {
	Reply string `json:"reply"`
}

// Reply implements Responder.
func (r *HTTPResponder) Reply(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal responder request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build responder request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("responder call: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("responder status %d: %s", resp.StatusCode, string(data))
	}

	var out replyResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode responder reply: %w", err)
	}
	if strings.TrimSpace(out.Reply) == "" {
		return "", ErrEmptyReply
	}
	return out.Reply, nil
}

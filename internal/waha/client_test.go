package waha

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/musafirlabs/wahapipe/internal/config"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.GatewayConfig{
		BaseURL:   baseURL,
		APIKey:    "secret-key",
		Session:   "default",
		SendRate:  1000,
		SendBurst: 1000,
	})
}

func TestSendTextRequestShape(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	var gotAPIKey, gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("X-Api-Key")
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "msg-1"})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	ref, err := client.SendText(context.Background(), "967712345678@c.us", "hello")
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}

	if gotPath != "/sendText" {
		t.Errorf("path = %q, want /sendText", gotPath)
	}
	if gotAPIKey != "secret-key" {
		t.Errorf("X-Api-Key = %q", gotAPIKey)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["session"] != "default" || gotBody["chatId"] != "967712345678@c.us" || gotBody["text"] != "hello" {
		t.Errorf("unexpected body: %v", gotBody)
	}
	if ref.ID != "msg-1" {
		t.Errorf("ref.ID = %q, want msg-1", ref.ID)
	}
}

func TestNon2xxBecomesGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.SendText(context.Background(), "x@c.us", "hi")
	if err == nil {
		t.Fatal("expected error for 404")
	}

	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("error type = %T, want *GatewayError", err)
	}
	if gwErr.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", gwErr.Status)
	}
	if gwErr.Op != "sendText" {
		t.Errorf("op = %q, want sendText", gwErr.Op)
	}
}

func TestChatMessagesURL(t *testing.T) {
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		json.NewEncoder(w).Encode([]Message{{ID: "m1", Body: "hi"}})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	msgs, err := client.ChatMessages(context.Background(), "967712345678@c.us", 7)
	if err != nil {
		t.Fatalf("ChatMessages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "m1" {
		t.Errorf("unexpected messages: %+v", msgs)
	}
	want := "/default/chats/967712345678@c.us/messages?limit=7"
	if gotURL != want {
		t.Errorf("url = %q, want %q", gotURL, want)
	}
}

func TestSendSeenEmptyBodyTolerated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	if err := client.SendSeen(context.Background(), "x@c.us"); err != nil {
		t.Errorf("SendSeen with empty response body: %v", err)
	}
}

func TestSetConfigSwapsCredentials(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	client.SetConfig(config.GatewayConfig{BaseURL: srv.URL, APIKey: "rotated", Session: "default"})

	if err := client.TestConnection(context.Background()); err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
	if gotKey != "rotated" {
		t.Errorf("X-Api-Key after reload = %q, want rotated", gotKey)
	}
}

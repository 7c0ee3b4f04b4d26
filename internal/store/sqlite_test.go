package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func (s *SQLiteStore) statusOf(t *testing.T, providerID string) string {
	t.Helper()
	var status string
	err := s.db.QueryRow(
		`SELECT status FROM messages WHERE provider_id = ? AND direction = 'in'`,
		providerID).Scan(&status)
	if err != nil {
		t.Fatalf("query status of %s: %v", providerID, err)
	}
	return status
}

func TestSQLiteSaveAndUpdateStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := NewRecord("prov-1", DirectionIn, "967700@c.us", "أريد حجز", "text", StatusReceived)
	if err := s.SaveMessage(ctx, rec); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}
	if got := s.statusOf(t, "prov-1"); got != StatusReceived {
		t.Errorf("status = %q, want received", got)
	}

	if err := s.UpdateStatus(ctx, "prov-1", StatusReplied); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got := s.statusOf(t, "prov-1"); got != StatusReplied {
		t.Errorf("status = %q, want replied", got)
	}
}

func TestSQLiteUpdateStatusOnlyTouchesInbound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := NewRecord("prov-2", DirectionIn, "967700@c.us", "hello", "text", StatusReceived)
	out := NewRecord("prov-2", DirectionOut, "967700@c.us", "reply", "text", StatusSent)
	if err := s.SaveMessage(ctx, in); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveMessage(ctx, out); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateStatus(ctx, "prov-2", StatusReplied); err != nil {
		t.Fatal(err)
	}

	var outStatus string
	err := s.db.QueryRow(
		`SELECT status FROM messages WHERE provider_id = ? AND direction = 'out'`,
		"prov-2").Scan(&outStatus)
	if err != nil {
		t.Fatal(err)
	}
	if outStatus != StatusSent {
		t.Errorf("outbound status = %q, UpdateStatus must leave outbound records alone", outStatus)
	}
}

func TestSQLiteSchemaIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	s1, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	rec := NewRecord("prov-3", DirectionIn, "1@c.us", "hi", "text", StatusReceived)
	if err := s1.SaveMessage(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	s1.Close()

	// Reopening must keep the existing rows.
	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if got := s2.statusOf(t, "prov-3"); got != StatusReceived {
		t.Errorf("status after reopen = %q, want received", got)
	}
}

func TestSQLitePing(t *testing.T) {
	s := openTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestNewRecordFillsIdentity(t *testing.T) {
	a := NewRecord("p1", DirectionIn, "c", "b", "text", StatusReceived)
	b := NewRecord("p1", DirectionIn, "c", "b", "text", StatusReceived)

	if a.ID == b.ID {
		t.Error("two records share an id")
	}
	if a.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

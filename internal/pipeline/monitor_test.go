package pipeline

import (
	"fmt"
	"testing"
)

func TestMonitorCounters(t *testing.T) {
	m := NewMonitor(10)

	m.Received()
	m.Received()
	m.Duplicate()
	m.Queued()
	m.Processed()
	m.Reply()
	m.Fallback()
	m.Suppressed()
	m.Failure()
	m.Dropped()
	m.Shed()

	snap := m.SnapshotNow()
	if snap.Received != 2 {
		t.Errorf("received = %d, want 2", snap.Received)
	}
	for name, got := range map[string]int64{
		"duplicates": snap.Duplicates,
		"queued":     snap.Queued,
		"processed":  snap.Processed,
		"replies":    snap.Replies,
		"fallbacks":  snap.Fallbacks,
		"suppressed": snap.Suppressed,
		"failures":   snap.Failures,
		"dropped":    snap.Dropped,
		"shed":       snap.Shed,
	} {
		if got != 1 {
			t.Errorf("%s = %d, want 1", name, got)
		}
	}
}

func TestAlertRingBounded(t *testing.T) {
	m := NewMonitor(3)

	for i := 0; i < 5; i++ {
		m.AddAlert("alert %d", i)
	}

	snap := m.SnapshotNow()
	if len(snap.Alerts) != 3 {
		t.Fatalf("alerts = %d, want 3 (ring capacity)", len(snap.Alerts))
	}
	// Oldest first, oldest two overwritten.
	for i, want := range []string{"alert 2", "alert 3", "alert 4"} {
		if snap.Alerts[i].Message != want {
			t.Errorf("alerts[%d] = %q, want %q", i, snap.Alerts[i].Message, want)
		}
	}
}

func TestAlertRingPartialFill(t *testing.T) {
	m := NewMonitor(5)
	m.AddAlert("only")

	snap := m.SnapshotNow()
	if len(snap.Alerts) != 1 || snap.Alerts[0].Message != "only" {
		t.Errorf("alerts = %v, want single entry", snap.Alerts)
	}
}

func TestConversationCacheReturning(t *testing.T) {
	c := NewConversationCache()

	info, returning := c.Touch("chat1", "hello")
	if returning {
		t.Error("first contact flagged as returning")
	}
	if info.MessageCount != 1 {
		t.Errorf("message count = %d, want 1", info.MessageCount)
	}

	info, returning = c.Touch("chat1", "again")
	if !returning {
		t.Error("second contact not flagged as returning")
	}
	if info.MessageCount != 2 {
		t.Errorf("message count = %d, want 2", info.MessageCount)
	}
	if info.LastBody != "again" {
		t.Errorf("last body = %q, want %q", info.LastBody, "again")
	}

	if _, ok := c.Get("never"); ok {
		t.Error("unknown conversation reported as tracked")
	}
}

func TestMonitorAlertFormatting(t *testing.T) {
	m := NewMonitor(2)
	m.AddAlert("message %s dropped after %d attempts", "abc", 2)

	snap := m.SnapshotNow()
	want := fmt.Sprintf("message %s dropped after %d attempts", "abc", 2)
	if snap.Alerts[0].Message != want {
		t.Errorf("alert = %q, want %q", snap.Alerts[0].Message, want)
	}
}

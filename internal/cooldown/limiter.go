// Package cooldown enforces a minimum interval between consecutive outbound
// replies to the same conversation. Purely time-based: no backoff curve.
package cooldown

import (
	"sync"
	"time"
)

// maxTrackedChats caps the number of tracked conversations to prevent
// unbounded growth under id churn.
const maxTrackedChats = 8192

// Limiter tracks the last reply time per conversation. Safe for concurrent
// use from the adapters and the dispatcher.
type Limiter struct {
	window time.Duration

	mu        sync.Mutex
	lastReply map[string]time.Time
	now       func() time.Time
}

// NewLimiter creates a Limiter with the given cooldown window.
func NewLimiter(window time.Duration) *Limiter {
	return &Limiter{
		window:    window,
		lastReply: make(map[string]time.Time),
		now:       time.Now,
	}
}

// InCooldown reports whether a reply to chatID would violate the window.
func (l *Limiter) InCooldown(chatID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	last, ok := l.lastReply[chatID]
	if !ok {
		return false
	}
	return l.now().Sub(last) < l.window
}

// RecordReply stores the reply time for chatID. Called only after a
// successful send.
func (l *Limiter) RecordReply(chatID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.lastReply) >= maxTrackedChats {
		l.pruneLocked()
	}
	l.lastReply[chatID] = l.now()
}

// pruneLocked drops entries already outside the window; if everything is
// fresh it evicts arbitrary entries to stay under the cap.
func (l *Limiter) pruneLocked() {
	cutoff := l.now().Add(-l.window)
	for id, t := range l.lastReply {
		if t.Before(cutoff) {
			delete(l.lastReply, id)
		}
	}
	for len(l.lastReply) >= maxTrackedChats {
		for id := range l.lastReply {
			delete(l.lastReply, id)
			break
		}
	}
}

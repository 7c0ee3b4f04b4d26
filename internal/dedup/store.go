// Package dedup tracks which provider message ids are being processed or are
// already processed. Its claim operation is the at-most-once guard for the
// whole pipeline: an id arriving over two transports at once still yields a
// single processing attempt.
package dedup

import (
	"context"
	"sync"
	"time"
)

// State of a tracked message id. Ids move unclaimed → claimed → done exactly
// once; re-arrival in either tracked state is a no-op for the caller.
type State string

const (
	StateClaimed State = "claimed"
	StateDone    State = "done"
)

// Store is the claim/done API. Implementations must make TryClaim and
// MarkDone atomic with respect to each other.
type Store interface {
	// TryClaim atomically claims id for processing. False means the id is
	// already claimed or done and the caller must stop.
	TryClaim(ctx context.Context, id string) (bool, error)
	// MarkDone transitions a claimed id to done.
	MarkDone(ctx context.Context, id string) error
	// Sweep removes done entries older than olderThan and returns how many
	// were removed. Claimed entries are also evicted past the window so a
	// crashed attempt cannot block an id forever.
	Sweep(ctx context.Context, olderThan time.Duration) (int, error)
	Close() error
}

type entry struct {
	state     State
	claimedAt time.Time
	doneAt    time.Time
}

// MemoryStore is the single-process Store: a mutex-guarded map.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory dedup store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// TryClaim implements Store. The check-and-set happens under one lock, so
// two adapters racing on the same id serialize here.
func (s *MemoryStore) TryClaim(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; exists {
		return false, nil
	}
	s.entries[id] = &entry{state: StateClaimed, claimedAt: s.now()}
	return true, nil
}

// MarkDone implements Store. Marking an unknown id done is tolerated (the
// sweep may have evicted a long-running claim).
func (s *MemoryStore) MarkDone(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[id]
	if !exists {
		e = &entry{claimedAt: s.now()}
		s.entries[id] = e
	}
	e.state = StateDone
	e.doneAt = s.now()
	return nil
}

// Sweep implements Store.
func (s *MemoryStore) Sweep(_ context.Context, olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-olderThan)
	removed := 0
	for id, e := range s.entries {
		switch e.state {
		case StateDone:
			if e.doneAt.Before(cutoff) {
				delete(s.entries, id)
				removed++
			}
		case StateClaimed:
			if e.claimedAt.Before(cutoff) {
				delete(s.entries, id)
				removed++
			}
		}
	}
	return removed, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// Len reports the number of tracked ids.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
)

// Sweeper evicts expired dedup entries on a cron schedule, independent of
// claim/done traffic.
type Sweeper struct {
	store     Store
	schedule  string
	retention time.Duration
}

// NewSweeper validates the cron expression and returns a Sweeper.
func NewSweeper(store Store, schedule string, retention time.Duration) (*Sweeper, error) {
	if !gronx.New().IsValid(schedule) {
		return nil, fmt.Errorf("invalid sweep schedule %q", schedule)
	}
	return &Sweeper{store: store, schedule: schedule, retention: retention}, nil
}

// Run blocks, sweeping at each schedule tick, until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	for {
		next, err := gronx.NextTick(s.schedule, false)
		if err != nil {
			return fmt.Errorf("compute next sweep: %w", err)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		removed, err := s.store.Sweep(ctx, s.retention)
		if err != nil {
			slog.Error("dedup sweep failed", "error", err)
			continue
		}
		if removed > 0 {
			slog.Info("dedup sweep", "removed", removed, "retention", s.retention)
		}
	}
}

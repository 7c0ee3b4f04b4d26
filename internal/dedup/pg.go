package dedup

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PGStore implements Store on Postgres so the at-most-once guarantee holds
// across multiple pipeline instances. The claim is a conditional insert: the
// primary key makes exactly one racing instance win.
type PGStore struct {
	db *sql.DB
}

// NewPGStore opens a Postgres-backed dedup store. Schema is managed by the
// migrate command (dedup_claims table).
func NewPGStore(dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &PGStore{db: db}, nil
}

// NewPGStoreFromDB wraps an existing connection pool (shared with the
// message store).
func NewPGStoreFromDB(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

// TryClaim implements Store.
func (s *PGStore) TryClaim(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO dedup_claims (message_id, state, claimed_at)
		 VALUES ($1, 'claimed', now())
		 ON CONFLICT (message_id) DO NOTHING`, id)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", id, err)
	}
	return n == 1, nil
}

// MarkDone implements Store.
func (s *PGStore) MarkDone(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dedup_claims (message_id, state, claimed_at, done_at)
		 VALUES ($1, 'done', now(), now())
		 ON CONFLICT (message_id)
		 DO UPDATE SET state = 'done', done_at = now()`, id)
	if err != nil {
		return fmt.Errorf("mark done %s: %w", id, err)
	}
	return nil
}

// Sweep implements Store.
func (s *PGStore) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM dedup_claims
		 WHERE (state = 'done' AND done_at < now() - $1::interval)
		    OR (state = 'claimed' AND claimed_at < now() - $1::interval)`,
		fmt.Sprintf("%f seconds", olderThan.Seconds()))
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Close implements Store.
func (s *PGStore) Close() error { return s.db.Close() }

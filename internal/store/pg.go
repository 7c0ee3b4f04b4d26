package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PGStore persists message records in Postgres (multi-instance deployments).
// Schema is managed by `wahapipe migrate up`.
type PGStore struct {
	db *sql.DB
}

// OpenPG opens a Postgres pool shared by the message store and the dedup
// store.
func OpenPG(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// NewPGStore wraps an existing connection pool.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

// SaveMessage implements Store.
func (s *PGStore) SaveMessage(ctx context.Context, rec MessageRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, provider_id, direction, chat_id, body, content_type, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.ProviderID, string(rec.Direction), rec.ChatID,
		rec.Body, rec.ContentType, rec.Status, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("save message %s: %w", rec.ProviderID, err)
	}
	return nil
}

// UpdateStatus implements Store.
func (s *PGStore) UpdateStatus(ctx context.Context, providerID, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE messages SET status = $1 WHERE provider_id = $2 AND direction = 'in'`,
		status, providerID)
	if err != nil {
		return fmt.Errorf("update status %s: %w", providerID, err)
	}
	return nil
}

// Ping implements Store.
func (s *PGStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close implements Store.
func (s *PGStore) Close() error { return s.db.Close() }

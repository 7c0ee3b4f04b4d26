package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY,
	provider_id TEXT,
	direction   TEXT NOT NULL,
	chat_id     TEXT NOT NULL,
	body        TEXT,
	content_type TEXT,
	status      TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, created_at);
CREATE INDEX IF NOT EXISTS idx_messages_provider ON messages(provider_id);
`

// SQLiteStore is the default single-instance persistence backend.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the SQLite database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writes; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveMessage implements Store.
func (s *SQLiteStore) SaveMessage(ctx context.Context, rec MessageRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, provider_id, direction, chat_id, body, content_type, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.ProviderID, string(rec.Direction), rec.ChatID,
		rec.Body, rec.ContentType, rec.Status, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("save message %s: %w", rec.ProviderID, err)
	}
	return nil
}

// UpdateStatus implements Store.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, providerID, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE messages SET status = ? WHERE provider_id = ? AND direction = 'in'`,
		status, providerID)
	if err != nil {
		return fmt.Errorf("update status %s: %w", providerID, err)
	}
	return nil
}

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close implements Store.
func (s *SQLiteStore) Close() error { return s.db.Close() }

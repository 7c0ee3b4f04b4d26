// Package store persists inbound and outbound message records. Records are
// audit data for the back office, not pipeline state: the pipeline keeps
// working when a save fails.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Direction of a message record.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Record statuses.
const (
	StatusReceived   = "received"
	StatusReplied    = "replied"
	StatusSuppressed = "suppressed"
	StatusFailed     = "failed"
	StatusSent       = "sent"
)

// MessageRecord is one persisted message, either direction.
type MessageRecord struct {
	ID          uuid.UUID
	ProviderID  string // provider message id; empty for outbound records the gateway gave no id for
	Direction   Direction
	ChatID      string
	Body        string
	ContentType string
	Status      string
	CreatedAt   time.Time
}

// Store is the persistence collaborator contract.
type Store interface {
	SaveMessage(ctx context.Context, rec MessageRecord) error
	// UpdateStatus updates the status of the inbound record with the given
	// provider id (e.g. received → replied / suppressed).
	UpdateStatus(ctx context.Context, providerID, status string) error
	Ping(ctx context.Context) error
	Close() error
}

// NewRecord fills in id and timestamp for a fresh record.
func NewRecord(providerID string, dir Direction, chatID, body, contentType, status string) MessageRecord {
	return MessageRecord{
		ID:          uuid.Must(uuid.NewV7()),
		ProviderID:  providerID,
		Direction:   dir,
		ChatID:      chatID,
		Body:        body,
		ContentType: contentType,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}
}

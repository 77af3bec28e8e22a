// Package outbox mirrors audit entries into the audit_outbox table inside
// the recording transaction so a separate relay can publish them to Kafka.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one pending publication.
type Entry struct {
	ID            uuid.UUID
	AggregateType string // audit entity type
	AggregateID   string // audit entity id
	EventType     string // audit action
	Payload       []byte // JSON audit entry
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}

func (e *Entry) IsPending() bool {
	return e.ProcessedAt == nil
}

func NewEntry(aggregateType, aggregateID, eventType string, payload []byte, at time.Time) *Entry {
	return &Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     at,
	}
}

// Store persists outbox entries. FetchUnprocessed returns the oldest first.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	FetchUnprocessed(ctx context.Context, limit int) ([]*Entry, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error
	CountPending(ctx context.Context) (int64, error)
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}

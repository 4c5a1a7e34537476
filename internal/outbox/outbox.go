// Package outbox implements the transactional outbox: domain events
// are appended in the same transaction as the state change that caused
// them, then relayed to the broker by a polling publisher.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	StatusNew       = "NEW"
	StatusPublished = "PUBLISHED"
)

type Record struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Status        string
	DedupeKey     string
}

func NewRecord(aggregateType string, aggregateID uuid.UUID, eventType string, payload interface{}) (Record, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       body,
		Status:        StatusNew,
		DedupeKey:     uuid.New().String(),
	}, nil
}

type Store interface {
	ListUnpublished(ctx context.Context, limit int) ([]Record, error)
	MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error
}

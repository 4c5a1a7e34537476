package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Taha-mlaiki/ResNow/internal/domain"
	"github.com/Taha-mlaiki/ResNow/internal/outbox"
)

// EventStore persists events. FindByID returns domain.ErrNotFound for
// unknown ids.
type EventStore interface {
	Create(ctx context.Context, event *domain.Event) error
	Save(ctx context.Context, event *domain.Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Event, error)
	List(ctx context.Context) ([]domain.Event, error)
	ListByStatus(ctx context.Context, status domain.EventStatus) ([]domain.Event, error)
	Count(ctx context.Context) (int, error)
}

// ReservationStore persists reservations. FindByID and FindPending
// return domain.ErrNotFound when nothing matches.
type ReservationStore interface {
	Create(ctx context.Context, r *domain.Reservation) error
	Save(ctx context.Context, r *domain.Reservation) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	FindPending(ctx context.Context, participantID, eventID uuid.UUID) (*domain.Reservation, error)
	List(ctx context.Context) ([]domain.Reservation, error)
	ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]domain.Reservation, error)
	ListStalePending(ctx context.Context, startedBefore time.Time) ([]domain.Reservation, error)
	Count(ctx context.Context) (int, error)
}

type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Count(ctx context.Context) (int, error)
}

// StoreTx is the transactional view handed to WithTx callbacks. Writes
// issued through it, including outbox appends, commit or roll back as
// one unit.
type StoreTx interface {
	Events() EventStore
	Reservations() ReservationStore
	AppendOutbox(ctx context.Context, rec outbox.Record) error
}

type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx StoreTx) error) error
}

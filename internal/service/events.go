// Package service implements the event and reservation lifecycles:
// the state machines, capacity accounting, and the validation rules
// guarding them. HTTP, persistence, and auth are collaborators.
package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/Taha-mlaiki/ResNow/internal/clock"
	"github.com/Taha-mlaiki/ResNow/internal/domain"
	"github.com/Taha-mlaiki/ResNow/internal/observability"
	"github.com/Taha-mlaiki/ResNow/internal/outbox"
)

type CreateEventInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Location    string    `json:"location"`
	Capacity    int       `json:"capacity"`
}

// UpdateEventInput is a patch: nil fields are left untouched.
type UpdateEventInput struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	StartDate   *time.Time          `json:"startDate"`
	EndDate     *time.Time          `json:"endDate"`
	Location    *string             `json:"location"`
	Capacity    *int                `json:"capacity"`
	Status      *domain.EventStatus `json:"status"`
}

type EventService struct {
	events EventStore
	tx     TxRunner
	locks  *EventLocks
	clock  clock.Clock
	logger observability.Logger
}

func NewEventService(events EventStore, tx TxRunner, locks *EventLocks, clk clock.Clock, logger observability.Logger) *EventService {
	return &EventService{events: events, tx: tx, locks: locks, clock: clk, logger: logger}
}

func (s *EventService) Create(ctx context.Context, input CreateEventInput, createdBy uuid.UUID) (*domain.Event, error) {
	now := s.clock.Now()

	if !input.EndDate.After(input.StartDate) {
		return nil, domain.Validation("End date must be after start date")
	}
	if input.StartDate.Before(now) {
		return nil, domain.Validation("Start date cannot be in the past")
	}
	if input.Capacity <= 0 {
		return nil, domain.Validation("Capacity must be a positive integer")
	}

	event := domain.NewEvent(input.Title, input.Description, input.Location, input.StartDate, input.EndDate, input.Capacity, createdBy, now)
	if err := s.events.Create(ctx, &event); err != nil {
		return nil, err
	}
	s.logger.WithField("event_id", event.ID).Info("event created")
	return &event, nil
}

func (s *EventService) Update(ctx context.Context, id uuid.UUID, patch UpdateEventInput) (*domain.Event, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	now := s.clock.Now()
	var updated *domain.Event
	err := s.tx.WithTx(ctx, func(tx StoreTx) error {
		event, err := tx.Events().FindByID(ctx, id)
		if err != nil {
			return eventNotFound(id, err)
		}

		if patch.StartDate != nil || patch.EndDate != nil {
			start := event.StartDate
			end := event.EndDate
			if patch.StartDate != nil {
				start = *patch.StartDate
			}
			if patch.EndDate != nil {
				end = *patch.EndDate
			}
			if !end.After(start) {
				return domain.Validation("End date must be after start date")
			}
			// The past-start rule applies only when the start date is
			// being changed, so events already underway stay editable.
			if patch.StartDate != nil && start.Before(now) {
				return domain.Validation("Start date cannot be in the past")
			}
			event.StartDate = start
			event.EndDate = end
		}

		if patch.Capacity != nil {
			if *patch.Capacity < event.ReservedCount {
				return domain.Validationf("Capacity cannot be less than current reservations (%d)", event.ReservedCount)
			}
			event.Capacity = *patch.Capacity
		}

		if patch.Status != nil {
			if *patch.Status == domain.EventPublished && event.StartDate.Before(now) {
				return domain.Validation("Cannot publish event that has already started")
			}
			event.Status = *patch.Status
		}

		if patch.Title != nil {
			event.Title = *patch.Title
		}
		if patch.Description != nil {
			event.Description = *patch.Description
		}
		if patch.Location != nil {
			event.Location = *patch.Location
		}

		event.UpdatedAt = now
		if err := tx.Events().Save(ctx, event); err != nil {
			return err
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *EventService) Publish(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	now := s.clock.Now()
	var published *domain.Event
	err := s.tx.WithTx(ctx, func(tx StoreTx) error {
		event, err := tx.Events().FindByID(ctx, id)
		if err != nil {
			return eventNotFound(id, err)
		}
		if event.Status == domain.EventPublished {
			return domain.Validation("Event is already published")
		}
		if event.Status == domain.EventCanceled {
			return domain.Validation("Cannot publish a canceled event")
		}
		if event.StartDate.Before(now) {
			return domain.Validation("Cannot publish event that has already started")
		}

		event.Status = domain.EventPublished
		event.UpdatedAt = now
		if err := tx.Events().Save(ctx, event); err != nil {
			return err
		}
		rec, err := outbox.NewRecord("event", event.ID, "event.published", map[string]interface{}{"event_id": event.ID})
		if err != nil {
			return err
		}
		if err := tx.AppendOutbox(ctx, rec); err != nil {
			return err
		}
		published = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithField("event_id", id).Info("event published")
	return published, nil
}

func (s *EventService) Cancel(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	now := s.clock.Now()
	var canceled *domain.Event
	err := s.tx.WithTx(ctx, func(tx StoreTx) error {
		event, err := tx.Events().FindByID(ctx, id)
		if err != nil {
			return eventNotFound(id, err)
		}
		if event.Status == domain.EventCanceled {
			return domain.Validation("Event is already canceled")
		}

		event.Status = domain.EventCanceled
		event.UpdatedAt = now
		if err := tx.Events().Save(ctx, event); err != nil {
			return err
		}
		rec, err := outbox.NewRecord("event", event.ID, "event.canceled", map[string]interface{}{"event_id": event.ID})
		if err != nil {
			return err
		}
		if err := tx.AppendOutbox(ctx, rec); err != nil {
			return err
		}
		canceled = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithField("event_id", id).Info("event canceled")
	return canceled, nil
}

func (s *EventService) FindOne(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, eventNotFound(id, err)
	}
	return event, nil
}

func (s *EventService) FindAll(ctx context.Context) ([]domain.Event, error) {
	return s.events.List(ctx)
}

func (s *EventService) FindPublished(ctx context.Context) ([]domain.Event, error) {
	return s.events.ListByStatus(ctx, domain.EventPublished)
}

// FindPublishedOne is the public read: draft and canceled events are
// invisible, reported as absent.
func (s *EventService) FindPublishedOne(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, eventNotFound(id, err)
	}
	if event.Status != domain.EventPublished {
		return nil, domain.NotFoundf("Event with ID %s not found", id)
	}
	return event, nil
}

func eventNotFound(id uuid.UUID, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFoundf("Event with ID %s not found", id)
	}
	return err
}

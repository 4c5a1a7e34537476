package service

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/Taha-mlaiki/ResNow/internal/clock"
	"github.com/Taha-mlaiki/ResNow/internal/domain"
	"github.com/Taha-mlaiki/ResNow/internal/observability"
	"github.com/Taha-mlaiki/ResNow/internal/outbox"
)

// ReservationService drives the reservation state machine:
//
//	Pending --confirm--> Confirmed
//	Pending --refuse---> Refused
//	Pending|Confirmed --cancel--> Canceled
//
// Capacity is two-phase: creating a reservation never consumes a seat;
// only confirmation does, under the per-event lock, so ReservedCount
// can never exceed Capacity no matter how many requests are pending.
type ReservationService struct {
	reservations ReservationStore
	tx           TxRunner
	locks        *EventLocks
	clock        clock.Clock
	logger       observability.Logger
}

func NewReservationService(reservations ReservationStore, tx TxRunner, locks *EventLocks, clk clock.Clock, logger observability.Logger) *ReservationService {
	return &ReservationService{reservations: reservations, tx: tx, locks: locks, clock: clk, logger: logger}
}

func (s *ReservationService) Create(ctx context.Context, eventID, participantID uuid.UUID) (*domain.Reservation, error) {
	unlock := s.locks.Lock(eventID)
	defer unlock()

	now := s.clock.Now()
	var created *domain.Reservation
	err := s.tx.WithTx(ctx, func(tx StoreTx) error {
		event, err := tx.Events().FindByID(ctx, eventID)
		if err != nil {
			return eventNotFound(eventID, err)
		}
		if event.Status != domain.EventPublished {
			return domain.Validation("Cannot reserve for an event that is not published")
		}
		// Advisory check only: pending requests may still outnumber the
		// remaining seats. Confirmation re-checks authoritatively.
		if event.IsFull() {
			return domain.Validation("Event is full")
		}

		if _, err := tx.Reservations().FindPending(ctx, participantID, eventID); err == nil {
			return domain.Validation("You already have a pending reservation for this event")
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		r := domain.NewReservation(eventID, participantID, now)
		if err := tx.Reservations().Create(ctx, &r); err != nil {
			return err
		}
		rec, err := outbox.NewRecord("reservation", r.ID, "reservation.created", reservationPayload(&r))
		if err != nil {
			return err
		}
		if err := tx.AppendOutbox(ctx, rec); err != nil {
			return err
		}
		created = &r
		return nil
	})
	if err != nil {
		observability.ReservationDecisions.WithLabelValues("create", "rejected").Inc()
		return nil, err
	}
	observability.ReservationDecisions.WithLabelValues("create", "ok").Inc()
	s.logger.WithField("reservation_id", created.ID).WithField("event_id", eventID).Info("reservation created")
	return created, nil
}

func (s *ReservationService) Confirm(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	head, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, reservationNotFound(err)
	}

	unlock := s.locks.Lock(head.EventID)
	defer unlock()

	now := s.clock.Now()
	var confirmed *domain.Reservation
	err = s.tx.WithTx(ctx, func(tx StoreTx) error {
		r, err := tx.Reservations().FindByID(ctx, id)
		if err != nil {
			return reservationNotFound(err)
		}
		if r.Status != domain.ReservationPending {
			return domain.Validation("Only pending reservations can be confirmed")
		}

		// The authoritative capacity check. Re-read under the lock so
		// two confirmations for the last seat cannot both pass.
		event, err := tx.Events().FindByID(ctx, r.EventID)
		if err != nil {
			return eventNotFound(r.EventID, err)
		}
		if event.IsFull() {
			return domain.Validation("Cannot confirm reservation - event is full")
		}

		r.Status = domain.ReservationConfirmed
		r.UpdatedAt = now
		event.ReservedCount++
		event.UpdatedAt = now
		if err := tx.Events().Save(ctx, event); err != nil {
			return err
		}
		if err := tx.Reservations().Save(ctx, r); err != nil {
			return err
		}
		rec, err := outbox.NewRecord("reservation", r.ID, "reservation.confirmed", reservationPayload(r))
		if err != nil {
			return err
		}
		if err := tx.AppendOutbox(ctx, rec); err != nil {
			return err
		}
		confirmed = r
		return nil
	})
	if err != nil {
		observability.ReservationDecisions.WithLabelValues("confirm", "rejected").Inc()
		return nil, err
	}
	observability.ReservationDecisions.WithLabelValues("confirm", "ok").Inc()
	s.logger.WithField("reservation_id", id).Info("reservation confirmed")
	return confirmed, nil
}

func (s *ReservationService) Refuse(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	now := s.clock.Now()
	var refused *domain.Reservation
	err := s.tx.WithTx(ctx, func(tx StoreTx) error {
		r, err := tx.Reservations().FindByID(ctx, id)
		if err != nil {
			return reservationNotFound(err)
		}
		if r.Status != domain.ReservationPending {
			return domain.Validation("Only pending reservations can be refused")
		}

		r.Status = domain.ReservationRefused
		r.UpdatedAt = now
		if err := tx.Reservations().Save(ctx, r); err != nil {
			return err
		}
		rec, err := outbox.NewRecord("reservation", r.ID, "reservation.refused", reservationPayload(r))
		if err != nil {
			return err
		}
		if err := tx.AppendOutbox(ctx, rec); err != nil {
			return err
		}
		refused = r
		return nil
	})
	if err != nil {
		observability.ReservationDecisions.WithLabelValues("refuse", "rejected").Inc()
		return nil, err
	}
	observability.ReservationDecisions.WithLabelValues("refuse", "ok").Inc()
	s.logger.WithField("reservation_id", id).Info("reservation refused")
	return refused, nil
}

func (s *ReservationService) Cancel(ctx context.Context, id, requesterID uuid.UUID) (*domain.Reservation, error) {
	head, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, reservationNotFound(err)
	}

	unlock := s.locks.Lock(head.EventID)
	defer unlock()

	now := s.clock.Now()
	var canceled *domain.Reservation
	err = s.tx.WithTx(ctx, func(tx StoreTx) error {
		r, err := tx.Reservations().FindByID(ctx, id)
		if err != nil {
			return reservationNotFound(err)
		}
		if r.ParticipantID != requesterID {
			return domain.Validation("You can only cancel your own reservations")
		}
		if r.Status != domain.ReservationPending && r.Status != domain.ReservationConfirmed {
			return domain.Validation("Only pending or confirmed reservations can be canceled")
		}

		// A confirmed reservation held a seat; give it back. A pending
		// one never allocated anything.
		if r.Status == domain.ReservationConfirmed {
			event, err := tx.Events().FindByID(ctx, r.EventID)
			if err != nil {
				return eventNotFound(r.EventID, err)
			}
			event.ReservedCount--
			event.UpdatedAt = now
			if err := tx.Events().Save(ctx, event); err != nil {
				return err
			}
		}

		r.Status = domain.ReservationCanceled
		r.UpdatedAt = now
		if err := tx.Reservations().Save(ctx, r); err != nil {
			return err
		}
		rec, err := outbox.NewRecord("reservation", r.ID, "reservation.canceled", reservationPayload(r))
		if err != nil {
			return err
		}
		if err := tx.AppendOutbox(ctx, rec); err != nil {
			return err
		}
		canceled = r
		return nil
	})
	if err != nil {
		observability.ReservationDecisions.WithLabelValues("cancel", "rejected").Inc()
		return nil, err
	}
	observability.ReservationDecisions.WithLabelValues("cancel", "ok").Inc()
	s.logger.WithField("reservation_id", id).Info("reservation canceled")
	return canceled, nil
}

func (s *ReservationService) FindOne(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	r, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, reservationNotFound(err)
	}
	return r, nil
}

func (s *ReservationService) FindAll(ctx context.Context) ([]domain.Reservation, error) {
	return s.reservations.List(ctx)
}

func (s *ReservationService) FindByParticipant(ctx context.Context, participantID uuid.UUID) ([]domain.Reservation, error) {
	return s.reservations.ListByParticipant(ctx, participantID)
}

// SweepStalePending refuses pending reservations whose event has
// already started; admins can no longer meaningfully confirm them.
// Returns the number of reservations swept.
func (s *ReservationService) SweepStalePending(ctx context.Context) (int, error) {
	stale, err := s.reservations.ListStalePending(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, r := range stale {
		if _, err := s.Refuse(ctx, r.ID); err != nil {
			// Raced with an admin decision or a cancel; skip it.
			if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return swept, err
		}
		swept++
	}
	return swept, nil
}

func reservationPayload(r *domain.Reservation) map[string]interface{} {
	return map[string]interface{}{
		"reservation_id": r.ID,
		"event_id":       r.EventID,
		"participant_id": r.ParticipantID,
		"status":         r.Status,
	}
}

func reservationNotFound(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFoundf("Reservation not found")
	}
	return err
}

package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Taha-mlaiki/ResNow/internal/domain"
)

const reservationColumns = `id, participant_id, event_id, status, created_at, updated_at`

type reservationStore struct {
	q querier
}

func (s reservationStore) Create(ctx context.Context, r *domain.Reservation) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.ID, r.ParticipantID, r.EventID, r.Status, r.CreatedAt, r.UpdatedAt)
	return errors.Wrap(err, "insert reservation")
}

func (s reservationStore) Save(ctx context.Context, r *domain.Reservation) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE reservations SET status = $2, updated_at = $3 WHERE id = $1
	`, r.ID, r.Status, r.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "update reservation")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s reservationStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	r, err := scanReservation(s.q.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "select reservation")
	}
	return r, nil
}

func (s reservationStore) FindPending(ctx context.Context, participantID, eventID uuid.UUID) (*domain.Reservation, error) {
	r, err := scanReservation(s.q.QueryRow(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE participant_id = $1 AND event_id = $2 AND status = 'Pending'
	`, participantID, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "select pending reservation")
	}
	return r, nil
}

func (s reservationStore) List(ctx context.Context) ([]domain.Reservation, error) {
	rows, err := s.q.Query(ctx, `SELECT `+reservationColumns+` FROM reservations ORDER BY created_at ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "list reservations")
	}
	return collectReservations(rows)
}

func (s reservationStore) ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]domain.Reservation, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE participant_id = $1 ORDER BY created_at ASC
	`, participantID)
	if err != nil {
		return nil, errors.Wrap(err, "list reservations by participant")
	}
	return collectReservations(rows)
}

func (s reservationStore) ListStalePending(ctx context.Context, startedBefore time.Time) ([]domain.Reservation, error) {
	rows, err := s.q.Query(ctx, `
		SELECT r.id, r.participant_id, r.event_id, r.status, r.created_at, r.updated_at
		FROM reservations r
		JOIN events e ON e.id = r.event_id
		WHERE r.status = 'Pending' AND e.start_date < $1
		ORDER BY r.created_at ASC
	`, startedBefore)
	if err != nil {
		return nil, errors.Wrap(err, "list stale pending reservations")
	}
	return collectReservations(rows)
}

func (s reservationStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.q.QueryRow(ctx, `SELECT count(*) FROM reservations`).Scan(&n)
	return n, errors.Wrap(err, "count reservations")
}

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var r domain.Reservation
	err := row.Scan(&r.ID, &r.ParticipantID, &r.EventID, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collectReservations(rows pgx.Rows) ([]domain.Reservation, error) {
	defer rows.Close()
	var out []domain.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan reservation")
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Taha-mlaiki/ResNow/internal/domain"
)

const eventColumns = `id, title, description, start_date, end_date, location, capacity, reserved_count, status, created_by, created_at, updated_at`

type eventStore struct {
	q         querier
	forUpdate bool
}

func (s eventStore) Create(ctx context.Context, e *domain.Event) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, e.ID, e.Title, e.Description, e.StartDate, e.EndDate, e.Location, e.Capacity, e.ReservedCount, e.Status, e.CreatedByID, e.CreatedAt, e.UpdatedAt)
	return errors.Wrap(err, "insert event")
}

func (s eventStore) Save(ctx context.Context, e *domain.Event) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE events
		SET title = $2, description = $3, start_date = $4, end_date = $5, location = $6,
		    capacity = $7, reserved_count = $8, status = $9, updated_at = $10
		WHERE id = $1
	`, e.ID, e.Title, e.Description, e.StartDate, e.EndDate, e.Location, e.Capacity, e.ReservedCount, e.Status, e.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "update event")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s eventStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	if s.forUpdate {
		query += ` FOR UPDATE`
	}
	e, err := scanEvent(s.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "select event")
	}
	return e, nil
}

func (s eventStore) List(ctx context.Context) ([]domain.Event, error) {
	rows, err := s.q.Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY start_date ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "list events")
	}
	return collectEvents(rows)
}

func (s eventStore) ListByStatus(ctx context.Context, status domain.EventStatus) ([]domain.Event, error) {
	rows, err := s.q.Query(ctx, `SELECT `+eventColumns+` FROM events WHERE status = $1 ORDER BY start_date ASC`, status)
	if err != nil {
		return nil, errors.Wrap(err, "list events by status")
	}
	return collectEvents(rows)
}

func (s eventStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.q.QueryRow(ctx, `SELECT count(*) FROM events`).Scan(&n)
	return n, errors.Wrap(err, "count events")
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var e domain.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.StartDate, &e.EndDate, &e.Location,
		&e.Capacity, &e.ReservedCount, &e.Status, &e.CreatedByID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func collectEvents(rows pgx.Rows) ([]domain.Event, error) {
	defer rows.Close()
	var out []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Package postgres persists users, events, reservations, and the
// outbox in PostgreSQL via pgx. Lifecycle transactions run
// SERIALIZABLE and read event rows with FOR UPDATE, so the
// check-then-increment in confirmation is serialized per event even
// across processes.
package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Taha-mlaiki/ResNow/internal/domain"
	"github.com/Taha-mlaiki/ResNow/internal/observability"
	"github.com/Taha-mlaiki/ResNow/internal/outbox"
	"github.com/Taha-mlaiki/ResNow/internal/service"
)

const serializationFailureCode = "40001"

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) EventStore() service.EventStore {
	return eventStore{q: s.pool}
}

func (s *Store) ReservationStore() service.ReservationStore {
	return reservationStore{q: s.pool}
}

func (s *Store) UserStore() service.UserStore {
	return userStore{q: s.pool}
}

// WithTx runs fn inside a SERIALIZABLE transaction. Serialization
// failures surface as domain.ErrConflict so callers can retry.
func (s *Store) WithTx(ctx context.Context, fn func(tx service.StoreTx) error) error {
	start := time.Now()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE"); err != nil {
		return errors.Wrap(err, "set isolation level")
	}

	if err := fn(txView{tx: tx}); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == serializationFailureCode {
			return domain.Conflict("conflict, try again")
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	observability.DBTxDuration.Observe(time.Since(start).Seconds())
	return nil
}

type txView struct {
	tx pgx.Tx
}

func (v txView) Events() service.EventStore {
	// Transactional reads lock the event row.
	return eventStore{q: v.tx, forUpdate: true}
}

func (v txView) Reservations() service.ReservationStore {
	return reservationStore{q: v.tx}
}

func (v txView) AppendOutbox(ctx context.Context, rec outbox.Record) error {
	return insertOutbox(ctx, v.tx, rec)
}

// Migrate bootstraps the schema. Safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL CHECK (role IN ('Admin', 'Participant')),
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS events (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			capacity INT NOT NULL CHECK (capacity > 0),
			reserved_count INT NOT NULL DEFAULT 0 CHECK (reserved_count >= 0 AND reserved_count <= capacity),
			status TEXT NOT NULL CHECK (status IN ('Draft', 'Published', 'Canceled')),
			created_by UUID NOT NULL REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS reservations (
			id UUID PRIMARY KEY,
			participant_id UUID NOT NULL REFERENCES users(id),
			event_id UUID NOT NULL REFERENCES events(id),
			status TEXT NOT NULL CHECK (status IN ('Pending', 'Confirmed', 'Refused', 'Canceled')),
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS reservations_one_pending
			ON reservations (participant_id, event_id) WHERE status = 'Pending';
		CREATE TABLE IF NOT EXISTS outbox (
			id UUID PRIMARY KEY,
			aggregate_type TEXT NOT NULL,
			aggregate_id UUID NOT NULL,
			event_type TEXT NOT NULL,
			payload_json JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			published_at TIMESTAMPTZ,
			status TEXT NOT NULL DEFAULT 'NEW',
			dedupe_key TEXT NOT NULL
		);
	`)
	return errors.Wrap(err, "migrate")
}

// Package memory is an in-process implementation of the store
// contracts, used by the service and HTTP tests. Lifecycle writes are
// validated before any mutation and callers hold the per-event lock,
// so WithTx runs its callback directly against the shared maps.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Taha-mlaiki/ResNow/internal/domain"
	"github.com/Taha-mlaiki/ResNow/internal/outbox"
	"github.com/Taha-mlaiki/ResNow/internal/service"
)

type Store struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]domain.User
	events       map[uuid.UUID]domain.Event
	reservations map[uuid.UUID]domain.Reservation
	outbox       []outbox.Record
}

func NewStore() *Store {
	return &Store{
		users:        make(map[uuid.UUID]domain.User),
		events:       make(map[uuid.UUID]domain.Event),
		reservations: make(map[uuid.UUID]domain.Reservation),
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx service.StoreTx) error) error {
	return fn(s)
}

func (s *Store) Events() service.EventStore { return Events{s} }

func (s *Store) Reservations() service.ReservationStore { return Reservations{s} }

func (s *Store) Users() service.UserStore { return Users{s} }

// Events implements service.EventStore.
type Events struct{ s *Store }

func (e Events) Create(ctx context.Context, event *domain.Event) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	e.s.events[event.ID] = *event
	return nil
}

func (e Events) Save(ctx context.Context, event *domain.Event) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if _, ok := e.s.events[event.ID]; !ok {
		return domain.ErrNotFound
	}
	e.s.events[event.ID] = *event
	return nil
}

func (e Events) FindByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()
	event, ok := e.s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &event, nil
}

func (e Events) List(ctx context.Context) ([]domain.Event, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()
	out := make([]domain.Event, 0, len(e.s.events))
	for _, ev := range e.s.events {
		out = append(out, ev)
	}
	sortEvents(out)
	return out, nil
}

func (e Events) ListByStatus(ctx context.Context, status domain.EventStatus) ([]domain.Event, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()
	var out []domain.Event
	for _, ev := range e.s.events {
		if ev.Status == status {
			out = append(out, ev)
		}
	}
	sortEvents(out)
	return out, nil
}

func (e Events) Count(ctx context.Context) (int, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()
	return len(e.s.events), nil
}

func sortEvents(events []domain.Event) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].StartDate.Before(events[j].StartDate)
	})
}

// Reservations implements service.ReservationStore.
type Reservations struct{ s *Store }

func (r Reservations) Create(ctx context.Context, res *domain.Reservation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.reservations[res.ID] = *res
	return nil
}

func (r Reservations) Save(ctx context.Context, res *domain.Reservation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reservations[res.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.reservations[res.ID] = *res
	return nil
}

func (r Reservations) FindByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	res, ok := r.s.reservations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &res, nil
}

func (r Reservations) FindPending(ctx context.Context, participantID, eventID uuid.UUID) (*domain.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, res := range r.s.reservations {
		if res.ParticipantID == participantID && res.EventID == eventID && res.Status == domain.ReservationPending {
			out := res
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r Reservations) List(ctx context.Context) ([]domain.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Reservation, 0, len(r.s.reservations))
	for _, res := range r.s.reservations {
		out = append(out, res)
	}
	sortReservations(out)
	return out, nil
}

func (r Reservations) ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]domain.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Reservation
	for _, res := range r.s.reservations {
		if res.ParticipantID == participantID {
			out = append(out, res)
		}
	}
	sortReservations(out)
	return out, nil
}

func (r Reservations) ListStalePending(ctx context.Context, startedBefore time.Time) ([]domain.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Reservation
	for _, res := range r.s.reservations {
		if res.Status != domain.ReservationPending {
			continue
		}
		if event, ok := r.s.events[res.EventID]; ok && event.StartDate.Before(startedBefore) {
			out = append(out, res)
		}
	}
	sortReservations(out)
	return out, nil
}

func (r Reservations) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.reservations), nil
}

func sortReservations(reservations []domain.Reservation) {
	sort.Slice(reservations, func(i, j int) bool {
		return reservations[i].CreatedAt.Before(reservations[j].CreatedAt)
	})
}

// Users implements service.UserStore.
type Users struct{ s *Store }

func (u Users) Create(ctx context.Context, user *domain.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.s.users[user.ID] = *user
	return nil
}

func (u Users) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	for _, usr := range u.s.users {
		if usr.Email == email {
			out := usr
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (u Users) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	usr, ok := u.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &usr, nil
}

func (u Users) Count(ctx context.Context) (int, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	return len(u.s.users), nil
}

// Outbox.

func (s *Store) AppendOutbox(ctx context.Context, rec outbox.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.CreatedAt = time.Now()
	s.outbox = append(s.outbox, rec)
	return nil
}

func (s *Store) ListUnpublished(ctx context.Context, limit int) ([]outbox.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []outbox.Record
	for _, rec := range s.outbox {
		if rec.Status == outbox.StatusNew {
			out = append(out, rec)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Store) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].ID == id {
			s.outbox[i].Status = outbox.StatusPublished
			s.outbox[i].PublishedAt = &publishedAt
			return nil
		}
	}
	return domain.ErrNotFound
}

// OutboxRecords returns a copy of all appended records, for tests.
func (s *Store) OutboxRecords() []outbox.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]outbox.Record, len(s.outbox))
	copy(out, s.outbox)
	return out
}

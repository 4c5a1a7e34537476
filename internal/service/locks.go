package service

import (
	"sync"

	"github.com/google/uuid"
)

// EventLocks serializes read-check-write sequences per event id so a
// capacity check and the increment it guards cannot interleave between
// two in-flight requests. The Postgres store additionally locks the
// event row, which covers multi-process deployments.
type EventLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewEventLocks() *EventLocks {
	return &EventLocks{locks: make(map[uuid.UUID]*entry)}
}

// Lock blocks until the per-event lock is held and returns the release
// function.
func (l *EventLocks) Lock(eventID uuid.UUID) func() {
	l.mu.Lock()
	e, ok := l.locks[eventID]
	if !ok {
		e = &entry{}
		l.locks[eventID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, eventID)
		}
		l.mu.Unlock()
	}
}

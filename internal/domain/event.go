package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventStatus string

const (
	EventDraft     EventStatus = "Draft"
	EventPublished EventStatus = "Published"
	EventCanceled  EventStatus = "Canceled"
)

type Event struct {
	ID            uuid.UUID   `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	StartDate     time.Time   `json:"startDate"`
	EndDate       time.Time   `json:"endDate"`
	Location      string      `json:"location"`
	Capacity      int         `json:"capacity"`
	ReservedCount int         `json:"reservedCount"`
	Status        EventStatus `json:"status"`
	CreatedByID   uuid.UUID   `json:"createdById"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// IsFull reports whether confirmed reservations have consumed the
// whole capacity. Pending reservations do not count against it.
func (e *Event) IsFull() bool {
	return e.ReservedCount >= e.Capacity
}

func NewEvent(title, description, location string, start, end time.Time, capacity int, createdBy uuid.UUID, now time.Time) Event {
	return Event{
		ID:            uuid.New(),
		Title:         title,
		Description:   description,
		StartDate:     start,
		EndDate:       end,
		Location:      location,
		Capacity:      capacity,
		ReservedCount: 0,
		Status:        EventDraft,
		CreatedByID:   createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

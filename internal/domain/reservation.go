package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "Pending"
	ReservationConfirmed ReservationStatus = "Confirmed"
	ReservationRefused   ReservationStatus = "Refused"
	ReservationCanceled  ReservationStatus = "Canceled"
)

// Reservation is a participant's request for a seat at an event.
// It is created Pending; an admin moves it to Confirmed or Refused,
// and the owner may cancel it while Pending or Confirmed. Capacity
// on the event is consumed only at confirmation.
type Reservation struct {
	ID            uuid.UUID         `json:"id"`
	ParticipantID uuid.UUID         `json:"participantId"`
	EventID       uuid.UUID         `json:"eventId"`
	Status        ReservationStatus `json:"status"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

func NewReservation(eventID, participantID uuid.UUID, now time.Time) Reservation {
	return Reservation{
		ID:            uuid.New(),
		ParticipantID: participantID,
		EventID:       eventID,
		Status:        ReservationPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

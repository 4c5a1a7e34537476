// Package http exposes the lifecycle services over REST.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	redisadapter "github.com/Taha-mlaiki/ResNow/internal/adapters/redis"
	"github.com/Taha-mlaiki/ResNow/internal/auth"
	"github.com/Taha-mlaiki/ResNow/internal/observability"
	"github.com/Taha-mlaiki/ResNow/internal/service"
)

const publishedCacheTTL = 30 * time.Second

// Auditor records lifecycle actions for the audit trail. Failures are
// logged, never surfaced to callers.
type Auditor interface {
	Record(ctx context.Context, action, actorID string, data map[string]interface{}) error
}

type Handlers struct {
	events       *service.EventService
	reservations *service.ReservationService
	users        *service.UserService
	cache        *redisadapter.Cache
	audit        Auditor
	logger       observability.Logger
}

func NewHandlers(events *service.EventService, reservations *service.ReservationService, users *service.UserService, cache *redisadapter.Cache, audit Auditor, logger observability.Logger) *Handlers {
	return &Handlers{
		events:       events,
		reservations: reservations,
		users:        users,
		cache:        cache,
		audit:        audit,
		logger:       logger,
	}
}

// Auth.

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	user, err := h.users.Register(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	result, err := h.users.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Events.

func (h *Handlers) ListPublishedEvents(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		if events, ok := h.cache.GetPublishedEvents(r.Context()); ok {
			writeJSON(w, http.StatusOK, events)
			return
		}
	}
	events, err := h.events.FindPublished(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if h.cache != nil {
		if err := h.cache.SetPublishedEvents(r.Context(), events, publishedCacheTTL); err != nil {
			h.logger.WithError(err).Warn("failed to cache published events")
		}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handlers) GetPublishedEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	event, err := h.events.FindPublishedOne(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.FindAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	event, err := h.events.FindOne(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	var input service.CreateEventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	event, err := h.events.Create(r.Context(), input, identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.invalidatePublished(r)
	h.recordAudit(r, "event.created", identity, map[string]interface{}{"event_id": event.ID})
	writeJSON(w, http.StatusCreated, event)
}

func (h *Handlers) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var patch service.UpdateEventInput
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	event, err := h.events.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	identity, _ := IdentityFrom(r.Context())
	h.invalidatePublished(r)
	h.recordAudit(r, "event.updated", identity, map[string]interface{}{"event_id": event.ID})
	writeJSON(w, http.StatusOK, event)
}

func (h *Handlers) PublishEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	event, err := h.events.Publish(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	identity, _ := IdentityFrom(r.Context())
	h.invalidatePublished(r)
	h.recordAudit(r, "event.published", identity, map[string]interface{}{"event_id": event.ID})
	writeJSON(w, http.StatusOK, event)
}

func (h *Handlers) CancelEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	event, err := h.events.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	identity, _ := IdentityFrom(r.Context())
	h.invalidatePublished(r)
	h.recordAudit(r, "event.canceled", identity, map[string]interface{}{"event_id": event.ID})
	writeJSON(w, http.StatusOK, event)
}

// Reservations.

func (h *Handlers) CreateReservation(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	var input struct {
		EventID uuid.UUID `json:"eventId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	reservation, err := h.reservations.Create(r.Context(), input.EventID, identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, "reservation.created", identity, map[string]interface{}{"reservation_id": reservation.ID})
	writeJSON(w, http.StatusCreated, reservation)
}

func (h *Handlers) ConfirmReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	reservation, err := h.reservations.Confirm(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	identity, _ := IdentityFrom(r.Context())
	h.recordAudit(r, "reservation.confirmed", identity, map[string]interface{}{"reservation_id": reservation.ID})
	writeJSON(w, http.StatusOK, reservation)
}

func (h *Handlers) RefuseReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	reservation, err := h.reservations.Refuse(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	identity, _ := IdentityFrom(r.Context())
	h.recordAudit(r, "reservation.refused", identity, map[string]interface{}{"reservation_id": reservation.ID})
	writeJSON(w, http.StatusOK, reservation)
}

func (h *Handlers) CancelReservation(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	reservation, err := h.reservations.Cancel(r.Context(), id, identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.recordAudit(r, "reservation.canceled", identity, map[string]interface{}{"reservation_id": reservation.ID})
	writeJSON(w, http.StatusOK, reservation)
}

func (h *Handlers) ListReservations(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.reservations.FindAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservations)
}

func (h *Handlers) MyReservations(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	reservations, err := h.reservations.FindByParticipant(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservations)
}

// Users.

func (h *Handlers) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.users.Dashboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	user, err := h.users.Profile(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Ops.

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handlers) invalidatePublished(r *http.Request) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidatePublishedEvents(r.Context()); err != nil {
		h.logger.WithError(err).Warn("failed to invalidate published events cache")
	}
}

func (h *Handlers) recordAudit(r *http.Request, action string, identity *auth.Identity, data map[string]interface{}) {
	if h.audit == nil {
		return
	}
	actor := ""
	if identity != nil {
		actor = identity.UserID.String()
	}
	if err := h.audit.Record(r.Context(), action, actor, data); err != nil {
		h.logger.WithError(err).Warn("failed to record audit entry")
	}
}

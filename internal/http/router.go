package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Taha-mlaiki/ResNow/internal/auth"
	"github.com/Taha-mlaiki/ResNow/internal/domain"
	"github.com/Taha-mlaiki/ResNow/internal/idempotency"
	"github.com/Taha-mlaiki/ResNow/internal/rateLimit"
)

// RouterDeps carries the optional collaborators. Nil idempotency and
// rate limiter disable those middlewares, which keeps handler tests
// free of redis.
type RouterDeps struct {
	Tokens      *auth.Tokens
	Idempotency *idempotency.Idempotency
	RateLimiter *rateLimit.RateLimiter
}

func SetupRouter(h *Handlers, deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(h.logger))
	r.Use(MetricsMiddleware)
	r.Use(TracingMiddleware)

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		r.Get("/events/published", h.ListPublishedEvents)
		r.Get("/events/published/{id}", h.GetPublishedEvent)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(deps.Tokens))
			r.Use(RateLimitMiddleware(deps.RateLimiter))

			r.Get("/users/me", h.Profile)
			r.Get("/events", h.ListEvents)
			r.Get("/events/{id}", h.GetEvent)
			r.Get("/reservations/me", h.MyReservations)

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(domain.RoleAdmin))

				r.Post("/events", h.CreateEvent)
				r.Patch("/events/{id}", h.UpdateEvent)
				r.Post("/events/{id}/publish", h.PublishEvent)
				r.Post("/events/{id}/cancel", h.CancelEvent)

				r.Get("/reservations", h.ListReservations)
				r.Post("/reservations/{id}/confirm", h.ConfirmReservation)
				r.Post("/reservations/{id}/refuse", h.RefuseReservation)

				r.Get("/admin/dashboard", h.AdminDashboard)
			})

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(domain.RoleParticipant))
				r.Use(IdempotencyMiddleware(deps.Idempotency))

				r.Post("/reservations", h.CreateReservation)
				r.Post("/reservations/{id}/cancel", h.CancelReservation)
			})
		})
	})

	return r
}

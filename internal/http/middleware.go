package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Taha-mlaiki/ResNow/internal/auth"
	"github.com/Taha-mlaiki/ResNow/internal/domain"
	"github.com/Taha-mlaiki/ResNow/internal/idempotency"
	"github.com/Taha-mlaiki/ResNow/internal/observability"
	"github.com/Taha-mlaiki/ResNow/internal/rateLimit"
)

type contextKey string

const identityKey contextKey = "identity"

// IdentityFrom returns the authenticated caller, if any.
func IdentityFrom(ctx context.Context) (*auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*auth.Identity)
	return id, ok
}

func RequestIDMiddleware(next http.Handler) http.Handler {
	return middleware.RequestID(next)
}

func LoggerMiddleware(logger observability.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := middleware.GetReqID(r.Context())
			entry := logger.WithField("request_id", reqID)
			ctx := context.WithValue(r.Context(), contextKey("logger"), entry)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		observability.RequestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status()), r.Method).Inc()
	})
}

func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		tracer := otel.Tracer("http")
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.url", r.URL.String()),
		)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authenticate extracts and verifies the bearer token, storing the
// caller identity in the request context.
func Authenticate(tokens *auth.Tokens) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, domain.Unauthorized("Missing or invalid authorization header"))
				return
			}
			identity, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeError(w, domain.Unauthorized("Invalid or expired token"))
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers whose role is not in the allow list.
func RequireRole(roles ...domain.UserRole) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				writeError(w, domain.Unauthorized("Missing or invalid authorization header"))
				return
			}
			for _, role := range roles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, domain.Forbidden("You do not have permission to access this resource"))
		})
	}
}

// IdempotencyMiddleware replays the stored response for a repeated
// POST carrying the same Idempotency-Key, and records first-time
// responses. No-op when idemp is nil or the header is absent.
func IdempotencyMiddleware(idemp *idempotency.Idempotency) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if idemp == nil || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) < 16 {
				badRequest(w, "invalid Idempotency-Key")
				return
			}
			if existing, err := idemp.Get(r.Context(), key); err == nil && existing != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(existing.Status)
				w.Write(existing.Result)
				return
			}

			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status < http.StatusInternalServerError {
				idemp.Set(r.Context(), key, idempotency.Response{Status: rec.status, Result: rec.body})
			}
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	status int
	body   []byte
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body = append(r.body, b...)
	return r.ResponseWriter.Write(b)
}

// RateLimitMiddleware applies per-user and per-IP limits. No-op when
// rl is nil.
func RateLimitMiddleware(rl *rateLimit.RateLimiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl == nil {
				next.ServeHTTP(w, r)
				return
			}
			userID := ""
			if identity, ok := IdentityFrom(r.Context()); ok {
				userID = identity.UserID.String()
			}
			if !rl.Allow(r.Context(), "user:"+userID, 60, time.Minute) || !rl.Allow(r.Context(), "ip:"+r.RemoteAddr, 300, time.Minute) {
				writeJSON(w, http.StatusTooManyRequests, errorBody{StatusCode: http.StatusTooManyRequests, Message: "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

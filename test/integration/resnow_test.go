package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/Taha-mlaiki/ResNow/internal/adapters/mongo"
	"github.com/Taha-mlaiki/ResNow/internal/adapters/postgres"
	redisadapter "github.com/Taha-mlaiki/ResNow/internal/adapters/redis"
	"github.com/Taha-mlaiki/ResNow/internal/auth"
	"github.com/Taha-mlaiki/ResNow/internal/clock"
	"github.com/Taha-mlaiki/ResNow/internal/domain"
	httphandler "github.com/Taha-mlaiki/ResNow/internal/http"
	"github.com/Taha-mlaiki/ResNow/internal/idempotency"
	"github.com/Taha-mlaiki/ResNow/internal/observability"
	"github.com/Taha-mlaiki/ResNow/internal/rateLimit"
	"github.com/Taha-mlaiki/ResNow/internal/service"
)

func TestIntegration_ReservationLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "postgres:16-alpine",
			Env: map[string]string{
				"POSTGRES_USER":     "resnow",
				"POSTGRES_PASSWORD": "resnow",
				"POSTGRES_DB":       "resnow",
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer pgContainer.Terminate(ctx)

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForExec([]string{"redis-cli", "ping"}),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer redisContainer.Terminate(ctx)

	mongoContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer mongoContainer.Terminate(ctx)

	pgHost, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatal(err)
	}
	redisHost, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatal(err)
	}
	mongoHost, err := mongoContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	mongoPort, err := mongoContainer.MappedPort(ctx, "27017")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, "postgres://resnow:resnow@"+pgHost+":"+pgPort.Port()+"/resnow?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()
	store := postgres.NewStore(pool)
	if err := store.Migrate(ctx); err != nil {
		t.Fatal(err)
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI("mongodb://"+mongoHost+":"+mongoPort.Port()))
	if err != nil {
		t.Fatal(err)
	}
	defer mongoClient.Disconnect(ctx)

	logger := observability.NewLogger()
	audit := mongoadapter.NewAuditLogger(mongoClient.Database("resnow"), logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: redisHost + ":" + redisPort.Port()})
	defer redisClient.Close()
	cache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), time.Hour)
	rl := rateLimit.NewRateLimiter(cache)

	clk := clock.System()
	tokens := auth.NewTokens("integration-secret", time.Hour, clk)
	locks := service.NewEventLocks()
	events := service.NewEventService(store.EventStore(), store, locks, clk, logger)
	reservations := service.NewReservationService(store.ReservationStore(), store, locks, clk, logger)
	users := service.NewUserService(store.UserStore(), store.EventStore(), store.ReservationStore(), tokens, clk, logger)

	handlers := httphandler.NewHandlers(events, reservations, users, cache, audit, logger)
	router := httphandler.SetupRouter(handlers, httphandler.RouterDeps{
		Tokens:      tokens,
		Idempotency: idemp,
		RateLimiter: rl,
	})

	srv := httptest.NewServer(router)
	defer srv.Close()

	do := func(method, path, token string, body interface{}) *http.Response {
		t.Helper()
		var buf bytes.Buffer
		if body != nil {
			if err := json.NewEncoder(&buf).Encode(body); err != nil {
				t.Fatal(err)
			}
		}
		req, err := http.NewRequest(method, srv.URL+path, &buf)
		if err != nil {
			t.Fatal(err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	login := func(email string, role domain.UserRole) string {
		t.Helper()
		resp := do("POST", "/api/auth/register", "", map[string]interface{}{
			"email": email, "password": "s3cret", "role": role,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("register: expected 201, got %d", resp.StatusCode)
		}
		resp.Body.Close()
		resp = do("POST", "/api/auth/login", "", map[string]string{"email": email, "password": "s3cret"})
		var result struct {
			AccessToken string `json:"access_token"`
		}
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatal(err)
		}
		return result.AccessToken
	}

	admin := login("admin@example.com", domain.RoleAdmin)
	participant := login("participant@example.com", domain.RoleParticipant)

	resp := do("POST", "/api/events", admin, map[string]interface{}{
		"title":     "Integration Meetup",
		"startDate": time.Now().Add(24 * time.Hour),
		"endDate":   time.Now().Add(26 * time.Hour),
		"location":  "Casablanca",
		"capacity":  1,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create event: expected 201, got %d", resp.StatusCode)
	}
	var event domain.Event
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	resp = do("POST", "/api/events/"+event.ID.String()+"/publish", admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("publish: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Reserve twice with the same idempotency key; the second call must
	// replay the stored response instead of hitting the duplicate check.
	key := uuid.New().String() + "-reservation"
	reserve := func() *http.Response {
		var buf bytes.Buffer
		json.NewEncoder(&buf).Encode(map[string]string{"eventId": event.ID.String()})
		req, _ := http.NewRequest("POST", srv.URL+"/api/reservations", &buf)
		req.Header.Set("Authorization", "Bearer "+participant)
		req.Header.Set("Idempotency-Key", key)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	resp = reserve()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("reserve: expected 201, got %d", resp.StatusCode)
	}
	var reservation domain.Reservation
	if err := json.NewDecoder(resp.Body).Decode(&reservation); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	resp = reserve()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("replay: expected 201, got %d", resp.StatusCode)
	}
	var replayed domain.Reservation
	if err := json.NewDecoder(resp.Body).Decode(&replayed); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if replayed.ID != reservation.ID {
		t.Errorf("replay must return the original reservation, got %s and %s", reservation.ID, replayed.ID)
	}

	resp = do("POST", "/api/reservations/"+reservation.ID.String()+"/confirm", admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = do("GET", "/api/events/"+event.ID.String(), admin, nil)
	var got domain.Event
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got.ReservedCount != 1 {
		t.Errorf("expected reserved count 1, got %d", got.ReservedCount)
	}

	// Published listing is served from the cache after the first read.
	resp = do("GET", "/api/events/published", "", nil)
	resp.Body.Close()
	cached, ok := cache.GetPublishedEvents(ctx)
	if !ok || len(cached) != 1 {
		t.Errorf("expected the published listing to be cached, got %v %v", cached, ok)
	}
}

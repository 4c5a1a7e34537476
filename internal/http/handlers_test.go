package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Taha-mlaiki/ResNow/internal/adapters/memory"
	"github.com/Taha-mlaiki/ResNow/internal/auth"
	"github.com/Taha-mlaiki/ResNow/internal/clock"
	"github.com/Taha-mlaiki/ResNow/internal/domain"
	httphandler "github.com/Taha-mlaiki/ResNow/internal/http"
	"github.com/Taha-mlaiki/ResNow/internal/observability"
	"github.com/Taha-mlaiki/ResNow/internal/service"
)

type testServer struct {
	srv   *httptest.Server
	store *memory.Store
	clk   *clock.Fixed
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	clk := &clock.Fixed{Current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	locks := service.NewEventLocks()
	logger := observability.NewLogger()
	tokens := auth.NewTokens("test-secret", time.Hour, clk)

	events := service.NewEventService(store.Events(), store, locks, clk, logger)
	reservations := service.NewReservationService(store.Reservations(), store, locks, clk, logger)
	users := service.NewUserService(store.Users(), store.Events(), store.Reservations(), tokens, clk, logger)

	handlers := httphandler.NewHandlers(events, reservations, users, nil, nil, logger)
	router := httphandler.SetupRouter(handlers, httphandler.RouterDeps{Tokens: tokens})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, store: store, clk: clk}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
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

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func (ts *testServer) registerAndLogin(t *testing.T, email string, role domain.UserRole) string {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"email":    email,
		"password": "s3cret",
		"role":     role,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": "s3cret",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	var result struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, resp, &result)
	if result.AccessToken == "" {
		t.Fatal("expected an access token")
	}
	return result.AccessToken
}

func (ts *testServer) createPublishedEvent(t *testing.T, admin string, capacity int) uuid.UUID {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/events", admin, map[string]interface{}{
		"title":     "Go Meetup",
		"startDate": ts.clk.Current.Add(24 * time.Hour),
		"endDate":   ts.clk.Current.Add(26 * time.Hour),
		"location":  "Casablanca",
		"capacity":  capacity,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create event: expected 201, got %d", resp.StatusCode)
	}
	var event domain.Event
	decode(t, resp, &event)

	resp = ts.do(t, http.MethodPost, "/api/events/"+event.ID.String()+"/publish", admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("publish event: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()
	return event.ID
}

func TestReservationFlow(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.registerAndLogin(t, "admin@example.com", domain.RoleAdmin)
	participant := ts.registerAndLogin(t, "participant@example.com", domain.RoleParticipant)

	eventID := ts.createPublishedEvent(t, admin, 2)

	resp := ts.do(t, http.MethodPost, "/api/reservations", participant, map[string]string{
		"eventId": eventID.String(),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create reservation: expected 201, got %d", resp.StatusCode)
	}
	var reservation domain.Reservation
	decode(t, resp, &reservation)
	if reservation.Status != domain.ReservationPending {
		t.Errorf("expected Pending, got %s", reservation.Status)
	}

	resp = ts.do(t, http.MethodPost, "/api/reservations/"+reservation.ID.String()+"/confirm", admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d", resp.StatusCode)
	}
	var confirmed domain.Reservation
	decode(t, resp, &confirmed)
	if confirmed.Status != domain.ReservationConfirmed {
		t.Errorf("expected Confirmed, got %s", confirmed.Status)
	}

	resp = ts.do(t, http.MethodGet, "/api/events/"+eventID.String(), admin, nil)
	var event domain.Event
	decode(t, resp, &event)
	if event.ReservedCount != 1 {
		t.Errorf("expected reserved count 1, got %d", event.ReservedCount)
	}

	resp = ts.do(t, http.MethodPost, "/api/reservations/"+reservation.ID.String()+"/cancel", participant, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/api/events/"+eventID.String(), admin, nil)
	decode(t, resp, &event)
	if event.ReservedCount != 0 {
		t.Errorf("cancelation must release the seat, got %d", event.ReservedCount)
	}
}

func TestReservationErrorBodies(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.registerAndLogin(t, "admin@example.com", domain.RoleAdmin)
	alice := ts.registerAndLogin(t, "alice@example.com", domain.RoleParticipant)
	bob := ts.registerAndLogin(t, "bob@example.com", domain.RoleParticipant)

	eventID := ts.createPublishedEvent(t, admin, 1)

	resp := ts.do(t, http.MethodPost, "/api/reservations", alice, map[string]string{"eventId": eventID.String()})
	var first domain.Reservation
	decode(t, resp, &first)
	resp = ts.do(t, http.MethodPost, "/api/reservations", bob, map[string]string{"eventId": eventID.String()})
	var second domain.Reservation
	decode(t, resp, &second)

	if resp := ts.do(t, http.MethodPost, "/api/reservations/"+first.ID.String()+"/confirm", admin, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodPost, "/api/reservations/"+second.ID.String()+"/confirm", admin, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body struct {
		StatusCode int    `json:"statusCode"`
		Message    string `json:"message"`
	}
	decode(t, resp, &body)
	if body.Message != "Cannot confirm reservation - event is full" {
		t.Errorf("unexpected message %q", body.Message)
	}

	resp = ts.do(t, http.MethodPost, "/api/reservations/"+second.ID.String()+"/cancel", alice, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	decode(t, resp, &body)
	if body.Message != "You can only cancel your own reservations" {
		t.Errorf("unexpected message %q", body.Message)
	}

	resp = ts.do(t, http.MethodGet, "/api/events/"+uuid.New().String(), admin, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAuthGuards(t *testing.T) {
	ts := newTestServer(t)
	participant := ts.registerAndLogin(t, "participant@example.com", domain.RoleParticipant)

	t.Run("missing token", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/events", "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
		var body struct {
			Message string `json:"message"`
		}
		decode(t, resp, &body)
		if body.Message != "Missing or invalid authorization header" {
			t.Errorf("unexpected message %q", body.Message)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/events", "garbage", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
		var body struct {
			Message string `json:"message"`
		}
		decode(t, resp, &body)
		if body.Message != "Invalid or expired token" {
			t.Errorf("unexpected message %q", body.Message)
		}
	})

	t.Run("participant on admin route", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/admin/dashboard", participant, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403, got %d", resp.StatusCode)
		}
		var body struct {
			Message string `json:"message"`
		}
		decode(t, resp, &body)
		if body.Message != "You do not have permission to access this resource" {
			t.Errorf("unexpected message %q", body.Message)
		}
	})
}

func TestPublicEventListing(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.registerAndLogin(t, "admin@example.com", domain.RoleAdmin)

	// One draft, one published.
	resp := ts.do(t, http.MethodPost, "/api/events", admin, map[string]interface{}{
		"title":     "Draft Only",
		"startDate": ts.clk.Current.Add(24 * time.Hour),
		"endDate":   ts.clk.Current.Add(26 * time.Hour),
		"capacity":  10,
	})
	var draft domain.Event
	decode(t, resp, &draft)
	publishedID := ts.createPublishedEvent(t, admin, 10)

	resp = ts.do(t, http.MethodGet, "/api/events/published", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var events []domain.Event
	decode(t, resp, &events)
	if len(events) != 1 || events[0].ID != publishedID {
		t.Errorf("expected only the published event, got %+v", events)
	}

	resp = ts.do(t, http.MethodGet, "/api/events/published/"+draft.ID.String(), "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("draft must be invisible publicly, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAdminDashboard(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.registerAndLogin(t, "admin@example.com", domain.RoleAdmin)
	participant := ts.registerAndLogin(t, "participant@example.com", domain.RoleParticipant)

	eventID := ts.createPublishedEvent(t, admin, 10)
	resp := ts.do(t, http.MethodPost, "/api/reservations", participant, map[string]string{"eventId": eventID.String()})
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/api/admin/dashboard", admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var stats struct {
		TotalUsers        int `json:"totalUsers"`
		TotalEvents       int `json:"totalEvents"`
		TotalReservations int `json:"totalReservations"`
	}
	decode(t, resp, &stats)
	if stats.TotalUsers != 2 || stats.TotalEvents != 1 || stats.TotalReservations != 1 {
		t.Errorf("unexpected totals: %+v", stats)
	}
}

func TestProfile(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin(t, "taha@example.com", domain.RoleParticipant)

	resp := ts.do(t, http.MethodGet, "/api/users/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var user domain.User
	decode(t, resp, &user)
	if user.Email != "taha@example.com" {
		t.Errorf("unexpected email %q", user.Email)
	}
	if user.Password != "" {
		t.Error("password hash must never be serialized")
	}
}

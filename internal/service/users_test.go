package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/Taha-mlaiki/ResNow/internal/auth"
	"github.com/Taha-mlaiki/ResNow/internal/domain"
	"github.com/Taha-mlaiki/ResNow/internal/observability"
	"github.com/Taha-mlaiki/ResNow/internal/service"
)

func newUserService(f *fixture) *service.UserService {
	tokens := auth.NewTokens("test-secret", time.Hour, f.clk)
	return service.NewUserService(f.store.Users(), f.store.Events(), f.store.Reservations(), tokens, f.clk, observability.NewLogger())
}

func TestUserService_Register(t *testing.T) {
	f := newFixture()
	users := newUserService(f)

	user, err := users.Register(context.Background(), service.RegisterInput{
		Email:     "  Taha@Example.COM ",
		Password:  "s3cret",
		FirstName: "Taha",
		LastName:  "Mlaiki",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.Email != "taha@example.com" {
		t.Errorf("email must be normalized, got %q", user.Email)
	}
	if user.Role != domain.RoleParticipant {
		t.Errorf("expected default Participant role, got %s", user.Role)
	}
	if user.Password == "s3cret" {
		t.Error("password must be stored hashed")
	}

	_, err = users.Register(context.Background(), service.RegisterInput{
		Email:    "taha@example.com",
		Password: "other",
	})
	if !errors.Is(err, domain.ErrConflict) || err.Error() != "User with this email already exists" {
		t.Errorf("expected duplicate email conflict, got %v", err)
	}
}

func TestUserService_RegisterValidation(t *testing.T) {
	f := newFixture()
	users := newUserService(f)

	_, err := users.Register(context.Background(), service.RegisterInput{Email: "", Password: ""})
	if !errors.Is(err, domain.ErrValidation) || err.Error() != "Email and password are required" {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestUserService_Login(t *testing.T) {
	f := newFixture()
	users := newUserService(f)

	if _, err := users.Register(context.Background(), service.RegisterInput{
		Email:    "admin@example.com",
		Password: "s3cret",
		Role:     domain.RoleAdmin,
	}); err != nil {
		t.Fatal(err)
	}

	result, err := users.Login(context.Background(), "admin@example.com", "s3cret")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.AccessToken == "" {
		t.Error("expected an access token")
	}
	if result.User.Role != domain.RoleAdmin {
		t.Errorf("expected Admin role, got %s", result.User.Role)
	}

	t.Run("wrong password", func(t *testing.T) {
		_, err := users.Login(context.Background(), "admin@example.com", "nope")
		if !errors.Is(err, domain.ErrUnauthorized) || err.Error() != "Invalid credentials" {
			t.Errorf("expected invalid credentials, got %v", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := users.Login(context.Background(), "ghost@example.com", "s3cret")
		if !errors.Is(err, domain.ErrUnauthorized) || err.Error() != "Invalid credentials" {
			t.Errorf("expected invalid credentials, got %v", err)
		}
	})
}

func TestUserService_Profile(t *testing.T) {
	f := newFixture()
	users := newUserService(f)

	registered, err := users.Register(context.Background(), service.RegisterInput{
		Email:    "taha@example.com",
		Password: "s3cret",
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := users.Profile(context.Background(), registered.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Email != registered.Email {
		t.Errorf("expected %q, got %q", registered.Email, got.Email)
	}

	_, err = users.Profile(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestUserService_Dashboard(t *testing.T) {
	f := newFixture()
	users := newUserService(f)

	if _, err := users.Register(context.Background(), service.RegisterInput{
		Email:    "taha@example.com",
		Password: "s3cret",
	}); err != nil {
		t.Fatal(err)
	}
	event := f.seedEvent(t, domain.EventPublished, 50, 0)
	if _, err := f.reservations.Create(context.Background(), event.ID, uuid.New()); err != nil {
		t.Fatal(err)
	}

	stats, err := users.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if stats.TotalUsers != 1 || stats.TotalEvents != 1 || stats.TotalReservations != 1 {
		t.Errorf("unexpected totals: %+v", stats)
	}
}

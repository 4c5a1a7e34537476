package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Taha-mlaiki/ResNow/internal/auth"
	"github.com/Taha-mlaiki/ResNow/internal/clock"
	"github.com/Taha-mlaiki/ResNow/internal/domain"
)

func testUser() *domain.User {
	return &domain.User{
		ID:    uuid.New(),
		Email: "taha@example.com",
		Role:  domain.RoleAdmin,
	}
}

func TestTokens_IssueAndParse(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	tokens := auth.NewTokens("test-secret", time.Hour, clk)
	user := testUser()

	tokenString, err := tokens.Issue(user)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	identity, err := tokens.Parse(tokenString)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if identity.UserID != user.ID {
		t.Errorf("expected user %s, got %s", user.ID, identity.UserID)
	}
	if identity.Email != user.Email {
		t.Errorf("expected email %q, got %q", user.Email, identity.Email)
	}
	if identity.Role != domain.RoleAdmin {
		t.Errorf("expected Admin role, got %s", identity.Role)
	}
}

func TestTokens_ParseExpired(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	tokens := auth.NewTokens("test-secret", time.Hour, clk)

	tokenString, err := tokens.Issue(testUser())
	if err != nil {
		t.Fatal(err)
	}

	clk.Advance(2 * time.Hour)
	if _, err := tokens.Parse(tokenString); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestTokens_ParseWrongSecret(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	tokens := auth.NewTokens("test-secret", time.Hour, clk)
	other := auth.NewTokens("other-secret", time.Hour, clk)

	tokenString, err := tokens.Issue(testUser())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := other.Parse(tokenString); err == nil {
		t.Error("expected token signed with another secret to be rejected")
	}
}

func TestTokens_ParseGarbage(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	tokens := auth.NewTokens("test-secret", time.Hour, clk)

	if _, err := tokens.Parse("not-a-token"); err == nil {
		t.Error("expected malformed token to be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if hash == "s3cret" {
		t.Error("hash must differ from the plaintext")
	}
	if !auth.CheckPassword("s3cret", hash) {
		t.Error("expected matching password to verify")
	}
	if auth.CheckPassword("wrong", hash) {
		t.Error("expected wrong password to fail")
	}
}

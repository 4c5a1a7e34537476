// Package auth issues and verifies the HS256 access tokens carried by
// API callers, and hashes user passwords. Role checks happen at the
// HTTP layer; ownership checks stay in the services.
package auth

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Taha-mlaiki/ResNow/internal/clock"
	"github.com/Taha-mlaiki/ResNow/internal/domain"
)

// Identity is the authenticated caller extracted from a token.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   domain.UserRole
}

type Tokens struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewTokens(secret string, ttl time.Duration, clk clock.Clock) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, clock: clk}
}

func (t *Tokens) Issue(user *domain.User) (string, error) {
	now := t.clock.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"role":  string(user.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(t.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *Tokens) Parse(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Newf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.clock.Now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, errors.Wrap(err, "parse subject")
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)

	return &Identity{UserID: userID, Email: email, Role: domain.UserRole(role)}, nil
}

package service

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Taha-mlaiki/ResNow/internal/auth"
	"github.com/Taha-mlaiki/ResNow/internal/clock"
	"github.com/Taha-mlaiki/ResNow/internal/domain"
	"github.com/Taha-mlaiki/ResNow/internal/observability"
)

type RegisterInput struct {
	Email     string          `json:"email"`
	Password  string          `json:"password"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Role      domain.UserRole `json:"role"`
}

type LoginResult struct {
	AccessToken string       `json:"access_token"`
	User        *domain.User `json:"user"`
}

type DashboardStats struct {
	TotalUsers        int `json:"totalUsers"`
	TotalEvents       int `json:"totalEvents"`
	TotalReservations int `json:"totalReservations"`
}

type UserService struct {
	users        UserStore
	events       EventStore
	reservations ReservationStore
	tokens       *auth.Tokens
	clock        clock.Clock
	logger       observability.Logger
}

func NewUserService(users UserStore, events EventStore, reservations ReservationStore, tokens *auth.Tokens, clk clock.Clock, logger observability.Logger) *UserService {
	return &UserService{users: users, events: events, reservations: reservations, tokens: tokens, clock: clk, logger: logger}
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, domain.Validation("Email and password are required")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, domain.Conflict("User with this email already exists")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	role := input.Role
	if role == "" {
		role = domain.RoleParticipant
	}

	now := s.clock.Now()
	user := domain.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  hash,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return nil, err
	}
	s.logger.WithField("user_id", user.ID).Info("user registered")
	return &user, nil
}

// Login verifies credentials and returns an access token. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Unauthorized("Invalid credentials")
		}
		return nil, err
	}
	if !auth.CheckPassword(password, user.Password) {
		return nil, domain.Unauthorized("Invalid credentials")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, errors.Wrap(err, "issue token")
	}
	return &LoginResult{AccessToken: token, User: user}, nil
}

func (s *UserService) Profile(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundf("User with ID %s not found", id)
		}
		return nil, err
	}
	return user, nil
}

// Dashboard gathers the admin totals concurrently.
func (s *UserService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.users.Count(gctx)
		stats.TotalUsers = n
		return err
	})
	g.Go(func() error {
		n, err := s.events.Count(gctx)
		stats.TotalEvents = n
		return err
	})
	g.Go(func() error {
		n, err := s.reservations.Count(gctx)
		stats.TotalReservations = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Package service provides the reference backend's business logic,
// delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/ProjectMarket/internal/models"
	"github.com/atinyakov/ProjectMarket/internal/repository"
)

var (
	// ErrEmailTaken is returned by Register when the e-mail is already used.
	ErrEmailTaken = errors.New("user with this email already exists")
	// ErrInvalidCredentials is returned by Login for an unknown e-mail or a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken is returned by Authenticate for unknown or expired tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// UserRepository defines the account persistence needed by AuthService.
type UserRepository interface {
	// CreateUser stores a new account; repository.ErrDuplicate if the e-mail is taken.
	CreateUser(ctx context.Context, u models.User) error
	// UserByEmail returns the account for email or repository.ErrNotFound.
	UserByEmail(ctx context.Context, email string) (models.User, error)
}

// SessionRepository defines the token persistence needed by AuthService.
type SessionRepository interface {
	CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error
	UserByToken(ctx context.Context, token string, now time.Time) (models.User, error)
	DeleteSession(ctx context.Context, token string) error
}

// AuthService registers accounts and issues opaque session tokens.
type AuthService struct {
	users    UserRepository
	sessions SessionRepository
	ttl      time.Duration

	// cost is the bcrypt work factor.
	cost int
	now  func() time.Time
}

// NewAuthService constructs an AuthService whose tokens live for ttl.
func NewAuthService(users UserRepository, sessions SessionRepository, ttl time.Duration) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// Register creates an account and returns its public profile. The user is
// not logged in.
func (s *AuthService) Register(ctx context.Context, name, email, password string, role models.Role) (models.UserProfile, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("hash password: %w", err)
	}

	u := models.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        normalizeEmail(email),
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.UserProfile{}, ErrEmailTaken
		}
		return models.UserProfile{}, err
	}
	return u.Profile(), nil
}

// Login checks the credentials and issues a new token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, models.UserProfile, error) {
	u, err := s.users.UserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return "", models.UserProfile{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", models.UserProfile{}, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return "", models.UserProfile{}, ErrInvalidCredentials
	}

	token := uuid.NewString()
	if err := s.sessions.CreateSession(ctx, token, u.ID, s.now().Add(s.ttl)); err != nil {
		return "", models.UserProfile{}, err
	}
	return token, u.Profile(), nil
}

// Logout revokes token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeleteSession(ctx, token)
}

// Authenticate resolves token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrInvalidToken
	}
	u, err := s.sessions.UserByToken(ctx, token, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return models.User{}, ErrInvalidToken
	}
	return u, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

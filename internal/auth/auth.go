// Package auth is the identity provider: accounts with bcrypt password
// hashes and revocable JWT sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"taskboard/internal/models"
)

// Identity errors.
var (
	// ErrInvalidCredentials is returned for an unknown email and for a wrong
	// password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrUnauthenticated    = errors.New("not authenticated")
)

// MinPasswordLength matches the hosted identity provider's minimum.
const MinPasswordLength = 6

// Store is the persistence the identity provider needs.
type Store interface {
	CreateUser(ctx context.Context, email, displayName, passwordHash string) (models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, string, error)
	UserByID(ctx context.Context, id string) (*models.User, error)
	CreateSession(ctx context.Context, id, userID string, expiresAt time.Time) error
	SessionActive(ctx context.Context, id string) (bool, error)
	DeleteSession(ctx context.Context, id string) error
}

// Session is the authenticated caller, threaded explicitly into handlers.
type Session struct {
	UserID      string    `json:"uid"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	TokenID     string    `json:"-"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Result is returned by Register and Login.
type Result struct {
	User      models.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// Service implements register, login, logout and token authentication.
type Service struct {
	store      Store
	tokens     *TokenManager
	logger     *slog.Logger
	bcryptCost int
}

// Option customises a Service.
type Option func(*Service)

// WithBcryptCost overrides the hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

func NewService(store Store, tokens *TokenManager, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, tokens: tokens, logger: logger, bcryptCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and signs the new user in.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (Result, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Result{}, err
	}
	if len(password) < MinPasswordLength {
		return Result{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return Result{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, email, strings.TrimSpace(displayName), string(hash))
	if err != nil {
		if existing, _, lookupErr := s.store.UserByEmail(ctx, email); lookupErr == nil && existing != nil {
			return Result{}, ErrEmailTaken
		}
		return Result{}, err
	}
	s.logger.Info("user registered", slog.String("uid", user.UID))
	return s.issue(ctx, user)
}

// Login verifies the credentials and opens a new session.
func (s *Service) Login(ctx context.Context, email, password string) (Result, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Result{}, ErrInvalidCredentials
	}
	user, hash, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		return Result{}, err
	}
	if user == nil {
		return Result{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return Result{}, ErrInvalidCredentials
	}
	return s.issue(ctx, *user)
}

// Logout revokes the session behind the token.
func (s *Service) Logout(ctx context.Context, session Session) error {
	if err := s.store.DeleteSession(ctx, session.TokenID); err != nil {
		return err
	}
	s.logger.Info("user logged out", slog.String("uid", session.UserID))
	return nil
}

// Authenticate resolves a raw bearer token to a live session.
func (s *Service) Authenticate(ctx context.Context, raw string) (Session, error) {
	claims, err := s.tokens.CheckToken(raw)
	if err != nil {
		return Session{}, err
	}
	active, err := s.store.SessionActive(ctx, claims.ID)
	if err != nil {
		return Session{}, err
	}
	if !active {
		return Session{}, fmt.Errorf("%w: session revoked", ErrUnauthenticated)
	}
	session := Session{
		UserID:      claims.UserID,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		TokenID:     claims.ID,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// CurrentUser returns the account behind a session, or nil when the
// account no longer exists.
func (s *Service) CurrentUser(ctx context.Context, session Session) (*models.User, error) {
	return s.store.UserByID(ctx, session.UserID)
}

func (s *Service) issue(ctx context.Context, user models.User) (Result, error) {
	token, id, expiresAt, err := s.tokens.CreateToken(user)
	if err != nil {
		return Result{}, err
	}
	if err := s.store.CreateSession(ctx, id, user.UID, expiresAt); err != nil {
		return Result{}, err
	}
	return Result{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

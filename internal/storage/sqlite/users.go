package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/models"
)

// CreateUser stores a new account. A taken email yields ErrConflict.
func (s *Store) CreateUser(ctx context.Context, email, displayName, passwordHash string) (models.User, error) {
	u := models.User{
		UID:         uuid.NewString(),
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   s.stamp(),
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO users(id, email, display_name, password_hash, created_at) VALUES(?, ?, ?, ?, ?)`,
		u.UID, u.Email, u.DisplayName, passwordHash, formatTime(u.CreatedAt))
	if isUniqueViolation(err) {
		return models.User{}, fmt.Errorf("user %s: %w", email, ErrConflict)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// UserByEmail returns the account and its password hash. A missing account
// yields nil, "", nil.
func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, email, display_name, password_hash, created_at FROM users WHERE email = ?`, email)
	var (
		u         models.User
		hash      string
		createdAt string
	)
	err := row.Scan(&u.UID, &u.Email, &u.DisplayName, &hash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("get user: %w", err)
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, "", err
	}
	return &u, hash, nil
}

// UserByID fetches an account. A missing account yields nil, nil.
func (s *Store) UserByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, email, display_name, created_at FROM users WHERE id = ?`, id)
	var (
		u         models.User
		createdAt string
	)
	err := row.Scan(&u.UID, &u.Email, &u.DisplayName, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateSession records an issued token so it can be revoked later.
func (s *Store) CreateSession(ctx context.Context, id, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions(id, user_id, expires_at, created_at) VALUES(?, ?, ?, ?)`,
		id, userID, formatTime(expiresAt), formatTime(s.stamp()))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// SessionActive reports whether the session exists and has not expired.
func (s *Store) SessionActive(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions WHERE id = ? AND expires_at > ?`,
		id, formatTime(s.stamp())).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return n > 0, nil
}

// DeleteSession revokes a session. Unknown ids are ignored.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions removes sessions past their expiry and returns how many went.
func (s *Store) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(s.stamp()))
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}

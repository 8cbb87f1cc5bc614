package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"taskboard/internal/models"
)

// Claims is the payload carried by a session token.
type Claims struct {
	UserID      string `json:"uid"`
	Email       string `json:"em,omitempty"`
	DisplayName string `json:"dn,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 session tokens.
type TokenManager struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewTokenManager(secretKey string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secretKey: []byte(secretKey),
		ttl:       ttl,
		now:       time.Now,
	}
}

// CreateToken issues a token for the user. The returned id is the token's
// jti and doubles as the session key.
func (tm *TokenManager) CreateToken(u models.User) (token, id string, expiresAt time.Time, err error) {
	issuedAt := tm.now()
	expiresAt = issuedAt.Add(tm.ttl)
	id = uuid.NewString()

	claims := &Claims{
		UserID:      u.UID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   u.UID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secretKey)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, id, expiresAt, nil
}

// CheckToken verifies the signature and expiry of a token.
func (tm *TokenManager) CheckToken(raw string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(_ *jwt.Token) (any, error) {
		return tm.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(tm.now))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if claims.UserID == "" || claims.ID == "" {
		return Claims{}, fmt.Errorf("%w: incomplete claims", ErrUnauthenticated)
	}
	return claims, nil
}

// IsExpired reports whether err was caused by an expired token.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}

package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"taskboard/internal/models"
	"taskboard/internal/storage/sqlite"
)

func newTestService(t *testing.T) (*Service, *TokenManager) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "auth.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens := NewTokenManager("test-secret", time.Hour)
	return NewService(store, tokens, nil, WithBcryptCost(bcrypt.MinCost)), tokens
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	reg, err := svc.Register(ctx, "  Ann@Example.com ", "secret1", " Ann ")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", reg.User.Email)
	assert.Equal(t, "Ann", reg.User.DisplayName)
	assert.NotEmpty(t, reg.Token)

	session, err := svc.Authenticate(ctx, reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.UID, session.UserID)
	assert.Equal(t, "Ann", session.DisplayName)
	assert.NotEmpty(t, session.TokenID)

	login, err := svc.Login(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, reg.User.UID, login.User.UID)
	assert.NotEqual(t, reg.Token, login.Token)

	user, err := svc.CurrentUser(ctx, session)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "ann@example.com", user.Email)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Register(ctx, "not-an-email", "secret1", "")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Register(ctx, "ann@example.com", "123", "")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.Register(ctx, "ann@example.com", "secret1", "")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "ANN@example.com", "another1", "")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.Register(ctx, "ann@example.com", "secret1", "")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ann@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "bob@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "garbage", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	reg, err := svc.Register(ctx, "ann@example.com", "secret1", "")
	require.NoError(t, err)

	session, err := svc.Authenticate(ctx, reg.Token)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, session))

	_, err = svc.Authenticate(ctx, reg.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthenticateRejectsForeignAndExpiredTokens(t *testing.T) {
	ctx := context.Background()
	svc, tokens := newTestService(t)
	reg, err := svc.Register(ctx, "ann@example.com", "secret1", "")
	require.NoError(t, err)

	other := NewTokenManager("other-secret", time.Hour)
	forged, _, _, err := other.CreateToken(reg.User)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, forged)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Authenticate(ctx, "not.a.token")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Authenticate(ctx, reg.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.True(t, IsExpired(err))
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }

	token, id, expiresAt, err := tm.CreateToken(models.User{UID: "u1", Email: "a@b.c", DisplayName: "A"})
	require.NoError(t, err)
	assert.Equal(t, issued.Add(time.Minute), expiresAt)

	claims, err := tm.CheckToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, id, claims.ID)
	assert.Equal(t, "a@b.c", claims.Email)
}

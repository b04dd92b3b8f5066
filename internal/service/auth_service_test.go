package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rotc-portal/grading-api/internal/models"
	appErrors "github.com/rotc-portal/grading-api/pkg/errors"
)

type mockUserStore struct {
	users   map[string]*models.User
	tokens  map[string]*models.RefreshToken
	revoked []string
}

func (m *mockUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (m *mockUserStore) UpdateLastLogin(_ context.Context, _ string) error { return nil }

func (m *mockUserStore) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockUserStore) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	stored, ok := m.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return stored, nil
}

func (m *mockUserStore) RevokeRefreshToken(_ context.Context, token string) error {
	delete(m.tokens, token)
	m.revoked = append(m.revoked, token)
	return nil
}

func (m *mockUserStore) RevokeUserTokens(_ context.Context, userID string) error {
	for value, token := range m.tokens {
		if token.UserID == userID {
			delete(m.tokens, value)
			m.revoked = append(m.revoked, value)
		}
	}
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *mockUserStore) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("parade-rest"), bcrypt.MinCost)
	require.NoError(t, err)
	cadetID := "c-1"
	store := &mockUserStore{
		users: map[string]*models.User{
			"u-1": {ID: "u-1", Email: "staff@rotc.test", PasswordHash: string(hash), Role: models.RoleStaff, Active: true},
			"u-2": {ID: "u-2", Email: "cadet@rotc.test", PasswordHash: string(hash), Role: models.RoleCadet, CadetID: &cadetID, Active: true},
			"u-3": {ID: "u-3", Email: "retired@rotc.test", PasswordHash: string(hash), Role: models.RoleStaff, Active: false},
		},
		tokens: map[string]*models.RefreshToken{},
	}
	svc := NewAuthService(store, validator.New(), zap.NewNop(), AuthConfig{
		Secret:          "unit-test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 720 * time.Hour,
		Issuer:          "grading-api-test",
	})
	return svc, store
}

func TestLoginIssuesTokenPair(t *testing.T) {
	svc, store := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "cadet@rotc.test", Password: "parade-rest"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, int64(900), resp.ExpiresIn)
	assert.Contains(t, store.tokens, resp.RefreshToken)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-2", claims.UserID)
	assert.Equal(t, models.RoleCadet, claims.Role)
	assert.Equal(t, "c-1", claims.CadetID)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "staff@rotc.test", Password: "at-ease"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, errorCode(t, err))
}

func TestLoginUnknownEmailIsIndistinguishable(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@rotc.test", Password: "parade-rest"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, errorCode(t, err))
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "retired@rotc.test", Password: "parade-rest"})
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, errorCode(t, err))
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, store := newAuthFixture(t)
	ctx := context.Background()

	login, err := svc.Login(ctx, models.LoginRequest{Email: "staff@rotc.test", Password: "parade-rest"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.Contains(t, store.revoked, login.RefreshToken)

	// The rotated-out token must not be reusable.
	_, err = svc.Refresh(ctx, RefreshRequest{RefreshToken: login.RefreshToken})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, err))
}

func TestLogoutRejectsForeignToken(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	login, err := svc.Login(ctx, models.LoginRequest{Email: "staff@rotc.test", Password: "parade-rest"})
	require.NoError(t, err)

	err = svc.Logout(ctx, "u-2", login.RefreshToken)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))
}

func TestLogoutRevokesOwnToken(t *testing.T) {
	svc, store := newAuthFixture(t)
	ctx := context.Background()

	login, err := svc.Login(ctx, models.LoginRequest{Email: "staff@rotc.test", Password: "parade-rest"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, "u-1", login.RefreshToken))
	assert.Contains(t, store.revoked, login.RefreshToken)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc, store := newAuthFixture(t)
	other := NewAuthService(store, validator.New(), zap.NewNop(), AuthConfig{
		Secret:          "a-different-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "grading-api-test",
	})

	login, err := other.Login(context.Background(), models.LoginRequest{Email: "staff@rotc.test", Password: "parade-rest"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(login.AccessToken)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, err))
}

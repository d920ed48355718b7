package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/halcyon-health/clinic-emr-api/internal/models"
	"github.com/halcyon-health/clinic-emr-api/pkg/config"
	appErrors "github.com/halcyon-health/clinic-emr-api/pkg/errors"
)

type stubUserRepo struct {
	user          *models.User
	refreshTokens map[string]*models.RefreshToken
	auditActions  []string
	revokedAll    bool
}

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *stubUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *stubUserRepo) UpdateLastLogin(_ context.Context, _ string, _ time.Time) error { return nil }

func (s *stubUserRepo) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	if s.refreshTokens == nil {
		s.refreshTokens = map[string]*models.RefreshToken{}
	}
	s.refreshTokens[token.Token] = token
	return nil
}

func (s *stubUserRepo) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := s.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (s *stubUserRepo) RevokeRefreshToken(_ context.Context, id string, revokedAt time.Time) error {
	for _, rt := range s.refreshTokens {
		if rt.ID == id {
			rt.Revoked = true
			rt.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (s *stubUserRepo) RevokeUserRefreshTokens(_ context.Context, _ string) error {
	s.revokedAll = true
	return nil
}

func (s *stubUserRepo) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.auditActions = append(s.auditActions, log.Action)
	return nil
}

func testUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		ClinicID:     "clinic-1",
		Email:        "doctor@clinic.test",
		PasswordHash: string(hash),
		FullName:     "Dr. Example",
		Role:         models.RoleProvider,
		Active:       true,
	}
}

func newTestAuthService(repo *stubUserRepo) *AuthService {
	return NewAuthService(repo, zap.NewNop(), config.JWTConfig{
		Secret:            "test-secret",
		Expiration:        time.Hour,
		RefreshExpiration: 24 * time.Hour,
	})
}

func TestLoginIssuesTokens(t *testing.T) {
	repo := &stubUserRepo{user: testUser(t, "s3cret")}
	svc := newTestAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "doctor@clinic.test",
		Password: "s3cret",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "clinic-1", resp.User.ClinicID)
	assert.Contains(t, repo.auditActions, models.AuditActionLogin)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleProvider, claims.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc := newTestAuthService(&stubUserRepo{user: testUser(t, "s3cret")})

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "doctor@clinic.test",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	user := testUser(t, "s3cret")
	user.Active = false
	svc := newTestAuthService(&stubUserRepo{user: user})

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "doctor@clinic.test",
		Password: "s3cret",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	repo := &stubUserRepo{user: testUser(t, "s3cret")}
	svc := newTestAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "doctor@clinic.test",
		Password: "s3cret",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.True(t, repo.refreshTokens[login.RefreshToken].Revoked)

	// The rotated-out token cannot be used again.
	_, err = svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestLogoutRevokesAllTokens(t *testing.T) {
	repo := &stubUserRepo{user: testUser(t, "s3cret")}
	svc := newTestAuthService(repo)

	require.NoError(t, svc.Logout(context.Background(), "user-1", "127.0.0.1", "test-agent"))
	assert.True(t, repo.revokedAll)
	assert.Contains(t, repo.auditActions, models.AuditActionLogout)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestAuthService(&stubUserRepo{})

	_, err := svc.ValidateToken("not-a-jwt")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/deskflow/request-portal/internal/config"
	"github.com/deskflow/request-portal/internal/domain"
	"github.com/deskflow/request-portal/internal/repository"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

func newAuthService(t *testing.T) (*AuthService, repository.UserRepository) {
	t.Helper()
	users := repository.NewMemoryStore().Repos().Users
	cfg := config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: bcrypt.MinCost}
	return NewAuthService(cfg, users, nil), users
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	require.NoError(t, svc.EnsureBootstrapUser(ctx, "admin@example.com", "bootstrap-pass"))
	require.NoError(t, svc.EnsureBootstrapUser(ctx, "admin@example.com", "bootstrap-pass"))

	admin, err := svc.Login(ctx, "admin@example.com", "bootstrap-pass")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManagement, admin.User.Role)

	claims, err := svc.TokenManager().ParseToken(admin.Token)
	require.NoError(t, err)
	assert.Equal(t, admin.User.ID, claims.Subject)

	input := RegisterUserInput{Name: "Nora", Email: "Nora@Example.com", Password: "s3cret-pass", Role: domain.RoleNT}
	_, err = svc.RegisterUser(ctx, domain.Actor{ID: "x", Role: domain.RoleNT}, input)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

	user, err := svc.RegisterUser(ctx, admin.User.Actor(), input)
	require.NoError(t, err)
	assert.Equal(t, "nora@example.com", user.Email)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)

	_, err = svc.RegisterUser(ctx, admin.User.Actor(), input)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)

	_, err = svc.Login(ctx, "nora@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)

	_, err = svc.Login(ctx, "ghost@example.com", "whatever")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)

	role := domain.RoleNT
	nts, err := svc.ListUsers(ctx, &role)
	require.NoError(t, err)
	assert.Len(t, nts, 1)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)
	admin := domain.Actor{ID: "admin", Role: domain.RoleManagement}

	cases := map[string]RegisterUserInput{
		"short password": {Name: "A", Email: "a@example.com", Password: "short", Role: domain.RoleTI},
		"bad email":      {Name: "A", Email: "nope", Password: "long-enough", Role: domain.RoleTI},
		"unknown role":   {Name: "A", Email: "a@example.com", Password: "long-enough", Role: "intern"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.RegisterUser(ctx, admin, input)
			require.Error(t, err)
			assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
		})
	}
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	ctx := context.Background()
	svc, users := newAuthService(t)
	admin := domain.Actor{ID: "admin", Role: domain.RoleManagement}

	user, err := svc.RegisterUser(ctx, admin, RegisterUserInput{Name: "Old", Email: "old@example.com", Password: "long-enough", Role: domain.RoleTI})
	require.NoError(t, err)
	user.Active = false
	require.NoError(t, users.Update(ctx, user))

	_, err = svc.Login(ctx, "old@example.com", "long-enough")
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}

package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conradkoh/jcep-sub000/internal/auth"
	"github.com/conradkoh/jcep-sub000/internal/config"
	"github.com/conradkoh/jcep-sub000/internal/repository"
	"github.com/conradkoh/jcep-sub000/internal/service"
	"github.com/conradkoh/jcep-sub000/internal/testutil"
)

func newAuthService(t *testing.T, containers *testutil.TestContainers) *service.AuthService {
	t.Helper()

	authSvc := auth.NewService(&config.JWTConfig{
		Secret:            "test-secret",
		Expiration:        time.Hour,
		RefreshExpiration: 24 * time.Hour,
	})

	return service.NewAuthService(
		repository.NewUserRepository(containers.DB),
		repository.NewRoleRepository(containers.DB),
		repository.NewSessionRepository(containers.DB),
		authSvc,
	)
}

func TestAuthRegisterLoginLogout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	svc := newAuthService(t, containers)

	// The first registered user is promoted to admin.
	first, err := svc.Register("first@test.org", "password123", "First", "User")
	require.NoError(t, err)

	_, roles, err := svc.GetUserWithRoles(first.ID)
	require.NoError(t, err)
	assert.Contains(t, roles, "admin")

	// Everyone after that starts as a plain user.
	second, err := svc.Register("second@test.org", "password123", "Second", "User")
	require.NoError(t, err)

	_, roles, err = svc.GetUserWithRoles(second.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, roles)

	// Duplicate email is rejected.
	_, err = svc.Register("first@test.org", "password123", "Dup", "User")
	assert.ErrorIs(t, err, repository.ErrUserExists)

	// Wrong password and unknown email both read as invalid credentials.
	_, _, err = svc.Login("first@test.org", "wrong-password", "127.0.0.1", "test")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	_, _, err = svc.Login("nobody@test.org", "password123", "127.0.0.1", "test")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	tokens, user, err := svc.Login("first@test.org", "password123", "127.0.0.1", "test")
	require.NoError(t, err)
	assert.Equal(t, first.ID, user.ID)
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)

	// Refresh rotates the pair and invalidates the old refresh token.
	fresh, _, err := svc.Refresh(tokens.RefreshToken, "127.0.0.1", "test")
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, fresh.RefreshToken)

	_, _, err = svc.Refresh(tokens.RefreshToken, "127.0.0.1", "test")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	// Logout invalidates the access token's session.
	require.NoError(t, svc.Logout(fresh.AccessToken))
}

func TestAuthInactiveUserCannotLogin(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	svc := newAuthService(t, containers)
	userRepo := repository.NewUserRepository(containers.DB)

	user, err := svc.Register("sleeper@test.org", "password123", "Dormant", "User")
	require.NoError(t, err)

	require.NoError(t, userRepo.UpdateActiveStatus(user.ID, false))

	_, _, err = svc.Login("sleeper@test.org", "password123", "127.0.0.1", "test")
	assert.ErrorIs(t, err, service.ErrUserInactive)
}

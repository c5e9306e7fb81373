package identity

import (
	"context"
	"testing"
	"time"

	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/infrastructure/auth"
	"github.com/cloudpos/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestJWT() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-that-is-at-least-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "cloudpos-test",
		MaxRefreshCount:        3,
	})
}

type authFixture struct {
	users     *MockUserRepository
	roles     *MockRoleRepository
	blacklist *auth.InMemoryTokenBlacklist
	jwt       *auth.JWTService
	service   *AuthService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:     new(MockUserRepository),
		roles:     new(MockRoleRepository),
		blacklist: auth.NewInMemoryTokenBlacklist(),
		jwt:       newTestJWT(),
	}
	f.service = NewAuthService(f.users, f.roles, f.jwt, f.blacklist, zap.NewNop())
	return f
}

func newCashier(t *testing.T, tenantID uuid.UUID, branchID uuid.UUID) (*identity.User, *identity.Role) {
	t.Helper()
	role, err := identity.NewSystemRole(tenantID, identity.RoleCashier)
	require.NoError(t, err)
	user, err := identity.NewUser(tenantID, "cashier1", "password123")
	require.NoError(t, err)
	user.AssignBranch(&branchID)
	require.NoError(t, user.AssignRoles([]uuid.UUID{role.ID}))
	return user, role
}

func TestAuthService_Login(t *testing.T) {
	tenantID := uuid.New()
	branchID := uuid.New()

	t.Run("issues tokens carrying permissions and branch", func(t *testing.T) {
		f := newAuthFixture()
		user, role := newCashier(t, tenantID, branchID)
		f.users.On("FindByUsername", mock.Anything, tenantID, "cashier1").Return(user, nil)
		f.roles.On("FindByIDs", mock.Anything, tenantID, user.RoleIDs).Return([]*identity.Role{role}, nil)
		f.users.On("Save", mock.Anything, user).Return(nil)

		result, err := f.service.Login(context.Background(), LoginInput{TenantID: tenantID, Username: "cashier1", Password: "password123"})
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token.AccessToken)
		assert.Contains(t, result.User.Permissions, "create:order:branch-only")

		claims, err := f.jwt.ValidateAccessToken(result.Token.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, branchID.String(), claims.BranchID)

		p, err := PrincipalFromClaims(claims)
		require.NoError(t, err)
		assert.True(t, p.Can("create:order", &branchID))
		other := uuid.New()
		assert.False(t, p.Can("create:order", &other))
		assert.NotNil(t, user.LastLoginAt)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("FindByUsername", mock.Anything, tenantID, "ghost").Return(nil, shared.ErrNotFound)

		_, err := f.service.Login(context.Background(), LoginInput{TenantID: tenantID, Username: "ghost", Password: "x"})
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	})

	t.Run("locks after repeated failures", func(t *testing.T) {
		f := newAuthFixture()
		user, _ := newCashier(t, tenantID, branchID)
		f.users.On("FindByUsername", mock.Anything, tenantID, "cashier1").Return(user, nil)
		f.users.On("Save", mock.Anything, user).Return(nil)

		var err error
		for i := 0; i < identity.MaxFailedAttempts; i++ {
			_, err = f.service.Login(context.Background(), LoginInput{TenantID: tenantID, Username: "cashier1", Password: "wrong"})
		}
		assert.ErrorIs(t, err, identity.ErrAccountLocked)
		assert.Equal(t, identity.UserStatusLocked, user.Status)

		_, err = f.service.Login(context.Background(), LoginInput{TenantID: tenantID, Username: "cashier1", Password: "password123"})
		assert.ErrorIs(t, err, identity.ErrAccountLocked)
	})
}

func TestAuthService_RefreshIsSingleUse(t *testing.T) {
	tenantID := uuid.New()
	f := newAuthFixture()
	user, role := newCashier(t, tenantID, uuid.New())
	f.users.On("FindByID", mock.Anything, tenantID, user.ID).Return(user, nil)
	f.roles.On("FindByIDs", mock.Anything, tenantID, user.RoleIDs).Return([]*identity.Role{role}, nil)

	pair, err := f.jwt.GenerateTokenPair(subjectOf(user, nil))
	require.NoError(t, err)

	result, err := f.service.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, result.Token.AccessToken)

	_, err = f.service.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture()
	tenantID := uuid.New()
	user, _ := newCashier(t, tenantID, uuid.New())
	pair, err := f.jwt.GenerateTokenPair(subjectOf(user, nil))
	require.NoError(t, err)
	claims, err := f.jwt.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(context.Background(), claims, pair.RefreshToken))

	revoked, err := f.blacklist.IsRevoked(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = f.service.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAuthService_ChangePassword(t *testing.T) {
	f := newAuthFixture()
	tenantID := uuid.New()
	user, _ := newCashier(t, tenantID, uuid.New())
	p := identity.NewPrincipal(user.ID, tenantID, user.BranchID, nil)
	f.users.On("FindByID", mock.Anything, tenantID, user.ID).Return(user, nil)
	f.users.On("Save", mock.Anything, user).Return(nil)

	err := f.service.ChangePassword(context.Background(), p, "wrong-password", "newpassword1")
	assert.Error(t, err)

	require.NoError(t, f.service.ChangePassword(context.Background(), p, "password123", "newpassword1"))
	assert.True(t, user.VerifyPassword("newpassword1"))

	revoked, err := f.blacklist.IsUserRevoked(context.Background(), user.ID.String(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, revoked)
}

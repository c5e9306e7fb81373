package identity

import (
	"context"
	"testing"

	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	return domainErr.Code
}

func TestRoleService_Create(t *testing.T) {
	tenantID := uuid.New()
	owner := identity.NewPrincipal(uuid.New(), tenantID, nil, []string{"*"})

	t.Run("valid permissions", func(t *testing.T) {
		roles, users := new(MockRoleRepository), new(MockUserRepository)
		svc := NewRoleService(roles, users, zap.NewNop())
		roles.On("ExistsByCode", mock.Anything, tenantID, "supervisor").Return(false, nil)
		roles.On("Save", mock.Anything, mock.AnythingOfType("*identity.Role")).Return(nil)

		dto, err := svc.Create(context.Background(), owner, CreateRoleInput{
			Code:        "supervisor",
			Name:        "Supervisor",
			Permissions: []string{"void:order:branch-only", "view:*"},
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"void:order:branch-only", "view:*"}, dto.Permissions)
	})

	t.Run("malformed permission is rejected", func(t *testing.T) {
		roles, users := new(MockRoleRepository), new(MockUserRepository)
		svc := NewRoleService(roles, users, zap.NewNop())
		roles.On("ExistsByCode", mock.Anything, tenantID, "supervisor").Return(false, nil)

		_, err := svc.Create(context.Background(), owner, CreateRoleInput{
			Code:        "supervisor",
			Name:        "Supervisor",
			Permissions: []string{"branch-only"},
		})
		assert.Equal(t, "INVALID_PERMISSION", domainCode(t, err))
		roles.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestRoleService_Delete(t *testing.T) {
	tenantID := uuid.New()

	t.Run("system role", func(t *testing.T) {
		roles, users := new(MockRoleRepository), new(MockUserRepository)
		svc := NewRoleService(roles, users, zap.NewNop())
		role, _ := identity.NewSystemRole(tenantID, identity.RoleCashier)
		roles.On("FindByID", mock.Anything, tenantID, role.ID).Return(role, nil)

		err := svc.Delete(context.Background(), tenantID, role.ID)
		assert.Error(t, err)
		roles.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("role in use", func(t *testing.T) {
		roles, users := new(MockRoleRepository), new(MockUserRepository)
		svc := NewRoleService(roles, users, zap.NewNop())
		role, _ := identity.NewRole(tenantID, "supervisor", "Supervisor")
		roles.On("FindByID", mock.Anything, tenantID, role.ID).Return(role, nil)
		users.On("CountByRole", mock.Anything, tenantID, role.ID).Return(int64(2), nil)

		err := svc.Delete(context.Background(), tenantID, role.ID)
		assert.Equal(t, "ROLE_IN_USE", domainCode(t, err))
	})

	t.Run("unused custom role", func(t *testing.T) {
		roles, users := new(MockRoleRepository), new(MockUserRepository)
		svc := NewRoleService(roles, users, zap.NewNop())
		role, _ := identity.NewRole(tenantID, "supervisor", "Supervisor")
		roles.On("FindByID", mock.Anything, tenantID, role.ID).Return(role, nil)
		users.On("CountByRole", mock.Anything, tenantID, role.ID).Return(int64(0), nil)
		roles.On("Delete", mock.Anything, tenantID, role.ID).Return(nil)

		require.NoError(t, svc.Delete(context.Background(), tenantID, role.ID))
		roles.AssertExpectations(t)
	})
}

func TestRoleService_SeedSystemRoles(t *testing.T) {
	tenantID := uuid.New()
	roles, users := new(MockRoleRepository), new(MockUserRepository)
	svc := NewRoleService(roles, users, zap.NewNop())
	roles.On("Save", mock.Anything, mock.AnythingOfType("*identity.Role")).Return(nil)

	seeded, err := svc.SeedSystemRoles(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Len(t, seeded, len(identity.SystemRoleOrder))
	assert.True(t, seeded[identity.RoleOwner].IsSystem)
	assert.Equal(t, []string{"*"}, seeded[identity.RoleOwner].Permissions)
	roles.AssertNumberOfCalls(t, "Save", len(identity.SystemRoleOrder))
}

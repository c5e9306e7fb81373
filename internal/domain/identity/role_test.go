package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRole(t *testing.T) {
	tenantID := uuid.New()

	r, err := NewRole(tenantID, "Supervisor", "Floor Supervisor")
	require.NoError(t, err)
	assert.Equal(t, "supervisor", r.Code)
	assert.True(t, r.IsEnabled)
	assert.False(t, r.IsSystem)
	assert.Len(t, r.GetDomainEvents(), 1)

	_, err = NewRole(tenantID, "x", "Bad")
	assert.Error(t, err)
	_, err = NewRole(tenantID, "ok_code", "")
	assert.Error(t, err)
}

func TestRole_SetPermissionsRejectsMalformed(t *testing.T) {
	r, err := NewRole(uuid.New(), "custom", "Custom")
	require.NoError(t, err)

	err = r.SetPermissions([]string{"view:order", "Edit:Stock"})
	assert.ErrorIs(t, err, ErrInvalidPermission)
	assert.Empty(t, r.Permissions)

	require.NoError(t, r.SetPermissions([]string{"view:order", "view:order", "edit:stock:branch-only"}))
	assert.Equal(t, []string{"view:order", "edit:stock:branch-only"}, r.Permissions)
}

func TestRole_GrantAndRevoke(t *testing.T) {
	r, err := NewRole(uuid.New(), "custom", "Custom")
	require.NoError(t, err)

	require.NoError(t, r.GrantPermission("view:report"))
	assert.Error(t, r.GrantPermission("view:report"))
	assert.Error(t, r.GrantPermission("view report"))

	require.NoError(t, r.RevokePermission("view:report"))
	assert.Error(t, r.RevokePermission("view:report"))
}

func TestSystemRoleGuards(t *testing.T) {
	r, err := NewSystemRole(uuid.New(), RoleOwner)
	require.NoError(t, err)
	assert.True(t, r.IsSystem)
	assert.Equal(t, []string{"*"}, r.Permissions)

	assert.Error(t, r.CanDelete())
	assert.Error(t, r.ChangeCode("boss"))
	assert.Error(t, r.Disable())

	_, err = NewSystemRole(uuid.New(), "janitor")
	assert.Error(t, err)
}

func TestPermissionsForRoles(t *testing.T) {
	tenantID := uuid.New()
	cashier, _ := NewSystemRole(tenantID, RoleCashier)
	keeper, _ := NewSystemRole(tenantID, RoleStockKeeper)
	disabled, _ := NewRole(tenantID, "disabled_role", "Disabled")
	_ = disabled.SetPermissions([]string{"delete:order"})
	require.NoError(t, disabled.Disable())

	perms := PermissionsForRoles([]*Role{cashier, keeper, disabled})
	assert.Contains(t, perms, "edit:stock:branch-only")
	assert.NotContains(t, perms, "delete:order")

	count := 0
	for _, p := range perms {
		if p == "view:product" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

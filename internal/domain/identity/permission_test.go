package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePermission(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantSegs   []string
		branchOnly bool
		wantErr    bool
	}{
		{"simple", "create:order", []string{"create", "order"}, false, false},
		{"qualified", "void:order:any_day", []string{"void", "order", "any_day"}, false, false},
		{"branch only", "edit:stock:branch-only", []string{"edit", "stock"}, true, false},
		{"wildcard segment", "view:*", []string{"view", "*"}, false, false},
		{"bare wildcard", "*", []string{"*"}, false, false},
		{"empty", "", nil, false, true},
		{"empty segment", "create::order", nil, false, true},
		{"uppercase", "Create:order", nil, false, true},
		{"partial wildcard", "view:ord*", nil, false, true},
		{"branch only too short", "order:branch-only", nil, false, true},
		{"branch only in middle", "edit:branch-only:stock", nil, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ParsePermission(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSegs, g.Segments)
			assert.Equal(t, tt.branchOnly, g.BranchOnly)
			assert.Equal(t, tt.input, g.String())
		})
	}
}

func TestGrant_Matches(t *testing.T) {
	tests := []struct {
		grant    string
		required string
		want     bool
	}{
		{"create:order", "create:order", true},
		{"create:order", "create:order:refund", true},
		{"create:order", "create:orders", false},
		{"create:order", "create", false},
		{"view:*", "view:report", true},
		{"view:*", "view:stock:low", true},
		{"view:*", "edit:report", false},
		{"*", "void:order:any_day", true},
		{"edit:*:branch-only", "edit:stock", true},
	}
	for _, tt := range tests {
		t.Run(tt.grant+"->"+tt.required, func(t *testing.T) {
			g := MustParsePermission(tt.grant)
			assert.Equal(t, tt.want, g.Matches(splitRequired(tt.required)))
		})
	}
}

func TestPrincipal_BranchOnlyNeverCrossesBranches(t *testing.T) {
	home := uuid.New()
	other := uuid.New()
	p := NewPrincipal(uuid.New(), uuid.New(), &home, RolePermissions[RoleCashier])

	assert.True(t, p.Can("create:order", &home))
	assert.False(t, p.Can("create:order", &other))
	assert.False(t, p.Can("create:order", nil), "branch-only grant must not authorize tenant-wide targets")

	// non branch-only grants apply everywhere
	assert.True(t, p.Can("view:product", &other))
	assert.True(t, p.Can("view:product", nil))
}

func TestPrincipal_BranchOnlyWithoutHomeBranch(t *testing.T) {
	target := uuid.New()
	p := NewPrincipal(uuid.New(), uuid.New(), nil, []string{"edit:stock:branch-only"})

	assert.False(t, p.Can("edit:stock", &target))
	assert.False(t, p.Can("edit:stock", nil))

	all, branches := p.AllowedBranches("edit:stock")
	assert.False(t, all)
	assert.Empty(t, branches)
}

func TestPrincipal_AllowedBranches(t *testing.T) {
	home := uuid.New()

	manager := NewPrincipal(uuid.New(), uuid.New(), &home, RolePermissions[RoleManager])
	all, branches := manager.AllowedBranches("view:order")
	assert.True(t, all)
	assert.Nil(t, branches)

	all, branches = manager.AllowedBranches("create:expense")
	assert.False(t, all)
	assert.Equal(t, []uuid.UUID{home}, branches)

	cashier := NewPrincipal(uuid.New(), uuid.New(), &home, RolePermissions[RoleCashier])
	all, branches = cashier.AllowedBranches("view:report")
	assert.False(t, all)
	assert.Empty(t, branches)
	assert.False(t, cashier.CanInSomeBranch("view:report"))
	assert.True(t, cashier.CanInSomeBranch("view:order"))
}

func TestPrincipal_Owner(t *testing.T) {
	p := NewPrincipal(uuid.New(), uuid.New(), nil, RolePermissions[RoleOwner])
	b := uuid.New()

	assert.True(t, p.Can("void:order:any_day", &b))
	assert.True(t, p.Can("manage:staff", nil))
	assert.True(t, p.CanAny("nothing:here"))
}

func TestPrincipal_NilAndMalformed(t *testing.T) {
	var p *Principal
	assert.False(t, p.Can("view:order", nil))

	q := NewPrincipal(uuid.New(), uuid.New(), nil, []string{"BAD", "view:order"})
	assert.Len(t, q.Grants, 1)
	assert.False(t, q.Can("", nil))
	assert.False(t, q.Can("view::order", nil))
	assert.Equal(t, []string{"view:order"}, q.Permissions())
}

func TestRolePermissionsTableIsValid(t *testing.T) {
	for code, perms := range RolePermissions {
		assert.NoError(t, ValidatePermissions(perms), code)
	}
	for _, code := range SystemRoleOrder {
		assert.Contains(t, RolePermissions, code)
	}
}

func TestAccountantCannotVoidOrders(t *testing.T) {
	b := uuid.New()
	p := NewPrincipal(uuid.New(), uuid.New(), &b, RolePermissions[RoleAccountant])

	assert.True(t, p.Can("view:order", nil))
	assert.True(t, p.Can("create:expense", &b))
	assert.False(t, p.Can("void:order", &b))
}

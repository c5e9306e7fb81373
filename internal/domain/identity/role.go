package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
)

var roleCodePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,49}$`)

// Role is a named set of permission strings within a business
type Role struct {
	shared.TenantAggregateRoot
	Code        string
	Name        string
	Description string
	Permissions []string
	IsSystem    bool
	IsEnabled   bool
}

// NewRole creates a custom role
func NewRole(tenantID uuid.UUID, code, name string) (*Role, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if !roleCodePattern.MatchString(code) {
		return nil, shared.NewDomainError("INVALID_ROLE_CODE", "Role code must be 2-50 lowercase letters, digits or underscores")
	}
	if err := validateRoleName(name); err != nil {
		return nil, err
	}

	r := &Role{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                strings.TrimSpace(name),
		Permissions:         make([]string, 0),
		IsEnabled:           true,
	}
	r.AddDomainEvent(NewRoleCreatedEvent(r))
	return r, nil
}

// NewSystemRole creates a built-in role from RolePermissions
func NewSystemRole(tenantID uuid.UUID, code string) (*Role, error) {
	perms, ok := RolePermissions[code]
	if !ok {
		return nil, shared.NewDomainError("INVALID_ROLE_CODE", "Unknown system role: "+code)
	}
	r, err := NewRole(tenantID, code, SystemRoleNames[code])
	if err != nil {
		return nil, err
	}
	if err := r.SetPermissions(perms); err != nil {
		return nil, err
	}
	r.IsSystem = true
	return r, nil
}

// Update changes name and description
func (r *Role) Update(name, description string) error {
	if err := validateRoleName(name); err != nil {
		return err
	}
	r.Name = strings.TrimSpace(name)
	r.Description = strings.TrimSpace(description)
	r.Touch()
	r.IncrementVersion()
	return nil
}

// SetPermissions replaces the permission list; every token must parse
func (r *Role) SetPermissions(perms []string) error {
	if err := ValidatePermissions(perms); err != nil {
		return err
	}
	seen := make(map[string]bool, len(perms))
	unique := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if seen[p] {
			continue
		}
		seen[p] = true
		unique = append(unique, p)
	}
	r.Permissions = unique
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewRolePermissionsChangedEvent(r))
	return nil
}

// GrantPermission adds a single permission
func (r *Role) GrantPermission(perm string) error {
	perm = strings.TrimSpace(perm)
	if _, err := ParsePermission(perm); err != nil {
		return err
	}
	if r.HasPermission(perm) {
		return shared.NewDomainError("PERMISSION_ALREADY_GRANTED", "Role already has this permission")
	}
	r.Permissions = append(r.Permissions, perm)
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewRolePermissionsChangedEvent(r))
	return nil
}

// RevokePermission removes a single permission
func (r *Role) RevokePermission(perm string) error {
	perm = strings.TrimSpace(perm)
	kept := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		if p != perm {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(r.Permissions) {
		return shared.NewDomainError("PERMISSION_NOT_GRANTED", "Role does not have this permission")
	}
	r.Permissions = kept
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewRolePermissionsChangedEvent(r))
	return nil
}

// HasPermission checks for an exact token
func (r *Role) HasPermission(perm string) bool {
	for _, p := range r.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Enable enables the role
func (r *Role) Enable() error {
	if r.IsEnabled {
		return shared.NewDomainError("ALREADY_ENABLED", "Role is already enabled")
	}
	r.IsEnabled = true
	r.Touch()
	r.IncrementVersion()
	return nil
}

// Disable disables the role
func (r *Role) Disable() error {
	if !r.IsEnabled {
		return shared.NewDomainError("ALREADY_DISABLED", "Role is already disabled")
	}
	if r.IsSystem && r.Code == RoleOwner {
		return shared.NewDomainError("CANNOT_DISABLE_OWNER", "The owner role cannot be disabled")
	}
	r.IsEnabled = false
	r.Touch()
	r.IncrementVersion()
	return nil
}

// CanDelete reports whether the role may be deleted
func (r *Role) CanDelete() error {
	if r.IsSystem {
		return shared.NewDomainError("CANNOT_DELETE_SYSTEM_ROLE", "System roles cannot be deleted")
	}
	return nil
}

// ChangeCode renames the role code; system roles keep theirs
func (r *Role) ChangeCode(code string) error {
	if r.IsSystem {
		return shared.NewDomainError("CANNOT_CHANGE_SYSTEM_ROLE", "System role codes cannot be changed")
	}
	code = strings.ToLower(strings.TrimSpace(code))
	if !roleCodePattern.MatchString(code) {
		return shared.NewDomainError("INVALID_ROLE_CODE", "Role code must be 2-50 lowercase letters, digits or underscores")
	}
	r.Code = code
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

func validateRoleName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_ROLE_NAME", "Role name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_ROLE_NAME", "Role name cannot exceed 100 characters")
	}
	return nil
}

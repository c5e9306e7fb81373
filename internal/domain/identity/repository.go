package identity

import (
	"context"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UserRepository defines persistence for staff accounts.
// All finders are scoped to tenantID.
type UserRepository interface {
	Save(ctx context.Context, user *User) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*User, error)
	FindByUsername(ctx context.Context, tenantID uuid.UUID, username string) (*User, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter UserFilter) ([]*User, int64, error)
	ExistsByUsername(ctx context.Context, tenantID uuid.UUID, username string) (bool, error)
	CountByRole(ctx context.Context, tenantID, roleID uuid.UUID) (int64, error)
	Count(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// UserFilter narrows user lists
type UserFilter struct {
	shared.Filter
	Status   *UserStatus
	RoleID   *uuid.UUID
	BranchID *uuid.UUID
}

// RoleRepository defines persistence for roles
type RoleRepository interface {
	Save(ctx context.Context, role *Role) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Role, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*Role, error)
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Role, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*Role, int64, error)
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)
}

// PermissionsForRoles collects the tokens of the enabled roles
func PermissionsForRoles(roles []*Role) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, r := range roles {
		if !r.IsEnabled {
			continue
		}
		for _, p := range r.Permissions {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

package identity

import (
	"context"

	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RoleService manages roles and their permission strings
type RoleService struct {
	roles  identity.RoleRepository
	users  identity.UserRepository
	logger *zap.Logger
}

// NewRoleService creates a new role service
func NewRoleService(roles identity.RoleRepository, users identity.UserRepository, logger *zap.Logger) *RoleService {
	return &RoleService{roles: roles, users: users, logger: logger}
}

// Create adds a custom role; every permission is validated before saving
func (s *RoleService) Create(ctx context.Context, p *identity.Principal, in CreateRoleInput) (*RoleDTO, error) {
	exists, err := s.roles.ExistsByCode(ctx, p.TenantID, in.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ROLE_CODE_EXISTS", "Role code already exists")
	}
	role, err := identity.NewRole(p.TenantID, in.Code, in.Name)
	if err != nil {
		return nil, err
	}
	if err := role.Update(in.Name, in.Description); err != nil {
		return nil, err
	}
	if err := role.SetPermissions(in.Permissions); err != nil {
		return nil, err
	}
	role.SetCreatedBy(p.UserID)
	if err := s.roles.Save(ctx, role); err != nil {
		return nil, err
	}
	s.logger.Info("Role created", zap.String("role_id", role.ID.String()), zap.String("code", role.Code))
	dto := ToRoleDTO(role)
	return &dto, nil
}

// Get returns a role with its user count
func (s *RoleService) Get(ctx context.Context, tenantID, id uuid.UUID) (*RoleDTO, error) {
	role, err := s.roles.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	dto := ToRoleDTO(role)
	if dto.UserCount, err = s.users.CountByRole(ctx, tenantID, id); err != nil {
		return nil, err
	}
	return &dto, nil
}

// List returns roles of the tenant
func (s *RoleService) List(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[RoleDTO], error) {
	filter.Normalize()
	roles, total, err := s.roles.FindAll(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[RoleDTO]{}, err
	}
	items := make([]RoleDTO, len(roles))
	for i, r := range roles {
		items[i] = ToRoleDTO(r)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Update edits name and description
func (s *RoleService) Update(ctx context.Context, tenantID, id uuid.UUID, in UpdateRoleInput) (*RoleDTO, error) {
	return s.mutate(ctx, tenantID, id, func(r *identity.Role) error {
		return r.Update(in.Name, in.Description)
	})
}

// SetPermissions replaces the permission list. Malformed tokens are rejected.
func (s *RoleService) SetPermissions(ctx context.Context, tenantID, id uuid.UUID, perms []string) (*RoleDTO, error) {
	return s.mutate(ctx, tenantID, id, func(r *identity.Role) error {
		return r.SetPermissions(perms)
	})
}

// Enable turns a role back on
func (s *RoleService) Enable(ctx context.Context, tenantID, id uuid.UUID) (*RoleDTO, error) {
	return s.mutate(ctx, tenantID, id, (*identity.Role).Enable)
}

// Disable turns a role off; its permissions stop applying at the next token refresh
func (s *RoleService) Disable(ctx context.Context, tenantID, id uuid.UUID) (*RoleDTO, error) {
	return s.mutate(ctx, tenantID, id, (*identity.Role).Disable)
}

// Delete removes a custom role that no user holds
func (s *RoleService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	role, err := s.roles.FindByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := role.CanDelete(); err != nil {
		return err
	}
	count, err := s.users.CountByRole(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.NewDomainError("ROLE_IN_USE", "Role is assigned to users")
	}
	if err := s.roles.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.logger.Info("Role deleted", zap.String("role_id", id.String()))
	return nil
}

// ListPermissionCatalog returns the vocabulary used by the role editor
func (s *RoleService) ListPermissionCatalog() PermissionCatalog {
	roles := make(map[string][]string, len(identity.RolePermissions))
	for code, perms := range identity.RolePermissions {
		roles[code] = append([]string(nil), perms...)
	}
	return PermissionCatalog{
		Actions:    identity.PermissionActions,
		Resources:  identity.PermissionResources,
		Qualifiers: []string{identity.BranchOnlyQualifier},
		Roles:      roles,
	}
}

// SeedSystemRoles creates the built-in roles for a new business
func (s *RoleService) SeedSystemRoles(ctx context.Context, tenantID uuid.UUID) (map[string]*identity.Role, error) {
	out := make(map[string]*identity.Role, len(identity.SystemRoleOrder))
	for _, code := range identity.SystemRoleOrder {
		role, err := identity.NewSystemRole(tenantID, code)
		if err != nil {
			return nil, err
		}
		if err := s.roles.Save(ctx, role); err != nil {
			return nil, err
		}
		out[code] = role
	}
	return out, nil
}

func (s *RoleService) mutate(ctx context.Context, tenantID, id uuid.UUID, fn func(*identity.Role) error) (*RoleDTO, error) {
	role, err := s.roles.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := fn(role); err != nil {
		return nil, err
	}
	if err := s.roles.Save(ctx, role); err != nil {
		return nil, err
	}
	dto := ToRoleDTO(role)
	return &dto, nil
}

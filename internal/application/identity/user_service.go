package identity

import (
	"context"

	"github.com/cloudpos/backend/internal/domain/branch"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PermManageStaff guards staff administration
const PermManageStaff = "manage:staff"

// UserLimiter enforces the subscription user allowance
type UserLimiter interface {
	EnsureCanAddUser(ctx context.Context, tenantID uuid.UUID) error
}

// UserService manages staff accounts
type UserService struct {
	users     identity.UserRepository
	roles     identity.RoleRepository
	branches  branch.Repository
	limiter   UserLimiter
	blacklist auth.TokenBlacklist
	jwt       *auth.JWTService
	logger    *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	users identity.UserRepository,
	roles identity.RoleRepository,
	branches branch.Repository,
	limiter UserLimiter,
	blacklist auth.TokenBlacklist,
	jwt *auth.JWTService,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		users:     users,
		roles:     roles,
		branches:  branches,
		limiter:   limiter,
		blacklist: blacklist,
		jwt:       jwt,
		logger:    logger,
	}
}

// Create adds a staff account within the plan's user limit. A branch-only
// manager may only create users for their own branch.
func (s *UserService) Create(ctx context.Context, p *identity.Principal, in CreateUserInput) (*UserDTO, error) {
	if err := p.Require(PermManageStaff, in.BranchID); err != nil {
		return nil, err
	}
	if err := s.limiter.EnsureCanAddUser(ctx, p.TenantID); err != nil {
		return nil, err
	}
	exists, err := s.users.ExistsByUsername(ctx, p.TenantID, in.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("USERNAME_EXISTS", "Username is already taken")
	}
	if err := s.checkBranch(ctx, p.TenantID, in.BranchID); err != nil {
		return nil, err
	}

	user, err := identity.NewUser(p.TenantID, in.Username, in.Password)
	if err != nil {
		return nil, err
	}
	if err := user.SetProfile(in.DisplayName, in.Email, in.Phone); err != nil {
		return nil, err
	}
	user.AssignBranch(in.BranchID)
	if len(in.RoleIDs) > 0 {
		if err := s.checkRoles(ctx, p, in.RoleIDs); err != nil {
			return nil, err
		}
		if err := user.AssignRoles(in.RoleIDs); err != nil {
			return nil, err
		}
	}
	user.SetCreatedBy(p.UserID)
	user.ClearDomainEvents()
	user.AddDomainEvent(identity.NewUserCreatedEvent(user))

	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username))
	dto := ToUserDTO(user)
	return &dto, nil
}

// Get returns a user visible to the principal
func (s *UserService) Get(ctx context.Context, p *identity.Principal, id uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, p, id, "view:staff")
	if err != nil {
		return nil, err
	}
	dto := ToUserDTO(user)
	return &dto, nil
}

// List returns users; branch-only viewers see their own branch
func (s *UserService) List(ctx context.Context, p *identity.Principal, filter identity.UserFilter) (shared.Paginated[UserDTO], error) {
	all, branches := p.AllowedBranches("view:staff")
	if !all {
		if len(branches) == 0 {
			return shared.Paginated[UserDTO]{}, shared.ErrForbidden
		}
		filter.BranchID = &branches[0]
	}
	filter.Normalize()
	users, total, err := s.users.FindAll(ctx, p.TenantID, filter)
	if err != nil {
		return shared.Paginated[UserDTO]{}, err
	}
	items := make([]UserDTO, len(users))
	for i, u := range users {
		items[i] = ToUserDTO(u)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Update edits profile fields
func (s *UserService) Update(ctx context.Context, p *identity.Principal, id uuid.UUID, in UpdateUserInput) (*UserDTO, error) {
	user, err := s.load(ctx, p, id, PermManageStaff)
	if err != nil {
		return nil, err
	}
	if err := user.SetProfile(in.DisplayName, in.Email, in.Phone); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	dto := ToUserDTO(user)
	return &dto, nil
}

// AssignRoles replaces the role set and revokes the user's sessions
func (s *UserService) AssignRoles(ctx context.Context, p *identity.Principal, id uuid.UUID, roleIDs []uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, p, id, PermManageStaff)
	if err != nil {
		return nil, err
	}
	if err := s.checkRoles(ctx, p, roleIDs); err != nil {
		return nil, err
	}
	if err := user.AssignRoles(roleIDs); err != nil {
		return nil, err
	}
	return s.saveAndRevoke(ctx, user)
}

// AssignBranch moves the user to another home branch (nil = tenant-wide).
// The principal needs the grant on both the old and the new branch.
func (s *UserService) AssignBranch(ctx context.Context, p *identity.Principal, id uuid.UUID, branchID *uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, p, id, PermManageStaff)
	if err != nil {
		return nil, err
	}
	if err := p.Require(PermManageStaff, branchID); err != nil {
		return nil, err
	}
	if err := s.checkBranch(ctx, p.TenantID, branchID); err != nil {
		return nil, err
	}
	user.AssignBranch(branchID)
	return s.saveAndRevoke(ctx, user)
}

// Activate re-enables an account
func (s *UserService) Activate(ctx context.Context, p *identity.Principal, id uuid.UUID) (*UserDTO, error) {
	return s.transition(ctx, p, id, (*identity.User).Activate, false)
}

// Deactivate disables an account and ends its sessions
func (s *UserService) Deactivate(ctx context.Context, p *identity.Principal, id uuid.UUID) (*UserDTO, error) {
	if id == p.UserID {
		return nil, shared.NewDomainError("CANNOT_DEACTIVATE_SELF", "You cannot deactivate your own account")
	}
	return s.transition(ctx, p, id, (*identity.User).Deactivate, true)
}

// Unlock clears a login lockout
func (s *UserService) Unlock(ctx context.Context, p *identity.Principal, id uuid.UUID) (*UserDTO, error) {
	return s.transition(ctx, p, id, (*identity.User).Unlock, false)
}

// ResetPassword sets a new password and ends the user's sessions
func (s *UserService) ResetPassword(ctx context.Context, p *identity.Principal, id uuid.UUID, password string) error {
	user, err := s.load(ctx, p, id, PermManageStaff)
	if err != nil {
		return err
	}
	if err := user.ResetPassword(password); err != nil {
		return err
	}
	_, err = s.saveAndRevoke(ctx, user)
	return err
}

// Delete removes an account
func (s *UserService) Delete(ctx context.Context, p *identity.Principal, id uuid.UUID) error {
	if id == p.UserID {
		return shared.NewDomainError("CANNOT_DELETE_SELF", "You cannot delete your own account")
	}
	user, err := s.load(ctx, p, id, PermManageStaff)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, p.TenantID, user.ID); err != nil {
		return err
	}
	s.revoke(ctx, user)
	s.logger.Info("User deleted", zap.String("user_id", user.ID.String()))
	return nil
}

func (s *UserService) transition(ctx context.Context, p *identity.Principal, id uuid.UUID, fn func(*identity.User) error, revoke bool) (*UserDTO, error) {
	user, err := s.load(ctx, p, id, PermManageStaff)
	if err != nil {
		return nil, err
	}
	if err := fn(user); err != nil {
		return nil, err
	}
	if revoke {
		return s.saveAndRevoke(ctx, user)
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	dto := ToUserDTO(user)
	return &dto, nil
}

// load fetches the user and checks perm against the user's home branch
func (s *UserService) load(ctx context.Context, p *identity.Principal, id uuid.UUID, perm string) (*identity.User, error) {
	user, err := s.users.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := p.Require(perm, user.BranchID); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) saveAndRevoke(ctx context.Context, user *identity.User) (*UserDTO, error) {
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	s.revoke(ctx, user)
	dto := ToUserDTO(user)
	return &dto, nil
}

func (s *UserService) revoke(ctx context.Context, user *identity.User) {
	if err := s.blacklist.RevokeUser(ctx, user.ID.String(), s.jwt.RefreshTokenExpiration()); err != nil {
		s.logger.Warn("Failed to revoke user sessions", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

func (s *UserService) checkBranch(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) error {
	if branchID == nil {
		return nil
	}
	b, err := s.branches.FindByID(ctx, tenantID, *branchID)
	if err != nil {
		return err
	}
	if !b.IsActive {
		return shared.NewDomainError("BRANCH_INACTIVE", "Branch is inactive")
	}
	return nil
}

// checkRoles loads the roles and stops a principal from handing out
// permissions it does not hold itself
func (s *UserService) checkRoles(ctx context.Context, p *identity.Principal, roleIDs []uuid.UUID) error {
	roles, err := s.roles.FindByIDs(ctx, p.TenantID, roleIDs)
	if err != nil {
		return err
	}
	if len(roles) != len(uniqueIDs(roleIDs)) {
		return shared.NewDomainError("ROLE_NOT_FOUND", "One or more roles do not exist")
	}
	for _, r := range roles {
		for _, perm := range r.Permissions {
			if !holds(p, perm) {
				return shared.NewDomainError("PERMISSION_ESCALATION", "Cannot assign role "+r.Code+" with permissions you do not hold")
			}
		}
	}
	return nil
}

// holds reports whether p covers perm within its own scope. A grant held
// only for the home branch counts, since the assignee is bound to a branch
// the granter manages.
func holds(p *identity.Principal, perm string) bool {
	g, err := identity.ParsePermission(perm)
	if err != nil {
		return false
	}
	required := identity.Grant{Segments: g.Segments}.String()
	if p.Can(required, nil) {
		return true
	}
	return p.BranchID != nil && p.Can(required, p.BranchID)
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

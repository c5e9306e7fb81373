package identity

import (
	"time"

	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
)

// LoginInput identifies the business by tenant id; usernames are unique per business
type LoginInput struct {
	TenantID uuid.UUID
	Username string
	Password string
	IP       string
}

// LoginResult is returned by Login and Refresh
type LoginResult struct {
	Token *auth.TokenPair `json:"token"`
	User  UserDTO         `json:"user"`
}

// UserDTO is the API view of a staff account
type UserDTO struct {
	ID          uuid.UUID   `json:"id"`
	TenantID    uuid.UUID   `json:"tenant_id"`
	Username    string      `json:"username"`
	Email       string      `json:"email,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	DisplayName string      `json:"display_name"`
	BranchID    *uuid.UUID  `json:"branch_id,omitempty"`
	RoleIDs     []uuid.UUID `json:"role_ids"`
	Status      string      `json:"status"`
	LastLoginAt *time.Time  `json:"last_login_at,omitempty"`
	Permissions []string    `json:"permissions,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ToUserDTO converts a domain user
func ToUserDTO(u *identity.User) UserDTO {
	roleIDs := u.RoleIDs
	if roleIDs == nil {
		roleIDs = []uuid.UUID{}
	}
	return UserDTO{
		ID:          u.ID,
		TenantID:    u.TenantID,
		Username:    u.Username,
		Email:       u.Email,
		Phone:       u.Phone,
		DisplayName: u.DisplayName,
		BranchID:    u.BranchID,
		RoleIDs:     roleIDs,
		Status:      string(u.Status),
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// RoleDTO is the API view of a role
type RoleDTO struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Permissions []string  `json:"permissions"`
	IsSystem    bool      `json:"is_system"`
	IsEnabled   bool      `json:"is_enabled"`
	UserCount   int64     `json:"user_count,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToRoleDTO converts a domain role
func ToRoleDTO(r *identity.Role) RoleDTO {
	perms := r.Permissions
	if perms == nil {
		perms = []string{}
	}
	return RoleDTO{
		ID:          r.ID,
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description,
		Permissions: perms,
		IsSystem:    r.IsSystem,
		IsEnabled:   r.IsEnabled,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// CreateUserInput carries a new staff account
type CreateUserInput struct {
	Username    string
	Password    string
	DisplayName string
	Email       string
	Phone       string
	BranchID    *uuid.UUID
	RoleIDs     []uuid.UUID
}

// UpdateUserInput carries profile edits
type UpdateUserInput struct {
	DisplayName string
	Email       string
	Phone       string
}

// CreateRoleInput carries a custom role
type CreateRoleInput struct {
	Code        string
	Name        string
	Description string
	Permissions []string
}

// UpdateRoleInput carries role edits
type UpdateRoleInput struct {
	Name        string
	Description string
}

// PermissionCatalog lists the known vocabulary for the role editor
type PermissionCatalog struct {
	Actions    []string            `json:"actions"`
	Resources  []string            `json:"resources"`
	Qualifiers []string            `json:"qualifiers"`
	Roles      map[string][]string `json:"system_roles"`
}

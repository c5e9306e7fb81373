package identity

import (
	"github.com/cloudpos/backend/internal/domain/shared"
)

// Aggregate types
const (
	AggregateTypeUser = "User"
	AggregateTypeRole = "Role"
)

// Identity event types
const (
	EventTypeUserCreated            = "UserCreated"
	EventTypeUserPasswordChanged    = "UserPasswordChanged"
	EventTypeUserAccessChanged      = "UserAccessChanged"
	EventTypeUserLocked             = "UserLocked"
	EventTypeRoleCreated            = "RoleCreated"
	EventTypeRolePermissionsChanged = "RolePermissionsChanged"
)

// UserCreatedEvent is published when a staff account is created
type UserCreatedEvent struct {
	shared.BaseDomainEvent
	Username string `json:"username"`
}

// NewUserCreatedEvent creates a new UserCreatedEvent
func NewUserCreatedEvent(u *User) *UserCreatedEvent {
	return &UserCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserCreated, AggregateTypeUser, u.ID, u.TenantID),
		Username:        u.Username,
	}
}

// UserPasswordChangedEvent is published after a password change or reset
type UserPasswordChangedEvent struct {
	shared.BaseDomainEvent
	Username string `json:"username"`
}

// NewUserPasswordChangedEvent creates a new UserPasswordChangedEvent
func NewUserPasswordChangedEvent(u *User) *UserPasswordChangedEvent {
	return &UserPasswordChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserPasswordChanged, AggregateTypeUser, u.ID, u.TenantID),
		Username:        u.Username,
	}
}

// UserAccessChangedEvent is published when roles, branch or status change.
// Consumers use it to invalidate outstanding tokens.
type UserAccessChangedEvent struct {
	shared.BaseDomainEvent
	Username string `json:"username"`
}

// NewUserAccessChangedEvent creates a new UserAccessChangedEvent
func NewUserAccessChangedEvent(u *User) *UserAccessChangedEvent {
	return &UserAccessChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserAccessChanged, AggregateTypeUser, u.ID, u.TenantID),
		Username:        u.Username,
	}
}

// UserLockedEvent is published when repeated failures lock an account
type UserLockedEvent struct {
	shared.BaseDomainEvent
	Username string `json:"username"`
}

// NewUserLockedEvent creates a new UserLockedEvent
func NewUserLockedEvent(u *User) *UserLockedEvent {
	return &UserLockedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserLocked, AggregateTypeUser, u.ID, u.TenantID),
		Username:        u.Username,
	}
}

// RoleCreatedEvent is published when a role is created
type RoleCreatedEvent struct {
	shared.BaseDomainEvent
	Code string `json:"code"`
}

// NewRoleCreatedEvent creates a new RoleCreatedEvent
func NewRoleCreatedEvent(r *Role) *RoleCreatedEvent {
	return &RoleCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRoleCreated, AggregateTypeRole, r.ID, r.TenantID),
		Code:            r.Code,
	}
}

// RolePermissionsChangedEvent is published when a role's permissions change
type RolePermissionsChangedEvent struct {
	shared.BaseDomainEvent
	Code        string   `json:"code"`
	Permissions []string `json:"permissions"`
}

// NewRolePermissionsChangedEvent creates a new RolePermissionsChangedEvent
func NewRolePermissionsChangedEvent(r *Role) *RolePermissionsChangedEvent {
	perms := make([]string, len(r.Permissions))
	copy(perms, r.Permissions)
	return &RolePermissionsChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRolePermissionsChanged, AggregateTypeRole, r.ID, r.TenantID),
		Code:            r.Code,
		Permissions:     perms,
	}
}

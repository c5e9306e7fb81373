package models

import (
	"time"

	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	TenantAggregateModel
	Username       string              `gorm:"type:varchar(50);not null;uniqueIndex:idx_users_tenant_username,priority:2"`
	Email          string              `gorm:"type:varchar(200)"`
	Phone          string              `gorm:"type:varchar(20)"`
	DisplayName    string              `gorm:"type:varchar(200)"`
	PasswordHash   string              `gorm:"type:varchar(255);not null"`
	BranchID       *uuid.UUID          `gorm:"type:uuid;index"`
	Status         identity.UserStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	FailedAttempts int                 `gorm:"not null;default:0"`
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
// RoleIDs are loaded separately by the repository.
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Username:            m.Username,
		Email:               m.Email,
		Phone:               m.Phone,
		DisplayName:         m.DisplayName,
		PasswordHash:        m.PasswordHash,
		BranchID:            m.BranchID,
		RoleIDs:             make([]uuid.UUID, 0),
		Status:              m.Status,
		FailedAttempts:      m.FailedAttempts,
		LockedUntil:         m.LockedUntil,
		LastLoginAt:         m.LastLoginAt,
	}
}

// FromDomain populates the persistence model from a domain User entity.
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainTenantAggregateRoot(u.TenantAggregateRoot)
	m.Username = u.Username
	m.Email = u.Email
	m.Phone = u.Phone
	m.DisplayName = u.DisplayName
	m.PasswordHash = u.PasswordHash
	m.BranchID = u.BranchID
	m.Status = u.Status
	m.FailedAttempts = u.FailedAttempts
	m.LockedUntil = u.LockedUntil
	m.LastLoginAt = u.LastLoginAt
}

// UserModelFromDomain creates a new persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}

// UserRoleModel links users to roles
type UserRoleModel struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoleID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UserRoleModel) TableName() string {
	return "user_roles"
}

// RoleModel is the persistence model for the Role domain entity.
type RoleModel struct {
	TenantAggregateModel
	Code        string `gorm:"type:varchar(50);not null"`
	Name        string `gorm:"type:varchar(100);not null"`
	Description string `gorm:"type:text"`
	IsSystem    bool   `gorm:"not null;default:false"`
	IsEnabled   bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (RoleModel) TableName() string {
	return "roles"
}

// ToDomain converts the persistence model to a domain Role.
// Permissions are loaded separately by the repository.
func (m *RoleModel) ToDomain() *identity.Role {
	return &identity.Role{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Code:                m.Code,
		Name:                m.Name,
		Description:         m.Description,
		Permissions:         make([]string, 0),
		IsSystem:            m.IsSystem,
		IsEnabled:           m.IsEnabled,
	}
}

// FromDomain populates the persistence model from a domain Role.
func (m *RoleModel) FromDomain(r *identity.Role) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.Code = r.Code
	m.Name = r.Name
	m.Description = r.Description
	m.IsSystem = r.IsSystem
	m.IsEnabled = r.IsEnabled
}

// RoleModelFromDomain creates a new persistence model from a domain Role.
func RoleModelFromDomain(r *identity.Role) *RoleModel {
	m := &RoleModel{}
	m.FromDomain(r)
	return m
}

// RolePermissionModel stores one permission token of a role
type RolePermissionModel struct {
	RoleID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Permission string    `gorm:"type:varchar(100);primaryKey"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RolePermissionModel) TableName() string {
	return "role_permissions"
}

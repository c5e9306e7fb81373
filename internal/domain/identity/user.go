package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserStatus represents the status of a staff account
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
	UserStatusLocked   UserStatus = "LOCKED"
)

const (
	bcryptCost = 12

	// MaxFailedAttempts locks the account on the fifth consecutive failure
	MaxFailedAttempts = 5
	// LockDuration is how long a locked account stays locked
	LockDuration = 15 * time.Minute
)

var (
	usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,49}$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

	ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")
	ErrAccountLocked      = shared.NewDomainError("ACCOUNT_LOCKED", "Account is locked, try again later")
	ErrAccountInactive    = shared.NewDomainError("ACCOUNT_INACTIVE", "Account is inactive")
)

// User is a staff account
type User struct {
	shared.TenantAggregateRoot
	Username       string
	Email          string
	Phone          string
	DisplayName    string
	PasswordHash   string
	BranchID       *uuid.UUID
	RoleIDs        []uuid.UUID
	Status         UserStatus
	FailedAttempts int
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
}

// NewUser creates an active user with a hashed password
func NewUser(tenantID uuid.UUID, username, password string) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if !usernamePattern.MatchString(username) {
		return nil, shared.NewDomainError("INVALID_USERNAME", "Username must be 3-50 characters of letters, digits, dot, dash or underscore")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Username:            username,
		PasswordHash:        hash,
		RoleIDs:             make([]uuid.UUID, 0),
		Status:              UserStatusActive,
	}
	u.AddDomainEvent(NewUserCreatedEvent(u))
	return u, nil
}

// SetProfile updates contact details
func (u *User) SetProfile(displayName, email, phone string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" && !emailPattern.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	if phone != "" {
		normalized, err := valueobject.NormalizePhone(phone)
		if err != nil {
			return shared.NewDomainError("INVALID_PHONE", "Invalid phone number")
		}
		phone = normalized
	}
	if len(displayName) > 200 {
		return shared.NewDomainError("INVALID_DISPLAY_NAME", "Display name cannot exceed 200 characters")
	}
	u.DisplayName = strings.TrimSpace(displayName)
	u.Email = email
	u.Phone = phone
	u.Touch()
	u.IncrementVersion()
	return nil
}

// VerifyPassword compares password with the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// ChangePassword requires the current password
func (u *User) ChangePassword(oldPassword, newPassword string) error {
	if !u.VerifyPassword(oldPassword) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	return u.ResetPassword(newPassword)
}

// ResetPassword sets a new password without checking the old one
func (u *User) ResetPassword(newPassword string) error {
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.Touch()
	u.IncrementVersion()
	u.AddDomainEvent(NewUserPasswordChangedEvent(u))
	return nil
}

// AssignRoles replaces the role set
func (u *User) AssignRoles(roleIDs []uuid.UUID) error {
	seen := make(map[uuid.UUID]bool, len(roleIDs))
	unique := make([]uuid.UUID, 0, len(roleIDs))
	for _, id := range roleIDs {
		if id == uuid.Nil {
			return shared.NewDomainError("INVALID_ROLE_ID", "Role ID cannot be empty")
		}
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	u.RoleIDs = unique
	u.Touch()
	u.IncrementVersion()
	u.AddDomainEvent(NewUserAccessChangedEvent(u))
	return nil
}

// AssignBranch sets the home branch; nil makes the user tenant-wide
func (u *User) AssignBranch(branchID *uuid.UUID) {
	if branchID != nil && *branchID == uuid.Nil {
		branchID = nil
	}
	u.BranchID = branchID
	u.Touch()
	u.IncrementVersion()
	u.AddDomainEvent(NewUserAccessChangedEvent(u))
}

// CanLogin checks status and lock expiry at now
func (u *User) CanLogin(now time.Time) error {
	switch u.Status {
	case UserStatusInactive:
		return ErrAccountInactive
	case UserStatusLocked:
		if u.LockedUntil != nil && now.After(*u.LockedUntil) {
			return nil
		}
		return ErrAccountLocked
	}
	return nil
}

// RecordLoginFailure counts a failed attempt and locks after MaxFailedAttempts.
// Returns true when this failure locked the account.
func (u *User) RecordLoginFailure(now time.Time) bool {
	if u.Status == UserStatusLocked && u.LockedUntil != nil && now.After(*u.LockedUntil) {
		u.Status = UserStatusActive
		u.FailedAttempts = 0
		u.LockedUntil = nil
	}
	u.FailedAttempts++
	u.Touch()
	u.IncrementVersion()
	if u.FailedAttempts < MaxFailedAttempts {
		return false
	}
	until := now.Add(LockDuration)
	u.Status = UserStatusLocked
	u.LockedUntil = &until
	u.AddDomainEvent(NewUserLockedEvent(u))
	return true
}

// RecordLoginSuccess clears failures and an expired lock
func (u *User) RecordLoginSuccess(now time.Time) {
	u.FailedAttempts = 0
	u.LockedUntil = nil
	if u.Status == UserStatusLocked {
		u.Status = UserStatusActive
	}
	u.LastLoginAt = &now
	u.Touch()
	u.IncrementVersion()
}

// Activate activates an inactive account
func (u *User) Activate() error {
	if u.Status == UserStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "User is already active")
	}
	u.Status = UserStatusActive
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.Touch()
	u.IncrementVersion()
	return nil
}

// Deactivate disables the account
func (u *User) Deactivate() error {
	if u.Status == UserStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "User is already inactive")
	}
	u.Status = UserStatusInactive
	u.Touch()
	u.IncrementVersion()
	u.AddDomainEvent(NewUserAccessChangedEvent(u))
	return nil
}

// Unlock clears a lock
func (u *User) Unlock() error {
	if u.Status != UserStatusLocked {
		return shared.NewDomainError("NOT_LOCKED", "User is not locked")
	}
	u.Status = UserStatusActive
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.Touch()
	u.IncrementVersion()
	return nil
}

// IsActive returns true for an active account
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

func hashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return "", shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	return string(hash), nil
}

package identity

import (
	"strings"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	// Wildcard matches any single segment; a bare "*" grant matches everything
	Wildcard = "*"
	// BranchOnlyQualifier restricts a grant to the holder's home branch
	BranchOnlyQualifier = "branch-only"

	permissionSeparator = ":"
)

// ErrInvalidPermission is returned for malformed permission tokens
var ErrInvalidPermission = shared.NewDomainError("INVALID_PERMISSION", "Invalid permission string")

// Grant is a parsed permission token such as "edit:stock:branch-only"
type Grant struct {
	Segments   []string
	BranchOnly bool
	raw        string
}

// ParsePermission parses and validates a permission token
func ParsePermission(s string) (Grant, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Grant{}, ErrInvalidPermission
	}
	if s == Wildcard {
		return Grant{Segments: []string{Wildcard}, raw: s}, nil
	}

	parts := strings.Split(s, permissionSeparator)
	g := Grant{raw: s}
	if parts[len(parts)-1] == BranchOnlyQualifier {
		if len(parts) < 3 {
			return Grant{}, shared.NewDomainError("INVALID_PERMISSION", "branch-only needs an action and a resource: "+s)
		}
		g.BranchOnly = true
		parts = parts[:len(parts)-1]
	}
	for _, p := range parts {
		if !validSegment(p) {
			return Grant{}, shared.NewDomainError("INVALID_PERMISSION", "Invalid permission segment in "+s)
		}
	}
	g.Segments = parts
	return g, nil
}

// MustParsePermission is ParsePermission for static tables; it panics on error
func MustParsePermission(s string) Grant {
	g, err := ParsePermission(s)
	if err != nil {
		panic(err)
	}
	return g
}

func validSegment(seg string) bool {
	if seg == "" {
		return false
	}
	if seg == Wildcard {
		return true
	}
	for _, r := range seg {
		if (r < 'a' || r > 'z') && r != '_' {
			return false
		}
	}
	return true
}

// String returns the original token
func (g Grant) String() string {
	if g.raw != "" {
		return g.raw
	}
	s := strings.Join(g.Segments, permissionSeparator)
	if g.BranchOnly {
		s += permissionSeparator + BranchOnlyQualifier
	}
	return s
}

// Matches reports whether the grant covers the required segments by prefix.
// "create:order" covers "create:order:refund" but not "create:orders".
func (g Grant) Matches(required []string) bool {
	if len(g.Segments) == 1 && g.Segments[0] == Wildcard && !g.BranchOnly {
		return len(required) > 0
	}
	if len(g.Segments) > len(required) {
		return false
	}
	for i, seg := range g.Segments {
		if seg == Wildcard {
			continue
		}
		if seg != required[i] {
			return false
		}
	}
	return true
}

// ValidatePermissions checks every token in perms
func ValidatePermissions(perms []string) error {
	for _, p := range perms {
		if _, err := ParsePermission(p); err != nil {
			return err
		}
	}
	return nil
}

// Principal is the evaluated identity of a request
type Principal struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	BranchID *uuid.UUID
	Grants   []Grant
}

// NewPrincipal builds a principal, skipping malformed tokens
func NewPrincipal(userID, tenantID uuid.UUID, branchID *uuid.UUID, permissions []string) *Principal {
	p := &Principal{
		UserID:   userID,
		TenantID: tenantID,
		BranchID: branchID,
		Grants:   make([]Grant, 0, len(permissions)),
	}
	for _, perm := range permissions {
		g, err := ParsePermission(perm)
		if err != nil {
			continue
		}
		p.Grants = append(p.Grants, g)
	}
	return p
}

// Can reports whether the principal holds required for the target branch.
// A nil branchID means a tenant-wide target, which branch-only grants never cover.
func (p *Principal) Can(required string, branchID *uuid.UUID) bool {
	if p == nil {
		return false
	}
	req := splitRequired(required)
	if req == nil {
		return false
	}
	for _, g := range p.Grants {
		if !g.Matches(req) {
			continue
		}
		if !g.BranchOnly {
			return true
		}
		if p.BranchID != nil && branchID != nil && *p.BranchID == *branchID {
			return true
		}
	}
	return false
}

// CanAny reports whether any of required is held tenant-wide
func (p *Principal) CanAny(required ...string) bool {
	for _, r := range required {
		if p.Can(r, nil) {
			return true
		}
	}
	return false
}

// CanInSomeBranch reports whether required is held either tenant-wide or
// for the principal's own branch.
func (p *Principal) CanInSomeBranch(required string) bool {
	all, branches := p.AllowedBranches(required)
	return all || len(branches) > 0
}

// AllowedBranches returns the branch scope of required: all=true for a
// tenant-wide grant, otherwise the home branch when a branch-only grant matches.
func (p *Principal) AllowedBranches(required string) (bool, []uuid.UUID) {
	if p.Can(required, nil) {
		return true, nil
	}
	if p.BranchID != nil && p.Can(required, p.BranchID) {
		return false, []uuid.UUID{*p.BranchID}
	}
	return false, nil
}

// Permissions returns the grant tokens
func (p *Principal) Permissions() []string {
	out := make([]string, len(p.Grants))
	for i, g := range p.Grants {
		out[i] = g.String()
	}
	return out
}

func splitRequired(required string) []string {
	required = strings.TrimSpace(required)
	if required == "" {
		return nil
	}
	parts := strings.Split(required, permissionSeparator)
	for _, p := range parts {
		if p == "" {
			return nil
		}
	}
	return parts
}

// Require returns ErrForbidden unless Can(required, branchID) holds
func (p *Principal) Require(required string, branchID *uuid.UUID) error {
	if !p.Can(required, branchID) {
		return shared.ErrForbidden
	}
	return nil
}

package branch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{2,8}$`)

// ErrHasOpenOrders blocks deactivation while gateway payments are pending
var ErrHasOpenOrders = shared.NewDomainError("BRANCH_HAS_OPEN_ORDERS", "Branch has orders awaiting payment")

// Branch is a physical shop location of a business
type Branch struct {
	shared.TenantAggregateRoot
	Code       string
	Name       string
	Address    string
	Phone      string
	IsActive   bool
	InvoiceSeq int64
}

// NewBranch creates an active branch
func NewBranch(tenantID uuid.UUID, code, name string) (*Branch, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(code) {
		return nil, shared.NewDomainError("INVALID_BRANCH_CODE", "Branch code must be 2-8 uppercase letters or digits")
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return nil, shared.NewDomainError("INVALID_BRANCH_NAME", "Branch name must be 1-100 characters")
	}

	b := &Branch{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		IsActive:            true,
	}
	b.AddDomainEvent(NewBranchCreatedEvent(b))
	return b, nil
}

// Update changes name and contact details
func (b *Branch) Update(name, address, phone string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return shared.NewDomainError("INVALID_BRANCH_NAME", "Branch name must be 1-100 characters")
	}
	if phone != "" {
		normalized, err := valueobject.NormalizePhone(phone)
		if err != nil {
			return shared.NewDomainError("INVALID_PHONE", "Invalid phone number")
		}
		phone = normalized
	}
	b.Name = name
	b.Address = strings.TrimSpace(address)
	b.Phone = phone
	b.Touch()
	b.IncrementVersion()
	return nil
}

// Activate re-opens the branch
func (b *Branch) Activate() error {
	if b.IsActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Branch is already active")
	}
	b.IsActive = true
	b.Touch()
	b.IncrementVersion()
	b.AddDomainEvent(NewBranchStatusChangedEvent(b))
	return nil
}

// Deactivate closes the branch; openOrders is the count of PENDING_PAYMENT orders
func (b *Branch) Deactivate(openOrders int64) error {
	if !b.IsActive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Branch is already inactive")
	}
	if openOrders > 0 {
		return ErrHasOpenOrders
	}
	b.IsActive = false
	b.Touch()
	b.IncrementVersion()
	b.AddDomainEvent(NewBranchStatusChangedEvent(b))
	return nil
}

// NextInvoiceSeq bumps the sequence. Callers hold a row lock.
func (b *Branch) NextInvoiceSeq() int64 {
	b.InvoiceSeq++
	b.Touch()
	return b.InvoiceSeq
}

// FormatInvoiceNumber renders {prefix}-{branchCode}-{seq:06d}
func FormatInvoiceNumber(prefix, branchCode string, seq int64) string {
	if prefix == "" {
		prefix = "INV"
	}
	return fmt.Sprintf("%s-%s-%06d", prefix, branchCode, seq)
}

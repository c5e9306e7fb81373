package customer

import (
	"regexp"
	"strings"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ErrCreditLimitExceeded is returned when a credit sale would pass the limit
var ErrCreditLimitExceeded = shared.NewDomainError("CREDIT_LIMIT_EXCEEDED", "Customer credit limit exceeded")

// Customer is a shopper known to the business
type Customer struct {
	shared.TenantAggregateRoot
	Name          string
	Phone         string
	Email         string
	Address       string
	Notes         string
	LoyaltyPoints int64
	CreditBalance decimal.Decimal
	TotalSpent    decimal.Decimal
	VisitCount    int
	IsActive      bool
}

// Details carries editable fields
type Details struct {
	Name    string
	Phone   string
	Email   string
	Address string
	Notes   string
}

// NewCustomer creates an active customer with a normalized phone
func NewCustomer(tenantID uuid.UUID, in Details) (*Customer, error) {
	c := &Customer{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		CreditBalance:       decimal.Zero,
		TotalSpent:          decimal.Zero,
		IsActive:            true,
	}
	if err := c.apply(in); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Customer) apply(in Details) error {
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 200 {
		return shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name must be 1-200 characters")
	}
	phone, err := valueobject.NormalizePhone(in.Phone)
	if err != nil {
		return shared.NewDomainError("INVALID_PHONE", "Invalid phone number")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email != "" && !emailPattern.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	c.Name = name
	c.Phone = phone
	c.Email = email
	c.Address = strings.TrimSpace(in.Address)
	c.Notes = in.Notes
	return nil
}

// Update applies edits
func (c *Customer) Update(in Details) error {
	if err := c.apply(in); err != nil {
		return err
	}
	c.Touch()
	c.IncrementVersion()
	return nil
}

// Deactivate hides the customer from lookups
func (c *Customer) Deactivate() error {
	if !c.IsActive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Customer is already inactive")
	}
	c.IsActive = false
	c.Touch()
	c.IncrementVersion()
	return nil
}

// RecordPurchase adds a completed sale and earns floor(total / pointsPer) points.
// A non-positive pointsPer disables loyalty.
func (c *Customer) RecordPurchase(grandTotal, pointsPer decimal.Decimal) int64 {
	c.TotalSpent = c.TotalSpent.Add(grandTotal)
	c.VisitCount++
	var earned int64
	if pointsPer.IsPositive() && grandTotal.IsPositive() {
		earned = grandTotal.Div(pointsPer).Floor().IntPart()
	}
	c.LoyaltyPoints += earned
	c.Touch()
	c.IncrementVersion()
	return earned
}

// ReversePurchase undoes RecordPurchase for a voided sale
func (c *Customer) ReversePurchase(grandTotal, pointsPer decimal.Decimal) {
	c.TotalSpent = c.TotalSpent.Sub(grandTotal)
	if c.TotalSpent.IsNegative() {
		c.TotalSpent = decimal.Zero
	}
	if c.VisitCount > 0 {
		c.VisitCount--
	}
	if pointsPer.IsPositive() && grandTotal.IsPositive() {
		c.LoyaltyPoints -= grandTotal.Div(pointsPer).Floor().IntPart()
		if c.LoyaltyPoints < 0 {
			c.LoyaltyPoints = 0
		}
	}
	c.Touch()
	c.IncrementVersion()
}

// AdjustCredit moves the credit balance by delta. Credit sales pass a
// negative delta; the balance may not fall below -creditLimit.
func (c *Customer) AdjustCredit(delta, creditLimit decimal.Decimal) error {
	if delta.IsZero() {
		return shared.NewDomainError("INVALID_AMOUNT", "Credit adjustment cannot be zero")
	}
	next := c.CreditBalance.Add(delta).Round(2)
	if delta.IsNegative() && next.LessThan(creditLimit.Neg()) {
		return ErrCreditLimitExceeded
	}
	c.CreditBalance = next
	c.Touch()
	c.IncrementVersion()
	return nil
}

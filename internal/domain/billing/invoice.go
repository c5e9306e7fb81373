package billing

import (
	"fmt"
	"time"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the payment state of a billing invoice
type InvoiceStatus string

const (
	InvoiceStatusOpen InvoiceStatus = "OPEN"
	InvoiceStatusPaid InvoiceStatus = "PAID"
	InvoiceStatusVoid InvoiceStatus = "VOID"
)

// InvoiceKind says why the invoice was issued
type InvoiceKind string

const (
	InvoiceKindRenewal    InvoiceKind = "RENEWAL"
	InvoiceKindPlanChange InvoiceKind = "PLAN_CHANGE"
)

// Invoice bills a tenant for its subscription
type Invoice struct {
	shared.TenantAggregateRoot
	Number        string
	Kind          InvoiceKind
	PlanCode      string
	Cycle         Cycle
	ExtraBranches int
	Total         decimal.Decimal
	Credit        decimal.Decimal
	Amount        decimal.Decimal
	Currency      string
	PeriodStart   time.Time
	PeriodEnd     time.Time
	Status        InvoiceStatus
	Gateway       string
	GatewayRef    string
	PaidAt        *time.Time
}

// NewInvoice issues an open invoice for a quote
func NewInvoice(tenantID uuid.UUID, kind InvoiceKind, q Quote, periodStart time.Time) *Invoice {
	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Kind:                kind,
		PlanCode:            q.PlanCode,
		Cycle:               q.Cycle,
		ExtraBranches:       q.ExtraBranches,
		Total:               q.Total,
		Credit:              q.Credit,
		Amount:              q.Due,
		Currency:            q.Currency,
		PeriodStart:         periodStart,
		PeriodEnd:           periodStart.AddDate(0, q.Cycle.Months(), 0),
		Status:              InvoiceStatusOpen,
	}
	inv.Number = fmt.Sprintf("SUB-%s-%s", periodStart.Format("200601"), inv.ID.String()[:8])
	return inv
}

// MarkPaid settles the invoice; paying twice is a no-op
func (i *Invoice) MarkPaid(gateway, ref string, now time.Time) (bool, error) {
	switch i.Status {
	case InvoiceStatusPaid:
		return false, nil
	case InvoiceStatusVoid:
		return false, shared.NewDomainError("INVALID_STATE", "Void invoices cannot be paid")
	}
	i.Status = InvoiceStatusPaid
	i.Gateway = gateway
	i.GatewayRef = ref
	i.PaidAt = &now
	i.Touch()
	i.IncrementVersion()
	return true, nil
}

// Void cancels an open invoice
func (i *Invoice) Void() error {
	if i.Status != InvoiceStatusOpen {
		return shared.NewDomainError("INVALID_STATE", "Only open invoices can be voided")
	}
	i.Status = InvoiceStatusVoid
	i.Touch()
	i.IncrementVersion()
	return nil
}

// IsFree reports whether nothing is due (fully covered by credit)
func (i *Invoice) IsFree() bool {
	return !i.Amount.IsPositive()
}

package models

import (
	"time"

	"github.com/cloudpos/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// SubscriptionModel is the persistence model for a tenant subscription
type SubscriptionModel struct {
	TenantAggregateModel
	PlanCode           string                     `gorm:"type:varchar(30);not null"`
	Cycle              billing.Cycle              `gorm:"type:varchar(10);not null"`
	Status             billing.SubscriptionStatus `gorm:"type:varchar(20);not null;index"`
	CurrentPeriodStart time.Time                  `gorm:"not null"`
	CurrentPeriodEnd   time.Time                  `gorm:"not null;index"`
	TrialEndsAt        *time.Time
	ExtraBranches      int             `gorm:"not null;default:0"`
	CancelAtPeriodEnd  bool            `gorm:"not null;default:false"`
	LastPaidAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// ToDomain converts the persistence model to a domain Subscription
func (m *SubscriptionModel) ToDomain() *billing.Subscription {
	return &billing.Subscription{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		PlanCode:            m.PlanCode,
		Cycle:               m.Cycle,
		Status:              m.Status,
		CurrentPeriodStart:  m.CurrentPeriodStart,
		CurrentPeriodEnd:    m.CurrentPeriodEnd,
		TrialEndsAt:         m.TrialEndsAt,
		ExtraBranches:       m.ExtraBranches,
		CancelAtPeriodEnd:   m.CancelAtPeriodEnd,
		LastPaidAmount:      m.LastPaidAmount,
	}
}

// SubscriptionModelFromDomain creates a new persistence model from a domain Subscription
func SubscriptionModelFromDomain(s *billing.Subscription) *SubscriptionModel {
	m := &SubscriptionModel{
		PlanCode:           s.PlanCode,
		Cycle:              s.Cycle,
		Status:             s.Status,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		TrialEndsAt:        s.TrialEndsAt,
		ExtraBranches:      s.ExtraBranches,
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		LastPaidAmount:     s.LastPaidAmount,
	}
	m.FromDomainTenantAggregateRoot(s.TenantAggregateRoot)
	return m
}

// InvoiceModel is the persistence model for a billing invoice
type InvoiceModel struct {
	TenantAggregateModel
	Number        string                `gorm:"type:varchar(30);not null;uniqueIndex"`
	Kind          billing.InvoiceKind   `gorm:"type:varchar(20);not null"`
	PlanCode      string                `gorm:"type:varchar(30);not null"`
	Cycle         billing.Cycle         `gorm:"type:varchar(10);not null"`
	ExtraBranches int                   `gorm:"not null;default:0"`
	Total         decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Credit        decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	Amount        decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Currency      string                `gorm:"type:varchar(3);not null"`
	PeriodStart   time.Time             `gorm:"not null"`
	PeriodEnd     time.Time             `gorm:"not null"`
	Status        billing.InvoiceStatus `gorm:"type:varchar(10);not null;index"`
	Gateway       string                `gorm:"type:varchar(20)"`
	GatewayRef    string                `gorm:"type:varchar(100)"`
	PaidAt        *time.Time
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "billing_invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	return &billing.Invoice{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Number:              m.Number,
		Kind:                m.Kind,
		PlanCode:            m.PlanCode,
		Cycle:               m.Cycle,
		ExtraBranches:       m.ExtraBranches,
		Total:               m.Total,
		Credit:              m.Credit,
		Amount:              m.Amount,
		Currency:            m.Currency,
		PeriodStart:         m.PeriodStart,
		PeriodEnd:           m.PeriodEnd,
		Status:              m.Status,
		Gateway:             m.Gateway,
		GatewayRef:          m.GatewayRef,
		PaidAt:              m.PaidAt,
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		Number:        inv.Number,
		Kind:          inv.Kind,
		PlanCode:      inv.PlanCode,
		Cycle:         inv.Cycle,
		ExtraBranches: inv.ExtraBranches,
		Total:         inv.Total,
		Credit:        inv.Credit,
		Amount:        inv.Amount,
		Currency:      inv.Currency,
		PeriodStart:   inv.PeriodStart,
		PeriodEnd:     inv.PeriodEnd,
		Status:        inv.Status,
		Gateway:       inv.Gateway,
		GatewayRef:    inv.GatewayRef,
		PaidAt:        inv.PaidAt,
	}
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	return m
}

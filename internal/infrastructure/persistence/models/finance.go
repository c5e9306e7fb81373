package models

import (
	"time"

	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FinanceEntryModel stores expenses and incomes in one table keyed by kind
type FinanceEntryModel struct {
	BranchAggregateModel
	Kind          finance.EntryKind   `gorm:"type:varchar(10);not null;index"`
	Category      string              `gorm:"type:varchar(100);not null"`
	Amount        decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	Date          time.Time           `gorm:"type:date;not null;index"`
	PaymentMethod string              `gorm:"type:varchar(20)"`
	Reference     string              `gorm:"type:varchar(100)"`
	Note          string              `gorm:"type:text"`
	Status        finance.EntryStatus `gorm:"type:varchar(20);not null;default:'RECORDED'"`
	CancelReason  string              `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (FinanceEntryModel) TableName() string {
	return "finance_entries"
}

// ToDomain converts the persistence model to a domain Entry
func (m *FinanceEntryModel) ToDomain() *finance.Entry {
	return &finance.Entry{
		BranchAggregateRoot: m.ToBranchAggregateRoot(),
		Kind:                m.Kind,
		Category:            m.Category,
		Amount:              m.Amount,
		Date:                m.Date,
		PaymentMethod:       m.PaymentMethod,
		Reference:           m.Reference,
		Note:                m.Note,
		Status:              m.Status,
		CancelReason:        m.CancelReason,
	}
}

// FromDomain populates the persistence model from a domain Entry
func (m *FinanceEntryModel) FromDomain(e *finance.Entry) {
	m.FromDomainBranchAggregateRoot(e.BranchAggregateRoot)
	m.Kind = e.Kind
	m.Category = e.Category
	m.Amount = e.Amount
	m.Date = e.Date
	m.PaymentMethod = e.PaymentMethod
	m.Reference = e.Reference
	m.Note = e.Note
	m.Status = e.Status
	m.CancelReason = e.CancelReason
}

// FinanceEntryModelFromDomain creates a new persistence model from a domain Entry
func FinanceEntryModelFromDomain(e *finance.Entry) *FinanceEntryModel {
	m := &FinanceEntryModel{}
	m.FromDomain(e)
	return m
}

// PaymentTransactionModel is the persistence model for a gateway checkout attempt
type PaymentTransactionModel struct {
	TenantAggregateModel
	Purpose     finance.PaymentPurpose       `gorm:"type:varchar(20);not null"`
	ReferenceID uuid.UUID                    `gorm:"type:uuid;not null;index"`
	OrderNumber string                       `gorm:"type:varchar(64);not null"`
	Gateway     finance.PaymentGatewayType   `gorm:"type:varchar(20);not null"`
	Amount      decimal.Decimal              `gorm:"type:decimal(18,2);not null"`
	Currency    string                       `gorm:"type:varchar(3);not null"`
	Status      finance.GatewayPaymentStatus `gorm:"type:varchar(20);not null"`
	GatewayRef  string                       `gorm:"type:varchar(100)"`
	RawCallback string                       `gorm:"type:text"`
	PaidAt      *time.Time
}

// TableName returns the table name for GORM
func (PaymentTransactionModel) TableName() string {
	return "payment_transactions"
}

// ToDomain converts the persistence model to a domain PaymentTransaction
func (m *PaymentTransactionModel) ToDomain() *finance.PaymentTransaction {
	return &finance.PaymentTransaction{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Purpose:             m.Purpose,
		ReferenceID:         m.ReferenceID,
		OrderNumber:         m.OrderNumber,
		Gateway:             m.Gateway,
		Amount:              m.Amount,
		Currency:            m.Currency,
		Status:              m.Status,
		GatewayRef:          m.GatewayRef,
		RawCallback:         m.RawCallback,
		PaidAt:              m.PaidAt,
	}
}

// FromDomain populates the persistence model from a domain PaymentTransaction
func (m *PaymentTransactionModel) FromDomain(t *finance.PaymentTransaction) {
	m.FromDomainTenantAggregateRoot(t.TenantAggregateRoot)
	m.Purpose = t.Purpose
	m.ReferenceID = t.ReferenceID
	m.OrderNumber = t.OrderNumber
	m.Gateway = t.Gateway
	m.Amount = t.Amount
	m.Currency = t.Currency
	m.Status = t.Status
	m.GatewayRef = t.GatewayRef
	m.RawCallback = t.RawCallback
	m.PaidAt = t.PaidAt
}

// PaymentTransactionModelFromDomain creates a new persistence model from a domain PaymentTransaction
func PaymentTransactionModelFromDomain(t *finance.PaymentTransaction) *PaymentTransactionModel {
	m := &PaymentTransactionModel{}
	m.FromDomain(t)
	return m
}

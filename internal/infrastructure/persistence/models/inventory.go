package models

import (
	"time"

	"github.com/cloudpos/backend/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockItemModel is the on-hand row of one variant in one branch
type StockItemModel struct {
	BranchAggregateModel
	VariantID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity     decimal.Decimal `gorm:"type:decimal(18,3);not null;default:0"`
	ReorderLevel decimal.Decimal `gorm:"type:decimal(18,3);not null;default:0"`
}

// TableName returns the table name for GORM
func (StockItemModel) TableName() string {
	return "stock_items"
}

// ToDomain converts the persistence model to a domain StockItem
func (m *StockItemModel) ToDomain() *inventory.StockItem {
	return &inventory.StockItem{
		BranchAggregateRoot: m.ToBranchAggregateRoot(),
		VariantID:           m.VariantID,
		Quantity:            m.Quantity,
		ReorderLevel:        m.ReorderLevel,
	}
}

// FromDomain populates the persistence model from a domain StockItem
func (m *StockItemModel) FromDomain(s *inventory.StockItem) {
	m.FromDomainBranchAggregateRoot(s.BranchAggregateRoot)
	m.VariantID = s.VariantID
	m.Quantity = s.Quantity
	m.ReorderLevel = s.ReorderLevel
}

// StockItemModelFromDomain creates a new persistence model from a domain StockItem
func StockItemModelFromDomain(s *inventory.StockItem) *StockItemModel {
	m := &StockItemModel{}
	m.FromDomain(s)
	return m
}

// StockMovementModel is one append-only line of the stock ledger
type StockMovementModel struct {
	ID           uuid.UUID              `gorm:"type:uuid;primaryKey"`
	TenantID     uuid.UUID              `gorm:"type:uuid;not null;index"`
	BranchID     uuid.UUID              `gorm:"type:uuid;not null;index"`
	VariantID    uuid.UUID              `gorm:"type:uuid;not null;index"`
	StockItemID  uuid.UUID              `gorm:"type:uuid;not null"`
	Type         inventory.MovementType `gorm:"type:varchar(20);not null"`
	Quantity     decimal.Decimal        `gorm:"type:decimal(18,3);not null"`
	BalanceAfter decimal.Decimal        `gorm:"type:decimal(18,3);not null"`
	Reference    string                 `gorm:"type:varchar(100);index"`
	Reason       string                 `gorm:"type:text"`
	CreatedBy    *uuid.UUID             `gorm:"type:uuid"`
	CreatedAt    time.Time              `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ToDomain converts the persistence model to a domain StockMovement
func (m *StockMovementModel) ToDomain() *inventory.StockMovement {
	return &inventory.StockMovement{
		ID:           m.ID,
		TenantID:     m.TenantID,
		BranchID:     m.BranchID,
		VariantID:    m.VariantID,
		StockItemID:  m.StockItemID,
		Type:         m.Type,
		Quantity:     m.Quantity,
		BalanceAfter: m.BalanceAfter,
		Reference:    m.Reference,
		Reason:       m.Reason,
		CreatedBy:    m.CreatedBy,
		CreatedAt:    m.CreatedAt,
	}
}

// StockMovementModelFromDomain creates a new persistence model from a domain StockMovement
func StockMovementModelFromDomain(s *inventory.StockMovement) *StockMovementModel {
	return &StockMovementModel{
		ID:           s.ID,
		TenantID:     s.TenantID,
		BranchID:     s.BranchID,
		VariantID:    s.VariantID,
		StockItemID:  s.StockItemID,
		Type:         s.Type,
		Quantity:     s.Quantity,
		BalanceAfter: s.BalanceAfter,
		Reference:    s.Reference,
		Reason:       s.Reason,
		CreatedBy:    s.CreatedBy,
		CreatedAt:    s.CreatedAt,
	}
}

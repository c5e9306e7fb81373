package inventory

import (
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const AggregateTypeStockItem = "StockItem"

const EventTypeStockLow = "StockLow"

// StockLowEvent fires when an item drops to its reorder level
type StockLowEvent struct {
	shared.BaseDomainEvent
	BranchID     uuid.UUID       `json:"branch_id"`
	VariantID    uuid.UUID       `json:"variant_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
}

// NewStockLowEvent creates a new StockLowEvent
func NewStockLowEvent(s *StockItem) *StockLowEvent {
	return &StockLowEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockLow, AggregateTypeStockItem, s.ID, s.TenantID),
		BranchID:        s.BranchID,
		VariantID:       s.VariantID,
		Quantity:        s.Quantity,
		ReorderLevel:    s.ReorderLevel,
	}
}

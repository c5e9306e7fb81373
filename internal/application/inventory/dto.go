package inventory

import (
	"time"

	"github.com/cloudpos/backend/internal/domain/catalog"
	"github.com/cloudpos/backend/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdjustStockRequest is a manual stock correction
type AdjustStockRequest struct {
	BranchID  uuid.UUID       `json:"branch_id" binding:"required"`
	VariantID uuid.UUID       `json:"variant_id" binding:"required"`
	Delta     decimal.Decimal `json:"delta"`
	Reason    string          `json:"reason" binding:"required,max=200"`
}

// TransferStockRequest moves stock between two branches
type TransferStockRequest struct {
	FromBranchID uuid.UUID       `json:"from_branch_id" binding:"required"`
	ToBranchID   uuid.UUID       `json:"to_branch_id" binding:"required,nefield=FromBranchID"`
	VariantID    uuid.UUID       `json:"variant_id" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
	Note         string          `json:"note" binding:"max=200"`
}

// SetReorderLevelRequest sets the low-stock threshold of a stock row
type SetReorderLevelRequest struct {
	BranchID     uuid.UUID       `json:"branch_id" binding:"required"`
	VariantID    uuid.UUID       `json:"variant_id" binding:"required"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
}

// StockListFilter holds stock list query parameters
type StockListFilter struct {
	BranchID *uuid.UUID `form:"branch_id"`
	LowOnly  bool       `form:"low_only"`
	Search   string     `form:"search"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string     `form:"order_by" binding:"omitempty,oneof=quantity reorder_level updated_at"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// MovementListFilter holds movement log query parameters
type MovementListFilter struct {
	BranchID  *uuid.UUID `form:"branch_id"`
	VariantID *uuid.UUID `form:"variant_id"`
	Type      string     `form:"type" binding:"omitempty,oneof=SALE VOID_RESTORE ADJUST_IN ADJUST_OUT TRANSFER_IN TRANSFER_OUT INITIAL"`
	Reference string     `form:"reference"`
	From      *time.Time `form:"from" time_format:"2006-01-02"`
	To        *time.Time `form:"to" time_format:"2006-01-02"`
	Page      int        `form:"page" binding:"omitempty,min=1"`
	PageSize  int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// StockItemResponse is a stock row joined with its variant
type StockItemResponse struct {
	ID           uuid.UUID       `json:"id"`
	BranchID     uuid.UUID       `json:"branch_id"`
	VariantID    uuid.UUID       `json:"variant_id"`
	SKU          string          `json:"sku,omitempty"`
	DisplayName  string          `json:"display_name,omitempty"`
	Unit         string          `json:"unit,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	IsLow        bool            `json:"is_low"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Version      int             `json:"version"`
}

// MovementResponse is a stock ledger line
type MovementResponse struct {
	ID           uuid.UUID       `json:"id"`
	BranchID     uuid.UUID       `json:"branch_id"`
	VariantID    uuid.UUID       `json:"variant_id"`
	Type         string          `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Reference    string          `json:"reference,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	CreatedBy    *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TransferResponse reports both sides of a transfer
type TransferResponse struct {
	TransferID uuid.UUID         `json:"transfer_id"`
	From       StockItemResponse `json:"from"`
	To         StockItemResponse `json:"to"`
}

// ToStockItemResponse converts a stock item; view may be nil when the
// variant could not be loaded
func ToStockItemResponse(item *inventory.StockItem, view *catalog.VariantView) StockItemResponse {
	resp := StockItemResponse{
		ID:           item.ID,
		BranchID:     item.BranchID,
		VariantID:    item.VariantID,
		Quantity:     item.Quantity,
		ReorderLevel: item.ReorderLevel,
		IsLow:        item.IsLow(),
		UpdatedAt:    item.UpdatedAt,
		Version:      item.Version,
	}
	if view != nil {
		resp.SKU = view.SKU
		resp.DisplayName = catalog.DisplayName(view.ProductName, view.VariationName)
		resp.Unit = view.Unit
	}
	return resp
}

// ToMovementResponse converts a ledger line
func ToMovementResponse(m *inventory.StockMovement) MovementResponse {
	return MovementResponse{
		ID:           m.ID,
		BranchID:     m.BranchID,
		VariantID:    m.VariantID,
		Type:         string(m.Type),
		Quantity:     m.Quantity,
		BalanceAfter: m.BalanceAfter,
		Reference:    m.Reference,
		Reason:       m.Reason,
		CreatedBy:    m.CreatedBy,
		CreatedAt:    m.CreatedAt,
	}
}

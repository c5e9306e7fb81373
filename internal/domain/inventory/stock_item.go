package inventory

import (
	"time"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType classifies a stock change
type MovementType string

const (
	MovementSale        MovementType = "SALE"
	MovementVoidRestore MovementType = "VOID_RESTORE"
	MovementAdjustIn    MovementType = "ADJUST_IN"
	MovementAdjustOut   MovementType = "ADJUST_OUT"
	MovementTransferIn  MovementType = "TRANSFER_IN"
	MovementTransferOut MovementType = "TRANSFER_OUT"
	MovementInitial     MovementType = "INITIAL"
)

// QuantityPlaces is the precision of stock quantities
const QuantityPlaces = 3

// StockItem is the on-hand quantity of one variant in one branch
type StockItem struct {
	shared.BranchAggregateRoot
	VariantID    uuid.UUID
	Quantity     decimal.Decimal
	ReorderLevel decimal.Decimal
}

// StockMovement is an append-only record of a quantity change
type StockMovement struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	BranchID     uuid.UUID
	VariantID    uuid.UUID
	StockItemID  uuid.UUID
	Type         MovementType
	Quantity     decimal.Decimal
	BalanceAfter decimal.Decimal
	Reference    string
	Reason       string
	CreatedBy    *uuid.UUID
	CreatedAt    time.Time
}

// NewStockItem creates an empty stock row
func NewStockItem(tenantID, branchID, variantID uuid.UUID) (*StockItem, error) {
	if branchID == uuid.Nil || variantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STOCK_KEY", "Branch and variant are required")
	}
	return &StockItem{
		BranchAggregateRoot: shared.NewBranchAggregateRoot(tenantID, branchID),
		VariantID:           variantID,
		Quantity:            decimal.Zero,
		ReorderLevel:        decimal.Zero,
	}, nil
}

// IsLow reports whether quantity is at or below the reorder level
func (s *StockItem) IsLow() bool {
	return s.ReorderLevel.IsPositive() && s.Quantity.LessThanOrEqual(s.ReorderLevel)
}

// Change applies a signed delta. A negative result is rejected unless
// allowNegative. Emits StockLow when the item crosses its reorder level.
func (s *StockItem) Change(delta decimal.Decimal, kind MovementType, ref, reason string, actor *uuid.UUID, allowNegative bool) (*StockMovement, error) {
	delta = delta.Round(QuantityPlaces)
	if delta.IsZero() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity change cannot be zero")
	}
	next := s.Quantity.Add(delta)
	if next.IsNegative() && !allowNegative {
		return nil, shared.ErrInsufficientStock
	}
	wasLow := s.IsLow()
	s.Quantity = next
	s.Touch()
	s.IncrementVersion()

	if !wasLow && s.IsLow() {
		s.AddDomainEvent(NewStockLowEvent(s))
	}

	return &StockMovement{
		ID:           uuid.New(),
		TenantID:     s.TenantID,
		BranchID:     s.BranchID,
		VariantID:    s.VariantID,
		StockItemID:  s.ID,
		Type:         kind,
		Quantity:     delta,
		BalanceAfter: next,
		Reference:    ref,
		Reason:       reason,
		CreatedBy:    actor,
		CreatedAt:    time.Now(),
	}, nil
}

// Adjust is a manual correction; the movement type follows the sign
func (s *StockItem) Adjust(delta decimal.Decimal, reason string, actor *uuid.UUID) (*StockMovement, error) {
	if reason == "" {
		return nil, shared.NewDomainError("REASON_REQUIRED", "Adjustment reason is required")
	}
	kind := MovementAdjustIn
	if delta.IsNegative() {
		kind = MovementAdjustOut
	}
	return s.Change(delta, kind, "", reason, actor, false)
}

// SetReorderLevel sets the low-stock threshold
func (s *StockItem) SetReorderLevel(level decimal.Decimal) error {
	if level.IsNegative() {
		return shared.NewDomainError("INVALID_REORDER_LEVEL", "Reorder level cannot be negative")
	}
	s.ReorderLevel = level.Round(QuantityPlaces)
	s.Touch()
	s.IncrementVersion()
	return nil
}

// Line is a (variant, quantity) pair for bulk deduct/restore
type Line struct {
	VariantID uuid.UUID
	Quantity  decimal.Decimal
}

// MergeLines sums quantities per variant, keeping first-seen order
func MergeLines(lines []Line) []Line {
	index := make(map[uuid.UUID]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if i, ok := index[l.VariantID]; ok {
			out[i].Quantity = out[i].Quantity.Add(l.Quantity)
			continue
		}
		index[l.VariantID] = len(out)
		out = append(out, l)
	}
	return out
}

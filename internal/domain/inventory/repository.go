package inventory

import (
	"context"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// StockFilter narrows stock lists
type StockFilter struct {
	shared.Filter
	LowOnly bool
}

// MovementFilter narrows the movement log
type MovementFilter struct {
	shared.Filter
	VariantID *uuid.UUID
	Type      MovementType
}

// Repository persists stock items and their movements
type Repository interface {
	// Get returns the item, or ErrNotFound
	Get(ctx context.Context, tenantID, branchID, variantID uuid.UUID) (*StockItem, error)
	// GetForUpdate locks the row (creating it when missing) for the rest of the transaction
	GetForUpdate(ctx context.Context, tenantID, branchID, variantID uuid.UUID) (*StockItem, error)
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*StockItem, error)
	// Save writes the item with an optimistic version check
	Save(ctx context.Context, item *StockItem) error
	SaveMovement(ctx context.Context, m *StockMovement) error
	List(ctx context.Context, tenantID uuid.UUID, filter StockFilter) ([]*StockItem, int64, error)
	ListMovements(ctx context.Context, tenantID uuid.UUID, filter MovementFilter) ([]*StockMovement, int64, error)
}

package sales

import (
	"context"
	"time"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderFilter narrows order lists
type OrderFilter struct {
	shared.Filter
	Status     OrderStatus
	CashierID  *uuid.UUID
	CustomerID *uuid.UUID
}

// Repository persists orders with lines and payments
type Repository interface {
	Save(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Order, error)
	FindByClientRef(ctx context.Context, tenantID uuid.UUID, clientRef string) (*Order, error)
	FindByInvoiceNumber(ctx context.Context, tenantID uuid.UUID, number string) (*Order, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter OrderFilter) ([]*Order, int64, error)
	CountPending(ctx context.Context, tenantID, branchID uuid.UUID) (int64, error)
	// FindStalePending returns PENDING_PAYMENT orders created before cutoff, across tenants
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*Order, error)
}

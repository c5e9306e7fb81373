package customer

import (
	"context"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository persists customers
type Repository interface {
	Save(ctx context.Context, c *Customer) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Customer, error)
	// FindByIDForUpdate locks the row for the surrounding transaction
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Customer, error)
	FindByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*Customer, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*Customer, int64, error)
	ExistsByPhone(ctx context.Context, tenantID uuid.UUID, phone string, exclude uuid.UUID) (bool, error)
}

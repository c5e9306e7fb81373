package branch

import (
	"context"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository persists branches
type Repository interface {
	Save(ctx context.Context, b *Branch) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Branch, error)
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Branch, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*Branch, int64, error)
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)
	Count(ctx context.Context, tenantID uuid.UUID) (int64, error)
	// NextInvoiceNumber increments the branch sequence under SELECT ... FOR UPDATE
	// and returns the new value together with the branch code.
	NextInvoiceNumber(ctx context.Context, tenantID, id uuid.UUID) (code string, seq int64, err error)
}

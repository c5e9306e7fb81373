package business

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists BusinessMeta rows, one per tenant
type Repository interface {
	Save(ctx context.Context, m *Meta) error
	Get(ctx context.Context, tenantID uuid.UUID) (*Meta, error)
}

package billing

import (
	"context"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SubscriptionRepository persists subscriptions, one per tenant
type SubscriptionRepository interface {
	Save(ctx context.Context, s *Subscription) error
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)
	// FindSweepable returns subscriptions not in a terminal state, across tenants
	FindSweepable(ctx context.Context, afterID uuid.UUID, limit int) ([]*Subscription, error)
}

// InvoiceRepository persists billing invoices
type InvoiceRepository interface {
	Save(ctx context.Context, inv *Invoice) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*Invoice, int64, error)
	FindOpen(ctx context.Context, tenantID uuid.UUID) ([]*Invoice, error)
}

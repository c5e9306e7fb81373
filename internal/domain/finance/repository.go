package finance

import (
	"context"
	"time"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// EntryFilter narrows expense/income lists
type EntryFilter struct {
	shared.Filter
	Kind     EntryKind
	Category string
	Status   EntryStatus
}

// EntryRepository persists expenses and incomes
type EntryRepository interface {
	Save(ctx context.Context, e *Entry) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Entry, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter EntryFilter) ([]*Entry, int64, error)
	// SumByCategory groups recorded entries in [from, to) by kind and category
	SumByCategory(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, from, to time.Time) ([]CategoryAmount, error)
}

// PaymentTransactionRepository persists gateway transactions
type PaymentTransactionRepository interface {
	Save(ctx context.Context, tx *PaymentTransaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentTransaction, error)
	// FindByOrderNumber looks up by the merchant order id sent to the gateway
	FindByOrderNumber(ctx context.Context, gateway PaymentGatewayType, orderNumber string) (*PaymentTransaction, error)
	FindByReference(ctx context.Context, tenantID uuid.UUID, purpose PaymentPurpose, referenceID uuid.UUID) ([]*PaymentTransaction, error)
}

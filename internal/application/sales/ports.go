package sales

import (
	"context"

	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/cloudpos/backend/internal/domain/inventory"
	"github.com/cloudpos/backend/internal/domain/sales"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptRenderer renders the thermal receipt HTML
type ReceiptRenderer interface {
	RenderReceipt(r *sales.Receipt) (string, error)
}

// StockKeeper moves stock for sales; both run inside the order transaction
type StockKeeper interface {
	Deduct(ctx context.Context, tenantID, branchID uuid.UUID, lines []inventory.Line, ref string, actor *uuid.UUID) ([]shared.DomainEvent, error)
	Restore(ctx context.Context, tenantID, branchID uuid.UUID, lines []inventory.Line, ref, reason string, actor *uuid.UUID) ([]shared.DomainEvent, error)
}

// CreditLedger charges and refunds customer store credit
type CreditLedger interface {
	ChargeCredit(ctx context.Context, tenantID, customerID uuid.UUID, amount decimal.Decimal) error
	RefundCredit(ctx context.Context, tenantID, customerID uuid.UUID, amount decimal.Decimal) error
}

// PaymentStarter opens a gateway checkout
type PaymentStarter interface {
	StartPayment(ctx context.Context, intent finance.PaymentIntent) (*finance.PaymentTransaction, *finance.CreatePaymentResponse, error)
}

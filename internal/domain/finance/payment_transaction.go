package finance

import (
	"strings"
	"time"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentPurpose says what a gateway payment settles
type PaymentPurpose string

const (
	PaymentPurposeOrder        PaymentPurpose = "ORDER"
	PaymentPurposeSubscription PaymentPurpose = "SUBSCRIPTION"
)

// ErrNothingToSettle is returned when a paid transaction's order or invoice
// can no longer take the payment, such as an order that expired first. The
// transaction is still recorded as paid so it can be refunded by hand.
var ErrNothingToSettle = shared.NewDomainError("NOTHING_TO_SETTLE", "Payment reference is no longer payable")

// PaymentTransaction tracks one gateway checkout attempt
type PaymentTransaction struct {
	shared.TenantAggregateRoot
	Purpose     PaymentPurpose
	ReferenceID uuid.UUID
	OrderNumber string
	Gateway     PaymentGatewayType
	Amount      decimal.Decimal
	Currency    string
	Status      GatewayPaymentStatus
	GatewayRef  string
	RawCallback string
	PaidAt      *time.Time
}

// NewPaymentTransaction opens a pending transaction. The merchant order
// number is the business reference plus a short suffix so retries stay unique.
func NewPaymentTransaction(tenantID uuid.UUID, purpose PaymentPurpose, referenceID uuid.UUID, reference string, gateway PaymentGatewayType, amount decimal.Decimal, currency string) (*PaymentTransaction, error) {
	if purpose != PaymentPurposeOrder && purpose != PaymentPurposeSubscription {
		return nil, shared.NewDomainError("INVALID_PAYMENT_PURPOSE", "Unknown payment purpose")
	}
	if !gateway.IsValid() {
		return nil, ErrPaymentInvalidGatewayType
	}
	if !amount.IsPositive() {
		return nil, ErrPaymentInvalidAmount
	}
	tx := &PaymentTransaction{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Purpose:             purpose,
		ReferenceID:         referenceID,
		Gateway:             gateway,
		Amount:              amount.Round(2),
		Currency:            strings.ToUpper(currency),
		Status:              GatewayPaymentStatusPending,
	}
	tx.OrderNumber = reference + "-" + strings.ToUpper(tx.ID.String()[:8])
	return tx, nil
}

// Matches reports whether a callback amount and currency agree with the transaction
func (t *PaymentTransaction) Matches(amount decimal.Decimal, currency string) bool {
	return t.Amount.Equal(amount.Round(2)) && strings.EqualFold(t.Currency, currency)
}

// Apply records a verified callback. Returns false when the transaction was
// already final, so the caller can skip side effects.
func (t *PaymentTransaction) Apply(cb *PaymentCallback) (bool, error) {
	if t.Status.IsFinal() {
		return false, nil
	}
	if cb.Status == GatewayPaymentStatusPending {
		t.RawCallback = cb.RawPayload
		return false, nil
	}
	if cb.Status.IsSuccess() && !t.Matches(cb.Amount, cb.Currency) {
		return false, ErrPaymentAmountMismatch
	}
	t.Status = cb.Status
	t.GatewayRef = cb.GatewayTransactionID
	t.RawCallback = cb.RawPayload
	if cb.Status.IsSuccess() {
		now := time.Now()
		t.PaidAt = &now
	}
	t.Touch()
	t.IncrementVersion()
	return true, nil
}

// PaymentIntent describes a gateway checkout to open for an order or a
// subscription invoice
type PaymentIntent struct {
	TenantID    uuid.UUID
	Purpose     PaymentPurpose
	ReferenceID uuid.UUID
	Reference   string
	Gateway     PaymentGatewayType
	Amount      decimal.Decimal
	Currency    string
	Items       string
	Customer    PaymentCustomer
}

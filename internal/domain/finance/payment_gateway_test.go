package finance

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCreateRequest() *CreatePaymentRequest {
	return &CreatePaymentRequest{
		TenantID:    uuid.New(),
		ReferenceID: uuid.New(),
		OrderNumber: "INV-COL-000001-ABCD1234",
		Amount:      decimal.RequireFromString("1500.00"),
		Currency:    "LKR",
		NotifyURL:   "https://api.example.lk/api/v1/payment/callback/payhere",
		ReturnURL:   "https://pos.example.lk/paid",
	}
}

func TestCreatePaymentRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *CreatePaymentRequest)
		wantErr error
	}{
		{"valid", func(r *CreatePaymentRequest) {}, nil},
		{"no tenant", func(r *CreatePaymentRequest) { r.TenantID = uuid.Nil }, ErrPaymentInvalidTenantID},
		{"no reference", func(r *CreatePaymentRequest) { r.ReferenceID = uuid.Nil }, ErrPaymentInvalidReference},
		{"no order number", func(r *CreatePaymentRequest) { r.OrderNumber = "" }, ErrPaymentInvalidOrderNumber},
		{"zero amount", func(r *CreatePaymentRequest) { r.Amount = decimal.Zero }, ErrPaymentInvalidAmount},
		{"bad currency", func(r *CreatePaymentRequest) { r.Currency = "RUPEE" }, ErrPaymentInvalidCurrency},
		{"no notify", func(r *CreatePaymentRequest) { r.NotifyURL = "" }, ErrPaymentInvalidNotifyURL},
		{"no return", func(r *CreatePaymentRequest) { r.ReturnURL = "" }, ErrPaymentInvalidReturnURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validCreateRequest()
			tt.mutate(r)
			err := r.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestGatewayStatus(t *testing.T) {
	assert.False(t, GatewayPaymentStatusPending.IsFinal())
	assert.True(t, GatewayPaymentStatusChargedBack.IsFinal())
	assert.False(t, GatewayPaymentStatus("BOGUS").IsFinal())
	assert.True(t, GatewayPaymentStatusPaid.IsSuccess())

	gt, err := ParseGatewayType("payhere")
	require.NoError(t, err)
	assert.Equal(t, PaymentGatewayTypePayHere, gt)
	_, err = ParseGatewayType("stripe")
	assert.ErrorIs(t, err, ErrPaymentInvalidGatewayType)
}

func TestPaymentTransaction_Apply(t *testing.T) {
	tx, err := NewPaymentTransaction(uuid.New(), PaymentPurposeOrder, uuid.New(), "INV-COL-000001", PaymentGatewayTypePayHere, decimal.RequireFromString("1500"), "lkr")
	require.NoError(t, err)
	assert.Len(t, tx.OrderNumber, len("INV-COL-000001-")+8)
	assert.Equal(t, "LKR", tx.Currency)

	wrong := &PaymentCallback{Status: GatewayPaymentStatusPaid, Amount: decimal.RequireFromString("15.00"), Currency: "LKR"}
	_, err = tx.Apply(wrong)
	assert.ErrorIs(t, err, ErrPaymentAmountMismatch)

	pending := &PaymentCallback{Status: GatewayPaymentStatusPending, RawPayload: "status_code=0"}
	changed, err := tx.Apply(pending)
	require.NoError(t, err)
	assert.False(t, changed)

	paid := &PaymentCallback{Status: GatewayPaymentStatusPaid, Amount: decimal.RequireFromString("1500.00"), Currency: "LKR", GatewayTransactionID: "320025"}
	changed, err = tx.Apply(paid)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "320025", tx.GatewayRef)
	assert.NotNil(t, tx.PaidAt)

	changed, err = tx.Apply(paid)
	require.NoError(t, err)
	assert.False(t, changed, "second delivery must be a no-op")
}

func TestPaymentCallback_IdempotencyKey(t *testing.T) {
	cb := &PaymentCallback{GatewayType: PaymentGatewayTypeOnePay, GatewayTransactionID: "T1", Status: GatewayPaymentStatusPaid}
	assert.Equal(t, "ONEPAY:T1:PAID", cb.IdempotencyKey())
	cb.GatewayTransactionID = ""
	cb.OrderNumber = "INV-1"
	assert.Equal(t, "ONEPAY:INV-1:PAID", cb.IdempotencyKey())
}

func TestNewPaymentTransaction_Validation(t *testing.T) {
	_, err := NewPaymentTransaction(uuid.New(), "GIFT", uuid.New(), "X", PaymentGatewayTypeOnePay, decimal.NewFromInt(1), "LKR")
	assert.Error(t, err)
	_, err = NewPaymentTransaction(uuid.New(), PaymentPurposeOrder, uuid.New(), "X", "CASH", decimal.NewFromInt(1), "LKR")
	assert.ErrorIs(t, err, ErrPaymentInvalidGatewayType)
	_, err = NewPaymentTransaction(uuid.New(), PaymentPurposeOrder, uuid.New(), "X", PaymentGatewayTypeOnePay, decimal.Zero, "LKR")
	assert.ErrorIs(t, err, ErrPaymentInvalidAmount)
}

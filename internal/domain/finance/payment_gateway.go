package finance

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Payment Gateway Errors
// ---------------------------------------------------------------------------

var (
	ErrPaymentInvalidTenantID    = errors.New("payment: invalid tenant ID")
	ErrPaymentInvalidReference   = errors.New("payment: invalid reference ID")
	ErrPaymentInvalidOrderNumber = errors.New("payment: invalid order number")
	ErrPaymentInvalidAmount      = errors.New("payment: invalid payment amount")
	ErrPaymentInvalidCurrency    = errors.New("payment: invalid currency")
	ErrPaymentInvalidNotifyURL   = errors.New("payment: invalid notify URL")
	ErrPaymentInvalidReturnURL   = errors.New("payment: invalid return URL")
	ErrPaymentInvalidGatewayType = errors.New("payment: invalid gateway type")
	ErrPaymentNotFound           = errors.New("payment: payment transaction not found")
	ErrPaymentAmountMismatch     = errors.New("payment: callback amount does not match transaction")

	ErrGatewayNotConfigured   = errors.New("payment: gateway not configured")
	ErrGatewayNotEnabled      = errors.New("payment: gateway not enabled")
	ErrGatewayRequestFailed   = errors.New("payment: gateway request failed")
	ErrGatewayInvalidResponse = errors.New("payment: invalid gateway response")
	ErrGatewayInvalidCallback = errors.New("payment: invalid callback signature")
)

// PaymentGatewayType represents the type of payment gateway
type PaymentGatewayType string

const (
	// PaymentGatewayTypePayHere is the PayHere hosted checkout
	PaymentGatewayTypePayHere PaymentGatewayType = "PAYHERE"
	// PaymentGatewayTypeOnePay is the OnePay redirect API
	PaymentGatewayTypeOnePay PaymentGatewayType = "ONEPAY"
)

// IsValid returns true if the gateway type is valid
func (t PaymentGatewayType) IsValid() bool {
	switch t {
	case PaymentGatewayTypePayHere, PaymentGatewayTypeOnePay:
		return true
	default:
		return false
	}
}

// String returns the string representation of PaymentGatewayType
func (t PaymentGatewayType) String() string {
	return string(t)
}

// ParseGatewayType accepts any casing
func ParseGatewayType(s string) (PaymentGatewayType, error) {
	t := PaymentGatewayType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", ErrPaymentInvalidGatewayType
	}
	return t, nil
}

// GatewayPaymentStatus represents the status of a payment in the gateway
type GatewayPaymentStatus string

const (
	GatewayPaymentStatusPending     GatewayPaymentStatus = "PENDING"
	GatewayPaymentStatusPaid        GatewayPaymentStatus = "PAID"
	GatewayPaymentStatusFailed      GatewayPaymentStatus = "FAILED"
	GatewayPaymentStatusCancelled   GatewayPaymentStatus = "CANCELLED"
	GatewayPaymentStatusChargedBack GatewayPaymentStatus = "CHARGEDBACK"
)

// IsValid returns true if the status is valid
func (s GatewayPaymentStatus) IsValid() bool {
	switch s {
	case GatewayPaymentStatusPending, GatewayPaymentStatusPaid, GatewayPaymentStatusFailed,
		GatewayPaymentStatusCancelled, GatewayPaymentStatusChargedBack:
		return true
	default:
		return false
	}
}

// IsFinal returns true if the status is a terminal state
func (s GatewayPaymentStatus) IsFinal() bool {
	return s != GatewayPaymentStatusPending && s.IsValid()
}

// IsSuccess returns true if the payment was successful
func (s GatewayPaymentStatus) IsSuccess() bool {
	return s == GatewayPaymentStatusPaid
}

// ---------------------------------------------------------------------------
// Payment Request/Response DTOs
// ---------------------------------------------------------------------------

// PaymentCustomer is the payer shown on the hosted checkout
type PaymentCustomer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	City      string
	Country   string
}

// CreatePaymentRequest represents a request to start a gateway checkout
type CreatePaymentRequest struct {
	TenantID    uuid.UUID
	ReferenceID uuid.UUID
	// OrderNumber is the merchant order id echoed back in callbacks
	OrderNumber string
	Amount      decimal.Decimal
	Currency    string
	Items       string
	Customer    PaymentCustomer
	NotifyURL   string
	ReturnURL   string
	CancelURL   string
}

// Validate validates the create payment request
func (r *CreatePaymentRequest) Validate() error {
	if r.TenantID == uuid.Nil {
		return ErrPaymentInvalidTenantID
	}
	if r.ReferenceID == uuid.Nil {
		return ErrPaymentInvalidReference
	}
	if r.OrderNumber == "" {
		return ErrPaymentInvalidOrderNumber
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrPaymentInvalidAmount
	}
	if len(r.Currency) != 3 {
		return ErrPaymentInvalidCurrency
	}
	if r.NotifyURL == "" {
		return ErrPaymentInvalidNotifyURL
	}
	if r.ReturnURL == "" {
		return ErrPaymentInvalidReturnURL
	}
	return nil
}

// CheckoutMethod tells the client how to hand the payer to the gateway
type CheckoutMethod string

const (
	// CheckoutMethodFormPost: render an auto-submitting form with FormFields
	CheckoutMethodFormPost CheckoutMethod = "FORM_POST"
	// CheckoutMethodRedirect: send the browser to CheckoutURL
	CheckoutMethodRedirect CheckoutMethod = "REDIRECT"
)

// CreatePaymentResponse represents the gateway checkout payload
type CreatePaymentResponse struct {
	GatewayType    PaymentGatewayType
	GatewayOrderID string
	Method         CheckoutMethod
	CheckoutURL    string
	FormFields     map[string]string
	RawResponse    string
}

// PaymentCallback represents a verified payment notification
type PaymentCallback struct {
	GatewayType          PaymentGatewayType
	OrderNumber          string
	GatewayTransactionID string
	Status               GatewayPaymentStatus
	StatusCode           string
	Amount               decimal.Decimal
	Currency             string
	RawPayload           string
}

// IdempotencyKey identifies a callback delivery for dedupe
func (c *PaymentCallback) IdempotencyKey() string {
	ref := c.GatewayTransactionID
	if ref == "" {
		ref = c.OrderNumber
	}
	return string(c.GatewayType) + ":" + ref + ":" + string(c.Status)
}

// ---------------------------------------------------------------------------
// PaymentGateway Port Interface
// ---------------------------------------------------------------------------

// PaymentGateway is implemented by each gateway adapter in infrastructure
type PaymentGateway interface {
	// GatewayType returns the type of this payment gateway
	GatewayType() PaymentGatewayType

	// CreatePayment prepares a checkout for the payer
	CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*CreatePaymentResponse, error)

	// VerifyCallback verifies and parses a callback body. signature carries the
	// header signature for gateways that sign out of band.
	VerifyCallback(ctx context.Context, payload []byte, signature string) (*PaymentCallback, error)

	// GenerateCallbackResponse builds the acknowledgement body
	GenerateCallbackResponse(success bool, message string) []byte
}

// PaymentCallbackHandler processes verified callbacks
type PaymentCallbackHandler interface {
	HandlePaymentCallback(ctx context.Context, callback *PaymentCallback) error
}

// PaymentGatewayRegistry provides access to configured payment gateways
type PaymentGatewayRegistry interface {
	GetGateway(gatewayType PaymentGatewayType) (PaymentGateway, error)
	ListGateways() []PaymentGateway
	IsEnabled(gatewayType PaymentGatewayType) bool
}

package payment

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// PayHereAdapter implements finance.PaymentGateway for the PayHere hosted checkout.
// The payer's browser posts a signed form; PayHere later posts a form to notify_url.
type PayHereAdapter struct {
	config *PayHereConfig
	// upper-case MD5 of the merchant secret, reused by every hash
	secretDigest string
}

var _ finance.PaymentGateway = (*PayHereAdapter)(nil)

// NewPayHereAdapter creates a new PayHere adapter
func NewPayHereAdapter(config *PayHereConfig) (*PayHereAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &PayHereAdapter{
		config:       config,
		secretDigest: md5Upper(config.MerchantSecret),
	}, nil
}

// GatewayType returns the gateway type
func (a *PayHereAdapter) GatewayType() finance.PaymentGatewayType {
	return finance.PaymentGatewayTypePayHere
}

// CreatePayment builds the checkout form. No server-side call is needed.
func (a *PayHereAdapter) CreatePayment(ctx context.Context, req *finance.CreatePaymentRequest) (*finance.CreatePaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	amount := formatAmount(req.Amount)
	currency := strings.ToUpper(req.Currency)
	items := req.Items
	if items == "" {
		items = req.OrderNumber
	}

	fields := map[string]string{
		"merchant_id": a.config.MerchantID,
		"return_url":  req.ReturnURL,
		"cancel_url":  req.CancelURL,
		"notify_url":  req.NotifyURL,
		"order_id":    req.OrderNumber,
		"items":       items,
		"currency":    currency,
		"amount":      amount,
		"first_name":  req.Customer.FirstName,
		"last_name":   req.Customer.LastName,
		"email":       req.Customer.Email,
		"phone":       req.Customer.Phone,
		"address":     req.Customer.Address,
		"city":        req.Customer.City,
		"country":     req.Customer.Country,
		"hash":        a.checkoutHash(req.OrderNumber, amount, currency),
	}
	if fields["cancel_url"] == "" {
		fields["cancel_url"] = req.ReturnURL
	}
	if fields["country"] == "" {
		fields["country"] = "Sri Lanka"
	}

	return &finance.CreatePaymentResponse{
		GatewayType:    finance.PaymentGatewayTypePayHere,
		GatewayOrderID: req.OrderNumber,
		Method:         finance.CheckoutMethodFormPost,
		CheckoutURL:    a.config.CheckoutURL(),
		FormFields:     fields,
	}, nil
}

// VerifyCallback parses the url-encoded notify body and checks md5sig.
// signature is unused; PayHere signs inside the form.
func (a *PayHereAdapter) VerifyCallback(ctx context.Context, payload []byte, signature string) (*finance.PaymentCallback, error) {
	form, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, fmt.Errorf("payhere: failed to parse notification: %w", err)
	}

	merchantID := form.Get("merchant_id")
	orderID := form.Get("order_id")
	amount := form.Get("payhere_amount")
	currency := form.Get("payhere_currency")
	statusCode := form.Get("status_code")
	sig := form.Get("md5sig")

	if merchantID != a.config.MerchantID {
		return nil, fmt.Errorf("%w: merchant mismatch", finance.ErrGatewayInvalidCallback)
	}
	if orderID == "" || sig == "" {
		return nil, fmt.Errorf("%w: missing fields", finance.ErrGatewayInvalidCallback)
	}

	expected := a.notifyHash(orderID, amount, currency, statusCode)
	if subtle.ConstantTimeCompare([]byte(strings.ToUpper(sig)), []byte(expected)) != 1 {
		return nil, finance.ErrGatewayInvalidCallback
	}

	paid, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q", finance.ErrGatewayInvalidResponse, amount)
	}

	return &finance.PaymentCallback{
		GatewayType:          finance.PaymentGatewayTypePayHere,
		OrderNumber:          orderID,
		GatewayTransactionID: form.Get("payment_id"),
		Status:               mapPayHereStatus(statusCode),
		StatusCode:           statusCode,
		Amount:               paid,
		Currency:             strings.ToUpper(currency),
		RawPayload:           string(payload),
	}, nil
}

// GenerateCallbackResponse returns a plain acknowledgement; PayHere ignores the body
func (a *PayHereAdapter) GenerateCallbackResponse(success bool, message string) []byte {
	if success {
		return []byte("OK")
	}
	return []byte("FAIL: " + message)
}

func (a *PayHereAdapter) checkoutHash(orderID, amount, currency string) string {
	return md5Upper(a.config.MerchantID + orderID + amount + currency + a.secretDigest)
}

func (a *PayHereAdapter) notifyHash(orderID, amount, currency, statusCode string) string {
	return md5Upper(a.config.MerchantID + orderID + amount + currency + statusCode + a.secretDigest)
}

func md5Upper(s string) string {
	sum := md5.Sum([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// formatAmount renders two decimals without grouping
func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func mapPayHereStatus(code string) finance.GatewayPaymentStatus {
	switch code {
	case "2":
		return finance.GatewayPaymentStatusPaid
	case "0":
		return finance.GatewayPaymentStatusPending
	case "-1":
		return finance.GatewayPaymentStatusCancelled
	case "-2":
		return finance.GatewayPaymentStatusFailed
	case "-3":
		return finance.GatewayPaymentStatusChargedBack
	default:
		return finance.GatewayPaymentStatusFailed
	}
}

package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// OnePayAdapter implements finance.PaymentGateway for the OnePay redirect API
type OnePayAdapter struct {
	config     *OnePayConfig
	httpClient *http.Client
}

var _ finance.PaymentGateway = (*OnePayAdapter)(nil)

// NewOnePayAdapter creates a new OnePay adapter
func NewOnePayAdapter(config *OnePayConfig) (*OnePayAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &OnePayAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// GatewayType returns the gateway type
func (a *OnePayAdapter) GatewayType() finance.PaymentGatewayType {
	return finance.PaymentGatewayTypeOnePay
}

// CreatePayment requests a payment link and returns the redirect URL
func (a *OnePayAdapter) CreatePayment(ctx context.Context, req *finance.CreatePaymentRequest) (*finance.CreatePaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	amount := formatAmount(req.Amount)
	currency := strings.ToUpper(req.Currency)
	body := onePayCreateRequest{
		AppID:                  a.config.AppID,
		Hash:                   a.requestHash(currency, amount),
		Amount:                 json.Number(amount),
		Currency:               currency,
		Reference:              req.OrderNumber,
		CustomerFirstName:      req.Customer.FirstName,
		CustomerLastName:       req.Customer.LastName,
		CustomerPhoneNumber:    req.Customer.Phone,
		CustomerEmail:          req.Customer.Email,
		TransactionRedirectURL: req.ReturnURL,
		AdditionalData:         req.ReferenceID.String(),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("onepay: failed to encode request: %w", err)
	}

	respBody, err := a.doRequest(ctx, http.MethodPost, onePayCheckoutPath, payload)
	if err != nil {
		return nil, err
	}

	var resp onePayCreateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", finance.ErrGatewayInvalidResponse, err)
	}
	if resp.Data.Gateway.RedirectURL == "" {
		return nil, fmt.Errorf("%w: %s", finance.ErrGatewayInvalidResponse, resp.Message)
	}

	return &finance.CreatePaymentResponse{
		GatewayType:    finance.PaymentGatewayTypeOnePay,
		GatewayOrderID: resp.Data.IPGTransactionID,
		Method:         finance.CheckoutMethodRedirect,
		CheckoutURL:    resp.Data.Gateway.RedirectURL,
		RawResponse:    string(respBody),
	}, nil
}

// VerifyCallback checks the HMAC-SHA256 of the raw body and parses it
func (a *OnePayAdapter) VerifyCallback(ctx context.Context, payload []byte, signature string) (*finance.PaymentCallback, error) {
	if signature == "" {
		return nil, fmt.Errorf("%w: missing signature", finance.ErrGatewayInvalidCallback)
	}
	expected := a.sign(payload)
	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return nil, finance.ErrGatewayInvalidCallback
	}

	var n onePayNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("onepay: failed to parse notification: %w", err)
	}
	if n.Reference == "" {
		return nil, fmt.Errorf("%w: missing reference", finance.ErrGatewayInvalidResponse)
	}

	amount, err := decimal.NewFromString(n.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q", finance.ErrGatewayInvalidResponse, n.Amount)
	}

	return &finance.PaymentCallback{
		GatewayType:          finance.PaymentGatewayTypeOnePay,
		OrderNumber:          n.Reference,
		GatewayTransactionID: n.TransactionID,
		Status:               mapOnePayStatus(n.Status),
		StatusCode:           fmt.Sprintf("%d", n.Status),
		Amount:               amount,
		Currency:             strings.ToUpper(n.Currency),
		RawPayload:           string(payload),
	}, nil
}

// GenerateCallbackResponse generates the JSON acknowledgement
func (a *OnePayAdapter) GenerateCallbackResponse(success bool, message string) []byte {
	resp := map[string]any{"status": 1}
	if !success {
		resp["status"] = 0
		resp["message"] = message
	}
	data, _ := json.Marshal(resp)
	return data
}

func (a *OnePayAdapter) requestHash(currency, amount string) string {
	sum := sha256.Sum256([]byte(a.config.AppID + currency + amount + a.config.HashSalt))
	return hex.EncodeToString(sum[:])
}

// sign computes the callback signature, hex encoded
func (a *OnePayAdapter) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(a.config.AppToken))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *OnePayAdapter) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.apiBase()+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("onepay: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", a.config.AppToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", finance.ErrGatewayRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("onepay: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp onePayCreateResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			return nil, fmt.Errorf("%w: %s", finance.ErrGatewayRequestFailed, errResp.Message)
		}
		return nil, fmt.Errorf("%w: HTTP %d", finance.ErrGatewayRequestFailed, resp.StatusCode)
	}
	return respBody, nil
}

func mapOnePayStatus(status int) finance.GatewayPaymentStatus {
	if status == 1 {
		return finance.GatewayPaymentStatusPaid
	}
	return finance.GatewayPaymentStatusFailed
}

package billing

import (
	"time"

	"github.com/cloudpos/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteRequest prices a plan for the caller's subscription
type QuoteRequest struct {
	PlanCode      string `json:"plan_code" form:"plan_code" binding:"required"`
	Cycle         string `json:"cycle" form:"cycle" binding:"required,oneof=MONTHLY ANNUAL"`
	ExtraBranches int    `json:"extra_branches" form:"extra_branches" binding:"min=0,max=100"`
}

// CheckoutRequest pays an invoice through a gateway
type CheckoutRequest struct {
	Gateway string `json:"gateway" binding:"required,oneof=PAYHERE ONEPAY"`
}

// InvoiceListFilter pages through billing invoices
type InvoiceListFilter struct {
	Page     int `form:"page" binding:"min=0"`
	PageSize int `form:"page_size" binding:"min=0,max=100"`
}

// SubscriptionResponse is the subscription with its plan and current usage
type SubscriptionResponse struct {
	ID                 uuid.UUID    `json:"id"`
	PlanCode           string       `json:"plan_code"`
	Plan               billing.Plan `json:"plan"`
	Cycle              string       `json:"cycle"`
	Status             string       `json:"status"`
	CurrentPeriodStart time.Time    `json:"current_period_start"`
	CurrentPeriodEnd   time.Time    `json:"current_period_end"`
	TrialEndsAt        *time.Time   `json:"trial_ends_at,omitempty"`
	ExtraBranches      int          `json:"extra_branches"`
	CancelAtPeriodEnd  bool         `json:"cancel_at_period_end"`
	BranchLimit        int          `json:"branch_limit"`
	BranchCount        int64        `json:"branch_count"`
	UserCount          int64        `json:"user_count"`
}

// InvoiceResponse represents a billing invoice in API responses
type InvoiceResponse struct {
	ID            uuid.UUID       `json:"id"`
	Number        string          `json:"number"`
	Kind          string          `json:"kind"`
	PlanCode      string          `json:"plan_code"`
	Cycle         string          `json:"cycle"`
	ExtraBranches int             `json:"extra_branches"`
	Total         decimal.Decimal `json:"total"`
	Credit        decimal.Decimal `json:"credit"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PeriodStart   time.Time       `json:"period_start"`
	PeriodEnd     time.Time       `json:"period_end"`
	Status        string          `json:"status"`
	Gateway       string          `json:"gateway,omitempty"`
	GatewayRef    string          `json:"gateway_ref,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ToInvoiceResponse converts a domain Invoice
func ToInvoiceResponse(inv *billing.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:            inv.ID,
		Number:        inv.Number,
		Kind:          string(inv.Kind),
		PlanCode:      inv.PlanCode,
		Cycle:         string(inv.Cycle),
		ExtraBranches: inv.ExtraBranches,
		Total:         inv.Total,
		Credit:        inv.Credit,
		Amount:        inv.Amount,
		Currency:      inv.Currency,
		PeriodStart:   inv.PeriodStart,
		PeriodEnd:     inv.PeriodEnd,
		Status:        string(inv.Status),
		Gateway:       inv.Gateway,
		GatewayRef:    inv.GatewayRef,
		PaidAt:        inv.PaidAt,
		CreatedAt:     inv.CreatedAt,
	}
}

// CheckoutResponse tells the client how to hand the payer to the gateway
type CheckoutResponse struct {
	InvoiceID     uuid.UUID         `json:"invoice_id"`
	TransactionID uuid.UUID         `json:"transaction_id"`
	OrderNumber   string            `json:"order_number"`
	Gateway       string            `json:"gateway"`
	Method        string            `json:"method"`
	CheckoutURL   string            `json:"checkout_url"`
	FormFields    map[string]string `json:"form_fields,omitempty"`
}

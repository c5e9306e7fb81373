package sales

import (
	"time"

	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/cloudpos/backend/internal/domain/sales"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutLineRequest is one scanned item
type CheckoutLineRequest struct {
	VariantID    uuid.UUID       `json:"variant_id" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
	PriceTier    string          `json:"price_tier" binding:"max=30"`
	LineDiscount decimal.Decimal `json:"line_discount"`
}

// PaymentRequest is one tender
type PaymentRequest struct {
	Method    string          `json:"method" binding:"required,oneof=CASH CARD PAYHERE ONEPAY CREDIT"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference" binding:"max=100"`
}

// CheckoutRequest creates an order. ClientRef makes retries safe: a repeated
// ClientRef returns the order created the first time.
type CheckoutRequest struct {
	BranchID         uuid.UUID             `json:"branch_id" binding:"required"`
	CustomerID       *uuid.UUID            `json:"customer_id"`
	ClientRef        string                `json:"client_ref" binding:"max=64"`
	PriceTier        string                `json:"price_tier" binding:"max=30"`
	Lines            []CheckoutLineRequest `json:"lines" binding:"required,min=1,max=500,dive"`
	OrderDiscount    decimal.Decimal       `json:"order_discount"`
	Payments         []PaymentRequest      `json:"payments" binding:"required,min=1,max=5,dive"`
	OfflineCreatedAt *time.Time            `json:"offline_created_at"`
	Note             string                `json:"note" binding:"max=500"`
	Customer         *PayerRequest         `json:"payer"`
}

// PayerRequest carries payer details for gateway checkouts
type PayerRequest struct {
	FirstName string `json:"first_name" binding:"max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone" binding:"omitempty,phone_lk"`
	Address   string `json:"address" binding:"max=200"`
	City      string `json:"city" binding:"max=100"`
}

// VoidRequest voids a completed order
type VoidRequest struct {
	Reason string `json:"reason" binding:"required,max=200"`
}

// OrderListFilter holds order list query parameters
type OrderListFilter struct {
	BranchID   *uuid.UUID `form:"branch_id"`
	Status     string     `form:"status" binding:"omitempty,oneof=PENDING_PAYMENT COMPLETED VOIDED"`
	CashierID  *uuid.UUID `form:"cashier_id"`
	CustomerID *uuid.UUID `form:"customer_id"`
	Search     string     `form:"search"`
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to" time_format:"2006-01-02"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string     `form:"order_by" binding:"omitempty,oneof=created_at grand_total invoice_number"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// OrderLineResponse is a sold line
type OrderLineResponse struct {
	ID            uuid.UUID       `json:"id"`
	VariantID     uuid.UUID       `json:"variant_id"`
	ProductName   string          `json:"product_name"`
	VariationName string          `json:"variation_name,omitempty"`
	SKU           string          `json:"sku"`
	Quantity      decimal.Decimal `json:"quantity"`
	PriceTier     string          `json:"price_tier,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineDiscount  decimal.Decimal `json:"line_discount"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

// OrderPaymentResponse is an applied tender
type OrderPaymentResponse struct {
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
}

// OrderResponse is an order in API responses
type OrderResponse struct {
	ID               uuid.UUID              `json:"id"`
	BranchID         uuid.UUID              `json:"branch_id"`
	InvoiceNumber    string                 `json:"invoice_number"`
	ClientRef        string                 `json:"client_ref"`
	CustomerID       *uuid.UUID             `json:"customer_id,omitempty"`
	CashierID        uuid.UUID              `json:"cashier_id"`
	Lines            []OrderLineResponse    `json:"lines"`
	Subtotal         decimal.Decimal        `json:"subtotal"`
	DiscountTotal    decimal.Decimal        `json:"discount_total"`
	OrderDiscount    decimal.Decimal        `json:"order_discount"`
	TaxRate          decimal.Decimal        `json:"tax_rate"`
	TaxAmount        decimal.Decimal        `json:"tax_amount"`
	GrandTotal       decimal.Decimal        `json:"grand_total"`
	Payments         []OrderPaymentResponse `json:"payments"`
	PaidTotal        decimal.Decimal        `json:"paid_total"`
	ChangeDue        decimal.Decimal        `json:"change_due"`
	Status           string                 `json:"status"`
	VoidReason       string                 `json:"void_reason,omitempty"`
	VoidedAt         *time.Time             `json:"voided_at,omitempty"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty"`
	OfflineCreatedAt *time.Time             `json:"offline_created_at,omitempty"`
	Note             string                 `json:"note,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

// GatewayCheckoutResponse tells the client how to send the payer to the gateway
type GatewayCheckoutResponse struct {
	TransactionID uuid.UUID         `json:"transaction_id"`
	Gateway       string            `json:"gateway"`
	Method        string            `json:"method"`
	CheckoutURL   string            `json:"checkout_url"`
	FormFields    map[string]string `json:"form_fields,omitempty"`
}

// CheckoutResponse wraps the order with replay and gateway details
type CheckoutResponse struct {
	Order    OrderResponse            `json:"order"`
	Replayed bool                     `json:"replayed"`
	Payment  *GatewayCheckoutResponse `json:"payment,omitempty"`
	// BelowCost lists SKUs sold under cost, a warning for the cashier
	BelowCost []string `json:"below_cost,omitempty"`
}

// ToOrderResponse converts an order
func ToOrderResponse(o *sales.Order) OrderResponse {
	resp := OrderResponse{
		ID:               o.ID,
		BranchID:         o.BranchID,
		InvoiceNumber:    o.InvoiceNumber,
		ClientRef:        o.ClientRef,
		CustomerID:       o.CustomerID,
		CashierID:        o.CashierID,
		Lines:            make([]OrderLineResponse, len(o.Lines)),
		Subtotal:         o.Subtotal,
		DiscountTotal:    o.DiscountTotal,
		OrderDiscount:    o.OrderDiscount,
		TaxRate:          o.TaxRate,
		TaxAmount:        o.TaxAmount,
		GrandTotal:       o.GrandTotal,
		Payments:         make([]OrderPaymentResponse, len(o.Payments)),
		PaidTotal:        o.PaidTotal,
		ChangeDue:        o.ChangeDue,
		Status:           string(o.Status),
		VoidReason:       o.VoidReason,
		VoidedAt:         o.VoidedAt,
		CompletedAt:      o.CompletedAt,
		OfflineCreatedAt: o.OfflineCreatedAt,
		Note:             o.Note,
		CreatedAt:        o.CreatedAt,
	}
	for i, l := range o.Lines {
		resp.Lines[i] = OrderLineResponse{
			ID:            l.ID,
			VariantID:     l.VariantID,
			ProductName:   l.ProductName,
			VariationName: l.VariationName,
			SKU:           l.SKU,
			Quantity:      l.Quantity,
			PriceTier:     l.PriceTier,
			UnitPrice:     l.UnitPrice,
			LineDiscount:  l.LineDiscount,
			LineTotal:     l.LineTotal,
		}
	}
	for i, p := range o.Payments {
		resp.Payments[i] = OrderPaymentResponse{Method: string(p.Method), Amount: p.Amount, Reference: p.Reference}
	}
	return resp
}

// ToGatewayCheckoutResponse converts a gateway checkout payload
func ToGatewayCheckoutResponse(txID uuid.UUID, r *finance.CreatePaymentResponse) *GatewayCheckoutResponse {
	return &GatewayCheckoutResponse{
		TransactionID: txID,
		Gateway:       string(r.GatewayType),
		Method:        string(r.Method),
		CheckoutURL:   r.CheckoutURL,
		FormFields:    r.FormFields,
	}
}

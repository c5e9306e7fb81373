package finance

import (
	"time"

	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryRequest creates or edits an expense or income entry
type EntryRequest struct {
	BranchID      uuid.UUID       `json:"branch_id" binding:"required"`
	Category      string          `json:"category" binding:"required,min=1,max=100"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Date          time.Time       `json:"date"`
	PaymentMethod string          `json:"payment_method" binding:"omitempty,oneof=CASH CARD BANK_TRANSFER CHEQUE OTHER"`
	Reference     string          `json:"reference" binding:"max=100"`
	Note          string          `json:"note" binding:"max=1000"`
}

// CancelEntryRequest cancels an entry
type CancelEntryRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// EntryListFilter represents filter options for listing entries
type EntryListFilter struct {
	BranchID *uuid.UUID `form:"branch_id"`
	Category string     `form:"category" binding:"max=100"`
	Status   string     `form:"status" binding:"omitempty,oneof=RECORDED CANCELLED"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
	Search   string     `form:"search" binding:"max=100"`
	Page     int        `form:"page" binding:"min=0"`
	PageSize int        `form:"page_size" binding:"min=0,max=100"`
	OrderBy  string     `form:"order_by" binding:"omitempty,oneof=date amount category created_at"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// SummaryFilter selects the period and branch of a profit summary. Dates are
// inclusive business days.
type SummaryFilter struct {
	BranchID *uuid.UUID `form:"branch_id"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
}

// EntryResponse represents an expense or income entry in API responses
type EntryResponse struct {
	ID            uuid.UUID       `json:"id"`
	BranchID      uuid.UUID       `json:"branch_id"`
	Kind          string          `json:"kind"`
	Category      string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
	PaymentMethod string          `json:"payment_method"`
	Reference     string          `json:"reference,omitempty"`
	Note          string          `json:"note,omitempty"`
	Status        string          `json:"status"`
	CancelReason  string          `json:"cancel_reason,omitempty"`
	CreatedBy     *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ToEntryResponse converts a domain Entry to EntryResponse
func ToEntryResponse(e *finance.Entry) EntryResponse {
	return EntryResponse{
		ID:            e.ID,
		BranchID:      e.BranchID,
		Kind:          string(e.Kind),
		Category:      e.Category,
		Amount:        e.Amount,
		Date:          e.Date,
		PaymentMethod: e.PaymentMethod,
		Reference:     e.Reference,
		Note:          e.Note,
		Status:        string(e.Status),
		CancelReason:  e.CancelReason,
		CreatedBy:     e.CreatedBy,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// PaymentTransactionResponse represents a gateway payment attempt
type PaymentTransactionResponse struct {
	ID          uuid.UUID       `json:"id"`
	Purpose     string          `json:"purpose"`
	ReferenceID uuid.UUID       `json:"reference_id"`
	OrderNumber string          `json:"order_number"`
	Gateway     string          `json:"gateway"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	GatewayRef  string          `json:"gateway_ref,omitempty"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ToPaymentTransactionResponse converts a PaymentTransaction
func ToPaymentTransactionResponse(t *finance.PaymentTransaction) PaymentTransactionResponse {
	return PaymentTransactionResponse{
		ID:          t.ID,
		Purpose:     string(t.Purpose),
		ReferenceID: t.ReferenceID,
		OrderNumber: t.OrderNumber,
		Gateway:     string(t.Gateway),
		Amount:      t.Amount,
		Currency:    t.Currency,
		Status:      string(t.Status),
		GatewayRef:  t.GatewayRef,
		PaidAt:      t.PaidAt,
		CreatedAt:   t.CreatedAt,
	}
}

package customer

import (
	"time"

	"github.com/cloudpos/backend/internal/domain/customer"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateCustomerRequest represents a request to register a customer
type CreateCustomerRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=200"`
	Phone   string `json:"phone" binding:"required,phone_lk"`
	Email   string `json:"email" binding:"omitempty,email,max=200"`
	Address string `json:"address" binding:"max=500"`
	Notes   string `json:"notes" binding:"max=1000"`
}

// UpdateCustomerRequest represents a request to edit a customer
type UpdateCustomerRequest struct {
	Name    *string `json:"name" binding:"omitempty,min=1,max=200"`
	Phone   *string `json:"phone" binding:"omitempty,phone_lk"`
	Email   *string `json:"email" binding:"omitempty,email,max=200"`
	Address *string `json:"address" binding:"omitempty,max=500"`
	Notes   *string `json:"notes" binding:"omitempty,max=1000"`
}

// AdjustCreditRequest records a repayment (positive) or a manual charge (negative)
type AdjustCreditRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Note   string          `json:"note" binding:"max=500"`
}

// CustomerListFilter represents filter options for listing customers
type CustomerListFilter struct {
	Search   string `form:"search" binding:"max=100"`
	Active   *bool  `form:"active"`
	Page     int    `form:"page" binding:"min=0"`
	PageSize int    `form:"page_size" binding:"min=0,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=name phone total_spent loyalty_points created_at"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// CustomerResponse represents a customer in API responses
type CustomerResponse struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email,omitempty"`
	Address       string          `json:"address,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	LoyaltyPoints int64           `json:"loyalty_points"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
	VisitCount    int             `json:"visit_count"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ToCustomerResponse converts a domain Customer to CustomerResponse
func ToCustomerResponse(c *customer.Customer) CustomerResponse {
	return CustomerResponse{
		ID:            c.ID,
		Name:          c.Name,
		Phone:         c.Phone,
		Email:         c.Email,
		Address:       c.Address,
		Notes:         c.Notes,
		LoyaltyPoints: c.LoyaltyPoints,
		CreditBalance: c.CreditBalance,
		TotalSpent:    c.TotalSpent,
		VisitCount:    c.VisitCount,
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

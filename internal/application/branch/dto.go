package branch

import (
	"time"

	"github.com/cloudpos/backend/internal/domain/branch"
	"github.com/google/uuid"
)

// CreateBranchRequest represents a request to open a branch
type CreateBranchRequest struct {
	Code    string `json:"code" binding:"required,min=2,max=8"`
	Name    string `json:"name" binding:"required,min=1,max=100"`
	Address string `json:"address" binding:"max=500"`
	Phone   string `json:"phone" binding:"omitempty,phone_lk"`
}

// UpdateBranchRequest represents a request to edit a branch
type UpdateBranchRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=100"`
	Address string `json:"address" binding:"max=500"`
	Phone   string `json:"phone" binding:"omitempty,phone_lk"`
}

// BranchResponse represents a branch in API responses
type BranchResponse struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Address    string    `json:"address,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	IsActive   bool      `json:"is_active"`
	InvoiceSeq int64     `json:"invoice_seq"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ToBranchResponse converts a domain Branch to BranchResponse
func ToBranchResponse(b *branch.Branch) BranchResponse {
	return BranchResponse{
		ID:         b.ID,
		Code:       b.Code,
		Name:       b.Name,
		Address:    b.Address,
		Phone:      b.Phone,
		IsActive:   b.IsActive,
		InvoiceSeq: b.InvoiceSeq,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

package notification

import (
	"time"

	"github.com/cloudpos/backend/internal/domain/notification"
	"github.com/google/uuid"
)

// SendSMSRequest sends an ad-hoc message, usually a promotion
type SendSMSRequest struct {
	To      string `json:"to" binding:"required,phone_lk"`
	Body    string `json:"body" binding:"required,min=1,max=612"`
	Purpose string `json:"purpose" binding:"omitempty,oneof=PROMO ALERT"`
}

// SMSListFilter represents filter options for the SMS log
type SMSListFilter struct {
	Status   string     `form:"status" binding:"omitempty,oneof=QUEUED SENT FAILED"`
	Purpose  string     `form:"purpose" binding:"omitempty,oneof=EBILL OTP PROMO ALERT"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
	Search   string     `form:"search" binding:"max=100"`
	Page     int        `form:"page" binding:"min=0"`
	PageSize int        `form:"page_size" binding:"min=0,max=100"`
}

// SMSResponse represents a logged SMS in API responses
type SMSResponse struct {
	ID          uuid.UUID  `json:"id"`
	To          string     `json:"to"`
	Body        string     `json:"body"`
	Purpose     string     `json:"purpose"`
	Status      string     `json:"status"`
	ProviderRef string     `json:"provider_ref,omitempty"`
	Error       string     `json:"error,omitempty"`
	Attempts    int        `json:"attempts"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ToSMSResponse converts a domain SMSMessage
func ToSMSResponse(m *notification.SMSMessage) SMSResponse {
	return SMSResponse{
		ID:          m.ID,
		To:          m.To,
		Body:        m.Body,
		Purpose:     string(m.Purpose),
		Status:      string(m.Status),
		ProviderRef: m.ProviderRef,
		Error:       m.Error,
		Attempts:    m.Attempts,
		SentAt:      m.SentAt,
		CreatedAt:   m.CreatedAt,
	}
}

// SMSUsageResponse is the monthly SMS count against the plan quota
type SMSUsageResponse struct {
	Month     string `json:"month"`
	Sent      int64  `json:"sent"`
	Quota     int    `json:"quota"`
	Remaining int64  `json:"remaining"`
}

// EBillResponse reports how an e-bill was delivered
type EBillResponse struct {
	OrderID       uuid.UUID `json:"order_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Channel       string    `json:"channel"`
	Recipient     string    `json:"recipient"`
	StorageKey    string    `json:"storage_key"`
	URL           string    `json:"url,omitempty"`
}

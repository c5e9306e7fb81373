package business

import (
	"time"

	"github.com/cloudpos/backend/internal/domain/business"
	"github.com/google/uuid"
)

// UpdateBusinessRequest edits the business profile
type UpdateBusinessRequest struct {
	BusinessName  string `json:"business_name" binding:"required,min=1,max=200"`
	Currency      string `json:"currency" binding:"omitempty,len=3"`
	Phone         string `json:"phone" binding:"omitempty,phone_lk"`
	Email         string `json:"email" binding:"omitempty,email"`
	Address       string `json:"address" binding:"max=500"`
	LogoKey       string `json:"logo_key"`
	InvoicePrefix string `json:"invoice_prefix" binding:"omitempty,max=6"`
	ReceiptFooter string `json:"receipt_footer" binding:"max=500"`
}

// CategoryRequest adds or removes a category
type CategoryRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// RenameCategoryRequest renames a category
type RenameCategoryRequest struct {
	OldName string `json:"old_name" binding:"required"`
	NewName string `json:"new_name" binding:"required,min=1,max=100"`
}

// SMSSettingsRequest toggles SMS
type SMSSettingsRequest struct {
	Enabled  bool   `json:"enabled"`
	SenderID string `json:"sender_id" binding:"max=11"`
}

// EBillSettingsRequest toggles e-bills
type EBillSettingsRequest struct {
	Enabled bool   `json:"enabled"`
	Channel string `json:"channel" binding:"required,oneof=SMS EMAIL"`
}

// BusinessResponse is the BusinessMeta singleton in API responses
type BusinessResponse struct {
	TenantID      uuid.UUID `json:"tenant_id"`
	BusinessName  string    `json:"business_name"`
	Currency      string    `json:"currency"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	Address       string    `json:"address,omitempty"`
	LogoKey       string    `json:"logo_key,omitempty"`
	Categories    []string  `json:"categories"`
	SMSEnabled    bool      `json:"sms_enabled"`
	SMSSenderID   string    `json:"sms_sender_id,omitempty"`
	EBillEnabled  bool      `json:"ebill_enabled"`
	EBillChannel  string    `json:"ebill_channel"`
	InvoicePrefix string    `json:"invoice_prefix"`
	ReceiptFooter string    `json:"receipt_footer,omitempty"`
	PlanCode      string    `json:"plan_code"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToBusinessResponse converts BusinessMeta to BusinessResponse
func ToBusinessResponse(m *business.Meta) BusinessResponse {
	categories := m.Categories
	if categories == nil {
		categories = []string{}
	}
	return BusinessResponse{
		TenantID:      m.TenantID,
		BusinessName:  m.BusinessName,
		Currency:      string(m.Currency),
		Phone:         m.Phone,
		Email:         m.Email,
		Address:       m.Address,
		LogoKey:       m.LogoKey,
		Categories:    categories,
		SMSEnabled:    m.SMSEnabled,
		SMSSenderID:   m.SMSSenderID,
		EBillEnabled:  m.EBillEnabled,
		EBillChannel:  string(m.EBillChannel),
		InvoicePrefix: m.InvoicePrefix,
		ReceiptFooter: m.ReceiptFooter,
		PlanCode:      m.PlanCode,
		UpdatedAt:     m.UpdatedAt,
	}
}

// RegisterRequest signs up a new business with its owner account
type RegisterRequest struct {
	BusinessName string `json:"business_name" binding:"required,min=1,max=200"`
	OwnerName    string `json:"owner_name" binding:"max=100"`
	Username     string `json:"username" binding:"required,min=3,max=50"`
	Password     string `json:"password" binding:"required,min=8,max=72"`
	Email        string `json:"email" binding:"omitempty,email"`
	Phone        string `json:"phone" binding:"omitempty,phone_lk"`
	PlanCode     string `json:"plan_code"`
	BranchName   string `json:"branch_name" binding:"max=100"`
}

// RegisterResult identifies what registration created
type RegisterResult struct {
	TenantID    uuid.UUID `json:"tenant_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	BranchID    uuid.UUID `json:"branch_id"`
	PlanCode    string    `json:"plan_code"`
	TrialEndsAt time.Time `json:"trial_ends_at"`
}

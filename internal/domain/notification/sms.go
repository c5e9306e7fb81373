package notification

import (
	"context"
	"strings"
	"time"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Purpose categorizes outgoing SMS
type Purpose string

const (
	PurposeEBill Purpose = "EBILL"
	PurposeOTP   Purpose = "OTP"
	PurposePromo Purpose = "PROMO"
	PurposeAlert Purpose = "ALERT"
)

// IsValid checks the purpose value
func (p Purpose) IsValid() bool {
	switch p {
	case PurposeEBill, PurposeOTP, PurposePromo, PurposeAlert:
		return true
	}
	return false
}

// SMSStatus is the delivery state of a message
type SMSStatus string

const (
	SMSStatusQueued SMSStatus = "QUEUED"
	SMSStatusSent   SMSStatus = "SENT"
	SMSStatusFailed SMSStatus = "FAILED"
)

// MaxAttempts bounds delivery retries per message
const MaxAttempts = 3

// maxBodyLength allows up to 4 concatenated GSM segments
const maxBodyLength = 612

var ErrQuotaExhausted = shared.NewDomainError("SMS_QUOTA_EXHAUSTED", "Monthly SMS quota exhausted")

// SMSMessage is the log row of an outgoing SMS
type SMSMessage struct {
	shared.TenantAggregateRoot
	To          string
	Body        string
	SenderID    string
	Purpose     Purpose
	Status      SMSStatus
	ProviderRef string
	Error       string
	Attempts    int
	SentAt      *time.Time
}

// NewSMSMessage validates and queues a message
func NewSMSMessage(tenantID uuid.UUID, to, body, senderID string, purpose Purpose) (*SMSMessage, error) {
	phone, err := valueobject.NormalizePhone(to)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_PHONE", "Invalid recipient number")
	}
	body = strings.TrimSpace(body)
	if body == "" || len(body) > maxBodyLength {
		return nil, shared.NewDomainError("INVALID_SMS_BODY", "Message must be 1-612 characters")
	}
	if !purpose.IsValid() {
		return nil, shared.NewDomainError("INVALID_SMS_PURPOSE", "Unknown SMS purpose")
	}
	return &SMSMessage{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		To:                  phone,
		Body:                body,
		SenderID:            senderID,
		Purpose:             purpose,
		Status:              SMSStatusQueued,
	}, nil
}

// RecordAttempt stores the outcome of one send
func (m *SMSMessage) RecordAttempt(providerRef string, sendErr error) {
	m.Attempts++
	if sendErr == nil {
		now := time.Now()
		m.Status = SMSStatusSent
		m.ProviderRef = providerRef
		m.Error = ""
		m.SentAt = &now
	} else {
		m.Status = SMSStatusFailed
		m.Error = sendErr.Error()
	}
	m.Touch()
	m.IncrementVersion()
}

// CanRetry reports whether a failed message may be sent again
func (m *SMSMessage) CanRetry() bool {
	return m.Status != SMSStatusSent && m.Attempts < MaxAttempts
}

// SMSSender delivers a text message through a provider
type SMSSender interface {
	Send(ctx context.Context, to, body, senderID string) (providerRef string, err error)
}

// Attachment is a file sent with an email
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Email is an outgoing message
type Email struct {
	To          string
	ToName      string
	Subject     string
	PlainText   string
	HTML        string
	Attachments []Attachment
}

// EmailSender delivers email
type EmailSender interface {
	Send(ctx context.Context, msg Email) error
}

// SMSFilter narrows the SMS log
type SMSFilter struct {
	shared.Filter
	Status  SMSStatus
	Purpose Purpose
}

// SMSRepository persists the SMS log
type SMSRepository interface {
	Save(ctx context.Context, m *SMSMessage) error
	FindAll(ctx context.Context, tenantID uuid.UUID, filter SMSFilter) ([]*SMSMessage, int64, error)
	// CountSent counts SENT messages in [from, to)
	CountSent(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error)
	// FindRetryable returns FAILED messages below MaxAttempts, across tenants
	FindRetryable(ctx context.Context, limit int) ([]*SMSMessage, error)
}

// MonthRange returns [first day of month, first day of next month) in loc
func MonthRange(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 1, 0)
}

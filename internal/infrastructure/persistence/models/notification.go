package models

import (
	"time"

	"github.com/cloudpos/backend/internal/domain/notification"
)

// SMSMessageModel is one row of the outgoing SMS log
type SMSMessageModel struct {
	TenantAggregateModel
	To          string                 `gorm:"column:to_number;type:varchar(20);not null"`
	Body        string                 `gorm:"type:text;not null"`
	SenderID    string                 `gorm:"type:varchar(11)"`
	Purpose     notification.Purpose   `gorm:"type:varchar(10);not null"`
	Status      notification.SMSStatus `gorm:"type:varchar(10);not null;index"`
	ProviderRef string                 `gorm:"type:varchar(100)"`
	Error       string                 `gorm:"column:last_error;type:text"`
	Attempts    int                    `gorm:"not null;default:0"`
	SentAt      *time.Time             `gorm:"index"`
}

// TableName returns the table name for GORM
func (SMSMessageModel) TableName() string {
	return "sms_messages"
}

// ToDomain converts the persistence model to a domain SMSMessage
func (m *SMSMessageModel) ToDomain() *notification.SMSMessage {
	return &notification.SMSMessage{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		To:                  m.To,
		Body:                m.Body,
		SenderID:            m.SenderID,
		Purpose:             m.Purpose,
		Status:              m.Status,
		ProviderRef:         m.ProviderRef,
		Error:               m.Error,
		Attempts:            m.Attempts,
		SentAt:              m.SentAt,
	}
}

// SMSMessageModelFromDomain creates a new persistence model from a domain SMSMessage
func SMSMessageModelFromDomain(s *notification.SMSMessage) *SMSMessageModel {
	m := &SMSMessageModel{
		To:          s.To,
		Body:        s.Body,
		SenderID:    s.SenderID,
		Purpose:     s.Purpose,
		Status:      s.Status,
		ProviderRef: s.ProviderRef,
		Error:       s.Error,
		Attempts:    s.Attempts,
		SentAt:      s.SentAt,
	}
	m.FromDomainTenantAggregateRoot(s.TenantAggregateRoot)
	return m
}

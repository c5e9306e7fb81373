package models

import (
	"github.com/cloudpos/backend/internal/domain/branch"
	"github.com/cloudpos/backend/internal/domain/business"
	"github.com/cloudpos/backend/internal/domain/shared/valueobject"
)

// BranchModel is the persistence model for a branch
type BranchModel struct {
	TenantAggregateModel
	Code       string `gorm:"type:varchar(20);not null"`
	Name       string `gorm:"type:varchar(200);not null"`
	Address    string `gorm:"type:text"`
	Phone      string `gorm:"type:varchar(20)"`
	IsActive   bool   `gorm:"not null;default:true"`
	InvoiceSeq int64  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (BranchModel) TableName() string {
	return "branches"
}

// ToDomain converts the persistence model to a domain Branch
func (m *BranchModel) ToDomain() *branch.Branch {
	return &branch.Branch{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Code:                m.Code,
		Name:                m.Name,
		Address:             m.Address,
		Phone:               m.Phone,
		IsActive:            m.IsActive,
		InvoiceSeq:          m.InvoiceSeq,
	}
}

// FromDomain populates the persistence model from a domain Branch
func (m *BranchModel) FromDomain(b *branch.Branch) {
	m.FromDomainTenantAggregateRoot(b.TenantAggregateRoot)
	m.Code = b.Code
	m.Name = b.Name
	m.Address = b.Address
	m.Phone = b.Phone
	m.IsActive = b.IsActive
	m.InvoiceSeq = b.InvoiceSeq
}

// BranchModelFromDomain creates a new persistence model from a domain Branch
func BranchModelFromDomain(b *branch.Branch) *BranchModel {
	m := &BranchModel{}
	m.FromDomain(b)
	return m
}

// BusinessMetaModel is the per-tenant business profile row
type BusinessMetaModel struct {
	TenantAggregateModel
	BusinessName  string                `gorm:"type:varchar(200);not null"`
	Currency      string                `gorm:"type:varchar(3);not null;default:'LKR'"`
	Phone         string                `gorm:"type:varchar(20)"`
	Email         string                `gorm:"type:varchar(200)"`
	Address       string                `gorm:"type:text"`
	LogoKey       string                `gorm:"type:varchar(500)"`
	Categories    string                `gorm:"type:jsonb;not null;default:'[]'"`
	SMSEnabled    bool                  `gorm:"not null;default:false"`
	SMSSenderID   string                `gorm:"type:varchar(11)"`
	EBillEnabled  bool                  `gorm:"not null;default:false"`
	EBillChannel  business.EBillChannel `gorm:"type:varchar(10)"`
	InvoicePrefix string                `gorm:"type:varchar(10)"`
	ReceiptFooter string                `gorm:"type:text"`
	PlanCode      string                `gorm:"type:varchar(30)"`
}

// TableName returns the table name for GORM
func (BusinessMetaModel) TableName() string {
	return "business_meta"
}

// ToDomain converts the persistence model to a domain Meta
func (m *BusinessMetaModel) ToDomain() *business.Meta {
	meta := &business.Meta{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		BusinessName:        m.BusinessName,
		Currency:            valueobject.Currency(m.Currency),
		Phone:               m.Phone,
		Email:               m.Email,
		Address:             m.Address,
		LogoKey:             m.LogoKey,
		Categories:          make([]string, 0),
		SMSEnabled:          m.SMSEnabled,
		SMSSenderID:         m.SMSSenderID,
		EBillEnabled:        m.EBillEnabled,
		EBillChannel:        m.EBillChannel,
		InvoicePrefix:       m.InvoicePrefix,
		ReceiptFooter:       m.ReceiptFooter,
		PlanCode:            m.PlanCode,
	}
	unmarshalJSON(m.Categories, &meta.Categories)
	return meta
}

// FromDomain populates the persistence model from a domain Meta
func (m *BusinessMetaModel) FromDomain(meta *business.Meta) {
	m.FromDomainTenantAggregateRoot(meta.TenantAggregateRoot)
	m.BusinessName = meta.BusinessName
	m.Currency = string(meta.Currency)
	m.Phone = meta.Phone
	m.Email = meta.Email
	m.Address = meta.Address
	m.LogoKey = meta.LogoKey
	m.Categories = marshalJSON(meta.Categories, "[]")
	m.SMSEnabled = meta.SMSEnabled
	m.SMSSenderID = meta.SMSSenderID
	m.EBillEnabled = meta.EBillEnabled
	m.EBillChannel = meta.EBillChannel
	m.InvoicePrefix = meta.InvoicePrefix
	m.ReceiptFooter = meta.ReceiptFooter
	m.PlanCode = meta.PlanCode
}

// BusinessMetaModelFromDomain creates a new persistence model from a domain Meta
func BusinessMetaModelFromDomain(meta *business.Meta) *BusinessMetaModel {
	m := &BusinessMetaModel{}
	m.FromDomain(meta)
	return m
}

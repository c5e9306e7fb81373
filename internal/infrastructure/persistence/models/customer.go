package models

import (
	"github.com/cloudpos/backend/internal/domain/customer"
	"github.com/shopspring/decimal"
)

// CustomerModel is the persistence model for a customer
type CustomerModel struct {
	TenantAggregateModel
	Name          string          `gorm:"type:varchar(200);not null"`
	Phone         string          `gorm:"type:varchar(20);not null"`
	Email         string          `gorm:"type:varchar(200)"`
	Address       string          `gorm:"type:text"`
	Notes         string          `gorm:"type:text"`
	LoyaltyPoints int64           `gorm:"not null;default:0"`
	CreditBalance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalSpent    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	VisitCount    int             `gorm:"not null;default:0"`
	IsActive      bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer
func (m *CustomerModel) ToDomain() *customer.Customer {
	return &customer.Customer{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Name:                m.Name,
		Phone:               m.Phone,
		Email:               m.Email,
		Address:             m.Address,
		Notes:               m.Notes,
		LoyaltyPoints:       m.LoyaltyPoints,
		CreditBalance:       m.CreditBalance,
		TotalSpent:          m.TotalSpent,
		VisitCount:          m.VisitCount,
		IsActive:            m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain Customer
func (m *CustomerModel) FromDomain(c *customer.Customer) {
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	m.Name = c.Name
	m.Phone = c.Phone
	m.Email = c.Email
	m.Address = c.Address
	m.Notes = c.Notes
	m.LoyaltyPoints = c.LoyaltyPoints
	m.CreditBalance = c.CreditBalance
	m.TotalSpent = c.TotalSpent
	m.VisitCount = c.VisitCount
	m.IsActive = c.IsActive
}

// CustomerModelFromDomain creates a new persistence model from a domain Customer
func CustomerModelFromDomain(c *customer.Customer) *CustomerModel {
	m := &CustomerModel{}
	m.FromDomain(c)
	return m
}

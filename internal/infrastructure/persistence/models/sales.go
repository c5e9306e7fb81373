package models

import (
	"time"

	"github.com/cloudpos/backend/internal/domain/sales"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for a POS order
type OrderModel struct {
	BranchAggregateModel
	InvoiceNumber    string            `gorm:"type:varchar(50);index"`
	CustomerID       *uuid.UUID        `gorm:"type:uuid;index"`
	CashierID        uuid.UUID         `gorm:"type:uuid;not null;index"`
	ClientRef        string            `gorm:"type:varchar(64);index"`
	Subtotal         decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	DiscountTotal    decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	OrderDiscount    decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	TaxRate          decimal.Decimal   `gorm:"type:decimal(6,4);not null;default:0"`
	TaxAmount        decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	GrandTotal       decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	PaidTotal        decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	ChangeDue        decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	Status           sales.OrderStatus `gorm:"type:varchar(20);not null;index"`
	VoidReason       string            `gorm:"type:text"`
	VoidedAt         *time.Time
	CompletedAt      *time.Time `gorm:"index"`
	OfflineCreatedAt *time.Time
	Note             string              `gorm:"type:text"`
	Lines            []OrderLineModel    `gorm:"foreignKey:OrderID"`
	Payments         []OrderPaymentModel `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *sales.Order {
	o := &sales.Order{
		BranchAggregateRoot: m.ToBranchAggregateRoot(),
		InvoiceNumber:       m.InvoiceNumber,
		CustomerID:          m.CustomerID,
		CashierID:           m.CashierID,
		ClientRef:           m.ClientRef,
		Lines:               make([]sales.OrderLine, 0, len(m.Lines)),
		Subtotal:            m.Subtotal,
		DiscountTotal:       m.DiscountTotal,
		OrderDiscount:       m.OrderDiscount,
		TaxRate:             m.TaxRate,
		TaxAmount:           m.TaxAmount,
		GrandTotal:          m.GrandTotal,
		Payments:            make([]sales.OrderPayment, 0, len(m.Payments)),
		PaidTotal:           m.PaidTotal,
		ChangeDue:           m.ChangeDue,
		Status:              m.Status,
		VoidReason:          m.VoidReason,
		VoidedAt:            m.VoidedAt,
		CompletedAt:         m.CompletedAt,
		OfflineCreatedAt:    m.OfflineCreatedAt,
		Note:                m.Note,
	}
	for _, l := range m.Lines {
		o.Lines = append(o.Lines, l.ToDomain())
	}
	for _, p := range m.Payments {
		o.Payments = append(o.Payments, p.ToDomain())
	}
	return o
}

// FromDomain populates the persistence model from a domain Order
func (m *OrderModel) FromDomain(o *sales.Order) {
	m.FromDomainBranchAggregateRoot(o.BranchAggregateRoot)
	m.InvoiceNumber = o.InvoiceNumber
	m.CustomerID = o.CustomerID
	m.CashierID = o.CashierID
	m.ClientRef = o.ClientRef
	m.Subtotal = o.Subtotal
	m.DiscountTotal = o.DiscountTotal
	m.OrderDiscount = o.OrderDiscount
	m.TaxRate = o.TaxRate
	m.TaxAmount = o.TaxAmount
	m.GrandTotal = o.GrandTotal
	m.PaidTotal = o.PaidTotal
	m.ChangeDue = o.ChangeDue
	m.Status = o.Status
	m.VoidReason = o.VoidReason
	m.VoidedAt = o.VoidedAt
	m.CompletedAt = o.CompletedAt
	m.OfflineCreatedAt = o.OfflineCreatedAt
	m.Note = o.Note
	m.Lines = make([]OrderLineModel, 0, len(o.Lines))
	for i, l := range o.Lines {
		m.Lines = append(m.Lines, orderLineModelFromDomain(o, i, l))
	}
	m.Payments = make([]OrderPaymentModel, 0, len(o.Payments))
	for _, p := range o.Payments {
		m.Payments = append(m.Payments, OrderPaymentModel{
			ID:        p.ID,
			OrderID:   o.ID,
			TenantID:  o.TenantID,
			Method:    p.Method,
			Amount:    p.Amount,
			Reference: p.Reference,
		})
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order
func OrderModelFromDomain(o *sales.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderLineModel is a frozen line of an order
type OrderLineModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo        int             `gorm:"not null"`
	VariantID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName   string          `gorm:"type:varchar(200);not null"`
	VariationName string          `gorm:"type:varchar(200)"`
	SKU           string          `gorm:"column:sku;type:varchar(64)"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	PriceTier     string          `gorm:"type:varchar(50)"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CostPrice     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	LineDiscount  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	LineTotal     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_lines"
}

// ToDomain converts the persistence model to a domain OrderLine
func (m *OrderLineModel) ToDomain() sales.OrderLine {
	return sales.OrderLine{
		ID:            m.ID,
		VariantID:     m.VariantID,
		ProductName:   m.ProductName,
		VariationName: m.VariationName,
		SKU:           m.SKU,
		Quantity:      m.Quantity,
		PriceTier:     m.PriceTier,
		UnitPrice:     m.UnitPrice,
		CostPrice:     m.CostPrice,
		LineDiscount:  m.LineDiscount,
		LineTotal:     m.LineTotal,
	}
}

func orderLineModelFromDomain(o *sales.Order, idx int, l sales.OrderLine) OrderLineModel {
	return OrderLineModel{
		ID:            l.ID,
		OrderID:       o.ID,
		TenantID:      o.TenantID,
		LineNo:        idx + 1,
		VariantID:     l.VariantID,
		ProductName:   l.ProductName,
		VariationName: l.VariationName,
		SKU:           l.SKU,
		Quantity:      l.Quantity,
		PriceTier:     l.PriceTier,
		UnitPrice:     l.UnitPrice,
		CostPrice:     l.CostPrice,
		LineDiscount:  l.LineDiscount,
		LineTotal:     l.LineTotal,
	}
}

// OrderPaymentModel is one tender applied to an order
type OrderPaymentModel struct {
	ID        uuid.UUID           `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID           `gorm:"type:uuid;not null;index"`
	TenantID  uuid.UUID           `gorm:"type:uuid;not null;index"`
	Method    sales.PaymentMethod `gorm:"type:varchar(20);not null"`
	Amount    decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	Reference string              `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (OrderPaymentModel) TableName() string {
	return "order_payments"
}

// ToDomain converts the persistence model to a domain OrderPayment
func (m *OrderPaymentModel) ToDomain() sales.OrderPayment {
	return sales.OrderPayment{
		ID:        m.ID,
		Method:    m.Method,
		Amount:    m.Amount,
		Reference: m.Reference,
	}
}

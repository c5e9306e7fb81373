package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Scope selects the branches a report covers. Empty BranchIDs means every
// branch of the tenant.
type Scope struct {
	TenantID  uuid.UUID
	BranchIDs []uuid.UUID
}

// PaymentBreakdown is the paid amount per payment method
type PaymentBreakdown struct {
	Method string          `json:"method"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// DailySales summarises completed orders of one business day
type DailySales struct {
	Day        string             `json:"day"`
	OrderCount int64              `json:"order_count"`
	Gross      decimal.Decimal    `json:"gross"`
	Discounts  decimal.Decimal    `json:"discounts"`
	Tax        decimal.Decimal    `json:"tax"`
	Net        decimal.Decimal    `json:"net"`
	Voided     int64              `json:"voided"`
	ByMethod   []PaymentBreakdown `json:"by_method"`
}

// TopProduct is one row of the best seller ranking
type TopProduct struct {
	VariantID     uuid.UUID       `json:"variant_id"`
	ProductName   string          `json:"product_name"`
	VariationName string          `json:"variation_name,omitempty"`
	SKU           string          `json:"sku"`
	Quantity      decimal.Decimal `json:"quantity"`
	Revenue       decimal.Decimal `json:"revenue"`
	Profit        decimal.Decimal `json:"profit"`
}

// StockValue is the cost value of stock on hand
type StockValue struct {
	ItemCount     int64           `json:"item_count"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
	LowStockCount int64           `json:"low_stock_count"`
}

// Repository answers dashboard queries over the sales and inventory tables
type Repository interface {
	// DailySales covers orders completed in [from, to)
	DailySales(ctx context.Context, scope Scope, from, to time.Time) (*DailySales, error)
	TopProducts(ctx context.Context, scope Scope, from, to time.Time, limit int) ([]TopProduct, error)
	StockValue(ctx context.Context, scope Scope) (*StockValue, error)
}

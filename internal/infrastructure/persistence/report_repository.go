package persistence

import (
	"context"
	"time"

	"github.com/cloudpos/backend/internal/domain/report"
	"github.com/cloudpos/backend/internal/domain/sales"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormReportRepository implements report.Repository with aggregate queries
type GormReportRepository struct {
	db *gorm.DB
}

// NewGormReportRepository creates a new GormReportRepository
func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

// DailySales totals orders completed in [from, to)
func (r *GormReportRepository) DailySales(ctx context.Context, scope report.Scope, from, to time.Time) (*report.DailySales, error) {
	type totalsResult struct {
		OrderCount int64
		Gross      decimal.Decimal
		Discounts  decimal.Decimal
		Tax        decimal.Decimal
		Net        decimal.Decimal
	}

	var totals totalsResult
	if err := r.orders(ctx, scope, from, to).
		Select(`
			COUNT(*) AS order_count,
			COALESCE(SUM(o.subtotal), 0) AS gross,
			COALESCE(SUM(o.discount_total), 0) AS discounts,
			COALESCE(SUM(o.tax_amount), 0) AS tax,
			COALESCE(SUM(o.grand_total), 0) AS net
		`).
		Scan(&totals).Error; err != nil {
		return nil, err
	}

	var voided int64
	voidQuery := conn(ctx, r.db).Table("orders o").
		Where("o.tenant_id = ? AND o.status = ?", scope.TenantID, sales.OrderStatusVoided).
		Where("o.voided_at >= ? AND o.voided_at < ?", from, to)
	if len(scope.BranchIDs) > 0 {
		voidQuery = voidQuery.Where("o.branch_id IN ?", scope.BranchIDs)
	}
	if err := voidQuery.Count(&voided).Error; err != nil {
		return nil, err
	}

	// Change handed back reduces the cash tender so methods sum to net.
	var byMethod []report.PaymentBreakdown
	if err := r.orders(ctx, scope, from, to).
		Joins("JOIN order_payments op ON op.order_id = o.id").
		Select(`
			op.method AS method,
			COUNT(DISTINCT o.id) AS count,
			COALESCE(SUM(op.amount), 0) - COALESCE(SUM(CASE WHEN op.method = 'CASH' THEN o.change_due ELSE 0 END), 0) AS amount
		`).
		Group("op.method").
		Order("op.method").
		Scan(&byMethod).Error; err != nil {
		return nil, err
	}
	if byMethod == nil {
		byMethod = []report.PaymentBreakdown{}
	}

	return &report.DailySales{
		Day:        from.Format("2006-01-02"),
		OrderCount: totals.OrderCount,
		Gross:      totals.Gross,
		Discounts:  totals.Discounts,
		Tax:        totals.Tax,
		Net:        totals.Net,
		Voided:     voided,
		ByMethod:   byMethod,
	}, nil
}

// TopProducts ranks variants by revenue over completed orders in [from, to)
func (r *GormReportRepository) TopProducts(ctx context.Context, scope report.Scope, from, to time.Time, limit int) ([]report.TopProduct, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	type rankResult struct {
		VariantID     uuid.UUID
		ProductName   string
		VariationName string
		SKU           string `gorm:"column:sku"`
		Quantity      decimal.Decimal
		Revenue       decimal.Decimal
		Cost          decimal.Decimal
	}

	var results []rankResult
	if err := r.orders(ctx, scope, from, to).
		Joins("JOIN order_lines ol ON ol.order_id = o.id").
		Select(`
			ol.variant_id AS variant_id,
			MAX(ol.product_name) AS product_name,
			MAX(ol.variation_name) AS variation_name,
			MAX(ol.sku) AS sku,
			COALESCE(SUM(ol.quantity), 0) AS quantity,
			COALESCE(SUM(ol.line_total), 0) AS revenue,
			COALESCE(SUM(ol.cost_price * ol.quantity), 0) AS cost
		`).
		Group("ol.variant_id").
		Order("revenue DESC").
		Limit(limit).
		Scan(&results).Error; err != nil {
		return nil, err
	}

	out := make([]report.TopProduct, len(results))
	for i, res := range results {
		out[i] = report.TopProduct{
			VariantID:     res.VariantID,
			ProductName:   res.ProductName,
			VariationName: res.VariationName,
			SKU:           res.SKU,
			Quantity:      res.Quantity,
			Revenue:       res.Revenue,
			Profit:        res.Revenue.Sub(res.Cost),
		}
	}
	return out, nil
}

// StockValue sums quantity times current cost price over positive stock
func (r *GormReportRepository) StockValue(ctx context.Context, scope report.Scope) (*report.StockValue, error) {
	type valueResult struct {
		ItemCount     int64
		TotalQuantity decimal.Decimal
		TotalValue    decimal.Decimal
		LowStockCount int64
	}

	query := conn(ctx, r.db).Table("stock_items s").
		Joins("JOIN product_variants v ON v.id = s.variant_id").
		Select(`
			COUNT(*) AS item_count,
			COALESCE(SUM(GREATEST(s.quantity, 0)), 0) AS total_quantity,
			COALESCE(SUM(GREATEST(s.quantity, 0) * v.cost_price), 0) AS total_value,
			COUNT(*) FILTER (WHERE s.reorder_level > 0 AND s.quantity <= s.reorder_level) AS low_stock_count
		`).
		Where("s.tenant_id = ?", scope.TenantID)
	if len(scope.BranchIDs) > 0 {
		query = query.Where("s.branch_id IN ?", scope.BranchIDs)
	}

	var res valueResult
	if err := query.Scan(&res).Error; err != nil {
		return nil, err
	}
	return &report.StockValue{
		ItemCount:     res.ItemCount,
		TotalQuantity: res.TotalQuantity,
		TotalValue:    res.TotalValue.Round(2),
		LowStockCount: res.LowStockCount,
	}, nil
}

func (r *GormReportRepository) orders(ctx context.Context, scope report.Scope, from, to time.Time) *gorm.DB {
	query := conn(ctx, r.db).Table("orders o").
		Where("o.tenant_id = ? AND o.status = ?", scope.TenantID, sales.OrderStatusCompleted).
		Where("o.completed_at >= ? AND o.completed_at < ?", from, to)
	if len(scope.BranchIDs) > 0 {
		query = query.Where("o.branch_id IN ?", scope.BranchIDs)
	}
	return query
}

var _ report.Repository = (*GormReportRepository)(nil)

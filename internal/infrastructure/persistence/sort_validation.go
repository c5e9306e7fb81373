package persistence

import (
	"strings"

	"github.com/cloudpos/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// UserSortFields contains allowed sort fields for users
var UserSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"username":      true,
	"display_name":  true,
	"status":        true,
	"last_login_at": true,
}

// RoleSortFields contains allowed sort fields for roles
var RoleSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
}

// BranchSortFields contains allowed sort fields for branches
var BranchSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
}

// ProductSortFields contains allowed sort fields for products
var ProductSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"category":   true,
	"brand":      true,
}

// StockSortFields contains allowed sort fields for stock items
var StockSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"quantity":      true,
	"reorder_level": true,
}

// MovementSortFields contains allowed sort fields for the stock ledger
var MovementSortFields = map[string]bool{
	"created_at": true,
	"type":       true,
	"quantity":   true,
}

// OrderSortFields contains allowed sort fields for orders
var OrderSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"completed_at":   true,
	"invoice_number": true,
	"grand_total":    true,
	"status":         true,
}

// CustomerSortFields contains allowed sort fields for customers
var CustomerSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"name":           true,
	"phone":          true,
	"total_spent":    true,
	"credit_balance": true,
	"loyalty_points": true,
	"visit_count":    true,
}

// EntrySortFields contains allowed sort fields for expenses and incomes
var EntrySortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"date":       true,
	"amount":     true,
	"category":   true,
}

// SMSSortFields contains allowed sort fields for the SMS log
var SMSSortFields = map[string]bool{
	"created_at": true,
	"sent_at":    true,
	"status":     true,
}

// InvoiceSortFields contains allowed sort fields for billing invoices
var InvoiceSortFields = map[string]bool{
	"created_at":   true,
	"period_start": true,
	"amount":       true,
	"status":       true,
}

// orderBy renders a whitelisted ORDER BY clause for the filter
func orderBy(filter shared.Filter, allowed map[string]bool, defaultField string) string {
	return ValidateSortField(filter.OrderBy, allowed, defaultField) + " " + ValidateSortOrder(filter.OrderDir)
}

// paginate applies the filter's sort, offset and limit. Call after Count.
func paginate(query *gorm.DB, filter shared.Filter, allowed map[string]bool, defaultField string) *gorm.DB {
	filter.Normalize()
	return query.Order(orderBy(filter, allowed, defaultField)).
		Offset(filter.Offset()).
		Limit(filter.PageSize)
}

// scopeBranches narrows a query to the filter's branches when any are given
func scopeBranches(query *gorm.DB, column string, filter shared.Filter) *gorm.DB {
	if len(filter.BranchIDs) > 0 {
		query = query.Where(column+" IN ?", filter.BranchIDs)
	}
	return query
}

// scopePeriod applies the filter's [From, To) window to column
func scopePeriod(query *gorm.DB, column string, filter shared.Filter) *gorm.DB {
	if filter.From != nil {
		query = query.Where(column+" >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where(column+" < ?", *filter.To)
	}
	return query
}

// likePattern escapes LIKE wildcards in user input
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}

package catalog

import (
	"context"
	"time"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductFilter narrows product lists
type ProductFilter struct {
	shared.Filter
	Category string
	IsActive *bool
}

// VariantView is a variant joined with its product, the unit the POS sells
type VariantView struct {
	ProductVariant
	ProductName   string
	Category      string
	Unit          string
	TrackStock    bool
	ImageKey      string
	ProductActive bool
}

// Sellable reports whether both product and variant are active
func (v VariantView) Sellable() bool {
	return v.ProductActive && v.IsActive
}

// ProductRepository persists products with their variants
type ProductRepository interface {
	Save(ctx context.Context, p *ProductMeta) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ProductMeta, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter ProductFilter) ([]*ProductMeta, int64, error)
	FindVariantsByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]VariantView, error)
	FindVariantByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) (*VariantView, error)
	FindVariantBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*VariantView, error)
	SKUExists(ctx context.Context, tenantID uuid.UUID, sku string, excludeVariant uuid.UUID) (bool, error)
	BarcodeExists(ctx context.Context, tenantID uuid.UUID, barcode string, excludeVariant uuid.UUID) (bool, error)
	SearchVariants(ctx context.Context, tenantID uuid.UUID, query string, limit int) ([]VariantView, error)
	VariantsChangedSince(ctx context.Context, tenantID uuid.UUID, since time.Time, limit int) ([]VariantView, error)
	CountByCategory(ctx context.Context, tenantID uuid.UUID, category string) (int64, error)
	RenameCategory(ctx context.Context, tenantID uuid.UUID, oldName, newName string) error
}

// SearchIndex is the full-text index over sellable variants
type SearchIndex interface {
	IndexProduct(ctx context.Context, p *ProductMeta) error
	RemoveProduct(ctx context.Context, tenantID, productID uuid.UUID) error
	Search(ctx context.Context, tenantID uuid.UUID, query string, limit int) ([]uuid.UUID, error)
}

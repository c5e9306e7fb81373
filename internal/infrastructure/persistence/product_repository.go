package persistence

import (
	"context"
	"time"

	"github.com/cloudpos/backend/internal/domain/catalog"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const variantViewColumns = "v.*, p.name AS product_name, p.category, p.unit, p.track_stock, p.image_key, p.is_active AS product_active"

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// Save upserts the product and all of its variants
func (r *GormProductRepository) Save(ctx context.Context, p *catalog.ProductMeta) error {
	model := models.ProductModelFromDomain(p)
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		if len(model.Variants) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&model.Variants).Error
	})
}

// FindByID loads a product with its variants
func (r *GormProductRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*catalog.ProductMeta, error) {
	var model models.ProductModel
	if err := conn(ctx, r.db).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists products; Search matches name, brand or any variant SKU/barcode
func (r *GormProductRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter catalog.ProductFilter) ([]*catalog.ProductMeta, int64, error) {
	query := conn(ctx, r.db).Model(&models.ProductModel{}).Where("products.tenant_id = ?", tenantID)
	if filter.Category != "" {
		query = query.Where("products.category = ?", filter.Category)
	}
	if filter.IsActive != nil {
		query = query.Where("products.is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where(
			"products.name ILIKE ? OR products.brand ILIKE ? OR EXISTS (SELECT 1 FROM product_variants pv WHERE pv.product_id = products.id AND (pv.sku ILIKE ? OR pv.barcode ILIKE ?))",
			p, p, p, p)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var productModels []models.ProductModel
	if err := paginate(query, filter.Filter, ProductSortFields, "name").
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Find(&productModels).Error; err != nil {
		return nil, 0, err
	}
	products := make([]*catalog.ProductMeta, len(productModels))
	for i := range productModels {
		products[i] = productModels[i].ToDomain()
	}
	return products, total, nil
}

// FindVariantsByIDs returns the joined views of the given variants
func (r *GormProductRepository) FindVariantsByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]catalog.VariantView, error) {
	if len(ids) == 0 {
		return []catalog.VariantView{}, nil
	}
	var rows []models.VariantViewRow
	if err := r.variantQuery(ctx, tenantID).Where("v.id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toVariantViews(rows), nil
}

// FindVariantByBarcode finds a variant by its barcode
func (r *GormProductRepository) FindVariantByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) (*catalog.VariantView, error) {
	return r.findOneVariant(r.variantQuery(ctx, tenantID).Where("v.barcode = ?", barcode))
}

// FindVariantBySKU finds a variant by its SKU
func (r *GormProductRepository) FindVariantBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*catalog.VariantView, error) {
	return r.findOneVariant(r.variantQuery(ctx, tenantID).Where("v.sku = ?", sku))
}

// SKUExists reports whether another variant of the tenant uses sku
func (r *GormProductRepository) SKUExists(ctx context.Context, tenantID uuid.UUID, sku string, excludeVariant uuid.UUID) (bool, error) {
	return r.variantExists(ctx, tenantID, "sku", sku, excludeVariant)
}

// BarcodeExists reports whether another variant of the tenant uses barcode
func (r *GormProductRepository) BarcodeExists(ctx context.Context, tenantID uuid.UUID, barcode string, excludeVariant uuid.UUID) (bool, error) {
	return r.variantExists(ctx, tenantID, "barcode", barcode, excludeVariant)
}

// SearchVariants is the database search used when no search index is configured
func (r *GormProductRepository) SearchVariants(ctx context.Context, tenantID uuid.UUID, query string, limit int) ([]catalog.VariantView, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	p := likePattern(query)
	var rows []models.VariantViewRow
	if err := r.variantQuery(ctx, tenantID).
		Where("v.is_active = ? AND p.is_active = ?", true, true).
		Where("p.name ILIKE ? OR v.variation_name ILIKE ? OR v.sku ILIKE ? OR v.barcode ILIKE ?", p, p, p, p).
		Order("p.name, v.variation_name").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toVariantViews(rows), nil
}

// VariantsChangedSince returns variants whose row or product changed after
// since, including inactive ones, oldest change first
func (r *GormProductRepository) VariantsChangedSince(ctx context.Context, tenantID uuid.UUID, since time.Time, limit int) ([]catalog.VariantView, error) {
	if limit <= 0 {
		limit = 500
	}
	var rows []models.VariantViewRow
	if err := r.variantQuery(ctx, tenantID).
		Where("v.updated_at > ? OR p.updated_at > ?", since, since).
		Order("GREATEST(v.updated_at, p.updated_at), v.id").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toVariantViews(rows), nil
}

// CountByCategory counts products filed under a category
func (r *GormProductRepository) CountByCategory(ctx context.Context, tenantID uuid.UUID, category string) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.ProductModel{}).
		Where("tenant_id = ? AND category = ?", tenantID, category).
		Count(&count).Error
	return count, err
}

// RenameCategory moves every product of oldName to newName
func (r *GormProductRepository) RenameCategory(ctx context.Context, tenantID uuid.UUID, oldName, newName string) error {
	return conn(ctx, r.db).Model(&models.ProductModel{}).
		Where("tenant_id = ? AND category = ?", tenantID, oldName).
		Updates(map[string]any{"category": newName, "updated_at": time.Now()}).Error
}

func (r *GormProductRepository) variantQuery(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	return conn(ctx, r.db).Table("product_variants v").
		Select(variantViewColumns).
		Joins("JOIN products p ON p.id = v.product_id").
		Where("v.tenant_id = ?", tenantID)
}

func (r *GormProductRepository) findOneVariant(query *gorm.DB) (*catalog.VariantView, error) {
	var rows []models.VariantViewRow
	if err := query.Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, shared.ErrNotFound
	}
	v := rows[0].ToDomain()
	return &v, nil
}

func (r *GormProductRepository) variantExists(ctx context.Context, tenantID uuid.UUID, column, value string, exclude uuid.UUID) (bool, error) {
	if value == "" {
		return false, nil
	}
	query := conn(ctx, r.db).Model(&models.ProductVariantModel{}).
		Where("tenant_id = ? AND "+column+" = ?", tenantID, value)
	if exclude != uuid.Nil {
		query = query.Where("id <> ?", exclude)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func toVariantViews(rows []models.VariantViewRow) []catalog.VariantView {
	out := make([]catalog.VariantView, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)

package persistence

import (
	"context"
	"errors"

	"github.com/cloudpos/backend/internal/domain/inventory"
	"github.com/cloudpos/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInventoryRepository implements inventory.Repository using GORM
type GormInventoryRepository struct {
	db *gorm.DB
}

// NewGormInventoryRepository creates a new GormInventoryRepository
func NewGormInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

// Get returns the stock row of a variant in a branch
func (r *GormInventoryRepository) Get(ctx context.Context, tenantID, branchID, variantID uuid.UUID) (*inventory.StockItem, error) {
	var model models.StockItemModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND branch_id = ? AND variant_id = ?", tenantID, branchID, variantID).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// GetForUpdate locks the stock row with SELECT ... FOR UPDATE, inserting an
// empty row first when the variant has never been stocked in the branch.
// Must run inside a transaction to hold the lock.
func (r *GormInventoryRepository) GetForUpdate(ctx context.Context, tenantID, branchID, variantID uuid.UUID) (*inventory.StockItem, error) {
	db := conn(ctx, r.db)
	model, err := r.lockRow(db, tenantID, branchID, variantID)
	if err == nil {
		return model.ToDomain(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	item, err := inventory.NewStockItem(tenantID, branchID, variantID)
	if err != nil {
		return nil, err
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.StockItemModelFromDomain(item)).Error; err != nil {
		return nil, err
	}

	model, err = r.lockRow(db, tenantID, branchID, variantID)
	if err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

func (r *GormInventoryRepository) lockRow(db *gorm.DB, tenantID, branchID, variantID uuid.UUID) (*models.StockItemModel, error) {
	var model models.StockItemModel
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND branch_id = ? AND variant_id = ?", tenantID, branchID, variantID).
		First(&model).Error; err != nil {
		return nil, err
	}
	return &model, nil
}

// FindByID finds a stock row by ID within a tenant
func (r *GormInventoryRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.StockItem, error) {
	var model models.StockItemModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// Save writes the item only if nobody changed it since it was read
func (r *GormInventoryRepository) Save(ctx context.Context, item *inventory.StockItem) error {
	db := conn(ctx, r.db)
	model := models.StockItemModelFromDomain(item)
	result := db.Model(&models.StockItemModel{}).
		Where("id = ? AND version = ?", item.ID, item.Version-1).
		Select("quantity", "reorder_level", "version", "updated_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&models.StockItemModel{}).Where("id = ?", item.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return staleVersion("stock item")
	}
	return db.Create(model).Error
}

// SaveMovement appends a ledger line
func (r *GormInventoryRepository) SaveMovement(ctx context.Context, m *inventory.StockMovement) error {
	return conn(ctx, r.db).Create(models.StockMovementModelFromDomain(m)).Error
}

// List returns stock rows; LowOnly keeps rows at or below their reorder level
func (r *GormInventoryRepository) List(ctx context.Context, tenantID uuid.UUID, filter inventory.StockFilter) ([]*inventory.StockItem, int64, error) {
	query := conn(ctx, r.db).Model(&models.StockItemModel{}).Where("stock_items.tenant_id = ?", tenantID)
	query = scopeBranches(query, "stock_items.branch_id", filter.Filter)
	if filter.LowOnly {
		query = query.Where("stock_items.reorder_level > 0 AND stock_items.quantity <= stock_items.reorder_level")
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where("EXISTS (SELECT 1 FROM product_variants v JOIN products p ON p.id = v.product_id WHERE v.id = stock_items.variant_id AND (p.name ILIKE ? OR v.sku ILIKE ? OR v.barcode ILIKE ?))", p, p, p)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var itemModels []models.StockItemModel
	if err := paginate(query, filter.Filter, StockSortFields, "updated_at").Find(&itemModels).Error; err != nil {
		return nil, 0, err
	}
	items := make([]*inventory.StockItem, len(itemModels))
	for i := range itemModels {
		items[i] = itemModels[i].ToDomain()
	}
	return items, total, nil
}

// ListMovements pages through the stock ledger, newest first by default
func (r *GormInventoryRepository) ListMovements(ctx context.Context, tenantID uuid.UUID, filter inventory.MovementFilter) ([]*inventory.StockMovement, int64, error) {
	query := conn(ctx, r.db).Model(&models.StockMovementModel{}).Where("tenant_id = ?", tenantID)
	query = scopeBranches(query, "branch_id", filter.Filter)
	query = scopePeriod(query, "created_at", filter.Filter)
	if filter.VariantID != nil {
		query = query.Where("variant_id = ?", *filter.VariantID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Search != "" {
		query = query.Where("reference ILIKE ?", likePattern(filter.Search))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.StockMovementModel
	if err := paginate(query, filter.Filter, MovementSortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	movements := make([]*inventory.StockMovement, len(rows))
	for i := range rows {
		movements[i] = rows[i].ToDomain()
	}
	return movements, total, nil
}

var _ inventory.Repository = (*GormInventoryRepository)(nil)

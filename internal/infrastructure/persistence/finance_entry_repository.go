package persistence

import (
	"context"
	"time"

	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/cloudpos/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormEntryRepository implements finance.EntryRepository using GORM
type GormEntryRepository struct {
	db *gorm.DB
}

// NewGormEntryRepository creates a new GormEntryRepository
func NewGormEntryRepository(db *gorm.DB) *GormEntryRepository {
	return &GormEntryRepository{db: db}
}

// Save creates or updates an expense or income entry
func (r *GormEntryRepository) Save(ctx context.Context, e *finance.Entry) error {
	return conn(ctx, r.db).Save(models.FinanceEntryModelFromDomain(e)).Error
}

// FindByID finds an entry by ID within a tenant
func (r *GormEntryRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.Entry, error) {
	var model models.FinanceEntryModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists entries; From/To apply to the entry date
func (r *GormEntryRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter finance.EntryFilter) ([]*finance.Entry, int64, error) {
	query := conn(ctx, r.db).Model(&models.FinanceEntryModel{}).Where("tenant_id = ?", tenantID)
	query = scopeBranches(query, "branch_id", filter.Filter)
	query = scopePeriod(query, "date", filter.Filter)
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where("category ILIKE ? OR reference ILIKE ? OR note ILIKE ?", p, p, p)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.FinanceEntryModel
	if err := paginate(query, filter.Filter, EntrySortFields, "date").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	entries := make([]*finance.Entry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, total, nil
}

// SumByCategory totals recorded entries dated in [from, to) by kind and category
func (r *GormEntryRepository) SumByCategory(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, from, to time.Time) ([]finance.CategoryAmount, error) {
	type sumResult struct {
		Kind     finance.EntryKind
		Category string
		Amount   decimal.Decimal
	}

	query := conn(ctx, r.db).Model(&models.FinanceEntryModel{}).
		Select("kind, category, COALESCE(SUM(amount), 0) AS amount").
		Where("tenant_id = ? AND status = ?", tenantID, finance.EntryStatusRecorded).
		Where("date >= ? AND date < ?", from, to)
	if len(branchIDs) > 0 {
		query = query.Where("branch_id IN ?", branchIDs)
	}

	var results []sumResult
	if err := query.Group("kind, category").Order("kind, amount DESC").Scan(&results).Error; err != nil {
		return nil, err
	}
	out := make([]finance.CategoryAmount, len(results))
	for i, res := range results {
		out[i] = finance.CategoryAmount{Kind: res.Kind, Category: res.Category, Amount: res.Amount}
	}
	return out, nil
}

var _ finance.EntryRepository = (*GormEntryRepository)(nil)

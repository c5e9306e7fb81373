package persistence

import (
	"context"

	"github.com/cloudpos/backend/internal/domain/branch"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBranchRepository implements branch.Repository using GORM
type GormBranchRepository struct {
	db *gorm.DB
}

// NewGormBranchRepository creates a new GormBranchRepository
func NewGormBranchRepository(db *gorm.DB) *GormBranchRepository {
	return &GormBranchRepository{db: db}
}

// Save creates or updates a branch. The invoice sequence is only advanced by
// NextInvoiceNumber and is never overwritten here.
func (r *GormBranchRepository) Save(ctx context.Context, b *branch.Branch) error {
	model := models.BranchModelFromDomain(b)
	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"code", "name", "address", "phone", "is_active", "version", "updated_at"}),
	}).Create(model).Error
}

// FindByID finds a branch by ID within a tenant
func (r *GormBranchRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*branch.Branch, error) {
	var model models.BranchModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByCode finds a branch by its code within a tenant
func (r *GormBranchRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*branch.Branch, error) {
	var model models.BranchModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists branches. BranchIDs in the filter restrict the result.
func (r *GormBranchRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*branch.Branch, int64, error) {
	query := conn(ctx, r.db).Model(&models.BranchModel{}).Where("tenant_id = ?", tenantID)
	query = scopeBranches(query, "id", filter)
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where("code ILIKE ? OR name ILIKE ?", p, p)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var branchModels []models.BranchModel
	if err := paginate(query, filter, BranchSortFields, "code").Find(&branchModels).Error; err != nil {
		return nil, 0, err
	}
	branches := make([]*branch.Branch, len(branchModels))
	for i := range branchModels {
		branches[i] = branchModels[i].ToDomain()
	}
	return branches, total, nil
}

// ExistsByCode checks if a branch code is taken within a tenant
func (r *GormBranchRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.BranchModel{}).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count counts the branches of a tenant
func (r *GormBranchRepository) Count(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.BranchModel{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error
	return count, err
}

// NextInvoiceNumber locks the branch row, bumps its sequence and returns the
// new value. Outside a transaction the lock lasts only for this call.
func (r *GormBranchRepository) NextInvoiceNumber(ctx context.Context, tenantID, id uuid.UUID) (string, int64, error) {
	var code string
	var seq int64
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var model models.BranchModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND id = ?", tenantID, id).
			First(&model).Error; err != nil {
			return notFound(err)
		}
		seq = model.InvoiceSeq + 1
		if err := tx.Model(&models.BranchModel{}).
			Where("id = ?", id).
			Update("invoice_seq", seq).Error; err != nil {
			return err
		}
		code = model.Code
		return nil
	})
	if err != nil {
		return "", 0, err
	}
	return code, seq, nil
}

var _ branch.Repository = (*GormBranchRepository)(nil)

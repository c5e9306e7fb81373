package persistence

import (
	"context"

	"github.com/cloudpos/backend/internal/domain/business"
	"github.com/cloudpos/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBusinessRepository implements business.Repository using GORM
type GormBusinessRepository struct {
	db *gorm.DB
}

// NewGormBusinessRepository creates a new GormBusinessRepository
func NewGormBusinessRepository(db *gorm.DB) *GormBusinessRepository {
	return &GormBusinessRepository{db: db}
}

// Save creates or updates the tenant's business profile
func (r *GormBusinessRepository) Save(ctx context.Context, m *business.Meta) error {
	return conn(ctx, r.db).Save(models.BusinessMetaModelFromDomain(m)).Error
}

// Get returns the business profile of a tenant
func (r *GormBusinessRepository) Get(ctx context.Context, tenantID uuid.UUID) (*business.Meta, error) {
	var model models.BusinessMetaModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ?", tenantID).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

var _ business.Repository = (*GormBusinessRepository)(nil)

package persistence

import (
	"context"

	"github.com/cloudpos/backend/internal/domain/customer"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCustomerRepository implements customer.Repository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// Save creates or updates a customer
func (r *GormCustomerRepository) Save(ctx context.Context, c *customer.Customer) error {
	return conn(ctx, r.db).Save(models.CustomerModelFromDomain(c)).Error
}

// FindByID finds a customer by ID within a tenant
func (r *GormCustomerRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*customer.Customer, error) {
	var model models.CustomerModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds a customer and takes a row lock
func (r *GormCustomerRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*customer.Customer, error) {
	var model models.CustomerModel
	if err := conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByPhone finds a customer by normalized phone number within a tenant
func (r *GormCustomerRepository) FindByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*customer.Customer, error) {
	if phone == "" {
		return nil, shared.NewDomainError("INVALID_PHONE", "Phone cannot be empty")
	}
	var model models.CustomerModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND phone = ?", tenantID, phone).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists customers; Search matches name, phone or email
func (r *GormCustomerRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*customer.Customer, int64, error) {
	query := conn(ctx, r.db).Model(&models.CustomerModel{}).Where("tenant_id = ?", tenantID)
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where("name ILIKE ? OR phone ILIKE ? OR email ILIKE ?", p, p, p)
	}
	if active, ok := filter.Filters["is_active"].(bool); ok {
		query = query.Where("is_active = ?", active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var customerModels []models.CustomerModel
	if err := paginate(query, filter, CustomerSortFields, "created_at").Find(&customerModels).Error; err != nil {
		return nil, 0, err
	}
	customers := make([]*customer.Customer, len(customerModels))
	for i := range customerModels {
		customers[i] = customerModels[i].ToDomain()
	}
	return customers, total, nil
}

// ExistsByPhone checks if another customer of the tenant uses phone
func (r *GormCustomerRepository) ExistsByPhone(ctx context.Context, tenantID uuid.UUID, phone string, exclude uuid.UUID) (bool, error) {
	query := conn(ctx, r.db).Model(&models.CustomerModel{}).
		Where("tenant_id = ? AND phone = ?", tenantID, phone)
	if exclude != uuid.Nil {
		query = query.Where("id <> ?", exclude)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

var _ customer.Repository = (*GormCustomerRepository)(nil)

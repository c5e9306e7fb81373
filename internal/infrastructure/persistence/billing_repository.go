package persistence

import (
	"context"

	"github.com/cloudpos/backend/internal/domain/billing"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSubscriptionRepository implements billing.SubscriptionRepository using GORM
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// Save creates or updates the tenant's subscription
func (r *GormSubscriptionRepository) Save(ctx context.Context, s *billing.Subscription) error {
	return conn(ctx, r.db).Save(models.SubscriptionModelFromDomain(s)).Error
}

// FindByTenant returns the subscription of a tenant
func (r *GormSubscriptionRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ?", tenantID).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindSweepable pages by ID through subscriptions that can still change state
func (r *GormSubscriptionRepository) FindSweepable(ctx context.Context, afterID uuid.UUID, limit int) ([]*billing.Subscription, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.SubscriptionModel
	if err := conn(ctx, r.db).
		Where("status NOT IN ?", []billing.SubscriptionStatus{billing.StatusCancelled, billing.StatusExpired}).
		Where("id > ?", afterID).
		Order("id").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*billing.Subscription, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// GormInvoiceRepository implements billing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Save creates or updates a billing invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, inv *billing.Invoice) error {
	return conn(ctx, r.db).Save(models.InvoiceModelFromDomain(inv)).Error
}

// FindByID finds an invoice by ID within a tenant
func (r *GormInvoiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists the invoices of a tenant
func (r *GormInvoiceRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*billing.Invoice, int64, error) {
	query := conn(ctx, r.db).Model(&models.InvoiceModel{}).Where("tenant_id = ?", tenantID)
	query = scopePeriod(query, "period_start", filter)
	if status, ok := filter.Filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InvoiceModel
	if err := paginate(query, filter, InvoiceSortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*billing.Invoice, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// FindOpen returns unpaid invoices, oldest first
func (r *GormInvoiceRepository) FindOpen(ctx context.Context, tenantID uuid.UUID) ([]*billing.Invoice, error) {
	var rows []models.InvoiceModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND status = ?", tenantID, billing.InvoiceStatusOpen).
		Order("created_at").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*billing.Invoice, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var (
	_ billing.SubscriptionRepository = (*GormSubscriptionRepository)(nil)
	_ billing.InvoiceRepository      = (*GormInvoiceRepository)(nil)
)

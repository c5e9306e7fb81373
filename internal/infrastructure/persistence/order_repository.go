package persistence

import (
	"context"
	"time"

	"github.com/cloudpos/backend/internal/domain/sales"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements sales.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Save inserts a new order with its lines and payments. Later saves only move
// the status fields and payment references, and only if the stored version is
// the one the order was loaded at; otherwise shared.ErrConcurrencyConflict.
func (r *GormOrderRepository) Save(ctx context.Context, o *sales.Order) error {
	model := models.OrderModelFromDomain(o)
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if o.Version <= 1 {
			if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
				return duplicate(err)
			}
			if len(model.Lines) > 0 {
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Lines).Error; err != nil {
					return err
				}
			}
		} else {
			result := tx.Model(&models.OrderModel{}).
				Where("tenant_id = ? AND id = ? AND version = ?", o.TenantID, o.ID, o.Version-1).
				Updates(map[string]any{
					"status":       model.Status,
					"void_reason":  model.VoidReason,
					"voided_at":    model.VoidedAt,
					"completed_at": model.CompletedAt,
					"note":         model.Note,
					"version":      model.Version,
					"updated_at":   model.UpdatedAt,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return shared.ErrConcurrencyConflict
			}
		}
		if len(model.Payments) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"reference"}),
			}).Create(&model.Payments).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID loads an order with lines and payments
func (r *GormOrderRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*sales.Order, error) {
	return r.findOne(r.withChildren(conn(ctx, r.db)).Where("tenant_id = ? AND id = ?", tenantID, id))
}

// FindByClientRef finds the order created from an offline client reference
func (r *GormOrderRepository) FindByClientRef(ctx context.Context, tenantID uuid.UUID, clientRef string) (*sales.Order, error) {
	return r.findOne(r.withChildren(conn(ctx, r.db)).Where("tenant_id = ? AND client_ref = ?", tenantID, clientRef))
}

// FindByInvoiceNumber finds an order by its invoice number
func (r *GormOrderRepository) FindByInvoiceNumber(ctx context.Context, tenantID uuid.UUID, number string) (*sales.Order, error) {
	return r.findOne(r.withChildren(conn(ctx, r.db)).Where("tenant_id = ? AND invoice_number = ?", tenantID, number))
}

// FindAll lists orders matching the filter
func (r *GormOrderRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter sales.OrderFilter) ([]*sales.Order, int64, error) {
	query := conn(ctx, r.db).Model(&models.OrderModel{}).Where("tenant_id = ?", tenantID)
	query = scopeBranches(query, "branch_id", filter.Filter)
	query = scopePeriod(query, "created_at", filter.Filter)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CashierID != nil {
		query = query.Where("cashier_id = ?", *filter.CashierID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where("invoice_number ILIKE ? OR client_ref ILIKE ?", p, p)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orderModels []models.OrderModel
	if err := r.withChildren(paginate(query, filter.Filter, OrderSortFields, "created_at")).
		Find(&orderModels).Error; err != nil {
		return nil, 0, err
	}
	orders := make([]*sales.Order, len(orderModels))
	for i := range orderModels {
		orders[i] = orderModels[i].ToDomain()
	}
	return orders, total, nil
}

// CountPending counts unpaid gateway orders of a branch
func (r *GormOrderRepository) CountPending(ctx context.Context, tenantID, branchID uuid.UUID) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.OrderModel{}).
		Where("tenant_id = ? AND branch_id = ? AND status = ?", tenantID, branchID, sales.OrderStatusPendingPayment).
		Count(&count).Error
	return count, err
}

// FindStalePending returns pending orders created before cutoff, across tenants
func (r *GormOrderRepository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*sales.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var orderModels []models.OrderModel
	if err := r.withChildren(conn(ctx, r.db)).
		Where("status = ? AND created_at < ?", sales.OrderStatusPendingPayment, cutoff).
		Order("created_at").
		Limit(limit).
		Find(&orderModels).Error; err != nil {
		return nil, err
	}
	orders := make([]*sales.Order, len(orderModels))
	for i := range orderModels {
		orders[i] = orderModels[i].ToDomain()
	}
	return orders, nil
}

func (r *GormOrderRepository) withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no") }).
		Preload("Payments")
}

func (r *GormOrderRepository) findOne(query *gorm.DB) (*sales.Order, error) {
	var model models.OrderModel
	if err := query.First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

var _ sales.Repository = (*GormOrderRepository)(nil)

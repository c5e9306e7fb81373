package persistence

import (
	"context"

	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/cloudpos/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentTransactionRepository implements finance.PaymentTransactionRepository using GORM
type GormPaymentTransactionRepository struct {
	db *gorm.DB
}

// NewGormPaymentTransactionRepository creates a new GormPaymentTransactionRepository
func NewGormPaymentTransactionRepository(db *gorm.DB) *GormPaymentTransactionRepository {
	return &GormPaymentTransactionRepository{db: db}
}

// Save creates or updates a gateway transaction
func (r *GormPaymentTransactionRepository) Save(ctx context.Context, tx *finance.PaymentTransaction) error {
	return conn(ctx, r.db).Save(models.PaymentTransactionModelFromDomain(tx)).Error
}

// FindByID finds a transaction by ID. Gateway callbacks carry no tenant.
func (r *GormPaymentTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.PaymentTransaction, error) {
	var model models.PaymentTransactionModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByOrderNumber finds a transaction by the merchant order id sent to the gateway
func (r *GormPaymentTransactionRepository) FindByOrderNumber(ctx context.Context, gateway finance.PaymentGatewayType, orderNumber string) (*finance.PaymentTransaction, error) {
	var model models.PaymentTransactionModel
	if err := conn(ctx, r.db).
		Where("gateway = ? AND order_number = ?", gateway, orderNumber).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByReference lists attempts made for one order or invoice, newest first
func (r *GormPaymentTransactionRepository) FindByReference(ctx context.Context, tenantID uuid.UUID, purpose finance.PaymentPurpose, referenceID uuid.UUID) ([]*finance.PaymentTransaction, error) {
	var rows []models.PaymentTransactionModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND purpose = ? AND reference_id = ?", tenantID, purpose, referenceID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*finance.PaymentTransaction, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var _ finance.PaymentTransactionRepository = (*GormPaymentTransactionRepository)(nil)

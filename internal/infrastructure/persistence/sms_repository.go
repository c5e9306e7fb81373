package persistence

import (
	"context"
	"time"

	"github.com/cloudpos/backend/internal/domain/notification"
	"github.com/cloudpos/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSMSRepository implements notification.SMSRepository using GORM
type GormSMSRepository struct {
	db *gorm.DB
}

// NewGormSMSRepository creates a new GormSMSRepository
func NewGormSMSRepository(db *gorm.DB) *GormSMSRepository {
	return &GormSMSRepository{db: db}
}

// Save creates or updates an SMS log row
func (r *GormSMSRepository) Save(ctx context.Context, m *notification.SMSMessage) error {
	return conn(ctx, r.db).Save(models.SMSMessageModelFromDomain(m)).Error
}

// FindAll pages through the SMS log
func (r *GormSMSRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter notification.SMSFilter) ([]*notification.SMSMessage, int64, error) {
	query := conn(ctx, r.db).Model(&models.SMSMessageModel{}).Where("tenant_id = ?", tenantID)
	query = scopePeriod(query, "created_at", filter.Filter)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Purpose != "" {
		query = query.Where("purpose = ?", filter.Purpose)
	}
	if filter.Search != "" {
		query = query.Where("to_number ILIKE ?", likePattern(filter.Search))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.SMSMessageModel
	if err := paginate(query, filter.Filter, SMSSortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*notification.SMSMessage, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// CountSent counts messages delivered in [from, to)
func (r *GormSMSRepository) CountSent(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.SMSMessageModel{}).
		Where("tenant_id = ? AND status = ?", tenantID, notification.SMSStatusSent).
		Where("sent_at >= ? AND sent_at < ?", from, to).
		Count(&count).Error
	return count, err
}

// FindRetryable returns failed messages that still have attempts left
func (r *GormSMSRepository) FindRetryable(ctx context.Context, limit int) ([]*notification.SMSMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.SMSMessageModel
	if err := conn(ctx, r.db).
		Where("status = ? AND attempts < ?", notification.SMSStatusFailed, notification.MaxAttempts).
		Order("updated_at").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*notification.SMSMessage, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var _ notification.SMSRepository = (*GormSMSRepository)(nil)

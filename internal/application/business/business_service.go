package business

import (
	"context"

	"github.com/cloudpos/backend/internal/domain/business"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	PermEditBusiness = "edit:business"
	PermEditProduct  = "edit:product"
)

// CategoryUsage is the product side of category maintenance
type CategoryUsage interface {
	CountByCategory(ctx context.Context, tenantID uuid.UUID, category string) (int64, error)
	RenameCategory(ctx context.Context, tenantID uuid.UUID, oldName, newName string) error
}

// BusinessService manages the BusinessMeta singleton
type BusinessService struct {
	repo      business.Repository
	products  CategoryUsage
	tx        shared.TxManager
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewBusinessService creates a new BusinessService
func NewBusinessService(
	repo business.Repository,
	products CategoryUsage,
	tx shared.TxManager,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *BusinessService {
	return &BusinessService{
		repo:      repo,
		products:  products,
		tx:        tx,
		publisher: publisher,
		logger:    logger,
	}
}

// Get returns the settings of the principal's business. Every staff member
// may read them; receipts and the POS screen depend on them.
func (s *BusinessService) Get(ctx context.Context, p *identity.Principal) (*BusinessResponse, error) {
	meta, err := s.repo.Get(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}
	resp := ToBusinessResponse(meta)
	return &resp, nil
}

// Update edits the business profile
func (s *BusinessService) Update(ctx context.Context, p *identity.Principal, req UpdateBusinessRequest) (*BusinessResponse, error) {
	return s.mutate(ctx, p, PermEditBusiness, func(ctx context.Context, m *business.Meta) error {
		return m.UpdateProfile(business.Profile{
			BusinessName:  req.BusinessName,
			Currency:      valueobject.Currency(req.Currency),
			Phone:         req.Phone,
			Email:         req.Email,
			Address:       req.Address,
			LogoKey:       req.LogoKey,
			InvoicePrefix: req.InvoicePrefix,
			ReceiptFooter: req.ReceiptFooter,
		})
	})
}

// AddCategory appends a product category
func (s *BusinessService) AddCategory(ctx context.Context, p *identity.Principal, name string) (*BusinessResponse, error) {
	return s.mutate(ctx, p, PermEditProduct, func(_ context.Context, m *business.Meta) error {
		return m.AddCategory(name)
	})
}

// RenameCategory renames a category and every product that uses it
func (s *BusinessService) RenameCategory(ctx context.Context, p *identity.Principal, oldName, newName string) (*BusinessResponse, error) {
	return s.mutate(ctx, p, PermEditProduct, func(ctx context.Context, m *business.Meta) error {
		if err := m.RenameCategory(oldName, newName); err != nil {
			return err
		}
		return s.products.RenameCategory(ctx, p.TenantID, oldName, newName)
	})
}

// RemoveCategory deletes a category no product uses
func (s *BusinessService) RemoveCategory(ctx context.Context, p *identity.Principal, name string) (*BusinessResponse, error) {
	return s.mutate(ctx, p, PermEditProduct, func(ctx context.Context, m *business.Meta) error {
		count, err := s.products.CountByCategory(ctx, p.TenantID, name)
		if err != nil {
			return err
		}
		return m.RemoveCategory(name, count)
	})
}

// SetSMS toggles SMS and sets the sender mask
func (s *BusinessService) SetSMS(ctx context.Context, p *identity.Principal, req SMSSettingsRequest) (*BusinessResponse, error) {
	return s.mutate(ctx, p, PermEditBusiness, func(_ context.Context, m *business.Meta) error {
		return m.SetSMS(req.Enabled, req.SenderID)
	})
}

// SetEBill toggles e-bills and the delivery channel
func (s *BusinessService) SetEBill(ctx context.Context, p *identity.Principal, req EBillSettingsRequest) (*BusinessResponse, error) {
	return s.mutate(ctx, p, PermEditBusiness, func(_ context.Context, m *business.Meta) error {
		return m.SetEBill(req.Enabled, business.EBillChannel(req.Channel))
	})
}

func (s *BusinessService) mutate(ctx context.Context, p *identity.Principal, perm string, fn func(ctx context.Context, m *business.Meta) error) (*BusinessResponse, error) {
	if err := p.Require(perm, nil); err != nil {
		return nil, err
	}

	var meta *business.Meta
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		m, err := s.repo.Get(ctx, p.TenantID)
		if err != nil {
			return err
		}
		if err := fn(ctx, m); err != nil {
			return err
		}
		meta = m
		return s.repo.Save(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	if err := shared.PublishAndClear(ctx, s.publisher, meta); err != nil {
		s.logger.Warn("Failed to publish business events", zap.Error(err))
	}
	resp := ToBusinessResponse(meta)
	return &resp, nil
}

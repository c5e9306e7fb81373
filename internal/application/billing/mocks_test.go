package billing

import (
	"context"

	"github.com/cloudpos/backend/internal/domain/billing"
	"github.com/cloudpos/backend/internal/domain/branch"
	"github.com/cloudpos/backend/internal/domain/business"
	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Save(ctx context.Context, s *billing.Subscription) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSubscriptionRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindSweepable(ctx context.Context, afterID uuid.UUID, limit int) ([]*billing.Subscription, error) {
	args := m.Called(ctx, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Subscription), args.Error(1)
}

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) Save(ctx context.Context, inv *billing.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*billing.Invoice, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*billing.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceRepository) FindOpen(ctx context.Context, tenantID uuid.UUID) ([]*billing.Invoice, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Invoice), args.Error(1)
}

type MockPaymentStarter struct {
	mock.Mock
}

func (m *MockPaymentStarter) StartPayment(ctx context.Context, intent finance.PaymentIntent) (*finance.PaymentTransaction, *finance.CreatePaymentResponse, error) {
	args := m.Called(ctx, intent)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*finance.PaymentTransaction), args.Get(1).(*finance.CreatePaymentResponse), args.Error(2)
}

// branchCounter reports a fixed branch count
type branchCounter struct {
	branch.Repository
	count int64
}

func (b *branchCounter) Count(context.Context, uuid.UUID) (int64, error) {
	return b.count, nil
}

// userCounter reports a fixed user count
type userCounter struct {
	identity.UserRepository
	count int64
}

func (u *userCounter) Count(context.Context, uuid.UUID) (int64, error) {
	return u.count, nil
}

type metaStore struct {
	meta *business.Meta
}

func (s *metaStore) Save(_ context.Context, m *business.Meta) error {
	s.meta = m
	return nil
}

func (s *metaStore) Get(context.Context, uuid.UUID) (*business.Meta, error) {
	if s.meta == nil {
		return nil, shared.ErrNotFound
	}
	return s.meta, nil
}

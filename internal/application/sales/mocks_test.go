package sales

import (
	"context"
	"time"

	"github.com/cloudpos/backend/internal/domain/branch"
	"github.com/cloudpos/backend/internal/domain/business"
	"github.com/cloudpos/backend/internal/domain/catalog"
	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/cloudpos/backend/internal/domain/inventory"
	"github.com/cloudpos/backend/internal/domain/sales"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Save(ctx context.Context, o *sales.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*sales.Order, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByClientRef(ctx context.Context, tenantID uuid.UUID, clientRef string) (*sales.Order, error) {
	args := m.Called(ctx, tenantID, clientRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByInvoiceNumber(ctx context.Context, tenantID uuid.UUID, number string) (*sales.Order, error) {
	args := m.Called(ctx, tenantID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter sales.OrderFilter) ([]*sales.Order, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*sales.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) CountPending(ctx context.Context, tenantID, branchID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, branchID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*sales.Order, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*sales.Order), args.Error(1)
}

type MockBranchRepository struct {
	mock.Mock
}

func (m *MockBranchRepository) Save(ctx context.Context, b *branch.Branch) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockBranchRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*branch.Branch, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*branch.Branch), args.Error(1)
}

func (m *MockBranchRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*branch.Branch, error) {
	args := m.Called(ctx, tenantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*branch.Branch), args.Error(1)
}

func (m *MockBranchRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*branch.Branch, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*branch.Branch), args.Get(1).(int64), args.Error(2)
}

func (m *MockBranchRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	args := m.Called(ctx, tenantID, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockBranchRepository) Count(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBranchRepository) NextInvoiceNumber(ctx context.Context, tenantID, id uuid.UUID) (string, int64, error) {
	args := m.Called(ctx, tenantID, id)
	return args.String(0), args.Get(1).(int64), args.Error(2)
}

type MockBusinessRepository struct {
	mock.Mock
}

func (m *MockBusinessRepository) Save(ctx context.Context, meta *business.Meta) error {
	return m.Called(ctx, meta).Error(0)
}

func (m *MockBusinessRepository) Get(ctx context.Context, tenantID uuid.UUID) (*business.Meta, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*business.Meta), args.Error(1)
}

type MockStockKeeper struct {
	mock.Mock
}

func (m *MockStockKeeper) Deduct(ctx context.Context, tenantID, branchID uuid.UUID, lines []inventory.Line, ref string, actor *uuid.UUID) ([]shared.DomainEvent, error) {
	args := m.Called(ctx, tenantID, branchID, lines, ref, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shared.DomainEvent), args.Error(1)
}

func (m *MockStockKeeper) Restore(ctx context.Context, tenantID, branchID uuid.UUID, lines []inventory.Line, ref, reason string, actor *uuid.UUID) ([]shared.DomainEvent, error) {
	args := m.Called(ctx, tenantID, branchID, lines, ref, reason, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shared.DomainEvent), args.Error(1)
}

type MockCreditLedger struct {
	mock.Mock
}

func (m *MockCreditLedger) ChargeCredit(ctx context.Context, tenantID, customerID uuid.UUID, amount decimal.Decimal) error {
	return m.Called(ctx, tenantID, customerID, amount).Error(0)
}

func (m *MockCreditLedger) RefundCredit(ctx context.Context, tenantID, customerID uuid.UUID, amount decimal.Decimal) error {
	return m.Called(ctx, tenantID, customerID, amount).Error(0)
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

// variantLookup serves FindVariantsByIDs from a map
type variantLookup struct {
	catalog.ProductRepository
	views map[uuid.UUID]catalog.VariantView
}

func (v *variantLookup) FindVariantsByIDs(_ context.Context, _ uuid.UUID, ids []uuid.UUID) ([]catalog.VariantView, error) {
	out := make([]catalog.VariantView, 0, len(ids))
	for _, id := range ids {
		if view, ok := v.views[id]; ok {
			out = append(out, view)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

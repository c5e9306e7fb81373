package finance

import (
	"context"
	"sync"
	"time"

	"github.com/cloudpos/backend/internal/domain/branch"
	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/cloudpos/backend/internal/domain/report"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// =============================================================================
// Gateways
// =============================================================================

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) GatewayType() finance.PaymentGatewayType {
	args := m.Called()
	return args.Get(0).(finance.PaymentGatewayType)
}

func (m *MockPaymentGateway) CreatePayment(ctx context.Context, req *finance.CreatePaymentRequest) (*finance.CreatePaymentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.CreatePaymentResponse), args.Error(1)
}

func (m *MockPaymentGateway) VerifyCallback(ctx context.Context, payload []byte, signature string) (*finance.PaymentCallback, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.PaymentCallback), args.Error(1)
}

func (m *MockPaymentGateway) GenerateCallbackResponse(success bool, message string) []byte {
	args := m.Called(success, message)
	return args.Get(0).([]byte)
}

// staticRegistry serves a fixed set of gateways, all enabled
type staticRegistry struct {
	gateways map[finance.PaymentGatewayType]finance.PaymentGateway
}

func newStaticRegistry(gateways ...finance.PaymentGateway) *staticRegistry {
	r := &staticRegistry{gateways: make(map[finance.PaymentGatewayType]finance.PaymentGateway)}
	for _, g := range gateways {
		r.gateways[g.GatewayType()] = g
	}
	return r
}

func (r *staticRegistry) GetGateway(t finance.PaymentGatewayType) (finance.PaymentGateway, error) {
	g, ok := r.gateways[t]
	if !ok {
		return nil, finance.ErrGatewayNotConfigured
	}
	return g, nil
}

func (r *staticRegistry) ListGateways() []finance.PaymentGateway {
	out := make([]finance.PaymentGateway, 0, len(r.gateways))
	for _, g := range r.gateways {
		out = append(out, g)
	}
	return out
}

func (r *staticRegistry) IsEnabled(t finance.PaymentGatewayType) bool {
	_, ok := r.gateways[t]
	return ok
}

// =============================================================================
// Repositories
// =============================================================================

type MockPaymentTransactionRepository struct {
	mock.Mock
}

func (m *MockPaymentTransactionRepository) Save(ctx context.Context, tx *finance.PaymentTransaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockPaymentTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.PaymentTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.PaymentTransaction), args.Error(1)
}

func (m *MockPaymentTransactionRepository) FindByOrderNumber(ctx context.Context, gateway finance.PaymentGatewayType, orderNumber string) (*finance.PaymentTransaction, error) {
	args := m.Called(ctx, gateway, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.PaymentTransaction), args.Error(1)
}

func (m *MockPaymentTransactionRepository) FindByReference(ctx context.Context, tenantID uuid.UUID, purpose finance.PaymentPurpose, referenceID uuid.UUID) ([]*finance.PaymentTransaction, error) {
	args := m.Called(ctx, tenantID, purpose, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*finance.PaymentTransaction), args.Error(1)
}

type MockEntryRepository struct {
	mock.Mock
}

func (m *MockEntryRepository) Save(ctx context.Context, e *finance.Entry) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockEntryRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.Entry, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Entry), args.Error(1)
}

func (m *MockEntryRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter finance.EntryFilter) ([]*finance.Entry, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*finance.Entry), args.Get(1).(int64), args.Error(2)
}

func (m *MockEntryRepository) SumByCategory(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, from, to time.Time) ([]finance.CategoryAmount, error) {
	args := m.Called(ctx, tenantID, branchIDs, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]finance.CategoryAmount), args.Error(1)
}

// branchLookup resolves the branches it was built with
type branchLookup struct {
	branch.Repository
	known map[uuid.UUID]*branch.Branch
}

func (b *branchLookup) FindByID(_ context.Context, _ uuid.UUID, id uuid.UUID) (*branch.Branch, error) {
	if br, ok := b.known[id]; ok {
		return br, nil
	}
	return nil, shared.ErrNotFound
}

type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) DailySales(ctx context.Context, scope report.Scope, from, to time.Time) (*report.DailySales, error) {
	args := m.Called(ctx, scope, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.DailySales), args.Error(1)
}

func (m *MockReportRepository) TopProducts(ctx context.Context, scope report.Scope, from, to time.Time, limit int) ([]report.TopProduct, error) {
	args := m.Called(ctx, scope, from, to, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]report.TopProduct), args.Error(1)
}

func (m *MockReportRepository) StockValue(ctx context.Context, scope report.Scope) (*report.StockValue, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.StockValue), args.Error(1)
}

// memoryIdempotency is a map-backed shared.IdempotencyStore
type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: make(map[string]bool)}
}

func (m *memoryIdempotency) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryIdempotency) IsProcessed(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memoryIdempotency) SaveResult(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (m *memoryIdempotency) GetResult(context.Context, string) ([]byte, error) {
	return nil, nil
}

func (m *memoryIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func (m *memoryIdempotency) Close() error { return nil }

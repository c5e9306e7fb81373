package report

import (
	"context"
	"testing"
	"time"

	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/report"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

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

var colombo = time.FixedZone("Asia/Colombo", 5*3600+1800)

type fixture struct {
	repo     *MockReportRepository
	svc      *ReportService
	tenantID uuid.UUID
	branchID uuid.UUID
}

func newFixture() *fixture {
	repo := new(MockReportRepository)
	svc := NewReportService(repo, colombo, zap.NewNop())
	// 20:00 UTC is already the next day in Colombo
	svc.now = func() time.Time { return time.Date(2026, 3, 18, 20, 0, 0, 0, time.UTC) }
	return &fixture{repo: repo, svc: svc, tenantID: uuid.New(), branchID: uuid.New()}
}

func (f *fixture) principal(role string) *identity.Principal {
	branchID := f.branchID
	return identity.NewPrincipal(uuid.New(), f.tenantID, &branchID, identity.RolePermissions[role])
}

func TestReportService_DailySales(t *testing.T) {
	t.Run("defaults to today in the business timezone", func(t *testing.T) {
		f := newFixture()
		from := time.Date(2026, 3, 19, 0, 0, 0, 0, colombo)
		f.repo.On("DailySales", mock.Anything, report.Scope{TenantID: f.tenantID}, from, from.AddDate(0, 0, 1)).
			Return(&report.DailySales{OrderCount: 4, Net: decimal.NewFromInt(5200)}, nil)

		out, err := f.svc.DailySales(context.Background(), f.principal(identity.RoleOwner), DailySalesFilter{})

		require.NoError(t, err)
		assert.Equal(t, "2026-03-19", out.Day)
		assert.Equal(t, int64(4), out.OrderCount)
		assert.NotNil(t, out.ByMethod)
		f.repo.AssertExpectations(t)
	})

	t.Run("explicit day keeps its calendar date", func(t *testing.T) {
		f := newFixture()
		day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		from := time.Date(2026, 3, 1, 0, 0, 0, 0, colombo)
		f.repo.On("DailySales", mock.Anything, mock.Anything, from, from.AddDate(0, 0, 1)).
			Return(&report.DailySales{}, nil)

		out, err := f.svc.DailySales(context.Background(), f.principal(identity.RoleAccountant), DailySalesFilter{Day: &day})

		require.NoError(t, err)
		assert.Equal(t, "2026-03-01", out.Day)
	})

	t.Run("cashier is forbidden", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.DailySales(context.Background(), f.principal(identity.RoleCashier), DailySalesFilter{})

		assert.ErrorIs(t, err, shared.ErrForbidden)
		f.repo.AssertNotCalled(t, "DailySales")
	})

	t.Run("branch-only grant is scoped to the home branch", func(t *testing.T) {
		f := newFixture()
		p := identity.NewPrincipal(uuid.New(), f.tenantID, &f.branchID, []string{"view:report:branch-only"})
		f.repo.On("DailySales", mock.Anything, report.Scope{TenantID: f.tenantID, BranchIDs: []uuid.UUID{f.branchID}}, mock.Anything, mock.Anything).
			Return(&report.DailySales{}, nil)

		_, err := f.svc.DailySales(context.Background(), p, DailySalesFilter{})

		require.NoError(t, err)
		f.repo.AssertExpectations(t)
	})

	t.Run("branch-only grant cannot read another branch", func(t *testing.T) {
		f := newFixture()
		p := identity.NewPrincipal(uuid.New(), f.tenantID, &f.branchID, []string{"view:report:branch-only"})
		other := uuid.New()

		_, err := f.svc.DailySales(context.Background(), p, DailySalesFilter{BranchID: &other})

		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

func TestReportService_TopProducts(t *testing.T) {
	t.Run("defaults to the last 30 days and 10 rows", func(t *testing.T) {
		f := newFixture()
		to := time.Date(2026, 3, 20, 0, 0, 0, 0, colombo)
		from := time.Date(2026, 2, 18, 0, 0, 0, 0, colombo)
		f.repo.On("TopProducts", mock.Anything, mock.Anything, from, to, 10).Return(nil, nil)

		rows, err := f.svc.TopProducts(context.Background(), f.principal(identity.RoleOwner), TopProductsFilter{})

		require.NoError(t, err)
		assert.Empty(t, rows)
		assert.NotNil(t, rows)
		f.repo.AssertExpectations(t)
	})

	t.Run("limit is capped and the branch is passed through", func(t *testing.T) {
		f := newFixture()
		from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
		scope := report.Scope{TenantID: f.tenantID, BranchIDs: []uuid.UUID{f.branchID}}
		f.repo.On("TopProducts", mock.Anything, scope,
			time.Date(2026, 3, 1, 0, 0, 0, 0, colombo),
			time.Date(2026, 3, 6, 0, 0, 0, 0, colombo), 100).
			Return([]report.TopProduct{{SKU: "TEA-100", Quantity: decimal.NewFromInt(42)}}, nil)

		rows, err := f.svc.TopProducts(context.Background(), f.principal(identity.RoleManager),
			TopProductsFilter{BranchID: &f.branchID, From: &from, To: &to, Limit: 500})

		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "TEA-100", rows[0].SKU)
	})

	t.Run("inverted period", func(t *testing.T) {
		f := newFixture()
		from := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

		_, err := f.svc.TopProducts(context.Background(), f.principal(identity.RoleOwner), TopProductsFilter{From: &from, To: &to})

		assert.ErrorIs(t, err, ErrInvalidPeriod)
	})
}

func TestReportService_StockValue(t *testing.T) {
	f := newFixture()
	f.repo.On("StockValue", mock.Anything, report.Scope{TenantID: f.tenantID}).
		Return(&report.StockValue{ItemCount: 12, TotalValue: decimal.RequireFromString("98450.50")}, nil)

	out, err := f.svc.StockValue(context.Background(), f.principal(identity.RoleAccountant), StockValueFilter{})

	require.NoError(t, err)
	assert.Equal(t, "98450.5", out.TotalValue.String())

	_, err = f.svc.StockValue(context.Background(), f.principal(identity.RoleStockKeeper), StockValueFilter{})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

package finance

import (
	"context"
	"testing"
	"time"

	"github.com/cloudpos/backend/internal/domain/branch"
	"github.com/cloudpos/backend/internal/domain/finance"
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

type entryFixture struct {
	tenantID uuid.UUID
	colombo  *branch.Branch
	kandy    *branch.Branch
	entries  *MockEntryRepository
	reports  *MockReportRepository
	svc      *EntryService
}

func newEntryFixture(t *testing.T) *entryFixture {
	t.Helper()
	tenantID := uuid.New()
	colombo, err := branch.NewBranch(tenantID, "COL", "Colombo")
	require.NoError(t, err)
	kandy, err := branch.NewBranch(tenantID, "KDY", "Kandy")
	require.NoError(t, err)

	f := &entryFixture{
		tenantID: tenantID,
		colombo:  colombo,
		kandy:    kandy,
		entries:  new(MockEntryRepository),
		reports:  new(MockReportRepository),
	}
	branches := &branchLookup{known: map[uuid.UUID]*branch.Branch{colombo.ID: colombo, kandy.ID: kandy}}
	f.svc = NewEntryService(f.entries, branches, f.reports, time.UTC, zap.NewNop())
	f.svc.now = func() time.Time { return time.Date(2026, 3, 18, 15, 0, 0, 0, time.UTC) }
	return f
}

func (f *entryFixture) managerOf(b *branch.Branch) *identity.Principal {
	return identity.NewPrincipal(uuid.New(), f.tenantID, &b.ID, identity.RolePermissions[identity.RoleManager])
}

func (f *entryFixture) accountant() *identity.Principal {
	return identity.NewPrincipal(uuid.New(), f.tenantID, nil, identity.RolePermissions[identity.RoleAccountant])
}

func TestEntryService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("manager records an expense for their branch", func(t *testing.T) {
		f := newEntryFixture(t)
		f.entries.On("Save", ctx, mock.AnythingOfType("*finance.Entry")).Return(nil)

		resp, err := f.svc.Create(ctx, f.managerOf(f.colombo), finance.EntryKindExpense, EntryRequest{
			BranchID: f.colombo.ID,
			Category: "Electricity",
			Amount:   decimal.RequireFromString("12500.456"),
		})

		require.NoError(t, err)
		assert.Equal(t, "EXPENSE", resp.Kind)
		assert.Equal(t, "CASH", resp.PaymentMethod)
		assert.Equal(t, "12500.46", resp.Amount.StringFixed(2))
		assert.Equal(t, "RECORDED", resp.Status)
	})

	t.Run("manager cannot book another branch", func(t *testing.T) {
		f := newEntryFixture(t)

		_, err := f.svc.Create(ctx, f.managerOf(f.colombo), finance.EntryKindIncome, EntryRequest{
			BranchID: f.kandy.ID, Category: "Rent", Amount: decimal.NewFromInt(100),
		})

		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("cashier cannot record", func(t *testing.T) {
		f := newEntryFixture(t)
		cashier := identity.NewPrincipal(uuid.New(), f.tenantID, &f.colombo.ID, identity.RolePermissions[identity.RoleCashier])

		_, err := f.svc.Create(ctx, cashier, finance.EntryKindExpense, EntryRequest{
			BranchID: f.colombo.ID, Category: "Tea", Amount: decimal.NewFromInt(100),
		})

		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("unknown branch", func(t *testing.T) {
		f := newEntryFixture(t)

		_, err := f.svc.Create(ctx, f.accountant(), finance.EntryKindExpense, EntryRequest{
			BranchID: uuid.New(), Category: "Tea", Amount: decimal.NewFromInt(100),
		})

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestEntryService_UpdateAndCancel(t *testing.T) {
	ctx := context.Background()
	f := newEntryFixture(t)
	e, err := finance.NewEntry(f.tenantID, f.colombo.ID, finance.EntryKindExpense, finance.EntryInput{
		Category: "Transport", Amount: decimal.NewFromInt(800),
	}, uuid.New())
	require.NoError(t, err)
	f.entries.On("FindByID", ctx, f.tenantID, e.ID).Return(e, nil)
	f.entries.On("Save", ctx, e).Return(nil)

	_, err = f.svc.Get(ctx, f.accountant(), finance.EntryKindIncome, e.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.svc.Update(ctx, f.accountant(), finance.EntryKindExpense, e.ID, EntryRequest{
		BranchID: f.kandy.ID, Category: "Transport", Amount: decimal.NewFromInt(900),
	})
	assert.ErrorIs(t, err, shared.ErrBranchMismatch)

	resp, err := f.svc.Update(ctx, f.accountant(), finance.EntryKindExpense, e.ID, EntryRequest{
		BranchID: f.colombo.ID, Category: "Transport", Amount: decimal.NewFromInt(900),
	})
	require.NoError(t, err)
	assert.True(t, resp.Amount.Equal(decimal.NewFromInt(900)))

	resp, err = f.svc.Cancel(ctx, f.accountant(), finance.EntryKindExpense, e.ID, CancelEntryRequest{Reason: "duplicate"})
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", resp.Status)
}

func TestEntryService_List_ScopesManager(t *testing.T) {
	ctx := context.Background()
	f := newEntryFixture(t)
	to := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	f.entries.On("FindAll", ctx, f.tenantID, mock.MatchedBy(func(filter finance.EntryFilter) bool {
		return filter.Kind == finance.EntryKindExpense &&
			filter.To != nil && filter.To.Day() == 10 && filter.To.Hour() == 23
	})).Return([]*finance.Entry{}, int64(0), nil)

	// view:* on the manager role is tenant-wide
	page, err := f.svc.List(ctx, f.managerOf(f.colombo), finance.EntryKindExpense, EntryListFilter{To: &to})

	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestEntryService_Summary(t *testing.T) {
	ctx := context.Background()
	f := newEntryFixture(t)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 19, 0, 0, 0, 0, time.UTC)

	f.reports.On("DailySales", ctx, report.Scope{TenantID: f.tenantID, BranchIDs: []uuid.UUID{f.colombo.ID}}, from, to).
		Return(&report.DailySales{Net: decimal.NewFromInt(150000)}, nil)
	f.entries.On("SumByCategory", ctx, f.tenantID, []uuid.UUID{f.colombo.ID}, from, to).Return([]finance.CategoryAmount{
		{Kind: finance.EntryKindExpense, Category: "Rent", Amount: decimal.NewFromInt(60000)},
		{Kind: finance.EntryKindExpense, Category: "Electricity", Amount: decimal.NewFromInt(12000)},
		{Kind: finance.EntryKindIncome, Category: "Delivery fees", Amount: decimal.NewFromInt(4000)},
	}, nil)

	summary, err := f.svc.Summary(ctx, f.accountant(), SummaryFilter{BranchID: &f.colombo.ID})

	require.NoError(t, err)
	assert.True(t, summary.SalesTotal.Equal(decimal.NewFromInt(150000)))
	assert.True(t, summary.Expenses.Equal(decimal.NewFromInt(72000)))
	assert.True(t, summary.OtherIncome.Equal(decimal.NewFromInt(4000)))
	assert.True(t, summary.Net.Equal(decimal.NewFromInt(82000)))
	assert.Equal(t, 18, summary.To.Day())
}

func TestEntryService_Summary_InvalidPeriod(t *testing.T) {
	f := newEntryFixture(t)
	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.Summary(context.Background(), f.accountant(), SummaryFilter{From: &from, To: &to})

	assert.Error(t, err)
}

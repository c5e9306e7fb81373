package billing

import (
	"context"
	"testing"
	"time"

	"github.com/cloudpos/backend/internal/domain/billing"
	"github.com/cloudpos/backend/internal/domain/business"
	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var billingNow = time.Date(2026, 4, 11, 0, 0, 0, 0, time.UTC)

type subscriptionFixture struct {
	tenantID uuid.UUID
	sub      *billing.Subscription
	meta     *business.Meta
	subs     *MockSubscriptionRepository
	invoices *MockInvoiceRepository
	payments *MockPaymentStarter
	branches *branchCounter
	svc      *SubscriptionService
}

// newSubscriptionFixture starts from a paid Growth month running 1 Apr to 1 May
func newSubscriptionFixture(t *testing.T) *subscriptionFixture {
	t.Helper()
	tenantID := uuid.New()
	sub := billing.NewTrialSubscription(tenantID, billing.PlanGrowth, 14, billingNow.AddDate(0, -1, 0))
	sub.Status = billing.StatusActive
	sub.TrialEndsAt = nil
	sub.CurrentPeriodStart = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	sub.CurrentPeriodEnd = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	sub.LastPaidAmount = decimal.NewFromInt(6500)

	meta, err := business.NewMeta(tenantID, "Lanka Traders", billing.PlanGrowth)
	require.NoError(t, err)
	meta.Email = "owner@lankatraders.lk"

	f := &subscriptionFixture{
		tenantID: tenantID,
		sub:      sub,
		meta:     meta,
		subs:     new(MockSubscriptionRepository),
		invoices: new(MockInvoiceRepository),
		payments: new(MockPaymentStarter),
		branches: &branchCounter{count: 1},
	}
	f.subs.On("FindByTenant", mock.Anything, tenantID).Return(sub, nil)
	plans := billing.NewPlanCatalog(nil)
	quota := NewQuotaService(f.subs, plans, f.branches, &userCounter{count: 2}, zap.NewNop())
	f.svc = NewSubscriptionService(SubscriptionServiceDeps{
		Subscriptions: f.subs,
		Invoices:      f.invoices,
		Plans:         plans,
		Businesses:    &metaStore{meta: meta},
		Quota:         quota,
		Payments:      f.payments,
		Tx:            passthroughTx{},
	}, Options{GraceDays: 7, RenewalLead: 72 * time.Hour}, zap.NewNop())
	f.svc.now = func() time.Time { return billingNow }
	return f
}

func (f *subscriptionFixture) owner() *identity.Principal {
	return identity.NewPrincipal(uuid.New(), f.tenantID, nil, identity.RolePermissions[identity.RoleOwner])
}

func TestSubscriptionService_Quote_Prorates(t *testing.T) {
	f := newSubscriptionFixture(t)

	q, err := f.svc.Quote(context.Background(), f.owner(), QuoteRequest{PlanCode: "Enterprise", Cycle: "MONTHLY"})

	require.NoError(t, err)
	assert.Equal(t, "15000.00", q.Total.StringFixed(2))
	assert.Equal(t, "4333.33", q.Credit.StringFixed(2))
	assert.Equal(t, "10666.67", q.Due.StringFixed(2))
}

func TestSubscriptionService_Quote_ExtraBranchesAnnual(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.sub.Status = billing.StatusTrial

	q, err := f.svc.Quote(context.Background(), f.owner(), QuoteRequest{PlanCode: "starter", Cycle: "ANNUAL", ExtraBranches: 2})

	require.NoError(t, err)
	// 25000 + 1500 * 2 * 12
	assert.Equal(t, "61000.00", q.Total.StringFixed(2))
	assert.True(t, q.Credit.IsZero())
}

func TestSubscriptionService_ChangePlan(t *testing.T) {
	ctx := context.Background()

	t.Run("upgrade issues an invoice and voids the previous one", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		stale := billing.NewInvoice(f.tenantID, billing.InvoiceKindPlanChange, billing.Quote{
			PlanCode: billing.PlanStarter, Cycle: billing.CycleMonthly, Total: decimal.NewFromInt(2500), Due: decimal.NewFromInt(2500),
		}, billingNow.AddDate(0, 0, -2))
		f.invoices.On("FindOpen", ctx, f.tenantID).Return([]*billing.Invoice{stale}, nil)
		f.invoices.On("Save", ctx, mock.AnythingOfType("*billing.Invoice")).Return(nil)

		inv, err := f.svc.ChangePlan(ctx, f.owner(), QuoteRequest{PlanCode: "enterprise", Cycle: "MONTHLY"})

		require.NoError(t, err)
		assert.Equal(t, "OPEN", inv.Status)
		assert.Equal(t, "10666.67", inv.Amount.StringFixed(2))
		assert.Equal(t, billing.InvoiceStatusVoid, stale.Status)
		assert.Equal(t, billing.PlanGrowth, f.sub.PlanCode)
	})

	t.Run("fully credited change applies at once", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		f.invoices.On("FindOpen", ctx, f.tenantID).Return([]*billing.Invoice{}, nil)
		f.invoices.On("Save", ctx, mock.Anything).Return(nil)
		f.subs.On("Save", ctx, f.sub).Return(nil)

		inv, err := f.svc.ChangePlan(ctx, f.owner(), QuoteRequest{PlanCode: "starter", Cycle: "MONTHLY"})

		require.NoError(t, err)
		assert.Equal(t, "PAID", inv.Status)
		assert.Equal(t, billing.PlanStarter, f.sub.PlanCode)
		assert.Equal(t, billingNow.AddDate(0, 1, 0), f.sub.CurrentPeriodEnd)
		assert.Equal(t, billing.PlanStarter, f.meta.PlanCode)
	})

	t.Run("downgrade below open branches", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		f.branches.count = 3

		_, err := f.svc.ChangePlan(ctx, f.owner(), QuoteRequest{PlanCode: "starter", Cycle: "MONTHLY"})

		assert.ErrorIs(t, err, shared.ErrPlanLimitReached)
	})

	t.Run("manager cannot change plan", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		branchID := uuid.New()
		manager := identity.NewPrincipal(uuid.New(), f.tenantID, &branchID, identity.RolePermissions[identity.RoleManager])

		_, err := f.svc.ChangePlan(ctx, manager, QuoteRequest{PlanCode: "starter", Cycle: "MONTHLY"})

		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

func TestSubscriptionService_Checkout(t *testing.T) {
	ctx := context.Background()
	f := newSubscriptionFixture(t)
	inv := billing.NewInvoice(f.tenantID, billing.InvoiceKindRenewal, billing.Quote{
		PlanCode: billing.PlanGrowth, Cycle: billing.CycleMonthly,
		Total: decimal.NewFromInt(6500), Due: decimal.NewFromInt(6500), Currency: "LKR",
	}, f.sub.CurrentPeriodEnd)
	f.invoices.On("FindByID", ctx, f.tenantID, inv.ID).Return(inv, nil)

	txn, err := finance.NewPaymentTransaction(f.tenantID, finance.PaymentPurposeSubscription, inv.ID, inv.Number,
		finance.PaymentGatewayTypePayHere, inv.Amount, "LKR")
	require.NoError(t, err)
	f.payments.On("StartPayment", ctx, mock.MatchedBy(func(intent finance.PaymentIntent) bool {
		return intent.Purpose == finance.PaymentPurposeSubscription &&
			intent.ReferenceID == inv.ID &&
			intent.Amount.Equal(decimal.NewFromInt(6500)) &&
			intent.Customer.Email == "owner@lankatraders.lk"
	})).Return(txn, &finance.CreatePaymentResponse{
		GatewayType: finance.PaymentGatewayTypePayHere,
		Method:      finance.CheckoutMethodFormPost,
		CheckoutURL: "https://sandbox.payhere.lk/pay/checkout",
		FormFields:  map[string]string{"order_id": txn.OrderNumber},
	}, nil)

	resp, err := f.svc.Checkout(ctx, f.owner(), inv.ID, CheckoutRequest{Gateway: "PAYHERE"})

	require.NoError(t, err)
	assert.Equal(t, "FORM_POST", resp.Method)
	assert.Equal(t, txn.OrderNumber, resp.FormFields["order_id"])

	_, err = inv.MarkPaid("PAYHERE", "ph-1", billingNow)
	require.NoError(t, err)
	_, err = f.svc.Checkout(ctx, f.owner(), inv.ID, CheckoutRequest{Gateway: "PAYHERE"})
	assert.ErrorIs(t, err, ErrInvoiceNotOpen)
}

func TestSubscriptionService_HandlePaid(t *testing.T) {
	ctx := context.Background()

	t.Run("renewal extends from period end once", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		inv := billing.NewInvoice(f.tenantID, billing.InvoiceKindRenewal, billing.Quote{
			PlanCode: billing.PlanGrowth, Cycle: billing.CycleMonthly,
			Total: decimal.NewFromInt(6500), Due: decimal.NewFromInt(6500),
		}, f.sub.CurrentPeriodEnd)
		f.invoices.On("FindByID", ctx, f.tenantID, inv.ID).Return(inv, nil)
		f.invoices.On("Save", ctx, inv).Return(nil).Once()
		f.subs.On("Save", ctx, f.sub).Return(nil).Once()

		require.NoError(t, f.svc.HandlePaid(ctx, f.tenantID, inv.ID, "PAYHERE", "ph-77"))
		assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), f.sub.CurrentPeriodEnd)
		assert.Equal(t, billing.InvoiceStatusPaid, inv.Status)

		require.NoError(t, f.svc.HandlePaid(ctx, f.tenantID, inv.ID, "PAYHERE", "ph-77"))
		f.subs.AssertNumberOfCalls(t, "Save", 1)
	})

	t.Run("lapsed trial is activated from now", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		f.sub.Status = billing.StatusExpired
		inv := billing.NewInvoice(f.tenantID, billing.InvoiceKindPlanChange, billing.Quote{
			PlanCode: billing.PlanStarter, Cycle: billing.CycleAnnual,
			Total: decimal.NewFromInt(25000), Due: decimal.NewFromInt(25000),
		}, billingNow)
		f.invoices.On("FindByID", ctx, f.tenantID, inv.ID).Return(inv, nil)
		f.invoices.On("Save", ctx, inv).Return(nil)
		f.subs.On("Save", ctx, f.sub).Return(nil)

		txn := &finance.PaymentTransaction{ReferenceID: inv.ID, Gateway: finance.PaymentGatewayTypeOnePay, GatewayRef: "op-1"}
		txn.TenantID = f.tenantID
		require.NoError(t, f.svc.Settle(ctx, txn))

		assert.Equal(t, billing.StatusActive, f.sub.Status)
		assert.Equal(t, billing.CycleAnnual, f.sub.Cycle)
		assert.Equal(t, billingNow.AddDate(1, 0, 0), f.sub.CurrentPeriodEnd)
		assert.Equal(t, "ONEPAY", inv.Gateway)
	})

	t.Run("void invoice", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		inv := billing.NewInvoice(f.tenantID, billing.InvoiceKindPlanChange, billing.Quote{
			PlanCode: billing.PlanStarter, Cycle: billing.CycleMonthly, Total: decimal.NewFromInt(2500), Due: decimal.NewFromInt(2500),
		}, billingNow)
		require.NoError(t, inv.Void())
		f.invoices.On("FindByID", ctx, f.tenantID, inv.ID).Return(inv, nil)

		err := f.svc.HandlePaid(ctx, f.tenantID, inv.ID, "PAYHERE", "ph-1")

		assert.ErrorIs(t, err, finance.ErrNothingToSettle)
	})
}

func TestSubscriptionService_Cancel(t *testing.T) {
	ctx := context.Background()
	f := newSubscriptionFixture(t)
	open := billing.NewInvoice(f.tenantID, billing.InvoiceKindRenewal, billing.Quote{
		PlanCode: billing.PlanGrowth, Cycle: billing.CycleMonthly, Total: decimal.NewFromInt(6500), Due: decimal.NewFromInt(6500),
	}, f.sub.CurrentPeriodEnd)
	f.subs.On("Save", ctx, f.sub).Return(nil)
	f.invoices.On("FindOpen", ctx, f.tenantID).Return([]*billing.Invoice{open}, nil)
	f.invoices.On("Save", ctx, open).Return(nil)

	resp, err := f.svc.Cancel(ctx, f.owner())

	require.NoError(t, err)
	assert.True(t, resp.CancelAtPeriodEnd)
	assert.Equal(t, "ACTIVE", resp.Status)
	assert.Equal(t, int64(1), resp.BranchCount)
	assert.Equal(t, billing.InvoiceStatusVoid, open.Status)
}

func TestSubscriptionService_Sweep(t *testing.T) {
	ctx := context.Background()
	f := newSubscriptionFixture(t)

	endedTrial := billing.NewTrialSubscription(uuid.New(), billing.PlanStarter, 14, billingNow.AddDate(0, 0, -15))
	renewing := billing.NewTrialSubscription(uuid.New(), billing.PlanStarter, 14, billingNow.AddDate(0, -2, 0))
	renewing.Status = billing.StatusActive
	renewing.TrialEndsAt = nil
	renewing.CurrentPeriodEnd = billingNow.Add(48 * time.Hour)
	alreadyInvoiced := billing.NewTrialSubscription(uuid.New(), billing.PlanStarter, 14, billingNow.AddDate(0, -2, 0))
	alreadyInvoiced.Status = billing.StatusActive
	alreadyInvoiced.TrialEndsAt = nil
	alreadyInvoiced.CurrentPeriodEnd = billingNow.Add(24 * time.Hour)
	existing := billing.NewInvoice(alreadyInvoiced.TenantID, billing.InvoiceKindRenewal, billing.Quote{
		PlanCode: billing.PlanStarter, Cycle: billing.CycleMonthly, Total: decimal.NewFromInt(2500), Due: decimal.NewFromInt(2500),
	}, alreadyInvoiced.CurrentPeriodEnd)

	f.subs.On("FindSweepable", ctx, uuid.Nil, sweepBatch).
		Return([]*billing.Subscription{endedTrial, renewing, alreadyInvoiced}, nil)
	f.subs.On("Save", ctx, endedTrial).Return(nil)
	f.invoices.On("FindOpen", ctx, renewing.TenantID).Return([]*billing.Invoice{}, nil)
	f.invoices.On("FindOpen", ctx, alreadyInvoiced.TenantID).Return([]*billing.Invoice{existing}, nil)
	f.invoices.On("Save", ctx, mock.MatchedBy(func(inv *billing.Invoice) bool {
		return inv.TenantID == renewing.TenantID && inv.Kind == billing.InvoiceKindRenewal &&
			inv.PeriodStart.Equal(renewing.CurrentPeriodEnd)
	})).Return(nil).Once()

	n, err := f.svc.Sweep(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, billing.StatusExpired, endedTrial.Status)
	f.invoices.AssertNumberOfCalls(t, "Save", 1)
}

package sales

import (
	"context"
	"testing"
	"time"

	"github.com/cloudpos/backend/internal/domain/branch"
	"github.com/cloudpos/backend/internal/domain/business"
	"github.com/cloudpos/backend/internal/domain/catalog"
	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/inventory"
	"github.com/cloudpos/backend/internal/domain/sales"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type salesFixture struct {
	tenantID   uuid.UUID
	branch     *branch.Branch
	meta       *business.Meta
	tea        catalog.VariantView
	service    catalog.VariantView
	orders     *MockOrderRepository
	branches   *MockBranchRepository
	businesses *MockBusinessRepository
	stock      *MockStockKeeper
	credit     *MockCreditLedger
	payments   *MockPaymentStarter
	publisher  *recordingPublisher
	svc        *SalesService
}

func newSalesFixture(t *testing.T) *salesFixture {
	t.Helper()
	tenantID := uuid.New()
	b, err := branch.NewBranch(tenantID, "COL", "Colombo")
	require.NoError(t, err)
	meta, err := business.NewMeta(tenantID, "Lanka Traders", "starter")
	require.NoError(t, err)

	tea := catalog.VariantView{ProductName: "Dilmah Tea", TrackStock: true, ProductActive: true}
	tea.ID = uuid.New()
	tea.SKU = "DILMAH-100"
	tea.VariationName = "100g"
	tea.RetailPrice = decimal.NewFromInt(500)
	tea.CostPrice = decimal.NewFromInt(400)
	tea.PriceTiers = []catalog.PriceTier{{Name: "wholesale", MinQty: decimal.NewFromInt(10), Price: decimal.NewFromInt(450)}}
	tea.IsActive = true

	svcItem := catalog.VariantView{ProductName: "Gift Wrapping", TrackStock: false, ProductActive: true}
	svcItem.ID = uuid.New()
	svcItem.SKU = "WRAP"
	svcItem.RetailPrice = decimal.NewFromInt(100)
	svcItem.IsActive = true

	f := &salesFixture{
		tenantID:   tenantID,
		branch:     b,
		meta:       meta,
		tea:        tea,
		service:    svcItem,
		orders:     new(MockOrderRepository),
		branches:   new(MockBranchRepository),
		businesses: new(MockBusinessRepository),
		stock:      new(MockStockKeeper),
		credit:     new(MockCreditLedger),
		payments:   new(MockPaymentStarter),
		publisher:  &recordingPublisher{},
	}
	products := &variantLookup{views: map[uuid.UUID]catalog.VariantView{tea.ID: tea, svcItem.ID: svcItem}}
	f.svc = NewSalesService(SalesServiceDeps{
		Orders:     f.orders,
		Branches:   f.branches,
		Businesses: f.businesses,
		Products:   products,
		Stock:      f.stock,
		Credit:     f.credit,
		Payments:   f.payments,
		Tx:         passthroughTx{},
		Publisher:  f.publisher,
	}, Options{TaxRate: decimal.Zero}, zap.NewNop())

	f.branches.On("FindByID", mock.Anything, tenantID, b.ID).Return(b, nil).Maybe()
	f.businesses.On("Get", mock.Anything, tenantID).Return(meta, nil).Maybe()
	return f
}

func (f *salesFixture) cashier() *identity.Principal {
	return identity.NewPrincipal(uuid.New(), f.tenantID, &f.branch.ID, identity.RolePermissions[identity.RoleCashier])
}

func (f *salesFixture) owner() *identity.Principal {
	return identity.NewPrincipal(uuid.New(), f.tenantID, nil, []string{"*"})
}

func (f *salesFixture) cashRequest(clientRef string) CheckoutRequest {
	return CheckoutRequest{
		BranchID:  f.branch.ID,
		ClientRef: clientRef,
		Lines: []CheckoutLineRequest{
			{VariantID: f.tea.ID, Quantity: decimal.NewFromInt(2)},
			{VariantID: f.service.ID, Quantity: decimal.NewFromInt(1)},
		},
		Payments: []PaymentRequest{{Method: "CASH", Amount: decimal.NewFromInt(2000)}},
	}
}

func TestSalesService_Checkout_Cash(t *testing.T) {
	ctx := context.Background()
	f := newSalesFixture(t)

	f.orders.On("FindByClientRef", ctx, f.tenantID, "pos1-0001").Return(nil, shared.ErrNotFound)
	f.branches.On("NextInvoiceNumber", ctx, f.tenantID, f.branch.ID).Return("COL", int64(42), nil)
	f.stock.On("Deduct", ctx, f.tenantID, f.branch.ID,
		[]inventory.Line{{VariantID: f.tea.ID, Quantity: decimal.NewFromInt(2)}},
		"INV-COL-000042", mock.Anything).Return([]shared.DomainEvent{}, nil)
	f.orders.On("Save", ctx, mock.AnythingOfType("*sales.Order")).Return(nil)

	resp, err := f.svc.Checkout(ctx, f.cashier(), f.cashRequest("pos1-0001"))

	require.NoError(t, err)
	assert.False(t, resp.Replayed)
	assert.Equal(t, "INV-COL-000042", resp.Order.InvoiceNumber)
	assert.Equal(t, string(sales.OrderStatusCompleted), resp.Order.Status)
	assert.True(t, resp.Order.GrandTotal.Equal(decimal.NewFromInt(1100)))
	assert.True(t, resp.Order.ChangeDue.Equal(decimal.NewFromInt(900)))
	assert.Nil(t, resp.Payment)
	assert.Equal(t, []string{sales.EventTypeOrderCompleted}, f.publisher.types())
	f.stock.AssertExpectations(t)
}

func TestSalesService_Checkout_ReplaysClientRef(t *testing.T) {
	ctx := context.Background()
	f := newSalesFixture(t)

	existing, err := sales.NewOrder(sales.OrderInput{
		TenantID:  f.tenantID,
		BranchID:  f.branch.ID,
		CashierID: uuid.New(),
		ClientRef: "pos1-0002",
		Lines:     []sales.LineInput{{VariantID: f.tea.ID, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(500)}},
		Payments:  []sales.OrderPayment{{Method: sales.PaymentCash, Amount: decimal.NewFromInt(500)}},
	})
	require.NoError(t, err)
	existing.AssignInvoiceNumber("INV-COL-000007")
	f.orders.On("FindByClientRef", ctx, f.tenantID, "pos1-0002").Return(existing, nil)

	resp, err := f.svc.Checkout(ctx, f.cashier(), f.cashRequest("pos1-0002"))

	require.NoError(t, err)
	assert.True(t, resp.Replayed)
	assert.Equal(t, existing.ID, resp.Order.ID)
	f.branches.AssertNotCalled(t, "NextInvoiceNumber", mock.Anything, mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Empty(t, f.publisher.events)
}

func TestSalesService_Checkout_ConcurrentDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newSalesFixture(t)

	winner, err := sales.NewOrder(sales.OrderInput{
		TenantID:  f.tenantID,
		BranchID:  f.branch.ID,
		CashierID: uuid.New(),
		ClientRef: "pos1-0003",
		Lines:     []sales.LineInput{{VariantID: f.service.ID, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)}},
		Payments:  []sales.OrderPayment{{Method: sales.PaymentCash, Amount: decimal.NewFromInt(100)}},
	})
	require.NoError(t, err)
	f.orders.On("FindByClientRef", ctx, f.tenantID, "pos1-0003").Return(nil, shared.ErrNotFound).Once()
	f.orders.On("FindByClientRef", ctx, f.tenantID, "pos1-0003").Return(winner, nil).Once()
	f.branches.On("NextInvoiceNumber", ctx, f.tenantID, f.branch.ID).Return("COL", int64(9), nil)
	f.stock.On("Deduct", ctx, f.tenantID, f.branch.ID, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.orders.On("Save", ctx, mock.Anything).Return(shared.ErrAlreadyExists)

	resp, err := f.svc.Checkout(ctx, f.cashier(), f.cashRequest("pos1-0003"))

	require.NoError(t, err)
	assert.True(t, resp.Replayed)
	assert.Equal(t, winner.ID, resp.Order.ID)
}

func TestSalesService_Checkout_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("underpaid", func(t *testing.T) {
		f := newSalesFixture(t)
		req := f.cashRequest("")
		req.Payments = []PaymentRequest{{Method: "CASH", Amount: decimal.NewFromInt(100)}}

		_, err := f.svc.Checkout(ctx, f.cashier(), req)

		assert.ErrorIs(t, err, sales.ErrUnderpaid)
		f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("insufficient stock rolls back", func(t *testing.T) {
		f := newSalesFixture(t)
		f.branches.On("NextInvoiceNumber", ctx, f.tenantID, f.branch.ID).Return("COL", int64(1), nil)
		f.stock.On("Deduct", ctx, f.tenantID, f.branch.ID, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, shared.ErrInsufficientStock)

		_, err := f.svc.Checkout(ctx, f.cashier(), f.cashRequest(""))

		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		assert.Empty(t, f.publisher.events)
	})

	t.Run("other branch", func(t *testing.T) {
		f := newSalesFixture(t)
		req := f.cashRequest("")
		req.BranchID = uuid.New()

		_, err := f.svc.Checkout(ctx, f.cashier(), req)

		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("credit without customer", func(t *testing.T) {
		f := newSalesFixture(t)
		req := f.cashRequest("")
		req.Payments = []PaymentRequest{{Method: "CREDIT", Amount: decimal.NewFromInt(1100)}}

		_, err := f.svc.Checkout(ctx, f.cashier(), req)

		assert.ErrorIs(t, err, ErrCreditNeedsCustomer)
	})

	t.Run("inactive product", func(t *testing.T) {
		f := newSalesFixture(t)
		f.svc.products.(*variantLookup).views[f.tea.ID] = func() catalog.VariantView {
			v := f.tea
			v.ProductActive = false
			return v
		}()

		_, err := f.svc.Checkout(ctx, f.cashier(), f.cashRequest(""))

		assert.ErrorIs(t, err, ErrVariantNotSellable)
	})
}

func TestSalesService_Checkout_TierPricing(t *testing.T) {
	ctx := context.Background()
	f := newSalesFixture(t)
	f.branches.On("NextInvoiceNumber", ctx, f.tenantID, f.branch.ID).Return("COL", int64(3), nil)
	f.stock.On("Deduct", ctx, f.tenantID, f.branch.ID, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.orders.On("Save", ctx, mock.Anything).Return(nil)

	resp, err := f.svc.Checkout(ctx, f.cashier(), CheckoutRequest{
		BranchID:  f.branch.ID,
		PriceTier: "wholesale",
		Lines:     []CheckoutLineRequest{{VariantID: f.tea.ID, Quantity: decimal.NewFromInt(12)}},
		Payments:  []PaymentRequest{{Method: "CARD", Amount: decimal.NewFromInt(5400)}},
	})

	require.NoError(t, err)
	require.Len(t, resp.Order.Lines, 1)
	assert.Equal(t, "wholesale", resp.Order.Lines[0].PriceTier)
	assert.True(t, resp.Order.Lines[0].UnitPrice.Equal(decimal.NewFromInt(450)))
	assert.True(t, resp.Order.GrandTotal.Equal(decimal.NewFromInt(5400)))
}

func TestSalesService_Checkout_Gateway(t *testing.T) {
	ctx := context.Background()
	f := newSalesFixture(t)
	f.branches.On("NextInvoiceNumber", ctx, f.tenantID, f.branch.ID).Return("COL", int64(5), nil)
	f.stock.On("Deduct", ctx, f.tenantID, f.branch.ID, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.orders.On("Save", ctx, mock.Anything).Return(nil)

	txn, err := finance.NewPaymentTransaction(f.tenantID, finance.PaymentPurposeOrder, uuid.New(), "INV-COL-000005",
		finance.PaymentGatewayTypePayHere, decimal.NewFromInt(1100), "LKR")
	require.NoError(t, err)
	f.payments.On("StartPayment", ctx, mock.MatchedBy(func(in finance.PaymentIntent) bool {
		return in.Purpose == finance.PaymentPurposeOrder &&
			in.Gateway == finance.PaymentGatewayTypePayHere &&
			in.Reference == "INV-COL-000005" &&
			in.Amount.Equal(decimal.NewFromInt(1100)) &&
			in.Currency == "LKR"
	})).Return(txn, &finance.CreatePaymentResponse{
		GatewayType: finance.PaymentGatewayTypePayHere,
		Method:      finance.CheckoutMethodFormPost,
		CheckoutURL: "https://sandbox.payhere.lk/pay/checkout",
		FormFields:  map[string]string{"order_id": txn.OrderNumber},
	}, nil)

	req := f.cashRequest("")
	req.Payments = []PaymentRequest{{Method: "PAYHERE", Amount: decimal.NewFromInt(1100)}}
	resp, err := f.svc.Checkout(ctx, f.cashier(), req)

	require.NoError(t, err)
	assert.Equal(t, string(sales.OrderStatusPendingPayment), resp.Order.Status)
	require.NotNil(t, resp.Payment)
	assert.Equal(t, txn.ID, resp.Payment.TransactionID)
	assert.Equal(t, "FORM_POST", resp.Payment.Method)
	assert.Equal(t, []string{sales.EventTypeOrderPlaced}, f.publisher.types())
}

func completedOrder(t *testing.T, f *salesFixture, createdAt time.Time) *sales.Order {
	t.Helper()
	o, err := sales.NewOrder(sales.OrderInput{
		TenantID:  f.tenantID,
		BranchID:  f.branch.ID,
		CashierID: uuid.New(),
		Lines: []sales.LineInput{
			{VariantID: f.tea.ID, Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(500)},
			{VariantID: f.service.ID, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
		},
		Payments: []sales.OrderPayment{{Method: sales.PaymentCash, Amount: decimal.NewFromInt(1600)}},
	})
	require.NoError(t, err)
	o.AssignInvoiceNumber("INV-COL-000100")
	o.ClearDomainEvents()
	o.CreatedAt = createdAt
	return o
}

func TestSalesService_Void(t *testing.T) {
	ctx := context.Background()

	t.Run("same day restores tracked stock", func(t *testing.T) {
		f := newSalesFixture(t)
		order := completedOrder(t, f, time.Now())
		f.orders.On("FindByID", ctx, f.tenantID, order.ID).Return(order, nil)
		f.stock.On("Restore", ctx, f.tenantID, f.branch.ID,
			[]inventory.Line{{VariantID: f.tea.ID, Quantity: decimal.NewFromInt(3)}},
			"INV-COL-000100", "wrong item", mock.Anything).Return(nil, nil)
		f.orders.On("Save", ctx, order).Return(nil)

		resp, err := f.svc.Void(ctx, f.cashier(), order.ID, VoidRequest{Reason: "wrong item"})

		require.NoError(t, err)
		assert.Equal(t, string(sales.OrderStatusVoided), resp.Status)
		assert.Equal(t, []string{sales.EventTypeOrderVoided}, f.publisher.types())
		f.stock.AssertExpectations(t)
	})

	t.Run("cashier cannot void yesterday's order", func(t *testing.T) {
		f := newSalesFixture(t)
		order := completedOrder(t, f, time.Now().Add(-48*time.Hour))
		f.orders.On("FindByID", ctx, f.tenantID, order.ID).Return(order, nil)

		_, err := f.svc.Void(ctx, f.cashier(), order.ID, VoidRequest{Reason: "late"})

		assert.ErrorIs(t, err, sales.ErrVoidWindowClosed)
	})

	t.Run("owner can void any day", func(t *testing.T) {
		f := newSalesFixture(t)
		order := completedOrder(t, f, time.Now().Add(-48*time.Hour))
		f.orders.On("FindByID", ctx, f.tenantID, order.ID).Return(order, nil)
		f.stock.On("Restore", ctx, f.tenantID, f.branch.ID, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
		f.orders.On("Save", ctx, order).Return(nil)

		_, err := f.svc.Void(ctx, f.owner(), order.ID, VoidRequest{Reason: "refund approved"})

		assert.NoError(t, err)
	})
}

func pendingOrder(t *testing.T, f *salesFixture) *sales.Order {
	t.Helper()
	o, err := sales.NewOrder(sales.OrderInput{
		TenantID:  f.tenantID,
		BranchID:  f.branch.ID,
		CashierID: uuid.New(),
		Lines:     []sales.LineInput{{VariantID: f.tea.ID, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(500)}},
		Payments:  []sales.OrderPayment{{Method: sales.PaymentOnePay, Amount: decimal.NewFromInt(500)}},
	})
	require.NoError(t, err)
	o.AssignInvoiceNumber("INV-COL-000200")
	o.ClearDomainEvents()
	return o
}

func TestSalesService_MarkPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("completes pending order", func(t *testing.T) {
		f := newSalesFixture(t)
		order := pendingOrder(t, f)
		f.orders.On("FindByID", ctx, f.tenantID, order.ID).Return(order, nil)
		f.orders.On("Save", ctx, order).Return(nil)

		require.NoError(t, f.svc.MarkPaid(ctx, f.tenantID, order.ID, "OP-123"))

		assert.Equal(t, sales.OrderStatusCompleted, order.Status)
		assert.Equal(t, "OP-123", order.GatewayPayment().Reference)
		assert.Equal(t, []string{sales.EventTypeOrderCompleted}, f.publisher.types())
	})

	t.Run("repeat is a no-op", func(t *testing.T) {
		f := newSalesFixture(t)
		order := completedOrder(t, f, time.Now())
		f.orders.On("FindByID", ctx, f.tenantID, order.ID).Return(order, nil)

		require.NoError(t, f.svc.MarkPaid(ctx, f.tenantID, order.ID, "OP-123"))
		f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestSalesService_ExpirePendingOrders(t *testing.T) {
	ctx := context.Background()
	f := newSalesFixture(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	order := pendingOrder(t, f)
	f.orders.On("FindStalePending", ctx, now.Add(-30*time.Minute), staleBatchSize).Return([]*sales.Order{order}, nil)
	f.stock.On("Restore", ctx, f.tenantID, f.branch.ID,
		[]inventory.Line{{VariantID: f.tea.ID, Quantity: decimal.NewFromInt(1)}},
		"INV-COL-000200", expiredReason, (*uuid.UUID)(nil)).Return(nil, nil)
	f.orders.On("Save", ctx, order).Return(nil)

	n, err := f.svc.ExpirePendingOrders(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, sales.OrderStatusVoided, order.Status)
}

func TestSalesService_List_ScopesCashier(t *testing.T) {
	ctx := context.Background()
	f := newSalesFixture(t)
	f.orders.On("FindAll", ctx, f.tenantID, mock.MatchedBy(func(filter sales.OrderFilter) bool {
		return len(filter.BranchIDs) == 1 && filter.BranchIDs[0] == f.branch.ID
	})).Return([]*sales.Order{}, int64(0), nil)

	page, err := f.svc.List(ctx, f.cashier(), OrderListFilter{})

	require.NoError(t, err)
	assert.Equal(t, int64(0), page.Total)
}

func TestSalesService_Settle(t *testing.T) {
	ctx := context.Background()
	f := newSalesFixture(t)
	order := completedOrder(t, f, time.Now())
	require.NoError(t, order.Void("duplicate", time.Now(), time.UTC, true))
	order.ClearDomainEvents()
	f.orders.On("FindByID", ctx, f.tenantID, order.ID).Return(order, nil)

	txn, err := finance.NewPaymentTransaction(f.tenantID, finance.PaymentPurposeOrder, order.ID, order.InvoiceNumber,
		finance.PaymentGatewayTypeOnePay, decimal.NewFromInt(1600), "LKR")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Settle(ctx, txn), finance.ErrNothingToSettle)
}

func TestSalesService_Settle_LosesRaceWithExpiry(t *testing.T) {
	ctx := context.Background()
	f := newSalesFixture(t)
	stale := pendingOrder(t, f)
	expired := *stale
	require.NoError(t, expired.CancelPending(expiredReason))

	f.orders.On("FindByID", ctx, f.tenantID, stale.ID).Return(stale, nil).Once()
	f.orders.On("Save", ctx, stale).Return(shared.ErrConcurrencyConflict).Once()
	f.orders.On("FindByID", ctx, f.tenantID, stale.ID).Return(&expired, nil).Once()

	txn, err := finance.NewPaymentTransaction(f.tenantID, finance.PaymentPurposeOrder, stale.ID, stale.InvoiceNumber,
		finance.PaymentGatewayTypeOnePay, decimal.NewFromInt(500), "LKR")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Settle(ctx, txn), finance.ErrNothingToSettle)
	assert.Empty(t, f.publisher.types())
	f.orders.AssertExpectations(t)
}

package sales

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudpos/backend/internal/domain/branch"
	"github.com/cloudpos/backend/internal/domain/business"
	"github.com/cloudpos/backend/internal/domain/catalog"
	"github.com/cloudpos/backend/internal/domain/customer"
	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/inventory"
	"github.com/cloudpos/backend/internal/domain/sales"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	PermCreateOrder = "create:order"
	PermViewOrder   = "view:order"
	PermVoidOrder   = "void:order"
	// PermVoidAnyDay lifts the same-business-day void window. It is only
	// honoured as a tenant-wide grant.
	PermVoidAnyDay = "void:order:any_day"

	expiredReason  = "Payment not received in time"
	staleBatchSize = 100
)

var (
	ErrBranchInactive      = shared.NewDomainError("BRANCH_INACTIVE", "Branch is not active")
	ErrVariantNotSellable  = shared.NewDomainError("VARIANT_NOT_SELLABLE", "Product is not available for sale")
	ErrCreditNeedsCustomer = shared.NewDomainError("CREDIT_NEEDS_CUSTOMER", "Credit sales need a customer")
	ErrOrderNotPending     = shared.NewDomainError("ORDER_NOT_PENDING", "Order is not awaiting payment")
)

// Options holds checkout rules from configuration
type Options struct {
	TaxRate        decimal.Decimal
	Location       *time.Location
	PendingTimeout time.Duration
}

// SalesService runs POS checkout and the order lifecycle
type SalesService struct {
	orders     sales.Repository
	branches   branch.Repository
	businesses business.Repository
	products   catalog.ProductRepository
	customers  customer.Repository
	users      identity.UserRepository
	stock      StockKeeper
	credit     CreditLedger
	payments   PaymentStarter
	renderer   ReceiptRenderer
	tx         shared.TxManager
	publisher  shared.EventPublisher
	opts       Options
	logger     *zap.Logger
	now        func() time.Time
}

// SalesServiceDeps groups the collaborators of SalesService
type SalesServiceDeps struct {
	Orders     sales.Repository
	Branches   branch.Repository
	Businesses business.Repository
	Products   catalog.ProductRepository
	Customers  customer.Repository
	Users      identity.UserRepository
	Stock      StockKeeper
	Credit     CreditLedger
	Payments   PaymentStarter
	Renderer   ReceiptRenderer
	Tx         shared.TxManager
	Publisher  shared.EventPublisher
}

// NewSalesService creates a new SalesService
func NewSalesService(deps SalesServiceDeps, opts Options, logger *zap.Logger) *SalesService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.PendingTimeout <= 0 {
		opts.PendingTimeout = 30 * time.Minute
	}
	return &SalesService{
		orders:     deps.Orders,
		branches:   deps.Branches,
		businesses: deps.Businesses,
		products:   deps.Products,
		customers:  deps.Customers,
		users:      deps.Users,
		stock:      deps.Stock,
		credit:     deps.Credit,
		payments:   deps.Payments,
		renderer:   deps.Renderer,
		tx:         deps.Tx,
		publisher:  deps.Publisher,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// Checkout prices, validates and persists a sale. The invoice number, stock
// deduction, credit charge and order row are written in one transaction.
func (s *SalesService) Checkout(ctx context.Context, p *identity.Principal, req CheckoutRequest) (*CheckoutResponse, error) {
	if err := p.Require(PermCreateOrder, &req.BranchID); err != nil {
		return nil, err
	}
	clientRef := strings.TrimSpace(req.ClientRef)
	if clientRef != "" {
		replayed, err := s.replay(ctx, p.TenantID, clientRef)
		if err != nil || replayed != nil {
			return replayed, err
		}
	}

	b, err := s.branches.FindByID(ctx, p.TenantID, req.BranchID)
	if err != nil {
		return nil, err
	}
	if !b.IsActive {
		return nil, ErrBranchInactive
	}
	meta, err := s.businesses.Get(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}

	lines, tracked, belowCost, err := s.priceLines(ctx, p.TenantID, req)
	if err != nil {
		return nil, err
	}
	payments := make([]sales.OrderPayment, len(req.Payments))
	for i, pay := range req.Payments {
		payments[i] = sales.OrderPayment{
			Method:    sales.PaymentMethod(strings.ToUpper(pay.Method)),
			Amount:    pay.Amount,
			Reference: pay.Reference,
		}
		if payments[i].Method == sales.PaymentCredit && req.CustomerID == nil {
			return nil, ErrCreditNeedsCustomer
		}
	}

	order, err := sales.NewOrder(sales.OrderInput{
		TenantID:         p.TenantID,
		BranchID:         b.ID,
		CashierID:        p.UserID,
		CustomerID:       req.CustomerID,
		ClientRef:        clientRef,
		Lines:            lines,
		OrderDiscount:    req.OrderDiscount,
		TaxRate:          s.opts.TaxRate,
		Payments:         payments,
		OfflineCreatedAt: req.OfflineCreatedAt,
		Note:             req.Note,
	})
	if err != nil {
		return nil, err
	}

	var stockEvents []shared.DomainEvent
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		code, seq, err := s.branches.NextInvoiceNumber(ctx, p.TenantID, b.ID)
		if err != nil {
			return err
		}
		order.AssignInvoiceNumber(branch.FormatInvoiceNumber(meta.InvoicePrefix, code, seq))

		if len(tracked) > 0 {
			if stockEvents, err = s.stock.Deduct(ctx, p.TenantID, b.ID, tracked, order.InvoiceNumber, &p.UserID); err != nil {
				return err
			}
		}
		if credit := order.CreditAmount(); credit.IsPositive() {
			if err := s.credit.ChargeCredit(ctx, p.TenantID, *order.CustomerID, credit); err != nil {
				return err
			}
		}
		return s.orders.Save(ctx, order)
	})
	if err != nil {
		// a concurrent request with the same ClientRef won the insert
		if errors.Is(err, shared.ErrAlreadyExists) && clientRef != "" {
			if replayed, rerr := s.replay(ctx, p.TenantID, clientRef); rerr == nil && replayed != nil {
				return replayed, nil
			}
		}
		return nil, err
	}
	s.publish(ctx, order, stockEvents)

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("invoice_number", order.InvoiceNumber),
		zap.String("status", string(order.Status)),
		zap.String("grand_total", order.GrandTotal.StringFixed(2)))

	resp := &CheckoutResponse{Order: ToOrderResponse(order), BelowCost: belowCost}
	if order.Status == sales.OrderStatusPendingPayment {
		checkout, err := s.startPayment(ctx, order, meta, req.Customer)
		if err != nil {
			// the order stays pending; the client may retry or it expires
			s.logger.Warn("Failed to start gateway payment",
				zap.String("order_id", order.ID.String()), zap.Error(err))
		}
		resp.Payment = checkout
	}
	return resp, nil
}

func (s *SalesService) replay(ctx context.Context, tenantID uuid.UUID, clientRef string) (*CheckoutResponse, error) {
	existing, err := s.orders.FindByClientRef(ctx, tenantID, clientRef)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	s.logger.Info("Replayed order by client ref",
		zap.String("client_ref", clientRef),
		zap.String("order_id", existing.ID.String()))
	return &CheckoutResponse{Order: ToOrderResponse(existing), Replayed: true}, nil
}

// priceLines resolves tier prices and returns the stock lines for tracked variants
func (s *SalesService) priceLines(ctx context.Context, tenantID uuid.UUID, req CheckoutRequest) ([]sales.LineInput, []inventory.Line, []string, error) {
	ids := make([]uuid.UUID, 0, len(req.Lines))
	seen := make(map[uuid.UUID]bool, len(req.Lines))
	for _, l := range req.Lines {
		if !seen[l.VariantID] {
			seen[l.VariantID] = true
			ids = append(ids, l.VariantID)
		}
	}
	views, err := s.products.FindVariantsByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, nil, nil, err
	}
	byID := make(map[uuid.UUID]catalog.VariantView, len(views))
	for _, v := range views {
		byID[v.ID] = v
	}

	lines := make([]sales.LineInput, 0, len(req.Lines))
	var tracked []inventory.Line
	var belowCost []string
	for _, l := range req.Lines {
		view, ok := byID[l.VariantID]
		if !ok {
			return nil, nil, nil, catalog.ErrVariantNotFound
		}
		if !view.Sellable() {
			return nil, nil, nil, shared.NewDomainError(ErrVariantNotSellable.Code, view.SKU+" is not available for sale")
		}
		tier := l.PriceTier
		if tier == "" {
			tier = req.PriceTier
		}
		price := view.ResolvePrice(tier, l.Quantity)
		if price.BelowCost {
			belowCost = append(belowCost, view.SKU)
		}
		lines = append(lines, sales.LineInput{
			VariantID:     view.ID,
			ProductName:   view.ProductName,
			VariationName: view.VariationName,
			SKU:           view.SKU,
			Quantity:      l.Quantity,
			PriceTier:     price.Tier,
			UnitPrice:     price.UnitPrice,
			CostPrice:     view.CostPrice,
			LineDiscount:  l.LineDiscount,
		})
		if view.TrackStock {
			tracked = append(tracked, inventory.Line{VariantID: view.ID, Quantity: l.Quantity})
		}
	}
	return lines, tracked, belowCost, nil
}

// RetryPayment opens a fresh gateway checkout for a pending order
func (s *SalesService) RetryPayment(ctx context.Context, p *identity.Principal, id uuid.UUID, payer *PayerRequest) (*GatewayCheckoutResponse, error) {
	order, err := s.orders.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := p.Require(PermCreateOrder, &order.BranchID); err != nil {
		return nil, err
	}
	if order.Status != sales.OrderStatusPendingPayment {
		return nil, ErrOrderNotPending
	}
	meta, err := s.businesses.Get(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}
	return s.startPayment(ctx, order, meta, payer)
}

func (s *SalesService) startPayment(ctx context.Context, order *sales.Order, meta *business.Meta, payer *PayerRequest) (*GatewayCheckoutResponse, error) {
	gp := order.GatewayPayment()
	if gp == nil || s.payments == nil {
		return nil, nil
	}
	intent := finance.PaymentIntent{
		TenantID:    order.TenantID,
		Purpose:     finance.PaymentPurposeOrder,
		ReferenceID: order.ID,
		Reference:   order.InvoiceNumber,
		Gateway:     finance.PaymentGatewayType(gp.Method),
		Amount:      gp.Amount,
		Currency:    string(meta.Currency),
		Items:       meta.BusinessName + " " + order.InvoiceNumber,
		Customer:    s.payer(ctx, order, payer),
	}
	tx, checkout, err := s.payments.StartPayment(ctx, intent)
	if err != nil {
		return nil, err
	}
	return ToGatewayCheckoutResponse(tx.ID, checkout), nil
}

func (s *SalesService) payer(ctx context.Context, order *sales.Order, req *PayerRequest) finance.PaymentCustomer {
	if req != nil {
		return finance.PaymentCustomer{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
			Address:   req.Address,
			City:      req.City,
			Country:   "Sri Lanka",
		}
	}
	out := finance.PaymentCustomer{FirstName: "Walk-in", LastName: "Customer", Country: "Sri Lanka"}
	if order.CustomerID == nil || s.customers == nil {
		return out
	}
	c, err := s.customers.FindByID(ctx, order.TenantID, *order.CustomerID)
	if err != nil {
		return out
	}
	first, last, _ := strings.Cut(c.Name, " ")
	out.FirstName, out.LastName = first, last
	out.Email, out.Phone, out.Address = c.Email, c.Phone, c.Address
	return out
}

// Get returns an order the principal may view
func (s *SalesService) Get(ctx context.Context, p *identity.Principal, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// GetByInvoiceNumber looks an order up by its printed number
func (s *SalesService) GetByInvoiceNumber(ctx context.Context, p *identity.Principal, number string) (*OrderResponse, error) {
	order, err := s.orders.FindByInvoiceNumber(ctx, p.TenantID, strings.ToUpper(strings.TrimSpace(number)))
	if err != nil {
		return nil, err
	}
	if err := p.Require(PermViewOrder, &order.BranchID); err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// List pages through orders in the branches the principal can see
func (s *SalesService) List(ctx context.Context, p *identity.Principal, f OrderListFilter) (shared.Paginated[OrderResponse], error) {
	scope, err := branchScope(p, PermViewOrder, f.BranchID)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	filter := sales.OrderFilter{
		Filter: shared.Filter{
			Page:      f.Page,
			PageSize:  f.PageSize,
			OrderBy:   f.OrderBy,
			OrderDir:  f.OrderDir,
			Search:    strings.TrimSpace(f.Search),
			BranchIDs: scope,
			From:      f.From,
			To:        endOfDay(f.To),
		},
		Status:     sales.OrderStatus(f.Status),
		CashierID:  f.CashierID,
		CustomerID: f.CustomerID,
	}
	filter.Normalize()

	orders, total, err := s.orders.FindAll(ctx, p.TenantID, filter)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	items := make([]OrderResponse, len(orders))
	for i, o := range orders {
		items[i] = ToOrderResponse(o)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Void cancels a completed order, puts its stock back and refunds store credit
func (s *SalesService) Void(ctx context.Context, p *identity.Principal, id uuid.UUID, req VoidRequest) (*OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := p.Require(PermVoidOrder, &order.BranchID); err != nil {
		return nil, err
	}
	anyDay := p.Can(PermVoidAnyDay, nil)
	if err := order.Void(req.Reason, s.now(), s.opts.Location, !anyDay); err != nil {
		return nil, err
	}

	stockEvents, err := s.reverse(ctx, order, &p.UserID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, order, stockEvents)

	s.logger.Info("Order voided",
		zap.String("order_id", order.ID.String()),
		zap.String("invoice_number", order.InvoiceNumber),
		zap.String("voided_by", p.UserID.String()))
	resp := ToOrderResponse(order)
	return &resp, nil
}

// MarkPaid completes a pending gateway order; repeated calls are no-ops
func (s *SalesService) MarkPaid(ctx context.Context, tenantID, orderID uuid.UUID, gatewayRef string) error {
	order, err := s.orders.FindByID(ctx, tenantID, orderID)
	if err != nil {
		return err
	}
	if order.Status == sales.OrderStatusCompleted {
		return nil
	}
	if order.Status != sales.OrderStatusPendingPayment {
		return ErrOrderNotPending
	}
	if err := order.MarkPaid(gatewayRef); err != nil {
		return err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return err
	}
	s.publish(ctx, order, nil)
	s.logger.Info("Gateway order paid",
		zap.String("order_id", order.ID.String()),
		zap.String("gateway_ref", gatewayRef))
	return nil
}

// Settle completes the order a paid gateway transaction belongs to. A voided
// or expired order reports finance.ErrNothingToSettle.
func (s *SalesService) Settle(ctx context.Context, txn *finance.PaymentTransaction) error {
	err := s.MarkPaid(ctx, txn.TenantID, txn.ReferenceID, txn.GatewayRef)
	if errors.Is(err, shared.ErrConcurrencyConflict) {
		// lost a race with void or expiry; reload and decide again
		err = s.MarkPaid(ctx, txn.TenantID, txn.ReferenceID, txn.GatewayRef)
	}
	if errors.Is(err, ErrOrderNotPending) {
		return finance.ErrNothingToSettle
	}
	return err
}

// ExpirePendingOrders cancels gateway orders left unpaid past the timeout and
// restores their stock. Returns the number of cancelled orders.
func (s *SalesService) ExpirePendingOrders(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.opts.PendingTimeout)
	stale, err := s.orders.FindStalePending(ctx, cutoff, staleBatchSize)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, order := range stale {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		if err := order.CancelPending(expiredReason); err != nil {
			continue
		}
		stockEvents, err := s.reverse(ctx, order, nil)
		if err != nil {
			s.logger.Warn("Failed to expire pending order",
				zap.String("order_id", order.ID.String()), zap.Error(err))
			continue
		}
		s.publish(ctx, order, stockEvents)
		expired++
	}
	if expired > 0 {
		s.logger.Info("Expired pending orders", zap.Int("count", expired))
	}
	return expired, nil
}

// reverse restores stock and credit for a voided order and saves it
func (s *SalesService) reverse(ctx context.Context, order *sales.Order, actor *uuid.UUID) ([]shared.DomainEvent, error) {
	tracked, err := s.trackedLines(ctx, order)
	if err != nil {
		return nil, err
	}
	var events []shared.DomainEvent
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if len(tracked) > 0 {
			if events, err = s.stock.Restore(ctx, order.TenantID, order.BranchID, tracked, order.InvoiceNumber, order.VoidReason, actor); err != nil {
				return err
			}
		}
		if credit := order.CreditAmount(); credit.IsPositive() && order.CustomerID != nil {
			if err := s.credit.RefundCredit(ctx, order.TenantID, *order.CustomerID, credit); err != nil {
				return err
			}
		}
		return s.orders.Save(ctx, order)
	})
	return events, err
}

func (s *SalesService) trackedLines(ctx context.Context, order *sales.Order) ([]inventory.Line, error) {
	ids := make([]uuid.UUID, 0, len(order.Lines))
	for _, l := range order.Lines {
		ids = append(ids, l.VariantID)
	}
	views, err := s.products.FindVariantsByIDs(ctx, order.TenantID, ids)
	if err != nil {
		return nil, err
	}
	trackedIDs := make(map[uuid.UUID]bool, len(views))
	for _, v := range views {
		if v.TrackStock {
			trackedIDs[v.ID] = true
		}
	}
	var lines []inventory.Line
	for _, l := range order.Lines {
		if trackedIDs[l.VariantID] {
			lines = append(lines, inventory.Line{VariantID: l.VariantID, Quantity: l.Quantity})
		}
	}
	return lines, nil
}

// Receipt assembles the printable receipt of an order
func (s *SalesService) Receipt(ctx context.Context, p *identity.Principal, id uuid.UUID) (*sales.Receipt, error) {
	order, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.receiptOf(ctx, order)
}

// LoadReceipt assembles a receipt without a caller, for event handlers and
// background jobs
func (s *SalesService) LoadReceipt(ctx context.Context, tenantID, id uuid.UUID) (*sales.Receipt, error) {
	order, err := s.orders.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return s.receiptOf(ctx, order)
}

func (s *SalesService) receiptOf(ctx context.Context, order *sales.Order) (*sales.Receipt, error) {
	meta, err := s.businesses.Get(ctx, order.TenantID)
	if err != nil {
		return nil, err
	}
	b, err := s.branches.FindByID(ctx, order.TenantID, order.BranchID)
	if err != nil {
		return nil, err
	}
	r := &sales.Receipt{
		Order:         order,
		BusinessName:  meta.BusinessName,
		BusinessPhone: meta.Phone,
		BusinessEmail: meta.Email,
		BranchName:    b.Name,
		BranchAddress: b.Address,
		BranchPhone:   b.Phone,
		Currency:      meta.Currency,
		Footer:        meta.ReceiptFooter,
		Location:      s.opts.Location,
	}
	if cashier, err := s.users.FindByID(ctx, order.TenantID, order.CashierID); err == nil {
		r.CashierName = cashier.DisplayName
		if r.CashierName == "" {
			r.CashierName = cashier.Username
		}
	}
	if order.CustomerID != nil && s.customers != nil {
		if c, err := s.customers.FindByID(ctx, order.TenantID, *order.CustomerID); err == nil {
			r.CustomerName, r.CustomerPhone, r.CustomerEmail = c.Name, c.Phone, c.Email
		}
	}
	return r, nil
}

// ReceiptHTML renders the receipt for a thermal printer
func (s *SalesService) ReceiptHTML(ctx context.Context, p *identity.Principal, id uuid.UUID) (string, error) {
	if s.renderer == nil {
		return "", shared.NewDomainError("PRINTING_DISABLED", "Receipt printing is not configured")
	}
	r, err := s.Receipt(ctx, p, id)
	if err != nil {
		return "", err
	}
	return s.renderer.RenderReceipt(r)
}

func (s *SalesService) load(ctx context.Context, p *identity.Principal, id uuid.UUID) (*sales.Order, error) {
	order, err := s.orders.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := p.Require(PermViewOrder, &order.BranchID); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *SalesService) publish(ctx context.Context, order *sales.Order, extra []shared.DomainEvent) {
	if err := shared.PublishAndClear(ctx, s.publisher, order); err != nil {
		s.logger.Warn("Failed to publish order events", zap.Error(err))
	}
	if len(extra) > 0 && s.publisher != nil {
		if err := s.publisher.Publish(ctx, extra...); err != nil {
			s.logger.Warn("Failed to publish stock events", zap.Error(err))
		}
	}
}

func endOfDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	end := t.Add(24*time.Hour - time.Nanosecond)
	return &end
}

func branchScope(p *identity.Principal, perm string, branchID *uuid.UUID) ([]uuid.UUID, error) {
	if branchID != nil {
		if err := p.Require(perm, branchID); err != nil {
			return nil, err
		}
		return []uuid.UUID{*branchID}, nil
	}
	all, branches := p.AllowedBranches(perm)
	if all {
		return nil, nil
	}
	if len(branches) == 0 {
		return nil, shared.ErrForbidden
	}
	return branches, nil
}

package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudpos/backend/internal/domain/billing"
	"github.com/cloudpos/backend/internal/domain/business"
	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Permissions for the billing screens
const (
	PermViewBilling   = "view:billing"
	PermManageBilling = "manage:billing"
)

const sweepBatch = 100

var ErrInvoiceNotOpen = shared.NewDomainError("INVOICE_NOT_OPEN", "Only open invoices can be paid")

// PaymentStarter opens a gateway checkout
type PaymentStarter interface {
	StartPayment(ctx context.Context, intent finance.PaymentIntent) (*finance.PaymentTransaction, *finance.CreatePaymentResponse, error)
}

// Options holds the billing rules from configuration
type Options struct {
	GraceDays   int
	RenewalLead time.Duration
}

// SubscriptionServiceDeps groups the collaborators of SubscriptionService
type SubscriptionServiceDeps struct {
	Subscriptions billing.SubscriptionRepository
	Invoices      billing.InvoiceRepository
	Plans         *billing.PlanCatalog
	Businesses    business.Repository
	Quota         *QuotaService
	Payments      PaymentStarter
	Tx            shared.TxManager
	Publisher     shared.EventPublisher
}

// SubscriptionService prices plans, issues invoices and moves subscriptions
// through their lifecycle
type SubscriptionService struct {
	subscriptions billing.SubscriptionRepository
	invoices      billing.InvoiceRepository
	plans         *billing.PlanCatalog
	businesses    business.Repository
	quota         *QuotaService
	payments      PaymentStarter
	tx            shared.TxManager
	publisher     shared.EventPublisher
	opts          Options
	logger        *zap.Logger
	now           func() time.Time
}

// NewSubscriptionService creates a new SubscriptionService
func NewSubscriptionService(deps SubscriptionServiceDeps, opts Options, logger *zap.Logger) *SubscriptionService {
	if opts.GraceDays < 0 {
		opts.GraceDays = 0
	}
	if opts.RenewalLead <= 0 {
		opts.RenewalLead = 72 * time.Hour
	}
	return &SubscriptionService{
		subscriptions: deps.Subscriptions,
		invoices:      deps.Invoices,
		plans:         deps.Plans,
		businesses:    deps.Businesses,
		quota:         deps.Quota,
		payments:      deps.Payments,
		tx:            deps.Tx,
		publisher:     deps.Publisher,
		opts:          opts,
		logger:        logger,
		now:           time.Now,
	}
}

// ListPlans returns the plan catalog
func (s *SubscriptionService) ListPlans() []billing.Plan {
	return s.plans.List()
}

// GetSubscription returns the caller's subscription with usage counts
func (s *SubscriptionService) GetSubscription(ctx context.Context, p *identity.Principal) (*SubscriptionResponse, error) {
	if !p.CanInSomeBranch(PermViewBilling) {
		return nil, shared.ErrForbidden
	}
	sub, err := s.subscriptions.FindByTenant(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}
	plan, err := s.plans.Get(sub.PlanCode)
	if err != nil {
		return nil, err
	}
	resp := &SubscriptionResponse{
		ID:                 sub.ID,
		PlanCode:           sub.PlanCode,
		Plan:               plan,
		Cycle:              string(sub.Cycle),
		Status:             string(sub.Status),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		TrialEndsAt:        sub.TrialEndsAt,
		ExtraBranches:      sub.ExtraBranches,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		BranchLimit:        sub.BranchLimit(plan),
	}
	if s.quota != nil {
		if n, err := s.quota.branches.Count(ctx, p.TenantID); err == nil {
			resp.BranchCount = n
		}
		if n, err := s.quota.users.Count(ctx, p.TenantID); err == nil {
			resp.UserCount = n
		}
	}
	return resp, nil
}

// Quote prices a plan change. Paid-up time left on the current period is
// credited against the new total.
func (s *SubscriptionService) Quote(ctx context.Context, p *identity.Principal, req QuoteRequest) (*billing.Quote, error) {
	if !p.CanInSomeBranch(PermViewBilling) {
		return nil, shared.ErrForbidden
	}
	sub, err := s.subscriptions.FindByTenant(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}
	q, err := s.quote(sub, req)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *SubscriptionService) quote(sub *billing.Subscription, req QuoteRequest) (billing.Quote, error) {
	plan, err := s.plans.Get(strings.ToLower(strings.TrimSpace(req.PlanCode)))
	if err != nil {
		return billing.Quote{}, err
	}
	q, err := billing.NewQuote(plan, billing.Cycle(req.Cycle), req.ExtraBranches)
	if err != nil {
		return billing.Quote{}, err
	}
	return q.WithCredit(sub.ProrationCredit(s.now())), nil
}

// ChangePlan issues a plan-change invoice, replacing any unpaid one. An
// invoice fully covered by credit is applied immediately.
func (s *SubscriptionService) ChangePlan(ctx context.Context, p *identity.Principal, req QuoteRequest) (*InvoiceResponse, error) {
	if !p.Can(PermManageBilling, nil) {
		return nil, shared.ErrForbidden
	}
	var inv *billing.Invoice
	var sub *billing.Subscription
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		sub, err = s.subscriptions.FindByTenant(ctx, p.TenantID)
		if err != nil {
			return err
		}
		q, err := s.quote(sub, req)
		if err != nil {
			return err
		}
		if err := s.ensureFits(ctx, p.TenantID, sub, q); err != nil {
			return err
		}

		open, err := s.invoices.FindOpen(ctx, p.TenantID)
		if err != nil {
			return err
		}
		for _, o := range open {
			if o.Kind != billing.InvoiceKindPlanChange {
				continue
			}
			if err := o.Void(); err != nil {
				return err
			}
			if err := s.invoices.Save(ctx, o); err != nil {
				return err
			}
		}

		now := s.now()
		inv = billing.NewInvoice(p.TenantID, billing.InvoiceKindPlanChange, q, now)
		if inv.IsFree() {
			if _, err := inv.MarkPaid("CREDIT", "", now); err != nil {
				return err
			}
			sub.ApplyPaidInvoice(inv, now)
			if err := s.subscriptions.Save(ctx, sub); err != nil {
				return err
			}
			if err := s.syncPlan(ctx, sub); err != nil {
				return err
			}
		}
		return s.invoices.Save(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, sub)

	s.logger.Info("Plan change invoiced",
		zap.String("tenant_id", p.TenantID.String()),
		zap.String("invoice", inv.Number),
		zap.String("plan", inv.PlanCode),
		zap.String("amount", inv.Amount.StringFixed(2)))
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// ensureFits rejects a downgrade below the branches already open
func (s *SubscriptionService) ensureFits(ctx context.Context, tenantID uuid.UUID, sub *billing.Subscription, q billing.Quote) error {
	if s.quota == nil {
		return nil
	}
	plan, err := s.plans.Get(q.PlanCode)
	if err != nil {
		return err
	}
	next := *sub
	next.ExtraBranches = q.ExtraBranches
	limit := next.BranchLimit(plan)
	if limit == 0 {
		return nil
	}
	count, err := s.quota.branches.Count(ctx, tenantID)
	if err != nil {
		return err
	}
	if count > int64(limit) {
		return &LimitExceededError{Resource: ResourceBranches, Current: count, Limit: int64(limit), PlanCode: plan.Code}
	}
	return nil
}

// ListInvoices pages through the tenant's invoices, newest first
func (s *SubscriptionService) ListInvoices(ctx context.Context, p *identity.Principal, f InvoiceListFilter) (shared.Paginated[InvoiceResponse], error) {
	if !p.CanInSomeBranch(PermViewBilling) {
		return shared.Paginated[InvoiceResponse]{}, shared.ErrForbidden
	}
	filter := shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: "created_at"}
	filter.Normalize()
	invoices, total, err := s.invoices.FindAll(ctx, p.TenantID, filter)
	if err != nil {
		return shared.Paginated[InvoiceResponse]{}, err
	}
	items := make([]InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		items[i] = ToInvoiceResponse(inv)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Checkout opens a gateway payment for an open invoice
func (s *SubscriptionService) Checkout(ctx context.Context, p *identity.Principal, invoiceID uuid.UUID, req CheckoutRequest) (*CheckoutResponse, error) {
	if !p.Can(PermManageBilling, nil) {
		return nil, shared.ErrForbidden
	}
	gateway, err := finance.ParseGatewayType(req.Gateway)
	if err != nil {
		return nil, err
	}
	inv, err := s.invoices.FindByID(ctx, p.TenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != billing.InvoiceStatusOpen {
		return nil, ErrInvoiceNotOpen
	}
	meta, err := s.businesses.Get(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}
	plan, err := s.plans.Get(inv.PlanCode)
	if err != nil {
		return nil, err
	}

	txn, checkout, err := s.payments.StartPayment(ctx, finance.PaymentIntent{
		TenantID:    p.TenantID,
		Purpose:     finance.PaymentPurposeSubscription,
		ReferenceID: inv.ID,
		Reference:   inv.Number,
		Gateway:     gateway,
		Amount:      inv.Amount,
		Currency:    inv.Currency,
		Items:       "CloudPOS " + plan.Name + " " + strings.ToLower(string(inv.Cycle)),
		Customer: finance.PaymentCustomer{
			FirstName: meta.BusinessName,
			Email:     meta.Email,
			Phone:     meta.Phone,
			Address:   meta.Address,
			Country:   "Sri Lanka",
		},
	})
	if err != nil {
		return nil, err
	}
	return &CheckoutResponse{
		InvoiceID:     inv.ID,
		TransactionID: txn.ID,
		OrderNumber:   txn.OrderNumber,
		Gateway:       string(checkout.GatewayType),
		Method:        string(checkout.Method),
		CheckoutURL:   checkout.CheckoutURL,
		FormFields:    checkout.FormFields,
	}, nil
}

// Settle applies a successful subscription payment
func (s *SubscriptionService) Settle(ctx context.Context, txn *finance.PaymentTransaction) error {
	return s.HandlePaid(ctx, txn.TenantID, txn.ReferenceID, string(txn.Gateway), txn.GatewayRef)
}

// HandlePaid marks an invoice paid and activates or extends the
// subscription. Paying twice is a no-op; a voided invoice has nothing to settle.
func (s *SubscriptionService) HandlePaid(ctx context.Context, tenantID, invoiceID uuid.UUID, gateway, ref string) error {
	var sub *billing.Subscription
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.FindByID(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == billing.InvoiceStatusVoid {
			return finance.ErrNothingToSettle
		}
		now := s.now()
		changed, err := inv.MarkPaid(gateway, ref, now)
		if err != nil || !changed {
			return err
		}
		if err := s.invoices.Save(ctx, inv); err != nil {
			return err
		}

		sub, err = s.subscriptions.FindByTenant(ctx, tenantID)
		if err != nil {
			return err
		}
		sub.ApplyPaidInvoice(inv, now)
		if err := s.subscriptions.Save(ctx, sub); err != nil {
			return err
		}
		return s.syncPlan(ctx, sub)
	})
	if err != nil {
		return err
	}
	if sub != nil {
		s.logger.Info("Subscription payment applied",
			zap.String("tenant_id", tenantID.String()),
			zap.String("invoice_id", invoiceID.String()),
			zap.String("plan", sub.PlanCode),
			zap.Time("period_end", sub.CurrentPeriodEnd))
		s.publish(ctx, sub)
	}
	return nil
}

// Cancel stops renewal and voids unpaid invoices
func (s *SubscriptionService) Cancel(ctx context.Context, p *identity.Principal) (*SubscriptionResponse, error) {
	if !p.Can(PermManageBilling, nil) {
		return nil, shared.ErrForbidden
	}
	var sub *billing.Subscription
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		sub, err = s.subscriptions.FindByTenant(ctx, p.TenantID)
		if err != nil {
			return err
		}
		if err := sub.Cancel(s.now()); err != nil {
			return err
		}
		if err := s.subscriptions.Save(ctx, sub); err != nil {
			return err
		}
		open, err := s.invoices.FindOpen(ctx, p.TenantID)
		if err != nil {
			return err
		}
		for _, inv := range open {
			if err := inv.Void(); err != nil {
				return err
			}
			if err := s.invoices.Save(ctx, inv); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, sub)
	s.logger.Info("Subscription cancelled",
		zap.String("tenant_id", p.TenantID.String()),
		zap.Bool("at_period_end", sub.CancelAtPeriodEnd))
	return s.GetSubscription(ctx, p)
}

// Sweep advances every live subscription: lapsed periods move to past due or
// expired, and renewals due soon get an invoice. Returns the number of
// subscriptions changed or invoiced.
func (s *SubscriptionService) Sweep(ctx context.Context) (int, error) {
	processed := 0
	after := uuid.Nil
	for {
		batch, err := s.subscriptions.FindSweepable(ctx, after, sweepBatch)
		if err != nil {
			return processed, err
		}
		for _, sub := range batch {
			if err := ctx.Err(); err != nil {
				return processed, err
			}
			touched, err := s.sweepOne(ctx, sub)
			if err != nil {
				s.logger.Error("Subscription sweep failed",
					zap.String("tenant_id", sub.TenantID.String()),
					zap.Error(err))
				continue
			}
			if touched {
				processed++
			}
		}
		if len(batch) < sweepBatch {
			return processed, nil
		}
		after = batch[len(batch)-1].ID
	}
}

func (s *SubscriptionService) sweepOne(ctx context.Context, sub *billing.Subscription) (bool, error) {
	now := s.now()
	touched := false
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if sub.Advance(now, s.opts.GraceDays) {
			touched = true
			if err := s.subscriptions.Save(ctx, sub); err != nil {
				return err
			}
		}
		if !sub.DueForRenewal(now, s.opts.RenewalLead) {
			return nil
		}
		open, err := s.invoices.FindOpen(ctx, sub.TenantID)
		if err != nil {
			return err
		}
		for _, inv := range open {
			if inv.Kind == billing.InvoiceKindRenewal {
				return nil
			}
		}
		plan, err := s.plans.Get(sub.PlanCode)
		if err != nil {
			return err
		}
		q, err := billing.NewQuote(plan, sub.Cycle, sub.ExtraBranches)
		if err != nil {
			return err
		}
		start := sub.CurrentPeriodEnd
		if start.Before(now) {
			start = now
		}
		inv := billing.NewInvoice(sub.TenantID, billing.InvoiceKindRenewal, q, start)
		if err := s.invoices.Save(ctx, inv); err != nil {
			return err
		}
		touched = true
		s.logger.Info("Renewal invoiced",
			zap.String("tenant_id", sub.TenantID.String()),
			zap.String("invoice", inv.Number),
			zap.String("amount", inv.Amount.StringFixed(2)))
		return nil
	})
	if err != nil {
		return false, err
	}
	s.publish(ctx, sub)
	return touched, nil
}

// syncPlan mirrors the active plan onto the business settings row
func (s *SubscriptionService) syncPlan(ctx context.Context, sub *billing.Subscription) error {
	if s.businesses == nil {
		return nil
	}
	meta, err := s.businesses.Get(ctx, sub.TenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if meta.PlanCode == sub.PlanCode {
		return nil
	}
	meta.PlanCode = sub.PlanCode
	return s.businesses.Save(ctx, meta)
}

func (s *SubscriptionService) publish(ctx context.Context, sub *billing.Subscription) {
	if sub == nil {
		return
	}
	if err := shared.PublishAndClear(ctx, s.publisher, sub); err != nil {
		s.logger.Warn("Failed to publish subscription events",
			zap.String("tenant_id", sub.TenantID.String()),
			zap.Error(err))
	}
}

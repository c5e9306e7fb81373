package handler

import (
	billingapp "github.com/cloudpos/backend/internal/application/billing"
	financeapp "github.com/cloudpos/backend/internal/application/finance"
	"github.com/cloudpos/backend/internal/domain/billing"
	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/gin-gonic/gin"
)

// BillingHandler handles plan and subscription endpoints. These routes stay
// reachable when the subscription has lapsed so the owner can pay.
type BillingHandler struct {
	BaseHandler
	subscriptionService *billingapp.SubscriptionService
	paymentService      *financeapp.PaymentService
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(subscriptionService *billingapp.SubscriptionService, paymentService *financeapp.PaymentService) *BillingHandler {
	return &BillingHandler{
		subscriptionService: subscriptionService,
		paymentService:      paymentService,
	}
}

// PlansResponse lists the catalogue and the gateways a plan can be paid with
type PlansResponse struct {
	Plans    []billing.Plan `json:"plans"`
	Gateways []string       `json:"gateways"`
}

// ListPlans godoc
// @ID           listPlansBilling
// @Summary      Plan catalogue
// @Tags         billing
// @Produce      json
// @Success      200 {object} APIResponse[PlansResponse]
// @Security     BearerAuth
// @Router       /billing/plans [get]
func (h *BillingHandler) ListPlans(c *gin.Context) {
	var gateways []string
	if h.paymentService != nil {
		gateways = h.paymentService.EnabledGateways()
	}
	h.Success(c, PlansResponse{
		Plans:    h.subscriptionService.ListPlans(),
		Gateways: gateways,
	})
}

// GetSubscription godoc
// @ID           getSubscriptionBilling
// @Summary      Current subscription with usage
// @Tags         billing
// @Produce      json
// @Success      200 {object} APIResponse[billingapp.SubscriptionResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /billing/subscription [get]
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	sub, err := h.subscriptionService.GetSubscription(c.Request.Context(), p)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sub)
}

// Quote godoc
// @ID           quoteBilling
// @Summary      Price a plan change
// @Description  Includes the prorated credit for the unused part of the current period
// @Tags         billing
// @Produce      json
// @Param        plan_code query string true "Plan code"
// @Param        cycle query string true "Billing cycle" Enums(MONTHLY, ANNUAL)
// @Param        extra_branches query int false "Additional branches"
// @Success      200 {object} APIResponse[billing.Quote]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /billing/quote [get]
func (h *BillingHandler) Quote(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req billingapp.QuoteRequest
	if !h.bindQuery(c, &req) {
		return
	}
	quote, err := h.subscriptionService.Quote(c.Request.Context(), p, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// ChangePlan godoc
// @ID           changePlanBilling
// @Summary      Change plan
// @Description  Issues an invoice for the change. A change fully covered by credit applies at once.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        request body billingapp.QuoteRequest true "Target plan"
// @Success      201 {object} APIResponse[billingapp.InvoiceResponse]
// @Failure      402 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /billing/change-plan [post]
func (h *BillingHandler) ChangePlan(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req billingapp.QuoteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	invoice, err := h.subscriptionService.ChangePlan(c.Request.Context(), p, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// ListInvoices godoc
// @ID           listInvoicesBilling
// @Summary      Billing invoices
// @Tags         billing
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]billingapp.InvoiceResponse]
// @Security     BearerAuth
// @Router       /billing/invoices [get]
func (h *BillingHandler) ListInvoices(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var filter billingapp.InvoiceListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.subscriptionService.ListInvoices(c.Request.Context(), p, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Checkout godoc
// @ID           checkoutInvoiceBilling
// @Summary      Pay an invoice
// @Description  Starts a gateway payment and returns the hosted checkout details
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body billingapp.CheckoutRequest true "Gateway"
// @Success      200 {object} APIResponse[billingapp.CheckoutResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /billing/invoices/{id}/checkout [post]
func (h *BillingHandler) Checkout(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req billingapp.CheckoutRequest
	if !h.bindJSON(c, &req) {
		return
	}
	out, err := h.subscriptionService.Checkout(c.Request.Context(), p, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}

// InvoicePayments godoc
// @ID           listInvoicePaymentsBilling
// @Summary      Gateway payment attempts of an invoice
// @Tags         billing
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} APIResponse[[]financeapp.PaymentTransactionResponse]
// @Security     BearerAuth
// @Router       /billing/invoices/{id}/payments [get]
func (h *BillingHandler) InvoicePayments(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	txns, err := h.paymentService.Transactions(c.Request.Context(), p, finance.PaymentPurposeSubscription, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, txns)
}

// Cancel godoc
// @ID           cancelSubscriptionBilling
// @Summary      Cancel at period end
// @Description  The subscription stays usable until the current period ends; open invoices are voided
// @Tags         billing
// @Produce      json
// @Success      200 {object} APIResponse[billingapp.SubscriptionResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /billing/cancel [post]
func (h *BillingHandler) Cancel(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	sub, err := h.subscriptionService.Cancel(c.Request.Context(), p)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sub)
}

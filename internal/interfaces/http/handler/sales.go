package handler

import (
	"net/http"

	financeapp "github.com/cloudpos/backend/internal/application/finance"
	notificationapp "github.com/cloudpos/backend/internal/application/notification"
	salesapp "github.com/cloudpos/backend/internal/application/sales"
	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/cloudpos/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SalesHandler handles POS checkout and order endpoints
type SalesHandler struct {
	BaseHandler
	salesService   *salesapp.SalesService
	paymentService *financeapp.PaymentService
	ebillService   *notificationapp.EBillService
}

// NewSalesHandler creates a new SalesHandler
func NewSalesHandler(
	salesService *salesapp.SalesService,
	paymentService *financeapp.PaymentService,
	ebillService *notificationapp.EBillService,
) *SalesHandler {
	return &SalesHandler{
		salesService:   salesService,
		paymentService: paymentService,
		ebillService:   ebillService,
	}
}

// Checkout godoc
// @ID           checkoutSales
// @Summary      Checkout
// @Description  Creates an order, deducts stock and allocates the invoice number in one transaction.
// @Description  A repeated client_ref returns the original order with replayed=true and status 200.
// @Description  Gateway tenders leave the order PENDING_PAYMENT and return the gateway checkout payload.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client idempotency key, usually the client_ref"
// @Param        request body salesapp.CheckoutRequest true "Cart and tenders"
// @Success      201 {object} APIResponse[salesapp.CheckoutResponse]
// @Success      200 {object} APIResponse[salesapp.CheckoutResponse] "Replayed"
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/orders [post]
func (h *SalesHandler) Checkout(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req salesapp.CheckoutRequest
	if !h.bindJSON(c, &req) {
		return
	}
	out, err := h.salesService.Checkout(c.Request.Context(), p, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if out.Replayed {
		h.Success(c, out)
		return
	}
	h.Created(c, out)
}

// RetryPayment godoc
// @ID           retryPaymentSales
// @Summary      Restart a gateway payment
// @Description  Issues a fresh gateway checkout for an order still awaiting payment
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body salesapp.PayerRequest false "Payer details"
// @Success      200 {object} APIResponse[salesapp.GatewayCheckoutResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/orders/{id}/retry-payment [post]
func (h *SalesHandler) RetryPayment(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var payer *salesapp.PayerRequest
	if c.Request.ContentLength > 0 {
		payer = &salesapp.PayerRequest{}
		if !h.bindJSON(c, payer) {
			return
		}
	}
	out, err := h.salesService.RetryPayment(c.Request.Context(), p, id, payer)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}

// Get godoc
// @ID           getOrderById
// @Summary      Get an order
// @Tags         sales
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[salesapp.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/orders/{id} [get]
func (h *SalesHandler) Get(c *gin.Context) {
	byID(&h.BaseHandler, c, h.salesService.Get)
}

// GetByInvoiceNumber godoc
// @ID           getOrderByInvoiceNumber
// @Summary      Find an order by invoice number
// @Tags         sales
// @Produce      json
// @Param        number path string true "Invoice number" example(INV-MAIN-000123)
// @Success      200 {object} APIResponse[salesapp.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/orders/invoice/{number} [get]
func (h *SalesHandler) GetByInvoiceNumber(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	order, err := h.salesService.GetByInvoiceNumber(c.Request.Context(), p, c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// List godoc
// @ID           listOrders
// @Summary      List orders
// @Tags         sales
// @Produce      json
// @Param        branch_id query string false "Branch ID" format(uuid)
// @Param        status query string false "Status" Enums(PENDING_PAYMENT, COMPLETED, VOIDED)
// @Param        cashier_id query string false "Cashier ID" format(uuid)
// @Param        customer_id query string false "Customer ID" format(uuid)
// @Param        from query string false "From date" format(date)
// @Param        to query string false "To date" format(date)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]salesapp.OrderResponse]
// @Security     BearerAuth
// @Router       /sales/orders [get]
func (h *SalesHandler) List(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var filter salesapp.OrderListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.salesService.List(c.Request.Context(), p, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Void godoc
// @ID           voidOrder
// @Summary      Void an order
// @Description  Completed orders only, on the day of sale unless void:order:any_day is granted. Stock is restored.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body salesapp.VoidRequest true "Reason"
// @Success      200 {object} APIResponse[salesapp.OrderResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/orders/{id}/void [post]
func (h *SalesHandler) Void(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req salesapp.VoidRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.salesService.Void(c.Request.Context(), p, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Receipt godoc
// @ID           receiptOrder
// @Summary      Printable receipt
// @Description  Structured receipt data; format=html returns the rendered receipt page
// @Tags         sales
// @Produce      json
// @Produce      html
// @Param        id path string true "Order ID" format(uuid)
// @Param        format query string false "Output format" Enums(json, html)
// @Success      200 {object} APIResponse[sales.Receipt]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/orders/{id}/receipt [get]
func (h *SalesHandler) Receipt(c *gin.Context) {
	if c.Query("format") == "html" {
		p, ok := h.principal(c)
		if !ok {
			return
		}
		id, ok := h.parseID(c, "id")
		if !ok {
			return
		}
		html, err := h.salesService.ReceiptHTML(c.Request.Context(), p, id)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
		return
	}
	byID(&h.BaseHandler, c, h.salesService.Receipt)
}

// SendEBill godoc
// @ID           sendEBillOrder
// @Summary      Resend the e-bill
// @Description  Renders the invoice PDF, stores it and delivers it by the business e-bill channel
// @Tags         sales
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[notificationapp.EBillResponse]
// @Failure      402 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/orders/{id}/ebill [post]
func (h *SalesHandler) SendEBill(c *gin.Context) {
	if h.ebillService == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "E-bills are not configured")
		return
	}
	byID(&h.BaseHandler, c, h.ebillService.SendEBill)
}

// Payments godoc
// @ID           listPaymentsOrder
// @Summary      Gateway payment attempts of an order
// @Tags         sales
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[[]financeapp.PaymentTransactionResponse]
// @Security     BearerAuth
// @Router       /sales/orders/{id}/payments [get]
func (h *SalesHandler) Payments(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	// order access is checked first so the transaction list cannot leak across branches
	if _, err := h.salesService.Get(c.Request.Context(), p, id); err != nil {
		h.HandleError(c, err)
		return
	}
	txns, err := h.paymentService.Transactions(c.Request.Context(), p, finance.PaymentPurposeOrder, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, txns)
}

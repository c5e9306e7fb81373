package handler

import (
	financeapp "github.com/cloudpos/backend/internal/application/finance"
	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/gin-gonic/gin"
)

// FinanceHandler handles expense, income and profit summary endpoints
type FinanceHandler struct {
	BaseHandler
	entryService *financeapp.EntryService
}

// NewFinanceHandler creates a new FinanceHandler
func NewFinanceHandler(entryService *financeapp.EntryService) *FinanceHandler {
	return &FinanceHandler{entryService: entryService}
}

// CreateExpense godoc
// @ID           createExpense
// @Summary      Record an expense
// @Tags         finance
// @Accept       json
// @Produce      json
// @Param        request body financeapp.EntryRequest true "Expense"
// @Success      201 {object} APIResponse[financeapp.EntryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /finance/expenses [post]
func (h *FinanceHandler) CreateExpense(c *gin.Context) {
	h.create(c, finance.EntryKindExpense)
}

// CreateIncome godoc
// @ID           createIncome
// @Summary      Record other income
// @Tags         finance
// @Accept       json
// @Produce      json
// @Param        request body financeapp.EntryRequest true "Income"
// @Success      201 {object} APIResponse[financeapp.EntryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /finance/incomes [post]
func (h *FinanceHandler) CreateIncome(c *gin.Context) {
	h.create(c, finance.EntryKindIncome)
}

// GetExpense godoc
// @ID           getExpenseById
// @Summary      Get an expense
// @Tags         finance
// @Produce      json
// @Param        id path string true "Expense ID" format(uuid)
// @Success      200 {object} APIResponse[financeapp.EntryResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /finance/expenses/{id} [get]
func (h *FinanceHandler) GetExpense(c *gin.Context) {
	h.get(c, finance.EntryKindExpense)
}

// GetIncome godoc
// @ID           getIncomeById
// @Summary      Get an income entry
// @Tags         finance
// @Produce      json
// @Param        id path string true "Income ID" format(uuid)
// @Success      200 {object} APIResponse[financeapp.EntryResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /finance/incomes/{id} [get]
func (h *FinanceHandler) GetIncome(c *gin.Context) {
	h.get(c, finance.EntryKindIncome)
}

// UpdateExpense godoc
// @ID           updateExpense
// @Summary      Update an expense
// @Tags         finance
// @Accept       json
// @Produce      json
// @Param        id path string true "Expense ID" format(uuid)
// @Param        request body financeapp.EntryRequest true "Expense"
// @Success      200 {object} APIResponse[financeapp.EntryResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /finance/expenses/{id} [put]
func (h *FinanceHandler) UpdateExpense(c *gin.Context) {
	h.update(c, finance.EntryKindExpense)
}

// UpdateIncome godoc
// @ID           updateIncome
// @Summary      Update an income entry
// @Tags         finance
// @Accept       json
// @Produce      json
// @Param        id path string true "Income ID" format(uuid)
// @Param        request body financeapp.EntryRequest true "Income"
// @Success      200 {object} APIResponse[financeapp.EntryResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /finance/incomes/{id} [put]
func (h *FinanceHandler) UpdateIncome(c *gin.Context) {
	h.update(c, finance.EntryKindIncome)
}

// CancelExpense godoc
// @ID           cancelExpense
// @Summary      Cancel an expense
// @Tags         finance
// @Accept       json
// @Produce      json
// @Param        id path string true "Expense ID" format(uuid)
// @Param        request body financeapp.CancelEntryRequest true "Reason"
// @Success      200 {object} APIResponse[financeapp.EntryResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /finance/expenses/{id}/cancel [post]
func (h *FinanceHandler) CancelExpense(c *gin.Context) {
	h.cancel(c, finance.EntryKindExpense)
}

// CancelIncome godoc
// @ID           cancelIncome
// @Summary      Cancel an income entry
// @Tags         finance
// @Accept       json
// @Produce      json
// @Param        id path string true "Income ID" format(uuid)
// @Param        request body financeapp.CancelEntryRequest true "Reason"
// @Success      200 {object} APIResponse[financeapp.EntryResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /finance/incomes/{id}/cancel [post]
func (h *FinanceHandler) CancelIncome(c *gin.Context) {
	h.cancel(c, finance.EntryKindIncome)
}

// ListExpenses godoc
// @ID           listExpenses
// @Summary      List expenses
// @Tags         finance
// @Produce      json
// @Param        branch_id query string false "Branch ID" format(uuid)
// @Param        category query string false "Category"
// @Param        status query string false "Status" Enums(RECORDED, CANCELLED)
// @Param        from query string false "From date" format(date)
// @Param        to query string false "To date" format(date)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]financeapp.EntryResponse]
// @Security     BearerAuth
// @Router       /finance/expenses [get]
func (h *FinanceHandler) ListExpenses(c *gin.Context) {
	h.list(c, finance.EntryKindExpense)
}

// ListIncomes godoc
// @ID           listIncomes
// @Summary      List income entries
// @Tags         finance
// @Produce      json
// @Param        branch_id query string false "Branch ID" format(uuid)
// @Param        category query string false "Category"
// @Param        status query string false "Status" Enums(RECORDED, CANCELLED)
// @Param        from query string false "From date" format(date)
// @Param        to query string false "To date" format(date)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]financeapp.EntryResponse]
// @Security     BearerAuth
// @Router       /finance/incomes [get]
func (h *FinanceHandler) ListIncomes(c *gin.Context) {
	h.list(c, finance.EntryKindIncome)
}

// Summary godoc
// @ID           summaryFinance
// @Summary      Profit summary
// @Description  Sales from completed orders plus other income minus expenses, with a per-category breakdown
// @Tags         finance
// @Produce      json
// @Param        branch_id query string false "Branch ID" format(uuid)
// @Param        from query string false "From date" format(date)
// @Param        to query string false "To date" format(date)
// @Success      200 {object} APIResponse[finance.Summary]
// @Security     BearerAuth
// @Router       /finance/summary [get]
func (h *FinanceHandler) Summary(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var filter financeapp.SummaryFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	summary, err := h.entryService.Summary(c.Request.Context(), p, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

func (h *FinanceHandler) create(c *gin.Context, kind finance.EntryKind) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req financeapp.EntryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	entry, err := h.entryService.Create(c.Request.Context(), p, kind, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

func (h *FinanceHandler) get(c *gin.Context, kind finance.EntryKind) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	entry, err := h.entryService.Get(c.Request.Context(), p, kind, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

func (h *FinanceHandler) update(c *gin.Context, kind finance.EntryKind) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req financeapp.EntryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	entry, err := h.entryService.Update(c.Request.Context(), p, kind, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

func (h *FinanceHandler) cancel(c *gin.Context, kind finance.EntryKind) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req financeapp.CancelEntryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	entry, err := h.entryService.Cancel(c.Request.Context(), p, kind, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

func (h *FinanceHandler) list(c *gin.Context, kind finance.EntryKind) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var filter financeapp.EntryListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.entryService.List(c.Request.Context(), p, kind, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

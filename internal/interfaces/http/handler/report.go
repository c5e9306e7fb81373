package handler

import (
	reportapp "github.com/cloudpos/backend/internal/application/report"
	"github.com/gin-gonic/gin"
)

// ReportHandler handles dashboard report endpoints
type ReportHandler struct {
	BaseHandler
	reportService *reportapp.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService *reportapp.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// DailySales godoc
// @ID           dailySalesReport
// @Summary      Daily sales summary
// @Description  Completed orders of one business day in the business timezone, split by payment method
// @Tags         reports
// @Produce      json
// @Param        branch_id query string false "Branch ID" format(uuid)
// @Param        day query string false "Business day, defaults to today" format(date)
// @Success      200 {object} APIResponse[report.DailySales]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reports/daily-sales [get]
func (h *ReportHandler) DailySales(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var filter reportapp.DailySalesFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	out, err := h.reportService.DailySales(c.Request.Context(), p, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}

// TopProducts godoc
// @ID           topProductsReport
// @Summary      Best sellers
// @Description  Ranked by quantity sold; the window defaults to the last 30 days
// @Tags         reports
// @Produce      json
// @Param        branch_id query string false "Branch ID" format(uuid)
// @Param        from query string false "From date" format(date)
// @Param        to query string false "To date" format(date)
// @Param        limit query int false "Rows" default(10) maximum(100)
// @Success      200 {object} APIResponse[[]report.TopProduct]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reports/top-products [get]
func (h *ReportHandler) TopProducts(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var filter reportapp.TopProductsFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	out, err := h.reportService.TopProducts(c.Request.Context(), p, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}

// StockValue godoc
// @ID           stockValueReport
// @Summary      Stock valuation at cost
// @Tags         reports
// @Produce      json
// @Param        branch_id query string false "Branch ID" format(uuid)
// @Success      200 {object} APIResponse[report.StockValue]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reports/stock-value [get]
func (h *ReportHandler) StockValue(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var filter reportapp.StockValueFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	out, err := h.reportService.StockValue(c.Request.Context(), p, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}

package handler

import (
	inventoryapp "github.com/cloudpos/backend/internal/application/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InventoryHandler handles stock endpoints
type InventoryHandler struct {
	BaseHandler
	inventoryService *inventoryapp.InventoryService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventoryService *inventoryapp.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

// GetStock godoc
// @ID           getStockInventory
// @Summary      Stock of one variant at one branch
// @Tags         inventory
// @Produce      json
// @Param        branch_id path string true "Branch ID" format(uuid)
// @Param        variant_id path string true "Variant ID" format(uuid)
// @Success      200 {object} APIResponse[inventoryapp.StockItemResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/stock/{branch_id}/{variant_id} [get]
func (h *InventoryHandler) GetStock(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	branchID, ok := h.parseID(c, "branch_id")
	if !ok {
		return
	}
	variantID, ok := h.parseID(c, "variant_id")
	if !ok {
		return
	}
	item, err := h.inventoryService.GetStock(c.Request.Context(), p, branchID, variantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// ListStock godoc
// @ID           listStockInventory
// @Summary      List stock
// @Description  Without branch_id, lists every branch the caller may view
// @Tags         inventory
// @Produce      json
// @Param        branch_id query string false "Branch ID" format(uuid)
// @Param        low_only query bool false "Only items at or below reorder level"
// @Param        search query string false "Search SKU or name"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]inventoryapp.StockItemResponse]
// @Security     BearerAuth
// @Router       /inventory/stock [get]
func (h *InventoryHandler) ListStock(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var filter inventoryapp.StockListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.inventoryService.ListStock(c.Request.Context(), p, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// LowStock godoc
// @ID           lowStockInventory
// @Summary      Items at or below reorder level
// @Tags         inventory
// @Produce      json
// @Param        branch_id query string false "Branch ID" format(uuid)
// @Success      200 {object} APIResponse[[]inventoryapp.StockItemResponse]
// @Security     BearerAuth
// @Router       /inventory/stock/low [get]
func (h *InventoryHandler) LowStock(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var q struct {
		BranchID *uuid.UUID `form:"branch_id"`
	}
	if !h.bindQuery(c, &q) {
		return
	}
	items, err := h.inventoryService.LowStock(c.Request.Context(), p, q.BranchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// Movements godoc
// @ID           listMovementsInventory
// @Summary      Stock movement ledger
// @Tags         inventory
// @Produce      json
// @Param        branch_id query string false "Branch ID" format(uuid)
// @Param        variant_id query string false "Variant ID" format(uuid)
// @Param        type query string false "Movement type"
// @Param        reference query string false "Order or transfer reference"
// @Param        from query string false "From date" format(date)
// @Param        to query string false "To date" format(date)
// @Success      200 {object} APIResponse[[]inventoryapp.MovementResponse]
// @Security     BearerAuth
// @Router       /inventory/movements [get]
func (h *InventoryHandler) Movements(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var filter inventoryapp.MovementListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.inventoryService.Movements(c.Request.Context(), p, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Adjust godoc
// @ID           adjustStockInventory
// @Summary      Adjust stock
// @Description  Positive delta adds stock, negative removes it; the result may not go negative
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.AdjustStockRequest true "Adjustment"
// @Success      200 {object} APIResponse[inventoryapp.StockItemResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/stock/adjust [post]
func (h *InventoryHandler) Adjust(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req inventoryapp.AdjustStockRequest
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := h.inventoryService.Adjust(c.Request.Context(), p, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// Transfer godoc
// @ID           transferStockInventory
// @Summary      Transfer stock between branches
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.TransferStockRequest true "Transfer"
// @Success      200 {object} APIResponse[inventoryapp.TransferResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/stock/transfer [post]
func (h *InventoryHandler) Transfer(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req inventoryapp.TransferStockRequest
	if !h.bindJSON(c, &req) {
		return
	}
	out, err := h.inventoryService.Transfer(c.Request.Context(), p, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}

// SetReorderLevel godoc
// @ID           setReorderLevelInventory
// @Summary      Set reorder level
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.SetReorderLevelRequest true "Reorder level"
// @Success      200 {object} APIResponse[inventoryapp.StockItemResponse]
// @Security     BearerAuth
// @Router       /inventory/stock/reorder-level [put]
func (h *InventoryHandler) SetReorderLevel(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req inventoryapp.SetReorderLevelRequest
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := h.inventoryService.SetReorderLevel(c.Request.Context(), p, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

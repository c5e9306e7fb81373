package handler

import (
	branchapp "github.com/cloudpos/backend/internal/application/branch"
	"github.com/gin-gonic/gin"
)

// BranchHandler handles branch endpoints
type BranchHandler struct {
	BaseHandler
	branchService *branchapp.BranchService
}

// NewBranchHandler creates a new BranchHandler
func NewBranchHandler(branchService *branchapp.BranchService) *BranchHandler {
	return &BranchHandler{branchService: branchService}
}

// Create godoc
// @ID           createBranch
// @Summary      Open a branch
// @Description  Counts against the plan branch limit
// @Tags         branches
// @Accept       json
// @Produce      json
// @Param        request body branchapp.CreateBranchRequest true "Branch"
// @Success      201 {object} APIResponse[branchapp.BranchResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      402 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /branches [post]
func (h *BranchHandler) Create(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req branchapp.CreateBranchRequest
	if !h.bindJSON(c, &req) {
		return
	}
	b, err := h.branchService.Create(c.Request.Context(), p, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, b)
}

// Get godoc
// @ID           getBranchById
// @Summary      Get a branch
// @Tags         branches
// @Produce      json
// @Param        id path string true "Branch ID" format(uuid)
// @Success      200 {object} APIResponse[branchapp.BranchResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /branches/{id} [get]
func (h *BranchHandler) Get(c *gin.Context) {
	byID(&h.BaseHandler, c, h.branchService.Get)
}

// List godoc
// @ID           listBranches
// @Summary      List branches
// @Description  Branch-restricted staff only see their home branch
// @Tags         branches
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        search query string false "Search code or name"
// @Success      200 {object} APIResponse[[]branchapp.BranchResponse]
// @Security     BearerAuth
// @Router       /branches [get]
func (h *BranchHandler) List(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var q ListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.branchService.List(c.Request.Context(), p, q.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Update godoc
// @ID           updateBranch
// @Summary      Update a branch
// @Tags         branches
// @Accept       json
// @Produce      json
// @Param        id path string true "Branch ID" format(uuid)
// @Param        request body branchapp.UpdateBranchRequest true "Branch"
// @Success      200 {object} APIResponse[branchapp.BranchResponse]
// @Security     BearerAuth
// @Router       /branches/{id} [put]
func (h *BranchHandler) Update(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req branchapp.UpdateBranchRequest
	if !h.bindJSON(c, &req) {
		return
	}
	b, err := h.branchService.Update(c.Request.Context(), p, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, b)
}

// Activate godoc
// @ID           activateBranch
// @Summary      Activate a branch
// @Tags         branches
// @Produce      json
// @Param        id path string true "Branch ID" format(uuid)
// @Success      200 {object} APIResponse[branchapp.BranchResponse]
// @Failure      402 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /branches/{id}/activate [post]
func (h *BranchHandler) Activate(c *gin.Context) {
	byID(&h.BaseHandler, c, h.branchService.Activate)
}

// Deactivate godoc
// @ID           deactivateBranch
// @Summary      Deactivate a branch
// @Description  Refused while the branch has orders awaiting gateway payment
// @Tags         branches
// @Produce      json
// @Param        id path string true "Branch ID" format(uuid)
// @Success      200 {object} APIResponse[branchapp.BranchResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /branches/{id}/deactivate [post]
func (h *BranchHandler) Deactivate(c *gin.Context) {
	byID(&h.BaseHandler, c, h.branchService.Deactivate)
}

package handler

import (
	"context"

	businessapp "github.com/cloudpos/backend/internal/application/business"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
)

// BusinessHandler handles the tenant-wide business settings
type BusinessHandler struct {
	BaseHandler
	businessService *businessapp.BusinessService
}

// NewBusinessHandler creates a new BusinessHandler
func NewBusinessHandler(businessService *businessapp.BusinessService) *BusinessHandler {
	return &BusinessHandler{businessService: businessService}
}

// Get godoc
// @ID           getBusiness
// @Summary      Business settings
// @Tags         business
// @Produce      json
// @Success      200 {object} APIResponse[businessapp.BusinessResponse]
// @Security     BearerAuth
// @Router       /business [get]
func (h *BusinessHandler) Get(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	meta, err := h.businessService.Get(c.Request.Context(), p)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, meta)
}

// Update godoc
// @ID           updateBusiness
// @Summary      Update business profile
// @Tags         business
// @Accept       json
// @Produce      json
// @Param        request body businessapp.UpdateBusinessRequest true "Profile"
// @Success      200 {object} APIResponse[businessapp.BusinessResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /business [put]
func (h *BusinessHandler) Update(c *gin.Context) {
	var req businessapp.UpdateBusinessRequest
	h.apply(c, &req, func(ctx context.Context, p *identity.Principal) (*businessapp.BusinessResponse, error) {
		return h.businessService.Update(ctx, p, req)
	})
}

// AddCategory godoc
// @ID           addCategoryBusiness
// @Summary      Add a product category
// @Tags         business
// @Accept       json
// @Produce      json
// @Param        request body businessapp.CategoryRequest true "Category"
// @Success      200 {object} APIResponse[businessapp.BusinessResponse]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /business/categories [post]
func (h *BusinessHandler) AddCategory(c *gin.Context) {
	var req businessapp.CategoryRequest
	h.apply(c, &req, func(ctx context.Context, p *identity.Principal) (*businessapp.BusinessResponse, error) {
		return h.businessService.AddCategory(ctx, p, req.Name)
	})
}

// RenameCategory godoc
// @ID           renameCategoryBusiness
// @Summary      Rename a product category
// @Description  Products in the category follow the new name
// @Tags         business
// @Accept       json
// @Produce      json
// @Param        request body businessapp.RenameCategoryRequest true "Names"
// @Success      200 {object} APIResponse[businessapp.BusinessResponse]
// @Security     BearerAuth
// @Router       /business/categories [put]
func (h *BusinessHandler) RenameCategory(c *gin.Context) {
	var req businessapp.RenameCategoryRequest
	h.apply(c, &req, func(ctx context.Context, p *identity.Principal) (*businessapp.BusinessResponse, error) {
		return h.businessService.RenameCategory(ctx, p, req.OldName, req.NewName)
	})
}

// RemoveCategory godoc
// @ID           removeCategoryBusiness
// @Summary      Remove a product category
// @Description  Refused while products still use the category
// @Tags         business
// @Produce      json
// @Param        name query string true "Category name"
// @Success      200 {object} APIResponse[businessapp.BusinessResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /business/categories [delete]
func (h *BusinessHandler) RemoveCategory(c *gin.Context) {
	var req struct {
		Name string `form:"name" binding:"required,max=100"`
	}
	p, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.bindQuery(c, &req) {
		return
	}
	meta, err := h.businessService.RemoveCategory(c.Request.Context(), p, req.Name)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, meta)
}

// SetSMS godoc
// @ID           setSMSBusiness
// @Summary      SMS settings
// @Tags         business
// @Accept       json
// @Produce      json
// @Param        request body businessapp.SMSSettingsRequest true "SMS settings"
// @Success      200 {object} APIResponse[businessapp.BusinessResponse]
// @Security     BearerAuth
// @Router       /business/sms [put]
func (h *BusinessHandler) SetSMS(c *gin.Context) {
	var req businessapp.SMSSettingsRequest
	h.apply(c, &req, func(ctx context.Context, p *identity.Principal) (*businessapp.BusinessResponse, error) {
		return h.businessService.SetSMS(ctx, p, req)
	})
}

// SetEBill godoc
// @ID           setEBillBusiness
// @Summary      E-bill settings
// @Tags         business
// @Accept       json
// @Produce      json
// @Param        request body businessapp.EBillSettingsRequest true "E-bill settings"
// @Success      200 {object} APIResponse[businessapp.BusinessResponse]
// @Security     BearerAuth
// @Router       /business/ebill [put]
func (h *BusinessHandler) SetEBill(c *gin.Context) {
	var req businessapp.EBillSettingsRequest
	h.apply(c, &req, func(ctx context.Context, p *identity.Principal) (*businessapp.BusinessResponse, error) {
		return h.businessService.SetEBill(ctx, p, req)
	})
}

func (h *BusinessHandler) apply(c *gin.Context, req any, fn func(context.Context, *identity.Principal) (*businessapp.BusinessResponse, error)) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	if !h.bindJSON(c, req) {
		return
	}
	meta, err := fn(c.Request.Context(), p)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, meta)
}

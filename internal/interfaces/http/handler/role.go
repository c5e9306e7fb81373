package handler

import (
	"context"

	identityapp "github.com/cloudpos/backend/internal/application/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RoleHandler handles role endpoints. Routes are guarded by manage:role.
type RoleHandler struct {
	BaseHandler
	roleService *identityapp.RoleService
}

// NewRoleHandler creates a new RoleHandler
func NewRoleHandler(roleService *identityapp.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

// CreateRoleRequest represents a custom role
// @Description Request body for creating a role
type CreateRoleRequest struct {
	Code        string   `json:"code" binding:"required,min=2,max=50" example:"shift_lead"`
	Name        string   `json:"name" binding:"required,min=1,max=100" example:"Shift lead"`
	Description string   `json:"description" binding:"max=500"`
	Permissions []string `json:"permissions" binding:"max=100,dive,permission" example:"create:order:branch-only,view:stock:branch-only"`
}

// UpdateRoleRequest represents role edits
// @Description Request body for updating a role
type UpdateRoleRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=500"`
}

// SetPermissionsRequest replaces the permissions of a role
type SetPermissionsRequest struct {
	Permissions []string `json:"permissions" binding:"required,max=100,dive,permission"`
}

// Create godoc
// @ID           createRole
// @Summary      Create a role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Param        request body CreateRoleRequest true "Role"
// @Success      201 {object} APIResponse[identityapp.RoleDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /identity/roles [post]
func (h *RoleHandler) Create(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req CreateRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	role, err := h.roleService.Create(c.Request.Context(), p, identityapp.CreateRoleInput{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, role)
}

// Get godoc
// @ID           getRoleById
// @Summary      Get a role
// @Tags         roles
// @Produce      json
// @Param        id path string true "Role ID" format(uuid)
// @Success      200 {object} APIResponse[identityapp.RoleDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /identity/roles/{id} [get]
func (h *RoleHandler) Get(c *gin.Context) {
	h.tenantByID(c, h.roleService.Get)
}

// List godoc
// @ID           listRoles
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        search query string false "Search code or name"
// @Success      200 {object} APIResponse[[]identityapp.RoleDTO]
// @Security     BearerAuth
// @Router       /identity/roles [get]
func (h *RoleHandler) List(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var q ListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.roleService.List(c.Request.Context(), p.TenantID, q.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Update godoc
// @ID           updateRole
// @Summary      Update a role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Param        id path string true "Role ID" format(uuid)
// @Param        request body UpdateRoleRequest true "Role"
// @Success      200 {object} APIResponse[identityapp.RoleDTO]
// @Security     BearerAuth
// @Router       /identity/roles/{id} [put]
func (h *RoleHandler) Update(c *gin.Context) {
	var req UpdateRoleRequest
	h.tenantByID(c, func(ctx context.Context, tenantID, id uuid.UUID) (*identityapp.RoleDTO, error) {
		return h.roleService.Update(ctx, tenantID, id, identityapp.UpdateRoleInput{
			Name:        req.Name,
			Description: req.Description,
		})
	}, &req)
}

// SetPermissions godoc
// @ID           setPermissionsRole
// @Summary      Replace role permissions
// @Description  Every permission is validated; system roles cannot be edited
// @Tags         roles
// @Accept       json
// @Produce      json
// @Param        id path string true "Role ID" format(uuid)
// @Param        request body SetPermissionsRequest true "Permissions"
// @Success      200 {object} APIResponse[identityapp.RoleDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /identity/roles/{id}/permissions [put]
func (h *RoleHandler) SetPermissions(c *gin.Context) {
	var req SetPermissionsRequest
	h.tenantByID(c, func(ctx context.Context, tenantID, id uuid.UUID) (*identityapp.RoleDTO, error) {
		return h.roleService.SetPermissions(ctx, tenantID, id, req.Permissions)
	}, &req)
}

// Enable godoc
// @ID           enableRole
// @Summary      Enable a role
// @Tags         roles
// @Produce      json
// @Param        id path string true "Role ID" format(uuid)
// @Success      200 {object} APIResponse[identityapp.RoleDTO]
// @Security     BearerAuth
// @Router       /identity/roles/{id}/enable [post]
func (h *RoleHandler) Enable(c *gin.Context) {
	h.tenantByID(c, h.roleService.Enable)
}

// Disable godoc
// @ID           disableRole
// @Summary      Disable a role
// @Tags         roles
// @Produce      json
// @Param        id path string true "Role ID" format(uuid)
// @Success      200 {object} APIResponse[identityapp.RoleDTO]
// @Security     BearerAuth
// @Router       /identity/roles/{id}/disable [post]
func (h *RoleHandler) Disable(c *gin.Context) {
	h.tenantByID(c, h.roleService.Disable)
}

// Delete godoc
// @ID           deleteRole
// @Summary      Delete a role
// @Description  System roles and roles still assigned to users cannot be deleted
// @Tags         roles
// @Param        id path string true "Role ID" format(uuid)
// @Success      204
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /identity/roles/{id} [delete]
func (h *RoleHandler) Delete(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.roleService.Delete(c.Request.Context(), p.TenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListPermissions godoc
// @ID           listPermissions
// @Summary      Permission catalog
// @Description  Known actions, resources and qualifiers, plus the built-in role table
// @Tags         roles
// @Produce      json
// @Success      200 {object} APIResponse[identityapp.PermissionCatalog]
// @Security     BearerAuth
// @Router       /identity/permissions [get]
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	h.Success(c, h.roleService.ListPermissionCatalog())
}

// tenantByID resolves tenant and :id, optionally binds body, then runs fn
func (h *RoleHandler) tenantByID(c *gin.Context, fn func(context.Context, uuid.UUID, uuid.UUID) (*identityapp.RoleDTO, error), body ...any) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	for _, b := range body {
		if !h.bindJSON(c, b) {
			return
		}
	}
	role, err := fn(c.Request.Context(), p.TenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, role)
}

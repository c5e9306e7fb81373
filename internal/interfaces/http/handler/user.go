package handler

import (
	identityapp "github.com/cloudpos/backend/internal/application/identity"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserHandler handles staff account endpoints
type UserHandler struct {
	BaseHandler
	userService *identityapp.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *identityapp.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// CreateUserRequest represents a new staff account
// @Description Request body for creating a staff account
type CreateUserRequest struct {
	Username    string      `json:"username" binding:"required,min=3,max=50" example:"kasun"`
	Password    string      `json:"password" binding:"required,min=8,max=72" example:"password123"`
	DisplayName string      `json:"display_name" binding:"max=100" example:"Kasun Perera"`
	Email       string      `json:"email" binding:"omitempty,email,max=200" example:"kasun@example.lk"`
	Phone       string      `json:"phone" binding:"omitempty,phone_lk" example:"0771234567"`
	BranchID    *uuid.UUID  `json:"branch_id"`
	RoleIDs     []uuid.UUID `json:"role_ids" binding:"max=10"`
}

// UpdateUserRequest represents profile edits
// @Description Request body for updating a staff account
type UpdateUserRequest struct {
	DisplayName string `json:"display_name" binding:"max=100"`
	Email       string `json:"email" binding:"omitempty,email,max=200"`
	Phone       string `json:"phone" binding:"omitempty,phone_lk"`
}

// AssignRolesRequest replaces a user's roles
type AssignRolesRequest struct {
	RoleIDs []uuid.UUID `json:"role_ids" binding:"required,max=10"`
}

// AssignBranchRequest moves a user to a home branch; null clears it
type AssignBranchRequest struct {
	BranchID *uuid.UUID `json:"branch_id"`
}

// ResetPasswordRequest sets a new password for a user
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// UserListQuery holds staff list query parameters
type UserListQuery struct {
	ListQuery
	Status   string     `form:"status" binding:"omitempty,oneof=ACTIVE INACTIVE LOCKED"`
	RoleID   *uuid.UUID `form:"role_id"`
	BranchID *uuid.UUID `form:"branch_id"`
}

// Create godoc
// @ID           createUser
// @Summary      Create a staff account
// @Description  Creates a staff account; counts against the plan user limit
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body CreateUserRequest true "User"
// @Success      201 {object} APIResponse[identityapp.UserDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      402 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /identity/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req CreateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.userService.Create(c.Request.Context(), p, identityapp.CreateUserInput{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Phone:       req.Phone,
		BranchID:    req.BranchID,
		RoleIDs:     req.RoleIDs,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, user)
}

// Get godoc
// @ID           getUserById
// @Summary      Get a staff account
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[identityapp.UserDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /identity/users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	user, err := h.userService.Get(c.Request.Context(), p, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// List godoc
// @ID           listUsers
// @Summary      List staff accounts
// @Description  Branch managers only see their own branch
// @Tags         users
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        search query string false "Search username or name"
// @Param        status query string false "Status" Enums(ACTIVE, INACTIVE, LOCKED)
// @Param        role_id query string false "Role ID" format(uuid)
// @Param        branch_id query string false "Branch ID" format(uuid)
// @Success      200 {object} APIResponse[[]identityapp.UserDTO]
// @Security     BearerAuth
// @Router       /identity/users [get]
func (h *UserHandler) List(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var q UserListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	filter := identity.UserFilter{Filter: q.Filter(), RoleID: q.RoleID, BranchID: q.BranchID}
	if q.Status != "" {
		status := identity.UserStatus(q.Status)
		filter.Status = &status
	}
	page, err := h.userService.List(c.Request.Context(), p, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Update godoc
// @ID           updateUser
// @Summary      Update a staff account
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Param        request body UpdateUserRequest true "Profile"
// @Success      200 {object} APIResponse[identityapp.UserDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /identity/users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.userService.Update(c.Request.Context(), p, id, identityapp.UpdateUserInput{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Phone:       req.Phone,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// AssignRoles godoc
// @ID           assignRolesUser
// @Summary      Assign roles
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Param        request body AssignRolesRequest true "Roles"
// @Success      200 {object} APIResponse[identityapp.UserDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /identity/users/{id}/roles [put]
func (h *UserHandler) AssignRoles(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req AssignRolesRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.userService.AssignRoles(c.Request.Context(), p, id, req.RoleIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// AssignBranch godoc
// @ID           assignBranchUser
// @Summary      Assign home branch
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Param        request body AssignBranchRequest true "Branch"
// @Success      200 {object} APIResponse[identityapp.UserDTO]
// @Security     BearerAuth
// @Router       /identity/users/{id}/branch [put]
func (h *UserHandler) AssignBranch(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req AssignBranchRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.userService.AssignBranch(c.Request.Context(), p, id, req.BranchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// Activate godoc
// @ID           activateUser
// @Summary      Activate a staff account
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[identityapp.UserDTO]
// @Security     BearerAuth
// @Router       /identity/users/{id}/activate [post]
func (h *UserHandler) Activate(c *gin.Context) {
	byID(&h.BaseHandler, c, h.userService.Activate)
}

// Deactivate godoc
// @ID           deactivateUser
// @Summary      Deactivate a staff account
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[identityapp.UserDTO]
// @Security     BearerAuth
// @Router       /identity/users/{id}/deactivate [post]
func (h *UserHandler) Deactivate(c *gin.Context) {
	byID(&h.BaseHandler, c, h.userService.Deactivate)
}

// Unlock godoc
// @ID           unlockUser
// @Summary      Unlock a locked-out account
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[identityapp.UserDTO]
// @Security     BearerAuth
// @Router       /identity/users/{id}/unlock [post]
func (h *UserHandler) Unlock(c *gin.Context) {
	byID(&h.BaseHandler, c, h.userService.Unlock)
}

// ResetPassword godoc
// @ID           resetPasswordUser
// @Summary      Reset a user's password
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Param        request body ResetPasswordRequest true "New password"
// @Success      200 {object} APIResponse[MessageData]
// @Security     BearerAuth
// @Router       /identity/users/{id}/reset-password [post]
func (h *UserHandler) ResetPassword(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req ResetPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.userService.ResetPassword(c.Request.Context(), p, id, req.NewPassword); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageData{Message: "Password reset"})
}

// Delete godoc
// @ID           deleteUser
// @Summary      Delete a staff account
// @Tags         users
// @Param        id path string true "User ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /identity/users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.userService.Delete(c.Request.Context(), p, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

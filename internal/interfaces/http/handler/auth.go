package handler

import (
	businessapp "github.com/cloudpos/backend/internal/application/business"
	identityapp "github.com/cloudpos/backend/internal/application/identity"
	"github.com/cloudpos/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthHandler handles business sign-up, login and session endpoints
type AuthHandler struct {
	BaseHandler
	authService         *identityapp.AuthService
	registrationService *businessapp.RegistrationService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *identityapp.AuthService, registrationService *businessapp.RegistrationService) *AuthHandler {
	return &AuthHandler{
		authService:         authService,
		registrationService: registrationService,
	}
}

// LoginRequest represents a staff login
// @Description Request body for user login
type LoginRequest struct {
	TenantID uuid.UUID `json:"tenant_id" binding:"required" example:"6f1c2d4e-0b7a-4c55-9b8e-2f0a1d3c4b5a"`
	Username string    `json:"username" binding:"required,min=1,max=50" example:"kasun"`
	Password string    `json:"password" binding:"required,min=1,max=72" example:"secret123"`
}

// RefreshTokenRequest represents a token refresh
// @Description Request body for refreshing access token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest optionally carries the refresh token so it is revoked too
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest represents a password change
// @Description Request body for changing password
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// Register godoc
// @ID           registerBusiness
// @Summary      Register a business
// @Description  Creates the business, its owner account, the main branch and a trial subscription
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body businessapp.RegisterRequest true "Registration"
// @Success      201 {object} APIResponse[businessapp.RegisterResult]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req businessapp.RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.registrationService.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Login godoc
// @ID           loginAuth
// @Summary      User login
// @Description  Authenticate a staff member and issue an access/refresh token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} APIResponse[identityapp.LoginResult]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.authService.Login(c.Request.Context(), identityapp.LoginInput{
		TenantID: req.TenantID,
		Username: req.Username,
		Password: req.Password,
		IP:       c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RefreshToken godoc
// @ID           refreshTokenAuth
// @Summary      Refresh access token
// @Description  Exchange a refresh token for a new token pair; the old refresh token is spent
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshTokenRequest true "Refresh token"
// @Success      200 {object} APIResponse[identityapp.LoginResult]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Logout godoc
// @ID           logoutAuth
// @Summary      Logout
// @Description  Revoke the current access token and, when given, its refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LogoutRequest false "Refresh token to revoke"
// @Success      200 {object} APIResponse[MessageData]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	var req LogoutRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	if err := h.authService.Logout(c.Request.Context(), claims, req.RefreshToken); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageData{Message: "Logged out"})
}

// GetCurrentUser godoc
// @ID           getCurrentUserAuth
// @Summary      Current user
// @Description  Returns the signed-in staff member with effective permissions
// @Tags         auth
// @Produce      json
// @Success      200 {object} APIResponse[identityapp.UserDTO]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	user, err := h.authService.Me(c.Request.Context(), p)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// ChangePassword godoc
// @ID           changePasswordAuth
// @Summary      Change password
// @Description  Verifies the current password; other sessions are signed out
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ChangePasswordRequest true "Passwords"
// @Success      200 {object} APIResponse[MessageData]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.authService.ChangePassword(c.Request.Context(), p, req.OldPassword, req.NewPassword); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageData{Message: "Password changed"})
}

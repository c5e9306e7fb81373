package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/cloudpos/backend/internal/infrastructure/logger"
	"github.com/cloudpos/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BranchResolver extracts the target branch of a request. A nil id with a
// nil error means the request names no branch.
type BranchResolver func(c *gin.Context) (*uuid.UUID, error)

// RequirePermission checks perm against a tenant-wide target, so only
// grants without the branch-only qualifier pass.
func RequirePermission(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authorize(c, perm, nil)
	}
}

// RequireBranchPermission checks perm against the branch named by resolver.
// Branch-only grants pass when that branch is the caller's home branch.
func RequireBranchPermission(perm string, resolver BranchResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		branchID, err := resolver(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeInvalidID, "Invalid branch id", c.GetString(logger.GinRequestIDKey)))
			return
		}
		authorize(c, perm, branchID)
	}
}

func authorize(c *gin.Context, perm string, branchID *uuid.UUID) {
	p := GetPrincipal(c)
	if p == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeUnauthorized, "Authentication required", c.GetString(logger.GinRequestIDKey)))
		return
	}
	if !p.Can(perm, branchID) {
		fields := []zap.Field{zap.String("permission", perm), zap.String("user_id", p.UserID.String())}
		if branchID != nil {
			fields = append(fields, zap.String("target_branch", branchID.String()))
		}
		logger.GetGinLogger(c).Info("Permission denied", fields...)
		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeForbidden, "Missing permission "+perm, c.GetString(logger.GinRequestIDKey)))
		return
	}
	c.Next()
}

// BranchFromParam reads a uuid path parameter
func BranchFromParam(name string) BranchResolver {
	return func(c *gin.Context) (*uuid.UUID, error) {
		return parseOptionalUUID(c.Param(name))
	}
}

// BranchFromQuery reads a uuid query parameter
func BranchFromQuery(name string) BranchResolver {
	return func(c *gin.Context) (*uuid.UUID, error) {
		return parseOptionalUUID(c.Query(name))
	}
}

// BranchFromHeader reads X-Branch-ID
func BranchFromHeader() BranchResolver {
	return func(c *gin.Context) (*uuid.UUID, error) {
		return parseOptionalUUID(c.GetHeader(HeaderBranchID))
	}
}

// BranchFromBody reads a top-level JSON field and restores the body for the handler
func BranchFromBody(field string) BranchResolver {
	return func(c *gin.Context) (*uuid.UUID, error) {
		if c.Request.Body == nil {
			return nil, nil
		}
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, err
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))
		if len(raw) == 0 {
			return nil, nil
		}

		var body map[string]json.RawMessage
		if err := json.Unmarshal(raw, &body); err != nil {
			// the handler reports malformed JSON
			return nil, nil
		}
		value, ok := body[field]
		if !ok {
			return nil, nil
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return nil, err
		}
		return parseOptionalUUID(s)
	}
}

// FirstBranch returns the first branch any resolver finds
func FirstBranch(resolvers ...BranchResolver) BranchResolver {
	return func(c *gin.Context) (*uuid.UUID, error) {
		for _, r := range resolvers {
			id, err := r(c)
			if err != nil || id != nil {
				return id, err
			}
		}
		return nil, nil
	}
}

func parseOptionalUUID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

package dto

import (
	"net/http"
	"strings"
)

// Transport-level error codes. Domain errors keep the code they were built
// with (see shared.NewDomainError); the map below assigns their status.
const (
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeInvalidID         = "INVALID_ID"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeTokenExpired      = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid      = "INVALID_TOKEN"
	ErrCodeTokenRevoked      = "TOKEN_REVOKED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeRouteNotFound     = "ROUTE_NOT_FOUND"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeDuplicateRequest  = "DUPLICATE_REQUEST"
	ErrCodeInvalidState      = "INVALID_STATE"
	ErrCodeBusinessRule      = "BUSINESS_RULE_VIOLATION"
	ErrCodePlanLimitReached  = "PLAN_LIMIT_REACHED"
	ErrCodeSubscriptionLapse = "SUBSCRIPTION_INACTIVE"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeRequestTooLarge   = "REQUEST_TOO_LARGE"
	ErrCodeTimeout           = "REQUEST_TIMEOUT"
	ErrCodeUnavailable       = "SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:     http.StatusGatewayTimeout,

	// 400
	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,
	ErrCodeInvalidID:   http.StatusBadRequest,
	"INVALID_INPUT":    http.StatusBadRequest,
	"REASON_REQUIRED":  http.StatusBadRequest,
	"EMPTY_ORDER":      http.StatusBadRequest,
	"NO_VARIANTS":      http.StatusBadRequest,

	// 401
	ErrCodeUnauthorized:   http.StatusUnauthorized,
	ErrCodeTokenExpired:   http.StatusUnauthorized,
	ErrCodeTokenInvalid:   http.StatusUnauthorized,
	ErrCodeTokenRevoked:   http.StatusUnauthorized,
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	"REFRESH_LIMIT":       http.StatusUnauthorized,

	// 402: the fix is a payment or an upgrade
	ErrCodePlanLimitReached:  http.StatusPaymentRequired,
	ErrCodeSubscriptionLapse: http.StatusPaymentRequired,
	"SMS_QUOTA_EXHAUSTED":    http.StatusPaymentRequired,

	// 403
	ErrCodeForbidden:        http.StatusForbidden,
	"BRANCH_MISMATCH":       http.StatusForbidden,
	"ACCOUNT_LOCKED":        http.StatusForbidden,
	"ACCOUNT_INACTIVE":      http.StatusForbidden,
	"PERMISSION_ESCALATION": http.StatusForbidden,
	"VOID_WINDOW_CLOSED":    http.StatusForbidden,

	// 404
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeRouteNotFound: http.StatusNotFound,

	// 409
	ErrCodeAlreadyExists:    http.StatusConflict,
	ErrCodeConflict:         http.StatusConflict,
	ErrCodeDuplicateRequest: http.StatusConflict,
	"CONCURRENCY_CONFLICT":  http.StatusConflict,
	"OPTIMISTIC_LOCK_ERROR": http.StatusConflict,
	"ROLE_IN_USE":           http.StatusConflict,
	"CATEGORY_IN_USE":       http.StatusConflict,
	"BRANCH_HAS_OPEN_ORDERS": http.StatusConflict,

	// 413, 429
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,

	// 422
	ErrCodeInvalidState:     http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:     http.StatusUnprocessableEntity,
	"INSUFFICIENT_STOCK":    http.StatusUnprocessableEntity,
	"INSUFFICIENT_BALANCE":  http.StatusUnprocessableEntity,
	"CREDIT_LIMIT_EXCEEDED": http.StatusUnprocessableEntity,
	"UNDERPAID":             http.StatusUnprocessableEntity,
	"NON_CASH_OVERPAID":     http.StatusUnprocessableEntity,

	// 503: an optional integration is switched off
	"STORAGE_DISABLED":  http.StatusServiceUnavailable,
	"PRINTING_DISABLED": http.StatusServiceUnavailable,
	"EMAIL_DISABLED":    http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the code is unknown.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainHTTPStatus resolves the status of a domain error code. Codes outside
// the map follow their naming family; anything else is a business rule
// violation (422) rather than a server fault.
func DomainHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	switch {
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "_EXISTS"), strings.HasPrefix(code, "DUPLICATE_"), strings.HasPrefix(code, "ALREADY_"):
		return http.StatusConflict
	case strings.HasPrefix(code, "INVALID_"):
		return http.StatusBadRequest
	case strings.HasPrefix(code, "CANNOT_"):
		return http.StatusForbidden
	default:
		return http.StatusUnprocessableEntity
	}
}

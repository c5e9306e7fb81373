package handler

import (
	"errors"
	"io"
	"net/http"

	financeapp "github.com/cloudpos/backend/internal/application/finance"
	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/gin-gonic/gin"
)

// HeaderOnePaySignature carries the hex HMAC of an OnePay notification body
const HeaderOnePaySignature = "X-Onepay-Signature"

// PaymentCallbackHandler handles payment gateway notifications.
// These endpoints are called by PayHere and OnePay and do not require authentication.
type PaymentCallbackHandler struct {
	BaseHandler
	callbackService *financeapp.PaymentCallbackService
}

// NewPaymentCallbackHandler creates a new PaymentCallbackHandler
func NewPaymentCallbackHandler(callbackService *financeapp.PaymentCallbackService) *PaymentCallbackHandler {
	return &PaymentCallbackHandler{callbackService: callbackService}
}

// HandlePayHereCallback godoc
// @ID           handlePayHereCallbackPaymentCallback
// @Summary      PayHere payment notification
// @Description  Server-to-server notify_url callback. The md5sig form field is verified against the merchant secret.
// @Tags         payment-callbacks
// @Accept       application/x-www-form-urlencoded
// @Produce      plain
// @Success      200 {string} string "OK"
// @Failure      400 {string} string "FAIL"
// @Failure      500 {string} string "FAIL"
// @Router       /payment/callback/payhere [post]
func (h *PaymentCallbackHandler) HandlePayHereCallback(c *gin.Context) {
	h.handle(c, finance.PaymentGatewayTypePayHere, "")
}

// HandleOnePayCallback godoc
// @ID           handleOnePayCallbackPaymentCallback
// @Summary      OnePay payment notification
// @Description  JSON callback signed with an HMAC-SHA256 of the raw body
// @Tags         payment-callbacks
// @Accept       json
// @Produce      json
// @Param        X-Onepay-Signature header string true "Hex HMAC-SHA256 of the body"
// @Success      200 {object} map[string]any "status=1"
// @Failure      400 {object} map[string]any "status=0"
// @Failure      500 {object} map[string]any "status=0"
// @Router       /payment/callback/onepay [post]
func (h *PaymentCallbackHandler) HandleOnePayCallback(c *gin.Context) {
	h.handle(c, finance.PaymentGatewayTypeOnePay, c.GetHeader(HeaderOnePaySignature))
}

func (h *PaymentCallbackHandler) handle(c *gin.Context, gatewayType finance.PaymentGatewayType, signature string) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "FAIL")
		return
	}

	result, err := h.callbackService.ProcessPaymentCallback(c.Request.Context(), gatewayType, payload, signature)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, financeapp.ErrCallbackGatewayNotRegistered),
			errors.Is(err, financeapp.ErrCallbackOrderNotFound):
			status = http.StatusNotFound
		case errors.Is(err, financeapp.ErrCallbackVerificationFailed),
			errors.Is(err, financeapp.ErrCallbackInvalidPayload):
			status = http.StatusBadRequest
		}
		// non-2xx makes the gateway redeliver; the settlement is idempotent
		if result != nil && result.GatewayResponse != nil {
			c.Data(status, contentType(gatewayType), result.GatewayResponse)
			return
		}
		c.String(status, "FAIL")
		return
	}

	if result != nil && result.GatewayResponse != nil {
		c.Data(http.StatusOK, contentType(gatewayType), result.GatewayResponse)
		return
	}
	c.String(http.StatusOK, "OK")
}

func contentType(gatewayType finance.PaymentGatewayType) string {
	if gatewayType == finance.PaymentGatewayTypeOnePay {
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

package handler

import (
	"time"

	notificationapp "github.com/cloudpos/backend/internal/application/notification"
	"github.com/gin-gonic/gin"
)

// NotificationHandler handles SMS endpoints
type NotificationHandler struct {
	BaseHandler
	smsService *notificationapp.SMSService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(smsService *notificationapp.SMSService) *NotificationHandler {
	return &NotificationHandler{smsService: smsService}
}

// SendSMS godoc
// @ID           sendSMSNotification
// @Summary      Send an SMS
// @Description  Queues and sends a message to a Sri Lankan mobile number. Counts against the monthly plan quota.
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        request body notificationapp.SendSMSRequest true "Message"
// @Success      201 {object} APIResponse[notificationapp.SMSResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      402 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notifications/sms [post]
func (h *NotificationHandler) SendSMS(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req notificationapp.SendSMSRequest
	if !h.bindJSON(c, &req) {
		return
	}
	msg, err := h.smsService.SendSMS(c.Request.Context(), p, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, msg)
}

// ListSMS godoc
// @ID           listSMSNotification
// @Summary      SMS log
// @Tags         notifications
// @Produce      json
// @Param        status query string false "Status" Enums(QUEUED, SENT, FAILED)
// @Param        purpose query string false "Purpose" Enums(EBILL, OTP, PROMO, ALERT)
// @Param        from query string false "From date" format(date)
// @Param        to query string false "To date" format(date)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]notificationapp.SMSResponse]
// @Security     BearerAuth
// @Router       /notifications/sms [get]
func (h *NotificationHandler) ListSMS(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var filter notificationapp.SMSListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.smsService.ListSMS(c.Request.Context(), p, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// SMSUsage godoc
// @ID           usageSMSNotification
// @Summary      Monthly SMS usage
// @Tags         notifications
// @Produce      json
// @Param        month query string false "Month (YYYY-MM), defaults to the current month"
// @Success      200 {object} APIResponse[notificationapp.SMSUsageResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notifications/sms/usage [get]
func (h *NotificationHandler) SMSUsage(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	month := time.Now()
	if raw := c.Query("month"); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			h.BadRequest(c, "month must be formatted as YYYY-MM")
			return
		}
		month = parsed
	}
	usage, err := h.smsService.SMSUsage(c.Request.Context(), p, month)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, usage)
}

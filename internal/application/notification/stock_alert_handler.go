package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudpos/backend/internal/domain/branch"
	"github.com/cloudpos/backend/internal/domain/business"
	"github.com/cloudpos/backend/internal/domain/catalog"
	"github.com/cloudpos/backend/internal/domain/inventory"
	"github.com/cloudpos/backend/internal/domain/notification"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockAlertHandler texts the business phone when an item reaches its
// reorder level
type StockAlertHandler struct {
	sms        *SMSService
	businesses business.Repository
	branches   branch.Repository
	products   catalog.ProductRepository
	logger     *zap.Logger
}

// NewStockAlertHandler creates a new StockAlertHandler
func NewStockAlertHandler(sms *SMSService, businesses business.Repository, branches branch.Repository, products catalog.ProductRepository, logger *zap.Logger) *StockAlertHandler {
	return &StockAlertHandler{
		sms:        sms,
		businesses: businesses,
		branches:   branches,
		products:   products,
		logger:     logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *StockAlertHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockLow}
}

// Handle sends the alert. Businesses without SMS or a phone are skipped.
func (h *StockAlertHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*inventory.StockLowEvent)
	if !ok {
		return nil
	}
	tenantID := e.TenantID()
	meta, err := h.businesses.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	if !meta.SMSEnabled || meta.Phone == "" {
		return nil
	}

	item := e.VariantID.String()
	views, err := h.products.FindVariantsByIDs(ctx, tenantID, []uuid.UUID{e.VariantID})
	if err == nil && len(views) == 1 {
		item = views[0].ProductName
		if views[0].VariationName != "" {
			item += " " + views[0].VariationName
		}
	}
	where := ""
	if b, err := h.branches.FindByID(ctx, tenantID, e.BranchID); err == nil {
		where = " at " + b.Name
	}

	body := fmt.Sprintf("Low stock%s: %s has %s left (reorder level %s).",
		where, item, e.Quantity.String(), e.ReorderLevel.String())
	_, err = h.sms.Send(ctx, tenantID, meta.Phone, body, notification.PurposeAlert)
	if errors.Is(err, ErrSMSDisabled) || errors.Is(err, notification.ErrQuotaExhausted) {
		h.logger.Info("Low stock alert skipped",
			zap.String("variant_id", e.VariantID.String()),
			zap.String("reason", err.Error()))
		return nil
	}
	return err
}

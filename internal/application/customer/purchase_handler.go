package customer

import (
	"context"
	"errors"

	"github.com/cloudpos/backend/internal/domain/customer"
	"github.com/cloudpos/backend/internal/domain/sales"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PurchaseHandler keeps spend totals, visit counts and loyalty points in step
// with completed and voided orders
type PurchaseHandler struct {
	repo      customer.Repository
	pointsPer decimal.Decimal
	logger    *zap.Logger
}

// NewPurchaseHandler creates a new PurchaseHandler
func NewPurchaseHandler(repo customer.Repository, pointsPer decimal.Decimal, logger *zap.Logger) *PurchaseHandler {
	return &PurchaseHandler{repo: repo, pointsPer: pointsPer, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *PurchaseHandler) EventTypes() []string {
	return []string{sales.EventTypeOrderCompleted, sales.EventTypeOrderVoided}
}

// Handle records or reverses the purchase on the order's customer
func (h *PurchaseHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *sales.OrderCompletedEvent:
		if e.CustomerID == nil {
			return nil
		}
		return h.apply(ctx, e.TenantID(), e.OrderEventPayload, func(c *customer.Customer) {
			earned := c.RecordPurchase(e.GrandTotal, h.pointsPer)
			h.logger.Debug("Purchase recorded",
				zap.String("customer_id", c.ID.String()),
				zap.String("invoice_number", e.InvoiceNumber),
				zap.Int64("points_earned", earned))
		})
	case *sales.OrderVoidedEvent:
		// an expired gateway order was never counted
		if e.CustomerID == nil || !e.WasCompleted {
			return nil
		}
		return h.apply(ctx, e.TenantID(), e.OrderEventPayload, func(c *customer.Customer) {
			c.ReversePurchase(e.GrandTotal, h.pointsPer)
		})
	default:
		return nil
	}
}

func (h *PurchaseHandler) apply(ctx context.Context, tenantID uuid.UUID, payload sales.OrderEventPayload, fn func(*customer.Customer)) error {
	c, err := h.repo.FindByID(ctx, tenantID, *payload.CustomerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.logger.Warn("Order refers to a missing customer",
				zap.String("customer_id", payload.CustomerID.String()),
				zap.String("invoice_number", payload.InvoiceNumber))
			return nil
		}
		return err
	}
	fn(c)
	return h.repo.Save(ctx, c)
}

package sales

import (
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const AggregateTypeOrder = "Order"

const (
	EventTypeOrderPlaced    = "OrderPlaced"
	EventTypeOrderCompleted = "OrderCompleted"
	EventTypeOrderVoided    = "OrderVoided"
)

// OrderEventPayload is shared by all order events
type OrderEventPayload struct {
	BranchID      uuid.UUID       `json:"branch_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    *uuid.UUID      `json:"customer_id,omitempty"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	Status        OrderStatus     `json:"status"`
	Offline       bool            `json:"offline,omitempty"`
}

func payloadOf(o *Order) OrderEventPayload {
	return OrderEventPayload{
		BranchID:      o.BranchID,
		InvoiceNumber: o.InvoiceNumber,
		CustomerID:    o.CustomerID,
		GrandTotal:    o.GrandTotal,
		Status:        o.Status,
		Offline:       o.OfflineCreatedAt != nil,
	}
}

// OrderPlacedEvent is published for orders awaiting gateway payment
type OrderPlacedEvent struct {
	shared.BaseDomainEvent
	OrderEventPayload
}

// NewOrderPlacedEvent creates a new OrderPlacedEvent
func NewOrderPlacedEvent(o *Order) *OrderPlacedEvent {
	return &OrderPlacedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeOrderPlaced, AggregateTypeOrder, o.ID, o.TenantID),
		OrderEventPayload: payloadOf(o),
	}
}

// OrderCompletedEvent is published once an order is fully paid
type OrderCompletedEvent struct {
	shared.BaseDomainEvent
	OrderEventPayload
}

// NewOrderCompletedEvent creates a new OrderCompletedEvent
func NewOrderCompletedEvent(o *Order) *OrderCompletedEvent {
	return &OrderCompletedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeOrderCompleted, AggregateTypeOrder, o.ID, o.TenantID),
		OrderEventPayload: payloadOf(o),
	}
}

// OrderVoidedEvent is published when an order is voided or expires
type OrderVoidedEvent struct {
	shared.BaseDomainEvent
	OrderEventPayload
	Reason string `json:"reason"`
	// WasCompleted is false when an unpaid gateway order expired
	WasCompleted bool `json:"was_completed"`
}

// NewOrderVoidedEvent creates a new OrderVoidedEvent
func NewOrderVoidedEvent(o *Order) *OrderVoidedEvent {
	return &OrderVoidedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeOrderVoided, AggregateTypeOrder, o.ID, o.TenantID),
		OrderEventPayload: payloadOf(o),
		Reason:            o.VoidReason,
		WasCompleted:      o.CompletedAt != nil,
	}
}

package telemetry

import (
	"context"
	"fmt"

	"github.com/cloudpos/backend/internal/domain/sales"
	"github.com/cloudpos/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName names the POS business meter
const MeterName = "cloudpos/business"

var (
	attrStatus  = attribute.Key("status")
	attrChannel = attribute.Key("channel")
	attrPurpose = attribute.Key("purpose")
	attrGateway = attribute.Key("gateway")
	attrOutcome = attribute.Key("outcome")
)

// POSMetrics records business counters. It listens to order events and is
// handed to the SMS and payment callback services as their recorder.
type POSMetrics struct {
	orders    metric.Int64Counter
	sales     metric.Float64Counter
	replays   metric.Int64Counter
	sms       metric.Int64Counter
	callbacks metric.Int64Counter
}

// NewPOSMetrics registers the instruments on meter
func NewPOSMetrics(meter metric.Meter) (*POSMetrics, error) {
	m := &POSMetrics{}
	var err error
	if m.orders, err = meter.Int64Counter("pos_orders_total",
		metric.WithDescription("Orders completed or voided"),
		metric.WithUnit("{order}")); err != nil {
		return nil, fmt.Errorf("pos_orders_total: %w", err)
	}
	if m.sales, err = meter.Float64Counter("pos_sales_amount",
		metric.WithDescription("Grand total of completed orders"),
		metric.WithUnit("LKR")); err != nil {
		return nil, fmt.Errorf("pos_sales_amount: %w", err)
	}
	if m.replays, err = meter.Int64Counter("pos_offline_replays_total",
		metric.WithDescription("Orders created offline and synced later"),
		metric.WithUnit("{order}")); err != nil {
		return nil, fmt.Errorf("pos_offline_replays_total: %w", err)
	}
	if m.sms, err = meter.Int64Counter("pos_sms_sent_total",
		metric.WithDescription("SMS delivery attempts by outcome"),
		metric.WithUnit("{message}")); err != nil {
		return nil, fmt.Errorf("pos_sms_sent_total: %w", err)
	}
	if m.callbacks, err = meter.Int64Counter("pos_payment_callbacks_total",
		metric.WithDescription("Payment gateway notifications by outcome"),
		metric.WithUnit("{callback}")); err != nil {
		return nil, fmt.Errorf("pos_payment_callbacks_total: %w", err)
	}
	return m, nil
}

// Name identifies the handler on the event bus
func (m *POSMetrics) Name() string {
	return "telemetry.pos_metrics"
}

// EventTypes returns the event types this handler is interested in
func (m *POSMetrics) EventTypes() []string {
	return []string{sales.EventTypeOrderCompleted, sales.EventTypeOrderVoided}
}

// Handle counts completed and voided orders
func (m *POSMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *sales.OrderCompletedEvent:
		channel := "online"
		if e.Offline {
			channel = "offline"
			m.replays.Add(ctx, 1)
		}
		m.orders.Add(ctx, 1, metric.WithAttributes(attrStatus.String("completed"), attrChannel.String(channel)))
		m.sales.Add(ctx, e.GrandTotal.InexactFloat64(), metric.WithAttributes(attrChannel.String(channel)))
	case *sales.OrderVoidedEvent:
		m.orders.Add(ctx, 1, metric.WithAttributes(attrStatus.String("voided")))
	}
	return nil
}

// RecordSMS counts one delivery attempt
func (m *POSMetrics) RecordSMS(ctx context.Context, purpose, status string) {
	m.sms.Add(ctx, 1, metric.WithAttributes(attrPurpose.String(purpose), attrStatus.String(status)))
}

// RecordPaymentCallback counts one gateway notification
func (m *POSMetrics) RecordPaymentCallback(ctx context.Context, gateway, outcome string) {
	m.callbacks.Add(ctx, 1, metric.WithAttributes(attrGateway.String(gateway), attrOutcome.String(outcome)))
}

var _ shared.EventHandler = (*POSMetrics)(nil)

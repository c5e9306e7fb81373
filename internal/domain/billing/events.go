package billing

import "github.com/cloudpos/backend/internal/domain/shared"

const AggregateTypeSubscription = "Subscription"

const EventTypeSubscriptionChanged = "SubscriptionChanged"

// SubscriptionChangedEvent is published whenever plan or status changes
type SubscriptionChangedEvent struct {
	shared.BaseDomainEvent
	PlanCode string             `json:"plan_code"`
	Status   SubscriptionStatus `json:"status"`
}

// NewSubscriptionChangedEvent creates a new SubscriptionChangedEvent
func NewSubscriptionChangedEvent(s *Subscription) *SubscriptionChangedEvent {
	return &SubscriptionChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionChanged, AggregateTypeSubscription, s.ID, s.TenantID),
		PlanCode:        s.PlanCode,
		Status:          s.Status,
	}
}

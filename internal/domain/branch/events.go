package branch

import "github.com/cloudpos/backend/internal/domain/shared"

const AggregateTypeBranch = "Branch"

const (
	EventTypeBranchCreated       = "BranchCreated"
	EventTypeBranchStatusChanged = "BranchStatusChanged"
)

// BranchCreatedEvent is published when a branch is opened
type BranchCreatedEvent struct {
	shared.BaseDomainEvent
	Code string `json:"code"`
	Name string `json:"name"`
}

// NewBranchCreatedEvent creates a new BranchCreatedEvent
func NewBranchCreatedEvent(b *Branch) *BranchCreatedEvent {
	return &BranchCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBranchCreated, AggregateTypeBranch, b.ID, b.TenantID),
		Code:            b.Code,
		Name:            b.Name,
	}
}

// BranchStatusChangedEvent is published on activate/deactivate
type BranchStatusChangedEvent struct {
	shared.BaseDomainEvent
	IsActive bool `json:"is_active"`
}

// NewBranchStatusChangedEvent creates a new BranchStatusChangedEvent
func NewBranchStatusChangedEvent(b *Branch) *BranchStatusChangedEvent {
	return &BranchStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBranchStatusChanged, AggregateTypeBranch, b.ID, b.TenantID),
		IsActive:        b.IsActive,
	}
}

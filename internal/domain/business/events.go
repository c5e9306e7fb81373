package business

import "github.com/cloudpos/backend/internal/domain/shared"

const AggregateTypeBusiness = "Business"

const (
	EventTypeBusinessRegistered = "BusinessRegistered"
	EventTypeCategoryRenamed    = "CategoryRenamed"
)

// RegisteredEvent is published once a business and its owner exist
type RegisteredEvent struct {
	shared.BaseDomainEvent
	BusinessName string `json:"business_name"`
	OwnerEmail   string `json:"owner_email"`
}

// NewRegisteredEvent creates a new RegisteredEvent
func NewRegisteredEvent(m *Meta, ownerEmail string) *RegisteredEvent {
	return &RegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBusinessRegistered, AggregateTypeBusiness, m.ID, m.TenantID),
		BusinessName:    m.BusinessName,
		OwnerEmail:      ownerEmail,
	}
}

// CategoryRenamedEvent is published when a category is renamed
type CategoryRenamedEvent struct {
	shared.BaseDomainEvent
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

// NewCategoryRenamedEvent creates a new CategoryRenamedEvent
func NewCategoryRenamedEvent(m *Meta, oldName, newName string) *CategoryRenamedEvent {
	return &CategoryRenamedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryRenamed, AggregateTypeBusiness, m.ID, m.TenantID),
		OldName:         oldName,
		NewName:         newName,
	}
}

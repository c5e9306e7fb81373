package catalog

import (
	"github.com/cloudpos/backend/internal/domain/shared"
)

const AggregateTypeProduct = "Product"

const (
	EventTypeProductCreated     = "ProductCreated"
	EventTypeProductUpdated     = "ProductUpdated"
	EventTypeProductDeactivated = "ProductDeactivated"
)

// ProductChangedEvent carries the product id; search indexers reload the
// aggregate rather than trusting a payload snapshot.
type ProductChangedEvent struct {
	shared.BaseDomainEvent
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// NewProductChangedEvent creates a product event of the given type
func NewProductChangedEvent(eventType string, p *ProductMeta) *ProductChangedEvent {
	return &ProductChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeProduct, p.ID, p.TenantID),
		Name:            p.Name,
		IsActive:        p.IsActive,
	}
}

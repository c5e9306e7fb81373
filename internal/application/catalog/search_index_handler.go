package catalog

import (
	"context"
	"errors"

	"github.com/cloudpos/backend/internal/domain/catalog"
	"github.com/cloudpos/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SearchIndexHandler keeps the search index in step with product changes
type SearchIndexHandler struct {
	products catalog.ProductRepository
	index    catalog.SearchIndex
	logger   *zap.Logger
}

// NewSearchIndexHandler creates a new SearchIndexHandler
func NewSearchIndexHandler(products catalog.ProductRepository, index catalog.SearchIndex, logger *zap.Logger) *SearchIndexHandler {
	return &SearchIndexHandler{products: products, index: index, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *SearchIndexHandler) EventTypes() []string {
	return []string{
		catalog.EventTypeProductCreated,
		catalog.EventTypeProductUpdated,
		catalog.EventTypeProductDeactivated,
	}
}

// Handle reloads the product and re-indexes it, or removes it when it is
// inactive or gone
func (h *SearchIndexHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	tenantID, productID := event.TenantID(), event.AggregateID()

	product, err := h.products.FindByID(ctx, tenantID, productID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return h.index.RemoveProduct(ctx, tenantID, productID)
		}
		return err
	}
	if !product.IsActive {
		h.logger.Debug("Removing inactive product from search index", zap.String("product_id", productID.String()))
		return h.index.RemoveProduct(ctx, tenantID, productID)
	}
	return h.index.IndexProduct(ctx, product)
}

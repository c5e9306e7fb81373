// Package search indexes sellable variants in Meilisearch.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cloudpos/backend/internal/domain/catalog"
	"github.com/google/uuid"
	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

// DefaultIndex is used when no index name is configured
const DefaultIndex = "pos_variants"

// ErrUnavailable is returned while Meilisearch is unreachable; callers fall
// back to the database search.
var ErrUnavailable = errors.New("search: meilisearch unavailable")

// VariantDocument is one sellable variant in the index
type VariantDocument struct {
	ID            string `json:"id"`
	TenantID      string `json:"tenantId"`
	ProductID     string `json:"productId"`
	ProductName   string `json:"productName"`
	VariationName string `json:"variationName"`
	Brand         string `json:"brand"`
	Category      string `json:"category"`
	SKU           string `json:"sku"`
	Barcode       string `json:"barcode"`
	UpdatedAt     int64  `json:"updatedAt"`
}

// MeiliIndex implements catalog.SearchIndex
type MeiliIndex struct {
	client  meili.ServiceManager
	uid     string
	healthy atomic.Bool
	logger  *zap.Logger
}

var _ catalog.SearchIndex = (*MeiliIndex)(nil)

// NewMeiliIndex connects and configures the index. An unreachable server is
// not an error: the index reports unhealthy until RunHealthLoop sees it recover.
func NewMeiliIndex(url, apiKey, uid string, logger *zap.Logger) *MeiliIndex {
	if uid == "" {
		uid = DefaultIndex
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &MeiliIndex{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		uid:    uid,
		logger: logger,
	}

	if _, err := m.client.Health(); err != nil {
		logger.Warn("Meilisearch unavailable, using database search", zap.String("url", url), zap.Error(err))
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configure()
	}
	return m
}

func (m *MeiliIndex) configure() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: m.uid, PrimaryKey: "id"}); err != nil {
		m.logger.Debug("Create index (may already exist)", zap.String("index", m.uid), zap.Error(err))
	}

	index := m.client.Index(m.uid)
	filterable := []interface{}{"tenantId", "productId", "category"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("Update filterable attributes failed", zap.Error(err))
	}
	searchable := []string{"productName", "variationName", "sku", "barcode", "brand", "category"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("Update searchable attributes failed", zap.Error(err))
	}
}

// RunHealthLoop polls Meilisearch until ctx is done and reconfigures the
// index when it comes back.
func (m *MeiliIndex) RunHealthLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("Meilisearch recovered, reconfiguring index", zap.String("index", m.uid))
				m.configure()
			}
		}
	}
}

// Healthy reports whether the last contact succeeded
func (m *MeiliIndex) Healthy() bool {
	return m.healthy.Load()
}

// IndexProduct upserts the active variants of an active product and drops the rest
func (m *MeiliIndex) IndexProduct(ctx context.Context, p *catalog.ProductMeta) error {
	if !m.healthy.Load() {
		return ErrUnavailable
	}
	if !p.IsActive {
		return m.RemoveProduct(ctx, p.TenantID, p.ID)
	}

	index := m.client.Index(m.uid)
	docs := make([]VariantDocument, 0, len(p.Variants))
	for _, v := range p.Variants {
		if !v.IsActive {
			if _, err := index.DeleteDocument(v.ID.String(), nil); err != nil {
				return m.fail("delete variant", err)
			}
			continue
		}
		docs = append(docs, variantDocument(p, v))
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := index.AddDocuments(docs, nil); err != nil {
		return m.fail("add documents", err)
	}
	return nil
}

// RemoveProduct deletes every indexed variant of a product
func (m *MeiliIndex) RemoveProduct(ctx context.Context, tenantID, productID uuid.UUID) error {
	if !m.healthy.Load() {
		return ErrUnavailable
	}
	filter := fmt.Sprintf("tenantId = %q AND productId = %q", tenantID.String(), productID.String())
	ids, err := m.search("", filter, 1000)
	if err != nil {
		return err
	}
	index := m.client.Index(m.uid)
	for _, id := range ids {
		if _, err := index.DeleteDocument(id.String(), nil); err != nil {
			return m.fail("delete variant", err)
		}
	}
	return nil
}

// Search returns matching variant IDs of one tenant, best match first
func (m *MeiliIndex) Search(ctx context.Context, tenantID uuid.UUID, query string, limit int) ([]uuid.UUID, error) {
	if !m.healthy.Load() {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		limit = 20
	}
	return m.search(query, fmt.Sprintf("tenantId = %q", tenantID.String()), limit)
}

func (m *MeiliIndex) search(query, filter string, limit int) ([]uuid.UUID, error) {
	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{{
			IndexUID: m.uid,
			Query:    query,
			Limit:    int64(limit),
			Filter:   filter,
		}},
	})
	if err != nil {
		return nil, m.fail("multi-search", err)
	}

	var ids []uuid.UUID
	for _, res := range resp.Results {
		for _, hit := range res.Hits {
			raw, ok := hit["id"]
			if !ok {
				continue
			}
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				continue
			}
			if id, err := uuid.Parse(s); err == nil {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// fail marks the index unhealthy so callers fall back until the next probe
func (m *MeiliIndex) fail(op string, err error) error {
	m.healthy.Store(false)
	return fmt.Errorf("meilisearch %s: %w", op, err)
}

func variantDocument(p *catalog.ProductMeta, v catalog.ProductVariant) VariantDocument {
	return VariantDocument{
		ID:            v.ID.String(),
		TenantID:      p.TenantID.String(),
		ProductID:     p.ID.String(),
		ProductName:   p.Name,
		VariationName: v.VariationName,
		Brand:         p.Brand,
		Category:      p.Category,
		SKU:           v.SKU,
		Barcode:       v.Barcode,
		UpdatedAt:     v.UpdatedAt.Unix(),
	}
}

package offline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	catalogapp "github.com/cloudpos/backend/internal/application/catalog"
	"github.com/cloudpos/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	catalogSyncPath  = "/api/v1/catalog/products/sync"
	catalogCursorKey = "catalog_since"
)

var ErrNotCached = errors.New("offline: variant not in local catalog")

// variantModel is a sellable variant as cached on the till
type variantModel struct {
	VariantID     string              `gorm:"primaryKey;type:text"`
	ProductID     string              `gorm:"type:text;not null"`
	ProductName   string              `gorm:"type:text"`
	DisplayName   string              `gorm:"type:text;index"`
	Category      string              `gorm:"type:text"`
	Unit          string              `gorm:"type:text"`
	SKU           string              `gorm:"type:text;index"`
	Barcode       string              `gorm:"type:text;index"`
	VariationName string              `gorm:"type:text"`
	CostPrice     decimal.Decimal     `gorm:"type:text"`
	RetailPrice   decimal.Decimal     `gorm:"type:text"`
	PriceTiers    []catalog.PriceTier `gorm:"serializer:json"`
	TrackStock    bool
	IsActive      bool `gorm:"index"`
	UpdatedAt     time.Time
}

func (variantModel) TableName() string { return "catalog_variants" }

func variantModelFrom(v catalogapp.SellableVariantResponse) *variantModel {
	tiers := make([]catalog.PriceTier, len(v.PriceTiers))
	for i, t := range v.PriceTiers {
		tiers[i] = catalog.PriceTier{Name: t.Name, MinQty: t.MinQty, Price: t.Price}
	}
	return &variantModel{
		VariantID:     v.VariantID.String(),
		ProductID:     v.ProductID.String(),
		ProductName:   v.ProductName,
		DisplayName:   v.DisplayName,
		Category:      v.Category,
		Unit:          v.Unit,
		SKU:           v.SKU,
		Barcode:       v.Barcode,
		VariationName: v.VariationName,
		CostPrice:     v.CostPrice,
		RetailPrice:   v.RetailPrice,
		PriceTiers:    tiers,
		TrackStock:    v.TrackStock,
		IsActive:      v.IsActive,
		UpdatedAt:     v.UpdatedAt,
	}
}

// CachedVariant is a variant available for offline sale
type CachedVariant struct {
	VariantID     uuid.UUID
	ProductID     uuid.UUID
	ProductName   string
	DisplayName   string
	Category      string
	Unit          string
	SKU           string
	Barcode       string
	VariationName string
	CostPrice     decimal.Decimal
	RetailPrice   decimal.Decimal
	PriceTiers    []catalog.PriceTier
	TrackStock    bool
}

func (m *variantModel) toCached() CachedVariant {
	vid, _ := uuid.Parse(m.VariantID)
	pid, _ := uuid.Parse(m.ProductID)
	return CachedVariant{
		VariantID:     vid,
		ProductID:     pid,
		ProductName:   m.ProductName,
		DisplayName:   m.DisplayName,
		Category:      m.Category,
		Unit:          m.Unit,
		SKU:           m.SKU,
		Barcode:       m.Barcode,
		VariationName: m.VariationName,
		CostPrice:     m.CostPrice,
		RetailPrice:   m.RetailPrice,
		PriceTiers:    m.PriceTiers,
		TrackStock:    m.TrackStock,
	}
}

type catalogFetcher interface {
	getJSON(ctx context.Context, path string, out any) error
}

// CatalogCache mirrors the tenant's sellable variants into sqlite
type CatalogCache struct {
	store    *Store
	client   catalogFetcher
	pageSize int
	logger   *zap.Logger
}

// NewCatalogCache creates a cache filled from client
func NewCatalogCache(store *Store, client *Client, pageSize int, logger *zap.Logger) *CatalogCache {
	if pageSize <= 0 || pageSize > 1000 {
		pageSize = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogCache{store: store, client: client, pageSize: pageSize, logger: logger}
}

// Sync pulls every variant changed since the last sync and returns how many
// were stored. The cursor only moves after a page is committed.
func (c *CatalogCache) Sync(ctx context.Context) (int, error) {
	cursor, err := c.store.getState(ctx, catalogCursorKey)
	if err != nil {
		return 0, err
	}
	total := 0
	for {
		q := url.Values{}
		if cursor != "" {
			q.Set("since", cursor)
		}
		q.Set("limit", strconv.Itoa(c.pageSize))

		var page catalogapp.SyncResponse
		if err := c.client.getJSON(ctx, catalogSyncPath+"?"+q.Encode(), &page); err != nil {
			return total, fmt.Errorf("offline: catalog sync: %w", err)
		}

		next := page.Next.UTC().Format(time.RFC3339)
		err := c.store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, item := range page.Items {
				if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(variantModelFrom(item)).Error; err != nil {
					return err
				}
			}
			return tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"value"}),
			}).Create(&stateModel{Name: catalogCursorKey, Value: next}).Error
		})
		if err != nil {
			return total, err
		}
		total += len(page.Items)

		// the cursor has second precision; a page that cannot advance it would repeat forever
		if !page.HasMore || next == cursor {
			break
		}
		cursor = next
	}
	if total > 0 {
		c.logger.Info("Catalog synced", zap.Int("variants", total))
	}
	return total, nil
}

// LookupBarcode finds an active variant by barcode, falling back to SKU
func (c *CatalogCache) LookupBarcode(ctx context.Context, code string) (*CachedVariant, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrNotCached
	}
	var m variantModel
	err := c.store.db.WithContext(ctx).
		Where("is_active = ? AND (barcode = ? OR sku = ?)", true, code, code).
		Order(clause.OrderBy{Expression: clause.Expr{SQL: "CASE WHEN barcode = ? THEN 0 ELSE 1 END", Vars: []any{code}}}).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, err
	}
	v := m.toCached()
	return &v, nil
}

// Search matches name, SKU or barcode case-insensitively
func (c *CatalogCache) Search(ctx context.Context, query string, limit int) ([]CachedVariant, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	var rows []variantModel
	err := c.store.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("LOWER(display_name) LIKE ? OR LOWER(sku) LIKE ? OR barcode LIKE ?", like, like, like).
		Order("display_name ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]CachedVariant, len(rows))
	for i := range rows {
		out[i] = rows[i].toCached()
	}
	return out, nil
}

// Count returns how many active variants are cached
func (c *CatalogCache) Count(ctx context.Context) (int64, error) {
	var n int64
	err := c.store.db.WithContext(ctx).Model(&variantModel{}).Where("is_active = ?", true).Count(&n).Error
	return n, err
}

// PriceFor applies the same tier rule as the server's checkout
func PriceFor(v *CachedVariant, tier string, qty decimal.Decimal) catalog.ResolvedPrice {
	return catalog.ResolvePrice(v.RetailPrice, v.CostPrice, v.PriceTiers, tier, qty)
}

package catalog

import (
	"time"

	"github.com/cloudpos/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceTierRequest is one quantity-break price
type PriceTierRequest struct {
	Name   string          `json:"name" binding:"required,max=30"`
	MinQty decimal.Decimal `json:"min_qty"`
	Price  decimal.Decimal `json:"price"`
}

// VariantRequest creates or updates a variant
type VariantRequest struct {
	SKU           string             `json:"sku" binding:"required,sku"`
	Barcode       string             `json:"barcode" binding:"max=64"`
	VariationName string             `json:"variation_name" binding:"max=100"`
	Attributes    map[string]string  `json:"attributes"`
	CostPrice     decimal.Decimal    `json:"cost_price"`
	RetailPrice   decimal.Decimal    `json:"retail_price"`
	PriceTiers    []PriceTierRequest `json:"price_tiers" binding:"dive"`
}

// CreateProductRequest creates a product with its first variants
type CreateProductRequest struct {
	Name        string           `json:"name" binding:"required,min=1,max=200"`
	Category    string           `json:"category" binding:"max=100"`
	Brand       string           `json:"brand" binding:"max=100"`
	Description string           `json:"description" binding:"max=2000"`
	Unit        string           `json:"unit" binding:"max=20"`
	TrackStock  *bool            `json:"track_stock"`
	Variants    []VariantRequest `json:"variants" binding:"required,min=1,dive"`
}

// UpdateProductRequest edits the shared product fields
type UpdateProductRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Category    string `json:"category" binding:"max=100"`
	Brand       string `json:"brand" binding:"max=100"`
	Description string `json:"description" binding:"max=2000"`
	Unit        string `json:"unit" binding:"max=20"`
	TrackStock  bool   `json:"track_stock"`
}

// SetPriceTiersRequest replaces the tiers of a variant
type SetPriceTiersRequest struct {
	PriceTiers []PriceTierRequest `json:"price_tiers" binding:"dive"`
}

// ImageUploadRequest asks for a presigned upload URL
type ImageUploadRequest struct {
	Filename    string `json:"filename" binding:"required,max=200"`
	ContentType string `json:"content_type" binding:"required,oneof=image/jpeg image/png image/webp"`
}

// ImageUploadResponse carries the presigned PUT URL
type ImageUploadResponse struct {
	UploadURL  string    `json:"upload_url"`
	StorageKey string    `json:"storage_key"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ConfirmImageRequest attaches an uploaded image to a product
type ConfirmImageRequest struct {
	StorageKey string `json:"storage_key" binding:"required"`
}

// ProductListFilter holds list query parameters
type ProductListFilter struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search   string `form:"search"`
	Category string `form:"category"`
	IsActive *bool  `form:"is_active"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=name created_at updated_at"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// PriceTierResponse is a tier in API responses
type PriceTierResponse struct {
	Name   string          `json:"name"`
	MinQty decimal.Decimal `json:"min_qty"`
	Price  decimal.Decimal `json:"price"`
}

// VariantResponse is a variant in API responses
type VariantResponse struct {
	ID            uuid.UUID           `json:"id"`
	SKU           string              `json:"sku"`
	Barcode       string              `json:"barcode,omitempty"`
	VariationName string              `json:"variation_name,omitempty"`
	Attributes    map[string]string   `json:"attributes,omitempty"`
	CostPrice     decimal.Decimal     `json:"cost_price"`
	RetailPrice   decimal.Decimal     `json:"retail_price"`
	PriceTiers    []PriceTierResponse `json:"price_tiers"`
	IsActive      bool                `json:"is_active"`
	BelowCost     bool                `json:"below_cost"`
}

// ProductResponse is a product with its variants
type ProductResponse struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Category    string            `json:"category,omitempty"`
	Brand       string            `json:"brand,omitempty"`
	Description string            `json:"description,omitempty"`
	Unit        string            `json:"unit"`
	ImageKey    string            `json:"image_key,omitempty"`
	ImageURL    string            `json:"image_url,omitempty"`
	IsActive    bool              `json:"is_active"`
	TrackStock  bool              `json:"track_stock"`
	Variants    []VariantResponse `json:"variants"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Version     int               `json:"version"`
}

// SellableVariantResponse is the flattened row used by the POS screen,
// barcode lookup, search and the offline catalog sync
type SellableVariantResponse struct {
	VariantID     uuid.UUID           `json:"variant_id"`
	ProductID     uuid.UUID           `json:"product_id"`
	ProductName   string              `json:"product_name"`
	DisplayName   string              `json:"display_name"`
	Category      string              `json:"category,omitempty"`
	Unit          string              `json:"unit"`
	SKU           string              `json:"sku"`
	Barcode       string              `json:"barcode,omitempty"`
	VariationName string              `json:"variation_name,omitempty"`
	CostPrice     decimal.Decimal     `json:"cost_price"`
	RetailPrice   decimal.Decimal     `json:"retail_price"`
	PriceTiers    []PriceTierResponse `json:"price_tiers"`
	TrackStock    bool                `json:"track_stock"`
	IsActive      bool                `json:"is_active"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// SyncResponse is one page of the incremental catalog feed
type SyncResponse struct {
	Items []SellableVariantResponse `json:"items"`
	// Next is the since value for the following request
	Next    time.Time `json:"next"`
	HasMore bool      `json:"has_more"`
}

func toTiers(in []PriceTierRequest) []catalog.PriceTier {
	out := make([]catalog.PriceTier, len(in))
	for i, t := range in {
		out[i] = catalog.PriceTier{Name: t.Name, MinQty: t.MinQty, Price: t.Price}
	}
	return out
}

func toTierResponses(in []catalog.PriceTier) []PriceTierResponse {
	out := make([]PriceTierResponse, len(in))
	for i, t := range in {
		out[i] = PriceTierResponse{Name: t.Name, MinQty: t.MinQty, Price: t.Price}
	}
	return out
}

func (r VariantRequest) toInput() catalog.VariantInput {
	return catalog.VariantInput{
		SKU:           r.SKU,
		Barcode:       r.Barcode,
		VariationName: r.VariationName,
		Attributes:    r.Attributes,
		CostPrice:     r.CostPrice,
		RetailPrice:   r.RetailPrice,
		PriceTiers:    toTiers(r.PriceTiers),
	}
}

// ToVariantResponse converts a domain variant
func ToVariantResponse(v catalog.ProductVariant) VariantResponse {
	belowCost := v.RetailPrice.LessThan(v.CostPrice)
	for _, t := range v.PriceTiers {
		if t.Price.LessThan(v.CostPrice) {
			belowCost = true
		}
	}
	return VariantResponse{
		ID:            v.ID,
		SKU:           v.SKU,
		Barcode:       v.Barcode,
		VariationName: v.VariationName,
		Attributes:    v.Attributes,
		CostPrice:     v.CostPrice,
		RetailPrice:   v.RetailPrice,
		PriceTiers:    toTierResponses(v.PriceTiers),
		IsActive:      v.IsActive,
		BelowCost:     belowCost,
	}
}

// ToProductResponse converts a domain product
func ToProductResponse(p *catalog.ProductMeta) ProductResponse {
	variants := make([]VariantResponse, len(p.Variants))
	for i, v := range p.Variants {
		variants[i] = ToVariantResponse(v)
	}
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Brand:       p.Brand,
		Description: p.Description,
		Unit:        p.Unit,
		ImageKey:    p.ImageKey,
		IsActive:    p.IsActive,
		TrackStock:  p.TrackStock,
		Variants:    variants,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Version:     p.Version,
	}
}

// ToSellableVariantResponse converts a joined variant view
func ToSellableVariantResponse(v catalog.VariantView) SellableVariantResponse {
	return SellableVariantResponse{
		VariantID:     v.ID,
		ProductID:     v.ProductID,
		ProductName:   v.ProductName,
		DisplayName:   catalog.DisplayName(v.ProductName, v.VariationName),
		Category:      v.Category,
		Unit:          v.Unit,
		SKU:           v.SKU,
		Barcode:       v.Barcode,
		VariationName: v.VariationName,
		CostPrice:     v.CostPrice,
		RetailPrice:   v.RetailPrice,
		PriceTiers:    toTierResponses(v.PriceTiers),
		TrackStock:    v.TrackStock,
		IsActive:      v.Sellable(),
		UpdatedAt:     v.UpdatedAt,
	}
}

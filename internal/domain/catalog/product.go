package catalog

import (
	"regexp"
	"strings"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	skuPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/-]{0,49}$`)

	ErrLastActiveVariant = shared.NewDomainError("LAST_ACTIVE_VARIANT", "A product needs at least one active variant")
	ErrVariantNotFound   = shared.NewDomainError("VARIANT_NOT_FOUND", "Variant not found")
	ErrDuplicateSKU      = shared.NewDomainError("DUPLICATE_SKU", "SKU already used")
	ErrDuplicateBarcode  = shared.NewDomainError("DUPLICATE_BARCODE", "Barcode already used")
)

// ValidSKU reports whether sku has an acceptable shape
func ValidSKU(sku string) bool {
	return skuPattern.MatchString(sku)
}

// ProductMeta holds attributes shared by all variants of a product
type ProductMeta struct {
	shared.TenantAggregateRoot
	Name        string
	Category    string
	Brand       string
	Description string
	Unit        string
	ImageKey    string
	IsActive    bool
	TrackStock  bool
	Variants    []ProductVariant
}

// ProductVariant is a sellable SKU of a product
type ProductVariant struct {
	shared.BaseEntity
	ProductID     uuid.UUID
	SKU           string
	Barcode       string
	VariationName string
	Attributes    map[string]string
	CostPrice     decimal.Decimal
	RetailPrice   decimal.Decimal
	PriceTiers    []PriceTier
	IsActive      bool
}

// VariantInput carries the fields for creating or updating a variant
type VariantInput struct {
	SKU           string
	Barcode       string
	VariationName string
	Attributes    map[string]string
	CostPrice     decimal.Decimal
	RetailPrice   decimal.Decimal
	PriceTiers    []PriceTier
}

// ProductInput carries the shared product fields
type ProductInput struct {
	Name        string
	Category    string
	Brand       string
	Description string
	Unit        string
	TrackStock  bool
}

// NewProduct creates a product with at least one variant
func NewProduct(tenantID uuid.UUID, in ProductInput, variants []VariantInput) (*ProductMeta, error) {
	if len(variants) == 0 {
		return nil, shared.NewDomainError("NO_VARIANTS", "A product needs at least one variant")
	}
	p := &ProductMeta{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		IsActive:            true,
		Variants:            make([]ProductVariant, 0, len(variants)),
	}
	if err := p.apply(in); err != nil {
		return nil, err
	}
	for _, v := range variants {
		if _, err := p.addVariant(v); err != nil {
			return nil, err
		}
	}
	p.AddDomainEvent(NewProductChangedEvent(EventTypeProductCreated, p))
	return p, nil
}

func (p *ProductMeta) apply(in ProductInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 200 {
		return shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name must be 1-200 characters")
	}
	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		unit = "pcs"
	}
	if len(unit) > 20 {
		return shared.NewDomainError("INVALID_UNIT", "Unit cannot exceed 20 characters")
	}
	p.Name = name
	p.Category = strings.TrimSpace(in.Category)
	p.Brand = strings.TrimSpace(in.Brand)
	p.Description = in.Description
	p.Unit = unit
	p.TrackStock = in.TrackStock
	return nil
}

// Update applies shared field edits
func (p *ProductMeta) Update(in ProductInput) error {
	if err := p.apply(in); err != nil {
		return err
	}
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductChangedEvent(EventTypeProductUpdated, p))
	return nil
}

// SetCategory moves the product to another category (used by renames)
func (p *ProductMeta) SetCategory(category string) {
	p.Category = category
	p.Touch()
	p.IncrementVersion()
}

// SetImage records the object storage key of the product image
func (p *ProductMeta) SetImage(key string) {
	p.ImageKey = key
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductChangedEvent(EventTypeProductUpdated, p))
}

func buildVariant(productID uuid.UUID, in VariantInput) (ProductVariant, error) {
	v := ProductVariant{BaseEntity: shared.NewBaseEntity(), ProductID: productID, IsActive: true}
	if err := v.apply(in); err != nil {
		return ProductVariant{}, err
	}
	return v, nil
}

func (v *ProductVariant) apply(in VariantInput) error {
	sku := strings.TrimSpace(in.SKU)
	if !ValidSKU(sku) {
		return shared.NewDomainError("INVALID_SKU", "SKU must be 1-50 letters, digits or ._/-")
	}
	if in.RetailPrice.IsNegative() || in.CostPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	tiers, err := ValidateTiers(in.PriceTiers)
	if err != nil {
		return err
	}
	attrs := in.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	v.SKU = strings.ToUpper(sku)
	v.Barcode = strings.TrimSpace(in.Barcode)
	v.VariationName = strings.TrimSpace(in.VariationName)
	v.Attributes = attrs
	v.CostPrice = in.CostPrice.Round(2)
	v.RetailPrice = in.RetailPrice.Round(2)
	v.PriceTiers = tiers
	return nil
}

func (p *ProductMeta) addVariant(in VariantInput) (*ProductVariant, error) {
	v, err := buildVariant(p.ID, in)
	if err != nil {
		return nil, err
	}
	for _, existing := range p.Variants {
		if existing.SKU == v.SKU {
			return nil, ErrDuplicateSKU
		}
		if v.Barcode != "" && existing.Barcode == v.Barcode {
			return nil, ErrDuplicateBarcode
		}
	}
	p.Variants = append(p.Variants, v)
	return &p.Variants[len(p.Variants)-1], nil
}

// AddVariant appends a new SKU
func (p *ProductMeta) AddVariant(in VariantInput) (*ProductVariant, error) {
	v, err := p.addVariant(in)
	if err != nil {
		return nil, err
	}
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductChangedEvent(EventTypeProductUpdated, p))
	return v, nil
}

// Variant finds a variant by id
func (p *ProductMeta) Variant(id uuid.UUID) (*ProductVariant, error) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], nil
		}
	}
	return nil, ErrVariantNotFound
}

// UpdateVariant edits a variant in place
func (p *ProductMeta) UpdateVariant(id uuid.UUID, in VariantInput) error {
	v, err := p.Variant(id)
	if err != nil {
		return err
	}
	sku := strings.ToUpper(strings.TrimSpace(in.SKU))
	barcode := strings.TrimSpace(in.Barcode)
	for _, other := range p.Variants {
		if other.ID == id {
			continue
		}
		if other.SKU == sku {
			return ErrDuplicateSKU
		}
		if barcode != "" && other.Barcode == barcode {
			return ErrDuplicateBarcode
		}
	}
	if err := v.apply(in); err != nil {
		return err
	}
	v.Touch()
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductChangedEvent(EventTypeProductUpdated, p))
	return nil
}

// SetPriceTiers replaces the tier list of a variant
func (p *ProductMeta) SetPriceTiers(id uuid.UUID, tiers []PriceTier) error {
	v, err := p.Variant(id)
	if err != nil {
		return err
	}
	validated, err := ValidateTiers(tiers)
	if err != nil {
		return err
	}
	v.PriceTiers = validated
	v.Touch()
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductChangedEvent(EventTypeProductUpdated, p))
	return nil
}

// RemoveVariant deactivates a variant. Variants stay in the table because
// past order lines reference them.
func (p *ProductMeta) RemoveVariant(id uuid.UUID) error {
	v, err := p.Variant(id)
	if err != nil {
		return err
	}
	if !v.IsActive {
		return shared.NewDomainError("VARIANT_INACTIVE", "Variant is already removed")
	}
	if p.activeVariantCount() <= 1 {
		return ErrLastActiveVariant
	}
	v.IsActive = false
	v.Touch()
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductChangedEvent(EventTypeProductUpdated, p))
	return nil
}

func (p *ProductMeta) activeVariantCount() int {
	n := 0
	for _, v := range p.Variants {
		if v.IsActive {
			n++
		}
	}
	return n
}

// ActiveVariants returns variants that can be sold
func (p *ProductMeta) ActiveVariants() []ProductVariant {
	out := make([]ProductVariant, 0, len(p.Variants))
	for _, v := range p.Variants {
		if v.IsActive {
			out = append(out, v)
		}
	}
	return out
}

// Activate re-lists the product
func (p *ProductMeta) Activate() error {
	if p.IsActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Product is already active")
	}
	p.IsActive = true
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductChangedEvent(EventTypeProductUpdated, p))
	return nil
}

// Deactivate de-lists the product
func (p *ProductMeta) Deactivate() error {
	if !p.IsActive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Product is already inactive")
	}
	p.IsActive = false
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductChangedEvent(EventTypeProductDeactivated, p))
	return nil
}

// ResolvePrice applies the tier pricing rule to the variant
func (v *ProductVariant) ResolvePrice(tier string, qty decimal.Decimal) ResolvedPrice {
	return ResolvePrice(v.RetailPrice, v.CostPrice, v.PriceTiers, tier, qty)
}

// DisplayName joins product and variation names for receipts
func DisplayName(productName, variationName string) string {
	if variationName == "" {
		return productName
	}
	return productName + " - " + variationName
}

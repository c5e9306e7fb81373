package models

import (
	"github.com/cloudpos/backend/internal/domain/catalog"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for ProductMeta
type ProductModel struct {
	TenantAggregateModel
	Name        string                `gorm:"type:varchar(200);not null"`
	Category    string                `gorm:"type:varchar(100);index"`
	Brand       string                `gorm:"type:varchar(100)"`
	Description string                `gorm:"type:text"`
	Unit        string                `gorm:"type:varchar(20);not null;default:'pcs'"`
	ImageKey    string                `gorm:"type:varchar(500)"`
	IsActive    bool                  `gorm:"not null;default:true"`
	TrackStock  bool                  `gorm:"not null;default:true"`
	Variants    []ProductVariantModel `gorm:"foreignKey:ProductID"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain ProductMeta
func (m *ProductModel) ToDomain() *catalog.ProductMeta {
	p := &catalog.ProductMeta{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Name:                m.Name,
		Category:            m.Category,
		Brand:               m.Brand,
		Description:         m.Description,
		Unit:                m.Unit,
		ImageKey:            m.ImageKey,
		IsActive:            m.IsActive,
		TrackStock:          m.TrackStock,
		Variants:            make([]catalog.ProductVariant, 0, len(m.Variants)),
	}
	for i := range m.Variants {
		p.Variants = append(p.Variants, m.Variants[i].ToDomain())
	}
	return p
}

// FromDomain populates the persistence model from a domain ProductMeta
func (m *ProductModel) FromDomain(p *catalog.ProductMeta) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.Name = p.Name
	m.Category = p.Category
	m.Brand = p.Brand
	m.Description = p.Description
	m.Unit = p.Unit
	m.ImageKey = p.ImageKey
	m.IsActive = p.IsActive
	m.TrackStock = p.TrackStock
	m.Variants = make([]ProductVariantModel, 0, len(p.Variants))
	for _, v := range p.Variants {
		m.Variants = append(m.Variants, *ProductVariantModelFromDomain(p.TenantID, v))
	}
}

// ProductModelFromDomain creates a new persistence model from a domain ProductMeta
func ProductModelFromDomain(p *catalog.ProductMeta) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// ProductVariantModel is one sellable variant of a product
type ProductVariantModel struct {
	BaseModel
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	SKU           string          `gorm:"column:sku;type:varchar(64);not null"`
	Barcode       string          `gorm:"type:varchar(64);index"`
	VariationName string          `gorm:"type:varchar(200)"`
	Attributes    string          `gorm:"type:jsonb;not null;default:'{}'"`
	CostPrice     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	RetailPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	PriceTiers    string          `gorm:"type:jsonb;not null;default:'[]'"`
	IsActive      bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (ProductVariantModel) TableName() string {
	return "product_variants"
}

// ToDomain converts the persistence model to a domain ProductVariant
func (m *ProductVariantModel) ToDomain() catalog.ProductVariant {
	v := catalog.ProductVariant{
		BaseEntity:    shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ProductID:     m.ProductID,
		SKU:           m.SKU,
		Barcode:       m.Barcode,
		VariationName: m.VariationName,
		Attributes:    make(map[string]string),
		CostPrice:     m.CostPrice,
		RetailPrice:   m.RetailPrice,
		PriceTiers:    make([]catalog.PriceTier, 0),
		IsActive:      m.IsActive,
	}
	unmarshalJSON(m.Attributes, &v.Attributes)
	unmarshalJSON(m.PriceTiers, &v.PriceTiers)
	return v
}

// ProductVariantModelFromDomain creates a variant row for the given tenant
func ProductVariantModelFromDomain(tenantID uuid.UUID, v catalog.ProductVariant) *ProductVariantModel {
	return &ProductVariantModel{
		BaseModel:     BaseModel{ID: v.ID, CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt},
		TenantID:      tenantID,
		ProductID:     v.ProductID,
		SKU:           v.SKU,
		Barcode:       v.Barcode,
		VariationName: v.VariationName,
		Attributes:    marshalJSON(v.Attributes, "{}"),
		CostPrice:     v.CostPrice,
		RetailPrice:   v.RetailPrice,
		PriceTiers:    marshalJSON(v.PriceTiers, "[]"),
		IsActive:      v.IsActive,
	}
}

// VariantViewRow is the scan target of the variant/product join
type VariantViewRow struct {
	ProductVariantModel
	ProductName   string
	Category      string
	Unit          string
	TrackStock    bool
	ImageKey      string
	ProductActive bool
}

// ToDomain converts the joined row to a catalog VariantView
func (r *VariantViewRow) ToDomain() catalog.VariantView {
	return catalog.VariantView{
		ProductVariant: r.ProductVariantModel.ToDomain(),
		ProductName:    r.ProductName,
		Category:       r.Category,
		Unit:           r.Unit,
		TrackStock:     r.TrackStock,
		ImageKey:       r.ImageKey,
		ProductActive:  r.ProductActive,
	}
}

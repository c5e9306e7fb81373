package models

import (
	"testing"
	"time"

	"github.com/cloudpos/backend/internal/domain/business"
	"github.com/cloudpos/backend/internal/domain/catalog"
	"github.com/cloudpos/backend/internal/domain/sales"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductVariantModel_JSONColumns(t *testing.T) {
	tenantID := uuid.New()
	v := catalog.ProductVariant{
		BaseEntity:    shared.NewBaseEntity(),
		ProductID:     uuid.New(),
		SKU:           "TSHIRT-RED-M",
		VariationName: "Red / M",
		Attributes:    map[string]string{"color": "Red", "size": "M"},
		RetailPrice:   decimal.RequireFromString("1500"),
		PriceTiers: []catalog.PriceTier{
			{Name: "wholesale", MinQty: decimal.NewFromInt(10), Price: decimal.RequireFromString("1200")},
		},
		IsActive: true,
	}

	m := ProductVariantModelFromDomain(tenantID, v)
	assert.Equal(t, tenantID, m.TenantID)
	assert.JSONEq(t, `{"color":"Red","size":"M"}`, m.Attributes)

	back := m.ToDomain()
	assert.Equal(t, v.Attributes, back.Attributes)
	require.Len(t, back.PriceTiers, 1)
	assert.Equal(t, "wholesale", back.PriceTiers[0].Name)
	assert.True(t, back.PriceTiers[0].Price.Equal(decimal.RequireFromString("1200")))
}

func TestProductVariantModel_EmptyJSON(t *testing.T) {
	m := ProductVariantModelFromDomain(uuid.New(), catalog.ProductVariant{BaseEntity: shared.NewBaseEntity()})
	assert.Equal(t, "{}", m.Attributes)
	assert.Equal(t, "[]", m.PriceTiers)

	m.Attributes = "not json"
	v := m.ToDomain()
	assert.NotNil(t, v.Attributes)
	assert.Empty(t, v.Attributes)
}

func TestBusinessMetaModel_Categories(t *testing.T) {
	meta := &business.Meta{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(uuid.New()),
		BusinessName:        "Kandy Stores",
		Currency:            "LKR",
		Categories:          []string{"Grocery", "Beverages"},
	}

	m := BusinessMetaModelFromDomain(meta)
	assert.JSONEq(t, `["Grocery","Beverages"]`, m.Categories)
	assert.Equal(t, []string{"Grocery", "Beverages"}, m.ToDomain().Categories)

	meta.Categories = nil
	assert.Equal(t, "[]", BusinessMetaModelFromDomain(meta).Categories)
}

func TestOrderModel_LinesKeepOrder(t *testing.T) {
	now := time.Now()
	o := &sales.Order{
		BranchAggregateRoot: shared.NewBranchAggregateRoot(uuid.New(), uuid.New()),
		InvoiceNumber:       "INV-COL-000001",
		CashierID:           uuid.New(),
		Status:              sales.OrderStatusCompleted,
		CompletedAt:         &now,
		Lines: []sales.OrderLine{
			{ID: uuid.New(), VariantID: uuid.New(), ProductName: "Tea", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100), LineTotal: decimal.NewFromInt(200)},
			{ID: uuid.New(), VariantID: uuid.New(), ProductName: "Sugar", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(250), LineTotal: decimal.NewFromInt(250)},
		},
		Payments: []sales.OrderPayment{{ID: uuid.New(), Method: sales.PaymentCash, Amount: decimal.NewFromInt(500)}},
	}

	m := OrderModelFromDomain(o)
	require.Len(t, m.Lines, 2)
	assert.Equal(t, 1, m.Lines[0].LineNo)
	assert.Equal(t, 2, m.Lines[1].LineNo)
	assert.Equal(t, o.ID, m.Lines[1].OrderID)
	assert.Equal(t, o.TenantID, m.Payments[0].TenantID)
	assert.Equal(t, o.BranchID, m.BranchID)

	back := m.ToDomain()
	assert.Equal(t, o.BranchID, back.BranchID)
	assert.Equal(t, "Sugar", back.Lines[1].ProductName)
	assert.Equal(t, sales.PaymentCash, back.Payments[0].Method)
}

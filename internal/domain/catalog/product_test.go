package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProduct(t *testing.T) *ProductMeta {
	t.Helper()
	p, err := NewProduct(uuid.New(), ProductInput{Name: "T-Shirt", Category: "Apparel", TrackStock: true}, []VariantInput{
		{SKU: "ts-red-m", Barcode: "4790001", VariationName: "Red / M", CostPrice: d("800"), RetailPrice: d("1500")},
		{SKU: "ts-red-l", Barcode: "4790002", VariationName: "Red / L", CostPrice: d("800"), RetailPrice: d("1500")},
	})
	require.NoError(t, err)
	return p
}

func TestNewProduct(t *testing.T) {
	p := newProduct(t)
	assert.Equal(t, "pcs", p.Unit)
	assert.Len(t, p.Variants, 2)
	assert.Equal(t, "TS-RED-M", p.Variants[0].SKU)
	assert.Equal(t, p.ID, p.Variants[0].ProductID)
	require.Len(t, p.GetDomainEvents(), 1)
	assert.Equal(t, EventTypeProductCreated, p.GetDomainEvents()[0].EventType())

	_, err := NewProduct(uuid.New(), ProductInput{Name: "Empty"}, nil)
	assert.Error(t, err)

	_, err = NewProduct(uuid.New(), ProductInput{Name: "Dup"}, []VariantInput{
		{SKU: "A1", RetailPrice: d("1")},
		{SKU: "a1", RetailPrice: d("1")},
	})
	assert.ErrorIs(t, err, ErrDuplicateSKU)
}

func TestProduct_RemoveVariantKeepsOneActive(t *testing.T) {
	p := newProduct(t)

	require.NoError(t, p.RemoveVariant(p.Variants[0].ID))
	assert.ErrorIs(t, p.RemoveVariant(p.Variants[1].ID), ErrLastActiveVariant)
	assert.Len(t, p.ActiveVariants(), 1)
	assert.ErrorIs(t, p.RemoveVariant(uuid.New()), ErrVariantNotFound)
}

func TestProduct_UpdateVariantRejectsDuplicateBarcode(t *testing.T) {
	p := newProduct(t)

	err := p.UpdateVariant(p.Variants[1].ID, VariantInput{SKU: "TS-RED-L", Barcode: "4790001", RetailPrice: d("1500")})
	assert.ErrorIs(t, err, ErrDuplicateBarcode)

	require.NoError(t, p.UpdateVariant(p.Variants[1].ID, VariantInput{SKU: "TS-RED-L", Barcode: "4790009", RetailPrice: d("1600"), CostPrice: d("800")}))
	assert.Equal(t, "1600.00", p.Variants[1].RetailPrice.StringFixed(2))
}

func TestProduct_SetPriceTiers(t *testing.T) {
	p := newProduct(t)
	id := p.Variants[0].ID

	require.NoError(t, p.SetPriceTiers(id, []PriceTier{{Name: "wholesale", MinQty: d("12"), Price: d("1200")}}))
	v, err := p.Variant(id)
	require.NoError(t, err)

	price := v.ResolvePrice(TierWholesale, d("12"))
	assert.Equal(t, "1200.00", price.UnitPrice.StringFixed(2))
	assert.False(t, price.BelowCost)
}

func TestProduct_ActivateDeactivate(t *testing.T) {
	p := newProduct(t)
	p.ClearDomainEvents()

	require.NoError(t, p.Deactivate())
	assert.Error(t, p.Deactivate())
	assert.Equal(t, EventTypeProductDeactivated, p.GetDomainEvents()[0].EventType())
	require.NoError(t, p.Activate())
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Tea", DisplayName("Tea", ""))
	assert.Equal(t, "Tea - 400g", DisplayName("Tea", "400g"))
}

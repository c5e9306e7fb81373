package inventory

import (
	"testing"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newItem(t *testing.T, onHand string) *StockItem {
	t.Helper()
	item, err := NewStockItem(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)
	if onHand != "0" {
		_, err = item.Change(qty(onHand), MovementInitial, "", "opening", nil, false)
		require.NoError(t, err)
	}
	item.ClearDomainEvents()
	return item
}

func TestStockItem_ChangeRejectsNegative(t *testing.T) {
	item := newItem(t, "5")

	_, err := item.Change(qty("-6"), MovementSale, "order-1", "", nil, false)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.True(t, item.Quantity.Equal(qty("5")))

	m, err := item.Change(qty("-6"), MovementSale, "order-1", "", nil, true)
	require.NoError(t, err)
	assert.True(t, m.BalanceAfter.Equal(qty("-1")))
	assert.Equal(t, MovementSale, m.Type)
	assert.Equal(t, item.ID, m.StockItemID)
}

func TestStockItem_StockLowFiresOnCrossing(t *testing.T) {
	item := newItem(t, "10")
	require.NoError(t, item.SetReorderLevel(qty("3")))

	_, err := item.Change(qty("-6"), MovementSale, "", "", nil, false)
	require.NoError(t, err)
	assert.Empty(t, item.GetDomainEvents())

	_, err = item.Change(qty("-1"), MovementSale, "", "", nil, false)
	require.NoError(t, err)
	events := item.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeStockLow, events[0].EventType())

	// already low: no second event
	_, err = item.Change(qty("-1"), MovementSale, "", "", nil, false)
	require.NoError(t, err)
	assert.Len(t, item.GetDomainEvents(), 1)
}

func TestStockItem_Adjust(t *testing.T) {
	item := newItem(t, "2")

	_, err := item.Adjust(qty("1"), "", nil)
	assert.Error(t, err)

	m, err := item.Adjust(qty("-0.5"), "damaged", nil)
	require.NoError(t, err)
	assert.Equal(t, MovementAdjustOut, m.Type)

	m, err = item.Adjust(qty("3"), "recount", nil)
	require.NoError(t, err)
	assert.Equal(t, MovementAdjustIn, m.Type)
	assert.Equal(t, "4.5", item.Quantity.String())

	_, err = item.Adjust(qty("0.0001"), "rounding", nil)
	assert.Error(t, err, "rounds to zero at 3 places")
}

func TestMergeLines(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	merged := MergeLines([]Line{{a, qty("1")}, {b, qty("2")}, {a, qty("3")}})
	require.Len(t, merged, 2)
	assert.Equal(t, a, merged[0].VariantID)
	assert.True(t, merged[0].Quantity.Equal(qty("4")))
}

func TestNewStockItem_Validation(t *testing.T) {
	_, err := NewStockItem(uuid.New(), uuid.Nil, uuid.New())
	assert.Error(t, err)
	item := newItem(t, "0")
	assert.Error(t, item.SetReorderLevel(qty("-1")))
	assert.False(t, item.IsLow())
}

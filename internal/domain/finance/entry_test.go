package finance

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry(t *testing.T) {
	e, err := NewEntry(uuid.New(), uuid.New(), EntryKindExpense, EntryInput{
		Category: "Electricity",
		Amount:   decimal.RequireFromString("12500.555"),
	}, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "12500.56", e.Amount.StringFixed(2))
	assert.Equal(t, "CASH", e.PaymentMethod)
	assert.False(t, e.Date.IsZero())
	assert.NotNil(t, e.CreatedBy)

	_, err = NewEntry(uuid.New(), uuid.New(), "REFUND", EntryInput{Category: "x", Amount: decimal.NewFromInt(1)}, uuid.New())
	assert.Error(t, err)
	_, err = NewEntry(uuid.New(), uuid.New(), EntryKindIncome, EntryInput{Category: "Rent", Amount: decimal.Zero}, uuid.New())
	assert.Error(t, err)
	_, err = NewEntry(uuid.New(), uuid.Nil, EntryKindIncome, EntryInput{Category: "Rent", Amount: decimal.NewFromInt(1)}, uuid.New())
	assert.Error(t, err)
}

func TestEntry_CancelBlocksUpdate(t *testing.T) {
	e, err := NewEntry(uuid.New(), uuid.New(), EntryKindIncome, EntryInput{Category: "Rent", Amount: decimal.NewFromInt(1000)}, uuid.New())
	require.NoError(t, err)

	require.NoError(t, e.Cancel("duplicate"))
	assert.Error(t, e.Cancel("again"))
	assert.Error(t, e.Update(EntryInput{Category: "Rent", Amount: decimal.NewFromInt(5)}))
}

func TestNewSummary(t *testing.T) {
	now := time.Now()
	s := NewSummary(now.AddDate(0, -1, 0), now, nil, decimal.NewFromInt(100000), []CategoryAmount{
		{Kind: EntryKindExpense, Category: "Rent", Amount: decimal.NewFromInt(30000)},
		{Kind: EntryKindExpense, Category: "Salaries", Amount: decimal.NewFromInt(40000)},
		{Kind: EntryKindIncome, Category: "Commission", Amount: decimal.NewFromInt(5000)},
	})
	assert.Equal(t, "70000", s.Expenses.String())
	assert.Equal(t, "5000", s.OtherIncome.String())
	assert.Equal(t, "35000", s.Net.String())

	empty := NewSummary(now, now, nil, decimal.Zero, nil)
	assert.NotNil(t, empty.ByCategory)
	assert.True(t, empty.Net.IsZero())
}

package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQuote(t *testing.T) {
	catalog := NewPlanCatalog(nil)
	growth, err := catalog.Get(PlanGrowth)
	require.NoError(t, err)

	monthly, err := NewQuote(growth, CycleMonthly, 2)
	require.NoError(t, err)
	assert.Equal(t, "6500.00", monthly.Base.StringFixed(2))
	assert.Equal(t, "2400.00", monthly.Extras.StringFixed(2))
	assert.Equal(t, "8900.00", monthly.Total.StringFixed(2))
	assert.True(t, monthly.Due.Equal(monthly.Total))

	annual, err := NewQuote(growth, CycleAnnual, 2)
	require.NoError(t, err)
	// 65000 + 1200*2*12
	assert.Equal(t, "93800.00", annual.Total.StringFixed(2))

	_, err = NewQuote(growth, "WEEKLY", 0)
	assert.Error(t, err)
	_, err = NewQuote(growth, CycleMonthly, -1)
	assert.Error(t, err)
}

func TestQuote_WithCredit(t *testing.T) {
	q := Quote{Total: decimal.NewFromInt(6500)}
	assert.Equal(t, "4000", q.WithCredit(decimal.NewFromInt(2500)).Due.String())
	assert.True(t, q.WithCredit(decimal.NewFromInt(9000)).Due.IsZero())
}

func TestPlanCatalog(t *testing.T) {
	c := NewPlanCatalog([]Plan{{Code: "solo", Name: "Solo"}})
	_, err := c.Get(PlanStarter)
	assert.ErrorIs(t, err, ErrPlanNotFound)
	assert.Len(t, c.List(), 1)
	assert.Len(t, NewPlanCatalog(nil).List(), 3)
}

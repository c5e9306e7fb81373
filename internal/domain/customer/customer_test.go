package customer

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCustomer(t *testing.T) *Customer {
	t.Helper()
	c, err := NewCustomer(uuid.New(), Details{Name: "Kamala", Phone: "071 555 1234"})
	require.NoError(t, err)
	return c
}

func TestNewCustomer(t *testing.T) {
	c := newCustomer(t)
	assert.Equal(t, "+94715551234", c.Phone)
	assert.True(t, c.IsActive)

	_, err := NewCustomer(uuid.New(), Details{Name: "No Phone"})
	assert.Error(t, err)
	_, err = NewCustomer(uuid.New(), Details{Name: "Bad Mail", Phone: "0715551234", Email: "x@"})
	assert.Error(t, err)
}

func TestCustomer_RecordPurchase(t *testing.T) {
	c := newCustomer(t)

	earned := c.RecordPurchase(decimal.RequireFromString("1999.99"), decimal.NewFromInt(100))
	assert.Equal(t, int64(19), earned)
	assert.Equal(t, 1, c.VisitCount)

	earned = c.RecordPurchase(decimal.NewFromInt(500), decimal.Zero)
	assert.Zero(t, earned)
	assert.Equal(t, int64(19), c.LoyaltyPoints)
	assert.Equal(t, "2499.99", c.TotalSpent.String())

	c.ReversePurchase(decimal.RequireFromString("1999.99"), decimal.NewFromInt(100))
	assert.Zero(t, c.LoyaltyPoints)
	assert.Equal(t, 1, c.VisitCount)
}

func TestCustomer_AdjustCredit(t *testing.T) {
	c := newCustomer(t)
	limit := decimal.NewFromInt(5000)

	require.NoError(t, c.AdjustCredit(decimal.NewFromInt(-4000), limit))
	assert.ErrorIs(t, c.AdjustCredit(decimal.NewFromInt(-1001), limit), ErrCreditLimitExceeded)
	require.NoError(t, c.AdjustCredit(decimal.NewFromInt(-1000), limit))
	assert.Equal(t, "-5000", c.CreditBalance.String())

	// repayments are always accepted
	require.NoError(t, c.AdjustCredit(decimal.NewFromInt(2000), limit))
	assert.Error(t, c.AdjustCredit(decimal.Zero, limit))
}

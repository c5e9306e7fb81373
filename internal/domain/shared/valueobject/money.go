package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	LKR Currency = "LKR" // Sri Lankan Rupee (default)
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	AUD Currency = "AUD"
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = LKR

// IsSupported reports whether the payment gateways accept this currency
func (c Currency) IsSupported() bool {
	switch c {
	case LKR, USD, EUR, GBP, AUD:
		return true
	default:
		return false
	}
}

// ErrCurrencyMismatch is returned when combining different currencies
var ErrCurrencyMismatch = errors.New("money: currency mismatch")

// Money is an immutable monetary amount. All operations return new values.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("money: currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// LKRAmount creates Money in the default currency
func LKRAmount(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: LKR}
}

// ParseMoney creates Money from a decimal string
func ParseMoney(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("money: invalid amount %q: %w", amount, err)
	}
	return NewMoney(d, currency)
}

// Zero returns a zero amount in the given currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the currency code
func (m Money) Currency() Currency { return m.currency }

// IsZero reports whether the amount is zero
func (m Money) IsZero() bool { return m.amount.IsZero() }

// IsNegative reports whether the amount is below zero
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// Add returns m + other
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Sub returns m - other
func (m Money) Sub(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Mul multiplies the amount by factor
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.currency}
}

// Round rounds half away from zero to 2 decimal places
func (m Money) Round() Money {
	return Money{amount: m.amount.Round(2), currency: m.currency}
}

// GatewayString formats the amount the way payment gateways hash it: two
// fixed decimals, no grouping.
func (m Money) GatewayString() string {
	return m.amount.StringFixed(2)
}

// Cents returns the amount in minor units
func (m Money) Cents() int64 {
	return m.amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Equals compares amount and currency
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// String returns e.g. "LKR 1250.00"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.currency, m.amount.StringFixed(2))
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount.StringFixed(2),
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := ParseMoney(v.Amount, v.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Prorate returns the share of m covering remaining out of total units
// (days, usually), rounded to 2 places. Out-of-range inputs clamp to [0, m].
func (m Money) Prorate(remaining, total int) Money {
	if total <= 0 || remaining <= 0 {
		return Zero(m.currency)
	}
	if remaining >= total {
		return m
	}
	share := m.amount.Mul(decimal.NewFromInt(int64(remaining))).Div(decimal.NewFromInt(int64(total)))
	return Money{amount: share.Round(2), currency: m.currency}
}

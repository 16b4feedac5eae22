package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money is an amount in the shop currency, kept at two decimal places.
type Money struct {
	decimal.Decimal
}

// NewMoneyFromDecimal rounds amount to two places.
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(2)}
}

// NewMoney builds a Money from a whole number of currency units.
func NewMoney(units int64) Money {
	return Money{Decimal: decimal.NewFromInt(units)}
}

// ParseMoney parses a decimal string such as "1500.00".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return NewMoneyFromDecimal(d), nil
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return NewMoneyFromDecimal(m.Decimal.Add(o.Decimal))
}

// Times returns m multiplied by a quantity.
func (m Money) Times(qty int) Money {
	return NewMoneyFromDecimal(m.Decimal.Mul(decimal.NewFromInt(int64(qty))))
}

// MarshalJSON writes the amount as a two-place string, matching the API.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Decimal.Round(2).StringFixed(2))
}

// UnmarshalJSON accepts either a decimal string or a JSON number.
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			m.Decimal = decimal.Zero
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		m.Decimal = d.Round(2)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	m.Decimal = decimal.NewFromFloat(f).Round(2)
	return nil
}

// String returns the amount with exactly two decimal places.
func (m Money) String() string {
	return m.Decimal.Round(2).StringFixed(2)
}

package model

import (
	"github.com/shopspring/decimal"
)

// Money is an amount that travels as a JSON number, both to and from the
// storefront API and in stored cart snapshots. Quoted strings are accepted
// on input.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	return m.Decimal.UnmarshalJSON(data)
}

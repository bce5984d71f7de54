package core

import (
	"github.com/shopspring/decimal"
)

// Rate is a ratio that may be undefined. A rate computed over zero clicks is
// undefined, never zero, and must not be compared against or used as a bid basis.
type Rate struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
}

// UndefinedRate is the rate of an empty denominator.
var UndefinedRate = Rate{}

// NewRate divides numerator by denominator using decimal arithmetic.
// A zero denominator yields UndefinedRate.
func NewRate(numerator, denominator float64) Rate {
	if denominator == 0 {
		return UndefinedRate
	}
	value, _ := decimal.NewFromFloat(numerator).Div(decimal.NewFromFloat(denominator)).Float64()
	return Rate{Value: value, Defined: true}
}

// Get returns the value and whether it is defined.
func (r Rate) Get() (float64, bool) {
	return r.Value, r.Defined
}

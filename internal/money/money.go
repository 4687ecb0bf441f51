// Package money holds the decimal helpers shared by the tax, pillar and
// forecast computations. All amounts are euros with two decimal places and
// every intermediate step rounds half-up (away from zero).
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places kept on monetary values.
const Places = 2

var (
	Zero    = decimal.Zero
	Hundred = decimal.NewFromInt(100)
)

// Round rounds d half-up to two decimal places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Div divides and rounds. A zero divisor yields zero.
func Div(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return Zero
	}
	return Round(a.Div(b))
}

// Percent returns part/whole*100 rounded to two places, or fallback when
// whole is zero.
func Percent(part, whole, fallback decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return fallback
	}
	return Round(part.Div(whole).Mul(Hundred))
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return Zero
	}
	return d
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Parse reads a plain decimal string ("1234.56") into a rounded amount.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Round(d), nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Euro formats an amount the way user-facing messages show it: "1234.50€".
func Euro(d decimal.Decimal) string {
	return Round(d).StringFixed(Places) + "€"
}

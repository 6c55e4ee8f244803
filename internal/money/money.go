package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the currency precision every monetary amount is rounded to.
const Places int32 = 2

// RoundingMode selects how a computed amount is brought to currency precision.
type RoundingMode string

const (
	// RoundHalfEven is banker's rounding: ties go to the even neighbour.
	RoundHalfEven RoundingMode = "half_even"
	// RoundHalfUp rounds ties away from zero.
	RoundHalfUp RoundingMode = "half_up"
)

var hundred = decimal.NewFromInt(100)

// ParseRoundingMode maps a configuration value to a RoundingMode. An empty value means half-even.
func ParseRoundingMode(s string) (RoundingMode, error) {
	switch RoundingMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoundHalfEven:
		return RoundHalfEven, nil
	case RoundHalfUp:
		return RoundHalfUp, nil
	default:
		return "", fmt.Errorf("unknown rounding mode %q", s)
	}
}

// Rounder rounds amounts to currency precision using a fixed mode.
type Rounder struct {
	Mode RoundingMode
}

// NewRounder returns a Rounder for mode, defaulting to half-even.
func NewRounder(mode RoundingMode) Rounder {
	if mode == "" {
		mode = RoundHalfEven
	}
	return Rounder{Mode: mode}
}

// Round brings d to Places decimal places.
func (r Rounder) Round(d decimal.Decimal) decimal.Decimal {
	if r.Mode == RoundHalfUp {
		return d.Round(Places)
	}
	return d.RoundBank(Places)
}

// Percent returns amount × rate / 100, rounded.
func (r Rounder) Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return r.Round(amount.Mul(rate).Div(hundred))
}

// IncludedPercent extracts the share of amount that a rate-percent tax already embedded in it
// represents: amount × rate / (100 + rate), rounded.
func (r Rounder) IncludedPercent(amount, rate decimal.Decimal) decimal.Decimal {
	return r.Round(amount.Mul(rate).Div(hundred.Add(rate)))
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Sum adds amounts without rounding; callers sum values that are already rounded.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

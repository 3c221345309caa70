/*
Package money provides minor-currency-unit arithmetic for the booking engine.

PURPOSE:
  Every price, payment, and refund in the system is an integer number of
  minor currency units (pence). Percentage math routes through
  decimal.Decimal so no floating-point value ever touches a price.

KEY CONCEPTS:
  - Amount: int64 minor units (e.g., 6000 = £60.00)
  - Percent: a decimal percentage (25 = 25%), allows fractional rates
  - PercentOf: round-half-up percentage of an amount

DESIGN PRINCIPLES:
  1. Integers at rest: amounts are stored and compared as int64
  2. Decimals in flight: multiplication/division happens in decimal space
  3. Rounding in exactly one place: PercentOf

SEE ALSO:
  - refund: refund amounts from tiered percentages
  - discount: per-item discount amounts
*/
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a quantity of money in minor currency units (pence).
type Amount int64

// Percent is a percentage expressed as a decimal (25 means 25%).
// Decimal so staff-configured rates like 12.5% stay exact.
type Percent = decimal.Decimal

// NewPercent builds a Percent from an integer rate.
func NewPercent(v int64) Percent { return decimal.NewFromInt(v) }

// MustParsePercent parses a decimal percentage string, returning zero on error.
func MustParsePercent(s string) Percent {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var hundred = decimal.NewFromInt(100)

// PercentOf returns p% of a, rounded half away from zero to a whole
// minor unit. PercentOf(6000, 25) == 1500.
func PercentOf(a Amount, p Percent) Amount {
	d := decimal.NewFromInt(int64(a)).Mul(p).Div(hundred)
	return Amount(d.Round(0).IntPart())
}

func (a Amount) IsNegative() bool { return a < 0 }
func (a Amount) IsZero() bool     { return a == 0 }
func (a Amount) IsPositive() bool { return a > 0 }

// Abs returns the magnitude of a.
func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

func (a Amount) Min(b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

func (a Amount) Max(b Amount) Amount {
	if a > b {
		return a
	}
	return b
}

// String renders the amount in major units for explanations and logs.
// Currency symbols are the presentation layer's concern.
func (a Amount) String() string {
	neg := ""
	v := a
	if v < 0 {
		neg = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", neg, v/100, v%100)
}

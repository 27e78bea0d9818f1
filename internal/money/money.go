// Package money implements currency-safe arithmetic on decimal amounts.
//
// Amounts are denominated in a currency with two minor units (cents). All
// arithmetic is exact; rounding happens only at the minor-unit boundary.
package money

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MinorUnits is the number of decimal places kept for every amount.
const MinorUnits = 2

var (
	// Tolerance is the largest difference (exclusive) at which two amounts
	// are still considered equal: one minor unit.
	Tolerance = decimal.New(1, -MinorUnits)

	hundred = decimal.NewFromInt(100)
)

var (
	// ErrInvalidParticipantCount is returned when an amount is divided among
	// zero or a negative number of shares.
	ErrInvalidParticipantCount = errors.New("invalid participant count")
	// ErrNegativeAmount is returned when a negative amount is split.
	ErrNegativeAmount = errors.New("negative amount")
	// ErrNotFinite is returned for NaN or infinite float inputs.
	ErrNotFinite = errors.New("amount is not finite")
)

// EqualSplit divides total into n shares rounded to the minor unit. Residual
// cents go one each to the first shares, so the shares always sum to the
// rounded total exactly.
func EqualSplit(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n <= 0 {
		return nil, fmt.Errorf("splitting among %d: %w", n, ErrInvalidParticipantCount)
	}
	if total.IsNegative() {
		return nil, fmt.Errorf("splitting %s: %w", total.StringFixed(MinorUnits), ErrNegativeAmount)
	}

	// Cents stay in decimal so totals beyond the int64 range split exactly.
	cents := Round(total).Shift(MinorUnits)
	base, rem := cents.QuoRem(decimal.NewFromInt(int64(n)), 0)
	extra := rem.IntPart()

	shares := make([]decimal.Decimal, n)
	for i := range shares {
		c := base
		if int64(i) < extra {
			c = c.Add(decimal.NewFromInt(1))
		}
		shares[i] = c.Shift(-MinorUnits)
	}
	return shares, nil
}

// WithinTolerance reports whether |a - b| is strictly less than one cent.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Tolerance)
}

// Round rounds d to the minor unit, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MinorUnits)
}

// Sum adds amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// HasMinorPrecision reports whether d has no more than two decimal places.
func HasMinorPrecision(d decimal.Decimal) bool {
	return d.Mul(hundred).Equal(d.Mul(hundred).Floor())
}

// FromFloat converts a float amount, rejecting NaN and infinities.
func FromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("converting %v: %w", f, ErrNotFinite)
	}
	return decimal.NewFromFloat(f), nil
}

// Package consistency checks amounts reported by other subsystems against
// the authoritative price of a bill.
package consistency

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/pricesplit/internal/model"
	"github.com/cleared-dev/pricesplit/internal/money"
	"github.com/cleared-dev/pricesplit/internal/report"
)

// PriceSource looks up authoritative prices.
type PriceSource interface {
	Get(billID string) (model.PriceRecord, bool)
}

// Result is the outcome of a Check.
type Result struct {
	IsValid        bool
	ExpectedAmount decimal.Decimal
	// Difference is reported minus expected.
	Difference decimal.Decimal
	Message    string
}

// Validator compares reported amounts with a PriceSource.
type Validator struct {
	prices   PriceSource
	reporter report.Reporter
}

// Option configures a Validator.
type Option func(*Validator)

// WithReporter sets where failed checks are reported.
func WithReporter(r report.Reporter) Option {
	return func(v *Validator) { v.reporter = r }
}

// New creates a Validator reading from prices.
func New(prices PriceSource, opts ...Option) *Validator {
	v := &Validator{prices: prices, reporter: report.Discard}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Check compares reported with the authoritative price of billID. source
// names the subsystem that produced reported; it is carried into the
// failure event.
func (v *Validator) Check(billID string, reported decimal.Decimal, source string) Result {
	rec, ok := v.prices.Get(billID)
	if !ok {
		res := Result{
			ExpectedAmount: decimal.Zero,
			Difference:     reported,
			Message:        fmt.Sprintf("no authoritative price for bill %s", billID),
		}
		v.fail(billID, reported, res, source)
		return res
	}

	diff := reported.Sub(rec.Amount)
	if money.WithinTolerance(rec.Amount, reported) {
		return Result{
			IsValid:        true,
			ExpectedAmount: rec.Amount,
			Difference:     diff,
			Message:        "amount matches",
		}
	}

	res := Result{
		ExpectedAmount: rec.Amount,
		Difference:     diff,
		Message: fmt.Sprintf("reported %s %s differs from expected %s by %s",
			reported.StringFixed(money.MinorUnits), rec.Currency,
			rec.Amount.StringFixed(money.MinorUnits), diff.StringFixed(money.MinorUnits)),
	}
	v.fail(billID, reported, res, source)
	return res
}

func (v *Validator) fail(billID string, reported decimal.Decimal, res Result, source string) {
	v.reporter.Report(slog.LevelWarn, "amount mismatch", map[string]any{
		"bill_id":    billID,
		"expected":   res.ExpectedAmount.String(),
		"reported":   reported.String(),
		"difference": res.Difference.String(),
		"source":     source,
	})
}

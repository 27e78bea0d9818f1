package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Source records where an authoritative price came from.
type Source string

const (
	SourceUserInput        Source = "user_input"
	SourceBillAnalysis     Source = "bill_analysis"
	SourceSplitCalculation Source = "split_calculation"
	SourceExternalFeed     Source = "external_feed"
)

// ParseSource converts a string to a Source.
func ParseSource(s string) (Source, error) {
	switch src := Source(s); src {
	case SourceUserInput, SourceBillAnalysis, SourceSplitCalculation, SourceExternalFeed:
		return src, nil
	}
	return "", fmt.Errorf("unknown price source %q", s)
}

// PriceRecord is the authoritative amount of one bill.
type PriceRecord struct {
	Amount    decimal.Decimal
	Currency  string
	Timestamp time.Time
	Source    Source
}

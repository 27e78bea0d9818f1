package ledger

import (
	"fmt"
	"strings"
)

// ValidationError describes one problem with a bill.
type ValidationError struct {
	Field       string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

// ValidationResult lists every violation found, not just the first.
type ValidationResult struct {
	IsValid bool
	Errors  []ValidationError
}

// Error joins the violations, or returns "" when valid.
func (r ValidationResult) Error() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the bill is ready to be split.
func (l *Ledger) Validate() ValidationResult {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var errs []ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Description: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(l.title) == "" {
		add("title", "must not be empty")
	}
	if strings.TrimSpace(l.merchant) == "" {
		add("merchant", "must not be empty")
	}

	rec, ok := l.prices.Get(l.billID)
	switch {
	case !ok:
		add("amount", "no authoritative price for bill %s", l.billID)
	case !rec.Amount.IsPositive():
		add("amount", "must be greater than zero, got %s", rec.Amount.StringFixed(2))
	}

	if len(l.items) == 0 {
		add("items", "at least one item is required")
	}
	if len(l.participants) == 0 {
		add("participants", "at least one participant is required")
	}

	for i, it := range l.items {
		if strings.TrimSpace(it.Name) == "" {
			add(fmt.Sprintf("items[%d].name", i), "must not be empty")
		}
		if it.UnitPrice.IsNegative() {
			add(fmt.Sprintf("items[%d].price", i), "must not be negative, got %s", it.UnitPrice.StringFixed(2))
		}
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

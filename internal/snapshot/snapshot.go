// Package snapshot parses bill snapshots produced by the analysis (OCR)
// collaborator or typed in by a user.
package snapshot

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/pricesplit/internal/money"
)

// Item is one line of a snapshot. Price is the unit price.
type Item struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity,omitempty"`
}

// LineTotal returns Price × Quantity, counting a missing quantity as one.
func (it Item) LineTotal() decimal.Decimal {
	q := it.Quantity
	if q < 1 {
		q = 1
	}
	return it.Price.Mul(decimal.NewFromInt(int64(q)))
}

// Bill is a snapshot of one purchase.
type Bill struct {
	Merchant string          `json:"merchant"`
	Location string          `json:"location,omitempty"`
	Date     string          `json:"date,omitempty"`
	Time     string          `json:"time,omitempty"`
	Currency string          `json:"currency"`
	Category string          `json:"category,omitempty"`
	Items    []Item          `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ItemsTotal sums the line totals.
func (b Bill) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range b.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// TotalsMatch reports whether the items add up to the total. A receipt off
// by exactly one cent still matches.
func (b Bill) TotalsMatch() bool {
	return !b.ItemsTotal().Sub(b.Total).Abs().GreaterThan(money.Tolerance)
}

// ApplyDefaults fills in the currency when the snapshot has none.
func (b *Bill) ApplyDefaults(currency string) {
	if b.Currency == "" {
		b.Currency = strings.ToUpper(currency)
	}
}

// Title returns a display title such as "Cafe Luna 2025-01-15".
func (b Bill) Title() string {
	parts := make([]string, 0, 2)
	if b.Merchant != "" {
		parts = append(parts, b.Merchant)
	}
	if b.Date != "" {
		parts = append(parts, b.Date)
	}
	return strings.Join(parts, " ")
}

var categories = []string{
	"Food & Drinks",
	"Events & Entertainment",
	"Travel & Transport",
	"Housing & Utilities",
	"Shopping & Essentials",
	"On-Chain Life",
}

// Categories returns the expense categories a snapshot may carry.
func Categories() []string {
	return slices.Clone(categories)
}

// ValidCategory reports whether c is empty or a known category.
func ValidCategory(c string) bool {
	return c == "" || slices.Contains(categories, c)
}

// Parser converts one snapshot encoding into a Bill.
type Parser interface {
	Parse(r io.Reader) (Bill, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate snapshot format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Formats returns the registered formats in sorted order.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Parse decodes r with the parser registered for format.
func (r *Registry) Parse(format string, in io.Reader) (Bill, error) {
	p := r.Get(format)
	if p == nil {
		return Bill{}, fmt.Errorf("unknown snapshot format %q (known: %s)", format, strings.Join(r.Formats(), ", "))
	}
	return p.Parse(in)
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&BillParser{})
	r.Register(&ReceiptParser{})
	return r
}

// Package pricecache holds the authoritative price of every bill.
//
// A Cache maps bill identifiers to price records. Callers that mint their own
// identifiers for the same bill are reconciled by a Resolver chain (exact,
// substring, timestamp token). A fuzzy hit returns the resolved record at once
// and queues an alias write; queued aliases are applied at the next mutation
// or on Flush, never during a read.
package pricecache

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/pricesplit/internal/id"
	"github.com/cleared-dev/pricesplit/internal/model"
	"github.com/cleared-dev/pricesplit/internal/money"
	"github.com/cleared-dev/pricesplit/internal/report"
)

// Cache is the authoritative bill-id → price mapping. It is safe for
// concurrent use.
type Cache struct {
	mu      sync.RWMutex
	records map[string]model.PriceRecord

	pendingMu sync.Mutex
	pending   map[string]string // alias -> resolved key

	resolver Resolver
	reporter report.Reporter
	now      func() time.Time
}

type options struct {
	resolver       Resolver
	reporter       report.Reporter
	now            func() time.Time
	prefixes       []string
	minMatchLength int
}

// Option configures a Cache.
type Option func(*options)

// WithResolver replaces the default resolver chain.
func WithResolver(r Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithReporter sets the observability channel.
func WithReporter(r report.Reporter) Option {
	return func(o *options) { o.reporter = r }
}

// WithClock sets the time source for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithPrefixes sets the bill-id prefixes recognized by the token resolver.
func WithPrefixes(prefixes ...string) Option {
	return func(o *options) { o.prefixes = prefixes }
}

// WithMinMatchLength sets the minimum overlap for substring matches.
func WithMinMatchLength(n int) Option {
	return func(o *options) { o.minMatchLength = n }
}

// New creates an empty Cache.
func New(opts ...Option) *Cache {
	o := options{
		reporter: report.Discard,
		now:      time.Now,
		prefixes: id.DefaultPrefixes,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.resolver == nil {
		o.resolver = DefaultResolver(o.prefixes, o.minMatchLength)
	}
	return &Cache{
		records:  make(map[string]model.PriceRecord),
		pending:  make(map[string]string),
		resolver: o.resolver,
		reporter: o.reporter,
		now:      o.now,
	}
}

// Set records the price of billID, overwriting any existing record. Invalid
// input (empty id, negative amount, empty currency) is dropped and reported.
func (c *Cache) Set(billID string, amount decimal.Decimal, currency string, source model.Source) {
	if reason := validate(billID, amount, currency); reason != "" {
		c.reject(billID, amount.String(), currency, reason)
		return
	}
	c.write(billID, amount, currency, source)
}

// SetFloat is Set for callers holding float amounts. NaN and infinities are
// rejected like any other invalid input.
func (c *Cache) SetFloat(billID string, amount float64, currency string, source model.Source) {
	d, err := money.FromFloat(amount)
	if err != nil {
		c.reject(billID, err.Error(), currency, "amount is not finite")
		return
	}
	c.Set(billID, d, currency, source)
}

// ForceSet overwrites the record for billID without validating the input.
// Callers are responsible for its validity.
func (c *Cache) ForceSet(billID string, amount decimal.Decimal, currency string) {
	c.write(billID, amount, currency, model.SourceUserInput)
}

// UpdateFromFeed records an amount supplied by an external feed. The amount
// is already converted; it is validated like Set.
func (c *Cache) UpdateFromFeed(billID string, amount decimal.Decimal, currency string, source model.Source) {
	c.Set(billID, amount, currency, source)
}

// Get returns the record for billID, resolving aliases through the resolver
// chain. Absence is a normal outcome.
func (c *Cache) Get(billID string) (model.PriceRecord, bool) {
	if billID == "" {
		return model.PriceRecord{}, false
	}

	c.mu.RLock()
	if rec, ok := c.records[billID]; ok {
		c.mu.RUnlock()
		return rec, true
	}
	key, kind, ok := c.resolver.Resolve(billID, c.sortedKeysLocked())
	var rec model.PriceRecord
	if ok {
		rec, ok = c.records[key]
	}
	c.mu.RUnlock()

	if !ok {
		return model.PriceRecord{}, false
	}
	if kind != MatchExact {
		c.queueAlias(billID, key)
		c.reporter.Report(slog.LevelInfo, "fuzzy resolution", map[string]any{
			"requested": billID,
			"resolved":  key,
			"match":     string(kind),
		})
	}
	return rec, true
}

// Flush applies queued alias writes and returns how many were applied.
func (c *Cache) Flush() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyPendingLocked()
}

// Clear drops every record and queued alias.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	c.records = make(map[string]model.PriceRecord)
	c.pending = make(map[string]string)
}

// Len returns the number of stored identifiers, aliases included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// IDs returns the stored identifiers in sorted order.
func (c *Cache) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedKeysLocked()
}

// Pending returns the number of queued alias writes.
func (c *Cache) Pending() int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return len(c.pending)
}

func (c *Cache) write(billID string, amount decimal.Decimal, currency string, source model.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyPendingLocked()
	if prev, ok := c.records[billID]; ok && prev.Amount.Equal(amount) && prev.Currency == currency && prev.Source == source {
		return
	}
	c.records[billID] = model.PriceRecord{
		Amount:    amount,
		Currency:  currency,
		Timestamp: c.now(),
		Source:    source,
	}
}

// applyPendingLocked copies each resolved record to its alias. c.mu must be
// held for writing.
func (c *Cache) applyPendingLocked() int {
	c.pendingMu.Lock()
	pending := c.pending
	c.pending = make(map[string]string)
	c.pendingMu.Unlock()

	applied := 0
	for alias, key := range pending {
		rec, ok := c.records[key]
		if !ok {
			continue
		}
		c.records[alias] = rec
		applied++
	}
	return applied
}

func (c *Cache) queueAlias(alias, key string) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	c.pending[alias] = key
}

func (c *Cache) sortedKeysLocked() []string {
	keys := make([]string, 0, len(c.records))
	for k := range c.records {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (c *Cache) reject(billID, amount, currency, reason string) {
	c.reporter.Report(slog.LevelWarn, "rejected price", map[string]any{
		"bill_id":  billID,
		"amount":   amount,
		"currency": currency,
		"reason":   reason,
	})
}

func validate(billID string, amount decimal.Decimal, currency string) string {
	switch {
	case billID == "":
		return "empty bill id"
	case amount.IsNegative():
		return "negative amount"
	case currency == "":
		return "empty currency"
	}
	return ""
}

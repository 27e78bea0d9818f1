// Package ledger owns the participants and items of one bill and keeps their
// amounts owed consistent with the active split strategy.
package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/pricesplit/internal/allocator"
	"github.com/cleared-dev/pricesplit/internal/id"
	"github.com/cleared-dev/pricesplit/internal/model"
	"github.com/cleared-dev/pricesplit/internal/money"
	"github.com/cleared-dev/pricesplit/internal/report"
)

var (
	// ErrParticipantNotFound is returned for an unknown participant ID.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrItemNotFound is returned for an unknown item ID.
	ErrItemNotFound = errors.New("item not found")
	// ErrNotManual is returned when amounts are set by hand outside the
	// manual strategy.
	ErrNotManual = errors.New("strategy is not manual")
)

// PriceSource looks up the authoritative price of a bill.
type PriceSource interface {
	Get(billID string) (model.PriceRecord, bool)
}

// ParticipantInfo describes a participant to add.
type ParticipantInfo struct {
	DisplayName string
	WalletRef   string
}

// ItemInfo describes an item to add.
type ItemInfo struct {
	Name                   string
	UnitPrice              decimal.Decimal
	Quantity               int
	AssignedParticipantIDs []string
}

// Ledger holds one bill's split state. Every mutation recomputes all
// amounts and swaps them in at once; readers only ever see a complete set.
type Ledger struct {
	mu sync.RWMutex

	billID   string
	prices   PriceSource
	alloc    *allocator.Allocator
	reporter report.Reporter
	newID    func() string
	itemID   func() string

	title    string
	merchant string
	category string

	items        []model.Item
	participants []model.Participant
	strategy     model.Strategy
	allocated    bool
}

type options struct {
	title, merchant, category string
	items                     []ItemInfo
	reporter                  report.Reporter
	newID                     func() string
	newItemID                 func() string
}

// Option configures a Ledger.
type Option func(*options)

// WithTitle sets the bill title.
func WithTitle(title string) Option { return func(o *options) { o.title = title } }

// WithMerchant sets the merchant name.
func WithMerchant(merchant string) Option { return func(o *options) { o.merchant = merchant } }

// WithCategory sets the expense category.
func WithCategory(category string) Option { return func(o *options) { o.category = category } }

// WithItems sets the initial item list.
func WithItems(items ...ItemInfo) Option {
	return func(o *options) { o.items = append(o.items, items...) }
}

// WithReporter sets the observability channel for the ledger and its
// allocator.
func WithReporter(r report.Reporter) Option {
	return func(o *options) { o.reporter = r }
}

// WithIDGenerator replaces the UUID generator used for new participants and
// items.
func WithIDGenerator(f func() string) Option {
	return func(o *options) {
		o.newID = f
		o.newItemID = f
	}
}

// WithItemIDGenerator replaces the generator used for new items only.
func WithItemIDGenerator(f func() string) Option {
	return func(o *options) { o.newItemID = f }
}

// New creates a ledger for billID with strategy equal.
func New(billID string, prices PriceSource, opts ...Option) *Ledger {
	o := options{reporter: report.Discard, newID: id.NewParticipantID, newItemID: id.NewItemID}
	for _, opt := range opts {
		opt(&o)
	}

	l := &Ledger{
		billID:   billID,
		prices:   prices,
		alloc:    allocator.New(o.reporter),
		reporter: o.reporter,
		newID:    o.newID,
		itemID:   o.newItemID,
		title:    o.title,
		merchant: o.merchant,
		category: o.category,
		strategy: model.StrategyEqual,
	}
	for _, info := range o.items {
		l.items = append(l.items, l.newItem(info))
	}
	// No participants yet, so there is nothing to allocate.
	_, l.allocated = prices.Get(billID)
	return l
}

// AddParticipant appends a pending participant and recomputes. It returns
// the new participant's ID.
func (l *Ledger) AddParticipant(info ParticipantInfo) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := model.Participant{
		ID:          l.newID(),
		DisplayName: info.DisplayName,
		WalletRef:   info.WalletRef,
		Status:      model.StatusPending,
		AmountOwed:  decimal.Zero,
	}
	participants := append(cloneParticipants(l.participants), p)
	if err := l.commit(participants, l.items, l.strategy); err != nil {
		return "", err
	}
	return p.ID, nil
}

// RemoveParticipant removes a participant and drops them from every item's
// assignments, so items they alone were assigned fall back to being shared.
func (l *Ledger) RemoveParticipant(participantID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.participantIndex(participantID)
	if i < 0 {
		return fmt.Errorf("removing %s: %w", participantID, ErrParticipantNotFound)
	}
	participants := cloneParticipants(l.participants)
	participants = slices.Delete(participants, i, i+1)

	items := cloneItems(l.items)
	for j := range items {
		items[j].AssignedParticipantIDs = slices.DeleteFunc(items[j].AssignedParticipantIDs, func(s string) bool {
			return s == participantID
		})
	}
	return l.commit(participants, items, l.strategy)
}

// ToggleItemAssignment assigns the participant to the item, or unassigns if
// already assigned. Amounts change only under by_items, but the assignment
// is always recorded.
func (l *Ledger) ToggleItemAssignment(itemID, participantID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	j := l.itemIndex(itemID)
	if j < 0 {
		return fmt.Errorf("toggling %s: %w", itemID, ErrItemNotFound)
	}
	if l.participantIndex(participantID) < 0 {
		return fmt.Errorf("toggling %s: %w", participantID, ErrParticipantNotFound)
	}

	items := cloneItems(l.items)
	it := &items[j]
	if it.IsAssigned(participantID) {
		it.AssignedParticipantIDs = slices.DeleteFunc(it.AssignedParticipantIDs, func(s string) bool {
			return s == participantID
		})
	} else {
		it.AssignedParticipantIDs = append(it.AssignedParticipantIDs, participantID)
	}

	if l.strategy != model.StrategyByItems {
		l.items = items
		return nil
	}
	return l.commit(l.participants, items, l.strategy)
}

// SetStrategy switches strategy and recomputes every amount from scratch.
// Switching to manual keeps the current amounts as the starting point.
func (l *Ledger) SetStrategy(s model.Strategy) error {
	if _, err := model.ParseStrategy(string(s)); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commit(l.participants, l.items, s)
}

// SetManualAmount sets what a participant owes under the manual strategy.
// Manual amounts are not required to add up to the bill total.
func (l *Ledger) SetManualAmount(participantID string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("setting %s: %w", amount.StringFixed(money.MinorUnits), money.ErrNegativeAmount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.strategy != model.StrategyManual {
		return fmt.Errorf("setting amount for %s: %w", participantID, ErrNotManual)
	}
	i := l.participantIndex(participantID)
	if i < 0 {
		return fmt.Errorf("setting amount for %s: %w", participantID, ErrParticipantNotFound)
	}
	participants := cloneParticipants(l.participants)
	participants[i].AmountOwed = amount
	return l.commit(participants, l.items, l.strategy)
}

// SetParticipantStatus records a participant's response to the invitation.
func (l *Ledger) SetParticipantStatus(participantID string, status model.ParticipantStatus) error {
	if _, err := model.ParseParticipantStatus(string(status)); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.participantIndex(participantID)
	if i < 0 {
		return fmt.Errorf("updating %s: %w", participantID, ErrParticipantNotFound)
	}
	participants := cloneParticipants(l.participants)
	participants[i].Status = status
	l.participants = participants
	return nil
}

// AddItem appends an item and recomputes. It returns the new item's ID.
func (l *Ledger) AddItem(info ItemInfo) (string, error) {
	if info.UnitPrice.IsNegative() {
		return "", fmt.Errorf("adding item %q: %w", info.Name, money.ErrNegativeAmount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	it := l.newItem(info)
	items := append(cloneItems(l.items), it)
	if err := l.commit(l.participants, items, l.strategy); err != nil {
		return "", err
	}
	return it.ID, nil
}

// RemoveItem removes an item and recomputes.
func (l *Ledger) RemoveItem(itemID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	j := l.itemIndex(itemID)
	if j < 0 {
		return fmt.Errorf("removing %s: %w", itemID, ErrItemNotFound)
	}
	items := slices.Delete(cloneItems(l.items), j, j+1)
	return l.commit(l.participants, items, l.strategy)
}

// BillID returns the identifier the ledger reads its price under.
func (l *Ledger) BillID() string { return l.billID }

// Title returns the bill title.
func (l *Ledger) Title() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.title
}

// Merchant returns the merchant name.
func (l *Ledger) Merchant() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.merchant
}

// Category returns the expense category.
func (l *Ledger) Category() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.category
}

// Strategy returns the active strategy.
func (l *Ledger) Strategy() model.Strategy {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.strategy
}

// Allocated reports whether the amounts owed reflect the current state. It
// is false while no authoritative price exists for the bill.
func (l *Ledger) Allocated() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allocated
}

// Participants returns a copy of the participants in order.
func (l *Ledger) Participants() []model.Participant {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneParticipants(l.participants)
}

// Participant returns one participant by ID.
func (l *Ledger) Participant(participantID string) (model.Participant, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := l.participantIndex(participantID)
	if i < 0 {
		return model.Participant{}, false
	}
	return l.participants[i], true
}

// Items returns a copy of the items in order.
func (l *Ledger) Items() []model.Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneItems(l.items)
}

// Summary compares the allocated amounts with the authoritative total.
type Summary struct {
	Strategy  model.Strategy
	Currency  string
	Priced    bool
	Total     decimal.Decimal
	Allocated decimal.Decimal
	// Drift is Allocated - Total.
	Drift decimal.Decimal
}

// Summary returns the current totals.
func (l *Ledger) Summary() Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Summary{Strategy: l.strategy, Allocated: decimal.Zero}
	for _, p := range l.participants {
		s.Allocated = s.Allocated.Add(p.AmountOwed)
	}
	if rec, ok := l.prices.Get(l.billID); ok {
		s.Priced = true
		s.Total = rec.Amount
		s.Currency = rec.Currency
	}
	s.Drift = s.Allocated.Sub(s.Total)
	return s
}

// commit recomputes amounts for the candidate state and installs it. On
// error nothing changes. l.mu must be held for writing.
func (l *Ledger) commit(participants []model.Participant, items []model.Item, strategy model.Strategy) error {
	rec, ok := l.prices.Get(l.billID)
	if !ok {
		l.reporter.Report(slog.LevelWarn, "authoritative price not found", map[string]any{
			"bill_id":  l.billID,
			"strategy": string(strategy),
		})
		l.participants, l.items, l.strategy = participants, items, strategy
		l.allocated = false
		return nil
	}

	owed, err := l.alloc.Compute(rec, participants, items, strategy)
	if err != nil {
		return fmt.Errorf("allocating bill %s: %w", l.billID, err)
	}
	for i := range participants {
		participants[i].AmountOwed = owed[participants[i].ID]
	}
	l.participants, l.items, l.strategy = participants, items, strategy
	l.allocated = true
	return nil
}

func (l *Ledger) newItem(info ItemInfo) model.Item {
	return model.Item{
		ID:                     l.itemID(),
		Name:                   info.Name,
		UnitPrice:              info.UnitPrice,
		Quantity:               info.Quantity,
		AssignedParticipantIDs: slices.Clone(info.AssignedParticipantIDs),
	}
}

func (l *Ledger) participantIndex(participantID string) int {
	return slices.IndexFunc(l.participants, func(p model.Participant) bool { return p.ID == participantID })
}

func (l *Ledger) itemIndex(itemID string) int {
	return slices.IndexFunc(l.items, func(it model.Item) bool { return it.ID == itemID })
}

func cloneParticipants(ps []model.Participant) []model.Participant {
	return slices.Clone(ps)
}

func cloneItems(items []model.Item) []model.Item {
	out := make([]model.Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

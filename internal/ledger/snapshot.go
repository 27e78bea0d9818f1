package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/pricesplit/internal/model"
	"github.com/cleared-dev/pricesplit/internal/snapshot"
)

// ErrPriceNotRecorded is returned when a snapshot's total was rejected by
// the price store.
var ErrPriceNotRecorded = errors.New("price not recorded")

// PriceStore is a PriceSource that can also record prices.
type PriceStore interface {
	PriceSource
	Set(billID string, amount decimal.Decimal, currency string, source model.Source)
}

// FromSnapshot records the snapshot's total as the authoritative price of
// billID and builds a ledger holding its items. Options are applied after
// the snapshot's own title, merchant and category.
func FromSnapshot(billID string, snap snapshot.Bill, store PriceStore, opts ...Option) (*Ledger, error) {
	store.Set(billID, snap.Total, snap.Currency, model.SourceBillAnalysis)
	if billID == "" || snap.Currency == "" || snap.Total.IsNegative() {
		return nil, fmt.Errorf("bill %s total %s %q: %w", billID, snap.Total.String(), snap.Currency, ErrPriceNotRecorded)
	}

	items := make([]ItemInfo, len(snap.Items))
	for i, it := range snap.Items {
		items[i] = ItemInfo{Name: it.Name, UnitPrice: it.Price, Quantity: it.Quantity}
	}

	base := []Option{
		WithTitle(snap.Title()),
		WithMerchant(snap.Merchant),
		WithCategory(snap.Category),
		WithItems(items...),
	}
	return New(billID, store, append(base, opts...)...), nil
}

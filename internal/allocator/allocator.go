// Package allocator divides an authoritative bill total among participants.
package allocator

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/pricesplit/internal/model"
	"github.com/cleared-dev/pricesplit/internal/money"
	"github.com/cleared-dev/pricesplit/internal/report"
)

var (
	// ErrUnknownStrategy is returned for a strategy the allocator cannot run.
	ErrUnknownStrategy = errors.New("unknown split strategy")
	// ErrInvariantViolation signals an allocator bug, such as a negative
	// share. It is never caused by caller input.
	ErrInvariantViolation = errors.New("allocation invariant violated")
)

// Allocation maps participant ID to amount owed.
type Allocation map[string]decimal.Decimal

// Total sums every share.
func (a Allocation) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range a {
		total = total.Add(v)
	}
	return total
}

// Allocator computes allocations. The zero value is not usable; call New.
type Allocator struct {
	reporter report.Reporter
}

// New creates an Allocator. A nil reporter discards events.
func New(reporter report.Reporter) *Allocator {
	if reporter == nil {
		reporter = report.Discard
	}
	return &Allocator{reporter: reporter}
}

// DriftBound is the largest difference between a by-items allocation and the
// bill total that per-item rounding can cause: one cent per item.
func DriftBound(items int) decimal.Decimal {
	return money.Tolerance.Mul(decimal.NewFromInt(int64(items)))
}

// Compute returns what each participant owes under strategy.
//
// Shares follow participant order: when an amount does not divide evenly the
// first participants get the extra cents. Under StrategyManual the existing
// AmountOwed values are returned unchanged. With no participants the result
// is empty.
func (a *Allocator) Compute(record model.PriceRecord, participants []model.Participant, items []model.Item, strategy model.Strategy) (Allocation, error) {
	var (
		out Allocation
		err error
	)
	switch strategy {
	case model.StrategyEqual:
		out, err = a.equal(record, participants)
	case model.StrategyByItems:
		out, err = a.byItems(record, participants, items)
	case model.StrategyManual:
		out = manual(participants)
	default:
		return nil, fmt.Errorf("computing %q: %w", strategy, ErrUnknownStrategy)
	}
	if err != nil {
		return nil, err
	}

	for pid, share := range out {
		if share.IsNegative() && strategy != model.StrategyManual {
			return nil, fmt.Errorf("participant %s share %s: %w", pid, share.StringFixed(money.MinorUnits), ErrInvariantViolation)
		}
	}
	return out, nil
}

func (a *Allocator) equal(record model.PriceRecord, participants []model.Participant) (Allocation, error) {
	out := make(Allocation, len(participants))
	if len(participants) == 0 {
		return out, nil
	}
	shares, err := money.EqualSplit(record.Amount, len(participants))
	if err != nil {
		return nil, fmt.Errorf("equal split: %w", err)
	}
	for i, p := range participants {
		out[p.ID] = shares[i]
	}
	return out, nil
}

func (a *Allocator) byItems(record model.PriceRecord, participants []model.Participant, items []model.Item) (Allocation, error) {
	out := make(Allocation, len(participants))
	if len(participants) == 0 {
		return out, nil
	}
	for _, p := range participants {
		out[p.ID] = decimal.Zero
	}

	for _, it := range items {
		sharers := assignedSharers(it, participants)
		if len(sharers) == 0 {
			sharers = participants
		}
		shares, err := money.EqualSplit(it.Price(), len(sharers))
		if err != nil {
			return nil, fmt.Errorf("splitting item %q: %w", it.Name, err)
		}
		for i, p := range sharers {
			out[p.ID] = out[p.ID].Add(shares[i])
		}
	}

	if drift := out.Total().Sub(record.Amount); !drift.IsZero() {
		a.reporter.Report(slog.LevelDebug, "rounding drift", map[string]any{
			"allocated": out.Total().StringFixed(money.MinorUnits),
			"total":     record.Amount.StringFixed(money.MinorUnits),
			"drift":     drift.StringFixed(money.MinorUnits),
			"items":     len(items),
		})
	}
	return out, nil
}

func manual(participants []model.Participant) Allocation {
	out := make(Allocation, len(participants))
	for _, p := range participants {
		out[p.ID] = p.AmountOwed
	}
	return out
}

// assignedSharers returns the participants assigned to it, in participant
// order. Assignments to IDs that are no longer participants are ignored.
func assignedSharers(it model.Item, participants []model.Participant) []model.Participant {
	if len(it.AssignedParticipantIDs) == 0 {
		return nil
	}
	var sharers []model.Participant
	for _, p := range participants {
		if it.IsAssigned(p.ID) {
			sharers = append(sharers, p)
		}
	}
	return sharers
}

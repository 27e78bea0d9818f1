package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrUnknownStrategy is returned for a strategy name outside the known set.
var ErrUnknownStrategy = errors.New("unknown split strategy")

// Strategy is the policy used to divide a bill among participants.
type Strategy string

const (
	StrategyEqual   Strategy = "equal"
	StrategyByItems Strategy = "by_items"
	StrategyManual  Strategy = "manual"
)

// ParseStrategy converts a string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategyEqual, StrategyByItems, StrategyManual:
		return st, nil
	}
	return "", fmt.Errorf("parsing %q: %w", s, ErrUnknownStrategy)
}

// ParticipantStatus is the invitation state of a participant.
type ParticipantStatus string

const (
	StatusPending  ParticipantStatus = "pending"
	StatusAccepted ParticipantStatus = "accepted"
	StatusDeclined ParticipantStatus = "declined"
)

// ParseParticipantStatus converts a string to a ParticipantStatus.
func ParseParticipantStatus(s string) (ParticipantStatus, error) {
	switch st := ParticipantStatus(s); st {
	case StatusPending, StatusAccepted, StatusDeclined:
		return st, nil
	}
	return "", fmt.Errorf("unknown participant status %q", s)
}

// Item is one line of a bill.
type Item struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	// AssignedParticipantIDs lists who shares this item. Empty means the
	// item is shared by everyone.
	AssignedParticipantIDs []string
}

// Price returns UnitPrice × Quantity. A quantity below one counts as one.
func (it Item) Price() decimal.Decimal {
	q := it.Quantity
	if q < 1 {
		q = 1
	}
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(q)))
}

// IsAssigned reports whether participantID is explicitly assigned.
func (it Item) IsAssigned(participantID string) bool {
	for _, id := range it.AssignedParticipantIDs {
		if id == participantID {
			return true
		}
	}
	return false
}

// Clone returns a copy that does not share the assignment slice.
func (it Item) Clone() Item {
	c := it
	c.AssignedParticipantIDs = append([]string(nil), it.AssignedParticipantIDs...)
	return c
}

// Participant is one person splitting a bill.
type Participant struct {
	ID          string
	DisplayName string
	WalletRef   string
	Status      ParticipantStatus
	// AmountOwed is derived from the last allocation; never authoritative.
	AmountOwed decimal.Decimal
}

package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/pricesplit/internal/model"
	"github.com/cleared-dev/pricesplit/internal/money"
)

// Header is the CSV header for exported allocations.
const Header = "participant_id,display_name,wallet_ref,status,amount_owed"

const (
	numFields     = 5
	colID         = 0
	colName       = 1
	colWallet     = 2
	colStatus     = 3
	colAmountOwed = 4
)

// WriteAllocations writes participants and what they owe, including header.
func WriteAllocations(w io.Writer, participants []model.Participant) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, p := range participants {
		if err := cw.Write(MarshalParticipant(p)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadAllocations reads rows written by WriteAllocations.
func ReadAllocations(r io.Reader) ([]model.Participant, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading allocations CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var out []model.Participant
	for i, rec := range records[1:] {
		p, err := UnmarshalParticipant(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// MarshalParticipant converts a participant to a CSV row.
func MarshalParticipant(p model.Participant) []string {
	row := make([]string, numFields)
	row[colID] = p.ID
	row[colName] = p.DisplayName
	row[colWallet] = p.WalletRef
	row[colStatus] = string(p.Status)
	row[colAmountOwed] = p.AmountOwed.StringFixed(money.MinorUnits)
	return row
}

// UnmarshalParticipant converts a CSV row to a participant.
func UnmarshalParticipant(record []string) (model.Participant, error) {
	if len(record) != numFields {
		return model.Participant{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	status, err := model.ParseParticipantStatus(record[colStatus])
	if err != nil {
		return model.Participant{}, err
	}
	owed, err := decimal.NewFromString(record[colAmountOwed])
	if err != nil {
		return model.Participant{}, fmt.Errorf("parsing amount_owed %q: %w", record[colAmountOwed], err)
	}
	return model.Participant{
		ID:          record[colID],
		DisplayName: record[colName],
		WalletRef:   record[colWallet],
		Status:      status,
		AmountOwed:  owed,
	}, nil
}

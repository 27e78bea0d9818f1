package snapshot

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

// NotReceiptError is returned when the analysis collaborator decided the
// image was not a receipt.
type NotReceiptError struct {
	Reason string
}

func (e *NotReceiptError) Error() string {
	if e.Reason == "" {
		return "not a receipt"
	}
	return "not a receipt: " + e.Reason
}

// ReceiptParser reads the receipt JSON emitted by the image-analysis service.
// Negative amounts (discount rows) are made positive. When the total is
// missing it is derived from the items.
type ReceiptParser struct{}

type receiptJSON struct {
	IsReceipt bool   `json:"is_receipt"`
	Category  string `json:"category"`
	Reason    string `json:"reason"`
	Merchant  *struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"merchant"`
	Transaction *struct {
		Date     string `json:"date"`
		Time     string `json:"time"`
		Currency string `json:"currency"`
	} `json:"transaction"`
	Items []struct {
		Description string              `json:"description"`
		Quantity    decimal.NullDecimal `json:"quantity"`
		UnitPrice   decimal.NullDecimal `json:"unit_price"`
		TotalPrice  decimal.NullDecimal `json:"total_price"`
	} `json:"items"`
	Totals *struct {
		Subtotal decimal.NullDecimal `json:"subtotal"`
		Tax      decimal.NullDecimal `json:"tax"`
		Total    decimal.NullDecimal `json:"total"`
	} `json:"totals"`
}

// Format returns the parser name.
func (p *ReceiptParser) Format() string { return "receipt" }

// Parse decodes a receipt analysis result.
func (p *ReceiptParser) Parse(r io.Reader) (Bill, error) {
	var raw receiptJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Bill{}, fmt.Errorf("decoding receipt JSON: %w", err)
	}
	if !raw.IsReceipt {
		return Bill{}, &NotReceiptError{Reason: raw.Reason}
	}
	if !ValidCategory(raw.Category) {
		return Bill{}, fmt.Errorf("invalid category %q", raw.Category)
	}

	b := Bill{Category: raw.Category}
	if raw.Merchant != nil {
		b.Merchant = raw.Merchant.Name
		b.Location = raw.Merchant.Address
	}
	if raw.Transaction != nil {
		b.Date = raw.Transaction.Date
		b.Time = raw.Transaction.Time
		b.Currency = raw.Transaction.Currency
	}

	for i, ri := range raw.Items {
		item, err := receiptItem(ri.Description, ri.Quantity, ri.UnitPrice, ri.TotalPrice)
		if err != nil {
			return Bill{}, fmt.Errorf("item %d: %w", i+1, err)
		}
		b.Items = append(b.Items, item)
	}

	if raw.Totals != nil {
		b.Subtotal = positive(raw.Totals.Subtotal)
		b.Tax = positive(raw.Totals.Tax)
		b.Total = positive(raw.Totals.Total)
	}
	if raw.Totals == nil || !raw.Totals.Total.Valid {
		b.Total = b.ItemsTotal()
	}
	return b, nil
}

// receiptItem prefers unit price × whole quantity; fractional quantities
// (weighed goods) collapse to a single line at the total price.
func receiptItem(desc string, qty, unit, total decimal.NullDecimal) (Item, error) {
	if desc == "" {
		return Item{}, fmt.Errorf("missing description")
	}
	q := decimal.NewFromInt(1)
	if qty.Valid && !qty.Decimal.IsZero() {
		q = qty.Decimal.Abs()
	}

	switch {
	case unit.Valid && q.IsInteger():
		return Item{Name: desc, Price: unit.Decimal.Abs(), Quantity: int(q.IntPart())}, nil
	case total.Valid:
		return Item{Name: desc, Price: total.Decimal.Abs(), Quantity: 1}, nil
	case unit.Valid:
		return Item{Name: desc, Price: unit.Decimal.Abs().Mul(q).Round(2), Quantity: 1}, nil
	}
	return Item{}, fmt.Errorf("item %q has no price", desc)
}

func positive(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal.Abs()
}

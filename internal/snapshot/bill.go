package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
)

// BillParser reads the plain bill JSON:
//
//	{"merchant": "...", "currency": "USD", "items": [{"name": "...", "price": 8.19}], "total": 28.69}
type BillParser struct{}

// Format returns the parser name.
func (p *BillParser) Format() string { return "bill" }

// Parse decodes a plain bill snapshot.
func (p *BillParser) Parse(r io.Reader) (Bill, error) {
	var b Bill
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return Bill{}, fmt.Errorf("decoding bill JSON: %w", err)
	}
	if !ValidCategory(b.Category) {
		return Bill{}, fmt.Errorf("invalid category %q", b.Category)
	}
	return b, nil
}

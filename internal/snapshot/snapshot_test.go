package snapshot

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

const billJSON = `{
  "merchant": "Cafe Luna",
  "location": "12 Rue Oberkampf",
  "date": "2025-01-15",
  "time": "20:14",
  "currency": "USD",
  "items": [
    {"name": "Burger", "price": 8.19},
    {"name": "Fries", "price": "3.25", "quantity": 2},
    {"name": "Wine", "price": 14.00}
  ],
  "subtotal": 28.69,
  "tax": 0,
  "total": 28.69
}`

const receiptJSONFixture = `{
  "is_receipt": true,
  "category": "Food & Drinks",
  "merchant": {"name": "Cafe Luna", "address": "12 Rue Oberkampf"},
  "transaction": {"date": "2025-01-15", "time": "20:14", "currency": "EUR"},
  "items": [
    {"description": "Burger", "quantity": 1, "unit_price": 8.19, "total_price": 8.19},
    {"description": "Fries", "quantity": 2, "unit_price": 3.25, "total_price": 6.50},
    {"description": "Cheese", "quantity": 0.35, "unit_price": 20.00, "total_price": 7.00},
    {"description": "Discount", "quantity": 1, "total_price": -1.00}
  ],
  "totals": {"subtotal": 20.69, "tax": 2.00, "total": 22.69}
}`

func TestBillParser(t *testing.T) {
	b, err := DefaultRegistry().Parse("bill", strings.NewReader(billJSON))
	require.NoError(t, err)

	assert.Equal(t, "Cafe Luna", b.Merchant)
	assert.Equal(t, "12 Rue Oberkampf", b.Location)
	assert.Equal(t, "USD", b.Currency)
	require.Len(t, b.Items, 3)
	assert.True(t, b.Items[1].Price.Equal(dec("3.25")))
	assert.Equal(t, 2, b.Items[1].Quantity)
	assert.True(t, b.Total.Equal(dec("28.69")))
	assert.Equal(t, "28.69", b.ItemsTotal().StringFixed(2))
	assert.True(t, b.TotalsMatch())
	assert.Equal(t, "Cafe Luna 2025-01-15", b.Title())
}

func TestBillParser_RejectsUnknownFieldsAndCategory(t *testing.T) {
	_, err := (&BillParser{}).Parse(strings.NewReader(`{"merchant":"x","totl":1}`))
	require.Error(t, err)

	_, err = (&BillParser{}).Parse(strings.NewReader(`{"merchant":"x","category":"Groceries"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid category")
}

func TestReceiptParser(t *testing.T) {
	b, err := DefaultRegistry().Parse("receipt", strings.NewReader(receiptJSONFixture))
	require.NoError(t, err)

	assert.Equal(t, "Cafe Luna", b.Merchant)
	assert.Equal(t, "EUR", b.Currency)
	assert.Equal(t, "Food & Drinks", b.Category)
	assert.Equal(t, "2025-01-15", b.Date)
	require.Len(t, b.Items, 4)

	assert.True(t, b.Items[0].Price.Equal(dec("8.19")))
	assert.Equal(t, 2, b.Items[1].Quantity)
	assert.True(t, b.Items[1].Price.Equal(dec("3.25")))
	assert.Equal(t, 1, b.Items[2].Quantity, "fractional quantity collapses to one line")
	assert.True(t, b.Items[2].Price.Equal(dec("7.00")))
	assert.True(t, b.Items[3].Price.Equal(dec("1.00")), "discount rows become positive")

	assert.True(t, b.Total.Equal(dec("22.69")))
	assert.True(t, b.Tax.Equal(dec("2.00")))
}

func TestReceiptParser_DerivesMissingTotal(t *testing.T) {
	in := `{"is_receipt": true, "items": [
	  {"description": "A", "unit_price": 1.50, "quantity": 2},
	  {"description": "B", "total_price": 2.00}
	]}`
	b, err := (&ReceiptParser{}).Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "5.00", b.Total.StringFixed(2))
	assert.True(t, b.TotalsMatch())
}

func TestReceiptParser_NotReceipt(t *testing.T) {
	_, err := (&ReceiptParser{}).Parse(strings.NewReader(`{"is_receipt": false, "reason": "photo of a cat"}`))
	var nr *NotReceiptError
	require.True(t, errors.As(err, &nr))
	assert.Equal(t, "photo of a cat", nr.Reason)
	assert.Equal(t, "not a receipt: photo of a cat", err.Error())
}

func TestReceiptParser_ItemWithoutPrice(t *testing.T) {
	_, err := (&ReceiptParser{}).Parse(strings.NewReader(`{"is_receipt": true, "items": [{"description": "A"}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 1")
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"bill", "receipt"}, r.Formats())
	assert.NotNil(t, r.Get("RECEIPT"))
	assert.Nil(t, r.Get("csv"))

	_, err := r.Parse("csv", strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown snapshot format")

	assert.Panics(t, func() { r.Register(&BillParser{}) })
}

func TestApplyDefaults(t *testing.T) {
	b := Bill{}
	b.ApplyDefaults("usd")
	assert.Equal(t, "USD", b.Currency)

	b = Bill{Currency: "EUR"}
	b.ApplyDefaults("USD")
	assert.Equal(t, "EUR", b.Currency)
}

func TestCategories(t *testing.T) {
	cats := Categories()
	assert.Len(t, cats, 6)
	assert.True(t, ValidCategory("On-Chain Life"))
	assert.True(t, ValidCategory(""))
	assert.False(t, ValidCategory("Groceries"))

	cats[0] = "mutated"
	assert.True(t, ValidCategory("Food & Drinks"))
}

func TestTotalsMatch_Boundary(t *testing.T) {
	tests := []struct {
		total string
		want  bool
	}{
		{"10.00", true},
		{"10.01", true},
		{"9.99", true},
		{"10.02", false},
		{"9.98", false},
	}
	for _, tt := range tests {
		b := Bill{Items: []Item{{Name: "Soup", Price: dec("10.00")}}, Total: dec(tt.total)}
		assert.Equal(t, tt.want, b.TotalsMatch(), "total %s", tt.total)
	}
}

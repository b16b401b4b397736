package normalizer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invox/internal/domain"
)

func rawMapping(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestNormalize_RequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"missing vendor name", `{"invoice":{"number":"INV-1","date":"2024-03-14"}}`, "vendor.name"},
		{"empty vendor name", `{"vendor":{"name":"  "},"invoice":{"number":"INV-1","date":"2024-03-14"}}`, "vendor.name"},
		{"numeric vendor name", `{"vendor":{"name":42},"invoice":{"number":"INV-1","date":"2024-03-14"}}`, "vendor.name"},
		{"missing invoice number", `{"vendor":{"name":"Acme Co"},"invoice":{"date":"2024-03-14"}}`, "invoice.number"},
		{"missing invoice date", `{"vendor":{"name":"Acme Co"},"invoice":{"number":"INV-1"}}`, "invoice.date"},
		{"unparsable invoice date", `{"vendor":{"name":"Acme Co"},"invoice":{"number":"INV-1","date":"next tuesday"}}`, "invoice.date"},
		{"missing invoice object", `{"vendor":{"name":"Acme Co"}}`, "invoice.number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, notes, err := Normalize(rawMapping(t, tt.raw))
			require.Error(t, err)
			assert.Nil(t, rec)
			assert.Nil(t, notes)

			var valErr *domain.ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, tt.field, valErr.Field)
		})
	}
}

func TestNormalize_CorrectsLineItemTotal(t *testing.T) {
	// Unit price arrives as text, the extracted total drifts beyond
	// tolerance, and the date is US-formatted.
	raw := rawMapping(t, `{
		"vendor": {"name": "Acme Co"},
		"invoice": {
			"number": "INV-1",
			"date": "03/14/2024",
			"lineItems": [
				{"description": "Widget", "unitPrice": "10", "quantity": 2, "total": 19}
			]
		}
	}`)

	rec, notes, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-14", rec.Invoice.Date)
	require.Len(t, rec.Invoice.LineItems, 1)
	item := rec.Invoice.LineItems[0]
	assert.Equal(t, "Widget", item.Description)
	assert.Equal(t, 10.0, item.UnitPrice)
	assert.Equal(t, 2.0, item.Quantity)
	assert.Equal(t, 20.0, item.Total)

	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "corrected")
}

func TestNormalize_TotalWithinToleranceKept(t *testing.T) {
	raw := rawMapping(t, `{
		"vendor": {"name": "Acme Co"},
		"invoice": {
			"number": "INV-1",
			"date": "2024-03-14",
			"lineItems": [
				{"description": "Widget", "unitPrice": 3.333, "quantity": 3, "total": 10.0}
			]
		}
	}`)

	rec, notes, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, rec.Invoice.LineItems, 1)
	// 3.333*3 rounds to 10.00, within tolerance of the extracted total.
	assert.Equal(t, 10.0, rec.Invoice.LineItems[0].Total)
	assert.Empty(t, notes)
}

func TestNormalize_DropsBadLineItems(t *testing.T) {
	raw := rawMapping(t, `{
		"vendor": {"name": "Acme Co"},
		"invoice": {
			"number": "INV-1",
			"date": "2024-03-14",
			"lineItems": [
				{"description": "Good", "unitPrice": 5, "quantity": 1, "total": 5},
				{"unitPrice": 5, "quantity": 1, "total": 5},
				{"description": "No qty", "unitPrice": 5, "total": 5},
				{"description": "Zero qty", "unitPrice": 5, "quantity": 0, "total": 0},
				{"description": "No price", "quantity": 2, "total": 10},
				"not an object"
			]
		}
	}`)

	rec, notes, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, rec.Invoice.LineItems, 1)
	assert.Equal(t, "Good", rec.Invoice.LineItems[0].Description)
	assert.Len(t, notes, 5)
}

func TestNormalize_HeaderFailureBeatsLineItems(t *testing.T) {
	// Record-level validation is strict even when every line item is fine.
	raw := rawMapping(t, `{
		"vendor": {"name": ""},
		"invoice": {
			"number": "INV-1",
			"date": "2024-03-14",
			"lineItems": [{"description": "Widget", "unitPrice": 10, "quantity": 2, "total": 20}]
		}
	}`)

	rec, _, err := Normalize(raw)
	require.Error(t, err)
	assert.Nil(t, rec)
}

func TestNormalize_OptionalFields(t *testing.T) {
	raw := rawMapping(t, `{
		"vendor": {"name": "Acme Co", "address": " 1 Main St ", "taxId": "TX-9"},
		"invoice": {
			"number": "INV-1",
			"date": "2024-03-14",
			"currency": "usd",
			"subtotal": "1,200.50",
			"taxPercent": 8.25,
			"total": "$1,299.54",
			"poNumber": "PO-7",
			"poDate": "Jan 2, 2024"
		}
	}`)

	rec, notes, err := Normalize(raw)
	require.NoError(t, err)
	assert.Empty(t, notes)

	assert.Equal(t, "1 Main St", rec.Vendor.Address)
	assert.Equal(t, "TX-9", rec.Vendor.TaxID)
	assert.Equal(t, "USD", rec.Invoice.Currency)
	require.NotNil(t, rec.Invoice.Subtotal)
	assert.Equal(t, 1200.50, *rec.Invoice.Subtotal)
	require.NotNil(t, rec.Invoice.TaxPercent)
	assert.Equal(t, 8.25, *rec.Invoice.TaxPercent)
	require.NotNil(t, rec.Invoice.Total)
	assert.Equal(t, 1299.54, *rec.Invoice.Total)
	assert.Equal(t, "PO-7", rec.Invoice.PONumber)
	assert.Equal(t, "2024-01-02", rec.Invoice.PODate)
}

func TestNormalize_OutOfRangeOptionalDropped(t *testing.T) {
	raw := rawMapping(t, `{
		"vendor": {"name": "Acme Co"},
		"invoice": {
			"number": "INV-1",
			"date": "2024-03-14",
			"taxPercent": 150,
			"subtotal": -10,
			"currency": "dollars",
			"poDate": "sometime soon"
		}
	}`)

	rec, _, err := Normalize(raw)
	require.NoError(t, err)
	assert.Nil(t, rec.Invoice.TaxPercent)
	assert.Nil(t, rec.Invoice.Subtotal)
	assert.Empty(t, rec.Invoice.Currency)
	assert.Empty(t, rec.Invoice.PODate)
}

func TestNormalize_AliasKeys(t *testing.T) {
	raw := rawMapping(t, `{
		"vendor": {"name": "Acme Co", "tax_id": "TX-1"},
		"invoice": {
			"invoice_number": "INV-2",
			"invoice_date": "2024/06/01",
			"line_items": [{"desc": "Bolt", "unit_price": 2, "qty": 4, "amount": 8}]
		}
	}`)

	rec, notes, err := Normalize(raw)
	require.NoError(t, err)
	assert.Empty(t, notes)
	assert.Equal(t, "TX-1", rec.Vendor.TaxID)
	assert.Equal(t, "INV-2", rec.Invoice.Number)
	assert.Equal(t, "2024-06-01", rec.Invoice.Date)
	require.Len(t, rec.Invoice.LineItems, 1)
	assert.Equal(t, "Bolt", rec.Invoice.LineItems[0].Description)
	assert.Equal(t, 8.0, rec.Invoice.LineItems[0].Total)
}

func TestNormalize_Deterministic(t *testing.T) {
	const input = `{
		"vendor": {"name": "Acme Co"},
		"invoice": {
			"number": "INV-1",
			"date": "03/14/2024",
			"lineItems": [
				{"description": "A", "unitPrice": 1.5, "quantity": 2, "total": 4},
				{"description": "B", "unitPrice": 3, "quantity": 1}
			]
		}
	}`

	first, firstNotes, err := Normalize(rawMapping(t, input))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		rec, notes, err := Normalize(rawMapping(t, input))
		require.NoError(t, err)
		assert.Equal(t, first, rec)
		assert.Equal(t, firstNotes, notes)
	}
}

func TestNormalize_MissingLineItemsYieldsEmptySequence(t *testing.T) {
	raw := rawMapping(t, `{"vendor":{"name":"Acme Co"},"invoice":{"number":"INV-1","date":"2024-03-14"}}`)

	rec, notes, err := Normalize(raw)
	require.NoError(t, err)
	assert.NotNil(t, rec.Invoice.LineItems)
	assert.Empty(t, rec.Invoice.LineItems)
	assert.Empty(t, notes)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-03-14", "2024-03-14", true},
		{"2024/03/14", "2024-03-14", true},
		{"03/14/2024", "2024-03-14", true},
		{"3/4/2024", "2024-03-04", true},
		{"Jan 2, 2024", "2024-01-02", true},
		{"2024-03-14T10:30:00Z", "2024-03-14", true},
		{"14.03.2024", "2024-03-14", true},
		{"tomorrow", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "input %q", tt.in)
		}
	}
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{10.5, 10.5, true},
		{"10", 10, true},
		{"$1,200.50", 1200.50, true},
		{"€99", 99, true},
		{"", 0, false},
		{"abc", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := toNumber(tt.in)
		assert.Equal(t, tt.ok, ok, "input %v", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "input %v", tt.in)
		}
	}
}

// Package normalizer converts raw extraction output into the canonical
// invoice record shape. Required header fields are validated strictly and
// fail fast; line items are validated independently and dropped on failure,
// so a partially readable document still yields a usable record.
package normalizer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"invox/internal/domain"
)

// totalTolerance is the allowed drift between an extracted line item total
// and unitPrice*quantity before the recomputed value wins.
const totalTolerance = 0.01

// Model backends disagree on key casing, so each logical field accepts a
// small alias list. Order matters: the first present key wins, which keeps
// the output deterministic for identical input.
var (
	lineItemsKeys   = []string{"lineItems", "line_items", "items"}
	descriptionKeys = []string{"description", "desc", "item"}
	unitPriceKeys   = []string{"unitPrice", "unit_price", "price", "rate"}
	quantityKeys    = []string{"quantity", "qty"}
	itemTotalKeys   = []string{"total", "amount"}
)

// Normalize converts an arbitrary key/value mapping produced by an
// extraction backend into an unsaved InvoiceRecord. It returns the record,
// a list of non-fatal discrepancy notes (line item corrections and drops),
// and a *domain.ValidationError when a required header field is missing,
// empty, or unusable. ID and timestamps are not set here; they belong to
// the repository.
//
// Normalize is deterministic: identical input yields a field-identical
// record and note list.
func Normalize(raw map[string]any) (*domain.InvoiceRecord, []string, error) {
	vendorRaw := subMap(raw, "vendor")
	invoiceRaw := subMap(raw, "invoice")

	vendorName := cleanString(firstValue(vendorRaw, []string{"name"}))
	if vendorName == "" {
		return nil, nil, domain.NewValidationError("vendor.name", "missing or empty")
	}

	number := cleanString(firstValue(invoiceRaw, []string{"number", "invoiceNumber", "invoice_number"}))
	if number == "" {
		return nil, nil, domain.NewValidationError("invoice.number", "missing or empty")
	}

	dateRaw := cleanString(firstValue(invoiceRaw, []string{"date", "invoiceDate", "invoice_date"}))
	if dateRaw == "" {
		return nil, nil, domain.NewValidationError("invoice.date", "missing or empty")
	}
	date, ok := ParseDate(dateRaw)
	if !ok {
		return nil, nil, domain.NewValidationError("invoice.date", fmt.Sprintf("unparsable date %q", dateRaw))
	}

	rec := &domain.InvoiceRecord{
		Vendor: domain.Vendor{
			Name:    vendorName,
			Address: cleanString(firstValue(vendorRaw, []string{"address"})),
			TaxID:   cleanString(firstValue(vendorRaw, []string{"taxId", "tax_id", "taxID"})),
		},
		Invoice: domain.InvoiceDetail{
			Number:   number,
			Date:     date,
			Currency: normalizeCurrency(firstValue(invoiceRaw, []string{"currency"})),
			PONumber: cleanString(firstValue(invoiceRaw, []string{"poNumber", "po_number"})),
		},
	}

	// Optional PO date: unparsable values are dropped, never fatal.
	if poRaw := cleanString(firstValue(invoiceRaw, []string{"poDate", "po_date"})); poRaw != "" {
		if poDate, ok := ParseDate(poRaw); ok {
			rec.Invoice.PODate = poDate
		}
	}

	rec.Invoice.Subtotal = optionalAmount(invoiceRaw, []string{"subtotal", "subTotal", "sub_total"}, 0, math.MaxFloat64)
	rec.Invoice.TaxPercent = optionalAmount(invoiceRaw, []string{"taxPercent", "tax_percent", "taxRate", "tax_rate"}, 0, 100)
	rec.Invoice.Total = optionalAmount(invoiceRaw, []string{"total", "grandTotal", "grand_total"}, 0, math.MaxFloat64)

	items, notes := normalizeLineItems(firstValue(invoiceRaw, lineItemsKeys))
	rec.Invoice.LineItems = items

	return rec, notes, nil
}

// normalizeLineItems applies the fail-soft pass: each entry is validated
// independently and dropped when unusable. When the recomputed total for a
// surviving item drifts beyond tolerance, the recomputed value wins and a
// note records the correction.
func normalizeLineItems(v any) ([]domain.LineItem, []string) {
	entries, ok := v.([]any)
	if !ok {
		return []domain.LineItem{}, nil
	}

	items := make([]domain.LineItem, 0, len(entries))
	var notes []string

	for i, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			notes = append(notes, fmt.Sprintf("line item %d dropped: not an object", i+1))
			continue
		}

		desc := cleanString(firstValue(m, descriptionKeys))
		if desc == "" {
			notes = append(notes, fmt.Sprintf("line item %d dropped: missing description", i+1))
			continue
		}

		qty, qtyOK := toNumber(firstValue(m, quantityKeys))
		if !qtyOK || qty <= 0 {
			notes = append(notes, fmt.Sprintf("line item %d (%s) dropped: missing or non-positive quantity", i+1, desc))
			continue
		}

		// Tie-break for inconsistent extraction: quantity*unitPrice is the
		// source of truth. Without a usable unit price the item is dropped
		// rather than reverse-engineered from the extracted total.
		unitPrice, priceOK := toNumber(firstValue(m, unitPriceKeys))
		if !priceOK || unitPrice < 0 {
			notes = append(notes, fmt.Sprintf("line item %d (%s) dropped: missing or negative unit price", i+1, desc))
			continue
		}

		computed := round2(unitPrice * qty)
		total, totalOK := toNumber(firstValue(m, itemTotalKeys))
		if !totalOK {
			total = computed
		} else if math.Abs(total-computed) > totalTolerance {
			notes = append(notes, fmt.Sprintf(
				"line item %d (%s): total corrected from %s to %s", i+1, desc, fmtAmount(total), fmtAmount(computed)))
			total = computed
		}

		items = append(items, domain.LineItem{
			Description: desc,
			UnitPrice:   unitPrice,
			Quantity:    qty,
			Total:       total,
		})
	}

	return items, notes
}

// subMap returns the nested object under key, or an empty map when absent
// or of the wrong type.
func subMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	if sub, ok := m[key].(map[string]any); ok {
		return sub
	}
	return map[string]any{}
}

// firstValue returns the value of the first alias key present in m.
func firstValue(m map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

// cleanString coerces a raw value into a trimmed string. Non-string scalars
// are not stringified; a number where text is expected is treated as absent.
func cleanString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// toNumber coerces a raw value into a float64. Strings are parsed after
// stripping currency symbols and thousands separators; anything that still
// fails to parse reports false so the caller can drop the field rather than
// zero it.
func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimLeft(s, "$€£₹ ")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// optionalAmount resolves an optional numeric field, dropping values that
// are non-numeric or outside [min, max].
func optionalAmount(m map[string]any, keys []string, min, max float64) *float64 {
	v := firstValue(m, keys)
	if v == nil {
		return nil
	}
	f, ok := toNumber(v)
	if !ok || f < min || f > max {
		return nil
	}
	return &f
}

// normalizeCurrency keeps only plausible 3-letter codes, uppercased.
func normalizeCurrency(v any) string {
	s := cleanString(v)
	if len(s) != 3 {
		return ""
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return ""
		}
	}
	return strings.ToUpper(s)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func fmtAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

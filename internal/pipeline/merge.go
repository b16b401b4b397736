package pipeline

import "invox/internal/domain"

// MergeWithPrior overlays a fresh extraction onto a previously saved record
// so a re-extraction does not clobber manual review work. Prior edits win
// for every field the reviewer filled in; the extraction only fills gaps.
// Identity (ID, CreatedAt) is taken from the prior record so a subsequent
// save updates it in place.
func MergeWithPrior(extracted, prior *domain.InvoiceRecord) *domain.InvoiceRecord {
	if prior == nil {
		return extracted
	}
	if extracted == nil {
		return prior
	}

	merged := *prior
	merged.FileID = extracted.FileID
	if merged.FileName == "" {
		merged.FileName = extracted.FileName
	}

	merged.Vendor.Name = preferString(prior.Vendor.Name, extracted.Vendor.Name)
	merged.Vendor.Address = preferString(prior.Vendor.Address, extracted.Vendor.Address)
	merged.Vendor.TaxID = preferString(prior.Vendor.TaxID, extracted.Vendor.TaxID)

	merged.Invoice.Number = preferString(prior.Invoice.Number, extracted.Invoice.Number)
	merged.Invoice.Date = preferString(prior.Invoice.Date, extracted.Invoice.Date)
	merged.Invoice.Currency = preferString(prior.Invoice.Currency, extracted.Invoice.Currency)
	merged.Invoice.PONumber = preferString(prior.Invoice.PONumber, extracted.Invoice.PONumber)
	merged.Invoice.PODate = preferString(prior.Invoice.PODate, extracted.Invoice.PODate)

	merged.Invoice.Subtotal = preferNumber(prior.Invoice.Subtotal, extracted.Invoice.Subtotal)
	merged.Invoice.TaxPercent = preferNumber(prior.Invoice.TaxPercent, extracted.Invoice.TaxPercent)
	merged.Invoice.Total = preferNumber(prior.Invoice.Total, extracted.Invoice.Total)

	// Line items are replaced as a block, never spliced row by row.
	if len(prior.Invoice.LineItems) == 0 {
		merged.Invoice.LineItems = extracted.Invoice.LineItems
	}

	return &merged
}

func preferString(prior, extracted string) string {
	if prior != "" {
		return prior
	}
	return extracted
}

func preferNumber(prior, extracted *float64) *float64 {
	if prior != nil {
		return prior
	}
	return extracted
}

package pipeline

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invox/internal/domain"
)

func fptr(v float64) *float64 { return &v }

func TestMergeWithPrior_PriorEditsWin(t *testing.T) {
	fileID := uuid.New()
	extracted := &domain.InvoiceRecord{
		FileID:   &fileID,
		FileName: "fresh.pdf",
		Vendor:   domain.Vendor{Name: "Acme", Address: "2 Side St", TaxID: "TX-2"},
		Invoice: domain.InvoiceDetail{
			Number:   "INV-1",
			Date:     "2024-03-14",
			Currency: "USD",
			Total:    fptr(100),
			LineItems: []domain.LineItem{
				{Description: "Widget", UnitPrice: 50, Quantity: 2, Total: 100},
			},
		},
	}
	prior := &domain.InvoiceRecord{
		ID:      uuid.New(),
		Vendor:  domain.Vendor{Name: "Acme Corporation"},
		Invoice: domain.InvoiceDetail{Number: "INV-1-A", Date: "2024-03-15", Total: fptr(110)},
	}

	merged := MergeWithPrior(extracted, prior)

	// Reviewer-filled fields survive re-extraction.
	assert.Equal(t, prior.ID, merged.ID)
	assert.Equal(t, "Acme Corporation", merged.Vendor.Name)
	assert.Equal(t, "INV-1-A", merged.Invoice.Number)
	assert.Equal(t, "2024-03-15", merged.Invoice.Date)
	assert.Equal(t, 110.0, *merged.Invoice.Total)

	// Gaps are filled from the extraction.
	assert.Equal(t, "2 Side St", merged.Vendor.Address)
	assert.Equal(t, "TX-2", merged.Vendor.TaxID)
	assert.Equal(t, "USD", merged.Invoice.Currency)
	assert.Equal(t, "fresh.pdf", merged.FileName)
	require.NotNil(t, merged.FileID)
	assert.Equal(t, fileID, *merged.FileID)

	// Prior had no line items, so the extracted block is used.
	assert.Len(t, merged.Invoice.LineItems, 1)
}

func TestMergeWithPrior_PriorLineItemsKept(t *testing.T) {
	extracted := &domain.InvoiceRecord{
		Invoice: domain.InvoiceDetail{
			LineItems: []domain.LineItem{{Description: "Fresh", UnitPrice: 1, Quantity: 1, Total: 1}},
		},
	}
	prior := &domain.InvoiceRecord{
		Invoice: domain.InvoiceDetail{
			LineItems: []domain.LineItem{
				{Description: "Edited A", UnitPrice: 2, Quantity: 1, Total: 2},
				{Description: "Edited B", UnitPrice: 3, Quantity: 1, Total: 3},
			},
		},
	}

	merged := MergeWithPrior(extracted, prior)
	require.Len(t, merged.Invoice.LineItems, 2)
	assert.Equal(t, "Edited A", merged.Invoice.LineItems[0].Description)
}

func TestMergeWithPrior_NilOperands(t *testing.T) {
	rec := &domain.InvoiceRecord{Vendor: domain.Vendor{Name: "Acme"}}
	assert.Same(t, rec, MergeWithPrior(rec, nil))
	assert.Same(t, rec, MergeWithPrior(nil, rec))
}

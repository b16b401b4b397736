package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"invox/internal/domain"
)

const invoiceSheet = "Invoices"

// WriteXLSX renders invoice records as an XLSX workbook and returns the
// serialized bytes. One row per record, one detail sheet with flattened
// line items.
func WriteXLSX(recs []domain.InvoiceRecord) ([]byte, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(invoiceSheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(invoiceSheet, cell, h)
	}

	row := 2
	for i := range recs {
		for col, v := range recordToRow(&recs[i]) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(invoiceSheet, cell, v)
		}
		row++
	}

	if err := writeLineItemSheet(f, recs); err != nil {
		return nil, err
	}

	// Widen the columns a reader actually scans.
	_ = f.SetColWidth(invoiceSheet, "A", "A", 28) // file name
	_ = f.SetColWidth(invoiceSheet, "B", "B", 28) // vendor name
	_ = f.SetColWidth(invoiceSheet, "C", "C", 40) // vendor address
	_ = f.SetColWidth(invoiceSheet, "E", "F", 16) // number, date
	_ = f.SetColWidth(invoiceSheet, "H", "J", 12) // amounts

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeLineItemSheet(f *excelize.File, recs []domain.InvoiceRecord) error {
	const sheet = "Line Items"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}

	headers := []string{"Invoice Number", "Description", "Unit Price", "Quantity", "Total"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for i := range recs {
		for _, item := range recs[i].Invoice.LineItems {
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, row)
				_ = f.SetCellValue(sheet, cell, v)
			}
			write(1, recs[i].Invoice.Number)
			write(2, item.Description)
			write(3, item.UnitPrice)
			write(4, item.Quantity)
			write(5, item.Total)
			row++
		}
	}

	_ = f.SetColWidth(sheet, "B", "B", 48)
	return nil
}

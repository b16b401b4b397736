// Package export renders saved invoice records as downloadable CSV and XLSX
// documents.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"invox/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row.
var columns = []string{
	"File Name",
	"Vendor Name",
	"Vendor Address",
	"Vendor Tax ID",
	"Invoice Number",
	"Invoice Date",
	"Currency",
	"Subtotal",
	"Tax Percent",
	"Total",
	"PO Number",
	"PO Date",
	"Line Item Count",
	"Created At",
	"Updated At",
}

// CSVWriter wraps csv.Writer for exporting invoice records as CSV.
type CSVWriter struct {
	csv *csv.Writer
}

// NewCSVWriter creates a CSVWriter that writes to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *CSVWriter) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteRecords converts a batch of invoice records to CSV rows and writes them.
func (w *CSVWriter) WriteRecords(recs []domain.InvoiceRecord) error {
	for i := range recs {
		if err := w.csv.Write(recordToRow(&recs[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *CSVWriter) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *CSVWriter) Error() error {
	return w.csv.Error()
}

func recordToRow(rec *domain.InvoiceRecord) []string {
	row := make([]string, len(columns))
	row[0] = rec.FileName
	row[1] = rec.Vendor.Name
	row[2] = rec.Vendor.Address
	row[3] = rec.Vendor.TaxID
	row[4] = rec.Invoice.Number
	row[5] = rec.Invoice.Date
	row[6] = rec.Invoice.Currency
	row[7] = formatAmount(rec.Invoice.Subtotal)
	row[8] = formatAmount(rec.Invoice.TaxPercent)
	row[9] = formatAmount(rec.Invoice.Total)
	row[10] = rec.Invoice.PONumber
	row[11] = rec.Invoice.PODate
	row[12] = strconv.Itoa(len(rec.Invoice.LineItems))
	row[13] = rec.CreatedAt.Format(time.RFC3339)
	row[14] = rec.UpdatedAt.Format(time.RFC3339)
	return row
}

func formatAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition. Replaces
// non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for the Content-Disposition
// header. Format: {sanitized_name}_{YYYY-MM-DD}.{ext}
func BuildFilename(name, ext string) string {
	sanitized := SanitizeFilename(name)
	date := time.Now().Format("2006-01-02")
	return fmt.Sprintf("%s_%s.%s", sanitized, date, ext)
}

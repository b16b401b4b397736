package domain

import (
	"time"

	"github.com/google/uuid"
)

// Vendor holds the issuing party of an invoice. Only the name is required.
type Vendor struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	TaxID   string `json:"taxId,omitempty"`
}

// LineItem is one billable row within an invoice. Total is kept consistent
// with UnitPrice*Quantity by the normalizer.
type LineItem struct {
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unitPrice"`
	Quantity    float64 `json:"quantity"`
	Total       float64 `json:"total"`
}

// InvoiceDetail holds the invoice header fields and line items.
// Date and PODate are ISO-8601 dates (no time component).
type InvoiceDetail struct {
	Number     string     `json:"number"`
	Date       string     `json:"date"`
	Currency   string     `json:"currency,omitempty"`
	Subtotal   *float64   `json:"subtotal,omitempty"`
	TaxPercent *float64   `json:"taxPercent,omitempty"`
	Total      *float64   `json:"total,omitempty"`
	PONumber   string     `json:"poNumber,omitempty"`
	PODate     string     `json:"poDate,omitempty"`
	LineItems  []LineItem `json:"lineItems"`
}

// InvoiceRecord is the canonical persisted representation of one reviewed
// invoice. ID and CreatedAt are assigned at first persistence and never
// mutated; UpdatedAt is refreshed on every save. FileID is a soft reference
// to the uploaded document the record was extracted from.
type InvoiceRecord struct {
	ID        uuid.UUID     `json:"id"`
	FileID    *uuid.UUID    `json:"fileId,omitempty"`
	FileName  string        `json:"fileName"`
	Vendor    Vendor        `json:"vendor"`
	Invoice   InvoiceDetail `json:"invoice"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// FileMeta stores metadata about an uploaded document.
type FileMeta struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	FileName     string     `db:"file_name" json:"file_name"`
	OriginalName string     `db:"original_name" json:"original_name"`
	FileType     FileType   `db:"file_type" json:"file_type"`
	FileSize     int64      `db:"file_size" json:"file_size"`
	Bucket       string     `db:"bucket" json:"bucket"`
	StorageKey   string     `db:"storage_key" json:"storage_key"`
	ContentType  string     `db:"content_type" json:"content_type"`
	Status       FileStatus `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

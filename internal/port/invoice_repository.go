package port

import (
	"context"

	"github.com/google/uuid"

	"invox/internal/domain"
)

// InvoiceRepository defines the contract for invoice record persistence.
//
// Upsert assigns a new ID and CreatedAt when the record has no ID; when an ID
// is present the stored record is replaced wholesale (no field-level merge)
// and UpdatedAt refreshed. An unknown ID is domain.ErrInvoiceNotFound, as is
// Get or Delete on a missing record. Search matches the query
// case-insensitively as a substring of vendor name or invoice number; the
// empty query returns all records, most recently updated first.
type InvoiceRepository interface {
	Upsert(ctx context.Context, rec *domain.InvoiceRecord) (*domain.InvoiceRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string) ([]domain.InvoiceRecord, error)
}

// FileMetaRepository defines the contract for uploaded file metadata.
type FileMetaRepository interface {
	Create(ctx context.Context, meta *domain.FileMeta) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FileMeta, error)
	List(ctx context.Context, offset, limit int) ([]domain.FileMeta, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.FileStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

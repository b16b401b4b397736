package service

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"

	"invox/internal/domain"
	"invox/internal/normalizer"
	"invox/internal/port"
)

// InvoiceService defines the reviewed-invoice persistence contract. Save is
// the explicit review step: nothing reaches the repository until a caller
// invokes it.
type InvoiceService interface {
	Save(ctx context.Context, rec *domain.InvoiceRecord) (*domain.InvoiceRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string) ([]domain.InvoiceRecord, error)
}

type invoiceService struct {
	repo port.InvoiceRepository
}

// NewInvoiceService creates a new InvoiceService implementation.
func NewInvoiceService(repo port.InvoiceRepository) InvoiceService {
	return &invoiceService{repo: repo}
}

func (s *invoiceService) Save(ctx context.Context, rec *domain.InvoiceRecord) (*domain.InvoiceRecord, error) {
	if err := validateRecord(rec); err != nil {
		return nil, err
	}

	saved, err := s.repo.Upsert(ctx, rec)
	if err != nil {
		return nil, err
	}
	log.Printf("invoiceService.Save: saved invoice %s (vendor %q, number %q)",
		saved.ID, saved.Vendor.Name, saved.Invoice.Number)
	return saved, nil
}

func (s *invoiceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *invoiceService) Delete(ctx context.Context, id uuid.UUID) error {
	log.Printf("invoiceService.Delete: deleting invoice %s", id)
	return s.repo.Delete(ctx, id)
}

func (s *invoiceService) Search(ctx context.Context, query string) ([]domain.InvoiceRecord, error) {
	return s.repo.Search(ctx, query)
}

// validateRecord enforces the same required fields on manual saves that
// normalization enforces on extraction output. A reviewer can edit a record
// but cannot blank out its identity, and edited dates must stay in the
// YYYY-MM-DD form the store and exporters assume.
func validateRecord(rec *domain.InvoiceRecord) error {
	if strings.TrimSpace(rec.Vendor.Name) == "" {
		return domain.NewValidationError("vendor.name", "is required")
	}
	if strings.TrimSpace(rec.Invoice.Number) == "" {
		return domain.NewValidationError("invoice.number", "is required")
	}
	date := strings.TrimSpace(rec.Invoice.Date)
	if date == "" {
		return domain.NewValidationError("invoice.date", "is required")
	}
	if iso, ok := normalizer.ParseDate(date); !ok || iso != date {
		return domain.NewValidationError("invoice.date", "must be an ISO date (YYYY-MM-DD)")
	}
	if poDate := strings.TrimSpace(rec.Invoice.PODate); poDate != "" {
		if iso, ok := normalizer.ParseDate(poDate); !ok || iso != poDate {
			return domain.NewValidationError("invoice.poDate", "must be an ISO date (YYYY-MM-DD)")
		}
	}
	return nil
}

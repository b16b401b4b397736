// Package memory provides in-memory repository implementations with the
// same observable semantics as the PostgreSQL ones. They back local
// development (db.driver=memory) and the repository property tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"invox/internal/domain"
	"invox/internal/port"
)

type invoiceRepo struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*domain.InvoiceRecord
}

// NewInvoiceRepo creates an empty in-memory InvoiceRepository.
func NewInvoiceRepo() port.InvoiceRepository {
	return &invoiceRepo{records: make(map[uuid.UUID]*domain.InvoiceRecord)}
}

func (r *invoiceRepo) Upsert(ctx context.Context, rec *domain.InvoiceRecord) (*domain.InvoiceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	saved := cloneRecord(rec)

	if rec.ID == uuid.Nil {
		saved.ID = uuid.New()
		saved.CreatedAt = now
		saved.UpdatedAt = now
		r.records[saved.ID] = saved
		return cloneRecord(saved), nil
	}

	existing, ok := r.records[rec.ID]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	saved.CreatedAt = existing.CreatedAt
	saved.UpdatedAt = now
	r.records[saved.ID] = saved
	return cloneRecord(saved), nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	return cloneRecord(rec), nil
}

func (r *invoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return domain.ErrInvoiceNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *invoiceRepo) Search(ctx context.Context, query string) ([]domain.InvoiceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	matches := make([]domain.InvoiceRecord, 0, len(r.records))
	for _, rec := range r.records {
		if needle == "" ||
			strings.Contains(strings.ToLower(rec.Vendor.Name), needle) ||
			strings.Contains(strings.ToLower(rec.Invoice.Number), needle) {
			matches = append(matches, *cloneRecord(rec))
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].UpdatedAt.Equal(matches[j].UpdatedAt) {
			return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
		}
		return matches[i].ID.String() < matches[j].ID.String()
	})
	return matches, nil
}

// cloneRecord deep-copies a record so callers never share memory with the
// stored value.
func cloneRecord(rec *domain.InvoiceRecord) *domain.InvoiceRecord {
	out := *rec
	if rec.FileID != nil {
		id := *rec.FileID
		out.FileID = &id
	}
	out.Invoice.Subtotal = cloneFloat(rec.Invoice.Subtotal)
	out.Invoice.TaxPercent = cloneFloat(rec.Invoice.TaxPercent)
	out.Invoice.Total = cloneFloat(rec.Invoice.Total)
	if rec.Invoice.LineItems != nil {
		items := make([]domain.LineItem, len(rec.Invoice.LineItems))
		copy(items, rec.Invoice.LineItems)
		out.Invoice.LineItems = items
	}
	return &out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}

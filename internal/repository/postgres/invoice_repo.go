package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"invox/internal/domain"
	"invox/internal/port"
)

// invoiceRow is the flat table shape of an invoice record. Vendor and
// invoice payloads live in JSONB columns; vendor_name and invoice_number
// are denormalized for search.
type invoiceRow struct {
	ID            uuid.UUID       `db:"id"`
	FileID        *uuid.UUID      `db:"file_id"`
	FileName      string          `db:"file_name"`
	VendorName    string          `db:"vendor_name"`
	InvoiceNumber string          `db:"invoice_number"`
	Vendor        json.RawMessage `db:"vendor"`
	Invoice       json.RawMessage `db:"invoice"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func toRow(rec *domain.InvoiceRecord) (*invoiceRow, error) {
	vendorJSON, err := json.Marshal(rec.Vendor)
	if err != nil {
		return nil, fmt.Errorf("marshaling vendor: %w", err)
	}
	invoiceJSON, err := json.Marshal(rec.Invoice)
	if err != nil {
		return nil, fmt.Errorf("marshaling invoice: %w", err)
	}
	return &invoiceRow{
		ID:            rec.ID,
		FileID:        rec.FileID,
		FileName:      rec.FileName,
		VendorName:    rec.Vendor.Name,
		InvoiceNumber: rec.Invoice.Number,
		Vendor:        vendorJSON,
		Invoice:       invoiceJSON,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}, nil
}

func (r *invoiceRow) toDomain() (*domain.InvoiceRecord, error) {
	rec := &domain.InvoiceRecord{
		ID:        r.ID,
		FileID:    r.FileID,
		FileName:  r.FileName,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if err := json.Unmarshal(r.Vendor, &rec.Vendor); err != nil {
		return nil, fmt.Errorf("unmarshaling vendor: %w", err)
	}
	if err := json.Unmarshal(r.Invoice, &rec.Invoice); err != nil {
		return nil, fmt.Errorf("unmarshaling invoice: %w", err)
	}
	return rec, nil
}

type invoiceRepo struct {
	db *sqlx.DB
}

// NewInvoiceRepo creates a new PostgreSQL-backed InvoiceRepository.
func NewInvoiceRepo(db *sqlx.DB) port.InvoiceRepository {
	return &invoiceRepo{db: db}
}

func (r *invoiceRepo) Upsert(ctx context.Context, rec *domain.InvoiceRecord) (*domain.InvoiceRecord, error) {
	now := time.Now().UTC()
	saved := *rec

	if rec.ID == uuid.Nil {
		saved.ID = uuid.New()
		saved.CreatedAt = now
		saved.UpdatedAt = now
		row, err := toRow(&saved)
		if err != nil {
			return nil, err
		}
		_, err = r.db.ExecContext(ctx, `INSERT INTO invoices (
			id, file_id, file_name, vendor_name, invoice_number,
			vendor, invoice, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			row.ID, row.FileID, row.FileName, row.VendorName, row.InvoiceNumber,
			row.Vendor, row.Invoice, row.CreatedAt, row.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("invoiceRepo.Upsert insert: %w", err)
		}
		return &saved, nil
	}

	saved.UpdatedAt = now
	row, err := toRow(&saved)
	if err != nil {
		return nil, err
	}
	var createdAt time.Time
	err = r.db.QueryRowxContext(ctx, `UPDATE invoices SET
		file_id = $1, file_name = $2, vendor_name = $3, invoice_number = $4,
		vendor = $5, invoice = $6, updated_at = $7
	 WHERE id = $8 RETURNING created_at`,
		row.FileID, row.FileName, row.VendorName, row.InvoiceNumber,
		row.Vendor, row.Invoice, row.UpdatedAt, row.ID).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.Upsert update: %w", err)
	}
	saved.CreatedAt = createdAt
	return &saved, nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	var row invoiceRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM invoices WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.GetByID: %w", err)
	}
	return row.toDomain()
}

func (r *invoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM invoices WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

func (r *invoiceRepo) Search(ctx context.Context, query string) ([]domain.InvoiceRecord, error) {
	var rows []invoiceRow
	var err error

	query = strings.TrimSpace(query)
	if query == "" {
		err = r.db.SelectContext(ctx, &rows,
			"SELECT * FROM invoices ORDER BY updated_at DESC, id")
	} else {
		pattern := "%" + escapeLike(query) + "%"
		err = r.db.SelectContext(ctx, &rows,
			`SELECT * FROM invoices
			 WHERE vendor_name ILIKE $1 ESCAPE '\' OR invoice_number ILIKE $1 ESCAPE '\'
			 ORDER BY updated_at DESC, id`, pattern)
	}
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.Search: %w", err)
	}

	recs := make([]domain.InvoiceRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("invoiceRepo.Search: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, nil
}

// escapeLike neutralizes LIKE wildcards so a user query is matched literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

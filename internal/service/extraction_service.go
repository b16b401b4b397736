package service

import (
	"context"
	"log"

	"github.com/google/uuid"

	"invox/internal/domain"
	"invox/internal/pipeline"
	"invox/internal/port"
)

// ExtractionService runs the extraction pipeline for an uploaded document.
type ExtractionService interface {
	Extract(ctx context.Context, fileID uuid.UUID, model string, mergeRecordID *uuid.UUID) (*pipeline.Result, error)
}

type extractionService struct {
	orchestrator *pipeline.Orchestrator
	invoiceRepo  port.InvoiceRepository
}

// NewExtractionService creates a new ExtractionService implementation.
func NewExtractionService(orchestrator *pipeline.Orchestrator, invoiceRepo port.InvoiceRepository) ExtractionService {
	return &extractionService{
		orchestrator: orchestrator,
		invoiceRepo:  invoiceRepo,
	}
}

// Extract runs one extraction request. When mergeRecordID names a previously
// saved record, its reviewed values take precedence over fresh extraction
// output and the result keeps that record's identity.
func (s *extractionService) Extract(ctx context.Context, fileID uuid.UUID, model string, mergeRecordID *uuid.UUID) (*pipeline.Result, error) {
	var prior *domain.InvoiceRecord
	if mergeRecordID != nil {
		rec, err := s.invoiceRepo.GetByID(ctx, *mergeRecordID)
		if err != nil {
			return nil, err
		}
		prior = rec
	}

	log.Printf("extractionService.Extract: running extraction for file %s (model %q)", fileID, model)
	return s.orchestrator.Run(ctx, fileID, model, prior)
}

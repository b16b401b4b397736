package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"invox/internal/service"
)

// ExtractHandler handles extraction pipeline endpoints.
type ExtractHandler struct {
	extractionService service.ExtractionService
}

// NewExtractHandler creates a new ExtractHandler.
func NewExtractHandler(extractionService service.ExtractionService) *ExtractHandler {
	return &ExtractHandler{extractionService: extractionService}
}

// extractRequest is the body for POST /api/v1/extractions. Model is an
// opaque selector resolved server-side; empty means the configured default.
// MergeRecordID, when set, names a saved record whose reviewed values win
// over fresh extraction output.
type extractRequest struct {
	FileID        string  `json:"file_id" binding:"required"`
	Model         string  `json:"model"`
	MergeRecordID *string `json:"merge_record_id"`
}

// Extract handles POST /api/v1/extractions
func (h *ExtractHandler) Extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "file_id is required")
		return
	}

	fileID, err := uuid.Parse(req.FileID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid file ID")
		return
	}

	var mergeRecordID *uuid.UUID
	if req.MergeRecordID != nil && *req.MergeRecordID != "" {
		id, err := uuid.Parse(*req.MergeRecordID)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid merge record ID")
			return
		}
		mergeRecordID = &id
	}

	result, err := h.extractionService.Extract(c.Request.Context(), fileID, req.Model, mergeRecordID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, result)
}

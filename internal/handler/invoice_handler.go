package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"invox/internal/domain"
	"invox/internal/export"
	"invox/internal/service"
)

// InvoiceHandler handles reviewed-invoice persistence endpoints.
type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// Save handles POST /api/v1/invoices. The body is a full invoice record; a
// zero or missing id inserts a new record, a known id updates it in place.
func (h *InvoiceHandler) Save(c *gin.Context) {
	var rec domain.InvoiceRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "request body is not a valid invoice record")
		return
	}

	saved, err := h.invoiceService.Save(c.Request.Context(), &rec)
	if err != nil {
		HandleError(c, err)
		return
	}

	if rec.ID == uuid.Nil {
		RespondCreated(c, saved)
		return
	}
	RespondOK(c, saved)
}

// Update handles PUT /api/v1/invoices/:id. The path id wins over any id in
// the body.
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid invoice ID")
		return
	}

	var rec domain.InvoiceRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "request body is not a valid invoice record")
		return
	}
	rec.ID = id

	saved, err := h.invoiceService.Save(c.Request.Context(), &rec)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, saved)
}

// GetByID handles GET /api/v1/invoices/:id
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid invoice ID")
		return
	}

	rec, err := h.invoiceService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, rec)
}

// Delete handles DELETE /api/v1/invoices/:id
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid invoice ID")
		return
	}

	if err := h.invoiceService.Delete(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "invoice deleted"})
}

// Search handles GET /api/v1/invoices. An empty q returns every record,
// most recently updated first.
func (h *InvoiceHandler) Search(c *gin.Context) {
	recs, err := h.invoiceService.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, recs)
}

// Export handles GET /api/v1/invoices/export?format=csv|xlsx. The optional
// q parameter narrows the export the same way it narrows search.
func (h *InvoiceHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv or xlsx")
		return
	}

	recs, err := h.invoiceService.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		HandleError(c, err)
		return
	}

	if format == "xlsx" {
		data, err := export.WriteXLSX(recs)
		if err != nil {
			HandleError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+export.BuildFilename("invoices", "xlsx")+`"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.BuildFilename("invoices", "csv")+`"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)

	_, _ = c.Writer.Write(export.BOM)
	w := export.NewCSVWriter(c.Writer)
	if err := w.WriteHeader(); err != nil {
		return
	}
	if err := w.WriteRecords(recs); err != nil {
		return
	}
	w.Flush()
}

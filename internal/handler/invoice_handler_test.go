package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invox/internal/domain"
	"invox/internal/handler"
	"invox/internal/repository/memory"
	"invox/internal/service"
)

func newTestRouter(t *testing.T) (*gin.Engine, service.InvoiceService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := service.NewInvoiceService(memory.NewInvoiceRepo())
	h := handler.NewInvoiceHandler(svc)

	r := gin.New()
	invoices := r.Group("/api/v1/invoices")
	invoices.POST("", h.Save)
	invoices.GET("", h.Search)
	invoices.GET("/export", h.Export)
	invoices.GET("/:id", h.GetByID)
	invoices.PUT("/:id", h.Update)
	invoices.DELETE("/:id", h.Delete)
	return r, svc
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func validBody() map[string]any {
	return map[string]any{
		"vendor": map[string]any{"name": "Acme Co"},
		"invoice": map[string]any{
			"number": "INV-1",
			"date":   "2024-03-14",
			"lineItems": []map[string]any{
				{"description": "Widget", "unitPrice": 10, "quantity": 2, "total": 20},
			},
		},
	}
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestInvoiceSave_Created(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/invoices", validBody())
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decodeEnvelope(t, w)
	assert.Equal(t, true, resp["success"])
	data := resp["data"].(map[string]any)
	assert.NotEmpty(t, data["id"])
	assert.Equal(t, "Acme Co", data["vendor"].(map[string]any)["name"])
}

func TestInvoiceSave_MissingRequiredFieldIs422(t *testing.T) {
	r, _ := newTestRouter(t)

	body := validBody()
	body["vendor"] = map[string]any{"name": ""}

	w := doJSON(t, r, http.MethodPost, "/api/v1/invoices", body)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	resp := decodeEnvelope(t, w)
	assert.Equal(t, false, resp["success"])
	apiErr := resp["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_FAILED", apiErr["code"])
	assert.Equal(t, "vendor.name", apiErr["field"])
}

func TestInvoiceGet_NotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/invoices/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	resp := decodeEnvelope(t, w)
	assert.Equal(t, "INVOICE_NOT_FOUND", resp["error"].(map[string]any)["code"])
}

func TestInvoiceGet_InvalidID(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/invoices/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvoiceUpdate_PathIDWins(t *testing.T) {
	r, svc := newTestRouter(t)

	saved, err := svc.Save(t.Context(), &domain.InvoiceRecord{
		Vendor:  domain.Vendor{Name: "Acme Co"},
		Invoice: domain.InvoiceDetail{Number: "INV-1", Date: "2024-03-14"},
	})
	require.NoError(t, err)

	body := validBody()
	body["id"] = uuid.NewString() // ignored in favor of the path id
	body["vendor"] = map[string]any{"name": "Acme Corporation"}

	w := doJSON(t, r, http.MethodPut, "/api/v1/invoices/"+saved.ID.String(), body)
	require.Equal(t, http.StatusOK, w.Code)

	got, err := svc.GetByID(t.Context(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corporation", got.Vendor.Name)
}

func TestInvoiceUpdate_NonISODateIs422(t *testing.T) {
	r, svc := newTestRouter(t)

	saved, err := svc.Save(t.Context(), &domain.InvoiceRecord{
		Vendor:  domain.Vendor{Name: "Acme Co"},
		Invoice: domain.InvoiceDetail{Number: "INV-1", Date: "2024-03-14"},
	})
	require.NoError(t, err)

	body := validBody()
	body["invoice"].(map[string]any)["date"] = "next tuesday"

	w := doJSON(t, r, http.MethodPut, "/api/v1/invoices/"+saved.ID.String(), body)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	resp := decodeEnvelope(t, w)
	assert.Equal(t, "invoice.date", resp["error"].(map[string]any)["field"])

	// The stored record keeps its ISO date.
	got, err := svc.GetByID(t.Context(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-14", got.Invoice.Date)
}

func TestInvoiceDeleteThenGet(t *testing.T) {
	r, svc := newTestRouter(t)

	saved, err := svc.Save(t.Context(), &domain.InvoiceRecord{
		Vendor:  domain.Vendor{Name: "Acme Co"},
		Invoice: domain.InvoiceDetail{Number: "INV-1", Date: "2024-03-14"},
	})
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodDelete, "/api/v1/invoices/"+saved.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/invoices/"+saved.ID.String(), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvoiceSearch(t *testing.T) {
	r, svc := newTestRouter(t)

	for _, rec := range []*domain.InvoiceRecord{
		{Vendor: domain.Vendor{Name: "Acme Supplies"}, Invoice: domain.InvoiceDetail{Number: "INV-100", Date: "2024-03-14"}},
		{Vendor: domain.Vendor{Name: "Globex"}, Invoice: domain.InvoiceDetail{Number: "ACM-7", Date: "2024-03-14"}},
	} {
		_, err := svc.Save(t.Context(), rec)
		require.NoError(t, err)
	}

	w := doJSON(t, r, http.MethodGet, "/api/v1/invoices?q=acm", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	assert.Len(t, resp["data"].([]any), 2)

	w = doJSON(t, r, http.MethodGet, "/api/v1/invoices?q=globex", nil)
	resp = decodeEnvelope(t, w)
	assert.Len(t, resp["data"].([]any), 1)
}

func TestInvoiceExport_CSV(t *testing.T) {
	r, svc := newTestRouter(t)

	_, err := svc.Save(t.Context(), &domain.InvoiceRecord{
		Vendor:  domain.Vendor{Name: "Acme Co"},
		Invoice: domain.InvoiceDetail{Number: "INV-1", Date: "2024-03-14"},
	})
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, "/api/v1/invoices/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	body := w.Body.Bytes()
	// UTF-8 BOM then the header row.
	require.True(t, bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, string(body), "Vendor Name")
	assert.Contains(t, string(body), "Acme Co")
}

func TestInvoiceExport_InvalidFormat(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/invoices/export?format=docx", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

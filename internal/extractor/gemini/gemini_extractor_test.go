package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invox/internal/config"
	"invox/internal/extractor"
	"invox/internal/extractor/gemini"
	"invox/internal/port"
)

func newTestExtractor(serverURL string) *gemini.Extractor {
	cfg := &config.ProviderConfig{
		APIKey:       "test-gemini-key",
		DefaultModel: "gemini-2.0-flash",
	}
	return gemini.NewWithEndpoint(cfg, 30*time.Second, serverURL)
}

func successResponse(text string) map[string]interface{} {
	return map[string]interface{}{
		"candidates": []map[string]interface{}{
			{
				"content": map[string]interface{}{
					"role": "model",
					"parts": []map[string]interface{}{
						{"text": text},
					},
				},
				"finishReason": "STOP",
			},
		},
	}
}

func TestExtract_PDF_Success(t *testing.T) {
	modelJSON := `{"vendor":{"name":"Acme Co"},"invoice":{"number":"INV-1","date":"2024-03-14"}}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-gemini-key", r.Header.Get("x-goog-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))

		contents := reqBody["contents"].([]interface{})
		require.Len(t, contents, 1)
		msg := contents[0].(map[string]interface{})
		assert.Equal(t, "user", msg["role"])

		parts := msg["parts"].([]interface{})
		require.Len(t, parts, 2)

		dataPart := parts[0].(map[string]interface{})
		inlineData := dataPart["inline_data"].(map[string]interface{})
		assert.Equal(t, "application/pdf", inlineData["mime_type"])
		assert.NotEmpty(t, inlineData["data"])

		textPart := parts[1].(map[string]interface{})
		assert.NotEmpty(t, textPart["text"])

		genConfig := reqBody["generationConfig"].(map[string]interface{})
		assert.Equal(t, "application/json", genConfig["responseMimeType"])

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(successResponse(modelJSON))
	}))
	defer server.Close()

	e := newTestExtractor(server.URL)
	out, err := e.Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("%PDF-1.4 test content"),
		ContentType: "application/pdf",
	})

	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", out.ModelUsed)
	assert.JSONEq(t, modelJSON, string(out.Raw))
}

func TestExtract_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer server.Close()

	e := newTestExtractor(server.URL)
	_, err := e.Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("%PDF-1.4"),
		ContentType: "application/pdf",
	})

	var rlErr *extractor.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, "gemini", rlErr.Provider)
	assert.Equal(t, 7*time.Second, rlErr.RetryAfter)
}

func TestExtract_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	e := newTestExtractor(server.URL)
	_, err := e.Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("%PDF-1.4"),
		ContentType: "application/pdf",
	})

	var beErr *extractor.BackendError
	require.ErrorAs(t, err, &beErr)
	assert.Equal(t, http.StatusInternalServerError, beErr.StatusCode)
}

func TestExtract_NonJSONModelOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(successResponse("Sure! Here is the invoice data you asked for:"))
	}))
	defer server.Close()

	e := newTestExtractor(server.URL)
	_, err := e.Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("%PDF-1.4"),
		ContentType: "application/pdf",
	})

	var beErr *extractor.BackendError
	require.ErrorAs(t, err, &beErr)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestExtract_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	e := newTestExtractor(server.URL)
	_, err := e.Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("%PDF-1.4"),
		ContentType: "application/pdf",
	})

	var beErr *extractor.BackendError
	require.ErrorAs(t, err, &beErr)
}

func TestExtract_UnsupportedContentType(t *testing.T) {
	e := newTestExtractor("http://unused")
	_, err := e.Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("GIF89a"),
		ContentType: "image/gif",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported content type")
}

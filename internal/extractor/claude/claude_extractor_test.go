package claude_test

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
	"invox/internal/extractor/claude"
	"invox/internal/port"
)

func newTestExtractor(serverURL string) *claude.Extractor {
	cfg := &config.ProviderConfig{
		APIKey:       "test-claude-key",
		DefaultModel: "claude-sonnet-4-20250514",
	}
	return claude.NewWithEndpoint(cfg, 30*time.Second, serverURL)
}

func successResponse(text string) map[string]interface{} {
	return map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
		"stop_reason": "end_turn",
	}
}

func TestExtract_PDF_Success(t *testing.T) {
	modelJSON := `{"vendor":{"name":"Acme Co"},"invoice":{"number":"INV-1","date":"2024-03-14"}}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-claude-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "claude-sonnet-4-20250514", reqBody["model"])

		messages := reqBody["messages"].([]interface{})
		require.Len(t, messages, 1)
		content := messages[0].(map[string]interface{})["content"].([]interface{})
		require.Len(t, content, 2)

		docBlock := content[0].(map[string]interface{})
		assert.Equal(t, "document", docBlock["type"])
		source := docBlock["source"].(map[string]interface{})
		assert.Equal(t, "base64", source["type"])
		assert.Equal(t, "application/pdf", source["media_type"])

		textBlock := content[1].(map[string]interface{})
		assert.Equal(t, "text", textBlock["type"])
		assert.NotEmpty(t, textBlock["text"])

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
	assert.Equal(t, "claude-sonnet-4-20250514", out.ModelUsed)
	assert.JSONEq(t, modelJSON, string(out.Raw))
}

func TestExtract_ImageUsesImageBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		content := reqBody["messages"].([]interface{})[0].(map[string]interface{})["content"].([]interface{})
		block := content[0].(map[string]interface{})
		assert.Equal(t, "image", block["type"])
		assert.Equal(t, "image/png", block["source"].(map[string]interface{})["media_type"])

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(successResponse(`{"vendor":{"name":"A"},"invoice":{"number":"1","date":"2024-01-01"}}`))
	}))
	defer server.Close()

	e := newTestExtractor(server.URL)
	_, err := e.Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte{0x89, 'P', 'N', 'G'},
		ContentType: "image/png",
	})
	require.NoError(t, err)
}

func TestExtract_TruncatedOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content":     []map[string]interface{}{{"type": "text", "text": `{"vendor":`}},
			"stop_reason": "max_tokens",
		})
	}))
	defer server.Close()

	e := newTestExtractor(server.URL)
	_, err := e.Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("%PDF-1.4"),
		ContentType: "application/pdf",
	})

	var beErr *extractor.BackendError
	require.ErrorAs(t, err, &beErr)
	assert.Contains(t, err.Error(), "max_tokens")
}

func TestExtract_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error"}}`))
	}))
	defer server.Close()

	e := newTestExtractor(server.URL)
	_, err := e.Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("%PDF-1.4"),
		ContentType: "application/pdf",
	})

	var rlErr *extractor.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, "claude", rlErr.Provider)
	assert.Equal(t, 12*time.Second, rlErr.RetryAfter)
}

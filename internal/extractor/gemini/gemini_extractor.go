package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"invox/internal/config"
	"invox/internal/extractor"
	"invox/internal/port"
)

const apiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Extractor implements port.Extractor using Google's Gemini API.
type Extractor struct {
	apiKey       string
	defaultModel string
	endpoint     string
	client       *http.Client
}

// New creates a Gemini-based invoice extractor.
func New(cfg *config.ProviderConfig, timeout time.Duration) *Extractor {
	return newExtractor(cfg, timeout, "")
}

// NewWithEndpoint creates an extractor pointing at a custom API endpoint (for testing).
func NewWithEndpoint(cfg *config.ProviderConfig, timeout time.Duration, endpoint string) *Extractor {
	return newExtractor(cfg, timeout, endpoint)
}

func newExtractor(cfg *config.ProviderConfig, timeout time.Duration, endpoint string) *Extractor {
	model := cfg.DefaultModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Extractor{
		apiKey:       cfg.APIKey,
		defaultModel: model,
		endpoint:     endpoint,
		client:       &http.Client{Timeout: timeout},
	}
}

func (e *Extractor) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	mimeType, err := toGeminiMimeType(input.ContentType)
	if err != nil {
		return nil, err
	}

	model := input.Model
	if model == "" || model == "gemini" {
		model = e.defaultModel
	}
	endpoint := e.endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/%s:generateContent", apiBaseURL, model)
	}

	encoded := base64.StdEncoding.EncodeToString(input.FileBytes)
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"role": "user",
				"parts": []map[string]interface{}{
					{
						"inline_data": map[string]interface{}{
							"mime_type": mimeType,
							"data":      encoded,
						},
					},
					{
						"text": extractor.BuildInvoicePrompt(),
					},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
			"maxOutputTokens":  16384,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling gemini API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("%s", string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := extractor.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, extractor.NewRateLimitError("gemini", baseErr, retryAfter)
		}
		return nil, &extractor.BackendError{Provider: "gemini", StatusCode: resp.StatusCode, Err: baseErr}
	}

	return parseResponse(respBody, model)
}

func toGeminiMimeType(contentType string) (string, error) {
	switch contentType {
	case "application/pdf", "image/jpeg", "image/png":
		return contentType, nil
	default:
		return "", fmt.Errorf("unsupported content type for extraction: %s", contentType)
	}
}

// geminiResponse models the Gemini API response.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func parseResponse(body []byte, model string) (*port.ExtractOutput, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &extractor.BackendError{Provider: "gemini", Err: fmt.Errorf("unmarshaling response: %w", err)}
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &extractor.BackendError{Provider: "gemini", Err: fmt.Errorf("empty response from API")}
	}

	text := resp.Candidates[0].Content.Parts[0].Text

	// The model must return a bare JSON object; anything else is a backend fault.
	if !json.Valid([]byte(text)) {
		return nil, &extractor.BackendError{
			Provider: "gemini",
			Err:      fmt.Errorf("model output is not valid JSON (raw: %s)", truncate(text, 500)),
		}
	}

	return &port.ExtractOutput{
		Raw:       json.RawMessage(text),
		ModelUsed: model,
	}, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

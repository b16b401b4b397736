package claude

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

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
)

// Extractor implements port.Extractor using the Anthropic Messages API.
type Extractor struct {
	apiKey       string
	defaultModel string
	endpoint     string
	client       *http.Client
}

// New creates a Claude-based invoice extractor.
func New(cfg *config.ProviderConfig, timeout time.Duration) *Extractor {
	return newExtractor(cfg, timeout, apiURL)
}

// NewWithEndpoint creates an extractor pointing at a custom API endpoint (for testing).
func NewWithEndpoint(cfg *config.ProviderConfig, timeout time.Duration, endpoint string) *Extractor {
	return newExtractor(cfg, timeout, endpoint)
}

func newExtractor(cfg *config.ProviderConfig, timeout time.Duration, endpoint string) *Extractor {
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
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
	model := input.Model
	if model == "" || model == "claude" {
		model = e.defaultModel
	}

	contentBlocks, err := buildContentBlocks(input)
	if err != nil {
		return nil, err
	}

	reqBody := map[string]interface{}{
		"model":      model,
		"max_tokens": 16384,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": contentBlocks,
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", e.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling anthropic API: %w", err)
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
			return nil, extractor.NewRateLimitError("claude", baseErr, retryAfter)
		}
		return nil, &extractor.BackendError{Provider: "claude", StatusCode: resp.StatusCode, Err: baseErr}
	}

	return parseResponse(respBody, model)
}

func buildContentBlocks(input port.ExtractInput) ([]map[string]interface{}, error) {
	encoded := base64.StdEncoding.EncodeToString(input.FileBytes)
	var blocks []map[string]interface{}

	switch input.ContentType {
	case "application/pdf":
		blocks = append(blocks, map[string]interface{}{
			"type": "document",
			"source": map[string]interface{}{
				"type":       "base64",
				"media_type": "application/pdf",
				"data":       encoded,
			},
		})
	case "image/jpeg", "image/png":
		blocks = append(blocks, map[string]interface{}{
			"type": "image",
			"source": map[string]interface{}{
				"type":       "base64",
				"media_type": input.ContentType,
				"data":       encoded,
			},
		})
	default:
		return nil, fmt.Errorf("unsupported content type for extraction: %s", input.ContentType)
	}

	blocks = append(blocks, map[string]interface{}{
		"type": "text",
		"text": extractor.BuildInvoicePrompt(),
	})

	return blocks, nil
}

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func parseResponse(body []byte, model string) (*port.ExtractOutput, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &extractor.BackendError{Provider: "claude", Err: fmt.Errorf("unmarshaling response: %w", err)}
	}

	if len(resp.Content) == 0 {
		return nil, &extractor.BackendError{Provider: "claude", Err: fmt.Errorf("empty response from API")}
	}

	if resp.StopReason == "max_tokens" {
		return nil, &extractor.BackendError{
			Provider: "claude",
			Err:      fmt.Errorf("output truncated (stop_reason: max_tokens): response exceeded output token limit"),
		}
	}

	text := resp.Content[0].Text
	if !json.Valid([]byte(text)) {
		return nil, &extractor.BackendError{
			Provider: "claude",
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

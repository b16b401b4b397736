package port

import (
	"context"
	"encoding/json"
)

// ExtractInput carries the document bytes handed to a model backend.
// Model is an opaque selector forwarded to the provider unchanged; an empty
// value means the provider's configured default.
type ExtractInput struct {
	FileBytes   []byte
	ContentType string
	Model       string
}

// ExtractOutput is the raw, unvalidated field mapping a model backend
// produced for a document. Raw is whatever JSON object the model returned;
// the normalizer owns turning it into a canonical record.
type ExtractOutput struct {
	Raw       json.RawMessage
	ModelUsed string
}

// Extractor abstracts a pluggable model backend that converts a document
// into raw structured-ish invoice data.
type Extractor interface {
	Extract(ctx context.Context, input ExtractInput) (*ExtractOutput, error)
}

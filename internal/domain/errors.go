package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrFileNotFound        = errors.New("file not found")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed        = errors.New("file upload to storage failed")
	ErrStorageUnavailable  = errors.New("document storage unavailable")
)

// ValidationError reports that extraction output (or an edited record) is
// missing or has an unusable required field. Field is a dotted path such as
// "vendor.name" or "invoice.date".
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for the given field path.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

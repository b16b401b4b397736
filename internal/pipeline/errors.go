package pipeline

import "fmt"

// ExtractionError indicates the model backend was unreachable or produced
// malformed output after all retries were exhausted. The caller may retry
// manually; nothing has been persisted.
type ExtractionError struct {
	Attempts int
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

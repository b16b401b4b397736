// Package pipeline sequences document fetch, model extraction, and
// normalization for one extraction request. Nothing is persisted here: the
// orchestrator stops at a normalized (or failed) outcome, and saving is an
// explicit, caller-triggered repository operation.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"invox/internal/domain"
	"invox/internal/extractor"
	"invox/internal/normalizer"
	"invox/internal/port"
)

// DocumentSource provides the stored bytes and metadata for an uploaded
// document.
type DocumentSource interface {
	Fetch(ctx context.Context, fileID uuid.UUID) (*domain.FileMeta, []byte, error)
}

// ExtractorResolver maps an opaque model selector to an extraction backend.
type ExtractorResolver interface {
	Resolve(selector string) (port.Extractor, error)
}

// Options tune the retry and timeout behavior of one orchestrator.
type Options struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// CallTimeout bounds a single extraction call.
	CallTimeout time.Duration
	// BackoffBase is the first retry delay; each retry doubles it.
	BackoffBase time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 120 * time.Second
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 500 * time.Millisecond
	}
	return o
}

// Result is the outcome of one extraction request that made it through
// normalization. The record is unsaved: no ID, no timestamps.
type Result struct {
	State  domain.ExtractionState `json:"state"`
	Record *domain.InvoiceRecord  `json:"record"`
	Notes  []string               `json:"notes,omitempty"`
	Model  string                 `json:"model"`
}

// Orchestrator runs the upload→extract→normalize pipeline. It is safe for
// concurrent use; each Run is independent.
type Orchestrator struct {
	source   DocumentSource
	resolver ExtractorResolver
	cache    ExtractionCache
	opts     Options
}

// New creates an Orchestrator. cache may be nil to disable extraction
// output caching.
func New(source DocumentSource, resolver ExtractorResolver, cache ExtractionCache, opts Options) *Orchestrator {
	return &Orchestrator{
		source:   source,
		resolver: resolver,
		cache:    cache,
		opts:     opts.withDefaults(),
	}
}

// Run executes one extraction request for a stored document and returns the
// normalized outcome. prior, when non-nil, is a previously saved record for
// the same document whose manual edits take precedence over fresh
// extraction output.
//
// Errors map onto the pipeline failure states: *domain.ValidationError when
// the extraction produced unusable data, *ExtractionError when the backend
// failed after retries, domain.ErrFileNotFound / domain.ErrStorageUnavailable
// when the document could not be fetched. Cancelling ctx stops the retry
// loop; an already-dispatched call may finish and is discarded.
func (o *Orchestrator) Run(ctx context.Context, fileID uuid.UUID, modelSelector string, prior *domain.InvoiceRecord) (*Result, error) {
	ext, err := o.resolver.Resolve(modelSelector)
	if err != nil {
		return nil, domain.NewValidationError("model", err.Error())
	}

	meta, fileBytes, err := o.source.Fetch(ctx, fileID)
	if err != nil {
		return nil, err
	}

	mapping, modelUsed, err := o.extract(ctx, ext, fileID, modelSelector, port.ExtractInput{
		FileBytes:   fileBytes,
		ContentType: meta.ContentType,
		Model:       modelSelector,
	})
	if err != nil {
		return nil, err
	}

	rec, notes, err := normalizer.Normalize(mapping)
	if err != nil {
		return nil, err
	}

	id := fileID
	rec.FileID = &id
	rec.FileName = meta.OriginalName

	if prior != nil {
		rec = MergeWithPrior(rec, prior)
	}

	return &Result{
		State:  domain.ExtractionStateNormalized,
		Record: rec,
		Notes:  notes,
		Model:  modelUsed,
	}, nil
}

// extract performs the bounded retry loop around the model backend,
// consulting the cache first. Only the extraction call itself is retried;
// fetch and normalization failures are never transient. A response that
// decodes to something other than a JSON object counts as a failed attempt
// and is never cached, so a backend that returns e.g. a bare array gets the
// same retry treatment as a 5xx.
func (o *Orchestrator) extract(ctx context.Context, ext port.Extractor, fileID uuid.UUID, selector string, input port.ExtractInput) (map[string]any, string, error) {
	cacheKey := fileID.String() + "|" + strings.ToLower(strings.TrimSpace(selector))
	if o.cache != nil {
		if entry, ok := o.cache.Get(cacheKey); ok {
			var mapping map[string]any
			if err := json.Unmarshal(entry.Raw, &mapping); err == nil {
				log.Printf("pipeline.extract: cache hit for file %s (model %q)", fileID, selector)
				return mapping, entry.ModelUsed, nil
			}
		}
	}

	attempts := o.opts.MaxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, o.opts.CallTimeout)
		out, err := ext.Extract(callCtx, input)
		cancel()

		if err == nil {
			var mapping map[string]any
			if uerr := json.Unmarshal(out.Raw, &mapping); uerr != nil {
				err = fmt.Errorf("extraction output is not an object: %w", uerr)
			} else {
				if o.cache != nil {
					o.cache.Put(cacheKey, CachedExtraction{Raw: out.Raw, ModelUsed: out.ModelUsed})
				}
				return mapping, out.ModelUsed, nil
			}
		}

		lastErr = err
		log.Printf("pipeline.extract: attempt %d/%d for file %s failed: %v", attempt, attempts, fileID, err)

		if attempt == attempts {
			break
		}
		if err := o.wait(ctx, backoffDelay(o.opts.BackoffBase, attempt, err)); err != nil {
			return nil, "", err
		}
	}

	return nil, "", &ExtractionError{Attempts: attempts, Err: lastErr}
}

// wait sleeps for delay or until ctx is cancelled, whichever comes first.
func (o *Orchestrator) wait(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoffDelay doubles the base delay per attempt. A rate-limited provider
// that asked for a longer pause gets it.
func backoffDelay(base time.Duration, attempt int, err error) time.Duration {
	delay := base << (attempt - 1)
	var rlErr *extractor.RateLimitError
	if errors.As(err, &rlErr) && rlErr.RetryAfter > delay {
		delay = rlErr.RetryAfter
	}
	return delay
}

package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the query-safety and prompt layers. Callers test
// them with errors.Is.
var (
	// ErrSQLSafetyViolation means a statement other than a read-only
	// SELECT was presented to the query gate. Never retried verbatim.
	ErrSQLSafetyViolation = errors.New("sql safety violation: only SELECT statements are permitted")

	// ErrSQLExecutionTimeout means a read-only statement exceeded the
	// gate's execution bound.
	ErrSQLExecutionTimeout = errors.New("sql execution timeout")

	// ErrPromptResolution means neither the remote prompt store nor the
	// local fallback could supply the named template.
	ErrPromptResolution = errors.New("prompt template could not be resolved")
)

// UpstreamLLMError reports model output that could not be parsed into
// the expected structure. RawPrefix keeps a bounded slice of the raw
// text for diagnostics.
type UpstreamLLMError struct {
	Reason    string
	RawPrefix string
}

func (e *UpstreamLLMError) Error() string {
	if e.RawPrefix == "" {
		return fmt.Sprintf("upstream llm error: %s", e.Reason)
	}
	return fmt.Sprintf("upstream llm error: %s (output prefix: %q)", e.Reason, e.RawPrefix)
}

const rawPrefixLimit = 200

// NewUpstreamLLMError builds an UpstreamLLMError, truncating raw to a
// bounded prefix.
func NewUpstreamLLMError(reason string, raw string) *UpstreamLLMError {
	if len(raw) > rawPrefixLimit {
		raw = raw[:rawPrefixLimit]
	}
	return &UpstreamLLMError{Reason: reason, RawPrefix: raw}
}

// GenerationExhaustedError reports that a quiz game could not be fully
// generated after all retries and candidate-buffer exhaustion.
type GenerationExhaustedError struct {
	Completed int
	Requested int
	LastErr   error
}

func (e *GenerationExhaustedError) Error() string {
	return fmt.Sprintf("quiz generation exhausted: completed %d of %d rounds", e.Completed, e.Requested)
}

func (e *GenerationExhaustedError) Unwrap() error { return e.LastErr }

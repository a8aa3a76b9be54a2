package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no tier of the store holds the requested
// record. It is a normal outcome callers branch on, not a failure.
var ErrNotFound = errors.New("record not found")

// ExtractionFailure means structured parsing found nothing usable in a model
// completion. Recoverable: callers substitute a policy-defined fallback.
// Raw carries the original text for diagnostics.
type ExtractionFailure struct {
	Shape  string
	Reason string
	Raw    string
}

func (e *ExtractionFailure) Error() string {
	return fmt.Sprintf("extraction failed (%s): %s", e.Shape, e.Reason)
}

// RemoteFailure means a backing capability returned an explicit failure.
// Recoverable for transcription, entities and per-kind understanding;
// fatal at the embedding step.
type RemoteFailure struct {
	Op      string
	Message string
}

func (e *RemoteFailure) Error() string {
	return fmt.Sprintf("%s: remote failure: %s", e.Op, e.Message)
}

// TimeoutError means an async job stayed non-terminal past the allotted wait.
// Callers treat it exactly like a RemoteFailure.
type TimeoutError struct {
	Op     string
	Waited time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Op, e.Waited)
}

// DimensionMismatch means an embedding vector's length does not equal the
// configured model dimension. Always fatal, never coerced: it signals a
// silent model or config change that must not reach the search index.
type DimensionMismatch struct {
	Kind EmbeddingKind
	Got  int
	Want int
}

func (e *DimensionMismatch) Error() string {
	return fmt.Sprintf("embedding %q has dimension %d, want %d", e.Kind, e.Got, e.Want)
}

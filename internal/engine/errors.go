package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrStageTimeout is the cause of a stage that exceeded its time budget.
	ErrStageTimeout = errors.New("stage timed out")
	// ErrRunCancelled is the cause of a stage interrupted by run cancellation.
	ErrRunCancelled = errors.New("run cancelled")
	// ErrInvalidUpdate is the cause of a stage whose result cannot be merged.
	ErrInvalidUpdate = errors.New("invalid stage update")
	// ErrStagePanic is the cause of a stage whose work function panicked.
	ErrStagePanic = errors.New("stage panicked")
)

// InvalidInputError rejects a run before any stage starts.
type InvalidInputError struct {
	Input  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Input, e.Reason)
}

// GraphDefinitionError reports a malformed stage topology at build time.
type GraphDefinitionError struct {
	Stage  string
	Reason string
}

func (e *GraphDefinitionError) Error() string {
	if e.Stage == "" {
		return "graph definition: " + e.Reason
	}
	return fmt.Sprintf("graph definition: stage %q: %s", e.Stage, e.Reason)
}

func graphErrorf(stage, format string, args ...any) error {
	return &GraphDefinitionError{Stage: stage, Reason: fmt.Sprintf(format, args...)}
}

// StageExecutionError is the failure of a single stage. The engine wraps
// every stage failure in one, whatever the stage returned.
type StageExecutionError struct {
	Stage string
	Err   error
}

func (e *StageExecutionError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageExecutionError) Unwrap() error { return e.Err }

// FetchError means the content fetcher could not return the page text.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionError means structured extraction failed or returned a value
// that does not satisfy the document schema.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// GenerationError means a text-generation call failed to open or broke mid-stream.
type GenerationError struct {
	Prompt string
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation %s: %v", e.Prompt, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// FailedStage returns the stage name carried by err, if any.
func FailedStage(err error) (string, bool) {
	var se *StageExecutionError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

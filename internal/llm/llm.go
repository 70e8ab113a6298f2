// Package llm is the text-generation collaborator: structured extraction
// and streamed prompt completion over Anthropic or OpenAI-compatible APIs.
package llm

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Generator is the capability the pipeline stages need from a model.
type Generator interface {
	// ExtractStructured asks the model to fill schema from raw page content
	// and returns the resulting JSON object.
	ExtractStructured(ctx context.Context, raw string, schema Schema) (json.RawMessage, error)
	// Generate renders promptID with vars and streams the completion.
	Generate(ctx context.Context, promptID string, vars map[string]string) (TextStream, error)
}

// TextStream is a finite, non-restartable sequence of text chunks.
//
//	for s.Next() {
//		use(s.Chunk())
//	}
//	if err := s.Err(); err != nil { ... }
type TextStream interface {
	Next() bool
	Chunk() string
	Err() error
	Close() error
}

// Settings are the per-request model parameters shared by both backends.
type Settings struct {
	Model       string
	Temperature float64
	MaxTokens   int64
	// PromptCacheTTL adds a cache breakpoint to system prompts (Anthropic only).
	PromptCacheTTL string
}

func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "llm: rate limiter wait")
	}
	return nil
}

// Package llmtest provides in-memory llm doubles for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mydailyprop/internal/llm"
)

// Stream replays fixed chunks, then reports Err.
type Stream struct {
	parts  []string
	pos    int
	err    error
	closed atomic.Bool
}

// NewStream returns a stream yielding parts in order.
func NewStream(parts ...string) *Stream {
	return &Stream{parts: parts}
}

// WithError makes the stream fail with err after its parts.
func (s *Stream) WithError(err error) *Stream {
	s.err = err
	return s
}

// Next implements llm.TextStream.
func (s *Stream) Next() bool {
	if s.pos >= len(s.parts) {
		return false
	}
	s.pos++
	return true
}

// Chunk implements llm.TextStream.
func (s *Stream) Chunk() string {
	if s.pos == 0 || s.pos > len(s.parts) {
		return ""
	}
	return s.parts[s.pos-1]
}

// Err implements llm.TextStream.
func (s *Stream) Err() error {
	if s.pos < len(s.parts) {
		return nil
	}
	return s.err
}

// Close implements llm.TextStream.
func (s *Stream) Close() error {
	s.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (s *Stream) Closed() bool {
	return s.closed.Load()
}

// Generator answers every extraction with Document and every prompt with
// the chunks listed in Outputs.
type Generator struct {
	Document json.RawMessage
	Outputs  map[string][]string
}

var _ llm.Generator = (*Generator)(nil)

// ExtractStructured implements llm.Generator.
func (g *Generator) ExtractStructured(ctx context.Context, _ string, _ llm.Schema) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.Document, nil
}

// Generate implements llm.Generator.
func (g *Generator) Generate(ctx context.Context, promptID string, _ map[string]string) (llm.TextStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parts, ok := g.Outputs[promptID]
	if !ok {
		return nil, eris.Errorf("llmtest: no output for prompt %q", promptID)
	}
	return NewStream(parts...), nil
}

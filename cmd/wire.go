package main

import (
	"context"
	"errors"

	"github.com/sells-group/mydailyprop/internal/engine"
	"github.com/sells-group/mydailyprop/internal/model"
)

// Event type names on the wire.
const (
	eventChunk     = "chunk"
	eventStageDone = "stage_done"
	eventRunDone   = "run_done"
	eventRunFailed = "run_failed"
)

// wireEvent is the JSON form of an engine event, shared by `run --format
// json` and the SSE endpoint.
type wireEvent struct {
	Type      string          `json:"type"`
	RunID     string          `json:"run_id"`
	Seq       uint64          `json:"seq"`
	Stage     string          `json:"stage,omitempty"`
	Text      string          `json:"text,omitempty"`
	Value     string          `json:"value,omitempty"`
	Document  *model.Document `json:"document,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
}

func toWire(ev engine.Event) wireEvent {
	m := ev.Meta()
	w := wireEvent{RunID: m.RunID, Seq: m.Seq}
	switch e := ev.(type) {
	case engine.Chunk:
		w.Type = eventChunk
		w.Stage = e.Stage
		w.Text = e.Text
	case engine.StageDone:
		w.Type = eventStageDone
		w.Stage = e.Stage
		w.Value = e.Value
		w.Document = e.Document
	case engine.RunDone:
		w.Type = eventRunDone
	case engine.RunFailed:
		w.Type = eventRunFailed
		w.Stage = e.Stage
		if e.Err != nil {
			w.Error = e.Err.Error()
		}
		w.ErrorKind = errorKind(e.Err)
	}
	return w
}

// errorKind names the most specific failure class of err.
func errorKind(err error) string {
	var (
		fe *engine.FetchError
		ee *engine.ExtractionError
		ge *engine.GenerationError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, engine.ErrRunCancelled):
		return "cancelled"
	case errors.Is(err, engine.ErrStageTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &fe):
		return "fetch"
	case errors.As(err, &ee):
		return "extraction"
	case errors.As(err, &ge):
		return "generation"
	case errors.Is(err, engine.ErrStagePanic):
		return "panic"
	case errors.Is(err, engine.ErrInvalidUpdate):
		return "invalid_update"
	default:
		return "stage"
	}
}

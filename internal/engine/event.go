package engine

import "github.com/sells-group/mydailyprop/internal/model"

// Event is one item of a run's live stream. The variants are Chunk,
// StageDone, RunDone and RunFailed; consumers dispatch with a type switch.
type Event interface {
	// Meta returns the run ID and the event's position in the run's stream.
	Meta() EventMeta
	isEvent()
}

// EventMeta is common to every event.
type EventMeta struct {
	RunID string `json:"run_id"`
	Seq   uint64 `json:"seq"`
}

func (m EventMeta) Meta() EventMeta { return m }

// Chunk is an incremental piece of a stage's text output.
type Chunk struct {
	EventMeta
	Stage string `json:"stage"`
	Text  string `json:"text"`
}

// StageDone is emitted once per stage, after its output was merged.
type StageDone struct {
	EventMeta
	Stage string `json:"stage"`
	// Value is the stage's text result; for the document stage it is the
	// document's markdown rendering.
	Value    string          `json:"value"`
	Document *model.Document `json:"document,omitempty"`
}

// RunDone terminates a successful run.
type RunDone struct {
	EventMeta
}

// RunFailed terminates a failed run. Err is the first StageExecutionError.
type RunFailed struct {
	EventMeta
	Stage string `json:"stage"`
	Err   error  `json:"-"`
}

func (Chunk) isEvent()     {}
func (StageDone) isEvent() {}
func (RunDone) isEvent()   {}
func (RunFailed) isEvent() {}

// IsTerminal reports whether ev ends its run's stream.
func IsTerminal(ev Event) bool {
	switch ev.(type) {
	case RunDone, RunFailed:
		return true
	default:
		return false
	}
}

// EventStage returns the stage an event is attributed to, or "" for RunDone.
func EventStage(ev Event) string {
	switch e := ev.(type) {
	case Chunk:
		return e.Stage
	case StageDone:
		return e.Stage
	case RunFailed:
		return e.Stage
	default:
		return ""
	}
}

func withMeta(ev Event, m EventMeta) Event {
	switch e := ev.(type) {
	case Chunk:
		e.EventMeta = m
		return e
	case StageDone:
		e.EventMeta = m
		return e
	case RunDone:
		e.EventMeta = m
		return e
	case RunFailed:
		e.EventMeta = m
		return e
	default:
		return ev
	}
}

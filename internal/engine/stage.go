package engine

import (
	"context"

	"github.com/sells-group/mydailyprop/internal/model"
)

// Field names the RunState slot a stage writes.
type Field string

// FieldDocument is the slot holding the extracted document. Every other
// field is a text slot stored under the writing stage's name.
const FieldDocument Field = "document"

// Emit forwards one incremental piece of a stage's text output.
type Emit func(text string)

// Update is the partial result a stage hands back to the engine. Exactly one
// of Document or Text is meaningful, depending on the stage's output field.
type Update struct {
	Document *model.Document
	Text     string
}

// StageFunc performs a stage's work against a read-only snapshot. It must not
// retain emit after returning.
type StageFunc func(ctx context.Context, in Snapshot, emit Emit) (Update, error)

// Stage is a named unit of pipeline work with declared dependencies.
type Stage struct {
	Name        string
	Upstream    []string
	Output      Field
	Description string
	Run         StageFunc
}

// Package pipeline wires the editorial analysis stages into a graph.
package pipeline

import (
	"github.com/sells-group/mydailyprop/internal/engine"
	"github.com/sells-group/mydailyprop/internal/fetcher"
	"github.com/sells-group/mydailyprop/internal/llm"
	"github.com/sells-group/mydailyprop/internal/prompt"
)

// Stage names.
const (
	StageExtract       = "extract"
	StageCritique      = "critique"
	StagePsychological = "psychological"
	StageSynthesis     = "synthesis"
)

// Output fields of the generated stages.
const (
	FieldCritique      engine.Field = "news_critique"
	FieldPsychological engine.Field = "psychological_analysis"
	FieldSynthesis     engine.Field = "propaganda_synthesis"
)

// New builds the analysis graph: extract, then critique and psychological
// analysis concurrently, then synthesis.
func New(f fetcher.Fetcher, gen llm.Generator) (*engine.Graph, error) {
	return engine.NewGraph(
		engine.Stage{
			Name:        StageExtract,
			Output:      engine.FieldDocument,
			Description: "Editorial contents (extracted)",
			Run:         extractStage(f, gen),
		},
		engine.Stage{
			Name:        StageCritique,
			Upstream:    []string{StageExtract},
			Output:      FieldCritique,
			Description: "Journalistic evaluation (generated)",
			Run:         streamStage(gen, prompt.Critique, critiqueVars),
		},
		engine.Stage{
			Name:        StagePsychological,
			Upstream:    []string{StageExtract},
			Output:      FieldPsychological,
			Description: "Psychological analysis (generated)",
			Run:         streamStage(gen, prompt.Psychological, psychologicalVars),
		},
		engine.Stage{
			Name:        StageSynthesis,
			Upstream:    []string{StageCritique, StagePsychological},
			Output:      FieldSynthesis,
			Description: "Propaganda synthesis (generated)",
			Run:         streamStage(gen, prompt.Synthesis, synthesisVars),
		},
	)
}

package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mydailyprop/internal/engine"
	"github.com/sells-group/mydailyprop/internal/llm"
)

type varsFunc func(in engine.Snapshot) (map[string]string, error)

// streamStage renders promptID with the snapshot's variables, forwards
// every non-empty chunk and returns their concatenation.
func streamStage(gen llm.Generator, promptID string, vars varsFunc) engine.StageFunc {
	return func(ctx context.Context, in engine.Snapshot, emit engine.Emit) (engine.Update, error) {
		v, err := vars(in)
		if err != nil {
			return engine.Update{}, &engine.GenerationError{Prompt: promptID, Err: err}
		}

		s, err := gen.Generate(ctx, promptID, v)
		if err != nil {
			return engine.Update{}, &engine.GenerationError{Prompt: promptID, Err: err}
		}
		defer s.Close() //nolint:errcheck

		var b strings.Builder
		for s.Next() {
			chunk := s.Chunk()
			if chunk == "" {
				continue
			}
			emit(chunk)
			b.WriteString(chunk)
		}
		if err := s.Err(); err != nil {
			return engine.Update{}, &engine.GenerationError{Prompt: promptID, Err: err}
		}
		return engine.Update{Text: b.String()}, nil
	}
}

func critiqueVars(in engine.Snapshot) (map[string]string, error) {
	doc := in.Document
	if doc == nil {
		return nil, eris.New("pipeline: critique needs the extracted document")
	}
	return map[string]string{
		"news_outlet":       doc.Outlet.String(),
		"editorial_date":    doc.Date,
		"editorial_context": doc.Outlet.Context(),
		"editorial_content": doc.Markdown(),
	}, nil
}

func psychologicalVars(in engine.Snapshot) (map[string]string, error) {
	doc := in.Document
	if doc == nil {
		return nil, eris.New("pipeline: psychological analysis needs the extracted document")
	}
	return map[string]string{
		"editorial": doc.Markdown(),
		"date":      doc.Date,
	}, nil
}

func synthesisVars(in engine.Snapshot) (map[string]string, error) {
	doc := in.Document
	if doc == nil {
		return nil, eris.New("pipeline: synthesis needs the extracted document")
	}
	critique, ok := in.Result(StageCritique)
	if !ok {
		return nil, eris.New("pipeline: synthesis needs the critique")
	}
	psycho, ok := in.Result(StagePsychological)
	if !ok {
		return nil, eris.New("pipeline: synthesis needs the psychological analysis")
	}
	return map[string]string{
		"editorial":     doc.Markdown(),
		"date":          doc.Date,
		"critique":      critique,
		"psychological": psycho,
	}, nil
}

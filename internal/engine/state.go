package engine

import (
	"fmt"
	"maps"

	"github.com/sells-group/mydailyprop/internal/model"
)

// RunState is the shared record of one run. It is owned by the run's
// scheduler goroutine: stages never see it, only snapshots of it.
type RunState struct {
	url      string
	document *model.Document
	results  map[string]string
	fields   map[Field]string
}

func newRunState(url string) *RunState {
	return &RunState{
		url:     url,
		results: make(map[string]string),
		fields:  make(map[Field]string),
	}
}

// merge writes a stage's update into its declared output field. The update
// must match the field's kind, and every field is write-once.
func (s *RunState) merge(st *Stage, upd Update) error {
	if st.Output == FieldDocument {
		if upd.Document == nil {
			return fmt.Errorf("%w: stage %s returned no document", ErrInvalidUpdate, st.Name)
		}
		if upd.Text != "" {
			return fmt.Errorf("%w: document stage %s returned text", ErrInvalidUpdate, st.Name)
		}
		if s.document != nil {
			return fmt.Errorf("%w: document already set before stage %s", ErrInvalidUpdate, st.Name)
		}
		doc := *upd.Document
		s.document = &doc
		return nil
	}

	if upd.Document != nil {
		return fmt.Errorf("%w: text stage %s returned a document", ErrInvalidUpdate, st.Name)
	}
	if _, ok := s.results[st.Name]; ok {
		return fmt.Errorf("%w: result for stage %s already set", ErrInvalidUpdate, st.Name)
	}
	s.results[st.Name] = upd.Text
	s.fields[st.Output] = upd.Text
	return nil
}

// snapshot copies the URL and the outputs of the named stages only.
func (s *RunState) snapshot(g *Graph, stages []string) Snapshot {
	snap := Snapshot{URL: s.url, Results: make(map[string]string, len(stages))}
	for _, name := range stages {
		st := g.byName[name]
		if st.Output == FieldDocument {
			if s.document != nil {
				doc := *s.document
				snap.Document = &doc
			}
			continue
		}
		if v, ok := s.results[name]; ok {
			snap.Results[name] = v
		}
	}
	return snap
}

// full copies everything the run produced.
func (s *RunState) full() Snapshot {
	snap := Snapshot{
		URL:     s.url,
		Results: maps.Clone(s.results),
		Fields:  maps.Clone(s.fields),
	}
	if s.document != nil {
		doc := *s.document
		snap.Document = &doc
	}
	return snap
}

// Snapshot is a read-only copy of RunState. Stages receive one holding the
// outputs of their transitive upstream stages.
type Snapshot struct {
	URL      string            `json:"url"`
	Document *model.Document   `json:"document,omitempty"`
	Results  map[string]string `json:"stage_results"`
	// Fields maps output field names to text values. Only set on the final
	// snapshot returned by Run.State.
	Fields map[Field]string `json:"fields,omitempty"`
}

// Result returns the text produced by the named stage.
func (s Snapshot) Result(stage string) (string, bool) {
	v, ok := s.Results[stage]
	return v, ok
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rotisserie/eris"

	"github.com/sells-group/mydailyprop/internal/engine"
	"github.com/sells-group/mydailyprop/internal/pipeline"
)

// Output formats for the run command.
const (
	formatText = "text"
	formatJSON = "json"
)

type renderer interface {
	Render(ev engine.Event) error
}

func newRenderer(format string, w io.Writer, g *engine.Graph) (renderer, error) {
	switch format {
	case formatText:
		return newTextRenderer(w, g), nil
	case formatJSON:
		return &jsonRenderer{enc: json.NewEncoder(w)}, nil
	default:
		return nil, eris.Errorf("unknown format %q (want %s or %s)", format, formatText, formatJSON)
	}
}

type jsonRenderer struct {
	enc *json.Encoder
}

func (r *jsonRenderer) Render(ev engine.Event) error {
	return r.enc.Encode(toWire(ev))
}

// stageColors are the card colors of the original web UI.
var stageColors = map[string]lipgloss.Color{
	pipeline.StageExtract:       lipgloss.Color("#1E90FF"),
	pipeline.StageCritique:      lipgloss.Color("#4B0082"),
	pipeline.StagePsychological: lipgloss.Color("#3EB489"),
	pipeline.StageSynthesis:     lipgloss.Color("#DC143C"),
}

// textRenderer prints one card per stage in topological order. The card
// of the earliest unfinished stage streams live; output of stages running
// concurrently is held back until its card comes up.
type textRenderer struct {
	w      io.Writer
	lg     *lipgloss.Renderer
	order  []string
	titles map[string]string
	pos    int
	opened bool
	held   map[string]*strings.Builder
	done   map[string]bool
	err    error
}

func newTextRenderer(w io.Writer, g *engine.Graph) *textRenderer {
	titles := make(map[string]string)
	for _, st := range g.Stages() {
		titles[st.Name] = st.Description
		if st.Description == "" {
			titles[st.Name] = st.Name
		}
	}
	return &textRenderer{
		w:      w,
		lg:     lipgloss.NewRenderer(w),
		order:  g.Order(),
		titles: titles,
		held:   make(map[string]*strings.Builder),
		done:   make(map[string]bool),
	}
}

func (r *textRenderer) Render(ev engine.Event) error {
	switch e := ev.(type) {
	case engine.Chunk:
		if r.focused(e.Stage) {
			r.open()
			r.write(e.Text)
		} else {
			r.hold(e.Stage).WriteString(e.Text)
		}
	case engine.StageDone:
		r.done[e.Stage] = true
		if b := r.hold(e.Stage); b.Len() == 0 && !r.focused(e.Stage) {
			b.WriteString(e.Value)
		}
		if r.focused(e.Stage) {
			if !r.opened {
				r.open()
				r.write(e.Value)
			}
			r.advance()
		}
	case engine.RunDone:
		r.write("\n")
	case engine.RunFailed:
		style := r.lg.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0000"))
		r.write("\n\n" + style.Render(fmt.Sprintf("Run failed at %s: %v", e.Stage, e.Err)) + "\n")
	}
	return r.err
}

func (r *textRenderer) focused(stage string) bool {
	return r.pos < len(r.order) && r.order[r.pos] == stage
}

func (r *textRenderer) hold(stage string) *strings.Builder {
	b, ok := r.held[stage]
	if !ok {
		b = &strings.Builder{}
		r.held[stage] = b
	}
	return b
}

// open prints the focused stage's header and anything held for it.
func (r *textRenderer) open() {
	if r.opened {
		return
	}
	r.opened = true
	stage := r.order[r.pos]

	style := r.lg.NewStyle().
		Bold(true).
		Foreground(stageColors[stage]).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(stageColors[stage])
	if r.pos > 0 {
		r.write("\n\n")
	}
	r.write(style.Render(r.titles[stage]) + "\n\n")

	if b := r.held[stage]; b != nil {
		r.write(b.String())
		b.Reset()
	}
}

// advance moves focus past the finished stage, flushing every following
// stage that already completed while held back.
func (r *textRenderer) advance() {
	r.pos++
	r.opened = false
	for r.pos < len(r.order) {
		stage := r.order[r.pos]
		if r.held[stage] == nil && !r.done[stage] {
			return
		}
		r.open()
		if !r.done[stage] {
			return
		}
		r.pos++
		r.opened = false
	}
}

func (r *textRenderer) write(s string) {
	if r.err != nil || s == "" {
		return
	}
	_, r.err = io.WriteString(r.w, s)
}

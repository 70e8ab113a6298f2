package engine

import (
	"fmt"
	"slices"
	"strings"
)

// Graph is an immutable, validated stage topology. It is safe for concurrent
// use by any number of runs.
type Graph struct {
	stages     []*Stage // declaration order
	byName     map[string]*Stage
	index      map[string]int
	dependents [][]int // by declaration index, ascending
	ancestors  [][]string
	order      []string // deterministic topological order
}

// NewGraph builds and validates a Graph. Validation rejects:
//   - an empty stage list
//   - empty or duplicate stage names, missing work functions
//   - empty or shared output fields, more than one document writer
//   - upstream names that are unknown, duplicated, or the stage itself
//   - any cycle, direct or transitive
func NewGraph(stages ...Stage) (*Graph, error) {
	if len(stages) == 0 {
		return nil, graphErrorf("", "no stages")
	}

	g := &Graph{
		stages: make([]*Stage, 0, len(stages)),
		byName: make(map[string]*Stage, len(stages)),
		index:  make(map[string]int, len(stages)),
	}

	writers := make(map[Field]string, len(stages))
	for i := range stages {
		st := stages[i]
		st.Upstream = slices.Clone(st.Upstream)

		if st.Name == "" {
			return nil, graphErrorf("", "stage %d has no name", i)
		}
		if _, dup := g.byName[st.Name]; dup {
			return nil, graphErrorf(st.Name, "duplicate stage name")
		}
		if st.Run == nil {
			return nil, graphErrorf(st.Name, "no work function")
		}
		if st.Output == "" {
			return nil, graphErrorf(st.Name, "no output field")
		}
		if prev, taken := writers[st.Output]; taken {
			return nil, graphErrorf(st.Name, "output field %q already written by stage %q", st.Output, prev)
		}
		writers[st.Output] = st.Name

		g.index[st.Name] = len(g.stages)
		g.byName[st.Name] = &st
		g.stages = append(g.stages, &st)
	}

	g.dependents = make([][]int, len(g.stages))
	for i, st := range g.stages {
		seen := make(map[string]struct{}, len(st.Upstream))
		for _, up := range st.Upstream {
			if up == st.Name {
				return nil, graphErrorf(st.Name, "depends on itself")
			}
			j, ok := g.index[up]
			if !ok {
				return nil, graphErrorf(st.Name, "unknown upstream stage %q", up)
			}
			if _, dup := seen[up]; dup {
				return nil, graphErrorf(st.Name, "duplicate upstream stage %q", up)
			}
			seen[up] = struct{}{}
			g.dependents[j] = append(g.dependents[j], i)
		}
	}
	for i := range g.dependents {
		slices.Sort(g.dependents[i])
	}

	order := g.topoOrder()
	if len(order) != len(g.stages) {
		return nil, graphErrorf("", "cycle: %s", strings.Join(g.findCycle(), " -> "))
	}
	g.order = order
	g.ancestors = g.computeAncestors()

	return g, nil
}

// topoOrder runs Kahn's algorithm, always releasing the lowest declaration
// index first so the order is stable across builds.
func (g *Graph) topoOrder() []string {
	indeg := make([]int, len(g.stages))
	for i, st := range g.stages {
		indeg[i] = len(st.Upstream)
	}

	var ready []int
	for i, d := range indeg {
		if d == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]string, 0, len(g.stages))
	for len(ready) > 0 {
		slices.Sort(ready)
		u := ready[0]
		ready = ready[1:]
		order = append(order, g.stages[u].Name)
		for _, v := range g.dependents[u] {
			indeg[v]--
			if indeg[v] == 0 {
				ready = append(ready, v)
			}
		}
	}
	return order
}

// findCycle returns one cycle as a closed path of stage names, following
// upstream edges in reverse so the path reads in execution direction.
func (g *Graph) findCycle() []string {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(g.stages))
	parent := make([]int, len(g.stages))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range g.dependents[u] {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				// back edge u -> v closes v ... u -> v
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := range g.stages {
		if color[i] == white && dfs(i) {
			break
		}
	}

	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, g.stages[cycle[i]].Name)
	}
	return out
}

func (g *Graph) computeAncestors() [][]string {
	anc := make([][]string, len(g.stages))
	sets := make([]map[string]struct{}, len(g.stages))
	for _, name := range g.order {
		i := g.index[name]
		set := make(map[string]struct{})
		for _, up := range g.stages[i].Upstream {
			set[up] = struct{}{}
			for a := range sets[g.index[up]] {
				set[a] = struct{}{}
			}
		}
		sets[i] = set
	}
	for i, set := range sets {
		list := make([]string, 0, len(set))
		for _, name := range g.order {
			if _, ok := set[name]; ok {
				list = append(list, name)
			}
		}
		anc[i] = list
	}
	return anc
}

// Stages returns the stages in declaration order.
func (g *Graph) Stages() []Stage {
	out := make([]Stage, len(g.stages))
	for i, st := range g.stages {
		out[i] = *st
		out[i].Upstream = slices.Clone(st.Upstream)
	}
	return out
}

// Stage looks up a stage by name.
func (g *Graph) Stage(name string) (Stage, bool) {
	st, ok := g.byName[name]
	if !ok {
		return Stage{}, false
	}
	out := *st
	out.Upstream = slices.Clone(st.Upstream)
	return out, true
}

// Order returns a deterministic topological order of stage names.
func (g *Graph) Order() []string {
	return slices.Clone(g.order)
}

// Dependents returns the stages that list name as a direct upstream.
func (g *Graph) Dependents(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	out := make([]string, len(g.dependents[i]))
	for k, j := range g.dependents[i] {
		out[k] = g.stages[j].Name
	}
	return out
}

// Ancestors returns every stage name reachable through upstream edges, in
// topological order.
func (g *Graph) Ancestors(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return slices.Clone(g.ancestors[i])
}

// Sinks returns the stages nothing depends on.
func (g *Graph) Sinks() []string {
	var out []string
	for i, st := range g.stages {
		if len(g.dependents[i]) == 0 {
			out = append(out, st.Name)
		}
	}
	return out
}

// Mermaid renders the topology as a Mermaid flowchart.
func (g *Graph) Mermaid() string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")
	for _, st := range g.stages {
		label := st.Name
		if st.Description != "" {
			label = st.Description
		}
		fmt.Fprintf(&b, "    %s[%q]\n", st.Name, label)
	}
	for _, name := range g.order {
		st := g.byName[name]
		for _, up := range st.Upstream {
			fmt.Fprintf(&b, "    %s --> %s\n", up, st.Name)
		}
	}
	return b.String()
}

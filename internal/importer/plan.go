package importer

import (
	"fmt"
	"slices"

	"github.com/dbsmedya/legacymigrate/internal/graph"
)

// PlanOptions narrows a plan. Only keeps the named units; StartAt and StopAt
// cut the ordered list at the named units, inclusive.
type PlanOptions struct {
	Only    []string
	StartAt string
	StopAt  string
}

// Plan is an ordered list of units to run.
type Plan struct {
	Units []Registration
	graph *graph.Graph
}

// Names returns the unit names in run order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Units))
	for i, r := range p.Units {
		names[i] = r.Key
	}
	return names
}

// External reports the transitive dependencies of a planned unit that are not
// part of the plan. Their output has to come from the target.
func (p *Plan) External(name string) []string {
	planned := make(map[string]bool, len(p.Units))
	for _, r := range p.Units {
		planned[r.Key] = true
	}
	var out []string
	for dep := range p.graph.Ancestors(name) {
		if !planned[dep] {
			out = append(out, dep)
		}
	}
	slices.Sort(out)
	return out
}

// BuildPlan orders regs by dependency, then phase, then name, and applies opts.
func BuildPlan(regs []Registration, opts PlanOptions) (*Plan, error) {
	decls := make([]graph.Decl, len(regs))
	byName := make(map[string]Registration, len(regs))
	for i, r := range regs {
		decls[i] = graph.Decl{Name: r.Key, Phase: r.Phase, DependsOn: r.DependsOn}
		byName[r.Key] = r
	}
	g, err := graph.Build(decls)
	if err != nil {
		return nil, fmt.Errorf("failed to build unit graph: %w", err)
	}
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("failed to order units: %w", err)
	}

	for _, name := range append(slices.Clone(opts.Only), opts.StartAt, opts.StopAt) {
		if name != "" && !g.HasNode(name) {
			return nil, fmt.Errorf("unknown unit %q", name)
		}
	}

	start, stop := 0, len(order)-1
	if opts.StartAt != "" {
		start = slices.Index(order, opts.StartAt)
	}
	if opts.StopAt != "" {
		stop = slices.Index(order, opts.StopAt)
	}
	if start > stop {
		return nil, fmt.Errorf("--start-at %q runs after --stop-at %q", opts.StartAt, opts.StopAt)
	}

	p := &Plan{graph: g}
	for _, name := range order[start : stop+1] {
		if len(opts.Only) > 0 && !slices.Contains(opts.Only, name) {
			continue
		}
		p.Units = append(p.Units, byName[name])
	}
	if len(p.Units) == 0 {
		return nil, fmt.Errorf("no units selected")
	}
	return p, nil
}

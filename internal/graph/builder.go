package graph

import "fmt"

// Decl declares one unit for the builder.
type Decl struct {
	Name      string
	Phase     int
	DependsOn []string
}

// Builder constructs a unit graph from declarations.
type Builder struct {
	decls []Decl
}

// NewBuilder creates a builder over decls.
func NewBuilder(decls []Decl) *Builder {
	return &Builder{decls: decls}
}

// Build creates the graph, rejecting unknown dependencies, duplicates,
// dependencies on a later phase, and cycles.
func (b *Builder) Build() (*Graph, error) {
	g := NewGraph()

	for _, s := range b.decls {
		if s.Name == "" {
			return nil, fmt.Errorf("unit name is empty")
		}
		if g.HasNode(s.Name) {
			return nil, fmt.Errorf("duplicate unit %q", s.Name)
		}
		g.AddNode(s.Name, s.Phase)
	}

	for _, s := range b.decls {
		for _, dep := range s.DependsOn {
			parent := g.GetNode(dep)
			if parent == nil {
				return nil, fmt.Errorf("unit %q depends on unknown unit %q", s.Name, dep)
			}
			if parent.Phase > s.Phase {
				return nil, fmt.Errorf("unit %q (phase %d) depends on %q from later phase %d", s.Name, s.Phase, dep, parent.Phase)
			}
			g.AddEdge(dep, s.Name)
		}
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("graph validation failed: %w", err)
	}
	return g, nil
}

// Build is a convenience wrapper around NewBuilder(decls).Build().
func Build(decls []Decl) (*Graph, error) {
	return NewBuilder(decls).Build()
}

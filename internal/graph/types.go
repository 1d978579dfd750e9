// Package graph orders importer units by their declared dependencies.
package graph

// Node is one importer unit.
type Node struct {
	Name  string
	Phase int
}

// Edge is a dependency: From must run before To.
type Edge struct {
	From string
	To   string
}

// Graph is the unit dependency structure of one migration plan.
type Graph struct {
	Nodes    map[string]*Node
	Children map[string][]string // unit -> units depending on it
	Parents  map[string][]string // unit -> units it depends on
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:    make(map[string]*Node),
		Children: make(map[string][]string),
		Parents:  make(map[string][]string),
	}
}

// AddNode adds a unit to the graph.
func (g *Graph) AddNode(name string, phase int) {
	g.Nodes[name] = &Node{Name: name, Phase: phase}
}

// AddEdge records that child depends on parent.
func (g *Graph) AddEdge(parent, child string) {
	g.Children[parent] = append(g.Children[parent], child)
	g.Parents[child] = append(g.Parents[child], parent)
}

// GetChildren returns the units that depend directly on parent.
func (g *Graph) GetChildren(parent string) []string {
	return g.Children[parent]
}

// GetParents returns the direct dependencies of child.
func (g *Graph) GetParents(child string) []string {
	return g.Parents[child]
}

// GetNode returns the node for name, or nil.
func (g *Graph) GetNode(name string) *Node {
	return g.Nodes[name]
}

// HasNode reports whether name is in the graph.
func (g *Graph) HasNode(name string) bool {
	_, exists := g.Nodes[name]
	return exists
}

// NodeCount returns the number of units.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of dependency edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.Children {
		count += len(children)
	}
	return count
}

// Ancestors returns every unit name reachable through Parents from name,
// excluding name itself.
func (g *Graph) Ancestors(name string) map[string]bool {
	out := make(map[string]bool)
	var walk func(string)
	walk = func(n string) {
		for _, p := range g.Parents[n] {
			if !out[p] {
				out[p] = true
				walk(p)
			}
		}
	}
	walk(name)
	return out
}

// less orders ready nodes: lower phase first, then name.
func (g *Graph) less(a, b string) bool {
	na, nb := g.Nodes[a], g.Nodes[b]
	if na != nil && nb != nil && na.Phase != nb.Phase {
		return na.Phase < nb.Phase
	}
	return a < b
}

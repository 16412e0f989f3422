package engine

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Node is one module in a ModuleGraph.
//
// A node's identity is stable for the life of the graph. Its references and
// rules live in an immutable state that is swapped atomically on upsert, so
// every node pointing at this one observes the update, and a reader always
// sees one complete state.
type Node struct {
	name  string
	state atomic.Pointer[nodeState]
}

type nodeState struct {
	references []*Node
	rules      []string
}

// Name returns the module name.
func (n *Node) Name() string {
	return n.name
}

// References returns the names of the referenced modules in declaration
// order.
func (n *Node) References() []string {
	st := n.load()
	names := make([]string, len(st.references))
	for i, ref := range st.references {
		names[i] = ref.name
	}
	return names
}

// Rules returns the forbidden referrers this module declares, in
// declaration order.
func (n *Node) Rules() []string {
	return slices.Clone(n.load().rules)
}

func (n *Node) load() *nodeState {
	return n.state.Load()
}

func (st *nodeState) forbids(name string) bool {
	return slices.Contains(st.rules, name)
}

// ModuleGraph maps module names to nodes for a single analysis run.
//
// Nodes are created on first upsert and never removed. Safe for concurrent
// use; there are no cross-key transactions.
type ModuleGraph struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

// NewModuleGraph creates an empty graph.
func NewModuleGraph() *ModuleGraph {
	return &ModuleGraph{nodes: make(map[string]*Node)}
}

// Get returns the node for name, if one has been upserted.
func (g *ModuleGraph) Get(name string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[name]
	return n, ok
}

// Upsert installs references and rules for name, replacing any previous
// state wholesale. The slices are copied.
func (g *ModuleGraph) Upsert(name string, references []*Node, rules []string) *Node {
	st := &nodeState{
		references: slices.Clone(references),
		rules:      slices.Clone(rules),
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[name]
	if !ok {
		n = &Node{name: name}
		n.state.Store(st)
		g.nodes[name] = n
		return n
	}
	n.state.Store(st)
	return n
}

// Len returns the number of nodes.
func (g *ModuleGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

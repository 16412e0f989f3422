package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/refguard/internal/ir"
)

// CycleWarning represents a reference cycle among declared modules.
//
// Cycles are warnings, not errors. The engine tolerates them, but a cyclic
// manifest usually means the topological plan cannot put every dependency
// first, so some references will be dropped at ingestion.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["A", "B", "A"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning"
}

// AnalyzeCycles finds reference cycles among specs with Tarjan's algorithm.
//
// Only references to declared modules count as edges. Each strongly
// connected component with more than one module, or with a self-reference,
// yields one warning. Output order follows declaration order.
func AnalyzeCycles(specs []ir.ModuleSpec) []CycleWarning {
	graph, order := buildReferenceGraph(specs)
	sccs := tarjanSCC(graph, order)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	return warnings
}

// referenceGraph maps module name to the declared modules it references.
type referenceGraph map[string][]string

// buildReferenceGraph returns the graph and module names in declaration
// order. Later duplicates of a name are ignored.
func buildReferenceGraph(specs []ir.ModuleSpec) (referenceGraph, []string) {
	declared := make(map[string]bool, len(specs))
	order := make([]string, 0, len(specs))
	for _, s := range specs {
		if !declared[s.Name] {
			declared[s.Name] = true
			order = append(order, s.Name)
		}
	}

	graph := make(referenceGraph, len(order))
	for _, s := range specs {
		if _, done := graph[s.Name]; done {
			continue
		}
		edges := []string{}
		for _, ref := range s.References {
			if declared[ref] {
				edges = append(edges, ref)
			}
		}
		graph[s.Name] = edges
	}
	return graph, order
}

func hasSelfLoop(node string, graph referenceGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components, visiting roots in order.
//
// Each SCC is returned with its members sorted by declaration order.
func tarjanSCC(graph referenceGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	position := make(map[string]int, len(order))
	for i, name := range order {
		position[name] = i
	}

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sortByPosition(scc, position)
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	sortSCCs(sccs, position)
	return sccs
}

func sortByPosition(names []string, position map[string]int) {
	sort.Slice(names, func(i, j int) bool {
		return position[names[i]] < position[names[j]]
	})
}

// sortSCCs orders components by the position of their first member.
func sortSCCs(sccs [][]string, position map[string]int) {
	sort.Slice(sccs, func(i, j int) bool {
		return position[sccs[i][0]] < position[sccs[j][0]]
	})
}

func cycleSCCToWarning(scc []string, graph referenceGraph) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Module references itself: %s -> %s", name, name),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Reference cycle detected: %s", strings.Join(path, " -> ")),
		Level:   "warning",
	}
}

// reconstructCyclePath walks from the first SCC member along edges that stay
// inside the SCC until it returns to the start.
func reconstructCyclePath(scc []string, graph referenceGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	inSCC := make(map[string]bool, len(scc))
	for _, node := range scc {
		inSCC[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if inSCC[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}

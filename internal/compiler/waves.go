package compiler

import "github.com/roach88/refguard/internal/ir"

// TopologicalWaves groups module names so that every module comes after the
// declared modules it references.
//
// Wave 0 holds modules with no declared references. Wave N holds modules
// whose references all sit in earlier waves. Within a wave, names keep
// declaration order. Modules caught in or behind a cycle cannot be layered;
// each gets a wave of its own after the layered ones, in declaration order,
// so they are never ingested alongside a module they reference.
func TopologicalWaves(specs []ir.ModuleSpec) [][]string {
	graph, order := buildReferenceGraph(specs)

	pending := make(map[string]int, len(order))
	dependents := make(map[string][]string, len(order))
	for _, name := range order {
		seen := make(map[string]bool)
		for _, ref := range graph[name] {
			if seen[ref] {
				continue
			}
			seen[ref] = true
			pending[name]++
			dependents[ref] = append(dependents[ref], name)
		}
	}

	placed := make(map[string]bool, len(order))
	var waves [][]string

	var current []string
	for _, name := range order {
		if pending[name] == 0 {
			current = append(current, name)
		}
	}

	for len(current) > 0 {
		waves = append(waves, current)
		ready := make(map[string]bool)
		for _, name := range current {
			placed[name] = true
			for _, dep := range dependents[name] {
				pending[dep]--
				if pending[dep] == 0 {
					ready[dep] = true
				}
			}
		}

		var next []string
		for _, name := range order {
			if ready[name] {
				next = append(next, name)
			}
		}
		current = next
	}

	for _, name := range order {
		if !placed[name] {
			waves = append(waves, []string{name})
		}
	}

	return waves
}

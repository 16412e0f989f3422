package engine

import "slices"

// FindPath returns the chain of module names from node to the module that
// declares target as a forbidden referrer.
//
// At each step the node's own rules are checked first, then the first
// reference in declaration order whose closure contains target is followed.
// Each step spends one unit of maxDepth, so the search covers exactly the
// region a ForbiddenReferrers call with the same bound covered. An empty
// result means no chain exists in the current graph state.
func FindPath(target string, node *Node, maxDepth int) []string {
	var path []string
	for depth := 0; node != nil; depth++ {
		st := node.load()
		path = append(path, node.name)
		if st.forbids(target) {
			return path
		}
		if depth >= maxDepth {
			return nil
		}

		var next *Node
		for _, ref := range st.references {
			if ForbiddenReferrers(ref, maxDepth-depth-1).Contains(target) {
				next = ref
				break
			}
		}
		node = next
	}
	return nil
}

// chainFor builds the full violation chain for referencer through ref.
func chainFor(referencer string, ref *Node, maxDepth int) []string {
	tail := FindPath(referencer, ref, maxDepth)
	if len(tail) == 0 {
		return nil
	}
	return slices.Concat([]string{referencer}, tail)
}

package engine

// DefaultMaxDepth bounds closure traversal below the starting node.
const DefaultMaxDepth = 32

// Closure is the set of module names that must never reference the node a
// closure was computed from: its own rules plus the rules of everything it
// reaches.
type Closure struct {
	members map[string]struct{}
	order   []string

	// Truncated is set when traversal stopped at the depth bound with
	// references left unexplored.
	Truncated bool
}

// Contains reports whether name is a forbidden referrer.
func (c Closure) Contains(name string) bool {
	_, ok := c.members[name]
	return ok
}

// Members returns the forbidden referrers in first-discovery order.
func (c Closure) Members() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of forbidden referrers.
func (c Closure) Len() int {
	return len(c.order)
}

type frame struct {
	node  *Node
	depth int
}

// ForbiddenReferrers computes the closure of root from the current graph
// state. Nothing is cached between calls.
//
// The root is at depth 0 and nodes deeper than maxDepth are not expanded.
// A node reached again is only re-expanded when reached at a shallower
// depth, which keeps cycles finite and the result independent of visiting
// order. References are expanded in declaration order.
func ForbiddenReferrers(root *Node, maxDepth int) Closure {
	c := Closure{members: make(map[string]struct{})}
	if root == nil {
		return c
	}

	best := make(map[*Node]int)
	stack := []frame{{node: root, depth: 0}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if d, seen := best[f.node]; seen && d <= f.depth {
			continue
		}
		best[f.node] = f.depth

		st := f.node.load()
		for _, rule := range st.rules {
			if _, ok := c.members[rule]; !ok {
				c.members[rule] = struct{}{}
				c.order = append(c.order, rule)
			}
		}

		if len(st.references) == 0 {
			continue
		}
		if f.depth >= maxDepth {
			c.Truncated = true
			continue
		}
		// Push in reverse so the first reference is expanded first.
		for i := len(st.references) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: st.references[i], depth: f.depth + 1})
		}
	}

	return c
}

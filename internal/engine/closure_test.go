package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForbiddenReferrers_OwnRules(t *testing.T) {
	g := NewModuleGraph()
	lib := g.Upsert("Lib", nil, []string{"Main", "Test"})

	c := ForbiddenReferrers(lib, DefaultMaxDepth)

	assert.True(t, c.Contains("Main"))
	assert.True(t, c.Contains("Test"))
	assert.False(t, c.Contains("Lib"))
	assert.Equal(t, []string{"Main", "Test"}, c.Members())
	assert.False(t, c.Truncated)
}

func TestForbiddenReferrers_Transitive(t *testing.T) {
	g := NewModuleGraph()
	lib := g.Upsert("Lib", nil, []string{"Main"})
	other := g.Upsert("Other", nil, []string{"Cli"})
	lib2 := g.Upsert("Lib2", []*Node{lib, other}, []string{"Web"})

	c := ForbiddenReferrers(lib2, DefaultMaxDepth)

	assert.Equal(t, []string{"Web", "Main", "Cli"}, c.Members(), "own rules first, then references in order")
}

func TestForbiddenReferrers_NilRoot(t *testing.T) {
	c := ForbiddenReferrers(nil, DefaultMaxDepth)

	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Contains("x"))
}

func TestForbiddenReferrers_Cycle(t *testing.T) {
	g := NewModuleGraph()
	a := g.Upsert("A", nil, []string{"X"})
	b := g.Upsert("B", []*Node{a}, []string{"Y"})
	g.Upsert("A", []*Node{b}, []string{"X"})

	c := ForbiddenReferrers(a, DefaultMaxDepth)

	assert.ElementsMatch(t, []string{"X", "Y"}, c.Members())
	assert.False(t, c.Truncated, "a cycle is bounded by the visited depths, not the guard")
}

func TestForbiddenReferrers_DepthBound(t *testing.T) {
	g := NewModuleGraph()
	prev := g.Upsert("M0", nil, []string{"Top"})
	for i := 1; i < 10; i++ {
		prev = g.Upsert(fmt.Sprintf("M%d", i), []*Node{prev}, nil)
	}

	// M9 -> ... -> M0 is nine edges deep.
	assert.True(t, ForbiddenReferrers(prev, 9).Contains("Top"))
	assert.False(t, ForbiddenReferrers(prev, 9).Truncated)

	shallow := ForbiddenReferrers(prev, 8)
	assert.False(t, shallow.Contains("Top"))
	assert.True(t, shallow.Truncated)
}

func TestForbiddenReferrers_ShallowerRevisit(t *testing.T) {
	// Deep is reachable in three hops via the first reference and in one hop
	// via the second. With a bound of two only the short route reaches it.
	g := NewModuleGraph()
	deep := g.Upsert("Deep", nil, []string{"Main"})
	c := g.Upsert("C", []*Node{deep}, nil)
	b := g.Upsert("B", []*Node{c}, nil)
	root := g.Upsert("Root", []*Node{b, deep}, nil)

	closure := ForbiddenReferrers(root, 2)

	assert.True(t, closure.Contains("Main"))
}

func TestForbiddenReferrers_NoSelfFalsePositive(t *testing.T) {
	g := NewModuleGraph()
	a := g.Upsert("A", nil, nil)
	b := g.Upsert("B", []*Node{a}, nil)
	g.Upsert("A", []*Node{b}, nil)

	assert.False(t, ForbiddenReferrers(a, DefaultMaxDepth).Contains("A"))
	assert.False(t, ForbiddenReferrers(b, DefaultMaxDepth).Contains("B"))
}

func TestForbiddenReferrers_Recomputes(t *testing.T) {
	g := NewModuleGraph()
	lib := g.Upsert("Lib", nil, nil)
	app := g.Upsert("App", []*Node{lib}, nil)

	assert.False(t, ForbiddenReferrers(app, DefaultMaxDepth).Contains("Main"))

	g.Upsert("Lib", nil, []string{"Main"})

	assert.True(t, ForbiddenReferrers(app, DefaultMaxDepth).Contains("Main"))
}

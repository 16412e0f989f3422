package engine

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleGraph_GetMissing(t *testing.T) {
	g := NewModuleGraph()

	n, ok := g.Get("Lib")
	assert.False(t, ok)
	assert.Nil(t, n)
}

func TestModuleGraph_UpsertCreates(t *testing.T) {
	g := NewModuleGraph()

	lib := g.Upsert("Lib", nil, []string{"Main"})

	got, ok := g.Get("Lib")
	require.True(t, ok)
	assert.Same(t, lib, got)
	assert.Equal(t, "Lib", got.Name())
	assert.Equal(t, []string{"Main"}, got.Rules())
	assert.Empty(t, got.References())
	assert.Equal(t, 1, g.Len())
}

func TestModuleGraph_UpsertReplacesInPlace(t *testing.T) {
	g := NewModuleGraph()
	core := g.Upsert("Core", nil, nil)
	lib := g.Upsert("Lib", nil, []string{"Main"})
	app := g.Upsert("App", []*Node{lib}, nil)

	again := g.Upsert("Lib", []*Node{core}, []string{"Test"})

	assert.Same(t, lib, again, "identity is kept across upserts")
	assert.Equal(t, []string{"Test"}, lib.Rules(), "rules replaced, not merged")
	assert.Equal(t, []string{"Core"}, lib.References())

	// App still points at the same node and sees the new state.
	assert.Equal(t, []string{"Lib"}, app.References())
	assert.True(t, ForbiddenReferrers(app, DefaultMaxDepth).Contains("Test"))
	assert.False(t, ForbiddenReferrers(app, DefaultMaxDepth).Contains("Main"))
}

func TestModuleGraph_UpsertCopiesInputs(t *testing.T) {
	g := NewModuleGraph()
	rules := []string{"Main"}

	lib := g.Upsert("Lib", nil, rules)
	rules[0] = "Other"

	assert.Equal(t, []string{"Main"}, lib.Rules())

	got := lib.Rules()
	got[0] = "Mutated"
	assert.Equal(t, []string{"Main"}, lib.Rules())
}

// graphNames returns the module names in g, sorted.
func graphNames(g *ModuleGraph) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func TestModuleGraph_UpsertKeepsOneNodePerName(t *testing.T) {
	g := NewModuleGraph()
	g.Upsert("b", nil, nil)
	g.Upsert("a", nil, nil)
	g.Upsert("b", nil, []string{"c"})

	assert.Equal(t, []string{"a", "b"}, graphNames(g))
	assert.Equal(t, 2, g.Len())
}

func TestModuleGraph_ConcurrentUpsertAndGet(t *testing.T) {
	g := NewModuleGraph()
	const writers = 20
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				name := fmt.Sprintf("m%d", i)
				g.Upsert(name, nil, []string{fmt.Sprintf("w%d", w)})
				if n, ok := g.Get(name); ok {
					// A reader sees one complete state: exactly one rule.
					assert.Len(t, n.Rules(), 1)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, perWriter, g.Len())
}

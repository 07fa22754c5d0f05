package eventgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopoSort_CausalOrder(t *testing.T) {
	t.Parallel()

	g := New()
	g.Link("theft", "chase")
	g.Link("chase", "arrest")
	g.Link("theft", "arrest")

	order, ok := g.TopoSort()
	require.True(t, ok)
	assert.Equal(t, []string{"theft", "chase", "arrest"}, order)
}

func TestTopoSort_CycleDetected(t *testing.T) {
	t.Parallel()

	g := New()
	g.Link("a", "b")
	g.Link("b", "c")
	g.Link("c", "a")

	_, ok := g.TopoSort()
	assert.False(t, ok)
}

func TestFindCycle(t *testing.T) {
	t.Parallel()

	g := New()
	g.Link("betrayal", "revenge")
	g.Link("revenge", "betrayal")
	g.Add("aside")

	cycle := g.FindCycle("betrayal")
	require.NotEmpty(t, cycle)
	assert.Equal(t, "betrayal", cycle[0])
	assert.Len(t, cycle, 2)

	assert.Nil(t, g.FindCycle("aside"))
	assert.Nil(t, g.FindCycle("missing"))
}

func TestReaches(t *testing.T) {
	t.Parallel()

	g := New()
	g.Link("problem", "clue")
	g.Link("clue", "resolution")
	g.Add("island")

	assert.True(t, g.Reaches("problem", "resolution"))
	assert.True(t, g.Reaches("problem", "problem"))
	assert.False(t, g.Reaches("resolution", "problem"))
	assert.False(t, g.Reaches("island", "resolution"))
	assert.False(t, g.Reaches("missing", "resolution"))
}

func TestRootsAndDegree(t *testing.T) {
	t.Parallel()

	g := New()
	g.Link("inciting", "fallout")
	g.Add("orphan")

	assert.Equal(t, []string{"inciting", "orphan"}, g.Roots())
	assert.Equal(t, 1, g.Degree("inciting"))
	assert.Equal(t, 0, g.Degree("orphan"))
	assert.Zero(t, g.Degree("missing"))
}

func TestLink_Duplicate(t *testing.T) {
	t.Parallel()

	g := New()

	assert.True(t, g.Link("a", "b"))
	assert.False(t, g.Link("a", "b"))
	assert.Equal(t, []string{"b"}, g.Effects("a"))
	assert.Equal(t, []string{"a"}, g.Causes("b"))
}

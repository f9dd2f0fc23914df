package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pratee23389/Hack4Delhi/pkg/model"
)

func triangleWithTail(t *testing.T) *SimilarityGraph {
	t.Helper()
	records := []model.Record{
		rec("c", "mobile", "1", "bank_account", "T"),
		rec("a", "mobile", "1", "bank_account", ""),
		rec("b", "mobile", "1", "bank_account", ""),
		rec("d", "mobile", "9", "bank_account", "T"),
		rec("z", "mobile", "", "bank_account", ""),
	}
	g, err := Build(records, linking)
	require.NoError(t, err)
	return g
}

func TestNodesSorted(t *testing.T) {
	g := triangleWithTail(t)
	assert.Equal(t, []string{"a", "b", "c", "d", "z"}, g.Nodes())
}

func TestEdgesSortedAndNormalised(t *testing.T) {
	g := triangleWithTail(t)

	edges := g.Edges()
	want := [][2]string{{"a", "b"}, {"a", "c"}, {"b", "c"}, {"c", "d"}}
	require.Len(t, edges, len(want), "%+v", edges)
	for i, w := range want {
		assert.Equal(t, w, [2]string{edges[i].A, edges[i].B}, "Edges()[%d]", i)
	}
	assert.Equal(t, []string{"bank_account"}, edges[3].Reasons)
}

func TestNeighbors(t *testing.T) {
	g := triangleWithTail(t)

	assert.Equal(t, []string{"a", "b", "d"}, g.Neighbors("c"))
	assert.Nil(t, g.Neighbors("missing"), "neighbors of an unknown id should be nil")
}

func TestSubgraphKeepsInducedEdges(t *testing.T) {
	g := triangleWithTail(t)

	sub := g.Subgraph([]string{"d", "c", "a", "unknown"})
	require.Equal(t, 3, sub.NodeCount())
	assert.Equal(t, 2, sub.EdgeCount(), "expected edges a-c and c-d only")

	_, ok := sub.Edge("a", "b")
	assert.False(t, ok, "edge to a node outside the subgraph leaked in")

	e, ok := sub.Edge("c", "d")
	require.True(t, ok)
	assert.Equal(t, []string{"bank_account"}, e.Reasons)

	r, ok := sub.Record("a")
	require.True(t, ok, "subgraph lost record a")
	assert.Equal(t, "a", r.ID)
}

func TestDensity(t *testing.T) {
	tests := []struct {
		n, e int
		want float64
	}{
		{0, 0, 0},
		{1, 0, 0},
		{2, 1, 1},
		{3, 2, 2.0 / 3.0},
		{4, 6, 1},
		{5, 4, 0.4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Density(tt.n, tt.e), "Density(%d, %d)", tt.n, tt.e)
	}
}

func TestIDRoundTrip(t *testing.T) {
	g := triangleWithTail(t)

	for _, name := range g.Nodes() {
		id, ok := g.ID(name)
		require.True(t, ok, "ID(%s) not found", name)
		assert.Equal(t, name, g.Name(id))
	}
	assert.Empty(t, g.Name(-1))
	assert.Empty(t, g.Name(99))
}

func TestUndirectedEdgeBetween(t *testing.T) {
	g := triangleWithTail(t)
	u := g.Undirected()

	id := func(name string) int64 {
		v, _ := g.ID(name)
		return v
	}
	assert.NotNil(t, u.EdgeBetween(id("a"), id("b")))
	assert.NotNil(t, u.EdgeBetween(id("d"), id("c")), "edges are visible from either end")
	assert.Nil(t, u.EdgeBetween(id("a"), id("d")))
	assert.Nil(t, u.EdgeBetween(id("z"), id("a")))
	assert.NotNil(t, u.Node(id("z")), "isolated record should still be a node")
}

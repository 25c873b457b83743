package compiler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNode struct {
	id   uint32
	name string
}

func (n *stubNode) ID() uint32                           { return n.id }
func (n *stubNode) Name() string                         { return n.name }
func (n *stubNode) Validate() error                      { return nil }
func (n *stubNode) ClearPrimitives()                     {}
func (n *stubNode) CreatePrimitives(*Store, Device) bool { return true }
func (n *stubNode) OutputPrimitives() map[PinID]Array    { return nil }
func (n *stubNode) InputPrimitives() map[PinID]LinkSlot  { return nil }

type stubGraph struct {
	nodes []GraphNode
	edges []EdgeRef
}

func (g *stubGraph) Nodes() []GraphNode { return g.nodes }
func (g *stubGraph) Edges() []EdgeRef   { return g.edges }

func (g *stubGraph) PinOwner(pin PinID) (GraphNode, bool) {
	for _, n := range g.nodes {
		if n.ID() == pin.Node() {
			return n, true
		}
	}
	return nil, false
}

// randomDAG builds a graph whose edges always run from a lower node id to a
// higher one, so it is acyclic by construction.
func randomDAG(rng *rand.Rand, nodeCount int) *stubGraph {
	g := &stubGraph{}
	for i := 0; i < nodeCount; i++ {
		g.nodes = append(g.nodes, &stubNode{id: uint32(i)})
	}
	for lo := 0; lo < nodeCount; lo++ {
		for hi := lo + 1; hi < nodeCount; hi++ {
			if rng.Intn(3) == 0 {
				g.edges = append(g.edges, EdgeRef{
					Start: MakePinID(uint32(lo), 0),
					End:   MakePinID(uint32(hi), 1),
				})
			}
		}
	}
	// Enumerate nodes in a shuffled order so the sort cannot lean on the
	// construction order.
	rng.Shuffle(len(g.nodes), func(i, j int) {
		g.nodes[i], g.nodes[j] = g.nodes[j], g.nodes[i]
	})
	return g
}

func TestTopoSortOrdersRandomDAGs(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		g := randomDAG(rng, 2+rng.Intn(14))

		sorted, ok := topoSort(g)
		require.True(t, ok, "trial %d", trial)
		require.Len(t, sorted, len(g.nodes), "trial %d", trial)

		position := make(map[uint32]int, len(sorted))
		for i, n := range sorted {
			position[n.ID()] = i
		}
		for _, e := range g.edges {
			assert.Less(t, position[e.Start.Node()], position[e.End.Node()],
				"trial %d: edge %d -> %d out of order", trial, e.Start.Node(), e.End.Node())
		}
	}
}

func TestTopoSortIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	g := randomDAG(rng, 12)

	first, ok := topoSort(g)
	require.True(t, ok)
	for i := 0; i < 5; i++ {
		again, ok := topoSort(g)
		require.True(t, ok)
		for j := range first {
			assert.Equal(t, first[j].ID(), again[j].ID())
		}
	}
}

func TestTopoSortReportsCycles(t *testing.T) {
	g := &stubGraph{
		nodes: []GraphNode{
			&stubNode{id: 1, name: "a"},
			&stubNode{id: 2, name: "b"},
		},
		edges: []EdgeRef{
			{Start: MakePinID(1, 0), End: MakePinID(2, 1)},
			{Start: MakePinID(2, 0), End: MakePinID(1, 1)},
		},
	}
	sorted, ok := topoSort(g)
	assert.False(t, ok)
	assert.Nil(t, sorted)
}

func TestTopoSortIgnoresSelfAndStaleEdges(t *testing.T) {
	g := &stubGraph{
		nodes: []GraphNode{
			&stubNode{id: 1, name: "a"},
			&stubNode{id: 2, name: "b"},
		},
		edges: []EdgeRef{
			{Start: MakePinID(1, 0), End: MakePinID(1, 1)},
			{Start: MakePinID(99, 0), End: MakePinID(2, 1)},
			{Start: MakePinID(1, 0), End: MakePinID(2, 1)},
		},
	}
	sorted, ok := topoSort(g)
	require.True(t, ok)
	require.Len(t, sorted, 2)
	assert.Equal(t, uint32(1), sorted[0].ID())
	assert.Equal(t, uint32(2), sorted[1].ID())
}

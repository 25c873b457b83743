package graph

import (
	"fmt"

	"github.com/fini03/vkduck/engine/compiler"
	"github.com/fini03/vkduck/engine/core"
)

// Graph is the editor's mutable node graph: nodes in insertion order, edges
// as (start pin, end pin) pairs. It implements compiler.Graph; the compiler
// only ever enumerates it, never mutates it.
type Graph struct {
	nodes []Node
	edges []compiler.EdgeRef
}

func New() *Graph {
	return &Graph{}
}

func (g *Graph) AddNode(n Node) {
	g.nodes = append(g.nodes, n)
	g.fireEdited()
}

// RemoveNode drops the node, every edge touching one of its pins, and
// releases its identity.
func (g *Graph) RemoveNode(id uint32) {
	for i, n := range g.nodes {
		if n.ID() != id {
			continue
		}
		kept := g.edges[:0]
		for _, e := range g.edges {
			if e.Start.Node() == id || e.End.Node() == id {
				continue
			}
			kept = append(kept, e)
		}
		g.edges = kept
		n.Release()
		g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
		g.fireEdited()
		return
	}
}

// Connect adds an edge from an output pin to an input pin.
func (g *Graph) Connect(start, end compiler.PinID) error {
	sp, sok := g.findPin(start)
	ep, eok := g.findPin(end)
	if !sok || !eok {
		return fmt.Errorf("edge %x -> %x references an unknown pin", uint64(start), uint64(end))
	}
	if sp.Kind != PinOutput || ep.Kind != PinInput {
		return fmt.Errorf("edge %x -> %x must run output to input", uint64(start), uint64(end))
	}
	for _, e := range g.edges {
		if e.Start == start && e.End == end {
			return nil // already connected
		}
	}
	g.edges = append(g.edges, compiler.EdgeRef{Start: start, End: end})
	g.fireEdited()
	return nil
}

func (g *Graph) Disconnect(start, end compiler.PinID) {
	for i, e := range g.edges {
		if e.Start == start && e.End == end {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			g.fireEdited()
			return
		}
	}
}

// Nodes satisfies compiler.Graph.
func (g *Graph) Nodes() []compiler.GraphNode {
	out := make([]compiler.GraphNode, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n
	}
	return out
}

// EditorNodes returns the concrete nodes for UI iteration.
func (g *Graph) EditorNodes() []Node { return g.nodes }

func (g *Graph) Edges() []compiler.EdgeRef {
	return g.edges
}

func (g *Graph) PinOwner(pin compiler.PinID) (compiler.GraphNode, bool) {
	for _, n := range g.nodes {
		if n.ID() == pin.Node() {
			return n, true
		}
	}
	return nil, false
}

func (g *Graph) findPin(id compiler.PinID) (Pin, bool) {
	for _, n := range g.nodes {
		if n.ID() != id.Node() {
			continue
		}
		for _, p := range n.Pins() {
			if p.ID == id {
				return p, true
			}
		}
	}
	return Pin{}, false
}

func (g *Graph) fireEdited() {
	core.EventFire(core.EVENT_CODE_GRAPH_EDITED, g, core.EventContext{})
}

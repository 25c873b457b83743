package compiler

// PinID is a stable pin identity: the owning node's id in the high 32 bits,
// the node-local pin index in the low 32. Stable across reloads so edge
// endpoints stay re-resolvable.
type PinID uint64

func MakePinID(node uint32, local uint32) PinID {
	return PinID(uint64(node)<<32 | uint64(local))
}

func (p PinID) Node() uint32 {
	return uint32(p >> 32)
}

// EdgeRef is one graph edge: output pin to input pin.
type EdgeRef struct {
	Start PinID
	End   PinID
}

// GraphNode is what the compiler requires of an editor node. Lifecycle per
// rebuild: ClearPrimitives, then CreatePrimitives once, then the pin maps
// are collected.
type GraphNode interface {
	ID() uint32
	Name() string

	// Validate runs in the pre-flight pass; a non-nil error aborts the
	// whole rebuild before any primitive is materialized.
	Validate() error

	ClearPrimitives()
	// CreatePrimitives materializes this node's primitives into the store.
	// Returning false marks the node failed; its outputs are treated as
	// absent and downstream edges are skipped.
	CreatePrimitives(store *Store, dev Device) bool

	OutputPrimitives() map[PinID]Array
	InputPrimitives() map[PinID]LinkSlot
}

// Graph is the editor's graph surface: enumerable nodes in insertion order,
// enumerable edges, and pin-to-node ownership resolution.
type Graph interface {
	Nodes() []GraphNode
	Edges() []EdgeRef
	PinOwner(pin PinID) (GraphNode, bool)
}

// topoSort produces a linearization in which every dependency precedes its
// dependents: node A depends on node B when an edge runs from a pin of B to
// a pin of A. Ties resolve by node insertion order, which keeps the result
// deterministic for an unchanged graph.
func topoSort(g Graph) ([]GraphNode, bool) {
	nodes := g.Nodes()
	indegree := make(map[uint32]int, len(nodes))
	dependents := make(map[uint32][]uint32)
	for _, n := range nodes {
		indegree[n.ID()] = 0
	}
	for _, e := range g.Edges() {
		src, ok := g.PinOwner(e.Start)
		if !ok {
			continue // stale edge, reported during link resolution
		}
		dst, ok := g.PinOwner(e.End)
		if !ok || src.ID() == dst.ID() {
			continue
		}
		dependents[src.ID()] = append(dependents[src.ID()], dst.ID())
		indegree[dst.ID()]++
	}

	sorted := make([]GraphNode, 0, len(nodes))
	done := make(map[uint32]bool, len(nodes))
	for len(sorted) < len(nodes) {
		progressed := false
		for _, n := range nodes {
			if done[n.ID()] || indegree[n.ID()] > 0 {
				continue
			}
			done[n.ID()] = true
			sorted = append(sorted, n)
			for _, dep := range dependents[n.ID()] {
				indegree[dep]--
			}
			progressed = true
		}
		if !progressed {
			return nil, false
		}
	}
	return sorted, true
}

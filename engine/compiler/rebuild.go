package compiler

import (
	"sort"

	"golang.org/x/exp/slices"

	"github.com/fini03/vkduck/engine/core"
)

// LinkDecision records one applied edge connection. The code generator
// replays these in order so the emitted source binds exactly what the live
// rebuild bound.
type LinkDecision struct {
	Dst  Handle
	Slot uint32
	Src  Array
}

// Compiler owns the Store and turns the edited node graph into linked GPU
// state. All of it runs synchronously on the GPU-owning thread; the per-frame
// renderer only reads the Linked snapshot through OrderedPrimitives and
// Record.
type Compiler struct {
	store *Store
	dev   Device

	ordered []Handle
	links   []LinkDecision

	outputW uint32
	outputH uint32
}

func New(dev Device) *Compiler {
	return &Compiler{
		store: NewStore(),
		dev:   dev,
	}
}

func (c *Compiler) Store() *Store { return c.store }

// Links returns the applied link decisions of the last successful rebuild,
// in connect order.
func (c *Compiler) Links() []LinkDecision { return c.links }

// OrderedPrimitives returns the canonical-order handle list captured at the
// last successful rebuild, or nil when nothing is linked.
func (c *Compiler) OrderedPrimitives() []Handle {
	if c.store.State() != StoreLinked {
		return nil
	}
	return c.ordered
}

// OutputImage returns the native image currently wired for presentation, or
// nil while no valid present sink is linked.
func (c *Compiler) OutputImage() Resource {
	if c.store.State() != StoreLinked {
		return nil
	}
	for i := uint32(0); i < c.store.Count(TypePresent); i++ {
		if out := c.store.PresentAt(Handle{Index: i, Type: TypePresent}).OutputImage(c.store); out != nil {
			return out
		}
	}
	return nil
}

// Record emits the per-frame commands of every linked primitive in canonical
// order. A no-op while nothing is linked: failure renders nothing rather
// than something stale.
func (c *Compiler) Record(enc CommandEncoder) {
	if c.store.State() != StoreLinked {
		return
	}
	for _, h := range c.ordered {
		if p := c.store.Get(h); p != nil {
			p.RecordCommands(c.store, enc)
		}
	}
}

// Teardown destroys the current generation and forgets it. Used on editor
// shutdown; Rebuild performs the same sequence itself before recompiling.
func (c *Compiler) Teardown() {
	c.dev.WaitIdle()
	c.store.Destroy(c.dev)
	c.store.Reset()
	c.ordered = nil
	c.links = nil
}

type resolvedEdge struct {
	src  Array
	slot uint32
}

// Rebuild is the single orchestrated entry point: teardown, dependency sort,
// materialization, link resolution, native creation and staging. Atomic from
// the caller's perspective: either the Store reaches Linked, or the previous
// generation is already gone and nothing is exposed to the renderer.
func (c *Compiler) Rebuild(g Graph) bool {
	// Prepare nodes for idempotent re-materialization, then tear down the
	// previous generation.
	for _, n := range g.Nodes() {
		n.ClearPrimitives()
	}
	c.Teardown()

	sorted, ok := topoSort(g)
	if !ok {
		core.LogError("rebuild: %s", core.ErrGraphCycle)
		return false
	}

	// Pre-flight: a known-broken shader aborts before any primitive is
	// created. A partially-built store from bad byte-code is strictly worse
	// than refusing to rebuild.
	for _, n := range sorted {
		if err := n.Validate(); err != nil {
			core.LogWarn("rebuild: node '%s' failed validation, aborting: %s", n.Name(), err)
			return false
		}
	}

	// Materialize primitives node by node in dependency order and collect
	// the pin maps.
	outputs := make(map[PinID]Array)
	inputs := make(map[PinID]LinkSlot)
	for _, n := range sorted {
		n.ClearPrimitives()
		if !n.CreatePrimitives(c.store, c.dev) {
			core.LogWarn("rebuild: node '%s' failed to materialize, skipping its outputs", n.Name())
			continue
		}
		for pin, arr := range n.OutputPrimitives() {
			outputs[pin] = arr
		}
		for pin, slot := range n.InputPrimitives() {
			inputs[pin] = slot
		}
	}
	c.store.setState(StoreCreated)

	// Resolve edges against the pin maps. A missing side means a stale edge
	// (e.g. a hot reload removed the pin): warn and drop, never fail.
	groups := make(map[Handle][]resolvedEdge)
	for _, e := range g.Edges() {
		arr, okOut := outputs[e.Start]
		if !okOut {
			core.LogWarn("rebuild: edge start pin %x has no output, dropping stale edge", uint64(e.Start))
			continue
		}
		dst, okIn := inputs[e.End]
		if !okIn {
			core.LogWarn("rebuild: edge end pin %x has no input slot, dropping stale edge", uint64(e.End))
			continue
		}
		groups[dst.Handle] = append(groups[dst.Handle], resolvedEdge{src: arr, slot: dst.Slot})
	}

	// Deterministic link order: groups by destination handle, edges within a
	// group by slot then source name. This governs descriptor binding order
	// when multiple inputs target one consumer.
	targets := make([]Handle, 0, len(groups))
	for h := range groups {
		targets = append(targets, h)
	}
	slices.SortFunc(targets, func(a, b Handle) int {
		if a.Type != b.Type {
			return int(a.Type) - int(b.Type)
		}
		return int(a.Index) - int(b.Index)
	})

	c.links = c.links[:0]
	for _, h := range targets {
		prim := c.store.Get(h)
		if prim == nil {
			core.LogError("rebuild: link target %s_%d does not exist", h.Type, h.Index)
			return c.abortLinking()
		}
		conn, isConn := prim.(Connector)
		if !isConn {
			core.LogError("rebuild: primitive '%s' accepts no connections", prim.Name())
			return c.abortLinking()
		}
		edges := groups[h]
		sort.SliceStable(edges, func(i, j int) bool {
			if edges[i].slot != edges[j].slot {
				return edges[i].slot < edges[j].slot
			}
			return edges[i].src.Name < edges[j].src.Name
		})
		for _, e := range edges {
			if !conn.Connect(e.src, e.slot, c.store) {
				core.LogError("rebuild: connecting '%s' slot %d failed, aborting link phase", prim.Name(), e.slot)
				return c.abortLinking()
			}
			c.links = append(c.links, LinkDecision{Dst: h, Slot: e.slot, Src: e.src})
		}
	}

	// Native creation and staging in canonical order. Linking already ran,
	// so usage flags mutated by connects (sampled, transfer-src) are final.
	// Individual failures are node-local: log and keep going.
	nodes := c.store.Nodes()
	for _, p := range nodes {
		if !p.Create(c.store, c.dev) {
			core.LogWarn("rebuild: primitive '%s' failed to create", p.Name())
		}
	}
	for _, p := range nodes {
		if !p.Stage(c.dev) {
			core.LogWarn("rebuild: primitive '%s' failed to stage", p.Name())
		}
	}

	// Capture the ordered snapshot, pick up the latest output size and
	// expose the new generation.
	c.ordered = make([]Handle, len(nodes))
	for i, p := range nodes {
		c.ordered[i] = p.Handle()
	}
	c.outputW, c.outputH = c.dev.OutputSize()
	c.store.setState(StoreLinked)
	return true
}

// abortLinking rolls the store back to a safely empty generation:
// inconsistent partial linking must never reach the renderer.
func (c *Compiler) abortLinking() bool {
	c.store.Destroy(c.dev)
	c.store.Reset()
	c.ordered = nil
	c.links = nil
	return false
}

package graph

import (
	"github.com/fini03/vkduck/engine/compiler"
	"github.com/fini03/vkduck/engine/core"
)

type PinKind int

const (
	PinInput PinKind = iota
	PinOutput
)

// Pin is an editor-facing connection point. Its ID is stable for the life of
// the node (node id in the high bits, node-local index in the low bits), so
// serialized edges can be reattached after a reload.
type Pin struct {
	ID   compiler.PinID
	Name string
	Kind PinKind
}

// Node is one editor graph node. Besides the compiler contract it carries
// the editor-facing state: pins, canvas position and the settings map an
// external serializer round-trips.
type Node interface {
	compiler.GraphNode

	Pins() []Pin
	Position() (x, y float32)
	SetPosition(x, y float32)

	// Settings/ApplySettings expose per-node state as a flat string map
	// keyed by stable names; the document format around it is not this
	// package's business.
	Settings() map[string]string
	ApplySettings(map[string]string)

	// Release gives the node's id back; called when the node is removed
	// from the graph or the editor closes.
	Release()
}

// FindPin resolves a pin by display name, the way edges are authored from
// the canvas.
func FindPin(n Node, name string) (compiler.PinID, bool) {
	for _, p := range n.Pins() {
		if p.Name == name {
			return p.ID, true
		}
	}
	return 0, false
}

// baseNode carries the state every node kind shares.
type baseNode struct {
	id   uint32
	name string
	x, y float32
	pins []Pin
}

func newBaseNode(owner interface{}, name string) baseNode {
	return baseNode{
		id:   core.IdentifierAquireNewID(owner),
		name: name,
	}
}

func (b *baseNode) ID() uint32   { return b.id }
func (b *baseNode) Name() string { return b.name }

func (b *baseNode) Position() (float32, float32) { return b.x, b.y }
func (b *baseNode) SetPosition(x, y float32)     { b.x, b.y = x, y }

func (b *baseNode) Pins() []Pin { return b.pins }

func (b *baseNode) Validate() error { return nil }

func (b *baseNode) Settings() map[string]string  { return map[string]string{} }
func (b *baseNode) ApplySettings(map[string]string) {}

func (b *baseNode) Release() {
	if err := core.IdentifierReleaseID(b.id); err != nil {
		core.LogWarn("node '%s': %s", b.name, err)
	}
}

// addPin registers a pin under a stable node-local index and returns its id.
func (b *baseNode) addPin(local uint32, name string, kind PinKind) compiler.PinID {
	id := compiler.MakePinID(b.id, local)
	b.pins = append(b.pins, Pin{ID: id, Name: name, Kind: kind})
	return id
}

// resetPins drops all pins; node kinds with reflection-derived pins rebuild
// them after a shader reload.
func (b *baseNode) resetPins() {
	b.pins = b.pins[:0]
}

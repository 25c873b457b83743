package compiler

// Array is the only unit exchanged between node output pins and input pins.
// A pin never exposes a bare handle; wrapping indices in a named, typed list
// keeps per-object cardinality explicit (N geometries, N lights, ...).
type Array struct {
	Name    string
	Type    PrimitiveType
	Indices []uint32
}

func (a Array) Len() int {
	return len(a.Indices)
}

func (a Array) Empty() bool {
	return len(a.Indices) == 0
}

// HandleAt returns the element at i as a full handle.
func (a Array) HandleAt(i int) Handle {
	return Handle{Index: a.Indices[i], Type: a.Type}
}

// LinkSlot is what a consuming node declares for an input pin: "bind the
// incoming array into slot Slot of the primitive at Handle". A graph edge
// resolves into exactly one of these.
type LinkSlot struct {
	Handle Handle
	Slot   uint32
}

// Slot numbers above the descriptor binding range address non-descriptor
// inputs on a consumer.
const (
	// Vertex data input of a pipeline primitive.
	SlotVertexData uint32 = 0xFFFF_0000
	// Source image array of a present primitive.
	SlotPresentSource uint32 = 0xFFFF_0001
)

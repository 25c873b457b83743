package graph

import (
	"github.com/fini03/vkduck/engine/compiler"
)

const presentPinImage uint32 = 0

// PresentNode materializes the presentation sink.
type PresentNode struct {
	baseNode

	imagePin compiler.PinID
	handle   compiler.Handle
}

func NewPresentNode(name string) *PresentNode {
	n := &PresentNode{}
	n.baseNode = newBaseNode(n, name)
	n.imagePin = n.addPin(presentPinImage, "image", PinInput)
	return n
}

func (n *PresentNode) ClearPrimitives() {
	n.handle = compiler.NilHandle
}

func (n *PresentNode) CreatePrimitives(store *compiler.Store, dev compiler.Device) bool {
	n.handle = store.NewPresent().Handle()
	return true
}

func (n *PresentNode) OutputPrimitives() map[compiler.PinID]compiler.Array {
	return map[compiler.PinID]compiler.Array{}
}

func (n *PresentNode) InputPrimitives() map[compiler.PinID]compiler.LinkSlot {
	if !n.handle.IsValid() {
		return map[compiler.PinID]compiler.LinkSlot{}
	}
	return map[compiler.PinID]compiler.LinkSlot{
		n.imagePin: {Handle: n.handle, Slot: compiler.SlotPresentSource},
	}
}

package graph

import (
	"unsafe"

	"github.com/fini03/vkduck/engine/compiler"
	"github.com/fini03/vkduck/engine/core"
	"github.com/fini03/vkduck/engine/math"
)

const lightPinOut uint32 = 0

const maxLights = 16

// Light is one point light, laid out std140-compatibly.
type Light struct {
	Position  math.Vec4
	Color     math.Vec4
	Intensity float32
	_pad      [3]float32
}

// lightBlock is the packed uniform contents: a fixed array plus the live
// count, which is how the shaders declare it.
type lightBlock struct {
	Lights [maxLights]Light
	Count  uint32
	_pad   [3]uint32
}

// LightNode packs all its lights into a single uniform buffer primitive, so
// the output array always has length one: lights are global, not
// per-object.
type LightNode struct {
	baseNode

	Lights []Light

	outPin compiler.PinID
	arr    compiler.Array
}

func NewLightNode(name string) *LightNode {
	n := &LightNode{}
	n.baseNode = newBaseNode(n, name)
	n.outPin = n.addPin(lightPinOut, "lights", PinOutput)
	return n
}

func (n *LightNode) AddLight(l Light) {
	n.Lights = append(n.Lights, l)
}

func (n *LightNode) ClearPrimitives() {
	n.arr = compiler.Array{}
}

func (n *LightNode) CreatePrimitives(store *compiler.Store, dev compiler.Device) bool {
	if len(n.Lights) > maxLights {
		core.LogError("lights '%s': %d lights exceeds the packed limit of %d", n.name, len(n.Lights), maxLights)
		return false
	}

	var block lightBlock
	copy(block.Lights[:], n.Lights)
	block.Count = uint32(len(n.Lights))

	raw := unsafe.Slice((*byte)(unsafe.Pointer(&block)), unsafe.Sizeof(block))
	data := make([]byte, len(raw))
	copy(data, raw)

	ub := store.NewUniformBuffer()
	ub.Data = data

	n.arr = compiler.Array{
		Name:    n.name,
		Type:    compiler.TypeUniformBuffer,
		Indices: []uint32{ub.Handle().Index},
	}
	return true
}

func (n *LightNode) OutputPrimitives() map[compiler.PinID]compiler.Array {
	if n.arr.Empty() {
		return map[compiler.PinID]compiler.Array{}
	}
	return map[compiler.PinID]compiler.Array{n.outPin: n.arr}
}

func (n *LightNode) InputPrimitives() map[compiler.PinID]compiler.LinkSlot {
	return map[compiler.PinID]compiler.LinkSlot{}
}

package graph

import (
	"github.com/fini03/vkduck/engine/compiler"
	"github.com/fini03/vkduck/engine/core"
)

// Mesh is one decoded geometry handed to a model node by the asset loaders.
type Mesh struct {
	Name        string
	Stride      uint32
	Attributes  []compiler.VertexAttribute
	VertexCount uint32
	Vertices    []byte
	IndexCount  uint32
	Indices     []byte
}

// Texture is one decoded image handed to a model node by the asset loaders.
type Texture struct {
	Name   string
	Width  uint32
	Height uint32
	Pixels []byte
}

const (
	modelPinVertexData uint32 = iota
	modelPinTexture
)

// ModelNode owns N decoded meshes and their textures and materializes one
// vertex-data primitive and one image primitive per mesh. Both output arrays
// have length N, which is what drives per-object descriptor cardinality
// downstream.
type ModelNode struct {
	baseNode

	Path     string
	Meshes   []Mesh
	Textures []Texture

	vertexPin  compiler.PinID
	texturePin compiler.PinID

	vertexArr  compiler.Array
	textureArr compiler.Array
}

func NewModelNode(name, path string, meshes []Mesh, textures []Texture) *ModelNode {
	n := &ModelNode{
		Path:     path,
		Meshes:   meshes,
		Textures: textures,
	}
	n.baseNode = newBaseNode(n, name)
	n.vertexPin = n.addPin(modelPinVertexData, "vertexData", PinOutput)
	n.texturePin = n.addPin(modelPinTexture, "texture", PinOutput)
	return n
}

func (n *ModelNode) ClearPrimitives() {
	n.vertexArr = compiler.Array{}
	n.textureArr = compiler.Array{}
}

func (n *ModelNode) CreatePrimitives(store *compiler.Store, dev compiler.Device) bool {
	if len(n.Meshes) == 0 {
		core.LogError("model '%s': no meshes loaded from '%s'", n.name, n.Path)
		return false
	}

	n.vertexArr = compiler.Array{Name: n.name + "_geometry", Type: compiler.TypeVertexData}
	for _, m := range n.Meshes {
		vd := store.NewVertexData()
		vd.Stride = m.Stride
		vd.Attributes = m.Attributes
		vd.VertexCount = m.VertexCount
		vd.Vertices = m.Vertices
		vd.IndexCount = m.IndexCount
		vd.Indices = m.Indices
		n.vertexArr.Indices = append(n.vertexArr.Indices, vd.Handle().Index)
	}

	n.textureArr = compiler.Array{Name: n.name + "_texture", Type: compiler.TypeImage}
	for _, t := range n.Textures {
		img := store.NewImage()
		img.Width = t.Width
		img.Height = t.Height
		img.Format = compiler.FormatR8G8B8A8Unorm
		img.Usage = compiler.ImageUsageTransferDst
		img.Pixels = t.Pixels
		n.textureArr.Indices = append(n.textureArr.Indices, img.Handle().Index)
	}
	return true
}

func (n *ModelNode) OutputPrimitives() map[compiler.PinID]compiler.Array {
	out := map[compiler.PinID]compiler.Array{}
	if !n.vertexArr.Empty() {
		out[n.vertexPin] = n.vertexArr
	}
	if !n.textureArr.Empty() {
		out[n.texturePin] = n.textureArr
	}
	return out
}

func (n *ModelNode) InputPrimitives() map[compiler.PinID]compiler.LinkSlot {
	return map[compiler.PinID]compiler.LinkSlot{}
}

func (n *ModelNode) Settings() map[string]string {
	return map[string]string{"path": n.Path}
}

func (n *ModelNode) ApplySettings(s map[string]string) {
	if p, ok := s["path"]; ok {
		n.Path = p
	}
}

package graph

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fini03/vkduck/engine/compiler"
	"github.com/fini03/vkduck/engine/math"
)

func TestLightNodePacksOneUniformBuffer(t *testing.T) {
	store := compiler.NewStore()
	n := NewLightNode("sun")
	n.AddLight(Light{Position: math.Vec4{X: 1, W: 1}, Color: math.Vec4{X: 1, Y: 1, Z: 1, W: 1}, Intensity: 2})
	n.AddLight(Light{Position: math.Vec4{Y: 5, W: 1}, Color: math.Vec4{X: 0.5, W: 1}, Intensity: 1})

	require.True(t, n.CreatePrimitives(store, nil))

	out := n.OutputPrimitives()
	require.Len(t, out, 1)
	for _, arr := range out {
		// N lights still cross the pin as a single-element array: lights
		// are global, not per-object.
		assert.Equal(t, compiler.TypeUniformBuffer, arr.Type)
		assert.Equal(t, 1, arr.Len())

		ub := store.UniformBufferAt(arr.HandleAt(0))
		assert.Equal(t, int(unsafe.Sizeof(lightBlock{})), len(ub.Data))
	}
}

func TestLightNodeRejectsOverflow(t *testing.T) {
	store := compiler.NewStore()
	n := NewLightNode("sun")
	for i := 0; i < maxLights+1; i++ {
		n.AddLight(Light{Intensity: 1})
	}
	assert.False(t, n.CreatePrimitives(store, nil))
}

func TestModelNodeArraysShareCardinality(t *testing.T) {
	store := compiler.NewStore()
	meshes := []Mesh{
		{Name: "a", Stride: 32, VertexCount: 3, Vertices: make([]byte, 96)},
		{Name: "b", Stride: 32, VertexCount: 3, Vertices: make([]byte, 96)},
	}
	textures := []Texture{
		{Name: "a", Width: 4, Height: 4, Pixels: make([]byte, 64)},
		{Name: "b", Width: 4, Height: 4, Pixels: make([]byte, 64)},
	}
	n := NewModelNode("duck", "duck.obj", meshes, textures)

	require.True(t, n.CreatePrimitives(store, nil))

	out := n.OutputPrimitives()
	require.Len(t, out, 2)
	for _, arr := range out {
		assert.Equal(t, 2, arr.Len())
	}
}

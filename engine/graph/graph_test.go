package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fini03/vkduck/engine/compiler"
)

func TestConnectValidatesDirectionAndPins(t *testing.T) {
	g := New()
	cam := NewCameraNode("cam")
	pres := NewPresentNode("screen")
	g.AddNode(cam)
	g.AddNode(pres)

	out, ok := FindPin(cam, "camera")
	require.True(t, ok)
	in, ok := FindPin(pres, "image")
	require.True(t, ok)

	// Input to output is rejected; output to input passes pin validation.
	assert.Error(t, g.Connect(in, out))
	assert.NoError(t, g.Connect(out, in))
	assert.Len(t, g.Edges(), 1)

	// Connecting the same edge again is a no-op.
	assert.NoError(t, g.Connect(out, in))
	assert.Len(t, g.Edges(), 1)

	// Unknown pins are rejected.
	ghost := compiler.MakePinID(9999, 0)
	assert.Error(t, g.Connect(ghost, in))
}

func TestRemoveNodeDropsItsEdges(t *testing.T) {
	g := New()
	cam := NewCameraNode("cam")
	pres := NewPresentNode("screen")
	g.AddNode(cam)
	g.AddNode(pres)

	out, _ := FindPin(cam, "camera")
	in, _ := FindPin(pres, "image")
	require.NoError(t, g.Connect(out, in))

	g.RemoveNode(cam.ID())

	assert.Len(t, g.EditorNodes(), 1)
	assert.Empty(t, g.Edges())
}

func TestDisconnectRemovesSingleEdge(t *testing.T) {
	g := New()
	cam := NewCameraNode("cam")
	pres := NewPresentNode("screen")
	g.AddNode(cam)
	g.AddNode(pres)

	out, _ := FindPin(cam, "camera")
	in, _ := FindPin(pres, "image")
	require.NoError(t, g.Connect(out, in))

	g.Disconnect(out, in)
	assert.Empty(t, g.Edges())
}

func TestPinOwnerResolvesNodes(t *testing.T) {
	g := New()
	cam := NewCameraNode("cam")
	g.AddNode(cam)

	out, _ := FindPin(cam, "camera")
	owner, ok := g.PinOwner(out)
	require.True(t, ok)
	assert.Equal(t, cam.ID(), owner.ID())

	_, ok = g.PinOwner(compiler.MakePinID(9999, 0))
	assert.False(t, ok)
}

func TestNodesSatisfyCompilerGraph(t *testing.T) {
	g := New()
	g.AddNode(NewCameraNode("cam"))
	g.AddNode(NewLightNode("sun"))

	var _ compiler.Graph = g
	assert.Len(t, g.Nodes(), 2)
}

package graph

import (
	"strconv"

	"github.com/fini03/vkduck/engine/compiler"
	"github.com/fini03/vkduck/engine/math"
)

const cameraPinOut uint32 = 0

// CameraNode materializes one camera primitive: a specialized uniform buffer
// holding view/projection matrices, recomputed against the current output
// aspect at every rebuild.
type CameraNode struct {
	baseNode

	FovDegrees float32
	NearClip   float32
	FarClip    float32
	Eye        math.Vec3
	Target     math.Vec3

	outPin compiler.PinID
	arr    compiler.Array
}

func NewCameraNode(name string) *CameraNode {
	n := &CameraNode{
		FovDegrees: 60,
		NearClip:   0.1,
		FarClip:    1000,
		Eye:        math.Vec3{X: 0, Y: 2, Z: 5},
	}
	n.baseNode = newBaseNode(n, name)
	n.outPin = n.addPin(cameraPinOut, "camera", PinOutput)
	return n
}

func (n *CameraNode) ClearPrimitives() {
	n.arr = compiler.Array{}
}

func (n *CameraNode) CreatePrimitives(store *compiler.Store, dev compiler.Device) bool {
	w, h := dev.OutputSize()
	aspect := float32(1)
	if h != 0 {
		aspect = float32(w) / float32(h)
	}

	cam := store.NewCamera()
	cam.Dynamic = true
	cam.Data.Projection = math.NewMat4Perspective(n.FovDegrees*3.14159265/180.0, aspect, n.NearClip, n.FarClip)
	cam.Data.View = math.NewMat4LookAt(n.Eye, n.Target, math.Vec3{Y: 1})
	cam.Data.Position = math.Vec4{X: n.Eye.X, Y: n.Eye.Y, Z: n.Eye.Z, W: 1}

	n.arr = compiler.Array{
		Name:    n.name,
		Type:    compiler.TypeCamera,
		Indices: []uint32{cam.Handle().Index},
	}
	return true
}

func (n *CameraNode) OutputPrimitives() map[compiler.PinID]compiler.Array {
	if n.arr.Empty() {
		return map[compiler.PinID]compiler.Array{}
	}
	return map[compiler.PinID]compiler.Array{n.outPin: n.arr}
}

func (n *CameraNode) InputPrimitives() map[compiler.PinID]compiler.LinkSlot {
	return map[compiler.PinID]compiler.LinkSlot{}
}

func (n *CameraNode) Settings() map[string]string {
	return map[string]string{
		"fov":  strconv.FormatFloat(float64(n.FovDegrees), 'f', -1, 32),
		"near": strconv.FormatFloat(float64(n.NearClip), 'f', -1, 32),
		"far":  strconv.FormatFloat(float64(n.FarClip), 'f', -1, 32),
	}
}

func (n *CameraNode) ApplySettings(s map[string]string) {
	if v, ok := s["fov"]; ok {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			n.FovDegrees = float32(f)
		}
	}
	if v, ok := s["near"]; ok {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			n.NearClip = float32(f)
		}
	}
	if v, ok := s["far"]; ok {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			n.FarClip = float32(f)
		}
	}
}

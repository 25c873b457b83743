package compiler

import (
	"unsafe"

	"github.com/fini03/vkduck/engine/core"
	"github.com/fini03/vkduck/engine/math"
)

// CameraData is the uniform layout cameras expose to shaders.
type CameraData struct {
	View       math.Mat4
	Projection math.Mat4
	Position   math.Vec4
}

// Camera is representationally a specialized uniform buffer: it is accepted
// by link resolution wherever a uniform-buffer binding is expected. Fixed
// cameras are staged once; dynamic ones re-copy their matrices every frame.
type Camera struct {
	base

	Data    CameraData
	Dynamic bool

	buf Resource
}

func (p *Camera) Native() Resource { return p.buf }

func (p *Camera) bytes() []byte {
	size := unsafe.Sizeof(p.Data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&p.Data)), size)
}

func (p *Camera) Create(store *Store, dev Device) bool {
	buf, err := dev.CreateBuffer(uint64(unsafe.Sizeof(p.Data)), BufferUsageUniform)
	if err != nil {
		core.LogError("camera '%s': create failed: %s", p.name, err)
		return false
	}
	p.buf = buf
	return true
}

func (p *Camera) Stage(dev Device) bool {
	if p.buf == nil {
		return true
	}
	if err := dev.UploadBuffer(p.buf, p.bytes()); err != nil {
		core.LogError("camera '%s': upload failed: %s", p.name, err)
		return false
	}
	return true
}

func (p *Camera) Destroy(store *Store, dev Device) {
	if p.buf != nil {
		dev.DestroyBuffer(p.buf)
		p.buf = nil
	}
}

func (p *Camera) RecordCommands(store *Store, enc CommandEncoder) {
	if p.Dynamic && p.buf != nil {
		enc.WriteBuffer(p.buf, p.bytes())
	}
}

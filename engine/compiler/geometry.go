package compiler

import (
	"github.com/fini03/vkduck/engine/core"
)

// VertexData is one geometry's vertex (and optional index) buffer. Model
// nodes materialize one per mesh; the array of them crossing a pin is what
// makes per-object cardinality explicit.
type VertexData struct {
	base

	Stride     uint32
	Attributes []VertexAttribute

	VertexCount uint32
	Vertices    []byte
	IndexCount  uint32
	Indices     []byte

	vbuf Resource
	ibuf Resource
}

func (p *VertexData) Create(store *Store, dev Device) bool {
	if p.VertexCount == 0 || p.Stride == 0 {
		core.LogError("vertex data '%s': empty geometry", p.name)
		return false
	}
	vbuf, err := dev.CreateBuffer(uint64(p.VertexCount)*uint64(p.Stride), BufferUsageVertex)
	if err != nil {
		core.LogError("vertex data '%s': vertex buffer failed: %s", p.name, err)
		return false
	}
	p.vbuf = vbuf

	if p.IndexCount > 0 {
		ibuf, err := dev.CreateBuffer(uint64(p.IndexCount)*4, BufferUsageIndex)
		if err != nil {
			core.LogError("vertex data '%s': index buffer failed: %s", p.name, err)
			dev.DestroyBuffer(p.vbuf)
			p.vbuf = nil
			return false
		}
		p.ibuf = ibuf
	}
	return true
}

func (p *VertexData) Stage(dev Device) bool {
	if p.vbuf != nil && len(p.Vertices) > 0 {
		if err := dev.UploadBuffer(p.vbuf, p.Vertices); err != nil {
			core.LogError("vertex data '%s': vertex upload failed: %s", p.name, err)
			return false
		}
	}
	if p.ibuf != nil && len(p.Indices) > 0 {
		if err := dev.UploadBuffer(p.ibuf, p.Indices); err != nil {
			core.LogError("vertex data '%s': index upload failed: %s", p.name, err)
			return false
		}
	}
	return true
}

func (p *VertexData) Destroy(store *Store, dev Device) {
	if p.ibuf != nil {
		dev.DestroyBuffer(p.ibuf)
		p.ibuf = nil
	}
	if p.vbuf != nil {
		dev.DestroyBuffer(p.vbuf)
		p.vbuf = nil
	}
}

package compiler

import (
	"github.com/fini03/vkduck/engine/core"
)

// UniformBuffer is a GPU uniform buffer primitive. Light nodes pack all
// their lights into one of these; static contents are staged once, dynamic
// contents are re-copied every frame by RecordCommands.
type UniformBuffer struct {
	base

	Size    uint64
	Data    []byte
	Dynamic bool

	buf Resource
}

func (p *UniformBuffer) Native() Resource { return p.buf }

func (p *UniformBuffer) byteSize() uint64 {
	if p.Size > 0 {
		return p.Size
	}
	return uint64(len(p.Data))
}

func (p *UniformBuffer) Create(store *Store, dev Device) bool {
	size := p.byteSize()
	if size == 0 {
		core.LogError("uniform buffer '%s': zero size", p.name)
		return false
	}
	buf, err := dev.CreateBuffer(size, BufferUsageUniform)
	if err != nil {
		core.LogError("uniform buffer '%s': create failed: %s", p.name, err)
		return false
	}
	p.buf = buf
	return true
}

func (p *UniformBuffer) Stage(dev Device) bool {
	if p.buf == nil || len(p.Data) == 0 {
		return true
	}
	if err := dev.UploadBuffer(p.buf, p.Data); err != nil {
		core.LogError("uniform buffer '%s': upload failed: %s", p.name, err)
		return false
	}
	return true
}

func (p *UniformBuffer) Destroy(store *Store, dev Device) {
	if p.buf != nil {
		dev.DestroyBuffer(p.buf)
		p.buf = nil
	}
}

func (p *UniformBuffer) RecordCommands(store *Store, enc CommandEncoder) {
	if p.Dynamic && p.buf != nil && len(p.Data) > 0 {
		enc.WriteBuffer(p.buf, p.Data)
	}
}

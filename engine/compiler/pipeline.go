package compiler

import (
	"github.com/fini03/vkduck/engine/core"
)

// Pipeline is the graphics pipeline primitive. Its descriptor sets are
// partitioned into a "global" prefix (one physical set each) and an "object"
// suffix (N physical sets each): the scan stops at the first multi-instance
// set. That ordering contract comes straight from how shaders declare their
// sets; GlobalSetCount exposes the result so recording never re-derives it.
type Pipeline struct {
	base

	Pass   Handle
	Stages []Handle
	Sets   []Handle
	Vertex Array

	globalSetCount int
	objectCount    uint32
	pipeline       Resource
	layout         Resource
}

// GlobalSetCount is the number of leading single-instance descriptor sets.
// Valid after a successful Create.
func (p *Pipeline) GlobalSetCount() int { return p.globalSetCount }

// Connect accepts the optional vertex-data array. Descriptor inputs never
// arrive here; they resolve directly onto the pipeline's descriptor sets.
func (p *Pipeline) Connect(arr Array, slot uint32, store *Store) bool {
	if slot != SlotVertexData {
		core.LogError("pipeline '%s': unknown input slot %d", p.name, slot)
		return false
	}
	if arr.Type != TypeVertexData {
		core.LogError("pipeline '%s': vertex input expects vertex data, got %s", p.name, arr.Type)
		return false
	}
	if arr.Empty() {
		core.LogError("pipeline '%s': empty vertex data array", p.name)
		return false
	}
	p.Vertex = arr
	return true
}

func (p *Pipeline) Create(store *Store, dev Device) bool {
	// 1. A pass and at least one shader stage must exist.
	if store.Get(p.Pass) == nil || p.Pass.Type != TypeRenderPass {
		core.LogError("pipeline '%s': missing render pass", p.name)
		return false
	}
	pass := store.RenderPassAt(p.Pass)
	if pass.rp == nil {
		core.LogError("pipeline '%s': render pass '%s' was not created", p.name, pass.Name())
		return false
	}
	if len(p.Stages) == 0 {
		core.LogError("pipeline '%s': no shader stages", p.name)
		return false
	}

	stages := make([]ShaderStageCode, 0, len(p.Stages))
	for _, sh := range p.Stages {
		sm := store.ShaderModuleAt(sh)
		if sm.module == nil {
			core.LogError("pipeline '%s': shader module '%s' was not created", p.name, sm.Name())
			return false
		}
		stages = append(stages, ShaderStageCode{Stage: sm.ShaderStage, Module: sm.module})
	}

	// 2. Vertex layout from the first element of the connected array; every
	// element of one array is assumed format-homogeneous. No array means a
	// bindingless full-screen triangle.
	var stride uint32
	var attrs []VertexAttribute
	if !p.Vertex.Empty() {
		first := store.VertexDataAt(p.Vertex.HandleAt(0))
		stride = first.Stride
		attrs = first.Attributes
	}

	// 3. Blend state per color attachment; depth/stencil state only if an
	// attachment carries the depth usage.
	colorCount := pass.colorAttachmentCount(store)
	depth := pass.hasDepth

	// 4. Partition the ordered set list: the global prefix ends at the first
	// multi-instance set.
	layouts := make([]Resource, 0, len(p.Sets))
	p.globalSetCount = len(p.Sets)
	p.objectCount = 1
	for i, sh := range p.Sets {
		ds := store.DescriptorSetAt(sh)
		if ds.layout == nil {
			core.LogError("pipeline '%s': descriptor set '%s' was not created", p.name, ds.Name())
			return false
		}
		layouts = append(layouts, ds.layout)
		if ds.setCount > 1 && i < p.globalSetCount {
			p.globalSetCount = i
		}
	}
	// Every set in the object suffix must agree on the instance count.
	for i := p.globalSetCount; i < len(p.Sets); i++ {
		ds := store.DescriptorSetAt(p.Sets[i])
		if i == p.globalSetCount {
			p.objectCount = ds.setCount
			continue
		}
		if ds.setCount != p.objectCount {
			core.LogError("pipeline '%s': object set '%s' has %d instances, expected %d",
				p.name, ds.Name(), ds.setCount, p.objectCount)
			return false
		}
	}
	if !p.Vertex.Empty() {
		if p.globalSetCount < len(p.Sets) && p.objectCount != uint32(p.Vertex.Len()) {
			core.LogError("pipeline '%s': %d geometries but %d object set instances",
				p.name, p.Vertex.Len(), p.objectCount)
			return false
		}
		p.objectCount = uint32(p.Vertex.Len())
	}

	pipeline, layout, err := dev.CreatePipeline(PipelineConfig{
		RenderPass:       pass.rp,
		Stages:           stages,
		VertexStride:     stride,
		VertexAttributes: attrs,
		SetLayouts:       layouts,
		ColorAttachments: colorCount,
		DepthStencil:     depth,
		Width:            pass.width,
		Height:           pass.height,
	})
	if err != nil {
		core.LogError("pipeline '%s': create failed: %s", p.name, err)
		return false
	}
	p.pipeline = pipeline
	p.layout = layout
	return true
}

func (p *Pipeline) Destroy(store *Store, dev Device) {
	if p.pipeline != nil || p.layout != nil {
		dev.DestroyPipeline(p.pipeline, p.layout)
		p.pipeline = nil
		p.layout = nil
	}
}

func (p *Pipeline) RecordCommands(store *Store, enc CommandEncoder) {
	if p.pipeline == nil {
		return
	}
	pass := store.RenderPassAt(p.Pass)
	enc.BeginRenderPass(pass.rp, pass.fb, pass.width, pass.height, pass.ClearColor, pass.hasDepth)
	enc.BindPipeline(p.pipeline)

	for i := 0; i < p.globalSetCount; i++ {
		ds := store.DescriptorSetAt(p.Sets[i])
		enc.BindDescriptorSets(p.layout, uint32(i), ds.sets[:1])
	}

	for obj := uint32(0); obj < p.objectCount; obj++ {
		for i := p.globalSetCount; i < len(p.Sets); i++ {
			ds := store.DescriptorSetAt(p.Sets[i])
			enc.BindDescriptorSets(p.layout, uint32(i), []Resource{ds.sets[obj]})
		}
		if p.Vertex.Empty() {
			// Bindingless full-screen triangle.
			enc.Draw(3, 1)
			continue
		}
		vd := store.VertexDataAt(p.Vertex.HandleAt(int(obj)))
		enc.BindVertexBuffer(vd.vbuf)
		if vd.ibuf != nil {
			enc.BindIndexBuffer(vd.ibuf)
			enc.DrawIndexed(vd.IndexCount, 1)
		} else {
			enc.Draw(vd.VertexCount, 1)
		}
	}

	enc.EndRenderPass()
}

package compiler

import (
	"fmt"

	"github.com/fini03/vkduck/engine/core"
)

// Per-type capacities. These are fatal configuration limits, not recoverable
// errors; they are sized well beyond anything an interactively edited graph
// produces.
const (
	MaxDescriptorPools = 256
	MaxImages          = 1024
	MaxAttachments     = 1024
	MaxRenderPasses    = 256
	MaxUniformBuffers  = 1024
	MaxCameras         = 256
	MaxVertexData      = 1024
	MaxShaderModules   = 512
	MaxDescriptorSets  = 512
	MaxPipelines       = 256
	MaxPresents        = 16
)

type StoreState int

const (
	StoreEmpty StoreState = iota
	StoreCreated
	StoreLinked
)

// typeOrder is the canonical forward dependency order. Creation, staging and
// code generation walk it forwards, teardown walks it backwards; having one
// authority keeps the four phases from ever disagreeing. Pools come first so
// descriptor sets can allocate from them, and are therefore destroyed last,
// implicitly freeing the sets allocated from them.
var typeOrder = [...]PrimitiveType{
	TypeDescriptorPool,
	TypeImage,
	TypeAttachment,
	TypeRenderPass,
	TypeUniformBuffer,
	TypeCamera,
	TypeVertexData,
	TypeShaderModule,
	TypeDescriptorSet,
	TypePipeline,
	TypePresent,
}

// Store is the arena owning every primitive of one editor generation. One
// fixed array plus a live count per type; a bump allocator with no reuse or
// compaction within a session. Reset invalidates all previously issued
// handles.
//
// The Store is exclusively owned and mutated by the rebuild orchestrator on
// the GPU-owning thread.
type Store struct {
	state StoreState

	descriptorPools     [MaxDescriptorPools]DescriptorPool
	descriptorPoolCount uint32
	images              [MaxImages]Image
	imageCount          uint32
	attachments         [MaxAttachments]Attachment
	attachmentCount     uint32
	renderPasses        [MaxRenderPasses]RenderPass
	renderPassCount     uint32
	uniformBuffers      [MaxUniformBuffers]UniformBuffer
	uniformBufferCount  uint32
	cameras             [MaxCameras]Camera
	cameraCount         uint32
	vertexData          [MaxVertexData]VertexData
	vertexDataCount     uint32
	shaderModules       [MaxShaderModules]ShaderModule
	shaderModuleCount   uint32
	descriptorSets      [MaxDescriptorSets]DescriptorSet
	descriptorSetCount  uint32
	pipelines           [MaxPipelines]Pipeline
	pipelineCount       uint32
	presents            [MaxPresents]Present
	presentCount        uint32
}

func NewStore() *Store {
	return &Store{state: StoreEmpty}
}

func (s *Store) State() StoreState { return s.state }

func (s *Store) setState(st StoreState) { s.state = st }

func (s *Store) place(b *base, t PrimitiveType, index uint32) {
	b.handle = Handle{Index: index, Type: t}
	b.name = fmt.Sprintf("%s_%d", t, index)
}

func (s *Store) NewDescriptorPool() *DescriptorPool {
	if s.descriptorPoolCount >= MaxDescriptorPools {
		core.LogFatal("store: descriptor pool capacity exceeded (%d)", MaxDescriptorPools)
	}
	idx := s.descriptorPoolCount
	s.descriptorPoolCount++
	p := &s.descriptorPools[idx]
	*p = DescriptorPool{}
	s.place(&p.base, TypeDescriptorPool, idx)
	return p
}

func (s *Store) NewImage() *Image {
	if s.imageCount >= MaxImages {
		core.LogFatal("store: image capacity exceeded (%d)", MaxImages)
	}
	idx := s.imageCount
	s.imageCount++
	img := &s.images[idx]
	*img = Image{}
	s.place(&img.base, TypeImage, idx)
	return img
}

func (s *Store) NewAttachment() *Attachment {
	if s.attachmentCount >= MaxAttachments {
		core.LogFatal("store: attachment capacity exceeded (%d)", MaxAttachments)
	}
	idx := s.attachmentCount
	s.attachmentCount++
	a := &s.attachments[idx]
	*a = Attachment{}
	s.place(&a.base, TypeAttachment, idx)
	return a
}

func (s *Store) NewRenderPass() *RenderPass {
	if s.renderPassCount >= MaxRenderPasses {
		core.LogFatal("store: render pass capacity exceeded (%d)", MaxRenderPasses)
	}
	idx := s.renderPassCount
	s.renderPassCount++
	rp := &s.renderPasses[idx]
	*rp = RenderPass{}
	s.place(&rp.base, TypeRenderPass, idx)
	return rp
}

func (s *Store) NewUniformBuffer() *UniformBuffer {
	if s.uniformBufferCount >= MaxUniformBuffers {
		core.LogFatal("store: uniform buffer capacity exceeded (%d)", MaxUniformBuffers)
	}
	idx := s.uniformBufferCount
	s.uniformBufferCount++
	ub := &s.uniformBuffers[idx]
	*ub = UniformBuffer{}
	s.place(&ub.base, TypeUniformBuffer, idx)
	return ub
}

func (s *Store) NewCamera() *Camera {
	if s.cameraCount >= MaxCameras {
		core.LogFatal("store: camera capacity exceeded (%d)", MaxCameras)
	}
	idx := s.cameraCount
	s.cameraCount++
	c := &s.cameras[idx]
	*c = Camera{}
	s.place(&c.base, TypeCamera, idx)
	return c
}

func (s *Store) NewVertexData() *VertexData {
	if s.vertexDataCount >= MaxVertexData {
		core.LogFatal("store: vertex data capacity exceeded (%d)", MaxVertexData)
	}
	idx := s.vertexDataCount
	s.vertexDataCount++
	vd := &s.vertexData[idx]
	*vd = VertexData{}
	s.place(&vd.base, TypeVertexData, idx)
	return vd
}

func (s *Store) NewShaderModule() *ShaderModule {
	if s.shaderModuleCount >= MaxShaderModules {
		core.LogFatal("store: shader module capacity exceeded (%d)", MaxShaderModules)
	}
	idx := s.shaderModuleCount
	s.shaderModuleCount++
	sm := &s.shaderModules[idx]
	*sm = ShaderModule{}
	s.place(&sm.base, TypeShaderModule, idx)
	return sm
}

func (s *Store) NewDescriptorSet() *DescriptorSet {
	if s.descriptorSetCount >= MaxDescriptorSets {
		core.LogFatal("store: descriptor set capacity exceeded (%d)", MaxDescriptorSets)
	}
	idx := s.descriptorSetCount
	s.descriptorSetCount++
	ds := &s.descriptorSets[idx]
	*ds = DescriptorSet{}
	s.place(&ds.base, TypeDescriptorSet, idx)
	return ds
}

func (s *Store) NewPipeline() *Pipeline {
	if s.pipelineCount >= MaxPipelines {
		core.LogFatal("store: pipeline capacity exceeded (%d)", MaxPipelines)
	}
	idx := s.pipelineCount
	s.pipelineCount++
	p := &s.pipelines[idx]
	*p = Pipeline{}
	s.place(&p.base, TypePipeline, idx)
	return p
}

func (s *Store) NewPresent() *Present {
	if s.presentCount >= MaxPresents {
		core.LogFatal("store: present capacity exceeded (%d)", MaxPresents)
	}
	idx := s.presentCount
	s.presentCount++
	p := &s.presents[idx]
	*p = Present{}
	s.place(&p.base, TypePresent, idx)
	return p
}

// Typed accessors. A type mismatch or an out-of-range index here is a
// programming error in the caller's bookkeeping, not user input, so it
// aborts.

func (s *Store) checkHandle(h Handle, want PrimitiveType, count uint32) {
	if h.Type != want || h.Index >= count {
		core.LogFatal("store: invalid %s handle {index=%d type=%s}", want, h.Index, h.Type)
	}
}

func (s *Store) DescriptorPoolAt(h Handle) *DescriptorPool {
	s.checkHandle(h, TypeDescriptorPool, s.descriptorPoolCount)
	return &s.descriptorPools[h.Index]
}

func (s *Store) ImageAt(h Handle) *Image {
	s.checkHandle(h, TypeImage, s.imageCount)
	return &s.images[h.Index]
}

func (s *Store) AttachmentAt(h Handle) *Attachment {
	s.checkHandle(h, TypeAttachment, s.attachmentCount)
	return &s.attachments[h.Index]
}

func (s *Store) RenderPassAt(h Handle) *RenderPass {
	s.checkHandle(h, TypeRenderPass, s.renderPassCount)
	return &s.renderPasses[h.Index]
}

func (s *Store) UniformBufferAt(h Handle) *UniformBuffer {
	s.checkHandle(h, TypeUniformBuffer, s.uniformBufferCount)
	return &s.uniformBuffers[h.Index]
}

func (s *Store) CameraAt(h Handle) *Camera {
	s.checkHandle(h, TypeCamera, s.cameraCount)
	return &s.cameras[h.Index]
}

func (s *Store) VertexDataAt(h Handle) *VertexData {
	s.checkHandle(h, TypeVertexData, s.vertexDataCount)
	return &s.vertexData[h.Index]
}

func (s *Store) ShaderModuleAt(h Handle) *ShaderModule {
	s.checkHandle(h, TypeShaderModule, s.shaderModuleCount)
	return &s.shaderModules[h.Index]
}

func (s *Store) DescriptorSetAt(h Handle) *DescriptorSet {
	s.checkHandle(h, TypeDescriptorSet, s.descriptorSetCount)
	return &s.descriptorSets[h.Index]
}

func (s *Store) PipelineAt(h Handle) *Pipeline {
	s.checkHandle(h, TypePipeline, s.pipelineCount)
	return &s.pipelines[h.Index]
}

func (s *Store) PresentAt(h Handle) *Present {
	s.checkHandle(h, TypePresent, s.presentCount)
	return &s.presents[h.Index]
}

// Get resolves any live handle to its primitive, or nil if the handle does
// not reference a live slot. Generic paths (linking, recording, codegen) use
// this; typed paths use the XxxAt accessors.
func (s *Store) Get(h Handle) Primitive {
	switch h.Type {
	case TypeDescriptorPool:
		if h.Index < s.descriptorPoolCount {
			return &s.descriptorPools[h.Index]
		}
	case TypeImage:
		if h.Index < s.imageCount {
			return &s.images[h.Index]
		}
	case TypeAttachment:
		if h.Index < s.attachmentCount {
			return &s.attachments[h.Index]
		}
	case TypeRenderPass:
		if h.Index < s.renderPassCount {
			return &s.renderPasses[h.Index]
		}
	case TypeUniformBuffer:
		if h.Index < s.uniformBufferCount {
			return &s.uniformBuffers[h.Index]
		}
	case TypeCamera:
		if h.Index < s.cameraCount {
			return &s.cameras[h.Index]
		}
	case TypeVertexData:
		if h.Index < s.vertexDataCount {
			return &s.vertexData[h.Index]
		}
	case TypeShaderModule:
		if h.Index < s.shaderModuleCount {
			return &s.shaderModules[h.Index]
		}
	case TypeDescriptorSet:
		if h.Index < s.descriptorSetCount {
			return &s.descriptorSets[h.Index]
		}
	case TypePipeline:
		if h.Index < s.pipelineCount {
			return &s.pipelines[h.Index]
		}
	case TypePresent:
		if h.Index < s.presentCount {
			return &s.presents[h.Index]
		}
	}
	return nil
}

// Count returns the live count of one collection.
func (s *Store) Count(t PrimitiveType) uint32 {
	switch t {
	case TypeDescriptorPool:
		return s.descriptorPoolCount
	case TypeImage:
		return s.imageCount
	case TypeAttachment:
		return s.attachmentCount
	case TypeRenderPass:
		return s.renderPassCount
	case TypeUniformBuffer:
		return s.uniformBufferCount
	case TypeCamera:
		return s.cameraCount
	case TypeVertexData:
		return s.vertexDataCount
	case TypeShaderModule:
		return s.shaderModuleCount
	case TypeDescriptorSet:
		return s.descriptorSetCount
	case TypePipeline:
		return s.pipelineCount
	case TypePresent:
		return s.presentCount
	}
	return 0
}

// Counts snapshots every live count, keyed by type. Used by the rebuild
// idempotency and leak tests.
func (s *Store) Counts() map[PrimitiveType]uint32 {
	out := make(map[PrimitiveType]uint32, len(typeOrder))
	for _, t := range typeOrder {
		out[t] = s.Count(t)
	}
	return out
}

// Nodes returns every live primitive in forward dependency order. This single
// ordering is authoritative: creation and staging walk it as-is, teardown
// walks it reversed, and the code generator mirrors it, so the four phases
// never disagree.
func (s *Store) Nodes() []Primitive {
	out := make([]Primitive, 0, 64)
	for _, t := range typeOrder {
		for i := uint32(0); i < s.Count(t); i++ {
			out = append(out, s.Get(Handle{Index: i, Type: t}))
		}
	}
	return out
}

// Reset zeroes live counts without touching GPU memory. Teardown is separate
// and explicit (Destroy) so releases always happen in reverse dependency
// order; Reset only forgets.
func (s *Store) Reset() {
	s.descriptorPoolCount = 0
	s.imageCount = 0
	s.attachmentCount = 0
	s.renderPassCount = 0
	s.uniformBufferCount = 0
	s.cameraCount = 0
	s.vertexDataCount = 0
	s.shaderModuleCount = 0
	s.descriptorSetCount = 0
	s.pipelineCount = 0
	s.presentCount = 0
	s.state = StoreEmpty
}

// Destroy releases every primitive in strict reverse dependency order:
// presents first, descriptor pools last.
func (s *Store) Destroy(dev Device) {
	nodes := s.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		nodes[i].Destroy(s, dev)
	}
}

// ValidateUniqueNames checks the global invariant that primitive names are
// unique within a type. The code generator emits names as identifiers and
// calls this first.
func (s *Store) ValidateUniqueNames() error {
	for _, t := range typeOrder {
		seen := make(map[string]uint32)
		for i := uint32(0); i < s.Count(t); i++ {
			name := s.Get(Handle{Index: i, Type: t}).Name()
			if prev, ok := seen[name]; ok {
				return fmt.Errorf("duplicate %s name %q (indices %d and %d)", t, name, prev, i)
			}
			seen[name] = i
		}
	}
	return nil
}

package compiler

// Resource is an opaque native object handed back by the Device. The vulkan
// backend stores its own structs behind it; primitives only carry it between
// Device calls and never inspect it.
type Resource interface{}

type ImageFormat int

const (
	FormatInvalid ImageFormat = iota
	FormatB8G8R8A8Unorm
	FormatR8G8B8A8Unorm
	FormatD32Sfloat
)

func (f ImageFormat) String() string {
	switch f {
	case FormatB8G8R8A8Unorm:
		return "b8g8r8a8_unorm"
	case FormatR8G8B8A8Unorm:
		return "r8g8b8a8_unorm"
	case FormatD32Sfloat:
		return "d32_sfloat"
	default:
		return "invalid"
	}
}

// IsDepth reports whether the format carries depth/stencil data.
func (f ImageFormat) IsDepth() bool {
	return f == FormatD32Sfloat
}

type ImageUsage uint32

const (
	ImageUsageColorAttachment ImageUsage = 1 << iota
	ImageUsageDepthStencilAttachment
	ImageUsageSampled
	ImageUsageTransferSrc
	ImageUsageTransferDst
)

type BufferUsage int

const (
	BufferUsageUniform BufferUsage = iota
	BufferUsageVertex
	BufferUsageIndex
)

type DescriptorKind int

const (
	DescriptorUniformBuffer DescriptorKind = iota
	DescriptorCombinedImageSampler
)

// StageFlags is a bitmask of shader stages.
type StageFlags uint32

const (
	StageVertex StageFlags = 1 << iota
	StageFragment
)

type VertexFormat int

const (
	VertexFormatFloat32x2 VertexFormat = iota
	VertexFormatFloat32x3
	VertexFormatFloat32x4
)

type VertexAttribute struct {
	Location uint32
	Offset   uint32
	Format   VertexFormat
}

type ImageConfig struct {
	Width  uint32
	Height uint32
	Format ImageFormat
	Usage  ImageUsage
}

type LoadOp int

const (
	LoadOpClear LoadOp = iota
	LoadOpLoad
	LoadOpDontCare
)

// AttachmentDesc is derived from an attachment primitive and its image when
// a render pass is created.
type AttachmentDesc struct {
	Format  ImageFormat
	Usage   ImageUsage
	LoadOp  LoadOp
	Sampled bool
}

type RenderPassConfig struct {
	Attachments []AttachmentDesc
}

type LayoutBinding struct {
	Binding uint32
	Kind    DescriptorKind
	Stages  StageFlags
	Count   uint32
}

// DescriptorWrite updates one binding of one physical descriptor set.
type DescriptorWrite struct {
	Binding    uint32
	Kind       DescriptorKind
	Buffer     Resource
	BufferSize uint64
	Image      Resource
	Sampler    Resource
}

type ShaderStageCode struct {
	Stage  StageFlags
	Module Resource
}

type PipelineConfig struct {
	RenderPass       Resource
	Stages           []ShaderStageCode
	VertexStride     uint32
	VertexAttributes []VertexAttribute
	SetLayouts       []Resource
	ColorAttachments int
	DepthStencil     bool
	Width            uint32
	Height           uint32
}

// Device is the native GPU surface the compiler consumes. The vulkan backend
// implements it on goki/vulkan; tests implement it with a recording fake.
// The compiler never creates the device, queue or allocator itself.
//
// All calls must come from the GPU-owning thread. Upload* block until the
// transfer completed (fence wait); batching is the backend's business.
type Device interface {
	// OutputSize is the current presentation extent, consumed by
	// relative-to-output-size images.
	OutputSize() (width, height uint32)

	CreateImage(cfg ImageConfig) (Resource, error)
	DestroyImage(img Resource)
	UploadImage(img Resource, pixels []byte) error
	ImageView(img Resource) Resource

	CreateSampler() (Resource, error)
	DestroySampler(s Resource)

	CreateBuffer(size uint64, usage BufferUsage) (Resource, error)
	DestroyBuffer(buf Resource)
	// UploadBuffer stages through a transfer queue and waits for the fence.
	UploadBuffer(buf Resource, data []byte) error
	// WriteBuffer copies into persistently mapped memory; used by
	// RecordCommands for dynamic per-frame data.
	WriteBuffer(buf Resource, data []byte)

	CreateShaderModule(code []uint32) (Resource, error)
	DestroyShaderModule(m Resource)

	CreateRenderPass(cfg RenderPassConfig) (Resource, error)
	DestroyRenderPass(rp Resource)
	CreateFramebuffer(rp Resource, attachments []Resource, width, height uint32) (Resource, error)
	DestroyFramebuffer(fb Resource)

	CreateDescriptorPool(maxSets uint32) (Resource, error)
	DestroyDescriptorPool(p Resource)
	CreateDescriptorSetLayout(bindings []LayoutBinding) (Resource, error)
	DestroyDescriptorSetLayout(l Resource)
	// AllocateDescriptorSets allocates count sets of one layout from pool.
	// Sets are freed implicitly when the pool is destroyed.
	AllocateDescriptorSets(pool, layout Resource, count uint32) ([]Resource, error)
	UpdateDescriptorSet(set Resource, writes []DescriptorWrite)

	CreatePipeline(cfg PipelineConfig) (pipeline, layout Resource, err error)
	DestroyPipeline(pipeline, layout Resource)

	WaitIdle()
}

// CommandEncoder receives the per-frame commands emitted by RecordCommands.
type CommandEncoder interface {
	// WriteBuffer copies a dynamic primitive's current CPU value into
	// mapped memory before it is consumed this frame.
	WriteBuffer(buf Resource, data []byte)
	BeginRenderPass(rp, fb Resource, width, height uint32, clearColor [4]float32, hasDepth bool)
	EndRenderPass()
	BindPipeline(p Resource)
	BindDescriptorSets(layout Resource, firstSet uint32, sets []Resource)
	BindVertexBuffer(buf Resource)
	BindIndexBuffer(buf Resource)
	Draw(vertexCount, instanceCount uint32)
	DrawIndexed(indexCount, instanceCount uint32)
	// BlitToOutput copies img into the current presentation image.
	BlitToOutput(img Resource)
}

package compiler

// PrimitiveType tags every handle and every Store collection. The order of
// the constants is not the canonical creation order; see typeOrder in store.go.
type PrimitiveType int

const (
	TypeInvalid PrimitiveType = iota
	TypeDescriptorPool
	TypeImage
	TypeAttachment
	TypeRenderPass
	TypeUniformBuffer
	TypeCamera
	TypeVertexData
	TypeShaderModule
	TypeDescriptorSet
	TypePipeline
	TypePresent
)

func (t PrimitiveType) String() string {
	switch t {
	case TypeDescriptorPool:
		return "descriptor_pool"
	case TypeImage:
		return "image"
	case TypeAttachment:
		return "attachment"
	case TypeRenderPass:
		return "render_pass"
	case TypeUniformBuffer:
		return "uniform_buffer"
	case TypeCamera:
		return "camera"
	case TypeVertexData:
		return "vertex_data"
	case TypeShaderModule:
		return "shader_module"
	case TypeDescriptorSet:
		return "descriptor_set"
	case TypePipeline:
		return "pipeline"
	case TypePresent:
		return "present"
	default:
		return "invalid"
	}
}

// Handle is a weak, non-owning reference into one of the Store's collections.
// A full Store reset invalidates every handle issued before it; holders must
// re-resolve against the Store on every access and never cache the primitive
// pointer across rebuilds.
type Handle struct {
	Index uint32
	Type  PrimitiveType
}

var NilHandle = Handle{Type: TypeInvalid}

func (h Handle) IsValid() bool {
	return h.Type != TypeInvalid
}

package shader

// Reflection metadata for one shader pipeline, consumed by the compiler as
// authoritative input for descriptor set and pipeline materialization. The
// front-end that produces it (SPIR-V cross-compilation and reflection) is an
// external collaborator; this package only defines the contract and loads
// precompiled results from disk.

type StageKind int

const (
	StageVertex StageKind = iota
	StageFragment
)

func (s StageKind) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	}
	return "unknown"
}

// StageMask is a bitmask over StageKind.
type StageMask uint32

const (
	MaskVertex   StageMask = 1 << StageVertex
	MaskFragment StageMask = 1 << StageFragment
)

type BindingKind int

const (
	BindingUniformBuffer BindingKind = iota
	BindingCombinedImageSampler
)

// Member is one field of a uniform block's nested layout.
type Member struct {
	Name   string `toml:"name"`
	Offset uint32 `toml:"offset"`
	Size   uint32 `toml:"size"`
}

// Binding is one reflected resource binding, in declaration order.
type Binding struct {
	Name    string
	Set     uint32
	Binding uint32
	Kind    BindingKind
	Stages  StageMask
	Count   uint32
	Members []Member
}

type AttributeFormat int

const (
	AttrFloat32x2 AttributeFormat = iota
	AttrFloat32x3
	AttrFloat32x4
)

func (f AttributeFormat) Size() uint32 {
	switch f {
	case AttrFloat32x2:
		return 8
	case AttrFloat32x3:
		return 12
	case AttrFloat32x4:
		return 16
	}
	return 0
}

// Attribute is one vertex input attribute.
type Attribute struct {
	Name     string
	Location uint32
	Offset   uint32
	Format   AttributeFormat
}

// Output is one fragment stage output.
type Output struct {
	Name     string
	Location uint32
}

// ParsedResult is the full reflection of a shader pipeline plus its compiled
// byte-code per stage. An empty stage together with a non-empty Error marks
// a failed compilation; the rebuild pre-flight refuses to build from it.
type ParsedResult struct {
	Name       string
	Bindings   []Binding
	Attributes []Attribute
	Outputs    []Output

	// Detected aggregate structures. A binding recognized as a camera is
	// interchangeable with a camera primitive at link time.
	HasCamera     bool
	CameraSet     uint32
	CameraBinding uint32
	HasLights     bool
	LightsSet     uint32
	LightsBinding uint32

	Stages map[StageKind][]uint32
	Error  string
}

// Valid reports whether the result can be materialized: no front-end error
// and non-empty byte-code for every present stage.
func (r *ParsedResult) Valid() bool {
	if r == nil || r.Error != "" || len(r.Stages) == 0 {
		return false
	}
	for _, code := range r.Stages {
		if len(code) == 0 {
			return false
		}
	}
	return true
}

// SetIndices returns the distinct set numbers referenced by the bindings, in
// ascending order.
func (r *ParsedResult) SetIndices() []uint32 {
	seen := make(map[uint32]bool)
	var out []uint32
	for _, b := range r.Bindings {
		if !seen[b.Set] {
			seen[b.Set] = true
			out = append(out, b.Set)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// BindingsForSet returns the bindings of one set, in declaration order.
func (r *ParsedResult) BindingsForSet(set uint32) []Binding {
	var out []Binding
	for _, b := range r.Bindings {
		if b.Set == set {
			out = append(out, b)
		}
	}
	return out
}

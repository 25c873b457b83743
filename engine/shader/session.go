package shader

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/fini03/vkduck/engine/core"
)

const spirvMagic = 0x07230203

// Session owns the shader front-end state for one editor run. The underlying
// compilation session is process-wide mutable state, so it is modeled as an
// explicitly owned, explicitly reinitializable object: the editor calls
// Reset on every hot reload instead of relying on a hidden singleton.
type Session struct {
	root  string
	cache map[string]*ParsedResult
}

func NewSession(root string) *Session {
	return &Session{
		root:  root,
		cache: make(map[string]*ParsedResult),
	}
}

// Reset drops every cached result. Must be called on the GPU-owning thread
// before the rebuild that follows a shader hot reload.
func (s *Session) Reset() {
	s.cache = make(map[string]*ParsedResult)
	core.LogDebug("shader session reset")
}

// sidecar is the on-disk reflection document emitted next to the compiled
// SPIR-V by the shader front-end.
type sidecar struct {
	Bindings []struct {
		Name    string   `toml:"name"`
		Set     uint32   `toml:"set"`
		Binding uint32   `toml:"binding"`
		Kind    string   `toml:"kind"`
		Stages  []string `toml:"stages"`
		Count   uint32   `toml:"count"`
		Members []Member `toml:"members"`
	} `toml:"bindings"`
	Attributes []struct {
		Name     string `toml:"name"`
		Location uint32 `toml:"location"`
		Offset   uint32 `toml:"offset"`
		Format   string `toml:"format"`
	} `toml:"attributes"`
	Outputs []struct {
		Name     string `toml:"name"`
		Location uint32 `toml:"location"`
	} `toml:"outputs"`
	Camera struct {
		Present bool   `toml:"present"`
		Set     uint32 `toml:"set"`
		Binding uint32 `toml:"binding"`
	} `toml:"camera"`
	Lights struct {
		Present bool   `toml:"present"`
		Set     uint32 `toml:"set"`
		Binding uint32 `toml:"binding"`
	} `toml:"lights"`
}

// Load returns the parsed result for one shader pipeline name, reading
// "<name>.vert.spv", "<name>.frag.spv" and "<name>.reflect.toml" from the
// session root. Results are cached until the next Reset. A load failure is
// returned as a ParsedResult with Error set, so the graph can still carry
// the node and the pre-flight check can name it.
func (s *Session) Load(name string) *ParsedResult {
	if r, ok := s.cache[name]; ok {
		return r
	}

	result := &ParsedResult{Name: name, Stages: make(map[StageKind][]uint32)}
	s.cache[name] = result

	var sc sidecar
	raw, err := os.ReadFile(filepath.Join(s.root, name+".reflect.toml"))
	if err != nil {
		result.Error = fmt.Sprintf("reading reflection: %s", err)
		return result
	}
	if err := toml.Unmarshal(raw, &sc); err != nil {
		result.Error = fmt.Sprintf("parsing reflection: %s", err)
		return result
	}

	for _, b := range sc.Bindings {
		kind := BindingUniformBuffer
		if b.Kind == "combined_image_sampler" {
			kind = BindingCombinedImageSampler
		}
		var mask StageMask
		for _, st := range b.Stages {
			switch st {
			case "vertex":
				mask |= MaskVertex
			case "fragment":
				mask |= MaskFragment
			}
		}
		count := b.Count
		if count == 0 {
			count = 1
		}
		result.Bindings = append(result.Bindings, Binding{
			Name:    b.Name,
			Set:     b.Set,
			Binding: b.Binding,
			Kind:    kind,
			Stages:  mask,
			Count:   count,
			Members: b.Members,
		})
	}
	for _, a := range sc.Attributes {
		format := AttrFloat32x3
		switch a.Format {
		case "float32x2":
			format = AttrFloat32x2
		case "float32x4":
			format = AttrFloat32x4
		}
		result.Attributes = append(result.Attributes, Attribute{
			Name:     a.Name,
			Location: a.Location,
			Offset:   a.Offset,
			Format:   format,
		})
	}
	for _, o := range sc.Outputs {
		result.Outputs = append(result.Outputs, Output{Name: o.Name, Location: o.Location})
	}
	result.HasCamera = sc.Camera.Present
	result.CameraSet = sc.Camera.Set
	result.CameraBinding = sc.Camera.Binding
	result.HasLights = sc.Lights.Present
	result.LightsSet = sc.Lights.Set
	result.LightsBinding = sc.Lights.Binding

	for stage, ext := range map[StageKind]string{
		StageVertex:   ".vert.spv",
		StageFragment: ".frag.spv",
	} {
		code, err := s.readSpirv(filepath.Join(s.root, name+ext))
		if err != nil {
			result.Error = fmt.Sprintf("%s stage: %s", stage, err)
			result.Stages[stage] = nil
			continue
		}
		result.Stages[stage] = code
	}
	return result
}

func (s *Session) readSpirv(path string) ([]uint32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) < 4 || len(raw)%4 != 0 {
		return nil, fmt.Errorf("%s: truncated SPIR-V", path)
	}
	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("%s: bad SPIR-V magic %#x", path, words[0])
	}
	return words, nil
}

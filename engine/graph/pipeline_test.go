package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fini03/vkduck/engine/shader"
)

func reflection(bindings ...shader.Binding) *shader.ParsedResult {
	return &shader.ParsedResult{
		Name:     "scene",
		Bindings: bindings,
		Stages: map[shader.StageKind][]uint32{
			shader.StageVertex:   {0x07230203, 0, 0, 1},
			shader.StageFragment: {0x07230203, 0, 0, 2},
		},
	}
}

func TestPipelinePinsFollowReflection(t *testing.T) {
	n := NewPipelineNode("scene_pass", "scene")

	// Without reflection only the fixed pins exist.
	_, hasVertex := FindPin(n, "vertexData")
	_, hasOutput := FindPin(n, "output")
	assert.True(t, hasVertex)
	assert.True(t, hasOutput)
	assert.Len(t, n.Pins(), 2)

	n.SetReflection(reflection(
		shader.Binding{Name: "camera", Set: 0, Binding: 0, Kind: shader.BindingUniformBuffer, Stages: shader.MaskVertex},
		shader.Binding{Name: "albedo", Set: 1, Binding: 0, Kind: shader.BindingCombinedImageSampler, Stages: shader.MaskFragment},
	))
	assert.Len(t, n.Pins(), 4)
	_, hasCamera := FindPin(n, "camera")
	_, hasAlbedo := FindPin(n, "albedo")
	assert.True(t, hasCamera)
	assert.True(t, hasAlbedo)
}

func TestPipelineBindingPinsSurviveReload(t *testing.T) {
	n := NewPipelineNode("scene_pass", "scene")
	n.SetReflection(reflection(
		shader.Binding{Name: "camera", Set: 0, Binding: 0, Kind: shader.BindingUniformBuffer},
		shader.Binding{Name: "albedo", Set: 1, Binding: 0, Kind: shader.BindingCombinedImageSampler},
	))

	before, ok := FindPin(n, "camera")
	require.True(t, ok)

	// A reload that keeps the binding at the same (set, binding) keeps the
	// pin id, so serialized edges stay attached.
	n.SetReflection(reflection(
		shader.Binding{Name: "camera", Set: 0, Binding: 0, Kind: shader.BindingUniformBuffer},
	))
	after, ok := FindPin(n, "camera")
	require.True(t, ok)
	assert.Equal(t, before, after)

	// The removed binding's pin is gone.
	_, ok = FindPin(n, "albedo")
	assert.False(t, ok)
}

func TestPipelineValidateRefusesBrokenShader(t *testing.T) {
	n := NewPipelineNode("scene_pass", "scene")
	assert.Error(t, n.Validate())

	n.SetReflection(&shader.ParsedResult{Name: "scene", Error: "compilation failed"})
	assert.Error(t, n.Validate())

	n.SetReflection(reflection())
	assert.NoError(t, n.Validate())
}

func TestPipelineSettingsRoundTrip(t *testing.T) {
	n := NewPipelineNode("scene_pass", "scene")
	n.UseDepth = true

	m := NewPipelineNode("copy", "other")
	m.ApplySettings(n.Settings())
	assert.Equal(t, "scene", m.ShaderName)
	assert.True(t, m.UseDepth)
}

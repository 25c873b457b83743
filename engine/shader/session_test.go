package shader

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reflectDoc = `
[[bindings]]
name = "camera"
set = 0
binding = 0
kind = "uniform_buffer"
stages = ["vertex"]

[[bindings]]
name = "albedo"
set = 1
binding = 0
kind = "combined_image_sampler"
stages = ["fragment"]

[[attributes]]
name = "inPosition"
location = 0
offset = 0
format = "float32x3"

[[attributes]]
name = "inTexcoord"
location = 1
offset = 24
format = "float32x2"

[[outputs]]
name = "outColor"
location = 0

[camera]
present = true
set = 0
binding = 0
`

func writeSpirv(t *testing.T, path string, words []uint32) {
	t.Helper()
	raw := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(raw[i*4:], w)
	}
	require.NoError(t, os.WriteFile(path, raw, 0o644))
}

func writeShader(t *testing.T, root, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, name+".reflect.toml"), []byte(reflectDoc), 0o644))
	writeSpirv(t, filepath.Join(root, name+".vert.spv"), []uint32{spirvMagic, 0x0001_0000, 0, 1})
	writeSpirv(t, filepath.Join(root, name+".frag.spv"), []uint32{spirvMagic, 0x0001_0000, 0, 2})
}

func TestSessionLoadsReflectionAndByteCode(t *testing.T) {
	root := t.TempDir()
	writeShader(t, root, "scene")

	s := NewSession(root)
	r := s.Load("scene")
	require.True(t, r.Valid(), "load error: %s", r.Error)

	require.Len(t, r.Bindings, 2)
	assert.Equal(t, "camera", r.Bindings[0].Name)
	assert.Equal(t, BindingUniformBuffer, r.Bindings[0].Kind)
	assert.Equal(t, MaskVertex, r.Bindings[0].Stages)
	assert.Equal(t, uint32(1), r.Bindings[0].Count)
	assert.Equal(t, BindingCombinedImageSampler, r.Bindings[1].Kind)
	assert.Equal(t, uint32(1), r.Bindings[1].Set)

	require.Len(t, r.Attributes, 2)
	assert.Equal(t, AttrFloat32x3, r.Attributes[0].Format)
	assert.Equal(t, AttrFloat32x2, r.Attributes[1].Format)
	assert.Equal(t, uint32(24), r.Attributes[1].Offset)

	assert.True(t, r.HasCamera)
	assert.False(t, r.HasLights)
	assert.NotEmpty(t, r.Stages[StageVertex])
	assert.NotEmpty(t, r.Stages[StageFragment])
}

func TestSessionCachesUntilReset(t *testing.T) {
	root := t.TempDir()
	writeShader(t, root, "scene")

	s := NewSession(root)
	first := s.Load("scene")
	assert.Same(t, first, s.Load("scene"))

	s.Reset()
	assert.NotSame(t, first, s.Load("scene"))
}

func TestSessionMissingFilesCarryError(t *testing.T) {
	s := NewSession(t.TempDir())
	r := s.Load("ghost")
	assert.False(t, r.Valid())
	assert.NotEmpty(t, r.Error)
}

func TestSessionRejectsBadByteCode(t *testing.T) {
	root := t.TempDir()
	writeShader(t, root, "scene")
	// Wrong magic word.
	writeSpirv(t, filepath.Join(root, "scene.vert.spv"), []uint32{0xdeadbeef, 0, 0, 0})

	s := NewSession(root)
	r := s.Load("scene")
	assert.False(t, r.Valid())
	assert.Contains(t, r.Error, "magic")
}

func TestSessionRejectsTruncatedByteCode(t *testing.T) {
	root := t.TempDir()
	writeShader(t, root, "scene")
	require.NoError(t, os.WriteFile(filepath.Join(root, "scene.frag.spv"), []byte{1, 2, 3}, 0o644))

	s := NewSession(root)
	assert.False(t, s.Load("scene").Valid())
}

func TestSetIndicesAreSortedAndUnique(t *testing.T) {
	root := t.TempDir()
	writeShader(t, root, "scene")

	s := NewSession(root)
	r := s.Load("scene")
	require.True(t, r.Valid())

	assert.Equal(t, []uint32{0, 1}, r.SetIndices())
	require.Len(t, r.BindingsForSet(0), 1)
	assert.Equal(t, "camera", r.BindingsForSet(0)[0].Name)
}

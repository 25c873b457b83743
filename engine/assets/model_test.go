package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quadObj = `
# a unit quad, two triangles via one quad face
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
f 1/1/1 2/2/1 3/3/1 4/4/1
`

func writeObj(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quad.obj")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadModelTriangulatesAndDeduplicates(t *testing.T) {
	meshes, err := LoadModel(writeObj(t, quadObj))
	require.NoError(t, err)
	require.Len(t, meshes, 1)

	m := meshes[0]
	assert.Equal(t, "quad", m.Name)
	// A quad fans into two triangles sharing two corners.
	assert.Equal(t, uint32(6), m.IndexCount)
	assert.Equal(t, uint32(4), m.VertexCount)
	assert.Equal(t, uint32(32), m.Stride)
	assert.Len(t, m.Vertices, 4*32)
	assert.Len(t, m.Indices, 6*4)
	require.Len(t, m.Attributes, 3)
	assert.Equal(t, uint32(12), m.Attributes[1].Offset)
	assert.Equal(t, uint32(24), m.Attributes[2].Offset)
}

func TestLoadModelSplitsObjects(t *testing.T) {
	content := `
o first
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
o second
v 2 0 0
v 3 0 0
v 2 1 0
f 4 5 6
`
	meshes, err := LoadModel(writeObj(t, content))
	require.NoError(t, err)
	require.Len(t, meshes, 2)
	assert.Equal(t, "first", meshes[0].Name)
	assert.Equal(t, "second", meshes[1].Name)
}

func TestLoadModelNegativeIndices(t *testing.T) {
	content := `
v 0 0 0
v 1 0 0
v 0 1 0
f -3 -2 -1
`
	meshes, err := LoadModel(writeObj(t, content))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), meshes[0].IndexCount)
}

func TestLoadModelRejectsBadInput(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "missing.obj"))
	assert.Error(t, err)

	_, err = LoadModel(writeObj(t, "v 0 0 0\nf 1 2 5\n"))
	assert.Error(t, err, "out of range index")

	_, err = LoadModel(writeObj(t, "# nothing here\n"))
	assert.Error(t, err, "no geometry")
}

func TestShaderNameFromPath(t *testing.T) {
	for _, path := range []string{
		"/assets/shaders/scene.vert.spv",
		"scene.frag.spv",
		"scene.reflect.toml",
	} {
		name, ok := shaderNameFromPath(path)
		assert.True(t, ok, path)
		assert.Equal(t, "scene", name)
	}
	_, ok := shaderNameFromPath("notes.txt")
	assert.False(t, ok)
}

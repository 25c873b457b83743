package assets

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"

	"github.com/fini03/vkduck/engine/compiler"
	"github.com/fini03/vkduck/engine/core"
	"github.com/fini03/vkduck/engine/graph"
	"github.com/fini03/vkduck/engine/math"
)

// LoadModel parses a Wavefront OBJ file into one mesh per object/group.
// Faces are triangulated with a fan; positions, normals and texcoords are
// deduplicated per distinct index triple.
func LoadModel(path string) ([]graph.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var positions []math.Vec3
	var normals []math.Vec3
	var texcoords []math.Vec2

	baseName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var meshes []graph.Mesh
	current := newMeshBuilder(baseName)

	flush := func() {
		if current.vertexCount > 0 {
			meshes = append(meshes, current.build())
		}
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "v":
			v, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
			}
			positions = append(positions, v)
		case "vn":
			v, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
			}
			normals = append(normals, v)
		case "vt":
			v, err := parseVec2(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
			}
			texcoords = append(texcoords, v)
		case "o", "g":
			flush()
			name := baseName
			if len(fields) > 1 {
				name = fields[1]
			}
			current = newMeshBuilder(name)
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%s:%d: face with fewer than 3 corners", path, lineNo)
			}
			corners := fields[1:]
			for i := 1; i+1 < len(corners); i++ {
				for _, corner := range []string{corners[0], corners[i], corners[i+1]} {
					if err := current.addCorner(corner, positions, normals, texcoords); err != nil {
						return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
					}
				}
			}
		}
		// mtllib/usemtl and the rest are ignored; materials come from
		// texture connections in the node graph.
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	flush()
	if len(meshes) == 0 {
		return nil, fmt.Errorf("%s: no geometry found", path)
	}

	core.LogDebug("loaded model '%s' (%d meshes)", baseName, len(meshes))
	return meshes, nil
}

type meshBuilder struct {
	name        string
	vertices    []math.Vertex3D
	indices     []uint32
	seen        map[string]uint32
	vertexCount uint32
}

func newMeshBuilder(name string) *meshBuilder {
	return &meshBuilder{
		name: name,
		seen: make(map[string]uint32),
	}
}

// addCorner resolves one "v/vt/vn" corner, reusing a previous vertex when
// the same triple appeared before.
func (mb *meshBuilder) addCorner(corner string, positions []math.Vec3, normals []math.Vec3, texcoords []math.Vec2) error {
	if idx, ok := mb.seen[corner]; ok {
		mb.indices = append(mb.indices, idx)
		return nil
	}

	parts := strings.Split(corner, "/")
	var vertex math.Vertex3D

	pi, err := objIndex(parts[0], len(positions))
	if err != nil {
		return err
	}
	vertex.Position = positions[pi]

	if len(parts) > 1 && parts[1] != "" {
		ti, err := objIndex(parts[1], len(texcoords))
		if err != nil {
			return err
		}
		// OBJ texcoords are bottom-up.
		vertex.Texcoord = math.Vec2{X: texcoords[ti].X, Y: 1.0 - texcoords[ti].Y}
	}

	if len(parts) > 2 && parts[2] != "" {
		ni, err := objIndex(parts[2], len(normals))
		if err != nil {
			return err
		}
		vertex.Normal = normals[ni]
	}

	idx := mb.vertexCount
	mb.vertices = append(mb.vertices, vertex)
	mb.indices = append(mb.indices, idx)
	mb.seen[corner] = idx
	mb.vertexCount++
	return nil
}

func (mb *meshBuilder) build() graph.Mesh {
	stride := uint32(unsafe.Sizeof(math.Vertex3D{}))

	vertexBytes := make([]byte, 0, len(mb.vertices)*int(stride))
	if len(mb.vertices) > 0 {
		raw := unsafe.Slice((*byte)(unsafe.Pointer(&mb.vertices[0])), len(mb.vertices)*int(stride))
		vertexBytes = append(vertexBytes, raw...)
	}

	indexBytes := make([]byte, len(mb.indices)*4)
	for i, idx := range mb.indices {
		binary.LittleEndian.PutUint32(indexBytes[i*4:], idx)
	}

	return graph.Mesh{
		Name:        mb.name,
		Stride:      stride,
		Attributes:  vertex3DAttributes(),
		VertexCount: mb.vertexCount,
		Vertices:    vertexBytes,
		IndexCount:  uint32(len(mb.indices)),
		Indices:     indexBytes,
	}
}

func vertex3DAttributes() []compiler.VertexAttribute {
	return []compiler.VertexAttribute{
		{Location: 0, Offset: uint32(unsafe.Offsetof(math.Vertex3D{}.Position)), Format: compiler.VertexFormatFloat32x3},
		{Location: 1, Offset: uint32(unsafe.Offsetof(math.Vertex3D{}.Normal)), Format: compiler.VertexFormatFloat32x3},
		{Location: 2, Offset: uint32(unsafe.Offsetof(math.Vertex3D{}.Texcoord)), Format: compiler.VertexFormatFloat32x2},
	}
}

// objIndex converts a 1-based (possibly negative) OBJ index to 0-based.
func objIndex(field string, count int) (int, error) {
	n, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("bad index %q: %w", field, err)
	}
	if n < 0 {
		n = count + n
	} else {
		n--
	}
	if n < 0 || n >= count {
		return 0, fmt.Errorf("index %q out of range", field)
	}
	return n, nil
}

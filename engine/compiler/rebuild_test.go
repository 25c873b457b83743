package compiler_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fini03/vkduck/engine/compiler"
)

// scene is the canonical test fixture: a model with two meshes and two
// textures, a camera, one shaded pipeline with a global camera set and a
// per-object texture set, and the presentation sink.
type scene struct {
	graph    *fakeGraph
	model    *fakeNode
	camera   *fakeNode
	pipeline *fakeNode
	present  *fakeNode

	order []string
}

const (
	pinModelVertex  = iota // local pin indices, one namespace per node
	pinModelTexture
)

func spirv() []uint32 { return []uint32{0x07230203, 0, 0, 0} }

func newScene() *scene {
	s := &scene{graph: &fakeGraph{}}

	s.model = &fakeNode{id: 1, name: "duck"}
	s.model.materialize = func(store *compiler.Store, dev compiler.Device) bool {
		s.order = append(s.order, "duck")
		vertexArr := compiler.Array{Name: "duck_geometry", Type: compiler.TypeVertexData}
		for i := 0; i < 2; i++ {
			vd := store.NewVertexData()
			vd.Stride = 32
			vd.Attributes = []compiler.VertexAttribute{{Location: 0, Offset: 0, Format: compiler.VertexFormatFloat32x3}}
			vd.VertexCount = 24
			vd.Vertices = make([]byte, 24*32)
			vd.IndexCount = 36
			vd.Indices = make([]byte, 36*4)
			vertexArr.Indices = append(vertexArr.Indices, vd.Handle().Index)
		}
		textureArr := compiler.Array{Name: "duck_texture", Type: compiler.TypeImage}
		for i := 0; i < 2; i++ {
			img := store.NewImage()
			img.Width = 64
			img.Height = 64
			img.Format = compiler.FormatR8G8B8A8Unorm
			img.Usage = compiler.ImageUsageTransferDst
			img.Pixels = make([]byte, 64*64*4)
			textureArr.Indices = append(textureArr.Indices, img.Handle().Index)
		}
		s.model.setOutput(compiler.MakePinID(1, pinModelVertex), vertexArr)
		s.model.setOutput(compiler.MakePinID(1, pinModelTexture), textureArr)
		return true
	}

	s.camera = &fakeNode{id: 2, name: "eye"}
	s.camera.materialize = func(store *compiler.Store, dev compiler.Device) bool {
		s.order = append(s.order, "eye")
		cam := store.NewCamera()
		cam.Dynamic = true
		s.camera.setOutput(compiler.MakePinID(2, 0), compiler.Array{
			Name:    "eye",
			Type:    compiler.TypeCamera,
			Indices: []uint32{cam.Handle().Index},
		})
		return true
	}

	s.pipeline = &fakeNode{id: 3, name: "shaded"}
	s.pipeline.materialize = func(store *compiler.Store, dev compiler.Device) bool {
		s.order = append(s.order, "shaded")
		color := store.NewImage()
		color.RelativeSize = true
		color.Format = compiler.FormatB8G8R8A8Unorm
		color.Usage = compiler.ImageUsageColorAttachment

		att := store.NewAttachment()
		att.Source = color.Handle()
		att.LoadOp = compiler.LoadOpClear

		pass := store.NewRenderPass()
		pass.Attachments = []compiler.Handle{att.Handle()}

		var stages []compiler.Handle
		for _, stage := range []compiler.StageFlags{compiler.StageVertex, compiler.StageFragment} {
			sm := store.NewShaderModule()
			sm.ShaderStage = stage
			sm.Code = spirv()
			stages = append(stages, sm.Handle())
		}

		pool := store.NewDescriptorPool()

		cameraSet := store.NewDescriptorSet()
		cameraSet.Pool = pool.Handle()
		cameraSet.Expected = []compiler.ExpectedBinding{
			{Slot: 0, Name: "camera", Kind: compiler.DescriptorUniformBuffer, Stages: compiler.StageVertex},
		}

		textureSet := store.NewDescriptorSet()
		textureSet.Pool = pool.Handle()
		textureSet.Expected = []compiler.ExpectedBinding{
			{Slot: 0, Name: "albedo", Kind: compiler.DescriptorCombinedImageSampler, Stages: compiler.StageFragment},
		}

		pipe := store.NewPipeline()
		pipe.Pass = pass.Handle()
		pipe.Stages = stages
		pipe.Sets = []compiler.Handle{cameraSet.Handle(), textureSet.Handle()}

		s.pipeline.setInput(compiler.MakePinID(3, 0), compiler.LinkSlot{Handle: pipe.Handle(), Slot: compiler.SlotVertexData})
		s.pipeline.setInput(compiler.MakePinID(3, 16), compiler.LinkSlot{Handle: cameraSet.Handle(), Slot: 0})
		s.pipeline.setInput(compiler.MakePinID(3, 17), compiler.LinkSlot{Handle: textureSet.Handle(), Slot: 0})
		s.pipeline.setOutput(compiler.MakePinID(3, 1), compiler.Array{
			Name:    "shaded_color",
			Type:    compiler.TypeImage,
			Indices: []uint32{color.Handle().Index},
		})
		return true
	}

	s.present = &fakeNode{id: 4, name: "screen"}
	s.present.materialize = func(store *compiler.Store, dev compiler.Device) bool {
		s.order = append(s.order, "screen")
		p := store.NewPresent()
		s.present.setInput(compiler.MakePinID(4, 0), compiler.LinkSlot{Handle: p.Handle(), Slot: compiler.SlotPresentSource})
		return true
	}

	// Insertion order deliberately disagrees with dependency order.
	s.graph.add(s.present)
	s.graph.add(s.pipeline)
	s.graph.add(s.camera)
	s.graph.add(s.model)

	s.graph.connect(compiler.MakePinID(1, pinModelVertex), compiler.MakePinID(3, 0))
	s.graph.connect(compiler.MakePinID(2, 0), compiler.MakePinID(3, 16))
	s.graph.connect(compiler.MakePinID(1, pinModelTexture), compiler.MakePinID(3, 17))
	s.graph.connect(compiler.MakePinID(3, 1), compiler.MakePinID(4, 0))

	return s
}

func TestRebuildFullScene(t *testing.T) {
	dev := newFakeDevice()
	c := compiler.New(dev)
	s := newScene()

	require.True(t, c.Rebuild(s.graph))

	require.NotNil(t, c.OrderedPrimitives())
	assert.NotNil(t, c.OutputImage())
	assert.Len(t, c.Links(), 4)

	counts := c.Store().Counts()
	assert.Equal(t, uint32(3), counts[compiler.TypeImage]) // 2 textures + 1 color target
	assert.Equal(t, uint32(2), counts[compiler.TypeVertexData])
	assert.Equal(t, uint32(2), counts[compiler.TypeDescriptorSet])
	assert.Equal(t, uint32(1), counts[compiler.TypePipeline])
	assert.Equal(t, uint32(1), counts[compiler.TypePresent])

	// Producers materialize before consumers regardless of insertion order.
	assert.Equal(t, "shaded", s.order[2])
	assert.Equal(t, "screen", s.order[3])

	// Per-object texture set allocates one instance per element, the global
	// camera set exactly one: two AllocateDescriptorSets calls total.
	assert.Equal(t, 2, dev.allocSetCalls)

	// 2 vertex + 2 index + 1 camera staging uploads, 2 texture uploads.
	assert.Equal(t, 5, dev.bufferUploads)
	assert.Equal(t, 2, dev.imageUploads)
}

func TestRecordCommandStream(t *testing.T) {
	dev := newFakeDevice()
	c := compiler.New(dev)
	s := newScene()
	require.True(t, c.Rebuild(s.graph))

	enc := &fakeEncoder{}
	c.Record(enc)

	assert.Equal(t, []string{
		"write_buffer", // dynamic camera refreshes its mapped buffer
		"begin_pass 800x600 depth=false",
		"bind_pipeline",
		"bind_sets first=0 count=1", // global camera set once
		"bind_sets first=1 count=1", // object 0 texture set
		"bind_vertex",
		"bind_index",
		"draw_indexed 36",
		"bind_sets first=1 count=1", // object 1
		"bind_vertex",
		"bind_index",
		"draw_indexed 36",
		"end_pass",
		"blit_to_output",
	}, enc.ops)
}

func TestRebuildValidationAborts(t *testing.T) {
	dev := newFakeDevice()
	c := compiler.New(dev)
	s := newScene()
	s.pipeline.validate = fmt.Errorf("shader 'scene' has no valid byte-code")

	require.False(t, c.Rebuild(s.graph))

	// Pre-flight runs before any materialization: nothing was created, on
	// the CPU or the GPU.
	for typ, n := range c.Store().Counts() {
		assert.Zero(t, n, "type %s", typ)
	}
	assert.Empty(t, dev.created)
	assert.Nil(t, c.OrderedPrimitives())

	enc := &fakeEncoder{}
	c.Record(enc)
	assert.Empty(t, enc.ops)
}

func TestRebuildCycleFails(t *testing.T) {
	dev := newFakeDevice()
	c := compiler.New(dev)

	a := &fakeNode{id: 1, name: "a"}
	b := &fakeNode{id: 2, name: "b"}
	g := &fakeGraph{}
	g.add(a)
	g.add(b)
	g.connect(compiler.MakePinID(1, 0), compiler.MakePinID(2, 0))
	g.connect(compiler.MakePinID(2, 1), compiler.MakePinID(1, 1))

	assert.False(t, c.Rebuild(g))
	assert.Zero(t, a.createCalls)
	assert.Zero(t, b.createCalls)
}

func TestRebuildDropsStaleEdge(t *testing.T) {
	dev := newFakeDevice()
	c := compiler.New(dev)
	s := newScene()
	// A reload removed a binding: the edge's end pin resolves to no input.
	s.graph.connect(compiler.MakePinID(1, pinModelTexture), compiler.MakePinID(3, 99))

	require.True(t, c.Rebuild(s.graph))
	assert.Len(t, c.Links(), 4)
}

func TestRebuildTypeMismatchAbortsLinking(t *testing.T) {
	dev := newFakeDevice()
	c := compiler.New(dev)
	s := newScene()
	// Texture array wired into the camera's uniform binding.
	s.graph.edges = nil
	s.graph.connect(compiler.MakePinID(1, pinModelTexture), compiler.MakePinID(3, 16))

	require.False(t, c.Rebuild(s.graph))

	// Failed linking rolls the whole generation back.
	for typ, n := range c.Store().Counts() {
		assert.Zero(t, n, "type %s", typ)
	}
	assert.Empty(t, dev.leaked())
	assert.Nil(t, c.OrderedPrimitives())
}

func TestRebuildRepeatedlyDoesNotLeak(t *testing.T) {
	dev := newFakeDevice()
	c := compiler.New(dev)
	s := newScene()

	var counts map[compiler.PrimitiveType]uint32
	for i := 0; i < 100; i++ {
		require.True(t, c.Rebuild(s.graph), "rebuild %d", i)
		if counts == nil {
			counts = c.Store().Counts()
			continue
		}
		assert.Equal(t, counts, c.Store().Counts(), "rebuild %d", i)
	}
	c.Teardown()

	assert.Empty(t, dev.leaked())
}

func TestRebuildNodeFailureIsLocal(t *testing.T) {
	dev := newFakeDevice()
	c := compiler.New(dev)
	s := newScene()
	s.model.materialize = func(store *compiler.Store, dev compiler.Device) bool {
		return false
	}

	// The model's outputs are absent, so its edges drop as stale, the
	// pipeline's camera set still links but its texture set cannot create.
	// The rebuild itself still completes.
	require.True(t, c.Rebuild(s.graph))
	assert.NotNil(t, c.OrderedPrimitives())
}

func TestTeardownIsIdempotent(t *testing.T) {
	dev := newFakeDevice()
	c := compiler.New(dev)
	s := newScene()
	require.True(t, c.Rebuild(s.graph))

	c.Teardown()
	c.Teardown()

	assert.Empty(t, dev.leaked())
	assert.Nil(t, c.OrderedPrimitives())
	assert.Nil(t, c.OutputImage())
}

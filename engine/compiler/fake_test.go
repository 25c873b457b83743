package compiler_test

import (
	"fmt"

	"github.com/fini03/vkduck/engine/compiler"
)

// fakeResource is what the fake device hands back for every native object.
type fakeResource struct {
	kind string
	id   int
}

// fakeDevice implements compiler.Device with pure bookkeeping: every create
// and destroy is counted per kind, so tests can assert that rebuild cycles
// never leak and that failure paths stop before native allocation.
type fakeDevice struct {
	width  uint32
	height uint32

	nextID    int
	created   map[string]int
	destroyed map[string]int

	bufferUploads int
	imageUploads  int
	bufferWrites  int
	allocSetCalls int
	setWrites     int

	failImage    bool
	failPipeline bool
	failModule   bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		width:     800,
		height:    600,
		created:   make(map[string]int),
		destroyed: make(map[string]int),
	}
}

func (d *fakeDevice) make(kind string) *fakeResource {
	d.nextID++
	d.created[kind]++
	return &fakeResource{kind: kind, id: d.nextID}
}

func (d *fakeDevice) release(kind string, r compiler.Resource) {
	if r == nil {
		return
	}
	fr := r.(*fakeResource)
	if fr.kind != kind {
		panic(fmt.Sprintf("destroying %s as %s", fr.kind, kind))
	}
	d.destroyed[kind]++
}

// leaked returns kinds with more creates than destroys.
func (d *fakeDevice) leaked() map[string]int {
	out := map[string]int{}
	for kind, n := range d.created {
		if diff := n - d.destroyed[kind]; diff != 0 {
			out[kind] = diff
		}
	}
	return out
}

func (d *fakeDevice) OutputSize() (uint32, uint32) { return d.width, d.height }

func (d *fakeDevice) CreateImage(cfg compiler.ImageConfig) (compiler.Resource, error) {
	if d.failImage {
		return nil, fmt.Errorf("image creation rigged to fail")
	}
	return d.make("image"), nil
}
func (d *fakeDevice) DestroyImage(img compiler.Resource) { d.release("image", img) }
func (d *fakeDevice) UploadImage(img compiler.Resource, pixels []byte) error {
	d.imageUploads++
	return nil
}
func (d *fakeDevice) ImageView(img compiler.Resource) compiler.Resource { return img }

func (d *fakeDevice) CreateSampler() (compiler.Resource, error) { return d.make("sampler"), nil }
func (d *fakeDevice) DestroySampler(s compiler.Resource)        { d.release("sampler", s) }

func (d *fakeDevice) CreateBuffer(size uint64, usage compiler.BufferUsage) (compiler.Resource, error) {
	if size == 0 {
		return nil, fmt.Errorf("zero-size buffer")
	}
	return d.make("buffer"), nil
}
func (d *fakeDevice) DestroyBuffer(buf compiler.Resource) { d.release("buffer", buf) }
func (d *fakeDevice) UploadBuffer(buf compiler.Resource, data []byte) error {
	d.bufferUploads++
	return nil
}
func (d *fakeDevice) WriteBuffer(buf compiler.Resource, data []byte) { d.bufferWrites++ }

func (d *fakeDevice) CreateShaderModule(code []uint32) (compiler.Resource, error) {
	if d.failModule {
		return nil, fmt.Errorf("module creation rigged to fail")
	}
	return d.make("module"), nil
}
func (d *fakeDevice) DestroyShaderModule(m compiler.Resource) { d.release("module", m) }

func (d *fakeDevice) CreateRenderPass(cfg compiler.RenderPassConfig) (compiler.Resource, error) {
	return d.make("render_pass"), nil
}
func (d *fakeDevice) DestroyRenderPass(rp compiler.Resource) { d.release("render_pass", rp) }
func (d *fakeDevice) CreateFramebuffer(rp compiler.Resource, attachments []compiler.Resource, width, height uint32) (compiler.Resource, error) {
	return d.make("framebuffer"), nil
}
func (d *fakeDevice) DestroyFramebuffer(fb compiler.Resource) { d.release("framebuffer", fb) }

func (d *fakeDevice) CreateDescriptorPool(maxSets uint32) (compiler.Resource, error) {
	return d.make("pool"), nil
}
func (d *fakeDevice) DestroyDescriptorPool(p compiler.Resource) { d.release("pool", p) }
func (d *fakeDevice) CreateDescriptorSetLayout(bindings []compiler.LayoutBinding) (compiler.Resource, error) {
	return d.make("layout"), nil
}
func (d *fakeDevice) DestroyDescriptorSetLayout(l compiler.Resource) { d.release("layout", l) }
func (d *fakeDevice) AllocateDescriptorSets(pool, layout compiler.Resource, count uint32) ([]compiler.Resource, error) {
	d.allocSetCalls++
	sets := make([]compiler.Resource, count)
	for i := range sets {
		d.nextID++
		// Sets are freed with their pool, so they are not leak-tracked.
		sets[i] = &fakeResource{kind: "set", id: d.nextID}
	}
	return sets, nil
}
func (d *fakeDevice) UpdateDescriptorSet(set compiler.Resource, writes []compiler.DescriptorWrite) {
	d.setWrites += len(writes)
}

func (d *fakeDevice) CreatePipeline(cfg compiler.PipelineConfig) (compiler.Resource, compiler.Resource, error) {
	if d.failPipeline {
		return nil, nil, fmt.Errorf("pipeline creation rigged to fail")
	}
	return d.make("pipeline"), d.make("pipeline_layout"), nil
}
func (d *fakeDevice) DestroyPipeline(pipeline, layout compiler.Resource) {
	d.release("pipeline", pipeline)
	d.release("pipeline_layout", layout)
}

func (d *fakeDevice) WaitIdle() {}

// fakeEncoder records the command stream as op strings.
type fakeEncoder struct {
	ops []string
}

func (e *fakeEncoder) op(format string, args ...interface{}) {
	e.ops = append(e.ops, fmt.Sprintf(format, args...))
}

func (e *fakeEncoder) WriteBuffer(buf compiler.Resource, data []byte) { e.op("write_buffer") }
func (e *fakeEncoder) BeginRenderPass(rp, fb compiler.Resource, width, height uint32, clearColor [4]float32, hasDepth bool) {
	e.op("begin_pass %dx%d depth=%t", width, height, hasDepth)
}
func (e *fakeEncoder) EndRenderPass()                      { e.op("end_pass") }
func (e *fakeEncoder) BindPipeline(p compiler.Resource)    { e.op("bind_pipeline") }
func (e *fakeEncoder) BindVertexBuffer(b compiler.Resource) { e.op("bind_vertex") }
func (e *fakeEncoder) BindIndexBuffer(b compiler.Resource)  { e.op("bind_index") }
func (e *fakeEncoder) BindDescriptorSets(layout compiler.Resource, firstSet uint32, sets []compiler.Resource) {
	e.op("bind_sets first=%d count=%d", firstSet, len(sets))
}
func (e *fakeEncoder) Draw(vertexCount, instanceCount uint32)  { e.op("draw %d", vertexCount) }
func (e *fakeEncoder) DrawIndexed(indexCount, instanceCount uint32) {
	e.op("draw_indexed %d", indexCount)
}
func (e *fakeEncoder) BlitToOutput(img compiler.Resource) { e.op("blit_to_output") }

// fakeGraph is a minimal compiler.Graph over fake nodes.
type fakeGraph struct {
	nodes []compiler.GraphNode
	edges []compiler.EdgeRef
}

func (g *fakeGraph) add(n compiler.GraphNode)              { g.nodes = append(g.nodes, n) }
func (g *fakeGraph) connect(start, end compiler.PinID)     { g.edges = append(g.edges, compiler.EdgeRef{Start: start, End: end}) }
func (g *fakeGraph) Nodes() []compiler.GraphNode           { return g.nodes }
func (g *fakeGraph) Edges() []compiler.EdgeRef             { return g.edges }
func (g *fakeGraph) PinOwner(pin compiler.PinID) (compiler.GraphNode, bool) {
	for _, n := range g.nodes {
		if n.ID() == pin.Node() {
			return n, true
		}
	}
	return nil, false
}

// fakeNode drives everything through callbacks so each test shapes its own
// materialization.
type fakeNode struct {
	id       uint32
	name     string
	validate error

	materialize func(store *compiler.Store, dev compiler.Device) bool
	outputs     map[compiler.PinID]compiler.Array
	inputs      map[compiler.PinID]compiler.LinkSlot

	createCalls int
}

func (n *fakeNode) ID() uint32      { return n.id }
func (n *fakeNode) Name() string    { return n.name }
func (n *fakeNode) Validate() error { return n.validate }

func (n *fakeNode) ClearPrimitives() {
	n.outputs = nil
	n.inputs = nil
}

func (n *fakeNode) CreatePrimitives(store *compiler.Store, dev compiler.Device) bool {
	n.createCalls++
	if n.materialize == nil {
		return true
	}
	return n.materialize(store, dev)
}

func (n *fakeNode) OutputPrimitives() map[compiler.PinID]compiler.Array {
	if n.outputs == nil {
		return map[compiler.PinID]compiler.Array{}
	}
	return n.outputs
}

func (n *fakeNode) InputPrimitives() map[compiler.PinID]compiler.LinkSlot {
	if n.inputs == nil {
		return map[compiler.PinID]compiler.LinkSlot{}
	}
	return n.inputs
}

func (n *fakeNode) setOutput(pin compiler.PinID, arr compiler.Array) {
	if n.outputs == nil {
		n.outputs = map[compiler.PinID]compiler.Array{}
	}
	n.outputs[pin] = arr
}

func (n *fakeNode) setInput(pin compiler.PinID, slot compiler.LinkSlot) {
	if n.inputs == nil {
		n.inputs = map[compiler.PinID]compiler.LinkSlot{}
	}
	n.inputs[pin] = slot
}

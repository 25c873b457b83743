package graph

import (
	"fmt"

	"github.com/fini03/vkduck/engine/compiler"
	"github.com/fini03/vkduck/engine/shader"
)

const (
	pipePinVertexData uint32 = 0
	pipePinOutput     uint32 = 1
	// Binding pins derive their local index from (set, binding) so the pin
	// id survives a hot reload as long as the binding still exists.
	pipePinBindingBase uint32 = 16
	pipePinBindingSet  uint32 = 16
)

// PipelineNode turns one reflected shader pipeline into its full primitive
// closure: color (and optional depth) target images, attachments, the
// render-target pass, shader modules, one descriptor pool, one descriptor
// set per reflected set block, and the pipeline object itself.
//
// Input pins are derived from reflection; a reload that removes a binding
// removes its pin, and edges pointing at it become stale (dropped with a
// warning by the next rebuild).
type PipelineNode struct {
	baseNode

	ShaderName string
	ClearColor [4]float32
	UseDepth   bool

	reflection *shader.ParsedResult

	vertexPin compiler.PinID
	outputPin compiler.PinID
	// binding pin id -> (set, binding)
	bindingPins map[compiler.PinID][2]uint32

	setHandles     map[uint32]compiler.Handle
	pipelineHandle compiler.Handle
	outputArr      compiler.Array
}

func NewPipelineNode(name, shaderName string) *PipelineNode {
	n := &PipelineNode{
		ShaderName: shaderName,
		ClearColor: [4]float32{0, 0, 0.1, 1},
	}
	n.baseNode = newBaseNode(n, name)
	n.rebuildPins()
	return n
}

// SetReflection installs a fresh parse result (initial load or hot reload)
// and rebuilds the reflection-derived pins.
func (n *PipelineNode) SetReflection(r *shader.ParsedResult) {
	n.reflection = r
	n.rebuildPins()
}

func (n *PipelineNode) Reflection() *shader.ParsedResult { return n.reflection }

func (n *PipelineNode) rebuildPins() {
	n.resetPins()
	n.bindingPins = make(map[compiler.PinID][2]uint32)
	n.vertexPin = n.addPin(pipePinVertexData, "vertexData", PinInput)
	n.outputPin = n.addPin(pipePinOutput, "output", PinOutput)
	if n.reflection == nil {
		return
	}
	for _, b := range n.reflection.Bindings {
		local := pipePinBindingBase + b.Set*pipePinBindingSet + b.Binding
		id := n.addPin(local, b.Name, PinInput)
		n.bindingPins[id] = [2]uint32{b.Set, b.Binding}
	}
}

// Validate is the rebuild pre-flight: a pipeline whose shader failed to
// compile (empty byte-code) refuses the whole rebuild, naming itself.
func (n *PipelineNode) Validate() error {
	if n.reflection == nil {
		return fmt.Errorf("pipeline node '%s': shader '%s' was never loaded", n.name, n.ShaderName)
	}
	if !n.reflection.Valid() {
		return fmt.Errorf("pipeline node '%s': shader '%s' has no valid byte-code: %s",
			n.name, n.ShaderName, n.reflection.Error)
	}
	return nil
}

func (n *PipelineNode) ClearPrimitives() {
	n.setHandles = nil
	n.pipelineHandle = compiler.NilHandle
	n.outputArr = compiler.Array{}
}

func stageMaskToFlags(m shader.StageMask) compiler.StageFlags {
	var out compiler.StageFlags
	if m&shader.MaskVertex != 0 {
		out |= compiler.StageVertex
	}
	if m&shader.MaskFragment != 0 {
		out |= compiler.StageFragment
	}
	return out
}

func (n *PipelineNode) CreatePrimitives(store *compiler.Store, dev compiler.Device) bool {
	r := n.reflection
	if r == nil || !r.Valid() {
		// Pre-flight normally catches this; double failure is node-local.
		return false
	}

	// Render target images, sized relative to the output so presentation
	// constraints hold and resizes propagate.
	colorImg := store.NewImage()
	colorImg.RelativeSize = true
	colorImg.Format = compiler.FormatB8G8R8A8Unorm
	colorImg.Usage = compiler.ImageUsageColorAttachment

	colorAtt := store.NewAttachment()
	colorAtt.Source = colorImg.Handle()
	colorAtt.LoadOp = compiler.LoadOpClear

	attachments := []compiler.Handle{colorAtt.Handle()}
	if n.UseDepth {
		depthImg := store.NewImage()
		depthImg.RelativeSize = true
		depthImg.Format = compiler.FormatD32Sfloat
		depthImg.Usage = compiler.ImageUsageDepthStencilAttachment

		depthAtt := store.NewAttachment()
		depthAtt.Source = depthImg.Handle()
		depthAtt.LoadOp = compiler.LoadOpClear
		attachments = append(attachments, depthAtt.Handle())
	}

	pass := store.NewRenderPass()
	pass.Attachments = attachments
	pass.ClearColor = n.ClearColor

	var stages []compiler.Handle
	for _, kind := range []shader.StageKind{shader.StageVertex, shader.StageFragment} {
		code, ok := r.Stages[kind]
		if !ok {
			continue
		}
		sm := store.NewShaderModule()
		sm.Code = code
		if kind == shader.StageVertex {
			sm.ShaderStage = compiler.StageVertex
		} else {
			sm.ShaderStage = compiler.StageFragment
		}
		stages = append(stages, sm.Handle())
	}

	pool := store.NewDescriptorPool()

	// One descriptor set primitive per reflected set block, in set order.
	n.setHandles = make(map[uint32]compiler.Handle)
	var sets []compiler.Handle
	for _, setIdx := range r.SetIndices() {
		ds := store.NewDescriptorSet()
		ds.Pool = pool.Handle()
		for _, b := range r.BindingsForSet(setIdx) {
			kind := compiler.DescriptorUniformBuffer
			if b.Kind == shader.BindingCombinedImageSampler {
				kind = compiler.DescriptorCombinedImageSampler
			}
			ds.Expected = append(ds.Expected, compiler.ExpectedBinding{
				Slot:   b.Binding,
				Name:   b.Name,
				Kind:   kind,
				Stages: stageMaskToFlags(b.Stages),
			})
		}
		n.setHandles[setIdx] = ds.Handle()
		sets = append(sets, ds.Handle())
	}

	pipe := store.NewPipeline()
	pipe.Pass = pass.Handle()
	pipe.Stages = stages
	pipe.Sets = sets
	n.pipelineHandle = pipe.Handle()

	n.outputArr = compiler.Array{
		Name:    n.name + "_color",
		Type:    compiler.TypeImage,
		Indices: []uint32{colorImg.Handle().Index},
	}
	return true
}

func (n *PipelineNode) OutputPrimitives() map[compiler.PinID]compiler.Array {
	if n.outputArr.Empty() {
		return map[compiler.PinID]compiler.Array{}
	}
	return map[compiler.PinID]compiler.Array{n.outputPin: n.outputArr}
}

func (n *PipelineNode) InputPrimitives() map[compiler.PinID]compiler.LinkSlot {
	out := map[compiler.PinID]compiler.LinkSlot{}
	if !n.pipelineHandle.IsValid() {
		return out
	}
	out[n.vertexPin] = compiler.LinkSlot{
		Handle: n.pipelineHandle,
		Slot:   compiler.SlotVertexData,
	}
	for pin, sb := range n.bindingPins {
		setHandle, ok := n.setHandles[sb[0]]
		if !ok {
			continue
		}
		out[pin] = compiler.LinkSlot{Handle: setHandle, Slot: sb[1]}
	}
	return out
}

func (n *PipelineNode) Settings() map[string]string {
	return map[string]string{
		"shader": n.ShaderName,
		"depth":  fmt.Sprintf("%t", n.UseDepth),
	}
}

func (n *PipelineNode) ApplySettings(s map[string]string) {
	if v, ok := s["shader"]; ok {
		n.ShaderName = v
	}
	if v, ok := s["depth"]; ok {
		n.UseDepth = v == "true"
	}
}

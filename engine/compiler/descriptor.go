package compiler

import (
	"sort"

	"github.com/fini03/vkduck/engine/core"
)

// DescriptorPool backs descriptor set allocation. The native pool is
// allocated lazily on first use; destroying it implicitly frees every set
// allocated from it, which is why pools are last in teardown order.
type DescriptorPool struct {
	base

	MaxSets uint32

	pool Resource
}

func (p *DescriptorPool) Create(store *Store, dev Device) bool { return true }

// ensure allocates the native pool on first use.
func (p *DescriptorPool) ensure(dev Device) (Resource, error) {
	if p.pool != nil {
		return p.pool, nil
	}
	maxSets := p.MaxSets
	if maxSets == 0 {
		maxSets = 256
	}
	pool, err := dev.CreateDescriptorPool(maxSets)
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return pool, nil
}

func (p *DescriptorPool) Destroy(store *Store, dev Device) {
	if p.pool != nil {
		dev.DestroyDescriptorPool(p.pool)
		p.pool = nil
	}
}

// ExpectedBinding is one slot a descriptor set expects, taken from shader
// reflection.
type ExpectedBinding struct {
	Slot   uint32
	Name   string
	Kind   DescriptorKind
	Stages StageFlags
}

// DescriptorSet materializes one reflected set=N block. Cardinality rule:
// every array bound to the set must have the same length, and that length is
// the number of physical set instances allocated. A length-1 set is a global
// set; a length-N set is per-object, instance i binding element i of each
// array.
type DescriptorSet struct {
	base

	Pool     Handle
	Expected []ExpectedBinding

	bound map[uint32]Array

	setCount uint32
	layout   Resource
	sets     []Resource
	// One sampler per image binding per set instance. Not shared or cached.
	// TODO: a process-wide sampler cache would cut these to a handful.
	samplers []Resource
}

func (p *DescriptorSet) SetCount() uint32 { return p.setCount }

// Layout returns the native set layout, or nil if Create failed.
func (p *DescriptorSet) Layout() Resource { return p.layout }

func (p *DescriptorSet) expected(slot uint32) *ExpectedBinding {
	for i := range p.Expected {
		if p.Expected[i].Slot == slot {
			return &p.Expected[i]
		}
	}
	return nil
}

// Connect validates and records one incoming array for a binding slot. A
// camera array is accepted wherever a uniform-buffer binding is expected: a
// camera is representationally a specialized uniform buffer. Connecting an
// image array marks the images as sampled so a later creation pass allocates
// them with the right native usage.
func (p *DescriptorSet) Connect(arr Array, slot uint32, store *Store) bool {
	exp := p.expected(slot)
	if exp == nil {
		core.LogError("descriptor set '%s': no binding at slot %d", p.name, slot)
		return false
	}
	if arr.Empty() {
		core.LogError("descriptor set '%s': empty array for binding '%s'", p.name, exp.Name)
		return false
	}

	switch exp.Kind {
	case DescriptorUniformBuffer:
		if arr.Type != TypeUniformBuffer && arr.Type != TypeCamera {
			core.LogError("descriptor set '%s': binding '%s' expects a uniform buffer, got %s",
				p.name, exp.Name, arr.Type)
			return false
		}
	case DescriptorCombinedImageSampler:
		if arr.Type != TypeImage {
			core.LogError("descriptor set '%s': binding '%s' expects an image, got %s",
				p.name, exp.Name, arr.Type)
			return false
		}
		for i := 0; i < arr.Len(); i++ {
			store.ImageAt(arr.HandleAt(i)).AddUsage(ImageUsageSampled)
		}
	default:
		core.LogError("descriptor set '%s': binding '%s' has unsupported kind", p.name, exp.Name)
		return false
	}

	if p.bound == nil {
		p.bound = make(map[uint32]Array)
	}
	p.bound[slot] = arr
	return true
}

func (p *DescriptorSet) Create(store *Store, dev Device) bool {
	if len(p.Expected) == 0 {
		core.LogError("descriptor set '%s': no expected bindings", p.name)
		return false
	}

	// Every reflected binding must have been linked.
	for i := range p.Expected {
		if _, ok := p.bound[p.Expected[i].Slot]; !ok {
			core.LogError("descriptor set '%s': binding '%s' (slot %d) is not connected",
				p.name, p.Expected[i].Name, p.Expected[i].Slot)
			return false
		}
	}

	// Cardinality: all bound arrays must agree on length before any native
	// allocation happens.
	count := uint32(0)
	for slot, arr := range p.bound {
		n := uint32(arr.Len())
		if count == 0 {
			count = n
			continue
		}
		if n != count {
			core.LogError("descriptor set '%s': cardinality mismatch at slot %d (%d vs %d)",
				p.name, slot, n, count)
			return false
		}
	}

	pool := store.DescriptorPoolAt(p.Pool)
	native, err := pool.ensure(dev)
	if err != nil {
		core.LogError("descriptor set '%s': pool allocation failed: %s", p.name, err)
		return false
	}

	bindings := make([]LayoutBinding, len(p.Expected))
	for i, exp := range p.Expected {
		bindings[i] = LayoutBinding{
			Binding: exp.Slot,
			Kind:    exp.Kind,
			Stages:  exp.Stages,
			Count:   1,
		}
	}
	layout, err := dev.CreateDescriptorSetLayout(bindings)
	if err != nil {
		core.LogError("descriptor set '%s': layout failed: %s", p.name, err)
		return false
	}
	sets, err := dev.AllocateDescriptorSets(native, layout, count)
	if err != nil {
		core.LogError("descriptor set '%s': allocation failed: %s", p.name, err)
		dev.DestroyDescriptorSetLayout(layout)
		return false
	}

	// Deterministic write order: ascending slot.
	slots := make([]uint32, 0, len(p.bound))
	for slot := range p.bound {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })

	for inst := uint32(0); inst < count; inst++ {
		writes := make([]DescriptorWrite, 0, len(slots))
		for _, slot := range slots {
			arr := p.bound[slot]
			h := arr.HandleAt(int(inst))
			switch arr.Type {
			case TypeUniformBuffer:
				ub := store.UniformBufferAt(h)
				writes = append(writes, DescriptorWrite{
					Binding:    slot,
					Kind:       DescriptorUniformBuffer,
					Buffer:     ub.Native(),
					BufferSize: ub.byteSize(),
				})
			case TypeCamera:
				cam := store.CameraAt(h)
				writes = append(writes, DescriptorWrite{
					Binding:    slot,
					Kind:       DescriptorUniformBuffer,
					Buffer:     cam.Native(),
					BufferSize: uint64(len(cam.bytes())),
				})
			case TypeImage:
				img := store.ImageAt(h)
				sampler, err := dev.CreateSampler()
				if err != nil {
					core.LogError("descriptor set '%s': sampler failed: %s", p.name, err)
					return false
				}
				p.samplers = append(p.samplers, sampler)
				writes = append(writes, DescriptorWrite{
					Binding: slot,
					Kind:    DescriptorCombinedImageSampler,
					Image:   dev.ImageView(img.Native()),
					Sampler: sampler,
				})
			}
		}
		dev.UpdateDescriptorSet(sets[inst], writes)
	}

	p.layout = layout
	p.sets = sets
	p.setCount = count
	return true
}

func (p *DescriptorSet) Destroy(store *Store, dev Device) {
	for _, s := range p.samplers {
		dev.DestroySampler(s)
	}
	p.samplers = nil
	if p.layout != nil {
		dev.DestroyDescriptorSetLayout(p.layout)
		p.layout = nil
	}
	// The sets themselves are freed when the pool goes.
	p.sets = nil
	p.setCount = 0
}

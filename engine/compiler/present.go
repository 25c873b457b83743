package compiler

import (
	"github.com/fini03/vkduck/engine/core"
)

// Present is the presentation sink: it takes exactly one image array and
// copies the current element into the swapchain image each frame. Source
// images must use the fixed presentation pixel format and be sized relative
// to the output so a resize propagates through them.
type Present struct {
	base

	Source Array
}

func (p *Present) Connect(arr Array, slot uint32, store *Store) bool {
	if slot != SlotPresentSource {
		core.LogError("present '%s': unknown input slot %d", p.name, slot)
		return false
	}
	if arr.Type != TypeImage {
		core.LogError("present '%s': expects an image array, got %s", p.name, arr.Type)
		return false
	}
	if arr.Empty() {
		core.LogError("present '%s': empty image array", p.name)
		return false
	}
	for i := 0; i < arr.Len(); i++ {
		img := store.ImageAt(arr.HandleAt(i))
		if img.Format != FormatB8G8R8A8Unorm {
			core.LogError("present '%s': image '%s' has format %s, presentation requires %s",
				p.name, img.Name(), img.Format, FormatB8G8R8A8Unorm)
			return false
		}
		if !img.RelativeSize {
			core.LogError("present '%s': image '%s' must be sized relative to the output", p.name, img.Name())
			return false
		}
		img.AddUsage(ImageUsageTransferSrc)
	}
	p.Source = arr
	return true
}

func (p *Present) Create(store *Store, dev Device) bool {
	if p.Source.Empty() {
		core.LogError("present '%s': no source image connected", p.name)
		return false
	}
	if store.ImageAt(p.Source.HandleAt(0)).Native() == nil {
		core.LogError("present '%s': source image was not created", p.name)
		return false
	}
	return true
}

func (p *Present) Destroy(store *Store, dev Device) {}

func (p *Present) RecordCommands(store *Store, enc CommandEncoder) {
	if p.Source.Empty() {
		return
	}
	img := store.ImageAt(p.Source.HandleAt(0))
	if img.Native() == nil {
		return
	}
	enc.BlitToOutput(img.Native())
}

// OutputImage returns the native image currently wired for presentation, or
// nil if the source was never created.
func (p *Present) OutputImage(store *Store) Resource {
	if p.Source.Empty() {
		return nil
	}
	return store.ImageAt(p.Source.HandleAt(0)).Native()
}

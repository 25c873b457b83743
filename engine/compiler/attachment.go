package compiler

import (
	"github.com/fini03/vkduck/engine/core"
)

// Attachment binds an image into a render-target pass. It owns no native
// object of its own; format and usage are derived from the source image when
// the pass is created, so usage mutations applied during linking are picked
// up here.
type Attachment struct {
	base

	Source Handle
	LoadOp LoadOp
}

func (p *Attachment) Create(store *Store, dev Device) bool {
	if store.Get(p.Source) == nil || p.Source.Type != TypeImage {
		core.LogError("attachment '%s': missing source image", p.name)
		return false
	}
	return true
}

func (p *Attachment) Destroy(store *Store, dev Device) {}

// desc derives the render-pass attachment description from the source image.
func (p *Attachment) desc(store *Store) AttachmentDesc {
	img := store.ImageAt(p.Source)
	return AttachmentDesc{
		Format:  img.Format,
		Usage:   img.Usage,
		LoadOp:  p.LoadOp,
		Sampled: img.Usage&ImageUsageSampled != 0,
	}
}

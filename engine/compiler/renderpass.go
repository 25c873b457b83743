package compiler

import (
	"github.com/fini03/vkduck/engine/core"
)

// RenderPass is the render-target pass primitive: a native render pass plus
// the framebuffer over its attachment images. Attachment formats, load/store
// ops and dependency barriers are derived from the attachments at create
// time.
type RenderPass struct {
	base

	Attachments []Handle
	ClearColor  [4]float32

	rp       Resource
	fb       Resource
	width    uint32
	height   uint32
	hasDepth bool
}

func (p *RenderPass) Create(store *Store, dev Device) bool {
	if len(p.Attachments) == 0 {
		core.LogError("render pass '%s': no attachments", p.name)
		return false
	}

	descs := make([]AttachmentDesc, 0, len(p.Attachments))
	views := make([]Resource, 0, len(p.Attachments))
	for _, ah := range p.Attachments {
		if store.Get(ah) == nil || ah.Type != TypeAttachment {
			core.LogError("render pass '%s': missing attachment", p.name)
			return false
		}
		att := store.AttachmentAt(ah)
		img := store.ImageAt(att.Source)
		if img.Native() == nil {
			core.LogError("render pass '%s': attachment image '%s' not created", p.name, img.Name())
			return false
		}
		d := att.desc(store)
		descs = append(descs, d)
		views = append(views, dev.ImageView(img.Native()))
		if d.Usage&ImageUsageDepthStencilAttachment != 0 {
			p.hasDepth = true
		}
	}

	// All attachments of one pass share the extent of the first.
	first := store.ImageAt(store.AttachmentAt(p.Attachments[0]).Source)
	p.width = first.Width
	p.height = first.Height

	rp, err := dev.CreateRenderPass(RenderPassConfig{Attachments: descs})
	if err != nil {
		core.LogError("render pass '%s': create failed: %s", p.name, err)
		return false
	}
	fb, err := dev.CreateFramebuffer(rp, views, p.width, p.height)
	if err != nil {
		core.LogError("render pass '%s': framebuffer failed: %s", p.name, err)
		dev.DestroyRenderPass(rp)
		return false
	}
	p.rp = rp
	p.fb = fb
	return true
}

func (p *RenderPass) Destroy(store *Store, dev Device) {
	if p.fb != nil {
		dev.DestroyFramebuffer(p.fb)
		p.fb = nil
	}
	if p.rp != nil {
		dev.DestroyRenderPass(p.rp)
		p.rp = nil
	}
}

// colorAttachmentCount counts non-depth attachments; the pipeline derives
// its blend state from this.
func (p *RenderPass) colorAttachmentCount(store *Store) int {
	n := 0
	for _, ah := range p.Attachments {
		att := store.AttachmentAt(ah)
		if store.ImageAt(att.Source).Usage&ImageUsageDepthStencilAttachment == 0 {
			n++
		}
	}
	return n
}

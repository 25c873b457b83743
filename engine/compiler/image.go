package compiler

import (
	"github.com/fini03/vkduck/engine/core"
)

// Image is a GPU image primitive. Pipeline nodes size their output images
// relative to the presentation extent so they track window resizes; texture
// images loaded from assets carry fixed dimensions and initial pixels.
type Image struct {
	base

	Width  uint32
	Height uint32
	// RelativeSize means Width/Height are ignored and the extent is derived
	// from Device.OutputSize at create time, scaled by Scale.
	RelativeSize bool
	Scale        float32
	Format       ImageFormat
	Usage        ImageUsage
	// Pixels is optional initial content, uploaded once by Stage.
	Pixels []byte

	img Resource
}

// AddUsage ORs extra usage bits in. Link resolution calls this when an image
// is consumed as a texture or a present source, which is why linking must run
// strictly before creation.
func (p *Image) AddUsage(u ImageUsage) {
	p.Usage |= u
}

// Native returns the backend image, or nil before Create.
func (p *Image) Native() Resource { return p.img }

func (p *Image) Create(store *Store, dev Device) bool {
	w, h := p.Width, p.Height
	if p.RelativeSize {
		ow, oh := dev.OutputSize()
		scale := p.Scale
		if scale == 0 {
			scale = 1
		}
		w = uint32(float32(ow) * scale)
		h = uint32(float32(oh) * scale)
	}
	if w == 0 || h == 0 {
		core.LogError("image '%s': zero extent (%dx%d)", p.name, w, h)
		return false
	}
	if p.Format == FormatInvalid {
		core.LogError("image '%s': no format set", p.name)
		return false
	}

	img, err := dev.CreateImage(ImageConfig{
		Width:  w,
		Height: h,
		Format: p.Format,
		Usage:  p.Usage,
	})
	if err != nil {
		core.LogError("image '%s': create failed: %s", p.name, err)
		return false
	}
	p.img = img
	p.Width = w
	p.Height = h
	return true
}

func (p *Image) Stage(dev Device) bool {
	if p.img == nil || len(p.Pixels) == 0 {
		return true
	}
	if err := dev.UploadImage(p.img, p.Pixels); err != nil {
		core.LogError("image '%s': upload failed: %s", p.name, err)
		return false
	}
	return true
}

func (p *Image) Destroy(store *Store, dev Device) {
	if p.img != nil {
		dev.DestroyImage(p.img)
		p.img = nil
	}
}

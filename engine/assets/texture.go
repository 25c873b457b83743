package assets

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/fini03/vkduck/engine/core"
	"github.com/fini03/vkduck/engine/graph"
	"github.com/fini03/vkduck/engine/jobs"
)

// LoadTexture decodes the image at path into tightly packed RGBA pixels.
func LoadTexture(path string) (graph.Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return graph.Texture{}, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return graph.Texture{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 {
		converted := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(converted, converted.Bounds(), img, bounds.Min, draw.Src)
		rgba = converted
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	core.LogDebug("loaded texture '%s' (%s, %dx%d)", name, format, bounds.Dx(), bounds.Dy())

	return graph.Texture{
		Name:   name,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Pixels: rgba.Pix,
	}, nil
}

// LoadTextures decodes all paths in parallel on the pool, keeping result
// order aligned with the input order.
func LoadTextures(pool *jobs.Pool, paths []string) ([]graph.Texture, error) {
	textures := make([]graph.Texture, len(paths))
	fns := make([]func() error, len(paths))
	for i, path := range paths {
		i, path := i, path
		fns[i] = func() error {
			tex, err := LoadTexture(path)
			if err != nil {
				return err
			}
			textures[i] = tex
			return nil
		}
	}
	if err := pool.ForkJoin(fns...); err != nil {
		return nil, err
	}
	return textures, nil
}

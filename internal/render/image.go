package render

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/roach88/inkwell/internal/geom"
)

// Image is one rasterized piece of a stroke together with the document-space
// area it covers.
type Image struct {
	Bounds geom.AABB
	Pixels *image.RGBA
}

// Size returns the pixel dimensions.
func (i Image) Size() (int, int) {
	if i.Pixels == nil {
		return 0, 0
	}
	r := i.Pixels.Bounds()
	return r.Dx(), r.Dy()
}

// GeneratedImages is the output of one rasterization job.
//
// Partial is set when only the part of the stroke near Viewport was
// rendered; the store then re-renders when the viewport moves past it.
type GeneratedImages struct {
	Images   []Image
	Partial  bool
	Viewport geom.AABB
}

// Full wraps images rendered for the whole stroke.
func Full(images ...Image) GeneratedImages {
	return GeneratedImages{Images: images}
}

// InViewport wraps images rendered only for the given viewport.
func InViewport(viewport geom.AABB, images ...Image) GeneratedImages {
	return GeneratedImages{Images: images, Partial: true, Viewport: viewport}
}

// Len returns the number of images.
func (g GeneratedImages) Len() int { return len(g.Images) }

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if img == nil {
		return fmt.Errorf("encode png: nil image")
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// Package stroke defines the closed set of drawable document objects held by
// the stroke store: brush paths, shapes, text and embedded bitmaps.
//
// Every kind implements Stroke. The interface is sealed (it has an
// unexported method) so code that needs per-kind behaviour, like the codecs
// and the SVG exporter, can type-switch over a known, complete set.
package stroke

import (
	"context"
	"fmt"
	"image/color"

	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/render"
)

// Kind names a stroke variant. The values are stable: codecs persist them.
type Kind string

const (
	KindBrush Kind = "brush"
	KindShape Kind = "shape"
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Stroke is the capability contract shared by all stroke kinds.
//
// A Stroke held by the store is owned by it. Callers that need to change
// one go through the store so bounds and render state follow the edit.
type Stroke interface {
	Kind() Kind
	// Bounds returns the document-space area painted by Draw. Strokes with
	// nothing to paint return geom.Invalid().
	Bounds() geom.AABB
	Translate(offset geom.Vec2)
	Draw(c *render.Canvas) error
	// Clone returns a deep copy that shares no mutable state with the
	// receiver. Immutable payloads (decoded bitmaps) may be shared.
	Clone() Stroke

	sealed()
}

// Color is a straight (non-premultiplied) RGBA color.
type Color struct {
	R uint8 `json:"r" yaml:"r"`
	G uint8 `json:"g" yaml:"g"`
	B uint8 `json:"b" yaml:"b"`
	A uint8 `json:"a" yaml:"a"`
}

// Common colors.
var (
	Black       = Color{A: 255}
	White       = Color{R: 255, G: 255, B: 255, A: 255}
	Transparent = Color{}
)

// RGBA returns the alpha-premultiplied color used by image/draw.
func (c Color) RGBA() color.RGBA {
	a := uint16(c.A)
	return color.RGBA{
		R: uint8(uint16(c.R) * a / 255),
		G: uint8(uint16(c.G) * a / 255),
		B: uint8(uint16(c.B) * a / 255),
		A: c.A,
	}
}

// Hex formats the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Opacity returns alpha in [0, 1].
func (c Color) Opacity() float64 { return float64(c.A) / 255 }

// ViewportRenderMargin is how far, relative to the viewport's larger
// extent, a stroke is rendered past the viewport before the rendering is
// cut and marked partial.
const ViewportRenderMargin = 0.5

// GenerateImages rasterizes s at the given image scale.
//
// Strokes extending well past viewport are only rendered in the viewport
// neighbourhood and the result is marked partial. An invalid viewport means
// "render everything".
func GenerateImages(s Stroke, viewport geom.AABB, scale float64) (render.GeneratedImages, error) {
	bounds := s.Bounds()
	if !bounds.IsValid() {
		return render.Full(), nil
	}

	area := bounds
	partial := false
	if viewport.IsValid() {
		ext := viewport.Extents()
		limit := viewport.Loosened(max(ext.X, ext.Y) * ViewportRenderMargin)
		if !limit.Contains(bounds) {
			partial = true
			area = bounds.Intersection(limit)
			if !area.IsValid() {
				return render.InViewport(viewport), nil
			}
		}
	}

	cv := render.NewCanvas(area, scale)
	if err := s.Draw(cv); err != nil {
		return render.GeneratedImages{}, fmt.Errorf("generate images for %s stroke: %w", s.Kind(), err)
	}
	if partial {
		return render.InViewport(viewport, cv.Image()), nil
	}
	return render.Full(cv.Image()), nil
}

// Rasterizer turns a stroke snapshot into images. Implementations run on
// worker goroutines and must treat s as read-only.
type Rasterizer interface {
	GenerateImages(ctx context.Context, s Stroke, viewport geom.AABB, scale float64) (render.GeneratedImages, error)
}

// RasterizerFunc adapts a function to Rasterizer.
type RasterizerFunc func(ctx context.Context, s Stroke, viewport geom.AABB, scale float64) (render.GeneratedImages, error)

// GenerateImages calls f.
func (f RasterizerFunc) GenerateImages(ctx context.Context, s Stroke, viewport geom.AABB, scale float64) (render.GeneratedImages, error) {
	return f(ctx, s, viewport, scale)
}

// SoftwareRasterizer renders strokes with the render package.
type SoftwareRasterizer struct{}

// GenerateImages implements Rasterizer.
func (SoftwareRasterizer) GenerateImages(ctx context.Context, s Stroke, viewport geom.AABB, scale float64) (render.GeneratedImages, error) {
	if err := ctx.Err(); err != nil {
		return render.GeneratedImages{}, err
	}
	return GenerateImages(s, viewport, scale)
}

package stroke

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/render"
)

// BitmapImage is an embedded raster image placed in a document rectangle.
//
// The PNG bytes and the decoded pixels are immutable after construction and
// are shared between clones.
type BitmapImage struct {
	Rect geom.AABB `json:"rect"`
	PNG  []byte    `json:"png"`

	pixels image.Image
}

// NewBitmapImage decodes PNG data placed at rect.
func NewBitmapImage(data []byte, rect geom.AABB) (*BitmapImage, error) {
	b := &BitmapImage{Rect: rect, PNG: data}
	if err := b.decode(); err != nil {
		return nil, err
	}
	return b, nil
}

// NewBitmapImageFromImage encodes img and places it at rect. An invalid rect
// places the image at the origin with its pixel size.
func NewBitmapImageFromImage(img image.Image, rect geom.AABB) (*BitmapImage, error) {
	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, img); err != nil {
		return nil, fmt.Errorf("new bitmap image: %w", err)
	}
	if !rect.IsValid() {
		r := img.Bounds()
		rect = geom.Rect(0, 0, float64(r.Dx()), float64(r.Dy()))
	}
	return &BitmapImage{Rect: rect, PNG: buf.Bytes(), pixels: img}, nil
}

func (b *BitmapImage) decode() error {
	if len(b.PNG) == 0 {
		return errors.New("bitmap image: empty png data")
	}
	img, err := png.Decode(bytes.NewReader(b.PNG))
	if err != nil {
		return fmt.Errorf("bitmap image: decode png: %w", err)
	}
	b.pixels = img
	return nil
}

// Pixels returns the decoded image.
func (b *BitmapImage) Pixels() image.Image { return b.pixels }

func (b *BitmapImage) Kind() Kind { return KindImage }

func (b *BitmapImage) Bounds() geom.AABB { return b.Rect }

func (b *BitmapImage) Translate(offset geom.Vec2) { b.Rect = b.Rect.Translated(offset) }

func (b *BitmapImage) Draw(c *render.Canvas) error {
	if b.pixels == nil {
		return errors.New("bitmap image has no pixel data")
	}
	c.DrawImage(b.Rect, b.pixels)
	return nil
}

func (b *BitmapImage) Clone() Stroke {
	cp := *b
	return &cp
}

func (b *BitmapImage) sealed() {}

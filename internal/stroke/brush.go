package stroke

import (
	"slices"

	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/render"
)

// Element is one sampled input point of a brush path.
type Element struct {
	Pos      geom.Vec2 `json:"pos"`
	Pressure float64   `json:"pressure"`
}

// BrushStyle is the style of a freehand path.
type BrushStyle struct {
	Width float64 `json:"width"`
	Color Color   `json:"color"`
}

// minBrushWidth keeps zero-pressure samples visible.
const minBrushWidth = 0.5

// BrushStroke is a freehand, pressure-sensitive path.
type BrushStroke struct {
	Path  []Element  `json:"path"`
	Style BrushStyle `json:"style"`
}

// NewBrushStroke creates a path through pts at full pressure.
func NewBrushStroke(style BrushStyle, pts ...geom.Vec2) *BrushStroke {
	b := &BrushStroke{Style: style, Path: make([]Element, 0, len(pts))}
	for _, p := range pts {
		b.Path = append(b.Path, Element{Pos: p, Pressure: 1})
	}
	return b
}

// Append extends the path.
func (b *BrushStroke) Append(els ...Element) {
	b.Path = append(b.Path, els...)
}

func (b *BrushStroke) Kind() Kind { return KindBrush }

func (b *BrushStroke) Bounds() geom.AABB {
	bounds := geom.Invalid()
	for _, el := range b.Path {
		bounds = bounds.MergedPoint(el.Pos)
	}
	return bounds.Loosened(b.Style.Width / 2)
}

func (b *BrushStroke) Translate(offset geom.Vec2) {
	for i := range b.Path {
		b.Path[i].Pos = b.Path[i].Pos.Add(offset)
	}
}

func (b *BrushStroke) Draw(c *render.Canvas) error {
	if len(b.Path) == 0 {
		return nil
	}
	pts := make([]geom.Vec2, len(b.Path))
	for i, el := range b.Path {
		pts[i] = el.Pos
	}
	c.StrokePolyline(pts, b.Widths(), b.Style.Color.RGBA(), false)
	return nil
}

// Widths returns the painted width at each path element.
func (b *BrushStroke) Widths() []float64 {
	widths := make([]float64, len(b.Path))
	for i, el := range b.Path {
		widths[i] = max(b.Style.Width*el.Pressure, minBrushWidth)
	}
	return widths
}

func (b *BrushStroke) Clone() Stroke {
	return &BrushStroke{Path: slices.Clone(b.Path), Style: b.Style}
}

func (b *BrushStroke) sealed() {}

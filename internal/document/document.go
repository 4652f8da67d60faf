// Package document holds the metadata of a drawing document: its identity,
// page format, background and the layout that decides how the document
// area grows with its content.
package document

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/stroke"
)

// Layout controls how the document area follows the content.
type Layout string

const (
	// LayoutFixed keeps the size unless explicitly resized to fit.
	LayoutFixed Layout = "fixed_size"
	// LayoutContinuousVertical grows downwards page by page.
	LayoutContinuousVertical Layout = "continuous_vertical"
	// LayoutInfinite grows in every direction.
	LayoutInfinite Layout = "infinite"
)

// ParseLayout validates a layout name.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(s); l {
	case LayoutFixed, LayoutContinuousVertical, LayoutInfinite:
		return l, nil
	}
	return "", fmt.Errorf("unknown layout %q", s)
}

// Format is the page size in document units (1/96 inch at the default DPI).
type Format struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	DPI    float64 `json:"dpi" yaml:"dpi"`
}

// A4 at 96 DPI.
var DefaultFormat = Format{Width: 794, Height: 1123, DPI: 96}

// Size returns the page extents.
func (f Format) Size() geom.Vec2 { return geom.V(f.Width, f.Height) }

// Document is the metadata persisted next to the strokes.
type Document struct {
	ID         string       `json:"id" yaml:"id"`
	Title      string       `json:"title,omitempty" yaml:"title,omitempty"`
	Format     Format       `json:"format" yaml:"format"`
	Background stroke.Color `json:"background" yaml:"background"`
	Layout     Layout       `json:"layout" yaml:"layout"`
	X          float64      `json:"x" yaml:"x"`
	Y          float64      `json:"y" yaml:"y"`
	Width      float64      `json:"width" yaml:"width"`
	Height     float64      `json:"height" yaml:"height"`
}

// New creates a one-page document.
func New(id string, format Format, layout Layout) *Document {
	return &Document{
		ID:         id,
		Format:     format,
		Background: stroke.White,
		Layout:     layout,
		Width:      format.Width,
		Height:     format.Height,
	}
}

// Bounds returns the document area.
func (d *Document) Bounds() geom.AABB { return geom.Rect(d.X, d.Y, d.Width, d.Height) }

func (d *Document) setBounds(b geom.AABB) {
	d.X, d.Y = b.Mins.X, b.Mins.Y
	ext := b.Extents()
	d.Width, d.Height = ext.X, ext.Y
}

// Validate checks the fields a codec cannot repair.
func (d *Document) Validate() error {
	if d.Format.Width <= 0 || d.Format.Height <= 0 {
		return fmt.Errorf("document %s: format must be positive, got %gx%g", d.ID, d.Format.Width, d.Format.Height)
	}
	if _, err := ParseLayout(string(d.Layout)); err != nil {
		return fmt.Errorf("document %s: %w", d.ID, err)
	}
	if d.Width <= 0 || d.Height <= 0 || math.IsNaN(d.Width+d.Height+d.X+d.Y) {
		return fmt.Errorf("document %s: invalid bounds %s", d.ID, d.Bounds())
	}
	return nil
}

// PagesBoundsWithContent returns the origin-aligned pages of the document
// that intersect at least one of strokeBounds, row by row. With no content
// it returns the origin page. Only pages near content are visited.
func (d *Document) PagesBoundsWithContent(strokeBounds []geom.AABB) []geom.AABB {
	cover := d.Bounds().CoverOriginAligned(d.Format.Size())
	seen := make(map[geom.AABB]bool)
	var pages []geom.AABB
	for _, b := range strokeBounds {
		pages = d.appendPagesTouching(pages, seen, b, cover)
	}
	if len(pages) == 0 {
		return []geom.AABB{geom.Rect(0, 0, d.Format.Width, d.Format.Height)}
	}
	slices.SortFunc(pages, func(a, b geom.AABB) int {
		if c := cmp.Compare(a.Mins.Y, b.Mins.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.Mins.X, b.Mins.X)
	})
	return pages
}

// appendPagesTouching appends the pages inside cover that intersect b,
// borders included, skipping those already seen.
func (d *Document) appendPagesTouching(pages []geom.AABB, seen map[geom.AABB]bool, b, cover geom.AABB) []geom.AABB {
	area := b.Intersection(cover)
	if !area.IsValid() {
		return pages
	}
	w, h := d.Format.Width, d.Format.Height
	for y := math.Floor(area.Mins.Y/h) - 1; y*h <= area.Maxs.Y; y++ {
		for x := math.Floor(area.Mins.X/w) - 1; x*w <= area.Maxs.X; x++ {
			page := geom.Rect(x*w, y*h, w, h)
			if seen[page] || !cover.Contains(page) || !page.Intersects(b) {
				continue
			}
			seen[page] = true
			pages = append(pages, page)
		}
	}
	return pages
}

// BoundsWithContentExtended merges PagesBoundsWithContent.
func (d *Document) BoundsWithContentExtended(strokeBounds []geom.AABB) geom.AABB {
	merged := geom.Invalid()
	for _, p := range d.PagesBoundsWithContent(strokeBounds) {
		merged = merged.Merged(p)
	}
	return merged
}

// pagesCovering returns the origin-aligned page area containing b.
func (d *Document) pagesCovering(b geom.AABB) geom.AABB {
	return b.CoverOriginAligned(d.Format.Size())
}

// fitVertical sizes the document to one page width and as many pages down
// from the origin as content needs.
func (d *Document) fitVertical(content geom.AABB) {
	pages := 1.0
	if content.IsValid() && content.Maxs.Y > 0 {
		pages = max(1, math.Ceil(content.Maxs.Y/d.Format.Height))
	}
	d.X, d.Y = 0, 0
	d.Width = d.Format.Width
	d.Height = pages * d.Format.Height
}

// ResizeToFitContent resizes the document around content regardless of
// layout. Infinite documents also keep the origin page.
func (d *Document) ResizeToFitContent(content geom.AABB) {
	switch d.Layout {
	case LayoutInfinite:
		origin := geom.Rect(0, 0, d.Format.Width, d.Format.Height)
		d.setBounds(d.pagesCovering(origin.Merged(content)))
	default:
		d.fitVertical(content)
	}
}

// ResizeAutoexpand grows the document after an edit. Fixed documents never
// change here; continuous documents keep one empty page below the content;
// infinite documents cover content and viewport.
func (d *Document) ResizeAutoexpand(content, viewport geom.AABB) {
	switch d.Layout {
	case LayoutFixed:
	case LayoutContinuousVertical:
		d.fitVertical(content)
		if content.IsValid() {
			d.Height += d.Format.Height
		}
	case LayoutInfinite:
		origin := geom.Rect(0, 0, d.Format.Width, d.Format.Height)
		d.setBounds(d.pagesCovering(origin.Merged(content).Merged(viewport)))
	}
}

// ExpandForViewport grows infinite documents to cover viewport and
// continuous documents down to its bottom edge. Returns whether the bounds
// changed.
func (d *Document) ExpandForViewport(viewport geom.AABB) bool {
	if !viewport.IsValid() {
		return false
	}
	before := d.Bounds()
	switch d.Layout {
	case LayoutInfinite:
		d.setBounds(d.pagesCovering(before.Merged(viewport)))
	case LayoutContinuousVertical:
		if viewport.Maxs.Y > before.Maxs.Y {
			pages := math.Ceil((viewport.Maxs.Y - d.Y) / d.Format.Height)
			d.Height = pages * d.Format.Height
		}
	}
	return d.Bounds() != before
}

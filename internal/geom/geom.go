// Package geom provides the 2D vector and axis-aligned bounds types shared by
// the stroke store, the spatial index and the renderers.
//
// Coordinates are document coordinates: origin top-left, X grows right, Y
// grows down. An AABB whose Mins exceed its Maxs on either axis is invalid
// and represents "no area"; Invalid() returns the neutral element for Merged.
package geom

import (
	"encoding/json"
	"fmt"
	"math"
)

// Vec2 is a point or offset in document coordinates.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// V is shorthand for Vec2{X: x, Y: y}.
func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }
func (v Vec2) Min(o Vec2) Vec2 { return Vec2{math.Min(v.X, o.X), math.Min(v.Y, o.Y)} }
func (v Vec2) Max(o Vec2) Vec2 { return Vec2{math.Max(v.X, o.X), math.Max(v.Y, o.Y)} }
func (v Vec2) String() string { return fmt.Sprintf("(%g, %g)", v.X, v.Y) }
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }
func (v Vec2) Perp() Vec2 { return Vec2{-v.Y, v.X} }
func (v Vec2) IsFinite() bool { return !math.IsNaN(v.X+v.Y) && !math.IsInf(v.X+v.Y, 0) }
func (v Vec2) ApproxEq(o Vec2) bool { return math.Abs(v.X-o.X) < 1e-9 && math.Abs(v.Y-o.Y) < 1e-9 }
func (v Vec2) Lerp(o Vec2, t float64) Vec2 { return v.Add(o.Sub(v).Scale(t)) }

// Normalized returns v scaled to unit length, or the zero vector.
func (v Vec2) Normalized() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return v.Scale(1 / l)
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Mins Vec2 `json:"mins" yaml:"mins"`
	Maxs Vec2 `json:"maxs" yaml:"maxs"`
}

// NewAABB returns the box spanned by the two corners in any order.
func NewAABB(a, b Vec2) AABB {
	return AABB{Mins: a.Min(b), Maxs: a.Max(b)}
}

// Rect returns the box with origin (x, y) and the given extents.
func Rect(x, y, w, h float64) AABB {
	return NewAABB(Vec2{x, y}, Vec2{x + w, y + h})
}

// Invalid returns a box that contains nothing and is the identity for Merged.
func Invalid() AABB {
	return AABB{
		Mins: Vec2{math.Inf(1), math.Inf(1)},
		Maxs: Vec2{math.Inf(-1), math.Inf(-1)},
	}
}

// FromPoints returns the smallest box containing all points. With no points
// the result is Invalid.
func FromPoints(pts ...Vec2) AABB {
	b := Invalid()
	for _, p := range pts {
		b = b.MergedPoint(p)
	}
	return b
}

// IsValid reports whether the box has non-negative extents and finite corners.
func (b AABB) IsValid() bool {
	return b.Mins.IsFinite() && b.Maxs.IsFinite() && b.Mins.X <= b.Maxs.X && b.Mins.Y <= b.Maxs.Y
}

// Extents returns width and height.
func (b AABB) Extents() Vec2 { return b.Maxs.Sub(b.Mins) }

// Center returns the midpoint.
func (b AABB) Center() Vec2 { return b.Mins.Add(b.Maxs).Scale(0.5) }

// Intersects reports whether the two boxes overlap or touch. Invalid boxes
// intersect nothing.
func (b AABB) Intersects(o AABB) bool {
	if !b.IsValid() || !o.IsValid() {
		return false
	}
	return b.Mins.X <= o.Maxs.X && o.Mins.X <= b.Maxs.X &&
		b.Mins.Y <= o.Maxs.Y && o.Mins.Y <= b.Maxs.Y
}

// Contains reports whether o lies completely inside b.
func (b AABB) Contains(o AABB) bool {
	if !b.IsValid() || !o.IsValid() {
		return false
	}
	return b.Mins.X <= o.Mins.X && b.Mins.Y <= o.Mins.Y &&
		o.Maxs.X <= b.Maxs.X && o.Maxs.Y <= b.Maxs.Y
}

// ContainsPoint reports whether p lies inside b, borders included.
func (b AABB) ContainsPoint(p Vec2) bool {
	return b.IsValid() && p.X >= b.Mins.X && p.X <= b.Maxs.X && p.Y >= b.Mins.Y && p.Y <= b.Maxs.Y
}

// Merged returns the smallest box containing both boxes. Invalid inputs are
// ignored.
func (b AABB) Merged(o AABB) AABB {
	if !o.IsValid() {
		return b
	}
	if !b.IsValid() {
		return o
	}
	return AABB{Mins: b.Mins.Min(o.Mins), Maxs: b.Maxs.Max(o.Maxs)}
}

// MergedPoint extends b to contain p.
func (b AABB) MergedPoint(p Vec2) AABB {
	if !b.IsValid() {
		return AABB{Mins: p, Maxs: p}
	}
	return AABB{Mins: b.Mins.Min(p), Maxs: b.Maxs.Max(p)}
}

// Intersection returns the overlapping part of both boxes, or Invalid.
func (b AABB) Intersection(o AABB) AABB {
	if !b.Intersects(o) {
		return Invalid()
	}
	return AABB{Mins: b.Mins.Max(o.Mins), Maxs: b.Maxs.Min(o.Maxs)}
}

// Translated returns b moved by offset.
func (b AABB) Translated(offset Vec2) AABB {
	if !b.IsValid() {
		return b
	}
	return AABB{Mins: b.Mins.Add(offset), Maxs: b.Maxs.Add(offset)}
}

// Loosened grows b by amount on every side.
func (b AABB) Loosened(amount float64) AABB {
	if !b.IsValid() {
		return b
	}
	d := Vec2{amount, amount}
	return AABB{Mins: b.Mins.Sub(d), Maxs: b.Maxs.Add(d)}
}

// Ceiled rounds the corners outward to whole units.
func (b AABB) Ceiled() AABB {
	if !b.IsValid() {
		return b
	}
	return AABB{
		Mins: Vec2{math.Floor(b.Mins.X), math.Floor(b.Mins.Y)},
		Maxs: Vec2{math.Ceil(b.Maxs.X), math.Ceil(b.Maxs.Y)},
	}
}

// cellRange returns the half-open index range of the origin-aligned cells
// overlapping b. A degenerate axis still covers one cell.
func (b AABB) cellRange(cell Vec2) (x0, y0, x1, y1 float64) {
	x0 = math.Floor(b.Mins.X / cell.X)
	y0 = math.Floor(b.Mins.Y / cell.Y)
	x1 = math.Ceil(b.Maxs.X / cell.X)
	y1 = math.Ceil(b.Maxs.Y / cell.Y)
	if x1 == x0 {
		x1++
	}
	if y1 == y0 {
		y1++
	}
	return x0, y0, x1, y1
}

// SplitOriginAligned splits the plane into cells of the given size aligned to
// the origin and returns the cells that overlap b, row by row.
func (b AABB) SplitOriginAligned(cell Vec2) []AABB {
	if !b.IsValid() || cell.X <= 0 || cell.Y <= 0 {
		return nil
	}
	x0, y0, x1, y1 := b.cellRange(cell)
	var out []AABB
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			out = append(out, Rect(x*cell.X, y*cell.Y, cell.X, cell.Y))
		}
	}
	return out
}

// CoverOriginAligned returns the union of the cells SplitOriginAligned
// yields for b, without enumerating them.
func (b AABB) CoverOriginAligned(cell Vec2) AABB {
	if !b.IsValid() || cell.X <= 0 || cell.Y <= 0 {
		return Invalid()
	}
	x0, y0, x1, y1 := b.cellRange(cell)
	return AABB{
		Mins: Vec2{x0 * cell.X, y0 * cell.Y},
		Maxs: Vec2{x1 * cell.X, y1 * cell.Y},
	}
}

// MarshalJSON writes invalid boxes as null. Their infinite corners have no
// JSON form.
func (b AABB) MarshalJSON() ([]byte, error) {
	if !b.IsValid() {
		return []byte("null"), nil
	}
	return json.Marshal(aabbJSON(b))
}

// UnmarshalJSON reads null as Invalid.
func (b *AABB) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = Invalid()
		return nil
	}
	var v aabbJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*b = AABB(v)
	return nil
}

// aabbJSON has the fields of AABB without its methods.
type aabbJSON struct {
	Mins Vec2 `json:"mins"`
	Maxs Vec2 `json:"maxs"`
}

func (b AABB) String() string {
	if !b.IsValid() {
		return "[invalid]"
	}
	return fmt.Sprintf("[%v - %v]", b.Mins, b.Maxs)
}

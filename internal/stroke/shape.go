package stroke

import (
	"fmt"

	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/render"
)

// ShapeKind selects the geometry of a ShapeStroke.
type ShapeKind string

const (
	ShapeLine      ShapeKind = "line"
	ShapeRectangle ShapeKind = "rectangle"
	ShapeEllipse   ShapeKind = "ellipse"
)

// ShapeStyle is the outline and fill of a shape.
type ShapeStyle struct {
	StrokeWidth float64 `json:"stroke_width"`
	StrokeColor Color   `json:"stroke_color"`
	FillColor   Color   `json:"fill_color"`
}

// ShapeStroke is a line, rectangle or ellipse spanned by two corner points.
type ShapeStroke struct {
	Shape ShapeKind  `json:"shape"`
	Start geom.Vec2  `json:"start"`
	End   geom.Vec2  `json:"end"`
	Style ShapeStyle `json:"style"`
}

// NewShapeStroke creates a shape spanning start and end.
func NewShapeStroke(shape ShapeKind, start, end geom.Vec2, style ShapeStyle) *ShapeStroke {
	return &ShapeStroke{Shape: shape, Start: start, End: end, Style: style}
}

func (s *ShapeStroke) Kind() Kind { return KindShape }

func (s *ShapeStroke) Bounds() geom.AABB {
	return geom.NewAABB(s.Start, s.End).Loosened(s.Style.StrokeWidth / 2)
}

func (s *ShapeStroke) Translate(offset geom.Vec2) {
	s.Start = s.Start.Add(offset)
	s.End = s.End.Add(offset)
}

func (s *ShapeStroke) Draw(c *render.Canvas) error {
	stroke := s.Style.StrokeColor.RGBA()
	fill := s.Style.FillColor.RGBA()
	width := []float64{s.Style.StrokeWidth}
	box := geom.NewAABB(s.Start, s.End)

	switch s.Shape {
	case ShapeLine:
		c.StrokePolyline([]geom.Vec2{s.Start, s.End}, width, stroke, false)
	case ShapeRectangle:
		corners := []geom.Vec2{
			box.Mins, geom.V(box.Maxs.X, box.Mins.Y), box.Maxs, geom.V(box.Mins.X, box.Maxs.Y),
		}
		c.FillPolygon(corners, fill)
		if s.Style.StrokeWidth > 0 {
			c.StrokePolyline(corners, width, stroke, true)
		}
	case ShapeEllipse:
		radii := box.Extents().Scale(0.5)
		c.FillEllipse(box.Center(), radii, fill)
		if s.Style.StrokeWidth > 0 {
			c.StrokeEllipse(box.Center(), radii, s.Style.StrokeWidth, stroke)
		}
	default:
		return fmt.Errorf("unknown shape %q", s.Shape)
	}
	return nil
}

func (s *ShapeStroke) Clone() Stroke {
	cp := *s
	return &cp
}

func (s *ShapeStroke) sealed() {}

package export

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/stroke"
)

func writeSVG(ctx context.Context, w io.Writer, sc scene) error {
	bw := bufio.NewWriter(w)
	ext := sc.area.Extents()
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" version="1.1" width="%s" height="%s" viewBox="%s %s %s %s">`+"\n",
		num(ext.X), num(ext.Y), num(sc.area.Mins.X), num(sc.area.Mins.Y), num(ext.X), num(ext.Y))

	if sc.background != nil {
		fmt.Fprintf(bw, `  <rect x="%s" y="%s" width="%s" height="%s"%s/>`+"\n",
			num(sc.area.Mins.X), num(sc.area.Mins.Y), num(ext.X), num(ext.Y), paint("fill", *sc.background))
	}
	for _, st := range sc.strokes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := svgElement(bw, st); err != nil {
			return &Error{Code: ErrCodeRender, Err: err}
		}
	}
	bw.WriteString("</svg>\n")
	return bw.Flush()
}

func svgElement(w *bufio.Writer, st stroke.Stroke) error {
	switch s := st.(type) {
	case *stroke.BrushStroke:
		svgBrush(w, s)
	case *stroke.ShapeStroke:
		return svgShape(w, s)
	case *stroke.TextStroke:
		svgText(w, s)
	case *stroke.BitmapImage:
		r := s.Rect
		ext := r.Extents()
		fmt.Fprintf(w, `  <image x="%s" y="%s" width="%s" height="%s" preserveAspectRatio="none" href="data:image/png;base64,%s"/>`+"\n",
			num(r.Mins.X), num(r.Mins.Y), num(ext.X), num(ext.Y), base64.StdEncoding.EncodeToString(s.PNG))
	default:
		return fmt.Errorf("svg: unsupported stroke kind %s", st.Kind())
	}
	return nil
}

func svgBrush(w *bufio.Writer, b *stroke.BrushStroke) {
	widths := b.Widths()
	switch len(b.Path) {
	case 0:
		return
	case 1:
		p := b.Path[0].Pos
		fmt.Fprintf(w, `  <circle cx="%s" cy="%s" r="%s"%s/>`+"\n",
			num(p.X), num(p.Y), num(widths[0]/2), paint("fill", b.Style.Color))
		return
	}
	if slices.Min(widths) != slices.Max(widths) {
		svgTaperedBrush(w, b, widths)
		return
	}
	var d strings.Builder
	for i, el := range b.Path {
		if i == 0 {
			d.WriteString("M")
		} else {
			d.WriteString(" L")
		}
		d.WriteString(num(el.Pos.X) + " " + num(el.Pos.Y))
	}
	fmt.Fprintf(w, `  <path d="%s" fill="none"%s stroke-width="%s" stroke-linecap="round" stroke-linejoin="round"/>`+"\n",
		d.String(), paint("stroke", b.Style.Color), num(widths[0]))
}

// svgTaperedBrush writes a brush with varying pressure as one filled path
// holding the same outline the rasterizer fills: a disc at every element
// and a quad per segment. All subpaths wind the same way so the nonzero
// rule paints their union once.
func svgTaperedBrush(w *bufio.Writer, b *stroke.BrushStroke, widths []float64) {
	var d strings.Builder
	for i, el := range b.Path {
		p, r := el.Pos, widths[i]/2
		fmt.Fprintf(&d, "M%s %s A%s %s 0 1 1 %s %s A%s %s 0 1 1 %s %s Z ",
			num(p.X+r), num(p.Y), num(r), num(r), num(p.X-r), num(p.Y), num(r), num(r), num(p.X+r), num(p.Y))
	}
	for i := 1; i < len(b.Path); i++ {
		a, c := b.Path[i-1].Pos, b.Path[i].Pos
		dir := c.Sub(a).Normalized()
		if dir == (geom.Vec2{}) {
			continue
		}
		na := dir.Perp().Scale(widths[i-1] / 2)
		nc := dir.Perp().Scale(widths[i] / 2)
		quad := []geom.Vec2{a.Add(na), c.Add(nc), c.Sub(nc), a.Sub(na)}
		if signedArea(quad) < 0 {
			slices.Reverse(quad)
		}
		for j, q := range quad {
			if j == 0 {
				d.WriteString("M")
			} else {
				d.WriteString(" L")
			}
			d.WriteString(num(q.X) + " " + num(q.Y))
		}
		d.WriteString(" Z ")
	}
	fmt.Fprintf(w, `  <path d="%s"%s fill-rule="nonzero"/>`+"\n",
		strings.TrimSpace(d.String()), paint("fill", b.Style.Color))
}

// signedArea is positive when pts turn from +x towards +y, the direction
// SVG arcs take with the sweep flag set.
func signedArea(pts []geom.Vec2) float64 {
	var a float64
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}

func svgShape(w *bufio.Writer, s *stroke.ShapeStroke) error {
	outline := paint("stroke", s.Style.StrokeColor) + ` stroke-width="` + num(s.Style.StrokeWidth) + `"`
	if s.Style.StrokeWidth <= 0 {
		outline = ` stroke="none"`
	}
	box := geom.NewAABB(s.Start, s.End)
	ext := box.Extents()

	switch s.Shape {
	case stroke.ShapeLine:
		fmt.Fprintf(w, `  <line x1="%s" y1="%s" x2="%s" y2="%s"%s stroke-linecap="round"/>`+"\n",
			num(s.Start.X), num(s.Start.Y), num(s.End.X), num(s.End.Y), outline)
	case stroke.ShapeRectangle:
		fmt.Fprintf(w, `  <rect x="%s" y="%s" width="%s" height="%s"%s%s/>`+"\n",
			num(box.Mins.X), num(box.Mins.Y), num(ext.X), num(ext.Y), paint("fill", s.Style.FillColor), outline)
	case stroke.ShapeEllipse:
		c := box.Center()
		fmt.Fprintf(w, `  <ellipse cx="%s" cy="%s" rx="%s" ry="%s"%s%s/>`+"\n",
			num(c.X), num(c.Y), num(ext.X/2), num(ext.Y/2), paint("fill", s.Style.FillColor), outline)
	default:
		return fmt.Errorf("svg: unknown shape %q", s.Shape)
	}
	return nil
}

// svgText writes one text element per line, matching the line layout of
// the raster renderer.
func svgText(w *bufio.Writer, t *stroke.TextStroke) {
	for i, line := range strings.Split(t.Text, "\n") {
		if line == "" {
			continue
		}
		y := t.Pos.Y + float64(i)*t.FontSize
		fmt.Fprintf(w, `  <text x="%s" y="%s" font-family="monospace" font-size="%s" dominant-baseline="hanging"%s>`,
			num(t.Pos.X), num(y), num(t.FontSize), paint("fill", t.Color))
		xml.EscapeText(w, []byte(line))
		w.WriteString("</text>\n")
	}
}

// paint renders a color attribute, with a separate opacity when the color
// is translucent.
func paint(attr string, c stroke.Color) string {
	if c.A == 0 {
		return fmt.Sprintf(` %s="none"`, attr)
	}
	s := fmt.Sprintf(` %s="%s"`, attr, c.Hex())
	if c.A < 255 {
		s += fmt.Sprintf(` %s-opacity="%s"`, attr, num(c.Opacity()))
	}
	return s
}

// num formats a coordinate with at most three decimals.
func num(v float64) string {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		r = 0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

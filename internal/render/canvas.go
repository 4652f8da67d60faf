package render

import (
	"image"
	"image/color"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/roach88/inkwell/internal/geom"
)

// MaxImageDimension caps the pixel size of a single canvas on either axis.
// When bounds * scale exceeds it the effective scale is reduced.
const MaxImageDimension = 8192

// Glyph metrics of basicfont.Face7x13 at its native size.
const (
	glyphAdvance = 7
	glyphHeight  = 13
)

// circleSegments is the number of polygon edges used for round caps, joins
// and ellipses.
const circleSegments = 24

// Canvas is an RGBA pixel buffer covering a document-space area.
type Canvas struct {
	img    *image.RGBA
	bounds geom.AABB
	scale  float64
}

// NewCanvas allocates a transparent canvas for bounds at the given image
// scale. Invalid bounds yield a 1x1 canvas.
func NewCanvas(bounds geom.AABB, scale float64) *Canvas {
	if scale <= 0 {
		scale = 1
	}
	if !bounds.IsValid() {
		bounds = geom.Rect(0, 0, 1/scale, 1/scale)
	}
	ext := bounds.Extents()
	if m := math.Max(ext.X, ext.Y) * scale; m > MaxImageDimension {
		scale *= MaxImageDimension / m
	}
	w := max(1, int(math.Ceil(ext.X*scale)))
	h := max(1, int(math.Ceil(ext.Y*scale)))
	return &Canvas{
		img:    image.NewRGBA(image.Rect(0, 0, w, h)),
		bounds: bounds,
		scale:  scale,
	}
}

// Bounds returns the document-space area of the canvas.
func (c *Canvas) Bounds() geom.AABB { return c.bounds }

// Scale returns the effective image scale.
func (c *Canvas) Scale() float64 { return c.scale }

// RGBA returns the pixel buffer.
func (c *Canvas) RGBA() *image.RGBA { return c.img }

// Image hands the canvas out as a render Image. The canvas must not be drawn
// on afterwards.
func (c *Canvas) Image() Image {
	return Image{Bounds: c.bounds, Pixels: c.img}
}

// Fill paints the whole canvas with col.
func (c *Canvas) Fill(col color.RGBA) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

func (c *Canvas) toPixel(p geom.Vec2) (float32, float32) {
	q := p.Sub(c.bounds.Mins).Scale(c.scale)
	return float32(q.X), float32(q.Y)
}

func (c *Canvas) pixelRect(b geom.AABB) image.Rectangle {
	x0, y0 := c.toPixel(b.Mins)
	x1, y1 := c.toPixel(b.Maxs)
	return image.Rect(
		int(math.Floor(float64(x0))), int(math.Floor(float64(y0))),
		int(math.Ceil(float64(x1))), int(math.Ceil(float64(y1))),
	)
}

func (c *Canvas) newRasterizer() *vector.Rasterizer {
	r := c.img.Bounds()
	return vector.NewRasterizer(r.Dx(), r.Dy())
}

func (c *Canvas) paint(z *vector.Rasterizer, col color.RGBA) {
	z.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

// addPolygon appends a closed polygon with a positive winding. The
// rasterizer accumulates signed coverage, so overlapping pieces of one
// outline must all wind the same way or they cancel out.
func (c *Canvas) addPolygon(z *vector.Rasterizer, pts []geom.Vec2) {
	if len(pts) < 3 {
		return
	}
	if signedArea(pts) < 0 {
		rev := make([]geom.Vec2, len(pts))
		for i, p := range pts {
			rev[len(pts)-1-i] = p
		}
		pts = rev
	}
	x, y := c.toPixel(pts[0])
	z.MoveTo(x, y)
	for _, p := range pts[1:] {
		x, y = c.toPixel(p)
		z.LineTo(x, y)
	}
	z.ClosePath()
}

func signedArea(pts []geom.Vec2) float64 {
	var a float64
	for i := range pts {
		p, q := pts[i], pts[(i+1)%len(pts)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}

// FillPolygon fills a closed polygon.
func (c *Canvas) FillPolygon(pts []geom.Vec2, col color.RGBA) {
	if len(pts) < 3 || col.A == 0 {
		return
	}
	z := c.newRasterizer()
	c.addPolygon(z, pts)
	c.paint(z, col)
}

// StrokePolyline strokes the polyline through pts with round joins and caps.
// widths holds one width per point; a shorter slice repeats its last value.
func (c *Canvas) StrokePolyline(pts []geom.Vec2, widths []float64, col color.RGBA, closed bool) {
	if len(pts) == 0 || len(widths) == 0 || col.A == 0 {
		return
	}
	widthAt := func(i int) float64 {
		if i < len(widths) {
			return widths[i]
		}
		return widths[len(widths)-1]
	}

	z := c.newRasterizer()
	for i, p := range pts {
		c.addPolygon(z, circle(p, widthAt(i)/2))
	}
	n := len(pts)
	segments := n - 1
	if closed && n > 2 {
		segments = n
	}
	for i := 0; i < segments; i++ {
		j := (i + 1) % n
		a, b := pts[i], pts[j]
		dir := b.Sub(a).Normalized()
		if dir == (geom.Vec2{}) {
			continue
		}
		na := dir.Perp().Scale(widthAt(i) / 2)
		nb := dir.Perp().Scale(widthAt(j) / 2)
		c.addPolygon(z, []geom.Vec2{a.Add(na), b.Add(nb), b.Sub(nb), a.Sub(na)})
	}
	c.paint(z, col)
}

// FillEllipse fills the axis-aligned ellipse with the given center and radii.
func (c *Canvas) FillEllipse(center, radii geom.Vec2, col color.RGBA) {
	c.FillPolygon(ellipse(center, radii), col)
}

// StrokeEllipse strokes the outline of an axis-aligned ellipse.
func (c *Canvas) StrokeEllipse(center, radii geom.Vec2, width float64, col color.RGBA) {
	c.StrokePolyline(ellipse(center, radii), []float64{width}, col, true)
}

func circle(center geom.Vec2, r float64) []geom.Vec2 {
	return ellipse(center, geom.V(r, r))
}

func ellipse(center, radii geom.Vec2) []geom.Vec2 {
	pts := make([]geom.Vec2, circleSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSegments
		pts[i] = geom.V(center.X+radii.X*math.Cos(a), center.Y+radii.Y*math.Sin(a))
	}
	return pts
}

// TextExtents returns the document-space size of text drawn at the given
// font size. Lines are split on '\n'.
func TextExtents(text string, size float64) geom.Vec2 {
	if text == "" || size <= 0 {
		return geom.Vec2{}
	}
	lines := strings.Split(text, "\n")
	widest := 0
	for _, l := range lines {
		widest = max(widest, utf8.RuneCountInString(l))
	}
	k := size / glyphHeight
	return geom.V(float64(widest*glyphAdvance)*k, float64(len(lines))*size)
}

// DrawText draws text with its top-left corner at pos.
func (c *Canvas) DrawText(pos geom.Vec2, text string, size float64, col color.RGBA) {
	if text == "" || size <= 0 || col.A == 0 {
		return
	}
	k := size / glyphHeight
	for i, line := range strings.Split(text, "\n") {
		n := utf8.RuneCountInString(line)
		if n == 0 {
			continue
		}
		glyphs := image.NewRGBA(image.Rect(0, 0, n*glyphAdvance, glyphHeight))
		d := &font.Drawer{
			Dst:  glyphs,
			Src:  image.NewUniform(col),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(0, basicfont.Face7x13.Ascent),
		}
		d.DrawString(line)

		origin := pos.Add(geom.V(0, float64(i)*size))
		dst := geom.Rect(origin.X, origin.Y, float64(n*glyphAdvance)*k, size)
		draw.ApproxBiLinear.Scale(c.img, c.pixelRect(dst), glyphs, glyphs.Bounds(), draw.Over, nil)
	}
}

// DrawImage resamples src into the document-space rectangle dst.
func (c *Canvas) DrawImage(dst geom.AABB, src image.Image) {
	if src == nil || !dst.Intersects(c.bounds) {
		return
	}
	draw.ApproxBiLinear.Scale(c.img, c.pixelRect(dst), src, src.Bounds(), draw.Over, nil)
}

// DrawRenderImage composites a cached render image at its bounds.
func (c *Canvas) DrawRenderImage(img Image) {
	if img.Pixels == nil {
		return
	}
	c.DrawImage(img.Bounds, img.Pixels)
}

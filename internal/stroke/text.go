package stroke

import (
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/render"
)

// DefaultFontSize is used when a text stroke is created with size <= 0.
const DefaultFontSize = 16

// TextStroke is a block of text anchored at its top-left corner.
//
// Text is stored NFC-normalized so equal-looking strings compare, measure
// and persist identically.
type TextStroke struct {
	Pos      geom.Vec2 `json:"pos"`
	Text     string    `json:"text"`
	FontSize float64   `json:"font_size"`
	Color    Color     `json:"color"`
}

// NewTextStroke creates a text stroke.
func NewTextStroke(pos geom.Vec2, text string, size float64, col Color) *TextStroke {
	if size <= 0 {
		size = DefaultFontSize
	}
	return &TextStroke{Pos: pos, Text: norm.NFC.String(text), FontSize: size, Color: col}
}

// SetText replaces the text.
func (t *TextStroke) SetText(text string) { t.Text = norm.NFC.String(text) }

func (t *TextStroke) Kind() Kind { return KindText }

func (t *TextStroke) Bounds() geom.AABB {
	if t.Text == "" {
		return geom.Invalid()
	}
	ext := render.TextExtents(t.Text, t.FontSize)
	return geom.Rect(t.Pos.X, t.Pos.Y, ext.X, ext.Y)
}

func (t *TextStroke) Translate(offset geom.Vec2) { t.Pos = t.Pos.Add(offset) }

func (t *TextStroke) Draw(c *render.Canvas) error {
	c.DrawText(t.Pos, t.Text, t.FontSize, t.Color.RGBA())
	return nil
}

func (t *TextStroke) Clone() Stroke {
	cp := *t
	return &cp
}

func (t *TextStroke) sealed() {}

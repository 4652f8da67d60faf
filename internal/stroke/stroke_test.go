package stroke

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/inkwell/internal/geom"
)

var thin = BrushStyle{Width: 2, Color: Black}

func TestBrushStroke_BoundsIncludeWidth(t *testing.T) {
	b := NewBrushStroke(thin, geom.V(0, 0), geom.V(10, 5))
	assert.Equal(t, geom.NewAABB(geom.V(-1, -1), geom.V(11, 6)), b.Bounds())

	empty := NewBrushStroke(thin)
	assert.False(t, empty.Bounds().IsValid())
}

func TestBrushStroke_CloneIsIndependent(t *testing.T) {
	b := NewBrushStroke(thin, geom.V(0, 0), geom.V(10, 0))
	c := b.Clone().(*BrushStroke)

	c.Translate(geom.V(5, 5))
	c.Append(Element{Pos: geom.V(1, 1), Pressure: 1})

	assert.Equal(t, geom.V(0, 0), b.Path[0].Pos)
	assert.Len(t, b.Path, 2)
	assert.Len(t, c.Path, 3)
}

func TestShapeStroke_TranslateMovesBounds(t *testing.T) {
	s := NewShapeStroke(ShapeRectangle, geom.V(10, 10), geom.V(0, 0), ShapeStyle{StrokeWidth: 2})
	before := s.Bounds()
	s.Translate(geom.V(3, 4))
	assert.Equal(t, before.Translated(geom.V(3, 4)), s.Bounds())
}

func TestShapeStroke_UnknownShapeFailsToDraw(t *testing.T) {
	s := NewShapeStroke("hexagon", geom.V(0, 0), geom.V(4, 4), ShapeStyle{StrokeWidth: 1, StrokeColor: Black})
	_, err := GenerateImages(s, geom.Invalid(), 1)
	assert.Error(t, err)
}

func TestTextStroke_NormalizesNFC(t *testing.T) {
	// "e" + combining acute accent composes to U+00E9.
	ts := NewTextStroke(geom.V(0, 0), "cafe\u0301", 13, Black)
	assert.Equal(t, "caf\u00e9", ts.Text)
	assert.Equal(t, geom.Rect(0, 0, 28, 13), ts.Bounds())

	ts.SetText("")
	assert.False(t, ts.Bounds().IsValid())
}

func TestBitmapImage_RoundTripsThroughEnvelope(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.SetRGBA(1, 1, color.RGBA{G: 255, A: 255})
	b, err := NewBitmapImageFromImage(src, geom.Invalid())
	require.NoError(t, err)
	assert.Equal(t, geom.Rect(0, 0, 3, 2), b.Bounds())

	env, err := Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, KindImage, env.Kind)

	got, err := Unmarshal(env)
	require.NoError(t, err)
	img := got.(*BitmapImage)
	require.NotNil(t, img.Pixels())
	assert.Equal(t, src.Bounds(), img.Pixels().Bounds())
}

func TestUnmarshal_Errors(t *testing.T) {
	_, err := Unmarshal(Envelope{Kind: "sprite", Data: []byte(`{}`)})
	assert.ErrorContains(t, err, "unknown kind")

	_, err = Unmarshal(Envelope{Kind: KindBrush, Data: []byte(`{"path": 3}`)})
	assert.Error(t, err)

	_, err = Unmarshal(Envelope{Kind: KindImage, Data: []byte(`{"rect": {}}`)})
	assert.ErrorContains(t, err, "empty png")
}

func TestUnmarshal_TextIsNormalized(t *testing.T) {
	got, err := Unmarshal(Envelope{Kind: KindText, Data: []byte(`{"text": "e\u0301", "font_size": 13}`)})
	require.NoError(t, err)
	assert.Equal(t, "\u00e9", got.(*TextStroke).Text)
}

func TestGenerateImages_FullWhenInsideViewport(t *testing.T) {
	b := NewBrushStroke(thin, geom.V(10, 10), geom.V(20, 20))
	imgs, err := GenerateImages(b, geom.Rect(0, 0, 100, 100), 2)
	require.NoError(t, err)

	assert.False(t, imgs.Partial)
	require.Equal(t, 1, imgs.Len())
	assert.Equal(t, b.Bounds(), imgs.Images[0].Bounds)
}

func TestGenerateImages_PartialForHugeStroke(t *testing.T) {
	b := NewBrushStroke(thin, geom.V(0, 0), geom.V(10000, 0))
	viewport := geom.Rect(0, -50, 100, 100)

	imgs, err := GenerateImages(b, viewport, 1)
	require.NoError(t, err)

	assert.True(t, imgs.Partial)
	require.Equal(t, 1, imgs.Len())
	assert.True(t, viewport.Loosened(50).Contains(imgs.Images[0].Bounds))
}

func TestGenerateImages_EmptyStroke(t *testing.T) {
	imgs, err := GenerateImages(NewBrushStroke(thin), geom.Invalid(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, imgs.Len())
}

func TestSoftwareRasterizer_HonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := SoftwareRasterizer{}.GenerateImages(ctx, NewBrushStroke(thin, geom.V(0, 0)), geom.Invalid(), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestColor_RGBAIsPremultiplied(t *testing.T) {
	c := Color{R: 255, G: 128, B: 0, A: 128}
	assert.Equal(t, color.RGBA{R: 128, G: 64, B: 0, A: 128}, c.RGBA())
	assert.Equal(t, "#ff8000", c.Hex())
}

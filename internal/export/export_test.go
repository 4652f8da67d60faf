package export

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/inkwell/internal/document"
	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/store"
	"github.com/roach88/inkwell/internal/stroke"
)

type fixture struct {
	doc   *document.Document
	store *store.Store
	rect  store.Key
	text  store.Key
	brush store.Key
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := store.New(store.WithWorkers(1))
	t.Cleanup(s.Close)

	f := &fixture{
		doc:   document.New("d", document.Format{Width: 100, Height: 50, DPI: 96}, document.LayoutFixed),
		store: s,
	}
	f.rect = s.InsertStroke(stroke.NewShapeStroke(stroke.ShapeRectangle, geom.V(10, 10), geom.V(30, 20),
		stroke.ShapeStyle{StrokeWidth: 2, StrokeColor: stroke.Black}))
	f.text = s.InsertStroke(stroke.NewTextStroke(geom.V(40, 5), "a<b", 10, stroke.Black))
	f.brush = s.InsertStroke(stroke.NewBrushStroke(stroke.BrushStyle{Width: 3, Color: stroke.Color{R: 255, A: 128}},
		geom.V(60, 10), geom.V(80, 30)))

	gone := s.InsertStroke(stroke.NewBrushStroke(stroke.BrushStyle{Width: 2, Color: stroke.Black}, geom.V(5, 45)))
	s.SetTrashed(gone, true)
	return f
}

func TestDocSVG_Golden(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	require.NoError(t, DocSVG(context.Background(), &buf, f.doc, f.store.TakeSnapshot(), DefaultOptions()))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "doc_svg", buf.Bytes())
}

func TestSelectionSVG_CropsToSelection(t *testing.T) {
	f := newFixture(t)
	f.store.SetSelected(f.rect, true)

	var buf bytes.Buffer
	opts := Options{Margin: 5}
	require.NoError(t, SelectionSVG(context.Background(), &buf, f.doc, f.store.TakeSnapshot(), opts))

	out := buf.String()
	// Rect bounds (9,9)-(31,21) padded by 5.
	assert.Contains(t, out, `viewBox="4 4 32 22"`)
	assert.Contains(t, out, `<rect x="10" y="10"`)
	assert.NotContains(t, out, "<text")
	assert.NotContains(t, out, `fill="#ffffff"`, "background disabled")
}

func TestSelectionSVG_Empty(t *testing.T) {
	f := newFixture(t)
	err := SelectionSVG(context.Background(), &bytes.Buffer{}, f.doc, f.store.TakeSnapshot(), DefaultOptions())
	assert.True(t, IsEmptySelection(err))
}

func TestSelectionSVG_TrashedSelectionIsEmpty(t *testing.T) {
	f := newFixture(t)
	f.store.SetSelected(f.rect, true)
	f.store.SetTrashed(f.rect, true)

	err := SelectionSVG(context.Background(), &bytes.Buffer{}, f.doc, f.store.TakeSnapshot(), DefaultOptions())
	assert.True(t, IsEmptySelection(err))
}

func TestViewportSVG_OnlyVisibleStrokes(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	viewport := geom.Rect(55, 0, 45, 50)
	require.NoError(t, ViewportSVG(context.Background(), &buf, f.doc, f.store.TakeSnapshot(), viewport, Options{}))

	out := buf.String()
	assert.Contains(t, out, `viewBox="55 0 45 50"`)
	assert.Contains(t, out, "<path")
	assert.NotContains(t, out, "<text")
	assert.NotContains(t, out, `<rect x="10"`)
}

func TestSVG_PressureTapersBrush(t *testing.T) {
	f := newFixture(t)
	f.store.InsertStroke(&stroke.BrushStroke{
		Style: stroke.BrushStyle{Width: 4, Color: stroke.Black},
		Path:  []stroke.Element{{Pos: geom.V(10, 10), Pressure: 1}, {Pos: geom.V(30, 10), Pressure: 0.5}},
	})

	var buf bytes.Buffer
	require.NoError(t, ViewportSVG(context.Background(), &buf, f.doc, f.store.TakeSnapshot(), geom.Rect(0, 0, 40, 20), Options{}))
	assert.Contains(t, buf.String(), `<path d="M12 10 A2 2 0 1 1 8 10 A2 2 0 1 1 12 10 Z M31 10 A1 1 0 1 1 29 10 A1 1 0 1 1 31 10 Z M10 8 L30 9 L30 11 L10 12 Z" fill="#000000" fill-rule="nonzero"/>`)
}

func TestViewportSVG_InvalidViewport(t *testing.T) {
	f := newFixture(t)
	err := ViewportSVG(context.Background(), &bytes.Buffer{}, f.doc, f.store.TakeSnapshot(), geom.Invalid(), Options{})
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeRender, ee.Code)
	assert.Equal(t, "export viewport", ee.Op)
}

func TestDocPNG_SizeAndContent(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	require.NoError(t, DocPNG(context.Background(), &buf, f.doc, f.store.TakeSnapshot(), DefaultOptions()))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 150, img.Bounds().Dx())
	assert.Equal(t, 75, img.Bounds().Dy())

	r, g, b, a := img.At(1, 1).RGBA()
	assert.Equal(t, [4]uint32{0xffff, 0xffff, 0xffff, 0xffff}, [4]uint32{r, g, b, a}, "background")

	// Left edge of the rectangle outline at document (10, 15).
	r, _, _, _ = img.At(15, 22).RGBA()
	assert.Less(t, r, uint32(0x8000))
}

func TestSelectionPNG_Size(t *testing.T) {
	f := newFixture(t)
	f.store.SetSelected(f.rect, true)

	var buf bytes.Buffer
	require.NoError(t, SelectionPNG(context.Background(), &buf, f.doc, f.store.TakeSnapshot(), Options{Scale: 1.5, Margin: 5}))

	cfg, err := png.DecodeConfig(&buf)
	require.NoError(t, err)
	assert.Equal(t, 48, cfg.Width)
	assert.Equal(t, 33, cfg.Height)
}

func TestWrite_NilOptionsUseDefaults(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), &buf, f.doc, f.store.TakeSnapshot(), Request{Target: TargetDocument, Format: FormatSVG}))
	assert.Contains(t, buf.String(), `fill="#ffffff"`)

	buf.Reset()
	req := Request{Target: TargetDocument, Format: FormatSVG, Options: &Options{Background: false}}
	require.NoError(t, Write(context.Background(), &buf, f.doc, f.store.TakeSnapshot(), req))
	assert.NotContains(t, buf.String(), `fill="#ffffff"`)
}

func TestWrite_Canceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := DocSVG(ctx, &bytes.Buffer{}, f.doc, f.store.TakeSnapshot(), DefaultOptions())
	require.ErrorIs(t, err, context.Canceled)
}

func TestWriteFile(t *testing.T) {
	f := newFixture(t)
	snap := f.store.TakeSnapshot()
	dir := t.TempDir()
	ctx := context.Background()

	svgPath := filepath.Join(dir, "out.svg")
	require.NoError(t, WriteFile(ctx, svgPath, f.doc, snap, Request{Target: TargetDocument}))
	data, err := os.ReadFile(svgPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("<svg")))

	pngPath := filepath.Join(dir, "out.png")
	require.NoError(t, WriteFile(ctx, pngPath, f.doc, snap, Request{Target: TargetDocument, Options: &Options{Scale: 1.5, Background: true}}))
	_, err = os.Stat(pngPath)
	require.NoError(t, err)

	failed := filepath.Join(dir, "sel.svg")
	err = WriteFile(ctx, failed, f.doc, snap, Request{Target: TargetSelection})
	assert.True(t, IsEmptySelection(err))
	assert.ErrorContains(t, err, failed)
	_, err = os.Stat(failed)
	assert.True(t, os.IsNotExist(err))

	_, err = FormatForPath("out.pdf")
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeUnsupported, ee.Code)
}

func TestNum(t *testing.T) {
	assert.Equal(t, "0", num(-0.0001))
	assert.Equal(t, "1.5", num(1.5))
	assert.Equal(t, "0.333", num(1.0/3))
	assert.Equal(t, "-12", num(-12))
}

package cli

import (
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/stroke"
)

// NewOptions holds flags for the new command.
type NewOptions struct {
	*RootOptions
	Strokes int
	Seed    uint64
}

// NewResult is the output of the new command.
type NewResult struct {
	Path       string  `json:"path"`
	DocumentID string  `json:"document_id"`
	Strokes    int     `json:"strokes"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

func (r NewResult) Text(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Created %s (%d strokes, %gx%g)\n", r.Path, r.Strokes, r.Width, r.Height)
	return err
}

// NewNewCommand creates the new command.
func NewNewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "new <path>",
		Short: "Create a document",
		Long: `Create a document, optionally filled with generated strokes.

The file format follows the extension.

Example:
  inkwell new notes.inkw
  inkwell new sample.inkdb --strokes 200 --seed 7`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNew(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Strokes, "strokes", "n", 0, "number of generated strokes")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 1, "seed for generated strokes")

	return cmd
}

func runNew(opts *NewOptions, path string, cmd *cobra.Command) error {
	if opts.Strokes < 0 {
		return NewExitError(ExitCommandError, "--strokes must not be negative")
	}
	ctx, cancel := signalContext(cmd)
	defer cancel()

	eng, err := opts.newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	gen := newStrokeGenerator(opts.Seed, eng.Document().Bounds())
	for range opts.Strokes {
		eng.AddStroke(gen.next())
	}
	eng.Record()

	if err := await(ctx, eng.Save(ctx, path)); err != nil {
		return WrapExitError(ExitCommandError, "failed to save document", err)
	}

	doc := eng.Document()
	return opts.formatter(cmd).Success(NewResult{
		Path:       path,
		DocumentID: doc.ID,
		Strokes:    eng.Store().Len(),
		Width:      doc.Width,
		Height:     doc.Height,
	})
}

// strokeGenerator produces a deterministic mix of strokes inside an area.
type strokeGenerator struct {
	rnd  *rand.Rand
	area geom.AABB
}

func newStrokeGenerator(seed uint64, area geom.AABB) *strokeGenerator {
	return &strokeGenerator{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), area: area}
}

func (g *strokeGenerator) point() geom.Vec2 {
	ext := g.area.Extents()
	return g.area.Mins.Add(geom.V(g.rnd.Float64()*ext.X, g.rnd.Float64()*ext.Y))
}

func (g *strokeGenerator) color() stroke.Color {
	return stroke.Color{R: uint8(g.rnd.IntN(200)), G: uint8(g.rnd.IntN(200)), B: uint8(g.rnd.IntN(200)), A: 255}
}

func (g *strokeGenerator) next() stroke.Stroke {
	switch n := g.rnd.IntN(10); {
	case n < 7:
		return g.brush()
	case n < 9:
		shapes := []stroke.ShapeKind{stroke.ShapeLine, stroke.ShapeRectangle, stroke.ShapeEllipse}
		start := g.point()
		end := start.Add(geom.V(20+g.rnd.Float64()*120, 20+g.rnd.Float64()*80))
		return stroke.NewShapeStroke(shapes[g.rnd.IntN(len(shapes))], start, end, stroke.ShapeStyle{
			StrokeWidth: 1 + g.rnd.Float64()*3,
			StrokeColor: g.color(),
		})
	default:
		words := []string{"ink", "note", "idea", "draft", "sketch"}
		return stroke.NewTextStroke(g.point(), words[g.rnd.IntN(len(words))], 16+g.rnd.Float64()*16, g.color())
	}
}

// brush is a short random walk with varying pressure.
func (g *strokeGenerator) brush() *stroke.BrushStroke {
	b := stroke.NewBrushStroke(stroke.BrushStyle{Width: 1 + g.rnd.Float64()*4, Color: g.color()})
	p := g.point()
	for range 8 + g.rnd.IntN(16) {
		b.Append(stroke.Element{Pos: p, Pressure: 0.3 + g.rnd.Float64()*0.7})
		p = p.Add(geom.V(g.rnd.Float64()*16-8, g.rnd.Float64()*16-8))
	}
	return b
}

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/inkwell/internal/render"
	"github.com/roach88/inkwell/internal/store"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Out      string
	Viewport string
	Scale    float64
}

// RenderResult is the output of the render command.
type RenderResult struct {
	Out      string `json:"out"`
	Viewport string `json:"viewport"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Rendered int    `json:"rendered"`
	// Unrendered counts visible strokes whose render jobs did not land.
	Unrendered int `json:"unrendered,omitempty"`
}

func (r RenderResult) Text(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Rendered %s to %s (%dx%d px, %d strokes)\n", r.Viewport, r.Out, r.Width, r.Height, r.Rendered)
	if err == nil && r.Unrendered > 0 {
		_, err = fmt.Fprintf(w, "  %d strokes could not be rendered\n", r.Unrendered)
	}
	return err
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <path>",
		Short: "Render a viewport to PNG",
		Long: `Render the document through the engine's render pipeline.

The viewport is set, visible strokes are rendered on the worker pool and
the cached images are composited into a PNG.

Example:
  inkwell render notes.inkw --out page.png
  inkwell render notes.inkw --out detail.png --viewport 0,0,400,300 --scale 2`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output PNG path (required)")
	cmd.Flags().StringVar(&opts.Viewport, "viewport", "", "viewport as x,y,w,h (default: document bounds)")
	cmd.Flags().Float64Var(&opts.Scale, "scale", 0, "pixels per document unit (default: render_scale)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runRender(opts *RenderOptions, path string, cmd *cobra.Command) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	eng, err := opts.newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := openInto(ctx, eng, path); err != nil {
		return err
	}

	area := eng.Document().Bounds()
	if opts.Viewport != "" {
		if area, err = parseRect(opts.Viewport); err != nil {
			return WrapExitError(ExitCommandError, "invalid --viewport", err)
		}
	}
	eng.SetViewport(area)
	if _, err := eng.WaitRendered(ctx); err != nil {
		return WrapExitError(ExitFailure, "rendering did not finish", err)
	}

	scale := opts.Scale
	if scale <= 0 {
		scale = eng.EngineConfig().RenderScale
	}
	canvas := eng.Composite(area, scale)

	f, err := os.Create(opts.Out)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create output", err)
	}
	if err := render.EncodePNG(f, canvas.RGBA()); err != nil {
		f.Close()
		return WrapExitError(ExitFailure, "failed to encode PNG", err)
	}
	if err := f.Close(); err != nil {
		return WrapExitError(ExitFailure, "failed to write output", err)
	}

	b := canvas.RGBA().Bounds()
	res := RenderResult{
		Out:      opts.Out,
		Viewport: area.String(),
		Width:    b.Dx(),
		Height:   b.Dy(),
	}
	st := eng.Store()
	for _, k := range st.StrokeKeysAsRenderedIntersectingBounds(area) {
		if info, ok := st.RenderInfo(k); ok && info.State == store.Rendered {
			res.Rendered++
		} else {
			res.Unrendered++
		}
	}
	slog.Debug("render finished", "out", res.Out, "width", res.Width, "height", res.Height,
		"rendered", res.Rendered, "unrendered", res.Unrendered)
	return opts.formatter(cmd).Success(res)
}

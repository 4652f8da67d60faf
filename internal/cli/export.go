package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/inkwell/internal/codec"
	"github.com/roach88/inkwell/internal/export"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Out      string
	Target   string
	Viewport string
	Select   string
	Scale    float64
}

// ExportResult is the output of the export command.
type ExportResult struct {
	Out    string `json:"out"`
	Kind   string `json:"kind"` // image format or codec name
	Target string `json:"target,omitempty"`
}

func (r ExportResult) Text(w io.Writer) error {
	if r.Target == "" {
		_, err := fmt.Fprintf(w, "Converted to %s (%s)\n", r.Out, r.Kind)
		return err
	}
	_, err := fmt.Fprintf(w, "Exported %s to %s (%s)\n", r.Target, r.Out, r.Kind)
	return err
}

var exportTargets = map[string]export.Target{
	"doc":       export.TargetDocument,
	"selection": export.TargetSelection,
	"viewport":  export.TargetViewport,
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <path>",
		Short: "Export a document to SVG or PNG, or convert it",
		Long: `Export the document, the selection or a viewport as SVG or PNG.

When --out names a document format (.inkw, .json, .inkdb, .db) the
document is converted instead and --target is ignored.

Example:
  inkwell export notes.inkw --out notes.svg
  inkwell export notes.inkw --out crop.png --target selection --select 0,0,300,200
  inkwell export notes.inkw --out notes.inkdb`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output path (required)")
	cmd.Flags().StringVar(&opts.Target, "target", "doc", "what to export (doc|selection|viewport)")
	cmd.Flags().StringVar(&opts.Viewport, "viewport", "", "viewport as x,y,w,h for --target viewport")
	cmd.Flags().StringVar(&opts.Select, "select", "", "select strokes intersecting x,y,w,h before exporting")
	cmd.Flags().Float64Var(&opts.Scale, "scale", 0, "PNG pixels per document unit (default: export.scale)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func isDocumentPath(path string) bool {
	return slices.Contains(codec.Extensions(), strings.ToLower(filepath.Ext(path)))
}

func runExport(opts *ExportOptions, path string, cmd *cobra.Command) error {
	target, ok := exportTargets[opts.Target]
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid target %q: must be doc, selection or viewport", opts.Target))
	}

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

	if opts.Select != "" {
		area, err := parseRect(opts.Select)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --select", err)
		}
		st := eng.Store()
		st.SetSelectedKeys(st.SelectionKeysUnordered(), false)
		st.SetSelectedKeys(st.KeysIntersectingBounds(area), true)
	}

	out := ExportResult{Out: opts.Out}
	if isDocumentPath(opts.Out) {
		c, _ := codec.ForPath(opts.Out)
		out.Kind = c.Name()
		if err := await(ctx, eng.Save(ctx, opts.Out)); err != nil {
			return WrapExitError(ExitCommandError, "failed to convert document", err)
		}
		return opts.formatter(cmd).Success(out)
	}

	format, err := export.FormatForPath(opts.Out)
	if err != nil {
		return WrapExitError(ExitCommandError, "unsupported output", err)
	}
	exportOpts := eng.EngineConfig().Export
	if opts.Scale > 0 {
		exportOpts.Scale = opts.Scale
	}
	req := export.Request{Target: target, Format: format, Options: &exportOpts}
	if target == export.TargetViewport && opts.Viewport != "" {
		if req.Viewport, err = parseRect(opts.Viewport); err != nil {
			return WrapExitError(ExitCommandError, "invalid --viewport", err)
		}
	}

	if err := await(ctx, eng.ExportAsync(ctx, opts.Out, req)); err != nil {
		if export.IsEmptySelection(err) {
			return WrapExitError(ExitFailure, "nothing selected", err)
		}
		return WrapExitError(ExitFailure, "export failed", err)
	}
	out.Kind = string(format)
	out.Target = target.String()
	return opts.formatter(cmd).Success(out)
}

package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/inkwell/internal/engine"
	"github.com/roach88/inkwell/internal/stroke"
)

// InfoResult is the output of the info command.
type InfoResult struct {
	Path     string              `json:"path"`
	State    engine.State        `json:"state"`
	Pages    int                 `json:"pages"`
	Kinds    map[stroke.Kind]int `json:"kinds"`
	Selected int                 `json:"selected"`
	Trashed  int                 `json:"trashed"`
}

func (r InfoResult) Text(w io.Writer) error {
	doc := r.State.Document
	fmt.Fprintf(w, "%s\n", r.Path)
	fmt.Fprintf(w, "  document:  %s\n", doc.ID)
	if doc.Title != "" {
		fmt.Fprintf(w, "  title:     %s\n", doc.Title)
	}
	fmt.Fprintf(w, "  layout:    %s\n", doc.Layout)
	fmt.Fprintf(w, "  bounds:    %s\n", doc.Bounds())
	fmt.Fprintf(w, "  pages:     %d with content\n", r.Pages)
	fmt.Fprintf(w, "  strokes:   %d (%d selected, %d trashed)\n", len(r.State.Strokes), r.Selected, r.Trashed)
	for _, k := range slices.Sorted(maps.Keys(r.Kinds)) {
		fmt.Fprintf(w, "    %-8s %d\n", k, r.Kinds[k])
	}
	return nil
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <path>",
		Short: "Describe a document",
		Long: `Print the document metadata and a summary of its strokes.

With --format json the full per-stroke state is included.

Example:
  inkwell info notes.inkw
  inkwell info notes.inkdb --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runInfo(opts *RootOptions, path string, cmd *cobra.Command) error {
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

	res := InfoResult{
		Path:  path,
		State: eng.State(),
		Pages: len(eng.PagesBoundsWithContent()),
		Kinds: make(map[stroke.Kind]int),
	}
	for _, st := range res.State.Strokes {
		res.Kinds[st.Kind]++
		if st.Selected {
			res.Selected++
		}
		if st.Trashed {
			res.Trashed++
		}
	}
	return opts.formatter(cmd).Success(res)
}

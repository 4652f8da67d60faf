// Package export writes documents, selections and viewports as SVG or PNG.
//
// Every function reads from a store.Snapshot, so exports can run on a
// worker while the owner keeps editing. Trashed strokes are never exported.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/inkwell/internal/document"
	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/store"
	"github.com/roach88/inkwell/internal/stroke"
)

// DefaultScale is the PNG image scale used when Options.Scale is unset.
const DefaultScale = 1.5

// DefaultMargin pads selection exports.
const DefaultMargin = 12

// Format is an output format.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return FormatSVG, nil
	case ".png":
		return FormatPNG, nil
	}
	return "", &Error{Code: ErrCodeUnsupported, Op: "export", Path: path,
		Err: fmt.Errorf("unknown extension %q", filepath.Ext(path))}
}

// Target selects what is exported.
type Target int

const (
	TargetDocument Target = iota
	TargetSelection
	TargetViewport
)

func (t Target) String() string {
	switch t {
	case TargetDocument:
		return "doc"
	case TargetSelection:
		return "selection"
	case TargetViewport:
		return "viewport"
	}
	return fmt.Sprintf("target(%d)", int(t))
}

// Options tune an export.
type Options struct {
	// Scale is the PNG pixels per document unit.
	Scale float64 `json:"scale" yaml:"scale"`
	// Background paints the document background behind the strokes.
	Background bool `json:"background" yaml:"background"`
	// Margin pads selection exports on every side.
	Margin float64 `json:"margin" yaml:"margin"`
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{Scale: DefaultScale, Background: true, Margin: DefaultMargin}
}

func (o Options) scale() float64 {
	if o.Scale <= 0 {
		return DefaultScale
	}
	return o.Scale
}

// Request describes one export.
type Request struct {
	Target Target
	Format Format
	// Options is nil for DefaultOptions. The engine fills in its configured
	// options instead.
	Options *Options
	// Viewport is the exported area for TargetViewport.
	Viewport geom.AABB
}

func (r Request) options() Options {
	if r.Options == nil {
		return DefaultOptions()
	}
	return *r.Options
}

// DocSVG writes the document area with every stroke on it.
func DocSVG(ctx context.Context, w io.Writer, doc *document.Document, snap *store.Snapshot, opts Options) error {
	return Write(ctx, w, doc, snap, Request{Target: TargetDocument, Format: FormatSVG, Options: &opts})
}

// SelectionSVG writes the selected strokes, cropped to their bounds.
func SelectionSVG(ctx context.Context, w io.Writer, doc *document.Document, snap *store.Snapshot, opts Options) error {
	return Write(ctx, w, doc, snap, Request{Target: TargetSelection, Format: FormatSVG, Options: &opts})
}

// ViewportSVG writes the strokes visible in viewport.
func ViewportSVG(ctx context.Context, w io.Writer, doc *document.Document, snap *store.Snapshot, viewport geom.AABB, opts Options) error {
	return Write(ctx, w, doc, snap, Request{Target: TargetViewport, Format: FormatSVG, Options: &opts, Viewport: viewport})
}

// DocPNG rasterizes the document area.
func DocPNG(ctx context.Context, w io.Writer, doc *document.Document, snap *store.Snapshot, opts Options) error {
	return Write(ctx, w, doc, snap, Request{Target: TargetDocument, Format: FormatPNG, Options: &opts})
}

// SelectionPNG rasterizes the selected strokes.
func SelectionPNG(ctx context.Context, w io.Writer, doc *document.Document, snap *store.Snapshot, opts Options) error {
	return Write(ctx, w, doc, snap, Request{Target: TargetSelection, Format: FormatPNG, Options: &opts})
}

// scene is the resolved content of a request.
type scene struct {
	area       geom.AABB
	strokes    []stroke.Stroke
	background *stroke.Color
}

func resolve(doc *document.Document, snap *store.Snapshot, req Request) (scene, error) {
	op := "export " + req.Target.String()
	opts := req.options()
	var (
		area geom.AABB
		keys []store.Key
	)
	switch req.Target {
	case TargetDocument:
		if doc == nil {
			return scene{}, &Error{Code: ErrCodeRender, Op: op, Err: fmt.Errorf("no document")}
		}
		area = doc.Bounds()
		keys = snap.StrokeKeysAsRenderedIntersectingBounds(area)
	case TargetSelection:
		keys = snap.SelectionKeysAsRendered()
		if len(keys) == 0 {
			return scene{}, &Error{Code: ErrCodeEmptySelection, Op: op}
		}
		area = snap.BoundsForStrokes(keys).Loosened(opts.Margin)
		if !area.IsValid() {
			return scene{}, &Error{Code: ErrCodeEmptySelection, Op: op, Err: fmt.Errorf("selection has no area")}
		}
	case TargetViewport:
		area = req.Viewport
		if !area.IsValid() {
			return scene{}, &Error{Code: ErrCodeRender, Op: op, Err: fmt.Errorf("invalid viewport %s", area)}
		}
		keys = snap.StrokeKeysAsRenderedIntersectingBounds(area)
	default:
		return scene{}, &Error{Code: ErrCodeUnsupported, Op: op}
	}

	sc := scene{area: area, strokes: make([]stroke.Stroke, 0, len(keys))}
	for _, k := range keys {
		if st, ok := snap.Stroke(k); ok {
			sc.strokes = append(sc.strokes, st)
		}
	}
	if opts.Background && doc != nil {
		bg := doc.Background
		sc.background = &bg
	}
	return sc, nil
}

// Write runs req and writes the result to w.
func Write(ctx context.Context, w io.Writer, doc *document.Document, snap *store.Snapshot, req Request) error {
	sc, err := resolve(doc, snap, req)
	if err != nil {
		return err
	}
	op := "export " + req.Target.String()
	switch req.Format {
	case FormatSVG:
		err = writeSVG(ctx, w, sc)
	case FormatPNG:
		err = writePNG(ctx, w, sc, req.options().scale())
	default:
		return &Error{Code: ErrCodeUnsupported, Op: op, Err: fmt.Errorf("format %q", req.Format)}
	}
	if err != nil {
		if ee, ok := err.(*Error); ok {
			ee.Op = op
			return ee
		}
		return &Error{Code: ErrCodeIO, Op: op, Err: err}
	}
	return nil
}

// WriteFile runs req and writes the result to path. The format defaults to
// the one matching the extension. Nothing is written when the export fails.
func WriteFile(ctx context.Context, path string, doc *document.Document, snap *store.Snapshot, req Request) error {
	if req.Format == "" {
		f, err := FormatForPath(path)
		if err != nil {
			return err
		}
		req.Format = f
	}
	var buf bytes.Buffer
	if err := Write(ctx, &buf, doc, snap, req); err != nil {
		if ee, ok := err.(*Error); ok {
			ee.Path = path
		}
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &Error{Code: ErrCodeIO, Op: "export " + req.Target.String(), Path: path, Err: err}
	}
	return nil
}

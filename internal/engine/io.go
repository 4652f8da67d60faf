package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/inkwell/internal/codec"
	"github.com/roach88/inkwell/internal/document"
	"github.com/roach88/inkwell/internal/export"
	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/store"
	"github.com/roach88/inkwell/internal/stroke"
)

// ErrClosed is returned by background work submitted after Close.
var ErrClosed = errors.New("engine closed")

// background runs job on the worker pool and returns its one-shot result.
func (e *Engine) background(job func() error) <-chan error {
	done := make(chan error, 1)
	if !e.pool.Submit(func() { done <- job() }) {
		done <- ErrClosed
	}
	return done
}

func failed(err error) <-chan error {
	done := make(chan error, 1)
	done <- err
	return done
}

// docCopy returns a copy of the document metadata for off-thread use.
func (e *Engine) docCopy() *document.Document {
	d := *e.doc
	return &d
}

// Save writes the document and a snapshot of the store to path on a worker.
// The codec is chosen by extension. The returned channel yields exactly one
// result.
func (e *Engine) Save(ctx context.Context, path string) <-chan error {
	c, err := codec.ForPath(path)
	if err != nil {
		return failed(err)
	}
	doc, snap := e.docCopy(), e.store.TakeSnapshot()
	return e.background(func() error {
		start := time.Now()
		if err := c.Save(ctx, path, doc, snap); err != nil {
			slog.Error("saving document failed", "path", path, "error", err)
			return err
		}
		e.metrics.ObserveExport(c.Name(), time.Since(start))
		slog.Info("document saved", "path", path, "codec", c.Name(), "strokes", snap.Len())
		return nil
	})
}

// Open replaces the store contents and the document with the file at path.
// History is dropped. On error the engine is left unchanged.
func (e *Engine) Open(ctx context.Context, path string) (store.Flags, error) {
	c, err := codec.ForPath(path)
	if err != nil {
		return store.Flags{}, err
	}
	dec, err := c.Load(ctx, path)
	if err != nil {
		return store.Flags{}, err
	}
	f := e.store.ImportSnapshot(dec.Snapshot)
	e.doc = dec.Document
	e.viewport = e.doc.Bounds()
	f.Merge(store.Flags{Redraw: true, ResizeDocument: true})
	f.Merge(e.UpdateRenderingCurrentViewport())
	slog.Info("document opened", "path", path, "codec", c.Name(), "strokes", e.store.Len())
	return f, nil
}

// fillRequest defaults the parts of req the caller left empty.
func (e *Engine) fillRequest(req export.Request) export.Request {
	if req.Target == export.TargetViewport && req.Viewport == (geom.AABB{}) {
		req.Viewport = e.viewport
	}
	if req.Options == nil {
		opts := e.cfg.Export
		req.Options = &opts
	}
	return req
}

// Export writes req to w on the calling goroutine.
func (e *Engine) Export(ctx context.Context, w io.Writer, req export.Request) error {
	req = e.fillRequest(req)
	start := time.Now()
	if err := export.Write(ctx, w, e.doc, e.store.TakeSnapshot(), req); err != nil {
		return err
	}
	e.metrics.ObserveExport(string(req.Format), time.Since(start))
	return nil
}

// ExportAsync writes req to path on a worker. The format follows the
// extension unless req sets one.
func (e *Engine) ExportAsync(ctx context.Context, path string, req export.Request) <-chan error {
	req = e.fillRequest(req)
	if req.Format == "" {
		f, err := export.FormatForPath(path)
		if err != nil {
			return failed(err)
		}
		req.Format = f
	}
	doc, snap := e.docCopy(), e.store.TakeSnapshot()
	return e.background(func() error {
		start := time.Now()
		if err := export.WriteFile(ctx, path, doc, snap, req); err != nil {
			slog.Error("export failed", "path", path, "target", req.Target.String(), "error", err)
			return err
		}
		e.metrics.ObserveExport(string(req.Format), time.Since(start))
		slog.Info("exported", "path", path, "target", req.Target.String(), "format", req.Format)
		return nil
	})
}

// StrokeState is one stroke in the ExportStateJSON dump.
type StrokeState struct {
	Key      string       `json:"key"`
	Kind     stroke.Kind  `json:"kind"`
	Chrono   store.Chrono `json:"chrono"`
	Bounds   geom.AABB    `json:"bounds"`
	Render   string       `json:"render"`
	Gen      uint64       `json:"gen"`
	Images   int          `json:"images"`
	Selected bool         `json:"selected,omitempty"`
	Trashed  bool         `json:"trashed,omitempty"`
}

// State is the ExportStateJSON dump.
type State struct {
	Document *document.Document `json:"document"`
	Viewport geom.AABB          `json:"viewport"`
	Strokes  []StrokeState      `json:"strokes"`
	Undo     int                `json:"undo"`
	Redo     int                `json:"redo"`
	Queued   int                `json:"queued"`
}

// State collects the engine state in chrono order.
func (e *Engine) State() State {
	st := State{Document: e.docCopy(), Viewport: e.viewport, Queued: e.events.Len()}
	st.Undo, st.Redo = e.store.HistoryLen()
	for _, k := range e.store.KeysSortedChrono() {
		s, _ := e.store.Stroke(k)
		ch, _ := e.store.Chrono(k)
		b, _ := e.store.StrokeBounds(k)
		info, _ := e.store.RenderInfo(k)
		st.Strokes = append(st.Strokes, StrokeState{
			Key:      k.String(),
			Kind:     s.Kind(),
			Chrono:   ch,
			Bounds:   b,
			Render:   info.State.String(),
			Gen:      info.Generation,
			Images:   len(info.Images),
			Selected: e.store.IsSelected(k),
			Trashed:  e.store.IsTrashed(k),
		})
	}
	return st
}

// ExportStateJSON dumps the engine state as indented JSON for debugging.
func (e *Engine) ExportStateJSON() ([]byte, error) {
	data, err := json.MarshalIndent(e.State(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export state: %w", err)
	}
	return data, nil
}

package engine

import (
	"context"
	"fmt"

	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/render"
	"github.com/roach88/inkwell/internal/store"
	"github.com/roach88/inkwell/internal/stroke"
)

// Record pushes the current state onto the undo stack.
func (e *Engine) Record() store.Flags {
	return e.store.Record()
}

// Undo restores the previous state and re-renders what is visible.
func (e *Engine) Undo() store.Flags {
	return e.afterRestore(e.store.Undo())
}

// Redo re-applies an undone state.
func (e *Engine) Redo() store.Flags {
	return e.afterRestore(e.store.Redo())
}

func (e *Engine) afterRestore(f store.Flags) store.Flags {
	if !f.StoreChanged {
		return f
	}
	f.Merge(e.ResizeAutoexpand())
	return f
}

// Clear removes every stroke, drops the history and shrinks the document
// back to one page.
func (e *Engine) Clear() store.Flags {
	f := e.store.Clear()
	e.doc.ResizeToFitContent(geom.Invalid())
	f.Merge(store.Flags{Redraw: true, ResizeDocument: true})
	return f
}

// AddStroke inserts st, renders it right away and grows the document if
// needed. Call Record first to make the insert undoable.
func (e *Engine) AddStroke(st stroke.Stroke) (store.Key, store.Flags) {
	k := e.store.InsertStroke(st)
	f := store.Flags{Redraw: true, StoreChanged: true}
	f.Merge(e.store.RegenerateRenderingForStroke(k, e.viewport, e.cfg.RenderScale))
	f.Merge(e.ResizeAutoexpand())
	return k, f
}

// SetViewport moves the visible area, grows the document to cover it when
// the layout allows and dispatches render jobs for what came into view.
func (e *Engine) SetViewport(v geom.AABB) store.Flags {
	if !v.IsValid() {
		return store.Flags{}
	}
	e.viewport = v
	f := store.Flags{Redraw: true}
	if e.doc.ExpandForViewport(v) {
		f.ResizeDocument = true
	}
	f.Merge(e.UpdateRenderingCurrentViewport())
	return f
}

// UpdateRenderingCurrentViewport dispatches render jobs for the strokes in
// the viewport that need one.
func (e *Engine) UpdateRenderingCurrentViewport() store.Flags {
	e.store.RegenerateRenderingInViewport(e.tasks, false, e.viewport, e.cfg.RenderScale)
	return store.Flags{Redraw: true}
}

// contentBounds merges the bounds of every visible stroke.
func (e *Engine) contentBounds() geom.AABB {
	return e.store.BoundsForStrokes(e.store.StrokeKeysAsRendered())
}

// PagesBoundsWithContent returns the pages holding at least one visible
// stroke.
func (e *Engine) PagesBoundsWithContent() []geom.AABB {
	return e.doc.PagesBoundsWithContent(e.store.StrokesBounds(e.store.StrokeKeysAsRendered()))
}

// BoundsWithContentExtended merges PagesBoundsWithContent.
func (e *Engine) BoundsWithContentExtended() geom.AABB {
	return e.doc.BoundsWithContentExtended(e.store.StrokesBounds(e.store.StrokeKeysAsRendered()))
}

// ResizeToFitStrokes sizes the document around its content.
func (e *Engine) ResizeToFitStrokes() store.Flags {
	e.doc.ResizeToFitContent(e.contentBounds())
	f := store.Flags{Redraw: true, ResizeDocument: true}
	f.Merge(e.UpdateRenderingCurrentViewport())
	return f
}

// ResizeAutoexpand grows the document after an edit according to its
// layout.
func (e *Engine) ResizeAutoexpand() store.Flags {
	before := e.doc.Bounds()
	e.doc.ResizeAutoexpand(e.contentBounds(), e.viewport)
	f := e.UpdateRenderingCurrentViewport()
	f.ResizeDocument = e.doc.Bounds() != before
	return f
}

// pendingInViewport reports whether a visible stroke in the viewport still
// waits for a render job.
func (e *Engine) pendingInViewport() bool {
	for _, k := range e.store.StrokeKeysAsRenderedIntersectingBounds(e.viewport) {
		if info, ok := e.store.RenderInfo(k); ok && info.State == store.Busy {
			return true
		}
	}
	return false
}

// WaitRendered handles events until no stroke in the viewport is Busy.
// Strokes whose job failed stay Dirty and do not hold it up.
func (e *Engine) WaitRendered(ctx context.Context) (store.Flags, error) {
	var merged store.Flags
	for {
		f := e.DrainEvents()
		merged.Merge(f)
		if f.Quit {
			return merged, fmt.Errorf("wait rendered: engine quit")
		}
		if !e.pendingInViewport() {
			return merged, nil
		}
		if e.events.Len() > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return merged, ctx.Err()
		case <-e.events.Wait():
			if e.events.Closed() && e.events.Len() == 0 {
				return merged, fmt.Errorf("wait rendered: engine stopped")
			}
		}
	}
}

// Composite paints the document background and the cached stroke images
// intersecting area onto a new canvas.
func (e *Engine) Composite(area geom.AABB, scale float64) *render.Canvas {
	c := render.NewCanvas(area, scale)
	c.Fill(e.doc.Background.RGBA())
	e.store.DrawStrokes(c, area)
	return c
}

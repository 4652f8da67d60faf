package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/metrics"
	"github.com/roach88/inkwell/internal/render"
	"github.com/roach88/inkwell/internal/stroke"
)

// RenderState is the render-cache state of one stroke.
type RenderState uint8

const (
	Dirty RenderState = iota
	Busy
	Rendered
)

func (s RenderState) String() string {
	switch s {
	case Dirty:
		return "dirty"
	case Busy:
		return "busy"
	case Rendered:
		return "rendered"
	default:
		return fmt.Sprintf("render_state(%d)", uint8(s))
	}
}

type renderComp struct {
	state    RenderState
	gen      uint64
	images   []render.Image
	partial  bool
	viewport geom.AABB
}

// needsRender reports whether a non-forced pass over viewport should
// dispatch this entry.
func (c renderComp) needsRender(viewport geom.AABB) bool {
	switch c.state {
	case Dirty:
		return true
	case Rendered:
		return c.partial && !c.viewport.Contains(viewport)
	default:
		return false
	}
}

// RenderInfo is a read-only view of a key's render entry.
type RenderInfo struct {
	State      RenderState
	Generation uint64
	Images     []render.Image
	Partial    bool
}

func (s *Store) nextGen() uint64 {
	s.renderGen++
	return s.renderGen
}

// markDirty sets k Dirty under a fresh generation. Cached images are kept
// so the stroke stays visible until the new rendering lands.
func (s *Store) markDirty(k Key) {
	comp, ok := s.t.renders.get(k)
	if !ok {
		warnInconsistent("mark dirty", k, "renders")
	}
	comp.state = Dirty
	comp.gen = s.nextGen()
	s.t.renders.set(k, comp)
}

// RenderInfo returns k's render entry.
func (s *Store) RenderInfo(k Key) (RenderInfo, bool) {
	comp, ok := s.t.renders.get(k)
	if !ok {
		return RenderInfo{}, false
	}
	return RenderInfo{State: comp.state, Generation: comp.gen, Images: comp.images, Partial: comp.partial}, true
}

// RegenerateRenderingInViewport dispatches a render job for every
// non-trashed stroke intersecting viewport that needs one, or for all of
// them when force is set. Results are sent to tasks. Strokes outside the
// viewport drop their cached images. Never blocks.
func (s *Store) RegenerateRenderingInViewport(tasks TaskSender, force bool, viewport geom.AABB, scale float64) {
	for _, k := range s.t.strokes.keys() {
		if s.t.isTrashed(k) {
			continue
		}
		comp, ok := s.t.renders.get(k)
		if !ok {
			warnInconsistent("regenerate rendering", k, "renders")
		}
		bounds, _ := s.t.spatial.get(k)
		if !bounds.Intersects(viewport) {
			if comp.state == Rendered {
				s.t.renders.set(k, renderComp{state: Dirty, gen: s.nextGen()})
			}
			continue
		}
		if !force && !comp.needsRender(viewport) {
			continue
		}
		s.dispatch(tasks, k, comp, viewport, scale)
	}
}

func (s *Store) dispatch(tasks TaskSender, k Key, comp renderComp, viewport geom.AABB, scale float64) {
	st, ok := s.t.strokes.get(k)
	if !ok {
		warnInconsistent("dispatch rendering", k, "strokes")
		return
	}
	snapshot := st.Clone()
	gen := s.nextGen()
	comp.state = Busy
	comp.gen = gen
	s.t.renders.set(k, comp)

	rasterizer := s.rasterizer
	submitted := s.workers().Submit(func() {
		images, err := rasterizer.GenerateImages(context.Background(), snapshot, viewport, scale)
		if err != nil {
			tasks.Enqueue(Task{Kind: TaskRenderFailed, Key: k, Gen: gen, Err: err})
			return
		}
		tasks.Enqueue(Task{Kind: TaskReplaceImages, Key: k, Gen: gen, Images: images})
	})
	if !submitted {
		slog.Warn("worker pool closed, render job dropped", "key", k)
		comp.state = Dirty
		s.t.renders.set(k, comp)
		return
	}
	s.metrics.RenderJob(metrics.OutcomeDispatched)
	slog.Debug("render job dispatched", "key", k, "gen", gen)
}

// RegenerateRenderingForStroke renders k on the calling goroutine and
// installs the result. Jobs still in flight for k are superseded.
func (s *Store) RegenerateRenderingForStroke(k Key, viewport geom.AABB, scale float64) Flags {
	st, ok := s.t.strokes.get(k)
	if !ok {
		slog.Debug("stale key", "op", "regenerate rendering", "key", k)
		return Flags{}
	}
	comp, _ := s.t.renders.get(k)
	comp.gen = s.nextGen()

	images, err := s.rasterizer.GenerateImages(context.Background(), st, viewport, scale)
	if err != nil {
		slog.Error("rendering stroke failed", "key", k, "error", err)
		s.metrics.RenderJob(metrics.OutcomeFailed)
		comp.state = Dirty
		s.t.renders.set(k, comp)
		return Flags{}
	}
	comp.state = Rendered
	comp.images = images.Images
	comp.partial = images.Partial
	comp.viewport = images.Viewport
	s.t.renders.set(k, comp)
	s.metrics.RenderJob(metrics.OutcomeApplied)
	return Flags{Redraw: true}
}

// AppendRenderingThreaded renders part, an extra piece of k such as a
// freshly drawn segment, on a worker and appends the images to k's cache.
// Only Rendered keys accept appends. Returns whether a job was dispatched.
func (s *Store) AppendRenderingThreaded(tasks TaskSender, k Key, part stroke.Stroke, viewport geom.AABB, scale float64) bool {
	comp, ok := s.t.renders.get(k)
	if !ok || !s.t.strokes.has(k) {
		slog.Debug("stale key", "op", "append rendering", "key", k)
		return false
	}
	if comp.state != Rendered {
		return false
	}
	gen := comp.gen
	part = part.Clone()
	rasterizer := s.rasterizer
	submitted := s.workers().Submit(func() {
		images, err := rasterizer.GenerateImages(context.Background(), part, viewport, scale)
		if err != nil {
			tasks.Enqueue(Task{Kind: TaskRenderFailed, Key: k, Gen: gen, Err: err})
			return
		}
		tasks.Enqueue(Task{Kind: TaskAppendImages, Key: k, Gen: gen, Images: images})
	})
	if submitted {
		s.metrics.RenderJob(metrics.OutcomeDispatched)
	}
	return submitted
}

// ProcessTask applies a worker result. It must run on the owner goroutine.
//
// A result is dropped when its key is gone or its generation is no longer
// current. Replace results also need the key to be Busy, appends need it
// Rendered. A failed job returns a Busy key to Dirty.
func (s *Store) ProcessTask(task Task) Flags {
	switch task.Kind {
	case TaskQuit:
		return Flags{Quit: true}
	case TaskReplaceImages, TaskAppendImages, TaskRenderFailed:
	default:
		slog.Warn("unknown render task", "kind", task.Kind, "key", task.Key)
		return Flags{}
	}

	if !s.t.strokes.has(task.Key) {
		slog.Debug("discarding render result for removed stroke", "key", task.Key, "task", task.Kind)
		s.metrics.RenderJob(metrics.OutcomeDiscarded)
		return Flags{}
	}
	comp, ok := s.t.renders.get(task.Key)
	if !ok {
		warnInconsistent("process task", task.Key, "renders")
		s.metrics.RenderJob(metrics.OutcomeDiscarded)
		return Flags{}
	}
	if comp.gen != task.Gen {
		slog.Debug("discarding stale render result",
			"key", task.Key, "task", task.Kind, "gen", task.Gen, "current", comp.gen)
		s.metrics.RenderJob(metrics.OutcomeDiscarded)
		return Flags{}
	}

	switch task.Kind {
	case TaskRenderFailed:
		slog.Error("rendering stroke failed", "key", task.Key, "error", task.Err)
		s.metrics.RenderJob(metrics.OutcomeFailed)
		if comp.state == Busy {
			comp.state = Dirty
			s.t.renders.set(task.Key, comp)
		}
		return Flags{}

	case TaskReplaceImages:
		if comp.state != Busy {
			s.metrics.RenderJob(metrics.OutcomeDiscarded)
			return Flags{}
		}
		comp.images = task.Images.Images
		comp.partial = task.Images.Partial
		comp.viewport = task.Images.Viewport

	case TaskAppendImages:
		if comp.state != Rendered {
			s.metrics.RenderJob(metrics.OutcomeDiscarded)
			return Flags{}
		}
		// Clip so the append never writes into an array a snapshot shares.
		comp.images = append(slices.Clip(comp.images), task.Images.Images...)
	}

	comp.state = Rendered
	s.t.renders.set(task.Key, comp)
	s.metrics.RenderJob(metrics.OutcomeApplied)
	return Flags{Redraw: true}
}

// DrawStrokes composites the cached images of every visible stroke
// intersecting viewport onto c in paint order. Strokes without a cached
// image are skipped. Returns the number of strokes drawn.
func (s *Store) DrawStrokes(c *render.Canvas, viewport geom.AABB) int {
	drawn := 0
	for _, k := range s.t.strokeKeysAsRenderedIntersecting(viewport) {
		comp, ok := s.t.renders.get(k)
		if !ok || len(comp.images) == 0 {
			continue
		}
		for _, img := range comp.images {
			c.DrawRenderImage(img)
		}
		drawn++
	}
	return drawn
}

package store

import (
	"log/slog"

	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/metrics"
	"github.com/roach88/inkwell/internal/render"
	"github.com/roach88/inkwell/internal/stroke"
)

// Store holds the strokes of one document. See the package documentation
// for the ownership rules.
type Store struct {
	t         tables
	keys      allocator
	counter   chronoCounter
	renderGen uint64
	history   history

	rasterizer stroke.Rasterizer
	pool       *WorkerPool
	ownsPool   bool
	workerN    int
	metrics    *metrics.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithRasterizer sets the backend render jobs use.
// Default: stroke.SoftwareRasterizer.
func WithRasterizer(r stroke.Rasterizer) Option {
	return func(s *Store) { s.rasterizer = r }
}

// WithHistoryMaxLen bounds the undo stack. Default: DefaultHistoryMaxLen.
func WithHistoryMaxLen(n int) Option {
	return func(s *Store) { s.history.maxLen = n }
}

// WithWorkerPool runs render jobs on p. The store does not close a pool it
// was given.
func WithWorkerPool(p *WorkerPool) Option {
	return func(s *Store) { s.pool = p; s.ownsPool = false }
}

// WithWorkers sets the size of the pool the store starts on first
// dispatch. Ignored with WithWorkerPool.
func WithWorkers(n int) Option {
	return func(s *Store) { s.workerN = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		t:          newTables(),
		history:    history{maxLen: DefaultHistoryMaxLen},
		rasterizer: stroke.SoftwareRasterizer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) workers() *WorkerPool {
	if s.pool == nil {
		s.pool = NewWorkerPool(s.workerN)
		s.ownsPool = true
	}
	return s.pool
}

// Close waits for render jobs on a pool the store started itself.
func (s *Store) Close() {
	if s.ownsPool && s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}

func (s *Store) strokesChanged() { s.metrics.SetStrokes(s.t.strokes.len()) }

func stale(op string, k Key) {
	slog.Debug("stale key", "op", op, "key", k)
}

// InsertStroke takes ownership of st and inserts it on its default layer.
func (s *Store) InsertStroke(st stroke.Stroke) Key {
	return s.InsertStrokeInLayer(st, DefaultLayer(st))
}

// InsertStrokeInLayer takes ownership of st and inserts it on layer, on
// top of everything already there. The new key starts Dirty.
func (s *Store) InsertStrokeInLayer(st stroke.Stroke, layer Layer) Key {
	k := s.keys.allocate()
	s.t.insert(k, st, Chrono{T: s.counter.next(), Layer: layer}, renderComp{state: Dirty, gen: s.nextGen()}, false, false)
	s.strokesChanged()
	return k
}

// RemoveStroke purges k from every table and frees it. Returns the removed
// stroke, or nil for a stale key.
func (s *Store) RemoveStroke(k Key) (stroke.Stroke, Flags) {
	st, ok := s.t.strokes.get(k)
	if !ok {
		stale("remove", k)
		return nil, Flags{}
	}
	if missing := s.t.remove(k); len(missing) > 0 {
		warnInconsistent("remove", k, missing...)
	}
	if !s.keys.release(k) {
		warnInconsistent("remove", k, "allocator")
	}
	s.strokesChanged()
	return st, changed()
}

// RemoveStrokes removes every key in keys.
func (s *Store) RemoveStrokes(keys []Key) Flags {
	var flags Flags
	for _, k := range keys {
		_, f := s.RemoveStroke(k)
		flags.Merge(f)
	}
	return flags
}

// ModifyStroke runs fn on k's stroke, then updates its bounds in the
// spatial index and marks it Dirty. fn must not retain the stroke.
func (s *Store) ModifyStroke(k Key, fn func(stroke.Stroke)) Flags {
	st, ok := s.t.strokes.mut(k)
	if !ok {
		stale("modify", k)
		return Flags{}
	}
	fn(st)
	s.t.spatial.update(k, st.Bounds())
	s.markDirty(k)
	return changed()
}

// TranslateStrokes moves every key by offset. Cached images move along so
// the strokes draw in place until they are re-rendered.
func (s *Store) TranslateStrokes(keys []Key, offset geom.Vec2) Flags {
	var flags Flags
	for _, k := range keys {
		st, ok := s.t.strokes.mut(k)
		if !ok {
			stale("translate", k)
			continue
		}
		st.Translate(offset)
		s.t.spatial.update(k, st.Bounds())
		s.markDirty(k)

		comp, _ := s.t.renders.get(k)
		moved := make([]render.Image, len(comp.images))
		for i, img := range comp.images {
			img.Bounds = img.Bounds.Translated(offset)
			moved[i] = img
		}
		comp.images = moved
		s.t.renders.set(k, comp)
		flags.Merge(changed())
	}
	return flags
}

// UpdateChronoToLast moves k to the top of its layer.
func (s *Store) UpdateChronoToLast(k Key) Flags {
	st, ok := s.t.strokes.get(k)
	if !ok {
		stale("update chrono", k)
		return Flags{}
	}
	c, ok := s.t.chrono.get(k)
	if !ok {
		warnInconsistent("update chrono", k, "chrono")
		c.Layer = DefaultLayer(st)
	}
	c.T = s.counter.next()
	s.t.chrono.set(k, c)
	return Flags{Redraw: true, StoreChanged: true}
}

// SetLayer moves k to layer, on top of that layer.
func (s *Store) SetLayer(k Key, layer Layer) Flags {
	if !s.t.strokes.has(k) {
		stale("set layer", k)
		return Flags{}
	}
	s.t.chrono.set(k, Chrono{T: s.counter.next(), Layer: layer})
	return Flags{Redraw: true, StoreChanged: true}
}

func (s *Store) SetSelected(k Key, selected bool) Flags {
	if !s.t.strokes.has(k) {
		stale("set selected", k)
		return Flags{}
	}
	s.t.selected.set(k, selected)
	return Flags{Redraw: true}
}

func (s *Store) SetSelectedKeys(keys []Key, selected bool) Flags {
	var flags Flags
	for _, k := range keys {
		flags.Merge(s.SetSelected(k, selected))
	}
	return flags
}

func (s *Store) SetTrashed(k Key, trashed bool) Flags {
	if !s.t.strokes.has(k) {
		stale("set trashed", k)
		return Flags{}
	}
	s.t.trashed.set(k, trashed)
	return changed()
}

func (s *Store) SetTrashedKeys(keys []Key, trashed bool) Flags {
	var flags Flags
	for _, k := range keys {
		flags.Merge(s.SetTrashed(k, trashed))
	}
	return flags
}

// TrashSelection trashes and deselects every selected stroke.
func (s *Store) TrashSelection() Flags {
	keys := s.t.selectionKeysUnordered()
	flags := s.SetTrashedKeys(keys, true)
	flags.Merge(s.SetSelectedKeys(keys, false))
	return flags
}

// EmptyTrash removes every trashed stroke.
func (s *Store) EmptyTrash() Flags {
	return s.RemoveStrokes(s.t.trashedKeys())
}

// Clear removes every stroke and drops the history. The chrono counter
// keeps counting.
func (s *Store) Clear() Flags {
	s.t.reset()
	s.keys.releaseAll()
	s.history.clear()
	s.historyChanged()
	return changed().Merged(s.history.flags())
}

// TakeSnapshot captures the current tables in O(1).
func (s *Store) TakeSnapshot() *Snapshot {
	return &Snapshot{t: s.t.share(), counter: s.counter.current()}
}

// ImportSnapshot replaces the store's contents with snap's strokes under
// newly issued keys, as after loading a document. History is dropped and
// every stroke starts Dirty.
func (s *Store) ImportSnapshot(snap *Snapshot) Flags {
	s.t.reset()
	s.keys.releaseAll()
	s.history.clear()
	for _, e := range snap.Entries() {
		k := s.keys.allocate()
		s.t.insert(k, e.Stroke.Clone(), e.Chrono, renderComp{state: Dirty, gen: s.nextGen()}, e.Selected, e.Trashed)
	}
	s.counter.raise(snap.counter)
	s.historyChanged()
	return changed().Merged(s.history.flags())
}

// Len returns the number of strokes, trashed included.
func (s *Store) Len() int { return s.t.strokes.len() }

// Stroke returns k's stroke. The stroke stays owned by the store; change it
// through ModifyStroke.
func (s *Store) Stroke(k Key) (stroke.Stroke, bool) { return s.t.strokes.get(k) }

func (s *Store) Chrono(k Key) (Chrono, bool) { return s.t.chrono.get(k) }

func (s *Store) IsSelected(k Key) bool { return s.t.strokes.has(k) && s.t.isSelected(k) }

func (s *Store) IsTrashed(k Key) bool { return s.t.strokes.has(k) && s.t.isTrashed(k) }

// KeysSortedChrono returns every key, trashed included, in paint order.
func (s *Store) KeysSortedChrono() []Key { return s.t.keysSortedChrono() }

// KeysSortedChronoIntersectingBounds is KeysSortedChrono restricted to keys
// whose bounds intersect b.
func (s *Store) KeysSortedChronoIntersectingBounds(b geom.AABB) []Key {
	return s.t.keysSortedChronoIntersecting(b)
}

// KeysIntersectingBounds returns the spatial index hits for b, unordered.
func (s *Store) KeysIntersectingBounds(b geom.AABB) []Key {
	return s.t.spatial.queryIntersecting(b)
}

// StrokeKeysAsRendered returns the non-trashed keys in paint order.
func (s *Store) StrokeKeysAsRendered() []Key { return s.t.strokeKeysAsRendered() }

func (s *Store) StrokeKeysAsRenderedIntersectingBounds(b geom.AABB) []Key {
	return s.t.strokeKeysAsRenderedIntersecting(b)
}

func (s *Store) SelectionKeysUnordered() []Key { return s.t.selectionKeysUnordered() }

func (s *Store) SelectionKeysAsRendered() []Key { return s.t.selectionKeysAsRendered() }

func (s *Store) TrashedKeys() []Key { return s.t.trashedKeys() }

// StrokeBounds returns the indexed bounds of k.
func (s *Store) StrokeBounds(k Key) (geom.AABB, bool) { return s.t.spatial.get(k) }

// StrokesBounds returns the bounds of each existing key.
func (s *Store) StrokesBounds(keys []Key) []geom.AABB { return s.t.strokesBounds(keys) }

// BoundsForStrokes merges the bounds of keys. Invalid when none have bounds.
func (s *Store) BoundsForStrokes(keys []Key) geom.AABB { return s.t.boundsFor(keys) }

// CloneStrokes returns deep copies of the strokes of keys.
func (s *Store) CloneStrokes(keys []Key) []stroke.Stroke { return s.t.cloneStrokes(keys) }

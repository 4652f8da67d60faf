package store

import (
	"log/slog"

	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/stroke"
)

// tables is the full component table set. The live store and every
// Snapshot each hold one; snapshots share maps with the live set until the
// live side writes.
type tables struct {
	strokes  table[stroke.Stroke]
	chrono   table[Chrono]
	renders  table[renderComp]
	selected table[bool]
	trashed  table[bool]
	spatial  spatialIndex
}

func newTables() tables {
	return tables{
		strokes:  newTable(stroke.Stroke.Clone),
		chrono:   newTable[Chrono](nil),
		renders:  newTable[renderComp](nil),
		selected: newTable[bool](nil),
		trashed:  newTable[bool](nil),
		spatial:  newSpatialIndex(),
	}
}

func (t *tables) insert(k Key, s stroke.Stroke, c Chrono, r renderComp, selected, trashed bool) {
	t.strokes.set(k, s)
	t.chrono.set(k, c)
	t.renders.set(k, r)
	t.selected.set(k, selected)
	t.trashed.set(k, trashed)
	t.spatial.insert(k, s.Bounds())
}

// remove purges k from every table. It reports the tables k was missing
// from so callers can log the inconsistency.
func (t *tables) remove(k Key) (missing []string) {
	check := func(name string, ok bool) {
		if !ok {
			missing = append(missing, name)
		}
	}
	check("chrono", t.chrono.has(k))
	check("renders", t.renders.has(k))
	check("selected", t.selected.has(k))
	check("trashed", t.trashed.has(k))
	_, ok := t.spatial.get(k)
	check("spatial", ok)

	t.strokes.del(k)
	t.chrono.del(k)
	t.renders.del(k)
	t.selected.del(k)
	t.trashed.del(k)
	t.spatial.remove(k)
	return missing
}

func (t *tables) share() tables {
	return tables{
		strokes:  t.strokes.share(),
		chrono:   t.chrono.share(),
		renders:  t.renders.share(),
		selected: t.selected.share(),
		trashed:  t.trashed.share(),
		spatial:  t.spatial.share(),
	}
}

func (t *tables) reset() {
	t.strokes.reset()
	t.chrono.reset()
	t.renders.reset()
	t.selected.reset()
	t.trashed.reset()
	t.spatial.reset()
}

func warnInconsistent(op string, k Key, missing ...string) {
	slog.Warn("store inconsistency", "op", op, "key", k, "missing", missing)
}

func (t *tables) isTrashed(k Key) bool {
	v, ok := t.trashed.get(k)
	if !ok {
		warnInconsistent("trashed lookup", k, "trashed")
	}
	return v
}

func (t *tables) isSelected(k Key) bool {
	v, ok := t.selected.get(k)
	if !ok {
		warnInconsistent("selected lookup", k, "selected")
	}
	return v
}

// filter returns the keys for which keep is true, preserving order.
func filter(keys []Key, keep func(Key) bool) []Key {
	out := keys[:0]
	for _, k := range keys {
		if keep(k) {
			out = append(out, k)
		}
	}
	return out
}

func (t *tables) keysSortedChrono() []Key {
	keys := t.strokes.keys()
	sortChrono(keys, &t.chrono)
	return keys
}

func (t *tables) keysSortedChronoIntersecting(b geom.AABB) []Key {
	keys := filter(t.spatial.queryIntersecting(b), func(k Key) bool {
		if !t.strokes.has(k) {
			warnInconsistent("spatial query", k, "strokes")
			return false
		}
		return true
	})
	sortChrono(keys, &t.chrono)
	return keys
}

func (t *tables) notTrashed(k Key) bool { return !t.isTrashed(k) }

func (t *tables) selectedKey(k Key) bool { return !t.isTrashed(k) && t.isSelected(k) }

func (t *tables) strokeKeysAsRendered() []Key {
	return filter(t.keysSortedChrono(), t.notTrashed)
}

func (t *tables) strokeKeysAsRenderedIntersecting(b geom.AABB) []Key {
	return filter(t.keysSortedChronoIntersecting(b), t.notTrashed)
}

func (t *tables) selectionKeysUnordered() []Key {
	return filter(t.strokes.keys(), t.selectedKey)
}

func (t *tables) selectionKeysAsRendered() []Key {
	return filter(t.keysSortedChrono(), t.selectedKey)
}

func (t *tables) trashedKeys() []Key {
	return filter(t.strokes.keys(), t.isTrashed)
}

func (t *tables) strokesBounds(keys []Key) []geom.AABB {
	out := make([]geom.AABB, 0, len(keys))
	for _, k := range keys {
		if b, ok := t.spatial.get(k); ok {
			out = append(out, b)
		}
	}
	return out
}

func (t *tables) boundsFor(keys []Key) geom.AABB {
	merged := geom.Invalid()
	for _, b := range t.strokesBounds(keys) {
		merged = merged.Merged(b)
	}
	return merged
}

func (t *tables) cloneStrokes(keys []Key) []stroke.Stroke {
	out := make([]stroke.Stroke, 0, len(keys))
	for _, k := range keys {
		if s, ok := t.strokes.get(k); ok {
			out = append(out, s.Clone())
		}
	}
	return out
}

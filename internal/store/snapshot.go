package store

import (
	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/stroke"
)

// Snapshot is an immutable capture of a store's tables. It shares
// structure with the live store and is safe to read from any goroutine,
// concurrently with further edits to the store it came from.
//
// Strokes returned by a snapshot are shared and must not be mutated.
type Snapshot struct {
	t       tables
	counter uint32
}

// Entry is one stroke of a snapshot with its component data.
type Entry struct {
	Key      Key
	Stroke   stroke.Stroke
	Chrono   Chrono
	Selected bool
	Trashed  bool
}

// NewSnapshot builds a snapshot from decoded entries, as a codec produces
// them. Entry keys are ignored and reissued; the snapshot is meant to be
// installed with Store.ImportSnapshot.
func NewSnapshot(entries []Entry) *Snapshot {
	snap := &Snapshot{t: newTables()}
	var keys allocator
	for _, e := range entries {
		if e.Stroke == nil {
			continue
		}
		k := keys.allocate()
		snap.t.insert(k, e.Stroke, e.Chrono, renderComp{state: Dirty}, e.Selected, e.Trashed)
		snap.counter = max(snap.counter, e.Chrono.T)
	}
	return snap
}

// Len returns the number of strokes, trashed included.
func (s *Snapshot) Len() int { return s.t.strokes.len() }

// Entries returns every stroke in paint order, trashed included.
func (s *Snapshot) Entries() []Entry {
	keys := s.t.keysSortedChrono()
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		st, _ := s.t.strokes.get(k)
		c, _ := s.t.chrono.get(k)
		sel, _ := s.t.selected.get(k)
		tr, _ := s.t.trashed.get(k)
		out = append(out, Entry{Key: k, Stroke: st, Chrono: c, Selected: sel, Trashed: tr})
	}
	return out
}

func (s *Snapshot) Stroke(k Key) (stroke.Stroke, bool) { return s.t.strokes.get(k) }

func (s *Snapshot) Chrono(k Key) (Chrono, bool) { return s.t.chrono.get(k) }

func (s *Snapshot) KeysSortedChrono() []Key { return s.t.keysSortedChrono() }

func (s *Snapshot) StrokeKeysAsRendered() []Key { return s.t.strokeKeysAsRendered() }

func (s *Snapshot) StrokeKeysAsRenderedIntersectingBounds(b geom.AABB) []Key {
	return s.t.strokeKeysAsRenderedIntersecting(b)
}

func (s *Snapshot) SelectionKeysAsRendered() []Key { return s.t.selectionKeysAsRendered() }

func (s *Snapshot) StrokesBounds(keys []Key) []geom.AABB { return s.t.strokesBounds(keys) }

func (s *Snapshot) BoundsForStrokes(keys []Key) geom.AABB { return s.t.boundsFor(keys) }

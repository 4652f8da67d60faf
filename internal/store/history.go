package store

import "slices"

// DefaultHistoryMaxLen is the number of undo entries kept.
const DefaultHistoryMaxLen = 100

type history struct {
	undo   []*Snapshot
	redo   []*Snapshot
	maxLen int
}

// push records snap for undo and drops the redo stack.
func (h *history) push(snap *Snapshot) {
	h.undo = append(h.undo, snap)
	h.trim()
	clear(h.redo)
	h.redo = h.redo[:0]
}

// trim drops the oldest undo entries beyond maxLen.
func (h *history) trim() {
	if over := len(h.undo) - h.maxLen; h.maxLen > 0 && over > 0 {
		h.undo = slices.Delete(h.undo, 0, over)
	}
}

func pop(stack *[]*Snapshot) *Snapshot {
	n := len(*stack)
	if n == 0 {
		return nil
	}
	top := (*stack)[n-1]
	(*stack)[n-1] = nil
	*stack = (*stack)[:n-1]
	return top
}

func (h *history) clear() {
	clear(h.undo)
	clear(h.redo)
	h.undo = h.undo[:0]
	h.redo = h.redo[:0]
}

func visibility(hidden bool) Visibility {
	if hidden {
		return Hide
	}
	return Show
}

func (h *history) flags() Flags {
	return Flags{HideUndo: visibility(len(h.undo) == 0), HideRedo: visibility(len(h.redo) == 0)}
}

// Record pushes the current state onto the undo stack and clears redo.
func (s *Store) Record() Flags {
	s.history.push(s.TakeSnapshot())
	s.historyChanged()
	return Flags{StoreChanged: true}.Merged(s.history.flags())
}

// Undo installs the most recent undo entry, moving the current state to
// the redo stack. A no-op when there is nothing to undo.
//
// The caller re-renders and re-lays out in response to the returned flags.
func (s *Store) Undo() Flags {
	prev := pop(&s.history.undo)
	if prev == nil {
		return Flags{}
	}
	s.history.redo = append(s.history.redo, s.TakeSnapshot())
	s.restore(prev)
	s.historyChanged()
	return changed().Merged(s.history.flags())
}

// Redo is the inverse of Undo.
func (s *Store) Redo() Flags {
	next := pop(&s.history.redo)
	if next == nil {
		return Flags{}
	}
	s.history.undo = append(s.history.undo, s.TakeSnapshot())
	s.restore(next)
	s.historyChanged()
	return changed().Merged(s.history.flags())
}

func (s *Store) CanUndo() bool { return len(s.history.undo) > 0 }

func (s *Store) CanRedo() bool { return len(s.history.redo) > 0 }

// HistoryLen returns the depth of the undo and redo stacks.
func (s *Store) HistoryLen() (undo, redo int) { return len(s.history.undo), len(s.history.redo) }

// SetHistoryMaxLen changes the undo bound, dropping the oldest entries
// when the stack is already deeper.
func (s *Store) SetHistoryMaxLen(n int) Flags {
	s.history.maxLen = n
	s.history.trim()
	s.historyChanged()
	return s.history.flags()
}

func (s *Store) ClearHistory() Flags {
	s.history.clear()
	s.historyChanged()
	return s.history.flags()
}

func (s *Store) historyChanged() {
	s.metrics.SetHistoryDepth(len(s.history.undo), len(s.history.redo))
	s.metrics.SetStrokes(s.t.strokes.len())
}

// restore installs snap as the live table set in one step. Every render
// entry gets a fresh generation so jobs dispatched before the restore are
// discarded, and Busy entries drop back to Dirty.
func (s *Store) restore(snap *Snapshot) {
	s.t.strokes.adopt(snap.t.strokes)
	s.t.chrono.adopt(snap.t.chrono)
	s.t.selected.adopt(snap.t.selected)
	s.t.trashed.adopt(snap.t.trashed)
	s.t.spatial.adopt(snap.t.spatial)

	renders := newTable[renderComp](nil)
	for _, k := range snap.t.renders.keys() {
		comp, _ := snap.t.renders.get(k)
		if comp.state == Busy {
			comp.state = Dirty
		}
		comp.gen = s.nextGen()
		renders.m[k] = comp
	}
	s.t.renders = renders

	s.keys.restore(s.t.strokes.keys())
	s.counter.raise(snap.counter)
}

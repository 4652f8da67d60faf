package store

// Visibility is a tri-state UI hint. The zero value leaves the current
// state alone.
type Visibility int8

const (
	Unchanged Visibility = iota
	Show
	Hide
)

// Flags summarizes the side effects of a store or engine call for the
// tool/UI layer. The store never pushes updates itself.
type Flags struct {
	Redraw         bool
	StoreChanged   bool
	ResizeDocument bool
	HideUndo       Visibility
	HideRedo       Visibility
	Quit           bool
}

// Merge folds o into f. Booleans are or-ed; for the visibility hints the
// later non-Unchanged value wins.
func (f *Flags) Merge(o Flags) {
	f.Redraw = f.Redraw || o.Redraw
	f.StoreChanged = f.StoreChanged || o.StoreChanged
	f.ResizeDocument = f.ResizeDocument || o.ResizeDocument
	f.Quit = f.Quit || o.Quit
	if o.HideUndo != Unchanged {
		f.HideUndo = o.HideUndo
	}
	if o.HideRedo != Unchanged {
		f.HideRedo = o.HideRedo
	}
}

// Merged returns f merged with o.
func (f Flags) Merged(o Flags) Flags {
	f.Merge(o)
	return f
}

// changed is the usual result of a content mutation.
func changed() Flags {
	return Flags{Redraw: true, StoreChanged: true, ResizeDocument: true}
}

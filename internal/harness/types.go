package harness

import "github.com/roach88/inkwell/internal/store"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq    int            `json:"seq"`
	Action string         `json:"action"`
	Args   map[string]any `json:"args,omitempty"`
	// Key is the name of the stroke the step created, if any.
	Key   string   `json:"key,omitempty"`
	Flags []string `json:"flags,omitempty"`
	// Len is the stroke count after the step.
	Len int `json:"len"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every setup and flow step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final store and document state.
	State map[string]any `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]any),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
}

var allFlagNames = []string{
	"redraw", "store_changed", "resize_document",
	"show_undo", "hide_undo", "show_redo", "hide_redo", "quit",
}

// FlagNames lists the names of the flags set in f, in a fixed order.
func FlagNames(f store.Flags) []string {
	var names []string
	add := func(set bool, name string) {
		if set {
			names = append(names, name)
		}
	}
	add(f.Redraw, "redraw")
	add(f.StoreChanged, "store_changed")
	add(f.ResizeDocument, "resize_document")
	add(f.HideUndo == store.Show, "show_undo")
	add(f.HideUndo == store.Hide, "hide_undo")
	add(f.HideRedo == store.Show, "show_redo")
	add(f.HideRedo == store.Hide, "hide_redo")
	add(f.Quit, "quit")
	return names
}

package engine

import (
	"github.com/roach88/inkwell/internal/queue"
	"github.com/roach88/inkwell/internal/store"
)

// EventKind distinguishes between event kinds.
type EventKind int

const (
	// EventTask carries a render worker result.
	EventTask EventKind = iota + 1
	// EventCommand carries a closure to run on the owner goroutine.
	EventCommand
)

func (k EventKind) String() string {
	switch k {
	case EventTask:
		return "task"
	case EventCommand:
		return "command"
	}
	return "unknown"
}

// Command runs on the owner goroutine with full access to the engine.
type Command func(e *Engine) store.Flags

// Event is one entry of the engine queue.
type Event struct {
	Kind    EventKind
	Task    store.Task
	Command Command
}

// label names the event for logs and metrics.
func (ev Event) label() string {
	if ev.Kind == EventTask {
		return ev.Task.Kind.String()
	}
	return ev.Kind.String()
}

// taskSink feeds render results into the engine queue.
type taskSink struct {
	events *queue.Queue[Event]
}

func (s taskSink) Enqueue(t store.Task) bool {
	return s.events.Enqueue(Event{Kind: EventTask, Task: t})
}

package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/inkwell/internal/config"
	"github.com/roach88/inkwell/internal/document"
	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/metrics"
	"github.com/roach88/inkwell/internal/queue"
	"github.com/roach88/inkwell/internal/store"
	"github.com/roach88/inkwell/internal/stroke"
)

// Engine owns one document and its stroke store.
type Engine struct {
	store    *store.Store
	doc      *document.Document
	cfg      config.Config
	viewport geom.AABB

	events *queue.Queue[Event]
	tasks  taskSink
	pool   *store.WorkerPool

	ids        document.IDGenerator
	rasterizer stroke.Rasterizer
	metrics    *metrics.Metrics
	onFlags    func(store.Flags)
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithConfig replaces config.Default().
func WithConfig(cfg config.Config) EngineOption {
	return func(e *Engine) { e.cfg = cfg }
}

// WithIDGenerator sets the document ID source.
// Default: document.UUIDv7Generator.
func WithIDGenerator(g document.IDGenerator) EngineOption {
	return func(e *Engine) { e.ids = g }
}

// WithRasterizer sets the render backend. Default: stroke.SoftwareRasterizer.
func WithRasterizer(r stroke.Rasterizer) EngineOption {
	return func(e *Engine) { e.rasterizer = r }
}

// WithMetrics instruments the engine and its store.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithFlagsHandler registers fn to receive the flags of every handled event
// that produced any.
func WithFlagsHandler(fn func(store.Flags)) EngineOption {
	return func(e *Engine) { e.onFlags = fn }
}

// New creates an engine with an empty document.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:        config.Default(),
		events:     queue.New[Event](),
		ids:        document.UUIDv7Generator{},
		rasterizer: stroke.SoftwareRasterizer{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.tasks = taskSink{events: e.events}
	e.pool = store.NewWorkerPool(e.cfg.Workers)
	e.store = e.newStore()
	e.doc = e.cfg.NewDocument(e.ids.Generate())
	e.viewport = e.doc.Bounds()
	return e
}

func (e *Engine) newStore() *store.Store {
	return store.New(
		store.WithRasterizer(e.rasterizer),
		store.WithHistoryMaxLen(e.cfg.HistoryMaxLen),
		store.WithWorkerPool(e.pool),
		store.WithMetrics(e.metrics),
	)
}

// Store returns the owned store. Owner goroutine only.
func (e *Engine) Store() *store.Store { return e.store }

// Document returns the owned document. Owner goroutine only.
func (e *Engine) Document() *document.Document { return e.doc }

// Viewport returns the current viewport in document coordinates.
func (e *Engine) Viewport() geom.AABB { return e.viewport }

// Tasks returns the sender render jobs report to.
// Thread-safe: may be called from any goroutine.
func (e *Engine) Tasks() store.TaskSender { return e.tasks }

// Do submits cmd for the owner goroutine.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (e *Engine) Do(cmd Command) bool {
	return e.events.Enqueue(Event{Kind: EventCommand, Command: cmd})
}

// QueueLen returns the number of pending events.
func (e *Engine) QueueLen() int { return e.events.Len() }

// DrainEvents handles every queued event without blocking and returns the
// merged flags. It stops early after an event that requests Quit.
func (e *Engine) DrainEvents() store.Flags {
	var merged store.Flags
	for {
		ev, ok := e.events.TryDequeue()
		if !ok {
			break
		}
		f := e.handle(ev)
		merged.Merge(f)
		if f.Quit {
			break
		}
	}
	e.metrics.SetEventsQueued(e.events.Len())
	return merged
}

// Run handles events until ctx is cancelled, Stop is called or a quit
// task arrives.
//
// CRITICAL: Must be called from exactly ONE goroutine, which becomes the
// owner.
func (e *Engine) Run(ctx context.Context) error {
	slog.Debug("engine starting")

	for {
		if ev, ok := e.events.TryDequeue(); ok {
			if f := e.handle(ev); f.Quit {
				slog.Debug("engine stopping: quit requested")
				return nil
			}
			continue
		}
		e.metrics.SetEventsQueued(0)

		select {
		case <-ctx.Done():
			slog.Debug("engine stopping: context cancelled")
			e.events.Close()
			return ctx.Err()

		case <-e.events.Wait():
			// The signal channel closes with the queue.
			if e.events.Closed() && e.events.Len() == 0 {
				slog.Debug("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the event queue. Run returns once the queued events are
// handled. Thread-safe.
func (e *Engine) Stop() {
	e.events.Close()
}

// Quit asks the loop to stop after the events queued so far.
// Thread-safe.
func (e *Engine) Quit() bool {
	return e.tasks.Enqueue(store.QuitTask())
}

// Close stops the engine and waits for running jobs.
func (e *Engine) Close() {
	e.Stop()
	e.store.Close()
	e.pool.Close()
}

func (e *Engine) handle(ev Event) store.Flags {
	var f store.Flags
	switch ev.Kind {
	case EventTask:
		f = e.store.ProcessTask(ev.Task)
	case EventCommand:
		if ev.Command == nil {
			slog.Error("event processing failed", "event", ev.label(), "error", "nil command")
			return f
		}
		f = ev.Command(e)
	default:
		slog.Error("event processing failed", "event", ev.label(), "error", "unknown event kind")
		return f
	}
	e.metrics.EventHandled(ev.label())
	e.emit(f)
	return f
}

func (e *Engine) emit(f store.Flags) {
	if e.onFlags != nil && f != (store.Flags{}) {
		e.onFlags(f)
	}
}

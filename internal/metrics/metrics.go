// Package metrics holds the Prometheus instrumentation for the stroke store
// and the engine loop.
//
// All methods are safe to call on a nil *Metrics, so components can take an
// optional metrics handle without guarding every call site.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "inkwell"

// Render job outcomes.
const (
	OutcomeDispatched = "dispatched"
	OutcomeApplied    = "applied"
	OutcomeDiscarded  = "discarded"
	OutcomeFailed     = "failed"
)

type Metrics struct {
	RenderJobs     *prometheus.CounterVec
	HistoryDepth   *prometheus.GaugeVec
	Strokes        prometheus.Gauge
	EventsQueued   prometheus.Gauge
	EventsHandled  *prometheus.CounterVec
	ExportDuration *prometheus.HistogramVec
}

// New registers the inkwell collectors on reg. Passing nil registers on a
// private registry, which is what tests and one-shot CLI runs want.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		RenderJobs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "render_jobs_total",
			Help:      "Render jobs by outcome (dispatched, applied, discarded, failed).",
		}, []string{"outcome"}),
		HistoryDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "history_depth",
			Help:      "Entries on the undo and redo stacks.",
		}, []string{"stack"}),
		Strokes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "strokes",
			Help:      "Strokes currently held by the store, trashed included.",
		}),
		EventsQueued: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_queued",
			Help:      "Events waiting for the engine loop.",
		}),
		EventsHandled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_handled_total",
			Help:      "Events processed by the engine loop, by kind.",
		}, []string{"kind"}),
		ExportDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "export_duration_seconds",
			Help:      "Wall time of background save and export jobs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"format"}),
	}
}

func (m *Metrics) RenderJob(outcome string) {
	if m == nil || m.RenderJobs == nil {
		return
	}
	m.RenderJobs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetHistoryDepth(undo, redo int) {
	if m == nil || m.HistoryDepth == nil {
		return
	}
	m.HistoryDepth.WithLabelValues("undo").Set(float64(undo))
	m.HistoryDepth.WithLabelValues("redo").Set(float64(redo))
}

func (m *Metrics) SetStrokes(n int) {
	if m == nil || m.Strokes == nil {
		return
	}
	m.Strokes.Set(float64(n))
}

func (m *Metrics) SetEventsQueued(n int) {
	if m == nil || m.EventsQueued == nil {
		return
	}
	m.EventsQueued.Set(float64(n))
}

func (m *Metrics) EventHandled(kind string) {
	if m == nil || m.EventsHandled == nil {
		return
	}
	m.EventsHandled.WithLabelValues(kind).Inc()
}

// ObserveExport records how long a save or export took.
func (m *Metrics) ObserveExport(format string, d time.Duration) {
	if m == nil || m.ExportDuration == nil {
		return
	}
	m.ExportDuration.WithLabelValues(format).Observe(d.Seconds())
}

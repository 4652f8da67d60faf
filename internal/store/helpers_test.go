package store

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/metrics"
	"github.com/roach88/inkwell/internal/queue"
	"github.com/roach88/inkwell/internal/stroke"
)

var pen = stroke.BrushStyle{Width: 2, Color: stroke.Black}

// dot is a brush stroke with bounds Rect(x-1, y-1, 2, 2).
func dot(x, y float64) *stroke.BrushStroke {
	return stroke.NewBrushStroke(pen, geom.V(x, y))
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := New(append([]Option{WithWorkers(2)}, opts...)...)
	t.Cleanup(s.Close)
	return s
}

// waitTask blocks the test goroutine (acting as owner) until a task arrives.
func waitTask(t *testing.T, q *queue.Queue[Task]) Task {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if task, ok := q.TryDequeue(); ok {
			return task
		}
		select {
		case <-q.Wait():
		case <-deadline:
			t.Fatal("timed out waiting for render task")
		}
	}
}

func renderState(t *testing.T, s *Store, k Key) RenderState {
	t.Helper()
	info, ok := s.RenderInfo(k)
	require.True(t, ok, "no render entry for %s", k)
	return info.State
}

func counterValue(t *testing.T, m *metrics.Metrics, outcome string) float64 {
	t.Helper()
	return testutil.ToFloat64(m.RenderJobs.WithLabelValues(outcome))
}

package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/inkwell/internal/config"
	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/metrics"
	"github.com/roach88/inkwell/internal/store"
	"github.com/roach88/inkwell/internal/stroke"
	"github.com/roach88/inkwell/internal/testutil"
)

var pen = stroke.BrushStyle{Width: 2, Color: stroke.Black}

func dot(x, y float64) *stroke.BrushStroke {
	return stroke.NewBrushStroke(pen, geom.V(x, y))
}

func newTestEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Workers = 2
	base := []EngineOption{
		WithConfig(cfg),
		WithIDGenerator(testutil.NewFixedIDGenerator("doc-1")),
	}
	e := New(append(base, opts...)...)
	t.Cleanup(e.Close)
	return e
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testutil.WaitTimeout)
	t.Cleanup(cancel)
	return ctx
}

func TestEngine_New(t *testing.T) {
	e := newTestEngine(t)

	assert.Equal(t, "doc-1", e.Document().ID)
	assert.Equal(t, e.Document().Bounds(), e.Viewport())
	assert.Equal(t, 0, e.Store().Len())
	assert.Equal(t, 0, e.QueueLen())
}

func TestEngine_DoRunsOnDrain(t *testing.T) {
	e := newTestEngine(t)

	var ran bool
	require.True(t, e.Do(func(e *Engine) store.Flags {
		ran = true
		return store.Flags{Redraw: true}
	}))
	assert.Equal(t, 1, e.QueueLen())
	assert.False(t, ran)

	f := e.DrainEvents()
	assert.True(t, ran)
	assert.True(t, f.Redraw)
	assert.Equal(t, 0, e.QueueLen())
}

func TestEngine_DrainStopsAtQuit(t *testing.T) {
	e := newTestEngine(t)
	var after bool

	require.True(t, e.Quit())
	e.Do(func(*Engine) store.Flags { after = true; return store.Flags{} })

	f := e.DrainEvents()
	assert.True(t, f.Quit)
	assert.False(t, after)
	assert.Equal(t, 1, e.QueueLen())
}

func TestEngine_FlagsHandlerSeesNonEmptyFlags(t *testing.T) {
	var got []store.Flags
	e := newTestEngine(t, WithFlagsHandler(func(f store.Flags) { got = append(got, f) }))

	e.Do(func(*Engine) store.Flags { return store.Flags{} })
	e.Do(func(*Engine) store.Flags { return store.Flags{StoreChanged: true} })
	e.DrainEvents()

	require.Len(t, got, 1)
	assert.True(t, got[0].StoreChanged)
}

func TestEngine_NilCommandIsSkipped(t *testing.T) {
	e := newTestEngine(t)
	e.Do(nil)
	assert.Equal(t, store.Flags{}, e.DrainEvents())
}

func TestEngine_RunHandlesCommandsFromOtherGoroutines(t *testing.T) {
	e := newTestEngine(t)

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Do(func(e *Engine) store.Flags {
				e.Store().InsertStroke(dot(5, 5))
				return store.Flags{StoreChanged: true}
			})
		}()
	}
	wg.Wait()
	e.Quit()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(testutil.WaitTimeout):
		t.Fatal("Run did not return after quit")
	}
	assert.Equal(t, 10, e.Store().Len())
}

func TestEngine_RunStopsOnCancel(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(testutil.WaitTimeout):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, e.Do(func(*Engine) store.Flags { return store.Flags{} }))
}

func TestEngine_RunStopsWhenQueueClosed(t *testing.T) {
	e := newTestEngine(t)
	var ran bool
	e.Do(func(*Engine) store.Flags { ran = true; return store.Flags{} })
	e.Stop()

	require.NoError(t, e.Run(context.Background()))
	assert.True(t, ran)
}

func TestEngine_RenderResultsFlowThroughEvents(t *testing.T) {
	gate := testutil.NewGatedRasterizer()
	e := newTestEngine(t, WithRasterizer(gate))

	k := e.Store().InsertStroke(dot(10, 10))
	e.UpdateRenderingCurrentViewport()
	gate.WaitStarted(t, 1)

	info, _ := e.Store().RenderInfo(k)
	assert.Equal(t, store.Busy, info.State)

	gate.Open()
	_, err := e.WaitRendered(waitCtx(t))
	require.NoError(t, err)

	info, _ = e.Store().RenderInfo(k)
	assert.Equal(t, store.Rendered, info.State)
	assert.NotEmpty(t, info.Images)
}

func TestEngine_WaitRenderedToleratesFailures(t *testing.T) {
	e := newTestEngine(t, WithRasterizer(testutil.FailingRasterizer{Err: errors.New("boom")}))

	k := e.Store().InsertStroke(dot(10, 10))
	e.UpdateRenderingCurrentViewport()

	_, err := e.WaitRendered(waitCtx(t))
	require.NoError(t, err)
	info, _ := e.Store().RenderInfo(k)
	assert.Equal(t, store.Dirty, info.State)
}

func TestEngine_WaitRenderedHonoursContext(t *testing.T) {
	gate := testutil.NewGatedRasterizer()
	e := newTestEngine(t, WithRasterizer(gate))
	t.Cleanup(gate.Open)

	e.Store().InsertStroke(dot(10, 10))
	e.UpdateRenderingCurrentViewport()
	gate.WaitStarted(t, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := e.WaitRendered(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEngine_MetricsCountEvents(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	e := newTestEngine(t, WithMetrics(m))

	e.Do(func(*Engine) store.Flags { return store.Flags{} })
	e.Do(func(*Engine) store.Flags { return store.Flags{} })
	e.DrainEvents()

	assert.Equal(t, 2.0, promtest.ToFloat64(m.EventsHandled.WithLabelValues("command")))
	assert.Equal(t, 0.0, promtest.ToFloat64(m.EventsQueued))
}

func TestEngine_SaveAfterCloseFails(t *testing.T) {
	e := newTestEngine(t)
	e.Close()

	err := <-e.Save(context.Background(), t.TempDir()+"/doc.inkw")
	assert.ErrorIs(t, err, ErrClosed)
}

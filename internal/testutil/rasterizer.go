package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/render"
	"github.com/roach88/inkwell/internal/stroke"
)

// WaitTimeout bounds every blocking helper in this package.
const WaitTimeout = 5 * time.Second

// GatedRasterizer blocks every render job until the test lets it through,
// so tests can interleave store mutations with in-flight jobs.
//
// Thread-safety: all methods are safe for concurrent use.
type GatedRasterizer struct {
	started  chan stroke.Stroke
	gate     chan struct{}
	openOnce sync.Once
	open     chan struct{}
	calls    atomic.Int64
}

// NewGatedRasterizer creates a closed gate.
func NewGatedRasterizer() *GatedRasterizer {
	return &GatedRasterizer{
		started: make(chan stroke.Stroke, 1024),
		gate:    make(chan struct{}),
		open:    make(chan struct{}),
	}
}

// GenerateImages implements stroke.Rasterizer.
func (g *GatedRasterizer) GenerateImages(ctx context.Context, s stroke.Stroke, viewport geom.AABB, scale float64) (render.GeneratedImages, error) {
	g.calls.Add(1)
	g.started <- s
	select {
	case <-g.gate:
	case <-g.open:
	case <-ctx.Done():
		return render.GeneratedImages{}, ctx.Err()
	}
	return stroke.GenerateImages(s, viewport, scale)
}

// Calls returns how many jobs have started.
func (g *GatedRasterizer) Calls() int { return int(g.calls.Load()) }

// WaitStarted blocks until n more jobs have reached the gate and returns
// the strokes they were given.
func (g *GatedRasterizer) WaitStarted(t testing.TB, n int) []stroke.Stroke {
	t.Helper()
	out := make([]stroke.Stroke, 0, n)
	deadline := time.After(WaitTimeout)
	for len(out) < n {
		select {
		case s := <-g.started:
			out = append(out, s)
		case <-deadline:
			t.Fatalf("timed out waiting for %d render jobs, got %d", n, len(out))
		}
	}
	return out
}

// Release lets exactly one waiting job through.
func (g *GatedRasterizer) Release(t testing.TB) {
	t.Helper()
	select {
	case g.gate <- struct{}{}:
	case <-time.After(WaitTimeout):
		t.Fatal("timed out releasing a render job: none waiting")
	}
}

// Open lets every current and future job through.
func (g *GatedRasterizer) Open() {
	g.openOnce.Do(func() { close(g.open) })
}

// FailingRasterizer fails every job with Err.
type FailingRasterizer struct {
	Err error
}

// GenerateImages implements stroke.Rasterizer.
func (f FailingRasterizer) GenerateImages(context.Context, stroke.Stroke, geom.AABB, float64) (render.GeneratedImages, error) {
	return render.GeneratedImages{}, f.Err
}

// CountingRasterizer renders with the software backend and counts jobs.
type CountingRasterizer struct {
	calls atomic.Int64
}

// GenerateImages implements stroke.Rasterizer.
func (c *CountingRasterizer) GenerateImages(ctx context.Context, s stroke.Stroke, viewport geom.AABB, scale float64) (render.GeneratedImages, error) {
	c.calls.Add(1)
	return stroke.SoftwareRasterizer{}.GenerateImages(ctx, s, viewport, scale)
}

// Calls returns how many jobs ran.
func (c *CountingRasterizer) Calls() int { return int(c.calls.Load()) }

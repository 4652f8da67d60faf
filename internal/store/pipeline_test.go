package store

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/metrics"
	"github.com/roach88/inkwell/internal/queue"
	"github.com/roach88/inkwell/internal/render"
	"github.com/roach88/inkwell/internal/stroke"
	"github.com/roach88/inkwell/internal/testutil"
)

var viewport = geom.Rect(0, 0, 100, 100)

func TestPipeline_RendersDirtyStrokesInViewport(t *testing.T) {
	s := newTestStore(t)
	tasks := queue.New[Task]()
	inside := s.InsertStroke(dot(10, 10))
	outside := s.InsertStroke(dot(500, 500))

	s.RegenerateRenderingInViewport(tasks, false, viewport, 1)
	assert.Equal(t, Busy, renderState(t, s, inside))
	assert.Equal(t, Dirty, renderState(t, s, outside))

	flags := s.ProcessTask(waitTask(t, tasks))
	assert.True(t, flags.Redraw)
	assert.Equal(t, Rendered, renderState(t, s, inside))

	info, _ := s.RenderInfo(inside)
	require.Len(t, info.Images, 1)
	assert.Equal(t, geom.Rect(9, 9, 2, 2), info.Images[0].Bounds)

	// Nothing left to do without force.
	s.RegenerateRenderingInViewport(tasks, false, viewport, 1)
	assert.Equal(t, 0, tasks.Len())
	assert.Equal(t, Rendered, renderState(t, s, inside))
}

func TestPipeline_ForceRedispatchesRendered(t *testing.T) {
	r := &testutil.CountingRasterizer{}
	s := newTestStore(t, WithRasterizer(r))
	tasks := queue.New[Task]()
	k := s.InsertStroke(dot(10, 10))

	s.RegenerateRenderingInViewport(tasks, false, viewport, 1)
	s.ProcessTask(waitTask(t, tasks))
	s.RegenerateRenderingInViewport(tasks, true, viewport, 1)
	assert.Equal(t, Busy, renderState(t, s, k))

	s.ProcessTask(waitTask(t, tasks))
	assert.Equal(t, Rendered, renderState(t, s, k))
	assert.Equal(t, 2, r.Calls())
}

// mark A dirty, dispatch S1, re-dirty A before S1 completes: S1's result is
// discarded and A stays Dirty.
func TestPipeline_StaleResultAfterRedirtyIsDiscarded(t *testing.T) {
	gate := testutil.NewGatedRasterizer()
	s := newTestStore(t, WithRasterizer(gate))
	tasks := queue.New[Task]()
	a := s.InsertStroke(dot(10, 10))

	s.RegenerateRenderingInViewport(tasks, false, viewport, 1)
	gate.WaitStarted(t, 1)
	require.Equal(t, Busy, renderState(t, s, a))

	s.TranslateStrokes([]Key{a}, geom.V(5, 0))
	require.Equal(t, Dirty, renderState(t, s, a))
	before, _ := s.RenderInfo(a)

	gate.Release(t)
	task := waitTask(t, tasks)
	require.Equal(t, TaskReplaceImages, task.Kind)

	assert.Equal(t, Flags{}, s.ProcessTask(task))
	after, _ := s.RenderInfo(a)
	assert.Equal(t, Dirty, after.State)
	assert.Equal(t, before, after)
}

func TestPipeline_OnlyNewestOfOverlappingJobsApplies(t *testing.T) {
	gate := testutil.NewGatedRasterizer()
	s := newTestStore(t, WithRasterizer(gate))
	tasks := queue.New[Task]()
	a := s.InsertStroke(dot(10, 10))

	s.RegenerateRenderingInViewport(tasks, false, viewport, 1)
	s.RegenerateRenderingInViewport(tasks, true, viewport, 1)
	gate.WaitStarted(t, 2)
	gate.Open()

	first, second := waitTask(t, tasks), waitTask(t, tasks)
	applied := 0
	for _, task := range []Task{first, second} {
		if s.ProcessTask(task).Redraw {
			applied++
		}
	}
	assert.Equal(t, 1, applied)
	assert.Equal(t, Rendered, renderState(t, s, a))
}

func TestPipeline_ResultForRemovedKeyIsNoOp(t *testing.T) {
	gate := testutil.NewGatedRasterizer()
	s := newTestStore(t, WithRasterizer(gate))
	tasks := queue.New[Task]()
	a := s.InsertStroke(dot(10, 10))
	b := s.InsertStroke(dot(20, 20))

	s.RegenerateRenderingInViewport(tasks, false, viewport, 1)
	gate.WaitStarted(t, 2)
	s.RemoveStroke(a)

	// Let both finish, then apply b's result so only a's is left.
	gate.Open()
	var forA Task
	for range 2 {
		task := waitTask(t, tasks)
		if task.Key == a {
			forA = task
			continue
		}
		s.ProcessTask(task)
	}
	require.Equal(t, a, forA.Key)

	before := stateOf(s)
	bInfo, _ := s.RenderInfo(b)
	assert.Equal(t, Flags{}, s.ProcessTask(forA))
	assert.Equal(t, before, stateOf(s))
	bAfter, _ := s.RenderInfo(b)
	assert.Equal(t, bInfo, bAfter)
	_, ok := s.RenderInfo(a)
	assert.False(t, ok)
}

func TestPipeline_FailureLeavesKeyRetryable(t *testing.T) {
	s := newTestStore(t, WithRasterizer(testutil.FailingRasterizer{Err: errors.New("backend down")}))
	tasks := queue.New[Task]()
	k := s.InsertStroke(dot(10, 10))

	s.RegenerateRenderingInViewport(tasks, false, viewport, 1)
	task := waitTask(t, tasks)
	assert.Equal(t, TaskRenderFailed, task.Kind)
	assert.Equal(t, Flags{}, s.ProcessTask(task))
	assert.Equal(t, Dirty, renderState(t, s, k))

	// A non-forced pass picks it up again.
	s.RegenerateRenderingInViewport(tasks, false, viewport, 1)
	assert.Equal(t, Busy, renderState(t, s, k))
	waitTask(t, tasks)
}

func TestPipeline_QuitTask(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, Flags{Quit: true}, s.ProcessTask(QuitTask()))
}

func TestPipeline_UndoDiscardsInFlightJobs(t *testing.T) {
	gate := testutil.NewGatedRasterizer()
	s := newTestStore(t, WithRasterizer(gate))
	tasks := queue.New[Task]()
	a := s.InsertStroke(dot(10, 10))

	s.RegenerateRenderingInViewport(tasks, false, viewport, 1)
	gate.WaitStarted(t, 1)
	s.Record() // snapshot holds a as Busy
	s.TranslateStrokes([]Key{a}, geom.V(1, 1))
	s.Undo()

	assert.Equal(t, Dirty, renderState(t, s, a), "restored Busy entries become Dirty")

	gate.Release(t)
	assert.Equal(t, Flags{}, s.ProcessTask(waitTask(t, tasks)))
	assert.Equal(t, Dirty, renderState(t, s, a))
}

func TestPipeline_OutOfViewportDropsImages(t *testing.T) {
	s := newTestStore(t)
	tasks := queue.New[Task]()
	k := s.InsertStroke(dot(10, 10))
	s.RegenerateRenderingInViewport(tasks, false, viewport, 1)
	s.ProcessTask(waitTask(t, tasks))

	s.RegenerateRenderingInViewport(tasks, false, geom.Rect(1000, 1000, 100, 100), 1)
	info, _ := s.RenderInfo(k)
	assert.Equal(t, Dirty, info.State)
	assert.Empty(t, info.Images)
}

func TestPipeline_TrashedStrokesAreSkipped(t *testing.T) {
	s := newTestStore(t)
	tasks := queue.New[Task]()
	k := s.InsertStroke(dot(10, 10))
	s.SetTrashed(k, true)

	s.RegenerateRenderingInViewport(tasks, true, viewport, 1)
	assert.Equal(t, Dirty, renderState(t, s, k))
}

func TestRegenerateRenderingForStroke_Synchronous(t *testing.T) {
	s := newTestStore(t)
	k := s.InsertStroke(dot(10, 10))

	flags := s.RegenerateRenderingForStroke(k, viewport, 2)
	assert.True(t, flags.Redraw)
	info, _ := s.RenderInfo(k)
	assert.Equal(t, Rendered, info.State)
	require.Len(t, info.Images, 1)
	w, h := info.Images[0].Size()
	assert.Equal(t, 4, w)
	assert.Equal(t, 4, h)

	assert.Equal(t, Flags{}, s.RegenerateRenderingForStroke(Key{idx: 42, gen: 1}, viewport, 1))
}

func TestAppendRenderingThreaded(t *testing.T) {
	s := newTestStore(t)
	tasks := queue.New[Task]()
	k := s.InsertStroke(dot(10, 10))

	assert.False(t, s.AppendRenderingThreaded(tasks, k, dot(12, 12), viewport, 1), "dirty keys take no appends")

	s.RegenerateRenderingForStroke(k, viewport, 1)
	require.True(t, s.AppendRenderingThreaded(tasks, k, dot(12, 12), viewport, 1))

	task := waitTask(t, tasks)
	assert.Equal(t, TaskAppendImages, task.Kind)
	assert.True(t, s.ProcessTask(task).Redraw)

	info, _ := s.RenderInfo(k)
	assert.Equal(t, Rendered, info.State)
	assert.Len(t, info.Images, 2)
}

func TestProcessTask_AppendDoesNotTouchSnapshotImages(t *testing.T) {
	s := newTestStore(t)
	k := s.InsertStroke(dot(10, 10))
	s.RegenerateRenderingForStroke(k, viewport, 1)
	snap := s.TakeSnapshot()
	info, _ := s.RenderInfo(k)

	extra := render.Image{Bounds: geom.Rect(0, 0, 1, 1), Pixels: image.NewRGBA(image.Rect(0, 0, 1, 1))}
	s.ProcessTask(Task{Kind: TaskAppendImages, Key: k, Gen: info.Generation, Images: render.Full(extra)})

	comp, _ := snap.t.renders.get(k)
	assert.Len(t, comp.images, 1)
}

func TestDrawStrokes_CompositesInPaintOrder(t *testing.T) {
	s := newTestStore(t)
	red := stroke.BrushStyle{Width: 4, Color: stroke.Color{R: 255, A: 255}}
	blue := stroke.BrushStyle{Width: 4, Color: stroke.Color{B: 255, A: 255}}
	top := s.InsertStrokeInLayer(stroke.NewBrushStroke(red, geom.V(10, 10)), UserLayer(1))
	bottom := s.InsertStrokeInLayer(stroke.NewBrushStroke(blue, geom.V(10, 10)), UserLayer(0))
	s.RegenerateRenderingForStroke(top, viewport, 1)
	s.RegenerateRenderingForStroke(bottom, viewport, 1)

	c := render.NewCanvas(viewport, 1)
	assert.Equal(t, 2, s.DrawStrokes(c, viewport))

	px := c.RGBA().RGBAAt(10, 10)
	assert.Equal(t, uint8(255), px.R)
	assert.Equal(t, uint8(0), px.B)
}

func TestPipeline_Metrics(t *testing.T) {
	m := metrics.New(nil)
	s := newTestStore(t, WithMetrics(m))
	tasks := queue.New[Task]()
	k := s.InsertStroke(dot(10, 10))

	s.RegenerateRenderingInViewport(tasks, false, viewport, 1)
	task := waitTask(t, tasks)
	s.RemoveStroke(k)
	s.ProcessTask(task)

	assert.Equal(t, 1.0, counterValue(t, m, metrics.OutcomeDispatched))
	assert.Equal(t, 1.0, counterValue(t, m, metrics.OutcomeDiscarded))
}

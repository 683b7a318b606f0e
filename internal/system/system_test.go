package system

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/l1jgo/scenecore/internal/component"
	"github.com/l1jgo/scenecore/internal/core/ecs"
	"github.com/l1jgo/scenecore/internal/core/event"
	"github.com/l1jgo/scenecore/internal/core/geom"
	coresys "github.com/l1jgo/scenecore/internal/core/system"
	"github.com/l1jgo/scenecore/internal/persist"
	"github.com/l1jgo/scenecore/internal/scene/octree"
	"github.com/l1jgo/scenecore/internal/scene/transform"
	"github.com/l1jgo/scenecore/internal/scripting"
	"go.uber.org/zap"
)

type upload struct {
	idx   transform.Index
	reset bool
}

type harness struct {
	world   *ecs.World
	bus     *event.Bus
	store   *component.Store
	runner  *coresys.Runner
	tf      *TransformableSystem
	vis     *VisibilitySystem
	uploads []upload
}

func newHarness(t *testing.T, engine *scripting.Engine) *harness {
	t.Helper()
	h := &harness{world: ecs.NewWorld(), bus: event.NewBus()}
	h.store = component.NewStore(h.world)
	h.runner = coresys.NewRunner(h.world, h.bus, zap.NewNop())

	var after []string
	if engine != nil {
		h.runner.Register(NewScriptMotionSystem(h.store, engine, nil))
		after = append(after, "script_motion")
	}
	h.tf = NewTransformableSystem(h.store, TransformableConfig{
		Octree: octree.DefaultConfig(),
		Audit:  true,
	})
	h.vis = NewVisibilitySystem(h.store, h.tf, func(idx transform.Index, _ mgl32.Mat4, reset bool) {
		h.uploads = append(h.uploads, upload{idx, reset})
	})
	// Registered out of order on purpose; dependencies decide.
	h.runner.Register(NewCleanupSystem("visibility"))
	h.runner.Register(h.vis)
	h.runner.Register(h.tf)
	h.runner.Register(NewTransformPropagationSystem(h.store, after...))
	return h
}

func (h *harness) spawn(pos mgl32.Vec3) ecs.EntityID {
	id := h.world.CreateEntity()
	box := geom.FromCenterExtent(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})
	h.store.Transforms.Add(id, component.NewTransformable(pos, box))
	return id
}

func (h *harness) camera() ecs.EntityID {
	id := h.world.CreateEntity()
	h.store.Cameras.Add(id, component.Camera{
		Name:   "main",
		Eye:    mgl32.Vec3{0, 0, 100},
		Target: mgl32.Vec3{0, 0, 0},
		Up:     mgl32.Vec3{0, 1, 0},
		FovY:   60,
		Aspect: 1,
		Near:   0.1,
		Far:    1000,
	})
	return id
}

func (h *harness) setup(t *testing.T) {
	t.Helper()
	if err := h.runner.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
}

func (h *harness) tick() { h.runner.Tick(time.Second) }

func translation(m mgl32.Mat4) mgl32.Vec3 { return m.Col(3).Vec3() }

func contains(ids []ecs.EntityID, id ecs.EntityID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func TestSchedulerOrder(t *testing.T) {
	h := newHarness(t, nil)
	h.setup(t)
	want := []string{"transform_propagation", "transformable", "visibility", "cleanup"}
	got := h.runner.Order()
	if len(got) != len(want) {
		t.Fatalf("Order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Order = %v, want %v", got, want)
		}
	}
}

func TestMovedStoppedLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	a := h.spawn(mgl32.Vec3{0, 0, 0})
	h.setup(t)

	moved := func() bool { return h.tf.Tracker().Moved().Contains(a) }
	stopped := func() bool { return h.tf.Tracker().Stopped().Contains(a) }

	h.tick()
	if !moved() || stopped() {
		t.Fatalf("tick 1: moved=%v stopped=%v, want moved only", moved(), stopped())
	}
	h.tick()
	if moved() || !stopped() {
		t.Fatalf("tick 2: moved=%v stopped=%v, want stopped only", moved(), stopped())
	}
	h.tick()
	if moved() || stopped() {
		t.Fatalf("tick 3: moved=%v stopped=%v, want neither", moved(), stopped())
	}

	tr, _ := h.store.Transforms.Mutate(a)
	tr.Position = mgl32.Vec3{5, 0, 0}
	h.tick()
	if !moved() || stopped() {
		t.Fatalf("after move: moved=%v stopped=%v", moved(), stopped())
	}
	row, _ := h.tf.IndexOf(a)
	box, ok := h.tf.Octree().Row(row)
	if !ok || !box.Box.ContainsPoint(mgl32.Vec3{5, 0, 0}) {
		t.Fatalf("octree box %v does not follow the move", box.Box)
	}
}

func TestPropagationUpdatesChildren(t *testing.T) {
	h := newHarness(t, nil)
	p := h.spawn(mgl32.Vec3{10, 0, 0})
	c := h.spawn(mgl32.Vec3{1, 0, 0})
	g := h.spawn(mgl32.Vec3{0, 1, 0})
	h.world.SetParent(c, p)
	h.world.SetParent(g, c)
	h.setup(t)
	h.tick()

	world := func(id ecs.EntityID) mgl32.Vec3 {
		tr, _ := h.store.Transforms.Get(id)
		return translation(tr.World)
	}
	if got := world(g); !got.ApproxEqual(mgl32.Vec3{11, 1, 0}) {
		t.Fatalf("grandchild world = %v, want (11,1,0)", got)
	}

	h.tick() // settle so only the parent's move shows up next
	tr, _ := h.store.Transforms.Mutate(p)
	tr.Position = mgl32.Vec3{20, 0, 0}
	h.tick()

	if got := world(c); !got.ApproxEqual(mgl32.Vec3{21, 0, 0}) {
		t.Fatalf("child world = %v, want (21,0,0)", got)
	}
	if got := world(g); !got.ApproxEqual(mgl32.Vec3{21, 1, 0}) {
		t.Fatalf("grandchild world = %v, want (21,1,0)", got)
	}
	for _, id := range []ecs.EntityID{p, c, g} {
		if !h.tf.Tracker().Moved().Contains(id) {
			t.Errorf("%s not in moved after parent move", id)
		}
	}
}

func TestVisibilityAndFrameStats(t *testing.T) {
	h := newHarness(t, nil)
	near := h.spawn(mgl32.Vec3{0, 0, 0})
	behind := h.spawn(mgl32.Vec3{0, 0, 500})
	cam := h.camera()

	var stats []event.FrameStats
	event.Subscribe(h.bus, func(ev event.FrameStats) { stats = append(stats, ev) })

	h.setup(t)
	h.tick()

	vis := h.vis.Visible(cam)
	if !contains(vis, near) {
		t.Fatalf("entity in front of the camera not visible: %v", vis)
	}
	if contains(vis, behind) {
		t.Fatalf("entity behind the camera reported visible: %v", vis)
	}
	st, ok := h.vis.LastStats(cam)
	if !ok || st.Visible != len(vis) || st.NodesTested == 0 {
		t.Fatalf("LastStats = %+v, %v", st, ok)
	}

	direct := h.tf.FindVisible(CameraFrustum(&component.Camera{
		Eye: mgl32.Vec3{0, 0, 100}, Target: mgl32.Vec3{}, FovY: 60, Aspect: 1, Near: 0.1, Far: 1000,
	}), 0, nil)
	if len(direct) != len(vis) {
		t.Fatalf("FindVisible = %v, system saw %v", direct, vis)
	}

	// Events from tick 1 are delivered at the start of tick 2.
	if len(stats) != 0 {
		t.Fatalf("stats delivered early")
	}
	h.tick()
	if len(stats) != 1 {
		t.Fatalf("got %d FrameStats, want 1", len(stats))
	}
	if stats[0].Camera != cam || stats[0].Name != "main" || stats[0].Tick != 0 || stats[0].Moved != 2 {
		t.Fatalf("FrameStats = %+v", stats[0])
	}

	h.world.MarkForDestruction(cam)
	h.tick()
	if _, ok := h.vis.LastStats(cam); ok {
		t.Fatalf("destroyed camera still has stats")
	}
}

func TestUploadsReportResetOnce(t *testing.T) {
	h := newHarness(t, nil)
	a := h.spawn(mgl32.Vec3{})
	h.setup(t)
	row, _ := h.tf.IndexOf(a)

	h.tick()
	if len(h.uploads) != 1 || h.uploads[0] != (upload{row, false}) {
		t.Fatalf("tick 1 uploads = %v", h.uploads)
	}
	h.uploads = h.uploads[:0]
	h.tick()
	if len(h.uploads) != 1 || h.uploads[0] != (upload{row, true}) {
		t.Fatalf("tick 2 uploads = %v", h.uploads)
	}
	h.uploads = h.uploads[:0]
	h.tick()
	if len(h.uploads) != 0 {
		t.Fatalf("tick 3 uploads = %v", h.uploads)
	}
}

func TestDestructionRecyclesRows(t *testing.T) {
	h := newHarness(t, nil)
	a := h.spawn(mgl32.Vec3{})
	b := h.spawn(mgl32.Vec3{3, 0, 0})
	h.setup(t)
	h.tick()
	rowA, _ := h.tf.IndexOf(a)

	h.world.MarkForDestruction(a)
	h.tick()
	if _, ok := h.tf.IndexOf(a); ok {
		t.Fatalf("destroyed entity still owns a row")
	}
	if h.tf.Octree().Len() != 1 || h.tf.Allocator().FreeCount() != 1 {
		t.Fatalf("octree len %d, free %d", h.tf.Octree().Len(), h.tf.Allocator().FreeCount())
	}
	if h.tf.Tracker().Moved().Contains(a) || h.tf.Tracker().Stopped().Contains(a) {
		t.Fatalf("destroyed entity still tracked")
	}

	c := h.spawn(mgl32.Vec3{6, 0, 0})
	h.tick()
	rowC, ok := h.tf.IndexOf(c)
	if !ok || rowC != rowA {
		t.Fatalf("new entity got row %d, want recycled %d", rowC, rowA)
	}
	if h.tf.Allocator().HighWater() != 2 {
		t.Fatalf("high water %d, want 2", h.tf.Allocator().HighWater())
	}

	// Removing only the component releases the row too.
	h.store.Transforms.Remove(b)
	if _, ok := h.tf.IndexOf(b); ok {
		t.Fatalf("row kept after component removal")
	}

	released := 0
	event.Subscribe(h.bus, func(ev event.TransformsReleased) { released = ev.Count })
	h.runner.Destroy()
	if h.tf.Allocator().FreeCount() != h.tf.Allocator().HighWater() {
		t.Fatalf("rows leaked: free %d, high %d", h.tf.Allocator().FreeCount(), h.tf.Allocator().HighWater())
	}
	if released != 1 {
		t.Fatalf("TransformsReleased.Count = %d, want 1", released)
	}
}

func TestScriptMotion(t *testing.T) {
	dir := t.TempDir()
	src := `
function rise(ctx)
  return { x = ctx.origin.x, y = ctx.origin.y + ctx.t, z = ctx.origin.z }
end
function still(ctx)
  return { x = ctx.origin.x, y = ctx.origin.y, z = ctx.origin.z }
end
`
	if err := os.WriteFile(filepath.Join(dir, "motion.lua"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	engine, err := scripting.NewEngine(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer engine.Close()

	h := newHarness(t, engine)
	riser := h.spawn(mgl32.Vec3{})
	h.store.Motions.Add(riser, component.Motion{Script: "rise"})
	idle := h.spawn(mgl32.Vec3{2, 0, 0})
	h.store.Motions.Add(idle, component.Motion{Script: "still", Origin: mgl32.Vec3{2, 0, 0}})
	h.setup(t)

	h.tick()
	h.tick()
	tr, _ := h.store.Transforms.Get(riser)
	if got := translation(tr.World); !got.ApproxEqual(mgl32.Vec3{0, 2, 0}) {
		t.Fatalf("riser world = %v, want (0,2,0)", got)
	}
	if !h.tf.Tracker().Moved().Contains(riser) {
		t.Fatalf("riser not in moved")
	}
	if !h.tf.Tracker().Stopped().Contains(idle) {
		t.Fatalf("idle entity should have stopped on tick 2")
	}
}

type memWriter struct {
	batches [][]persist.FrameStatsRow
}

func (w *memWriter) WriteFrameStats(_ context.Context, rows []persist.FrameStatsRow) error {
	w.batches = append(w.batches, append([]persist.FrameStatsRow(nil), rows...))
	return nil
}

func TestStatsSystemBatchesFrames(t *testing.T) {
	h := newHarness(t, nil)
	h.spawn(mgl32.Vec3{})
	h.camera()
	w := &memWriter{}
	stats := NewStatsSystem(w, 0, 2)
	h.runner.Register(stats)
	h.setup(t)

	for i := 0; i < 3; i++ {
		h.tick()
	}
	// Tick 3 delivered frames 0 and 1 and wrote them as one batch.
	if len(w.batches) != 1 || len(w.batches[0]) != 2 {
		t.Fatalf("batches after 3 ticks = %v", w.batches)
	}
	if w.batches[0][0].Tick != 0 || w.batches[0][1].Tick != 1 || w.batches[0][0].Camera != "main" {
		t.Fatalf("first batch = %+v", w.batches[0])
	}

	h.runner.Destroy()
	if stats.Written() != 3 {
		t.Fatalf("written = %d, want 3 after final flush", stats.Written())
	}
}

func TestScriptMotionIgnoresNonFiniteOutput(t *testing.T) {
	dir := t.TempDir()
	src := `function blowup(ctx) return { x = 1/0, y = 0, z = 0 } end`
	if err := os.WriteFile(filepath.Join(dir, "blowup.lua"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	engine, err := scripting.NewEngine(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer engine.Close()

	h := newHarness(t, engine)
	e := h.spawn(mgl32.Vec3{1, 2, 3})
	h.store.Motions.Add(e, component.Motion{Script: "blowup", Origin: mgl32.Vec3{1, 2, 3}})
	h.setup(t)

	h.tick()
	h.tick()
	tr, _ := h.store.Transforms.Get(e)
	if tr.Position != (mgl32.Vec3{1, 2, 3}) {
		t.Fatalf("position = %v, want spawn position kept", tr.Position)
	}
	if err := h.tf.Octree().Audit(); err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if !h.tf.Tracker().Stopped().Contains(e) {
		t.Fatalf("entity should have stopped after the failed script")
	}
}

package system

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/l1jgo/scenecore/internal/component"
	"github.com/l1jgo/scenecore/internal/core/ecs"
	"github.com/l1jgo/scenecore/internal/core/event"
	"github.com/l1jgo/scenecore/internal/core/geom"
	coresys "github.com/l1jgo/scenecore/internal/core/system"
	"github.com/l1jgo/scenecore/internal/scene/octree"
	"github.com/l1jgo/scenecore/internal/scene/transform"
)

// Uploader receives transform rows flushed from the buffer. reset marks the
// second report of a row written the tick before, after which the renderer
// may drop its motion history for that row.
type Uploader func(idx transform.Index, m mgl32.Mat4, reset bool)

// VisibilitySystem flushes the transform buffer and then runs one octree
// query per camera, emitting a FrameStats event for each.
type VisibilitySystem struct {
	store  *component.Store
	tf     *TransformableSystem
	upload Uploader

	visible map[ecs.EntityID][]ecs.EntityID
	stats   map[ecs.EntityID]octree.Stats
	cancel  func()
}

// NewVisibilitySystem returns the system. upload may be nil.
func NewVisibilitySystem(store *component.Store, tf *TransformableSystem, upload Uploader) *VisibilitySystem {
	return &VisibilitySystem{
		store:   store,
		tf:      tf,
		upload:  upload,
		visible: make(map[ecs.EntityID][]ecs.EntityID),
		stats:   make(map[ecs.EntityID]octree.Stats),
	}
}

func (s *VisibilitySystem) Name() string    { return "visibility" }
func (s *VisibilitySystem) After() []string { return []string{"transformable"} }

func (s *VisibilitySystem) Setup(_ *coresys.Context) {
	s.cancel = s.store.Cameras.OnRemoved(func(id ecs.EntityID, _ *component.Camera) {
		delete(s.visible, id)
		delete(s.stats, id)
	})
}

func (s *VisibilitySystem) Tick(ctx *coresys.Context) {
	uploaded := s.tf.TransformBuffer().Flush(s.upload)
	moved := s.tf.Tracker().Moved().Len()
	stopped := s.tf.Tracker().Stopped().Len()
	nodes := s.tf.Octree().NodeCount()

	s.store.Cameras.Each(func(id ecs.EntityID, cam *component.Camera) {
		var st octree.Stats
		s.visible[id] = s.tf.Octree().AppendVisible(s.visible[id][:0], CameraFrustum(cam), cam.FarDist, &st)
		s.stats[id] = st
		if ctx.Bus != nil {
			event.Emit(ctx.Bus, event.FrameStats{
				Tick:     ctx.Tick,
				Camera:   id,
				Name:     cam.Name,
				Traverse: st,
				Moved:    moved,
				Stopped:  stopped,
				Uploaded: uploaded,
				Nodes:    nodes,
			})
		}
	})
}

func (s *VisibilitySystem) Destroy(_ *coresys.Context) {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	clear(s.visible)
	clear(s.stats)
}

// Visible returns the entities found for cam on the last tick. The slice is
// reused by the next tick.
func (s *VisibilitySystem) Visible(cam ecs.EntityID) []ecs.EntityID {
	return s.visible[cam]
}

// LastStats returns the traversal counters of cam's last query.
func (s *VisibilitySystem) LastStats(cam ecs.EntityID) (octree.Stats, bool) {
	st, ok := s.stats[cam]
	return st, ok
}

// CameraFrustum builds the view frustum of cam.
func CameraFrustum(cam *component.Camera) geom.Frustum {
	up := cam.Up
	if up.Len() == 0 {
		up = mgl32.Vec3{0, 1, 0}
	}
	return geom.PerspectiveFrustum(cam.Eye, cam.Target, up, cam.FovY, cam.Aspect, cam.Near, cam.Far)
}

package system

import (
	"github.com/l1jgo/scenecore/internal/component"
	"github.com/l1jgo/scenecore/internal/core/ecs"
	"github.com/l1jgo/scenecore/internal/core/event"
	"github.com/l1jgo/scenecore/internal/core/geom"
	coresys "github.com/l1jgo/scenecore/internal/core/system"
	"github.com/l1jgo/scenecore/internal/scene/octree"
	"github.com/l1jgo/scenecore/internal/scene/tracking"
	"github.com/l1jgo/scenecore/internal/scene/transform"
	"go.uber.org/zap"
)

// TransformableConfig sizes the transform rows and the octree.
type TransformableConfig struct {
	MaxTransforms int // 0 means unbounded
	Octree        octree.Config
	Audit         bool // run the octree audit after every tick
}

// TransformableSystem gives each entity with a Transformable a transform row,
// keeps the row's matrix in the upload buffer, tracks which rows moved, and
// keeps the entity's world-space box in the octree.
type TransformableSystem struct {
	store   *component.Store
	cfg     TransformableConfig
	alloc   *transform.IndexAllocator
	buffer  *transform.Buffer
	tracker *tracking.Tracker
	tree    *octree.Octree
	rows    *ecs.SparseMap[transform.Index]

	cancel func()
	grown  int
	log    *zap.Logger
}

func NewTransformableSystem(store *component.Store, cfg TransformableConfig) *TransformableSystem {
	return &TransformableSystem{
		store:   store,
		cfg:     cfg,
		alloc:   transform.NewIndexAllocator(cfg.MaxTransforms),
		buffer:  transform.NewBuffer(),
		tracker: tracking.NewTracker(),
		tree:    octree.New(cfg.Octree),
		rows:    ecs.NewSparseMap[transform.Index](256),
		log:     zap.NewNop(),
	}
}

func (s *TransformableSystem) Name() string    { return "transformable" }
func (s *TransformableSystem) After() []string { return []string{"transform_propagation"} }

// Setup subscribes to component removal and inserts every entity that
// already carries a Transformable.
func (s *TransformableSystem) Setup(ctx *coresys.Context) {
	s.log = ctx.Log.Named("transformable")
	s.cancel = s.store.Transforms.OnRemoved(func(id ecs.EntityID, _ *component.Transformable) {
		s.release(id)
	})
	s.store.Transforms.Each(func(id ecs.EntityID, t *component.Transformable) {
		s.upsert(id, t)
	})
	s.grown = s.tree.Grown()
	s.log.Info("transformable ready",
		zap.Int("rows", s.rows.Len()),
		zap.Int("nodes", s.tree.NodeCount()))
}

// Tick processes only transforms changed since the previous tick.
func (s *TransformableSystem) Tick(ctx *coresys.Context) {
	s.tracker.Begin()
	s.store.Transforms.EachChanged(func(id ecs.EntityID, t *component.Transformable) {
		idx := s.upsert(id, t)
		s.tracker.Touch(id, idx)
	})

	if g := s.tree.Grown(); g != s.grown {
		s.grown = g
		root := s.tree.Root()
		s.log.Debug("octree root grew",
			zap.Float32("extent", root.Extent),
			zap.Int("nodes", s.tree.NodeCount()))
		if ctx.Bus != nil {
			event.Emit(ctx.Bus, event.OctreeGrown{
				Tick:   ctx.Tick,
				Extent: root.Extent,
				Nodes:  s.tree.NodeCount(),
			})
		}
	}
	if s.cfg.Audit {
		s.tree.MustAudit()
	}
}

// Destroy returns every row to the allocator and checks none leaked.
func (s *TransformableSystem) Destroy(ctx *coresys.Context) {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	count := s.rows.Len()
	ids := append([]ecs.EntityID(nil), s.rows.IDs()...)
	for _, id := range ids {
		s.release(id)
	}
	s.alloc.CheckLeaks()
	s.log.Info("transforms released",
		zap.Int("count", count),
		zap.Int("high_water", s.alloc.HighWater()))
	if ctx.Bus != nil {
		event.Emit(ctx.Bus, event.TransformsReleased{Count: count, HighWater: s.alloc.HighWater()})
	}
}

func (s *TransformableSystem) upsert(id ecs.EntityID, t *component.Transformable) transform.Index {
	idx, ok := s.index(id)
	if !ok {
		idx = s.alloc.Alloc()
		s.rows.Insert(id, idx)
		s.buffer.Acquire(idx)
	}
	s.tree.InsertOrUpdate(id, idx, GlobalAABB(t))
	s.buffer.Set(idx, t.World)
	return idx
}

func (s *TransformableSystem) release(id ecs.EntityID) {
	idx, ok := s.index(id)
	if !ok {
		return
	}
	s.tree.Remove(idx)
	s.buffer.Release(idx)
	s.tracker.Forget(id)
	s.rows.Erase(id)
	s.alloc.Free(idx)
}

func (s *TransformableSystem) index(id ecs.EntityID) (transform.Index, bool) {
	p, ok := s.rows.Get(id)
	if !ok {
		return transform.NoIndex, false
	}
	return *p, true
}

// IndexOf returns the transform row assigned to id.
func (s *TransformableSystem) IndexOf(id ecs.EntityID) (transform.Index, bool) {
	return s.index(id)
}

// TransformBuffer is the upload buffer a renderer reads rows from.
func (s *TransformableSystem) TransformBuffer() *transform.Buffer { return s.buffer }

func (s *TransformableSystem) Octree() *octree.Octree { return s.tree }
func (s *TransformableSystem) Tracker() *tracking.Tracker { return s.tracker }
func (s *TransformableSystem) Allocator() *transform.IndexAllocator { return s.alloc }

// FindVisible returns the entities whose boxes may intersect f. The result is
// conservative: everything visible is included, and some invisible entities
// may be.
func (s *TransformableSystem) FindVisible(f geom.Frustum, farDist float32, stats *octree.Stats) []ecs.EntityID {
	return s.tree.FindVisible(f, farDist, stats)
}

// GlobalAABB is the Transformable's local bounds in world space.
func GlobalAABB(t *component.Transformable) geom.AABB {
	return t.Bounds.Transform(t.World)
}

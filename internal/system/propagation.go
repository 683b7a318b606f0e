package system

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/l1jgo/scenecore/internal/component"
	"github.com/l1jgo/scenecore/internal/core/ecs"
	coresys "github.com/l1jgo/scenecore/internal/core/system"
)

// TransformPropagationSystem recomputes World = parent World × local for
// every changed Transformable and for all of its descendants, parents first.
type TransformPropagationSystem struct {
	store *component.Store
	after []string

	order []queued
}

type queued struct {
	id    ecs.EntityID
	depth int
}

// NewTransformPropagationSystem returns the system. after names the systems
// that write local transforms and must run first.
func NewTransformPropagationSystem(store *component.Store, after ...string) *TransformPropagationSystem {
	return &TransformPropagationSystem{store: store, after: after}
}

func (s *TransformPropagationSystem) Name() string    { return "transform_propagation" }
func (s *TransformPropagationSystem) After() []string { return s.after }

func (s *TransformPropagationSystem) Setup(ctx *coresys.Context) {
	s.store.Transforms.Each(func(id ecs.EntityID, _ *component.Transformable) {
		s.store.Transforms.MarkChanged(id)
	})
	s.propagate(ctx.World)
}

func (s *TransformPropagationSystem) Tick(ctx *coresys.Context) {
	s.propagate(ctx.World)
}

func (s *TransformPropagationSystem) Destroy(_ *coresys.Context) {
	s.order = nil
}

func (s *TransformPropagationSystem) propagate(w *ecs.World) {
	tf := s.store.Transforms
	if tf.ChangedLen() == 0 {
		return
	}

	// Children of changed entities are marked too. EachChanged visits ids
	// marked during the walk, so this closes over whole subtrees.
	s.order = s.order[:0]
	tf.EachChanged(func(id ecs.EntityID, _ *component.Transformable) {
		s.order = append(s.order, queued{id: id, depth: depth(w, id)})
		w.Children(id, func(child ecs.EntityID) {
			tf.MarkChanged(child)
		})
	})
	sort.SliceStable(s.order, func(i, j int) bool {
		return s.order[i].depth < s.order[j].depth
	})

	for _, q := range s.order {
		t, ok := tf.Get(q.id)
		if !ok {
			continue
		}
		parent := mgl32.Ident4()
		if p := w.Parent(q.id); !p.IsZero() {
			if pt, ok := tf.Get(p); ok {
				parent = pt.World
			}
		}
		t.World = parent.Mul4(LocalMatrix(t))
	}
}

func depth(w *ecs.World, id ecs.EntityID) int {
	d := 0
	for p := w.Parent(id); !p.IsZero(); p = w.Parent(p) {
		d++
	}
	return d
}

// LocalMatrix composes translation, rotation and scale.
func LocalMatrix(t *component.Transformable) mgl32.Mat4 {
	return mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z()).
		Mul4(t.Rotation.Mat4()).
		Mul4(mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
}

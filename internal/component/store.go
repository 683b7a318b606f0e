package component

import "github.com/l1jgo/scenecore/internal/core/ecs"

// Store holds one ComponentSet per scene component type, registered with the
// world so entity destruction and end-of-tick change clearing reach them.
type Store struct {
	Transforms *ecs.ComponentSet[Transformable]
	Motions    *ecs.ComponentSet[Motion]
	Cameras    *ecs.ComponentSet[Camera]
}

func NewStore(w *ecs.World) *Store {
	s := &Store{
		Transforms: ecs.NewComponentSet[Transformable](),
		Motions:    ecs.NewComponentSet[Motion](),
		Cameras:    ecs.NewComponentSet[Camera](),
	}
	r := w.Registry()
	r.Register(s.Transforms)
	r.Register(s.Motions)
	r.Register(s.Cameras)
	return s
}

package component

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/l1jgo/scenecore/internal/core/geom"
)

// Transformable places an entity in the scene.
// Pure data, zero methods. Position, Rotation and Scale are relative to the
// parent entity; World is written by the propagation system.
type Transformable struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
	World    mgl32.Mat4

	// Bounds is the entity's box in its own space. The octree stores it
	// transformed by World.
	Bounds geom.AABB
}

// NewTransformable returns an identity transform at pos with the given
// local bounds.
func NewTransformable(pos mgl32.Vec3, bounds geom.AABB) Transformable {
	return Transformable{
		Position: pos,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
		World:    mgl32.Ident4(),
		Bounds:   bounds,
	}
}

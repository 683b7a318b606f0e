package component

import "github.com/go-gl/mathgl/mgl32"

// Camera is a viewpoint the visibility system queries every tick.
type Camera struct {
	Name   string
	Eye    mgl32.Vec3
	Target mgl32.Vec3
	Up     mgl32.Vec3
	FovY   float32 // degrees
	Aspect float32
	Near   float32
	Far    float32

	// FarDist culls anything farther than this from Eye. Zero disables it.
	FarDist float32
}

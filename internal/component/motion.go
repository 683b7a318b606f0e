package component

import "github.com/go-gl/mathgl/mgl32"

// Motion drives an entity's Position from a named Lua function.
type Motion struct {
	Script  string     // global function name, e.g. "orbit"
	Origin  mgl32.Vec3 // argument passed to the script each tick
	Phase   float32
	Elapsed float64 // seconds since the motion started
}

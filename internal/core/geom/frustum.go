package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Intersection classifies a volume against a frustum.
type Intersection int

const (
	Outside Intersection = iota
	Intersects
	Inside
)

func (i Intersection) String() string {
	switch i {
	case Outside:
		return "outside"
	case Inside:
		return "inside"
	default:
		return "intersects"
	}
}

// Plane is n·p + d = 0 with n pointing into the kept half-space.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

func (p Plane) Distance(v mgl32.Vec3) float32 {
	return p.Normal.Dot(v) + p.D
}

// Frustum is a convex view volume plus the camera position used for the
// far-distance cutoff. A frustum with no planes accepts everything.
type Frustum struct {
	Planes   []Plane
	Position mgl32.Vec3
}

// NewFrustum extracts the six clip planes from an OpenGL-style
// view-projection matrix.
func NewFrustum(viewProj mgl32.Mat4, eye mgl32.Vec3) Frustum {
	r0, r1, r2, r3 := viewProj.Row(0), viewProj.Row(1), viewProj.Row(2), viewProj.Row(3)
	raw := [6]mgl32.Vec4{
		r3.Add(r0), // left
		r3.Sub(r0), // right
		r3.Add(r1), // bottom
		r3.Sub(r1), // top
		r3.Add(r2), // near
		r3.Sub(r2), // far
	}
	f := Frustum{Planes: make([]Plane, 0, 6), Position: eye}
	for _, v := range raw {
		n := v.Vec3()
		l := n.Len()
		if l == 0 {
			continue
		}
		f.Planes = append(f.Planes, Plane{Normal: n.Mul(1 / l), D: v.W() / l})
	}
	return f
}

// PerspectiveFrustum builds the frustum of a look-at perspective camera.
// fovY is in degrees.
func PerspectiveFrustum(eye, target, up mgl32.Vec3, fovY, aspect, near, far float32) Frustum {
	proj := mgl32.Perspective(mgl32.DegToRad(fovY), aspect, near, far)
	view := mgl32.LookAtV(eye, target, up)
	return NewFrustum(proj.Mul4(view), eye)
}

// InfiniteFrustum returns a frustum that contains all of space.
func InfiniteFrustum() Frustum {
	return Frustum{}
}

// Intersection classifies box against the frustum, treating everything
// farther than farDist from the camera as outside. Pass math.Inf(1) (or any
// non-positive value) to disable the cutoff.
func (f Frustum) Intersection(box AABB, farDist float32) Intersection {
	result := Inside

	if farDist > 0 && !math.IsInf(float64(farDist), 1) {
		far2 := farDist * farDist
		if box.DistanceSq(f.Position) > far2 {
			return Outside
		}
		if box.FarthestDistanceSq(f.Position) > far2 {
			result = Intersects
		}
	}

	for _, p := range f.Planes {
		var pos, neg mgl32.Vec3
		for i := 0; i < 3; i++ {
			if p.Normal[i] >= 0 {
				pos[i], neg[i] = box.Max[i], box.Min[i]
			} else {
				pos[i], neg[i] = box.Min[i], box.Max[i]
			}
		}
		if p.Distance(pos) < 0 {
			return Outside
		}
		if p.Distance(neg) < 0 {
			result = Intersects
		}
	}
	return result
}

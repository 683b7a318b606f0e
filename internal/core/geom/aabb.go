// Package geom holds the bounding-volume math shared by the octree and the
// visibility query. All types are plain values built on mgl32.
package geom

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box. Min <= Max componentwise for any
// non-empty box.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyAABB returns a box that contains nothing and absorbs any point
// passed to Extend.
func EmptyAABB() AABB {
	inf := float32(math.Inf(1))
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

func NewAABB(min, max mgl32.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// FromCenterExtent builds a box from its center and half-size.
func FromCenterExtent(center, halfExtent mgl32.Vec3) AABB {
	return AABB{Min: center.Sub(halfExtent), Max: center.Add(halfExtent)}
}

// Empty reports whether the box has no volume to speak of: any axis with
// Min > Max, or any NaN component.
func (b AABB) Empty() bool {
	for i := 0; i < 3; i++ {
		if !(b.Min[i] <= b.Max[i]) {
			return true
		}
	}
	return false
}

// Finite reports whether every component is a finite number.
func (b AABB) Finite() bool {
	for i := 0; i < 3; i++ {
		for _, v := range [2]float32{b.Min[i], b.Max[i]} {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return false
			}
		}
	}
	return true
}

func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b AABB) HalfExtent() mgl32.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

// Contains reports whether o lies entirely inside b.
func (b AABB) Contains(o AABB) bool {
	for i := 0; i < 3; i++ {
		if o.Min[i] < b.Min[i] || o.Max[i] > b.Max[i] {
			return false
		}
	}
	return true
}

func (b AABB) ContainsPoint(p mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

func (b AABB) Intersects(o AABB) bool {
	for i := 0; i < 3; i++ {
		if o.Max[i] < b.Min[i] || o.Min[i] > b.Max[i] {
			return false
		}
	}
	return true
}

func (b AABB) Extend(p mgl32.Vec3) AABB {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
	return b
}

// Transform returns the box enclosing b after applying m.
func (b AABB) Transform(m mgl32.Mat4) AABB {
	out := EmptyAABB()
	for i := 0; i < 8; i++ {
		corner := mgl32.Vec3{
			pick(i&1 != 0, b.Max[0], b.Min[0]),
			pick(i&2 != 0, b.Max[1], b.Min[1]),
			pick(i&4 != 0, b.Max[2], b.Min[2]),
		}
		out = out.Extend(mgl32.TransformCoordinate(corner, m))
	}
	return out
}

// DistanceSq returns the squared distance from p to the nearest point of b.
func (b AABB) DistanceSq(p mgl32.Vec3) float32 {
	var d float32
	for i := 0; i < 3; i++ {
		switch {
		case p[i] < b.Min[i]:
			d += (b.Min[i] - p[i]) * (b.Min[i] - p[i])
		case p[i] > b.Max[i]:
			d += (p[i] - b.Max[i]) * (p[i] - b.Max[i])
		}
	}
	return d
}

// FarthestDistanceSq returns the squared distance from p to the farthest
// corner of b.
func (b AABB) FarthestDistanceSq(p mgl32.Vec3) float32 {
	var d float32
	for i := 0; i < 3; i++ {
		a := max(abs32(p[i]-b.Min[i]), abs32(p[i]-b.Max[i]))
		d += a * a
	}
	return d
}

func (b AABB) String() string {
	return fmt.Sprintf("[%v %v %v]-[%v %v %v]", b.Min[0], b.Min[1], b.Min[2], b.Max[0], b.Max[1], b.Max[2])
}

func pick(cond bool, a, b float32) float32 {
	if cond {
		return a
	}
	return b
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

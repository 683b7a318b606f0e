package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func box(x0, y0, z0, x1, y1, z1 float32) AABB {
	return NewAABB(mgl32.Vec3{x0, y0, z0}, mgl32.Vec3{x1, y1, z1})
}

func TestAABBBasics(t *testing.T) {
	b := box(-1, -1, -1, 1, 1, 1)
	if b.Empty() || !b.Finite() {
		t.Fatalf("unit box reported empty or non-finite")
	}
	if !EmptyAABB().Empty() {
		t.Fatalf("EmptyAABB not empty")
	}
	if !box(0, 0, 0, 0, 0, 0).Contains(box(0, 0, 0, 0, 0, 0)) {
		t.Fatalf("point box should contain itself")
	}
	if !b.Contains(box(-0.5, -0.5, -0.5, 0.5, 0.5, 0.5)) {
		t.Fatalf("Contains inner box failed")
	}
	if b.Contains(box(0, 0, 0, 2, 0.5, 0.5)) {
		t.Fatalf("Contains overlapping box should fail")
	}
	nan := float32(math.NaN())
	if !box(nan, 0, 0, 1, 1, 1).Empty() {
		t.Fatalf("NaN box should be empty")
	}

	moved := b.Transform(mgl32.Translate3D(10, 0, 0))
	if moved.Center().Sub(mgl32.Vec3{10, 0, 0}).Len() > 1e-5 {
		t.Fatalf("translated center = %v", moved.Center())
	}
	scaled := b.Transform(mgl32.Scale3D(2, 2, 2))
	if scaled.HalfExtent().Sub(mgl32.Vec3{2, 2, 2}).Len() > 1e-5 {
		t.Fatalf("scaled extent = %v", scaled.HalfExtent())
	}

	if d := b.DistanceSq(mgl32.Vec3{3, 0, 0}); d != 4 {
		t.Fatalf("DistanceSq = %v, want 4", d)
	}
	if d := b.FarthestDistanceSq(mgl32.Vec3{0, 0, 0}); d != 3 {
		t.Fatalf("FarthestDistanceSq = %v, want 3", d)
	}
}

func TestFrustumIntersection(t *testing.T) {
	// camera at origin looking down -Z
	f := PerspectiveFrustum(
		mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0},
		90, 1, 0.1, 100,
	)
	inf := float32(math.Inf(1))

	cases := []struct {
		name    string
		box     AABB
		farDist float32
		want    Intersection
	}{
		{"in_front", box(-1, -1, -11, 1, 1, -9), inf, Inside},
		{"behind", box(-1, -1, 9, 1, 1, 11), inf, Outside},
		{"far_left", box(-100, -1, -11, -90, 1, -9), inf, Outside},
		{"straddles_left_plane", box(-12, -1, -11, -8, 1, -9), inf, Intersects},
		{"past_far_plane", box(-1, -1, -300, 1, 1, -200), inf, Outside},
		{"beyond_far_dist", box(-1, -1, -51, 1, 1, -49), 20, Outside},
		{"straddles_far_dist", box(-1, -1, -21, 1, 1, -19), 20, Intersects},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := f.Intersection(c.box, c.farDist); got != c.want {
				t.Fatalf("Intersection = %s, want %s", got, c.want)
			}
		})
	}
}

func TestInfiniteFrustumAcceptsAll(t *testing.T) {
	f := InfiniteFrustum()
	if got := f.Intersection(box(-1e6, -1e6, -1e6, 1e6, 1e6, 1e6), float32(math.Inf(1))); got != Inside {
		t.Fatalf("Intersection = %s, want inside", got)
	}
}

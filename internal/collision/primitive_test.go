package collision

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// vecNear compares componentwise with an absolute tolerance.
func vecNear(a, b mgl64.Vec3, eps float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func TestPlanePenetration(t *testing.T) {
	plane := NewPlane(0.8, 0, 0.1)

	tests := []struct {
		name  string
		point mgl64.Vec3
		hit   bool
		depth float64
	}{
		{"above", mgl64.Vec3{0, 0, 0.5}, false, 0},
		{"on surface", mgl64.Vec3{3, -2, 0.1}, false, 0},
		{"below", mgl64.Vec3{1, 1, 0.07}, true, 0.03},
		{"far below", mgl64.Vec3{0, 0, -1}, true, 1.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, depth, n := plane.Penetration(tt.point)
			if hit != tt.hit {
				t.Fatalf("hit = %v, want %v", hit, tt.hit)
			}
			if math.Abs(depth-tt.depth) > 1e-12 {
				t.Errorf("depth = %g, want %g", depth, tt.depth)
			}
			if hit && n != (mgl64.Vec3{0, 0, 1}) {
				t.Errorf("normal = %v, want +z", n)
			}
		})
	}
}

func TestBoxPenetration(t *testing.T) {
	box := NewBox(0.5, 0, 2, 1, 0.4, mgl64.Vec3{0, 0, 0.2}, mgl64.Ident3())

	tests := []struct {
		name   string
		point  mgl64.Vec3
		hit    bool
		depth  float64
		normal mgl64.Vec3
	}{
		{"outside", mgl64.Vec3{5, 0, 0.2}, false, 0, mgl64.Vec3{}},
		{"on face", mgl64.Vec3{0, 0, 0.4}, false, 0, mgl64.Vec3{}},
		{"near top", mgl64.Vec3{0.1, 0, 0.38}, true, 0.02, mgl64.Vec3{0, 0, 1}},
		{"near -x face", mgl64.Vec3{-0.95, 0, 0.2}, true, 0.05, mgl64.Vec3{-1, 0, 0}},
		{"near +y face", mgl64.Vec3{0.2, 0.49, 0.25}, true, 0.01, mgl64.Vec3{0, 1, 0}},
		{"tie picks lowest axis", mgl64.Vec3{0.9, 0.4, 0.2}, true, 0.1, mgl64.Vec3{1, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, depth, n := box.Penetration(tt.point)
			if hit != tt.hit {
				t.Fatalf("hit = %v, want %v", hit, tt.hit)
			}
			if !hit {
				return
			}
			if math.Abs(depth-tt.depth) > 1e-9 {
				t.Errorf("depth = %g, want %g", depth, tt.depth)
			}
			if !vecNear(n, tt.normal, 1e-12) {
				t.Errorf("normal = %v, want %v", n, tt.normal)
			}
		})
	}
}

func TestRotatedBoxNormal(t *testing.T) {
	// yawed 90deg: the box x axis points along world y
	box := NewBox(0.5, 0, 2, 1, 1, mgl64.Vec3{}, OrientationZYX(math.Pi/2, 0, 0))

	hit, depth, n := box.Penetration(mgl64.Vec3{0, 0.95, 0})
	if !hit {
		t.Fatal("point inside the rotated box was not detected")
	}
	if math.Abs(depth-0.05) > 1e-9 {
		t.Errorf("depth = %g, want 0.05", depth)
	}
	if !vecNear(n, mgl64.Vec3{0, 1, 0}, 1e-9) {
		t.Errorf("normal = %v, want +y", n)
	}

	if hit, _, _ := box.Penetration(mgl64.Vec3{0.95, 0, 0}); hit {
		t.Error("point beyond the rotated box's short side was reported inside")
	}
}

func TestBoxTopMatchesPlane(t *testing.T) {
	box := NewBox(1, 0, 100, 100, 1, mgl64.Vec3{0, 0, -0.5}, mgl64.Ident3())
	plane := NewPlane(1, 0, 0)

	for _, z := range []float64{0.2, -0.001, -0.05, -0.3} {
		p := mgl64.Vec3{1.5, -2, z}
		bh, bd, bn := box.Penetration(p)
		ph, pd, pn := plane.Penetration(p)
		if bh != ph || math.Abs(bd-pd) > 1e-12 || bn != pn {
			t.Errorf("z=%g: box (%v, %g, %v), plane (%v, %g, %v)", z, bh, bd, bn, ph, pd, pn)
		}
	}
}

func TestOrientationZYX(t *testing.T) {
	r := OrientationZYX(0.3, -0.2, 0.7)
	if math.Abs(r.Det()-1) > 1e-12 {
		t.Errorf("det = %g, want 1", r.Det())
	}
	// pitch alone tilts x toward -z
	p := OrientationZYX(0, math.Pi/2, 0).Mul3x1(mgl64.Vec3{1, 0, 0})
	if !vecNear(p, mgl64.Vec3{0, 0, -1}, 1e-12) {
		t.Errorf("pitch 90deg maps x to %v, want -z", p)
	}
}

func TestKindString(t *testing.T) {
	if Plane.String() != "plane" || Box.String() != "box" {
		t.Errorf("kinds = %q, %q", Plane, Box)
	}
	if Kind(7).String() != "Kind(7)" {
		t.Errorf("unknown kind = %q", Kind(7))
	}
}

// Package collision holds the static scene geometry that ground contacts are
// tested against.
package collision

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type Kind int

const (
	Plane Kind = iota
	Box
)

func (k Kind) String() string {
	switch k {
	case Plane:
		return "plane"
	case Box:
		return "box"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Primitive is a static shape with contact material properties. Values are
// immutable once built; use NewPlane or NewBox.
type Primitive struct {
	kind        Kind
	mu          float64
	restitution float64

	// plane
	height float64

	// box
	half mgl64.Vec3
	pos  mgl64.Vec3
	ori  mgl64.Mat3 // box -> world
}

// NewPlane is the horizontal half-space z < height.
func NewPlane(mu, restitution, height float64) Primitive {
	return Primitive{kind: Plane, mu: mu, restitution: restitution, height: height}
}

// NewBox is a solid box with full side lengths depth (x), width (y) and
// height (z) centred on pos. ori rotates box-frame vectors into world.
func NewBox(mu, restitution, depth, width, height float64, pos mgl64.Vec3, ori mgl64.Mat3) Primitive {
	return Primitive{
		kind:        Box,
		mu:          mu,
		restitution: restitution,
		half:        mgl64.Vec3{depth / 2, width / 2, height / 2},
		pos:         pos,
		ori:         ori,
	}
}

func (p Primitive) Kind() Kind              { return p.kind }
func (p Primitive) Mu() float64             { return p.mu }
func (p Primitive) Restitution() float64    { return p.restitution }
func (p Primitive) Height() float64         { return p.height }
func (p Primitive) HalfExtents() mgl64.Vec3 { return p.half }
func (p Primitive) Position() mgl64.Vec3    { return p.pos }
func (p Primitive) Orientation() mgl64.Mat3 { return p.ori }

// Penetration reports whether point is inside the primitive and, if so, how
// deep and along which outward unit normal.
func (p Primitive) Penetration(point mgl64.Vec3) (bool, float64, mgl64.Vec3) {
	switch p.kind {
	case Plane:
		if point[2] < p.height {
			return true, p.height - point[2], mgl64.Vec3{0, 0, 1}
		}
		return false, 0, mgl64.Vec3{}
	case Box:
		return p.boxPenetration(point)
	default:
		panic(fmt.Sprintf("collision: unknown primitive kind %v", p.kind))
	}
}

func (p Primitive) boxPenetration(point mgl64.Vec3) (bool, float64, mgl64.Vec3) {
	local := p.ori.Transpose().Mul3x1(point.Sub(p.pos))

	axis, depth := -1, math.Inf(1)
	for i := 0; i < 3; i++ {
		gap := p.half[i] - math.Abs(local[i])
		if gap <= 0 {
			return false, 0, mgl64.Vec3{}
		}
		if gap < depth {
			axis, depth = i, gap
		}
	}

	var n mgl64.Vec3
	n[axis] = 1
	if local[axis] < 0 {
		n[axis] = -1
	}
	return true, depth, p.ori.Mul3x1(n)
}

// OrientationZYX builds a rotation from yaw (z), then pitch (y), then roll
// (x) angles in radians.
func OrientationZYX(yaw, pitch, roll float64) mgl64.Mat3 {
	return mgl64.Rotate3DZ(yaw).Mul3(mgl64.Rotate3DY(pitch)).Mul3(mgl64.Rotate3DX(roll))
}

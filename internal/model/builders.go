package model

import (
	"github.com/san-kum/legsim/internal/spatial"
)

// NewPointFoot is a single rigid body with one ground contact at its origin.
func NewPointFoot(mass float64) *FloatingBase {
	m := New("point", SphereInertia(mass, 0.05))
	// body 0 always exists, so this cannot fail
	_, _ = m.AddGroundContact(0, spatial.Vec3[float64]{})
	return m
}

// NewBox is a single rigid box with a ground contact on each corner.
func NewBox(mass float64, dims spatial.Vec3[float64]) *FloatingBase {
	m := New("box", BoxInertia(mass, dims))
	h := dims.Scale(0.5)
	for _, sx := range []float64{-1, 1} {
		for _, sy := range []float64{-1, 1} {
			for _, sz := range []float64{-1, 1} {
				_, _ = m.AddGroundContact(0, spatial.Vec3[float64]{sx * h[0], sy * h[1], sz * h[2]})
			}
		}
	}
	return m
}

// QuadrupedParams describes a four-legged robot with abduction, hip and
// knee joints on every leg.
type QuadrupedParams struct {
	BodyMass    float64
	BodyDims    spatial.Vec3[float64]
	HipOffset   spatial.Vec3[float64] // abduction joint, front-right leg, base frame
	AbadLink    float64               // abduction to hip, along y
	HipLink     float64
	KneeLink    float64
	AbadMass    float64
	HipMass     float64
	KneeMass    float64
	LinkInertia float64
}

// MiniCheetahParams approximates the MIT Mini Cheetah.
func MiniCheetahParams() QuadrupedParams {
	return QuadrupedParams{
		BodyMass:    3.3,
		BodyDims:    spatial.Vec3[float64]{0.38, 0.098, 0.1},
		HipOffset:   spatial.Vec3[float64]{0.19, -0.049, 0},
		AbadLink:    0.062,
		HipLink:     0.209,
		KneeLink:    0.195,
		AbadMass:    0.54,
		HipMass:     0.634,
		KneeMass:    0.064,
		LinkInertia: 5e-4,
	}
}

// LegNames lists legs in joint order.
var LegNames = [4]string{"FR", "FL", "HR", "HL"}

var (
	axisX = spatial.Vec3[float64]{1, 0, 0}
	axisY = spatial.Vec3[float64]{0, 1, 0}
)

// NewQuadruped builds the quadruped. Joints are ordered leg by leg
// (abduction, hip, knee) following LegNames; each leg has one foot contact.
func NewQuadruped(p QuadrupedParams) (*FloatingBase, error) {
	m := New("quadruped", BoxInertia(p.BodyMass, p.BodyDims))
	link := func(mass float64, com spatial.Vec3[float64]) Inertia {
		return Inertia{Mass: mass, COM: com, Rotational: spatial.Diag3(p.LinkInertia, p.LinkInertia, p.LinkInertia)}
	}

	for leg, name := range LegNames {
		sx, sy := 1.0, -1.0
		if leg >= 2 {
			sx = -1
		}
		if leg%2 == 1 {
			sy = 1
		}
		hip := spatial.Vec3[float64]{sx * p.HipOffset[0], sy * -p.HipOffset[1], p.HipOffset[2]}

		abad, err := m.AddBody(name+"_abad", 0, RevoluteJoint(axisX),
			spatial.Translation(hip), link(p.AbadMass, spatial.Vec3[float64]{0, sy * p.AbadLink / 2, 0}))
		if err != nil {
			return nil, err
		}
		thigh, err := m.AddBody(name+"_hip", abad, RevoluteJoint(axisY),
			spatial.Translation(spatial.Vec3[float64]{0, sy * p.AbadLink, 0}), link(p.HipMass, spatial.Vec3[float64]{0, 0, -p.HipLink / 2}))
		if err != nil {
			return nil, err
		}
		shank, err := m.AddBody(name+"_knee", thigh, RevoluteJoint(axisY),
			spatial.Translation(spatial.Vec3[float64]{0, 0, -p.HipLink}), link(p.KneeMass, spatial.Vec3[float64]{0, 0, -p.KneeLink / 2}))
		if err != nil {
			return nil, err
		}
		if _, err := m.AddGroundContact(shank, spatial.Vec3[float64]{0, 0, -p.KneeLink}); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// StandingPose returns joint angles that put all four feet below their hips.
func StandingPose() []float64 {
	q := make([]float64, 12)
	for leg := 0; leg < 4; leg++ {
		q[leg*3+1] = -0.8
		q[leg*3+2] = 1.6
	}
	return q
}

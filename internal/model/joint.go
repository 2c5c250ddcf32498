package model

import "github.com/san-kum/legsim/internal/spatial"

type JointType int

const (
	Revolute JointType = iota
	Prismatic
)

func (t JointType) String() string {
	switch t {
	case Revolute:
		return "revolute"
	case Prismatic:
		return "prismatic"
	default:
		return "unknown"
	}
}

// Joint connects a body to its parent. Axis is a unit vector in the child
// frame.
type Joint struct {
	Type JointType
	Axis spatial.Vec3[float64]
}

func RevoluteJoint(axis spatial.Vec3[float64]) Joint {
	return Joint{Type: Revolute, Axis: axis}
}

func PrismaticJoint(axis spatial.Vec3[float64]) Joint {
	return Joint{Type: Prismatic, Axis: axis}
}

// MotionSubspace is the joint's S vector.
func (j Joint) MotionSubspace() spatial.SVec[float64] {
	if j.Type == Prismatic {
		return spatial.MakeSVec(spatial.Vec3[float64]{}, j.Axis)
	}
	return spatial.MakeSVec(j.Axis, spatial.Vec3[float64]{})
}

// Transform is the joint transform XJ(q) from the joint's parent-side frame
// to the child frame.
func (j Joint) Transform(q float64) spatial.Xform[float64] {
	if j.Type == Prismatic {
		return spatial.Translation(j.Axis.Scale(q))
	}
	return spatial.Rotation(spatial.AxisAngle(j.Axis, q))
}

// Inertia describes a rigid body in its own frame.
type Inertia struct {
	Mass float64
	COM  spatial.Vec3[float64]
	// Rotational is the rotational inertia about the centre of mass.
	Rotational spatial.Mat3[float64]
}

func (in Inertia) Spatial() spatial.Mat6[float64] {
	return spatial.RigidInertia(in.Mass, in.COM, in.Rotational)
}

// BoxInertia is the inertia of a solid box with full side lengths dims,
// centred on the body origin.
func BoxInertia(mass float64, dims spatial.Vec3[float64]) Inertia {
	x2, y2, z2 := dims[0]*dims[0], dims[1]*dims[1], dims[2]*dims[2]
	k := mass / 12
	return Inertia{
		Mass:       mass,
		Rotational: spatial.Diag3(k*(y2+z2), k*(x2+z2), k*(x2+y2)),
	}
}

// SphereInertia is the inertia of a solid sphere centred on the body origin.
func SphereInertia(mass, radius float64) Inertia {
	i := 0.4 * mass * radius * radius
	return Inertia{Mass: mass, Rotational: spatial.Diag3(i, i, i)}
}

package integrators

import (
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/legsim/internal/dynamo"
)

// smallAngle is the rotation below which the exponential map falls back to
// its first-order form.
const smallAngle = 1e-10

// SemiImplicitEuler updates velocities first and then integrates positions
// with the new velocities.
type SemiImplicitEuler struct{}

func NewSemiImplicitEuler() *SemiImplicitEuler {
	return &SemiImplicitEuler{}
}

func (e *SemiImplicitEuler) Integrate(s *dynamo.RobotState, d dynamo.StateDerivative, dt float64) {
	floats.AddScaled(s.Qd, dt, d.Qdd)
	s.BodyVelocity = s.BodyVelocity.Add(d.BodyAcceleration.Scale(dt))

	lin := mgl64.Vec3(s.BodyVelocity.Linear())
	s.BodyPosition = s.BodyPosition.Add(s.BodyOrientation.Rotate(lin).Mul(dt))
	s.BodyOrientation = IntegrateQuat(s.BodyOrientation, mgl64.Vec3(s.BodyVelocity.Angular()), dt)
	floats.AddScaled(s.Q, dt, s.Qd)
}

// ExplicitEuler integrates positions with the velocities from the start of
// the step. It drifts faster and is kept for comparison.
type ExplicitEuler struct {
	qd []float64
}

func NewExplicitEuler() *ExplicitEuler {
	return &ExplicitEuler{}
}

func (e *ExplicitEuler) Integrate(s *dynamo.RobotState, d dynamo.StateDerivative, dt float64) {
	if len(e.qd) != len(s.Qd) {
		e.qd = make([]float64, len(s.Qd))
	}
	copy(e.qd, s.Qd)
	v := s.BodyVelocity

	s.BodyPosition = s.BodyPosition.Add(d.BodyPositionRate.Mul(dt))
	s.BodyOrientation = IntegrateQuat(s.BodyOrientation, mgl64.Vec3(v.Angular()), dt)
	floats.AddScaled(s.Q, dt, e.qd)

	floats.AddScaled(s.Qd, dt, d.Qdd)
	s.BodyVelocity = v.Add(d.BodyAcceleration.Scale(dt))
}

// IntegrateQuat rotates the body->world quaternion q by the body-frame
// angular velocity omega for dt and renormalises.
func IntegrateQuat(q mgl64.Quat, omega mgl64.Vec3, dt float64) mgl64.Quat {
	angle := omega.Len() * dt
	var dq mgl64.Quat
	if angle < smallAngle {
		dq = mgl64.Quat{W: 1, V: omega.Mul(dt / 2)}
	} else {
		dq = mgl64.QuatRotate(angle, omega.Normalize())
	}
	return q.Mul(dq).Normalize()
}

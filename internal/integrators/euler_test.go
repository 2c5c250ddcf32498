package integrators

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/legsim/internal/dynamo"
	"github.com/san-kum/legsim/internal/spatial"
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

func quatNear(a, b mgl64.Quat, eps float64) bool {
	return math.Abs(a.W-b.W) <= eps && vecNear(a.V, b.V, eps)
}

func fallingState() (dynamo.RobotState, dynamo.StateDerivative) {
	s := dynamo.NewRobotState(1)
	s.BodyPosition = mgl64.Vec3{0, 0, 1}
	s.Qd[0] = 2

	d := dynamo.NewStateDerivative(1)
	d.BodyAcceleration = spatial.MakeSVec(spatial.Vec3[float64]{}, spatial.Vec3[float64]{0, 0, -10})
	d.Qdd[0] = 4
	return s, d
}

func TestSemiImplicitEulerUsesNewVelocity(t *testing.T) {
	s, d := fallingState()
	NewSemiImplicitEuler().Integrate(&s, d, 0.1)

	if got := s.BodyVelocity[5]; math.Abs(got+1) > 1e-12 {
		t.Errorf("vz = %g, want -1", got)
	}
	if got := s.BodyPosition[2]; math.Abs(got-0.9) > 1e-12 {
		t.Errorf("z = %g, want 0.9", got)
	}
	if math.Abs(s.Qd[0]-2.4) > 1e-12 || math.Abs(s.Q[0]-0.24) > 1e-12 {
		t.Errorf("q, qd = %g, %g, want 0.24, 2.4", s.Q[0], s.Qd[0])
	}
}

func TestExplicitEulerUsesOldVelocity(t *testing.T) {
	s, d := fallingState()
	NewExplicitEuler().Integrate(&s, d, 0.1)

	if got := s.BodyVelocity[5]; math.Abs(got+1) > 1e-12 {
		t.Errorf("vz = %g, want -1", got)
	}
	if got := s.BodyPosition[2]; got != 1 {
		t.Errorf("z = %g, want 1", got)
	}
	if math.Abs(s.Q[0]-0.2) > 1e-12 {
		t.Errorf("q = %g, want 0.2", s.Q[0])
	}
}

func TestLinearVelocityRotatedToWorld(t *testing.T) {
	s := dynamo.NewRobotState(0)
	s.BodyOrientation = mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	s.BodyVelocity = spatial.MakeSVec(spatial.Vec3[float64]{}, spatial.Vec3[float64]{1, 0, 0})

	NewSemiImplicitEuler().Integrate(&s, dynamo.NewStateDerivative(0), 0.5)
	if !vecNear(s.BodyPosition, mgl64.Vec3{0, 0.5, 0}, 1e-12) {
		t.Errorf("position = %v, want (0, 0.5, 0)", s.BodyPosition)
	}
}

func TestIntegrateQuat(t *testing.T) {
	tests := []struct {
		name  string
		omega mgl64.Vec3
		steps int
		dt    float64
		want  mgl64.Quat
	}{
		{"at rest", mgl64.Vec3{}, 10, 0.01, mgl64.QuatIdent()},
		{"quarter turn yaw", mgl64.Vec3{0, 0, math.Pi / 2}, 100, 0.01, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})},
		{"tiny spin", mgl64.Vec3{1e-12, 0, 0}, 1, 1, mgl64.QuatRotate(1e-12, mgl64.Vec3{1, 0, 0})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := mgl64.QuatIdent()
			for i := 0; i < tt.steps; i++ {
				q = IntegrateQuat(q, tt.omega, tt.dt)
				if math.Abs(q.Len()-1) > 1e-12 {
					t.Fatalf("step %d: |q| = %.15f", i, q.Len())
				}
			}
			if !quatNear(q, tt.want, 1e-9) {
				t.Errorf("q = %v, want %v", q, tt.want)
			}
		})
	}
}

func TestIntegrateQuatBodyFrame(t *testing.T) {
	// pitched 90deg, body x points along world -z
	q0 := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})
	q := IntegrateQuat(q0, mgl64.Vec3{0.3, 0, 0}, 1)
	want := mgl64.QuatRotate(-0.3, mgl64.Vec3{0, 0, 1}).Mul(q0)
	if !quatNear(q, want, 1e-12) {
		t.Errorf("q = %v, want %v", q, want)
	}
}

package control

import (
	"errors"
	"testing"

	"github.com/san-kum/legsim/internal/dynamo"
)

func TestNone(t *testing.T) {
	ctrl := NewNone(3)
	s := dynamo.NewRobotState(3)
	s.Q[0] = 1

	u := ctrl.Compute(s, 0)
	if len(u) != 3 {
		t.Fatalf("expected 3 torques, got %d", len(u))
	}
	u[1] = 5
	for i, v := range ctrl.Compute(s, 0.1) {
		if v != 0 {
			t.Errorf("torque[%d] should be 0, got %f", i, v)
		}
	}
}

func TestJointPD(t *testing.T) {
	tests := []struct {
		name  string
		limit float64
		q, qd float64
		want  float64
	}{
		{"at target", 0, 0.5, 0, 0},
		{"below target", 0, 0.4, 0, 1},
		{"moving", 0, 0.5, 2, -0.4},
		{"clamped", 0.5, -1, 0, 0.5},
		{"clamped negative", 0.5, 2, 0, -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewJointPD(10, 0.2, tt.limit, []float64{0.5})
			s := dynamo.NewRobotState(1)
			s.Q[0], s.Qd[0] = tt.q, tt.qd

			u := ctrl.Compute(s, 0)
			if diff := u[0] - tt.want; diff > 1e-12 || diff < -1e-12 {
				t.Errorf("tau = %g, want %g", u[0], tt.want)
			}
		})
	}
}

func TestJointPDMissingTargetsHoldZero(t *testing.T) {
	ctrl := NewJointPD(2, 0, 0, nil)
	s := dynamo.NewRobotState(2)
	s.Q[1] = 1
	u := ctrl.Compute(s, 0)
	if len(u) != 2 || u[1] != -2 {
		t.Errorf("u = %v, want [0 -2]", u)
	}
}

func TestJointPDParams(t *testing.T) {
	ctrl := NewJointPD(1, 2, 3, nil)
	if err := ctrl.SetParam("Kd", 7); err != nil {
		t.Fatal(err)
	}
	if got := ctrl.GetParams()["Kd"]; got != 7 {
		t.Errorf("Kd = %g, want 7", got)
	}
	if err := ctrl.SetParam("Ki", 1); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("SetParam(Ki) err = %v", err)
	}
}

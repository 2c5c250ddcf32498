package control

import (
	"fmt"
	"math"

	"github.com/san-kum/legsim/internal/dynamo"
)

// JointPD drives every joint toward a target angle:
// tau = Kp (target - q) - Kd qd, clamped to ±Limit when Limit > 0.
type JointPD struct {
	Kp     float64
	Kd     float64
	Limit  float64
	Target []float64

	u dynamo.Control
}

var _ dynamo.Configurable = (*JointPD)(nil)

func NewJointPD(kp, kd, limit float64, target []float64) *JointPD {
	return &JointPD{
		Kp:     kp,
		Kd:     kd,
		Limit:  limit,
		Target: append([]float64(nil), target...),
		u:      make(dynamo.Control, len(target)),
	}
}

func (p *JointPD) Compute(s dynamo.RobotState, t float64) dynamo.Control {
	if len(p.u) != len(s.Q) {
		p.u = make(dynamo.Control, len(s.Q))
	}
	for i := range s.Q {
		target := 0.0
		if i < len(p.Target) {
			target = p.Target[i]
		}
		tau := p.Kp*(target-s.Q[i]) - p.Kd*s.Qd[i]
		if p.Limit > 0 {
			tau = math.Max(-p.Limit, math.Min(p.Limit, tau))
		}
		p.u[i] = tau
	}
	return p.u
}

// GetParams returns the gains by name.
func (p *JointPD) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":    p.Kp,
		"Kd":    p.Kd,
		"Limit": p.Limit,
	}
}

// SetParam adjusts a gain by name.
func (p *JointPD) SetParam(name string, value float64) error {
	switch name {
	case "Kp":
		p.Kp = value
	case "Kd":
		p.Kd = value
	case "Limit":
		p.Limit = value
	default:
		return fmt.Errorf("joint PD has no parameter %q: %w", name, dynamo.ErrParameterBounds)
	}
	return nil
}

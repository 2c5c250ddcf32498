package control

import "github.com/san-kum/legsim/internal/dynamo"

// None applies zero torque to every joint.
type None struct {
	u dynamo.Control
}

func NewNone(joints int) *None {
	return &None{
		u: make(dynamo.Control, joints),
	}
}

func (n *None) Compute(s dynamo.RobotState, t float64) dynamo.Control {
	clear(n.u)
	return n.u
}

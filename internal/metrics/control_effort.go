package metrics

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/legsim/internal/dynamo"
)

// ControlEffort is the mean L1 norm of the joint torques.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(s dynamo.Sample) {
	if len(s.Control) > 0 {
		c.sum += floats.Norm(s.Control, 1)
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

package metrics

import (
	"math"

	"github.com/san-kum/legsim/internal/dynamo"
)

// PeakContactForce is the largest single ground-contact force magnitude.
type PeakContactForce struct {
	name string
	peak float64
}

func NewPeakContactForce() *PeakContactForce {
	return &PeakContactForce{name: "peak_contact_force"}
}

func (p *PeakContactForce) Name() string { return p.name }

func (p *PeakContactForce) Observe(s dynamo.Sample) {
	for _, f := range s.ContactForces {
		p.peak = math.Max(p.peak, f.Len())
	}
}

func (p *PeakContactForce) Value() float64 { return p.peak }
func (p *PeakContactForce) Reset()         { p.peak = 0 }

// MinBaseHeight is the lowest base height seen.
type MinBaseHeight struct {
	name string
	min  float64
	seen bool
}

func NewMinBaseHeight() *MinBaseHeight {
	return &MinBaseHeight{name: "min_base_height"}
}

func (m *MinBaseHeight) Name() string { return m.name }

func (m *MinBaseHeight) Observe(s dynamo.Sample) {
	z := s.State.BodyPosition[2]
	if !m.seen || z < m.min {
		m.min, m.seen = z, true
	}
}

func (m *MinBaseHeight) Value() float64 { return m.min }

func (m *MinBaseHeight) Reset() {
	m.min, m.seen = 0, false
}

// Registry builds metrics by name.
func Registry(h dynamo.Hamiltonian, maxTilt float64) map[string]func() dynamo.Metric {
	return map[string]func() dynamo.Metric{
		"energy":             func() dynamo.Metric { return NewEnergy(h) },
		"energy_drift":       func() dynamo.Metric { return NewEnergyDrift(h) },
		"stability":          func() dynamo.Metric { return NewStability(maxTilt) },
		"control_effort":     func() dynamo.Metric { return NewControlEffort() },
		"peak_contact_force": func() dynamo.Metric { return NewPeakContactForce() },
		"min_base_height":    func() dynamo.Metric { return NewMinBaseHeight() },
	}
}

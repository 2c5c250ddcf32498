package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/legsim/internal/dynamo"
)

// Runner drives a Simulator for a fixed duration with a controller, feeding
// metrics and observers after every step.
type Runner struct {
	sim        *Simulator
	controller dynamo.Controller
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
}

// NewRunner returns a runner for s. A nil controller applies zero torques.
func NewRunner(s *Simulator, controller dynamo.Controller) *Runner {
	return &Runner{
		sim:        s,
		controller: controller,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
	}
}

func (r *Runner) Simulator() *Simulator { return r.sim }

func (r *Runner) AddMetric(m dynamo.Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o dynamo.Observer) { r.observers = append(r.observers, o) }

// Run steps the simulator from its current state. The returned result holds
// every SampleEvery-th state. Cancelling ctx stops the run and returns the
// partial result with an error wrapping dynamo.ErrContextCanceled.
func (r *Runner) Run(ctx context.Context, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	every := max(cfg.SampleEvery, 1)
	nc := r.sim.TotalGroundContactCount()

	result := &dynamo.Result{
		States:        make([]dynamo.RobotState, 0, steps/every+1),
		Controls:      make([]dynamo.Control, 0, steps/every+1),
		ContactForces: make([][]mgl64.Vec3, 0, steps/every+1),
		Times:         make([]float64, 0, steps/every+1),
		Metrics:       make(map[string]float64),
		Errors:        make([]error, 0),
	}

	for _, m := range r.metrics {
		m.Reset()
	}

	zero := make(dynamo.Control, r.sim.Model().NumJoints())
	forces := make([]mgl64.Vec3, nc)
	t := 0.0

	record := func(u dynamo.Control) {
		result.States = append(result.States, r.sim.State())
		result.Controls = append(result.Controls, append(dynamo.Control(nil), u...))
		result.ContactForces = append(result.ContactForces, append([]mgl64.Vec3(nil), forces...))
		result.Times = append(result.Times, t)
	}
	record(zero)

	initialEnergy, hasEnergy := r.energy()

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}

		u := zero
		if r.controller != nil {
			u = r.controller.Compute(r.sim.state, t)
		}

		if err := r.sim.Step(cfg.Dt, u, cfg.Kp, cfg.Kd); err != nil {
			return result, &dynamo.SimulationError{Step: i, Time: t, State: r.sim.State(), Wrapped: err}
		}
		t += cfg.Dt
		result.StepsTaken++

		for k := range forces {
			forces[k] = r.sim.ContactForce(k)
		}

		if cfg.ValidateState && !r.sim.state.IsValid() {
			result.Errors = append(result.Errors, dynamo.SimError{Time: t, Step: i, Message: "invalid state (NaN/Inf)"})
			break
		}

		sample := dynamo.Sample{State: r.sim.state, Control: u, Time: t, ContactForces: forces}
		for _, m := range r.metrics {
			m.Observe(sample)
		}
		for _, obs := range r.observers {
			obs.OnStep(sample)
		}

		if (i+1)%every == 0 || i == steps-1 {
			record(u)
		}
	}

	if hasEnergy && initialEnergy != 0 {
		final, _ := r.energy()
		result.EnergyDrift = math.Abs(final-initialEnergy) / math.Abs(initialEnergy)
	}

	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func (r *Runner) energy() (float64, bool) {
	if h, ok := r.sim.Model().(dynamo.Hamiltonian); ok {
		return h.Energy(), true
	}
	return 0, false
}

func validateConfig(cfg dynamo.Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f: %w", cfg.Dt, dynamo.ErrParameterBounds)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f: %w", cfg.Duration, dynamo.ErrParameterBounds)
	}
	if cfg.Kp < 0 || cfg.Kd < 0 {
		return fmt.Errorf("contact gains must be non-negative, got kp=%f kd=%f: %w", cfg.Kp, cfg.Kd, dynamo.ErrParameterBounds)
	}
	return nil
}

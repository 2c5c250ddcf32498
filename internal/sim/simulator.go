// Package sim advances a floating-base model through time with penalty
// ground contact.
package sim

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/legsim/internal/collision"
	"github.com/san-kum/legsim/internal/contact"
	"github.com/san-kum/legsim/internal/dynamo"
	"github.com/san-kum/legsim/internal/integrators"
	"github.com/san-kum/legsim/internal/logging"
	"github.com/san-kum/legsim/internal/spatial"
)

type Option func(*Simulator)

func WithLogger(l logging.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

func WithContactLaw(law contact.Law) Option {
	return func(s *Simulator) { s.engine = contact.NewEngine(law) }
}

func WithIntegrator(in dynamo.Integrator) Option {
	return func(s *Simulator) { s.integrator = in }
}

// Simulator borrows a model and steps it. It keeps its own copy of the robot
// state and writes it back to the model after every integration. It is not
// safe for concurrent use.
type Simulator struct {
	model      dynamo.Model
	engine     *contact.Engine
	integrator dynamo.Integrator
	logger     logging.Logger

	state dynamo.RobotState
	deriv dynamo.StateDerivative

	external []spatial.SVec[float64]
	combined []spatial.SVec[float64]

	points     []mgl64.Vec3
	velocities []mgl64.Vec3
	owners     []int
}

func New(model dynamo.Model, opts ...Option) (*Simulator, error) {
	if model == nil || model.NumBodies() < 1 {
		return nil, fmt.Errorf("simulator needs a model with a base body: %w", dynamo.ErrParameterBounds)
	}
	s := &Simulator{
		model:      model,
		engine:     contact.NewEngine(contact.DefaultLaw()),
		integrator: integrators.NewSemiImplicitEuler(),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	nb, nc := model.NumBodies(), model.NumGroundContacts()
	s.state = model.State()
	s.deriv = dynamo.NewStateDerivative(model.NumJoints())
	s.external = make([]spatial.SVec[float64], nb)
	s.combined = make([]spatial.SVec[float64], nb)
	s.points = make([]mgl64.Vec3, nc)
	s.velocities = make([]mgl64.Vec3, nc)
	s.owners = make([]int, nc)

	s.logger.Debugw("simulator created",
		"bodies", nb, "joints", model.NumJoints(), "contacts", nc,
		"policy", s.engine.Law().Policy.String())
	return s, nil
}

func (s *Simulator) Model() dynamo.Model { return s.model }

// SetState replaces the state of both the simulator and the model.
func (s *Simulator) SetState(state dynamo.RobotState) error {
	if err := s.model.SetState(state); err != nil {
		return err
	}
	s.state.CopyFrom(state)
	return nil
}

// Reset is SetState with a log line; used when a run restarts from a pose.
func (s *Simulator) Reset(state dynamo.RobotState) error {
	if err := s.SetState(state); err != nil {
		return err
	}
	clear(s.external)
	s.logger.Debugw("state reset", "position", state.BodyPosition, "joints", len(state.Q))
	return nil
}

func (s *Simulator) State() dynamo.RobotState { return s.state.Clone() }

// StateDerivative is the derivative computed by the last Step.
func (s *Simulator) StateDerivative() dynamo.StateDerivative { return s.deriv.Clone() }

// SetAllExternalForces stages one world-frame spatial force per body for the
// next Step only.
func (s *Simulator) SetAllExternalForces(forces []spatial.SVec[float64]) error {
	if len(forces) != len(s.external) {
		return fmt.Errorf("external forces for %d bodies, model has %d: %w",
			len(forces), len(s.external), dynamo.ErrDimensionMismatch)
	}
	copy(s.external, forces)
	return nil
}

func (s *Simulator) AddCollisionPlane(mu, restitution, height float64) {
	i := s.engine.Add(collision.NewPlane(mu, restitution, height))
	s.logger.Debugw("collision plane added", "index", i, "mu", mu, "height", height)
}

func (s *Simulator) AddCollisionBox(mu, restitution, depth, width, height float64, pos mgl64.Vec3, ori mgl64.Mat3) {
	i := s.engine.Add(collision.NewBox(mu, restitution, depth, width, height, pos, ori))
	s.logger.Debugw("collision box added", "index", i, "mu", mu,
		"size", mgl64.Vec3{depth, width, height}, "position", pos)
}

// Scene returns a copy of the collision primitives.
func (s *Simulator) Scene() []collision.Primitive {
	out := make([]collision.Primitive, s.engine.NumPrimitives())
	for i := range out {
		out[i] = s.engine.Primitive(i)
	}
	return out
}

func (s *Simulator) NumBodies() int { return s.model.NumBodies() }

func (s *Simulator) TotalGroundContactCount() int { return s.model.NumGroundContacts() }

// ContactForce is the world-frame force on ground contact i from the last
// Step, or zero if i is out of range.
func (s *Simulator) ContactForce(i int) mgl64.Vec3 { return s.engine.Force(i) }

// ContactStats summarises the contacts of the last Step.
func (s *Simulator) ContactStats() contact.Stats { return s.engine.Stats() }

// Step advances the simulation by dt with joint torques tau and contact
// gains kp and kd. Staged external forces apply to this step only.
func (s *Simulator) Step(dt float64, tau []float64, kp, kd float64) error {
	if len(tau) != s.model.NumJoints() {
		return fmt.Errorf("tau has %d entries, model has %d joints: %w",
			len(tau), s.model.NumJoints(), dynamo.ErrDimensionMismatch)
	}

	s.model.ForwardKinematics()
	for i := range s.points {
		s.points[i] = s.model.GroundContactPosition(i)
		s.velocities[i] = s.model.GroundContactVelocity(i)
		s.owners[i] = s.model.GroundContactBody(i)
	}

	contactForces, _ := s.engine.Resolve(s.points, s.velocities, s.owners, len(s.combined), kp, kd)
	for i := range s.combined {
		s.combined[i] = contactForces[i].Add(s.external[i])
	}

	if err := s.model.RunABA(tau, s.combined, &s.deriv); err != nil {
		return fmt.Errorf("forward dynamics: %w", err)
	}
	if err := s.Integrate(dt); err != nil {
		return err
	}
	clear(s.external)
	return nil
}

// Integrate applies the last derivative for dt and syncs the model.
func (s *Simulator) Integrate(dt float64) error {
	s.integrator.Integrate(&s.state, s.deriv, dt)
	return s.model.SetState(s.state)
}

// Kick adds delta to the base body-frame velocity.
func (s *Simulator) Kick(delta spatial.SVec[float64]) error {
	s.state.BodyVelocity = s.state.BodyVelocity.Add(delta)
	s.logger.Debugw("kick", "delta", delta)
	return s.model.SetState(s.state)
}

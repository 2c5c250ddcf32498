package dynamo

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/legsim/internal/spatial"
)

// RobotState is the mechanical state of a floating-base robot.
type RobotState struct {
	BodyPosition    mgl64.Vec3            `json:"body_position"`
	BodyOrientation mgl64.Quat            `json:"body_orientation"` // body -> world
	BodyVelocity    spatial.SVec[float64] `json:"body_velocity"`    // [w; v] in body frame
	Q               []float64             `json:"q"`
	Qd              []float64             `json:"qd"`
}

// NewRobotState returns a state at the origin with identity orientation.
func NewRobotState(numJoints int) RobotState {
	return RobotState{
		BodyOrientation: mgl64.QuatIdent(),
		Q:               make([]float64, numJoints),
		Qd:              make([]float64, numJoints),
	}
}

func (s RobotState) Clone() RobotState {
	c := s
	c.Q = append([]float64(nil), s.Q...)
	c.Qd = append([]float64(nil), s.Qd...)
	return c
}

// CopyFrom overwrites s with src, reusing s's joint slices when they fit.
func (s *RobotState) CopyFrom(src RobotState) {
	q, qd := s.Q, s.Qd
	*s = src
	if len(q) == len(src.Q) {
		copy(q, src.Q)
		s.Q = q
	} else {
		s.Q = append([]float64(nil), src.Q...)
	}
	if len(qd) == len(src.Qd) {
		copy(qd, src.Qd)
		s.Qd = qd
	} else {
		s.Qd = append([]float64(nil), src.Qd...)
	}
}

// Dim is the length of Flatten.
func (s RobotState) Dim() int {
	return 3 + 4 + 6 + len(s.Q) + len(s.Qd)
}

// Flatten lays the state out as position, quaternion (w, x, y, z),
// body velocity, joint positions and joint velocities.
func (s RobotState) Flatten() []float64 {
	out := make([]float64, 0, s.Dim())
	out = append(out, s.BodyPosition[:]...)
	out = append(out, s.BodyOrientation.W)
	out = append(out, s.BodyOrientation.V[:]...)
	out = append(out, s.BodyVelocity[:]...)
	out = append(out, s.Q...)
	out = append(out, s.Qd...)
	return out
}

// UnflattenRobotState is the inverse of Flatten.
func UnflattenRobotState(flat []float64, numJoints int) (RobotState, error) {
	s := NewRobotState(numJoints)
	if len(flat) != s.Dim() {
		return s, fmt.Errorf("flat state has %d values, want %d: %w", len(flat), s.Dim(), ErrDimensionMismatch)
	}
	copy(s.BodyPosition[:], flat[0:3])
	s.BodyOrientation.W = flat[3]
	copy(s.BodyOrientation.V[:], flat[4:7])
	copy(s.BodyVelocity[:], flat[7:13])
	copy(s.Q, flat[13:13+numJoints])
	copy(s.Qd, flat[13+numJoints:])
	return s, nil
}

func (s RobotState) IsValid() bool {
	flat := s.Flatten()
	if floats.HasNaN(flat) {
		return false
	}
	for _, v := range flat {
		if math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// OrientationError is | |q| - 1 |.
func (s RobotState) OrientationError() float64 {
	return math.Abs(s.BodyOrientation.Len() - 1)
}

// StateLabels names the columns of Flatten for a model with numJoints joints.
func StateLabels(numJoints int) []string {
	labels := []string{"x", "y", "z", "qw", "qx", "qy", "qz", "wx", "wy", "wz", "vx", "vy", "vz"}
	for i := 0; i < numJoints; i++ {
		labels = append(labels, fmt.Sprintf("q%d", i))
	}
	for i := 0; i < numJoints; i++ {
		labels = append(labels, fmt.Sprintf("qd%d", i))
	}
	return labels
}

// StateDerivative is the output of forward dynamics.
type StateDerivative struct {
	BodyPositionRate mgl64.Vec3            `json:"body_position_rate"` // world frame
	BodyAcceleration spatial.SVec[float64] `json:"body_acceleration"`  // body frame
	Qdd              []float64             `json:"qdd"`
}

func NewStateDerivative(numJoints int) StateDerivative {
	return StateDerivative{Qdd: make([]float64, numJoints)}
}

func (d StateDerivative) Clone() StateDerivative {
	c := d
	c.Qdd = append([]float64(nil), d.Qdd...)
	return c
}

type Control []float64

// Model is the articulated floating-base model driven by a simulator. The
// simulator borrows it; only one goroutine may drive it during a step.
type Model interface {
	NumBodies() int
	NumJoints() int
	NumGroundContacts() int

	State() RobotState
	SetState(s RobotState) error

	// ForwardKinematics refreshes the world-frame ground-contact positions
	// and velocities for the current state.
	ForwardKinematics()
	GroundContactPosition(i int) mgl64.Vec3
	GroundContactVelocity(i int) mgl64.Vec3
	GroundContactBody(i int) int

	// RunABA computes the state derivative for joint torques tau and
	// per-body external spatial forces expressed in world coordinates.
	RunABA(tau []float64, ext []spatial.SVec[float64], out *StateDerivative) error
}

// Hamiltonian is implemented by models that can report their total energy.
type Hamiltonian interface {
	Energy() float64
}

type Integrator interface {
	Integrate(s *RobotState, d StateDerivative, dt float64)
}

type Controller interface {
	Compute(s RobotState, t float64) Control
}

// Configurable is implemented by components with named gains that can be
// changed while a simulation runs.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Sample is what metrics and observers see after every step. State and
// ContactForces alias simulator buffers and are only valid during the call.
type Sample struct {
	State         RobotState
	Control       Control
	Time          float64
	ContactForces []mgl64.Vec3
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Sample)
}

type Config struct {
	Dt            float64
	Duration      float64
	Kp            float64
	Kd            float64
	SampleEvery   int
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.0005,
		Duration:      2.0,
		Kp:            5000,
		Kd:            100,
		SampleEvery:   10,
		ValidateState: true,
	}
}

type Result struct {
	States        []RobotState
	Controls      []Control
	ContactForces [][]mgl64.Vec3
	Times         []float64
	Metrics       map[string]float64
	EnergyDrift   float64
	StepsTaken    int
	Errors        []error
}

type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}

package experiment

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/legsim/internal/collision"
	"github.com/san-kum/legsim/internal/config"
	"github.com/san-kum/legsim/internal/dynamo"
	"github.com/san-kum/legsim/internal/logging"
	"github.com/san-kum/legsim/internal/model"
	"github.com/san-kum/legsim/internal/sim"
	"github.com/san-kum/legsim/internal/spatial"
)

// Experiment assembles a model, scene, simulator and runner from a config.
type Experiment struct {
	cfg      *config.Config
	registry *Registry
	logger   logging.Logger

	model     *model.FloatingBase
	simulator *sim.Simulator
	runner    *sim.Runner
	control   dynamo.Controller
	initial   dynamo.RobotState
}

func New(cfg *config.Config, logger logging.Logger) *Experiment {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Experiment{cfg: cfg, registry: NewRegistry(), logger: logger}
}

// Setup validates the config and builds everything Run needs.
func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	m, err := e.registry.GetModel(e.cfg)
	if err != nil {
		return err
	}
	if err := e.cfg.CheckJoints(m.NumJoints()); err != nil {
		return err
	}
	m.SetGravity(spatial.Vec3[float64](e.cfg.Gravity))

	integ, err := e.registry.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return err
	}
	law, err := e.cfg.ContactLaw()
	if err != nil {
		return err
	}

	s, err := sim.New(m,
		sim.WithLogger(e.logger.Named("sim")),
		sim.WithContactLaw(law),
		sim.WithIntegrator(integ))
	if err != nil {
		return err
	}

	for _, p := range e.cfg.Scene.Planes {
		s.AddCollisionPlane(p.Mu, p.Restitution, p.Height)
	}
	for _, b := range e.cfg.Scene.Boxes {
		ori := collision.OrientationZYX(b.RPY[2], b.RPY[1], b.RPY[0])
		s.AddCollisionBox(b.Mu, b.Restitution, b.Size[0], b.Size[1], b.Size[2], mgl64.Vec3(b.Position), ori)
	}

	st := s.State()
	e.cfg.InitialState(&st)
	if err := s.SetState(st); err != nil {
		return fmt.Errorf("initial state: %w", err)
	}

	ctrl, err := e.registry.GetController(e.cfg, m.NumJoints())
	if err != nil {
		return err
	}
	r := sim.NewRunner(s, ctrl)
	for _, metric := range e.registry.DefaultMetrics(m) {
		r.AddMetric(metric)
	}

	e.model, e.simulator, e.runner, e.control, e.initial = m, s, r, ctrl, st
	e.logger.Debugw("experiment ready", "model", e.cfg.Model, "joints", m.NumJoints(),
		"contacts", m.NumGroundContacts(), "planes", len(e.cfg.Scene.Planes), "boxes", len(e.cfg.Scene.Boxes))
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.runner == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.runner.Run(ctx, e.cfg.DynamoConfig())
}

// Realtime wraps the simulator for wall-clock playback. It shares the
// simulator with Run, so only one of them may be in use.
func (e *Experiment) Realtime() (*sim.Realtime, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return sim.NewRealtime(e.simulator, e.control, e.cfg.DynamoConfig()), nil
}

// DisplayModel builds a second copy of the model for drawing, so a renderer
// can run kinematics without touching the simulated one.
func (e *Experiment) DisplayModel() (*model.FloatingBase, error) {
	return e.registry.GetModel(e.cfg)
}

func (e *Experiment) Config() *config.Config          { return e.cfg }
func (e *Experiment) Model() *model.FloatingBase      { return e.model }
func (e *Experiment) Simulator() *sim.Simulator       { return e.simulator }
func (e *Experiment) Runner() *sim.Runner             { return e.runner }
func (e *Experiment) InitialState() dynamo.RobotState { return e.initial.Clone() }

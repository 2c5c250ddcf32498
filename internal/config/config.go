package config

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/legsim/internal/contact"
	"github.com/san-kum/legsim/internal/dynamo"
	"github.com/san-kum/legsim/internal/spatial"
)

const (
	DefaultDt          = 0.0005
	DefaultDuration    = 2.0
	DefaultContactKp   = 5000.0
	DefaultContactKd   = 100.0
	DefaultSampleEvery = 10
	DefaultMu          = 0.8
	DefaultJointKp     = 40.0
	DefaultJointKd     = 1.0
	DefaultTorqueLimit = 18.0
)

type Config struct {
	Model            string           `yaml:"model"`
	Integrator       string           `yaml:"integrator"`
	Controller       string           `yaml:"controller"`
	Dt               float64          `yaml:"dt"`
	Duration         float64          `yaml:"duration"`
	SampleEvery      int              `yaml:"sample_every"`
	Gravity          [3]float64       `yaml:"gravity"`
	Body             BodyConfig       `yaml:"body"`
	Contact          ContactConfig    `yaml:"contact"`
	InitState        InitStateConfig  `yaml:"init_state"`
	ControllerParams ControllerConfig `yaml:"controller_params"`
	Scene            SceneConfig      `yaml:"scene"`
}

// BodyConfig sizes the point and box models; the quadruped ignores it.
type BodyConfig struct {
	Mass float64    `yaml:"mass"`
	Dims [3]float64 `yaml:"dims"`
}

type ContactConfig struct {
	Kp                float64 `yaml:"kp"`
	Kd                float64 `yaml:"kd"`
	TangentialDamping float64 `yaml:"tangential_damping"`
	Policy            string  `yaml:"policy"`
}

type InitStateConfig struct {
	Position [3]float64 `yaml:"position"`
	// RPY is roll, pitch, yaw in radians, applied yaw first.
	RPY      [3]float64 `yaml:"rpy"`
	Velocity [6]float64 `yaml:"velocity"`
	Joints   []float64  `yaml:"joints"`
}

type ControllerConfig struct {
	Kp     float64   `yaml:"kp"`
	Kd     float64   `yaml:"kd"`
	Limit  float64   `yaml:"limit"`
	Target []float64 `yaml:"target"`
}

type SceneConfig struct {
	Planes []PlaneConfig `yaml:"planes"`
	Boxes  []BoxConfig   `yaml:"boxes"`
}

type PlaneConfig struct {
	Mu          float64 `yaml:"mu"`
	Restitution float64 `yaml:"restitution"`
	Height      float64 `yaml:"height"`
}

type BoxConfig struct {
	Mu          float64    `yaml:"mu"`
	Restitution float64    `yaml:"restitution"`
	Size        [3]float64 `yaml:"size"`
	Position    [3]float64 `yaml:"position"`
	RPY         [3]float64 `yaml:"rpy"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:       "quadruped",
		Integrator:  "semi_implicit",
		Controller:  "pd",
		Dt:          DefaultDt,
		Duration:    DefaultDuration,
		SampleEvery: DefaultSampleEvery,
		Gravity:     [3]float64{0, 0, -9.81},
		Body:        BodyConfig{Mass: 1, Dims: [3]float64{0.3, 0.2, 0.1}},
		Contact: ContactConfig{
			Kp:     DefaultContactKp,
			Kd:     DefaultContactKd,
			Policy: contact.AccumulateAll.String(),
		},
		InitState: InitStateConfig{
			Position: [3]float64{0, 0, 0.29},
			Joints:   append([]float64(nil), standingJoints...),
		},
		ControllerParams: ControllerConfig{
			Kp:     DefaultJointKp,
			Kd:     DefaultJointKd,
			Limit:  DefaultTorqueLimit,
			Target: append([]float64(nil), standingJoints...),
		},
		Scene: SceneConfig{
			Planes: []PlaneConfig{{Mu: DefaultMu}},
		},
	}
}

// ForModel returns the defaults for model. Only the quadruped has joints, so
// the rigid bodies start without a standing pose or joint controller.
func ForModel(model string) *Config {
	c := DefaultConfig()
	c.Model = model
	if model != "quadruped" {
		c.Controller = "none"
		c.InitState.Position[2] = 0.3
		c.InitState.Joints = nil
		c.ControllerParams.Target = nil
	}
	return c
}

// Load reads a config file on top of the defaults for the model it names.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	var head struct {
		Model string `yaml:"model"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	cfg := DefaultConfig()
	if head.Model != "" {
		cfg = ForModel(head.Model)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}

// LoadInto reads a config file over cfg. Fields the file leaves out keep
// their value in cfg.
func LoadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading config %s", path)
	}
	return errors.Wrapf(yaml.Unmarshal(data, cfg), "parsing config %s", path)
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "writing config %s", path)
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var err error
	bounds := func(format string, args ...interface{}) {
		err = multierr.Append(err, fmt.Errorf(format+": %w", append(args, dynamo.ErrParameterBounds)...))
	}

	switch c.Model {
	case "point", "box", "quadruped":
	default:
		err = multierr.Append(err, fmt.Errorf("model %q: %w", c.Model, dynamo.ErrUnknownModel))
	}
	switch c.Integrator {
	case "", "semi_implicit", "explicit":
	default:
		bounds("integrator %q", c.Integrator)
	}
	switch c.Controller {
	case "", "none", "pd":
	default:
		bounds("controller %q", c.Controller)
	}
	if c.Dt <= 0 {
		bounds("dt must be positive, got %g", c.Dt)
	}
	if c.Duration <= 0 {
		bounds("duration must be positive, got %g", c.Duration)
	}
	if c.Contact.Kp < 0 || c.Contact.Kd < 0 || c.Contact.TangentialDamping < 0 {
		bounds("contact gains must be non-negative")
	}
	if _, perr := contact.ParsePolicy(c.Contact.Policy); perr != nil {
		err = multierr.Append(err, perr)
	}
	if c.Model != "quadruped" && c.Body.Mass <= 0 {
		bounds("body mass must be positive, got %g", c.Body.Mass)
	}
	if c.Model == "box" {
		for _, d := range c.Body.Dims {
			if d <= 0 {
				bounds("box dims must be positive, got %v", c.Body.Dims)
				break
			}
		}
	}
	for i, p := range c.Scene.Planes {
		if p.Mu < 0 {
			bounds("plane %d: negative friction %g", i, p.Mu)
		}
	}
	for i, b := range c.Scene.Boxes {
		if b.Mu < 0 {
			bounds("box %d: negative friction %g", i, b.Mu)
		}
		if b.Size[0] <= 0 || b.Size[1] <= 0 || b.Size[2] <= 0 {
			bounds("box %d: size must be positive, got %v", i, b.Size)
		}
	}
	return err
}

func (c *Config) DynamoConfig() dynamo.Config {
	return dynamo.Config{
		Dt:            c.Dt,
		Duration:      c.Duration,
		Kp:            c.Contact.Kp,
		Kd:            c.Contact.Kd,
		SampleEvery:   c.SampleEvery,
		ValidateState: true,
	}
}

func (c *Config) ContactLaw() (contact.Law, error) {
	p, err := contact.ParsePolicy(c.Contact.Policy)
	if err != nil {
		return contact.Law{}, err
	}
	return contact.Law{TangentialDamping: c.Contact.TangentialDamping, Policy: p}, nil
}

// Orientation turns roll, pitch and yaw into a body -> world quaternion,
// rotating by yaw about z, then pitch about y, then roll about x.
func Orientation(rpy [3]float64) mgl64.Quat {
	return mgl64.QuatRotate(rpy[2], mgl64.Vec3{0, 0, 1}).
		Mul(mgl64.QuatRotate(rpy[1], mgl64.Vec3{0, 1, 0})).
		Mul(mgl64.QuatRotate(rpy[0], mgl64.Vec3{1, 0, 0}))
}

// CheckJoints reports joint lists that do not fit a model with numJoints
// joints. An empty list is allowed: the initial angles stay at zero and PD
// targets default to zero.
func (c *Config) CheckJoints(numJoints int) error {
	var err error
	if n := len(c.InitState.Joints); n != 0 && n != numJoints {
		err = multierr.Append(err, fmt.Errorf("init_state.joints has %d entries, model %q has %d joints: %w",
			n, c.Model, numJoints, dynamo.ErrDimensionMismatch))
	}
	if n := len(c.ControllerParams.Target); c.Controller == "pd" && n != 0 && n != numJoints {
		err = multierr.Append(err, fmt.Errorf("controller_params.target has %d entries, model %q has %d joints: %w",
			n, c.Model, numJoints, dynamo.ErrDimensionMismatch))
	}
	return err
}

// InitialState fills s from InitState. The joint list must have passed
// CheckJoints for s.
func (c *Config) InitialState(s *dynamo.RobotState) {
	s.BodyPosition = mgl64.Vec3(c.InitState.Position)
	s.BodyOrientation = Orientation(c.InitState.RPY)
	s.BodyVelocity = spatial.SVec[float64](c.InitState.Velocity)
	copy(s.Q, c.InitState.Joints)
	clear(s.Qd)
}

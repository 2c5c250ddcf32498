package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/legsim/internal/config"
	"github.com/san-kum/legsim/internal/control"
	"github.com/san-kum/legsim/internal/dynamo"
	"github.com/san-kum/legsim/internal/integrators"
	"github.com/san-kum/legsim/internal/metrics"
	"github.com/san-kum/legsim/internal/model"
	"github.com/san-kum/legsim/internal/spatial"
)

// DefaultMaxTilt is the base tilt, in radians, past which the stability
// metric counts a sample as fallen.
const DefaultMaxTilt = 0.5

type Registry struct {
	models      map[string]func(*config.Config) (*model.FloatingBase, error)
	integrators map[string]func() dynamo.Integrator
	controllers map[string]func(cfg *config.Config, joints int) dynamo.Controller
}

func NewRegistry() *Registry {
	r := &Registry{
		models:      make(map[string]func(*config.Config) (*model.FloatingBase, error)),
		integrators: make(map[string]func() dynamo.Integrator),
		controllers: make(map[string]func(*config.Config, int) dynamo.Controller),
	}

	r.models["point"] = func(c *config.Config) (*model.FloatingBase, error) {
		return model.NewPointFoot(c.Body.Mass), nil
	}
	r.models["box"] = func(c *config.Config) (*model.FloatingBase, error) {
		return model.NewBox(c.Body.Mass, spatial.Vec3[float64](c.Body.Dims)), nil
	}
	r.models["quadruped"] = func(c *config.Config) (*model.FloatingBase, error) {
		return model.NewQuadruped(model.MiniCheetahParams())
	}

	r.integrators["semi_implicit"] = func() dynamo.Integrator { return integrators.NewSemiImplicitEuler() }
	r.integrators["explicit"] = func() dynamo.Integrator { return integrators.NewExplicitEuler() }

	r.controllers["none"] = func(c *config.Config, joints int) dynamo.Controller {
		return control.NewNone(joints)
	}
	r.controllers["pd"] = func(c *config.Config, joints int) dynamo.Controller {
		p := c.ControllerParams
		return control.NewJointPD(p.Kp, p.Kd, p.Limit, p.Target)
	}

	return r
}

func (r *Registry) GetModel(cfg *config.Config) (*model.FloatingBase, error) {
	fn, ok := r.models[cfg.Model]
	if !ok {
		return nil, fmt.Errorf("model %q: %w", cfg.Model, dynamo.ErrUnknownModel)
	}
	return fn(cfg)
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	if name == "" {
		name = "semi_implicit"
	}
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator %q: %w", name, dynamo.ErrParameterBounds)
	}
	return fn(), nil
}

func (r *Registry) GetController(cfg *config.Config, joints int) (dynamo.Controller, error) {
	name := cfg.Controller
	if name == "" {
		name = "none"
	}
	fn, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("unknown controller %q: %w", name, dynamo.ErrParameterBounds)
	}
	return fn(cfg, joints), nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics(h dynamo.Hamiltonian) []dynamo.Metric {
	return []dynamo.Metric{
		metrics.NewEnergyDrift(h),
		metrics.NewStability(DefaultMaxTilt),
		metrics.NewControlEffort(),
		metrics.NewPeakContactForce(),
		metrics.NewMinBaseHeight(),
	}
}

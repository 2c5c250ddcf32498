// Package automation runs scripted batches of experiments: YAML scenarios
// and Monte Carlo trials over perturbed initial states.
package automation

import (
	"context"
	"math"
	"math/rand"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/legsim/internal/config"
	"github.com/san-kum/legsim/internal/dynamo"
	"github.com/san-kum/legsim/internal/experiment"
	"github.com/san-kum/legsim/internal/logging"
	"github.com/san-kum/legsim/internal/metrics"
	"github.com/san-kum/legsim/internal/optim"
	"github.com/san-kum/legsim/internal/sim"
)

// Scenario is a named sequence of experiments.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset, or the defaults for Model when Preset
// is empty, and overrides the duration and any tunable parameters.
type ScenarioStep struct {
	Model    string             `yaml:"model"`
	Preset   string             `yaml:"preset"`
	Duration float64            `yaml:"duration"`
	Params   map[string]float64 `yaml:"params"`
	SaveAs   string             `yaml:"save_as"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading scenario %s", path)
	}
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, errors.Wrapf(err, "parsing scenario %s", path)
	}
	return &scenario, nil
}

// Config resolves the step into a full experiment config.
func (s ScenarioStep) Config() (*config.Config, error) {
	cfg := config.ForModel(s.Model)
	if s.Preset != "" {
		if cfg = config.GetPreset(s.Model, s.Preset); cfg == nil {
			return nil, errors.Errorf("unknown preset %s/%s", s.Model, s.Preset)
		}
	}
	if s.Duration > 0 {
		cfg.Duration = s.Duration
	}

	names := make([]string, 0, len(s.Params))
	for name := range s.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := optim.Apply(cfg, name, s.Params[name]); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// RunScenario executes the steps in order and stops at the first failure,
// returning the results gathered so far.
func RunScenario(ctx context.Context, scenario *Scenario, logger logging.Logger) ([]*dynamo.Result, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	results := make([]*dynamo.Result, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		logger.Infow("scenario step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps),
			"model", step.Model, "preset", step.Preset)

		cfg, err := step.Config()
		if err != nil {
			return results, errors.Wrapf(err, "step %d", i+1)
		}
		exp := experiment.New(cfg, logger.Named("experiment"))
		if err := exp.Setup(); err != nil {
			return results, errors.Wrapf(err, "step %d setup", i+1)
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return results, errors.Wrapf(err, "step %d run", i+1)
		}
		results = append(results, result)
	}
	return results, nil
}

// MonteCarloConfig perturbs the initial state of Base uniformly within the
// given half-widths.
type MonteCarloConfig struct {
	Base          *config.Config
	PositionNoise float64 // metres
	AngleNoise    float64 // radians, on each of roll, pitch and yaw
	VelocityNoise float64 // m/s and rad/s
	NumTrials     int
	Seed          int64
	// Parallel caps concurrent trials; 0 means no cap.
	Parallel int
}

type MonteCarloResult struct {
	Trial    int
	Position [3]float64
	RPY      [3]float64
	Metrics  map[string]float64
	// Stable is set when the run finished without error and the base ends
	// within experiment.DefaultMaxTilt of upright.
	Stable bool
}

// Trials draws the perturbed config of every trial. The draws depend only on
// the seed.
func (c *MonteCarloConfig) Trials() []*config.Config {
	rng := rand.New(rand.NewSource(c.Seed))
	noise := func(w float64) float64 { return (rng.Float64()*2 - 1) * w }

	trials := make([]*config.Config, c.NumTrials)
	for i := range trials {
		cfg := *c.Base
		cfg.InitState.Joints = append([]float64(nil), c.Base.InitState.Joints...)
		cfg.ControllerParams.Target = append([]float64(nil), c.Base.ControllerParams.Target...)
		for k := 0; k < 3; k++ {
			cfg.InitState.Position[k] += noise(c.PositionNoise)
			cfg.InitState.RPY[k] += noise(c.AngleNoise)
		}
		for k := 0; k < 6; k++ {
			cfg.InitState.Velocity[k] += noise(c.VelocityNoise)
		}
		trials[i] = &cfg
	}
	return trials
}

// RunMonteCarlo runs every trial concurrently. Results are in trial order.
func RunMonteCarlo(ctx context.Context, c *MonteCarloConfig) ([]MonteCarloResult, error) {
	if c.Base == nil || c.NumTrials <= 0 {
		return nil, errors.Wrap(dynamo.ErrParameterBounds, "monte carlo needs a base config and at least one trial")
	}
	trials := c.Trials()

	ens := sim.NewEnsemble(len(trials), func(run int) (*sim.Runner, dynamo.Config, error) {
		exp := experiment.New(trials[run], nil)
		if err := exp.Setup(); err != nil {
			return nil, dynamo.Config{}, err
		}
		return exp.Runner(), trials[run].DynamoConfig(), nil
	})
	ens.SetLimit(c.Parallel)

	runs, err := ens.Run(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]MonteCarloResult, len(runs))
	for i, r := range runs {
		stable := len(r.Errors) == 0 && len(r.States) > 0
		if stable {
			final := r.States[len(r.States)-1]
			stable = metrics.Tilt(final.BodyOrientation) <= experiment.DefaultMaxTilt && !math.IsNaN(final.BodyPosition[2])
		}
		results[i] = MonteCarloResult{
			Trial:    i,
			Position: trials[i].InitState.Position,
			RPY:      trials[i].InitState.RPY,
			Metrics:  r.Metrics,
			Stable:   stable,
		}
	}
	return results, nil
}

// MonteCarloStats counts stable and unstable trials.
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}

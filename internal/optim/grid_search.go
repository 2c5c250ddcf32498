package optim

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/legsim/internal/config"
	"github.com/san-kum/legsim/internal/dynamo"
	"github.com/san-kum/legsim/internal/experiment"
)

// Point is one evaluated grid cell. Err is set when the experiment failed
// to build or run; Value is then +Inf.
type Point struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type SearchResult struct {
	Best      map[string]float64
	BestValue float64
	Points    []Point
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	limit      int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, limit: runtime.GOMAXPROCS(0)}
}

// SetLimit caps the number of experiments running at once.
func (g *GridSearch) SetLimit(n int) {
	if n <= 0 {
		n = -1
	}
	g.limit = n
}

// Size is the number of grid cells.
func (g *GridSearch) Size() int {
	if len(g.ranges) == 0 {
		return 0
	}
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search evaluates every grid cell and returns the one with the lowest
// metricName. Cells are listed in row-major order, last parameter fastest.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	metricName string,
) (*SearchResult, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("%d parameters but %d ranges: %w",
			len(g.paramNames), len(g.ranges), dynamo.ErrDimensionMismatch)
	}
	n := g.Size()
	if n == 0 {
		return nil, fmt.Errorf("empty grid: %w", dynamo.ErrParameterBounds)
	}

	points := make([]Point, n)
	for i := range points {
		points[i].Params = g.cell(i)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.limit)
	for i := range points {
		eg.Go(func() error {
			p := &points[i]
			p.Value, p.Err = evaluate(ctx, p.Params, buildExperiment, metricName)
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	res := &SearchResult{BestValue: math.Inf(1), Points: points}
	for _, p := range points {
		if p.Err == nil && p.Value < res.BestValue {
			res.BestValue = p.Value
			res.Best = p.Params
		}
	}
	if res.Best == nil {
		return res, fmt.Errorf("all %d experiments failed, first: %w", n, points[0].Err)
	}
	return res, nil
}

func (g *GridSearch) cell(i int) map[string]float64 {
	params := make(map[string]float64, len(g.paramNames))
	for d := len(g.paramNames) - 1; d >= 0; d-- {
		r := g.ranges[d]
		params[g.paramNames[d]] = r[i%len(r)]
		i /= len(r)
	}
	return params
}

func evaluate(
	ctx context.Context,
	params map[string]float64,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	metricName string,
) (float64, error) {
	exp, err := buildExperiment(params)
	if err != nil {
		return math.Inf(1), err
	}
	if err := exp.Setup(); err != nil {
		return math.Inf(1), err
	}
	result, err := exp.Run(ctx)
	if err != nil {
		return math.Inf(1), err
	}
	if len(result.Errors) > 0 {
		return math.Inf(1), fmt.Errorf("run stopped early: %w", result.Errors[0])
	}
	val, ok := result.Metrics[metricName]
	if !ok {
		return math.Inf(1), fmt.Errorf("metric %q not recorded: %w", metricName, dynamo.ErrParameterBounds)
	}
	return val, nil
}

// Apply sets a tunable config field by name.
func Apply(cfg *config.Config, name string, value float64) error {
	switch name {
	case "contact.kp":
		cfg.Contact.Kp = value
	case "contact.kd":
		cfg.Contact.Kd = value
	case "contact.tangential_damping":
		cfg.Contact.TangentialDamping = value
	case "controller.kp":
		cfg.ControllerParams.Kp = value
	case "controller.kd":
		cfg.ControllerParams.Kd = value
	case "controller.limit":
		cfg.ControllerParams.Limit = value
	case "dt":
		cfg.Dt = value
	case "mass":
		cfg.Body.Mass = value
	default:
		return fmt.Errorf("unknown parameter %q: %w", name, dynamo.ErrParameterBounds)
	}
	return nil
}

// Builder returns a buildExperiment func that copies base and applies each
// parameter to the copy.
func Builder(base func() *config.Config) func(map[string]float64) (*experiment.Experiment, error) {
	return func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := base()
		for name, v := range params {
			if err := Apply(cfg, name, v); err != nil {
				return nil, err
			}
		}
		return experiment.New(cfg, nil), nil
	}
}

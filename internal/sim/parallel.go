package sim

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/legsim/internal/dynamo"
)

// Ensemble runs independent simulations concurrently. build is called once
// per run and must return a runner over its own model; models are never
// shared between runs.
type Ensemble struct {
	build   func(run int) (*Runner, dynamo.Config, error)
	numRuns int
	limit   int
}

func NewEnsemble(numRuns int, build func(run int) (*Runner, dynamo.Config, error)) *Ensemble {
	return &Ensemble{build: build, numRuns: numRuns, limit: -1}
}

// SetLimit caps the number of runs in flight; n <= 0 means no limit.
func (e *Ensemble) SetLimit(n int) {
	if n <= 0 {
		n = -1
	}
	e.limit = n
}

// Run returns one result per run, in run order. The first failure cancels
// the runs that have not finished.
func (e *Ensemble) Run(ctx context.Context) ([]*dynamo.Result, error) {
	results := make([]*dynamo.Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for i := 0; i < e.numRuns; i++ {
		g.Go(func() error {
			runner, cfg, err := e.build(i)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			res, err := runner.Run(ctx, cfg)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

package sim

import (
	"context"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/dynamo"
	"golang.org/x/sync/errgroup"
)

// Build returns the simulator and config for run i. Each run needs its own
// diagram, since blocks carry parameters and hook state.
type Build func(i int) (*Simulator, dynamo.Config, error)

type Ensemble struct {
	build   Build
	numRuns int
	limit   int
}

// NewEnsemble runs numRuns simulations with at most limit in flight.
// limit <= 0 means no bound.
func NewEnsemble(build Build, numRuns, limit int) *Ensemble {
	return &Ensemble{build: build, numRuns: numRuns, limit: limit}
}

func (e *Ensemble) runOne(ctx context.Context, idx int) (*dynamo.Result, error) {
	s, cfg, err := e.build(idx)
	if err != nil {
		return nil, errors.Wrapf(err, "build run %d", idx)
	}
	if s.Status() == dynamo.Uninitialized {
		if _, err := s.Compile(); err != nil {
			return nil, errors.Wrapf(err, "compile run %d", idx)
		}
	}
	res, err := s.Run(ctx, cfg)
	if err != nil {
		return res, errors.Wrapf(err, "run %d", idx)
	}
	return res, nil
}

// Run returns results in run order. The first failure cancels the rest.
func (e *Ensemble) Run(ctx context.Context) ([]*dynamo.Result, error) {
	results := make([]*dynamo.Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}
	for i := 0; i < e.numRuns; i++ {
		idx := i
		g.Go(func() error {
			res, err := e.runOne(ctx, idx)
			if err != nil {
				return err
			}
			results[idx] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// RunEach runs every simulation to the end regardless of failures and
// reports each run's error in place. A failed run may still carry a
// partial result.
func (e *Ensemble) RunEach(ctx context.Context) ([]*dynamo.Result, []error) {
	results := make([]*dynamo.Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var g errgroup.Group
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}
	for i := 0; i < e.numRuns; i++ {
		idx := i
		g.Go(func() error {
			results[idx], errs[idx] = e.runOne(ctx, idx)
			return nil
		})
	}
	_ = g.Wait()
	return results, errs
}

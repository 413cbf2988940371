package optim

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/dynamo"
	"github.com/san-kum/blocksim/internal/experiment"
	"github.com/san-kum/blocksim/internal/sim"
	"github.com/sirupsen/logrus"
)

// GridSearch evaluates every combination of parameter values and keeps the
// one with the lowest metric value.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// WithWorkers bounds the number of runs in flight. Zero means no bound.
func (g *GridSearch) WithWorkers(n int) *GridSearch {
	g.workers = n
	return g
}

// Trial is one evaluated grid point. Err is set when the run failed or did
// not report the metric.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// Points returns the grid in row-major order, last parameter fastest.
func (g *GridSearch) Points() []map[string]float64 {
	var out []map[string]float64
	g.collect(0, make(map[string]float64), &out)
	return out
}

func (g *GridSearch) collect(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		p := make(map[string]float64, len(current))
		for k, v := range current {
			p[k] = v
		}
		*out = append(*out, p)
		return
	}
	for _, val := range g.ranges[depth] {
		current[g.paramNames[depth]] = val
		g.collect(depth+1, current, out)
	}
}

// Search runs base once per grid point with the point's values layered over
// base.Params. Failed points are reported in trials and skipped.
func (g *GridSearch) Search(
	ctx context.Context,
	reg *experiment.Registry,
	base experiment.Config,
	metricName string,
) (map[string]float64, float64, []Trial, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, nil, errors.Errorf("grid search: %d names for %d ranges", len(g.paramNames), len(g.ranges))
	}
	points := g.Points()

	build := func(i int) (*sim.Simulator, dynamo.Config, error) {
		cfg := base
		cfg.Params = make(map[string]float64, len(base.Params)+len(points[i]))
		for k, v := range base.Params {
			cfg.Params[k] = v
		}
		for k, v := range points[i] {
			cfg.Params[k] = v
		}
		exp := experiment.New(cfg)
		if err := exp.Setup(reg); err != nil {
			return nil, dynamo.Config{}, err
		}
		return exp.GetSimulator(), exp.Config().SimConfig(), nil
	}

	results, errs := sim.NewEnsemble(build, len(points), g.workers).RunEach(ctx)

	best := math.Inf(1)
	var bestParams map[string]float64
	trials := make([]Trial, len(points))
	for i, p := range points {
		trials[i] = Trial{Params: p, Value: math.NaN(), Err: errs[i]}
		if errs[i] != nil {
			logrus.WithError(errs[i]).WithField("params", p).Debug("grid point failed")
			continue
		}
		val, ok := results[i].Metrics[metricName]
		if !ok {
			trials[i].Err = errors.Errorf("metric %s not reported", metricName)
			continue
		}
		trials[i].Value = val
		if val < best {
			best, bestParams = val, p
		}
	}

	if bestParams == nil {
		return nil, 0, trials, errors.Errorf("grid search: no successful run reported %s", metricName)
	}
	return bestParams, best, trials, nil
}

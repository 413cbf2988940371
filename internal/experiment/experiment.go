package experiment

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/diagram"
	"github.com/san-kum/blocksim/internal/dynamo"
	"github.com/san-kum/blocksim/internal/metrics"
	"github.com/san-kum/blocksim/internal/sim"
	"github.com/sirupsen/logrus"
)

type MetricSpec struct {
	Name   string
	Signal string
	Arg    float64
}

type Config struct {
	Diagram    string
	Integrator string
	Dt         float64
	Duration   float64
	Tolerance  float64
	MinDt      float64
	MaxDt      float64
	Adaptive   bool
	Watch      []string
	Params     map[string]float64
	Metrics    []MetricSpec
}

// SimConfig fills a run configuration, keeping engine defaults for unset
// step bounds.
func (c Config) SimConfig() dynamo.Config {
	out := dynamo.DefaultConfig()
	out.Dt = c.Dt
	out.Duration = c.Duration
	out.Adaptive = c.Adaptive
	if c.Tolerance > 0 {
		out.Tolerance = c.Tolerance
	}
	if c.MinDt > 0 {
		out.MinDt = c.MinDt
	}
	if c.MaxDt > 0 {
		out.MaxDt = c.MaxDt
	}
	out.Watch = c.Watch
	return out
}

type Experiment struct {
	cfg       Config
	info      Info
	diagram   *diagram.Diagram
	simulator *sim.Simulator
}

func New(cfg Config) *Experiment {
	return &Experiment{cfg: cfg}
}

// Setup builds and compiles the diagram, applies parameter overrides and
// attaches metrics. With no watch list the diagram's defaults are used.
func (e *Experiment) Setup(reg *Registry) error {
	info, err := reg.GetDiagram(e.cfg.Diagram)
	if err != nil {
		return err
	}
	integ, err := reg.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return err
	}
	d, err := info.Build()
	if err != nil {
		return err
	}

	s := sim.New(d, integ, sim.WithLogger(logrus.WithFields(logrus.Fields{
		"component": "sim",
		"diagram":   d.Name,
		"solver":    e.cfg.Integrator,
	})))
	if _, err := s.Compile(); err != nil {
		return err
	}

	keys := make([]string, 0, len(e.cfg.Params))
	for k := range e.cfg.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := d.SetParam(k, e.cfg.Params[k]); err != nil {
			return errors.Wrapf(err, "param %s", k)
		}
	}

	for _, m := range reg.DefaultMetrics(info.Name) {
		s.AddMetric(m)
	}
	for _, ms := range e.cfg.Metrics {
		m, err := metrics.New(ms.Name, ms.Signal, ms.Arg)
		if err != nil {
			return err
		}
		s.AddMetric(m)
	}

	if len(e.cfg.Watch) == 0 {
		e.cfg.Watch = info.Watch
	}
	e.info, e.diagram, e.simulator = info, d, s
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, errors.New("experiment not setup")
	}
	return e.simulator.Run(ctx, e.cfg.SimConfig())
}

func (e *Experiment) Config() Config { return e.cfg }

func (e *Experiment) Info() Info { return e.info }

// GetSimulator returns the underlying simulator, nil before Setup.
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

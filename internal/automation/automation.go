package automation

import (
	"context"
	"math"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/dynamo"
	"github.com/san-kum/blocksim/internal/experiment"
	"github.com/san-kum/blocksim/internal/sim"
	"github.com/san-kum/blocksim/internal/storage"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted simulation sequence
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single run in a scenario
type ScenarioStep struct {
	Diagram   string             `yaml:"diagram"`
	Solver    string             `yaml:"solver"`
	Duration  float64            `yaml:"duration"`
	Dt        float64            `yaml:"dt"`
	Adaptive  bool               `yaml:"adaptive"`
	Tolerance float64            `yaml:"tolerance"`
	Watch     []string           `yaml:"watch"`
	Params    map[string]float64 `yaml:"params"`
	Save      bool               `yaml:"save"`
}

func (s ScenarioStep) experiment() experiment.Config {
	solver := s.Solver
	if solver == "" {
		solver = "rk4"
	}
	return experiment.Config{
		Diagram:    s.Diagram,
		Integrator: solver,
		Dt:         s.Dt,
		Duration:   s.Duration,
		Adaptive:   s.Adaptive,
		Tolerance:  s.Tolerance,
		Watch:      s.Watch,
		Params:     s.Params,
	}
}

// StepResult is the outcome of one scenario step. RunID is set when the
// step was saved.
type StepResult struct {
	Step   int
	RunID  string
	Result *dynamo.Result
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, errors.Wrapf(err, "parse scenario %s", path)
	}
	if len(scenario.Steps) == 0 {
		return nil, errors.Errorf("scenario %s has no steps", path)
	}

	return &scenario, nil
}

// RunScenario executes all steps in order and stops at the first failure.
// store may be nil when no step saves.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, store *storage.Store) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))
	log := logrus.WithField("scenario", scenario.Name)

	for i, step := range scenario.Steps {
		log.WithFields(logrus.Fields{"step": i + 1, "of": len(scenario.Steps), "diagram": step.Diagram}).Info("running step")

		exp := experiment.New(step.experiment())
		if err := exp.Setup(registry); err != nil {
			return results, errors.Wrapf(err, "step %d setup", i+1)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, errors.Wrapf(err, "step %d run", i+1)
		}

		sr := StepResult{Step: i + 1, Result: result}
		if step.Save {
			if store == nil {
				return results, errors.Errorf("step %d: save requested without a store", i+1)
			}
			cfg := exp.Config()
			sr.RunID, err = store.Save(storage.RunInfo{
				Diagram:    cfg.Diagram,
				Integrator: cfg.Integrator,
				Dt:         cfg.Dt,
				Duration:   cfg.Duration,
				Adaptive:   cfg.Adaptive,
				StateNames: exp.GetSimulator().Graph().StateNames(),
			}, result)
			if err != nil {
				return results, errors.Wrapf(err, "step %d save", i+1)
			}
		}
		results = append(results, sr)
	}

	return results, nil
}

// ParameterSweep runs a diagram across evenly spaced values of one parameter
type ParameterSweep struct {
	Diagram    string
	Integrator string
	ParamName  string
	ParamMin   float64
	ParamMax   float64
	NumSteps   int
	Duration   float64
	Dt         float64
	Workers    int
}

// SweepResult holds the outcome at one parameter value
type SweepResult struct {
	ParamValue float64
	FinalState dynamo.State
	Metrics    map[string]float64
	Status     dynamo.Status
	Err        error
}

// Values returns the swept parameter values.
func (s *ParameterSweep) Values() []float64 {
	if s.NumSteps <= 1 {
		return []float64{s.ParamMin}
	}
	step := (s.ParamMax - s.ParamMin) / float64(s.NumSteps-1)
	vals := make([]float64, s.NumSteps)
	for i := range vals {
		vals[i] = s.ParamMin + float64(i)*step
	}
	return vals
}

// runAll runs one experiment per config concurrently and reports each
// outcome in place.
func runAll(ctx context.Context, registry *experiment.Registry, cfgs []experiment.Config, workers int) ([]*dynamo.Result, []error) {
	build := func(i int) (*sim.Simulator, dynamo.Config, error) {
		exp := experiment.New(cfgs[i])
		if err := exp.Setup(registry); err != nil {
			return nil, dynamo.Config{}, err
		}
		return exp.GetSimulator(), exp.Config().SimConfig(), nil
	}
	return sim.NewEnsemble(build, len(cfgs), workers).RunEach(ctx)
}

// RunSweep executes a parameter sweep. A failing value is reported in its
// SweepResult and does not stop the others.
func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry) []SweepResult {
	vals := sweep.Values()
	cfgs := make([]experiment.Config, len(vals))
	for i, v := range vals {
		cfgs[i] = experiment.Config{
			Diagram:    sweep.Diagram,
			Integrator: sweep.Integrator,
			Dt:         sweep.Dt,
			Duration:   sweep.Duration,
			Params:     map[string]float64{sweep.ParamName: v},
		}
	}

	res, errs := runAll(ctx, registry, cfgs, sweep.Workers)
	out := make([]SweepResult, len(vals))
	for i, v := range vals {
		out[i] = SweepResult{ParamValue: v, Err: errs[i], Status: dynamo.Failed}
		if res[i] != nil {
			out[i].FinalState = res[i].Final()
			out[i].Metrics = res[i].Metrics
			out[i].Status = res[i].Status
		}
	}
	return out
}

// MonteCarloConfig perturbs block parameters uniformly around base values
type MonteCarloConfig struct {
	Diagram      string
	Integrator   string
	BaseParams   map[string]float64
	Perturbation float64 // relative half-width, 0.1 means +-10%
	NumTrials    int
	Duration     float64
	Dt           float64
	Seed         int64
	Bound        float64 // final states beyond this count as unstable
	Workers      int
}

// MonteCarloResult holds the outcome of one trial
type MonteCarloResult struct {
	TrialID    int
	Params     map[string]float64
	FinalState dynamo.State
	Stable     bool // run completed and the final state stayed bounded
	Err        error
}

// RunMonteCarlo executes trials with randomly perturbed parameters. Draws
// are made up front so a seed reproduces the same trials at any worker count.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, registry *experiment.Registry) []MonteCarloResult {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	bound := cfg.Bound
	if bound <= 0 {
		bound = 1e6
	}

	keys := make([]string, 0, len(cfg.BaseParams))
	for k := range cfg.BaseParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cfgs := make([]experiment.Config, cfg.NumTrials)
	params := make([]map[string]float64, cfg.NumTrials)
	for trial := range cfgs {
		p := make(map[string]float64, len(keys))
		for _, k := range keys {
			v := cfg.BaseParams[k]
			p[k] = v * (1 + (rng.Float64()-0.5)*2*cfg.Perturbation)
		}
		params[trial] = p
		cfgs[trial] = experiment.Config{
			Diagram:    cfg.Diagram,
			Integrator: cfg.Integrator,
			Dt:         cfg.Dt,
			Duration:   cfg.Duration,
			Params:     p,
		}
	}

	res, errs := runAll(ctx, registry, cfgs, cfg.Workers)
	out := make([]MonteCarloResult, cfg.NumTrials)
	for i := range out {
		out[i] = MonteCarloResult{TrialID: i, Params: params[i], Err: errs[i]}
		if res[i] == nil {
			continue
		}
		final := res[i].Final()
		out[i].FinalState = final
		out[i].Stable = errs[i] == nil
		for _, v := range final {
			if math.Abs(v) > bound || math.IsNaN(v) {
				out[i].Stable = false
				break
			}
		}
	}
	return out
}

// MonteCarloStats computes summary statistics from Monte Carlo results
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

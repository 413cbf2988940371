package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/config"
	"github.com/san-kum/blocksim/internal/experiment"
	"github.com/san-kum/blocksim/internal/storage"
	"github.com/san-kum/blocksim/internal/viz"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type runFlags struct {
	configFile string
	preset     string
	solver     string
	dt         float64
	duration   float64
	tolerance  float64
	minDt      float64
	maxDt      float64
	adaptive   bool
	watch      []string
	set        []string
	metrics    []string
	jsonOut    string
	noSave     bool
}

func (f *runFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&f.preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&f.solver, "solver", "rk4", "integrator (euler, rk4, rk45)")
	cmd.Flags().Float64Var(&f.dt, "dt", config.DefaultDt, "step size, or initial step when adaptive")
	cmd.Flags().Float64Var(&f.duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Float64Var(&f.tolerance, "tol", config.DefaultTolerance, "local error tolerance")
	cmd.Flags().Float64Var(&f.minDt, "min-dt", config.DefaultMinDt, "smallest adaptive step")
	cmd.Flags().Float64Var(&f.maxDt, "max-dt", config.DefaultMaxDt, "largest adaptive step")
	cmd.Flags().BoolVar(&f.adaptive, "adaptive", false, "use error-controlled stepping")
	cmd.Flags().StringSliceVar(&f.watch, "watch", nil, "signals to record, e.g. plant[0]")
	cmd.Flags().StringArrayVar(&f.set, "set", nil, "parameter override block.param=value")
	cmd.Flags().StringArrayVar(&f.metrics, "metric", nil, "extra metric name[:signal[:arg]]")
}

// resolve layers config sources: defaults, then preset, then config file,
// then any flag the user set explicitly.
func (f *runFlags) resolve(cmd *cobra.Command, diagramName string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Diagram = diagramName

	if f.preset != "" {
		p := config.GetPreset(diagramName, f.preset)
		if p == nil {
			return nil, errors.Errorf("unknown preset: %s (available: %v)", f.preset, config.ListPresets(diagramName))
		}
		cfg = p
	}
	if f.configFile != "" {
		loaded, err := config.Load(f.configFile)
		if err != nil {
			return nil, err
		}
		if diagramName != "" && loaded.Diagram != diagramName {
			logrus.WithFields(logrus.Fields{"file": loaded.Diagram, "arg": diagramName}).
				Warn("diagram argument overrides config file")
			loaded.Diagram = diagramName
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("solver") {
		cfg.Solver = f.solver
	}
	if flags.Changed("dt") {
		cfg.Dt = f.dt
	}
	if flags.Changed("time") {
		cfg.Duration = f.duration
	}
	if flags.Changed("tol") {
		cfg.Tolerance = f.tolerance
	}
	if flags.Changed("min-dt") {
		cfg.MinDt = f.minDt
	}
	if flags.Changed("max-dt") {
		cfg.MaxDt = f.maxDt
	}
	if flags.Changed("adaptive") {
		cfg.Adaptive = f.adaptive
	}
	if len(f.watch) > 0 {
		cfg.Watch = f.watch
	}

	params, err := parseAssignments(f.set)
	if err != nil {
		return nil, err
	}
	if cfg.Params == nil {
		cfg.Params = map[string]float64{}
	}
	for k, v := range params {
		cfg.Params[k] = v
	}

	for _, m := range f.metrics {
		mc, err := parseMetric(m)
		if err != nil {
			return nil, err
		}
		cfg.Metrics = append(cfg.Metrics, mc)
	}
	return cfg, nil
}

func parseAssignments(items []string) (map[string]float64, error) {
	out := make(map[string]float64, len(items))
	for _, it := range items {
		name, val, ok := strings.Cut(it, "=")
		if !ok {
			return nil, errors.Errorf("bad assignment %q, want name=value", it)
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "assignment %s", name)
		}
		out[strings.TrimSpace(name)] = v
	}
	return out, nil
}

func parseMetric(s string) (config.MetricConfig, error) {
	parts := strings.SplitN(s, ":", 3)
	mc := config.MetricConfig{Name: parts[0]}
	if len(parts) > 1 {
		mc.Signal = parts[1]
	}
	if len(parts) > 2 {
		v, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return mc, errors.Wrapf(err, "metric %s", mc.Name)
		}
		mc.Arg = v
	}
	return mc, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [diagram]",
		Short: "run a diagram",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			if name == "" && f.configFile == "" {
				return errors.New("need a diagram name or --config")
			}
			cfg, err := f.resolve(cmd, name)
			if err != nil {
				return err
			}
			if cfg.Diagram == "" {
				cfg.Diagram = name
			}
			return runExperiment(cfg, &f)
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&f.jsonOut, "json", "", "write the full result as JSON (- for stdout)")
	cmd.Flags().BoolVar(&f.noSave, "no-save", false, "do not store the run")
	return cmd
}

func runExperiment(cfg *config.Config, f *runFlags) error {
	if cfg.LogLevel != "" && cfg.LogLevel != "info" {
		if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			logrus.SetLevel(lvl)
		}
	}

	exp := experiment.New(cfg.Experiment())
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, runErr := exp.Run(ctx)
	if result == nil {
		return runErr
	}

	info := storage.RunInfo{
		Diagram:    cfg.Diagram,
		Integrator: cfg.Solver,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Adaptive:   cfg.Adaptive,
		StateNames: exp.GetSimulator().Graph().StateNames(),
	}

	if f.jsonOut == "-" {
		if err := storage.WriteJSON(os.Stdout, info, result); err != nil {
			return err
		}
		return runErr
	}

	fmt.Println(viz.Title.Render(cfg.Diagram), viz.Subtle.Render(exp.Info().Description))
	fmt.Print(viz.RunSummary(result, 60))
	for _, v := range result.Violations {
		logrus.Warn(v.String())
	}

	if f.jsonOut != "" {
		if err := storage.ExportJSON(f.jsonOut, info, result); err != nil {
			return err
		}
		fmt.Println("wrote", f.jsonOut)
	}
	if !f.noSave {
		id, err := storage.New(dataDir).Save(info, result)
		if err != nil {
			return err
		}
		fmt.Println("saved run:", id)
	}
	return runErr
}

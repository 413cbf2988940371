package main

import (
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/automation"
	"github.com/san-kum/blocksim/internal/experiment"
	"github.com/san-kum/blocksim/internal/optim"
	"github.com/san-kum/blocksim/internal/storage"
	"github.com/san-kum/blocksim/internal/viz"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// parseGrid reads "block.param=v1,v2,..." entries in flag order.
func parseGrid(items []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(items))
	ranges := make([][]float64, 0, len(items))
	for _, it := range items {
		name, list, ok := strings.Cut(it, "=")
		if !ok || list == "" {
			return nil, nil, errors.Errorf("bad grid %q, want name=v1,v2,...", it)
		}
		var vals []float64
		for _, s := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "grid %s", name)
			}
			vals = append(vals, v)
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}
	return names, ranges, nil
}

func fmtState(x []float64) string {
	parts := make([]string, len(x))
	for i, v := range x {
		parts[i] = strconv.FormatFloat(v, 'g', 5, 64)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func newTuneCmd() *cobra.Command {
	var f runFlags
	var grid []string
	var metric string
	var workers int
	cmd := &cobra.Command{
		Use:   "tune [diagram]",
		Short: "grid search block parameters to minimise a metric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd, args[0])
			if err != nil {
				return err
			}
			names, ranges, err := parseGrid(grid)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				return errors.New("need at least one --grid")
			}

			ctx, cancel := signalContext()
			defer cancel()

			gs := optim.NewGridSearch(names, ranges).WithWorkers(workers)
			best, val, trials, err := gs.Search(ctx, experiment.NewRegistry(), cfg.Experiment(), metric)

			rows := make([][]string, len(trials))
			for i, t := range trials {
				status := strconv.FormatFloat(t.Value, 'g', 6, 64)
				if t.Err != nil {
					status = "error: " + t.Err.Error()
				}
				rows[i] = []string{formatParams(t.Params), status}
			}
			fmt.Println(viz.Table([]string{"params", metric}, rows))
			if err != nil {
				return err
			}
			fmt.Printf("%s %s  %s %s\n",
				viz.MetricLabel.Render("best"), viz.MetricValue.Render(formatParams(best)),
				viz.MetricLabel.Render(metric), viz.MetricValue.Render(strconv.FormatFloat(val, 'g', 6, 64)))
			return nil
		},
	}
	f.bind(cmd)
	cmd.Flags().StringArrayVar(&grid, "grid", nil, "parameter values block.param=v1,v2,...")
	cmd.Flags().StringVar(&metric, "objective", "ise", "metric to minimise")
	cmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "concurrent runs")
	return cmd
}

func newSweepCmd() *cobra.Command {
	sweep := automation.ParameterSweep{}
	cmd := &cobra.Command{
		Use:   "sweep [diagram] [block.param]",
		Short: "run a diagram across a range of one parameter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sweep.Diagram = args[0]
			sweep.ParamName = args[1]

			ctx, cancel := signalContext()
			defer cancel()

			results := automation.RunSweep(ctx, &sweep, experiment.NewRegistry())

			var metricNames []string
			for _, r := range results {
				if r.Metrics != nil {
					for k := range r.Metrics {
						metricNames = append(metricNames, k)
					}
					break
				}
			}
			sort.Strings(metricNames)

			headers := append([]string{sweep.ParamName, "status", "final"}, metricNames...)
			rows := make([][]string, len(results))
			for i, r := range results {
				row := []string{strconv.FormatFloat(r.ParamValue, 'g', 5, 64), r.Status.String(), fmtState(r.FinalState)}
				for _, m := range metricNames {
					row = append(row, strconv.FormatFloat(r.Metrics[m], 'g', 5, 64))
				}
				if r.Err != nil {
					logrus.WithError(r.Err).WithField("value", r.ParamValue).Warn("sweep point failed")
				}
				rows[i] = row
			}
			fmt.Println(viz.Table(headers, rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&sweep.Integrator, "solver", "rk4", "integrator")
	cmd.Flags().Float64Var(&sweep.ParamMin, "min", 0, "first value")
	cmd.Flags().Float64Var(&sweep.ParamMax, "max", 1, "last value")
	cmd.Flags().IntVar(&sweep.NumSteps, "steps", 5, "number of values")
	cmd.Flags().Float64Var(&sweep.Duration, "time", 10, "duration")
	cmd.Flags().Float64Var(&sweep.Dt, "dt", 0.01, "step size")
	cmd.Flags().IntVar(&sweep.Workers, "workers", runtime.NumCPU(), "concurrent runs")
	return cmd
}

func newMonteCarloCmd() *cobra.Command {
	mc := automation.MonteCarloConfig{}
	var base []string
	cmd := &cobra.Command{
		Use:   "montecarlo [diagram]",
		Short: "run trials with randomly perturbed parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseAssignments(base)
			if err != nil {
				return err
			}
			if len(params) == 0 {
				return errors.New("need at least one --param to perturb")
			}
			mc.Diagram = args[0]
			mc.BaseParams = params

			ctx, cancel := signalContext()
			defer cancel()

			results := automation.RunMonteCarlo(ctx, &mc, experiment.NewRegistry())
			for _, r := range results {
				entry := logrus.WithFields(logrus.Fields{"trial": r.TrialID, "params": formatParams(r.Params)})
				if r.Err != nil {
					entry.WithError(r.Err).Warn("trial failed")
					continue
				}
				entry.WithField("stable", r.Stable).Debug("trial done")
			}

			stable, unstable := automation.MonteCarloStats(results)
			fmt.Printf("%s %s  %s %s\n",
				viz.MetricLabel.Render("stable"), viz.MetricValue.Render(strconv.Itoa(stable)),
				viz.MetricLabel.Render("unstable"), viz.MetricValue.Render(strconv.Itoa(unstable)))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&base, "param", nil, "base value block.param=value")
	cmd.Flags().StringVar(&mc.Integrator, "solver", "rk4", "integrator")
	cmd.Flags().Float64Var(&mc.Perturbation, "spread", 0.1, "relative half-width of the perturbation")
	cmd.Flags().IntVar(&mc.NumTrials, "trials", 20, "number of trials")
	cmd.Flags().Float64Var(&mc.Duration, "time", 10, "duration")
	cmd.Flags().Float64Var(&mc.Dt, "dt", 0.01, "step size")
	cmd.Flags().Int64Var(&mc.Seed, "seed", 0, "random seed (0 uses the clock)")
	cmd.Flags().Float64Var(&mc.Bound, "bound", 1e6, "final-state magnitude counted as unstable")
	cmd.Flags().IntVar(&mc.Workers, "workers", runtime.NumCPU(), "concurrent runs")
	return cmd
}

func newScenarioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of experiments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			results, err := automation.RunScenario(ctx, sc, experiment.NewRegistry(), storage.New(dataDir))
			rows := make([][]string, len(results))
			for i, r := range results {
				rows[i] = []string{strconv.Itoa(r.Step), sc.Steps[r.Step-1].Diagram, r.Result.Status.String(), r.RunID}
			}
			fmt.Println(viz.Title.Render(sc.Name), viz.Subtle.Render(sc.Description))
			fmt.Println(viz.Table([]string{"step", "diagram", "status", "run"}, rows))
			return err
		},
	}
}

package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/blocksim/internal/analysis"
	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/config"
	"github.com/san-kum/blocksim/internal/diagram"
	"github.com/san-kum/blocksim/internal/experiment"
	"github.com/san-kum/blocksim/internal/integrators"
	"github.com/san-kum/blocksim/internal/metrics"
	"github.com/san-kum/blocksim/internal/sim"
	"github.com/san-kum/blocksim/internal/viz"
	"github.com/spf13/cobra"
)

func newDiagramsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagrams",
		Short: "list built-in diagrams",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			reg := experiment.NewRegistry()
			var rows [][]string
			for _, name := range reg.ListDiagrams() {
				info, _ := reg.GetDiagram(name)
				rows = append(rows, []string{name, info.Description, strings.Join(info.Watch, ", ")})
			}
			fmt.Println(viz.Table([]string{"diagram", "description", "watch"}, rows))
		},
	}
}

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "list block types, solvers and metrics",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", viz.MetricLabel.Render("blocks:  "), strings.Join(block.Types(), " "))
			fmt.Printf("%s %s\n", viz.MetricLabel.Render("solvers: "), strings.Join(integrators.Names(), " "))
			fmt.Printf("%s %s\n", viz.MetricLabel.Render("metrics: "), strings.Join(metrics.Names(), " "))
			fmt.Printf("%s %s\n", viz.MetricLabel.Render("themes:  "), strings.Join(viz.ThemeNames(), " "))
		},
	}
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [diagram]",
		Short: "list presets for a diagram",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			names := config.ListPresets(args[0])
			if len(names) == 0 {
				fmt.Printf("no presets for diagram: %s\n", args[0])
				return
			}
			var rows [][]string
			for _, n := range names {
				p := config.GetPreset(args[0], n)
				mode := "fixed"
				if p.Adaptive {
					mode = "adaptive"
				}
				rows = append(rows, []string{n, p.Solver, mode, fmt.Sprintf("%g", p.Dt), fmt.Sprintf("%g", p.Duration), formatParams(p.Params)})
			}
			fmt.Println(viz.Table([]string{"preset", "solver", "mode", "dt", "duration", "params"}, rows))
		},
	}
}

func formatParams(p map[string]float64) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, p[k])
	}
	return strings.Join(parts, " ")
}

// compileBuiltin builds and compiles a registered diagram.
func compileBuiltin(name string) (*diagram.Graph, error) {
	info, err := experiment.NewRegistry().GetDiagram(name)
	if err != nil {
		return nil, err
	}
	d, err := info.Build()
	if err != nil {
		return nil, err
	}
	return diagram.Compile(d)
}

func newDotCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "dot [diagram]",
		Short: "write a diagram as Graphviz DOT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := compileBuiltin(args[0])
			if err != nil {
				return err
			}
			data, err := g.DOT()
			if err != nil {
				return err
			}
			if out == "" {
				_, err = os.Stdout.Write(append(data, '\n'))
				return err
			}
			return os.WriteFile(out, data, 0644)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report [diagram]",
		Short: "show the compiled structure of a diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := compileBuiltin(args[0])
			if err != nil {
				return err
			}
			fmt.Print(viz.GraphReport(g))
			return nil
		},
	}
}

func newLyapunovCmd() *cobra.Command {
	var (
		integName    string
		dt, dur, eps float64
		sets         []string
	)
	cmd := &cobra.Command{
		Use:   "lyapunov [diagram]",
		Short: "estimate the largest Lyapunov exponent of a continuous diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := experiment.NewRegistry().GetDiagram(args[0])
			if err != nil {
				return err
			}
			d, err := info.Build()
			if err != nil {
				return err
			}
			params, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			for k, v := range params {
				if err := d.SetParam(k, v); err != nil {
					return err
				}
			}
			integ, err := integrators.New(integName)
			if err != nil {
				return err
			}
			s := sim.New(d, integ)
			if _, err := s.Compile(); err != nil {
				return err
			}
			sys, x0, err := s.Continuous()
			if err != nil {
				return err
			}
			lambda, err := analysis.LargestLyapunov(sys, integ, x0, dt, dur, eps)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s\n", viz.MetricLabel.Render("lyapunov:"),
				viz.MetricValue.Render(strconv.FormatFloat(lambda, 'g', 6, 64)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&integName, "integrator", "i", "rk4", "fixed-step integrator")
	cmd.Flags().Float64Var(&dt, "dt", 0.01, "step size")
	cmd.Flags().Float64VarP(&dur, "duration", "d", 20, "time span")
	cmd.Flags().Float64Var(&eps, "eps", 1e-8, "neighbour separation")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "parameter override block.param=value")
	return cmd
}

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/guptarohit/asciigraph"
	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/analysis"
	"github.com/san-kum/blocksim/internal/export"
	"github.com/san-kum/blocksim/internal/storage"
	"github.com/san-kum/blocksim/internal/viz"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := storage.New(dataDir).List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{
					r.ID,
					r.Diagram,
					r.Timestamp.Format("2006-01-02 15:04:05"),
					strconv.FormatFloat(r.Duration, 'g', 4, 64),
					r.Integrator,
					r.Status,
					strconv.Itoa(r.Steps),
				}
			}
			fmt.Print(viz.Table([]string{"id", "diagram", "time", "duration", "solver", "status", "steps"}, rows))
			fmt.Println()
			return nil
		},
	}
}

// loadColumns loads a run and picks the named columns. With no names it
// returns every recorded column.
func loadColumns(runID string, names []string) (*storage.RunMetadata, *storage.Series, []string, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	series, err := st.LoadSeries(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(series.Times) == 0 {
		return nil, nil, nil, errors.Errorf("run %s has no samples", runID)
	}
	if len(names) == 0 {
		names = series.Header[1:]
	}
	for _, n := range names {
		if _, ok := series.Column(n); !ok {
			return nil, nil, nil, errors.Errorf("run %s has no column %q (have %v)", runID, n, series.Header[1:])
		}
	}
	return meta, series, names, nil
}

func writeSVG(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Println("wrote", path)
	return nil
}

func newPlotCmd() *cobra.Command {
	var signals []string
	var width, height int
	var svgPath string
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot recorded signals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, series, names, err := loadColumns(args[0], signals)
			if err != nil {
				return err
			}

			if svgPath != "" {
				traces := make([]export.Trace, len(names))
				for i, n := range names {
					data, _ := series.Column(n)
					if traces[i], err = export.SeriesTrace(n, series.Times, data); err != nil {
						return err
					}
				}
				return writeSVG(svgPath, func(w io.Writer) error {
					return export.WriteSVG(w, meta.ID, traces, 800, 400)
				})
			}

			fmt.Println(viz.Title.Render(meta.ID), viz.Subtle.Render(meta.Diagram+" / "+meta.Integrator))
			for _, n := range names {
				data, _ := series.Column(n)
				caption := fmt.Sprintf("%s over %.3gs", n, series.Times[len(series.Times)-1])
				fmt.Println(asciigraph.Plot(data,
					asciigraph.Height(height),
					asciigraph.Width(width),
					asciigraph.Caption(caption),
				))
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&signals, "signal", nil, "columns to plot (default all)")
	cmd.Flags().IntVar(&width, "width", 80, "plot width")
	cmd.Flags().IntVar(&height, "height", 10, "plot height")
	cmd.Flags().StringVar(&svgPath, "svg", "", "write an SVG file instead of printing")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var signal string
	var dt float64
	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "step response and spectrum of a recorded signal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var names []string
			if signal != "" {
				names = []string{signal}
			}
			meta, series, names, err := loadColumns(args[0], names)
			if err != nil {
				return err
			}
			name := names[0]
			values, _ := series.Column(name)

			fmt.Println(viz.Title.Render(meta.ID), viz.Subtle.Render(name))
			fmt.Println(analysis.Step(series.Times, values))

			// Adaptive runs are not evenly spaced; resample before the FFT.
			if dt <= 0 {
				dt = meta.Dt
			}
			_, uniform, err := analysis.Resample(series.Times, values, dt)
			if err != nil {
				return err
			}
			freqs, mags := analysis.Spectrum(uniform, dt)
			if len(freqs) < 2 {
				return errors.Errorf("too few samples for a spectrum: %d", len(uniform))
			}
			fmt.Printf("%s %s Hz\n", viz.MetricLabel.Render("dominant"),
				viz.MetricValue.Render(strconv.FormatFloat(analysis.DominantFrequency(freqs, mags), 'g', 4, 64)))

			fmt.Println(asciigraph.Plot(mags[1:],
				asciigraph.Height(12),
				asciigraph.Width(80),
				asciigraph.Caption(fmt.Sprintf("amplitude spectrum of %s, 0 to %.3g Hz", name, freqs[len(freqs)-1])),
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&signal, "signal", "", "column to analyze (default first)")
	cmd.Flags().Float64Var(&dt, "dt", 0, "resampling step (default run dt)")
	return cmd
}

func newPhaseCmd() *cobra.Command {
	var xName, yName string
	var width, height int
	var svgPath string
	cmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase portrait of two recorded signals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var names []string
			if xName != "" && yName != "" {
				names = []string{xName, yName}
			}
			_, series, names, err := loadColumns(args[0], names)
			if err != nil {
				return err
			}
			if len(names) < 2 {
				return errors.New("need two columns for a phase portrait")
			}
			xs, _ := series.Column(names[0])
			ys, _ := series.Column(names[1])
			pt, err := analysis.NewPortrait(names[0], xs, names[1], ys)
			if err != nil {
				return err
			}
			if svgPath != "" {
				return writeSVG(svgPath, func(w io.Writer) error {
					return export.PortraitSVG(w, pt, 600, 600)
				})
			}
			fmt.Print(viz.PlotPortrait(pt, width, height))
			if c := pt.Crossings(0); len(c) > 1 {
				fmt.Printf("%s %s\n", viz.MetricLabel.Render("crossings of "+names[0]+"=0"),
					viz.MetricValue.Render(strconv.Itoa(len(c))))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&xName, "x", "", "column for the horizontal axis")
	cmd.Flags().StringVar(&yName, "y", "", "column for the vertical axis")
	cmd.Flags().IntVar(&width, "width", 60, "plot width in cells")
	cmd.Flags().IntVar(&height, "height", 20, "plot height in cells")
	cmd.Flags().StringVar(&svgPath, "svg", "", "write an SVG file instead of printing")
	return cmd
}

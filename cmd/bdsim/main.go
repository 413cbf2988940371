package main

import (
	"fmt"
	"os"

	"github.com/san-kum/blocksim/internal/viz"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	dataDir  string
	logLevel string
	theme    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "bdsim",
		Short:         "hybrid block-diagram simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(lvl)
			logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
			viz.SetTheme(theme)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".bdsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "scope", "colour theme (scope, phosphor, paper)")

	rootCmd.AddCommand(
		newRunCmd(),
		newListCmd(),
		newPlotCmd(),
		newAnalyzeCmd(),
		newPhaseCmd(),
		newDiagramsCmd(),
		newCatalogCmd(),
		newPresetsCmd(),
		newDotCmd(),
		newReportCmd(),
		newLyapunovCmd(),
		newTuneCmd(),
		newSweepCmd(),
		newMonteCarloCmd(),
		newScenarioCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

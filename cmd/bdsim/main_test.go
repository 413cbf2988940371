package main

import (
	"path/filepath"
	"testing"

	"github.com/san-kum/blocksim/internal/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsed(t *testing.T, args ...string) (*cobra.Command, *runFlags) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	f := &runFlags{}
	f.bind(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, f
}

func TestParseAssignments(t *testing.T) {
	p, err := parseAssignments([]string{"ctrl.k=4", "pid.kp=1e-2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"ctrl.k": 4, "pid.kp": 0.01}, p)

	_, err = parseAssignments([]string{"ctrl.k"})
	assert.Error(t, err)
}

func TestParseMetric(t *testing.T) {
	m, err := parseMetric("ise:plant:0.8")
	require.NoError(t, err)
	assert.Equal(t, config.MetricConfig{Name: "ise", Signal: "plant", Arg: 0.8}, m)

	m, err = parseMetric("stability")
	require.NoError(t, err)
	assert.Equal(t, "stability", m.Name)
	assert.Empty(t, m.Signal)

	_, err = parseMetric("ise:plant:x")
	assert.Error(t, err)
}

func TestParseGrid(t *testing.T) {
	names, ranges, err := parseGrid([]string{"ctrl.k=0.5,2,8", "plant.den=1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ctrl.k", "plant.den"}, names)
	assert.Equal(t, [][]float64{{0.5, 2, 8}, {1}}, ranges)

	_, _, err = parseGrid([]string{"ctrl.k="})
	assert.Error(t, err)
	_, _, err = parseGrid([]string{"ctrl.k=1,a"})
	assert.Error(t, err)
}

func TestResolveDefaults(t *testing.T) {
	cmd, f := parsed(t)
	cfg, err := f.resolve(cmd, "pendulum")
	require.NoError(t, err)
	assert.Equal(t, "pendulum", cfg.Diagram)
	assert.Equal(t, "rk4", cfg.Solver)
	assert.Equal(t, config.DefaultDt, cfg.Dt)
	assert.False(t, cfg.Adaptive)
}

func TestResolvePresetThenFlags(t *testing.T) {
	cmd, f := parsed(t, "--preset", "stiff-gain", "--time", "2", "--set", "ctrl.k=30", "--metric", "peak:plant")
	cfg, err := f.resolve(cmd, "step-response")
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.Duration)
	assert.Equal(t, 30.0, cfg.Params["ctrl.k"])
	require.Len(t, cfg.Metrics, 1)
	assert.Equal(t, "peak", cfg.Metrics[0].Name)

	// The preset table is not modified by overrides.
	assert.Equal(t, 25.0, config.GetPreset("step-response", "stiff-gain").Params["ctrl.k"])
}

func TestResolveUnknownPreset(t *testing.T) {
	cmd, f := parsed(t, "--preset", "nope")
	_, err := f.resolve(cmd, "step-response")
	assert.Error(t, err)
}

func TestResolveConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	c := config.DefaultConfig()
	c.Diagram = "vanderpol"
	c.Solver = "rk45"
	c.Adaptive = true
	require.NoError(t, config.Save(path, c))

	cmd, f := parsed(t, "--config", path, "--adaptive=false")
	cfg, err := f.resolve(cmd, "")
	require.NoError(t, err)
	assert.Equal(t, "vanderpol", cfg.Diagram)
	assert.Equal(t, "rk45", cfg.Solver)
	assert.False(t, cfg.Adaptive)
}

func TestLyapunovCmd(t *testing.T) {
	cmd := newLyapunovCmd()
	cmd.SetArgs([]string{"vanderpol", "--duration", "2", "--set", "vdp.mu=0.5"})
	require.NoError(t, cmd.Execute())

	cmd = newLyapunovCmd()
	cmd.SetArgs([]string{"pid-loop", "--duration", "1"})
	assert.Error(t, cmd.Execute())
}

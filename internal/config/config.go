package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/experiment"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt        = 0.01
	DefaultDuration  = 10.0
	DefaultTolerance = 1e-6
	DefaultMaxDt     = 0.1
	DefaultMinDt     = 1e-9
)

type Config struct {
	Diagram   string             `yaml:"diagram"`
	Solver    string             `yaml:"solver"`
	Dt        float64            `yaml:"dt"`
	Duration  float64            `yaml:"duration"`
	Tolerance float64            `yaml:"tolerance"`
	MinDt     float64            `yaml:"min_dt"`
	MaxDt     float64            `yaml:"max_dt"`
	Adaptive  bool               `yaml:"adaptive"`
	Watch     []string           `yaml:"watch,omitempty"`
	Params    map[string]float64 `yaml:"params,omitempty"`
	Metrics   []MetricConfig     `yaml:"metrics,omitempty"`
	LogLevel  string             `yaml:"log_level"`
}

// MetricConfig adds a metric on top of the diagram's defaults. Arg is the
// threshold for stability and the setpoint for ise.
type MetricConfig struct {
	Name   string  `yaml:"name"`
	Signal string  `yaml:"signal"`
	Arg    float64 `yaml:"arg"`
}

func DefaultConfig() *Config {
	return &Config{
		Diagram:   "step-response",
		Solver:    "rk4",
		Dt:        DefaultDt,
		Duration:  DefaultDuration,
		Tolerance: DefaultTolerance,
		MinDt:     DefaultMinDt,
		MaxDt:     DefaultMaxDt,
		LogLevel:  "info",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Experiment converts the file form into an experiment configuration.
func (c *Config) Experiment() experiment.Config {
	ms := make([]experiment.MetricSpec, len(c.Metrics))
	for i, m := range c.Metrics {
		ms[i] = experiment.MetricSpec{Name: m.Name, Signal: m.Signal, Arg: m.Arg}
	}
	params := make(map[string]float64, len(c.Params))
	for k, v := range c.Params {
		params[k] = v
	}
	return experiment.Config{
		Diagram:    c.Diagram,
		Integrator: c.Solver,
		Dt:         c.Dt,
		Duration:   c.Duration,
		Tolerance:  c.Tolerance,
		MinDt:      c.MinDt,
		MaxDt:      c.MaxDt,
		Adaptive:   c.Adaptive,
		Watch:      append([]string(nil), c.Watch...),
		Params:     params,
		Metrics:    ms,
	}
}

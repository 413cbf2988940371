package metrics

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/sim"
)

// Factory builds a metric bound to a watched signal. Metrics over the state
// vector ignore it.
type Factory func(signal string, arg float64) sim.Metric

var registry = map[string]Factory{
	"stability": func(_ string, arg float64) sim.Metric {
		if arg <= 0 {
			arg = 100
		}
		return NewStability(arg)
	},
	"control_effort": func(signal string, _ float64) sim.Metric { return NewControlEffort(signal) },
	"ise":            func(signal string, arg float64) sim.Metric { return NewTrackingISE(signal, arg) },
	"peak":           func(signal string, _ float64) sim.Metric { return NewPeak(signal) },
}

// New builds a named metric. arg is the threshold for stability and the
// setpoint for ise.
func New(name, signal string, arg float64) (sim.Metric, error) {
	f, ok := registry[name]
	if !ok {
		return nil, errors.Errorf("unknown metric: %s", name)
	}
	return f(signal, arg), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

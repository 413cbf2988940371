package config

import "sort"

var Presets = map[string]map[string]*Config{
	"step-response": {
		"default": {
			Diagram: "step-response", Solver: "rk4", Dt: 0.01, Duration: 10.0,
		},
		"stiff-gain": {
			Diagram: "step-response", Solver: "rk4", Dt: 0.01, Duration: 10.0,
			Params: map[string]float64{"ctrl.k": 25},
		},
		"adaptive": {
			Diagram: "step-response", Solver: "rk45", Dt: 0.05, Duration: 10.0,
			Adaptive: true, Tolerance: 1e-8, MaxDt: 0.5,
		},
	},
	"pid-loop": {
		"default": {
			Diagram: "pid-loop", Solver: "rk4", Dt: 0.01, Duration: 10.0,
		},
		"aggressive": {
			Diagram: "pid-loop", Solver: "rk4", Dt: 0.01, Duration: 10.0,
			Params: map[string]float64{"pid.kp": 8, "pid.ki": 4},
		},
	},
	"sine-sampler": {
		"default": {
			Diagram: "sine-sampler", Solver: "euler", Dt: 0.01, Duration: 3.0,
		},
		"aliased": {
			Diagram: "sine-sampler", Solver: "euler", Dt: 0.005, Duration: 5.0,
			Params: map[string]float64{"wave.freq": 9},
		},
	},
	"discrete-integrator": {
		"default": {
			Diagram: "discrete-integrator", Solver: "euler", Dt: 0.05, Duration: 2.0,
		},
	},
	"vanderpol": {
		"relaxation": {
			Diagram: "vanderpol", Solver: "rk45", Dt: 0.01, Duration: 30.0,
			Adaptive: true, Tolerance: 1e-6, MaxDt: 0.1,
			Params: map[string]float64{"vdp.mu": 5},
		},
		"gentle": {
			Diagram: "vanderpol", Solver: "rk4", Dt: 0.01, Duration: 20.0,
			Params: map[string]float64{"vdp.mu": 0.5},
		},
	},
	"pendulum": {
		"small": {
			Diagram: "pendulum", Solver: "rk4", Dt: 0.01, Duration: 20.0,
		},
		"damped": {
			Diagram: "pendulum", Solver: "rk4", Dt: 0.01, Duration: 20.0,
			Params: map[string]float64{"pendulum.damping": 0.5},
		},
	},
	"pendulum-pid": {
		"default": {
			Diagram: "pendulum-pid", Solver: "rk4", Dt: 0.005, Duration: 10.0,
		},
		"soft": {
			Diagram: "pendulum-pid", Solver: "rk4", Dt: 0.005, Duration: 10.0,
			Params: map[string]float64{"pid.kp": 5, "pid.kd": 1},
		},
	},
}

// GetPreset returns a copy of a preset, filled with defaults for anything
// the preset leaves unset.
func GetPreset(diagram, preset string) *Config {
	diagramPresets, ok := Presets[diagram]
	if !ok {
		return nil
	}
	p, ok := diagramPresets[preset]
	if !ok {
		return nil
	}
	cfg := *p
	def := DefaultConfig()
	if cfg.Tolerance == 0 {
		cfg.Tolerance = def.Tolerance
	}
	if cfg.MinDt == 0 {
		cfg.MinDt = def.MinDt
	}
	if cfg.MaxDt == 0 {
		cfg.MaxDt = def.MaxDt
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	cfg.Params = make(map[string]float64, len(p.Params))
	for k, v := range p.Params {
		cfg.Params[k] = v
	}
	return &cfg
}

func ListPresets(diagram string) []string {
	diagramPresets, ok := Presets[diagram]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(diagramPresets))
	for name := range diagramPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

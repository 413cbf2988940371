package dynamo

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Axpy returns s + a*d without touching s.
func (s State) Axpy(a float64, d State) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] + a*d[i]
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is the continuous part of a compiled diagram seen by an integrator.
// Every Derive call is one evaluation point and may be speculative.
type System interface {
	Derive(x State, t float64) (State, error)
	StateDim() int
}

type Integrator interface {
	Step(sys System, x State, t, dt float64) (State, error)
}

// AdaptiveIntegrator returns the proposed next step size alongside the new
// state. A rejected step returns ErrStepRejected and a smaller step size.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(sys System, x State, t, dt, tol float64) (State, float64, error)
}

// Configurable exposes tunable block parameters by name.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

type Config struct {
	Dt            float64
	Duration      float64
	Tolerance     float64
	MaxDt         float64
	MinDt         float64
	Adaptive      bool
	ValidateState bool
	CheckFinite   bool
	Watch         []string
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		Duration:      10.0,
		Tolerance:     1e-6,
		MaxDt:         0.1,
		MinDt:         1e-9,
		Adaptive:      false,
		ValidateState: true,
	}
}

// StepHint is the nominal step: Dt, or a hundredth of the run when unset.
func (c Config) StepHint() float64 {
	if c.Dt > 0 {
		return c.Dt
	}
	return c.Duration / 100
}

func (c Config) Validate() error {
	if c.Duration <= 0 {
		return errors.Errorf("duration must be positive, got %f", c.Duration)
	}
	if c.Dt < 0 {
		return errors.Errorf("dt must not be negative, got %f", c.Dt)
	}
	if c.Adaptive && c.Tolerance <= 0 {
		return errors.New("tolerance must be positive for adaptive stepping")
	}
	if c.MinDt < 0 || (c.MaxDt > 0 && c.MaxDt < c.MinDt) {
		return errors.Errorf("invalid step bounds [%g, %g]", c.MinDt, c.MaxDt)
	}
	return nil
}

type Status int

const (
	Uninitialized Status = iota
	Compiled
	Running
	Completed
	Stopped
	Failed
)

var statusNames = [...]string{"uninitialized", "compiled", "running", "completed", "stopped", "failed"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// Tick is one clock event with the discrete state written at it.
type Tick struct {
	Clock string  `json:"clock"`
	T     float64 `json:"t"`
	D     State   `json:"d"`
}

type Result struct {
	Times       []float64
	States      []State
	DStates     []State
	WatchNames  []string
	Watched     [][]float64
	Ticks       []Tick
	Violations  []Violation
	Metrics     map[string]float64
	StepsTaken  int
	Rejected    int
	Evaluations int
	Status      Status
	StopReason  string
}

// Series returns the recorded values of one watched signal.
func (r *Result) Series(name string) ([]float64, bool) {
	for i, n := range r.WatchNames {
		if n != name {
			continue
		}
		out := make([]float64, len(r.Watched))
		for k, row := range r.Watched {
			out[k] = row[i]
		}
		return out, true
	}
	return nil, false
}

// Final returns the last committed continuous state.
func (r *Result) Final() State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}

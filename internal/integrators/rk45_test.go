package integrators

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/dynamo"
)

func TestRK45_Step(t *testing.T) {
	integrator := NewRK45()
	dyn := &oscillator{}

	x := dynamo.State{1.0, 0.0}
	dt := 0.01

	for i := 0; i < 1000; i++ {
		var err error
		x, err = integrator.Step(dyn, x, float64(i)*dt, dt)
		if err != nil {
			t.Fatal(err)
		}
	}

	if !x.IsValid() {
		t.Error("RK45 produced invalid state")
	}
}

func TestRK45_EnergyConservation(t *testing.T) {
	integrator := NewRK45()
	dyn := &oscillator{}
	x0 := dynamo.State{1.0, 0.0}

	initialEnergy := dyn.Energy(x0)
	x := x0.Clone()
	dt := 0.01

	for i := 0; i < 10000; i++ {
		x, _ = integrator.Step(dyn, x, float64(i)*dt, dt)
	}

	finalEnergy := dyn.Energy(x)
	drift := math.Abs(finalEnergy-initialEnergy) / initialEnergy

	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestRK45_AdaptiveStep(t *testing.T) {
	integrator := NewRK45()
	x0 := dynamo.State{1.0, 0.0}
	dt := 0.1

	var x dynamo.State
	var err error
	tries := 0
	for ; tries < 20; tries++ {
		var next float64
		x, next, err = integrator.StepAdaptive(&oscillator{}, x0, 0, dt, 1e-8)
		if next <= 0 {
			t.Fatalf("StepAdaptive returned invalid dt: %f", next)
		}
		if err == nil {
			break
		}
		if !errors.Is(err, dynamo.ErrStepRejected) {
			t.Fatalf("StepAdaptive returned error: %v", err)
		}
		if next >= dt {
			t.Fatalf("rejection should shrink dt: %v -> %v", dt, next)
		}
		dt = next
	}
	if err != nil {
		t.Fatalf("no accepted step after %d tries", tries)
	}

	// x'' = -x from (1, 0) is (cos t, -sin t).
	if math.Abs(x[0]-math.Cos(dt)) > 1e-7 || math.Abs(x[1]+math.Sin(dt)) > 1e-7 {
		t.Errorf("accepted step got %v at dt=%v, want [%v %v]", x, dt, math.Cos(dt), -math.Sin(dt))
	}
}

// stepOn is x' = 0 up to and including `at`, then x' = 1.
type stepOn struct{ at float64 }

func (s stepOn) StateDim() int { return 1 }

func (s stepOn) Derive(x dynamo.State, t float64) (dynamo.State, error) {
	if t > s.at {
		return dynamo.State{1}, nil
	}
	return dynamo.State{0}, nil
}

func TestRK45_AcceptsFromRest(t *testing.T) {
	// The state and first stage are exactly zero, so only an absolute
	// tolerance term lets a step across the switch be accepted.
	sys := stepOn{at: 0.5}
	integrator := NewRK45()
	dt := 0.1

	var x dynamo.State
	var err error
	for tries := 0; tries < 40; tries++ {
		var next float64
		x, next, err = integrator.StepAdaptive(sys, dynamo.State{0}, 0.5, dt, 1e-6)
		if err == nil {
			break
		}
		dt = next
	}
	if err != nil {
		t.Fatalf("step from rest never accepted, last dt=%v: %v", dt, err)
	}
	if dt < 1e-5 {
		t.Errorf("accepted dt=%v, want a usable step", dt)
	}
	if x[0] <= 0 || x[0] > dt {
		t.Errorf("got x=%v after dt=%v, want in (0, dt]", x[0], dt)
	}
}

func TestRK45_Rejects(t *testing.T) {
	integrator := NewRK45()
	x0 := dynamo.State{1.0, 0.0}

	x, newDt, err := integrator.StepAdaptive(&oscillator{}, x0, 0, 2, 1e-12)
	if !errors.Is(err, dynamo.ErrStepRejected) {
		t.Fatalf("got %v, want step rejected", err)
	}
	if newDt >= 2 {
		t.Errorf("rejected step should shrink dt, got %v", newDt)
	}
	if x[0] != x0[0] || x[1] != x0[1] {
		t.Errorf("rejected step changed state: %v", x)
	}
}

func TestRK45_VsRK4_Accuracy(t *testing.T) {
	rk4 := NewRK4()
	rk45 := NewRK45()
	dyn := &oscillator{}

	x4 := dynamo.State{1.0, 0.0}
	x45 := x4.Clone()
	dt := 0.1

	for i := 0; i < 100; i++ {
		x4, _ = rk4.Step(dyn, x4, float64(i)*dt, dt)
		x45, _ = rk45.Step(dyn, x45, float64(i)*dt, dt)
	}

	t.Logf("RK4 final: [%.6f, %.6f]", x4[0], x4[1])
	t.Logf("RK45 final: [%.6f, %.6f]", x45[0], x45[1])

	if math.Abs(dyn.Energy(x45)-0.5) > math.Abs(dyn.Energy(x4)-0.5) {
		t.Log("Warning: RK45 not more accurate than RK4 for this case")
	}
}

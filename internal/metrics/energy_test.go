package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/blocksim/internal/dynamo"
	"github.com/san-kum/blocksim/internal/sim"
)

func sample(t float64, x ...float64) *sim.Sample {
	return &sim.Sample{T: t, X: dynamo.State(x)}
}

func TestEnergyConservation(t *testing.T) {
	m := NewEnergy(0, 1.0, 1.0, 9.81)

	theta := math.Pi / 4
	omega := 0.0

	m.Observe(sample(0, theta, omega))
	e1 := m.Value()

	m.Reset()

	ke := 0.5 * omega * omega
	pe := 9.81 * (1 - math.Cos(theta))
	expected := ke + pe

	m.Observe(sample(0, theta, omega))
	e2 := m.Value()

	if math.Abs(e1-expected) > 1e-6 {
		t.Errorf("expected energy %f, got %f", expected, e1)
	}

	if math.Abs(e2-expected) > 1e-6 {
		t.Errorf("expected energy %f after reset, got %f", expected, e2)
	}
}

func TestEnergyOffset(t *testing.T) {
	m := NewEnergy(1, 1.0, 1.0, 9.81)
	m.Observe(sample(0, 99, 0, 2))
	if got, want := m.Value(), 2.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("energy got %v, want %v", got, want)
	}

	m.Reset()
	m.Observe(sample(0, 1))
	if m.Value() != 0 {
		t.Error("short state should be ignored")
	}
}

func TestEnergyReset(t *testing.T) {
	m := NewEnergy(0, 1.0, 1.0, 9.81)

	m.Observe(sample(0, 1.0, 1.0))
	if m.Value() == 0 {
		t.Error("expected non-zero energy")
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyDrift(t *testing.T) {
	e := NewEnergy(0, 1, 1, 9.81)
	m := NewEnergyDrift(e.Of)

	m.Observe(sample(0, 0, 2))   // 2.0
	m.Observe(sample(1, 0, 2.2)) // 2.42
	m.Observe(sample(2, 0, 1.9)) // 1.805

	if got, want := m.Value(), 0.21; math.Abs(got-want) > 1e-9 {
		t.Errorf("drift got %v, want %v", got, want)
	}
}

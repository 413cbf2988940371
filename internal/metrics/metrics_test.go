package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/blocksim/internal/sim"
)

func watched(t, y float64) *sim.Sample {
	return &sim.Sample{T: t, Names: []string{"y"}, Watched: []float64{y}}
}

func TestStability(t *testing.T) {
	m := NewStability(1)
	if m.Value() != 1 {
		t.Errorf("empty stability got %v, want 1", m.Value())
	}
	m.Observe(sample(0, 0.5, -0.5))
	m.Observe(sample(1, 0.5, -1.5))
	m.Observe(sample(2, 0.1, 0.1))
	m.Observe(sample(3, 2, 0))
	if got, want := m.Value(), 0.5; got != want {
		t.Errorf("stability got %v, want %v", got, want)
	}
}

func TestControlEffort(t *testing.T) {
	m := NewControlEffort("y")
	for i, y := range []float64{1, -3, 2} {
		m.Observe(watched(float64(i), y))
	}
	m.Observe(&sim.Sample{T: 3})
	if got, want := m.Value(), 2.0; got != want {
		t.Errorf("control effort got %v, want %v", got, want)
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestTrackingISE(t *testing.T) {
	m := NewTrackingISE("y", 1)
	// error 1 for 0.5s, then 0.5 for 0.5s
	m.Observe(watched(0, 0))
	m.Observe(watched(0.5, 0.5))
	m.Observe(watched(1.0, 1))
	if got, want := m.Value(), 0.5+0.125; math.Abs(got-want) > 1e-12 {
		t.Errorf("ise got %v, want %v", got, want)
	}
}

func TestPeak(t *testing.T) {
	m := NewPeak("y")
	for i, y := range []float64{0.2, -1.5, 1.1} {
		m.Observe(watched(float64(i), y))
	}
	if got := m.Value(); got != 1.5 {
		t.Errorf("peak got %v, want 1.5", got)
	}
}

func TestRegistry(t *testing.T) {
	for _, name := range Names() {
		m, err := New(name, "y", 1)
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if m.Name() != name {
			t.Errorf("metric %q reports name %q", name, m.Name())
		}
	}
	if _, err := New("bogus", "", 0); err == nil {
		t.Error("expected error for unknown metric")
	}
}

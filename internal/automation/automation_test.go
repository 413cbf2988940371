package automation

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/blocksim/internal/experiment"
	"github.com/san-kum/blocksim/internal/storage"
)

const scenarioYAML = `
name: smoke
description: two short runs, the second saved
steps:
  - diagram: sine-sampler
    solver: euler
    dt: 0.01
    duration: 1
  - diagram: step-response
    dt: 0.01
    duration: 2
    params:
      ctrl.k: 2
    save: true
`

func writeScenario(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if len(sc.Steps) != 2 || sc.Steps[1].Params["ctrl.k"] != 2 {
		t.Fatalf("unexpected scenario %+v", sc)
	}

	store := storage.New(t.TempDir())
	results, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), store)
	if err != nil {
		t.Fatalf("RunScenario: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].RunID != "" {
		t.Error("first step should not be saved")
	}
	if results[1].RunID == "" {
		t.Fatal("second step should be saved")
	}

	meta, err := store.Load(results[1].RunID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if meta.Diagram != "step-response" || meta.Integrator != "rk4" {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Columns[1] != "plant[0]" {
		t.Errorf("state column got %s, want plant[0]", meta.Columns[1])
	}
}

func TestRunScenarioStopsOnFailure(t *testing.T) {
	sc := &Scenario{Name: "bad", Steps: []ScenarioStep{
		{Diagram: "pendulum", Dt: 0.01, Duration: 0.1},
		{Diagram: "missing", Dt: 0.01, Duration: 0.1},
		{Diagram: "pendulum", Dt: 0.01, Duration: 0.1},
	}}
	results, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(results) != 1 {
		t.Errorf("got %d results before failure, want 1", len(results))
	}
}

func TestLoadScenarioErrors(t *testing.T) {
	if _, err := LoadScenario(writeScenario(t, "name: empty\n")); err == nil {
		t.Error("expected error for scenario without steps")
	}
	if _, err := LoadScenario(writeScenario(t, "steps: [")); err == nil {
		t.Error("expected parse error")
	}
}

func TestSweepValues(t *testing.T) {
	s := &ParameterSweep{ParamMin: 1, ParamMax: 2, NumSteps: 5}
	want := []float64{1, 1.25, 1.5, 1.75, 2}
	got := s.Values()
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("value %d got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRunSweep(t *testing.T) {
	sweep := &ParameterSweep{
		Diagram:    "step-response",
		Integrator: "rk4",
		ParamName:  "ctrl.k",
		ParamMin:   1,
		ParamMax:   9,
		NumSteps:   3,
		Duration:   20,
		Dt:         0.01,
		Workers:    2,
	}
	results := RunSweep(context.Background(), sweep, experiment.NewRegistry())
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("k=%v: %v", r.ParamValue, r.Err)
		}
		// the plant output is its last state; it settles at k/(1+k).
		want := r.ParamValue / (1 + r.ParamValue)
		if got := r.FinalState[len(r.FinalState)-1]; math.Abs(got-want) > 1e-3 {
			t.Errorf("k=%v: final got %v, want %v", r.ParamValue, got, want)
		}
	}
}

func TestRunMonteCarloIsReproducible(t *testing.T) {
	cfg := &MonteCarloConfig{
		Diagram:      "pendulum",
		Integrator:   "rk4",
		BaseParams:   map[string]float64{"pendulum.damping": 0.2, "pendulum.length": 1},
		Perturbation: 0.1,
		NumTrials:    4,
		Duration:     1,
		Dt:           0.01,
		Seed:         7,
		Workers:      2,
	}
	reg := experiment.NewRegistry()
	a := RunMonteCarlo(context.Background(), cfg, reg)
	b := RunMonteCarlo(context.Background(), cfg, reg)

	stable, unstable := MonteCarloStats(a)
	if stable != 4 || unstable != 0 {
		t.Errorf("stats got %d/%d, want 4/0", stable, unstable)
	}
	for i := range a {
		for k, v := range a[i].Params {
			if b[i].Params[k] != v {
				t.Errorf("trial %d param %s differs: %v vs %v", i, k, v, b[i].Params[k])
			}
			if base := cfg.BaseParams[k]; math.Abs(v-base) > 0.1*base+1e-12 {
				t.Errorf("trial %d param %s=%v outside +-10%% of %v", i, k, v, base)
			}
		}
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/blocksim/internal/experiment"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Diagram != "step-response" {
		t.Errorf("expected diagram step-response, got %s", cfg.Diagram)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Duration <= 0 {
		t.Error("duration should be positive")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	doc := `
diagram: pid-loop
solver: rk45
adaptive: true
duration: 5
watch: [plant, pid]
params:
  pid.kp: 3.5
metrics:
  - name: peak
    signal: plant
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Diagram != "pid-loop" || cfg.Solver != "rk45" || !cfg.Adaptive {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Dt != DefaultDt {
		t.Errorf("dt got %v, want default %v", cfg.Dt, DefaultDt)
	}
	if cfg.Params["pid.kp"] != 3.5 {
		t.Errorf("pid.kp got %v, want 3.5", cfg.Params["pid.kp"])
	}
	if len(cfg.Metrics) != 1 || cfg.Metrics[0].Signal != "plant" {
		t.Errorf("metrics got %+v", cfg.Metrics)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("dt: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := GetPreset("vanderpol", "relaxation")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Params["vdp.mu"] != 5 || !got.Adaptive || got.MaxDt != 0.1 {
		t.Errorf("round trip lost fields: %+v", got)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("step-response", "stiff-gain")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Params["ctrl.k"] != 25 {
		t.Errorf("expected ctrl.k 25, got %f", cfg.Params["ctrl.k"])
	}
	if cfg.Tolerance != DefaultTolerance {
		t.Errorf("expected default tolerance, got %v", cfg.Tolerance)
	}

	cfg.Params["ctrl.k"] = 1
	if Presets["step-response"]["stiff-gain"].Params["ctrl.k"] != 25 {
		t.Error("GetPreset must not share the preset's params")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	cfg := GetPreset("pendulum", "nonexistent")
	if cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}

	cfg = GetPreset("nonexistent", "small")
	if cfg != nil {
		t.Error("expected nil for nonexistent diagram")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("pendulum")
	if len(presets) != 2 || presets[0] != "damped" {
		t.Errorf("got %v, want sorted pendulum presets", presets)
	}

	presets = ListPresets("nonexistent")
	if presets != nil {
		t.Error("expected nil for nonexistent diagram")
	}
}

func TestPresetsNameKnownDiagrams(t *testing.T) {
	reg := experiment.NewRegistry()
	for name, presets := range Presets {
		if _, err := reg.GetDiagram(name); err != nil {
			t.Errorf("presets for unknown diagram %s", name)
		}
		for pname, p := range presets {
			if p.Diagram != name {
				t.Errorf("preset %s/%s names diagram %s", name, pname, p.Diagram)
			}
			exp := experiment.New(GetPreset(name, pname).Experiment())
			if err := exp.Setup(reg); err != nil {
				t.Errorf("preset %s/%s: %v", name, pname, err)
			}
		}
	}
}

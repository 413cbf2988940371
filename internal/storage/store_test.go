package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/blocksim/internal/dynamo"
)

func sampleResult() *dynamo.Result {
	return &dynamo.Result{
		Times:      []float64{0.0, 0.01},
		States:     []dynamo.State{{1.0, 0.0}, {0.9, -0.1}},
		DStates:    []dynamo.State{{0}, {0.5}},
		WatchNames: []string{"plant"},
		Watched:    [][]float64{{1.0}, {0.9}},
		Ticks:      []dynamo.Tick{{Clock: "ctrl", T: 0, D: dynamo.State{0.5}}},
		Violations: []dynamo.Violation{{Block: "sat", Time: 0.01, Value: 1.2, Bound: 1}},
		Metrics:    map[string]float64{"energy": 1.5},
		StepsTaken: 1,
		Status:     dynamo.Completed,
	}
}

var info = RunInfo{
	Diagram:    "test",
	Integrator: "rk4",
	Dt:         0.01,
	Duration:   1.0,
	StateNames: []string{"p[0]", "p[1]"},
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(info, sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if meta.Diagram != "test" {
		t.Errorf("expected diagram 'test', got '%s'", meta.Diagram)
	}
	if meta.Status != "completed" {
		t.Errorf("expected status completed, got %s", meta.Status)
	}
	if meta.Ticks != 1 || len(meta.Violations) != 1 {
		t.Errorf("expected 1 tick and 1 violation, got %d and %d", meta.Ticks, len(meta.Violations))
	}
	if meta.Metrics["energy"] != 1.5 {
		t.Errorf("expected energy 1.5, got %f", meta.Metrics["energy"])
	}

	series, err := st.LoadSeries(runID)
	if err != nil {
		t.Fatalf("load series failed: %v", err)
	}
	want := []string{"time", "p[0]", "p[1]", "xd0", "plant"}
	if len(series.Header) != len(want) {
		t.Fatalf("header got %v, want %v", series.Header, want)
	}
	for i := range want {
		if series.Header[i] != want[i] {
			t.Errorf("header[%d] got %s, want %s", i, series.Header[i], want[i])
		}
	}
	if len(series.Times) != 2 {
		t.Errorf("expected 2 times, got %d", len(series.Times))
	}
	col, ok := series.Column("p[1]")
	if !ok || col[1] != -0.1 {
		t.Errorf("column p[1] got %v", col)
	}
	if _, ok := series.Column("time"); ok {
		t.Error("time is not a value column")
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	for i := 0; i < 2; i++ {
		if _, err := st.Save(info, sampleResult()); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
	if len(runs) == 2 && runs[0].ID == runs[1].ID {
		t.Error("run ids must be unique")
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(info, sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	metaPath := filepath.Join(runDir, "metadata.json")
	csvPath := filepath.Join(runDir, "states.csv")

	if _, err := os.Stat(metaPath); os.IsNotExist(err) {
		t.Error("metadata.json not created")
	}

	if _, err := os.Stat(csvPath); os.IsNotExist(err) {
		t.Error("states.csv not created")
	}
}

func TestLoadMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); err == nil {
		t.Error("expected error for missing run")
	}
	if _, err := st.LoadSeries("nope"); err == nil {
		t.Error("expected error for missing series")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, info, sampleResult()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var got ExportData
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Steps != 2 || got.Status != "completed" {
		t.Errorf("got steps %d status %s", got.Steps, got.Status)
	}
	if w := got.Watched["plant"]; len(w) != 2 || w[1] != 0.9 {
		t.Errorf("watched plant got %v", w)
	}
	if len(got.Ticks) != 1 || got.Ticks[0].Clock != "ctrl" {
		t.Errorf("ticks got %+v", got.Ticks)
	}
}

func TestExportJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := ExportJSON(path, info, sampleResult()); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"diagram": "test"`)) {
		t.Errorf("unexpected export %s", data)
	}
}

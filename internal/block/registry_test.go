package block

import (
	"sort"
	"testing"
)

func TestRegistryNew(t *testing.T) {
	clock, _ := NewClock("fast", 50, "Hz", 0)
	clocks := map[string]*Clock{"fast": clock}

	tests := []struct {
		spec Spec
		kind Kind
		nin  int
		nout int
		nx   int
		nd   int
	}{
		{Spec{Type: "constant", Params: Params{"value": 2}}, Source, 0, 1, 0, 0},
		{Spec{Type: "waveform", Params: Params{"wave": "square", "freq": 6.28, "unit": "rad/s"}}, Source, 0, 1, 0, 0},
		{Spec{Type: "sum", Params: Params{"signs": "+-"}}, Function, 2, 1, 0, 0},
		{Spec{Type: "gain", Params: Params{"matrix": []any{[]any{1, 0}, []any{0, 1}}}}, Function, 1, 1, 0, 0},
		{Spec{Type: "mux", Params: Params{"nin": 3}}, Function, 3, 1, 0, 0},
		{Spec{Type: "integrator", Params: Params{"x0": []any{1.0, 2.0}}}, Transfer, 1, 1, 2, 0},
		{Spec{Type: "lti_siso", Params: Params{"num": []any{1}, "den": []any{1, 2, 1}}}, Transfer, 1, 1, 2, 0},
		{Spec{Type: "lti_ss", Params: Params{
			"A": [][]float64{{0, 1}, {-1, 0}},
			"B": [][]float64{{0}, {1}},
			"C": [][]float64{{1, 0}},
		}}, Transfer, 1, 1, 2, 0},
		{Spec{Type: "zoh", Params: Params{"clock": "fast"}}, Clocked, 1, 1, 0, 1},
		{Spec{Type: "dpid", Params: Params{"clock": "fast", "kp": 3}}, Clocked, 1, 1, 0, 4},
		{Spec{Type: "stop"}, Sink, 1, 0, 0, 0},
		{Spec{Type: "pulse", Params: Params{"t": 0.5, "width": 0.2}}, Source, 0, 1, 0, 0},
		{Spec{Type: "transpose", Params: Params{"rows": 2, "cols": 3}}, Function, 1, 1, 0, 0},
		{Spec{Type: "norm"}, Function, 1, 1, 0, 0},
		{Spec{Type: "det", Params: Params{"n": 3}}, Function, 1, 1, 0, 0},
		{Spec{Type: "slice", Params: Params{"index": []any{2, 0}}}, Function, 1, 1, 0, 0},
		{Spec{Type: "inport", Params: Params{"nout": 2}}, Source, 0, 2, 0, 0},
		{Spec{Type: "outport", Params: Params{"nin": 3}}, Sink, 3, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.spec.Type, func(t *testing.T) {
			b, err := New(tt.spec, clocks)
			if err != nil {
				t.Fatalf("new failed: %v", err)
			}
			if b.Kind() != tt.kind {
				t.Errorf("kind: got %v, want %v", b.Kind(), tt.kind)
			}
			if b.NIn() != tt.nin || b.NOut() != tt.nout {
				t.Errorf("ports: got %d/%d, want %d/%d", b.NIn(), b.NOut(), tt.nin, tt.nout)
			}
			if b.NStates() != tt.nx || b.NDStates() != tt.nd {
				t.Errorf("states: got %d/%d, want %d/%d", b.NStates(), b.NDStates(), tt.nx, tt.nd)
			}
			if c, ok := b.(Checker); ok {
				if err := c.Check(); err != nil {
					t.Errorf("check failed: %v", err)
				}
			}
		})
	}
}

func TestRegistryErrors(t *testing.T) {
	tests := []Spec{
		{Type: "nope"},
		{Type: "zoh"},
		{Type: "zoh", Params: Params{"clock": "missing"}},
		{Type: "gain", Params: Params{"k": "two"}},
		{Type: "sum", Params: Params{"signs": "+*"}},
		{Type: "waveform", Params: Params{"unit": "rpm"}},
		{Type: "mux", Params: Params{"nin": 1.5}},
		{Type: "slice", Params: Params{"index": []any{0.5}}},
	}
	for _, spec := range tests {
		if _, err := New(spec, nil); err == nil {
			t.Errorf("%s %v: expected error", spec.Type, spec.Params)
		}
	}
}

func TestRegistryName(t *testing.T) {
	b, err := New(Spec{Type: "gain", Name: "k1"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if b.Name() != "k1" {
		t.Errorf("got %q, want k1", b.Name())
	}
}

func TestTypesSorted(t *testing.T) {
	types := Types()
	if !sort.StringsAreSorted(types) {
		t.Error("types not sorted")
	}
	if len(types) < 20 {
		t.Errorf("got %d types", len(types))
	}
}

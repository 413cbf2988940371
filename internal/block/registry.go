package block

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Factory builds a block from parameter values. clocks resolves the "clock"
// parameter of clocked blocks by name.
type Factory func(p Params, clocks map[string]*Clock) (Block, error)

var registry = map[string]Factory{
	"constant": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("constant", p)
		v := r.floats("value", []float64{0})
		return NewConstant(v...), r.err
	},
	"step": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("step", p)
		return NewStep(r.float("t", 1), r.float("off", 0), r.float("on", 1)), r.err
	},
	"ramp": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("ramp", p)
		return NewRamp(r.float("t", 1), r.float("start", 0), r.float("slope", 1)), r.err
	},
	"time": func(p Params, _ map[string]*Clock) (Block, error) {
		return NewTime(), nil
	},
	"waveform": newWaveFormFromParams,
	"piecewise": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("piecewise", p)
		return NewPiecewise(r.floats("times", nil), r.floats("values", nil)), r.err
	},
	"pulse": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("pulse", p)
		return NewPulse(r.float("t", 1), r.float("width", 1), r.float("off", 0), r.float("on", 1)), r.err
	},
	"gain": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("gain", p)
		if rows := r.matrix("matrix"); rows != nil {
			m, err := denseOf(rows)
			if err != nil {
				return nil, errors.Wrap(err, "gain")
			}
			return NewMatrixGain(m), r.err
		}
		return NewGain(r.float("k", 1)), r.err
	},
	"sum": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("sum", p)
		s, err := NewSum(r.str("signs", "++"))
		if err != nil {
			return nil, err
		}
		s.Wrap = r.str("wrap", "") == "angle"
		return s, r.err
	},
	"prod": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("prod", p)
		b, err := NewProd(r.str("ops", "**"))
		if err != nil {
			return nil, err
		}
		return b, r.err
	},
	"clip": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("clip", p)
		return NewClip(r.float("min", -1), r.float("max", 1)), r.err
	},
	"interpolate": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("interpolate", p)
		xs, ys := r.floats("x", nil), r.floats("y", nil)
		if r.err != nil {
			return nil, r.err
		}
		return NewInterpolate(xs, ys)
	},
	"inverse": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("inverse", p)
		return NewInverse(r.integer("n", 2)), r.err
	},
	"transpose": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("transpose", p)
		return NewTranspose(r.integer("rows", 2), r.integer("cols", 2)), r.err
	},
	"norm": func(p Params, _ map[string]*Clock) (Block, error) {
		return NewNorm(), nil
	},
	"det": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("det", p)
		return NewDet(r.integer("n", 2)), r.err
	},
	"slice": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("slice", p)
		if idx := r.floats("index", nil); idx != nil {
			index := make([]int, len(idx))
			for k, v := range idx {
				if v != math.Trunc(v) {
					return nil, errors.Errorf("slice: index %g is not an integer", v)
				}
				index[k] = int(v)
			}
			return NewSlice(index...), r.err
		}
		return NewSliceRange(r.integer("start", Open), r.integer("stop", Open), r.integer("step", 1)), r.err
	},
	"mux": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("mux", p)
		return NewMux(r.integer("nin", 2)), r.err
	},
	"demux": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("demux", p)
		return NewDemux(r.integer("nout", 2)), r.err
	},
	"inport": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("inport", p)
		return NewInPort(r.integer("nout", 1)), r.err
	},
	"outport": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("outport", p)
		return NewOutPort(r.integer("nin", 1)), r.err
	},
	"integrator": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("integrator", p)
		b := NewIntegrator(r.floats("x0", []float64{0})...)
		_, hasMin := p["min"]
		_, hasMax := p["max"]
		if hasMin || hasMax {
			b.Bounded(r.float("min", math.Inf(-1)), r.float("max", math.Inf(1)))
		}
		return b, r.err
	},
	"lti_ss": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("lti_ss", p)
		a, b, c := r.matrix("A"), r.matrix("B"), r.matrix("C")
		x0 := r.floats("x0", nil)
		if r.err != nil {
			return nil, r.err
		}
		var ms [3]*mat.Dense
		for i, rows := range [][][]float64{a, b, c} {
			m, err := denseOf(rows)
			if err != nil {
				return nil, errors.Wrap(err, "lti_ss")
			}
			ms[i] = m
		}
		return NewLTISS(ms[0], ms[1], ms[2], x0), nil
	},
	"lti_siso": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("lti_siso", p)
		num, den, x0 := r.floats("num", []float64{1}), r.floats("den", nil), r.floats("x0", nil)
		if r.err != nil {
			return nil, r.err
		}
		return NewLTISISO(num, den, x0)
	},
	"pendulum": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("pendulum", p)
		b := NewPendulum(r.float("theta0", 0), r.float("omega0", 0))
		b.Mass = r.float("mass", b.Mass)
		b.Length = r.float("length", b.Length)
		b.Damping = r.float("damping", b.Damping)
		b.Gravity = r.float("gravity", b.Gravity)
		return b, r.err
	},
	"zoh": func(p Params, clocks map[string]*Clock) (Block, error) {
		r := newReader("zoh", p)
		c := r.clock(clocks)
		return NewZOH(c, r.floats("x0", []float64{0})...), r.err
	},
	"dintegrator": func(p Params, clocks map[string]*Clock) (Block, error) {
		r := newReader("dintegrator", p)
		b := NewDIntegrator(r.clock(clocks), r.floats("x0", []float64{0})...)
		b.Gain = r.float("gain", 1)
		b.Min = r.float("min", math.Inf(-1))
		b.Max = r.float("max", math.Inf(1))
		return b, r.err
	},
	"dpid": func(p Params, clocks map[string]*Clock) (Block, error) {
		r := newReader("dpid", p)
		b := NewDPID(r.clock(clocks), r.float("kp", 1), r.float("ki", 0), r.float("kd", 0))
		b.Min = r.float("min", math.Inf(-1))
		b.Max = r.float("max", math.Inf(1))
		return b, r.err
	},
	"print": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("print", p)
		b := NewPrint(r.integer("nin", 1))
		b.Format = r.str("fmt", b.Format)
		return b, r.err
	},
	"stop": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("stop", p)
		b := NewStop()
		b.Threshold = r.float("threshold", 0)
		return b, r.err
	},
	"null": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("null", p)
		return NewNull(r.integer("nin", 1)), r.err
	},
	"recorder": func(p Params, _ map[string]*Clock) (Block, error) {
		r := newReader("recorder", p)
		return NewRecorder(r.integer("nin", 1)), r.err
	},
}

func newWaveFormFromParams(p Params, _ map[string]*Clock) (Block, error) {
	r := newReader("waveform", p)
	wave, err := ParseWave(r.str("wave", "sine"))
	if err != nil {
		return nil, err
	}
	freq := r.float("freq", 1)
	switch unit := r.str("unit", "Hz"); unit {
	case "Hz":
	case "rad/s":
		freq /= 2 * math.Pi
	default:
		return nil, errors.Errorf("waveform: unknown unit %q", unit)
	}
	w := NewWaveForm(wave, freq)
	w.Phase = r.float("phase", 0)
	w.Duty = r.float("duty", 0.5)
	w.Amplitude = r.float("amplitude", 1)
	w.Offset = r.float("offset", 0)
	_, hasMin := p["min"]
	_, hasMax := p["max"]
	if hasMin && hasMax {
		w.Between(r.float("min", -1), r.float("max", 1))
	}
	return w, r.err
}

func denseOf(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.New("empty matrix")
	}
	c := len(rows[0])
	data := make([]float64, 0, len(rows)*c)
	for i, row := range rows {
		if len(row) != c {
			return nil, errors.Errorf("row %d has %d columns, want %d", i, len(row), c)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), c, data), nil
}

// New builds a block from a spec using the static type registry.
func New(spec Spec, clocks map[string]*Clock) (Block, error) {
	fn, ok := registry[spec.Type]
	if !ok {
		return nil, errors.Errorf("unknown block type: %s", spec.Type)
	}
	b, err := fn(spec.Params, clocks)
	if err != nil {
		return nil, err
	}
	if spec.Name != "" {
		b.SetName(spec.Name)
	}
	return b, nil
}

// Types lists the registered block types in sorted order.
func Types() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

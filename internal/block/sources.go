package block

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/dynamo"
)

type Constant struct {
	Base
	Value Signal
}

func NewConstant(value ...float64) *Constant {
	return &Constant{Base: NewBase("constant", Source, 0, 1), Value: Signal(value)}
}

func (c *Constant) Check() error {
	if len(c.Value) == 0 {
		return errors.New("constant: empty value")
	}
	return nil
}

func (c *Constant) Output(f *Frame) ([]Signal, error) {
	return []Signal{c.Value}, nil
}

func (c *Constant) GetParams() map[string]float64 {
	return map[string]float64{"value": c.Value.Float()}
}

func (c *Constant) SetParam(name string, value float64) error {
	if name != "value" {
		return errors.Wrapf(dynamo.ErrUnknownParam, "constant: %s", name)
	}
	c.Value = Scalar(value)
	return nil
}

// Step outputs Off before time T and On from T onwards.
type Step struct {
	Base
	T   float64
	Off float64
	On  float64
}

func NewStep(t, off, on float64) *Step {
	return &Step{Base: NewBase("step", Source, 0, 1), T: t, Off: off, On: on}
}

func (s *Step) Output(f *Frame) ([]Signal, error) {
	if f.T >= s.T {
		return scalars(s.On), nil
	}
	return scalars(s.Off), nil
}

func (s *Step) GetParams() map[string]float64 {
	return map[string]float64{"t": s.T, "off": s.Off, "on": s.On}
}

func (s *Step) SetParam(name string, value float64) error {
	switch name {
	case "t":
		s.T = value
	case "off":
		s.Off = value
	case "on":
		s.On = value
	default:
		return errors.Wrapf(dynamo.ErrUnknownParam, "step: %s", name)
	}
	return nil
}

// Pulse outputs On for T <= t <= T+Width and Off otherwise.
type Pulse struct {
	Base
	T     float64
	Width float64
	Off   float64
	On    float64
}

func NewPulse(t, width, off, on float64) *Pulse {
	return &Pulse{Base: NewBase("pulse", Source, 0, 1), T: t, Width: width, Off: off, On: on}
}

func (p *Pulse) Check() error {
	if p.Width < 0 {
		return errors.Wrapf(dynamo.ErrParameterBounds, "pulse: width %g", p.Width)
	}
	return nil
}

func (p *Pulse) Output(f *Frame) ([]Signal, error) {
	if f.T >= p.T && f.T <= p.T+p.Width {
		return scalars(p.On), nil
	}
	return scalars(p.Off), nil
}

func (p *Pulse) GetParams() map[string]float64 {
	return map[string]float64{"t": p.T, "width": p.Width, "off": p.Off, "on": p.On}
}

func (p *Pulse) SetParam(name string, value float64) error {
	switch name {
	case "t":
		p.T = value
	case "width":
		p.Width = value
	case "off":
		p.Off = value
	case "on":
		p.On = value
	default:
		return errors.Wrapf(dynamo.ErrUnknownParam, "pulse: %s", name)
	}
	return nil
}

// Ramp outputs Start before T and Start + Slope*(t-T) afterwards.
type Ramp struct {
	Base
	T     float64
	Start float64
	Slope float64
}

func NewRamp(t, start, slope float64) *Ramp {
	return &Ramp{Base: NewBase("ramp", Source, 0, 1), T: t, Start: start, Slope: slope}
}

func (r *Ramp) Output(f *Frame) ([]Signal, error) {
	if f.T < r.T {
		return scalars(r.Start), nil
	}
	return scalars(r.Start + r.Slope*(f.T-r.T)), nil
}

// Time outputs simulation time.
type Time struct {
	Base
}

func NewTime() *Time {
	return &Time{Base: NewBase("time", Source, 0, 1)}
}

func (tm *Time) Output(f *Frame) ([]Signal, error) {
	return scalars(f.T), nil
}

type Wave int

const (
	Sine Wave = iota
	Square
	Triangle
)

func ParseWave(s string) (Wave, error) {
	switch s {
	case "sine", "":
		return Sine, nil
	case "square":
		return Square, nil
	case "triangle":
		return Triangle, nil
	}
	return 0, errors.Errorf("waveform: bad wave %q", s)
}

// WaveForm is a periodic signal in [-1, 1] scaled by Amplitude and shifted
// by Offset. Phase is a fraction of the period.
type WaveForm struct {
	Base
	Wave      Wave
	Freq      float64
	Phase     float64
	Amplitude float64
	Offset    float64
	Duty      float64
}

func NewWaveForm(wave Wave, freqHz float64) *WaveForm {
	return &WaveForm{
		Base:      NewBase("waveform", Source, 0, 1),
		Wave:      wave,
		Freq:      freqHz,
		Amplitude: 1,
		Duty:      0.5,
	}
}

// Between sets amplitude and offset so the output spans [lo, hi].
func (w *WaveForm) Between(lo, hi float64) *WaveForm {
	w.Amplitude = (hi - lo) / 2
	w.Offset = (hi + lo) / 2
	return w
}

func (w *WaveForm) Check() error {
	if w.Freq <= 0 {
		return errors.Wrapf(dynamo.ErrParameterBounds, "waveform: freq %g", w.Freq)
	}
	if w.Duty <= 0 || w.Duty >= 1 {
		return errors.Wrapf(dynamo.ErrParameterBounds, "waveform: duty %g", w.Duty)
	}
	return nil
}

func (w *WaveForm) Output(f *Frame) ([]Signal, error) {
	phase := math.Mod(f.T*w.Freq-w.Phase, 1)
	if phase < 0 {
		phase++
	}
	var out float64
	switch w.Wave {
	case Square:
		if phase < w.Duty {
			out = 1
		} else {
			out = -1
		}
	case Triangle:
		switch {
		case phase < 0.25:
			out = 4 * phase
		case phase < 0.75:
			out = 1 - 4*(phase-0.25)
		default:
			out = -1 + 4*(phase-0.75)
		}
	default:
		out = math.Sin(2 * math.Pi * phase)
	}
	return scalars(out*w.Amplitude + w.Offset), nil
}

func (w *WaveForm) GetParams() map[string]float64 {
	return map[string]float64{
		"freq":      w.Freq,
		"phase":     w.Phase,
		"amplitude": w.Amplitude,
		"offset":    w.Offset,
		"duty":      w.Duty,
	}
}

func (w *WaveForm) SetParam(name string, value float64) error {
	switch name {
	case "freq":
		w.Freq = value
	case "phase":
		w.Phase = value
	case "amplitude":
		w.Amplitude = value
	case "offset":
		w.Offset = value
	case "duty":
		w.Duty = value
	default:
		return errors.Wrapf(dynamo.ErrUnknownParam, "waveform: %s", name)
	}
	return nil
}

// Piecewise holds the value of the latest breakpoint not after t.
type Piecewise struct {
	Base
	Times  []float64
	Values []float64
}

func NewPiecewise(times, values []float64) *Piecewise {
	return &Piecewise{Base: NewBase("piecewise", Source, 0, 1), Times: times, Values: values}
}

func (p *Piecewise) Check() error {
	if len(p.Times) == 0 || len(p.Times) != len(p.Values) {
		return errors.Errorf("piecewise: %d times for %d values", len(p.Times), len(p.Values))
	}
	if !sort.Float64sAreSorted(p.Times) {
		return errors.New("piecewise: times must be non-decreasing")
	}
	return nil
}

func (p *Piecewise) Output(f *Frame) ([]Signal, error) {
	i := sort.Search(len(p.Times), func(i int) bool { return p.Times[i] > f.T }) - 1
	if i < 0 {
		i = 0
	}
	return scalars(p.Values[i]), nil
}

package experiment

import (
	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/diagram"
	"github.com/san-kum/blocksim/internal/metrics"
	"github.com/san-kum/blocksim/internal/sim"
)

// Info describes a built-in diagram.
type Info struct {
	Name        string
	Description string
	Build       func() (*diagram.Diagram, error)
	// Watch lists the signals recorded by default.
	Watch []string
	// Metrics returns fresh metric instances for one run.
	Metrics func() []sim.Metric
}

// builder keeps the first error so diagram code reads as a list of blocks.
type builder struct {
	d   *diagram.Diagram
	err error
}

func newBuilder(name string) *builder { return &builder{d: diagram.New(name)} }

func (b *builder) add(typ, name string, p block.Params) diagram.Handle {
	if b.err != nil {
		return -1
	}
	h, err := b.d.Add(block.Spec{Type: typ, Name: name, Params: p})
	if err != nil {
		b.err = errors.Wrapf(err, "block %s", name)
	}
	return h
}

func (b *builder) clock(name string, arg float64, unit string) {
	if b.err != nil {
		return
	}
	_, b.err = b.d.Clock(name, arg, unit, 0)
}

func (b *builder) connect(src, dst diagram.Plug) {
	if b.err == nil {
		b.d.Connect(src, dst)
	}
}

// sub wraps a separately built diagram as a subsystem block.
func (b *builder) sub(name string, build func() (*diagram.Diagram, error)) diagram.Handle {
	if b.err != nil {
		return -1
	}
	inner, err := build()
	if err == nil {
		var ss *diagram.SubSystem
		if ss, err = diagram.NewSubSystem(inner); err == nil {
			ss.SetName(name)
			return b.d.AddBlock(ss)
		}
	}
	b.err = errors.Wrapf(err, "subsystem %s", name)
	return -1
}

func (b *builder) done() (*diagram.Diagram, error) {
	if b.err != nil {
		return nil, errors.Wrapf(b.err, "diagram %s", b.d.Name)
	}
	return b.d, nil
}

func stepResponse() (*diagram.Diagram, error) {
	b := newBuilder("step-response")
	ref := b.add("step", "setpoint", block.Params{"t": 1, "on": 1})
	err := b.add("sum", "err", block.Params{"signs": "+-"})
	ctrl := b.add("gain", "ctrl", block.Params{"k": 4})
	plant := b.add("lti_siso", "plant", block.Params{"num": []float64{1}, "den": []float64{1, 2, 1}})
	b.connect(ref, err.Port(0))
	b.connect(err, ctrl)
	b.connect(ctrl, plant)
	b.connect(plant, err.Port(1))
	return b.done()
}

func pidLoop() (*diagram.Diagram, error) {
	b := newBuilder("pid-loop")
	b.clock("ctrl", 20, "Hz")
	ref := b.add("step", "setpoint", block.Params{"t": 0.5, "on": 1})
	err := b.add("sum", "err", block.Params{"signs": "+-"})
	pid := b.add("dpid", "pid", block.Params{"clock": "ctrl", "kp": 2, "ki": 1, "kd": 0.1, "min": -10, "max": 10})
	plant := b.add("lti_siso", "plant", block.Params{"num": []float64{1}, "den": []float64{1, 1}})
	b.connect(ref, err.Port(0))
	b.connect(err, pid)
	b.connect(pid, plant)
	b.connect(plant, err.Port(1))
	return b.done()
}

func sineSampler() (*diagram.Diagram, error) {
	b := newBuilder("sine-sampler")
	b.clock("sample", 10, "Hz")
	wave := b.add("waveform", "wave", block.Params{"wave": "sine", "freq": 1})
	hold := b.add("zoh", "hold", block.Params{"clock": "sample"})
	sink := b.add("null", "sink", nil)
	b.connect(wave, hold)
	b.connect(hold, sink)
	return b.done()
}

func discreteIntegrator() (*diagram.Diagram, error) {
	b := newBuilder("discrete-integrator")
	b.clock("tick", 10, "Hz")
	rate := b.add("constant", "rate", block.Params{"value": 1})
	acc := b.add("dintegrator", "acc", block.Params{"clock": "tick"})
	x := b.add("integrator", "x", nil)
	sink := b.add("null", "sink", block.Params{"nin": 2})
	b.connect(rate, acc)
	b.connect(rate, x)
	b.connect(acc, sink.Port(0))
	b.connect(x, sink.Port(1))
	return b.done()
}

func vanderpol() (*diagram.Diagram, error) {
	b := newBuilder("vanderpol")
	x := b.add("integrator", "x", block.Params{"x0": 2})
	v := b.add("integrator", "v", block.Params{"x0": 0})
	if b.err != nil {
		return b.done()
	}
	vdp := b.d.AddBlock(newVanDerPol(1))
	b.d.Block(vdp).SetName("vdp")
	b.connect(x, vdp.Port(0))
	b.connect(v, vdp.Port(1))
	b.connect(vdp, v)
	b.connect(v, x)
	return b.done()
}

func pendulum() (*diagram.Diagram, error) {
	b := newBuilder("pendulum")
	torque := b.add("constant", "torque", block.Params{"value": 0})
	p := b.add("pendulum", "pendulum", block.Params{"theta0": 1, "damping": 0})
	sink := b.add("null", "sink", block.Params{"nin": 2})
	b.connect(torque, p)
	b.connect(p.Range(0, 2), sink.Range(0, 2))
	return b.done()
}

func pendulumPID() (*diagram.Diagram, error) {
	b := newBuilder("pendulum-pid")
	b.clock("ctrl", 50, "Hz")
	ref := b.add("constant", "setpoint", block.Params{"value": 0})
	err := b.add("sum", "err", block.Params{"signs": "+-", "wrap": "angle"})
	pid := b.add("dpid", "pid", block.Params{"clock": "ctrl", "kp": 20, "ki": 2, "kd": 4, "min": -20, "max": 20})
	p := b.add("pendulum", "pendulum", block.Params{"theta0": 0.5})
	guard := b.add("stop", "guard", block.Params{"threshold": 50})
	b.connect(ref, err.Port(0))
	b.connect(err, pid)
	b.connect(pid, p)
	b.connect(p.Port(0), err.Port(1))
	b.connect(p.Port(1), guard)
	return b.done()
}

// lagStage is inport -> 1/(s+1) -> outport.
func lagStage() (*diagram.Diagram, error) {
	b := newBuilder("lag-stage")
	in := b.add("inport", "in", nil)
	lag := b.add("lti_siso", "lag", block.Params{"num": []float64{1}, "den": []float64{1, 1}})
	out := b.add("outport", "out", nil)
	b.connect(in, lag)
	b.connect(lag, out)
	return b.done()
}

func pulseCascade() (*diagram.Diagram, error) {
	b := newBuilder("pulse-cascade")
	pulse := b.add("pulse", "pulse", block.Params{"t": 0.5, "width": 1})
	first := b.sub("lag1", lagStage)
	second := b.sub("lag2", lagStage)
	sink := b.add("null", "sink", nil)
	b.connect(pulse, first)
	b.connect(first, second)
	b.connect(second, sink)
	return b.done()
}

var diagrams = []Info{
	{
		Name:        "step-response",
		Description: "second-order plant under proportional feedback",
		Build:       stepResponse,
		Watch:       []string{"setpoint", "plant"},
		Metrics: func() []sim.Metric {
			return []sim.Metric{metrics.NewTrackingISE("plant", 0.8), metrics.NewPeak("plant")}
		},
	},
	{
		Name:        "pid-loop",
		Description: "first-order plant under a 20 Hz discrete PID",
		Build:       pidLoop,
		Watch:       []string{"setpoint", "plant", "pid"},
		Metrics: func() []sim.Metric {
			return []sim.Metric{metrics.NewTrackingISE("plant", 1), metrics.NewControlEffort("pid")}
		},
	},
	{
		Name:        "sine-sampler",
		Description: "1 Hz sine held by a 10 Hz zero-order hold",
		Build:       sineSampler,
		Watch:       []string{"wave", "hold"},
	},
	{
		Name:        "discrete-integrator",
		Description: "discrete and continuous integration of the same constant",
		Build:       discreteIntegrator,
		Watch:       []string{"acc", "x"},
	},
	{
		Name:        "vanderpol",
		Description: "Van der Pol oscillator from two integrators and a function block",
		Build:       vanderpol,
		Watch:       []string{"x", "v"},
		Metrics: func() []sim.Metric {
			return []sim.Metric{metrics.NewStability(5), metrics.NewPeak("x")}
		},
	},
	{
		Name:        "pendulum",
		Description: "undamped free pendulum",
		Build:       pendulum,
		Watch:       []string{"pendulum[0]", "pendulum[1]"},
		Metrics: func() []sim.Metric {
			e := metrics.NewEnergy(0, 1, 1, 9.81)
			return []sim.Metric{e, metrics.NewEnergyDrift(e.Of)}
		},
	},
	{
		Name:        "pulse-cascade",
		Description: "unit pulse through two first-order lag subsystems",
		Build:       pulseCascade,
		Watch:       []string{"pulse", "lag1/lag", "lag2/lag"},
		Metrics: func() []sim.Metric {
			return []sim.Metric{metrics.NewPeak("lag2/lag")}
		},
	},
	{
		Name:        "pendulum-pid",
		Description: "pendulum regulated to rest by a 50 Hz discrete PID",
		Build:       pendulumPID,
		Watch:       []string{"pendulum[0]", "pid"},
		Metrics: func() []sim.Metric {
			return []sim.Metric{metrics.NewControlEffort("pid"), metrics.NewTrackingISE("pendulum[0]", 0)}
		},
	},
}

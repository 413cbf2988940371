package block

import (
	"math"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/dynamo"
)

// ZOH samples its input at each tick and holds it until the next one.
type ZOH struct {
	Base
}

func NewZOH(c *Clock, x0 ...float64) *ZOH {
	if len(x0) == 0 {
		x0 = []float64{0}
	}
	z := &ZOH{Base: NewBase("zoh", Clocked, 1, 1)}
	z.setDiscrete(c, x0)
	return z
}

func (z *ZOH) Output(f *Frame) ([]Signal, error) {
	return []Signal{Signal(f.D).Clone()}, nil
}

func (z *ZOH) Next(f *Frame) ([]float64, error) {
	u := f.In[0]
	if len(u) != len(f.D) {
		return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "zoh: input of %d for %d states", len(u), len(f.D))
	}
	return append([]float64(nil), u...), nil
}

// DIntegrator is a forward-Euler discrete integrator x[k+1] = x[k] + G*T*u[k]
// with optional bounds.
type DIntegrator struct {
	Base
	Gain float64
	Min  float64
	Max  float64
}

func NewDIntegrator(c *Clock, x0 ...float64) *DIntegrator {
	if len(x0) == 0 {
		x0 = []float64{0}
	}
	b := &DIntegrator{
		Base: NewBase("dintegrator", Clocked, 1, 1),
		Gain: 1,
		Min:  math.Inf(-1),
		Max:  math.Inf(1),
	}
	b.setDiscrete(c, x0)
	return b
}

func (b *DIntegrator) Check() error {
	if b.Min > b.Max {
		return errors.Wrapf(dynamo.ErrParameterBounds, "dintegrator: min %g > max %g", b.Min, b.Max)
	}
	return nil
}

func (b *DIntegrator) Output(f *Frame) ([]Signal, error) {
	return []Signal{Signal(f.D).Clone()}, nil
}

func (b *DIntegrator) Next(f *Frame) ([]float64, error) {
	u := f.In[0]
	if len(u) != len(f.D) {
		return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "dintegrator: input of %d for %d states", len(u), len(f.D))
	}
	dt := b.Clock().Period
	next := make([]float64, len(f.D))
	for i, x := range f.D {
		v := x + b.Gain*dt*u[i]
		switch {
		case v > b.Max:
			f.Violate(i, v, b.Max)
			v = b.Max
		case v < b.Min:
			f.Violate(i, v, b.Min)
			v = b.Min
		}
		next[i] = v
	}
	return next, nil
}

func (b *DIntegrator) GetParams() map[string]float64 {
	return map[string]float64{"gain": b.Gain, "min": b.Min, "max": b.Max}
}

func (b *DIntegrator) SetParam(name string, value float64) error {
	switch name {
	case "gain":
		b.Gain = value
	case "min":
		b.Min = value
	case "max":
		b.Max = value
	default:
		return errors.Wrapf(dynamo.ErrUnknownParam, "dintegrator: %s", name)
	}
	return nil
}

// DPID is a sampled PID controller acting on an error input. Its discrete
// state is [integral, previous error, output, primed]. The integral is frozen
// while the output saturates.
type DPID struct {
	Base
	Kp, Ki, Kd float64
	Min, Max   float64
}

const (
	pidIntegral = iota
	pidPrevErr
	pidOut
	pidPrimed
)

func NewDPID(c *Clock, kp, ki, kd float64) *DPID {
	p := &DPID{
		Base: NewBase("dpid", Clocked, 1, 1),
		Kp:   kp,
		Ki:   ki,
		Kd:   kd,
		Min:  math.Inf(-1),
		Max:  math.Inf(1),
	}
	p.setDiscrete(c, []float64{0, 0, 0, 0})
	return p
}

func (p *DPID) Check() error {
	if p.Min > p.Max {
		return errors.Wrapf(dynamo.ErrParameterBounds, "dpid: min %g > max %g", p.Min, p.Max)
	}
	return nil
}

func (p *DPID) Output(f *Frame) ([]Signal, error) {
	return scalars(f.D[pidOut]), nil
}

func (p *DPID) Next(f *Frame) ([]float64, error) {
	dt := p.Clock().Period
	e := f.Input(0)
	integral := f.D[pidIntegral] + e*dt
	derivative := 0.0
	if f.D[pidPrimed] != 0 {
		derivative = (e - f.D[pidPrevErr]) / dt
	}

	u := p.Kp*e + p.Ki*integral + p.Kd*derivative
	switch {
	case u > p.Max:
		f.Violate(pidOut, u, p.Max)
		u, integral = p.Max, f.D[pidIntegral]
	case u < p.Min:
		f.Violate(pidOut, u, p.Min)
		u, integral = p.Min, f.D[pidIntegral]
	}
	return []float64{integral, e, u, 1}, nil
}

func (p *DPID) GetParams() map[string]float64 {
	return map[string]float64{"kp": p.Kp, "ki": p.Ki, "kd": p.Kd, "min": p.Min, "max": p.Max}
}

func (p *DPID) SetParam(name string, value float64) error {
	switch name {
	case "kp":
		p.Kp = value
	case "ki":
		p.Ki = value
	case "kd":
		p.Kd = value
	case "min":
		p.Min = value
	case "max":
		p.Max = value
	default:
		return errors.Wrapf(dynamo.ErrUnknownParam, "dpid: %s", name)
	}
	return nil
}

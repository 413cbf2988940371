package block

import (
	"math"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/dynamo"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"
)

// Gain multiplies its input by K, or by the matrix M when set.
type Gain struct {
	Base
	K float64
	M *mat.Dense
}

func NewGain(k float64) *Gain {
	return &Gain{Base: NewBase("gain", Function, 1, 1), K: k}
}

func NewMatrixGain(m *mat.Dense) *Gain {
	return &Gain{Base: NewBase("gain", Function, 1, 1), K: 1, M: m}
}

func (g *Gain) Output(f *Frame) ([]Signal, error) {
	u := f.In[0]
	if g.M == nil {
		y := make(Signal, len(u))
		for i, v := range u {
			y[i] = g.K * v
		}
		return []Signal{y}, nil
	}
	r, c := g.M.Dims()
	if len(u) != c {
		return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "gain: %dx%d matrix, input of %d", r, c, len(u))
	}
	var y mat.VecDense
	y.MulVec(g.M, mat.NewVecDense(c, u.Clone()))
	out := make(Signal, r)
	for i := range out {
		out[i] = g.K * y.AtVec(i)
	}
	return []Signal{out}, nil
}

func (g *Gain) GetParams() map[string]float64 { return map[string]float64{"k": g.K} }

func (g *Gain) SetParam(name string, value float64) error {
	if name != "k" {
		return errors.Wrapf(dynamo.ErrUnknownParam, "gain: %s", name)
	}
	g.K = value
	return nil
}

// Sum adds or subtracts its inputs according to Signs, one of '+' or '-'
// per input. With Wrap set the result is wrapped into [-pi, pi).
type Sum struct {
	Base
	Signs []float64
	Wrap  bool
}

func NewSum(signs string) (*Sum, error) {
	if signs == "" {
		return nil, errors.New("sum: empty signs")
	}
	s := make([]float64, len(signs))
	for i, r := range signs {
		switch r {
		case '+':
			s[i] = 1
		case '-':
			s[i] = -1
		default:
			return nil, errors.Errorf("sum: bad sign %q", r)
		}
	}
	return &Sum{Base: NewBase("sum", Function, len(s), 1), Signs: s}, nil
}

func (s *Sum) Output(f *Frame) ([]Signal, error) {
	n := len(f.In[0])
	y := make(Signal, n)
	for i, u := range f.In {
		if len(u) != n {
			return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "sum: input %d has %d elements, want %d", i, len(u), n)
		}
		for j, v := range u {
			y[j] += s.Signs[i] * v
		}
	}
	if s.Wrap {
		for j, v := range y {
			y[j] = WrapAngle(v)
		}
	}
	return []Signal{y}, nil
}

// WrapAngle maps an angle into [-pi, pi).
func WrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// Prod multiplies or divides its inputs according to Ops, one of '*' or '/'
// per input. The first operand starts from 1.
type Prod struct {
	Base
	Divide []bool
}

func NewProd(ops string) (*Prod, error) {
	if ops == "" {
		return nil, errors.New("prod: empty ops")
	}
	d := make([]bool, len(ops))
	for i, r := range ops {
		switch r {
		case '*':
		case '/':
			d[i] = true
		default:
			return nil, errors.Errorf("prod: bad op %q", r)
		}
	}
	return &Prod{Base: NewBase("prod", Function, len(d), 1), Divide: d}, nil
}

func (p *Prod) Output(f *Frame) ([]Signal, error) {
	n := len(f.In[0])
	y := make(Signal, n)
	for j := range y {
		y[j] = 1
	}
	for i, u := range f.In {
		if len(u) != n {
			return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "prod: input %d has %d elements, want %d", i, len(u), n)
		}
		for j, v := range u {
			if !p.Divide[i] {
				y[j] *= v
				continue
			}
			if v == 0 {
				return nil, errors.Errorf("prod: division by zero at input %d", i)
			}
			y[j] /= v
		}
	}
	return []Signal{y}, nil
}

type Clip struct {
	Base
	Min float64
	Max float64
}

func NewClip(lo, hi float64) *Clip {
	return &Clip{Base: NewBase("clip", Function, 1, 1), Min: lo, Max: hi}
}

func (c *Clip) Check() error {
	if c.Min > c.Max {
		return errors.Wrapf(dynamo.ErrParameterBounds, "clip: min %g > max %g", c.Min, c.Max)
	}
	return nil
}

func (c *Clip) Output(f *Frame) ([]Signal, error) {
	u := f.In[0]
	y := make(Signal, len(u))
	for i, v := range u {
		y[i] = math.Min(math.Max(v, c.Min), c.Max)
	}
	return []Signal{y}, nil
}

func (c *Clip) GetParams() map[string]float64 {
	return map[string]float64{"min": c.Min, "max": c.Max}
}

func (c *Clip) SetParam(name string, value float64) error {
	switch name {
	case "min":
		c.Min = value
	case "max":
		c.Max = value
	default:
		return errors.Wrapf(dynamo.ErrUnknownParam, "clip: %s", name)
	}
	return nil
}

// Interpolate maps its input through a piecewise linear table, holding the
// end values outside the table range.
type Interpolate struct {
	Base
	pl interp.PiecewiseLinear
}

func NewInterpolate(xs, ys []float64) (*Interpolate, error) {
	if len(xs) < 2 || len(xs) != len(ys) {
		return nil, errors.Errorf("interpolate: need at least 2 points, got %d x and %d y", len(xs), len(ys))
	}
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return nil, errors.New("interpolate: x must be strictly increasing")
		}
	}
	b := &Interpolate{Base: NewBase("interpolate", Function, 1, 1)}
	if err := b.pl.Fit(xs, ys); err != nil {
		return nil, errors.Wrap(err, "interpolate")
	}
	return b, nil
}

func (b *Interpolate) Output(f *Frame) ([]Signal, error) {
	u := f.In[0]
	y := make(Signal, len(u))
	for i, v := range u {
		y[i] = b.pl.Predict(v)
	}
	return []Signal{y}, nil
}

// Inverse inverts an N x N matrix given row-major on its single input.
type Inverse struct {
	Base
	N int
}

func NewInverse(n int) *Inverse {
	return &Inverse{Base: NewBase("inverse", Function, 1, 1), N: n}
}

func (b *Inverse) Check() error {
	if b.N < 1 {
		return errors.Wrapf(dynamo.ErrParameterBounds, "inverse: n=%d", b.N)
	}
	return nil
}

func (b *Inverse) Output(f *Frame) ([]Signal, error) {
	u := f.In[0]
	if len(u) != b.N*b.N {
		return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "inverse: input of %d for %dx%d", len(u), b.N, b.N)
	}
	a := mat.NewDense(b.N, b.N, u.Clone())
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return nil, errors.Wrap(err, "inverse")
	}
	y := make(Signal, 0, b.N*b.N)
	for i := 0; i < b.N; i++ {
		y = append(y, inv.RawRowView(i)...)
	}
	return []Signal{y}, nil
}

// Mux concatenates its inputs into one vector.
type Mux struct {
	Base
}

func NewMux(nin int) *Mux {
	return &Mux{Base: NewBase("mux", Function, nin, 1)}
}

func (m *Mux) Output(f *Frame) ([]Signal, error) {
	var y Signal
	for _, u := range f.In {
		y = append(y, u...)
	}
	return []Signal{y}, nil
}

// Demux splits a vector input into scalar outputs.
type Demux struct {
	Base
}

func NewDemux(nout int) *Demux {
	return &Demux{Base: NewBase("demux", Function, 1, nout)}
}

func (d *Demux) Output(f *Frame) ([]Signal, error) {
	u := f.In[0]
	if len(u) != d.NOut() {
		return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "demux: input of %d for %d outputs", len(u), d.NOut())
	}
	return scalars(u...), nil
}

// Func wraps a Go function as a stateless block.
type Func struct {
	Base
	Fn func(t float64, in []Signal) ([]Signal, error)
}

func NewFunc(nin, nout int, fn func(t float64, in []Signal) ([]Signal, error)) *Func {
	return &Func{Base: NewBase("function", Function, nin, nout), Fn: fn}
}

func (b *Func) Check() error {
	if b.Fn == nil {
		return errors.New("function: nil func")
	}
	return nil
}

func (b *Func) Output(f *Frame) ([]Signal, error) {
	return b.Fn(f.T, f.In)
}

package block

import (
	"math"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Integrator outputs its state and integrates its input. Optional Min/Max
// bounds stop integration at the bound and clip the committed state.
type Integrator struct {
	Base
	Min []float64
	Max []float64
}

func NewIntegrator(x0 ...float64) *Integrator {
	b := &Integrator{Base: NewBase("integrator", Transfer, 1, 1)}
	b.setInitialState(x0)
	return b
}

// Bounded applies the same bounds to every state element.
func (b *Integrator) Bounded(lo, hi float64) *Integrator {
	n := b.NStates()
	b.Min, b.Max = make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		b.Min[i], b.Max[i] = lo, hi
	}
	return b
}

func (b *Integrator) Check() error {
	if b.NStates() == 0 {
		return errors.New("integrator: empty initial state")
	}
	if b.Min == nil && b.Max == nil {
		return nil
	}
	if len(b.Min) != b.NStates() || len(b.Max) != b.NStates() {
		return errors.Wrapf(dynamo.ErrDimensionMismatch, "integrator: bounds for %d states", b.NStates())
	}
	for i := range b.Min {
		if b.Min[i] > b.Max[i] {
			return errors.Wrapf(dynamo.ErrParameterBounds, "integrator: min %g > max %g", b.Min[i], b.Max[i])
		}
	}
	return nil
}

func (b *Integrator) Output(f *Frame) ([]Signal, error) {
	return []Signal{Signal(f.X).Clone()}, nil
}

func (b *Integrator) Deriv(f *Frame) ([]float64, error) {
	u := f.In[0]
	if len(u) != len(f.X) {
		return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "integrator: input of %d for %d states", len(u), len(f.X))
	}
	dx := make([]float64, len(u))
	copy(dx, u)
	if b.Min == nil {
		return dx, nil
	}
	for i, x := range f.X {
		if (x >= b.Max[i] && dx[i] > 0) || (x <= b.Min[i] && dx[i] < 0) {
			dx[i] = 0
		}
	}
	return dx, nil
}

func (b *Integrator) Clamp(f *Frame) {
	if b.Min == nil {
		return
	}
	for i, x := range f.X {
		switch {
		case x > b.Max[i]:
			f.Violate(i, x, b.Max[i])
			f.X[i] = b.Max[i]
		case x < b.Min[i]:
			f.Violate(i, x, b.Min[i])
			f.X[i] = b.Min[i]
		}
	}
}

// LTISS is a strictly proper state-space system x' = Ax + Bu, y = Cx.
type LTISS struct {
	Base
	A, B, C *mat.Dense
}

func NewLTISS(a, b, c *mat.Dense, x0 []float64) *LTISS {
	return newLTISS("lti_ss", a, b, c, x0)
}

func newLTISS(typ string, a, b, c *mat.Dense, x0 []float64) *LTISS {
	s := &LTISS{Base: NewBase(typ, Transfer, 1, 1), A: a, B: b, C: c}
	if x0 == nil {
		n, _ := a.Dims()
		x0 = make([]float64, n)
	}
	s.setInitialState(x0)
	return s
}

// NewLTISISO realizes num(s)/den(s), coefficients highest power first, in
// controller canonical form. The transfer function must be strictly proper.
func NewLTISISO(num, den, x0 []float64) (*LTISS, error) {
	for len(den) > 0 && den[0] == 0 {
		den = den[1:]
	}
	for len(num) > 1 && num[0] == 0 {
		num = num[1:]
	}
	n := len(den) - 1
	if n < 1 {
		return nil, errors.New("lti_siso: denominator must have degree >= 1")
	}
	if len(num) > n {
		return nil, errors.Errorf("lti_siso: not strictly proper (num degree %d, den degree %d)", len(num)-1, n)
	}
	lead := den[0]
	a := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		a.Set(0, j, -den[j+1]/lead)
	}
	for i := 1; i < n; i++ {
		a.Set(i, i-1, 1)
	}
	b := mat.NewDense(n, 1, nil)
	b.Set(0, 0, 1)
	c := mat.NewDense(1, n, nil)
	for i, v := range num {
		c.Set(0, n-len(num)+i, v/lead)
	}
	if x0 != nil && len(x0) != n {
		return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "lti_siso: x0 of %d for order %d", len(x0), n)
	}
	return newLTISS("lti_siso", a, b, c, x0), nil
}

func (s *LTISS) Check() error {
	ar, ac := s.A.Dims()
	br, _ := s.B.Dims()
	_, cc := s.C.Dims()
	if ar != ac || br != ar || cc != ar {
		return errors.Wrapf(dynamo.ErrDimensionMismatch, "%s: A %dx%d, B rows %d, C cols %d", s.Type(), ar, ac, br, cc)
	}
	if ar != s.NStates() {
		return errors.Wrapf(dynamo.ErrDimensionMismatch, "%s: order %d with %d initial states", s.Type(), ar, s.NStates())
	}
	return nil
}

func (s *LTISS) Output(f *Frame) ([]Signal, error) {
	var y mat.VecDense
	y.MulVec(s.C, mat.NewVecDense(len(f.X), Signal(f.X).Clone()))
	return []Signal{Signal(y.RawVector().Data)}, nil
}

func (s *LTISS) Deriv(f *Frame) ([]float64, error) {
	_, m := s.B.Dims()
	u := f.In[0]
	if len(u) != m {
		return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "%s: input of %d, want %d", s.Type(), len(u), m)
	}
	var ax, bu mat.VecDense
	ax.MulVec(s.A, mat.NewVecDense(len(f.X), Signal(f.X).Clone()))
	bu.MulVec(s.B, mat.NewVecDense(m, u.Clone()))
	ax.AddVec(&ax, &bu)
	return ax.RawVector().Data, nil
}

// Pendulum is a damped rigid pendulum driven by a torque input. Outputs are
// angle and angular velocity.
type Pendulum struct {
	Base
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64
}

func NewPendulum(theta0, omega0 float64) *Pendulum {
	p := &Pendulum{
		Base:    NewBase("pendulum", Transfer, 1, 2),
		Mass:    1.0,
		Length:  1.0,
		Damping: 0.1,
		Gravity: 9.81,
	}
	p.setInitialState([]float64{theta0, omega0})
	return p
}

func (p *Pendulum) Check() error {
	if p.Mass <= 0 || p.Length <= 0 {
		return errors.Wrapf(dynamo.ErrParameterBounds, "pendulum: mass %g, length %g", p.Mass, p.Length)
	}
	return nil
}

func (p *Pendulum) Output(f *Frame) ([]Signal, error) {
	return scalars(f.X[0], f.X[1]), nil
}

func (p *Pendulum) Deriv(f *Frame) ([]float64, error) {
	theta, omega := f.X[0], f.X[1]
	torque := f.Input(0)
	alpha := (-p.Damping*omega - p.Mass*p.Gravity*p.Length*math.Sin(theta) + torque) / (p.Mass * p.Length * p.Length)
	return []float64{omega, alpha}, nil
}

func (p *Pendulum) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":    p.Mass,
		"length":  p.Length,
		"damping": p.Damping,
		"gravity": p.Gravity,
	}
}

func (p *Pendulum) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		p.Mass = value
	case "length":
		p.Length = value
	case "damping":
		p.Damping = value
	case "gravity":
		p.Gravity = value
	default:
		return errors.Wrapf(dynamo.ErrUnknownParam, "pendulum: %s", name)
	}
	return nil
}

package experiment

import (
	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/dynamo"
)

// vanDerPol computes the acceleration mu*(1-x^2)*v - x of the Van der Pol
// oscillator from inputs x and v.
type vanDerPol struct {
	block.Base
	Mu float64
}

func newVanDerPol(mu float64) *vanDerPol {
	return &vanDerPol{Base: block.NewBase("vdp", block.Function, 2, 1), Mu: mu}
}

func (b *vanDerPol) Check() error {
	if b.Mu < 0 {
		return errors.Wrapf(dynamo.ErrParameterBounds, "vdp: mu %g", b.Mu)
	}
	return nil
}

func (b *vanDerPol) Output(f *block.Frame) ([]block.Signal, error) {
	x, v := f.Input(0), f.Input(1)
	return []block.Signal{block.Scalar(b.Mu*(1-x*x)*v - x)}, nil
}

func (b *vanDerPol) GetParams() map[string]float64 { return map[string]float64{"mu": b.Mu} }

func (b *vanDerPol) SetParam(name string, value float64) error {
	if name != "mu" {
		return errors.Wrapf(dynamo.ErrUnknownParam, "vdp: %s", name)
	}
	b.Mu = value
	return nil
}

package metrics

import (
	"math"

	"github.com/san-kum/blocksim/internal/sim"
	"gonum.org/v1/gonum/floats"
)

// Stability is the fraction of committed steps whose continuous state stays
// within threshold in every element.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(smp *sim.Sample) {
	s.samples++
	if len(smp.X) == 0 {
		return
	}
	if floats.Norm(smp.X, math.Inf(1)) > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

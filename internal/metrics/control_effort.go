package metrics

import (
	"math"

	"github.com/san-kum/blocksim/internal/sim"
)

// ControlEffort is the mean magnitude of a watched signal, usually the
// actuator input of a plant.
type ControlEffort struct {
	name    string
	signal  string
	sum     float64
	samples int
}

func NewControlEffort(signal string) *ControlEffort {
	return &ControlEffort{
		name:   "control_effort",
		signal: signal,
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(s *sim.Sample) {
	u, ok := s.Signal(c.signal)
	if !ok {
		return
	}
	c.sum += math.Abs(u)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

package block

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/dynamo"
)

// Clock is a discrete-time source ticking at Offset + k*Period. It holds no
// run state, so every run starts from tick zero.
type Clock struct {
	Name   string
	Period float64
	Offset float64
}

// NewClock builds a clock from a rate. unit is "s" or "ms" for a period, or
// "Hz" for a frequency.
func NewClock(name string, arg float64, unit string, offset float64) (*Clock, error) {
	if arg <= 0 || math.IsInf(arg, 0) || math.IsNaN(arg) {
		return nil, errors.Wrapf(dynamo.ErrParameterBounds, "clock %s: rate %g", name, arg)
	}
	var period float64
	switch unit {
	case "s", "":
		period = arg
	case "ms":
		period = arg / 1000
	case "Hz":
		period = 1 / arg
	default:
		return nil, errors.Errorf("clock %s: unknown unit %q", name, unit)
	}
	if offset < 0 {
		return nil, errors.Wrapf(dynamo.ErrParameterBounds, "clock %s: offset %g", name, offset)
	}
	return &Clock{Name: name, Period: period, Offset: offset}, nil
}

// Tick returns the time of the k-th tick. Computed from k, not accumulated.
func (c *Clock) Tick(k int) float64 {
	return c.Offset + float64(k)*c.Period
}

func (c *Clock) Rate() float64 { return 1 / c.Period }

func (c *Clock) String() string {
	return fmt.Sprintf("%s: T=%g s (%g Hz), offset=%g", c.Name, c.Period, c.Rate(), c.Offset)
}

package analysis

import (
	"math"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/dynamo"
)

// LargestLyapunov estimates the largest Lyapunov exponent of sys from x0.
// A neighbour trajectory starts eps away along the first state and is
// pulled back to distance eps after every fixed step; the exponent is the
// mean log growth per unit time. Positive values mean nearby trajectories
// diverge exponentially.
func LargestLyapunov(sys dynamo.System, integ dynamo.Integrator, x0 dynamo.State, dt, duration, eps float64) (float64, error) {
	if len(x0) == 0 {
		return 0, errors.New("lyapunov: empty state")
	}
	if dt <= 0 || eps <= 0 || duration < dt {
		return 0, errors.Errorf("lyapunov: need dt > 0, eps > 0 and duration >= dt, got dt=%g eps=%g duration=%g", dt, eps, duration)
	}

	x := x0.Clone()
	xp := x0.Clone()
	xp[0] += eps

	steps := int(math.Floor(duration/dt + 1e-9))
	sum, n := 0.0, 0
	for k := 0; k < steps; k++ {
		t := float64(k) * dt
		var err error
		if x, err = integ.Step(sys, x, t, dt); err != nil {
			return 0, errors.Wrapf(err, "lyapunov: t=%g", t)
		}
		if xp, err = integ.Step(sys, xp, t, dt); err != nil {
			return 0, errors.Wrapf(err, "lyapunov: neighbour at t=%g", t)
		}
		delta := xp.Sub(x)
		sep := delta.Norm()
		if sep == 0 || math.IsNaN(sep) || math.IsInf(sep, 0) {
			continue
		}
		sum += math.Log(sep / eps)
		n++
		xp = x.Axpy(eps/sep, delta)
	}
	if n == 0 {
		return 0, errors.New("lyapunov: trajectories never separated")
	}
	return sum / (float64(n) * dt), nil
}

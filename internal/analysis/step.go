package analysis

import (
	"fmt"
	"math"
)

// StepInfo summarises a step response.
type StepInfo struct {
	Initial      float64
	Final        float64
	Peak         float64
	PeakTime     float64
	RiseTime     float64 // 10% to 90% of the change
	Overshoot    float64 // percent of the change
	SettlingTime float64 // last entry into the 2% band
}

func (s StepInfo) String() string {
	return fmt.Sprintf("rise=%.4fs overshoot=%.2f%% settling=%.4fs peak=%.4f@%.4fs final=%.4f",
		s.RiseTime, s.Overshoot, s.SettlingTime, s.Peak, s.PeakTime, s.Final)
}

// Step measures a response that starts at values[0] and ends at the last
// sample. Rise and settling times are NaN when the response never gets
// there or does not move at all.
func Step(times, values []float64) StepInfo {
	info := StepInfo{RiseTime: math.NaN(), SettlingTime: math.NaN()}
	if len(values) == 0 || len(times) != len(values) {
		return info
	}
	info.Initial = values[0]
	info.Final = values[len(values)-1]
	info.Peak, info.PeakTime = values[0], times[0]

	span := info.Final - info.Initial
	if span == 0 {
		return info
	}
	dir := math.Copysign(1, span)

	t10, t90 := math.NaN(), math.NaN()
	for i, y := range values {
		frac := (y - info.Initial) / span
		if math.IsNaN(t10) && frac >= 0.1 {
			t10 = times[i]
		}
		if math.IsNaN(t90) && frac >= 0.9 {
			t90 = times[i]
		}
		if (y-info.Peak)*dir > 0 {
			info.Peak, info.PeakTime = y, times[i]
		}
	}
	info.RiseTime = t90 - t10

	if over := (info.Peak - info.Final) * dir; over > 0 {
		info.Overshoot = 100 * over / math.Abs(span)
	}

	band := 0.02 * math.Abs(span)
	info.SettlingTime = times[0]
	for i := len(values) - 1; i >= 0; i-- {
		if math.Abs(values[i]-info.Final) > band {
			if i+1 < len(times) {
				info.SettlingTime = times[i+1]
			}
			break
		}
	}
	return info
}

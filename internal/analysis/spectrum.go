package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/interp"
)

// Spectrum returns the one-sided amplitude spectrum of a series sampled
// every dt seconds. A Hann window is applied first; amplitudes are
// corrected for its gain so a unit sine peaks near 1.
func Spectrum(data []float64, dt float64) (freqs, mags []float64) {
	n := len(data)
	if n < 2 || dt <= 0 {
		return nil, nil
	}

	buf := make([]complex128, n)
	for i, v := range data {
		window := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		buf[i] = complex(v*window, 0)
	}
	spectrum := fft.FFT(buf)

	half := n/2 + 1
	freqs = make([]float64, half)
	mags = make([]float64, half)
	for k := 0; k < half; k++ {
		freqs[k] = float64(k) / (float64(n) * dt)
		mags[k] = 4 * cmplx.Abs(spectrum[k]) / float64(n)
	}
	mags[0] /= 2
	return freqs, mags
}

// DominantFrequency is the frequency of the largest non-DC bin.
func DominantFrequency(freqs, mags []float64) float64 {
	best, bestMag := 0.0, -1.0
	for k := 1; k < len(mags); k++ {
		if mags[k] > bestMag {
			best, bestMag = freqs[k], mags[k]
		}
	}
	return best
}

// Resample interpolates (times, values) onto a uniform grid of step dt
// starting at times[0].
func Resample(times, values []float64, dt float64) ([]float64, []float64, error) {
	if len(times) != len(values) {
		return nil, nil, errors.Errorf("resample: %d times for %d values", len(times), len(values))
	}
	if len(times) < 2 || dt <= 0 {
		return nil, nil, errors.New("resample: need two samples and a positive step")
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(times, values); err != nil {
		return nil, nil, errors.Wrap(err, "resample")
	}

	t0, t1 := times[0], times[len(times)-1]
	n := int(math.Floor((t1-t0)/dt+1e-9)) + 1
	ts := make([]float64, n)
	ys := make([]float64, n)
	for i := range ts {
		ts[i] = t0 + float64(i)*dt
		ys[i] = pl.Predict(ts[i])
	}
	return ts, ys, nil
}

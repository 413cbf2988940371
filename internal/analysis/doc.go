// Package analysis characterises recorded signals.
//
//   - [Spectrum]: windowed magnitude spectrum of a uniformly sampled series
//   - [Resample]: piecewise-linear resampling of an adaptive-step series
//   - [Step]: rise time, overshoot and settling time of a step response
//   - [NewPortrait]: 2D phase portrait of two series with upward crossings
//
// Series from adaptive runs are not uniformly spaced; resample them before
// taking a spectrum:
//
//	ts, ys, err := analysis.Resample(res.Times, y, 0.01)
//	freqs, mags := analysis.Spectrum(ys, 0.01)
package analysis

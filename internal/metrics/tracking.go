package metrics

import (
	"math"

	"github.com/san-kum/blocksim/internal/sim"
)

// TrackingISE integrates the squared error between a watched signal and a
// fixed setpoint. The error is held over each step (left rectangle rule).
type TrackingISE struct {
	signal   string
	setpoint float64

	sum   float64
	lastT float64
	lastE float64
	seen  bool
}

func NewTrackingISE(signal string, setpoint float64) *TrackingISE {
	return &TrackingISE{signal: signal, setpoint: setpoint}
}

func (m *TrackingISE) Name() string { return "ise" }

func (m *TrackingISE) Observe(s *sim.Sample) {
	y, ok := s.Signal(m.signal)
	if !ok {
		return
	}
	e := m.setpoint - y
	if m.seen {
		m.sum += m.lastE * m.lastE * (s.T - m.lastT)
	}
	m.lastT, m.lastE, m.seen = s.T, e, true
}

func (m *TrackingISE) Value() float64 { return m.sum }

func (m *TrackingISE) Reset() {
	m.sum, m.lastT, m.lastE, m.seen = 0, 0, 0, false
}

// Peak is the largest magnitude a watched signal reaches.
type Peak struct {
	signal string
	peak   float64
}

func NewPeak(signal string) *Peak { return &Peak{signal: signal} }

func (p *Peak) Name() string { return "peak" }

func (p *Peak) Observe(s *sim.Sample) {
	if y, ok := s.Signal(p.signal); ok {
		p.peak = math.Max(p.peak, math.Abs(y))
	}
}

func (p *Peak) Value() float64 { return p.peak }
func (p *Peak) Reset()         { p.peak = 0 }

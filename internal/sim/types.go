package sim

import "github.com/san-kum/blocksim/internal/dynamo"

// Sample is one committed step as seen by metrics. Slices are only valid
// during Observe.
type Sample struct {
	T       float64
	X       dynamo.State
	D       dynamo.State
	Names   []string
	Watched []float64
}

// Signal returns the value of a watched signal at this step.
func (s *Sample) Signal(name string) (float64, bool) {
	for i, n := range s.Names {
		if n == name {
			return s.Watched[i], true
		}
	}
	return 0, false
}

type Metric interface {
	Name() string
	Observe(s *Sample)
	Value() float64
	Reset()
}

package block

import (
	"fmt"
	"math"
	"strings"
)

// Signal is the value carried by one wire. Scalars have length 1.
type Signal []float64

func Scalar(v float64) Signal { return Signal{v} }

// Float returns the first element, or 0 for an empty signal.
func (s Signal) Float() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[0]
}

func (s Signal) Clone() Signal {
	c := make(Signal, len(s))
	copy(c, s)
	return c
}

func (s Signal) Finite() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s Signal) String() string {
	if len(s) == 1 {
		return fmt.Sprintf("%g", s[0])
	}
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func scalars(vs ...float64) []Signal {
	out := make([]Signal, len(vs))
	for i, v := range vs {
		out[i] = Signal{v}
	}
	return out
}

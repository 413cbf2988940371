package block

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// Print writes its inputs at every committed step.
type Print struct {
	Base
	Format string
	W      io.Writer
}

func NewPrint(nin int) *Print {
	return &Print{Base: NewBase("print", Sink, nin, 0), Format: "%g", W: os.Stdout}
}

func (p *Print) Step(rc *RunContext, in []Signal) error {
	parts := make([]string, len(in))
	for i, u := range in {
		if len(u) == 1 {
			parts[i] = fmt.Sprintf(p.Format, u[0])
			continue
		}
		elems := make([]string, len(u))
		for j, v := range u {
			elems[j] = fmt.Sprintf(p.Format, v)
		}
		parts[i] = "[" + strings.Join(elems, " ") + "]"
	}
	_, err := fmt.Fprintf(p.W, "PRINT(%s @ t=%.3f) %s\n", p.Name(), rc.T, strings.Join(parts, " "))
	return err
}

// Stop ends the run when its input exceeds Threshold in magnitude, or when
// Pred returns true if set.
type Stop struct {
	Base
	Threshold float64
	Pred      func(t float64, u Signal) bool
}

func NewStop() *Stop {
	return &Stop{Base: NewBase("stop", Sink, 1, 0)}
}

func (s *Stop) Step(rc *RunContext, in []Signal) error {
	hit := false
	if s.Pred != nil {
		hit = s.Pred(rc.T, in[0])
	} else {
		for _, v := range in[0] {
			if math.Abs(v) > s.Threshold {
				hit = true
				break
			}
		}
	}
	if hit {
		if rc.Log != nil {
			rc.Log.Infof("stop condition at t=%.4f", rc.T)
		}
		rc.Stop(s.Name())
	}
	return nil
}

// Null terminates an output that is not otherwise consumed.
type Null struct {
	Base
}

func NewNull(nin int) *Null {
	return &Null{Base: NewBase("null", Sink, nin, 0)}
}

// Recorder keeps the inputs seen at every committed step.
type Recorder struct {
	Base
	Times    []float64
	Samples  [][]Signal
	Started  int
	Finished bool
}

func NewRecorder(nin int) *Recorder {
	return &Recorder{Base: NewBase("recorder", Sink, nin, 0)}
}

func (r *Recorder) Start(rc *RunContext) error {
	r.Times, r.Samples, r.Finished = nil, nil, false
	r.Started++
	return nil
}

func (r *Recorder) Step(rc *RunContext, in []Signal) error {
	row := make([]Signal, len(in))
	for i, u := range in {
		row[i] = u.Clone()
	}
	r.Times = append(r.Times, rc.T)
	r.Samples = append(r.Samples, row)
	return nil
}

func (r *Recorder) Done(rc *RunContext, blocking bool) error {
	r.Finished = true
	return nil
}

// Values returns the scalar history of input port i.
func (r *Recorder) Values(i int) []float64 {
	out := make([]float64, len(r.Samples))
	for k, row := range r.Samples {
		out[k] = row[i].Float()
	}
	return out
}

package sim

import (
	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/diagram"
	"github.com/san-kum/blocksim/internal/dynamo"
)

// evaluator runs zero-time dataflow passes over a compiled graph. It owns
// every buffer it lends to blocks; nothing it hands out survives the call.
type evaluator struct {
	g           *diagram.Graph
	checkFinite bool

	ins    [][]block.Signal
	outs   [][]block.Signal
	filled []int
	queue  []int
	frames []block.Frame

	x, d dynamo.State

	// sink receives soft violations; nil during speculative evaluations.
	sink  func(dynamo.Violation)
	evals int
}

func newEvaluator(g *diagram.Graph, checkFinite bool) *evaluator {
	n := len(g.Blocks)
	e := &evaluator{
		g:           g,
		checkFinite: checkFinite,
		ins:         make([][]block.Signal, n),
		outs:        make([][]block.Signal, n),
		filled:      make([]int, n),
		queue:       make([]int, 0, n),
		frames:      make([]block.Frame, n),
		x:           make(dynamo.State, g.NX),
		d:           make(dynamo.State, g.ND),
	}
	for i, b := range g.Blocks {
		e.ins[i] = make([]block.Signal, b.NIn())
	}
	return e
}

// frame points block i's frame at the scratch state. Slices are capped so a
// block cannot reach its neighbours' state.
func (e *evaluator) frame(i int, t float64) *block.Frame {
	s := e.g.Layout[i]
	f := &e.frames[i]
	f.T = t
	f.In = e.ins[i]
	f.X = e.x[s.X : s.X+s.NX : s.X+s.NX]
	f.D = e.d[s.D : s.D+s.ND : s.D+s.ND]
	f.Bind(e.g.Blocks[i].Name(), e.sink)
	return f
}

func (e *evaluator) fail(i int, t float64, op string, err error) error {
	return &dynamo.ComputationError{
		Block:   e.g.Blocks[i].Name(),
		ID:      i,
		Time:    t,
		Op:      op,
		Wrapped: err,
	}
}

// evaluate fills every input slot for (t, x, d). Sources and stateful blocks
// seed the worklist in id order; a function block joins it once its last
// input arrives.
func (e *evaluator) evaluate(t float64, x, d dynamo.State) error {
	e.evals++
	copy(e.x, x)
	copy(e.d, d)
	for i := range e.ins {
		for p := range e.ins[i] {
			e.ins[i][p] = nil
		}
		e.filled[i] = 0
		e.outs[i] = nil
	}

	e.queue = e.queue[:0]
	for i, b := range e.g.Blocks {
		switch b.Kind() {
		case block.Source, block.Transfer, block.Clocked:
			e.queue = append(e.queue, i)
		}
	}

	for head := 0; head < len(e.queue); head++ {
		i := e.queue[head]
		b := e.g.Blocks[i]
		out, err := b.(block.Outputter).Output(e.frame(i, t))
		if err != nil {
			return e.fail(i, t, "output", err)
		}
		if len(out) != b.NOut() {
			return e.fail(i, t, "output", errors.Wrapf(dynamo.ErrDimensionMismatch,
				"%d outputs, want %d", len(out), b.NOut()))
		}
		if e.checkFinite {
			for p, y := range out {
				if !y.Finite() {
					return e.fail(i, t, "output", errors.Wrapf(dynamo.ErrInvalidState, "port %d", p))
				}
			}
		}
		e.outs[i] = out

		for p, targets := range e.g.Fanout[i] {
			for _, tg := range targets {
				// Consumers get private copies of every output.
				e.ins[tg.Block][tg.Port] = out[p].Clone()
				e.filled[tg.Block]++
				dst := e.g.Blocks[tg.Block]
				if e.filled[tg.Block] == dst.NIn() && dst.Kind() == block.Function {
					e.queue = append(e.queue, tg.Block)
				}
			}
		}
	}

	for i, b := range e.g.Blocks {
		if e.filled[i] == b.NIn() {
			continue
		}
		for p, u := range e.ins[i] {
			if u == nil {
				return dynamo.Structural(b.Name(), p, "input received no value at t=%g", t)
			}
		}
		return dynamo.Structural(b.Name(), -1, "%d of %d inputs filled at t=%g", e.filled[i], b.NIn(), t)
	}
	return nil
}

// derive evaluates at (t, x, d) and gathers every transfer block's
// derivative into a fresh vector.
func (e *evaluator) derive(t float64, x, d dynamo.State) (dynamo.State, error) {
	if err := e.evaluate(t, x, d); err != nil {
		return nil, err
	}
	dx := make(dynamo.State, e.g.NX)
	for i, b := range e.g.Blocks {
		if b.Kind() != block.Transfer {
			continue
		}
		s := e.g.Layout[i]
		der, err := b.(block.Deriver).Deriv(e.frame(i, t))
		if err != nil {
			return nil, e.fail(i, t, "derivative", err)
		}
		if len(der) != s.NX {
			return nil, e.fail(i, t, "derivative", errors.Wrapf(dynamo.ErrDimensionMismatch,
				"%d derivatives for %d states", len(der), s.NX))
		}
		copy(dx[s.X:], der)
	}
	return dx, nil
}

// output returns the value block id last produced on port.
func (e *evaluator) output(id, port int) block.Signal {
	if e.outs[id] == nil {
		return nil
	}
	return e.outs[id][port]
}

// system adapts the evaluator to the integrator interface. Discrete state is
// held fixed across a continuous step.
type system struct {
	e *evaluator
	d dynamo.State
}

func (s *system) Derive(x dynamo.State, t float64) (dynamo.State, error) {
	return s.e.derive(t, x, s.d)
}

func (s *system) StateDim() int { return s.e.g.NX }

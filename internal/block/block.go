package block

import (
	"fmt"

	"github.com/san-kum/blocksim/internal/dynamo"
	"github.com/sirupsen/logrus"
)

type Kind int

const (
	Source Kind = iota
	Sink
	Function
	Transfer
	Clocked
)

var kindNames = [...]string{"source", "sink", "function", "transfer", "clocked"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Stateful reports whether outputs of this kind depend only on held state,
// so that wires into the block never form a zero-delay path.
func (k Kind) Stateful() bool { return k == Transfer || k == Clocked }

// Block is the closed variant set of diagram nodes. Implementations embed
// Base, which supplies the identity methods and the unexported marker.
type Block interface {
	Name() string
	SetName(name string)
	Type() string
	Kind() Kind
	NIn() int
	NOut() int
	NStates() int
	NDStates() int
	InitialState() []float64
	InitialDState() []float64
	Clock() *Clock

	base() *Base
}

// Outputter produces output port values for Source, Function, Transfer and
// Clocked blocks. Transfer and Clocked blocks read only their state.
type Outputter interface {
	Output(f *Frame) ([]Signal, error)
}

// Deriver produces the continuous state derivative of a Transfer block.
type Deriver interface {
	Deriv(f *Frame) ([]float64, error)
}

// Updater produces the next discrete state of a Clocked block at a tick.
type Updater interface {
	Next(f *Frame) ([]float64, error)
}

// Checker validates block parameters at compile time.
type Checker interface {
	Check() error
}

// Clamper enforces state bounds after a committed step. The frame's X is
// writable and violations are recorded.
type Clamper interface {
	Clamp(f *Frame)
}

type Starter interface {
	Start(rc *RunContext) error
}

type Stepper interface {
	Step(rc *RunContext, in []Signal) error
}

type Finisher interface {
	Done(rc *RunContext, blocking bool) error
}

type Base struct {
	typ   string
	name  string
	kind  Kind
	nin   int
	nout  int
	x0    []float64
	d0    []float64
	clock *Clock
}

func NewBase(typ string, kind Kind, nin, nout int) Base {
	return Base{typ: typ, kind: kind, nin: nin, nout: nout}
}

func (b *Base) Name() string             { return b.name }
func (b *Base) SetName(name string)      { b.name = name }
func (b *Base) Type() string             { return b.typ }
func (b *Base) Kind() Kind               { return b.kind }
func (b *Base) NIn() int                 { return b.nin }
func (b *Base) NOut() int                { return b.nout }
func (b *Base) NStates() int             { return len(b.x0) }
func (b *Base) NDStates() int            { return len(b.d0) }
func (b *Base) InitialState() []float64  { return b.x0 }
func (b *Base) InitialDState() []float64 { return b.d0 }
func (b *Base) Clock() *Clock            { return b.clock }
func (b *Base) base() *Base              { return b }

func (b *Base) setInitialState(x0 []float64) {
	b.x0 = append([]float64(nil), x0...)
}

func (b *Base) setDiscrete(c *Clock, d0 []float64) {
	b.clock = c
	b.d0 = append([]float64(nil), d0...)
}

// Frame is what a block sees during one evaluation. X and D are slices of
// the global state vectors lent for the duration of the call only. In holds
// copies owned by this block; writing to them never reaches the producer.
type Frame struct {
	T  float64
	In []Signal
	X  []float64
	D  []float64

	block    string
	violated func(dynamo.Violation)
}

// NewFrame builds a frame for direct block evaluation outside the engine.
func NewFrame(t float64, in []Signal, x, d []float64) *Frame {
	return &Frame{T: t, In: in, X: x, D: d}
}

// Bind attaches the block name and a violation sink. The engine binds a
// sink only for committed evaluations.
func (f *Frame) Bind(block string, sink func(dynamo.Violation)) {
	f.block = block
	f.violated = sink
}

// Violate records v being clipped to bound at state index i.
func (f *Frame) Violate(i int, v, bound float64) {
	if f.violated == nil {
		return
	}
	f.violated(dynamo.Violation{Block: f.block, Time: f.T, Index: i, Value: v, Bound: bound})
}

// Input returns the scalar value of input port i.
func (f *Frame) Input(i int) float64 { return f.In[i].Float() }

// RunContext is passed to start, step and done hooks.
type RunContext struct {
	T        float64
	Duration float64
	Step     int
	Log      *logrus.Entry

	stopped bool
	reason  string
}

// Stop requests a controlled end of the run after the current step.
func (rc *RunContext) Stop(reason string) {
	if rc.stopped {
		return
	}
	rc.stopped = true
	rc.reason = reason
}

func (rc *RunContext) Stopped() (string, bool) { return rc.reason, rc.stopped }

// Reset clears the stop request for a new run.
func (rc *RunContext) Reset(duration float64) {
	rc.T, rc.Step, rc.Duration = 0, 0, duration
	rc.stopped, rc.reason = false, ""
}

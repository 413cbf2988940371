package dynamo

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Domain errors for compile and run operations.
var (
	// ErrStructural indicates a malformed diagram.
	ErrStructural = errors.New("dynamo: structural error")

	// ErrAlgebraicLoop indicates a feedback cycle with no state-holding block.
	ErrAlgebraicLoop = errors.New("dynamo: algebraic loop")

	// ErrComputation indicates a block could not produce a value.
	ErrComputation = errors.New("dynamo: block computation failed")

	// ErrInvalidState indicates a state vector with NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrStepRejected is returned by adaptive integrators when the error
	// estimate exceeds the tolerance.
	ErrStepRejected = errors.New("dynamo: step rejected")

	// ErrDimensionMismatch indicates a block returned a vector of the wrong length.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")

	// ErrNotCompiled indicates a run was requested before compile.
	ErrNotCompiled = errors.New("dynamo: diagram not compiled")

	// ErrStaleGraph indicates the diagram changed after it was compiled.
	ErrStaleGraph = errors.New("dynamo: diagram changed since compile")

	// ErrNeedsReset indicates a failed simulator was run again without Reset.
	ErrNeedsReset = errors.New("dynamo: simulator failed, reset required")

	// ErrUnknownSignal indicates a watch name that matches no output port.
	ErrUnknownSignal = errors.New("dynamo: unknown signal")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrUnknownParam indicates a parameter name a block does not expose.
	ErrUnknownParam = errors.New("dynamo: unknown parameter")
)

// StructuralError reports a malformed diagram. Port is -1 when the error is
// not tied to a port.
type StructuralError struct {
	Block string
	Port  int
	Msg   string
}

func Structural(block string, port int, format string, args ...any) *StructuralError {
	return &StructuralError{Block: block, Port: port, Msg: fmt.Sprintf(format, args...)}
}

func (e *StructuralError) Error() string {
	switch {
	case e.Block == "":
		return "structural: " + e.Msg
	case e.Port < 0:
		return fmt.Sprintf("structural: block %s: %s", e.Block, e.Msg)
	default:
		return fmt.Sprintf("structural: block %s port %d: %s", e.Block, e.Port, e.Msg)
	}
}

func (e *StructuralError) Is(target error) bool { return target == ErrStructural }

// AlgebraicLoopError lists every block on a zero-delay cycle.
type AlgebraicLoopError struct {
	IDs   []int
	Names []string
}

func (e *AlgebraicLoopError) Error() string {
	return fmt.Sprintf("algebraic loop through blocks [%s]", strings.Join(e.Names, ", "))
}

func (e *AlgebraicLoopError) Is(target error) bool { return target == ErrAlgebraicLoop }

// ComputationError aborts a run. It names the failing block and the
// simulated time of the evaluation.
type ComputationError struct {
	Block   string
	ID      int
	Time    float64
	Op      string
	Wrapped error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("block %s (t=%.6g) %s: %v", e.Block, e.Time, e.Op, e.Wrapped)
}

func (e *ComputationError) Unwrap() error { return e.Wrapped }

func (e *ComputationError) Is(target error) bool { return target == ErrComputation }

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// Violation is a soft constraint hit: a state clipped to a bound.
type Violation struct {
	Block string
	Time  float64
	Index int
	Value float64
	Bound float64
}

func (v Violation) String() string {
	return fmt.Sprintf("%s[%d] at t=%.4g: %g clipped to %g", v.Block, v.Index, v.Time, v.Value, v.Bound)
}

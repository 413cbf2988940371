// Package dynamo provides the shared vocabulary of the block-diagram engine.
//
// The package defines the types that cross package boundaries:
//
//   - [State]: a dense vector of continuous or discrete state
//   - [System]: the continuous vector field an integrator advances
//   - [Integrator], [AdaptiveIntegrator]: numerical stepping
//   - [Config], [Result], [Status]: run options, recorded time series, outcome
//   - [StructuralError], [AlgebraicLoopError], [ComputationError]: the error taxonomy
//
// # Errors
//
// Every typed error matches its sentinel with errors.Is:
//
//	if errors.Is(err, dynamo.ErrAlgebraicLoop) {
//	    var loop *dynamo.AlgebraicLoopError
//	    errors.As(err, &loop)
//	}
//
// A [Violation] is not an error. It records a state clipped to a bound and
// is reported in [Result.Violations].
package dynamo

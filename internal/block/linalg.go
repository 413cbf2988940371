package block

import (
	"math"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Matrices travel as row-major vectors; blocks that need a shape carry it
// as parameters.

// Transpose transposes a Rows x Cols matrix. A column vector (Cols == 1)
// becomes a row vector with the same data.
type Transpose struct {
	Base
	Rows, Cols int
}

func NewTranspose(rows, cols int) *Transpose {
	return &Transpose{Base: NewBase("transpose", Function, 1, 1), Rows: rows, Cols: cols}
}

func (b *Transpose) Check() error {
	if b.Rows < 1 || b.Cols < 1 {
		return errors.Wrapf(dynamo.ErrParameterBounds, "transpose: %dx%d", b.Rows, b.Cols)
	}
	return nil
}

func (b *Transpose) Output(f *Frame) ([]Signal, error) {
	u := f.In[0]
	if len(u) != b.Rows*b.Cols {
		return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "transpose: input of %d for %dx%d", len(u), b.Rows, b.Cols)
	}
	y := make(Signal, len(u))
	for i := 0; i < b.Rows; i++ {
		for j := 0; j < b.Cols; j++ {
			y[j*b.Rows+i] = u[i*b.Cols+j]
		}
	}
	return []Signal{y}, nil
}

// Norm outputs the Euclidean norm of its input vector.
type Norm struct {
	Base
}

func NewNorm() *Norm {
	return &Norm{Base: NewBase("norm", Function, 1, 1)}
}

func (b *Norm) Output(f *Frame) ([]Signal, error) {
	return scalars(floats.Norm(f.In[0], 2)), nil
}

// Det outputs the determinant of an N x N matrix.
type Det struct {
	Base
	N int
}

func NewDet(n int) *Det {
	return &Det{Base: NewBase("det", Function, 1, 1), N: n}
}

func (b *Det) Check() error {
	if b.N < 1 {
		return errors.Wrapf(dynamo.ErrParameterBounds, "det: n=%d", b.N)
	}
	return nil
}

func (b *Det) Output(f *Frame) ([]Signal, error) {
	u := f.In[0]
	if len(u) != b.N*b.N {
		return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "det: input of %d for %dx%d", len(u), b.N, b.N)
	}
	return scalars(mat.Det(mat.NewDense(b.N, b.N, u.Clone()))), nil
}

// Open marks an omitted Slice bound.
const Open = math.MinInt32

// Slice selects elements of a vector, either the explicit Index list or
// the range Start:Stop:Step. Negative positions count from the end and an
// Open bound runs to the end in the direction of Step.
type Slice struct {
	Base
	Index             []int
	Start, Stop, Step int
}

// NewSlice picks the listed elements in order.
func NewSlice(index ...int) *Slice {
	return &Slice{Base: NewBase("slice", Function, 1, 1), Index: index, Start: Open, Stop: Open, Step: 1}
}

// NewSliceRange picks every step-th element from start up to, not
// including, stop.
func NewSliceRange(start, stop, step int) *Slice {
	return &Slice{Base: NewBase("slice", Function, 1, 1), Start: start, Stop: stop, Step: step}
}

func (b *Slice) Check() error {
	if b.Index == nil && b.Step == 0 {
		return errors.Wrap(dynamo.ErrParameterBounds, "slice: step is zero")
	}
	return nil
}

func (b *Slice) Output(f *Frame) ([]Signal, error) {
	u := f.In[0]
	n := len(u)
	if b.Index != nil {
		y := make(Signal, len(b.Index))
		for k, i := range b.Index {
			if i < 0 {
				i += n
			}
			if i < 0 || i >= n {
				return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "slice: index %d of %d", b.Index[k], n)
			}
			y[k] = u[i]
		}
		return []Signal{y}, nil
	}

	lower, upper := 0, n
	if b.Step < 0 {
		lower, upper = -1, n-1
	}
	bound := func(v, open int) int {
		switch {
		case v == Open:
			return open
		case v < 0:
			return max(v+n, lower)
		default:
			return min(v, upper)
		}
	}
	var y Signal
	if b.Step > 0 {
		for i := bound(b.Start, lower); i < bound(b.Stop, upper); i += b.Step {
			y = append(y, u[i])
		}
	} else {
		for i := bound(b.Start, upper); i > bound(b.Stop, lower); i += b.Step {
			y = append(y, u[i])
		}
	}
	if y == nil {
		y = Signal{}
	}
	return []Signal{y}, nil
}

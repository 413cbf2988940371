package diagram

import (
	"os"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/dynamo"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMain(m *testing.M) {
	// DEBUG_TESTS=1 go test ./internal/diagram/... -v shows compile logs.
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

func mustSum(t *testing.T, signs string) *block.Sum {
	t.Helper()
	s, err := block.NewSum(signs)
	require.NoError(t, err)
	return s
}

func structural(t *testing.T, err error) *dynamo.StructuralError {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, dynamo.ErrStructural), "got %v", err)
	var se *dynamo.StructuralError
	require.True(t, errors.As(err, &se))
	return se
}

// feedback builds c -> sum -> mid -> sum[1], with mid also feeding a sink.
func feedback(t *testing.T, mid block.Block) *Diagram {
	d := New("feedback")
	c := d.AddBlock(block.NewConstant(1))
	s := d.AddBlock(mustSum(t, "+-"))
	m := d.AddBlock(mid)
	out := d.AddBlock(block.NewNull(1))
	d.Connect(c, s.Port(0))
	d.Connect(s, m)
	d.Connect(m, s.Port(1))
	d.Connect(m, out)
	return d
}

func TestCompileCrossedBundle(t *testing.T) {
	d := New("crossed")
	c := d.AddBlock(block.NewConstant(1, 2))
	dm := d.AddBlock(block.NewDemux(2))
	mx := d.AddBlock(block.NewMux(2))
	out := d.AddBlock(block.NewNull(1))
	d.Connect(c, dm)
	d.Connect(dm.Range(0, 2), mx.Port(1, 0), Named("cross"))
	d.Connect(mx, out)

	g, err := Compile(d)
	require.NoError(t, err)

	assert.Equal(t, []Target{{Block: int(mx), Port: 1, Edge: 1}}, g.Fanout[dm][0])
	assert.Equal(t, []Target{{Block: int(mx), Port: 0, Edge: 2}}, g.Fanout[dm][1])
	assert.Len(t, g.Edges, 4)
	assert.Equal(t, []int{int(c)}, g.Sources)
	assert.Equal(t, []int{int(out)}, g.Sinks)
	assert.Equal(t, "cross", g.Wires[1].Name)
	assert.Equal(t, "wire.0", g.Wires[0].Name)
}

func TestHandleRange(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, Handle(0).Range(1, 4).Ports)
	assert.NotPanics(t, func() {
		e := Handle(0).Range(3, 1)
		assert.NotNil(t, e.Ports)
		assert.Empty(t, e.Ports)
	})
	assert.Equal(t, []int{0}, portsOf(Endpoint{Block: 2}))
}

func TestCompileDefaultNames(t *testing.T) {
	d := New("names")
	c := d.AddBlock(block.NewConstant(1))
	k := d.AddBlock(block.NewGain(2))
	n := d.AddBlock(block.NewNull(1))
	d.Chain(c, k, n)

	_, err := Compile(d)
	require.NoError(t, err)
	assert.Equal(t, "constant.0", d.Block(c).Name())
	assert.Equal(t, "gain.1", d.Block(k).Name())
	assert.Equal(t, "null.2", d.Block(n).Name())

	h, ok := d.Lookup("gain.1")
	require.True(t, ok)
	assert.Equal(t, k, h)
	require.NoError(t, d.SetParam("gain.1.k", 4))
	assert.Equal(t, 4.0, d.Block(k).(*block.Gain).K)
}

// sized reports a state width its initial state does not have.
type sized struct {
	block.Base
	n int
}

func (b *sized) NStates() int { return b.n }

func (b *sized) Output(f *block.Frame) ([]block.Signal, error) {
	return []block.Signal{block.Scalar(0)}, nil
}

func (b *sized) Deriv(f *block.Frame) ([]float64, error) {
	return make([]float64, b.n), nil
}

func TestCompileStructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(d *Diagram)
		block string
		port  int
	}{
		{
			name: "unconnected input",
			build: func(d *Diagram) {
				d.AddBlock(block.NewConstant(1))
				k := d.AddBlock(block.NewGain(1))
				d.Connect(k, d.AddBlock(block.NewNull(1)))
			},
			block: "gain.1",
			port:  0,
		},
		{
			name: "input driven twice",
			build: func(d *Diagram) {
				a := d.AddBlock(block.NewConstant(1))
				b := d.AddBlock(block.NewConstant(2))
				n := d.AddBlock(block.NewNull(1))
				d.Connect(a, n)
				d.Connect(b, n)
			},
			block: "null.2",
			port:  0,
		},
		{
			name: "bundle width mismatch",
			build: func(d *Diagram) {
				c := d.AddBlock(block.NewConstant(1, 2))
				dm := d.AddBlock(block.NewDemux(2))
				n := d.AddBlock(block.NewNull(1))
				d.Connect(c, dm)
				d.Connect(dm.Range(0, 2), n.Port(0))
			},
			block: "demux.1",
			port:  -1,
		},
		{
			name: "output port out of range",
			build: func(d *Diagram) {
				c := d.AddBlock(block.NewConstant(1))
				d.Connect(c.Port(1), d.AddBlock(block.NewNull(1)))
			},
			block: "constant.0",
			port:  1,
		},
		{
			name: "output drives nothing",
			build: func(d *Diagram) {
				d.AddBlock(block.NewConstant(1))
			},
			block: "constant.0",
			port:  -1,
		},
		{
			name: "transfer without state",
			build: func(d *Diagram) {
				c := d.AddBlock(block.NewConstant(1))
				i := d.AddBlock(block.NewIntegrator())
				d.Chain(c, i, d.AddBlock(block.NewNull(1)))
			},
			block: "integrator.1",
			port:  -1,
		},
		{
			name: "failed parameter check",
			build: func(d *Diagram) {
				c := d.AddBlock(block.NewConstant(1))
				i := d.AddBlock(block.NewIntegrator(0).Bounded(1, -1))
				d.Chain(c, i, d.AddBlock(block.NewNull(1)))
			},
			block: "integrator.1",
			port:  -1,
		},
		{
			name: "inverted port range",
			build: func(d *Diagram) {
				c := d.AddBlock(block.NewConstant(1, 2))
				dm := d.AddBlock(block.NewDemux(2))
				n := d.AddBlock(block.NewNull(2))
				d.Connect(c, dm)
				d.Connect(dm.Range(2, 0), n.Range(0, 2))
			},
			block: "demux.1",
			port:  -1,
		},
		{
			name: "state width disagrees with initial state",
			build: func(d *Diagram) {
				c := d.AddBlock(block.NewConstant(1))
				x := d.AddBlock(&sized{Base: block.NewBase("sized", block.Transfer, 1, 1), n: 2})
				d.Chain(c, x, d.AddBlock(block.NewNull(1)))
			},
			block: "sized.1",
			port:  -1,
		},
		{
			name: "state space order disagrees with x0",
			build: func(d *Diagram) {
				c := d.AddBlock(block.NewConstant(1))
				a := mat.NewDense(2, 2, []float64{0, 1, -1, 0})
				b := mat.NewDense(2, 1, []float64{0, 1})
				cm := mat.NewDense(1, 2, []float64{1, 0})
				x := d.AddBlock(block.NewLTISS(a, b, cm, []float64{0, 0, 0}))
				d.Chain(c, x, d.AddBlock(block.NewNull(1)))
			},
			block: "lti_ss.1",
			port:  -1,
		},
		{
			name: "clocked block without clock",
			build: func(d *Diagram) {
				c := d.AddBlock(block.NewConstant(1))
				z := d.AddBlock(block.NewZOH(nil))
				d.Chain(c, z, d.AddBlock(block.NewNull(1)))
			},
			block: "zoh.1",
			port:  -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(tt.name)
			tt.build(d)
			_, err := Compile(d)
			se := structural(t, err)
			assert.Equal(t, tt.block, se.Block)
			assert.Equal(t, tt.port, se.Port)
		})
	}
}

func TestCompileEmptyDiagram(t *testing.T) {
	_, err := Compile(New("empty"))
	structural(t, err)
}

func TestCompileDuplicateNames(t *testing.T) {
	d := New("dup")
	a := d.AddBlock(block.NewConstant(1))
	b := d.AddBlock(block.NewNull(1))
	d.Block(a).SetName("x")
	d.Block(b).SetName("x")
	d.Connect(a, b)

	se := structural(t, func() error { _, err := Compile(d); return err }())
	assert.Equal(t, "x", se.Block)
}

func TestCompileAlgebraicLoop(t *testing.T) {
	d := feedback(t, block.NewGain(0.5))
	_, err := Compile(d)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dynamo.ErrAlgebraicLoop))

	var loop *dynamo.AlgebraicLoopError
	require.True(t, errors.As(err, &loop))
	assert.Equal(t, []int{1, 2}, loop.IDs)
	assert.Equal(t, []string{"sum.1", "gain.2"}, loop.Names)
}

func TestCompileSelfLoop(t *testing.T) {
	d := New("self")
	c := d.AddBlock(block.NewConstant(1))
	s := d.AddBlock(mustSum(t, "++"))
	d.Connect(c, s.Port(0))
	d.Connect(s, s.Port(1))

	_, err := Compile(d)
	var loop *dynamo.AlgebraicLoopError
	require.True(t, errors.As(err, &loop), "got %v", err)
	assert.Equal(t, []string{"sum.1"}, loop.Names)
}

func TestCompileStatefulFeedback(t *testing.T) {
	d := feedback(t, block.NewIntegrator(0))
	extra := d.AddBlock(block.NewIntegrator(1, 2))
	d.Connect(d.AddBlock(block.NewConstant(0, 0)), extra)
	d.Connect(extra, d.AddBlock(block.NewNull(1)))

	g, err := Compile(d)
	require.NoError(t, err)

	assert.Equal(t, 3, g.NX)
	assert.Equal(t, 0, g.ND)
	assert.Equal(t, Slot{X: 0, NX: 1}, g.Layout[2])
	assert.Equal(t, Slot{X: 1, NX: 2}, g.Layout[4])
	x, _ := g.InitialState()
	assert.Equal(t, dynamo.State{0, 1, 2}, x)
	assert.Equal(t, []string{"integrator.2[0]", "integrator.4[0]", "integrator.4[1]"}, g.StateNames())

	require.Len(t, g.Cycles, 1)
	assert.ElementsMatch(t, []int{1, 2}, g.Cycles[0])
	assert.Equal(t, 1.0, g.Adjacency.At(2, 1))
	assert.Equal(t, 1.0, g.Adjacency.At(1, 2))
	assert.Equal(t, 0.0, g.Adjacency.At(1, 3))
}

func TestCompileOrder(t *testing.T) {
	d := feedback(t, block.NewIntegrator(0))
	g, err := Compile(d)
	require.NoError(t, err)
	require.Len(t, g.Order, len(g.Blocks))

	pos := make(map[int]int, len(g.Order))
	for k, id := range g.Order {
		pos[id] = k
	}
	for _, e := range g.Edges {
		if g.Blocks[e.Dst].Kind().Stateful() {
			continue
		}
		assert.Less(t, pos[e.Src], pos[e.Dst], "%s before %s", g.Blocks[e.Src].Name(), g.Blocks[e.Dst].Name())
	}
}

func TestCompileIdempotent(t *testing.T) {
	d := feedback(t, block.NewIntegrator(0))
	g1, err := Compile(d)
	require.NoError(t, err)
	g2, err := Compile(d)
	require.NoError(t, err)
	assert.Equal(t, g1.Order, g2.Order)
	assert.Equal(t, g1.Layout, g2.Layout)
	assert.Equal(t, g1.Edges, g2.Edges)
	assert.False(t, g2.Stale(d))
}

func TestGraphStale(t *testing.T) {
	d := feedback(t, block.NewIntegrator(0))
	g, err := Compile(d)
	require.NoError(t, err)
	assert.False(t, g.Stale(d))

	d.AddBlock(block.NewConstant(3))
	assert.True(t, g.Stale(d))
}

func TestGraphClocks(t *testing.T) {
	d := New("clocks")
	fast, err := d.Clock("fast", 10, "Hz", 0)
	require.NoError(t, err)
	_, err = d.Clock("fast", 1, "Hz", 0)
	assert.Error(t, err)

	other, err := block.NewClock("other", 0.5, "s", 0)
	require.NoError(t, err)

	c := d.AddBlock(block.NewConstant(1))
	z1 := d.AddBlock(block.NewZOH(other))
	z2 := d.AddBlock(block.NewZOH(fast, 2))
	d.Chain(c, z1, d.AddBlock(block.NewNull(1)))
	d.Connect(c, z2)
	d.Connect(z2, d.AddBlock(block.NewNull(1)))

	g, err := Compile(d)
	require.NoError(t, err)
	require.Len(t, g.Clocks, 2)
	assert.Same(t, fast, g.Clocks[0])
	assert.Same(t, other, g.Clocks[1])
	assert.Equal(t, 1, g.ClockOf[z1])
	assert.Equal(t, 0, g.ClockOf[z2])
	assert.Equal(t, -1, g.ClockOf[c])
	assert.Equal(t, 2, g.ND)
	_, dx := g.InitialState()
	assert.Equal(t, dynamo.State{0, 2}, dx)
}

func TestGraphSignal(t *testing.T) {
	d := New("signals")
	c := d.AddBlock(block.NewConstant(1, 2))
	dm := d.AddBlock(block.NewDemux(2))
	d.Connect(c, dm)
	d.Connect(dm.Range(0, 2), d.AddBlock(block.NewNull(2)).Range(0, 2))
	g, err := Compile(d)
	require.NoError(t, err)

	id, port, err := g.Signal("demux.1[1]")
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	assert.Equal(t, 1, port)

	id, port, err = g.Signal("constant.0")
	require.NoError(t, err)
	assert.Equal(t, 0, id)
	assert.Equal(t, 0, port)

	for _, bad := range []string{"nope", "demux.1[2]", "demux.1[x]"} {
		_, _, err := g.Signal(bad)
		assert.True(t, errors.Is(err, dynamo.ErrUnknownSignal), bad)
	}
}

func TestGraphDOT(t *testing.T) {
	d := feedback(t, block.NewIntegrator(0))
	d.Wires()[2].Name = "fb"
	g, err := Compile(d)
	require.NoError(t, err)

	out, err := g.DOT()
	require.NoError(t, err)
	s := string(out)
	assert.True(t, strings.HasPrefix(s, "digraph feedback {"), s)
	assert.Contains(t, s, "fb")
	assert.Contains(t, s, "box3d")
	assert.Equal(t, len(g.Wires), strings.Count(s, "->"))
}

func TestAddFromSpec(t *testing.T) {
	d := New("spec")
	_, err := d.Clock("ctl", 0.1, "s", 0)
	require.NoError(t, err)

	src, err := d.Add(block.Spec{Type: "step", Name: "ref"})
	require.NoError(t, err)
	z, err := d.Add(block.Spec{Type: "zoh", Params: block.Params{"clock": "ctl"}})
	require.NoError(t, err)
	out, err := d.Add(block.Spec{Type: "null"})
	require.NoError(t, err)
	d.Chain(src, z, out)

	_, err = d.Add(block.Spec{Type: "zoh", Params: block.Params{"clock": "missing"}})
	assert.Error(t, err)

	g, err := Compile(d)
	require.NoError(t, err)
	assert.Equal(t, "ref", g.Blocks[0].Name())
	assert.Equal(t, 0, g.ClockOf[1])
}

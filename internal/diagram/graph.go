package diagram

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Edge is one port-to-port connection produced by expanding a wire bundle.
type Edge struct {
	Wire    int
	Src     int
	SrcPort int
	Dst     int
	DstPort int
}

// Target is a consumer of an output port.
type Target struct {
	Block int
	Port  int
	Edge  int
}

// Slot locates a block's states in the global vectors.
type Slot struct {
	X, NX int
	D, ND int
}

// Graph is a compiled diagram. It is read-only after Compile.
type Graph struct {
	Name    string
	Version uint64

	Blocks []block.Block
	Wires  []*Wire
	Edges  []Edge

	// Adjacency[dst][src] is 1 when src drives dst.
	Adjacency *mat.Dense
	Sources   []int
	Sinks     []int
	Cycles    [][]int
	Order     []int

	Layout []Slot
	NX, ND int
	Fanout [][][]Target

	Clocks  []*block.Clock
	ClockOf []int
}

// Stale reports whether d changed after g was compiled from it.
func (g *Graph) Stale(d *Diagram) bool { return d.revision() != g.Version }

func (g *Graph) Index(name string) (int, bool) {
	for i, b := range g.Blocks {
		if b.Name() == name {
			return i, true
		}
	}
	return -1, false
}

// InitialState concatenates block initial states in id order.
func (g *Graph) InitialState() (x, d dynamo.State) {
	x = make(dynamo.State, 0, g.NX)
	d = make(dynamo.State, 0, g.ND)
	for _, b := range g.Blocks {
		x = append(x, b.InitialState()...)
		d = append(d, b.InitialDState()...)
	}
	return x, d
}

// StateNames labels every continuous state element as "block[i]".
func (g *Graph) StateNames() []string {
	names := make([]string, 0, g.NX)
	for i, b := range g.Blocks {
		for k := 0; k < g.Layout[i].NX; k++ {
			names = append(names, b.Name()+"["+strconv.Itoa(k)+"]")
		}
	}
	return names
}

// Signal resolves "block" (output port 0) or "block[port]" to an output.
func (g *Graph) Signal(name string) (int, int, error) {
	blockName, port := name, 0
	if i := strings.LastIndex(name, "["); i > 0 && strings.HasSuffix(name, "]") {
		p, err := strconv.Atoi(name[i+1 : len(name)-1])
		if err != nil {
			return -1, -1, errors.Wrapf(dynamo.ErrUnknownSignal, "%s: bad port", name)
		}
		blockName, port = name[:i], p
	}
	id, ok := g.Index(blockName)
	if !ok {
		return -1, -1, errors.Wrapf(dynamo.ErrUnknownSignal, "%s: no such block", name)
	}
	if port < 0 || port >= g.Blocks[id].NOut() {
		return -1, -1, errors.Wrapf(dynamo.ErrUnknownSignal, "%s: block has %d outputs", name, g.Blocks[id].NOut())
	}
	return id, port, nil
}

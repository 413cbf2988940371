package diagram

import (
	"fmt"
	"sort"

	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/dynamo"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/mat"
)

// Compile validates d and produces an immutable executable graph. Block ids
// are declaration positions after subsystems are inlined, so compiling an
// unchanged diagram twice gives the same ids, layout and order.
func Compile(d *Diagram) (*Graph, error) {
	fd, err := flatten(d)
	if err != nil {
		return nil, err
	}
	n := len(fd.blocks)
	if n == 0 {
		return nil, dynamo.Structural("", -1, "diagram %q has no blocks", d.Name)
	}

	g := &Graph{
		Name:    d.Name,
		Version: d.revision(),
		Blocks:  append([]block.Block(nil), fd.blocks...),
	}

	if err := g.assignNames(fd.wires); err != nil {
		return nil, err
	}
	if err := g.checkBlocks(); err != nil {
		return nil, err
	}
	if err := g.expandWires(fd.wires); err != nil {
		return nil, err
	}
	if err := g.checkInputs(); err != nil {
		return nil, err
	}
	g.buildAdjacency()
	if err := g.classify(d); err != nil {
		return nil, err
	}
	if err := g.findLoops(); err != nil {
		return nil, err
	}
	g.layout()
	if err := g.sortOrder(); err != nil {
		return nil, err
	}
	g.collectClocks(fd.clocks)

	d.log.WithFields(logrus.Fields{
		"blocks": n,
		"wires":  len(g.Wires),
		"nx":     g.NX,
		"nd":     g.ND,
		"cycles": len(g.Cycles),
	}).Debug("compiled diagram")
	return g, nil
}

func (g *Graph) assignNames(wires []*Wire) error {
	seen := make(map[string]int, len(g.Blocks))
	for i, b := range g.Blocks {
		if b.Name() == "" {
			b.SetName(fmt.Sprintf("%s.%d", b.Type(), i))
		}
		if j, dup := seen[b.Name()]; dup {
			return dynamo.Structural(b.Name(), -1, "name already used by block %d", j)
		}
		seen[b.Name()] = i
	}
	for _, w := range wires {
		if w.Name == "" {
			w.Name = fmt.Sprintf("wire.%d", w.ID)
		}
	}
	g.Wires = append([]*Wire(nil), wires...)
	return nil
}

func (g *Graph) checkBlocks() error {
	for _, b := range g.Blocks {
		name := b.Name()
		_, outputs := b.(block.Outputter)

		switch b.Kind() {
		case block.Source:
			if b.NIn() != 0 {
				return dynamo.Structural(name, -1, "source block declares %d inputs", b.NIn())
			}
		case block.Sink:
			if b.NOut() != 0 {
				return dynamo.Structural(name, -1, "sink block declares %d outputs", b.NOut())
			}
		case block.Transfer:
			if _, ok := b.(block.Deriver); !ok {
				return dynamo.Structural(name, -1, "transfer block has no derivative")
			}
			if b.NStates() == 0 {
				return dynamo.Structural(name, -1, "transfer block has no continuous state")
			}
		case block.Clocked:
			if _, ok := b.(block.Updater); !ok {
				return dynamo.Structural(name, -1, "clocked block has no update")
			}
			if b.Clock() == nil {
				return dynamo.Structural(name, -1, "clocked block has no clock")
			}
			if b.NDStates() == 0 {
				return dynamo.Structural(name, -1, "clocked block has no discrete state")
			}
		case block.Function:
		default:
			return dynamo.Structural(name, -1, "unknown block kind %v", b.Kind())
		}

		if b.Kind() != block.Sink && !outputs {
			return dynamo.Structural(name, -1, "%s block has no output", b.Kind())
		}
		if b.Kind() != block.Transfer && b.NStates() > 0 {
			return dynamo.Structural(name, -1, "%s block cannot hold continuous state", b.Kind())
		}
		if b.Kind() != block.Clocked && b.NDStates() > 0 {
			return dynamo.Structural(name, -1, "%s block cannot hold discrete state", b.Kind())
		}
		// Base derives widths from the initial state; blocks that override
		// NStates or NDStates must still agree with it.
		if len(b.InitialState()) != b.NStates() {
			return dynamo.Structural(name, -1, "declares %d states but initial state has %d",
				b.NStates(), len(b.InitialState()))
		}
		if len(b.InitialDState()) != b.NDStates() {
			return dynamo.Structural(name, -1, "declares %d discrete states but initial state has %d",
				b.NDStates(), len(b.InitialDState()))
		}
		if c, ok := b.(block.Checker); ok {
			if err := c.Check(); err != nil {
				return dynamo.Structural(name, -1, "%v", err)
			}
		}
	}
	return nil
}

func (g *Graph) expandWires(wires []*Wire) error {
	n := len(g.Blocks)
	for _, w := range wires {
		if int(w.Src.Block) < 0 || int(w.Src.Block) >= n {
			return dynamo.Structural("", -1, "wire %s: no source block %d", w.Name, w.Src.Block)
		}
		if int(w.Dst.Block) < 0 || int(w.Dst.Block) >= n {
			return dynamo.Structural("", -1, "wire %s: no destination block %d", w.Name, w.Dst.Block)
		}
		src, dst := g.Blocks[w.Src.Block], g.Blocks[w.Dst.Block]
		if w.Src.Ports != nil && len(w.Src.Ports) == 0 {
			return dynamo.Structural(src.Name(), -1, "wire %s: empty source port bundle", w.Name)
		}
		if w.Dst.Ports != nil && len(w.Dst.Ports) == 0 {
			return dynamo.Structural(dst.Name(), -1, "wire %s: empty destination port bundle", w.Name)
		}
		sp, dp := portsOf(w.Src), portsOf(w.Dst)
		if len(sp) != len(dp) {
			return dynamo.Structural(src.Name(), -1, "wire %s: bundle of %d ports feeds %d ports of %s",
				w.Name, len(sp), len(dp), dst.Name())
		}
		for k := range sp {
			if sp[k] < 0 || sp[k] >= src.NOut() {
				return dynamo.Structural(src.Name(), sp[k], "wire %s: no such output (block has %d)", w.Name, src.NOut())
			}
			if dp[k] < 0 || dp[k] >= dst.NIn() {
				return dynamo.Structural(dst.Name(), dp[k], "wire %s: no such input (block has %d)", w.Name, dst.NIn())
			}
			g.Edges = append(g.Edges, Edge{
				Wire:    w.ID,
				Src:     int(w.Src.Block),
				SrcPort: sp[k],
				Dst:     int(w.Dst.Block),
				DstPort: dp[k],
			})
		}
	}
	return nil
}

// portsOf treats an Endpoint literal without ports as port 0.
func portsOf(e Endpoint) []int {
	if e.Ports == nil {
		return []int{0}
	}
	return e.Ports
}

func (g *Graph) checkInputs() error {
	counts := make([][]int, len(g.Blocks))
	for i, b := range g.Blocks {
		counts[i] = make([]int, b.NIn())
	}
	for _, e := range g.Edges {
		counts[e.Dst][e.DstPort]++
	}
	for i, b := range g.Blocks {
		for p, c := range counts[i] {
			switch {
			case c == 0:
				return dynamo.Structural(b.Name(), p, "input is not connected")
			case c > 1:
				return dynamo.Structural(b.Name(), p, "input is driven by %d wires", c)
			}
		}
	}
	return nil
}

// buildAdjacency sets A[dst][src] = 1 for every block pair joined by an edge.
// Row sums count driving blocks, column sums count driven blocks.
func (g *Graph) buildAdjacency() {
	n := len(g.Blocks)
	g.Adjacency = mat.NewDense(n, n, nil)
	for _, e := range g.Edges {
		g.Adjacency.Set(e.Dst, e.Src, 1)
	}
}

func (g *Graph) classify(d *Diagram) error {
	used := make([][]bool, len(g.Blocks))
	for i, b := range g.Blocks {
		used[i] = make([]bool, b.NOut())
	}
	for _, e := range g.Edges {
		used[e.Src][e.SrcPort] = true
	}

	for i, b := range g.Blocks {
		drivenBy := mat.Sum(g.Adjacency.RowView(i))
		drives := mat.Sum(g.Adjacency.ColView(i))
		isSource, isSink := drivenBy == 0, drives == 0

		if isSource {
			g.Sources = append(g.Sources, i)
		}
		if isSink {
			g.Sinks = append(g.Sinks, i)
		}
		if isSource != (b.Kind() == block.Source) {
			return dynamo.Structural(b.Name(), -1, "%s block has %d driving blocks", b.Kind(), int(drivenBy))
		}
		if isSink != (b.Kind() == block.Sink) {
			if isSink {
				return dynamo.Structural(b.Name(), -1, "%s block drives nothing, terminate it with a null sink", b.Kind())
			}
			return dynamo.Structural(b.Name(), -1, "sink block drives %d blocks", int(drives))
		}
		for p, ok := range used[i] {
			if !ok {
				d.log.WithField("block", b.Name()).Warnf("output port %d is not connected", p)
			}
		}
	}
	return nil
}

func (g *Graph) findLoops() error {
	n := len(g.Blocks)
	all := simple.NewDirectedGraph()
	fn := simple.NewDirectedGraph()
	for i, b := range g.Blocks {
		all.AddNode(simple.Node(i))
		if b.Kind() == block.Function {
			fn.AddNode(simple.Node(i))
		}
	}

	self := make([]bool, n)
	for _, e := range g.Edges {
		if e.Src == e.Dst {
			self[e.Src] = true
			continue
		}
		u, v := simple.Node(e.Src), simple.Node(e.Dst)
		if !all.HasEdgeFromTo(u.ID(), v.ID()) {
			all.SetEdge(all.NewEdge(u, v))
		}
		if g.Blocks[e.Src].Kind() == block.Function && g.Blocks[e.Dst].Kind() == block.Function &&
			!fn.HasEdgeFromTo(u.ID(), v.ID()) {
			fn.SetEdge(fn.NewEdge(u, v))
		}
	}

	for _, cyc := range topo.DirectedCyclesIn(all) {
		ids := make([]int, 0, len(cyc)-1)
		for _, node := range cyc[:len(cyc)-1] {
			ids = append(ids, int(node.ID()))
		}
		g.Cycles = append(g.Cycles, ids)
	}
	for i, s := range self {
		if s {
			g.Cycles = append(g.Cycles, []int{i})
		}
	}
	sort.SliceStable(g.Cycles, func(a, b int) bool {
		ca, cb := g.Cycles[a], g.Cycles[b]
		if len(ca) != len(cb) {
			return len(ca) < len(cb)
		}
		return ca[0] < cb[0]
	})

	var loop []int
	for _, scc := range topo.TarjanSCC(fn) {
		if len(scc) < 2 {
			continue
		}
		for _, node := range scc {
			loop = append(loop, int(node.ID()))
		}
	}
	for i, s := range self {
		if s && g.Blocks[i].Kind() == block.Function {
			loop = append(loop, i)
		}
	}
	if len(loop) == 0 {
		return nil
	}
	sort.Ints(loop)
	names := make([]string, len(loop))
	for k, id := range loop {
		names[k] = g.Blocks[id].Name()
	}
	return &dynamo.AlgebraicLoopError{IDs: loop, Names: names}
}

func (g *Graph) layout() {
	g.Layout = make([]Slot, len(g.Blocks))
	for i, b := range g.Blocks {
		g.Layout[i] = Slot{X: g.NX, NX: b.NStates(), D: g.ND, ND: b.NDStates()}
		g.NX += b.NStates()
		g.ND += b.NDStates()
	}

	g.Fanout = make([][][]Target, len(g.Blocks))
	for i, b := range g.Blocks {
		g.Fanout[i] = make([][]Target, b.NOut())
	}
	for k, e := range g.Edges {
		g.Fanout[e.Src][e.SrcPort] = append(g.Fanout[e.Src][e.SrcPort], Target{Block: e.Dst, Port: e.DstPort, Edge: k})
	}
}

// sortOrder computes an evaluation order in which every block follows the
// stateless blocks it reads from. Edges into stateful blocks carry no
// same-instant dependency.
func (g *Graph) sortOrder() error {
	og := simple.NewDirectedGraph()
	for i := range g.Blocks {
		og.AddNode(simple.Node(i))
	}
	for _, e := range g.Edges {
		if e.Src == e.Dst || g.Blocks[e.Dst].Kind().Stateful() {
			continue
		}
		if !og.HasEdgeFromTo(int64(e.Src), int64(e.Dst)) {
			og.SetEdge(og.NewEdge(simple.Node(e.Src), simple.Node(e.Dst)))
		}
	}
	sorted, err := topo.SortStabilized(og, func(nodes []graph.Node) {
		sort.Slice(nodes, func(a, b int) bool { return nodes[a].ID() < nodes[b].ID() })
	})
	if err != nil {
		return dynamo.Structural("", -1, "no evaluation order: %v", err)
	}
	g.Order = make([]int, len(sorted))
	for k, node := range sorted {
		g.Order[k] = int(node.ID())
	}
	return nil
}

func (g *Graph) collectClocks(declared []*block.Clock) {
	index := make(map[*block.Clock]int, len(declared))
	for _, c := range declared {
		index[c] = len(g.Clocks)
		g.Clocks = append(g.Clocks, c)
	}
	g.ClockOf = make([]int, len(g.Blocks))
	for i, b := range g.Blocks {
		c := b.Clock()
		if c == nil {
			g.ClockOf[i] = -1
			continue
		}
		k, ok := index[c]
		if !ok {
			k = len(g.Clocks)
			index[c] = k
			g.Clocks = append(g.Clocks, c)
		}
		g.ClockOf[i] = k
	}
}

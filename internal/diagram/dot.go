package diagram

import (
	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/block"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/multi"
)

var kindShapes = map[block.Kind]string{
	block.Source:   "invhouse",
	block.Sink:     "house",
	block.Function: "box",
	block.Transfer: "box3d",
	block.Clocked:  "component",
}

type dotNode struct {
	id int64
	b  block.Block
}

func (n dotNode) ID() int64     { return n.id }
func (n dotNode) DOTID() string { return n.b.Name() }

func (n dotNode) Attributes() []encoding.Attribute {
	return []encoding.Attribute{
		{Key: "shape", Value: kindShapes[n.b.Kind()]},
		{Key: "tooltip", Value: n.b.Type()},
	}
}

type dotLine struct {
	from, to dotNode
	id       int64
	label    string
}

func (l dotLine) From() graph.Node { return l.from }
func (l dotLine) To() graph.Node   { return l.to }
func (l dotLine) ID() int64        { return l.id }

func (l dotLine) ReversedLine() graph.Line {
	l.from, l.to = l.to, l.from
	return l
}

func (l dotLine) Attributes() []encoding.Attribute {
	return []encoding.Attribute{{Key: "label", Value: l.label}}
}

// DOT renders the compiled graph in Graphviz format, one edge per wire.
func (g *Graph) DOT() ([]byte, error) {
	mg := multi.NewDirectedGraph()
	nodes := make([]dotNode, len(g.Blocks))
	for i, b := range g.Blocks {
		nodes[i] = dotNode{id: int64(i), b: b}
		mg.AddNode(nodes[i])
	}
	for _, w := range g.Wires {
		mg.SetLine(dotLine{
			from:  nodes[w.Src.Block],
			to:    nodes[w.Dst.Block],
			id:    int64(w.ID),
			label: w.Name,
		})
	}
	out, err := dot.MarshalMulti(mg, g.Name, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal dot")
	}
	return out, nil
}

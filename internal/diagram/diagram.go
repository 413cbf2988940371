package diagram

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/dynamo"
	"github.com/sirupsen/logrus"
)

// Handle identifies a block by its position in the diagram. Positions are
// the compiled block ids.
type Handle int

// Endpoint is a block and an ordered list of its ports.
type Endpoint struct {
	Block Handle
	Ports []int
}

// Plug is anything that can stand at one end of a wire: a bare Handle
// (port 0) or an Endpoint.
type Plug interface {
	endpoint() Endpoint
}

func (h Handle) endpoint() Endpoint   { return Endpoint{Block: h, Ports: []int{0}} }
func (e Endpoint) endpoint() Endpoint { return e }

// Port selects one port, or an ordered bundle of ports.
func (h Handle) Port(ports ...int) Endpoint {
	if len(ports) == 0 {
		ports = []int{0}
	}
	return Endpoint{Block: h, Ports: ports}
}

// Range selects the contiguous bundle of ports [lo, hi). An empty or
// inverted range gives an empty bundle, which compile rejects.
func (h Handle) Range(lo, hi int) Endpoint {
	ports := []int{}
	for p := lo; p < hi; p++ {
		ports = append(ports, p)
	}
	return Endpoint{Block: h, Ports: ports}
}

type Wire struct {
	ID   int
	Name string
	Src  Endpoint
	Dst  Endpoint
}

type WireOption func(*Wire)

func Named(name string) WireOption {
	return func(w *Wire) { w.Name = name }
}

// Diagram owns blocks and wires in declaration order. It is mutable until
// compiled; any mutation invalidates earlier compiled graphs.
type Diagram struct {
	Name    string
	blocks  []block.Block
	wires   []*Wire
	clocks  []*block.Clock
	version uint64
	log     *logrus.Entry
}

func New(name string) *Diagram {
	return &Diagram{
		Name: name,
		log:  logrus.WithFields(logrus.Fields{"component": "diagram", "diagram": name}),
	}
}

func (d *Diagram) SetLogger(l *logrus.Entry) { d.log = l.WithField("diagram", d.Name) }
func (d *Diagram) Logger() *logrus.Entry     { return d.log }
func (d *Diagram) Version() uint64           { return d.revision() }
func (d *Diagram) NumBlocks() int            { return len(d.blocks) }
func (d *Diagram) Wires() []*Wire            { return d.wires }
func (d *Diagram) Clocks() []*block.Clock    { return d.clocks }

// AddBlock appends b and returns its handle.
func (d *Diagram) AddBlock(b block.Block) Handle {
	d.blocks = append(d.blocks, b)
	d.version++
	return Handle(len(d.blocks) - 1)
}

// Add builds a block from the type registry and appends it. Clocked blocks
// name their clock, which must already be declared with Clock.
func (d *Diagram) Add(spec block.Spec) (Handle, error) {
	clocks := make(map[string]*block.Clock, len(d.clocks))
	for _, c := range d.clocks {
		clocks[c.Name] = c
	}
	b, err := block.New(spec, clocks)
	if err != nil {
		return -1, errors.Wrapf(err, "add %s", spec.Type)
	}
	return d.AddBlock(b), nil
}

// Block returns the block behind a handle.
func (d *Diagram) Block(h Handle) block.Block {
	if int(h) < 0 || int(h) >= len(d.blocks) {
		return nil
	}
	return d.blocks[h]
}

// Lookup finds a block by name. Default names exist only after compile.
func (d *Diagram) Lookup(name string) (Handle, bool) {
	for i, b := range d.blocks {
		if b.Name() == name {
			return Handle(i), true
		}
	}
	return -1, false
}

// Clock declares a named clock. unit is "s", "ms" or "Hz".
func (d *Diagram) Clock(name string, arg float64, unit string, offset float64) (*block.Clock, error) {
	if name == "" {
		name = fmt.Sprintf("clock.%d", len(d.clocks))
	}
	for _, c := range d.clocks {
		if c.Name == name {
			return nil, errors.Errorf("duplicate clock %q", name)
		}
	}
	c, err := block.NewClock(name, arg, unit, offset)
	if err != nil {
		return nil, err
	}
	d.clocks = append(d.clocks, c)
	d.version++
	return c, nil
}

// Connect wires src to dst. Both ends must name the same number of ports;
// that and port ranges are checked at compile.
func (d *Diagram) Connect(src, dst Plug, opts ...WireOption) *Wire {
	w := &Wire{ID: len(d.wires), Src: src.endpoint(), Dst: dst.endpoint()}
	for _, opt := range opts {
		opt(w)
	}
	d.wires = append(d.wires, w)
	d.version++
	return w
}

// Chain connects each plug to the next one.
func (d *Diagram) Chain(plugs ...Plug) {
	for i := 1; i < len(plugs); i++ {
		d.Connect(plugs[i-1], plugs[i])
	}
}

// SetParam sets a block parameter addressed as "block.param". The block part
// is everything before the last dot, so default names like "gain.2" work.
// Parameters do not change topology and need no recompile.
func (d *Diagram) SetParam(key string, value float64) error {
	i := strings.LastIndex(key, ".")
	if i <= 0 || i == len(key)-1 {
		return errors.Errorf("bad parameter key %q, want block.param", key)
	}
	b, ok := d.Find(key[:i])
	if !ok {
		return errors.Errorf("no block named %q", key[:i])
	}
	c, ok := b.(dynamo.Configurable)
	if !ok {
		return errors.Wrapf(dynamo.ErrUnknownParam, "block %s has no parameters", key[:i])
	}
	return c.SetParam(key[i+1:], value)
}

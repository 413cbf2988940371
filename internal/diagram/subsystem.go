package diagram

import (
	"fmt"

	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/dynamo"
)

// SubSystem places another diagram in this one as a single block. Its
// inputs are the outputs of the inner InPort and its outputs the inputs of
// the inner OutPort. Compile inlines the inner blocks under "parent/child"
// names, turning the port blocks into pass-throughs, so no hierarchy is
// left at run time.
//
// An inner diagram belongs to one SubSystem. Build a fresh one for every
// instance.
type SubSystem struct {
	block.Base
	Inner *Diagram

	// local keeps the inner blocks' own names so inlining is repeatable.
	local []string
}

// NewSubSystem wraps inner, sizing the block from its port blocks.
func NewSubSystem(inner *Diagram) (*SubSystem, error) {
	in, out, err := ports(inner)
	if err != nil {
		return nil, err
	}
	nin, nout := 0, 0
	if in >= 0 {
		nin = inner.blocks[in].NOut()
	}
	if out >= 0 {
		nout = inner.blocks[out].NIn()
	}
	return &SubSystem{Base: block.NewBase("subsystem", block.Function, nin, nout), Inner: inner}, nil
}

// ports finds the single InPort and OutPort of d, -1 when absent.
func ports(d *Diagram) (in, out int, err error) {
	in, out = -1, -1
	for i, b := range d.blocks {
		switch b.(type) {
		case *block.InPort:
			if in >= 0 {
				return -1, -1, dynamo.Structural(b.Name(), -1, "subsystem %q has more than one inport", d.Name)
			}
			in = i
		case *block.OutPort:
			if out >= 0 {
				return -1, -1, dynamo.Structural(b.Name(), -1, "subsystem %q has more than one outport", d.Name)
			}
			out = i
		}
	}
	if in < 0 && out < 0 {
		return -1, -1, dynamo.Structural("", -1, "subsystem %q has neither inport nor outport", d.Name)
	}
	return in, out, nil
}

// flat is a diagram with every subsystem inlined.
type flat struct {
	blocks []block.Block
	wires  []*Wire
	clocks []*block.Clock
}

// flatten inlines the subsystems of d. A diagram without subsystems comes
// back as is, wires included.
func flatten(d *Diagram) (*flat, error) {
	nested := false
	for _, b := range d.blocks {
		if _, ok := b.(*SubSystem); ok {
			nested = true
			break
		}
	}
	if !nested {
		return &flat{blocks: d.blocks, wires: d.wires, clocks: d.clocks}, nil
	}
	f := &flat{}
	owner := make(map[block.Block]string)
	if _, _, err := f.inline(d, "", owner); err != nil {
		return nil, err
	}
	return f, nil
}

// inline appends d's blocks and wires under prefix and returns the flat
// positions standing for d's InPort and OutPort.
func (f *flat) inline(d *Diagram, prefix string, owner map[block.Block]string) (int, int, error) {
	at := make([]int, len(d.blocks))
	inAt := make([]int, len(d.blocks))
	outAt := make([]int, len(d.blocks))
	in, out := -1, -1
	f.clocks = append(f.clocks, d.clocks...)

	for i, b := range d.blocks {
		at[i], inAt[i], outAt[i] = -1, -1, -1
		if prefix == "" && b.Name() == "" {
			b.SetName(fmt.Sprintf("%s.%d", b.Type(), i))
		}
		if prev, dup := owner[b]; dup {
			return -1, -1, dynamo.Structural(b.Name(), -1, "block already placed as %s", prev)
		}
		owner[b] = b.Name()

		switch v := b.(type) {
		case *SubSystem:
			if _, _, err := ports(v.Inner); err != nil {
				return -1, -1, err
			}
			if err := v.rename(); err != nil {
				return -1, -1, err
			}
			i0, o0, err := f.inline(v.Inner, v.Name(), owner)
			if err != nil {
				return -1, -1, err
			}
			nin, nout := 0, 0
			if i0 >= 0 {
				nin = f.blocks[i0].NOut()
			}
			if o0 >= 0 {
				nout = f.blocks[o0].NIn()
			}
			if nin != v.NIn() || nout != v.NOut() {
				return -1, -1, dynamo.Structural(v.Name(), -1, "ports changed to %d/%d after wrapping, want %d/%d",
					nin, nout, v.NIn(), v.NOut())
			}
			inAt[i], outAt[i] = i0, o0
		case *block.InPort:
			if prefix != "" {
				in = len(f.blocks)
				b = block.NewThrough(b.Type(), b.NOut())
				b.SetName(d.blocks[i].Name())
			}
			at[i] = len(f.blocks)
			f.blocks = append(f.blocks, b)
		case *block.OutPort:
			if prefix != "" {
				out = len(f.blocks)
				b = block.NewThrough(b.Type(), b.NIn())
				b.SetName(d.blocks[i].Name())
			}
			at[i] = len(f.blocks)
			f.blocks = append(f.blocks, b)
		default:
			at[i] = len(f.blocks)
			f.blocks = append(f.blocks, b)
		}
	}

	// Wires into a subsystem land on its inport, wires out of it leave
	// from its outport. Bad handles stay bad for compile to report.
	resolve := func(h Handle, ends []int) Handle {
		if int(h) < 0 || int(h) >= len(d.blocks) {
			return -1
		}
		if _, ok := d.blocks[h].(*SubSystem); ok {
			return Handle(ends[h])
		}
		return Handle(at[h])
	}
	for _, w := range d.wires {
		name := w.Name
		if name == "" {
			name = fmt.Sprintf("wire.%d", w.ID)
		}
		if prefix != "" {
			name = prefix + "/" + name
		}
		f.wires = append(f.wires, &Wire{
			ID:   len(f.wires),
			Name: name,
			Src:  Endpoint{Block: resolve(w.Src.Block, outAt), Ports: w.Src.Ports},
			Dst:  Endpoint{Block: resolve(w.Dst.Block, inAt), Ports: w.Dst.Ports},
		})
	}
	return in, out, nil
}

// rename gives every inner block the name "subsystem/local". Local names
// are captured the first time a block is seen.
func (s *SubSystem) rename() error {
	for j := len(s.local); j < len(s.Inner.blocks); j++ {
		b := s.Inner.blocks[j]
		name := b.Name()
		if name == "" {
			name = fmt.Sprintf("%s.%d", b.Type(), j)
		}
		s.local = append(s.local, name)
	}
	if len(s.local) != len(s.Inner.blocks) {
		return dynamo.Structural(s.Name(), -1, "inner diagram lost blocks")
	}
	for j, b := range s.Inner.blocks {
		b.SetName(s.Name() + "/" + s.local[j])
	}
	return nil
}

// revision changes whenever d or any diagram nested in it changes.
func (d *Diagram) revision() uint64 {
	v := d.version
	for _, b := range d.blocks {
		if s, ok := b.(*SubSystem); ok {
			v += s.Inner.revision()
		}
	}
	return v
}

// Find resolves a block by name anywhere in d, including the qualified
// names of inlined subsystem blocks.
func (d *Diagram) Find(name string) (block.Block, bool) {
	for _, b := range d.blocks {
		if b.Name() == name {
			return b, true
		}
		if s, ok := b.(*SubSystem); ok {
			if inner, ok := s.Inner.Find(name); ok {
				return inner, true
			}
		}
	}
	return nil, false
}

package block

// InPort stands for a subsystem's inputs inside its diagram. Compiled on
// its own it outputs zeros.
type InPort struct {
	Base
}

func NewInPort(n int) *InPort {
	return &InPort{Base: NewBase("inport", Source, 0, n)}
}

func (p *InPort) Output(f *Frame) ([]Signal, error) {
	out := make([]Signal, p.NOut())
	for i := range out {
		out[i] = Signal{0}
	}
	return out, nil
}

// OutPort collects a subsystem's outputs inside its diagram.
type OutPort struct {
	Base
}

func NewOutPort(n int) *OutPort {
	return &OutPort{Base: NewBase("outport", Sink, n, 0)}
}

// Through forwards each input to the output with the same index. Subsystem
// flattening puts one in place of every port block.
type Through struct {
	Base
}

func NewThrough(typ string, n int) *Through {
	return &Through{Base: NewBase(typ, Function, n, n)}
}

func (b *Through) Output(f *Frame) ([]Signal, error) {
	return append([]Signal(nil), f.In...), nil
}

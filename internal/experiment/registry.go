package experiment

import (
	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/dynamo"
	"github.com/san-kum/blocksim/internal/integrators"
	"github.com/san-kum/blocksim/internal/metrics"
	"github.com/san-kum/blocksim/internal/sim"
)

type Registry struct {
	diagrams map[string]Info
	order    []string
}

func NewRegistry() *Registry {
	r := &Registry{diagrams: make(map[string]Info)}
	for _, info := range diagrams {
		r.Register(info)
	}
	return r
}

// Register adds or replaces a diagram.
func (r *Registry) Register(info Info) {
	if _, ok := r.diagrams[info.Name]; !ok {
		r.order = append(r.order, info.Name)
	}
	r.diagrams[info.Name] = info
}

func (r *Registry) GetDiagram(name string) (Info, error) {
	info, ok := r.diagrams[name]
	if !ok {
		return Info{}, errors.Errorf("unknown diagram: %s", name)
	}
	return info, nil
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	return integrators.New(name)
}

// ListDiagrams returns diagram names in registration order.
func (r *Registry) ListDiagrams() []string {
	return append([]string(nil), r.order...)
}

// DefaultMetrics returns the diagram's own metrics plus stability.
func (r *Registry) DefaultMetrics(name string) []sim.Metric {
	var ms []sim.Metric
	if info, ok := r.diagrams[name]; ok && info.Metrics != nil {
		ms = info.Metrics()
	}
	for _, m := range ms {
		if m.Name() == "stability" {
			return ms
		}
	}
	return append(ms, metrics.NewStability(100))
}

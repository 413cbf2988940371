package sim

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/diagram"
	"github.com/san-kum/blocksim/internal/dynamo"
	"github.com/sirupsen/logrus"
)

type Option func(*Simulator)

func WithLogger(l *logrus.Entry) Option {
	return func(s *Simulator) { s.log = l }
}

// Simulator owns a diagram, its compiled graph and the run state machine.
// It is not safe for concurrent use; run independent simulators instead.
type Simulator struct {
	diagram    *diagram.Diagram
	graph      *diagram.Graph
	integrator dynamo.Integrator
	metrics    []Metric
	status     dynamo.Status
	log        *logrus.Entry
}

func New(d *diagram.Diagram, integrator dynamo.Integrator, opts ...Option) *Simulator {
	s := &Simulator{
		diagram:    d,
		integrator: integrator,
		metrics:    make([]Metric, 0),
		log:        logrus.WithFields(logrus.Fields{"component": "sim", "diagram": d.Name}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) AddMetric(m Metric)            { s.metrics = append(s.metrics, m) }
func (s *Simulator) Status() dynamo.Status         { return s.status }
func (s *Simulator) Graph() *diagram.Graph         { return s.graph }
func (s *Simulator) Diagram() *diagram.Diagram     { return s.diagram }
func (s *Simulator) Integrator() dynamo.Integrator { return s.integrator }

// Compile (re)builds the graph. On failure the simulator has no graph and
// cannot run.
func (s *Simulator) Compile() (*diagram.Graph, error) {
	if s.status == dynamo.Running {
		return nil, errors.New("cannot compile while running")
	}
	g, err := diagram.Compile(s.diagram)
	if err != nil {
		s.graph, s.status = nil, dynamo.Uninitialized
		return nil, err
	}
	s.graph, s.status = g, dynamo.Compiled
	return g, nil
}

// Continuous returns the compiled diagram as a plain ODE over its global
// state vector, with the initial state, for analyses that step it
// themselves. Discrete state would never update there, so diagrams that
// carry any are refused.
func (s *Simulator) Continuous() (dynamo.System, dynamo.State, error) {
	if s.graph == nil {
		return nil, nil, dynamo.ErrNotCompiled
	}
	if s.graph.Stale(s.diagram) {
		return nil, nil, dynamo.ErrStaleGraph
	}
	if s.graph.ND > 0 {
		return nil, nil, errors.Errorf("diagram %s has %d discrete states", s.graph.Name, s.graph.ND)
	}
	if s.graph.NX == 0 {
		return nil, nil, errors.Errorf("diagram %s has no continuous state", s.graph.Name)
	}
	x, d := s.graph.InitialState()
	return &system{e: newEvaluator(s.graph, true), d: d}, x, nil
}

// Reset makes a failed simulator runnable again.
func (s *Simulator) Reset() {
	if s.graph == nil {
		s.status = dynamo.Uninitialized
		return
	}
	s.status = dynamo.Compiled
}

// Run simulates over [0, cfg.Duration] from the blocks' initial states.
// Every committed step is sampled; a failed run returns the samples taken
// so far along with the error.
func (s *Simulator) Run(ctx context.Context, cfg dynamo.Config) (*dynamo.Result, error) {
	switch s.status {
	case dynamo.Uninitialized:
		return nil, dynamo.ErrNotCompiled
	case dynamo.Failed:
		return nil, dynamo.ErrNeedsReset
	case dynamo.Running:
		return nil, errors.New("simulator is already running")
	}
	if s.graph.Stale(s.diagram) {
		return nil, dynamo.ErrStaleGraph
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r, err := s.newRun(cfg)
	if err != nil {
		return nil, err
	}

	s.status = dynamo.Running
	for _, m := range s.metrics {
		m.Reset()
	}

	err = r.start()
	if err == nil {
		err = r.loop(ctx)
	}
	if doneErr := r.done(err == nil); err == nil {
		err = doneErr
	}
	r.finish(err)
	return r.res, err
}

type watchRef struct{ id, port int }

// run is the state of one Run call.
type run struct {
	s   *Simulator
	g   *diagram.Graph
	cfg dynamo.Config
	log *logrus.Entry

	e     *evaluator
	sys   *system
	ticks *tickQueue
	rc    *block.RunContext
	res   *dynamo.Result
	watch []watchRef

	x, d dynamo.State
	t    float64
	step int
}

func (s *Simulator) newRun(cfg dynamo.Config) (*run, error) {
	g := s.graph
	r := &run{
		s:     s,
		g:     g,
		cfg:   cfg,
		log:   s.log,
		e:     newEvaluator(g, cfg.CheckFinite),
		ticks: newTickQueue(g.Clocks, cfg.Duration),
		rc:    &block.RunContext{},
		res: &dynamo.Result{
			WatchNames: append([]string(nil), cfg.Watch...),
			Metrics:    make(map[string]float64),
		},
	}
	for _, name := range cfg.Watch {
		id, port, err := g.Signal(name)
		if err != nil {
			return nil, err
		}
		r.watch = append(r.watch, watchRef{id: id, port: port})
	}
	r.x, r.d = g.InitialState()
	r.sys = &system{e: r.e, d: r.d}
	r.rc.Reset(cfg.Duration)
	return r, nil
}

func (r *run) violate(v dynamo.Violation) {
	r.res.Violations = append(r.res.Violations, v)
}

func (r *run) hookLog(b block.Block) *logrus.Entry {
	return r.log.WithField("block", b.Name())
}

func (r *run) start() error {
	for i, b := range r.g.Blocks {
		st, ok := b.(block.Starter)
		if !ok {
			continue
		}
		r.rc.Log = r.hookLog(b)
		if err := st.Start(r.rc); err != nil {
			return r.e.fail(i, 0, "start", err)
		}
	}
	return nil
}

// done runs every finish hook even after a failure and reports the first
// hook error.
func (r *run) done(blocking bool) error {
	var first error
	for i, b := range r.g.Blocks {
		fin, ok := b.(block.Finisher)
		if !ok {
			continue
		}
		r.rc.Log = r.hookLog(b)
		if err := fin.Done(r.rc, blocking); err != nil && first == nil {
			first = r.e.fail(i, r.t, "done", err)
		}
	}
	return first
}

func (r *run) loop(ctx context.Context) error {
	if err := r.fireTicks(); err != nil {
		return err
	}
	if err := r.commit(); err != nil {
		return err
	}

	h := r.cfg.StepHint()
	if r.cfg.Adaptive {
		h = r.boundStep(h)
	}
	end := r.cfg.Duration

	for {
		if _, stopped := r.rc.Stopped(); stopped {
			return nil
		}
		if r.t >= end-timeEps {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		stop := end
		if tk, ok := r.ticks.next(); ok && tk < stop {
			stop = tk
		}
		dt := math.Min(h, stop-r.t)

		x, used, next, err := r.advance(dt)
		if err != nil {
			return err
		}
		if r.cfg.Adaptive && (used < dt || dt == h) {
			h = next
		}

		tn := r.t + used
		if math.Abs(tn-stop) <= timeEps {
			tn = stop
		}
		r.x, r.t = x, tn
		r.step++
		r.res.StepsTaken++
		r.clamp()

		if r.cfg.ValidateState && !r.x.IsValid() {
			return &dynamo.SimulationError{
				Step:    r.step,
				Time:    r.t,
				State:   r.x.Clone(),
				Wrapped: dynamo.ErrInvalidState,
			}
		}
		if err := r.fireTicks(); err != nil {
			return err
		}
		if err := r.commit(); err != nil {
			return err
		}
	}
}

func (r *run) boundStep(h float64) float64 {
	if r.cfg.MaxDt > 0 {
		h = math.Min(h, r.cfg.MaxDt)
	}
	return math.Max(h, r.cfg.MinDt)
}

// advance integrates the continuous state over at most dt. It returns the
// new state, the step actually taken and the proposed next step.
func (r *run) advance(dt float64) (dynamo.State, float64, float64, error) {
	if r.g.NX == 0 {
		return r.x, dt, dt, nil
	}
	r.sys.d = r.d
	if !r.cfg.Adaptive {
		x, err := r.s.integrator.Step(r.sys, r.x, r.t, dt)
		return x, dt, dt, err
	}

	floor := math.Max(r.cfg.MinDt, 1e-15)
	for {
		x, next, err := r.stepAdaptive(dt)
		if errors.Is(err, dynamo.ErrStepRejected) {
			r.res.Rejected++
			if next >= dt {
				next = dt / 2
			}
			dt = next
			if dt < floor {
				return nil, 0, 0, &dynamo.SimulationError{
					Step:    r.step,
					Time:    r.t,
					State:   r.x.Clone(),
					Wrapped: errors.Wrapf(dynamo.ErrStepTooSmall, "dt=%g", dt),
				}
			}
			continue
		}
		if err != nil {
			return nil, 0, 0, err
		}
		return x, dt, r.boundStep(next), nil
	}
}

// stepAdaptive uses the integrator's own error control when it has one and
// step doubling otherwise.
func (r *run) stepAdaptive(dt float64) (dynamo.State, float64, error) {
	if ai, ok := r.s.integrator.(dynamo.AdaptiveIntegrator); ok {
		return ai.StepAdaptive(r.sys, r.x, r.t, dt, r.cfg.Tolerance)
	}

	integ := r.s.integrator
	x1, err := integ.Step(r.sys, r.x, r.t, dt)
	if err != nil {
		return nil, dt, err
	}
	xHalf, err := integ.Step(r.sys, r.x, r.t, dt/2)
	if err != nil {
		return nil, dt, err
	}
	x2, err := integ.Step(r.sys, xHalf, r.t+dt/2, dt/2)
	if err != nil {
		return nil, dt, err
	}

	e := x1.Sub(x2).Norm()
	switch {
	case e > r.cfg.Tolerance:
		return r.x, dt / 2, dynamo.ErrStepRejected
	case e < r.cfg.Tolerance/10:
		return x2, dt * 2, nil
	default:
		return x2, dt, nil
	}
}

// clamp applies state bounds to the committed continuous state.
func (r *run) clamp() {
	for i, b := range r.g.Blocks {
		c, ok := b.(block.Clamper)
		if !ok {
			continue
		}
		s := r.g.Layout[i]
		f := block.NewFrame(r.t, nil, r.x[s.X:s.X+s.NX:s.X+s.NX], nil)
		f.Bind(b.Name(), r.violate)
		c.Clamp(f)
	}
}

// fireTicks updates every clocked block whose clock is due at the current
// time. All next states are computed from the same evaluation before any is
// written.
func (r *run) fireTicks() error {
	due := r.ticks.due(r.t)
	if len(due) == 0 {
		return nil
	}

	r.e.sink = r.violate
	defer func() { r.e.sink = nil }()
	if err := r.e.evaluate(r.t, r.x, r.d); err != nil {
		return err
	}

	fire := make([]bool, len(r.g.Clocks))
	for _, c := range due {
		fire[c] = true
	}

	type update struct {
		id   int
		next dynamo.State
	}
	var pending []update
	for i, b := range r.g.Blocks {
		c := r.g.ClockOf[i]
		if b.Kind() != block.Clocked || c < 0 || !fire[c] {
			continue
		}
		next, err := b.(block.Updater).Next(r.e.frame(i, r.t))
		if err != nil {
			return r.e.fail(i, r.t, "update", err)
		}
		if len(next) != r.g.Layout[i].ND {
			return r.e.fail(i, r.t, "update", errors.Wrapf(dynamo.ErrDimensionMismatch,
				"%d next states for %d", len(next), r.g.Layout[i].ND))
		}
		pending = append(pending, update{id: i, next: dynamo.State(next).Clone()})
	}
	for _, u := range pending {
		copy(r.d[r.g.Layout[u.id].D:], u.next)
	}

	for _, c := range due {
		r.res.Ticks = append(r.res.Ticks, dynamo.Tick{Clock: r.g.Clocks[c].Name, T: r.t, D: r.d.Clone()})
	}
	r.log.WithFields(logrus.Fields{"t": r.t, "clocks": len(due), "updated": len(pending)}).Debug("tick")
	return nil
}

// commit evaluates the accepted point, records it and calls step hooks.
func (r *run) commit() error {
	r.e.sink = r.violate
	err := r.e.evaluate(r.t, r.x, r.d)
	r.e.sink = nil
	if err != nil {
		return err
	}

	r.res.Times = append(r.res.Times, r.t)
	r.res.States = append(r.res.States, r.x.Clone())
	r.res.DStates = append(r.res.DStates, r.d.Clone())

	var row []float64
	if len(r.watch) > 0 {
		row = make([]float64, len(r.watch))
		for k, w := range r.watch {
			row[k] = r.e.output(w.id, w.port).Float()
		}
		r.res.Watched = append(r.res.Watched, row)
	}

	r.rc.T, r.rc.Step = r.t, r.step
	for i, b := range r.g.Blocks {
		st, ok := b.(block.Stepper)
		if !ok {
			continue
		}
		r.rc.Log = r.hookLog(b)
		if err := st.Step(r.rc, r.e.ins[i]); err != nil {
			return r.e.fail(i, r.t, "step", err)
		}
	}

	sample := Sample{T: r.t, X: r.x, D: r.d, Names: r.res.WatchNames, Watched: row}
	for _, m := range r.s.metrics {
		m.Observe(&sample)
	}
	return nil
}

func (r *run) finish(err error) {
	res := r.res
	res.Evaluations = r.e.evals
	for _, m := range r.s.metrics {
		res.Metrics[m.Name()] = m.Value()
	}

	reason, stopped := r.rc.Stopped()
	switch {
	case err == nil && stopped:
		res.Status, res.StopReason = dynamo.Stopped, reason
	case err == nil:
		res.Status = dynamo.Completed
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		res.Status, res.StopReason = dynamo.Stopped, err.Error()
	default:
		res.Status = dynamo.Failed
	}
	r.s.status = res.Status

	entry := r.log.WithFields(logrus.Fields{
		"status":   res.Status,
		"t":        r.t,
		"steps":    res.StepsTaken,
		"rejected": res.Rejected,
		"evals":    res.Evaluations,
	})
	if res.Status == dynamo.Failed {
		entry.WithError(err).Warn("run failed")
		return
	}
	entry.Info("run finished")
}

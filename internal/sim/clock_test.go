package sim_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/diagram"
	"github.com/san-kum/blocksim/internal/dynamo"
	"github.com/san-kum/blocksim/internal/integrators"
	"github.com/san-kum/blocksim/internal/sim"
)

func config(dt, duration float64) dynamo.Config {
	c := dynamo.DefaultConfig()
	c.Dt, c.Duration = dt, duration
	return c
}

func tickTimes(res *dynamo.Result, clock string) []float64 {
	var ts []float64
	for _, tk := range res.Ticks {
		if tk.Clock == clock {
			ts = append(ts, tk.T)
		}
	}
	return ts
}

var _ = Describe("Clocked blocks", func() {
	var d *diagram.Diagram

	BeforeEach(func() {
		d = diagram.New("clocked")
	})

	run := func(integ dynamo.Integrator, cfg dynamo.Config) *dynamo.Result {
		s := sim.New(d, integ)
		_, err := s.Compile()
		Expect(err).NotTo(HaveOccurred())
		res, err := s.Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())
		return res
	}

	Context("zero-order hold", func() {
		It("samples its input only on clock ticks", func() {
			clk, err := d.Clock("sample", 2, "Hz", 0)
			Expect(err).NotTo(HaveOccurred())
			d.Chain(d.AddBlock(block.NewTime()), d.AddBlock(block.NewZOH(clk)), d.AddBlock(block.NewNull(1)))

			res := run(integrators.NewEuler(), config(0.1, 1))

			Expect(tickTimes(res, "sample")).To(Equal([]float64{0, 0.5, 1.0}))
			for k, t := range res.Times {
				held := res.DStates[k][0]
				switch {
				case t < 0.5-1e-9:
					Expect(held).To(BeNumerically("==", 0))
				case t < 1.0-1e-9:
					Expect(held).To(BeNumerically("==", 0.5))
				default:
					Expect(held).To(BeNumerically("==", 1.0))
				}
			}
		})
	})

	Context("discrete integrator", func() {
		It("accumulates once per tick including t=0", func() {
			clk, err := d.Clock("ctrl", 10, "Hz", 0)
			Expect(err).NotTo(HaveOccurred())
			d.Chain(d.AddBlock(block.NewConstant(1)), d.AddBlock(block.NewDIntegrator(clk)), d.AddBlock(block.NewNull(1)))

			res := run(integrators.NewEuler(), config(0.05, 1))

			Expect(tickTimes(res, "ctrl")).To(HaveLen(11))
			Expect(res.DStates[0][0]).To(BeNumerically("~", 0.1, 1e-12))
			Expect(res.DStates[len(res.DStates)-1][0]).To(BeNumerically("~", 1.1, 1e-9))
		})
	})

	Context("with continuous state", func() {
		It("lands the integrator exactly on every tick", func() {
			clk, err := d.Clock("slow", 0.25, "s", 0)
			Expect(err).NotTo(HaveOccurred())
			d.Chain(d.AddBlock(block.NewConstant(1)), d.AddBlock(block.NewIntegrator(0)), d.AddBlock(block.NewNull(1)))
			d.Chain(d.AddBlock(block.NewTime()), d.AddBlock(block.NewZOH(clk)), d.AddBlock(block.NewNull(1)))

			res := run(integrators.NewRK4(), config(0.3, 1))

			Expect(res.Times).To(Equal([]float64{0, 0.25, 0.5, 0.75, 1.0}))
			Expect(res.Final()[0]).To(BeNumerically("~", 1.0, 1e-12))
			for k, t := range res.Times {
				Expect(res.DStates[k][0]).To(Equal(t), "hold value at t=%g", t)
			}
		})
	})

	Context("simultaneous clocks", func() {
		It("fires coinciding ticks as one batch in clock order", func() {
			a, err := d.Clock("a", 0.5, "s", 0)
			Expect(err).NotTo(HaveOccurred())
			b, err := d.Clock("b", 0.25, "s", 0)
			Expect(err).NotTo(HaveOccurred())

			src := d.AddBlock(block.NewTime())
			za := d.AddBlock(block.NewZOH(a))
			zb := d.AddBlock(block.NewZOH(b))
			d.Connect(src, za)
			d.Connect(src, zb)
			d.Connect(za, d.AddBlock(block.NewNull(1)))
			d.Connect(zb, d.AddBlock(block.NewNull(1)))

			res := run(integrators.NewEuler(), config(0.1, 1))

			Expect(res.Ticks[0].Clock).To(Equal("a"))
			Expect(res.Ticks[1].Clock).To(Equal("b"))
			Expect(tickTimes(res, "a")).To(Equal([]float64{0, 0.5, 1.0}))
			Expect(tickTimes(res, "b")).To(Equal([]float64{0, 0.25, 0.5, 0.75, 1.0}))
		})

		It("uses outputs from before the batch for every update", func() {
			clk, err := d.Clock("c", 1, "s", 0)
			Expect(err).NotTo(HaveOccurred())
			// first hold feeds the second; both update from pre-tick values.
			first := d.AddBlock(block.NewZOH(clk, 5))
			second := d.AddBlock(block.NewZOH(clk, 0))
			d.Chain(d.AddBlock(block.NewConstant(7)), first, second, d.AddBlock(block.NewNull(1)))

			res := run(integrators.NewEuler(), config(0.5, 1))

			Expect(res.DStates[0]).To(Equal(dynamo.State{7, 5}))
			Expect(res.DStates[len(res.DStates)-1]).To(Equal(dynamo.State{7, 7}))
		})
	})
})

var _ = Describe("Simulator lifecycle", func() {
	var (
		d   *diagram.Diagram
		rec *block.Recorder
		s   *sim.Simulator
	)

	BeforeEach(func() {
		d = diagram.New("lifecycle")
		rec = block.NewRecorder(1)
		d.Chain(d.AddBlock(block.NewConstant(1)), d.AddBlock(block.NewIntegrator(0)), d.AddBlock(rec))
		s = sim.New(d, integrators.NewRK4())
	})

	It("starts uninitialized", func() {
		Expect(s.Status()).To(Equal(dynamo.Uninitialized))
		Expect(s.Graph()).To(BeNil())
	})

	It("moves through compiled to completed", func() {
		_, err := s.Compile()
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Status()).To(Equal(dynamo.Compiled))

		res, err := s.Run(context.Background(), config(0.1, 0.5))
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Status()).To(Equal(dynamo.Completed))
		Expect(res.Status).To(Equal(dynamo.Completed))
	})

	It("calls start and done hooks once per run", func() {
		_, err := s.Compile()
		Expect(err).NotTo(HaveOccurred())

		for i := 1; i <= 2; i++ {
			_, err = s.Run(context.Background(), config(0.1, 0.5))
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Started).To(Equal(i))
			Expect(rec.Finished).To(BeTrue())
			Expect(rec.Times).To(HaveLen(6))
		}
	})

	It("rejects an invalid config without changing state", func() {
		_, err := s.Compile()
		Expect(err).NotTo(HaveOccurred())

		_, err = s.Run(context.Background(), config(0.1, 0))
		Expect(err).To(HaveOccurred())
		Expect(s.Status()).To(Equal(dynamo.Compiled))
		Expect(rec.Started).To(BeZero())
	})

	It("applies parameter changes without recompiling", func() {
		_, err := s.Compile()
		Expect(err).NotTo(HaveOccurred())
		Expect(d.SetParam("constant.0.value", 2)).To(Succeed())

		res, err := s.Run(context.Background(), config(0.1, 1))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Final()[0]).To(BeNumerically("~", 2.0, 1e-9))
	})
})

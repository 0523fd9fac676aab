package sim_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pyrosim/internal/dynamo"
	"github.com/san-kum/pyrosim/internal/integrators"
	"github.com/san-kum/pyrosim/internal/kinetics"
	"github.com/san-kum/pyrosim/internal/sim"
)

// decay is x' = -k x, returning NaN once t passes poisonAfter.
type decay struct {
	k           float64
	poisonAfter float64
	calls       int
}

func (d *decay) Derive(x dynamo.State, t float64) dynamo.State {
	d.calls++
	if d.poisonAfter > 0 && t > d.poisonAfter {
		return dynamo.State{math.NaN()}
	}
	return dynamo.State{-d.k * x[0]}
}

func (d *decay) StateDim() int { return 1 }

func pyrocycleModel(policy kinetics.DepletionPolicy) *kinetics.Model {
	cond, err := kinetics.NewOperatingConditions(kinetics.PyrocycleTemperature)
	Expect(err).NotTo(HaveOccurred())
	m, err := kinetics.NewModel(cond, kinetics.DefaultReactions(), kinetics.SpoutedBedDecay, policy)
	Expect(err).NotTo(HaveOccurred())
	return m
}

var _ = Describe("Driver", func() {
	var (
		ctx context.Context
		cfg dynamo.Config
		x0  dynamo.State
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = dynamo.DefaultConfig()
		x0 = dynamo.State{10, 0, 0, 0}
	})

	Describe("mass conservative pyrolysis", func() {
		var (
			model  *kinetics.Model
			result *dynamo.Result
		)

		BeforeEach(func() {
			model = pyrocycleModel(kinetics.MassConservative)
			var err error
			result, err = sim.New(model, integrators.NewRK45(), cfg).Run(ctx, x0, dynamo.Linspace(0, 400, 50))
			Expect(err).NotTo(HaveOccurred())
		})

		It("reports one state per grid time", func() {
			Expect(result.States).To(HaveLen(50))
			Expect(result.Times).To(Equal([]float64(dynamo.Linspace(0, 400, 50))))
			Expect(result.Labels).To(Equal([]string{"polystyrene", "styrene", "benzene", "toluene"}))
		})

		It("starts from the initial state", func() {
			Expect(result.States[0]).To(Equal(x0))
		})

		It("depletes the reactant and accumulates products monotonically", func() {
			for i := 1; i < len(result.States); i++ {
				prev, cur := result.States[i-1], result.States[i]
				Expect(cur[0]).To(BeNumerically("<=", prev[0]+1e-7))
				for j := 1; j < len(cur); j++ {
					Expect(cur[j]).To(BeNumerically(">=", prev[j]-1e-7))
				}
			}
		})

		It("keeps every mass in [0, initial reactant]", func() {
			for _, s := range result.States {
				for _, v := range s {
					Expect(v).To(BeNumerically(">=", -1e-7))
					Expect(v).To(BeNumerically("<=", 10+1e-7))
				}
			}
		})

		It("conserves total mass", func() {
			for _, s := range result.States {
				Expect(s.Sum()).To(BeNumerically("~", 10, 1e-6))
			}
		})

		It("matches the closed-form solution", func() {
			total := model.DepletionConstant()
			for i, s := range result.States {
				t := result.Times[i]
				Expect(s[0]).To(BeNumerically("~", 10*math.Exp(-total*t), 1e-5))
				for j, sp := range model.Species()[1:] {
					k, _ := model.RateConstant(sp)
					want := 10 * k / total * (1 - math.Exp(-total*t))
					Expect(s[j+1]).To(BeNumerically("~", want, 1e-5))
				}
			}
		})

		It("records solver statistics", func() {
			Expect(result.Stats.Accepted).To(BeNumerically(">", 0))
			Expect(result.Stats.Evaluations).To(BeNumerically(">=", 6*result.Stats.Accepted))
		})
	})

	It("follows the independent decay law", func() {
		model := pyrocycleModel(kinetics.IndependentDecay)
		result, err := sim.New(model, integrators.NewRK45(), cfg).Run(ctx, x0, dynamo.Linspace(0, 400, 50))
		Expect(err).NotTo(HaveOccurred())

		kd := model.DepletionConstant()
		ks, _ := model.RateConstant(kinetics.Styrene)
		for i, s := range result.States {
			t := result.Times[i]
			Expect(s[0]).To(BeNumerically("~", 10*math.Exp(-kd*t), 1e-5))
			Expect(s[1]).To(BeNumerically("~", 10*ks/kd*(1-math.Exp(-kd*t)), 1e-4))
		}
	})

	It("leaves the state untouched when every rate is zero", func() {
		reactions := kinetics.DefaultReactions()
		for i := range reactions {
			reactions[i].Params.PreexponentialFactor = 0
		}
		cond, _ := kinetics.NewOperatingConditions(kinetics.PyrocycleTemperature)
		model, err := kinetics.NewModel(cond, reactions, kinetics.SpoutedBedDecay, kinetics.MassConservative)
		Expect(err).NotTo(HaveOccurred())

		result, err := sim.New(model, integrators.NewRK45(), cfg).Run(ctx, x0, dynamo.Linspace(0, 400, 50))
		Expect(err).NotTo(HaveOccurred())
		for _, s := range result.States {
			Expect(s).To(Equal(x0))
		}
	})

	It("does not depend on intermediate grid points", func() {
		model := pyrocycleModel(kinetics.MassConservative)

		coarse, err := sim.New(model, integrators.NewRK45(), cfg).Run(ctx, x0, dynamo.TimeGrid{0, 400})
		Expect(err).NotTo(HaveOccurred())
		fine, err := sim.New(model, integrators.NewRK45(), cfg).Run(ctx, x0, dynamo.TimeGrid{0, 100, 400})
		Expect(err).NotTo(HaveOccurred())

		Expect(fine.States).To(HaveLen(3))
		for i := range coarse.Final() {
			Expect(fine.Final()[i]).To(BeNumerically("~", coarse.Final()[i], 1e-5))
		}
	})

	It("treats the first grid time as the initial time", func() {
		sys := &decay{k: 0.1}
		result, err := sim.New(sys, integrators.NewRK45(), cfg).Run(ctx, dynamo.State{1}, dynamo.TimeGrid{10, 20})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Times).To(Equal([]float64{10, 20}))
		Expect(result.Final()[0]).To(BeNumerically("~", math.Exp(-1), 1e-7))
	})

	DescribeTable("rejects configurations before integrating",
		func(mutate func(*dynamo.Config), state dynamo.State, times dynamo.TimeGrid) {
			sys := &decay{k: 1}
			c := dynamo.DefaultConfig()
			if mutate != nil {
				mutate(&c)
			}

			result, err := sim.New(sys, integrators.NewRK45(), c).Run(ctx, state, times)
			Expect(err).To(MatchError(dynamo.ErrConfiguration))
			Expect(result).To(BeNil())
			Expect(sys.calls).To(Equal(0))

			var cerr *dynamo.ConfigurationError
			Expect(errors.As(err, &cerr)).To(BeTrue())
		},
		Entry("repeated time", nil, dynamo.State{1}, dynamo.TimeGrid{0, 100, 100}),
		Entry("decreasing time", nil, dynamo.State{1}, dynamo.TimeGrid{0, 200, 100}),
		Entry("negative start", nil, dynamo.State{1}, dynamo.TimeGrid{-1, 100}),
		Entry("empty grid", nil, dynamo.State{1}, dynamo.TimeGrid{}),
		Entry("wrong state length", nil, dynamo.State{1, 2}, dynamo.TimeGrid{0, 1}),
		Entry("negative mass", nil, dynamo.State{-1}, dynamo.TimeGrid{0, 1}),
		Entry("NaN mass", nil, dynamo.State{math.NaN()}, dynamo.TimeGrid{0, 1}),
		Entry("zero dt", func(c *dynamo.Config) { c.Dt = 0 }, dynamo.State{1}, dynamo.TimeGrid{0, 1}),
		Entry("zero tolerance", func(c *dynamo.Config) { c.Tolerance = dynamo.Tolerance{} }, dynamo.State{1}, dynamo.TimeGrid{0, 1}),
	)

	Describe("divergence", func() {
		It("stops at the last valid state when the derivative turns NaN", func() {
			sys := &decay{k: 0.1, poisonAfter: 5}
			result, err := sim.New(sys, integrators.NewRK45(), cfg).Run(ctx, dynamo.State{1}, dynamo.Linspace(0, 20, 21))

			Expect(err).To(MatchError(dynamo.ErrDivergence))
			Expect(err).To(MatchError(dynamo.ErrInvalidState))

			var derr *dynamo.DivergenceError
			Expect(errors.As(err, &derr)).To(BeTrue())
			Expect(derr.Time).To(Equal(5.0))
			Expect(derr.State.IsValid()).To(BeTrue())

			Expect(result).NotTo(BeNil())
			Expect(result.Times).To(Equal([]float64{0, 1, 2, 3, 4, 5}))
			for _, s := range result.States {
				Expect(s.IsValid()).To(BeTrue())
			}
		})

		It("fails when the adaptive step shrinks below the minimum", func() {
			c := cfg
			c.Dt, c.MaxDt, c.MinDt = 10, 10, 0.5
			_, err := sim.New(&decay{k: 50}, integrators.NewRK45(), c).Run(ctx, dynamo.State{1}, dynamo.TimeGrid{0, 100})

			Expect(err).To(MatchError(dynamo.ErrDivergence))
			Expect(err).To(MatchError(dynamo.ErrStepTooSmall))
		})

		It("fails when the step budget runs out", func() {
			c := cfg
			c.Dt, c.MaxDt, c.MaxSteps = 1, 1, 3
			result, err := sim.New(&decay{k: 0.01}, integrators.NewRK45(), c).Run(ctx, dynamo.State{1}, dynamo.TimeGrid{0, 100})

			Expect(err).To(MatchError(dynamo.ErrMaxSteps))
			Expect(result.States).To(HaveLen(1))
			Expect(result.Stats.Accepted).To(Equal(3))
		})
	})

	It("returns the partial result when cancelled", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		result, err := sim.New(&decay{k: 1}, integrators.NewRK45(), cfg).Run(cancelled, dynamo.State{1}, dynamo.TimeGrid{0, 1})
		Expect(err).To(MatchError(context.Canceled))
		Expect(result.States).To(HaveLen(1))
	})

	It("steps with a fixed dt when adaptivity is off", func() {
		c := cfg
		c.Adaptive = false
		c.Dt = 0.3

		result, err := sim.New(&decay{k: 0.1}, integrators.NewRK4(), c).Run(ctx, dynamo.State{1}, dynamo.TimeGrid{0, 1, 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Times).To(Equal([]float64{0, 1, 2}))
		Expect(result.Final()[0]).To(BeNumerically("~", math.Exp(-0.2), 1e-6))
		Expect(result.Stats.Rejected).To(Equal(0))
	})

	It("falls back to step doubling for fixed-step integrators", func() {
		result, err := sim.New(&decay{k: 0.1}, integrators.NewRK4(), cfg).Run(ctx, dynamo.State{1}, dynamo.TimeGrid{0, 30})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Final()[0]).To(BeNumerically("~", math.Exp(-3), 1e-6))
	})

	It("feeds metrics and observers every accepted step", func() {
		rec := &sim.Recorder{}
		metric := &countMetric{}

		d := sim.New(&decay{k: 0.1}, integrators.NewRK45(), cfg, sim.WithMetrics(metric))
		d.AddObserver(rec)
		result, err := d.Run(ctx, dynamo.State{1}, dynamo.TimeGrid{0, 50})
		Expect(err).NotTo(HaveOccurred())

		Expect(rec.Times[0]).To(Equal(0.0))
		Expect(rec.States).To(HaveLen(result.Stats.Accepted + 1))
		Expect(result.Metrics).To(HaveKeyWithValue("count", float64(result.Stats.Accepted+1)))
	})
})

type countMetric struct{ n int }

func (c *countMetric) Name() string                     { return "count" }
func (c *countMetric) Observe(x dynamo.State, t float64) { c.n++ }
func (c *countMetric) Value() float64                   { return float64(c.n) }
func (c *countMetric) Reset()                           { c.n = 0 }

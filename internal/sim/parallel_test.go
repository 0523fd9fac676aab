package sim_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pyrosim/internal/dynamo"
	"github.com/san-kum/pyrosim/internal/integrators"
	"github.com/san-kum/pyrosim/internal/kinetics"
	"github.com/san-kum/pyrosim/internal/sim"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var _ = Describe("Ensemble", func() {
	It("runs jobs concurrently and keeps their order", func() {
		base := pyrocycleModel(kinetics.MassConservative)
		hot, err := base.WithTemperature(773.15)
		Expect(err).NotTo(HaveOccurred())

		jobs := []sim.Job{
			{Name: "base", System: base, X0: dynamo.State{10, 0, 0, 0}, Times: dynamo.Linspace(0, 60, 7)},
			{Name: "broken", System: base, X0: dynamo.State{10, 0, 0, 0}, Times: dynamo.TimeGrid{0, 0}},
			{Name: "hot", System: hot, X0: dynamo.State{10, 0, 0, 0}, Times: dynamo.Linspace(0, 60, 7)},
		}

		ens := sim.NewEnsemble(func() dynamo.Integrator { return integrators.NewRK45() }, dynamo.DefaultConfig()).
			WithWorkers(2).
			WithMetrics(func() []dynamo.Metric { return []dynamo.Metric{&countMetric{}} })
		outcomes := ens.Run(context.Background(), jobs)

		Expect(outcomes).To(HaveLen(3))
		Expect(outcomes[0].Job.Name).To(Equal("base"))
		Expect(outcomes[0].Err).NotTo(HaveOccurred())
		Expect(outcomes[1].Err).To(MatchError(dynamo.ErrConfiguration))
		Expect(outcomes[2].Err).NotTo(HaveOccurred())

		Expect(outcomes[2].Result.Final()[0]).To(BeNumerically("<", outcomes[0].Result.Final()[0]))
		Expect(outcomes[0].Result.Metrics).To(HaveKey("count"))
		Expect(sim.FirstError(outcomes)).To(MatchError(dynamo.ErrConfiguration))
	})
})

var _ = Describe("Ensemble metrics", func() {
	It("drops metric options and gives each job its own metrics", func() {
		shared := &countMetric{}
		jobs := []sim.Job{
			{Name: "a", System: &decay{k: 0.1}, X0: dynamo.State{1}, Times: dynamo.TimeGrid{0, 10}},
			{Name: "b", System: &decay{k: 0.2}, X0: dynamo.State{1}, Times: dynamo.TimeGrid{0, 10}},
		}

		ens := sim.NewEnsemble(func() dynamo.Integrator { return integrators.NewRK45() }, dynamo.DefaultConfig(),
			sim.WithMetrics(shared)).
			WithMetrics(func() []dynamo.Metric { return []dynamo.Metric{&countMetric{}} })
		outcomes := ens.Run(context.Background(), jobs)

		Expect(shared.n).To(BeZero())
		for _, o := range outcomes {
			Expect(o.Err).NotTo(HaveOccurred())
			Expect(o.Result.Metrics).To(HaveKeyWithValue("count", float64(o.Result.Stats.Accepted+1)))
		}
	})
})

var _ = Describe("StepLogger", func() {
	It("logs every nth step with labelled fields", func() {
		core, logs := observer.New(zap.DebugLevel)
		sl := sim.NewStepLogger(zap.New(core), []string{"polystyrene"}, 2)

		for i := 0; i < 5; i++ {
			sl.OnStep(dynamo.State{float64(10 - i), 1}, float64(i))
		}

		Expect(logs.Len()).To(Equal(3))
		fields := logs.All()[1].ContextMap()
		Expect(fields).To(HaveKeyWithValue("polystyrene", 8.0))
		Expect(fields).To(HaveKeyWithValue("x1", 1.0))
		Expect(fields).To(HaveKeyWithValue("t", 2.0))
	})
})

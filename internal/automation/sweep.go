package automation

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/san-kum/pyrosim/internal/analysis"
	"github.com/san-kum/pyrosim/internal/config"
	"github.com/san-kum/pyrosim/internal/dynamo"
	"github.com/san-kum/pyrosim/internal/experiment"
	"github.com/san-kum/pyrosim/internal/kinetics"
	"github.com/san-kum/pyrosim/internal/sim"
	"go.uber.org/zap"
)

// TemperatureSweep reruns a configuration over evenly spaced temperatures.
type TemperatureSweep struct {
	Base     *config.Config
	Min      float64
	Max      float64
	NumSteps int
}

// SweepResult summarises one run of a sweep or trial.
type SweepResult struct {
	Temperature float64
	Final       dynamo.State
	Conversion  float64
	HalfLife    float64
	// HasHalfLife is false when the reactant never halved within the grid.
	HasHalfLife bool
	Err         error
}

func (s *TemperatureSweep) Temperatures() []float64 {
	if s.NumSteps <= 1 {
		return []float64{s.Min}
	}
	return dynamo.Linspace(s.Min, s.Max, s.NumSteps)
}

// RunSweep runs every temperature concurrently. Configuration errors fail
// the whole sweep; a run that diverges only marks its own result.
func RunSweep(ctx context.Context, sweep *TemperatureSweep, registry *experiment.Registry, logger *zap.Logger) ([]SweepResult, error) {
	temps := sweep.Temperatures()
	jobs := make([]sim.Job, 0, len(temps))
	var base *config.Setup

	for _, temp := range temps {
		cfg := sweep.Base.Clone()
		cfg.Temperature = temp
		setup, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("temperature %.2f K: %w", temp, err)
		}
		base = setup
		jobs = append(jobs, sim.Job{
			Name:   fmt.Sprintf("%.2fK", temp),
			System: setup.Model,
			X0:     setup.X0,
			Times:  setup.Times,
		})
	}

	outcomes, err := runJobs(ctx, base, jobs, registry, logger)
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(outcomes))
	for i, o := range outcomes {
		results[i] = summarize(temps[i], o)
	}
	return results, nil
}

// ActivationUncertainty perturbs every activation energy uniformly by up
// to ±Spread kJ/mol and reruns the base configuration.
type ActivationUncertainty struct {
	Base      *config.Config
	Spread    float64
	NumTrials int
	Seed      int64
}

func RunUncertainty(ctx context.Context, u *ActivationUncertainty, registry *experiment.Registry, logger *zap.Logger) ([]SweepResult, error) {
	rng := rand.New(rand.NewSource(u.Seed))

	names := make([]string, 0, len(u.Base.Reactions))
	for name := range u.Base.Reactions {
		names = append(names, name)
	}
	sort.Strings(names)

	jobs := make([]sim.Job, 0, u.NumTrials)
	var base *config.Setup
	for trial := 0; trial < u.NumTrials; trial++ {
		cfg := u.Base.Clone()
		for _, name := range names {
			p := cfg.Reactions[name]
			p.ActivationEnergy += (rng.Float64() - 0.5) * 2 * u.Spread
			cfg.Reactions[name] = p
		}
		cfg.Decay.ActivationEnergy += (rng.Float64() - 0.5) * 2 * u.Spread

		setup, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", trial, err)
		}
		base = setup
		jobs = append(jobs, sim.Job{
			Name:   fmt.Sprintf("trial-%d", trial),
			System: setup.Model,
			X0:     setup.X0,
			Times:  setup.Times,
		})
	}

	outcomes, err := runJobs(ctx, base, jobs, registry, logger)
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(outcomes))
	for i, o := range outcomes {
		results[i] = summarize(u.Base.Temperature, o)
	}
	return results, nil
}

func runJobs(ctx context.Context, setup *config.Setup, jobs []sim.Job, registry *experiment.Registry, logger *zap.Logger) ([]sim.Outcome, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory, err := registry.IntegratorFactory(setup.Integrator)
	if err != nil {
		return nil, err
	}

	logger.Info("running ensemble", zap.Int("jobs", len(jobs)), zap.String("integrator", setup.Integrator))
	ens := sim.NewEnsemble(factory, setup.Solver, sim.WithLogger(logger)).
		WithMetrics(registry.DefaultMetrics)
	return ens.Run(ctx, jobs), nil
}

func summarize(temp float64, o sim.Outcome) SweepResult {
	r := SweepResult{Temperature: temp, Err: o.Err}
	if m, ok := o.Job.System.(*kinetics.Model); ok {
		r.Temperature = m.Conditions().Temperature
	}
	if o.Result == nil {
		return r
	}
	r.Final = o.Result.Final()
	r.Conversion = o.Result.Metrics["conversion"]
	r.HalfLife, r.HasHalfLife = analysis.HalfLife(o.Result, 0)
	return r
}

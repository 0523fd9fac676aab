package sim

import (
	"context"
	"runtime"
	"sync"

	"github.com/san-kum/pyrosim/internal/dynamo"
)

// Job is one independent run of an Ensemble.
type Job struct {
	Name   string
	System dynamo.System
	X0     dynamo.State
	Times  dynamo.TimeGrid
}

type Outcome struct {
	Job    Job
	Result *dynamo.Result
	Err    error
}

// Ensemble runs many jobs concurrently. Integrators keep scratch buffers,
// so every job gets a fresh one from newIntegrator.
type Ensemble struct {
	newIntegrator func() dynamo.Integrator
	newMetrics    func() []dynamo.Metric
	cfg           dynamo.Config
	opts          []Option
	workers       int
}

// NewEnsemble builds an ensemble whose drivers share cfg and opts. Metrics
// keep per-run state, so metric options in opts are dropped; attach them
// through WithMetrics instead.
func NewEnsemble(newIntegrator func() dynamo.Integrator, cfg dynamo.Config, opts ...Option) *Ensemble {
	return &Ensemble{
		newIntegrator: newIntegrator,
		cfg:           cfg,
		opts:          opts,
		workers:       runtime.GOMAXPROCS(0),
	}
}

// WithMetrics sets a factory for the metrics attached to each job.
func (e *Ensemble) WithMetrics(fn func() []dynamo.Metric) *Ensemble {
	e.newMetrics = fn
	return e
}

// WithWorkers bounds the number of jobs running at once.
func (e *Ensemble) WithWorkers(n int) *Ensemble {
	if n > 0 {
		e.workers = n
	}
	return e
}

// Run executes every job and returns the outcomes in job order. A failing
// job does not stop the others.
func (e *Ensemble) Run(ctx context.Context, jobs []Job) []Outcome {
	outcomes := make([]Outcome, len(jobs))
	sem := make(chan struct{}, e.workers)

	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			job := jobs[idx]
			d := New(job.System, e.newIntegrator(), e.cfg, e.opts...)
			d.metrics = nil
			if e.newMetrics != nil {
				for _, m := range e.newMetrics() {
					d.AddMetric(m)
				}
			}

			res, err := d.Run(ctx, job.X0, job.Times)
			outcomes[idx] = Outcome{Job: job, Result: res, Err: err}
		}(i)
	}

	wg.Wait()
	return outcomes
}

// FirstError returns the error of the earliest failed job, if any.
func FirstError(outcomes []Outcome) error {
	for _, o := range outcomes {
		if o.Err != nil {
			return o.Err
		}
	}
	return nil
}

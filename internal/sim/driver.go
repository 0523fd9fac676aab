package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/pyrosim/internal/dynamo"
	"go.uber.org/zap"
)

// Driver integrates a system from an initial state and reports the state
// at each time of a grid. A Driver is not safe for concurrent use; build
// one per goroutine (see Ensemble).
type Driver struct {
	sys        dynamo.System
	integrator dynamo.Integrator
	cfg        dynamo.Config
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
	logger     *zap.Logger
}

type Option func(*Driver)

func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithMetrics(ms ...dynamo.Metric) Option {
	return func(d *Driver) { d.metrics = append(d.metrics, ms...) }
}

func New(sys dynamo.System, integrator dynamo.Integrator, cfg dynamo.Config, opts ...Option) *Driver {
	d := &Driver{
		sys:        sys,
		integrator: integrator,
		cfg:        cfg,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) AddMetric(m dynamo.Metric)     { d.metrics = append(d.metrics, m) }
func (d *Driver) AddObserver(o dynamo.Observer) { d.observers = append(d.observers, o) }
func (d *Driver) Config() dynamo.Config         { return d.cfg }

// Run integrates from x0, which is taken to be the state at times[0], and
// returns one state per grid time. On divergence or cancellation the
// states reached so far are returned together with the error.
func (d *Driver) Run(ctx context.Context, x0 dynamo.State, times dynamo.TimeGrid) (*dynamo.Result, error) {
	if err := d.validateConfig(); err != nil {
		return nil, err
	}
	if err := times.Validate(); err != nil {
		return nil, err
	}
	if err := d.validateInitial(x0); err != nil {
		return nil, err
	}

	sys := &countingSystem{System: d.sys}
	result := &dynamo.Result{
		States:  make([]dynamo.State, 0, len(times)),
		Times:   make([]float64, 0, len(times)),
		Metrics: make(map[string]float64),
	}
	if l, ok := d.sys.(dynamo.Labeled); ok {
		result.Labels = l.Labels()
	}

	for _, m := range d.metrics {
		m.Reset()
	}

	d.logger.Debug("run started",
		zap.Int("state_dim", d.sys.StateDim()),
		zap.Int("samples", len(times)),
		zap.Float64("t_start", times.Start()),
		zap.Float64("t_end", times.End()),
		zap.Bool("adaptive", d.cfg.Adaptive),
	)

	x := x0.Clone()
	t := times.Start()
	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)
	d.observe(x, t)

	err := d.integrate(ctx, sys, x, t, times, result)

	result.Stats.Evaluations = sys.evaluations
	for _, m := range d.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	if err != nil {
		d.logger.Warn("run stopped early",
			zap.Error(err),
			zap.Int("samples", len(result.States)),
			zap.Int("accepted", result.Stats.Accepted),
			zap.Int("rejected", result.Stats.Rejected),
		)
		return result, err
	}

	d.logger.Debug("run finished",
		zap.Int("accepted", result.Stats.Accepted),
		zap.Int("rejected", result.Stats.Rejected),
		zap.Int("evaluations", result.Stats.Evaluations),
	)
	return result, nil
}

func (d *Driver) integrate(ctx context.Context, sys *countingSystem, x dynamo.State, t float64, times dynamo.TimeGrid, result *dynamo.Result) error {
	dt := d.cfg.Dt
	if d.cfg.Adaptive && d.cfg.MaxDt > 0 {
		dt = math.Min(dt, d.cfg.MaxDt)
	}
	attempts := 0

	diverged := func(cause error) error {
		return &dynamo.DivergenceError{Step: result.Stats.Accepted, Time: t, State: x.Clone(), Wrapped: cause}
	}

	for _, target := range times[1:] {
		for t < target {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if d.cfg.MaxSteps > 0 && attempts >= d.cfg.MaxSteps {
				return diverged(fmt.Errorf("%w (%d attempts)", dynamo.ErrMaxSteps, d.cfg.MaxSteps))
			}
			attempts++
			sys.invalid = false

			h := dt
			clamped := false
			if t+h >= target {
				h = target - t
				clamped = true
			}

			var next dynamo.State
			if d.cfg.Adaptive {
				var suggested float64
				var err error
				next, suggested, err = d.trialStep(sys, x, t, h)
				if errors.Is(err, dynamo.ErrStepRejected) {
					result.Stats.Rejected++
					dt = suggested
					if dt < d.cfg.MinDt {
						return diverged(dynamo.ErrStepTooSmall)
					}
					continue
				}
				if err != nil {
					return diverged(err)
				}
				if clamped {
					dt = math.Max(dt, suggested)
				} else {
					dt = suggested
				}
				if d.cfg.MaxDt > 0 {
					dt = math.Min(dt, d.cfg.MaxDt)
				}
			} else {
				next = d.integrator.Step(sys, x, t, h)
			}

			if sys.invalid || (d.cfg.ValidateState && !next.IsValid()) {
				return diverged(dynamo.ErrInvalidState)
			}

			if clamped {
				t = target
			} else {
				t += h
			}
			x = next
			result.Stats.Accepted++
			result.Stats.LastDt = h
			d.observe(x, t)
		}

		result.States = append(result.States, x.Clone())
		result.Times = append(result.Times, target)
	}
	return nil
}

// trialStep advances by h with error control. Integrators without an
// embedded error estimate fall back to step doubling.
func (d *Driver) trialStep(sys dynamo.System, x dynamo.State, t, h float64) (dynamo.State, float64, error) {
	if adaptive, ok := d.integrator.(dynamo.AdaptiveIntegrator); ok {
		return adaptive.StepAdaptive(sys, x, t, h, d.cfg.Tolerance)
	}

	x1 := d.integrator.Step(sys, x, t, h)
	xHalf := d.integrator.Step(sys, x, t, h/2)
	x2 := d.integrator.Step(sys, xHalf, t+h/2, h/2)
	if !x2.IsValid() {
		return x2, h, dynamo.ErrInvalidState
	}

	ratio := 0.0
	for i := range x2 {
		scale := d.cfg.Tolerance.Abs + d.cfg.Tolerance.Rel*math.Max(math.Abs(x[i]), math.Abs(x2[i]))
		ratio = math.Max(ratio, math.Abs(x1[i]-x2[i])/scale)
	}

	switch {
	case math.IsNaN(ratio) || ratio > 1:
		return nil, h / 2, dynamo.ErrStepRejected
	case ratio < 0.1:
		return x2, h * 2, nil
	default:
		return x2, h, nil
	}
}

func (d *Driver) observe(x dynamo.State, t float64) {
	for _, m := range d.metrics {
		m.Observe(x, t)
	}
	for _, o := range d.observers {
		o.OnStep(x, t)
	}
}

func (d *Driver) validateConfig() error {
	cfg := d.cfg
	if !(cfg.Dt > 0) || math.IsInf(cfg.Dt, 0) {
		return dynamo.NewConfigurationError("solver.dt", cfg.Dt, "must be positive")
	}
	if !cfg.Adaptive {
		return nil
	}
	if !(cfg.Tolerance.Abs > 0) && !(cfg.Tolerance.Rel > 0) {
		return dynamo.NewConfigurationError("solver.abs_tol", cfg.Tolerance.Abs, "tolerance must be positive for adaptive stepping")
	}
	if cfg.Tolerance.Abs < 0 || cfg.Tolerance.Rel < 0 {
		return dynamo.NewConfigurationError("solver.rel_tol", cfg.Tolerance.Rel, "tolerances must not be negative")
	}
	if cfg.MinDt < 0 {
		return dynamo.NewConfigurationError("solver.min_dt", cfg.MinDt, "must not be negative")
	}
	if cfg.MaxDt > 0 && cfg.MaxDt < cfg.MinDt {
		return dynamo.NewConfigurationError("solver.max_dt", cfg.MaxDt, "must be at least min_dt")
	}
	if cfg.MaxSteps < 0 {
		return dynamo.NewConfigurationError("solver.max_steps", cfg.MaxSteps, "must not be negative")
	}
	return nil
}

func (d *Driver) validateInitial(x0 dynamo.State) error {
	if len(x0) != d.sys.StateDim() {
		return dynamo.NewConfigurationError("initial_masses", len(x0),
			fmt.Sprintf("expected %d entries", d.sys.StateDim()))
	}
	for i, v := range x0 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return dynamo.NewConfigurationError(fmt.Sprintf("initial_masses[%d]", i), v, "must be finite")
		}
		if v < 0 {
			return dynamo.NewConfigurationError(fmt.Sprintf("initial_masses[%d]", i), v, "must not be negative")
		}
	}
	return nil
}

// countingSystem counts derivative evaluations and remembers whether any
// of them was non-finite.
type countingSystem struct {
	dynamo.System
	evaluations int
	invalid     bool
}

func (c *countingSystem) Derive(x dynamo.State, t float64) dynamo.State {
	c.evaluations++
	dx := c.System.Derive(x, t)
	if !dx.IsValid() {
		c.invalid = true
	}
	return dx
}

package experiment

import (
	"context"

	"github.com/san-kum/pyrosim/internal/config"
	"github.com/san-kum/pyrosim/internal/dynamo"
	"github.com/san-kum/pyrosim/internal/sim"
	"go.uber.org/zap"
)

// Experiment is one configured run: a validated setup and the driver that
// integrates it.
type Experiment struct {
	cfg    *config.Config
	setup  *config.Setup
	driver *sim.Driver
}

func New(cfg *config.Config, reg *Registry, logger *zap.Logger) (*Experiment, error) {
	setup, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	integ, err := reg.GetIntegrator(setup.Integrator)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	driver := sim.New(setup.Model, integ, setup.Solver,
		sim.WithLogger(logger.With(zap.String("config", setup.Name))),
		sim.WithMetrics(reg.DefaultMetrics()...),
	)
	return &Experiment{cfg: cfg, setup: setup, driver: driver}, nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	return e.driver.Run(ctx, e.setup.X0, e.setup.Times)
}

func (e *Experiment) Config() *config.Config { return e.cfg }
func (e *Experiment) Setup() *config.Setup   { return e.setup }

// Driver returns the underlying driver for adding observers.
func (e *Experiment) Driver() *sim.Driver {
	return e.driver
}

// Package dynamo provides core simulation primitives for ODE systems.
//
// The package defines the fundamental interfaces and types for numerical
// simulation of ordinary differential equations (ODEs):
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator], [AdaptiveIntegrator]: numerical steppers
//   - [TimeGrid]: sample times a run reports at
//   - [Result]: sampled trajectory plus solver statistics
//
// # Errors
//
// Inputs that can never be integrated fail with a [ConfigurationError]
// (errors.Is(err, ErrConfiguration)). Failures during stepping surface as
// a [DivergenceError] carrying the last valid time and state
// (errors.Is(err, ErrDivergence) plus the specific cause).
//
// # Example
//
//	model, _ := kinetics.NewModel(cond, reactions, decay, kinetics.MassConservative)
//	d := sim.New(model, integrators.NewRK45(), dynamo.DefaultConfig())
//	result, err := d.Run(ctx, x0, dynamo.Linspace(0, 400, 50))
package dynamo

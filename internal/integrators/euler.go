package integrators

import "github.com/san-kum/pyrosim/internal/dynamo"

// Euler is the explicit first-order method. It is the baseline in the bench
// and compare studies; its global error falls linearly with the step, so
// reactant depletion over a long residence time needs a small dt.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

// Step returns x + dt*f(x, t). Under mass-conservative kinetics the update
// preserves the total mass up to round-off.
func (e *Euler) Step(sys dynamo.System, x dynamo.State, t float64, dt float64) dynamo.State {
	rates := sys.Derive(x, t)
	next := make(dynamo.State, len(x))
	for i, m := range x {
		next[i] = m + dt*rates[i]
	}
	return next
}

// Package analysis derives figures of merit from a pyrolysis trajectory.
//
//   - [HalfLife], [TimeToConversion]: reactant depletion times, linearly
//     interpolated between reported samples
//   - [Yields], [Selectivities]: product distribution at the end of a run
//   - [ClosedForm]: the analytic solution of the first-order network, used
//     to check the integrator
//
// # Example
//
//	t, ok := analysis.HalfLife(result, 0)
//	if ok {
//	    fmt.Printf("half of the polystyrene is gone after %.1f s\n", t)
//	}
package analysis

package dynamo

import "math"

// TimeGrid is the ordered set of times at which a run reports state.
// It does not constrain the solver's internal step size.
type TimeGrid []float64

// Linspace returns num evenly spaced times over [start, stop], both ends
// included. num <= 0 yields 50 points.
func Linspace(start, stop float64, num int) TimeGrid {
	if num <= 0 {
		num = 50
	}
	if num == 1 {
		return TimeGrid{start}
	}
	g := make(TimeGrid, num)
	step := (stop - start) / float64(num-1)
	for i := range g {
		g[i] = start + float64(i)*step
	}
	g[num-1] = stop
	return g
}

// Validate checks that the grid is non-empty, finite, starts at or after
// zero and is strictly increasing.
func (g TimeGrid) Validate() error {
	if len(g) == 0 {
		return NewConfigurationError("time_grid", nil, "must contain at least one time")
	}
	for i, t := range g {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return NewConfigurationError("time_grid", t, "times must be finite")
		}
		if i == 0 {
			if t < 0 {
				return NewConfigurationError("time_grid", t, "must start at or after 0")
			}
			continue
		}
		if t <= g[i-1] {
			return NewConfigurationError("time_grid", t, "must be strictly increasing")
		}
	}
	return nil
}

func (g TimeGrid) Start() float64 { return g[0] }
func (g TimeGrid) End() float64   { return g[len(g)-1] }

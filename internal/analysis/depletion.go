package analysis

import (
	"github.com/san-kum/pyrosim/internal/dynamo"
)

// HalfLife returns the first time component idx falls to half its
// initial value. ok is false when that never happens within the run.
func HalfLife(result *dynamo.Result, idx int) (float64, bool) {
	col := result.Column(idx)
	if len(col) == 0 {
		return 0, false
	}
	return crossing(result.Times, col, col[0]/2)
}

// TimeToConversion returns the first time the reactant (index 0) has
// been consumed by the given fraction, in [0, 1].
func TimeToConversion(result *dynamo.Result, fraction float64) (float64, bool) {
	if fraction < 0 || fraction > 1 {
		return 0, false
	}
	col := result.Column(0)
	if len(col) == 0 {
		return 0, false
	}
	return crossing(result.Times, col, col[0]*(1-fraction))
}

// crossing finds where a non-increasing series first reaches level.
func crossing(times, values []float64, level float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	if values[0] <= level {
		return times[0], true
	}
	for i := 1; i < len(values); i++ {
		if values[i] > level {
			continue
		}
		v0, v1 := values[i-1], values[i]
		t0, t1 := times[i-1], times[i]
		if v0 == v1 {
			return t1, true
		}
		return t0 + (v0-level)*(t1-t0)/(v0-v1), true
	}
	return 0, false
}

// Yields returns each product's final mass as a fraction of the initial
// reactant mass, in state order (index 0 is the reactant's remaining
// fraction).
func Yields(result *dynamo.Result) []float64 {
	if len(result.States) == 0 {
		return nil
	}
	initial := result.States[0][0]
	final := result.Final()
	out := make([]float64, len(final))
	if initial == 0 {
		return out
	}
	for i, v := range final {
		out[i] = v / initial
	}
	return out
}

// Selectivities returns each product's share of the total product mass
// at the end of the run. The reactant entry is always zero.
func Selectivities(result *dynamo.Result) []float64 {
	final := result.Final()
	if final == nil {
		return nil
	}
	out := make([]float64, len(final))
	total := 0.0
	for _, v := range final[1:] {
		total += v
	}
	if total == 0 {
		return out
	}
	for i := 1; i < len(final); i++ {
		out[i] = final[i] / total
	}
	return out
}

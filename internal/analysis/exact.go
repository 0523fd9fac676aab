package analysis

import (
	"math"

	"github.com/san-kum/pyrosim/internal/dynamo"
	"github.com/san-kum/pyrosim/internal/kinetics"
)

// ClosedForm evaluates the analytic solution of the model from the
// initial state x0 at every time of the grid, with x0 taken at times[0].
//
// The reactant decays as m0 exp(-K t), K being the depletion constant of
// the model's policy, and each product gains m0 k_i / K (1 - exp(-K t)).
func ClosedForm(model *kinetics.Model, x0 dynamo.State, times dynamo.TimeGrid) []dynamo.State {
	species := model.Species()
	k := make([]float64, len(species))
	for i, s := range species {
		k[i], _ = model.RateConstant(s)
	}
	total := k[0]
	m0 := x0[0]

	out := make([]dynamo.State, len(times))
	for n, t := range times {
		elapsed := t - times[0]
		decay := math.Exp(-total * elapsed)

		s := make(dynamo.State, len(species))
		s[0] = m0 * decay
		for i := 1; i < len(species); i++ {
			if total == 0 {
				s[i] = x0[i]
				continue
			}
			s[i] = x0[i] + m0*k[i]/total*(1-decay)
		}
		out[n] = s
	}
	return out
}

// MaxDeviation is the largest absolute difference between the reported
// states and a reference trajectory of the same shape.
func MaxDeviation(result *dynamo.Result, reference []dynamo.State) float64 {
	worst := 0.0
	for i, s := range result.States {
		if i >= len(reference) {
			break
		}
		for j, v := range s {
			if j < len(reference[i]) {
				worst = math.Max(worst, math.Abs(v-reference[i][j]))
			}
		}
	}
	return worst
}

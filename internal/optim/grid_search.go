package optim

import (
	"context"
	"errors"
	"math"

	"github.com/san-kum/pyrosim/internal/dynamo"
	"github.com/san-kum/pyrosim/internal/experiment"
)

var ErrNoCandidate = errors.New("optim: no parameter combination produced a result")

// Objective scores a run; lower is better.
type Objective func(result *dynamo.Result) float64

// MetricObjective minimises a named run metric.
func MetricObjective(name string) Objective {
	return func(result *dynamo.Result) float64 {
		v, ok := result.Metrics[name]
		if !ok {
			return math.Inf(1)
		}
		return v
	}
}

// TargetConversion scores the distance of the final reactant conversion
// from target.
func TargetConversion(target float64) Objective {
	return func(result *dynamo.Result) float64 {
		final := result.Final()
		if final == nil || result.States[0][0] == 0 {
			return math.Inf(1)
		}
		conversion := 1 - final[0]/result.States[0][0]
		return math.Abs(conversion - target)
	}
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search evaluates every combination of parameter values and returns the
// best one. Combinations whose experiment cannot be built or run are
// skipped.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	objective Objective,
) (map[string]float64, float64, error) {

	best := math.Inf(1)
	var bestParams map[string]float64

	g.searchRecursive(ctx, 0, make(map[string]float64), buildExperiment, objective, &best, &bestParams)

	if err := ctx.Err(); err != nil {
		return bestParams, best, err
	}
	if bestParams == nil {
		return nil, best, ErrNoCandidate
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	objective Objective,
	best *float64,
	bestParams *map[string]float64,
) {
	if ctx.Err() != nil {
		return
	}
	if depth == len(g.paramNames) {
		exp, err := buildExperiment(current)
		if err != nil {
			return
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return
		}

		val := objective(result)
		if val < *best {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.searchRecursive(ctx, depth+1, newParams, buildExperiment, objective, best, bestParams)
	}
}

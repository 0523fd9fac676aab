package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/pyrosim/internal/dynamo"
	"github.com/san-kum/pyrosim/internal/integrators"
)

type linearDecay struct {
	k       float64
	nanFrom float64
}

func (l linearDecay) Derive(x dynamo.State, t float64) dynamo.State {
	if l.nanFrom > 0 && t > l.nanFrom {
		return dynamo.State{math.NaN()}
	}
	return dynamo.State{-l.k * x[0]}
}

func (l linearDecay) StateDim() int { return 1 }

func TestIntegrate_ClearsInvalidFlagEachAttempt(t *testing.T) {
	d := New(linearDecay{k: 0.1}, integrators.NewRK45(), dynamo.DefaultConfig())
	sys := &countingSystem{System: d.sys, invalid: true}
	result := &dynamo.Result{}

	err := d.integrate(context.Background(), sys, dynamo.State{1}, 0, dynamo.TimeGrid{0, 10}, result)
	if err != nil {
		t.Fatalf("expected a stale invalid flag to be cleared, got %v", err)
	}
	if sys.evaluations == 0 {
		t.Error("expected derivative evaluations to be counted")
	}
	if len(result.States) != 1 {
		t.Fatalf("expected one reported state, got %d", len(result.States))
	}
	if got, want := result.States[0][0], math.Exp(-1); math.Abs(got-want) > 1e-6 {
		t.Errorf("expected %g, got %g", want, got)
	}
}

func TestIntegrate_FlagsNonFiniteDerivative(t *testing.T) {
	cfg := dynamo.DefaultConfig()
	cfg.Adaptive = false
	cfg.Dt = 1
	d := New(linearDecay{k: 0.1, nanFrom: 1.5}, integrators.NewEuler(), cfg)
	sys := &countingSystem{System: d.sys}
	result := &dynamo.Result{}

	err := d.integrate(context.Background(), sys, dynamo.State{1}, 0, dynamo.TimeGrid{0, 5}, result)
	if !errors.Is(err, dynamo.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if !sys.invalid {
		t.Error("expected the counting wrapper to record the non-finite derivative")
	}

	var derr *dynamo.DivergenceError
	if !errors.As(err, &derr) {
		t.Fatalf("expected a DivergenceError, got %T", err)
	}
	if derr.Time != 2 {
		t.Errorf("expected last valid time 2, got %g", derr.Time)
	}
}

package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/pyrosim/internal/dynamo"
)

// firstOrderDecay is dm/dt = -k m, split into a reactant and a product so
// the total stays constant.
type firstOrderDecay struct{ k float64 }

func (f *firstOrderDecay) Derive(x dynamo.State, t float64) dynamo.State {
	r := f.k * x[0]
	return dynamo.State{-r, r}
}

func (f *firstOrderDecay) StateDim() int { return 2 }

func TestRK4Accuracy(t *testing.T) {
	sys := &firstOrderDecay{k: 0.05}
	integ := NewRK4()

	x := dynamo.State{10.0, 0.0}
	dt := 0.5
	steps := 200

	for i := 0; i < steps; i++ {
		x = integ.Step(sys, x, float64(i)*dt, dt)
	}

	tEnd := float64(steps) * dt
	expected := 10.0 * math.Exp(-sys.k*tEnd)

	if math.Abs(x[0]-expected) > 1e-6 {
		t.Errorf("reactant error too large: got %.9f, expected %.9f", x[0], expected)
	}
	if math.Abs(x[0]+x[1]-10.0) > 1e-9 {
		t.Errorf("total mass drifted: %.12f", x[0]+x[1])
	}
}

func TestEulerFirstOrder(t *testing.T) {
	sys := &firstOrderDecay{k: 0.05}
	integ := NewEuler()

	x := dynamo.State{10.0, 0.0}
	x = integ.Step(sys, x, 0, 1.0)

	if math.Abs(x[0]-9.5) > 1e-12 || math.Abs(x[1]-0.5) > 1e-12 {
		t.Errorf("expected [9.5 0.5], got %v", x)
	}
}

func TestRK4VsEuler(t *testing.T) {
	sys := &firstOrderDecay{k: 0.1}
	exact := 10.0 * math.Exp(-0.1*20)

	x4 := dynamo.State{10, 0}
	xe := dynamo.State{10, 0}
	rk4 := NewRK4()
	euler := NewEuler()
	for i := 0; i < 20; i++ {
		x4 = rk4.Step(sys, x4, float64(i), 1)
		xe = euler.Step(sys, xe, float64(i), 1)
	}

	if math.Abs(x4[0]-exact) >= math.Abs(xe[0]-exact) {
		t.Errorf("expected RK4 (%v) closer to %v than Euler (%v)", x4[0], exact, xe[0])
	}
}

// branching splits first-order depletion of x[0] across the remaining
// entries in proportion to weights.
type branching struct {
	k       float64
	weights []float64
}

func (b *branching) Derive(x dynamo.State, t float64) dynamo.State {
	dx := make(dynamo.State, len(b.weights)+1)
	r := b.k * x[0]
	dx[0] = -r
	for i, w := range b.weights {
		dx[i+1] = w * r
	}
	return dx
}

func (b *branching) StateDim() int { return len(b.weights) + 1 }

func TestRK4ReusedAcrossSpeciesCounts(t *testing.T) {
	integ := NewRK4()
	small := &firstOrderDecay{k: 0.1}
	wide := &branching{k: 0.1, weights: []float64{0.5, 0.3, 0.2}}

	xs := integ.Step(small, dynamo.State{10, 0}, 0, 1)
	xw := integ.Step(wide, dynamo.State{10, 0, 0, 0}, 0, 1)
	xs2 := integ.Step(small, dynamo.State{10, 0}, 0, 1)

	if len(xw) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(xw))
	}
	if math.Abs(xw[0]-xs[0]) > 1e-12 {
		t.Errorf("reactant differs across species counts: %v vs %v", xw[0], xs[0])
	}
	if math.Abs(xs2[0]-xs[0]) > 1e-12 || math.Abs(xs2[1]-xs[1]) > 1e-12 {
		t.Errorf("expected identical steps after resize, got %v and %v", xs, xs2)
	}
}

func TestEulerConservesMass(t *testing.T) {
	sys := &branching{k: 0.02, weights: []float64{0.6, 0.25, 0.15}}
	integ := NewEuler()

	x := dynamo.State{5, 0, 0, 0}
	for i := 0; i < 500; i++ {
		x = integ.Step(sys, x, float64(i), 0.5)
	}

	total := 0.0
	for _, m := range x {
		total += m
	}
	if math.Abs(total-5) > 1e-9 {
		t.Errorf("total mass drifted: %.12f", total)
	}
	if x[1] <= x[2] || x[2] <= x[3] {
		t.Errorf("expected products ordered by branch weight, got %v", x[1:])
	}
}

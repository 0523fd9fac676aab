package dynamo

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Sum returns the total of all entries, i.e. the total tracked mass.
func (s State) Sum() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v
	}
	return sum
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is an autonomous or time dependent ODE dX/dt = f(X, t).
// Derive must be free of side effects: integrators call it on trial
// states that never become part of the reported trajectory.
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Labeled systems name each state component.
type Labeled interface {
	Labels() []string
}

type Integrator interface {
	Step(sys System, x State, t float64, dt float64) State
}

// AdaptiveIntegrator takes a trial step and reports the error-scaled
// outcome. When the step is rejected it returns ErrStepRejected together
// with the suggested smaller dt; the returned state must then be ignored.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(sys System, x State, t, dt float64, tol Tolerance) (State, float64, error)
}

type Tolerance struct {
	Abs float64
	Rel float64
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, t float64)
}

type Config struct {
	Dt            float64
	Tolerance     Tolerance
	MaxDt         float64
	MinDt         float64
	MaxSteps      int
	Adaptive      bool
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            1.0,
		Tolerance:     Tolerance{Abs: 1e-9, Rel: 1e-7},
		MaxDt:         50.0,
		MinDt:         1e-10,
		MaxSteps:      500000,
		Adaptive:      true,
		ValidateState: true,
	}
}

// Stats counts solver work for one run.
type Stats struct {
	Accepted    int     `json:"accepted"`
	Rejected    int     `json:"rejected"`
	Evaluations int     `json:"evaluations"`
	LastDt      float64 `json:"last_dt"`
}

// Result holds the state sampled at each requested time, in order.
type Result struct {
	States  []State
	Times   []float64
	Labels  []string
	Metrics map[string]float64
	Stats   Stats
}

// Final returns the last reported state, or nil for an empty result.
func (r *Result) Final() State {
	if r == nil || len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}

// Column extracts component idx across all reported states.
func (r *Result) Column(idx int) []float64 {
	col := make([]float64, len(r.States))
	for i, s := range r.States {
		if idx < len(s) {
			col[i] = s[idx]
		}
	}
	return col
}

package kinetics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/pyrosim/internal/dynamo"
)

// DepletionPolicy selects how fast the reactant is consumed.
type DepletionPolicy int

const (
	// MassConservative consumes the reactant at the sum of all active
	// product formation rates.
	MassConservative DepletionPolicy = iota
	// IndependentDecay consumes the reactant at the rate of its own decay
	// reaction, unrelated to product formation. Total mass is not conserved.
	IndependentDecay
)

func (p DepletionPolicy) String() string {
	switch p {
	case MassConservative:
		return "mass_conservative"
	case IndependentDecay:
		return "independent_decay"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

func ParsePolicy(name string) (DepletionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mass_conservative", "conservative":
		return MassConservative, nil
	case "independent_decay", "independent":
		return IndependentDecay, nil
	}
	return 0, dynamo.NewConfigurationError("policy", name, "must be one of: mass_conservative independent_decay")
}

// Reaction is the pathway Polystyrene -> Product. Inactive reactions keep
// their parameters but take no part in the derivative or the state layout.
type Reaction struct {
	Product Species        `yaml:"product"`
	Params  RateParameters `yaml:"params"`
	Active  bool           `yaml:"active"`
}

// Model is the pyrolysis reaction network at fixed operating conditions.
// It is immutable after construction and safe for concurrent use.
type Model struct {
	conditions OperatingConditions
	reactions  []Reaction
	active     []Reaction
	decay      RateParameters
	policy     DepletionPolicy
}

// NewModel validates the configuration and builds a model. decay is only
// consulted under IndependentDecay.
func NewModel(conditions OperatingConditions, reactions []Reaction, decay RateParameters, policy DepletionPolicy) (*Model, error) {
	if err := conditions.Validate(); err != nil {
		return nil, err
	}
	if policy != MassConservative && policy != IndependentDecay {
		return nil, dynamo.NewConfigurationError("policy", policy.String(), "unknown depletion policy")
	}

	sorted := make([]Reaction, len(reactions))
	copy(sorted, reactions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Product < sorted[j].Product })

	seen := make(map[Species]bool, len(sorted))
	active := make([]Reaction, 0, len(sorted))
	for _, r := range sorted {
		if !r.Product.IsProduct() {
			return nil, dynamo.NewConfigurationError("reactions", r.Product.String(), "product must be a pyrolysis product")
		}
		if seen[r.Product] {
			return nil, dynamo.NewConfigurationError("reactions", r.Product.String(), "duplicate reaction")
		}
		seen[r.Product] = true

		if err := r.Params.Validate("reactions." + r.Product.String()); err != nil {
			return nil, err
		}
		if r.Active {
			active = append(active, r)
		}
	}

	if len(active) == 0 {
		return nil, dynamo.NewConfigurationError("active_reactions", nil, "at least one reaction must be active")
	}

	if policy == IndependentDecay {
		if err := decay.Validate("decay"); err != nil {
			return nil, err
		}
	}

	return &Model{
		conditions: conditions,
		reactions:  sorted,
		active:     active,
		decay:      decay,
		policy:     policy,
	}, nil
}

func (m *Model) Conditions() OperatingConditions { return m.conditions }
func (m *Model) Policy() DepletionPolicy         { return m.policy }
func (m *Model) Decay() RateParameters           { return m.decay }

// Reactions returns every configured reaction, active or not, ordered by
// product.
func (m *Model) Reactions() []Reaction {
	out := make([]Reaction, len(m.reactions))
	copy(out, m.reactions)
	return out
}

// Species returns the state layout: the reactant followed by the active
// products.
func (m *Model) Species() []Species {
	out := make([]Species, 0, len(m.active)+1)
	out = append(out, Polystyrene)
	for _, r := range m.active {
		out = append(out, r.Product)
	}
	return out
}

func (m *Model) Labels() []string {
	sp := m.Species()
	labels := make([]string, len(sp))
	for i, s := range sp {
		labels[i] = s.String()
	}
	return labels
}

func (m *Model) StateDim() int {
	return len(m.active) + 1
}

// Index returns the state position of s, or -1 when s is not tracked.
func (m *Model) Index(s Species) int {
	for i, sp := range m.Species() {
		if sp == s {
			return i
		}
	}
	return -1
}

// RateConstant returns k for the reaction forming s, active or not. The
// reactant maps to its effective depletion constant.
func (m *Model) RateConstant(s Species) (float64, bool) {
	if s == Polystyrene {
		return m.DepletionConstant(), true
	}
	for _, r := range m.reactions {
		if r.Product == s {
			return r.Params.RateConstant(m.conditions), true
		}
	}
	return 0, false
}

// DepletionConstant is the effective first-order constant of reactant
// loss under the model's policy.
func (m *Model) DepletionConstant() float64 {
	if m.policy == IndependentDecay {
		return m.decay.RateConstant(m.conditions)
	}
	k := 0.0
	for _, r := range m.active {
		k += r.Params.RateConstant(m.conditions)
	}
	return k
}

// Derivative maps the state to the mass generation rate of every tracked
// species, in state order. state must have StateDim entries; any other
// length yields a vector of NaN, which the driver reports as an invalid
// state.
func (m *Model) Derivative(state dynamo.State) dynamo.State {
	dx := make(dynamo.State, len(m.active)+1)
	if len(state) != len(dx) {
		for i := range dx {
			dx[i] = math.NaN()
		}
		return dx
	}
	reactant := state[0]

	consumed := 0.0
	for i, r := range m.active {
		rate := ReactionRate(r.Params, m.conditions, reactant)
		dx[i+1] = rate
		consumed += rate
	}

	if m.policy == IndependentDecay {
		dx[0] = -ReactionRate(m.decay, m.conditions, reactant)
	} else {
		dx[0] = -consumed
	}
	return dx
}

// Derive implements dynamo.System; the network is autonomous.
func (m *Model) Derive(x dynamo.State, t float64) dynamo.State {
	return m.Derivative(x)
}

// WithTemperature returns a copy of the model at another temperature.
func (m *Model) WithTemperature(temperature float64) (*Model, error) {
	c := m.conditions
	c.Temperature = temperature
	return NewModel(c, m.reactions, m.decay, m.policy)
}

// WithPolicy returns a copy of the model under another depletion policy.
func (m *Model) WithPolicy(policy DepletionPolicy) (*Model, error) {
	return NewModel(m.conditions, m.reactions, m.decay, policy)
}

// Rate is the rate constant of one configured reaction and its rate at a
// given reactant mass.
type Rate struct {
	Product  Species
	Active   bool
	Constant float64 // [s-1]
	Rate     float64
}

// Rates evaluates every configured reaction, active or not, at the given
// reactant mass.
func (m *Model) Rates(reactantMass float64) []Rate {
	out := make([]Rate, 0, len(m.reactions))
	for _, r := range m.reactions {
		out = append(out, Rate{
			Product:  r.Product,
			Active:   r.Active,
			Constant: r.Params.RateConstant(m.conditions),
			Rate:     ReactionRate(r.Params, m.conditions, reactantMass),
		})
	}
	return out
}

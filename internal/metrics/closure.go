package metrics

import (
	"math"

	"github.com/san-kum/pyrosim/internal/dynamo"
)

// MassClosure tracks the largest relative drift of total mass from the
// first observed state. It stays near zero under a mass conservative
// depletion policy.
type MassClosure struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewMassClosure() *MassClosure {
	return &MassClosure{name: "mass_closure"}
}

func (m *MassClosure) Name() string { return m.name }

func (m *MassClosure) Observe(x dynamo.State, t float64) {
	total := x.Sum()
	if m.samples == 0 {
		m.initial = total
	}
	m.samples++

	if m.initial != 0 {
		drift := math.Abs(total-m.initial) / math.Abs(m.initial)
		m.maxDrift = math.Max(m.maxDrift, drift)
	}
}

func (m *MassClosure) Value() float64 {
	return m.maxDrift
}

func (m *MassClosure) Reset() {
	m.initial = 0
	m.maxDrift = 0
	m.samples = 0
}

package metrics

import "github.com/san-kum/pyrosim/internal/dynamo"

// Conversion is the fraction of the initial reactant (state index 0)
// consumed by the last observation.
type Conversion struct {
	name    string
	initial float64
	current float64
	samples int
}

func NewConversion() *Conversion {
	return &Conversion{name: "conversion"}
}

func (c *Conversion) Name() string { return c.name }

func (c *Conversion) Observe(x dynamo.State, t float64) {
	if len(x) == 0 {
		return
	}
	if c.samples == 0 {
		c.initial = x[0]
	}
	c.current = x[0]
	c.samples++
}

func (c *Conversion) Value() float64 {
	if c.samples == 0 || c.initial == 0 {
		return 0
	}
	return 1 - c.current/c.initial
}

func (c *Conversion) Reset() {
	c.initial = 0
	c.current = 0
	c.samples = 0
}

// Defaults returns a fresh set of the standard run metrics.
func Defaults() []dynamo.Metric {
	return []dynamo.Metric{
		NewMassClosure(),
		NewPositivity(1e-6),
		NewConversion(),
	}
}

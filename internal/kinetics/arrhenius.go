package kinetics

import (
	"math"

	"github.com/san-kum/pyrosim/internal/validation"
)

// GasConstant is the universal gas constant in kJ K-1 mol-1.
const GasConstant = 8.314e-3

// RateParameters are the Arrhenius constants of one first-order reaction.
type RateParameters struct {
	// PreexponentialFactor k0 [s-1]. Zero switches the pathway off.
	PreexponentialFactor float64 `yaml:"preexponential_factor" toml:"preexponential_factor" json:"preexponential_factor" validate:"gte=0"`
	// ActivationEnergy Ea [kJ mol-1].
	ActivationEnergy float64 `yaml:"activation_energy" toml:"activation_energy" json:"activation_energy" validate:"gt=0"`
}

// OperatingConditions are shared by every rate evaluation and held fixed
// for a whole run (isothermal reactor).
type OperatingConditions struct {
	Temperature float64 `yaml:"temperature_k" json:"temperature_k" validate:"gt=0"` // [K]
	GasConstant float64 `yaml:"gas_constant" json:"gas_constant" validate:"gt=0"`   // [kJ K-1 mol-1]
}

// NewOperatingConditions validates temperature and pairs it with the
// standard gas constant.
func NewOperatingConditions(temperature float64) (OperatingConditions, error) {
	c := OperatingConditions{Temperature: temperature, GasConstant: GasConstant}
	if err := c.Validate(); err != nil {
		return OperatingConditions{}, err
	}
	return c, nil
}

func (c OperatingConditions) Validate() error {
	return validation.Struct("", c)
}

func (p RateParameters) Validate(prefix string) error {
	return validation.Struct(prefix, p)
}

// RateConstant evaluates k = k0 * exp(-Ea / (R T)) [s-1].
func (p RateParameters) RateConstant(c OperatingConditions) float64 {
	return p.PreexponentialFactor * math.Exp(-1*p.ActivationEnergy/(c.GasConstant*c.Temperature))
}

// ReactionRate is the first-order Arrhenius rate k * m for the given
// reactant mass. It does not validate its inputs: a zero temperature
// yields NaN or Inf, and a negative mass yields a negative rate.
func ReactionRate(p RateParameters, c OperatingConditions, reactantMass float64) float64 {
	return p.RateConstant(c) * reactantMass
}

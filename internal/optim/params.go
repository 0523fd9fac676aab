package optim

import (
	"strings"

	"github.com/san-kum/pyrosim/internal/config"
	"github.com/san-kum/pyrosim/internal/dynamo"
	"github.com/san-kum/pyrosim/internal/kinetics"
)

// Apply sets tunable configuration values by key. Recognised keys are
// temperature_k, decay.<field> and <species>.<field>, where field is
// preexponential_factor or activation_energy.
func Apply(cfg *config.Config, params map[string]float64) error {
	for key, val := range params {
		if key == "temperature_k" {
			cfg.Temperature = val
			continue
		}

		target, field, ok := strings.Cut(key, ".")
		if !ok {
			return dynamo.NewConfigurationError(key, val, "unknown parameter")
		}

		var p kinetics.RateParameters
		if target == "decay" {
			p = cfg.Decay
		} else {
			s, err := kinetics.ParseSpecies(target)
			if err != nil || !s.IsProduct() {
				return dynamo.NewConfigurationError(key, val, "unknown reaction")
			}
			target = s.String()
			p = cfg.Reactions[target]
		}

		switch field {
		case "preexponential_factor":
			p.PreexponentialFactor = val
		case "activation_energy":
			p.ActivationEnergy = val
		default:
			return dynamo.NewConfigurationError(key, val, "unknown parameter")
		}

		if target == "decay" {
			cfg.Decay = p
		} else {
			cfg.Reactions[target] = p
		}
	}
	return nil
}

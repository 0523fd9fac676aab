package kinetics

import (
	"fmt"
	"strings"
)

// Species identifies a tracked chemical. Polystyrene is the only reactant.
type Species int

const (
	Polystyrene Species = iota
	Styrene
	Benzene
	Toluene
	Methane
)

var speciesNames = [...]string{
	Polystyrene: "polystyrene",
	Styrene:     "styrene",
	Benzene:     "benzene",
	Toluene:     "toluene",
	Methane:     "methane",
}

// Molar masses in g/mol. Polystyrene uses the weight-average molecular
// weight of the feed.
var molarMasses = [...]float64{
	Polystyrene: 311600,
	Styrene:     104.15,
	Benzene:     78.11,
	Toluene:     92.14,
	Methane:     16.04,
}

func (s Species) String() string {
	if !s.Valid() {
		return fmt.Sprintf("species(%d)", int(s))
	}
	return speciesNames[s]
}

func (s Species) Valid() bool {
	return s >= Polystyrene && int(s) < len(speciesNames)
}

// IsProduct reports whether s is formed by a pyrolysis reaction.
func (s Species) IsProduct() bool {
	return s.Valid() && s != Polystyrene
}

// MolarMass returns the molar mass in g/mol.
func (s Species) MolarMass() float64 {
	if !s.Valid() {
		return 0
	}
	return molarMasses[s]
}

// Products lists every product species in state order.
func Products() []Species {
	return []Species{Styrene, Benzene, Toluene, Methane}
}

func ParseSpecies(name string) (Species, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range speciesNames {
		if s == n {
			return Species(i), nil
		}
	}
	if n == "ps" {
		return Polystyrene, nil
	}
	return 0, fmt.Errorf("unknown species: %q", name)
}

func (s Species) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Species) UnmarshalText(text []byte) error {
	v, err := ParseSpecies(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

package kinetics

// PyrocycleTemperature is the operating temperature of our reactor [K].
const PyrocycleTemperature = 723.15

// Pyrolysis kinetics of polystyrene from published reactor studies.
var (
	// Overall polystyrene decay measured in a spouted bed reactor.
	SpoutedBedDecay = RateParameters{PreexponentialFactor: 1.27e7, ActivationEnergy: 123}

	// Overall polystyrene decay measured in a microreactor.
	MicroreactorDecay = RateParameters{PreexponentialFactor: 1.82e4, ActivationEnergy: 83}

	StyreneFormation = RateParameters{PreexponentialFactor: 5.08e7, ActivationEnergy: 123}
	BenzeneFormation = RateParameters{PreexponentialFactor: 1.47e7, ActivationEnergy: 123}
	TolueneFormation = RateParameters{PreexponentialFactor: 1.19e7, ActivationEnergy: 122}
	MethaneFormation = RateParameters{PreexponentialFactor: 2.1e7, ActivationEnergy: 126}
)

// DefaultReactions returns the product pathways with methane formation
// configured but switched off.
func DefaultReactions() []Reaction {
	return []Reaction{
		{Product: Styrene, Params: StyreneFormation, Active: true},
		{Product: Benzene, Params: BenzeneFormation, Active: true},
		{Product: Toluene, Params: TolueneFormation, Active: true},
		{Product: Methane, Params: MethaneFormation, Active: false},
	}
}

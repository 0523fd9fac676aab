package config

import (
	"sort"

	"github.com/san-kum/pyrosim/internal/kinetics"
)

// Presets are named configurations. reactor-v0.2 reproduces the v0.2
// spouted bed script with its independent decay law; mass-balance is the
// same kinetics with reactant loss tied to product formation.
var Presets = map[string]*Config{
	"mass-balance": DefaultConfig(),

	"reactor-v0.2": with(func(c *Config) {
		c.Name = "reactor-v0.2"
		c.Policy = kinetics.IndependentDecay.String()
		c.Decay = kinetics.SpoutedBedDecay
	}),

	"microreactor": with(func(c *Config) {
		c.Name = "microreactor"
		c.Policy = kinetics.IndependentDecay.String()
		c.Decay = kinetics.MicroreactorDecay
	}),

	"methane-enabled": with(func(c *Config) {
		c.Name = "methane-enabled"
		c.ActiveReactions = append(c.ActiveReactions, kinetics.Methane.String())
		c.InitialMasses = []float64{DefaultReactant, 0, 0, 0, 0}
	}),

	// Temperature bounds of the source spouted bed reactor; slower
	// kinetics need a longer horizon.
	"spouted-bed-low": with(func(c *Config) {
		c.Name = "spouted-bed-low"
		c.Temperature = 613
		c.Grid.Stop = 3000
	}),
	"spouted-bed-high": with(func(c *Config) {
		c.Name = "spouted-bed-high"
		c.Temperature = 663
		c.Grid.Stop = 600
	}),
}

func with(fn func(*Config)) *Config {
	c := DefaultConfig()
	fn(c)
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

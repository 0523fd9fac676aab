package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/san-kum/pyrosim/internal/dynamo"
	"github.com/san-kum/pyrosim/internal/kinetics"
	"github.com/san-kum/pyrosim/internal/validation"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHorizon    = 400.0
	DefaultGridPoints = 50
	DefaultReactant   = 10.0
)

type Config struct {
	Name            string                             `yaml:"name" toml:"name"`
	Temperature     float64                            `yaml:"temperature_k" toml:"temperature_k"`
	GasConstant     float64                            `yaml:"gas_constant" toml:"gas_constant"`
	Policy          string                             `yaml:"policy" toml:"policy"`
	Decay           kinetics.RateParameters            `yaml:"decay" toml:"decay"`
	Reactions       map[string]kinetics.RateParameters `yaml:"reactions" toml:"reactions"`
	ActiveReactions []string                           `yaml:"active_reactions" toml:"active_reactions"`
	InitialMasses   []float64                          `yaml:"initial_masses" toml:"initial_masses"`
	TimeGrid        []float64                          `yaml:"time_grid,omitempty" toml:"time_grid,omitempty"`
	Grid            GridConfig                         `yaml:"grid" toml:"grid"`
	Solver          SolverConfig                       `yaml:"solver" toml:"solver"`
}

// GridConfig describes an evenly spaced time grid. It is ignored when an
// explicit time_grid is given.
type GridConfig struct {
	Start float64 `yaml:"start" toml:"start" validate:"gte=0"`
	Stop  float64 `yaml:"stop" toml:"stop" validate:"gtfield=Start"`
	Num   int     `yaml:"num" toml:"num" validate:"gte=0"`
}

type SolverConfig struct {
	Integrator string  `yaml:"integrator" toml:"integrator" validate:"oneof=euler rk4 rk45"`
	Adaptive   bool    `yaml:"adaptive" toml:"adaptive"`
	Dt         float64 `yaml:"dt" toml:"dt" validate:"gt=0"`
	AbsTol     float64 `yaml:"abs_tol" toml:"abs_tol" validate:"gte=0"`
	RelTol     float64 `yaml:"rel_tol" toml:"rel_tol" validate:"gte=0"`
	MinDt      float64 `yaml:"min_dt" toml:"min_dt" validate:"gte=0"`
	MaxDt      float64 `yaml:"max_dt" toml:"max_dt" validate:"gte=0"`
	MaxSteps   int     `yaml:"max_steps" toml:"max_steps" validate:"gte=0"`
}

// Setup is everything a run needs, built from a validated Config.
type Setup struct {
	Name       string
	Model      *kinetics.Model
	X0         dynamo.State
	Times      dynamo.TimeGrid
	Integrator string
	Solver     dynamo.Config
}

func DefaultConfig() *Config {
	d := dynamo.DefaultConfig()
	reactions := make(map[string]kinetics.RateParameters)
	active := make([]string, 0)
	for _, r := range kinetics.DefaultReactions() {
		reactions[r.Product.String()] = r.Params
		if r.Active {
			active = append(active, r.Product.String())
		}
	}

	return &Config{
		Name:            "mass-balance",
		Temperature:     kinetics.PyrocycleTemperature,
		GasConstant:     kinetics.GasConstant,
		Policy:          kinetics.MassConservative.String(),
		Decay:           kinetics.SpoutedBedDecay,
		Reactions:       reactions,
		ActiveReactions: active,
		InitialMasses:   []float64{DefaultReactant, 0, 0, 0},
		Grid:            GridConfig{Start: 0, Stop: DefaultHorizon, Num: DefaultGridPoints},
		Solver: SolverConfig{
			Integrator: "rk45",
			Adaptive:   d.Adaptive,
			Dt:         d.Dt,
			AbsTol:     d.Tolerance.Abs,
			RelTol:     d.Tolerance.Rel,
			MinDt:      d.MinDt,
			MaxDt:      d.MaxDt,
			MaxSteps:   d.MaxSteps,
		},
	}
}

// Load reads a YAML file, or TOML when the extension is .toml, on top of
// the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isTOML(path) {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if isTOML(path) {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Reactions = make(map[string]kinetics.RateParameters, len(c.Reactions))
	for k, v := range c.Reactions {
		out.Reactions[k] = v
	}
	out.ActiveReactions = append([]string(nil), c.ActiveReactions...)
	out.InitialMasses = append([]float64(nil), c.InitialMasses...)
	out.TimeGrid = append([]float64(nil), c.TimeGrid...)
	return &out
}

// Times returns the explicit time grid, or the evenly spaced one.
func (c *Config) Times() dynamo.TimeGrid {
	if len(c.TimeGrid) > 0 {
		return dynamo.TimeGrid(append([]float64(nil), c.TimeGrid...))
	}
	return dynamo.Linspace(c.Grid.Start, c.Grid.Stop, c.Grid.Num)
}

func (c *Config) SolverConfig() dynamo.Config {
	return dynamo.Config{
		Dt:            c.Solver.Dt,
		Tolerance:     dynamo.Tolerance{Abs: c.Solver.AbsTol, Rel: c.Solver.RelTol},
		MaxDt:         c.Solver.MaxDt,
		MinDt:         c.Solver.MinDt,
		MaxSteps:      c.Solver.MaxSteps,
		Adaptive:      c.Solver.Adaptive,
		ValidateState: true,
	}
}

// Build validates the configuration and assembles the model, initial
// state, time grid and solver settings. No integration happens here.
func (c *Config) Build() (*Setup, error) {
	policy, err := kinetics.ParsePolicy(c.Policy)
	if err != nil {
		return nil, err
	}

	reactions, err := c.reactions()
	if err != nil {
		return nil, err
	}

	cond := kinetics.OperatingConditions{Temperature: c.Temperature, GasConstant: c.GasConstant}
	model, err := kinetics.NewModel(cond, reactions, c.Decay, policy)
	if err != nil {
		return nil, err
	}

	if len(c.InitialMasses) != model.StateDim() {
		return nil, dynamo.NewConfigurationError("initial_masses", len(c.InitialMasses),
			fmt.Sprintf("expected %d entries (%s)", model.StateDim(), strings.Join(model.Labels(), ", ")))
	}

	if len(c.TimeGrid) == 0 {
		if err := validation.Struct("grid", c.Grid); err != nil {
			return nil, err
		}
	}
	times := c.Times()
	if err := times.Validate(); err != nil {
		return nil, err
	}

	if err := validation.Struct("solver", c.Solver); err != nil {
		return nil, err
	}

	return &Setup{
		Name:       c.Name,
		Model:      model,
		X0:         dynamo.State(append([]float64(nil), c.InitialMasses...)),
		Times:      times,
		Integrator: c.Solver.Integrator,
		Solver:     c.SolverConfig(),
	}, nil
}

func (c *Config) reactions() ([]kinetics.Reaction, error) {
	active := make(map[kinetics.Species]bool, len(c.ActiveReactions))
	for _, name := range c.ActiveReactions {
		s, err := kinetics.ParseSpecies(name)
		if err != nil {
			return nil, dynamo.NewConfigurationError("active_reactions", name, "unknown species")
		}
		if _, ok := c.lookup(s); !ok {
			return nil, dynamo.NewConfigurationError("active_reactions", name, "no reaction parameters configured")
		}
		active[s] = true
	}

	names := make([]string, 0, len(c.Reactions))
	for name := range c.Reactions {
		names = append(names, name)
	}
	sort.Strings(names)

	reactions := make([]kinetics.Reaction, 0, len(names))
	for _, name := range names {
		s, err := kinetics.ParseSpecies(name)
		if err != nil {
			return nil, dynamo.NewConfigurationError("reactions", name, "unknown species")
		}
		reactions = append(reactions, kinetics.Reaction{
			Product: s,
			Params:  c.Reactions[name],
			Active:  active[s],
		})
	}
	return reactions, nil
}

func (c *Config) lookup(s kinetics.Species) (kinetics.RateParameters, bool) {
	for name, p := range c.Reactions {
		if got, err := kinetics.ParseSpecies(name); err == nil && got == s {
			return p, true
		}
	}
	return kinetics.RateParameters{}, false
}

package automation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/san-kum/pyrosim/internal/config"
	"github.com/san-kum/pyrosim/internal/dynamo"
	"github.com/san-kum/pyrosim/internal/experiment"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted sequence of runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`

	dir string
}

// ScenarioStep starts from a preset or a config file and applies the
// listed overrides. Zero values leave the base untouched.
type ScenarioStep struct {
	Preset        string    `yaml:"preset"`
	Config        string    `yaml:"config"`
	Temperature   float64   `yaml:"temperature_k"`
	Policy        string    `yaml:"policy"`
	Integrator    string    `yaml:"integrator"`
	Horizon       float64   `yaml:"horizon"`
	Points        int       `yaml:"points"`
	Active        []string  `yaml:"active_reactions"`
	InitialMasses []float64 `yaml:"initial_masses"`
	SaveAs        string    `yaml:"save_as"`
}

type StepResult struct {
	Name   string
	Config *config.Config
	Result *dynamo.Result
}

// LoadScenario loads a scenario from a YAML file. Config paths in steps
// are relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	scenario.dir = filepath.Dir(path)
	return &scenario, nil
}

// Resolve builds the configuration for one step.
func (s *Scenario) Resolve(step ScenarioStep) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case step.Config != "":
		path := step.Config
		if !filepath.IsAbs(path) && s.dir != "" {
			path = filepath.Join(s.dir, path)
		}
		c, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	case step.Preset != "":
		cfg = config.GetPreset(step.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", step.Preset)
		}
	default:
		cfg = config.DefaultConfig()
	}

	if step.Temperature != 0 {
		cfg.Temperature = step.Temperature
	}
	if step.Policy != "" {
		cfg.Policy = step.Policy
	}
	if step.Integrator != "" {
		cfg.Solver.Integrator = step.Integrator
	}
	if step.Horizon != 0 {
		cfg.TimeGrid = nil
		cfg.Grid.Stop = step.Horizon
	}
	if step.Points != 0 {
		cfg.Grid.Num = step.Points
	}
	if len(step.Active) > 0 {
		cfg.ActiveReactions = append([]string(nil), step.Active...)
	}
	if len(step.InitialMasses) > 0 {
		cfg.InitialMasses = append([]float64(nil), step.InitialMasses...)
	}
	if step.SaveAs != "" {
		cfg.Name = step.SaveAs
	}
	return cfg, nil
}

// RunScenario executes all steps in order. On failure the results of the
// completed steps are returned with the error.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, logger *zap.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := scenario.Resolve(step)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		logger.Info("running scenario step",
			zap.String("scenario", scenario.Name),
			zap.Int("step", i+1),
			zap.Int("steps", len(scenario.Steps)),
			zap.String("config", cfg.Name),
		)

		exp, err := experiment.New(cfg, registry, logger)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		results = append(results, StepResult{Name: cfg.Name, Config: cfg, Result: result})
	}

	return results, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/san-kum/pyrosim/internal/config"
	"github.com/san-kum/pyrosim/internal/dynamo"
	"github.com/san-kum/pyrosim/internal/experiment"
	"github.com/san-kum/pyrosim/internal/kinetics"
	"github.com/san-kum/pyrosim/internal/report"
	"github.com/san-kum/pyrosim/internal/sim"
	"github.com/san-kum/pyrosim/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	dataDir  string
	logLevel string
	logger   *zap.Logger

	configFile  string
	preset      string
	temperature float64
	policy      string
	integrator  string
	horizon     float64
	points      int
	reactant    float64
	methane     bool
	dt          float64
	absTol      float64
	relTol      float64
	logEvery    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "pyrosim",
		Short:         "polystyrene pyrolysis kinetics simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(logLevel)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pyrosim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a pyrolysis simulation and store it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addModelFlags(runCmd)
	runCmd.Flags().IntVar(&logEvery, "log-every", 100, "log every nth accepted step at debug level")

	ratesCmd := &cobra.Command{
		Use:   "rates",
		Short: "print rate constants and initial rates",
		Args:  cobra.NoArgs,
		RunE:  printRates,
	}
	addModelFlags(ratesCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTEMP\tPOLICY\tHORIZON\tACTIVE")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%.2fK\t%s\t%gs\t%v\n", name, p.Temperature, p.Policy, p.Grid.Stop, p.ActiveReactions)
			}
			return w.Flush()
		},
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a configuration file (yaml or toml)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
	addModelFlags(initCmd)

	rootCmd.AddCommand(runCmd, ratesCmd, presetsCmd, initCmd)
	rootCmd.AddCommand(runCommands()...)
	rootCmd.AddCommand(studyCommands()...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}

func addModelFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml or toml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&temperature, "temperature", d.Temperature, "reactor temperature (K)")
	cmd.Flags().StringVar(&policy, "policy", d.Policy, "depletion policy (mass_conservative, independent_decay)")
	cmd.Flags().StringVar(&integrator, "integrator", d.Solver.Integrator, "integrator")
	cmd.Flags().Float64Var(&horizon, "time", d.Grid.Stop, "simulated duration (s)")
	cmd.Flags().IntVar(&points, "points", d.Grid.Num, "number of reported samples")
	cmd.Flags().Float64Var(&reactant, "mass", d.InitialMasses[0], "initial polystyrene mass (kg)")
	cmd.Flags().BoolVar(&methane, "methane", false, "enable the methane reaction")
	cmd.Flags().Float64Var(&dt, "dt", d.Solver.Dt, "initial or fixed timestep (s)")
	cmd.Flags().Float64Var(&absTol, "atol", d.Solver.AbsTol, "absolute tolerance")
	cmd.Flags().Float64Var(&relTol, "rtol", d.Solver.RelTol, "relative tolerance")
}

// resolveConfig layers defaults, then a preset or config file, then any
// flags set on the command line.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	flags := cmd.Flags()
	if flags.Changed("temperature") {
		cfg.Temperature = temperature
	}
	if flags.Changed("policy") {
		cfg.Policy = policy
	}
	if flags.Changed("integrator") {
		cfg.Solver.Integrator = integrator
	}
	if flags.Changed("time") {
		cfg.TimeGrid = nil
		cfg.Grid.Stop = horizon
	}
	if flags.Changed("points") {
		cfg.TimeGrid = nil
		cfg.Grid.Num = points
	}
	if flags.Changed("dt") {
		cfg.Solver.Dt = dt
	}
	if flags.Changed("atol") {
		cfg.Solver.AbsTol = absTol
	}
	if flags.Changed("rtol") {
		cfg.Solver.RelTol = relTol
	}
	if methane && !slices.Contains(cfg.ActiveReactions, kinetics.Methane.String()) {
		cfg.ActiveReactions = append(cfg.ActiveReactions, kinetics.Methane.String())
		cfg.InitialMasses = append(cfg.InitialMasses, 0)
	}
	if flags.Changed("mass") {
		if len(cfg.InitialMasses) == 0 {
			cfg.InitialMasses = []float64{0}
		}
		cfg.InitialMasses[0] = reactant
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	exp, err := experiment.New(cfg, registry, logger)
	if err != nil {
		return err
	}
	setup := exp.Setup()
	exp.Driver().AddObserver(sim.NewStepLogger(logger, setup.Model.Labels(), logEvery))

	logger.Info("running simulation",
		zap.String("config", cfg.Name),
		zap.Float64("temperature_k", setup.Model.Conditions().Temperature),
		zap.Stringer("policy", setup.Model.Policy()),
		zap.String("integrator", setup.Integrator),
	)
	start := time.Now()

	result, runErr := exp.Run(cmd.Context())
	if result == nil {
		return runErr
	}
	elapsed := time.Since(start)

	meta := storage.RunMetadata{
		Name:        cfg.Name,
		Temperature: setup.Model.Conditions().Temperature,
		Policy:      setup.Model.Policy().String(),
		Integrator:  setup.Integrator,
	}
	if runErr != nil {
		meta.Error = runErr.Error()
	}
	runID, err := st.Save(meta, result)
	if err != nil {
		return errors.Join(runErr, err)
	}

	summary, err := report.New(cfg.Name, setup.Model, result)
	if err == nil {
		fmt.Println(summary.Render())
	}
	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d accepted, %d rejected, %d evaluations\n",
		result.Stats.Accepted, result.Stats.Rejected, result.Stats.Evaluations)

	return runErr
}

func printRates(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	setup, err := cfg.Build()
	if err != nil {
		return err
	}
	model := setup.Model

	fmt.Printf("temperature: %.2f K\n", model.Conditions().Temperature)
	fmt.Printf("policy: %s\n", model.Policy())
	fmt.Printf("reactant mass: %g kg\n\n", setup.X0[0])

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tACTIVE\tK (1/s)\tRATE (kg/s)\tHALF-LIFE (s)")
	for _, r := range model.Rates(setup.X0[0]) {
		fmt.Fprintf(w, "%s\t%t\t%.6g\t%.6g\t%s\n",
			r.Product, r.Active, r.Constant, r.Rate, halfLife(r.Constant))
	}
	k := model.DepletionConstant()
	fmt.Fprintf(w, "%s\t%t\t%.6g\t%.6g\t%s\n",
		kinetics.Polystyrene, true, k, -k*setup.X0[0], halfLife(k))
	return w.Flush()
}

func halfLife(k float64) string {
	if k <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.6g", math.Ln2/k)
}

// finalRow formats a state for tabular output.
func finalRow(x dynamo.State) string {
	s := ""
	for i, v := range x {
		if i > 0 {
			s += "\t"
		}
		s += fmt.Sprintf("%.6g", v)
	}
	return s
}

package main

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/san-kum/pyrosim/internal/analysis"
	"github.com/san-kum/pyrosim/internal/automation"
	"github.com/san-kum/pyrosim/internal/dynamo"
	"github.com/san-kum/pyrosim/internal/experiment"
	"github.com/san-kum/pyrosim/internal/optim"
	"github.com/san-kum/pyrosim/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	sweepMin    float64
	sweepMax    float64
	sweepSteps  int
	spread      float64
	trials      int
	seed        int64
	tuneParams  []string
	tuneTarget  float64
	tuneMetric  string
	saveResults bool
)

func studyCommands() []*cobra.Command {
	compareCmd := &cobra.Command{
		Use:   "compare [integrator1] [integrator2] ...",
		Short: "compare integrators against the closed-form solution",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareIntegrators,
	}
	addModelFlags(compareCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "rerun a configuration over a temperature range",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addModelFlags(sweepCmd)
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 613.15, "lowest temperature (K)")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 773.15, "highest temperature (K)")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 9, "number of temperatures")

	uncertaintyCmd := &cobra.Command{
		Use:   "uncertainty",
		Short: "perturb activation energies and rerun",
		Args:  cobra.NoArgs,
		RunE:  runUncertainty,
	}
	addModelFlags(uncertaintyCmd)
	uncertaintyCmd.Flags().Float64Var(&spread, "spread", 2, "maximum activation energy perturbation (kJ/mol)")
	uncertaintyCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	uncertaintyCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of simulations",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&saveResults, "save", true, "store every step as a run")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search over model parameters",
		Long: `grid search over model parameters.

Each --param takes key=min:max:n, where key is temperature_k,
decay.<field> or <species>.<field> and field is preexponential_factor
or activation_energy.`,
		Args: cobra.NoArgs,
		RunE: tuneParameters,
	}
	addModelFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneParams, "param", nil, "parameter range key=min:max:n (repeatable)")
	tuneCmd.Flags().Float64Var(&tuneTarget, "conversion", 0.99, "target reactant conversion at the end of the run")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "", "minimise this metric instead of the conversion error")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark integrators and tolerances",
		Args:  cobra.NoArgs,
		RunE:  benchIntegrators,
	}
	addModelFlags(benchCmd)

	return []*cobra.Command{compareCmd, sweepCmd, uncertaintyCmd, scenarioCmd, tuneCmd, benchCmd}
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	registry := experiment.NewRegistry()

	fmt.Printf("comparing integrators on %s (%.2f K)\n\n", base.Name, base.Temperature)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tACCEPTED\tREJECTED\tEVALS\tTIME\tMAX ERROR\tCLOSURE")

	for _, name := range args {
		cfg := base.Clone()
		cfg.Solver.Integrator = name

		exp, err := experiment.New(cfg, registry, logger)
		if err != nil {
			return err
		}
		start := time.Now()
		result, err := exp.Run(cmd.Context())
		elapsed := time.Since(start)
		if err != nil {
			fmt.Fprintf(w, "%s\tfailed: %v\n", name, err)
			continue
		}

		setup := exp.Setup()
		exact := analysis.ClosedForm(setup.Model, setup.X0, setup.Times)
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%v\t%.3e\t%.3e\n",
			name,
			result.Stats.Accepted,
			result.Stats.Rejected,
			result.Stats.Evaluations,
			elapsed.Round(time.Microsecond),
			analysis.MaxDeviation(result, exact),
			result.Metrics["mass_closure"],
		)
	}
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	sweep := &automation.TemperatureSweep{
		Base:     base,
		Min:      sweepMin,
		Max:      sweepMax,
		NumSteps: sweepSteps,
	}
	results, err := automation.RunSweep(cmd.Context(), sweep, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}
	return printSweep(results)
}

func runUncertainty(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	u := &automation.ActivationUncertainty{
		Base:      base,
		Spread:    spread,
		NumTrials: trials,
		Seed:      seed,
	}
	results, err := automation.RunUncertainty(cmd.Context(), u, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}
	if err := printSweep(results); err != nil {
		return err
	}

	var conv []float64
	for _, r := range results {
		if r.Err == nil {
			conv = append(conv, r.Conversion)
		}
	}
	if len(conv) == 0 {
		return fmt.Errorf("every trial failed")
	}
	sort.Float64s(conv)
	mean := 0.0
	for _, c := range conv {
		mean += c
	}
	mean /= float64(len(conv))
	fmt.Printf("\nconversion over %d trials (seed %d): mean %.4f, min %.4f, max %.4f\n",
		len(conv), seed, mean, conv[0], conv[len(conv)-1])
	return nil
}

func printSweep(results []automation.SweepResult) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TEMP\tCONVERSION\tHALF-LIFE\tFINAL")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%.2fK\tfailed: %v\n", r.Temperature, r.Err)
			continue
		}
		hl := "-"
		if r.HasHalfLife {
			hl = fmt.Sprintf("%.4gs", r.HalfLife)
		}
		fmt.Fprintf(w, "%.2fK\t%.4f\t%s\t%s\n", r.Temperature, r.Conversion, hl, finalRow(r.Final))
	}
	return w.Flush()
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("scenario: %s\n", scenario.Name)
	if scenario.Description != "" {
		fmt.Printf("%s\n", scenario.Description)
	}
	fmt.Println()

	results, runErr := automation.RunScenario(cmd.Context(), scenario, experiment.NewRegistry(), logger)

	st := storage.New(dataDir)
	if saveResults {
		if err := st.Init(); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tCONFIG\tTEMP\tCONVERSION\tRUN")
	for i, r := range results {
		runID := "-"
		if saveResults {
			id, err := st.Save(storage.RunMetadata{
				Name:        r.Name,
				Temperature: r.Config.Temperature,
				Policy:      r.Config.Policy,
				Integrator:  r.Config.Solver.Integrator,
			}, r.Result)
			if err != nil {
				logger.Warn("could not store scenario step", zap.Int("step", i+1), zap.Error(err))
			} else {
				runID = id[:8]
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%.2fK\t%.4f\t%s\n",
			i+1, r.Name, r.Config.Temperature, r.Result.Metrics["conversion"], runID)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func tuneParameters(cmd *cobra.Command, args []string) error {
	if len(tuneParams) == 0 {
		return fmt.Errorf("at least one --param is required")
	}
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(tuneParams))
	ranges := make([][]float64, 0, len(tuneParams))
	for _, p := range tuneParams {
		name, values, err := parseRange(p)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	objective := optim.TargetConversion(tuneTarget)
	if tuneMetric != "" {
		objective = optim.MetricObjective(tuneMetric)
	}

	registry := experiment.NewRegistry()
	quiet := zap.NewNop()
	build := func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := base.Clone()
		if err := optim.Apply(cfg, params); err != nil {
			return nil, err
		}
		return experiment.New(cfg, registry, quiet)
	}

	search := optim.NewGridSearch(names, ranges)
	best, score, err := search.Search(cmd.Context(), build, objective)
	if err != nil {
		return err
	}

	fmt.Printf("best score: %.6g\n", score)
	for _, name := range names {
		fmt.Printf("  %s = %.6g\n", name, best[name])
	}
	return nil
}

// parseRange reads key=min:max:n into evenly spaced values.
func parseRange(s string) (string, []float64, error) {
	key, bounds, ok := strings.Cut(s, "=")
	if !ok {
		return "", nil, fmt.Errorf("invalid --param %q: want key=min:max:n", s)
	}
	parts := strings.Split(bounds, ":")
	if len(parts) != 3 {
		return "", nil, fmt.Errorf("invalid --param %q: want key=min:max:n", s)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return "", nil, fmt.Errorf("invalid --param %q: %w", s, err)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "", nil, fmt.Errorf("invalid --param %q: %w", s, err)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 1 {
		return "", nil, fmt.Errorf("invalid --param %q: n must be a positive integer", s)
	}
	return key, dynamo.Linspace(lo, hi, n), nil
}

func benchIntegrators(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	registry := experiment.NewRegistry()

	type variant struct {
		integrator string
		adaptive   bool
		dt         float64
		rtol       float64
	}
	variants := []variant{
		{"euler", false, 0.1, 0},
		{"euler", false, 0.01, 0},
		{"rk4", false, 1, 0},
		{"rk4", false, 0.1, 0},
		{"rk45", true, 1, 1e-4},
		{"rk45", true, 1, 1e-7},
		{"rk45", true, 1, 1e-10},
	}

	fmt.Printf("benchmarking %s at %.2f K over %gs\n\n", base.Name, base.Temperature, base.Grid.Stop)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tDT\tRTOL\tSTEPS\tEVALS\tTIME\tSTEPS/SEC\tMAX ERROR")

	for _, v := range variants {
		cfg := base.Clone()
		cfg.Solver.Integrator = v.integrator
		cfg.Solver.Adaptive = v.adaptive
		cfg.Solver.Dt = v.dt
		if v.rtol > 0 {
			cfg.Solver.RelTol = v.rtol
		}
		cfg.Solver.MaxSteps = math.MaxInt32

		exp, err := experiment.New(cfg, registry, zap.NewNop())
		if err != nil {
			return err
		}
		start := time.Now()
		result, err := exp.Run(cmd.Context())
		elapsed := time.Since(start)
		if err != nil {
			fmt.Fprintf(w, "%s\t%g\t-\tfailed: %v\n", v.integrator, v.dt, err)
			continue
		}

		setup := exp.Setup()
		exact := analysis.ClosedForm(setup.Model, setup.X0, setup.Times)
		rtol := "-"
		if v.adaptive {
			rtol = fmt.Sprintf("%g", cfg.Solver.RelTol)
		}
		fmt.Fprintf(w, "%s\t%g\t%s\t%d\t%d\t%v\t%.0f\t%.3e\n",
			v.integrator, v.dt, rtol,
			result.Stats.Accepted,
			result.Stats.Evaluations,
			elapsed.Round(time.Microsecond),
			float64(result.Stats.Accepted)/elapsed.Seconds(),
			analysis.MaxDeviation(result, exact),
		)
	}
	return w.Flush()
}

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mm1-sim/mm1-sim/sim"
	"github.com/mm1-sim/mm1-sim/sim/control"
	"github.com/mm1-sim/mm1-sim/sim/trace"
)

var (
	// CLI flags for the queue
	arrivalRate     float64 // Initial arrival rate (λ)
	serviceRate     float64 // Initial service rate (μ)
	steps           int     // Number of events to simulate
	seed            int64   // Seed for the arrival and service streams, wall clock when unset
	historyCapacity int     // Samples retained per history buffer
	logLevel        string  // Log verbosity level

	// CLI flags for the controller
	optimize          bool    // Start with the controller enabled
	strategyName      string  // Controller strategy
	targetUtilization float64 // Controller target utilization
	traceLevel        string  // Adjustment trace level

	// CLI flags for presets and output
	scenarioName  string // Named scenario preset
	scenariosFile string // YAML file with extra scenario presets
	hpcMode       bool   // Report with HPC scheduler vocabulary
	reportEvery   int    // Log a progress line every N steps, 0 = off
	resultsPath   string // File to write the JSON results to
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "mm1-sim",
	Short: "Discrete-event M/M/1 queue simulator with a utilization controller",
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the queue simulation",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		presets, err := LoadScenarios(scenariosFile)
		if err != nil {
			logrus.Fatalf("Failed to load scenarios: %v", err)
		}
		flags := cmd.Flags()
		lambda, mu, err := resolveRates(presets, scenarioName,
			optionalRate(flags.Changed("arrival-rate"), arrivalRate),
			optionalRate(flags.Changed("service-rate"), serviceRate))
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level: %s", traceLevel)
		}

		opts := engineOptions(flags.Changed("seed"), seed, historyCapacity)
		engine, err := sim.NewEngine(lambda, mu, opts...)
		if err != nil {
			logrus.Fatalf("Failed to create engine: %v", err)
		}

		ctrl, err := newController(engine, strategyName, targetUtilization, optimize)
		if err != nil {
			logrus.Fatalf("Failed to create controller: %v", err)
		}
		adjustments := trace.NewAdjustmentTrace(trace.TraceLevel(traceLevel))
		ctrl.SetTrace(adjustments)

		logrus.Infof("Starting simulation with λ=%.3f μ=%.3f ρ=%.3f (%s), steps=%d, key=%d",
			lambda, mu, lambda/mu, Stability(lambda/mu), steps, engine.Key())
		if ctrl.Enabled() {
			logrus.Infof("Controller enabled: %s, target utilization %.2f", ctrl.StrategyInfo(), ctrl.Config().TargetUtilization)
		}

		startTime := time.Now()
		runSimulation(engine, ctrl, steps, reportEvery)
		logrus.Infof("Simulated %d events in %s", engine.StepCount(), time.Since(startTime))

		labels := labelsFor(hpcMode || scenarioName != "")
		m := sim.NewMetrics(engine.Statistics(), engine.StepCount())
		m.Print(os.Stdout, labels)
		if adjustments.Enabled() {
			printTraceSummary(os.Stdout, trace.Summarize(adjustments))
		}
		if resultsPath != "" {
			if err := m.SaveResults(resultsPath); err != nil {
				logrus.Fatalf("Failed to save results: %v", err)
			}
		}

		logrus.Info("Simulation complete.")
	},
}

// scenariosCmd lists the available presets
var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List scenario presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		presets, err := LoadScenarios(scenariosFile)
		if err != nil {
			return err
		}
		printScenarios(cmd.OutOrStdout(), presets)
		return nil
	},
}

// optionalRate returns a pointer to v when the flag was set.
func optionalRate(set bool, v float64) *float64 {
	if !set {
		return nil
	}
	return &v
}

// resolveRates picks the starting rates. Explicit rates override the
// scenario's; both must end up set.
func resolveRates(presets map[string]Scenario, scenario string, lambda, mu *float64) (float64, float64, error) {
	var l, m float64
	haveL, haveM := false, false
	if scenario != "" {
		s, ok := presets[scenario]
		if !ok {
			return 0, 0, fmt.Errorf("unknown scenario %q, available: %v", scenario, ScenarioNames(presets))
		}
		l, m, haveL, haveM = s.ArrivalRate, s.ServiceRate, true, true
		logrus.Infof("Scenario %s: %s", scenario, s.Description)
	}
	if lambda != nil {
		l, haveL = *lambda, true
	}
	if mu != nil {
		m, haveM = *mu, true
	}
	if !haveL || !haveM {
		return 0, 0, fmt.Errorf("both --arrival-rate and --service-rate are required unless --scenario is given")
	}
	return l, m, nil
}

// engineOptions seeds the engine only when --seed was given, so any seed,
// including 0, selects a reproducible run.
func engineOptions(seeded bool, seed int64, capacity int) []sim.EngineOption {
	var opts []sim.EngineOption
	if seeded {
		opts = append(opts, sim.WithSeed(seed))
	}
	if capacity > 0 {
		opts = append(opts, sim.WithHistoryCapacity(capacity))
	}
	return opts
}

// newController builds a controller for the engine with the named strategy.
func newController(engine *sim.Engine, strategy string, target float64, enabled bool) (*control.Controller, error) {
	s, err := control.ParseStrategy(strategy)
	if err != nil {
		return nil, fmt.Errorf("%w (choose from %v)", err, control.Strategies())
	}
	cfg := control.DefaultConfig()
	cfg.TargetUtilization = target
	ctrl, err := control.NewController(engine, cfg)
	if err != nil {
		return nil, err
	}
	ctrl.SetStrategy(string(s))
	ctrl.SetEnabled(enabled)
	return ctrl, nil
}

// runSimulation steps the engine, giving the controller one tick per event.
func runSimulation(engine *sim.Engine, ctrl *control.Controller, steps, reportEvery int) {
	for i := 1; i <= steps; i++ {
		engine.Step()
		ctrl.OptimizeStep()
		if reportEvery > 0 && i%reportEvery == 0 {
			s := engine.Statistics()
			logrus.Infof("[step %d] t=%.2f λ=%.3f μ=%.3f ρ=%.3f queue=%d util=%.3f served=%d",
				i, s.CurrentTime, s.ArrivalRate, s.ServiceRate, s.Rho, s.QueueLength, s.AvgUtilization, s.CustomersServed)
		}
	}
}

func stabilityColor(label string) *color.Color {
	switch label {
	case "STABLE":
		return color.New(color.FgGreen)
	case "CRITICAL":
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func printScenarios(w io.Writer, presets map[string]Scenario) {
	fmt.Fprintf(w, "%-12s %6s %6s %6s  %-9s %s\n", "NAME", "λ", "μ", "ρ", "STATUS", "DESCRIPTION")
	for _, name := range ScenarioNames(presets) {
		s := presets[name]
		label := Stability(s.Rho())
		fmt.Fprintf(w, "%-12s %6.2f %6.2f %6.3f  %s %s\n", name, s.ArrivalRate, s.ServiceRate, s.Rho(),
			stabilityColor(label).Sprintf("%-9s", label), s.Description)
	}
}

func printTraceSummary(w io.Writer, ts *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Controller Adjustments ===")
	fmt.Fprintf(w, "%-24s: %d (ticks %d-%d)\n", "Adjustments", ts.TotalAdjustments, ts.FirstTick, ts.LastTick)
	fmt.Fprintf(w, "%-24s: λ %d, μ %d\n", "By parameter", ts.ByParameter[trace.ParamArrivalRate], ts.ByParameter[trace.ParamServiceRate])
	fmt.Fprintf(w, "%-24s: λ %+.4f, μ %+.4f\n", "Net drift", ts.NetArrivalDrift, ts.NetServiceDrift)
	fmt.Fprintf(w, "%-24s: %.4f\n", "Largest step", ts.LargestStep)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().Float64VarP(&arrivalRate, "arrival-rate", "a", 0, "Initial arrival rate (λ)")
	runCmd.Flags().Float64VarP(&serviceRate, "service-rate", "s", 0, "Initial service rate (μ)")
	runCmd.Flags().IntVar(&steps, "steps", 10000, "Number of events to simulate")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Seed for the arrival and service streams (wall clock when unset)")
	runCmd.Flags().IntVar(&historyCapacity, "history-capacity", sim.DefaultHistoryCapacity, "Samples retained per history buffer")
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// Controller
	runCmd.Flags().BoolVarP(&optimize, "optimize", "o", false, "Start with the utilization controller enabled")
	runCmd.Flags().StringVar(&strategyName, "strategy", string(control.StrategyArrivalOnly), "Controller strategy (arrival-only, service-only, balanced, demonstrate-instability)")
	runCmd.Flags().Float64Var(&targetUtilization, "target-utilization", 1.0, "Controller target utilization in (0, 1]")
	runCmd.Flags().StringVar(&traceLevel, "trace", string(trace.TraceLevelNone), "Controller trace level (none, adjustments)")

	// Presets and output
	rootCmd.PersistentFlags().StringVar(&scenariosFile, "scenarios-file", "", "YAML file with additional scenario presets")
	runCmd.Flags().StringVar(&scenarioName, "scenario", "", "Scenario preset (see `mm1-sim scenarios`); implies --hpc-mode")
	runCmd.Flags().BoolVar(&hpcMode, "hpc-mode", false, "Report with HPC job scheduler terminology")
	runCmd.Flags().IntVar(&reportEvery, "report-every", 0, "Log a progress line every N steps (0 = off)")
	runCmd.Flags().StringVar(&resultsPath, "results-path", "", "File to save the results JSON to")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scenariosCmd)
}

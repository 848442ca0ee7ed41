package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/inference-sim/threadsim/sim"
	"github.com/inference-sim/threadsim/sim/trace"
)

var (
	// CLI flags shared by run and watch
	seed         int64  // Seed for the simulation random source
	threadModel  string // Threading model: many-to-one, one-to-one, many-to-many
	speedMs      int64  // Simulated milliseconds per tick (0 = scenario default)
	scenarioPath string // Optional YAML scenario replacing the built-in seed
	logLevel     string // Log verbosity level

	// run-only flags
	numTicks    int64  // Number of ticks to simulate headlessly
	traceLevel  string // Transition trace level: none, transitions
	resultsPath string // File to write JSON results to (empty = none)
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "threadsim",
	Short: "Tick-driven simulator for many-to-one, one-to-one and many-to-many threading models",
}

// runCmd steps the simulation headlessly and prints the final state
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation for a fixed number of ticks",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		if numTicks < 0 {
			logrus.Fatalf("--ticks must be non-negative, got %d", numTicks)
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Unknown trace level %q. Valid: none, transitions", traceLevel)
		}

		s, err := newSimulator(trace.TraceConfig{Level: trace.TraceLevel(traceLevel)})
		if err != nil {
			logrus.Fatalf("Failed to create simulator: %v", err)
		}

		logrus.Infof("Starting simulation: model=%s, seed=%d, ticks=%d, speed=%dms",
			s.Model(), seed, numTicks, s.Speed())
		startTime := time.Now()

		if err := runTicks(s, numTicks); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		printReport(os.Stdout, s)

		if resultsPath != "" {
			res := sim.NewRunResults(s.Snapshot(), sim.NewSimulationKey(seed), startTime)
			if err := res.SaveResults(resultsPath); err != nil {
				logrus.Fatalf("Failed to save results: %v", err)
			}
		}
		logrus.Info("Simulation complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// newSimulator builds a simulator from the shared CLI flags.
func newSimulator(tc trace.TraceConfig) (*sim.Simulator, error) {
	if threadModel != "" && !sim.IsValidModel(threadModel) {
		return nil, fmt.Errorf("unknown model %q (valid: many-to-one, one-to-one, many-to-many)", threadModel)
	}
	cfg := sim.SimulatorConfig{
		Key:   sim.NewSimulationKey(seed),
		Model: sim.ThreadModel(threadModel),
		Speed: speedMs,
		Trace: tc,
	}
	if scenarioPath != "" {
		sc, err := sim.LoadScenario(scenarioPath)
		if err != nil {
			return nil, err
		}
		cfg.Scenario = sc
	}
	return sim.NewSimulator(cfg)
}

// runTicks advances s by n single steps.
func runTicks(s *sim.Simulator, n int64) error {
	for i := int64(0); i < n; i++ {
		if err := s.Step(); err != nil {
			return fmt.Errorf("tick %d: %w", i+1, err)
		}
	}
	return nil
}

// printReport writes the thread table, resources, metrics, trace summary and
// event log.
func printReport(w io.Writer, s *sim.Simulator) {
	snap := s.Snapshot()

	fmt.Fprintf(w, "=== Threads (%s) ===\n", snap.Model)
	fmt.Fprintf(w, "%-14s %-18s %4s %-11s %11s %6s %7s %4s %4s  %s\n",
		"ID", "NAME", "PRIO", "STATUS", "REMAINING", "CPU%", "MEM(MB)", "I/O", "CS", "WAIT")
	for _, t := range snap.Threads {
		fmt.Fprintf(w, "%-14s %-18s %4d %-11s %5d/%-5d %6.1f %7.1f %4d %4d  %s\n",
			shortID(t.ID), t.Name, t.Priority, t.Status, t.RemainingTime, t.ExecutionTime,
			t.CPUUsage, t.MemoryUsage, t.IOOperations, t.ContextSwitches, t.WaitReason())
	}

	fmt.Fprintln(w, "=== Resources ===")
	for _, r := range snap.Resources {
		owner := "available"
		if !r.Available() {
			owner = "held by " + shortID(r.InUseBy)
		}
		fmt.Fprintf(w, "%-14s %-22s %-8s %s\n", shortID(r.ID), r.Name, r.Type, owner)
	}

	snap.Metrics.Print(w, snap.Threads, snap.Tick)

	if tr := s.Trace(); tr.Config.Enabled() {
		trace.Summarize(tr).Print(w)
	}

	fmt.Fprintln(w, "=== Event Log ===")
	for _, e := range snap.Logs {
		fmt.Fprintf(w, "%s  %s\n", e.Timestamp.Format("15:04:05.000"), e.Message)
	}
}

// shortID trims generated ids (prefix-uuid) for display.
func shortID(id string) string {
	if r := []rune(id); len(r) > 14 {
		return string(r[:13]) + "…"
	}
	return id
}

// registerSimulationFlags attaches the flags shared by run and watch.
func registerSimulationFlags(c *cobra.Command) {
	c.Flags().Int64Var(&seed, "seed", 42, "Seed for the simulation random source")
	c.Flags().StringVar(&threadModel, "model", "", "Threading model: many-to-one, one-to-one, many-to-many (default: scenario's)")
	c.Flags().Int64Var(&speedMs, "speed", 0, "Simulated milliseconds per tick (default: scenario's, else 300)")
	c.Flags().StringVar(&scenarioPath, "scenario", "", "Path to a YAML scenario replacing the built-in seed")
	c.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
}

// init sets up CLI flags and subcommands
func init() {
	registerSimulationFlags(runCmd)
	runCmd.Flags().Int64Var(&numTicks, "ticks", 100, "Number of ticks to simulate")
	runCmd.Flags().StringVar(&traceLevel, "trace", "none", "Transition trace level (none, transitions)")
	runCmd.Flags().StringVar(&resultsPath, "results", "", "Write JSON results to this file")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}

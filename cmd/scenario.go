package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/inference-sim/threadsim/sim"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Print the built-in seed scenario as YAML",
	Long:  "Print the built-in seed scenario as YAML. Edit the output and pass it back with --scenario to run from a custom initial state.",
	Run: func(cmd *cobra.Command, args []string) {
		if err := writeScenario(os.Stdout, sim.DefaultScenario()); err != nil {
			logrus.Fatalf("YAML marshal failed: %v", err)
		}
	},
}

// --- threadsim scenario validate ---

var validatePath string

var scenarioValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a scenario file and print it normalized",
	Run: func(cmd *cobra.Command, args []string) {
		sc, err := sim.LoadScenario(validatePath)
		if err != nil {
			logrus.Fatalf("Invalid scenario %s: %v", validatePath, err)
		}
		logrus.Infof("Scenario %s: %d threads, %d resources", validatePath, len(sc.Threads), len(sc.Resources))
		if err := writeScenario(os.Stdout, sc); err != nil {
			logrus.Fatalf("YAML marshal failed: %v", err)
		}
	},
}

func writeScenario(w io.Writer, sc *sim.Scenario) error {
	data, err := sc.Marshal()
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, string(data))
	return err
}

func init() {
	scenarioValidateCmd.Flags().StringVar(&validatePath, "path", "", "Path to the scenario YAML file")
	_ = scenarioValidateCmd.MarkFlagRequired("path")

	scenarioCmd.AddCommand(scenarioValidateCmd)
	rootCmd.AddCommand(scenarioCmd)
}

package cmd

import (
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/threadsim/sim/trace"
	"github.com/inference-sim/threadsim/ui"
)

var (
	refreshInterval time.Duration // TUI redraw period
	watchLogFile    string        // File receiving log output while the TUI owns the terminal
)

// watchCmd opens the interactive terminal UI
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch and drive the simulation in an interactive terminal UI",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		s, err := newSimulator(trace.TraceConfig{})
		if err != nil {
			logrus.Fatalf("Failed to create simulator: %v", err)
		}
		defer s.Stop()

		restore, err := redirectLogging(watchLogFile)
		if err != nil {
			logrus.Fatalf("Failed to open log file: %v", err)
		}
		defer restore()

		p := tea.NewProgram(ui.NewModel(s, refreshInterval), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			logrus.Fatalf("TUI failed: %v", err)
		}
	},
}

func init() {
	registerSimulationFlags(watchCmd)
	watchCmd.Flags().DurationVar(&refreshInterval, "refresh", 100*time.Millisecond, "Screen refresh interval")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "Append log output to this file while the TUI runs (default: discarded)")

	rootCmd.AddCommand(watchCmd)
}

// redirectLogging points logrus away from the terminal: to path when set,
// otherwise nowhere. The returned func restores stderr output.
func redirectLogging(path string) (func(), error) {
	restore := func() { logrus.SetOutput(os.Stderr) }
	if path == "" {
		logrus.SetOutput(io.Discard)
		return restore, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	logrus.SetOutput(f)
	return func() {
		restore()
		f.Close()
	}, nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/dimcheck/units"
)

var (
	logLevel        string   // Log verbosity level
	definitionPaths []string // Extra unit definition files, applied in order
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "dimcheck",
	Short: "Unit inference and dimensional consistency checks for algebraic models",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadRegistry creates a registry with the built-in units and applies each
// definitions file in order.
func loadRegistry(paths []string) (*units.Registry, error) {
	reg := units.NewRegistry()
	for _, path := range paths {
		defs, err := units.LoadDefinitions(path)
		if err != nil {
			return nil, err
		}
		if err := defs.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := defs.Apply(reg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		logrus.Debugf("applied unit definitions from %s", path)
	}
	return reg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringArrayVar(&definitionPaths, "definitions", nil, "Path to a YAML unit definitions file (can be repeated)")
}

package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/dimcheck/units"
)

var composeFromPaths []string

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Merge multiple unit definitions files into one",
	Long: "Load multiple YAML unit definitions files, check that no name is defined twice and " +
		"that the merged table applies cleanly on top of the built-in units. Output is written to stdout.",
	Run: func(cmd *cobra.Command, args []string) {
		if len(composeFromPaths) == 0 {
			logrus.Fatalf("at least one --from flag is required")
		}
		if err := composeDefinitions(cmd.OutOrStdout(), composeFromPaths); err != nil {
			logrus.Fatalf("Compose failed: %v", err)
		}
	},
}

func composeDefinitions(out io.Writer, paths []string) error {
	var defs []*units.Definitions
	for _, path := range paths {
		d, err := units.LoadDefinitions(path)
		if err != nil {
			return err
		}
		defs = append(defs, d)
	}
	merged, err := units.ComposeDefinitions(defs)
	if err != nil {
		return err
	}
	// A dry run catches collisions with built-in names and unresolvable references.
	if err := merged.Apply(units.NewRegistry()); err != nil {
		return err
	}
	return writeDefinitions(out, merged)
}

// writeDefinitions marshals definitions to YAML.
func writeDefinitions(out io.Writer, defs *units.Definitions) error {
	data, err := yaml.Marshal(defs)
	if err != nil {
		return fmt.Errorf("YAML marshal failed: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func init() {
	composeCmd.Flags().StringArrayVar(&composeFromPaths, "from", nil, "Path to a YAML unit definitions file (can be repeated)")
	_ = composeCmd.MarkFlagRequired("from")

	rootCmd.AddCommand(composeCmd)
}

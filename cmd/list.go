package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/dimcheck/units"
)

var listDimensions bool // List base dimensions instead of units

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the units or base dimensions known to the registry",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := loadRegistry(definitionPaths)
		if err != nil {
			logrus.Fatalf("Failed to load unit definitions: %v", err)
		}
		listRegistry(cmd.OutOrStdout(), reg, listDimensions)
	},
}

func listRegistry(out io.Writer, reg *units.Registry, dimensions bool) {
	if dimensions {
		for _, d := range reg.Dimensions() {
			fmt.Fprintf(out, "%-14s %s\n", d.Name(), d.BaseUnit())
		}
		return
	}
	for _, name := range reg.Names() {
		u := reg.MustLookup(name)
		fmt.Fprintf(out, "%-16s %s\n", name, u.Dimensionality())
	}
}

func init() {
	listCmd.Flags().BoolVar(&listDimensions, "dimensions", false, "List base dimensions instead of units")

	rootCmd.AddCommand(listCmd)
}

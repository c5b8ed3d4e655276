package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/dimcheck/units"
)

var unitsCompare string // Unit expression to compare each argument against

var unitsCmd = &cobra.Command{
	Use:   "units <expr>...",
	Short: "Parse unit expressions and print their dimensions and scale",
	Long: "Parse each unit expression (e.g. \"kg*m/s**2\", \"100*yard\") against the registry and " +
		"print its dimensionality, scale and offset relative to the base units.",
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := loadRegistry(definitionPaths)
		if err != nil {
			logrus.Fatalf("Failed to load unit definitions: %v", err)
		}
		if err := describeUnits(cmd.OutOrStdout(), reg, args, unitsCompare); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// describeUnits writes one line per expression. With compare set, each line also
// says whether the unit is equivalent to compare.
func describeUnits(out io.Writer, reg *units.Registry, exprs []string, compare string) error {
	var ref *units.Unit
	if compare != "" {
		u, err := reg.ParseUnit(compare)
		if err != nil {
			return err
		}
		ref = u
	}
	for _, s := range exprs {
		u, err := reg.ParseUnit(s)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("%s = %.10g × base %s", s, u.Scale(), u.Dimensionality())
		if u.Offset() != 0 {
			line += fmt.Sprintf(" + %.10g", u.Offset())
		}
		if ref != nil {
			if u.DimensionEqual(ref) {
				line += fmt.Sprintf("; equivalent to %s: %t", compare, u.Equivalent(ref, units.DefaultTolerance))
			} else {
				line += fmt.Sprintf("; not convertible to %s", compare)
			}
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func init() {
	unitsCmd.Flags().StringVar(&unitsCompare, "compare", "", "Unit expression to compare each argument against")

	rootCmd.AddCommand(unitsCmd)
}

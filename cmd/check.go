package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/dimcheck/units"
	"github.com/inference-sim/dimcheck/units/expr"
)

var (
	checkTolerance float64 // Relative scale tolerance for unit equivalence
	checkSoft      bool    // Report pass/fail only, without error details
	checkVerbose   bool    // Print the unit of every subexpression
)

// checkOptions collects the flags of `dimcheck check`.
type checkOptions struct {
	Definitions []string
	Tolerance   float64
	Soft        bool
	Verbose     bool
}

var checkCmd = &cobra.Command{
	Use:   "check <model.yaml>",
	Short: "Check every expression of a model for dimensional consistency",
	Long: "Load a YAML model, infer the unit of each expression and report the first " +
		"inconsistency found in each. Exits with status 1 if any expression is inconsistent.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		failures, err := runCheck(cmd.OutOrStdout(), args[0], checkOptions{
			Definitions: definitionPaths,
			Tolerance:   checkTolerance,
			Soft:        checkSoft,
			Verbose:     checkVerbose,
		})
		if err != nil {
			logrus.Fatalf("Check failed: %v", err)
		}
		if failures > 0 {
			os.Exit(1)
		}
	},
}

// runCheck checks the model at path and writes one line per expression to out.
// It returns the number of inconsistent expressions. Errors not caused by units
// (unreadable model, failing host evaluation) abort the run.
func runCheck(out io.Writer, path string, opts checkOptions) (int, error) {
	reg, err := loadRegistry(opts.Definitions)
	if err != nil {
		return 0, err
	}
	model, err := expr.LoadModel(path)
	if err != nil {
		return 0, err
	}
	exprs, err := model.Compile(reg)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	checker := units.NewChecker(reg, units.WithTolerance(opts.Tolerance))

	failures := 0
	for _, e := range exprs {
		if opts.Soft {
			ok, err := checker.CheckConsistency(e.Root, true)
			if err != nil {
				return failures, fmt.Errorf("expression %q: %w", e.Name, err)
			}
			if ok {
				fmt.Fprintf(out, "OK    %s\n", e.Name)
			} else {
				failures++
				fmt.Fprintf(out, "FAIL  %s\n", e.Name)
			}
			continue
		}

		annotations, err := checker.Annotate(e.Root)
		if err != nil {
			if !errors.Is(err, units.ErrUnits) {
				return failures, fmt.Errorf("expression %q: %w", e.Name, err)
			}
			failures++
			fmt.Fprintf(out, "FAIL  %s: %v\n", e.Name, err)
			continue
		}
		root := annotations[len(annotations)-1].Unit
		fmt.Fprintf(out, "OK    %s: %s (%s)\n", e.Name, root, root.Dimensionality())
		if opts.Verbose {
			for _, a := range annotations {
				fmt.Fprintf(out, "        %s : %s\n", a.Node, a.Unit)
			}
		}
	}
	fmt.Fprintf(out, "%d expressions, %d inconsistent\n", len(exprs), failures)
	logrus.WithFields(logrus.Fields{"model": path, "expressions": len(exprs), "failures": failures}).Info("check complete")
	return failures, nil
}

func init() {
	checkCmd.Flags().Float64Var(&checkTolerance, "tolerance", units.DefaultTolerance, "Relative scale tolerance for unit equivalence")
	checkCmd.Flags().BoolVar(&checkSoft, "soft", false, "Report pass/fail only (suppressed-error mode)")
	checkCmd.Flags().BoolVar(&checkVerbose, "verbose", false, "Print the unit of every subexpression")

	rootCmd.AddCommand(checkCmd)
}

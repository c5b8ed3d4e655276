package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/dimcheck/units"
)

func TestDescribeUnits(t *testing.T) {
	reg := units.NewRegistry()
	var out bytes.Buffer

	err := describeUnits(&out, reg, []string{"m", "100*yard", "degC", "kg*m/s**2"}, "")

	require.NoError(t, err)
	assert.Equal(t, []string{
		"m = 1 × base [length]",
		"100*yard = 91.44 × base [length]",
		"degC = 1 × base [temperature] + 273.15",
		"kg*m/s**2 = 1 × base [length]·[mass]·[time]^-2",
	}, strings.Split(strings.TrimSpace(out.String()), "\n"))
}

func TestDescribeUnits_Compare(t *testing.T) {
	reg := units.NewRegistry()
	var out bytes.Buffer

	err := describeUnits(&out, reg, []string{"N", "lbf", "kg"}, "kg*m/s**2")

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[0], "; equivalent to kg*m/s**2: true"), lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "; equivalent to kg*m/s**2: false"), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], "; not convertible to kg*m/s**2"), lines[2])
}

func TestDescribeUnits_Errors(t *testing.T) {
	reg := units.NewRegistry()

	err := describeUnits(&bytes.Buffer{}, reg, []string{"furlong"}, "")
	assert.ErrorIs(t, err, units.ErrUndefinedUnit)

	err = describeUnits(&bytes.Buffer{}, reg, []string{"m"}, "m**")
	assert.ErrorIs(t, err, units.ErrUnits)
}

func TestListRegistry(t *testing.T) {
	reg := units.NewRegistry()

	var dims bytes.Buffer
	listRegistry(&dims, reg, true)
	lines := strings.Split(strings.TrimSpace(dims.String()), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, []string{"length", "meter"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"mass", "kilogram"}, strings.Fields(lines[1]))

	var names bytes.Buffer
	listRegistry(&names, reg, false)
	assert.Contains(t, names.String(), "yard")
	assert.Contains(t, names.String(), "newton")
	for _, line := range strings.Split(strings.TrimSpace(names.String()), "\n") {
		if f := strings.Fields(line); f[0] == "newton" {
			assert.Equal(t, "[length]·[mass]·[time]^-2", f[1])
		}
	}
}

func TestRootCommand_UnitsSubcommand(t *testing.T) {
	prevLevel := logrus.GetLevel()
	defer logrus.SetLevel(prevLevel)

	// GIVEN the CLI invoked as `dimcheck units --compare m ft`
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"units", "--log", "error", "--compare", "m", "ft"})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		unitsCompare = ""
	}()

	// WHEN it executes
	require.NoError(t, rootCmd.Execute())

	// THEN the comparison is printed and the log level is applied
	assert.Equal(t, "ft = 0.3048 × base [length]; equivalent to m: false\n", out.String())
	assert.Equal(t, logrus.ErrorLevel, logrus.GetLevel())
}

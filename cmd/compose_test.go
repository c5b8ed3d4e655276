package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/dimcheck/units"
)

func TestComposeDefinitions_MergesFiles(t *testing.T) {
	// GIVEN a currency dimension in one file and units built on it in another
	money := writeFile(t, "money.yaml", `
dimensions:
  - {name: currency, base_unit: dollar, symbol: USD}
`)
	cents := writeFile(t, "cents.yaml", `
version: "1"
units:
  - {name: cent, reference: dollar, factor: 0.01}
  - {name: grand, reference: USD, factor: 1000}
`)
	var out bytes.Buffer

	// WHEN they are composed
	err := composeDefinitions(&out, []string{money, cents})

	// THEN the output is a single definitions document that applies cleanly
	require.NoError(t, err)
	merged, err := units.ParseDefinitions(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "1", merged.Version)
	require.Len(t, merged.Dimensions, 1)
	require.Len(t, merged.Units, 2)
	assert.Equal(t, "grand", merged.Units[1].Name)

	reg := units.NewRegistry()
	require.NoError(t, merged.Apply(reg))
	grand, err := reg.ParseUnit("grand")
	require.NoError(t, err)
	assert.True(t, grand.Equivalent(reg.MustLookup("cent").ScaledBy(100000), units.DefaultTolerance))
}

func TestComposeDefinitions_Rejects(t *testing.T) {
	league := writeFile(t, "league.yaml", `
units:
  - {name: league, reference: mile, factor: 3}
`)
	tests := []struct {
		name  string
		paths []string
		want  error
		msg   string
	}{
		{"same name in two files", []string{league, league}, nil, `name "league" already used`},
		{"collides with a built-in unit", []string{writeFile(t, "meter.yaml", `
units:
  - {name: meter, reference: foot}
`)}, units.ErrDuplicateUnit, ""},
		{"unknown reference", []string{writeFile(t, "furlong.yaml", `
units:
  - {name: chain, reference: furlong, factor: 0.1}
`)}, units.ErrUndefinedUnit, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := composeDefinitions(&out, tt.paths)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
			assert.Empty(t, out.String(), "nothing is written on failure")
		})
	}
}

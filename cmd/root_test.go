package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	for _, name := range []string{"check", "units", "list", "compose"} {
		t.Run(name, func(t *testing.T) {
			// GIVEN the root command after package init
			// WHEN the subcommand is looked up by name
			sub, _, err := rootCmd.Find([]string{name})

			// THEN it resolves to a child of root, not root itself
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
			assert.Same(t, rootCmd, sub.Parent())
		})
	}
}

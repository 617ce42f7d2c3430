package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "weft", cmd.Use)
	assert.Contains(t, cmd.Long, "dataflow")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"optimize", "emit", "passes", "journal", "test"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "command %s should exist", name)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestOptimizeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	sub, _, err := cmd.Find([]string{"optimize"})
	require.NoError(t, err)

	for _, name := range []string{"config", "entry", "max-iterations", "skip", "journal", "output", "listing", "strict"} {
		assert.NotNil(t, sub.Flags().Lookup(name), name)
	}
	assert.Equal(t, "o", sub.Flags().Lookup("output").Shorthand)
	assert.Equal(t, "c", sub.Flags().Lookup("config").Shorthand)
}

func TestJournalCommandRequiresDB(t *testing.T) {
	_, _, err := execute(t, "journal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db")
}

func TestInvalidFormat(t *testing.T) {
	out, _, err := execute(t, "--format", "xml", "passes")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "invalid format")
}

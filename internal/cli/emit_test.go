package cli

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmit_Listing(t *testing.T) {
	out, _, err := execute(t, "emit", copyWaitFixture)
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "emit_copy_wait", []byte(out))
}

func TestEmit_Optimized(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "emit", copyWaitFixture, "--optimize")
	require.NoError(t, err)

	status, res, _ := decode[EmitResult](t, out)
	assert.Equal(t, "ok", status)
	assert.Equal(t, "copy_wait", res.Program)
	assert.Equal(t, []string{
		"header",
		"function main out[] in[] sync",
		"  async_op print - [2]",
		"end function",
	}, res.Lines)
}

func TestEmit_MissingProgram(t *testing.T) {
	out, _, err := execute(t, "emit", "testdata/missing.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}

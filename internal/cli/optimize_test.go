package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimize_Text(t *testing.T) {
	out, _, err := execute(t, "optimize", copyWaitFixture)
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "optimize_copy_wait", []byte(out))
}

func TestOptimize_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "optimize", copyWaitFixture)
	require.NoError(t, err)

	status, res, _ := decode[OptimizeResult](t, out)
	assert.Equal(t, "ok", status)
	assert.Equal(t, "copy_wait", res.Program)
	assert.True(t, res.Converged)
	assert.Equal(t, 2, res.Iterations)
	assert.NotEqual(t, res.InputFingerprint, res.OutputFingerprint)
	assert.Contains(t, res.Text, "print(2)")
	assert.Empty(t, res.RunID)
}

func TestOptimize_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ic")
	out, _, err := execute(t, "optimize", copyWaitFixture, "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "print(2)")
}

func TestOptimize_Listing(t *testing.T) {
	out, _, err := execute(t, "optimize", copyWaitFixture, "--listing")
	require.NoError(t, err)
	assert.Equal(t, "header\nfunction main out[] in[] sync\n  async_op print - [2]\nend function\n", out)
}

func TestOptimize_SkipAll(t *testing.T) {
	out, _, err := execute(t, "optimize", copyWaitFixture,
		"--skip", "value_number,refcount,dead_code,pipeline,prune")
	require.NoError(t, err)
	assert.Contains(t, out, "wait(y) local {")
	assert.Contains(t, out, "y = copy(x)")
}

func TestOptimize_ConfigFile(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "optimize", copyWaitFixture,
		"--config", filepath.Join("testdata", "settings.toml"))
	require.NoError(t, err)

	_, res, _ := decode[OptimizeResult](t, out)
	assert.True(t, res.Converged)
}

func TestOptimize_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		exit int
		code string
	}{
		{
			name: "missing program",
			args: []string{"optimize", filepath.Join("testdata", "nope.yaml")},
			exit: ExitCommandError,
			code: ErrCodeProgram,
		},
		{
			name: "invalid settings",
			args: []string{"optimize", copyWaitFixture, "--config", filepath.Join("testdata", "bad_settings.yaml")},
			exit: ExitCommandError,
			code: ErrCodeSettings,
		},
		{
			name: "unknown pass",
			args: []string{"optimize", copyWaitFixture, "--skip", "inline"},
			exit: ExitCommandError,
			code: ErrCodeSettings,
		},
		{
			name: "strict without convergence",
			args: []string{"optimize", copyWaitFixture, "--max-iterations", "1", "--strict"},
			exit: ExitFailure,
			code: ErrCodeConverge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--format", "json"}, tt.args...)
			out, _, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, tt.exit, GetExitCode(err))

			status, _, cliErr := decode[OptimizeResult](t, out)
			assert.Equal(t, "error", status)
			require.NotNil(t, cliErr)
			assert.Equal(t, tt.code, cliErr.Code)
		})
	}
}

package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const copyWaitScenario = `name: copy_wait
description: The wait on a copied constant is inlined.
program: fixtures/copy_wait.yaml
expect:
  converged: true
assertions:
  - {type: output_excludes, text: "wait("}
`

const failingScenario = `name: still_waits
description: Expects a wait the optimizer removes.
program: fixtures/copy_wait.yaml
assertions:
  - {type: output_contains, text: "wait("}
`

// scenarioDir lays out a scenarios directory holding the given files.
func scenarioDir(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	fixture, err := os.ReadFile(copyWaitFixture)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "fixtures"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixtures", "copy_wait.yaml"), fixture, 0o644))
	for name, body := range scenarios {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, _, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	out, _, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandPassing(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"copy_wait.yaml": copyWaitScenario})

	out, _, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ copy_wait")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandFailing(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"copy_wait.yaml":   copyWaitScenario,
		"still_waits.yaml": failingScenario,
	})

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ still_waits")
	assert.Contains(t, out, "Assertion failed: output_contains")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestTestCommandFilter(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"copy_wait.yaml":   copyWaitScenario,
		"still_waits.yaml": failingScenario,
	})

	out, _, err := execute(t, "--format", "json", "test", dir, "--filter", "copy*")
	require.NoError(t, err)
	status, data, _ := decode[TestResult](t, out)
	assert.Equal(t, "ok", status)
	assert.Equal(t, 1, data.Total)
	require.Len(t, data.Scenarios, 1)
	assert.Equal(t, "copy_wait", data.Scenarios[0].Name)
	assert.Equal(t, "missing", data.Scenarios[0].Golden)
}

func TestTestCommandFailingJSON(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"still_waits.yaml": failingScenario})

	out, _, err := execute(t, "--format", "json", "test", dir)
	require.Error(t, err)
	status, _, cliErr := decode[TestResult](t, out)
	assert.Equal(t, "error", status)
	require.NotNil(t, cliErr)
	assert.Equal(t, ErrCodeTestFailed, cliErr.Code)
}

func TestTestCommandGolden(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"copy_wait.yaml": copyWaitScenario})

	out, _, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "(golden updated)")
	golden := filepath.Join(dir, "golden", "copy_wait.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scenario: copy_wait\n")

	out, _, err = execute(t, "--format", "json", "test", dir)
	require.NoError(t, err)
	_, result, _ := decode[TestResult](t, out)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "match", result.Scenarios[0].Golden)

	require.NoError(t, os.WriteFile(golden, []byte("stale\n"), 0o644))
	out, _, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommandBadScenario(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"broken.yaml": "name: broken\n"})

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken")
	assert.Contains(t, out, "failed to load scenario")
}

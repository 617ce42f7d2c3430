package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weft/internal/opt"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

// TestRun_CopyWait tests a scenario whose checks all hold.
func TestRun_CopyWait(t *testing.T) {
	s := loadTestScenario(t, "copy_wait")

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Events, 9)
	assert.Equal(t, opt.PassPrune, result.Events[8].Pass)
}

// TestRun_PruneUnused tests pruning and skipped passes.
func TestRun_PruneUnused(t *testing.T) {
	s := loadTestScenario(t, "prune_unused")

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []string{"unused"}, result.PrunedFunctions)
	assert.Equal(t, "function main () () sync {\n  print(1)\n}\n", result.Output)
}

// TestRun_FailedChecks tests that failed expectations are reported, not
// returned as errors.
func TestRun_FailedChecks(t *testing.T) {
	s := loadTestScenario(t, "copy_wait")
	converged := false
	iterations := 7
	s.Expect = &ExpectClause{Converged: &converged, Iterations: &iterations}
	s.Assertions = []Assertion{
		{Type: AssertOutputContains, Text: "wait("},
		{Type: AssertPassOrder, Passes: []string{opt.PassPrune, opt.PassValueNumber}},
		{Type: AssertPruned, Functions: []string{"main"}},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "expected converged=false")
	assert.Contains(t, result.Errors[1], "expected 7 iteration(s), got 2")
	assert.Contains(t, result.Errors[2], "output_contains")
	assert.Contains(t, result.Errors[3], "should be before")
	assert.Contains(t, result.Errors[3], "Pass sequence:")
	assert.Contains(t, result.Errors[4], "pruned")
}

// TestRun_MissingProgram tests that an unloadable program is an error.
func TestRun_MissingProgram(t *testing.T) {
	s := &Scenario{Name: "missing", Program: filepath.Join(t.TempDir(), "nope.yaml")}

	_, err := Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load program")
}

// TestRun_SettingsFile tests that a settings file and skips combine.
func TestRun_SettingsFile(t *testing.T) {
	dir := t.TempDir()
	settings := filepath.Join(dir, "weft.yaml")
	require.NoError(t, os.WriteFile(settings, []byte("passes:\n  prune: false\n"), 0o644))

	s := loadTestScenario(t, "copy_wait")
	s.Settings = settings
	s.Skip = []string{"pipeline"}
	s.Expect = nil
	s.Assertions = []Assertion{
		{Type: AssertPassCount, Pass: opt.PassPrune, Count: 0},
		{Type: AssertPassCount, Pass: opt.PassPipeline, Count: 0},
	}

	got, err := Settings(s)
	require.NoError(t, err)
	assert.False(t, got.Passes.Prune)
	assert.False(t, got.Passes.Pipeline)
	assert.True(t, got.Passes.ValueNumber)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

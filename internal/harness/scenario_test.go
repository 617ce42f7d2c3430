package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes body next to a copy of the copy_wait fixture.
func writeScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	fixture, err := os.ReadFile(filepath.Join("testdata", "fixtures", "copy_wait.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prog.yaml"), fixture, 0o644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// TestLoadScenario_ResolvesPaths tests that paths are relative to the file.
func TestLoadScenario_ResolvesPaths(t *testing.T) {
	path := writeScenario(t, `
name: s
description: d
program: prog.yaml
assertions:
  - {type: output_contains, text: "print"}
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "prog.yaml"), s.Program)
	assert.Empty(t, s.Settings)
}

// TestLoadScenario_Invalid tests the validation messages.
func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing name", "description: d\nprogram: prog.yaml\nexpect: {converged: true}\n", "name is required"},
		{"missing description", "name: s\nprogram: prog.yaml\nexpect: {converged: true}\n", "description is required"},
		{"missing program", "name: s\ndescription: d\nexpect: {converged: true}\n", "program is required"},
		{"program not found", "name: s\ndescription: d\nprogram: nope.yaml\nexpect: {converged: true}\n", "program not found"},
		{"settings not found", "name: s\ndescription: d\nprogram: prog.yaml\nsettings: nope.toml\nexpect: {converged: true}\n", "settings not found"},
		{"unknown skip", "name: s\ndescription: d\nprogram: prog.yaml\nskip: [inline]\nexpect: {converged: true}\n", `unknown pass "inline"`},
		{"nothing to check", "name: s\ndescription: d\nprogram: prog.yaml\n", "expect or assertions is required"},
		{"unknown field", "name: s\ndescription: d\nprogram: prog.yaml\nexpects: {}\n", "failed to parse YAML"},
		{"missing type", "name: s\ndescription: d\nprogram: prog.yaml\nassertions:\n  - {pass: prune}\n", "type is required"},
		{"unknown type", "name: s\ndescription: d\nprogram: prog.yaml\nassertions:\n  - {type: trace_contains}\n", "unknown assertion type"},
		{"order without passes", "name: s\ndescription: d\nprogram: prog.yaml\nassertions:\n  - {type: pass_order}\n", "passes list is required"},
		{"count without pass", "name: s\ndescription: d\nprogram: prog.yaml\nassertions:\n  - {type: pass_count, count: 1}\n", "pass is required for pass_count"},
		{"negative count", "name: s\ndescription: d\nprogram: prog.yaml\nassertions:\n  - {type: pass_count, pass: prune, count: -1}\n", "count must be non-negative"},
		{"changed without pass", "name: s\ndescription: d\nprogram: prog.yaml\nassertions:\n  - {type: pass_changed}\n", "pass is required for pass_changed"},
		{"contains without text", "name: s\ndescription: d\nprogram: prog.yaml\nassertions:\n  - {type: output_contains}\n", "text is required"},
		{"pruned without functions", "name: s\ndescription: d\nprogram: prog.yaml\nassertions:\n  - {type: pruned}\n", "functions list is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), "got %v", err)
		})
	}
}

// TestLoadScenario_MissingFile tests the read error.
func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

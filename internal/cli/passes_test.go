package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weft/internal/config"
)

func TestPasses_Defaults(t *testing.T) {
	out, _, err := execute(t, "passes")
	require.NoError(t, err)

	assert.Contains(t, out, "entry: main")
	assert.Contains(t, out, "max_iterations: 10")
	for _, name := range config.PassNames() {
		assert.Contains(t, out, "✓ "+name)
	}
	assert.Contains(t, out, "hoist:")
	assert.NotContains(t, out, "✗")
}

func TestPasses_Overrides(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "passes",
		"--config", filepath.Join("testdata", "settings.toml"),
		"--skip", "prune", "--entry", "start")
	require.NoError(t, err)

	status, res, _ := decode[PassesResult](t, out)
	assert.Equal(t, "ok", status)
	assert.Equal(t, "start", res.Entry)
	assert.Equal(t, 4, res.MaxIterations)
	require.Len(t, res.Passes, len(config.PassNames()))

	enabled := map[string]bool{}
	for _, p := range res.Passes {
		enabled[p.Name] = p.Enabled
		assert.NotEmpty(t, p.Summary, p.Name)
	}
	assert.Equal(t, map[string]bool{
		"value_number": true,
		"refcount":     true,
		"dead_code":    true,
		"pipeline":     false,
		"prune":        false,
	}, enabled)
	assert.True(t, res.Refcount.Merge)
}

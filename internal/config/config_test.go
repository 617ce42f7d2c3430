package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectedValid() Settings {
	s := Default()
	s.Entry = "app:main"
	s.MaxIterations = 4
	s.Passes.Pipeline = false
	s.Refcount.Piggyback = false
	return s
}

// TestLoad_AllFormatsAgree tests that the same settings load identically
// from YAML, TOML and CUE.
func TestLoad_AllFormatsAgree(t *testing.T) {
	for _, name := range []string{"valid.yaml", "valid.toml", "valid.cue"} {
		t.Run(name, func(t *testing.T) {
			s, err := Load(filepath.Join("testdata", name))
			require.NoError(t, err)
			assert.Equal(t, expectedValid(), s)
		})
	}
}

// TestLoad_UnknownKeysRejected tests that misspelled keys are errors.
func TestLoad_UnknownKeysRejected(t *testing.T) {
	for _, name := range []string{"unknown.yaml", "unknown.toml"} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(filepath.Join("testdata", name))
			require.Error(t, err)
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, ErrCodeUnknownField, ce.Code)
		})
	}
}

// TestLoad_OutOfRange tests schema bounds on max_iterations.
func TestLoad_OutOfRange(t *testing.T) {
	for _, name := range []string{"bad_iterations.cue", "bad_iterations.yaml"} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(filepath.Join("testdata", name))
			require.Error(t, err)
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, ErrCodeInvalid, ce.Code)
		})
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load("settings.json")
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), string(ErrCodeFormat))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "missing.yaml"))
	require.Error(t, err)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeRead, ce.Code)
}

// TestParse_EmptyKeepsDefaults tests that an empty document yields defaults.
func TestParse_EmptyKeepsDefaults(t *testing.T) {
	for _, f := range []Format{FormatYAML, FormatTOML, FormatCUE} {
		t.Run(string(f), func(t *testing.T) {
			s, err := Parse(nil, f, "empty")
			require.NoError(t, err)
			assert.Equal(t, Default(), s)
		})
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(Default()))

	s := Default()
	s.Entry = "9bad"
	assert.Error(t, Validate(s))

	s = Default()
	s.MaxIterations = 0
	assert.Error(t, Validate(s))
}

func TestSettings_Enabled(t *testing.T) {
	s := Default()
	for _, name := range PassNames() {
		assert.True(t, s.Enabled(name), name)
	}
	s.Passes.DeadCode = false
	assert.False(t, s.Enabled("dead_code"))
	assert.False(t, s.Enabled("inline"))
}

func TestSettings_WithPass(t *testing.T) {
	base := Default()
	for _, name := range PassNames() {
		off, ok := base.WithPass(name, false)
		require.True(t, ok, name)
		assert.False(t, off.Enabled(name), name)
		assert.True(t, base.Enabled(name), "base unchanged for %s", name)
	}
	_, ok := base.WithPass("inline", false)
	assert.False(t, ok)
}

func TestRefcountOptions_Any(t *testing.T) {
	assert.True(t, Default().Refcount.Any())
	assert.False(t, RefcountOptions{}.Any())
	assert.True(t, RefcountOptions{Hoist: true}.Any())
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"a.yaml", FormatYAML, true},
		{"a.YML", FormatYAML, true},
		{"a.toml", FormatTOML, true},
		{"dir/a.cue", FormatCUE, true},
		{"a.json", "", false},
	}
	for _, tt := range tests {
		got, ok := FormatForPath(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

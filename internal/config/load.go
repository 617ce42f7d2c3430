package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Format is a settings file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatCUE  Format = "cue"
)

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".toml":
		return FormatTOML, true
	case ".cue":
		return FormatCUE, true
	}
	return "", false
}

// Load reads and validates a settings file. Keys the file omits keep
// their defaults.
func Load(path string) (Settings, error) {
	format, ok := FormatForPath(path)
	if !ok {
		return Settings{}, &ConfigError{
			Code:    ErrCodeFormat,
			Path:    path,
			Message: fmt.Sprintf("unsupported settings file extension %q", filepath.Ext(path)),
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, &ConfigError{Code: ErrCodeRead, Path: path, Message: err.Error()}
	}
	return Parse(data, format, path)
}

// Parse decodes and validates settings in the given format. filename is
// used in error positions.
func Parse(data []byte, format Format, filename string) (Settings, error) {
	switch format {
	case FormatYAML:
		return parseYAML(data, filename)
	case FormatTOML:
		return parseTOML(data, filename)
	case FormatCUE:
		return parseCUE(data, filename)
	}
	return Settings{}, &ConfigError{
		Code:    ErrCodeFormat,
		Path:    filename,
		Message: fmt.Sprintf("unknown format %q", format),
	}
}

func parseYAML(data []byte, filename string) (Settings, error) {
	s := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		code := ErrCodeParse
		if strings.Contains(err.Error(), "not found in type") {
			code = ErrCodeUnknownField
		}
		return Settings{}, &ConfigError{Code: code, Path: filename, Message: err.Error()}
	}
	return s, validate(s, filename)
}

func parseTOML(data []byte, filename string) (Settings, error) {
	s := Default()
	md, err := toml.Decode(string(data), &s)
	if err != nil {
		return Settings{}, &ConfigError{Code: ErrCodeParse, Path: filename, Message: err.Error()}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Settings{}, &ConfigError{
			Code:    ErrCodeUnknownField,
			Path:    filename,
			Message: "unknown keys: " + strings.Join(keys, ", "),
		}
	}
	return s, validate(s, filename)
}

func parseCUE(data []byte, filename string) (Settings, error) {
	ctx := cuecontext.New()
	schema, err := compileSchema(ctx)
	if err != nil {
		return Settings{}, err
	}
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return Settings{}, fromCUE(ErrCodeParse, filename, err)
	}
	u := schema.Unify(v)
	if err := u.Validate(cue.Concrete(true)); err != nil {
		return Settings{}, fromCUE(ErrCodeInvalid, filename, err)
	}
	var s Settings
	if err := u.Decode(&s); err != nil {
		return Settings{}, fromCUE(ErrCodeInvalid, filename, err)
	}
	return s, nil
}

func compileSchema(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile settings schema: %w", err)
	}
	return v.LookupPath(cue.ParsePath("#Settings")), nil
}

// Validate checks s against the settings schema.
func Validate(s Settings) error {
	return validate(s, "")
}

func validate(s Settings, filename string) error {
	ctx := cuecontext.New()
	schema, err := compileSchema(ctx)
	if err != nil {
		return err
	}
	v := schema.Unify(ctx.Encode(s))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fromCUE(ErrCodeInvalid, filename, err)
	}
	return nil
}

package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/weft/internal/config"
	"github.com/roach88/weft/internal/fixture"
	"github.com/roach88/weft/internal/ic"
)

// loadedProgram is a built fixture and where it came from.
type loadedProgram struct {
	Name    string
	Source  string
	Program *ic.Program
}

// loadProgram reads the fixture at path. The program is named by the
// document, or by the file when the document has no name.
func loadProgram(path string) (*loadedProgram, error) {
	d, err := fixture.LoadDocument(path)
	if err != nil {
		return nil, err
	}
	p, err := fixture.Build(d)
	if err != nil {
		var fe *fixture.Error
		if errors.As(err, &fe) && fe.File == "" {
			fe.File = path
		}
		return nil, err
	}
	name := d.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &loadedProgram{Name: name, Source: path, Program: p}, nil
}

// settingsFlags are the optimizer flags shared by commands that run passes.
type settingsFlags struct {
	Config        string
	Entry         string
	MaxIterations int
	Skip          []string
}

// resolve loads the settings file, or defaults, then applies overrides.
func (f *settingsFlags) resolve() (config.Settings, error) {
	s := config.Default()
	if f.Config != "" {
		var err error
		if s, err = config.Load(f.Config); err != nil {
			return s, err
		}
	}
	if f.Entry != "" {
		s.Entry = f.Entry
	}
	if f.MaxIterations != 0 {
		s.MaxIterations = f.MaxIterations
	}
	for _, name := range f.Skip {
		next, ok := s.WithPass(name, false)
		if !ok {
			return s, &config.ConfigError{
				Code:    config.ErrCodeInvalid,
				Message: fmt.Sprintf("unknown pass %q: must be one of %v", name, config.PassNames()),
			}
		}
		s = next
	}
	if err := config.Validate(s); err != nil {
		return s, err
	}
	return s, nil
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Config, "config", "c", "", "settings file (.yaml, .toml or .cue)")
	cmd.Flags().StringVar(&f.Entry, "entry", "", "entry function for pruning (overrides settings)")
	cmd.Flags().IntVar(&f.MaxIterations, "max-iterations", 0, "fixed-point iteration bound (overrides settings)")
	cmd.Flags().StringSliceVar(&f.Skip, "skip", nil, "passes to disable, by name")
}

package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/weft/internal/config"
)

// Scenario is one optimizer conformance test.
type Scenario struct {
	// Name identifies the scenario and its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Program is the fixture to optimize.
	Program string `yaml:"program"`

	// Settings is an optional settings file. Defaults apply when empty.
	Settings string `yaml:"settings,omitempty"`

	// Skip disables passes by name after Settings is applied.
	Skip []string `yaml:"skip,omitempty"`

	// Expect checks the optimizer's summary.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	Assertions []Assertion `yaml:"assertions"`
}

// ExpectClause checks the run summary. Nil fields are not checked.
type ExpectClause struct {
	Converged  *bool `yaml:"converged,omitempty"`
	Iterations *int  `yaml:"iterations,omitempty"`
	Rollbacks  *int  `yaml:"rollbacks,omitempty"`
}

// Assertion checks the recorded events or the optimized program.
type Assertion struct {
	// Type is one of the Assert constants.
	Type string `yaml:"type"`

	// Pass names the pass (pass_count, pass_changed).
	Pass string `yaml:"pass,omitempty"`

	// Function restricts pass_count and pass_changed to one function.
	Function string `yaml:"function,omitempty"`

	// Passes is the expected order of first occurrences (pass_order).
	Passes []string `yaml:"passes,omitempty"`

	// Count is the exact number of events (pass_count).
	Count int `yaml:"count,omitempty"`

	// Text is searched for in the optimized program (output_contains,
	// output_excludes).
	Text string `yaml:"text,omitempty"`

	// Functions must all have been pruned (pruned).
	Functions []string `yaml:"functions,omitempty"`
}

// Assertion type constants.
const (
	AssertPassOrder      = "pass_order"
	AssertPassCount      = "pass_count"
	AssertPassChanged    = "pass_changed"
	AssertOutputContains = "output_contains"
	AssertOutputExcludes = "output_excludes"
	AssertPruned         = "pruned"
)

// LoadScenario reads a scenario file, resolving its paths against the
// file's directory. Unknown keys are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	s.Program = resolve(base, s.Program)
	s.Settings = resolve(base, s.Settings)

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if _, err := os.Stat(s.Program); err != nil {
		return fmt.Errorf("program not found: %s", s.Program)
	}
	if s.Settings != "" {
		if _, err := os.Stat(s.Settings); err != nil {
			return fmt.Errorf("settings not found: %s", s.Settings)
		}
	}
	for i, name := range s.Skip {
		if _, ok := config.Default().WithPass(name, false); !ok {
			return fmt.Errorf("skip[%d]: unknown pass %q", i, name)
		}
	}
	if s.Expect == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertPassOrder:
		if len(a.Passes) == 0 {
			return fmt.Errorf("assertions[%d]: passes list is required for pass_order", index)
		}
	case AssertPassCount:
		if a.Pass == "" {
			return fmt.Errorf("assertions[%d]: pass is required for pass_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for pass_count", index)
		}
	case AssertPassChanged:
		if a.Pass == "" {
			return fmt.Errorf("assertions[%d]: pass is required for pass_changed", index)
		}
	case AssertOutputContains, AssertOutputExcludes:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertPruned:
		if len(a.Functions) == 0 {
			return fmt.Errorf("assertions[%d]: functions list is required for pruned", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

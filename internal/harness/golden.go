package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result for golden comparison. Fingerprints and change
// flags are left out so the snapshot only moves when the pass sequence or
// the optimized program does.
func Snapshot(name string, r *Result) []byte {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario: %s\n", name)
	fmt.Fprintf(&buf, "iterations: %d\n", r.Iterations)
	fmt.Fprintf(&buf, "converged: %t\n", r.Converged)
	fmt.Fprintf(&buf, "rollbacks: %d\n", r.Rollbacks)
	buf.WriteString("events:\n")
	for _, ev := range r.Events {
		buf.WriteString("  " + eventLine(ev) + "\n")
	}
	if len(r.PrunedFunctions) > 0 || len(r.PrunedBuiltins) > 0 {
		fmt.Fprintf(&buf, "pruned: functions=%v builtins=%v\n", r.PrunedFunctions, r.PrunedBuiltins)
	}
	buf.WriteString("program:\n")
	buf.WriteString(r.Output)
	return []byte(buf.String())
}

// RunWithGolden runs s and compares its snapshot with
// testdata/golden/{s.Name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), s)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, s.Name, result)
	return result, nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name string, r *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(name, r))
}

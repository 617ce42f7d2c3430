package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/weft/internal/opt"
)

func sampleResult() *Result {
	r := NewResult()
	r.Events = []opt.Event{
		{Iteration: 1, Pass: opt.PassValueNumber, Function: "main", Changed: true},
		{Iteration: 1, Pass: opt.PassDeadCode, Function: "main"},
		{Iteration: 1, Pass: opt.PassValueNumber, Function: "helper", RolledBack: true},
		{Iteration: 2, Pass: opt.PassPrune},
	}
	r.Output = "function main () () sync {\n}\n"
	r.PrunedFunctions = []string{"helper"}
	return r
}

func TestEvaluateAssertions(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"order holds", Assertion{Type: AssertPassOrder, Passes: []string{opt.PassValueNumber, opt.PassPrune}}, ""},
		{"order reversed", Assertion{Type: AssertPassOrder, Passes: []string{opt.PassPrune, opt.PassDeadCode}}, "should be before"},
		{"order missing pass", Assertion{Type: AssertPassOrder, Passes: []string{opt.PassPipeline}}, "missing pass: pipeline"},
		{"count all", Assertion{Type: AssertPassCount, Pass: opt.PassValueNumber, Count: 2}, ""},
		{"count one function", Assertion{Type: AssertPassCount, Pass: opt.PassValueNumber, Function: "helper", Count: 1}, ""},
		{"count wrong", Assertion{Type: AssertPassCount, Pass: opt.PassDeadCode, Count: 2}, "1 events"},
		{"changed", Assertion{Type: AssertPassChanged, Pass: opt.PassValueNumber, Function: "main"}, ""},
		{"not changed", Assertion{Type: AssertPassChanged, Pass: opt.PassValueNumber, Function: "helper"}, "value_number on helper to change"},
		{"contains", Assertion{Type: AssertOutputContains, Text: "function main"}, ""},
		{"does not contain", Assertion{Type: AssertOutputContains, Text: "wait("}, "not found"},
		{"excludes", Assertion{Type: AssertOutputExcludes, Text: "wait("}, ""},
		{"does not exclude", Assertion{Type: AssertOutputExcludes, Text: "main"}, "found in"},
		{"pruned", Assertion{Type: AssertPruned, Functions: []string{"helper"}}, ""},
		{"not pruned", Assertion{Type: AssertPruned, Functions: []string{"main"}}, "pruned [helper]"},
		{"unknown", Assertion{Type: "final_state"}, "unknown assertion type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			if assert.Len(t, errs, 1) {
				assert.Contains(t, errs[0], tt.wantErr)
			}
		})
	}
}

func TestAssertionError_Error(t *testing.T) {
	err := &AssertionError{
		Type:     AssertPassCount,
		Expected: "2 events of prune",
		Actual:   "1 events",
		Events:   sampleResult().Events,
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: pass_count")
	assert.Contains(t, msg, "  Expected: 2 events of prune")
	assert.Contains(t, msg, "  [3] 1 value_number helper rolled-back")
	assert.Contains(t, msg, "  [4] 2 prune -")
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}

func TestSnapshot_Pruned(t *testing.T) {
	got := string(Snapshot("s", sampleResult()))
	assert.Contains(t, got, "scenario: s\n")
	assert.Contains(t, got, "pruned: functions=[helper] builtins=[]\n")
	assert.Contains(t, got, "program:\nfunction main () () sync {\n}\n")
}

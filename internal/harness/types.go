package harness

import "github.com/roach88/weft/internal/opt"

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	Iterations int  `json:"iterations"`
	Converged  bool `json:"converged"`
	Rollbacks  int  `json:"rollbacks"`

	// Events are the pass events read back from the journal, in order.
	Events []opt.Event `json:"events"`

	PrunedFunctions []string `json:"pruned_functions,omitempty"`
	PrunedBuiltins  []string `json:"pruned_builtins,omitempty"`

	// Output is the optimized program, pretty-printed.
	Output string `json:"output"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Events: []opt.Event{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

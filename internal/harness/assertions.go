package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/weft/internal/opt"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Events   []opt.Event // full pass sequence, for context
}

func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Events) > 0 {
		fmt.Fprintf(&buf, "\nPass sequence:\n")
		for i, ev := range e.Events {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, eventLine(ev))
		}
	}
	return buf.String()
}

// EvaluateAssertions checks each assertion and returns one message per
// failure.
func EvaluateAssertions(r *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(r, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(r *Result, a Assertion) error {
	switch a.Type {
	case AssertPassOrder:
		return assertPassOrder(r.Events, a)
	case AssertPassCount:
		return assertPassCount(r.Events, a)
	case AssertPassChanged:
		return assertPassChanged(r.Events, a)
	case AssertOutputContains:
		if !strings.Contains(r.Output, a.Text) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("output containing %q", a.Text),
				Actual:   "not found in:\n" + r.Output,
			}
		}
	case AssertOutputExcludes:
		if strings.Contains(r.Output, a.Text) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("output without %q", a.Text),
				Actual:   "found in:\n" + r.Output,
			}
		}
	case AssertPruned:
		for _, fn := range a.Functions {
			if !slices.Contains(r.PrunedFunctions, fn) {
				return &AssertionError{
					Type:     a.Type,
					Expected: fmt.Sprintf("functions %v pruned", a.Functions),
					Actual:   fmt.Sprintf("pruned %v", r.PrunedFunctions),
				}
			}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// assertPassOrder checks that the first event of each pass appears in the
// given order. Other events may come between them.
func assertPassOrder(events []opt.Event, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range events {
		if _, seen := positions[ev.Pass]; !seen {
			positions[ev.Pass] = i + 1 // 1-indexed for readability
		}
	}

	for _, pass := range a.Passes {
		if positions[pass] == 0 {
			return &AssertionError{
				Type:     AssertPassOrder,
				Expected: fmt.Sprintf("all passes present: %v", a.Passes),
				Actual:   fmt.Sprintf("missing pass: %s", pass),
				Events:   events,
			}
		}
	}
	for i := 1; i < len(a.Passes); i++ {
		prev, curr := a.Passes[i-1], a.Passes[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertPassOrder,
				Expected: fmt.Sprintf("passes in order: %v", a.Passes),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Events: events,
			}
		}
	}
	return nil
}

func matches(ev opt.Event, a Assertion) bool {
	return ev.Pass == a.Pass && (a.Function == "" || ev.Function == a.Function)
}

func describe(a Assertion) string {
	if a.Function != "" {
		return a.Pass + " on " + a.Function
	}
	return a.Pass
}

// assertPassCount checks the exact number of events of a pass.
func assertPassCount(events []opt.Event, a Assertion) error {
	count := 0
	for _, ev := range events {
		if matches(ev, a) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertPassCount,
			Expected: fmt.Sprintf("%d events of %s", a.Count, describe(a)),
			Actual:   fmt.Sprintf("%d events", count),
			Events:   events,
		}
	}
	return nil
}

// assertPassChanged checks that a pass changed the program at least once.
func assertPassChanged(events []opt.Event, a Assertion) error {
	for _, ev := range events {
		if matches(ev, a) && ev.Changed {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertPassChanged,
		Expected: fmt.Sprintf("%s to change the program", describe(a)),
		Actual:   "no change recorded",
		Events:   events,
	}
}

func eventLine(ev opt.Event) string {
	fn := ev.Function
	if fn == "" {
		fn = "-"
	}
	line := fmt.Sprintf("%d %s %s", ev.Iteration, ev.Pass, fn)
	if ev.RolledBack {
		line += " rolled-back"
	}
	return line
}

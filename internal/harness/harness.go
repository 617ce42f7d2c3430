package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/weft/internal/config"
	"github.com/roach88/weft/internal/fixture"
	"github.com/roach88/weft/internal/ic"
	"github.com/roach88/weft/internal/opt"
	"github.com/roach88/weft/internal/store"
)

// Harness runs scenarios. The zero value discards optimizer logs.
type Harness struct {
	logger *slog.Logger
}

// New creates a harness that logs to logger. A nil logger discards.
func New(logger *slog.Logger) *Harness {
	return &Harness{logger: logger}
}

// Run executes a scenario with a discarding logger.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	return New(nil).Run(ctx, s)
}

// Settings returns the settings a scenario runs with.
func Settings(s *Scenario) (config.Settings, error) {
	settings := config.Default()
	if s.Settings != "" {
		var err error
		if settings, err = config.Load(s.Settings); err != nil {
			return settings, err
		}
	}
	for _, name := range s.Skip {
		next, ok := settings.WithPass(name, false)
		if !ok {
			return settings, fmt.Errorf("unknown pass %q", name)
		}
		settings = next
	}
	return settings, nil
}

// Run executes s against a fresh in-memory journal. An error means the
// scenario could not run; failed checks are reported in the Result.
func (h *Harness) Run(ctx context.Context, s *Scenario) (*Result, error) {
	logger := h.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("scenario", s.Name)

	settings, err := Settings(s)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	prog, err := fixture.Load(s.Program)
	if err != nil {
		return nil, fmt.Errorf("failed to load program: %w", err)
	}

	st, err := store.Open(":memory:", store.WithIDGenerator(store.NewFixedGenerator(s.Name)))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	run, err := st.BeginRun(ctx, store.RunInfo{
		Program:          s.Name,
		Source:           s.Program,
		Settings:         settings,
		InputFingerprint: ic.Fingerprint(prog),
	})
	if err != nil {
		return nil, err
	}
	res, err := opt.Optimize(ctx, logger, settings, prog, run)
	if err != nil {
		return nil, fmt.Errorf("failed to optimize: %w", err)
	}
	if err := run.Finish(ctx, res); err != nil {
		return nil, err
	}
	events, err := st.ReadEvents(ctx, run.ID())
	if err != nil {
		return nil, err
	}

	result := NewResult()
	result.Iterations = res.Iterations
	result.Converged = res.Converged
	result.Rollbacks = res.Rollbacks
	result.Events = events
	result.PrunedFunctions = res.Pruned.Functions
	result.PrunedBuiltins = res.Pruned.Builtins
	result.Output = prog.String()

	for _, msg := range checkExpect(result, s.Expect) {
		result.AddError(msg)
	}
	for _, msg := range EvaluateAssertions(result, s.Assertions) {
		result.AddError(msg)
	}
	logger.Debug("scenario finished", "pass", result.Pass, "errors", len(result.Errors))
	return result, nil
}

func checkExpect(r *Result, e *ExpectClause) []string {
	if e == nil {
		return nil
	}
	var errs []string
	if e.Converged != nil && *e.Converged != r.Converged {
		errs = append(errs, fmt.Sprintf("expected converged=%t, got %t", *e.Converged, r.Converged))
	}
	if e.Iterations != nil && *e.Iterations != r.Iterations {
		errs = append(errs, fmt.Sprintf("expected %d iteration(s), got %d", *e.Iterations, r.Iterations))
	}
	if e.Rollbacks != nil && *e.Rollbacks != r.Rollbacks {
		errs = append(errs, fmt.Sprintf("expected %d rollback(s), got %d", *e.Rollbacks, r.Rollbacks))
	}
	return errs
}

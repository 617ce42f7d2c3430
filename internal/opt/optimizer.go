package opt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/weft/internal/config"
	"github.com/roach88/weft/internal/ic"
	"github.com/roach88/weft/internal/refcount"
	"github.com/roach88/weft/internal/valuenumber"
)

// Pass names as reported in events.
const (
	PassValueNumber = "value_number"
	PassRefcount    = "refcount"
	PassDeadCode    = "dead_code"
	PassPipeline    = "pipeline"
	PassPrune       = "prune"
)

// Event describes one pass applied to one function, or to the program
// when Function is empty.
type Event struct {
	Iteration   int    `json:"iteration"`
	Pass        string `json:"pass"`
	Function    string `json:"function,omitempty"`
	Changed     bool   `json:"changed"`
	RolledBack  bool   `json:"rolled_back,omitempty"`
	Detail      string `json:"detail,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

// Journal receives events as the optimizer runs.
type Journal interface {
	Record(ctx context.Context, e Event) error
}

// Result summarizes a run.
type Result struct {
	Iterations  int
	Converged   bool
	Rollbacks   int
	Fingerprint uint64

	ValueNumber valuenumber.Stats
	Refcount    refcount.Stats
	DeadCode    DCEStats
	Pipeline    PipelineStats
	Pruned      PruneStats
}

type driver struct {
	logger   *slog.Logger
	settings config.Settings
	prog     *ic.Program
	journal  Journal
	result   Result
}

// Optimize runs the enabled passes over p in place. Value numbering,
// refcount placement and dead code elimination repeat until the program
// stops changing or MaxIterations is reached; pipelining, a final dead code
// pass and pruning follow once.
//
// A function on which value numbering reports an unsafe optimization is
// restored to its state before that pass. Errors are returned only for
// cancellation and journal failures.
func Optimize(ctx context.Context, logger *slog.Logger, settings config.Settings, p *ic.Program, journal Journal) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &driver{logger: logger, settings: settings, prog: p, journal: journal}

	maxIter := max(settings.MaxIterations, 1)
	for iter := 1; iter <= maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return d.result, err
		}
		d.result.Iterations = iter
		before := ic.Fingerprint(p)
		for _, f := range p.Functions {
			if err := d.iterate(ctx, iter, f); err != nil {
				return d.result, err
			}
		}
		if ic.Fingerprint(p) == before {
			d.result.Converged = true
			break
		}
	}
	if !d.result.Converged {
		logger.Warn("optimization did not converge", "iterations", maxIter)
	}

	final := d.result.Iterations + 1
	if settings.Passes.Pipeline {
		for _, f := range p.Functions {
			if err := ctx.Err(); err != nil {
				return d.result, err
			}
			err := d.function(ctx, final, PassPipeline, f, func() string {
				s := Pipeline(logger, f)
				d.result.Pipeline.Fused += s.Fused
				d.result.Pipeline.Deferred += s.Deferred
				return fmt.Sprintf("fused=%d deferred=%d", s.Fused, s.Deferred)
			})
			if err != nil {
				return d.result, err
			}
		}
	}
	if settings.Passes.DeadCode {
		for _, f := range p.Functions {
			if err := d.deadCode(ctx, final, f); err != nil {
				return d.result, err
			}
		}
	}

	if settings.Passes.Prune {
		if err := ctx.Err(); err != nil {
			return d.result, err
		}
		before := ic.Fingerprint(p)
		d.result.Pruned = PruneFunctions(logger, p, settings.Entry)
		err := d.record(ctx, Event{
			Iteration: final,
			Pass:      PassPrune,
			Changed:   ic.Fingerprint(p) != before,
			Detail:    fmt.Sprintf("functions=%v builtins=%v", d.result.Pruned.Functions, d.result.Pruned.Builtins),
		})
		if err != nil {
			return d.result, err
		}
	}

	d.result.Fingerprint = ic.Fingerprint(p)
	logger.Info("optimization finished",
		"iterations", d.result.Iterations,
		"converged", d.result.Converged,
		"rollbacks", d.result.Rollbacks,
		"fingerprint", ic.FormatFingerprint(d.result.Fingerprint))
	return d.result, nil
}

func (d *driver) iterate(ctx context.Context, iter int, f *ic.Function) error {
	if d.settings.Passes.ValueNumber {
		if err := d.valueNumber(ctx, iter, f); err != nil {
			return err
		}
	}
	if d.settings.Passes.Refcount {
		err := d.function(ctx, iter, PassRefcount, f, func() string {
			s := refcount.Optimize(d.logger, d.settings.Refcount, f)
			d.result.Refcount.Add(s)
			return fmt.Sprintf("candidates=%d emitted=%d piggybacked=%d cancelled=%d",
				s.Candidates, s.Emitted, s.Piggybacked, s.Cancelled)
		})
		if err != nil {
			return err
		}
	}
	if d.settings.Passes.DeadCode {
		return d.deadCode(ctx, iter, f)
	}
	return nil
}

func (d *driver) valueNumber(ctx context.Context, iter int, f *ic.Function) error {
	snapshot := f.Clone()
	before := ic.FunctionFingerprint(f)
	stats, err := valuenumber.Optimize(d.logger, d.prog, f)
	e := Event{Iteration: iter, Pass: PassValueNumber, Function: f.Name}
	switch {
	case errors.Is(err, valuenumber.ErrOptUnsafe):
		f.Restore(snapshot)
		d.result.Rollbacks++
		d.logger.Warn("abandoned unsafe optimization", "function", f.Name, "error", err)
		e.RolledBack = true
		e.Detail = err.Error()
	case err != nil:
		return err
	default:
		d.result.ValueNumber.Add(stats)
		e.Detail = fmt.Sprintf("replaced=%d folded=%d inlined=%d", stats.Replaced, stats.Folded, stats.Inlined)
	}
	e.Changed = ic.FunctionFingerprint(f) != before
	e.Fingerprint = ic.FormatFingerprint(ic.FunctionFingerprint(f))
	return d.emit(ctx, e)
}

func (d *driver) deadCode(ctx context.Context, iter int, f *ic.Function) error {
	return d.function(ctx, iter, PassDeadCode, f, func() string {
		s := EliminateDeadCode(d.logger, f)
		d.result.DeadCode.Iterations += s.Iterations
		d.result.DeadCode.RemovedVars += s.RemovedVars
		d.result.DeadCode.RemovedNoops += s.RemovedNoops
		d.result.DeadCode.RemovedByName = append(d.result.DeadCode.RemovedByName, s.RemovedByName...)
		return fmt.Sprintf("vars=%d noops=%d", s.RemovedVars, s.RemovedNoops)
	})
}

// function runs one pass over f and records it.
func (d *driver) function(ctx context.Context, iter int, pass string, f *ic.Function, run func() string) error {
	before := ic.FunctionFingerprint(f)
	detail := run()
	after := ic.FunctionFingerprint(f)
	return d.emit(ctx, Event{
		Iteration:   iter,
		Pass:        pass,
		Function:    f.Name,
		Changed:     after != before,
		Detail:      detail,
		Fingerprint: ic.FormatFingerprint(after),
	})
}

func (d *driver) record(ctx context.Context, e Event) error {
	e.Fingerprint = ic.FormatFingerprint(ic.Fingerprint(d.prog))
	return d.emit(ctx, e)
}

func (d *driver) emit(ctx context.Context, e Event) error {
	if e.Changed {
		d.logger.Debug("pass changed function", "pass", e.Pass, "function", e.Function, "iteration", e.Iteration)
	}
	if d.journal == nil {
		return nil
	}
	if err := d.journal.Record(ctx, e); err != nil {
		return fmt.Errorf("journal %s: %w", e.Pass, err)
	}
	return nil
}

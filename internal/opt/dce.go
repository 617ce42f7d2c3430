package opt

import (
	"log/slog"

	"github.com/roach88/weft/internal/ic"
)

// DCEStats counts what dead code elimination removed.
type DCEStats struct {
	Iterations    int
	RemovedVars   int
	RemovedNoops  int
	RemovedByName []string
}

// EliminateDeadCode removes vars nothing needs, the side-effect-free
// instructions that only define them, and continuations left empty. It runs
// to a fixed point.
func EliminateDeadCode(logger *slog.Logger, f *ic.Function) DCEStats {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("pass", "dead-code", "function", f.Name)
	var stats DCEStats
	for {
		stats.Iterations++
		removed := unneededVars(f)
		if len(removed) > 0 {
			f.MainBlock.RemoveVars(removed)
			dropRefcounts(f.MainBlock, removed)
			stats.RemovedVars += len(removed)
			stats.RemovedByName = append(stats.RemovedByName, removed.Names()...)
			logger.Debug("removed vars", "vars", removed.Names())
		}
		noops := removeNoops(f.MainBlock)
		stats.RemovedNoops += noops
		if len(removed) == 0 && noops == 0 {
			return stats
		}
	}
}

func unneededVars(f *ic.Function) ic.VarSet {
	return f.MainBlock.UnneededVars(append(append([]*ic.Var(nil), f.Outputs...), f.Inputs...)...)
}

// removeNoops drops continuations with nothing to execute, deepest first.
func removeNoops(b *ic.Block) int {
	n := 0
	for _, c := range b.AllContinuations() {
		for _, blk := range c.Blocks() {
			if blk != nil {
				n += removeNoops(blk)
			}
		}
	}
	stmts := b.Statements[:0]
	for _, s := range b.Statements {
		if c, ok := s.(ic.Continuation); ok && c.IsNoop() {
			n++
			continue
		}
		stmts = append(stmts, s)
	}
	b.Statements = stmts
	for _, c := range append([]ic.Continuation(nil), b.Continuations...) {
		if c.IsNoop() {
			b.RemoveContinuation(c)
			n++
		}
	}
	return n
}

// dropRefcounts removes refcount instructions on removed vars, which
// RemoveVars keeps because they have side effects.
func dropRefcounts(b *ic.Block, removed ic.VarSet) {
	ic.Walk(b, ic.Visitor{Block: func(b *ic.Block) {
		stmts := b.Statements[:0]
		for _, s := range b.Statements {
			if in, ok := s.(*ic.Instruction); ok && in.Op.IsRefcount() {
				if v, _ := in.RefcountTarget(); removed.Has(v) {
					continue
				}
			}
			stmts = append(stmts, s)
		}
		b.Statements = stmts
	}})
}

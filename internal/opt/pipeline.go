package opt

import (
	"log/slog"

	"github.com/roach88/weft/internal/ic"
)

// Transfer costs of passing a var of each kind into a spawned task.
const (
	costFile    = 20
	costBlob    = 5
	costFuture  = 1
	costValue   = 0
	costUnknown = 1
)

// PipelineStats counts fused waits.
type PipelineStats struct {
	Fused    int
	Deferred int
}

// Pipeline fuses one unblocked wait per block into the block itself, so
// the work runs in the parent task instead of being spawned. Run it once
// near the end of optimization: each application removes a dispatch point
// and repeated runs serialize work that could run in parallel.
func Pipeline(logger *slog.Logger, f *ic.Function) PipelineStats {
	if logger == nil {
		logger = slog.Default()
	}
	p := &pipeliner{logger: logger.With("pass", "pipeline", "function", f.Name)}
	p.block(f.MainBlock, functionContext(f))
	return p.stats
}

type pipeliner struct {
	logger *slog.Logger
	stats  PipelineStats
}

func functionContext(f *ic.Function) ic.ExecContext {
	if f.Mode == ic.TaskWorker {
		return ic.ContextWorker
	}
	return ic.ContextControl
}

func (p *pipeliner) block(b *ic.Block, cx ic.ExecContext) {
	for _, c := range b.AllContinuations() {
		childCx := c.ChildContext(cx)
		for _, blk := range c.Blocks() {
			if blk != nil {
				p.block(blk, childCx)
			}
		}
	}

	var candidates []*ic.Wait
	for _, c := range b.Continuations {
		w, ok := c.(*ic.Wait)
		if !ok {
			continue
		}
		if len(w.Vars) > 0 || w.ChildContext(cx) != cx || w.IsParallel() || w.HasLocation() {
			continue
		}
		candidates = append(candidates, w)
	}
	if len(candidates) == 0 {
		return
	}

	best := candidates[0]
	if len(candidates) > 1 {
		bestCost := p.cost(best)
		for _, w := range candidates[1:] {
			if c := p.cost(w); c < bestCost {
				best, bestCost = w, c
			}
		}
	}

	b.RemoveContinuation(best)
	if len(candidates) == 1 {
		best.InlineInto(b)
	} else {
		// Local work must not delay spawning the other tasks.
		nested := ic.NewNestedBlock()
		best.InlineInto(nested.Block)
		nested.SetRunLast(true)
		b.AddContinuation(nested)
		p.stats.Deferred++
	}
	p.stats.Fused++
	p.logger.Debug("fused wait", "candidates", len(candidates), "block", b.Kind.String())
}

// cost sums the transfer cost of vars read in the wait body that are
// declared outside it.
func (p *pipeliner) cost(w *ic.Wait) int {
	read := make(ic.VarSet)
	declared := make(ic.VarSet)
	ic.WalkSyncChildren(w.Block, ic.Visitor{
		Block: func(b *ic.Block) { declared.AddAll(b.Vars) },
		Instruction: func(in *ic.Instruction) {
			read.AddAll(ic.VarsOf(in.Inputs))
		},
	})
	total := 0
	for _, v := range read.Sorted() {
		if !declared.Has(v) {
			total += p.passingCost(v.Type)
		}
	}
	return total
}

func (p *pipeliner) passingCost(t *ic.Type) int {
	switch {
	case t.IsFile():
		return costFile
	case t.IsBlob():
		return costBlob
	case t.IsPrimFuture(), t.IsRef(), t.IsArray():
		return costFuture
	case t.IsPrimValue():
		return costValue
	case t.IsStruct():
		total := 0
		for _, f := range t.Fields {
			total += p.passingCost(f.Type)
		}
		return total
	}
	p.logger.Warn("no passing cost for type", "type", t.String())
	return costUnknown
}

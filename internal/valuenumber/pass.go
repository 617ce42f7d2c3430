package valuenumber

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/roach88/weft/internal/ic"
)

// Stats counts the rewrites made by one run of Optimize.
type Stats struct {
	Replaced int
	Folded   int
	Inlined  int
}

// Total returns the number of rewrites.
func (s Stats) Total() int { return s.Replaced + s.Folded + s.Inlined }

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Replaced += o.Replaced
	s.Folded += o.Folded
	s.Inlined += o.Inlined
}

type pass struct {
	logger *slog.Logger
	prog   *ic.Program
	fn     *ic.Function
	stats  Stats
}

// Optimize runs value numbering over f, mutating it in place.
//
// An error wrapping ErrOptUnsafe leaves f partially rewritten; the caller
// must restore it from a snapshot.
func Optimize(logger *slog.Logger, prog *ic.Program, f *ic.Function) (Stats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &pass{logger: logger.With("pass", "value-number", "function", f.Name), prog: prog, fn: f}
	state := NewCongruences(p.logger, prog, f.Name)
	state.Declare(f.Inputs...)
	state.Declare(f.Outputs...)
	for _, v := range f.BlockingInputs() {
		state.MarkClosed(v, 0, false)
	}
	if err := p.block(f.MainBlock, state); err != nil {
		return p.stats, fmt.Errorf("value numbering %s: %w", f.Name, err)
	}
	return p.stats, nil
}

func (p *pass) block(b *ic.Block, state *Congruences) error {
	state.Declare(b.Vars...)
	i := 0
	for {
		for ; i < len(b.Statements); i++ {
			switch s := b.Statements[i].(type) {
			case *ic.Instruction:
				if err := p.instruction(b, i, s, state); err != nil {
					return err
				}
			case ic.Continuation:
				inlined, err := p.conditional(b, i, s, state)
				if err != nil {
					return err
				}
				if inlined {
					i--
				}
			}
		}

		inlined := false
		for j := 0; j < len(b.Continuations); j++ {
			c := b.Continuations[j]
			p.renameHeader(c, state, len(b.Statements))
			blk := p.tryInline(c, state, len(b.Statements))
			if blk == nil {
				continue
			}
			p.logger.Debug("inlined continuation", "kind", c.Kind().String())
			b.RemoveContinuation(c)
			b.InsertInline(blk, -1)
			state.Declare(blk.Vars...)
			p.stats.Inlined++
			inlined = true
			j--
		}
		if !inlined {
			break
		}
	}

	idx := len(b.Statements)
	for _, c := range b.Continuations {
		if err := p.continuation(c, state, idx); err != nil {
			return err
		}
	}
	return nil
}

// valueRenamed reports instructions whose inputs may be replaced by value.
// The rest use their inputs as handles and admit only alias replacement.
func valueRenamed(in *ic.Instruction) bool {
	switch in.Op {
	case ic.OpStore, ic.OpLoad, ic.OpAsyncOp, ic.OpLocalOp, ic.OpCallFunc,
		ic.OpCallForeign, ic.OpLoopContinue:
		return true
	}
	return false
}

func (p *pass) instruction(b *ic.Block, i int, in *ic.Instruction, state *Congruences) error {
	if in.Op == ic.OpComment || in.Op.IsRefcount() {
		// Refcounts belong to storage, not values.
		return nil
	}
	p.replaceInputs(in, state)

	if folded, ok := Fold(state, in); ok {
		p.logger.Debug("folded", "from", in.String(), "to", folded.String())
		b.Statements[i] = folded
		in = folded
		p.stats.Folded++
	}
	if in.Op == ic.OpAsyncOp && in.Builtin != ic.BuiltinCopy {
		p.constantOperands(in, state)
	}

	for _, vl := range in.Results() {
		if err := state.Update(vl, i); err != nil {
			return err
		}
	}
	return nil
}

func (p *pass) replaceInputs(in *ic.Instruction, state *Congruences) {
	renames := make(ic.Renames)
	for _, v := range in.InputVars() {
		if r, ok := state.Replacement(ic.CongAlias, v); ok {
			renames[v.Name] = r
			continue
		}
		if !valueRenamed(in) {
			continue
		}
		if r, ok := state.Replacement(ic.CongValue, v); ok {
			renames[v.Name] = r
		}
	}
	if len(renames) == 0 {
		return
	}
	before := in.String()
	in.RenameVars(renames, ic.RenameInputs)
	if after := in.String(); after != before {
		p.logger.Debug("replaced inputs", "from", before, "to", after)
		p.stats.Replaced++
	}
}

// constantOperands replaces future inputs of an async builtin with the
// literals they are known to hold.
func (p *pass) constantOperands(in *ic.Instruction, state *Congruences) {
	for k, a := range in.Inputs {
		if !a.IsVar() || !a.Var.Type.IsPrimFuture() {
			continue
		}
		if val, ok := state.ConstantValue(a); ok {
			in.Inputs[k] = val
			p.stats.Replaced++
		}
	}
}

// conditional handles an If or Switch at statement i. inlined is true when
// the statement was replaced by its predicted branch.
func (p *pass) conditional(b *ic.Block, i int, c ic.Continuation, state *Congruences) (bool, error) {
	switch c := c.(type) {
	case *ic.If:
		c.Cond = p.valueArg(c.Cond, state)
	case *ic.Switch:
		c.Cond = p.valueArg(c.Cond, state)
	}
	if blk := c.TryInline(nil, nil, false); blk != nil {
		p.logger.Debug("predicted branch", "kind", c.Kind().String())
		b.RemoveStatement(i)
		b.InsertInline(blk, i)
		state.Declare(blk.Vars...)
		p.stats.Inlined++
		return true, nil
	}

	var branches []*Congruences
	for _, blk := range c.Blocks() {
		if blk == nil {
			continue
		}
		child := state.EnterContinuation(i)
		if err := p.block(blk, child); err != nil {
			return false, err
		}
		branches = append(branches, child)
	}
	if c.IsExhaustiveSyncConditional() && len(branches) > 0 {
		p.unifyClosed(branches, state, i+1)
	}
	return false, nil
}

// unifyClosed marks closed in the parent every var closed on all branches.
func (p *pass) unifyClosed(branches []*Congruences, state *Congruences, stmtIndex int) {
	for _, v := range branches[0].ScopeClosed(false) {
		if !state.accessible(v) {
			continue
		}
		all, rec := true, true
		for _, br := range branches {
			if !br.IsClosed(v, math.MaxInt) {
				all = false
				break
			}
			rec = rec && br.IsRecClosed(v, math.MaxInt)
		}
		if all {
			p.logger.Debug("closed on all branches", "var", v.Name, "recursive", rec)
			state.MarkClosed(v, stmtIndex, rec)
		}
	}
}

func (p *pass) valueArg(a ic.Arg, state *Congruences) ic.Arg {
	if !a.IsVar() {
		return a
	}
	if r, ok := state.Replacement(ic.CongValue, a.Var); ok {
		p.stats.Replaced++
		return r
	}
	return a
}

func (p *pass) varArg(v *ic.Var, typ ic.CongruenceType, state *Congruences) *ic.Var {
	if r, ok := state.Replacement(typ, v); ok && r.IsVar() {
		p.stats.Replaced++
		return r.Var
	}
	return v
}

// renameHeader applies replacements to the vars a continuation reads
// before its body runs. Bodies are handled by their own walk.
func (p *pass) renameHeader(c ic.Continuation, state *Congruences, stmtIndex int) {
	switch c := c.(type) {
	case *ic.Wait:
		var vars []ic.WaitVar
		seen := make(map[string]int)
		for _, wv := range c.Vars {
			v := wv.Var
			if r, ok := state.Replacement(ic.CongValue, v); ok {
				switch {
				case r.IsVar():
					v = r.Var
					p.stats.Replaced++
				case !wv.Explicit && state.IsClosed(v, stmtIndex):
					// Known and closed: nothing left to wait for.
					p.stats.Replaced++
					continue
				}
			}
			if k, ok := seen[v.Name]; ok {
				vars[k].Explicit = vars[k].Explicit || wv.Explicit
				continue
			}
			seen[v.Name] = len(vars)
			vars = append(vars, ic.WaitVar{Var: v, Explicit: wv.Explicit})
		}
		c.Vars = vars
		for k, a := range c.Props {
			c.Props[k] = p.valueArg(a, state)
		}
	case *ic.Loop:
		for k, a := range c.InitVals {
			if !a.IsVar() {
				continue
			}
			r, ok := state.Replacement(ic.CongValue, a.Var)
			if ok && (r.IsVar() || c.LoopVars[k].Type.IsPrimValue()) {
				c.InitVals[k] = r
				p.stats.Replaced++
			}
		}
	case *ic.Foreach:
		c.Container = p.varArg(c.Container, ic.CongAlias, state)
	case *ic.RangeLoop:
		c.Start = p.valueArg(c.Start, state)
		c.End = p.valueArg(c.End, state)
		c.Step = p.valueArg(c.Step, state)
	}
	var extra []*ic.Var
	for _, v := range c.PassedVars() {
		if r, ok := state.Replacement(ic.CongValue, v); ok && r.IsVar() {
			extra = append(extra, r.Var)
		}
	}
	if len(extra) > 0 {
		c.AddPassedVars(extra...)
	}
}

func (p *pass) tryInline(c ic.Continuation, state *Congruences, stmtIndex int) *ic.Block {
	if w, ok := c.(*ic.Wait); ok {
		vars := w.WaitVarList()
		closed := state.ClosedSet(vars, stmtIndex, false)
		recClosed := state.ClosedSet(vars, stmtIndex, true)
		return w.TryInline(closed, recClosed, false)
	}
	return c.TryInline(ic.NewVarSet(), ic.NewVarSet(), false)
}

func (p *pass) continuation(c ic.Continuation, state *Congruences, stmtIndex int) error {
	for _, blk := range c.Blocks() {
		if blk == nil {
			continue
		}
		var child *Congruences
		if _, ok := c.(*ic.Loop); ok {
			child = state.EnterLoop()
		} else {
			child = state.EnterContinuation(stmtIndex)
		}
		child.Declare(c.ConstructDefinedVars()...)
		switch c := c.(type) {
		case *ic.Wait:
			for _, v := range c.WaitVarList() {
				child.MarkClosed(v, 0, c.Recursive)
			}
		case *ic.Loop:
			child.Declare(c.LoopVars...)
			for k, v := range c.LoopVars {
				if c.Blocking[k] {
					child.MarkClosed(v, 0, false)
				}
			}
		}
		if err := p.block(blk, child); err != nil {
			return err
		}
	}
	return nil
}

package fixture

import (
	"fmt"

	"github.com/roach88/weft/internal/ic"
)

func (b *builder) block(dst *ic.Block, bd BlockDoc, sc *scope, at string) error {
	for i, vd := range bd.Vars {
		v, err := b.declare(sc, vd, ic.DefLocalUser, fmt.Sprintf("%s.vars[%d]", at, i))
		if err != nil {
			return err
		}
		dst.Declare(v)
	}
	for i, sd := range bd.Statements {
		s, err := b.statement(sc, sd, fmt.Sprintf("%s.statements[%d]", at, i))
		if err != nil {
			return err
		}
		dst.Add(s)
	}
	for i, cd := range bd.Continuations {
		c, err := b.continuation(sc, cd, fmt.Sprintf("%s.continuations[%d]", at, i))
		if err != nil {
			return err
		}
		dst.AddContinuation(c)
	}
	for i, cu := range bd.Cleanups {
		cat := fmt.Sprintf("%s.cleanups[%d]", at, i)
		v, err := b.lookup(sc, cu.Var, cat)
		if err != nil {
			return err
		}
		in, err := b.instruction(sc, cu.InstructionDoc, cat)
		if err != nil {
			return err
		}
		dst.AddCleanup(v, in)
	}
	return nil
}

func (b *builder) statement(sc *scope, sd StatementDoc, at string) (ic.Statement, error) {
	set := 0
	if sd.Op != "" {
		set++
	}
	if sd.If != nil {
		set++
	}
	if sd.Switch != nil {
		set++
	}
	if set != 1 {
		return nil, invalid(at, "statement needs exactly one of op, if, switch")
	}
	switch {
	case sd.If != nil:
		cond, err := b.arg(sc, sd.If.Cond, at+".if.cond")
		if err != nil {
			return nil, err
		}
		c := ic.NewIf(cond)
		if err := b.block(c.Then, sd.If.Then, sc.child(), at+".if.then"); err != nil {
			return nil, err
		}
		if err := b.block(c.Else, sd.If.Else, sc.child(), at+".if.else"); err != nil {
			return nil, err
		}
		return c, nil
	case sd.Switch != nil:
		return b.switchStatement(sc, sd.Switch, at+".switch")
	}
	return b.instruction(sc, sd.InstructionDoc, at)
}

func (b *builder) switchStatement(sc *scope, sd *SwitchDoc, at string) (*ic.Switch, error) {
	cond, err := b.arg(sc, sd.Cond, at+".cond")
	if err != nil {
		return nil, err
	}
	labels := make([]int64, len(sd.Cases))
	seen := make(map[int64]bool)
	for i, cd := range sd.Cases {
		if seen[cd.Label] {
			return nil, invalid(fmt.Sprintf("%s.cases[%d]", at, i), "duplicate label %d", cd.Label)
		}
		seen[cd.Label] = true
		labels[i] = cd.Label
	}
	c := ic.NewSwitch(cond, labels, sd.Default != nil)
	for i, cd := range sd.Cases {
		if err := b.block(c.Cases[i], cd.Block, sc.child(), fmt.Sprintf("%s.cases[%d]", at, i)); err != nil {
			return nil, err
		}
	}
	if sd.Default != nil {
		if err := b.block(c.Default, *sd.Default, sc.child(), at+".default"); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (b *builder) continuation(sc *scope, cd ContinuationDoc, at string) (c ic.Continuation, err error) {
	defer func() {
		if r := recover(); r != nil {
			c, err = nil, invalid(at, "%v", r)
		}
	}()
	set := 0
	for _, ok := range []bool{cd.Wait != nil, cd.Loop != nil, cd.Foreach != nil, cd.Range != nil, cd.Nested != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, invalid(at, "continuation needs exactly one of wait, loop, foreach, range, nested")
	}
	switch {
	case cd.Wait != nil:
		c, err = b.wait(sc, cd.Wait, at+".wait")
	case cd.Loop != nil:
		c, err = b.loop(sc, cd.Loop, at+".loop")
	case cd.Foreach != nil:
		c, err = b.foreach(sc, cd.Foreach, at+".foreach")
	case cd.Range != nil:
		c, err = b.rangeLoop(sc, cd.Range, at+".range")
	default:
		n := ic.NewNestedBlock()
		err = b.block(n.Block, *cd.Nested, sc.child(), at+".nested")
		c = n
	}
	if err != nil {
		return nil, err
	}
	passed, err := b.lookupAll(sc, cd.Passed, at+".passed")
	if err != nil {
		return nil, err
	}
	keepOpen, err := b.lookupAll(sc, cd.KeepOpen, at+".keep_open")
	if err != nil {
		return nil, err
	}
	c.AddPassedVars(passed...)
	c.AddKeepOpenVars(keepOpen...)
	c.SetRunLast(cd.RunLast)
	return c, nil
}

func (b *builder) wait(sc *scope, wd *WaitDoc, at string) (*ic.Wait, error) {
	var vars []ic.WaitVar
	for _, group := range []struct {
		names    []string
		explicit bool
	}{{wd.Vars, false}, {wd.Explicit, true}} {
		for _, name := range group.names {
			v, err := b.lookup(sc, name, at+".vars")
			if err != nil {
				return nil, err
			}
			vars = append(vars, ic.WaitVar{Var: v, Explicit: group.explicit})
		}
	}
	mode := ic.WaitOnly
	switch wd.Mode {
	case "", ic.WaitOnly.String():
	case ic.WaitTaskDispatch.String():
		mode = ic.WaitTaskDispatch
	default:
		return nil, invalid(at, "unknown wait mode %s", wd.Mode)
	}
	target := ic.TaskLocal
	if wd.Target != "" {
		t, ok := ic.ParseTaskMode(wd.Target)
		if !ok {
			return nil, invalid(at, "unknown task mode %s", wd.Target)
		}
		target = t
	}
	var props ic.TaskProps
	for key, o := range wd.Props {
		k := ic.TaskPropKey(key)
		if k != ic.PropParallelism && k != ic.PropLocation {
			return nil, invalid(at+".props", "unknown task property %s", key)
		}
		a, err := b.arg(sc, o, at+".props."+key)
		if err != nil {
			return nil, err
		}
		if props == nil {
			props = make(ic.TaskProps)
		}
		props[k] = a
	}
	w := ic.NewWait(wd.Proc, vars, mode, wd.Recursive, target, props)
	if err := b.block(w.Block, wd.Block, sc.child(), at+".block"); err != nil {
		return nil, err
	}
	return w, nil
}

func (b *builder) loop(sc *scope, ld *LoopDoc, at string) (*ic.Loop, error) {
	if ld.Name == "" {
		return nil, invalid(at, "name is required")
	}
	body := sc.child()
	n := len(ld.Vars)
	vars := make([]*ic.Var, n)
	definedHere := make([]bool, n)
	inits := make([]ic.Arg, n)
	blocking := make([]bool, n)
	for i, lv := range ld.Vars {
		vat := fmt.Sprintf("%s.vars[%d]", at, i)
		init, err := b.arg(sc, lv.Init, vat+".init")
		if err != nil {
			return nil, err
		}
		var v *ic.Var
		if lv.Outer {
			if v, err = b.lookup(sc, lv.Name, vat); err != nil {
				return nil, err
			}
			body.vars[v.Name] = v
		} else if v, err = b.declare(body, lv.VarDoc, ic.DefLocalCompiler, vat); err != nil {
			return nil, err
		}
		vars[i], definedHere[i], inits[i], blocking[i] = v, !lv.Outer, init, lv.Blocking
	}
	blk := ic.NewBlock(ic.BlockLoopBody)
	if err := b.block(blk, ld.Block, body, at+".block"); err != nil {
		return nil, err
	}
	return ic.NewLoop(ld.Name, vars, definedHere, inits, blocking, blk), nil
}

func (b *builder) foreach(sc *scope, fd *ForeachDoc, at string) (*ic.Foreach, error) {
	container, err := b.lookup(sc, fd.Container, at+".container")
	if err != nil {
		return nil, err
	}
	body := sc.child()
	member, err := b.declare(body, fd.Member, ic.DefLocalCompiler, at+".member")
	if err != nil {
		return nil, err
	}
	var key *ic.Var
	if fd.Key != nil {
		if key, err = b.declare(body, *fd.Key, ic.DefLocalCompiler, at+".key"); err != nil {
			return nil, err
		}
	}
	c := ic.NewForeach(container, member, key, fd.Split)
	if err := b.block(c.Body, fd.Block, body, at+".block"); err != nil {
		return nil, err
	}
	return c, nil
}

func (b *builder) rangeLoop(sc *scope, rd *RangeDoc, at string) (*ic.RangeLoop, error) {
	start, err := b.arg(sc, rd.Start, at+".start")
	if err != nil {
		return nil, err
	}
	end, err := b.arg(sc, rd.End, at+".end")
	if err != nil {
		return nil, err
	}
	step := ic.IntArg(1)
	if rd.Step != nil {
		if step, err = b.arg(sc, *rd.Step, at+".step"); err != nil {
			return nil, err
		}
	}
	vd := rd.Var
	if vd.Type == "" {
		vd.Type = "$int"
	}
	body := sc.child()
	v, err := b.declare(body, vd, ic.DefLocalCompiler, at+".var")
	if err != nil {
		return nil, err
	}
	c := ic.NewRangeLoop(v, start, end, step, rd.Split)
	if err := b.block(c.Body, rd.Block, body, at+".block"); err != nil {
		return nil, err
	}
	return c, nil
}

func (b *builder) instruction(sc *scope, id InstructionDoc, at string) (in *ic.Instruction, err error) {
	defer func() {
		if r := recover(); r != nil {
			in, err = nil, invalid(at, "%v", r)
		}
	}()
	op, ok := ic.ParseOpcode(id.Op)
	if !ok {
		return nil, invalid(at, "unknown op %q", id.Op)
	}
	outs, err := b.lookupAll(sc, id.Out, at+".out")
	if err != nil {
		return nil, err
	}
	ins, err := b.args(sc, id.In, at+".in")
	if err != nil {
		return nil, err
	}
	shape := func(nOut, nIn int) error {
		if len(outs) != nOut || len(ins) != nIn {
			return invalid(at, "%s takes %d outputs and %d inputs, got %d and %d", op, nOut, nIn, len(outs), len(ins))
		}
		return nil
	}
	inVar := func(i int) (*ic.Var, error) {
		if !ins[i].IsVar() {
			return nil, invalid(at, "%s input %d must be a variable", op, i)
		}
		return ins[i].Var, nil
	}

	switch op {
	case ic.OpComment:
		in = ic.Comment(id.Text)
	case ic.OpStore:
		if err = shape(1, 1); err == nil {
			in = ic.Store(outs[0], ins[0])
		}
	case ic.OpLoad, ic.OpStoreRef, ic.OpLoadRef, ic.OpCopyRef:
		if err = shape(1, 1); err != nil {
			break
		}
		var src *ic.Var
		if src, err = inVar(0); err != nil {
			break
		}
		switch op {
		case ic.OpLoad:
			in = ic.Load(outs[0], src)
			in.Decr = id.Decr
		case ic.OpStoreRef:
			in = ic.StoreRef(outs[0], src)
		case ic.OpLoadRef:
			in = ic.LoadRef(outs[0], src)
		default:
			in = ic.CopyRef(outs[0], src)
		}
	case ic.OpAsyncOp, ic.OpLocalOp:
		bop := ic.BuiltinOp(id.Builtin)
		if !bop.IsKnown() {
			return nil, invalid(at, "unknown builtin %q", id.Builtin)
		}
		if len(outs) > 1 {
			return nil, invalid(at, "%s has at most one output", op)
		}
		var out *ic.Var
		if len(outs) == 1 {
			out = outs[0]
		}
		if op == ic.OpAsyncOp {
			in = ic.AsyncOp(bop, out, ins...)
		} else {
			in = ic.LocalOp(bop, out, ins...)
		}
	case ic.OpArrayStore:
		if err = shape(1, 2); err != nil {
			break
		}
		var member *ic.Var
		if member, err = inVar(1); err == nil {
			in = ic.ArrayStore(outs[0], ins[0], member)
		}
	case ic.OpArrayLookup:
		if err = shape(1, 2); err != nil {
			break
		}
		var arr *ic.Var
		if arr, err = inVar(0); err == nil {
			in = ic.ArrayLookup(outs[0], arr, ins[1])
		}
	case ic.OpStructLookup:
		if err = shape(1, 1); err != nil {
			break
		}
		var s *ic.Var
		if s, err = inVar(0); err == nil {
			in = ic.StructLookup(outs[0], s, id.Field)
		}
	case ic.OpCallFunc:
		in = ic.CallFunc(id.Func, outs, ins)
	case ic.OpCallForeign:
		in = ic.CallForeign(id.Func, outs, ins, id.Impure)
	case ic.OpIncrReaders, ic.OpDecrReaders, ic.OpIncrWriters, ic.OpDecrWriters:
		if err = shape(0, 2); err != nil {
			break
		}
		var v *ic.Var
		if v, err = inVar(0); err == nil {
			in = ic.Refcount(op, v, ins[1])
		}
	case ic.OpLoopContinue:
		in = ic.LoopContinue(id.Func, ins)
	case ic.OpLoopBreak:
		in = ic.LoopBreak(id.Func)
	}
	if err != nil {
		return nil, err
	}
	if op == ic.OpCallFunc || op == ic.OpCallForeign || op == ic.OpLoopContinue || op == ic.OpLoopBreak {
		if id.Func == "" {
			return nil, invalid(at, "%s needs func", op)
		}
	}
	if in.Passed, err = b.lookupAll(sc, id.Passed, at+".passed"); err != nil {
		return nil, err
	}
	if in.KeepOpen, err = b.lookupAll(sc, id.KeepOpen, at+".keep_open"); err != nil {
		return nil, err
	}
	return in, nil
}

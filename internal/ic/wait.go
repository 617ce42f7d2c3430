package ic

import (
	"log/slog"
	"strings"
)

// WaitMode says whether a wait exists only to synchronize or also marks a
// point where a task must be dispatched.
type WaitMode int

const (
	WaitOnly WaitMode = iota
	WaitTaskDispatch
)

func (m WaitMode) String() string {
	if m == WaitTaskDispatch {
		return "task_dispatch"
	}
	return "wait_only"
}

// WaitVar is a var a Wait blocks on. Explicit waits come from the source
// program and are kept even when the optimizer could drop them.
type WaitVar struct {
	Var      *Var
	Explicit bool
}

// Wait runs its block once all wait vars are closed.
type Wait struct {
	contBase
	ProcName  string
	Vars      []WaitVar
	Mode      WaitMode
	Recursive bool
	Target    TaskMode
	Props     TaskProps
	Block     *Block
}

// NewWait creates a wait with an empty block. Duplicate wait vars are
// merged; a merged var is explicit if any copy was.
func NewWait(procName string, vars []WaitVar, mode WaitMode, recursive bool, target TaskMode, props TaskProps) *Wait {
	return &Wait{
		ProcName:  procName,
		Vars:      dedupWaitVars(vars),
		Mode:      mode,
		Recursive: recursive,
		Target:    target,
		Props:     props.Clone(),
		Block:     NewBlock(BlockWait),
	}
}

func dedupWaitVars(vars []WaitVar) []WaitVar {
	var out []WaitVar
	index := make(map[string]int, len(vars))
	for _, wv := range vars {
		if i, ok := index[wv.Var.Name]; ok {
			out[i].Explicit = out[i].Explicit || wv.Explicit
			continue
		}
		index[wv.Var.Name] = len(out)
		out = append(out, wv)
	}
	return out
}

// WaitVarList returns the vars waited on.
func (w *Wait) WaitVarList() []*Var {
	out := make([]*Var, len(w.Vars))
	for i, wv := range w.Vars {
		out[i] = wv.Var
	}
	return out
}

// IsParallel reports a parallelism property other than a literal
// greater than one.
func (w *Wait) IsParallel() bool {
	p, ok := w.Props[PropParallelism]
	return ok && !(p.Kind == ArgInt && p.Int > 1)
}

// HasLocation reports a placement constraint.
func (w *Wait) HasLocation() bool {
	_, ok := w.Props[PropLocation]
	return ok
}

func (w *Wait) Kind() ContinuationKind            { return KindWait }
func (w *Wait) Blocks() []*Block                  { return []*Block{w.Block} }
func (w *Wait) IsAsync() bool                     { return true }
func (w *Wait) IsLoop() bool                      { return w.IsParallel() }
func (w *Wait) IsConditional() bool               { return false }
func (w *Wait) IsExhaustiveSyncConditional() bool { return false }
func (w *Wait) ConstructDefinedVars() []*Var      { return nil }
func (w *Wait) IsNoop() bool                      { return w.Block.IsEmpty() }
func (w *Wait) BlockingVars() []*Var              { return w.WaitVarList() }

// RequiredVars returns the wait vars (only explicit ones when forDCE) and
// vars used as task properties.
func (w *Wait) RequiredVars(forDCE bool) []*Var {
	var out []*Var
	for _, wv := range w.Vars {
		if !forDCE || wv.Explicit {
			out = append(out, wv.Var)
		}
	}
	return append(out, w.Props.Vars()...)
}

func (w *Wait) ChildContext(outer ExecContext) ExecContext {
	switch w.Target {
	case TaskControl:
		return ContextControl
	case TaskWorker:
		return ContextWorker
	}
	return outer
}

// RenameVars renames wait vars; a wait var replaced by a literal is
// dropped since literals are always closed.
func (w *Wait) RenameVars(renames Renames, mode RenameMode) {
	w.renameBase(renames)
	var vars []WaitVar
	for _, wv := range w.Vars {
		rep := renames.Arg(VarArg(wv.Var))
		if rep.IsVar() {
			vars = append(vars, WaitVar{Var: rep.Var, Explicit: wv.Explicit})
		}
	}
	w.Vars = dedupWaitVars(vars)
	w.Props.rename(renames)
	w.Block.RenameVars(renames, mode)
}

func (w *Wait) RemoveVars(removed VarSet) {
	w.removeBase(removed)
	var vars []WaitVar
	for _, wv := range w.Vars {
		if !removed.Has(wv.Var) {
			vars = append(vars, wv)
		}
	}
	w.Vars = vars
	w.Block.RemoveVars(removed)
}

func (w *Wait) recursionRequired(v *Var) bool {
	return w.Recursive && !v.Type.IsPrimFuture()
}

// TryInline drops wait vars already known closed and returns the block
// if nothing is left to wait on and the wait is not a dispatch point,
// not parallel and not placed.
func (w *Wait) TryInline(closed, recClosed VarSet, keepExplicit bool) *Block {
	varsLeft := false
	var kept []WaitVar
	for _, wv := range w.Vars {
		switch {
		case keepExplicit && wv.Explicit:
			varsLeft = true
			kept = append(kept, wv)
		case (closed.Has(wv.Var) && !w.recursionRequired(wv.Var)) || recClosed.Has(wv.Var):
		default:
			varsLeft = true
			kept = append(kept, wv)
		}
	}
	w.Vars = kept
	if varsLeft || w.Mode == WaitTaskDispatch || w.IsParallel() || w.HasLocation() {
		return nil
	}
	return w.Block
}

// InlineInto appends the wait's body to b.
func (w *Wait) InlineInto(b *Block) {
	b.InsertInline(w.Block, -1)
}

func (w *Wait) Clone() Continuation {
	return &Wait{
		contBase:  w.clone(),
		ProcName:  w.ProcName,
		Vars:      append([]WaitVar(nil), w.Vars...),
		Mode:      w.Mode,
		Recursive: w.Recursive,
		Target:    w.Target,
		Props:     w.Props.Clone(),
		Block:     w.Block.Clone(),
	}
}

func (w *Wait) Generate(logger *slog.Logger, b Backend, info *GenInfo) {
	b.StartWait(w.ProcName, w.WaitVarList(), w.passed, w.keepOpen, w.Recursive, w.Target, w.Props)
	w.Block.Generate(logger, b, info)
	b.EndWait()
}

func (w *Wait) Pretty(sb *strings.Builder, indent string) {
	names := make([]string, len(w.Vars))
	for i, wv := range w.Vars {
		names[i] = wv.Var.Name
		if wv.Explicit {
			names[i] += "!"
		}
	}
	header := "wait(" + strings.Join(names, ", ") + ")"
	if w.ProcName != "" {
		header += " " + w.ProcName
	}
	if w.Recursive {
		header += " recursive"
	}
	if w.Mode == WaitTaskDispatch {
		header += " dispatch"
	}
	header += " " + w.Target.String()
	if len(w.Props) > 0 {
		header += " " + w.Props.String()
	}
	sb.WriteString(indent + header + baseSuffix(&w.contBase) + " {\n")
	w.Block.Pretty(sb, indent+Indent)
	sb.WriteString(indent + "}\n")
}

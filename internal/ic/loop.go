package ic

import (
	"fmt"
	"log/slog"
	"strings"
)

// Loop is an asynchronous loop. Each iteration runs the body; the body
// ends every path with exactly one loop_continue (next iteration values
// for LoopVars) or loop_break.
type Loop struct {
	contBase
	Name        string
	LoopVars    []*Var
	DefinedHere []bool
	InitVals    []Arg
	Blocking    []bool
	Body        *Block

	continueInst *Instruction
	breakInst    *Instruction
}

// NewLoop creates a loop over body. The four per-variable lists must have
// equal length; each initial value must have its loop var's type. The
// body must contain this loop's continue and break.
func NewLoop(name string, loopVars []*Var, definedHere []bool, initVals []Arg, blocking []bool, body *Block) *Loop {
	n := len(loopVars)
	if len(definedHere) != n || len(initVals) != n || len(blocking) != n {
		panic(fmt.Sprintf("NewLoop %s: per-variable lists differ in length (%d/%d/%d/%d)",
			name, n, len(definedHere), len(initVals), len(blocking)))
	}
	for i, v := range loopVars {
		if !initTypeMatches(v, initVals[i]) {
			panic(fmt.Sprintf("NewLoop %s: initial value %s (%s) does not match %s",
				name, initVals[i], initVals[i].Type(), v.Declaration()))
		}
	}
	l := &Loop{
		Name:        name,
		LoopVars:    append([]*Var(nil), loopVars...),
		DefinedHere: append([]bool(nil), definedHere...),
		InitVals:    append([]Arg(nil), initVals...),
		Blocking:    append([]bool(nil), blocking...),
		Body:        body,
	}
	l.linkTerminators()
	return l
}

func initTypeMatches(v *Var, init Arg) bool {
	if init.IsVar() {
		return init.Var.Type.Equal(v.Type)
	}
	t := v.Type
	return (t.IsPrimFuture() || t.IsPrimValue()) && t.Prim == init.Prim()
}

// linkTerminators finds this loop's continue and break, not descending
// into inner loops.
func (l *Loop) linkTerminators() {
	l.continueInst, l.breakInst = nil, nil
	l.findTerminators(l.Body)
	if l.continueInst == nil || l.breakInst == nil {
		panic(fmt.Sprintf("loop %s: body must contain both loop_continue and loop_break", l.Name))
	}
	if len(l.continueInst.Inputs) != len(l.LoopVars) {
		panic(fmt.Sprintf("loop %s: loop_continue has %d values for %d loop vars",
			l.Name, len(l.continueInst.Inputs), len(l.LoopVars)))
	}
}

func (l *Loop) findTerminators(b *Block) {
	for _, s := range b.Statements {
		switch s := s.(type) {
		case *Instruction:
			l.checkTerminator(s)
		case Continuation:
			l.searchContinuation(s)
		}
	}
	for _, c := range b.Continuations {
		l.searchContinuation(c)
	}
}

func (l *Loop) searchContinuation(c Continuation) {
	if c.IsLoop() {
		return
	}
	for _, child := range c.Blocks() {
		l.findTerminators(child)
	}
}

func (l *Loop) checkTerminator(in *Instruction) {
	switch in.Op {
	case OpLoopContinue:
		if l.continueInst != nil {
			panic(fmt.Sprintf("loop %s: duplicate loop_continue", l.Name))
		}
		l.continueInst = in
	case OpLoopBreak:
		if l.breakInst != nil {
			panic(fmt.Sprintf("loop %s: duplicate loop_break", l.Name))
		}
		l.breakInst = in
	}
}

// ContinueInstruction returns the linked loop_continue.
func (l *Loop) ContinueInstruction() *Instruction { return l.continueInst }

// BreakInstruction returns the linked loop_break.
func (l *Loop) BreakInstruction() *Instruction { return l.breakInst }

func (l *Loop) Kind() ContinuationKind            { return KindLoop }
func (l *Loop) Blocks() []*Block                  { return []*Block{l.Body} }
func (l *Loop) IsAsync() bool                     { return true }
func (l *Loop) IsLoop() bool                      { return true }
func (l *Loop) IsConditional() bool               { return false }
func (l *Loop) IsExhaustiveSyncConditional() bool { return false }
func (l *Loop) IsNoop() bool                      { return false }

func (l *Loop) TryInline(VarSet, VarSet, bool) *Block { return nil }

func (l *Loop) ChildContext(outer ExecContext) ExecContext { return outer }

// RequiredVars returns the initial values.
func (l *Loop) RequiredVars(bool) []*Var { return VarsOf(l.InitVals) }

// BlockingVars returns the initial values flagged blocking.
func (l *Loop) BlockingVars() []*Var {
	var out []*Var
	for i, a := range l.InitVals {
		if l.Blocking[i] && a.IsVar() {
			out = append(out, a.Var)
		}
	}
	return out
}

func (l *Loop) ConstructDefinedVars() []*Var {
	var out []*Var
	for i, v := range l.LoopVars {
		if l.DefinedHere[i] {
			out = append(out, v)
		}
	}
	return out
}

func (l *Loop) AddPassedVars(vars ...*Var) {
	l.contBase.AddPassedVars(vars...)
	l.continueInst.Passed = appendUnique(l.continueInst.Passed, vars)
	l.breakInst.Passed = appendUnique(l.breakInst.Passed, vars)
}

func (l *Loop) AddKeepOpenVars(vars ...*Var) {
	l.contBase.AddKeepOpenVars(vars...)
	l.continueInst.KeepOpen = appendUnique(l.continueInst.KeepOpen, vars)
	l.breakInst.KeepOpen = appendUnique(l.breakInst.KeepOpen, vars)
}

func (l *Loop) RenameVars(renames Renames, mode RenameMode) {
	l.renameBase(renames)
	renames.args(l.InitVals)
	if mode == RenameReplace {
		renames.vars(l.LoopVars)
	}
	l.Body.RenameVars(renames, mode)
}

// RemoveVars panics if asked to remove a loop var or initial value.
func (l *Loop) RemoveVars(removed VarSet) {
	for _, v := range l.LoopVars {
		if removed.Has(v) {
			panic(fmt.Sprintf("loop %s: cannot remove loop var %s", l.Name, v.Name))
		}
	}
	for _, v := range VarsOf(l.InitVals) {
		if removed.Has(v) {
			panic(fmt.Sprintf("loop %s: cannot remove initial value %s", l.Name, v.Name))
		}
	}
	l.removeBase(removed)
	l.Body.RemoveVars(removed)
}

func (l *Loop) Clone() Continuation {
	c := &Loop{
		contBase:    l.clone(),
		Name:        l.Name,
		LoopVars:    append([]*Var(nil), l.LoopVars...),
		DefinedHere: append([]bool(nil), l.DefinedHere...),
		InitVals:    append([]Arg(nil), l.InitVals...),
		Blocking:    append([]bool(nil), l.Blocking...),
		Body:        l.Body.Clone(),
	}
	c.linkTerminators()
	return c
}

func (l *Loop) Generate(logger *slog.Logger, b Backend, info *GenInfo) {
	b.StartLoop(l.Name, l.LoopVars, l.DefinedHere, l.InitVals, l.Blocking, l.passed, l.keepOpen)
	l.Body.Generate(logger, b, info)
	b.EndLoop()
}

func (l *Loop) Pretty(sb *strings.Builder, indent string) {
	parts := make([]string, len(l.LoopVars))
	for i, v := range l.LoopVars {
		p := v.Name + " = " + l.InitVals[i].String()
		if l.Blocking[i] {
			p += " blocking"
		}
		parts[i] = p
	}
	sb.WriteString(indent + "loop " + l.Name + "(" + strings.Join(parts, ", ") + ")" + baseSuffix(&l.contBase) + " {\n")
	l.Body.Pretty(sb, indent+Indent)
	sb.WriteString(indent + "}\n")
}

func baseSuffix(c *contBase) string {
	s := ""
	if len(c.passed) > 0 {
		s += " passed<" + strings.Join(VarNames(c.passed), ", ") + ">"
	}
	if len(c.keepOpen) > 0 {
		s += " keepopen<" + strings.Join(VarNames(c.keepOpen), ", ") + ">"
	}
	if c.runLast {
		s += " runlast"
	}
	return s
}

package backend

import (
	"fmt"
	"strings"

	"github.com/roach88/weft/internal/ic"
)

// Listing records Backend calls as text lines.
type Listing struct {
	lines []string
	depth int
}

var _ ic.Backend = (*Listing)(nil)

// NewListing creates an empty listing.
func NewListing() *Listing {
	return &Listing{}
}

// Lines returns the recorded lines.
func (l *Listing) Lines() []string { return l.lines }

// String joins the lines with newlines.
func (l *Listing) String() string {
	if len(l.lines) == 0 {
		return ""
	}
	return strings.Join(l.lines, "\n") + "\n"
}

func (l *Listing) emit(format string, args ...any) {
	l.lines = append(l.lines, strings.Repeat("  ", l.depth)+fmt.Sprintf(format, args...))
}

func (l *Listing) open(format string, args ...any) {
	l.emit(format, args...)
	l.depth++
}

func (l *Listing) close(format string, args ...any) {
	if l.depth == 0 {
		panic(fmt.Sprintf("listing: unbalanced %q", fmt.Sprintf(format, args...)))
	}
	l.depth--
	l.emit(format, args...)
}

func names(vars []*ic.Var) string {
	return strings.Join(ic.VarNames(vars), " ")
}

func args(as []ic.Arg) string {
	parts := make([]string, len(as))
	for i, a := range as {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}

func optName(v *ic.Var) string {
	if v == nil {
		return "-"
	}
	return v.Name
}

func deltas(ds []ic.RefcountDelta) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = d.String()
	}
	return strings.Join(parts, ", ")
}

func (l *Listing) Header()                    { l.emit("header") }
func (l *Listing) RequirePackage(name string) { l.emit("require %s", name) }
func (l *Listing) DefineBuiltin(b *ic.Builtin) {
	l.emit("builtin %s impure=%t", b.Name, b.Impure)
}
func (l *Listing) DefineGlobalConst(v *ic.Var, val ic.Arg) {
	l.emit("global %s = %s", v.Name, val)
}

func (l *Listing) StartFunction(name string, outputs, inputs []*ic.Var, mode ic.TaskMode) {
	l.open("function %s out[%s] in[%s] %s", name, names(outputs), names(inputs), mode)
}
func (l *Listing) EndFunction() { l.close("end function") }

func (l *Listing) Declare(v *ic.Var)   { l.emit("declare %s", v.Declaration()) }
func (l *Listing) Comment(text string) { l.emit("# %s", text) }

func (l *Listing) AssignInt(dst *ic.Var, src ic.Arg)    { l.emit("assign_int %s %s", dst, src) }
func (l *Listing) AssignFloat(dst *ic.Var, src ic.Arg)  { l.emit("assign_float %s %s", dst, src) }
func (l *Listing) AssignString(dst *ic.Var, src ic.Arg) { l.emit("assign_string %s %s", dst, src) }
func (l *Listing) AssignBool(dst *ic.Var, src ic.Arg)   { l.emit("assign_bool %s %s", dst, src) }
func (l *Listing) AssignVoid(dst *ic.Var, src ic.Arg)   { l.emit("assign_void %s %s", dst, src) }
func (l *Listing) AssignBlob(dst *ic.Var, src ic.Arg)   { l.emit("assign_blob %s %s", dst, src) }
func (l *Listing) AssignFile(dst *ic.Var, src ic.Arg)   { l.emit("assign_file %s %s", dst, src) }

func (l *Listing) retrieve(kind string, dst, src *ic.Var, decr int64) {
	if decr != 0 {
		l.emit("retrieve_%s %s %s decr=%d", kind, dst, src, decr)
		return
	}
	l.emit("retrieve_%s %s %s", kind, dst, src)
}

func (l *Listing) RetrieveInt(dst, src *ic.Var, decr int64)    { l.retrieve("int", dst, src, decr) }
func (l *Listing) RetrieveFloat(dst, src *ic.Var, decr int64)  { l.retrieve("float", dst, src, decr) }
func (l *Listing) RetrieveString(dst, src *ic.Var, decr int64) { l.retrieve("string", dst, src, decr) }
func (l *Listing) RetrieveBool(dst, src *ic.Var, decr int64)   { l.retrieve("bool", dst, src, decr) }
func (l *Listing) RetrieveVoid(dst, src *ic.Var, decr int64)   { l.retrieve("void", dst, src, decr) }
func (l *Listing) RetrieveBlob(dst, src *ic.Var, decr int64)   { l.retrieve("blob", dst, src, decr) }
func (l *Listing) RetrieveFile(dst, src *ic.Var, decr int64)   { l.retrieve("file", dst, src, decr) }

func (l *Listing) AssignRef(ref, target *ic.Var) { l.emit("assign_ref %s %s", ref, target) }
func (l *Listing) RetrieveRef(dst, ref *ic.Var)  { l.emit("retrieve_ref %s %s", dst, ref) }
func (l *Listing) MakeAlias(dst, src *ic.Var)    { l.emit("alias %s %s", dst, src) }
func (l *Listing) ArrayInsert(arr *ic.Var, index ic.Arg, member *ic.Var) {
	l.emit("array_insert %s[%s] %s", arr, index, member)
}
func (l *Listing) ArrayLookup(dst, arr *ic.Var, index ic.Arg) {
	l.emit("array_lookup %s %s[%s]", dst, arr, index)
}
func (l *Listing) StructLookup(dst, s *ic.Var, field string) {
	l.emit("struct_lookup %s %s.%s", dst, s, field)
}

func (l *Listing) AsyncOp(op ic.BuiltinOp, out *ic.Var, inputs []ic.Arg) {
	l.emit("async_op %s %s [%s]", op, optName(out), args(inputs))
}
func (l *Listing) LocalOp(op ic.BuiltinOp, out *ic.Var, inputs []ic.Arg) {
	l.emit("local_op %s %s [%s]", op, optName(out), args(inputs))
}
func (l *Listing) CallFunction(name string, outputs []*ic.Var, inputs []ic.Arg, blocking []bool, mode ic.TaskMode) {
	l.emit("call %s out[%s] in[%s] blocking%v %s", name, names(outputs), args(inputs), blocking, mode)
}
func (l *Listing) CallForeign(name string, outputs []*ic.Var, inputs []ic.Arg) {
	l.emit("call_foreign %s out[%s] in[%s]", name, names(outputs), args(inputs))
}

func (l *Listing) IncrReaders(v *ic.Var, amount ic.Arg) { l.emit("incr_readers %s %s", v, amount) }
func (l *Listing) DecrReaders(v *ic.Var, amount ic.Arg) { l.emit("decr_readers %s %s", v, amount) }
func (l *Listing) IncrWriters(v *ic.Var, amount ic.Arg) { l.emit("incr_writers %s %s", v, amount) }
func (l *Listing) DecrWriters(v *ic.Var, amount ic.Arg) { l.emit("decr_writers %s %s", v, amount) }

func (l *Listing) StartNestedBlock() { l.open("begin") }
func (l *Listing) EndNestedBlock()   { l.close("end") }

func (l *Listing) StartIf(cond ic.Arg, hasElse bool) { l.open("if %s", cond) }
func (l *Listing) StartElse() {
	l.close("else")
	l.depth++
}
func (l *Listing) EndIf() { l.close("end if") }

func (l *Listing) StartSwitch(cond ic.Arg, labels []int64, hasDefault bool) {
	l.open("switch %s cases%v default=%t", cond, labels, hasDefault)
	l.depth++
}
func (l *Listing) EndCase() {
	l.depth--
	l.emit("end case")
	l.depth++
}
func (l *Listing) EndSwitch() {
	l.depth--
	l.close("end switch")
}

func (l *Listing) StartWait(procName string, waitVars, passed, keepOpen []*ic.Var, recursive bool, target ic.TaskMode, props ic.TaskProps) {
	parts := []string{"wait"}
	if procName != "" {
		parts = append(parts, procName)
	}
	parts = append(parts, fmt.Sprintf("[%s] passed[%s] keepopen[%s] recursive=%t %s",
		names(waitVars), names(passed), names(keepOpen), recursive, target))
	if len(props) > 0 {
		parts = append(parts, props.String())
	}
	l.open("%s", strings.Join(parts, " "))
}
func (l *Listing) EndWait() { l.close("end wait") }

func (l *Listing) StartLoop(name string, loopVars []*ic.Var, definedHere []bool, initVals []ic.Arg, blocking []bool, passed, keepOpen []*ic.Var) {
	l.open("loop %s vars[%s] init[%s] blocking%v passed[%s] keepopen[%s]",
		name, names(loopVars), args(initVals), blocking, names(passed), names(keepOpen))
}
func (l *Listing) LoopContinue(newVals []ic.Arg, passed, keepOpen []*ic.Var) {
	l.emit("loop_continue [%s]", args(newVals))
}
func (l *Listing) LoopBreak(passed, keepOpen []*ic.Var) { l.emit("loop_break") }
func (l *Listing) EndLoop()                             { l.close("end loop") }

func (l *Listing) StartForeach(container, member, key *ic.Var, splitDegree int, startIncrs []ic.RefcountDelta, passed []*ic.Var) {
	l.open("foreach %s key=%s in %s split=%d incr[%s]", member, optName(key), container, splitDegree, deltas(startIncrs))
}
func (l *Listing) EndForeach(perIterDecrs []ic.RefcountDelta) {
	l.close("end foreach decr[%s]", deltas(perIterDecrs))
}

func (l *Listing) StartRangeLoop(loopVar *ic.Var, start, end, step ic.Arg, splitDegree int, startIncrs []ic.RefcountDelta, passed []*ic.Var) {
	l.open("range %s %s..%s step %s split=%d incr[%s]", loopVar, start, end, step, splitDegree, deltas(startIncrs))
}
func (l *Listing) EndRangeLoop(perIterDecrs []ic.RefcountDelta) {
	l.close("end range decr[%s]", deltas(perIterDecrs))
}

package ic

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Foreach runs its body once per member of an array, after the array is
// closed. StartIncrements are applied once before iterating;
// PerIterDecrements at the end of every iteration.
type Foreach struct {
	contBase
	Container         *Var
	Member            *Var
	Key               *Var
	SplitDegree       int
	StartIncrements   []RefcountDelta
	PerIterDecrements []RefcountDelta
	Body              *Block
}

// NewForeach creates a foreach with an empty body. key may be nil.
func NewForeach(container, member, key *Var, splitDegree int) *Foreach {
	if !container.Type.IsArray() {
		panic(fmt.Sprintf("NewForeach: %s is not an array", container.Declaration()))
	}
	return &Foreach{
		Container:   container,
		Member:      member,
		Key:         key,
		SplitDegree: splitDegree,
		Body:        NewBlock(BlockForeachBody),
	}
}

func (f *Foreach) Kind() ContinuationKind            { return KindForeach }
func (f *Foreach) Blocks() []*Block                  { return []*Block{f.Body} }
func (f *Foreach) IsAsync() bool                     { return true }
func (f *Foreach) IsLoop() bool                      { return true }
func (f *Foreach) IsConditional() bool               { return false }
func (f *Foreach) IsExhaustiveSyncConditional() bool { return false }
func (f *Foreach) IsNoop() bool                      { return f.Body.IsEmpty() }
func (f *Foreach) BlockingVars() []*Var              { return []*Var{f.Container} }

func (f *Foreach) TryInline(VarSet, VarSet, bool) *Block { return nil }
func (f *Foreach) ChildContext(outer ExecContext) ExecContext {
	return outer
}

func (f *Foreach) RequiredVars(bool) []*Var {
	return appendUnique([]*Var{f.Container}, deltaVars(f.StartIncrements, f.PerIterDecrements))
}

func (f *Foreach) ConstructDefinedVars() []*Var {
	out := []*Var{f.Member}
	if f.Key != nil {
		out = append(out, f.Key)
	}
	return out
}

func (f *Foreach) RenameVars(renames Renames, mode RenameMode) {
	f.renameBase(renames)
	f.Container = renames.Var(f.Container)
	if mode == RenameReplace {
		f.Member = renames.Var(f.Member)
		if f.Key != nil {
			f.Key = renames.Var(f.Key)
		}
	}
	renameDeltas(f.StartIncrements, renames)
	renameDeltas(f.PerIterDecrements, renames)
	f.Body.RenameVars(renames, mode)
}

func (f *Foreach) RemoveVars(removed VarSet) {
	f.removeBase(removed)
	f.StartIncrements = removeDeltas(f.StartIncrements, removed)
	f.PerIterDecrements = removeDeltas(f.PerIterDecrements, removed)
	f.Body.RemoveVars(removed)
}

func (f *Foreach) Clone() Continuation {
	return &Foreach{
		contBase:          f.clone(),
		Container:         f.Container,
		Member:            f.Member,
		Key:               f.Key,
		SplitDegree:       f.SplitDegree,
		StartIncrements:   append([]RefcountDelta(nil), f.StartIncrements...),
		PerIterDecrements: append([]RefcountDelta(nil), f.PerIterDecrements...),
		Body:              f.Body.Clone(),
	}
}

func (f *Foreach) Generate(logger *slog.Logger, b Backend, info *GenInfo) {
	b.StartForeach(f.Container, f.Member, f.Key, f.SplitDegree, f.StartIncrements, f.passed)
	f.Body.Generate(logger, b, info)
	b.EndForeach(f.PerIterDecrements)
}

func (f *Foreach) Pretty(sb *strings.Builder, indent string) {
	header := "foreach " + f.Member.Name
	if f.Key != nil {
		header += ", " + f.Key.Name
	}
	header += " in " + f.Container.Name
	if f.SplitDegree > 0 {
		header += " split=" + strconv.Itoa(f.SplitDegree)
	}
	sb.WriteString(indent + header + deltaSuffix(f.StartIncrements, f.PerIterDecrements) + baseSuffix(&f.contBase) + " {\n")
	f.Body.Pretty(sb, indent+Indent)
	sb.WriteString(indent + "}\n")
}

// RangeLoop runs its body for LoopVar = Start, Start+Step, ... <= End.
type RangeLoop struct {
	contBase
	LoopVar           *Var
	Start, End, Step  Arg
	SplitDegree       int
	StartIncrements   []RefcountDelta
	PerIterDecrements []RefcountDelta
	Body              *Block
}

// NewRangeLoop creates a range loop with an empty body.
func NewRangeLoop(loopVar *Var, start, end, step Arg, splitDegree int) *RangeLoop {
	if !loopVar.Type.IsPrimValue() || loopVar.Type.Prim != PrimInt {
		panic(fmt.Sprintf("NewRangeLoop: loop var %s must be a local int", loopVar.Declaration()))
	}
	return &RangeLoop{
		LoopVar:     loopVar,
		Start:       start,
		End:         end,
		Step:        step,
		SplitDegree: splitDegree,
		Body:        NewBlock(BlockRangeBody),
	}
}

func (r *RangeLoop) Kind() ContinuationKind            { return KindRangeLoop }
func (r *RangeLoop) Blocks() []*Block                  { return []*Block{r.Body} }
func (r *RangeLoop) IsAsync() bool                     { return true }
func (r *RangeLoop) IsLoop() bool                      { return true }
func (r *RangeLoop) IsConditional() bool               { return false }
func (r *RangeLoop) IsExhaustiveSyncConditional() bool { return false }
func (r *RangeLoop) IsNoop() bool                      { return r.Body.IsEmpty() }
func (r *RangeLoop) BlockingVars() []*Var              { return nil }
func (r *RangeLoop) ConstructDefinedVars() []*Var      { return []*Var{r.LoopVar} }

func (r *RangeLoop) ChildContext(outer ExecContext) ExecContext {
	return outer
}

func (r *RangeLoop) RequiredVars(bool) []*Var {
	vars := VarsOf([]Arg{r.Start, r.End, r.Step})
	return appendUnique(vars, deltaVars(r.StartIncrements, r.PerIterDecrements))
}

// TryInline handles literal bounds: a single iteration becomes the body
// with the loop var replaced by the start value; no iterations becomes an
// empty block.
func (r *RangeLoop) TryInline(VarSet, VarSet, bool) *Block {
	if r.Start.Kind != ArgInt || r.End.Kind != ArgInt || r.Step.Kind != ArgInt || r.Step.Int <= 0 {
		return nil
	}
	if r.Start.Int > r.End.Int {
		return NewBlock(BlockRangeBody)
	}
	if r.Start.Int != r.End.Int && r.Start.Int+r.Step.Int <= r.End.Int {
		return nil
	}
	body := r.Body
	body.RenameVars(Renames{r.LoopVar.Name: r.Start}, RenameInputs)
	return body
}

func (r *RangeLoop) RenameVars(renames Renames, mode RenameMode) {
	r.renameBase(renames)
	r.Start = renames.Arg(r.Start)
	r.End = renames.Arg(r.End)
	r.Step = renames.Arg(r.Step)
	if mode == RenameReplace {
		r.LoopVar = renames.Var(r.LoopVar)
	}
	renameDeltas(r.StartIncrements, renames)
	renameDeltas(r.PerIterDecrements, renames)
	r.Body.RenameVars(renames, mode)
}

func (r *RangeLoop) RemoveVars(removed VarSet) {
	r.removeBase(removed)
	r.StartIncrements = removeDeltas(r.StartIncrements, removed)
	r.PerIterDecrements = removeDeltas(r.PerIterDecrements, removed)
	r.Body.RemoveVars(removed)
}

func (r *RangeLoop) Clone() Continuation {
	return &RangeLoop{
		contBase:          r.clone(),
		LoopVar:           r.LoopVar,
		Start:             r.Start,
		End:               r.End,
		Step:              r.Step,
		SplitDegree:       r.SplitDegree,
		StartIncrements:   append([]RefcountDelta(nil), r.StartIncrements...),
		PerIterDecrements: append([]RefcountDelta(nil), r.PerIterDecrements...),
		Body:              r.Body.Clone(),
	}
}

func (r *RangeLoop) Generate(logger *slog.Logger, b Backend, info *GenInfo) {
	b.StartRangeLoop(r.LoopVar, r.Start, r.End, r.Step, r.SplitDegree, r.StartIncrements, r.passed)
	r.Body.Generate(logger, b, info)
	b.EndRangeLoop(r.PerIterDecrements)
}

func (r *RangeLoop) Pretty(sb *strings.Builder, indent string) {
	header := fmt.Sprintf("range %s = %s to %s step %s", r.LoopVar.Name, r.Start, r.End, r.Step)
	if r.SplitDegree > 0 {
		header += " split=" + strconv.Itoa(r.SplitDegree)
	}
	sb.WriteString(indent + header + deltaSuffix(r.StartIncrements, r.PerIterDecrements) + baseSuffix(&r.contBase) + " {\n")
	r.Body.Pretty(sb, indent+Indent)
	sb.WriteString(indent + "}\n")
}

func deltaVars(lists ...[]RefcountDelta) []*Var {
	var out []*Var
	for _, l := range lists {
		for _, d := range l {
			out = appendUnique(out, []*Var{d.Var})
			if d.Amount.IsVar() {
				out = appendUnique(out, []*Var{d.Amount.Var})
			}
		}
	}
	return out
}

func renameDeltas(deltas []RefcountDelta, renames Renames) {
	for i := range deltas {
		deltas[i].Var = renames.Var(deltas[i].Var)
		deltas[i].Amount = renames.Arg(deltas[i].Amount)
	}
}

func removeDeltas(deltas []RefcountDelta, removed VarSet) []RefcountDelta {
	var out []RefcountDelta
	for _, d := range deltas {
		if !removed.Has(d.Var) {
			out = append(out, d)
		}
	}
	return out
}

func deltaSuffix(incrs, decrs []RefcountDelta) string {
	s := ""
	if len(incrs) > 0 {
		s += " incr<" + joinDeltas(incrs) + ">"
	}
	if len(decrs) > 0 {
		s += " decr<" + joinDeltas(decrs) + ">"
	}
	return s
}

func joinDeltas(ds []RefcountDelta) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = d.String()
	}
	return strings.Join(parts, ", ")
}

package ic

import (
	"fmt"
	"strings"
)

// Instruction is a single IC operation.
//
// Outputs are the vars written (for OpArrayStore, the array being
// inserted into). Inputs are read. Refcount instructions carry the target
// var and the amount as their two inputs.
type Instruction struct {
	Op      Opcode
	Builtin BuiltinOp // OpAsyncOp, OpLocalOp
	Func    string    // OpCallFunc, OpCallForeign; loop name for terminators
	Field   string    // OpStructLookup
	Text    string    // OpComment
	Impure  bool      // OpCallForeign

	Outputs []*Var
	Inputs  []Arg

	// Decr is a readers decrement piggybacked onto an OpLoad.
	Decr int64

	// Passed and KeepOpen are propagated to loop terminators from their loop.
	Passed   []*Var
	KeepOpen []*Var
}

func (*Instruction) statement() {}

// Comment creates a comment instruction.
func Comment(text string) *Instruction {
	return &Instruction{Op: OpComment, Text: text}
}

// Store assigns src to the future dst.
func Store(dst *Var, src Arg) *Instruction {
	if !dst.Type.IsPrimFuture() {
		panic(fmt.Sprintf("store: %s is not a primitive future", dst.Declaration()))
	}
	return &Instruction{Op: OpStore, Outputs: []*Var{dst}, Inputs: []Arg{src}}
}

// Load retrieves the value of future src into the local dst.
func Load(dst, src *Var) *Instruction {
	if !dst.Type.IsPrimValue() || !src.Type.IsPrimFuture() {
		panic(fmt.Sprintf("load: bad operand types %s <- %s", dst.Declaration(), src.Declaration()))
	}
	return &Instruction{Op: OpLoad, Outputs: []*Var{dst}, Inputs: []Arg{VarArg(src)}}
}

// StoreRef points the ref future ref at target.
func StoreRef(ref, target *Var) *Instruction {
	if !ref.Type.IsRef() {
		panic(fmt.Sprintf("store_ref: %s is not a ref", ref.Declaration()))
	}
	return &Instruction{Op: OpStoreRef, Outputs: []*Var{ref}, Inputs: []Arg{VarArg(target)}}
}

// LoadRef makes the alias dst name whatever ref points at.
func LoadRef(dst, ref *Var) *Instruction {
	if !ref.Type.IsRef() {
		panic(fmt.Sprintf("load_ref: %s is not a ref", ref.Declaration()))
	}
	return &Instruction{Op: OpLoadRef, Outputs: []*Var{dst}, Inputs: []Arg{VarArg(ref)}}
}

// CopyRef makes the alias dst name the storage of src.
func CopyRef(dst, src *Var) *Instruction {
	return &Instruction{Op: OpCopyRef, Outputs: []*Var{dst}, Inputs: []Arg{VarArg(src)}}
}

// AsyncOp applies op to futures. out is nil for ops without a result.
func AsyncOp(op BuiltinOp, out *Var, inputs ...Arg) *Instruction {
	return &Instruction{Op: OpAsyncOp, Builtin: op, Outputs: optVar(out), Inputs: inputs}
}

// LocalOp applies op to local values. out is nil for ops without a result.
func LocalOp(op BuiltinOp, out *Var, inputs ...Arg) *Instruction {
	return &Instruction{Op: OpLocalOp, Builtin: op, Outputs: optVar(out), Inputs: inputs}
}

// ArrayStore inserts member into arr at index.
func ArrayStore(arr *Var, index Arg, member *Var) *Instruction {
	if !arr.Type.IsArray() {
		panic(fmt.Sprintf("array_store: %s is not an array", arr.Declaration()))
	}
	return &Instruction{Op: OpArrayStore, Outputs: []*Var{arr}, Inputs: []Arg{index, VarArg(member)}}
}

// ArrayLookup makes the alias dst name arr[index].
func ArrayLookup(dst, arr *Var, index Arg) *Instruction {
	if !arr.Type.IsArray() {
		panic(fmt.Sprintf("array_lookup: %s is not an array", arr.Declaration()))
	}
	return &Instruction{Op: OpArrayLookup, Outputs: []*Var{dst}, Inputs: []Arg{VarArg(arr), index}}
}

// StructLookup makes the alias dst name field of s.
func StructLookup(dst, s *Var, field string) *Instruction {
	if _, ok := s.Type.FieldType(field); !ok {
		panic(fmt.Sprintf("struct_lookup: %s has no field %q", s.Declaration(), field))
	}
	return &Instruction{Op: OpStructLookup, Field: field, Outputs: []*Var{dst}, Inputs: []Arg{VarArg(s)}}
}

// CallFunc calls the program function name.
func CallFunc(name string, outputs []*Var, inputs []Arg) *Instruction {
	return &Instruction{Op: OpCallFunc, Func: name, Outputs: outputs, Inputs: inputs}
}

// CallForeign calls a backend builtin function.
func CallForeign(name string, outputs []*Var, inputs []Arg, impure bool) *Instruction {
	return &Instruction{Op: OpCallForeign, Func: name, Outputs: outputs, Inputs: inputs, Impure: impure}
}

// Refcount adjusts a refcount of v by amount.
func Refcount(op Opcode, v *Var, amount Arg) *Instruction {
	if !op.IsRefcount() {
		panic(fmt.Sprintf("Refcount: %s is not a refcount opcode", op))
	}
	return &Instruction{Op: op, Inputs: []Arg{VarArg(v), amount}}
}

// LoopContinue starts the next iteration of loop with newVals.
func LoopContinue(loop string, newVals []Arg) *Instruction {
	return &Instruction{Op: OpLoopContinue, Func: loop, Inputs: newVals}
}

// LoopBreak exits loop.
func LoopBreak(loop string) *Instruction {
	return &Instruction{Op: OpLoopBreak, Func: loop}
}

func optVar(v *Var) []*Var {
	if v == nil {
		return nil
	}
	return []*Var{v}
}

// Output returns the single output, or nil.
func (in *Instruction) Output() *Var {
	if len(in.Outputs) == 0 {
		return nil
	}
	return in.Outputs[0]
}

// RefcountTarget returns the var and amount of a refcount instruction.
func (in *Instruction) RefcountTarget() (*Var, Arg) {
	if !in.Op.IsRefcount() {
		panic(fmt.Sprintf("RefcountTarget on %s", in.Op))
	}
	return in.Inputs[0].Var, in.Inputs[1]
}

// InputVars returns the vars read by the instruction.
func (in *Instruction) InputVars() []*Var {
	vars := VarsOf(in.Inputs)
	vars = append(vars, in.Passed...)
	vars = append(vars, in.KeepOpen...)
	return vars
}

// ModifiedOutputs returns the vars written.
func (in *Instruction) ModifiedOutputs() []*Var {
	return in.Outputs
}

// ReadOutputs returns outputs that are also read by the instruction.
func (in *Instruction) ReadOutputs() []*Var {
	if in.Op == OpArrayStore {
		return in.Outputs
	}
	return nil
}

// InitializedAliases returns alias outputs bound by this instruction,
// as opposed to outputs whose storage is written.
func (in *Instruction) InitializedAliases() []*Var {
	switch in.Op {
	case OpLoadRef, OpCopyRef, OpArrayLookup, OpStructLookup:
		return in.Outputs
	}
	return nil
}

// ComponentOf reports that the output is a component of a whole.
func (in *Instruction) ComponentOf() (component, whole *Var, ok bool) {
	switch in.Op {
	case OpArrayLookup, OpStructLookup, OpLoadRef:
		return in.Outputs[0], in.Inputs[0].Var, true
	}
	return nil, nil, false
}

// HasSideEffects reports whether the instruction must run even if none
// of its outputs are needed.
func (in *Instruction) HasSideEffects() bool {
	switch in.Op {
	case OpCallFunc, OpLoopContinue, OpLoopBreak:
		return true
	case OpIncrReaders, OpDecrReaders, OpIncrWriters, OpDecrWriters:
		return true
	case OpCallForeign:
		return in.Impure || anyMapped(in.Outputs)
	case OpAsyncOp, OpLocalOp:
		return in.Builtin.IsImpure() || anyMapped(in.Outputs)
	case OpStore, OpArrayStore:
		return anyMapped(in.Outputs)
	}
	return false
}

func anyMapped(vars []*Var) bool {
	for _, v := range vars {
		if v.IsMapped() {
			return true
		}
	}
	return false
}

// Results returns the value facts established by running the instruction.
func (in *Instruction) Results() []ValLoc {
	switch in.Op {
	case OpStore:
		return []ValLoc{{
			Value:    NewCV(OpStore, "", in.Inputs[0]),
			Location: VarArg(in.Outputs[0]),
			Closed:   ClosedYesNotRecursive,
			IsAssign: AssignToLocation,
		}}
	case OpLoad:
		return []ValLoc{{
			Value:    NewCV(OpLoad, "", in.Inputs[0]),
			Location: VarArg(in.Outputs[0]),
			Closed:   ClosedYesRecursive,
		}}
	case OpStoreRef:
		return []ValLoc{{
			Value:    NewCV(OpStoreRef, "", in.Inputs[0]),
			Location: VarArg(in.Outputs[0]),
			Closed:   ClosedYesNotRecursive,
			IsAssign: AssignToLocation,
		}}
	case OpLoadRef, OpCopyRef:
		return []ValLoc{{
			Value:    NewCV(in.Op, "", in.Inputs[0]),
			Location: VarArg(in.Outputs[0]),
		}}
	case OpAsyncOp:
		if in.Builtin.IsImpure() || len(in.Outputs) != 1 {
			return nil
		}
		return []ValLoc{{
			Value:    NewCV(OpAsyncOp, string(in.Builtin), in.Inputs...),
			Location: VarArg(in.Outputs[0]),
			IsAssign: AssignToLocation,
		}}
	case OpLocalOp:
		if in.Builtin.IsImpure() || len(in.Outputs) != 1 {
			return nil
		}
		return []ValLoc{{
			Value:    NewCV(OpLocalOp, string(in.Builtin), in.Inputs...),
			Location: VarArg(in.Outputs[0]),
			Closed:   ClosedYesRecursive,
		}}
	case OpArrayStore:
		return []ValLoc{{
			Value:    NewCV(OpArrayLookup, "", VarArg(in.Outputs[0]), in.Inputs[0]),
			Location: in.Inputs[1],
			IsAssign: AssignToValue,
		}}
	case OpArrayLookup:
		return []ValLoc{{
			Value:    NewCV(OpArrayLookup, "", in.Inputs...),
			Location: VarArg(in.Outputs[0]),
		}}
	case OpStructLookup:
		return []ValLoc{{
			Value:    NewCV(OpStructLookup, in.Field, in.Inputs...),
			Location: VarArg(in.Outputs[0]),
		}}
	}
	return nil
}

// RenameMode selects which occurrences RenameVars rewrites.
type RenameMode int

const (
	// RenameInputs rewrites read occurrences only.
	RenameInputs RenameMode = iota
	// RenameReplace rewrites every occurrence, including definitions.
	RenameReplace
)

// Renames maps var names to their replacements.
type Renames map[string]Arg

// Arg returns the replacement for a, or a itself.
func (r Renames) Arg(a Arg) Arg {
	if !a.IsVar() {
		return a
	}
	if rep, ok := r[a.Var.Name]; ok {
		return rep
	}
	return a
}

// Var returns the var replacement for v. Replacements by literals are
// ignored.
func (r Renames) Var(v *Var) *Var {
	if rep, ok := r[v.Name]; ok && rep.IsVar() {
		return rep.Var
	}
	return v
}

func (r Renames) args(args []Arg) {
	for i, a := range args {
		args[i] = r.Arg(a)
	}
}

func (r Renames) vars(vars []*Var) {
	for i, v := range vars {
		vars[i] = r.Var(v)
	}
}

// RenameVars rewrites var occurrences.
func (in *Instruction) RenameVars(renames Renames, mode RenameMode) {
	if len(renames) == 0 {
		return
	}
	if in.Op.IsRefcount() {
		// Target is a handle and must stay a var.
		in.Inputs[0] = VarArg(renames.Var(in.Inputs[0].Var))
		in.Inputs[1] = renames.Arg(in.Inputs[1])
	} else if in.Op == OpArrayLookup || in.Op == OpStructLookup || in.Op == OpLoad ||
		in.Op == OpLoadRef || in.Op == OpCopyRef || in.Op == OpStoreRef {
		in.Inputs[0] = VarArg(renames.Var(in.Inputs[0].Var))
		renames.args(in.Inputs[1:])
	} else if in.Op == OpArrayStore {
		in.Inputs[0] = renames.Arg(in.Inputs[0])
		in.Inputs[1] = VarArg(renames.Var(in.Inputs[1].Var))
	} else {
		renames.args(in.Inputs)
	}
	renames.vars(in.Passed)
	renames.vars(in.KeepOpen)
	if mode == RenameReplace {
		renames.vars(in.Outputs)
	}
}

// Clone returns a copy that shares no slices with in.
func (in *Instruction) Clone() *Instruction {
	c := *in
	c.Outputs = append([]*Var(nil), in.Outputs...)
	c.Inputs = append([]Arg(nil), in.Inputs...)
	c.Passed = append([]*Var(nil), in.Passed...)
	c.KeepOpen = append([]*Var(nil), in.KeepOpen...)
	return &c
}

// String renders the instruction on one line.
func (in *Instruction) String() string {
	var sb strings.Builder
	if in.Op == OpComment {
		return "// " + in.Text
	}
	if len(in.Outputs) > 0 && in.Op != OpArrayStore {
		sb.WriteString(strings.Join(VarNames(in.Outputs), ", "))
		sb.WriteString(" = ")
	}
	switch in.Op {
	case OpAsyncOp:
		sb.WriteString(string(in.Builtin))
	case OpLocalOp:
		sb.WriteString("local." + string(in.Builtin))
	case OpCallFunc:
		sb.WriteString("call " + in.Func)
	case OpCallForeign:
		sb.WriteString("call_foreign " + in.Func)
		if in.Impure {
			sb.WriteString("!")
		}
	case OpArrayStore:
		fmt.Fprintf(&sb, "array_store(%s, %s)", in.Outputs[0].Name, argsString(in.Inputs))
		return sb.String()
	case OpStructLookup:
		fmt.Fprintf(&sb, "struct_lookup(%s, %s)", in.Inputs[0], in.Field)
		return sb.String()
	case OpLoopContinue, OpLoopBreak:
		sb.WriteString(in.Op.String() + " " + in.Func)
		if in.Op == OpLoopBreak && len(in.Inputs) == 0 {
			in.writeVarLists(&sb)
			return sb.String()
		}
	default:
		sb.WriteString(in.Op.String())
	}
	sb.WriteString("(" + argsString(in.Inputs) + ")")
	if in.Decr != 0 {
		fmt.Fprintf(&sb, " [decr %d]", in.Decr)
	}
	in.writeVarLists(&sb)
	return sb.String()
}

func (in *Instruction) writeVarLists(sb *strings.Builder) {
	if len(in.Passed) > 0 {
		sb.WriteString(" passed<" + strings.Join(VarNames(in.Passed), ", ") + ">")
	}
	if len(in.KeepOpen) > 0 {
		sb.WriteString(" keepopen<" + strings.Join(VarNames(in.KeepOpen), ", ") + ">")
	}
}

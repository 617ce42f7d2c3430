package ic

// Backend receives the IC tree in generation order. Implementations emit
// target code; the IC tree only calls these methods.
type Backend interface {
	Header()
	RequirePackage(name string)
	DefineBuiltin(b *Builtin)
	DefineGlobalConst(v *Var, val Arg)
	StartFunction(name string, outputs, inputs []*Var, mode TaskMode)
	EndFunction()

	Declare(v *Var)
	Comment(text string)

	AssignInt(dst *Var, src Arg)
	AssignFloat(dst *Var, src Arg)
	AssignString(dst *Var, src Arg)
	AssignBool(dst *Var, src Arg)
	AssignVoid(dst *Var, src Arg)
	AssignBlob(dst *Var, src Arg)
	AssignFile(dst *Var, src Arg)

	RetrieveInt(dst, src *Var, decr int64)
	RetrieveFloat(dst, src *Var, decr int64)
	RetrieveString(dst, src *Var, decr int64)
	RetrieveBool(dst, src *Var, decr int64)
	RetrieveVoid(dst, src *Var, decr int64)
	RetrieveBlob(dst, src *Var, decr int64)
	RetrieveFile(dst, src *Var, decr int64)

	AssignRef(ref, target *Var)
	RetrieveRef(dst, ref *Var)
	MakeAlias(dst, src *Var)
	ArrayInsert(arr *Var, index Arg, member *Var)
	ArrayLookup(dst, arr *Var, index Arg)
	StructLookup(dst, s *Var, field string)

	AsyncOp(op BuiltinOp, out *Var, inputs []Arg)
	LocalOp(op BuiltinOp, out *Var, inputs []Arg)
	CallFunction(name string, outputs []*Var, inputs []Arg, blocking []bool, mode TaskMode)
	CallForeign(name string, outputs []*Var, inputs []Arg)

	IncrReaders(v *Var, amount Arg)
	DecrReaders(v *Var, amount Arg)
	IncrWriters(v *Var, amount Arg)
	DecrWriters(v *Var, amount Arg)

	StartNestedBlock()
	EndNestedBlock()
	StartIf(cond Arg, hasElse bool)
	StartElse()
	EndIf()
	StartSwitch(cond Arg, labels []int64, hasDefault bool)
	EndCase()
	EndSwitch()
	StartWait(procName string, waitVars, passed, keepOpen []*Var, recursive bool, target TaskMode, props TaskProps)
	EndWait()
	StartLoop(name string, loopVars []*Var, definedHere []bool, initVals []Arg, blocking []bool, passed, keepOpen []*Var)
	LoopContinue(newVals []Arg, passed, keepOpen []*Var)
	LoopBreak(passed, keepOpen []*Var)
	EndLoop()
	StartForeach(container, member, key *Var, splitDegree int, startIncrs []RefcountDelta, passed []*Var)
	EndForeach(perIterDecrs []RefcountDelta)
	StartRangeLoop(loopVar *Var, start, end, step Arg, splitDegree int, startIncrs []RefcountDelta, passed []*Var)
	EndRangeLoop(perIterDecrs []RefcountDelta)
}

// GenInfo carries program-wide facts needed during generation.
type GenInfo struct {
	functions map[string]*Function
}

// NewGenInfo indexes the program's functions.
func NewGenInfo(p *Program) *GenInfo {
	gi := &GenInfo{functions: make(map[string]*Function, len(p.Functions))}
	for _, f := range p.Functions {
		gi.functions[f.Name] = f
	}
	return gi
}

// BlockingInputs returns the blocking-input vector for a function, or nil
// if the function is unknown.
func (gi *GenInfo) BlockingInputs(name string) []bool {
	if f, ok := gi.functions[name]; ok {
		return f.BlockingInputVector()
	}
	return nil
}

// Mode returns the task mode of a function, TaskControl when unknown.
func (gi *GenInfo) Mode(name string) TaskMode {
	if f, ok := gi.functions[name]; ok {
		return f.Mode
	}
	return TaskControl
}

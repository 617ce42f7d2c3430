package ic

import (
	"fmt"
	"log/slog"
	"strings"
)

// Function is a program function with a single main block.
type Function struct {
	Name      string
	Inputs    []*Var
	Outputs   []*Var
	Mode      TaskMode
	MainBlock *Block

	blockingInputs []*Var
}

// NewFunction creates a function with an empty main block.
func NewFunction(name string, inputs, outputs []*Var, mode TaskMode) *Function {
	return &Function{
		Name:      name,
		Inputs:    inputs,
		Outputs:   outputs,
		Mode:      mode,
		MainBlock: NewBlock(BlockMain),
	}
}

// IsAsync reports whether calls spawn a task.
func (f *Function) IsAsync() bool { return f.Mode != TaskSync }

// AddBlockingInput marks an input as one the function waits on before
// running. v must be an input.
func (f *Function) AddBlockingInput(v *Var) {
	if !containsVar(f.Inputs, v) {
		panic(fmt.Sprintf("function %s: blocking input %s is not an input", f.Name, v.Name))
	}
	if !containsVar(f.blockingInputs, v) {
		f.blockingInputs = append(f.blockingInputs, v)
	}
}

// BlockingInputs returns the blocking inputs in the order they were added.
func (f *Function) BlockingInputs() []*Var { return f.blockingInputs }

// BlockingInputVector has one entry per input, true where it blocks.
func (f *Function) BlockingInputVector() []bool {
	vec := make([]bool, len(f.Inputs))
	for i, in := range f.Inputs {
		vec[i] = containsVar(f.blockingInputs, in)
	}
	return vec
}

// IsOutput reports whether v is a function output.
func (f *Function) IsOutput(v *Var) bool { return containsVar(f.Outputs, v) }

// Clone deep-copies the function body.
func (f *Function) Clone() *Function {
	c := *f
	c.Inputs = append([]*Var(nil), f.Inputs...)
	c.Outputs = append([]*Var(nil), f.Outputs...)
	c.blockingInputs = append([]*Var(nil), f.blockingInputs...)
	c.MainBlock = f.MainBlock.Clone()
	return &c
}

// Restore replaces f's contents with those of snapshot.
func (f *Function) Restore(snapshot *Function) {
	*f = *snapshot.Clone()
}

func (f *Function) Generate(logger *slog.Logger, b Backend, info *GenInfo) {
	logger.Debug("generating function", "function", f.Name)
	b.StartFunction(f.Name, f.Outputs, f.Inputs, f.Mode)
	f.MainBlock.Generate(logger, b, info)
	b.EndFunction()
}

func (f *Function) Pretty(sb *strings.Builder) {
	fmt.Fprintf(sb, "function %s (%s) (%s) %s",
		f.Name, declList(f.Outputs), declList(f.Inputs), f.Mode)
	if len(f.blockingInputs) > 0 {
		sb.WriteString(" blocking<" + strings.Join(VarNames(f.blockingInputs), ", ") + ">")
	}
	sb.WriteString(" {\n")
	f.MainBlock.Pretty(sb, Indent)
	sb.WriteString("}\n")
}

func declList(vars []*Var) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = v.Type.String() + " " + v.Name
	}
	return strings.Join(parts, ", ")
}

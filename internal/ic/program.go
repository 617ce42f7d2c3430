package ic

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// GlobalConstPrefix starts the name of every generated global constant.
const GlobalConstPrefix = "__c"

// Builtin is a function implemented by the backend.
type Builtin struct {
	Name    string
	Inputs  []*Type
	Outputs []*Type
	Impure  bool
}

// Program is the root of the IC tree.
type Program struct {
	Functions        []*Function
	Builtins         []*Builtin
	RequiredPackages []string
	// OpImplementations names the function or builtin implementing an
	// async builtin op, where the backend does not implement it natively.
	OpImplementations map[BuiltinOp]string

	globals    map[string]Arg
	globalsInv map[string]string
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{
		OpImplementations: make(map[BuiltinOp]string),
		globals:           make(map[string]Arg),
		globalsInv:        make(map[string]string),
	}
}

// AddFunction appends f. Duplicate names panic.
func (p *Program) AddFunction(f *Function) {
	if p.Function(f.Name) != nil {
		panic(fmt.Sprintf("AddFunction: duplicate function %s", f.Name))
	}
	p.Functions = append(p.Functions, f)
}

// Function looks up a function by name.
func (p *Program) Function(name string) *Function {
	for _, f := range p.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// AddBuiltin appends b. Duplicate names panic.
func (p *Program) AddBuiltin(b *Builtin) {
	if p.Builtin(b.Name) != nil {
		panic(fmt.Sprintf("AddBuiltin: duplicate builtin %s", b.Name))
	}
	p.Builtins = append(p.Builtins, b)
}

// Builtin looks up a builtin by name.
func (p *Program) Builtin(name string) *Builtin {
	for _, b := range p.Builtins {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// AddRequiredPackage records a backend package dependency once.
func (p *Program) AddRequiredPackage(name string) {
	for _, r := range p.RequiredPackages {
		if r == name {
			return
		}
	}
	p.RequiredPackages = append(p.RequiredPackages, name)
}

// AddGlobalConst binds name to a literal. Rebinding a name panics.
func (p *Program) AddGlobalConst(name string, val Arg) *Var {
	if !val.IsConst() {
		panic(fmt.Sprintf("AddGlobalConst: %s is not a literal", val))
	}
	if _, ok := p.globals[name]; ok {
		panic(fmt.Sprintf("AddGlobalConst: overwriting global constant %s", name))
	}
	p.globals[name] = val
	if _, ok := p.globalsInv[val.Key()]; !ok {
		p.globalsInv[val.Key()] = name
	}
	return GlobalConstVar(name, val)
}

var nonIdent = regexp.MustCompile(`[^a-zA-Z0-9_]`)
var separators = regexp.MustCompile(`[ \n\r\t.,]`)

// AddGlobalConstValue returns the global constant holding val, creating
// one with a generated name if none exists.
func (p *Program) AddGlobalConstValue(val Arg) *Var {
	if name, ok := p.globalsInv[val.Key()]; ok {
		return GlobalConstVar(name, val)
	}
	var suffix string
	switch val.Kind {
	case ArgBool:
		suffix = "b_" + val.String()
	case ArgInt:
		suffix = "i_" + val.String()
	case ArgFloat:
		s := val.String()
		suffix = "f_" + s[:min(5, len(s))]
	case ArgString:
		s := nonIdent.ReplaceAllString(separators.ReplaceAllString(val.Str, "_"), "")
		suffix = "s_" + s[:min(10, len(s))]
	default:
		panic(fmt.Sprintf("AddGlobalConstValue: %s is not a literal", val))
	}
	base := GlobalConstPrefix + suffix
	name := base
	for seq := 1; ; seq++ {
		if _, taken := p.globals[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s-%d", base, seq)
	}
	return p.AddGlobalConst(name, val)
}

// GlobalConstVar builds the var naming a global constant.
func GlobalConstVar(name string, val Arg) *Var {
	return NewVar(name, FutureType(val.Prim()), StorageGlobalConst, DefGlobalConst)
}

// LookupGlobalConst returns the value bound to name.
func (p *Program) LookupGlobalConst(name string) (Arg, bool) {
	v, ok := p.globals[name]
	return v, ok
}

// InvLookupGlobalConst returns the name of a global constant holding val.
func (p *Program) InvLookupGlobalConst(val Arg) (string, bool) {
	n, ok := p.globalsInv[val.Key()]
	return n, ok
}

// GlobalConstNames returns the constant names in sorted order.
func (p *Program) GlobalConstNames() []string {
	names := make([]string, 0, len(p.globals))
	for n := range p.globals {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Generate emits the whole program: header, packages, builtins, functions
// in their original order, then global constants in name order.
func (p *Program) Generate(logger *slog.Logger, b Backend) {
	info := NewGenInfo(p)
	b.Header()
	for _, pkg := range p.RequiredPackages {
		b.RequirePackage(pkg)
	}
	logger.Debug("generating builtins", "count", len(p.Builtins))
	for _, bi := range p.Builtins {
		b.DefineBuiltin(bi)
	}
	logger.Debug("generating functions", "count", len(p.Functions))
	for _, f := range p.Functions {
		f.Generate(logger, b, info)
	}
	logger.Debug("generating global constants", "count", len(p.globals))
	for _, name := range p.GlobalConstNames() {
		val := p.globals[name]
		b.DefineGlobalConst(GlobalConstVar(name, val), val)
	}
}

// Clone deep-copies the program.
func (p *Program) Clone() *Program {
	c := NewProgram()
	for _, f := range p.Functions {
		c.Functions = append(c.Functions, f.Clone())
	}
	c.Builtins = append(c.Builtins, p.Builtins...)
	c.RequiredPackages = append(c.RequiredPackages, p.RequiredPackages...)
	for k, v := range p.OpImplementations {
		c.OpImplementations[k] = v
	}
	for k, v := range p.globals {
		c.globals[k] = v
	}
	for k, v := range p.globalsInv {
		c.globalsInv[k] = v
	}
	return c
}

// String pretty-prints the program.
func (p *Program) String() string {
	var sb strings.Builder
	for _, pkg := range p.RequiredPackages {
		sb.WriteString("require " + pkg + "\n")
	}
	for _, name := range p.GlobalConstNames() {
		val := p.globals[name]
		fmt.Fprintf(&sb, "const %s %s = %s\n", val.Type().String(), name, val)
	}
	for _, b := range p.Builtins {
		sb.WriteString(b.String() + "\n")
	}
	for _, f := range p.Functions {
		f.Pretty(&sb)
	}
	return sb.String()
}

func (b *Builtin) String() string {
	ins := make([]string, len(b.Inputs))
	for i, t := range b.Inputs {
		ins[i] = t.String()
	}
	outs := make([]string, len(b.Outputs))
	for i, t := range b.Outputs {
		outs[i] = t.String()
	}
	s := fmt.Sprintf("builtin %s (%s) (%s)", b.Name, strings.Join(outs, ", "), strings.Join(ins, ", "))
	if b.Impure {
		s += " impure"
	}
	return s
}

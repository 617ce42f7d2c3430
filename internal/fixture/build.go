package fixture

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/weft/internal/ic"
)

// scope resolves variable names, innermost declaration first.
type scope struct {
	parent *scope
	vars   map[string]*ic.Var
}

func (s *scope) child() *scope {
	return &scope{parent: s, vars: make(map[string]*ic.Var)}
}

func (s *scope) lookup(name string) (*ic.Var, bool) {
	for c := s; c != nil; c = c.parent {
		if v, ok := c.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

type builder struct {
	prog    *ic.Program
	structs map[string]*ic.Type
	globals *scope
}

// Build converts d into a program. Documents that the IC tree would
// reject are reported as *Error with code ErrCodeInvalid.
func Build(d *Document) (p *ic.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, &Error{Code: ErrCodeInvalid, Message: fmt.Sprint(r)}
		}
	}()
	if err := checkVersion(d); err != nil {
		return nil, err
	}
	b := &builder{
		prog:    ic.NewProgram(),
		structs: make(map[string]*ic.Type),
		globals: &scope{vars: make(map[string]*ic.Var)},
	}
	if err := b.program(d); err != nil {
		return nil, err
	}
	return b.prog, nil
}

func (b *builder) program(d *Document) error {
	for _, pkg := range d.Packages {
		b.prog.AddRequiredPackage(pkg)
	}
	for i, s := range d.Structs {
		at := fmt.Sprintf("structs[%d]", i)
		if s.Name == "" {
			return invalid(at, "name is required")
		}
		if _, ok := b.structs[s.Name]; ok {
			return invalid(at, "duplicate struct %s", s.Name)
		}
		fields := make([]ic.StructField, len(s.Fields))
		for j, f := range s.Fields {
			t, err := b.parseType(f.Type, fmt.Sprintf("%s.fields[%d]", at, j))
			if err != nil {
				return err
			}
			fields[j] = ic.StructField{Name: f.Name, Type: t}
		}
		b.structs[s.Name] = ic.StructType(s.Name, fields...)
	}
	for i, bd := range d.Builtins {
		if err := b.builtin(bd, fmt.Sprintf("builtins[%d]", i)); err != nil {
			return err
		}
	}
	ops := make([]string, 0, len(d.OpImplementations))
	for op := range d.OpImplementations {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		if !ic.BuiltinOp(op).IsKnown() {
			return invalid("op_implementations", "unknown builtin op %s", op)
		}
		b.prog.OpImplementations[ic.BuiltinOp(op)] = d.OpImplementations[op]
	}
	for i, g := range d.Globals {
		at := fmt.Sprintf("globals[%d]", i)
		if g.Value.Kind == OperandVar {
			return invalid(at, "global %s must be a literal", g.Name)
		}
		if _, ok := b.globals.vars[g.Name]; ok {
			return invalid(at, "duplicate global %s", g.Name)
		}
		b.globals.vars[g.Name] = b.prog.AddGlobalConst(g.Name, literal(g.Value))
	}
	if len(d.Functions) == 0 {
		return invalid("functions", "at least one function is required")
	}
	for i, fd := range d.Functions {
		at := fmt.Sprintf("functions[%d]", i)
		if b.prog.Function(fd.Name) != nil {
			return invalid(at, "duplicate function %s", fd.Name)
		}
		f, err := b.function(fd, at)
		if err != nil {
			return err
		}
		b.prog.AddFunction(f)
	}
	return nil
}

func (b *builder) builtin(bd BuiltinDoc, at string) error {
	if bd.Name == "" {
		return invalid(at, "name is required")
	}
	if b.prog.Builtin(bd.Name) != nil {
		return invalid(at, "duplicate builtin %s", bd.Name)
	}
	ins, err := b.parseTypes(bd.Inputs, at+".inputs")
	if err != nil {
		return err
	}
	outs, err := b.parseTypes(bd.Outputs, at+".outputs")
	if err != nil {
		return err
	}
	b.prog.AddBuiltin(&ic.Builtin{Name: bd.Name, Inputs: ins, Outputs: outs, Impure: bd.Impure})
	return nil
}

func (b *builder) function(fd FunctionDoc, at string) (*ic.Function, error) {
	if fd.Name == "" {
		return nil, invalid(at, "name is required")
	}
	mode := ic.TaskSync
	if fd.Mode != "" {
		m, ok := ic.ParseTaskMode(fd.Mode)
		if !ok {
			return nil, invalid(at, "unknown task mode %s", fd.Mode)
		}
		mode = m
	}
	sc := b.globals.child()
	ins, err := b.declareAll(sc, fd.Inputs, ic.DefInArg, at+".inputs")
	if err != nil {
		return nil, err
	}
	outs, err := b.declareAll(sc, fd.Outputs, ic.DefOutArg, at+".outputs")
	if err != nil {
		return nil, err
	}
	f := ic.NewFunction(fd.Name, ins, outs, mode)
	for _, name := range fd.Blocking {
		v, ok := sc.vars[name]
		if !ok || f.IsOutput(v) {
			return nil, invalid(at+".blocking", "%s is not an input", name)
		}
		f.AddBlockingInput(v)
	}
	if err := b.block(f.MainBlock, fd.Block, sc.child(), at+".block"); err != nil {
		return nil, err
	}
	return f, nil
}

func (b *builder) declareAll(sc *scope, docs []VarDoc, def ic.DefType, at string) ([]*ic.Var, error) {
	var out []*ic.Var
	for i, vd := range docs {
		v, err := b.declare(sc, vd, def, fmt.Sprintf("%s[%d]", at, i))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// declare creates the var described by vd and binds it in sc.
func (b *builder) declare(sc *scope, vd VarDoc, def ic.DefType, at string) (*ic.Var, error) {
	if vd.Name == "" {
		return nil, invalid(at, "name is required")
	}
	if _, ok := sc.vars[vd.Name]; ok {
		return nil, invalid(at, "%s declared twice", vd.Name)
	}
	t, err := b.parseType(vd.Type, at)
	if err != nil {
		return nil, err
	}
	storage := ic.StorageStack
	if t.IsPrimValue() {
		storage = ic.StorageLocal
	}
	if vd.Storage != "" {
		s, ok := ic.ParseStorage(vd.Storage)
		if !ok {
			return nil, invalid(at, "unknown storage %s", vd.Storage)
		}
		storage = s
	}
	if vd.Def != "" {
		d, ok := parseDefType(vd.Def)
		if !ok {
			return nil, invalid(at, "unknown def type %s", vd.Def)
		}
		def = d
	}
	v := ic.NewVar(vd.Name, t, storage, def)
	if vd.Mapping != "" {
		m, ok := sc.lookup(vd.Mapping)
		if !ok {
			return nil, invalid(at, "mapping %s is not declared", vd.Mapping)
		}
		if !m.Type.Equal(ic.TypeString) {
			return nil, invalid(at, "mapping %s must be a string future", m.Name)
		}
		v = v.WithMapping(m)
	}
	sc.vars[v.Name] = v
	return v, nil
}

func parseDefType(name string) (ic.DefType, bool) {
	for d := ic.DefLocalUser; d <= ic.DefGlobalConst; d++ {
		if d.String() == name {
			return d, true
		}
	}
	return 0, false
}

func (b *builder) parseTypes(names []string, at string) ([]*ic.Type, error) {
	out := make([]*ic.Type, len(names))
	for i, n := range names {
		t, err := b.parseType(n, fmt.Sprintf("%s[%d]", at, i))
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// parseType reads the pretty-printer's type syntax: "int", "$int",
// "int[]", "*int" and "struct name".
func (b *builder) parseType(s, at string) (*ic.Type, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, invalid(at, "type is required")
	case strings.HasSuffix(s, "[]"):
		m, err := b.parseType(strings.TrimSuffix(s, "[]"), at)
		if err != nil {
			return nil, err
		}
		return ic.ArrayOf(m), nil
	case strings.HasPrefix(s, "*"):
		m, err := b.parseType(s[1:], at)
		if err != nil {
			return nil, err
		}
		return ic.RefTo(m), nil
	case strings.HasPrefix(s, "struct "):
		name := strings.TrimSpace(strings.TrimPrefix(s, "struct "))
		t, ok := b.structs[name]
		if !ok {
			return nil, invalid(at, "unknown struct %s", name)
		}
		return t, nil
	case strings.HasPrefix(s, "$"):
		p, ok := ic.ParsePrim(s[1:])
		if !ok {
			return nil, invalid(at, "unknown type %s", s)
		}
		return ic.ValueType(p), nil
	}
	p, ok := ic.ParsePrim(s)
	if !ok {
		return nil, invalid(at, "unknown type %s", s)
	}
	return ic.FutureType(p), nil
}

func literal(o Operand) ic.Arg {
	switch o.Kind {
	case OperandInt:
		return ic.IntArg(o.Int)
	case OperandFloat:
		return ic.FloatArg(o.Float)
	case OperandString:
		return ic.StringArg(o.Str)
	case OperandBool:
		return ic.BoolArg(o.Bool)
	}
	panic(fmt.Sprintf("literal: %s is a variable", o.Name))
}

func (b *builder) arg(sc *scope, o Operand, at string) (ic.Arg, error) {
	if o.Kind != OperandVar {
		return literal(o), nil
	}
	v, err := b.lookup(sc, o.Name, at)
	if err != nil {
		return ic.Arg{}, err
	}
	return ic.VarArg(v), nil
}

func (b *builder) args(sc *scope, ops []Operand, at string) ([]ic.Arg, error) {
	out := make([]ic.Arg, len(ops))
	for i, o := range ops {
		a, err := b.arg(sc, o, at)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

func (b *builder) lookup(sc *scope, name, at string) (*ic.Var, error) {
	if v, ok := sc.lookup(name); ok {
		return v, nil
	}
	return nil, invalid(at, "%s is not declared", name)
}

func (b *builder) lookupAll(sc *scope, names []string, at string) ([]*ic.Var, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]*ic.Var, len(names))
	for i, n := range names {
		v, err := b.lookup(sc, n, at)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

package ic

import (
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// ArgKind distinguishes literal operands from variable operands.
type ArgKind int

const (
	ArgInt ArgKind = iota
	ArgFloat
	ArgString
	ArgBool
	ArgVar
)

// Arg is an instruction operand: a literal or a Var.
type Arg struct {
	Kind  ArgKind
	Int   int64
	Float float64
	Str   string
	Bool  bool
	Var   *Var
}

func IntArg(i int64) Arg     { return Arg{Kind: ArgInt, Int: i} }
func FloatArg(f float64) Arg { return Arg{Kind: ArgFloat, Float: f} }
func BoolArg(b bool) Arg     { return Arg{Kind: ArgBool, Bool: b} }
func VarArg(v *Var) Arg      { return Arg{Kind: ArgVar, Var: v} }

// StringArg builds a string literal. Text is NFC-normalized so that
// canonically equivalent literals compare equal.
func StringArg(s string) Arg {
	return Arg{Kind: ArgString, Str: norm.NFC.String(s)}
}

func (a Arg) IsVar() bool   { return a.Kind == ArgVar }
func (a Arg) IsConst() bool { return a.Kind != ArgVar }

// Key is a string that is equal for equal Args.
func (a Arg) Key() string {
	switch a.Kind {
	case ArgInt:
		return "i:" + strconv.FormatInt(a.Int, 10)
	case ArgFloat:
		f := a.Float
		if f == 0 {
			f = 0 // -0 and 0 are the same constant
		}
		return "f:" + strconv.FormatFloat(f, 'g', -1, 64)
	case ArgString:
		return "s:" + strconv.Quote(a.Str)
	case ArgBool:
		return "b:" + strconv.FormatBool(a.Bool)
	case ArgVar:
		return "v:" + a.Var.Name
	}
	panic(fmt.Sprintf("Arg.Key: unknown kind %d", int(a.Kind)))
}

// Equal compares literals by value and vars by name.
func (a Arg) Equal(b Arg) bool {
	if a.Kind != b.Kind {
		return false
	}
	return a.Key() == b.Key()
}

// Type returns the static type: the primitive value type for literals.
func (a Arg) Type() *Type {
	switch a.Kind {
	case ArgInt:
		return ValInt
	case ArgFloat:
		return ValFloat
	case ArgString:
		return ValString
	case ArgBool:
		return ValBool
	}
	return a.Var.Type
}

// Prim returns the primitive kind of a literal.
func (a Arg) Prim() Prim {
	return a.Type().Prim
}

// Truth evaluates a literal as a branch condition: non-zero ints and
// true bools are taken. ok is false for vars and other literals.
func (a Arg) Truth() (taken, ok bool) {
	switch a.Kind {
	case ArgInt:
		return a.Int != 0, true
	case ArgBool:
		return a.Bool, true
	}
	return false, false
}

func (a Arg) String() string {
	switch a.Kind {
	case ArgInt:
		return strconv.FormatInt(a.Int, 10)
	case ArgFloat:
		s := strconv.FormatFloat(a.Float, 'g', -1, 64)
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			s += ".0"
		}
		return s
	case ArgString:
		return strconv.Quote(a.Str)
	case ArgBool:
		return strconv.FormatBool(a.Bool)
	case ArgVar:
		return a.Var.Name
	}
	return fmt.Sprintf("arg(%d)", int(a.Kind))
}

// VarsOf returns the vars among args, in order.
func VarsOf(args []Arg) []*Var {
	var out []*Var
	for _, a := range args {
		if a.IsVar() {
			out = append(out, a.Var)
		}
	}
	return out
}

// VarArgs wraps vars as Args.
func VarArgs(vars []*Var) []Arg {
	out := make([]Arg, len(vars))
	for i, v := range vars {
		out[i] = VarArg(v)
	}
	return out
}

func argsString(args []Arg) string {
	s := ""
	for i, a := range args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s
}

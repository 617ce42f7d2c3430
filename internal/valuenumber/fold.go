package valuenumber

import (
	"strconv"

	"github.com/roach88/weft/internal/ic"
)

// Eval evaluates a pure builtin over literal inputs. ok is false when any
// input is not a literal of the expected kind, the op is impure or
// unknown, or the result is undefined (integer division by zero).
func Eval(op ic.BuiltinOp, inputs []ic.Arg) (result ic.Arg, ok bool) {
	for _, in := range inputs {
		if !in.IsConst() {
			return ic.Arg{}, false
		}
	}
	switch op {
	case ic.BuiltinCopy:
		if len(inputs) == 1 {
			return inputs[0], true
		}
	case ic.BuiltinNegInt:
		if x, ok := ints1(inputs); ok {
			return ic.IntArg(-x), true
		}
	case ic.BuiltinNegFloat:
		if x, ok := floats1(inputs); ok {
			return ic.FloatArg(-x), true
		}
	case ic.BuiltinNot:
		if len(inputs) == 1 && inputs[0].Kind == ic.ArgBool {
			return ic.BoolArg(!inputs[0].Bool), true
		}
	case ic.BuiltinIntToFloat:
		if x, ok := ints1(inputs); ok {
			return ic.FloatArg(float64(x)), true
		}
	case ic.BuiltinIntToString:
		if x, ok := ints1(inputs); ok {
			return ic.StringArg(strconv.FormatInt(x, 10)), true
		}
	case ic.BuiltinFloatToString:
		if x, ok := floats1(inputs); ok {
			return ic.StringArg(ic.FloatArg(x).String()), true
		}
	case ic.BuiltinBoolToString:
		if len(inputs) == 1 && inputs[0].Kind == ic.ArgBool {
			return ic.StringArg(strconv.FormatBool(inputs[0].Bool)), true
		}
	case ic.BuiltinStrcat:
		if len(inputs) == 0 {
			return ic.Arg{}, false
		}
		s := ""
		for _, in := range inputs {
			if in.Kind != ic.ArgString {
				return ic.Arg{}, false
			}
			s += in.Str
		}
		return ic.StringArg(s), true
	case ic.BuiltinEqString:
		if len(inputs) == 2 && inputs[0].Kind == ic.ArgString && inputs[1].Kind == ic.ArgString {
			return ic.BoolArg(inputs[0].Str == inputs[1].Str), true
		}
	default:
		if x, y, ok := ints2(inputs); ok {
			return evalInt(op, x, y)
		}
		if x, y, ok := floats2(inputs); ok {
			return evalFloat(op, x, y)
		}
		if len(inputs) == 2 && inputs[0].Kind == ic.ArgBool && inputs[1].Kind == ic.ArgBool {
			return evalBool(op, inputs[0].Bool, inputs[1].Bool)
		}
	}
	return ic.Arg{}, false
}

func evalInt(op ic.BuiltinOp, x, y int64) (ic.Arg, bool) {
	switch op {
	case ic.BuiltinPlusInt:
		return ic.IntArg(x + y), true
	case ic.BuiltinMinusInt:
		return ic.IntArg(x - y), true
	case ic.BuiltinMultInt:
		return ic.IntArg(x * y), true
	case ic.BuiltinDivInt:
		if y == 0 {
			return ic.Arg{}, false
		}
		return ic.IntArg(x / y), true
	case ic.BuiltinModInt:
		if y == 0 {
			return ic.Arg{}, false
		}
		return ic.IntArg(x % y), true
	case ic.BuiltinMaxInt:
		return ic.IntArg(max(x, y)), true
	case ic.BuiltinMinInt:
		return ic.IntArg(min(x, y)), true
	case ic.BuiltinEqInt:
		return ic.BoolArg(x == y), true
	case ic.BuiltinNeqInt:
		return ic.BoolArg(x != y), true
	case ic.BuiltinLtInt:
		return ic.BoolArg(x < y), true
	case ic.BuiltinLteInt:
		return ic.BoolArg(x <= y), true
	case ic.BuiltinGtInt:
		return ic.BoolArg(x > y), true
	case ic.BuiltinGteInt:
		return ic.BoolArg(x >= y), true
	}
	return ic.Arg{}, false
}

func evalFloat(op ic.BuiltinOp, x, y float64) (ic.Arg, bool) {
	switch op {
	case ic.BuiltinPlusFloat:
		return ic.FloatArg(x + y), true
	case ic.BuiltinMinusFloat:
		return ic.FloatArg(x - y), true
	case ic.BuiltinMultFloat:
		return ic.FloatArg(x * y), true
	case ic.BuiltinDivFloat:
		return ic.FloatArg(x / y), true
	case ic.BuiltinEqFloat:
		return ic.BoolArg(x == y), true
	case ic.BuiltinLtFloat:
		return ic.BoolArg(x < y), true
	}
	return ic.Arg{}, false
}

func evalBool(op ic.BuiltinOp, x, y bool) (ic.Arg, bool) {
	switch op {
	case ic.BuiltinAnd:
		return ic.BoolArg(x && y), true
	case ic.BuiltinOr:
		return ic.BoolArg(x || y), true
	case ic.BuiltinXor:
		return ic.BoolArg(x != y), true
	}
	return ic.Arg{}, false
}

func ints1(in []ic.Arg) (int64, bool) {
	if len(in) != 1 || in[0].Kind != ic.ArgInt {
		return 0, false
	}
	return in[0].Int, true
}

func floats1(in []ic.Arg) (float64, bool) {
	if len(in) != 1 || in[0].Kind != ic.ArgFloat {
		return 0, false
	}
	return in[0].Float, true
}

func ints2(in []ic.Arg) (int64, int64, bool) {
	if len(in) != 2 || in[0].Kind != ic.ArgInt || in[1].Kind != ic.ArgInt {
		return 0, 0, false
	}
	return in[0].Int, in[1].Int, true
}

func floats2(in []ic.Arg) (float64, float64, bool) {
	if len(in) != 2 || in[0].Kind != ic.ArgFloat || in[1].Kind != ic.ArgFloat {
		return 0, 0, false
	}
	return in[0].Float, in[1].Float, true
}

// Fold tries to evaluate in through known constant values. It returns the
// replacement instruction: a local copy of the literal for local ops, a
// store of the literal for async ops.
func Fold(state *Congruences, in *ic.Instruction) (*ic.Instruction, bool) {
	if in.Op != ic.OpAsyncOp && in.Op != ic.OpLocalOp {
		return nil, false
	}
	if in.Builtin.IsImpure() || len(in.Outputs) != 1 {
		return nil, false
	}
	out := in.Outputs[0]
	if in.Builtin == ic.BuiltinCopy && in.Op == ic.OpLocalOp && len(in.Inputs) == 1 && in.Inputs[0].IsConst() {
		// Already folded.
		return nil, false
	}
	vals := make([]ic.Arg, len(in.Inputs))
	for i, a := range in.Inputs {
		v, ok := state.ConstantValue(a)
		if !ok {
			return nil, false
		}
		vals[i] = v
	}
	result, ok := Eval(in.Builtin, vals)
	if !ok {
		return nil, false
	}
	if in.Op == ic.OpLocalOp {
		if !out.Type.IsPrimValue() || out.Type.Prim != result.Prim() {
			return nil, false
		}
		return ic.LocalOp(ic.BuiltinCopy, out, result), true
	}
	if !out.Type.IsPrimFuture() || out.Type.Prim != result.Prim() || out.IsMapped() {
		return nil, false
	}
	return ic.Store(out, result), true
}

package ic

// BuiltinOp names an operator the backend implements natively. The same
// op is used on futures (OpAsyncOp) and on local values (OpLocalOp).
type BuiltinOp string

const (
	BuiltinCopy BuiltinOp = "copy"

	BuiltinPlusInt  BuiltinOp = "plus_int"
	BuiltinMinusInt BuiltinOp = "minus_int"
	BuiltinMultInt  BuiltinOp = "mult_int"
	BuiltinDivInt   BuiltinOp = "div_int"
	BuiltinModInt   BuiltinOp = "mod_int"
	BuiltinNegInt   BuiltinOp = "neg_int"
	BuiltinMaxInt   BuiltinOp = "max_int"
	BuiltinMinInt   BuiltinOp = "min_int"

	BuiltinPlusFloat  BuiltinOp = "plus_float"
	BuiltinMinusFloat BuiltinOp = "minus_float"
	BuiltinMultFloat  BuiltinOp = "mult_float"
	BuiltinDivFloat   BuiltinOp = "div_float"
	BuiltinNegFloat   BuiltinOp = "neg_float"

	BuiltinEqInt  BuiltinOp = "eq_int"
	BuiltinNeqInt BuiltinOp = "neq_int"
	BuiltinLtInt  BuiltinOp = "lt_int"
	BuiltinLteInt BuiltinOp = "lte_int"
	BuiltinGtInt  BuiltinOp = "gt_int"
	BuiltinGteInt BuiltinOp = "gte_int"

	BuiltinEqFloat BuiltinOp = "eq_float"
	BuiltinLtFloat BuiltinOp = "lt_float"

	BuiltinEqString BuiltinOp = "eq_string"
	BuiltinStrcat   BuiltinOp = "strcat"

	BuiltinNot BuiltinOp = "not"
	BuiltinAnd BuiltinOp = "and"
	BuiltinOr  BuiltinOp = "or"
	BuiltinXor BuiltinOp = "xor"

	BuiltinIntToFloat    BuiltinOp = "int_to_float"
	BuiltinIntToString   BuiltinOp = "int_to_string"
	BuiltinFloatToString BuiltinOp = "float_to_string"
	BuiltinBoolToString  BuiltinOp = "bool_to_string"

	BuiltinPrint    BuiltinOp = "print"
	BuiltinAssert   BuiltinOp = "assert"
	BuiltinAssertEq BuiltinOp = "assert_eq"
)

var impureBuiltins = map[BuiltinOp]bool{
	BuiltinPrint:    true,
	BuiltinAssert:   true,
	BuiltinAssertEq: true,
}

var knownBuiltins = map[BuiltinOp]bool{
	BuiltinCopy: true,
	BuiltinPlusInt: true, BuiltinMinusInt: true, BuiltinMultInt: true, BuiltinDivInt: true,
	BuiltinModInt: true, BuiltinNegInt: true, BuiltinMaxInt: true, BuiltinMinInt: true,
	BuiltinPlusFloat: true, BuiltinMinusFloat: true, BuiltinMultFloat: true,
	BuiltinDivFloat: true, BuiltinNegFloat: true,
	BuiltinEqInt: true, BuiltinNeqInt: true, BuiltinLtInt: true, BuiltinLteInt: true,
	BuiltinGtInt: true, BuiltinGteInt: true, BuiltinEqFloat: true, BuiltinLtFloat: true,
	BuiltinEqString: true, BuiltinStrcat: true,
	BuiltinNot: true, BuiltinAnd: true, BuiltinOr: true, BuiltinXor: true,
	BuiltinIntToFloat: true, BuiltinIntToString: true, BuiltinFloatToString: true,
	BuiltinBoolToString: true,
	BuiltinPrint: true, BuiltinAssert: true, BuiltinAssertEq: true,
}

// IsImpure reports ops whose execution is externally observable.
func (op BuiltinOp) IsImpure() bool { return impureBuiltins[op] }

// IsKnown reports whether op is one of the declared builtin ops.
func (op BuiltinOp) IsKnown() bool { return knownBuiltins[op] }

// IsCommutative reports ops whose two inputs may be swapped.
func (op BuiltinOp) IsCommutative() bool {
	switch op {
	case BuiltinPlusInt, BuiltinMultInt, BuiltinMaxInt, BuiltinMinInt,
		BuiltinPlusFloat, BuiltinMultFloat,
		BuiltinEqInt, BuiltinNeqInt, BuiltinEqFloat, BuiltinEqString,
		BuiltinAnd, BuiltinOr, BuiltinXor:
		return true
	}
	return false
}

package ic

import "strings"

// CongruenceType selects which relation a fact belongs to.
type CongruenceType int

const (
	// CongValue relates args holding the same value; interchangeable in
	// read position.
	CongValue CongruenceType = iota
	// CongAlias relates args naming the same storage; interchangeable in
	// read and write position.
	CongAlias
)

func (c CongruenceType) String() string {
	if c == CongAlias {
		return "alias"
	}
	return "value"
}

// ComputedValue is an operation applied to inputs, used as a key for
// value numbering.
type ComputedValue struct {
	Op     Opcode
	Subop  string
	Inputs []Arg
}

// NewCV builds a computed value.
func NewCV(op Opcode, subop string, inputs ...Arg) ComputedValue {
	return ComputedValue{Op: op, Subop: subop, Inputs: inputs}
}

// Key is equal for structurally equal computed values.
func (cv ComputedValue) Key() string {
	var sb strings.Builder
	sb.WriteString(cv.Op.String())
	sb.WriteByte('/')
	sb.WriteString(cv.Subop)
	for _, in := range cv.Inputs {
		sb.WriteByte('|')
		sb.WriteString(in.Key())
	}
	return sb.String()
}

func (cv ComputedValue) Equal(o ComputedValue) bool { return cv.Key() == o.Key() }

// CongType reports the relation facts about cv belong to.
func (cv ComputedValue) CongType() CongruenceType {
	switch cv.Op {
	case OpLoadRef, OpCopyRef, OpArrayLookup, OpStructLookup:
		return CongAlias
	}
	return CongValue
}

// IsCopy reports computed values equal to their single input.
func (cv ComputedValue) IsCopy() bool {
	switch cv.Op {
	case OpAsyncOp, OpLocalOp:
		return cv.Subop == string(BuiltinCopy) && len(cv.Inputs) == 1
	case OpCopyRef:
		return len(cv.Inputs) == 1
	}
	return false
}

func (cv ComputedValue) String() string {
	name := cv.Op.String()
	if cv.Subop != "" {
		name += "." + cv.Subop
	}
	return name + "(" + argsString(cv.Inputs) + ")"
}

// Closed describes what is known about a location's closedness after the
// instruction producing a ValLoc runs.
type Closed int

const (
	ClosedMaybeNot Closed = iota
	ClosedYesNotRecursive
	ClosedYesRecursive
)

// IsAssign records whether a ValLoc is a single-assignment write.
type IsAssign int

const (
	AssignNo IsAssign = iota
	// AssignToLocation writes the location itself.
	AssignToLocation
	// AssignToValue writes the slot named by the value (e.g. an array
	// member at an index).
	AssignToValue
)

// ValLoc says that Value is stored at Location.
type ValLoc struct {
	Value     ComputedValue
	Location  Arg
	Closed    Closed
	IsValCopy bool
	IsAssign  IsAssign
}

// CongType is value for value copies, otherwise the value's own type.
func (vl ValLoc) CongType() CongruenceType {
	if vl.IsValCopy {
		return CongValue
	}
	return vl.Value.CongType()
}

func (vl ValLoc) String() string {
	return vl.Value.String() + " => " + vl.Location.String()
}

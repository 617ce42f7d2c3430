package ic

import "fmt"

// RefCountType is one of the two refcount kinds of a future.
type RefCountType int

const (
	RCReaders RefCountType = iota
	RCWriters
)

func (t RefCountType) String() string {
	if t == RCWriters {
		return "writers"
	}
	return "readers"
}

// RefcountDelta is a refcount adjustment attached to a continuation.
type RefcountDelta struct {
	Var    *Var
	Type   RefCountType
	Amount Arg
}

func (d RefcountDelta) String() string {
	return fmt.Sprintf("%s %s %s", d.Type, d.Var.Name, d.Amount)
}

// MayHaveRefcount reports whether values of t carry a refcount of kind rc.
// Every future has readers; structs are closed through their fields and
// carry no writers count of their own.
func MayHaveRefcount(t *Type, rc RefCountType) bool {
	switch t.Kind {
	case KindPrimValue:
		return false
	case KindStruct:
		return rc == RCReaders
	}
	return true
}

// TrackRefCount reports whether refcounts of kind rc on v are managed.
func TrackRefCount(v *Var, rc RefCountType) bool {
	if v.Storage == StorageLocal || v.Storage == StorageGlobalConst {
		return false
	}
	return MayHaveRefcount(v.Type, rc)
}

// RefcountOpcode returns the instruction opcode for an adjustment.
func RefcountOpcode(rc RefCountType, increment bool) Opcode {
	switch {
	case rc == RCReaders && increment:
		return OpIncrReaders
	case rc == RCReaders:
		return OpDecrReaders
	case increment:
		return OpIncrWriters
	}
	return OpDecrWriters
}

// RefcountKind is the inverse of RefcountOpcode.
func RefcountKind(op Opcode) (rc RefCountType, increment bool) {
	switch op {
	case OpIncrReaders:
		return RCReaders, true
	case OpDecrReaders:
		return RCReaders, false
	case OpIncrWriters:
		return RCWriters, true
	case OpDecrWriters:
		return RCWriters, false
	}
	panic(fmt.Sprintf("RefcountKind: %s is not a refcount opcode", op))
}

package ic

import "fmt"

// Opcode identifies an instruction kind.
type Opcode int

const (
	OpComment Opcode = iota
	// OpStore assigns a value or literal to a future and closes it.
	OpStore
	// OpLoad retrieves the value of a closed future into a local.
	OpLoad
	// OpStoreRef makes a ref future point at a var.
	OpStoreRef
	// OpLoadRef dereferences a closed ref into an alias.
	OpLoadRef
	// OpCopyRef makes an alias of another var's storage.
	OpCopyRef
	// OpAsyncOp applies a builtin op to futures.
	OpAsyncOp
	// OpLocalOp applies a builtin op to local values.
	OpLocalOp
	// OpArrayStore inserts a member future into an array at an index.
	OpArrayStore
	// OpArrayLookup aliases the member of an array at an index.
	OpArrayLookup
	// OpStructLookup aliases a field of a struct.
	OpStructLookup
	// OpCallFunc calls a program function.
	OpCallFunc
	// OpCallForeign calls a builtin function implemented by the backend.
	OpCallForeign
	OpIncrReaders
	OpDecrReaders
	OpIncrWriters
	OpDecrWriters
	OpLoopContinue
	OpLoopBreak
)

var opcodeNames = [...]string{
	"comment", "store", "load", "store_ref", "load_ref", "copy_ref",
	"async_op", "local_op", "array_store", "array_lookup", "struct_lookup",
	"call", "call_foreign",
	"incr_readers", "decr_readers", "incr_writers", "decr_writers",
	"loop_continue", "loop_break",
}

func (op Opcode) String() string {
	if int(op) < 0 || int(op) >= len(opcodeNames) {
		return fmt.Sprintf("op(%d)", int(op))
	}
	return opcodeNames[op]
}

// ParseOpcode maps an opcode name to its Opcode.
func ParseOpcode(name string) (Opcode, bool) {
	for i, n := range opcodeNames {
		if n == name {
			return Opcode(i), true
		}
	}
	return 0, false
}

// IsRefcount reports the four refcount adjustment opcodes.
func (op Opcode) IsRefcount() bool {
	switch op {
	case OpIncrReaders, OpDecrReaders, OpIncrWriters, OpDecrWriters:
		return true
	}
	return false
}

// Package ic provides the intermediate code tree for weft.
//
// The IC tree is the lowered form of a type-checked dataflow program:
// a Program holds Functions, each Function owns a main Block, and a Block
// holds declared variables, an ordered list of statements, a set of
// non-conditional continuations and cleanup actions.
//
// Continuations are a closed set of control structures (NestedBlock, If,
// Switch, Loop, Wait, Foreach, RangeLoop). Blocks own their continuations
// and continuations own their child blocks. There are no parent
// back-pointers: passes that need the enclosing block carry it explicitly.
//
// Key design constraints:
//   - Vars are identified by name; names are unique within a function
//   - Futures are single-assignment; local values are assigned before read
//   - Internal consistency failures panic; recoverable optimizer
//     contradictions are reported by the optimizer packages, not here
//   - Output (pretty printing and Backend generation) is deterministic
package ic

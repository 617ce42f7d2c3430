// Package valuenumber tracks value and alias congruence over a forward
// walk of an IC block and uses it to simplify the tree.
//
// Two partitions are maintained per scope:
//   - VALUE congruence: args holding the same value, substitutable in read
//     position.
//   - ALIAS congruence: args naming the same storage, substitutable in read
//     and write position.
//
// Nested continuations get child scopes that read through to the parent.
// Facts learned in a child are dropped when the child is left, except
// closedness proven in every branch of an exhaustive synchronous
// conditional.
//
// A contradiction (two different constants for one value, a second write
// to a single-assignment location) aborts the attempt with ErrOptUnsafe.
package valuenumber

// Package fixture loads IC programs from YAML.
//
// A fixture describes a type-checked program the way a frontend would
// hand it to the optimizer: struct types, builtins, global constants and
// functions whose blocks list declarations, statements, continuations and
// cleanups. Fixtures carry an ir_version that must satisfy
// SupportedIRVersions.
//
// Operands are YAML scalars. Integers, floats and booleans are literals,
// quoted strings are string literals and plain strings name variables:
//
//	- op: async_op
//	  builtin: strcat
//	  out: [greeting]
//	  in: [name, "!"]
package fixture

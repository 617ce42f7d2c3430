// Package refcount tracks pending reference count adjustments and
// rewrites the refcount instructions of each block.
//
// Counts are keyed by AliasKey, the structural path from a root var
// through struct fields and reference dereferences. Keys are resolved to
// the var that owns the refcount before instructions are emitted, so
// adjustments made through different handles of one datum can be merged,
// netted and batched. A delta that would cross zero in the wrong direction
// is a compiler defect and panics.
package refcount

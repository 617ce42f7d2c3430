// Package opt holds the whole-function and whole-program passes built on
// the IC tree: dead code elimination, wait pipelining, function pruning,
// and the driver that sequences every pass to a fixed point.
//
// The driver snapshots each function before value numbering; a pass that
// reports an unsafe optimization is rolled back and the run continues.
package opt

// Package harness runs optimizer conformance scenarios.
//
// A scenario names a program fixture, optional settings and the passes to
// skip, then states what the optimizer must do to it. Each scenario runs
// against a fresh in-memory journal, so the events it asserts on are the
// ones the store would persist.
//
// # Scenario Format
//
//	name: copy_wait
//	description: "A copied constant is forwarded into the wait"
//	program: ../fixtures/copy_wait.yaml
//	settings: weft.toml
//	skip: [pipeline]
//	expect:
//	  converged: true
//	  iterations: 2
//	assertions:
//	  - type: pass_order
//	    passes: [value_number, dead_code, prune]
//	  - type: pass_count
//	    pass: dead_code
//	    count: 3
//	  - type: pass_changed
//	    pass: value_number
//	    function: main
//	  - type: output_contains
//	    text: "print(2)"
//	  - type: output_excludes
//	    text: "wait("
//	  - type: pruned
//	    functions: [unused]
//
// Paths are relative to the scenario file.
//
// # Golden Snapshots
//
// Snapshot renders the pass sequence and the optimized program without
// fingerprints, so it is stable across hash changes. RunWithGolden compares
// it against testdata/golden/<name>.golden with goldie.
package harness

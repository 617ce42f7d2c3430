// Package store provides a SQLite journal of optimizer runs.
//
// Each run records the program it optimized, the settings it used and the
// fingerprints of the program before and after. Every pass the optimizer
// applies is appended as an event.
//
// # Ordering
//
// Runs and events are ordered by seq, a logical sequence number, never by
// wall time. Run seqs increase across the database; event seqs restart at
// 1 for each run. Queries order by seq so results are deterministic.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package store

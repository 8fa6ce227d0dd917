// Package store provides SQLite-backed durable storage for the run log.
//
// The store is append-only:
//   - Runs: one record per compile-and-execute request, successful or not
//   - Datasets: the dataset extracted by a run, described but not copied
//   - Estimates: the plugin result computed over a run's dataset
//
// Listing order uses the seq column (insertion order), never timestamps,
// so two runs started in the same instant still list deterministically.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Column lists and schema hints are stored as RFC 8785 canonical JSON
// via internal/ir so identical datasets serialize identically.
package store

// Package store provides SQLite-backed durable storage for refguard runs.
//
// The store is an append-only log of:
//   - Runs: one row per analysis run (manifest hash, depth bound, order)
//   - Ingestions: one row per ingested module, keyed by (run_id, seq)
//   - Violations: the violations an ingestion produced, in reference order
//
// Every read is ordered by seq and ordinal, never by timestamps, so a stored
// run reads back identically and can be replayed.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Violation hashes are computed by ir.ViolationHash from canonical JSON.
package store

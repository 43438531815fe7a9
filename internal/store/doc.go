// Package store provides SQLite-backed storage for compiled artifacts.
//
// The store keeps two tables:
//   - Artifacts: emitted declarations and body, keyed by
//     ir.ArtifactKey(fingerprint, lanes)
//   - Runs: one row per compile, with the optimizer statistics
//
// # Identity and Ordering
//
// Artifacts are content-addressed: the key covers the fragment
// fingerprint, the lane count and ir.GeneratorVersion, so a generator
// upgrade never serves stale text. Writes use ON CONFLICT DO NOTHING and
// are idempotent.
//
// Runs are ordered by seq (a logical clock assigned on insert), never by
// timestamp. Every query ends with ORDER BY seq ASC, id ASC COLLATE
// BINARY so listings are identical across machines.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store

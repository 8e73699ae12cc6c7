// Package store provides the SQLite build manifest.
//
// The manifest is an append-only log of build-manager outcomes: one row
// per Load that reached a terminal state, recording the module identity,
// backend, calling convention, persistence mode, source hash, outcome and
// the artifact it produced. It backs `treefreeze cache ls` and is
// optional; the build manager works without it.
//
// # Ordering
//
//   - Rows are ordered by seq INTEGER (insertion order), never timestamps
//   - All list queries use ORDER BY seq ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

// Package store owns the single SQLite handle shared by the inventory core.
//
// The Manager opens the database lazily, coalescing concurrent first-time
// callers onto one open, and can reconnect with bounded linear backoff.
// Schema changes are embedded goose migrations applied on every open.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - one pooled connection: in-process transactions run strictly in sequence
//
// # Errors
//
// Every public operation in the core fails with *Error. Its Code tells the
// caller which corrective action applies: retry (CONNECTION_UNAVAILABLE,
// STORAGE_FAILURE), fix the input (VALIDATION_FAILED, NOT_FOUND) or restock
// (INSUFFICIENT_STOCK).
package store

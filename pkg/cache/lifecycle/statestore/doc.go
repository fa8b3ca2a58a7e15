// Package statestore persists the lifecycle coordinator's TTL snapshot so
// it can be reconstructed after process death.
//
// Two backends are provided:
//
//   - MemoryBackend: in-process only, for tests and opt-out callers.
//   - SQLiteBackend: durable key-value rows in a WAL-mode SQLite database.
//
// Only wall-clock values are persisted. Monotonic clock marks reset on
// every process start and therefore never cross the persistence boundary;
// the coordinator re-derives them on restore.
package statestore

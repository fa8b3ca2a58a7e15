// Package history is the append-only usage ledger: one SQLite row per LLM
// message, keyed by session and sequence. The in-memory session table is
// reclaimed by the idle sweep; the ledger is what survives for reviewing
// spend across restarts.
package history

// Package session tracks per-conversation token usage and cost.
//
// A Session accumulates the four token counters (input, output, cache
// read, cache write) from every provider response and prices them through
// the costs package against a tier resolved once at creation. Derived
// metrics (cache hit rate, average cost per message, proximity to the
// long-context bracket) read from the same counters.
//
// The Manager owns the process-wide session table: it mints session IDs,
// appends each message to the usage ledger when one is configured, and
// runs a cron-scheduled sweep that reclaims ended and idle sessions.
package session

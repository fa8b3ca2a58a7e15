// Package lifecycle implements the TTL state machine that mirrors the
// remote prompt cache's warmth locally.
//
// The provider's server-side cache expires minutes after the last write and
// offers no way to query its state, so the Coordinator maintains the local
// approximation: STOPPED -> RUNNING (deadline armed) <-> PAUSED (frozen) ->
// EXPIRED -> STOPPED. Every content add re-arms the full window; removals
// and content edits never do.
//
// Three mechanisms keep the approximation honest:
//
//   - Persistence: every committed transition snapshots {state, deadline,
//     timeout} to a statestore.Backend, and Restore reconstructs the window
//     after process death, expiring immediately if the deadline passed
//     while the process was down.
//   - Drift correction: each tick cross-checks wall-clock elapsed against
//     monotonic elapsed and, past a threshold, recomputes the deadline from
//     the monotonic clock, which cannot be skewed by NTP or manual changes.
//   - Backstop scheduling: expiry and warning tasks are handed to a
//     BackgroundExpiryScheduler with replace semantics so the expiry side
//     effect still fires (at least once, idempotently) when the process is
//     not alive to tick.
//
// The only externally observable effect that matters for correctness is
// whether the cost model over- or undercounts, so the machine errs toward
// expiring early (monotonic ground truth, deadline clamped at zero) rather
// than reporting a warm cache that the server has already dropped.
package lifecycle

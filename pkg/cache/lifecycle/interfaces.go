package lifecycle

import "time"

// BackgroundExpiryScheduler defers tasks to an execution environment that
// survives process death (on mobile, an OS work scheduler). The coordinator
// uses it purely as a backstop: while the process is foregrounded, the
// coordinator's own tick is authoritative.
//
// Contract:
//   - ScheduleOnce has replace semantics: enqueuing a kind cancels any
//     previously pending task of that kind, so re-arming never produces
//     duplicate firings.
//   - Delivery is at-least-once, not exactly-once. The expiry side effect
//     is idempotent to tolerate this.
type BackgroundExpiryScheduler interface {
	// ScheduleOnce enqueues a one-shot task of the given kind after delay,
	// replacing any pending task of the same kind.
	ScheduleOnce(kind TaskKind, delay time.Duration) error

	// Cancel removes any pending task of the given kind.
	Cancel(kind TaskKind) error
}

// NotificationSink receives user-visible cache signals. Implementations
// must not block; the coordinator calls them from its transition path.
type NotificationSink interface {
	// Warn signals that the cache window is about to expire.
	Warn()

	// Expired signals that the cache window has expired.
	Expired()
}

package lifecycle

// State is the lifecycle coordinator's view of the remote prompt cache.
type State int

const (
	// StateStopped means no files are cached and no deadline is armed.
	// Initial state, and the state every expiry eventually settles into.
	StateStopped State = iota

	// StateRunning means a deadline is armed and the tick loop is live.
	StateRunning

	// StatePaused means the deadline is frozen with a remembered elapsed.
	StatePaused

	// StateExpired means the deadline passed and the expiry side effect
	// is firing. Transient: the coordinator moves to STOPPED immediately
	// after cleanup.
	StateExpired
)

// String returns the persisted name of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateRunning:
		return "RUNNING"
	case StatePaused:
		return "PAUSED"
	case StateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// ParseState converts a persisted state name back into a State.
// Unknown names map to STOPPED, the safe fallback.
func ParseState(name string) State {
	switch name {
	case "RUNNING":
		return StateRunning
	case "PAUSED":
		return StatePaused
	case "EXPIRED":
		return StateExpired
	default:
		return StateStopped
	}
}

// TaskKind identifies a backstop task scheduled with the
// BackgroundExpiryScheduler.
type TaskKind string

const (
	// KindExpire is the backstop expiry task, scheduled for the deadline.
	KindExpire TaskKind = "EXPIRE"

	// KindWarn is the pre-expiry warning task, scheduled for the deadline
	// minus the warning lead.
	KindWarn TaskKind = "WARN"
)

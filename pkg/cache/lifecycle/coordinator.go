package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"pocketforge/comet/pkg/cache"
	"pocketforge/comet/pkg/cache/lifecycle/statestore"
	"pocketforge/comet/pkg/config"
)

// Coordinator owns the only mutable "is the remote cache warm" truth. It is
// a TTL state machine: arming on every add, ticking while RUNNING, pausing
// and resuming with a frozen elapsed, and firing the expiry side effect
// exactly once per expiry transition.
//
// All mutations are serialized through one mutex so "add file" and "tick
// observed expiry" cannot race into an inconsistent (files, state) pair.
// Reads of remaining time are lock-free via an atomically published value.
//
// A transition is committed only after its snapshot is persisted; a failed
// persist rolls the transition back so the in-memory state never diverges
// from what a crash would restore.
type Coordinator struct {
	cfg      config.CacheConfig
	store    *cache.Store
	backend  statestore.Backend
	sched    BackgroundExpiryScheduler
	notifier NotificationSink
	clock    Clock
	logger   *slog.Logger

	mu            sync.Mutex
	state         State
	deadline      time.Time
	timeout       time.Duration
	pausedElapsed time.Duration

	// Drift tracking. monoMark/wallMark are taken at every RUNNING entry
	// and at every drift reset; elapsedBefore is how much of the window
	// had already elapsed when the marks were taken.
	monoMark      time.Duration
	wallMark      time.Time
	elapsedBefore time.Duration

	// remainingNs is the last published remaining time, readable without
	// the lock.
	remainingNs atomic.Int64

	// tickStop/tickDone control the current ticking task. nil when not
	// ticking.
	tickStop chan struct{}
	tickDone chan struct{}

	// subs are remaining-time observers, called on every tick.
	subsMu sync.Mutex
	subs   map[int]func(remaining time.Duration)
	subSeq int
}

// NewCoordinator creates a coordinator. The store, backend, scheduler, and
// notifier are required; a nil clock selects the system clock.
func NewCoordinator(cfg config.CacheConfig, store *cache.Store, backend statestore.Backend,
	sched BackgroundExpiryScheduler, notifier NotificationSink, clock Clock, logger *slog.Logger) *Coordinator {

	if clock == nil {
		clock = NewSystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		cfg:      cfg,
		store:    store,
		backend:  backend,
		sched:    sched,
		notifier: notifier,
		clock:    clock,
		logger:   logger.With("component", "cache.lifecycle"),
		state:    StateStopped,
		timeout:  cfg.Timeout,
		subs:     make(map[int]func(time.Duration)),
	}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Remaining returns the last published remaining time. Lock-free; intended
// for display. Zero when not RUNNING.
func (c *Coordinator) Remaining() time.Duration {
	return time.Duration(c.remainingNs.Load())
}

// Deadline returns the current absolute deadline, zero when not armed.
func (c *Coordinator) Deadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deadline
}

// Timeout returns the TTL window currently in effect.
func (c *Coordinator) Timeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeout
}

// OnTick subscribes an observer to remaining-time updates, published once
// per tick while RUNNING. It returns an unsubscribe function. The observer
// must not block and must not call back into the coordinator.
func (c *Coordinator) OnTick(fn func(remaining time.Duration)) (unsubscribe func()) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	id := c.subSeq
	c.subSeq++
	c.subs[id] = fn
	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		delete(c.subs, id)
	}
}

// OnFilesAdded (re)arms the TTL window: any state transitions to RUNNING
// with deadline = now + timeout. Persistence failure aborts the transition;
// scheduler failure is logged and absorbed.
func (c *Coordinator) OnFilesAdded(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	deadline := now.Add(c.timeout)

	snap := &statestore.Snapshot{
		State:    StateRunning.String(),
		Deadline: deadline,
		Timeout:  c.timeout,
	}
	if err := c.backend.Save(ctx, snap); err != nil {
		c.logger.Warn("failed to persist armed deadline, keeping previous state",
			"error", err, "state", c.state.String())
		return
	}

	c.state = StateRunning
	c.deadline = deadline
	c.pausedElapsed = 0
	c.markLocked(now, 0)
	c.publishLocked(c.timeout)

	c.scheduleBackstopsLocked(c.timeout)
	c.startTickLocked()

	c.logger.Debug("cache window armed", "deadline", deadline, "timeout", c.timeout)
}

// OnFileRemoved reacts to a removal: when the store has become empty the
// coordinator forces STOPPED (empty store must never be RUNNING or PAUSED).
// A removal that leaves files behind never shortens or extends the window.
func (c *Coordinator) OnFileRemoved(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store.Len() > 0 {
		return
	}
	if c.state != StateRunning && c.state != StatePaused {
		return
	}
	c.stopLocked(ctx)
	c.logger.Debug("cache window stopped, store empty")
}

// OnClear stops the window unconditionally: the caller has cleared the
// store, so there is nothing left to expire.
func (c *Coordinator) OnClear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateStopped {
		return
	}
	c.stopLocked(ctx)
}

// Pause freezes the window. Valid only while RUNNING. The elapsed portion
// of the window is remembered (monotonic) and persisted so a kill while
// paused still restores correctly.
func (c *Coordinator) Pause(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		return &InvalidTransitionError{Op: "pause", From: c.state}
	}

	elapsed := c.elapsedBefore + (c.clock.Monotonic() - c.monoMark)
	if elapsed > c.timeout {
		elapsed = c.timeout
	}

	snap := &statestore.Snapshot{
		State:         StatePaused.String(),
		Deadline:      c.deadline,
		Timeout:       c.timeout,
		PausedElapsed: elapsed,
	}
	if err := c.backend.Save(ctx, snap); err != nil {
		c.logger.Warn("failed to persist paused state, staying RUNNING", "error", err)
		return nil
	}

	c.stopTickLocked()
	c.cancelBackstopsLocked()
	c.state = StatePaused
	c.pausedElapsed = elapsed
	c.publishLocked(c.timeout - elapsed)

	c.logger.Debug("cache window paused", "elapsed", elapsed)
	return nil
}

// Resume unfreezes a paused window: deadline = now + (timeout - elapsed).
// Valid only while PAUSED.
func (c *Coordinator) Resume(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePaused {
		return &InvalidTransitionError{Op: "resume", From: c.state}
	}

	now := c.clock.Now()
	remaining := c.timeout - c.pausedElapsed
	if remaining < 0 {
		remaining = 0
	}
	deadline := now.Add(remaining)

	snap := &statestore.Snapshot{
		State:    StateRunning.String(),
		Deadline: deadline,
		Timeout:  c.timeout,
	}
	if err := c.backend.Save(ctx, snap); err != nil {
		c.logger.Warn("failed to persist resumed state, staying PAUSED", "error", err)
		return nil
	}

	c.state = StateRunning
	c.deadline = deadline
	c.markLocked(now, c.pausedElapsed)
	c.pausedElapsed = 0
	c.publishLocked(remaining)

	c.scheduleBackstopsLocked(remaining)
	c.startTickLocked()

	c.logger.Debug("cache window resumed", "remaining", remaining)
	return nil
}

// Extend pushes the deadline out by d, capped at the full configured
// timeout from now: an extension can refill the window but never grow it
// past its configured length. Valid only while RUNNING.
func (c *Coordinator) Extend(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		return &InvalidTransitionError{Op: "extend", From: c.state}
	}

	now := c.clock.Now()
	deadline := c.deadline.Add(d)
	if limit := now.Add(c.timeout); deadline.After(limit) {
		deadline = limit
	}

	snap := &statestore.Snapshot{
		State:    StateRunning.String(),
		Deadline: deadline,
		Timeout:  c.timeout,
	}
	if err := c.backend.Save(ctx, snap); err != nil {
		c.logger.Warn("failed to persist extended deadline, keeping previous", "error", err)
		return nil
	}

	remaining := deadline.Sub(now)
	c.deadline = deadline
	c.markLocked(now, c.timeout-remaining)
	c.publishLocked(remaining)
	c.scheduleBackstopsLocked(remaining)

	c.logger.Debug("cache window extended", "by", d, "remaining", remaining)
	return nil
}

// SetTimeout applies a new configured timeout. An in-flight RUNNING window
// keeps its already-elapsed *fraction*: a window 40% through a 5-minute
// timeout becomes 40% through the new one, so settings changes neither
// truncate nor extend the window abruptly. A PAUSED window scales its
// frozen elapsed the same way.
func (c *Coordinator) SetTimeout(ctx context.Context, newTimeout time.Duration) error {
	if newTimeout <= 0 {
		return &InvalidTransitionError{Op: "set non-positive timeout", From: c.State()}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	oldTimeout := c.timeout

	switch c.state {
	case StateRunning:
		now := c.clock.Now()
		elapsed := c.elapsedBefore + (c.clock.Monotonic() - c.monoMark)
		ratio := float64(elapsed) / float64(oldTimeout)
		if ratio > 1 {
			ratio = 1
		}
		newElapsed := time.Duration(ratio * float64(newTimeout))
		remaining := newTimeout - newElapsed
		deadline := now.Add(remaining)

		snap := &statestore.Snapshot{
			State:    StateRunning.String(),
			Deadline: deadline,
			Timeout:  newTimeout,
		}
		if err := c.backend.Save(ctx, snap); err != nil {
			c.logger.Warn("failed to persist timeout change, keeping previous", "error", err)
			return nil
		}

		c.timeout = newTimeout
		c.deadline = deadline
		c.markLocked(now, newElapsed)
		c.publishLocked(remaining)
		c.scheduleBackstopsLocked(remaining)

	case StatePaused:
		ratio := float64(c.pausedElapsed) / float64(oldTimeout)
		if ratio > 1 {
			ratio = 1
		}
		newElapsed := time.Duration(ratio * float64(newTimeout))

		snap := &statestore.Snapshot{
			State:         StatePaused.String(),
			Deadline:      c.deadline,
			Timeout:       newTimeout,
			PausedElapsed: newElapsed,
		}
		if err := c.backend.Save(ctx, snap); err != nil {
			c.logger.Warn("failed to persist timeout change, keeping previous", "error", err)
			return nil
		}

		c.timeout = newTimeout
		c.pausedElapsed = newElapsed

	default:
		c.timeout = newTimeout
	}

	c.logger.Info("cache timeout changed", "from", oldTimeout, "to", newTimeout)
	return nil
}

// Restore reconstructs the coordinator from the persisted snapshot on
// process start. A deadline that passed while the process was dead applies
// the expiry side effect immediately, never showing a live countdown.
// Persistence failures fall back to STOPPED rather than guessing.
func (c *Coordinator) Restore(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.backend.Load(ctx)
	if err != nil {
		c.logger.Warn("failed to restore persisted cache state, falling back to STOPPED", "error", err)
		c.state = StateStopped
		c.store.Clear()
		c.publishLocked(0)
		return
	}
	if snap == nil {
		c.state = StateStopped
		c.publishLocked(0)
		return
	}

	if snap.Timeout > 0 {
		c.timeout = snap.Timeout
	}
	now := c.clock.Now()

	switch ParseState(snap.State) {
	case StateRunning:
		if !snap.Deadline.After(now) {
			// The window ran out while the process was dead.
			c.logger.Info("cache expired while process was down", "deadline", snap.Deadline)
			c.state = StateRunning
			c.deadline = snap.Deadline
			c.expireLocked(ctx)
			return
		}
		remaining := snap.Deadline.Sub(now)
		c.state = StateRunning
		c.deadline = snap.Deadline
		c.markLocked(now, c.timeout-remaining)
		c.publishLocked(remaining)
		c.scheduleBackstopsLocked(remaining)
		c.startTickLocked()
		c.logger.Info("cache window restored", "remaining", remaining)

	case StatePaused:
		c.state = StatePaused
		c.deadline = snap.Deadline
		c.pausedElapsed = snap.PausedElapsed
		c.publishLocked(c.timeout - snap.PausedElapsed)
		c.logger.Info("cache window restored paused", "elapsed", snap.PausedElapsed)

	default:
		c.state = StateStopped
		c.store.Clear()
		c.publishLocked(0)
	}
}

// HandleScheduledTask is the entry point for backstop tasks delivered by
// the BackgroundExpiryScheduler. Delivery is at-least-once; both branches
// are idempotent (a fired task on an already-STOPPED cache is a no-op).
func (c *Coordinator) HandleScheduledTask(kind TaskKind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch kind {
	case KindWarn:
		if c.state == StateRunning {
			go c.notifier.Warn()
		}
	case KindExpire:
		if c.state != StateRunning {
			return
		}
		now := c.clock.Now()
		if c.deadline.After(now) {
			// Fired early: re-arm for the remainder so the window is
			// never left without a pending backstop.
			if err := c.sched.ScheduleOnce(KindExpire, c.deadline.Sub(now)); err != nil {
				c.logger.Warn("failed to reschedule backstop expiry",
					"error", &SchedulerError{Kind: KindExpire, Cause: err})
			}
			return
		}
		c.expireLocked(context.Background())
	}
}

// Close stops ticking without firing any side effects. The persisted
// snapshot is left intact so the next Restore picks the window back up.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTickLocked()
}

// tick evaluates the window once. Invoked roughly once per second by the
// ticking task while RUNNING.
func (c *Coordinator) tick() {
	c.mu.Lock()

	if c.state != StateRunning {
		c.mu.Unlock()
		return
	}

	now := c.clock.Now()
	c.correctDriftLocked(now)

	remaining := c.deadline.Sub(now)
	if remaining <= 0 {
		c.expireLocked(context.Background())
		c.mu.Unlock()
		return
	}

	c.publishLocked(remaining)
	subs := c.snapshotSubs()
	c.mu.Unlock()

	for _, fn := range subs {
		fn(remaining)
	}
}

// correctDriftLocked compares monotonic elapsed against wall elapsed since
// the last marks. When they diverge past the threshold the wall clock is
// judged unreliable (NTP sync, manual change, timezone move, sleep skew)
// and the deadline is recomputed from monotonic elapsed, which is ground
// truth for how long the cache has actually been warm.
func (c *Coordinator) correctDriftLocked(now time.Time) {
	monoElapsed := c.clock.Monotonic() - c.monoMark
	wallElapsed := now.Sub(c.wallMark)

	drift := wallElapsed - monoElapsed
	if drift < 0 {
		drift = -drift
	}
	if drift <= c.cfg.DriftThreshold {
		return
	}

	totalElapsed := c.elapsedBefore + monoElapsed
	remaining := c.timeout - totalElapsed
	if remaining < 0 {
		remaining = 0
	}

	c.logger.Warn("wall clock drift detected, recomputing deadline from monotonic clock",
		"wall_elapsed", wallElapsed,
		"monotonic_elapsed", monoElapsed,
		"remaining", remaining,
	)

	c.deadline = now.Add(remaining)
	c.markLocked(now, totalElapsed)
	c.scheduleBackstopsLocked(remaining)

	// Best-effort: keep the persisted wall deadline in step with the
	// corrected one so a crash right now restores accurately.
	snap := &statestore.Snapshot{
		State:    StateRunning.String(),
		Deadline: c.deadline,
		Timeout:  c.timeout,
	}
	if err := c.backend.Save(context.Background(), snap); err != nil {
		c.logger.Warn("failed to persist drift-corrected deadline", "error", err)
	}
}

// expireLocked runs the expiry side effect: stop ticking, clear the store
// (when auto-clear is on), notify, cancel backstops, clear persisted state,
// settle into STOPPED. Idempotent via the state guard at every call site;
// the Expired notification fires exactly once per expiry transition.
func (c *Coordinator) expireLocked(ctx context.Context) {
	c.state = StateExpired
	c.stopTickLocked()

	if c.cfg.AutoClear {
		c.store.Clear()
	}
	go c.notifier.Expired()

	c.cancelBackstopsLocked()
	if err := c.backend.Clear(ctx); err != nil {
		c.logger.Warn("failed to clear persisted state after expiry", "error", err)
	}

	c.state = StateStopped
	c.deadline = time.Time{}
	c.pausedElapsed = 0
	c.publishLocked(0)

	c.logger.Info("cache window expired")
}

// stopLocked is the non-expiry stop path (removal emptied the store, or an
// explicit clear). Tick cancellation happens before the persisted state is
// cleared so a resurrected tick can never read a half-cleared deadline.
func (c *Coordinator) stopLocked(ctx context.Context) {
	c.stopTickLocked()
	c.cancelBackstopsLocked()
	if err := c.backend.Clear(ctx); err != nil {
		c.logger.Warn("failed to clear persisted state", "error", err)
	}

	c.state = StateStopped
	c.deadline = time.Time{}
	c.pausedElapsed = 0
	c.publishLocked(0)
}

// markLocked records fresh monotonic and wall marks, with elapsedBefore
// capturing how much of the window had already elapsed at that instant.
func (c *Coordinator) markLocked(now time.Time, elapsedBefore time.Duration) {
	c.monoMark = c.clock.Monotonic()
	c.wallMark = now
	c.elapsedBefore = elapsedBefore
}

// publishLocked publishes remaining for lock-free readers.
func (c *Coordinator) publishLocked(remaining time.Duration) {
	if remaining < 0 {
		remaining = 0
	}
	c.remainingNs.Store(int64(remaining))
}

// scheduleBackstopsLocked (re)schedules the expiry and warning tasks with
// replace semantics. The warning fires warn-lead before the deadline,
// clamped to immediate for short windows. Failures are logged and absorbed:
// the coordinator's own tick is authoritative while foregrounded.
func (c *Coordinator) scheduleBackstopsLocked(remaining time.Duration) {
	if err := c.sched.ScheduleOnce(KindExpire, remaining); err != nil {
		c.logger.Warn("failed to schedule backstop expiry",
			"error", &SchedulerError{Kind: KindExpire, Cause: err})
	}

	warnDelay := remaining - c.cfg.WarnLead
	if warnDelay < 0 {
		warnDelay = 0
	}
	if err := c.sched.ScheduleOnce(KindWarn, warnDelay); err != nil {
		c.logger.Warn("failed to schedule expiry warning",
			"error", &SchedulerError{Kind: KindWarn, Cause: err})
	}
}

// cancelBackstopsLocked cancels both pending backstop tasks.
func (c *Coordinator) cancelBackstopsLocked() {
	if err := c.sched.Cancel(KindExpire); err != nil {
		c.logger.Warn("failed to cancel backstop expiry",
			"error", &SchedulerError{Kind: KindExpire, Cause: err})
	}
	if err := c.sched.Cancel(KindWarn); err != nil {
		c.logger.Warn("failed to cancel expiry warning",
			"error", &SchedulerError{Kind: KindWarn, Cause: err})
	}
}

// startTickLocked starts the ticking task if it is not already running.
func (c *Coordinator) startTickLocked() {
	if c.tickStop != nil {
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	c.tickStop = stop
	c.tickDone = done

	interval := c.cfg.TickInterval
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.tick()
			case <-stop:
				return
			}
		}
	}()
}

// stopTickLocked cancels the ticking task. It does not wait for the task
// goroutine to exit: the goroutine may be the caller (expiry observed from
// a tick), and a late tick is harmless behind the state guard.
func (c *Coordinator) stopTickLocked() {
	if c.tickStop == nil {
		return
	}
	close(c.tickStop)
	c.tickStop = nil
	c.tickDone = nil
}

// snapshotSubs copies the current subscriber set for invocation outside
// the coordinator lock.
func (c *Coordinator) snapshotSubs() []func(time.Duration) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	out := make([]func(time.Duration), 0, len(c.subs))
	for _, fn := range c.subs {
		out = append(out, fn)
	}
	return out
}

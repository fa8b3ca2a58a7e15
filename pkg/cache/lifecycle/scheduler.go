package lifecycle

import (
	"sync"
	"time"
)

// TimerScheduler implements BackgroundExpiryScheduler on in-process timers.
// It honors the replace-on-reschedule contract but, being in-process, it
// cannot outlive the process; on platforms with an OS work scheduler a
// platform-backed implementation should wrap it. It exists so the
// coordinator's backstop path is always exercised, and so the contract has
// a reference implementation.
type TimerScheduler struct {
	// handler receives fired tasks.
	handler func(kind TaskKind)

	// timers holds the pending task per kind.
	timers map[TaskKind]*time.Timer

	// mu protects handler and timers.
	mu sync.Mutex
}

// NewTimerScheduler creates a timer-backed scheduler. The handler may be
// nil at construction and set later with SetHandler, which breaks the
// construction cycle between scheduler and coordinator.
func NewTimerScheduler(handler func(kind TaskKind)) *TimerScheduler {
	return &TimerScheduler{
		handler: handler,
		timers:  make(map[TaskKind]*time.Timer),
	}
}

// SetHandler sets the task handler. Pending tasks fired before a handler is
// set are dropped.
func (s *TimerScheduler) SetHandler(handler func(kind TaskKind)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// ScheduleOnce enqueues a one-shot task, replacing any pending task of the
// same kind.
func (s *TimerScheduler) ScheduleOnce(kind TaskKind, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[kind]; ok {
		t.Stop()
	}
	s.timers[kind] = time.AfterFunc(delay, func() {
		s.fire(kind)
	})
	return nil
}

// Cancel removes any pending task of the given kind.
func (s *TimerScheduler) Cancel(kind TaskKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[kind]; ok {
		t.Stop()
		delete(s.timers, kind)
	}
	return nil
}

// Stop cancels all pending tasks.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for kind, t := range s.timers {
		t.Stop()
		delete(s.timers, kind)
	}
}

// fire delivers a fired task to the handler.
func (s *TimerScheduler) fire(kind TaskKind) {
	s.mu.Lock()
	handler := s.handler
	delete(s.timers, kind)
	s.mu.Unlock()

	if handler != nil {
		handler(kind)
	}
}

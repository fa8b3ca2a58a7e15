package session

import (
	"sync"
	"time"

	"pocketforge/comet/pkg/costs"
)

// LongContextWarnFraction is the fraction of the long-context threshold at
// which NearingLongContext starts reporting true.
const LongContextWarnFraction = 0.8

// Session accumulates token usage for one conversation and prices it
// against a fixed tier. It is created on the first message, mutated by
// every subsequent one, and never mutated after End.
//
// Sessions are thread-safe; the memoized current cost is invalidated on
// every mutation and recomputed lazily.
type Session struct {
	// ID is the unique session identifier.
	ID string

	mu sync.Mutex

	tier                costs.Tier
	displayCurrencyRate float64

	inputTokens      int
	outputTokens     int
	cacheReadTokens  int
	cacheWriteTokens int
	messageCount     int
	lastInputTokens  int

	startedAt    time.Time
	lastActivity time.Time
	endedAt      time.Time

	// cost memoizes the breakdown for the cumulative counters.
	cost *costs.Breakdown
}

// New creates a session priced under the given tier.
func New(id string, tier costs.Tier, displayCurrencyRate float64) *Session {
	if displayCurrencyRate <= 0 {
		displayCurrencyRate = 1.0
	}
	now := time.Now()
	return &Session{
		ID:                  id,
		tier:                tier,
		displayCurrencyRate: displayCurrencyRate,
		startedAt:           now,
		lastActivity:        now,
	}
}

// Tier returns the session's pricing tier.
func (s *Session) Tier() costs.Tier {
	return s.tier
}

// AddMessage accumulates one provider response's usage and returns the
// breakdown for that message alone. The usage is validated before any
// counter moves, so an invalid message leaves the session untouched.
func (s *Session) AddMessage(usage costs.TokenUsage) (*costs.Breakdown, error) {
	b, _, err := s.addMessage(usage)
	return b, err
}

// addMessage also returns the message's ordinal within the session. The
// ordinal is assigned under the session lock so concurrent adds cannot
// observe the same value.
func (s *Session) addMessage(usage costs.TokenUsage) (*costs.Breakdown, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.endedAt.IsZero() {
		return nil, 0, ErrSessionEnded
	}

	msgCost, err := costs.Calculate(s.tier, usage, s.displayCurrencyRate)
	if err != nil {
		return nil, 0, err
	}

	s.inputTokens += usage.InputTokens
	s.outputTokens += usage.OutputTokens
	s.cacheReadTokens += usage.CacheReadTokens
	s.cacheWriteTokens += usage.CacheWriteTokens
	s.messageCount++
	s.lastInputTokens = usage.InputTokens
	s.lastActivity = time.Now()
	s.cost = nil

	return msgCost, s.messageCount, nil
}

// CurrentCost returns the breakdown for the session's cumulative counters,
// memoized until the next mutation.
func (s *Session) CurrentCost() (*costs.Breakdown, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentCostLocked()
}

func (s *Session) currentCostLocked() (*costs.Breakdown, error) {
	if s.cost != nil {
		return s.cost, nil
	}
	b, err := costs.Calculate(s.tier, costs.TokenUsage{
		InputTokens:      s.inputTokens,
		OutputTokens:     s.outputTokens,
		CacheReadTokens:  s.cacheReadTokens,
		CacheWriteTokens: s.cacheWriteTokens,
	}, s.displayCurrencyRate)
	if err != nil {
		return nil, err
	}
	s.cost = b
	return b, nil
}

// Merge folds another session's counters into this one. Both sessions must
// share the same pricing tier; on mismatch neither session is mutated.
func (s *Session) Merge(other *Session) error {
	if s == other {
		return nil
	}

	// Lock in ID order so concurrent cross-merges cannot deadlock.
	first, second := s, other
	if second.ID < first.ID {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if s.tier != other.tier {
		return &TierMismatchError{Model: s.tier.Model, OtherModel: other.tier.Model}
	}
	if !s.endedAt.IsZero() {
		return ErrSessionEnded
	}

	s.inputTokens += other.inputTokens
	s.outputTokens += other.outputTokens
	s.cacheReadTokens += other.cacheReadTokens
	s.cacheWriteTokens += other.cacheWriteTokens
	s.messageCount += other.messageCount
	if other.lastActivity.After(s.lastActivity) {
		s.lastActivity = other.lastActivity
	}
	s.cost = nil
	return nil
}

// End marks the session finished. Further AddMessage calls fail; reads
// keep working.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.endedAt.IsZero() {
		s.endedAt = time.Now()
	}
}

// Ended reports whether the session has been ended.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.endedAt.IsZero()
}

// CacheHitRate returns cache-read tokens as a fraction of all input
// tokens, zero when no input has been recorded.
func (s *Session) CacheHitRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inputTokens == 0 {
		return 0
	}
	return float64(s.cacheReadTokens) / float64(s.inputTokens)
}

// AverageCostPerMessage returns the cumulative USD cost divided by the
// message count, zero for an empty session.
func (s *Session) AverageCostPerMessage() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.messageCount == 0 {
		return 0
	}
	b, err := s.currentCostLocked()
	if err != nil {
		return 0
	}
	return b.TotalCost / float64(s.messageCount)
}

// NearingLongContext reports whether the most recent message's input size
// has reached 80% of the tier's long-context threshold, warning the caller
// before the conversation tips into the expensive bracket.
func (s *Session) NearingLongContext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tier.LongContextThreshold <= 0 {
		return false
	}
	return float64(s.lastInputTokens) >= LongContextWarnFraction*float64(s.tier.LongContextThreshold)
}

// MessageCount returns the number of messages recorded.
func (s *Session) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageCount
}

// Tokens returns the cumulative token counters.
func (s *Session) Tokens() costs.TokenUsage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return costs.TokenUsage{
		InputTokens:      s.inputTokens,
		OutputTokens:     s.outputTokens,
		CacheReadTokens:  s.cacheReadTokens,
		CacheWriteTokens: s.cacheWriteTokens,
	}
}

// StartedAt returns when the session was created.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// LastActivity returns when the session last recorded a message.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

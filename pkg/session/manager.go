package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"pocketforge/comet/pkg/config"
	"pocketforge/comet/pkg/costs"
	"pocketforge/comet/pkg/session/history"
)

// CostRecorder observes the cost and savings of every recorded message.
// Implemented by the telemetry cost collectors.
type CostRecorder interface {
	RecordMessageCost(model string, costUSD, savingsUSD float64)
}

// Manager is the process-wide session table. It creates sessions with
// freshly minted IDs, resolves their pricing tier once at creation, and
// reclaims idle sessions on a cron-scheduled sweep.
type Manager struct {
	calculator *costs.Calculator
	ledger     *history.Store
	cfg        config.SessionsConfig
	logger     *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	recorder CostRecorder

	cronMu  sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewManager creates a session manager. The ledger may be nil to disable
// usage history recording.
func NewManager(cfg config.SessionsConfig, calculator *costs.Calculator, ledger *history.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		calculator: calculator,
		ledger:     ledger,
		cfg:        cfg,
		logger:     logger.With("component", "session.manager"),
		sessions:   make(map[string]*Session),
		cron:       cron.New(),
	}
}

// SetCostRecorder registers an observer for per-message cost and savings.
// Must not call back into the manager.
func (m *Manager) SetCostRecorder(r CostRecorder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorder = r
}

// Create starts a new session for a model, resolving its pricing tier. The
// tier is fixed for the session's lifetime; pricing hot-reloads apply only
// to sessions created afterwards.
func (m *Manager) Create(model string) (*Session, error) {
	tier, err := m.calculator.ResolveTier(model)
	if err != nil {
		return nil, fmt.Errorf("cannot start session: %w", err)
	}

	s := New(uuid.NewString(), tier, m.calculator.DisplayCurrencyRate())

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Debug("session started", "session_id", s.ID, "model", model)
	return s, nil
}

// Get returns a session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// AddMessage records one provider response against a session, returning
// the per-message cost breakdown. When a ledger is configured the message
// is also appended there; ledger failures are logged, not propagated, so
// accounting never blocks the conversation.
func (m *Manager) AddMessage(ctx context.Context, id string, usage costs.TokenUsage) (*costs.Breakdown, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	b, seq, err := s.addMessage(usage)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	recorder := m.recorder
	m.mu.RUnlock()
	if recorder != nil {
		recorder.RecordMessageCost(s.Tier().Model, b.TotalCost, b.Savings)
	}

	if m.ledger != nil {
		rec := history.Record{
			SessionID:        s.ID,
			Seq:              seq,
			Model:            s.Tier().Model,
			InputTokens:      usage.InputTokens,
			OutputTokens:     usage.OutputTokens,
			CacheReadTokens:  usage.CacheReadTokens,
			CacheWriteTokens: usage.CacheWriteTokens,
			CostUSD:          b.TotalCost,
			SavingsUSD:       b.Savings,
			CreatedAt:        time.Now(),
		}
		if err := m.ledger.Append(ctx, rec); err != nil {
			m.logger.Warn("failed to append usage record", "session_id", s.ID, "error", err)
		}
	}

	return b, nil
}

// End finishes a session. The session stays in the table (readable) until
// the idle sweep reclaims it.
func (m *Manager) End(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.End()
	return nil
}

// Len returns the number of sessions currently in the table.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Start begins the scheduled idle-session sweep using the configured cron
// expression (e.g., "@every 5m").
func (m *Manager) Start(ctx context.Context) error {
	m.cronMu.Lock()
	defer m.cronMu.Unlock()

	if m.cfg.SweepSchedule == "" {
		m.logger.Info("session sweep schedule not configured, skipping")
		return nil
	}

	if _, err := cron.ParseStandard(m.cfg.SweepSchedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", m.cfg.SweepSchedule, err)
	}

	if _, err := m.cron.AddFunc(m.cfg.SweepSchedule, m.SweepIdle); err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	m.cron.Start()
	m.running = true

	m.logger.Info("session sweep started",
		"schedule", m.cfg.SweepSchedule,
		"idle_timeout", m.cfg.IdleTimeout,
	)

	go func() {
		<-ctx.Done()
		m.Stop()
	}()

	return nil
}

// Stop stops the sweep scheduler and waits for a running sweep to finish.
func (m *Manager) Stop() {
	m.cronMu.Lock()
	defer m.cronMu.Unlock()

	if m.cron != nil && m.running {
		ctx := m.cron.Stop()
		<-ctx.Done()
		m.running = false
		m.logger.Info("session sweep stopped")
	}
}

// SweepIdle reclaims sessions idle beyond the configured timeout, and any
// ended session regardless of idle time.
func (m *Manager) SweepIdle() {
	cutoff := time.Now().Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		if s.Ended() || s.LastActivity().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	remaining := len(m.sessions)
	m.mu.Unlock()

	if removed > 0 {
		m.logger.Info("idle sessions reclaimed", "removed", removed, "remaining", remaining)
	}
}

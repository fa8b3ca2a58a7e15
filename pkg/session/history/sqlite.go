package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Record is one message's usage, as appended to the ledger.
type Record struct {
	// SessionID is the owning session.
	SessionID string

	// Seq is the message's ordinal within the session (1-based).
	Seq int

	// Model is the pricing tier's model identifier.
	Model string

	// Token counters from the provider's usage block.
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int

	// CostUSD is the message's total cost in USD.
	CostUSD float64

	// SavingsUSD is the cache savings for the message in USD.
	SavingsUSD float64

	// CreatedAt is when the message was recorded.
	CreatedAt time.Time
}

// Totals aggregates a session's ledger rows.
type Totals struct {
	SessionID        string
	Messages         int
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int
	CostUSD          float64
	SavingsUSD       float64
}

// Summary describes one session in the recent-sessions listing.
type Summary struct {
	SessionID string
	Model     string
	Messages  int
	CostUSD   float64
	LastSeen  time.Time
}

// Store is the append-only usage ledger, backed by SQLite. Rows outlive
// the in-memory session table, so spend can be reviewed after sessions are
// reclaimed or the process restarts.
//
// Store is thread-safe; writes serialize through a single connection.
type Store struct {
	db *sql.DB

	mu        sync.Mutex
	closeOnce sync.Once

	appendStmt *sql.Stmt
	totalsStmt *sql.Stmt
	recentStmt *sql.Stmt
}

// Open opens (creating if needed) the ledger database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger path cannot be empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s := &Store{db: db}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare ledger statements: %w", err)
	}

	return s, nil
}

// initSchema creates the ledger table and indexes if they don't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS usage_messages (
		session_id         TEXT    NOT NULL,
		seq                INTEGER NOT NULL,
		model              TEXT    NOT NULL,
		input_tokens       INTEGER NOT NULL,
		output_tokens      INTEGER NOT NULL,
		cache_read_tokens  INTEGER NOT NULL,
		cache_write_tokens INTEGER NOT NULL,
		cost_usd           REAL    NOT NULL,
		savings_usd        REAL    NOT NULL,
		created_at         INTEGER NOT NULL,
		PRIMARY KEY (session_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_usage_created_at
		ON usage_messages(created_at);`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements pre-compiles the ledger SQL.
func (s *Store) prepareStatements() error {
	var err error

	s.appendStmt, err = s.db.Prepare(`
		INSERT INTO usage_messages (
			session_id, seq, model,
			input_tokens, output_tokens, cache_read_tokens, cache_write_tokens,
			cost_usd, savings_usd, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare append: %w", err)
	}

	s.totalsStmt, err = s.db.Prepare(`
		SELECT COUNT(*),
		       COALESCE(SUM(input_tokens), 0),
		       COALESCE(SUM(output_tokens), 0),
		       COALESCE(SUM(cache_read_tokens), 0),
		       COALESCE(SUM(cache_write_tokens), 0),
		       COALESCE(SUM(cost_usd), 0),
		       COALESCE(SUM(savings_usd), 0)
		FROM usage_messages WHERE session_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare totals: %w", err)
	}

	s.recentStmt, err = s.db.Prepare(`
		SELECT session_id, model, COUNT(*), SUM(cost_usd), MAX(created_at)
		FROM usage_messages
		GROUP BY session_id, model
		ORDER BY MAX(created_at) DESC
		LIMIT ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare recent: %w", err)
	}

	return nil
}

// Append writes one message record.
func (s *Store) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.appendStmt.ExecContext(ctx,
		rec.SessionID, rec.Seq, rec.Model,
		rec.InputTokens, rec.OutputTokens, rec.CacheReadTokens, rec.CacheWriteTokens,
		rec.CostUSD, rec.SavingsUSD, rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to append usage record: %w", err)
	}
	return nil
}

// SessionTotals aggregates all ledger rows for a session.
func (s *Store) SessionTotals(ctx context.Context, sessionID string) (*Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &Totals{SessionID: sessionID}
	err := s.totalsStmt.QueryRowContext(ctx, sessionID).Scan(
		&t.Messages,
		&t.InputTokens, &t.OutputTokens,
		&t.CacheReadTokens, &t.CacheWriteTokens,
		&t.CostUSD, &t.SavingsUSD,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query session totals: %w", err)
	}
	return t, nil
}

// RecentSessions lists sessions with ledger activity, most recent first.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.recentStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var lastSeenMs int64
		if err := rows.Scan(&sum.SessionID, &sum.Model, &sum.Messages, &sum.CostUSD, &lastSeenMs); err != nil {
			return nil, fmt.Errorf("failed to scan session summary: %w", err)
		}
		sum.LastSeen = time.UnixMilli(lastSeenMs)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session summaries: %w", err)
	}
	return out, nil
}

// Close closes the prepared statements and the database.
func (s *Store) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.appendStmt, s.totalsStmt, s.recentStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		closeErr = s.db.Close()
	})
	return closeErr
}

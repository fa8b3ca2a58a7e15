package statestore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteBackend implements Backend using SQLite for persistence. This is
// the production backend: the snapshot survives process death, which is the
// whole point of persisting the TTL deadline.
//
// The backend stores the snapshot as key-value rows, uses WAL mode for
// write performance, and serializes writes through a single connection.
type SQLiteBackend struct {
	db     *sql.DB
	dbPath string

	mu        sync.Mutex
	closeOnce sync.Once

	upsertStmt *sql.Stmt
	loadStmt   *sql.Stmt
	clearStmt  *sql.Stmt
}

// SQLiteBackendConfig configures the SQLite backend.
type SQLiteBackendConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteBackend creates a SQLite backend with default settings.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(SQLiteBackendConfig{
		DBPath:      dbPath,
		BusyTimeout: 5 * time.Second,
	})
}

// NewSQLiteBackendWithConfig creates a SQLite backend with custom
// configuration.
func NewSQLiteBackendWithConfig(cfg SQLiteBackendConfig) (*SQLiteBackend, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	backend := &SQLiteBackend{
		db:     db,
		dbPath: cfg.DBPath,
	}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := backend.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return backend, nil
}

// initSchema creates the key-value table if it doesn't exist.
func (s *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS lifecycle_state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// prepareStatements pre-compiles the SQL statements.
func (s *SQLiteBackend) prepareStatements() error {
	var err error

	s.upsertStmt, err = s.db.Prepare(`
		INSERT INTO lifecycle_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}

	s.loadStmt, err = s.db.Prepare(`SELECT key, value FROM lifecycle_state`)
	if err != nil {
		return fmt.Errorf("failed to prepare load: %w", err)
	}

	s.clearStmt, err = s.db.Prepare(`DELETE FROM lifecycle_state`)
	if err != nil {
		return fmt.Errorf("failed to prepare clear: %w", err)
	}

	return nil
}

// Save persists the snapshot as key-value rows in one transaction.
func (s *SQLiteBackend) Save(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &PersistenceError{Op: "save", Cause: err}
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	values := map[string]string{
		KeyState:           snap.State,
		KeyEndTimestamp:    strconv.FormatInt(snap.Deadline.UnixMilli(), 10),
		KeyTimeoutMs:       strconv.FormatInt(snap.Timeout.Milliseconds(), 10),
		KeyPausedElapsedMs: strconv.FormatInt(snap.PausedElapsed.Milliseconds(), 10),
	}

	for key, value := range values {
		if _, err := tx.StmtContext(ctx, s.upsertStmt).ExecContext(ctx, key, value); err != nil {
			return &PersistenceError{Op: "save", Cause: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "save", Cause: err}
	}
	return nil
}

// Load reads the snapshot back. Returns (nil, nil) when no state row
// exists, or a PersistenceError when rows exist but cannot be decoded.
func (s *SQLiteBackend) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.loadStmt.QueryContext(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Cause: err}
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, &PersistenceError{Op: "load", Cause: err}
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "load", Cause: err}
	}

	state, ok := values[KeyState]
	if !ok {
		return nil, nil
	}

	snap := &Snapshot{State: state}

	if raw, ok := values[KeyEndTimestamp]; ok {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &PersistenceError{Op: "load", Cause: fmt.Errorf("bad %s value %q: %w", KeyEndTimestamp, raw, err)}
		}
		snap.Deadline = time.UnixMilli(ms)
	}
	if raw, ok := values[KeyTimeoutMs]; ok {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &PersistenceError{Op: "load", Cause: fmt.Errorf("bad %s value %q: %w", KeyTimeoutMs, raw, err)}
		}
		snap.Timeout = time.Duration(ms) * time.Millisecond
	}
	if raw, ok := values[KeyPausedElapsedMs]; ok {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &PersistenceError{Op: "load", Cause: fmt.Errorf("bad %s value %q: %w", KeyPausedElapsedMs, raw, err)}
		}
		snap.PausedElapsed = time.Duration(ms) * time.Millisecond
	}

	return snap, nil
}

// Clear removes the persisted snapshot.
func (s *SQLiteBackend) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.clearStmt.ExecContext(ctx); err != nil {
		return &PersistenceError{Op: "clear", Cause: err}
	}
	return nil
}

// Close closes the prepared statements and the database.
func (s *SQLiteBackend) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.upsertStmt, s.loadStmt, s.clearStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		closeErr = s.db.Close()
	})
	return closeErr
}

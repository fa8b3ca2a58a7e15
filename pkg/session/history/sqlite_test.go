package history

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord(sessionID string, seq int) Record {
	return Record{
		SessionID:        sessionID,
		Seq:              seq,
		Model:            "claude-sonnet-4",
		InputTokens:      10_000,
		OutputTokens:     500,
		CacheReadTokens:  2_000,
		CacheWriteTokens: 1_000,
		CostUSD:          0.04,
		SavingsUSD:       0.005,
		CreatedAt:        time.Now(),
	}
}

// TestStore_AppendAndTotals tests append plus aggregation.
func TestStore_AppendAndTotals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for seq := 1; seq <= 3; seq++ {
		if err := store.Append(ctx, testRecord("s1", seq)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	// A second session must not bleed into the first's totals.
	if err := store.Append(ctx, testRecord("s2", 1)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	totals, err := store.SessionTotals(ctx, "s1")
	if err != nil {
		t.Fatalf("SessionTotals failed: %v", err)
	}
	if totals.Messages != 3 {
		t.Errorf("Expected 3 messages, got %d", totals.Messages)
	}
	if totals.InputTokens != 30_000 {
		t.Errorf("Expected 30000 input tokens, got %d", totals.InputTokens)
	}
	if totals.CacheReadTokens != 6_000 {
		t.Errorf("Expected 6000 cache read tokens, got %d", totals.CacheReadTokens)
	}
	if math.Abs(totals.CostUSD-0.12) > 1e-9 {
		t.Errorf("Expected cost 0.12, got %.6f", totals.CostUSD)
	}
	if math.Abs(totals.SavingsUSD-0.015) > 1e-9 {
		t.Errorf("Expected savings 0.015, got %.6f", totals.SavingsUSD)
	}
}

// TestStore_TotalsEmptySession tests aggregation over no rows.
func TestStore_TotalsEmptySession(t *testing.T) {
	store := newTestStore(t)

	totals, err := store.SessionTotals(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("SessionTotals failed: %v", err)
	}
	if totals.Messages != 0 || totals.CostUSD != 0 {
		t.Errorf("Expected zero totals, got %+v", totals)
	}
}

// TestStore_DuplicateSeqRejected tests the (session, seq) primary key.
func TestStore_DuplicateSeqRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, testRecord("s1", 1)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, testRecord("s1", 1)); err == nil {
		t.Fatal("Expected error for duplicate (session, seq), got nil")
	}
}

// TestStore_RecentSessions tests the recency listing.
func TestStore_RecentSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := testRecord("old-session", 1)
	older.CreatedAt = time.Now().Add(-time.Hour)
	if err := store.Append(ctx, older); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	newer := testRecord("new-session", 1)
	if err := store.Append(ctx, newer); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	sessions, err := store.RecentSessions(ctx, 10)
	if err != nil {
		t.Fatalf("RecentSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].SessionID != "new-session" {
		t.Errorf("Expected new-session first, got %s", sessions[0].SessionID)
	}
	if sessions[1].SessionID != "old-session" {
		t.Errorf("Expected old-session second, got %s", sessions[1].SessionID)
	}
	if sessions[0].Model != "claude-sonnet-4" {
		t.Errorf("Expected model claude-sonnet-4, got %s", sessions[0].Model)
	}
}

// TestStore_RecentSessionsLimit tests the listing limit.
func TestStore_RecentSessionsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := testRecord("s"+string(rune('a'+i)), 1)
		rec.CreatedAt = time.Now().Add(time.Duration(i) * time.Minute)
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	sessions, err := store.RecentSessions(ctx, 2)
	if err != nil {
		t.Fatalf("RecentSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("Expected 2 sessions with limit 2, got %d", len(sessions))
	}
}

// TestStore_SurvivesReopen tests rows persist across store instances.
func TestStore_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "usage.db")
	ctx := context.Background()

	first, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := first.Append(ctx, testRecord("s1", 1)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := Open(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	totals, err := second.SessionTotals(ctx, "s1")
	if err != nil {
		t.Fatalf("SessionTotals failed: %v", err)
	}
	if totals.Messages != 1 {
		t.Errorf("Expected 1 message to survive reopen, got %d", totals.Messages)
	}
}

// TestOpen_EmptyPath tests constructor validation.
func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("Expected error for empty path, got nil")
	}
}

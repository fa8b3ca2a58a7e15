package session

import (
	"errors"
	"math"
	"sync"
	"testing"

	"pocketforge/comet/pkg/costs"
)

func testTier() costs.Tier {
	return costs.Tier{
		Model:                "claude-sonnet-4",
		InputPrice:           3.00,
		OutputPrice:          15.00,
		CacheWritePrice:      3.75,
		CacheReadPrice:       0.30,
		LongContextThreshold: 200_000,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// TestSession_AddMessage tests accumulation across messages.
func TestSession_AddMessage(t *testing.T) {
	s := New("s1", testTier(), 1.0)

	b, err := s.AddMessage(costs.TokenUsage{InputTokens: 10_000, OutputTokens: 500})
	if err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	want := 10_000.0/1_000_000*3.00 + 500.0/1_000_000*15.00
	if !almostEqual(b.TotalCost, want) {
		t.Errorf("Expected message cost %.6f, got %.6f", want, b.TotalCost)
	}

	if _, err := s.AddMessage(costs.TokenUsage{InputTokens: 5_000, CacheReadTokens: 4_000}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	tokens := s.Tokens()
	if tokens.InputTokens != 15_000 {
		t.Errorf("Expected 15000 input tokens, got %d", tokens.InputTokens)
	}
	if tokens.CacheReadTokens != 4_000 {
		t.Errorf("Expected 4000 cache read tokens, got %d", tokens.CacheReadTokens)
	}
	if got := s.MessageCount(); got != 2 {
		t.Errorf("Expected 2 messages, got %d", got)
	}
}

// TestSession_ConcurrentMessageOrdinals verifies every concurrently
// recorded message gets a distinct ordinal.
func TestSession_ConcurrentMessageOrdinals(t *testing.T) {
	s := New("s1", testTier(), 1.0)

	const n = 32
	var mu sync.Mutex
	seqs := make(map[int]bool, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, seq, err := s.addMessage(costs.TokenUsage{InputTokens: 100})
			if err != nil {
				t.Errorf("addMessage failed: %v", err)
				return
			}
			mu.Lock()
			seqs[seq] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seqs) != n {
		t.Fatalf("Expected %d distinct ordinals, got %d", n, len(seqs))
	}
	for i := 1; i <= n; i++ {
		if !seqs[i] {
			t.Errorf("Expected ordinal %d assigned", i)
		}
	}
}

// TestSession_AddMessageInvalidLeavesSessionUntouched verifies validation
// happens before any counter moves.
func TestSession_AddMessageInvalidLeavesSessionUntouched(t *testing.T) {
	s := New("s1", testTier(), 1.0)

	if _, err := s.AddMessage(costs.TokenUsage{InputTokens: 1_000}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	_, err := s.AddMessage(costs.TokenUsage{InputTokens: -5})
	if !errors.Is(err, costs.ErrInvalidUsage) {
		t.Fatalf("Expected ErrInvalidUsage, got %v", err)
	}

	if got := s.MessageCount(); got != 1 {
		t.Errorf("Expected message count unchanged at 1, got %d", got)
	}
	if got := s.Tokens().InputTokens; got != 1_000 {
		t.Errorf("Expected input tokens unchanged at 1000, got %d", got)
	}
}

// TestSession_CurrentCostMemoized verifies the memoized breakdown is
// reused between mutations and invalidated by them.
func TestSession_CurrentCostMemoized(t *testing.T) {
	s := New("s1", testTier(), 1.0)

	if _, err := s.AddMessage(costs.TokenUsage{InputTokens: 10_000}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	first, err := s.CurrentCost()
	if err != nil {
		t.Fatalf("CurrentCost failed: %v", err)
	}
	second, err := s.CurrentCost()
	if err != nil {
		t.Fatalf("CurrentCost failed: %v", err)
	}
	if first != second {
		t.Error("Expected memoized breakdown pointer to be reused")
	}

	if _, err := s.AddMessage(costs.TokenUsage{InputTokens: 10_000}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	third, err := s.CurrentCost()
	if err != nil {
		t.Fatalf("CurrentCost failed: %v", err)
	}
	if third == first {
		t.Error("Expected mutation to invalidate the memoized breakdown")
	}
	if !almostEqual(third.TotalCost, 2*first.TotalCost) {
		t.Errorf("Expected doubled cost %.6f, got %.6f", 2*first.TotalCost, third.TotalCost)
	}
}

// TestSession_End verifies the ended session rejects writes but keeps
// serving reads.
func TestSession_End(t *testing.T) {
	s := New("s1", testTier(), 1.0)

	if _, err := s.AddMessage(costs.TokenUsage{InputTokens: 10_000}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	s.End()

	if !s.Ended() {
		t.Error("Expected Ended true")
	}
	if _, err := s.AddMessage(costs.TokenUsage{InputTokens: 1}); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("Expected ErrSessionEnded, got %v", err)
	}

	b, err := s.CurrentCost()
	if err != nil {
		t.Fatalf("CurrentCost failed: %v", err)
	}
	if b.TotalCost <= 0 {
		t.Errorf("Expected positive cost after end, got %.6f", b.TotalCost)
	}

	// End is idempotent.
	s.End()
	if !s.Ended() {
		t.Error("Expected Ended still true")
	}
}

// TestSession_Merge verifies counter folding.
func TestSession_Merge(t *testing.T) {
	a := New("a", testTier(), 1.0)
	b := New("b", testTier(), 1.0)

	if _, err := a.AddMessage(costs.TokenUsage{InputTokens: 10_000, OutputTokens: 100}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if _, err := b.AddMessage(costs.TokenUsage{InputTokens: 5_000, CacheReadTokens: 2_000}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	tokens := a.Tokens()
	if tokens.InputTokens != 15_000 {
		t.Errorf("Expected 15000 input tokens, got %d", tokens.InputTokens)
	}
	if tokens.CacheReadTokens != 2_000 {
		t.Errorf("Expected 2000 cache read tokens, got %d", tokens.CacheReadTokens)
	}
	if got := a.MessageCount(); got != 2 {
		t.Errorf("Expected 2 messages, got %d", got)
	}
}

// TestSession_MergeTierMismatch verifies neither session is mutated on a
// tier mismatch.
func TestSession_MergeTierMismatch(t *testing.T) {
	otherTier := testTier()
	otherTier.Model = "claude-haiku"
	otherTier.InputPrice = 0.80

	a := New("a", testTier(), 1.0)
	b := New("b", otherTier, 1.0)

	if _, err := a.AddMessage(costs.TokenUsage{InputTokens: 1_000}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if _, err := b.AddMessage(costs.TokenUsage{InputTokens: 2_000}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	err := a.Merge(b)
	if !errors.Is(err, ErrTierMismatch) {
		t.Fatalf("Expected ErrTierMismatch, got %v", err)
	}

	if got := a.Tokens().InputTokens; got != 1_000 {
		t.Errorf("Expected a untouched at 1000 input tokens, got %d", got)
	}
	if got := b.Tokens().InputTokens; got != 2_000 {
		t.Errorf("Expected b untouched at 2000 input tokens, got %d", got)
	}
}

// TestSession_MergeSelf verifies self-merge is a no-op.
func TestSession_MergeSelf(t *testing.T) {
	s := New("s1", testTier(), 1.0)
	if _, err := s.AddMessage(costs.TokenUsage{InputTokens: 1_000}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	if err := s.Merge(s); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if got := s.Tokens().InputTokens; got != 1_000 {
		t.Errorf("Expected tokens unchanged at 1000, got %d", got)
	}
}

// TestSession_CacheHitRate verifies the hit-rate fraction.
func TestSession_CacheHitRate(t *testing.T) {
	s := New("s1", testTier(), 1.0)

	if got := s.CacheHitRate(); got != 0 {
		t.Errorf("Expected 0 hit rate for empty session, got %.3f", got)
	}

	if _, err := s.AddMessage(costs.TokenUsage{InputTokens: 10_000, CacheReadTokens: 7_500}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if got := s.CacheHitRate(); !almostEqual(got, 0.75) {
		t.Errorf("Expected hit rate 0.75, got %.3f", got)
	}
}

// TestSession_AverageCostPerMessage verifies the per-message average.
func TestSession_AverageCostPerMessage(t *testing.T) {
	s := New("s1", testTier(), 1.0)

	if got := s.AverageCostPerMessage(); got != 0 {
		t.Errorf("Expected 0 average for empty session, got %.6f", got)
	}

	for i := 0; i < 4; i++ {
		if _, err := s.AddMessage(costs.TokenUsage{InputTokens: 10_000}); err != nil {
			t.Fatalf("AddMessage failed: %v", err)
		}
	}

	// 40K input at $3/M is $0.12 total over 4 messages.
	if got := s.AverageCostPerMessage(); !almostEqual(got, 0.03) {
		t.Errorf("Expected average 0.03, got %.6f", got)
	}
}

// TestSession_NearingLongContext verifies the 80% early warning tracks the
// latest message, not the cumulative total.
func TestSession_NearingLongContext(t *testing.T) {
	s := New("s1", testTier(), 1.0)

	if s.NearingLongContext() {
		t.Error("Expected false for empty session")
	}

	if _, err := s.AddMessage(costs.TokenUsage{InputTokens: 100_000}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if s.NearingLongContext() {
		t.Error("Expected false at 100K of a 200K threshold")
	}

	if _, err := s.AddMessage(costs.TokenUsage{InputTokens: 160_000}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if !s.NearingLongContext() {
		t.Error("Expected true at 160K (80% of 200K)")
	}

	// A smaller follow-up message clears the warning.
	if _, err := s.AddMessage(costs.TokenUsage{InputTokens: 50_000}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if s.NearingLongContext() {
		t.Error("Expected false after a 50K message")
	}
}

// TestSession_NearingLongContextNoThreshold verifies a tier without a
// threshold never warns.
func TestSession_NearingLongContextNoThreshold(t *testing.T) {
	tier := testTier()
	tier.LongContextThreshold = 0
	s := New("s1", tier, 1.0)

	if _, err := s.AddMessage(costs.TokenUsage{InputTokens: 1_000_000}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if s.NearingLongContext() {
		t.Error("Expected false with no threshold configured")
	}
}

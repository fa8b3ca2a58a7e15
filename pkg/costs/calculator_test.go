package costs

import (
	"errors"
	"math"
	"testing"

	"pocketforge/comet/pkg/config"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func testTier() Tier {
	return Tier{
		Model:                  "claude-sonnet-4",
		InputPrice:             5.00,
		OutputPrice:            25.00,
		LongContextInputPrice:  10.00,
		LongContextOutputPrice: 37.50,
		CacheWritePrice:        6.25,
		CacheReadPrice:         0.50,
		LongContextThreshold:   200_000,
		MinCacheableTokens:     1024,
	}
}

// TestCalculate_WorkedExample prices the package doc example: 100K input
// of which 20K cache reads, 2K output.
func TestCalculate_WorkedExample(t *testing.T) {
	usage := TokenUsage{
		InputTokens:     100_000,
		OutputTokens:    2_000,
		CacheReadTokens: 20_000,
	}

	b, err := Calculate(testTier(), usage, 1.0)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	if !almostEqual(b.RegularInputCost, 0.40) {
		t.Errorf("Expected regular input cost 0.40, got %.6f", b.RegularInputCost)
	}
	if !almostEqual(b.CacheReadCost, 0.01) {
		t.Errorf("Expected cache read cost 0.01, got %.6f", b.CacheReadCost)
	}
	if !almostEqual(b.OutputCost, 0.05) {
		t.Errorf("Expected output cost 0.05, got %.6f", b.OutputCost)
	}
	if !almostEqual(b.TotalCost, 0.46) {
		t.Errorf("Expected total 0.46, got %.6f", b.TotalCost)
	}
	if !almostEqual(b.Savings, 0.09) {
		t.Errorf("Expected savings 0.09, got %.6f", b.Savings)
	}
	if b.LongContext {
		t.Error("Expected base bracket for 100K input")
	}
}

// TestCalculate_TotalIsExactSum verifies the component-sum invariant.
func TestCalculate_TotalIsExactSum(t *testing.T) {
	usage := TokenUsage{
		InputTokens:      123_457,
		OutputTokens:     7_891,
		CacheReadTokens:  33_333,
		CacheWriteTokens: 11_111,
	}

	b, err := Calculate(testTier(), usage, 1.0)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	sum := b.RegularInputCost + b.CacheWriteCost + b.CacheReadCost + b.OutputCost
	if b.TotalCost != sum {
		t.Errorf("Expected total to be the exact component sum %v, got %v", sum, b.TotalCost)
	}
}

// TestCalculate_CacheTokensReduceRegularInput verifies cached tokens are
// removed from the full-price count.
func TestCalculate_CacheTokensReduceRegularInput(t *testing.T) {
	usage := TokenUsage{
		InputTokens:      100_000,
		CacheReadTokens:  60_000,
		CacheWriteTokens: 30_000,
	}

	b, err := Calculate(testTier(), usage, 1.0)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	// 10K tokens remain at full price.
	if !almostEqual(b.RegularInputCost, 0.05) {
		t.Errorf("Expected regular input cost 0.05, got %.6f", b.RegularInputCost)
	}
	if !almostEqual(b.CacheWriteCost, 30_000.0/1_000_000*6.25) {
		t.Errorf("Expected cache write cost 0.1875, got %.6f", b.CacheWriteCost)
	}
}

// TestCalculate_CacheCountsExceedInput verifies the regular input count
// clamps at zero when the provider reports more cached than input tokens.
func TestCalculate_CacheCountsExceedInput(t *testing.T) {
	usage := TokenUsage{
		InputTokens:     10_000,
		CacheReadTokens: 50_000,
	}

	b, err := Calculate(testTier(), usage, 1.0)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	if b.RegularInputCost != 0 {
		t.Errorf("Expected regular input cost clamped to 0, got %.6f", b.RegularInputCost)
	}
	if !almostEqual(b.CacheReadCost, 50_000.0/1_000_000*0.50) {
		t.Errorf("Expected cache read cost 0.025, got %.6f", b.CacheReadCost)
	}
}

// TestCalculate_LongContextBracket verifies the bracket switch above the
// threshold.
func TestCalculate_LongContextBracket(t *testing.T) {
	tier := testTier()

	tests := []struct {
		name        string
		inputTokens int
		longContext bool
	}{
		{"below threshold", 199_999, false},
		{"at threshold", 200_000, false},
		{"above threshold", 200_001, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Calculate(tier, TokenUsage{InputTokens: tt.inputTokens, OutputTokens: 1000}, 1.0)
			if err != nil {
				t.Fatalf("Calculate failed: %v", err)
			}
			if b.LongContext != tt.longContext {
				t.Errorf("Expected longContext=%v for %d tokens, got %v", tt.longContext, tt.inputTokens, b.LongContext)
			}
		})
	}

	// Output is billed at the long-context rate too.
	b, err := Calculate(tier, TokenUsage{InputTokens: 250_000, OutputTokens: 1_000}, 1.0)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if !almostEqual(b.OutputCost, 1_000.0/1_000_000*37.50) {
		t.Errorf("Expected long-context output cost 0.0375, got %.6f", b.OutputCost)
	}
	if !almostEqual(b.RegularInputCost, 250_000.0/1_000_000*10.00) {
		t.Errorf("Expected long-context input cost 2.5, got %.6f", b.RegularInputCost)
	}
}

// TestCalculate_LongContextSavingsUseBracketPrice verifies the savings
// counterfactual uses the effective input price.
func TestCalculate_LongContextSavingsUseBracketPrice(t *testing.T) {
	usage := TokenUsage{
		InputTokens:     300_000,
		CacheReadTokens: 100_000,
	}

	b, err := Calculate(testTier(), usage, 1.0)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	// 100K at long-context input $10.00 = $1.00 counterfactual, minus the
	// $0.05 actually charged.
	if !almostEqual(b.Savings, 1.00-0.05) {
		t.Errorf("Expected savings 0.95, got %.6f", b.Savings)
	}
}

// TestCalculate_NoSavingsWithoutCacheReads verifies savings stays zero.
func TestCalculate_NoSavingsWithoutCacheReads(t *testing.T) {
	b, err := Calculate(testTier(), TokenUsage{InputTokens: 50_000, CacheWriteTokens: 40_000}, 1.0)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if b.Savings != 0 {
		t.Errorf("Expected zero savings, got %.6f", b.Savings)
	}
}

// TestCalculate_DisplayCurrency verifies the display conversion leaves the
// USD total untouched.
func TestCalculate_DisplayCurrency(t *testing.T) {
	usage := TokenUsage{InputTokens: 100_000, OutputTokens: 2_000, CacheReadTokens: 20_000}

	b, err := Calculate(testTier(), usage, 1.5)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	if !almostEqual(b.TotalCost, 0.46) {
		t.Errorf("Expected USD total 0.46, got %.6f", b.TotalCost)
	}
	if !almostEqual(b.DisplayTotal, 0.69) {
		t.Errorf("Expected display total 0.69, got %.6f", b.DisplayTotal)
	}
}

// TestCalculate_ZeroUsage verifies an all-zero usage prices to zero.
func TestCalculate_ZeroUsage(t *testing.T) {
	b, err := Calculate(testTier(), TokenUsage{}, 1.0)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if b.TotalCost != 0 || b.Savings != 0 || b.DisplayTotal != 0 {
		t.Errorf("Expected all-zero breakdown, got %+v", b)
	}
}

// TestCalculate_Validation verifies the rejection paths.
func TestCalculate_Validation(t *testing.T) {
	tests := []struct {
		name  string
		usage TokenUsage
		rate  float64
	}{
		{"negative input", TokenUsage{InputTokens: -1}, 1.0},
		{"negative output", TokenUsage{OutputTokens: -1}, 1.0},
		{"negative cache read", TokenUsage{CacheReadTokens: -1}, 1.0},
		{"negative cache write", TokenUsage{CacheWriteTokens: -1}, 1.0},
		{"zero rate", TokenUsage{}, 0},
		{"negative rate", TokenUsage{}, -2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calculate(testTier(), tt.usage, tt.rate)
			if !errors.Is(err, ErrInvalidUsage) {
				t.Errorf("Expected ErrInvalidUsage, got %v", err)
			}
		})
	}
}

// TestCalculate_MonotonicInCacheReads verifies that shifting tokens from
// full price to cache reads never increases the total.
func TestCalculate_MonotonicInCacheReads(t *testing.T) {
	tier := testTier()
	const input = 100_000

	prev := math.Inf(1)
	for reads := 0; reads <= input; reads += 10_000 {
		b, err := Calculate(tier, TokenUsage{InputTokens: input, CacheReadTokens: reads}, 1.0)
		if err != nil {
			t.Fatalf("Calculate failed at %d reads: %v", reads, err)
		}
		if b.TotalCost > prev {
			t.Errorf("Total increased from %.6f to %.6f at %d cache reads", prev, b.TotalCost, reads)
		}
		prev = b.TotalCost
	}
}

func testCostsConfig() *config.CostsConfig {
	return &config.CostsConfig{
		Pricing: map[string]config.ModelPricingConfig{
			"claude-sonnet-4-20250514": {Input: 3.00, Output: 15.00},
			"claude-haiku":             {Input: 0.80, Output: 4.00},
			"default":                  {Input: 5.00, Output: 25.00},
		},
		DisplayCurrencyRate: 1.0,
	}
}

// TestCalculator_ResolveTier verifies exact, prefix, and default
// resolution.
func TestCalculator_ResolveTier(t *testing.T) {
	calc := NewCalculator(testCostsConfig())

	tests := []struct {
		name      string
		model     string
		wantInput float64
	}{
		{"exact match", "claude-sonnet-4-20250514", 3.00},
		{"prefix match", "claude-haiku-4-20250514", 0.80},
		{"default fallback", "gpt-whatever", 5.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, err := calc.ResolveTier(tt.model)
			if err != nil {
				t.Fatalf("ResolveTier failed: %v", err)
			}
			if tier.InputPrice != tt.wantInput {
				t.Errorf("Expected input price %.2f, got %.2f", tt.wantInput, tier.InputPrice)
			}
			if tier.Model != tt.model {
				t.Errorf("Expected tier model %s, got %s", tt.model, tier.Model)
			}
		})
	}
}

// TestCalculator_ResolveTierDerivedPrices verifies cache and long-context
// prices derive from the base pair when unset.
func TestCalculator_ResolveTierDerivedPrices(t *testing.T) {
	calc := NewCalculator(testCostsConfig())

	tier, err := calc.ResolveTier("claude-sonnet-4-20250514")
	if err != nil {
		t.Fatalf("ResolveTier failed: %v", err)
	}

	if !almostEqual(tier.CacheWritePrice, 3.00*1.25) {
		t.Errorf("Expected cache write 3.75, got %.4f", tier.CacheWritePrice)
	}
	if !almostEqual(tier.CacheReadPrice, 3.00*0.10) {
		t.Errorf("Expected cache read 0.30, got %.4f", tier.CacheReadPrice)
	}
	if tier.LongContextInputPrice != 3.00 {
		t.Errorf("Expected long-context input fallback 3.00, got %.2f", tier.LongContextInputPrice)
	}
	if tier.LongContextThreshold != 200_000 {
		t.Errorf("Expected default threshold 200000, got %d", tier.LongContextThreshold)
	}
}

// TestCalculator_NoPricing verifies the error path with no default entry.
func TestCalculator_NoPricing(t *testing.T) {
	calc := NewCalculator(&config.CostsConfig{
		Pricing: map[string]config.ModelPricingConfig{
			"claude-sonnet": {Input: 3.00, Output: 15.00},
		},
	})

	_, err := calc.ResolveTier("gpt-4o")
	if !errors.Is(err, ErrNoPricing) {
		t.Errorf("Expected ErrNoPricing, got %v", err)
	}
}

// TestCalculator_CalculateForModel verifies end-to-end resolution plus
// pricing.
func TestCalculator_CalculateForModel(t *testing.T) {
	calc := NewCalculator(testCostsConfig())

	b, err := calc.CalculateForModel("claude-sonnet-4-20250514", TokenUsage{
		InputTokens:  10_000,
		OutputTokens: 1_000,
	})
	if err != nil {
		t.Fatalf("CalculateForModel failed: %v", err)
	}

	want := 10_000.0/1_000_000*3.00 + 1_000.0/1_000_000*15.00
	if !almostEqual(b.TotalCost, want) {
		t.Errorf("Expected total %.6f, got %.6f", want, b.TotalCost)
	}
}

// TestCalculator_UpdatePricing verifies hot-reload swaps the table and
// rate.
func TestCalculator_UpdatePricing(t *testing.T) {
	calc := NewCalculator(testCostsConfig())

	calc.UpdatePricing(map[string]config.ModelPricingConfig{
		"claude-sonnet-4-20250514": {Input: 6.00, Output: 30.00},
	}, 2.0)

	tier, err := calc.ResolveTier("claude-sonnet-4-20250514")
	if err != nil {
		t.Fatalf("ResolveTier failed: %v", err)
	}
	if tier.InputPrice != 6.00 {
		t.Errorf("Expected reloaded input price 6.00, got %.2f", tier.InputPrice)
	}
	if got := calc.DisplayCurrencyRate(); got != 2.0 {
		t.Errorf("Expected rate 2.0, got %.2f", got)
	}

	// The old default entry is gone with the old table.
	if _, err := calc.ResolveTier("gpt-whatever"); !errors.Is(err, ErrNoPricing) {
		t.Errorf("Expected ErrNoPricing after reload, got %v", err)
	}
}

// TestCalculator_UpdatePricingKeepsRateWhenUnset verifies a non-positive
// rate leaves the previous one in place.
func TestCalculator_UpdatePricingKeepsRateWhenUnset(t *testing.T) {
	cfg := testCostsConfig()
	cfg.DisplayCurrencyRate = 1.5
	calc := NewCalculator(cfg)

	calc.UpdatePricing(cfg.Pricing, 0)

	if got := calc.DisplayCurrencyRate(); got != 1.5 {
		t.Errorf("Expected rate preserved at 1.5, got %.2f", got)
	}
}

package costs

import (
	"strings"
	"sync"

	"pocketforge/comet/pkg/config"
)

const tokensPerPriceUnit = 1_000_000

// Calculate turns token counts into a cost breakdown for a single request.
// It is a pure function: same inputs, same outputs, no state.
//
// The algorithm:
//  1. Select the base or long-context price pair by comparing input tokens
//     against the tier's threshold.
//  2. Tokens served from the cache (read or write) are removed from the
//     full-price input count.
//  3. Each component is priced per 1M tokens; the total is the exact sum of
//     the four components; the display total applies the currency rate.
//  4. Savings is the counterfactual: what the cache-read tokens would have
//     cost at full input price, minus what they actually cost.
func Calculate(tier Tier, usage TokenUsage, displayCurrencyRate float64) (*Breakdown, error) {
	if usage.InputTokens < 0 {
		return nil, &ValidationError{Field: "input tokens", Value: usage.InputTokens, Message: "must not be negative"}
	}
	if usage.OutputTokens < 0 {
		return nil, &ValidationError{Field: "output tokens", Value: usage.OutputTokens, Message: "must not be negative"}
	}
	if usage.CacheReadTokens < 0 {
		return nil, &ValidationError{Field: "cache read tokens", Value: usage.CacheReadTokens, Message: "must not be negative"}
	}
	if usage.CacheWriteTokens < 0 {
		return nil, &ValidationError{Field: "cache write tokens", Value: usage.CacheWriteTokens, Message: "must not be negative"}
	}
	if displayCurrencyRate <= 0 {
		return nil, &ValidationError{Field: "display currency rate", Value: displayCurrencyRate, Message: "must be positive"}
	}

	inputPrice := tier.InputPrice
	outputPrice := tier.OutputPrice
	longContext := tier.LongContextThreshold > 0 && usage.InputTokens > tier.LongContextThreshold
	if longContext {
		inputPrice = tier.LongContextInputPrice
		outputPrice = tier.LongContextOutputPrice
	}

	regularInput := usage.InputTokens - usage.CacheReadTokens - usage.CacheWriteTokens
	if regularInput < 0 {
		regularInput = 0
	}

	b := &Breakdown{
		RegularInputCost: tokenCost(regularInput, inputPrice),
		CacheWriteCost:   tokenCost(usage.CacheWriteTokens, tier.CacheWritePrice),
		CacheReadCost:    tokenCost(usage.CacheReadTokens, tier.CacheReadPrice),
		OutputCost:       tokenCost(usage.OutputTokens, outputPrice),
		LongContext:      longContext,
	}
	b.TotalCost = b.RegularInputCost + b.CacheWriteCost + b.CacheReadCost + b.OutputCost
	b.DisplayTotal = b.TotalCost * displayCurrencyRate

	if usage.CacheReadTokens > 0 {
		b.Savings = tokenCost(usage.CacheReadTokens, inputPrice) - b.CacheReadCost
	}

	return b, nil
}

// tokenCost prices a token count at a USD-per-1M-tokens rate.
func tokenCost(tokens int, pricePerMillion float64) float64 {
	if tokens <= 0 {
		return 0.0
	}
	return float64(tokens) / tokensPerPriceUnit * pricePerMillion
}

// Calculator resolves pricing tiers by model identifier and carries the
// display currency rate. It is thread-safe and supports hot-reload of the
// pricing table.
type Calculator struct {
	// pricing maps model identifiers to pricing entries.
	pricing map[string]config.ModelPricingConfig

	// displayCurrencyRate converts USD into the display currency.
	displayCurrencyRate float64

	// mu protects the calculator for concurrent access.
	mu sync.RWMutex
}

// NewCalculator creates a cost calculator from the costs configuration.
func NewCalculator(cfg *config.CostsConfig) *Calculator {
	rate := cfg.DisplayCurrencyRate
	if rate <= 0 {
		rate = 1.0
	}
	return &Calculator{
		pricing:             cfg.Pricing,
		displayCurrencyRate: rate,
	}
}

// ResolveTier retrieves the pricing tier for a model. It tries exact match,
// then model prefix match (e.g., "claude-sonnet" matches
// "claude-sonnet-4-20250514"), then the "default" entry.
func (c *Calculator) ResolveTier(model string) (Tier, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if entry, ok := c.pricing[model]; ok {
		return tierFromConfig(model, entry), nil
	}

	for pattern, entry := range c.pricing {
		if pattern != "default" && strings.HasPrefix(model, pattern) {
			return tierFromConfig(model, entry), nil
		}
	}

	if entry, ok := c.pricing["default"]; ok {
		return tierFromConfig(model, entry), nil
	}

	return Tier{}, &NoPricingError{Model: model}
}

// CalculateForModel resolves the model's tier and prices the usage.
func (c *Calculator) CalculateForModel(model string, usage TokenUsage) (*Breakdown, error) {
	tier, err := c.ResolveTier(model)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	rate := c.displayCurrencyRate
	c.mu.RUnlock()

	return Calculate(tier, usage, rate)
}

// DisplayCurrencyRate returns the current display currency rate.
func (c *Calculator) DisplayCurrencyRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.displayCurrencyRate
}

// UpdatePricing swaps in a new pricing table and display rate (hot-reload).
// Thread-safe; in-flight calculations finish against the old table.
func (c *Calculator) UpdatePricing(pricing map[string]config.ModelPricingConfig, displayCurrencyRate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pricing = pricing
	if displayCurrencyRate > 0 {
		c.displayCurrencyRate = displayCurrencyRate
	}
}

// tierFromConfig converts a config pricing entry into a resolved Tier.
func tierFromConfig(model string, p config.ModelPricingConfig) Tier {
	p = config.ApplyPricingDefaults(p)
	return Tier{
		Model:                  model,
		InputPrice:             p.Input,
		OutputPrice:            p.Output,
		LongContextInputPrice:  p.LongContextInput,
		LongContextOutputPrice: p.LongContextOutput,
		CacheWritePrice:        p.CacheWrite,
		CacheReadPrice:         p.CacheRead,
		LongContextThreshold:   p.LongContextThreshold,
		MinCacheableTokens:     p.MinCacheableTokens,
	}
}

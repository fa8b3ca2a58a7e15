package costs

// Tier contains the per-model pricing constants. All prices are USD per 1M
// tokens. Tiers are immutable once resolved; hot-reload swaps whole tables
// in the Calculator rather than mutating a Tier.
type Tier struct {
	// Model is the model identifier this tier was resolved for.
	Model string

	// InputPrice is the base price for uncached input tokens.
	InputPrice float64

	// OutputPrice is the base price for output tokens.
	OutputPrice float64

	// LongContextInputPrice applies to input once the request exceeds
	// LongContextThreshold tokens.
	LongContextInputPrice float64

	// LongContextOutputPrice applies to output in the long-context bracket.
	LongContextOutputPrice float64

	// CacheWritePrice is the premium charged to populate the remote
	// prompt cache (empirically 1.25x the base input price).
	CacheWritePrice float64

	// CacheReadPrice is the discount charged to reuse the remote prompt
	// cache (empirically 0.10x the base input price).
	CacheReadPrice float64

	// LongContextThreshold is the input token count at which the
	// long-context bracket applies.
	LongContextThreshold int

	// MinCacheableTokens is the provider's minimum prompt size eligible
	// for caching.
	MinCacheableTokens int
}

// TokenUsage contains token counts from a provider response usage block.
type TokenUsage struct {
	// InputTokens is the total billed input tokens, including cached ones.
	InputTokens int

	// OutputTokens is the billed output tokens.
	OutputTokens int

	// CacheReadTokens is the tokens read back from the remote prompt cache.
	CacheReadTokens int

	// CacheWriteTokens is the tokens written into the remote prompt cache.
	CacheWriteTokens int
}

// Breakdown is the monetary cost breakdown for one calculation. It is a
// value type produced fresh per calculation.
//
// Invariant: TotalCost is the exact sum of the four cost components; no
// component is rounded before summation.
type Breakdown struct {
	// RegularInputCost is the cost of input tokens billed at full price.
	RegularInputCost float64

	// CacheWriteCost is the cost of populating the remote cache.
	CacheWriteCost float64

	// CacheReadCost is the cost of reading from the remote cache.
	CacheReadCost float64

	// OutputCost is the cost of output tokens.
	OutputCost float64

	// TotalCost is the total in USD.
	TotalCost float64

	// DisplayTotal is the total converted into the display currency.
	DisplayTotal float64

	// Savings is the counterfactual cost of the cache-read tokens at full
	// input price minus what was actually charged for them. Zero when no
	// tokens were read from the cache.
	Savings float64

	// LongContext indicates the long-context price bracket applied.
	LongContext bool
}

// Package costs turns provider token counts into monetary cost breakdowns.
//
// The core is the pure Calculate function: (tier, token counts, currency
// rate) in, Breakdown out. Cache-read and cache-write tokens are priced at
// the provider's discount and premium rates; input tokens above the
// long-context threshold move the whole request into the higher bracket.
//
// The Calculator wraps Calculate with per-model tier resolution (exact
// match, then prefix match, then "default") and supports hot-reload of the
// pricing table via UpdatePricing.
//
// # Worked Example
//
// Tier: input $5.00, output $25.00, cache write $6.25, cache read $0.50 per
// 1M tokens. A request with 100K input tokens of which 20K were read from
// the cache, and 2K output tokens:
//
//	regular input  80K x $5.00  = $0.40
//	cache read     20K x $0.50  = $0.01
//	output          2K x $25.00 = $0.05
//	total                       = $0.46
//	savings  20K x $5.00 - $0.01 = $0.09
package costs

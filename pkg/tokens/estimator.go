package tokens

// Estimator estimates token counts for text.
// Implementations may use different algorithms (character-based, BPE, etc.).
// Estimates are advisory only; billed token counts always come from the
// provider's response usage block.
type Estimator interface {
	// EstimateText estimates tokens for a single text string.
	EstimateText(text string) int
}

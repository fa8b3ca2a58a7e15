package cache

import (
	"fmt"
	"strings"
	"time"

	"pocketforge/comet/pkg/tokens"
)

// BuildContext renders all cached files into one deterministic text blob in
// insertion order, each file delimited by a header naming path, language,
// and size. The remaining duration is the coordinator's current view of the
// TTL window, printed as MM:SS.
//
// The returned token estimate is advisory; billed counts come from the
// provider's usage block.
func (s *Store) BuildContext(remaining time.Duration, est tokens.Estimator) Context {
	if est == nil {
		est = tokens.NewSimpleEstimator(tokens.DefaultCharsPerToken)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	total := len(s.order)

	fmt.Fprintf(&b, "=== CACHED FILES CONTEXT (%d files) ===\n", total)
	fmt.Fprintf(&b, "Cache expires in: %s\n", formatRemaining(remaining))

	for i, path := range s.order {
		f := s.files[path]
		b.WriteString("\n")
		fmt.Fprintf(&b, "--- FILE %d/%d: %s ---\n", i+1, total, f.Path)
		fmt.Fprintf(&b, "Language: %s | Size: %d bytes\n", f.Language, f.SizeBytes)
		b.WriteString(f.Content)
		b.WriteString("\n")
	}

	text := b.String()
	return Context{
		Text:            text,
		FileCount:       total,
		EstimatedTokens: est.EstimateText(text),
	}
}

// formatRemaining renders a duration as MM:SS, clamped at zero.
func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

package cache

import "time"

// CachedFile is a single file designated as present in the remote prompt
// cache. Files are owned exclusively by the Store: created on add, mutated
// in place on content update, destroyed on remove, clear, or expiry.
type CachedFile struct {
	// Path is the repository-relative path and the unique key.
	Path string

	// Content is the file content as sent to the LLM provider.
	Content string

	// Language is the language tag used in the rendered context header
	// (e.g., "kotlin", "go").
	Language string

	// SizeBytes is the content size in bytes.
	SizeBytes int

	// AddedAt is when the file was added to the store. Content updates
	// preserve it; it orders FIFO eviction.
	AddedAt time.Time
}

// Context is the rendered LLM-bound representation of all cached files.
type Context struct {
	// Text is the full rendered context blob.
	Text string

	// FileCount is the number of files rendered.
	FileCount int

	// EstimatedTokens is the advisory token estimate for Text. Billed
	// token counts come from the provider's response usage block.
	EstimatedTokens int
}

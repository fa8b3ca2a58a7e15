// Package cache holds the local mirror of the remote prompt cache: the set
// of files the user has explicitly selected for the LLM conversation.
//
// The Store is bounded CRUD plus rendering. It enforces a maximum entry
// count with FIFO eviction (oldest AddedAt first), replaces duplicate paths
// in place, and renders all entries into a single deterministic context
// blob for the LLM client.
//
// Whether the remote cache is currently warm is not the Store's concern;
// the lifecycle subpackage owns that state machine. Callers notify the
// coordinator after every mutation that adds content so it can re-arm the
// TTL window.
package cache

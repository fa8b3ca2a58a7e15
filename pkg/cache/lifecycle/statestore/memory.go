package statestore

import (
	"context"
	"sync"
)

// MemoryBackend implements Backend with in-process storage. The snapshot is
// lost on process exit, so a restored coordinator always starts STOPPED.
// Useful for tests and for callers that explicitly opt out of persistence.
//
// MemoryBackend is thread-safe.
type MemoryBackend struct {
	// snap is the current snapshot, nil when none exists.
	snap *Snapshot

	// mu protects snap.
	mu sync.RWMutex
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Save stores a copy of the snapshot.
func (m *MemoryBackend) Save(_ context.Context, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *snap
	m.snap = &cp
	return nil
}

// Load returns a copy of the stored snapshot, or (nil, nil) when empty.
func (m *MemoryBackend) Load(_ context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.snap == nil {
		return nil, nil
	}
	cp := *m.snap
	return &cp, nil
}

// Clear removes the stored snapshot.
func (m *MemoryBackend) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snap = nil
	return nil
}

// Close implements Backend. It is a no-op for the memory backend.
func (m *MemoryBackend) Close() error {
	return nil
}

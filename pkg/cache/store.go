package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Store holds the set of files currently designated as present in the
// remote prompt cache. It is thread-safe, bounded, and evicts the oldest
// entries first (FIFO by AddedAt) when an add would exceed the maximum.
//
// The Store is pure CRUD plus rendering; TTL decisions belong to the
// lifecycle Coordinator, which the caller notifies after every mutation
// that adds content.
type Store struct {
	// files maps path to the cached file.
	files map[string]*CachedFile

	// order tracks insertion order for FIFO eviction and deterministic
	// context rendering. Paths appear exactly once.
	order []string

	// maxFiles is the maximum number of entries (must be positive).
	maxFiles int

	// logger records evictions and clears.
	logger *slog.Logger

	// onEvict, when set, observes every silent eviction.
	onEvict func(path string)

	// mu protects concurrent access to the store.
	mu sync.RWMutex
}

// NewStore creates a cache store bounded at maxFiles entries.
func NewStore(maxFiles int, logger *slog.Logger) *Store {
	if maxFiles <= 0 {
		maxFiles = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		files:    make(map[string]*CachedFile),
		maxFiles: maxFiles,
		logger:   logger.With("component", "cache.store"),
	}
}

// SetEvictionObserver registers a callback invoked for every evicted path.
// Used by telemetry; must not call back into the store.
func (s *Store) SetEvictionObserver(fn func(path string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = fn
}

// Add inserts a file into the store, evicting the oldest entries if needed
// to make room. A duplicate path replaces the existing entry in place and
// refreshes its AddedAt (the re-add is a fresh cache write).
func (s *Store) Add(file CachedFile) error {
	_, err := s.AddBatch([]CachedFile{file})
	return err
}

// AddBatch inserts multiple files, evicting oldest entries first until room
// exists. It returns the count actually inserted. If the batch alone is
// larger than the store maximum, nothing is inserted and a CapacityError
// is returned.
func (s *Store) AddBatch(files []CachedFile) (int, error) {
	if len(files) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f.Path] = true
	}

	if len(seen) > s.maxFiles {
		return 0, &CapacityError{Requested: len(seen), MaxFiles: s.maxFiles}
	}

	// Pull the batch's existing entries out first so a replaced path is
	// neither counted against capacity nor evicted only to be re-inserted
	// below. A replacement is not an eviction; the observer stays quiet.
	for path := range seen {
		if _, exists := s.files[path]; exists {
			delete(s.files, path)
			s.removeFromOrderLocked(path)
		}
	}

	// Evict oldest entries until the batch fits.
	for len(s.files)+len(seen) > s.maxFiles {
		s.evictOldestLocked()
	}

	now := time.Now()
	inserted := 0
	for _, f := range files {
		f := f
		if f.SizeBytes == 0 {
			f.SizeBytes = len(f.Content)
		}
		if f.AddedAt.IsZero() {
			f.AddedAt = now
		}

		if _, exists := s.files[f.Path]; exists {
			// Duplicate path within the batch: last write wins, move to
			// the back of the insertion order.
			s.removeFromOrderLocked(f.Path)
		} else {
			inserted++
		}
		s.files[f.Path] = &f
		s.order = append(s.order, f.Path)
	}

	return inserted, nil
}

// Remove deletes a file by path. It reports whether the path was present.
func (s *Store) Remove(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[path]; !ok {
		return false
	}
	delete(s.files, path)
	s.removeFromOrderLocked(path)
	return true
}

// Clear removes all entries from the store.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.files) > 0 {
		s.logger.Info("cache store cleared", "files", len(s.files))
	}
	s.files = make(map[string]*CachedFile)
	s.order = s.order[:0]
}

// Has reports whether a path is in the store.
func (s *Store) Has(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.files[path]
	return ok
}

// Update replaces the content and size of an existing entry, preserving its
// AddedAt. Used when a cached file is edited: the edit is not a fresh cache
// write and must not look like one to FIFO eviction or the coordinator.
func (s *Store) Update(path, newContent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[path]
	if !ok {
		return &NotFoundError{Path: path}
	}
	f.Content = newContent
	f.SizeBytes = len(newContent)
	return nil
}

// GetAll returns copies of all cached files in insertion order.
func (s *Store) GetAll() []CachedFile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]CachedFile, 0, len(s.order))
	for _, path := range s.order {
		out = append(out, *s.files[path])
	}
	return out
}

// Len returns the current number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.files)
}

// evictOldestLocked evicts the oldest entry (front of the insertion order).
// Must be called with the write lock held.
func (s *Store) evictOldestLocked() {
	if len(s.order) == 0 {
		return
	}
	oldest := s.order[0]
	s.order = s.order[1:]
	delete(s.files, oldest)

	s.logger.Info("evicted oldest cached file", "path", oldest)
	if s.onEvict != nil {
		s.onEvict(oldest)
	}
}

// removeFromOrderLocked removes a path from the insertion order.
// Must be called with the write lock held.
func (s *Store) removeFromOrderLocked(path string) {
	for i, p := range s.order {
		if p == path {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

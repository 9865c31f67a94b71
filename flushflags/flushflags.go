// Package flushflags models the three flush-location flags
// (CACHE, PFS, FLUSHING) that orchestrator.FetchSync flips on success, as
// named in section 4.7 of the design and defined by the original
// implementation's scr_flush_nompi.h. The mutex-guarded in-memory shape
// follows gurre-ddb-pitr's checkpoint.MemoryStore.
package flushflags

import "sync"

// Flag is one of the three named flush locations.
type Flag int

const (
	CACHE Flag = iota
	PFS
	FLUSHING
)

// Set is a small thread-safe bitset over the three flags, one instance
// per dataset.
type Set struct {
	mu    sync.RWMutex
	flags map[Flag]bool
}

// New creates an empty Set (no flags set).
func New() *Set {
	return &Set{flags: make(map[Flag]bool, 3)}
}

// Set marks f as set.
func (s *Set) Set(f Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[f] = true
}

// Clear marks f as clear.
func (s *Set) Clear(f Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[f] = false
}

// IsSet reports whether f is currently set.
func (s *Set) IsSet(f Flag) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[f]
}

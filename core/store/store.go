// Package store provides the concurrency-safe key-value store behind the
// set, get and delete operations.
//
// Every method holds the store lock only for the duration of the map access;
// nothing inside a critical section waits on I/O or on other goroutines.
// Last writer wins; there is no versioning, expiration or persistence.
package store

import (
	"slices"
	"sync"
	"sync/atomic"
)

// MemoryStore is an in-memory string key-value store. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string

	sets    atomic.Int64
	hits    atomic.Int64
	misses  atomic.Int64
	removed atomic.Int64
}

// Stats provides counters for observability.
type Stats struct {
	Keys    int   // Current number of keys
	Sets    int64 // Total Set calls
	Hits    int64 // Get calls that found a value
	Misses  int64 // Get calls for absent keys
	Removed int64 // Keys actually removed by Delete
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]string),
	}
}

// Set inserts or overwrites the value for key.
func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()

	s.sets.Add(1)
}

// Get returns the value for key and whether it was present.
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	value, ok := s.data[key]
	s.mu.RUnlock()

	if ok {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	return value, ok
}

// Delete removes every given key that is present and returns how many were removed.
// Absent keys are ignored. Duplicate keys are counted once.
func (s *MemoryStore) Delete(keys ...string) int {
	if len(keys) == 0 {
		return 0
	}

	s.mu.Lock()
	n := 0
	for _, key := range keys {
		if _, ok := s.data[key]; ok {
			delete(s.data, key)
			n++
		}
	}
	s.mu.Unlock()

	s.removed.Add(int64(n))
	return n
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Keys returns a sorted snapshot of the stored keys.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	s.mu.RUnlock()

	slices.Sort(keys)
	return keys
}

// Stats returns current store statistics.
func (s *MemoryStore) Stats() Stats {
	return Stats{
		Keys:    s.Len(),
		Sets:    s.sets.Load(),
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Removed: s.removed.Load(),
	}
}

package ratelimit

import (
	"sync"
	"time"
)

// Record is the counter state for one "{category}:{identifier}" key.
type Record struct {
	Count     int
	ResetTime time.Time
}

// Store holds rate limit records. Implementations must be safe for
// concurrent use; the limiter serializes its own read-check-increment
// sequence on top of that.
type Store interface {
	Get(key string) (Record, bool)
	Set(key string, rec Record)
	// DeleteBefore removes every record whose ResetTime is before cutoff
	// and reports how many were removed.
	DeleteBefore(cutoff time.Time) int
	Len() int
}

// MemoryStore is a process-local Store backed by a map.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Get(key string) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	return rec, ok
}

func (m *MemoryStore) Set(key string, rec Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = rec
}

func (m *MemoryStore) DeleteBefore(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, rec := range m.records {
		if rec.ResetTime.Before(cutoff) {
			delete(m.records, key)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

package cache

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/siherrmann/cinegraph/model"
)

// Store persists cache entries. Get returns model.ErrCacheMiss for unknown keys,
// Put returns model.ErrQuotaExceeded when the entry does not fit.
type Store interface {
	Get(ctx context.Context, key string) (*model.CacheEntry, error)
	Put(ctx context.Context, entry *model.CacheEntry) error
	Delete(ctx context.Context, key string) error
	EvictOldest(ctx context.Context, prefix string, fraction float64) (int, error)
	Clear(ctx context.Context, prefix string) (int, error)
	Stats(ctx context.Context, prefix string) (model.CacheStats, error)
}

// MemoryStore is an in process Store with an optional byte quota
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string]model.CacheEntry
	used     int64
	maxBytes int64
}

// NewMemoryStore creates a memory store, a maxBytes of zero or less disables the quota
func NewMemoryStore(maxBytes int64) *MemoryStore {
	return &MemoryStore{
		entries:  map[string]model.CacheEntry{},
		maxBytes: maxBytes,
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*model.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, model.ErrCacheMiss
	}
	return &entry, nil
}

func (s *MemoryStore) Put(ctx context.Context, entry *model.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	used := s.used + entry.Size()
	if previous, ok := s.entries[entry.Key]; ok {
		used -= previous.Size()
	}
	if s.maxBytes > 0 && used > s.maxBytes {
		return model.ErrQuotaExceeded
	}

	stored := *entry
	stored.Value = append([]byte(nil), entry.Value...)
	s.entries[entry.Key] = stored
	s.used = used
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteLocked(key)
	return nil
}

func (s *MemoryStore) EvictOldest(ctx context.Context, prefix string, fraction float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sortOldestFirst(keys, func(key string) int64 { return s.entries[key].InsertedAt.UnixNano() })

	evict := evictCount(len(keys), fraction)
	for _, key := range keys[:evict] {
		s.deleteLocked(key)
	}
	return evict, nil
}

func (s *MemoryStore) Clear(ctx context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			s.deleteLocked(key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) Stats(ctx context.Context, prefix string) (model.CacheStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := model.CacheStats{}
	for key, entry := range s.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		stats.Entries++
		stats.SizeBytes += entry.Size()
		if stats.Oldest == nil || entry.InsertedAt.Before(*stats.Oldest) {
			insertedAt := entry.InsertedAt
			stats.Oldest = &insertedAt
		}
	}
	return stats, nil
}

func (s *MemoryStore) deleteLocked(key string) {
	if entry, ok := s.entries[key]; ok {
		s.used -= entry.Size()
		delete(s.entries, key)
	}
}

// evictCount returns ceil(n*fraction) bounded by n
func evictCount(n int, fraction float64) int {
	count := int(math.Ceil(float64(n) * fraction))
	if count > n {
		return n
	}
	if count < 0 {
		return 0
	}
	return count
}

// sortOldestFirst orders keys by insertion time, ties by key
func sortOldestFirst(keys []string, insertedAt func(key string) int64) {
	sort.Slice(keys, func(i, j int) bool {
		ti, tj := insertedAt(keys[i]), insertedAt(keys[j])
		if ti != tj {
			return ti < tj
		}
		return keys[i] < keys[j]
	})
}

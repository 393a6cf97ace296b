package model

import (
	"errors"
	"time"
)

var (
	// ErrCacheMiss is returned by cache stores for unknown keys
	ErrCacheMiss = errors.New("cache miss")
	// ErrQuotaExceeded is returned by cache stores that cannot take another entry
	ErrQuotaExceeded = errors.New("cache quota exceeded")
)

// CacheEntry is one stored oracle answer
type CacheEntry struct {
	Key        string    `json:"key"`
	Value      []byte    `json:"value"`
	InsertedAt time.Time `json:"inserted_at"`
}

// Size returns the number of bytes the entry accounts for against a quota
func (e *CacheEntry) Size() int64 {
	return int64(len(e.Key) + len(e.Value))
}

// CacheStats describes the namespaced content of a cache store
type CacheStats struct {
	Entries   int        `json:"entries"`
	SizeBytes int64      `json:"size_bytes"`
	Oldest    *time.Time `json:"oldest,omitempty"`
	Hits      int64      `json:"hits"`
	Misses    int64      `json:"misses"`
}

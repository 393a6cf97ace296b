package model

import (
	"fmt"
	"time"
)

// Config holds the tunables of the game engine
type Config struct {
	// Challenge generation
	MinPathLength  int `json:"min_path_length"`
	MaxPathLength  int `json:"max_path_length"`
	MaxAttempts    int `json:"max_attempts"`
	WalksPerLength int `json:"walks_per_length"`
	HintPathLength int `json:"hint_path_length"`

	// Notability thresholds in sitelinks
	StartNotability int `json:"start_notability"`
	AINotability    int `json:"ai_notability"`
	HintNotability  int `json:"hint_notability"`
	StartPoolSize   int `json:"start_pool_size"`
	AICandidates    int `json:"ai_candidates"`
	HintCount       int `json:"hint_count"`

	// Game rules
	MaxMistakes int `json:"max_mistakes"`

	// Resolution cache
	CacheTTL         time.Duration `json:"cache_ttl"`
	CacheQuotaBytes  int64         `json:"cache_quota_bytes"`
	EvictionFraction float64       `json:"eviction_fraction"`

	// Knowledge graph client
	RequestsPerSecond float64       `json:"requests_per_second"`
	RequestBurst      int           `json:"request_burst"`
	RequestTimeout    time.Duration `json:"request_timeout"`
	SearchLimit       int           `json:"search_limit"`

	// Graph download
	HubCount     int `json:"hub_count"`
	MaxGraphSize int `json:"max_graph_size"`
	MinHubFilms  int `json:"min_hub_films"`
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		MinPathLength:     3,
		MaxPathLength:     8,
		MaxAttempts:       3,
		WalksPerLength:    3,
		HintPathLength:    4,
		StartNotability:   50,
		AINotability:      30,
		HintNotability:    40,
		StartPoolSize:     100,
		AICandidates:      30,
		HintCount:         3,
		MaxMistakes:       3,
		CacheTTL:          7 * 24 * time.Hour,
		CacheQuotaBytes:   5 << 20, // matches a browser storage quota
		EvictionFraction:  0.2,
		RequestsPerSecond: 5,
		RequestBurst:      5,
		RequestTimeout:    30 * time.Second,
		SearchLimit:       10,
		HubCount:          100,
		MaxGraphSize:      200,
		MinHubFilms:       5,
	}
}

// Validate checks that the configuration can drive the engine
func (c Config) Validate() error {
	if c.MinPathLength < 1 {
		return fmt.Errorf("min path length must be at least 1, got %d", c.MinPathLength)
	}
	if c.MaxPathLength < c.MinPathLength {
		return fmt.Errorf("max path length %d is below min path length %d", c.MaxPathLength, c.MinPathLength)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.EvictionFraction <= 0 || c.EvictionFraction > 1 {
		return fmt.Errorf("eviction fraction must be in (0, 1], got %v", c.EvictionFraction)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %v", c.CacheTTL)
	}
	if c.MaxMistakes < 1 {
		return fmt.Errorf("max mistakes must be at least 1, got %d", c.MaxMistakes)
	}
	return nil
}

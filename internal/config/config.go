// Package config holds the read-only settings snapshot the engine consumes.
// Callers may swap the snapshot between queries; the engine never writes it.
package config

import (
	"fmt"
	"time"
)

// Default ranking weights. The three context weights sum to 1.0 so scores
// stay comparable when extension adjustments are layered on top.
const (
	DefaultRecencyWeight   = 0.3
	DefaultFrequencyWeight = 0.4
	DefaultProximityWeight = 0.3
)

const (
	DefaultMaxResults           = 20
	DefaultCacheSize            = 1000
	DefaultCacheTTL             = 5 * time.Minute
	DefaultSearchTimeout        = 5 * time.Second
	DefaultResultScoreThreshold = 0.1
	DefaultFuzzyMinSimilarity   = 0.2
	DefaultIndexingBatchSize    = 350
	DefaultWatchDebounce        = 300 * time.Millisecond
)

// RankingConfig carries the weight table the ranker fuses scores with.
type RankingConfig struct {
	RecencyWeight    float64
	FrequencyWeight  float64
	ProximityWeight  float64
	ExtensionWeights map[string]float64
}

// Config is the settings snapshot. Zero durations mean "no limit" for
// SearchTimeout and "no expiry" for CacheTTL; zero counts mean unlimited
// for MaxIndexedFiles and MaxIndexDepth.
type Config struct {
	SearchEngineEnabled   bool
	MaxResults            int
	PreferredExtensions   []string
	ExcludedPatterns      []string
	CacheSize             int
	CacheTTL              time.Duration
	Ranking               RankingConfig
	PreferDirectories     bool
	SearchTimeout         time.Duration
	ResultScoreThreshold  float64
	MinQueryLength        int
	MaxIndexedFiles       int
	MaxIndexDepth         int
	IndexHiddenFiles      bool
	FollowSymlinks        bool
	FuzzySearchEnabled    bool
	FuzzyMinSimilarity    float64
	CaseSensitiveSearch   bool
	IndexingBatchSize     int
	WatchMode             bool
	WatchDebounce         time.Duration
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		SearchEngineEnabled: true,
		MaxResults:          DefaultMaxResults,
		PreferredExtensions: []string{
			"txt", "pdf", "docx", "xlsx", "md", "rs", "go",
			"js", "html", "css", "json", "png", "jpg",
		},
		ExcludedPatterns: []string{
			".git",
			"node_modules",
			"target",
		},
		CacheSize: DefaultCacheSize,
		CacheTTL:  DefaultCacheTTL,
		Ranking: RankingConfig{
			RecencyWeight:   DefaultRecencyWeight,
			FrequencyWeight: DefaultFrequencyWeight,
			ProximityWeight: DefaultProximityWeight,
			ExtensionWeights: map[string]float64{
				"rs":  1.2,
				"go":  1.2,
				"md":  1.1,
				"txt": 0.7,
				"log": 0.5,
				"tmp": 0.3,
			},
		},
		PreferDirectories:    false,
		SearchTimeout:        DefaultSearchTimeout,
		ResultScoreThreshold: DefaultResultScoreThreshold,
		MinQueryLength:       0,
		MaxIndexedFiles:      0,
		MaxIndexDepth:        0,
		IndexHiddenFiles:     false,
		FollowSymlinks:       false,
		FuzzySearchEnabled:   true,
		FuzzyMinSimilarity:   DefaultFuzzyMinSimilarity,
		CaseSensitiveSearch:  false,
		IndexingBatchSize:    DefaultIndexingBatchSize,
		WatchMode:            false,
		WatchDebounce:        DefaultWatchDebounce,
	}
}

// Validate checks ranges that would break scoring or resource bounds.
func (c *Config) Validate() error {
	if c.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive, got %d", c.MaxResults)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive, got %d", c.CacheSize)
	}
	if c.IndexingBatchSize <= 0 {
		return fmt.Errorf("indexing_batch_size must be positive, got %d", c.IndexingBatchSize)
	}
	if c.ResultScoreThreshold < 0 {
		return fmt.Errorf("result_score_threshold must not be negative, got %v", c.ResultScoreThreshold)
	}
	if c.FuzzyMinSimilarity < 0 || c.FuzzyMinSimilarity > 1 {
		return fmt.Errorf("fuzzy_min_similarity must be in [0,1], got %v", c.FuzzyMinSimilarity)
	}
	for _, w := range []float64{c.Ranking.RecencyWeight, c.Ranking.FrequencyWeight, c.Ranking.ProximityWeight} {
		if w < 0 || w > 10 {
			return fmt.Errorf("ranking weights must be in [0,10], got %v", w)
		}
	}
	for ext, w := range c.Ranking.ExtensionWeights {
		if w < 0 || w > 10 {
			return fmt.Errorf("extension weight for %q must be in [0,10], got %v", ext, w)
		}
	}
	if c.MinQueryLength < 0 || c.MaxIndexedFiles < 0 || c.MaxIndexDepth < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	return nil
}

// Clone returns a deep copy so callers can derive a modified snapshot
// without mutating a config the engine may still be reading.
func (c *Config) Clone() *Config {
	out := *c
	out.PreferredExtensions = append([]string(nil), c.PreferredExtensions...)
	out.ExcludedPatterns = append([]string(nil), c.ExcludedPatterns...)
	out.Ranking.ExtensionWeights = make(map[string]float64, len(c.Ranking.ExtensionWeights))
	for k, v := range c.Ranking.ExtensionWeights {
		out.Ranking.ExtensionWeights[k] = v
	}
	return &out
}

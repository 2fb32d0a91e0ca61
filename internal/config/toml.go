package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// tomlFile mirrors Config with snake_case keys and millisecond durations so
// the on-disk schema matches the KDL one.
type tomlFile struct {
	Search struct {
		Enabled              *bool    `toml:"enabled"`
		MaxResults           *int     `toml:"max_results"`
		MinQueryLength       *int     `toml:"min_query_length"`
		ResultScoreThreshold *float64 `toml:"result_score_threshold"`
		TimeoutMs            *int64   `toml:"timeout_ms"`
		CaseSensitive        *bool    `toml:"case_sensitive"`
		PreferDirectories    *bool    `toml:"prefer_directories"`
		PreferredExtensions  []string `toml:"preferred_extensions"`
	} `toml:"search"`
	Fuzzy struct {
		Enabled       *bool    `toml:"enabled"`
		MinSimilarity *float64 `toml:"min_similarity"`
	} `toml:"fuzzy"`
	Cache struct {
		Size  *int   `toml:"size"`
		TTLMs *int64 `toml:"ttl_ms"`
	} `toml:"cache"`
	Index struct {
		BatchSize       *int     `toml:"batch_size"`
		MaxFiles        *int     `toml:"max_files"`
		MaxDepth        *int     `toml:"max_depth"`
		HiddenFiles     *bool    `toml:"hidden_files"`
		FollowSymlinks  *bool    `toml:"follow_symlinks"`
		Watch           *bool    `toml:"watch"`
		WatchDebounceMs *int64   `toml:"watch_debounce_ms"`
		Exclude         []string `toml:"exclude"`
	} `toml:"index"`
	Ranking struct {
		RecencyWeight    *float64           `toml:"recency_weight"`
		FrequencyWeight  *float64           `toml:"frequency_weight"`
		ProximityWeight  *float64           `toml:"proximity_weight"`
		ExtensionWeights map[string]float64 `toml:"extension_weights"`
	} `toml:"ranking"`
}

// LoadTOML loads configuration from a TOML file path. The file must exist.
func LoadTOML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var file tomlFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config %s: %w", path, err)
	}

	cfg := Default()
	applyTOML(cfg, &file)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func applyTOML(cfg *Config, file *tomlFile) {
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setMs := func(dst *time.Duration, src *int64) {
		if src != nil {
			*dst = time.Duration(*src) * time.Millisecond
		}
	}

	setBool(&cfg.SearchEngineEnabled, file.Search.Enabled)
	setInt(&cfg.MaxResults, file.Search.MaxResults)
	setInt(&cfg.MinQueryLength, file.Search.MinQueryLength)
	setFloat(&cfg.ResultScoreThreshold, file.Search.ResultScoreThreshold)
	setMs(&cfg.SearchTimeout, file.Search.TimeoutMs)
	setBool(&cfg.CaseSensitiveSearch, file.Search.CaseSensitive)
	setBool(&cfg.PreferDirectories, file.Search.PreferDirectories)
	if len(file.Search.PreferredExtensions) > 0 {
		cfg.PreferredExtensions = file.Search.PreferredExtensions
	}

	setBool(&cfg.FuzzySearchEnabled, file.Fuzzy.Enabled)
	setFloat(&cfg.FuzzyMinSimilarity, file.Fuzzy.MinSimilarity)

	setInt(&cfg.CacheSize, file.Cache.Size)
	setMs(&cfg.CacheTTL, file.Cache.TTLMs)

	setInt(&cfg.IndexingBatchSize, file.Index.BatchSize)
	setInt(&cfg.MaxIndexedFiles, file.Index.MaxFiles)
	setInt(&cfg.MaxIndexDepth, file.Index.MaxDepth)
	setBool(&cfg.IndexHiddenFiles, file.Index.HiddenFiles)
	setBool(&cfg.FollowSymlinks, file.Index.FollowSymlinks)
	setBool(&cfg.WatchMode, file.Index.Watch)
	setMs(&cfg.WatchDebounce, file.Index.WatchDebounceMs)
	if len(file.Index.Exclude) > 0 {
		cfg.ExcludedPatterns = dedupePatterns(append(cfg.ExcludedPatterns, file.Index.Exclude...))
	}

	setFloat(&cfg.Ranking.RecencyWeight, file.Ranking.RecencyWeight)
	setFloat(&cfg.Ranking.FrequencyWeight, file.Ranking.FrequencyWeight)
	setFloat(&cfg.Ranking.ProximityWeight, file.Ranking.ProximityWeight)
	for ext, w := range file.Ranking.ExtensionWeights {
		cfg.Ranking.ExtensionWeights[strings.TrimPrefix(ext, ".")] = w
	}
}

// Load resolves configuration for a directory: a .toml path is loaded as
// TOML, anything else falls back to the KDL project file convention.
func Load(pathOrDir string) (*Config, error) {
	if strings.HasSuffix(pathOrDir, ".toml") {
		return LoadTOML(pathOrDir)
	}
	return LoadKDL(pathOrDir)
}

// Package engine composes the trie, fuzzy index, cache and ranker behind
// the public query and mutation surface, and owns the background indexer.
package engine

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	"github.com/standardbeagle/pathfinder/internal/cache"
	"github.com/standardbeagle/pathfinder/internal/config"
	pferrors "github.com/standardbeagle/pathfinder/internal/errors"
	"github.com/standardbeagle/pathfinder/internal/fuzzy"
	"github.com/standardbeagle/pathfinder/internal/indexing"
	"github.com/standardbeagle/pathfinder/internal/logging"
	"github.com/standardbeagle/pathfinder/internal/ranking"
	"github.com/standardbeagle/pathfinder/internal/searchtypes"
	"github.com/standardbeagle/pathfinder/internal/trie"
)

// Mutating more than this many paths in one batch clears the whole cache
// instead of invalidating entries one key at a time.
const wholesaleInvalidationThreshold = 20

// Base candidate score for a prefix hit; directory entries get a nudge when
// configured. Fuzzy hits carry their similarity score instead.
const (
	prefixBaseScore = 1.0
	directoryBoost  = 0.1
)

// Engine is the façade external callers talk to. A single reader-writer
// lock guards the index structures: queries take the read side, mutations
// and indexer batches the write side.
type Engine struct {
	mu    sync.RWMutex
	cfg   *config.Config
	trie  *trie.Trie
	fuzzy *fuzzy.Index

	cache  *cache.Cache
	ranker *ranking.Ranker
	state  *State
	log    *logging.Logger

	indexer *indexing.Indexer
	flight  singleflight.Group
}

func New(cfg *config.Config, log *logging.Logger) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &Engine{
		cfg:    cfg.Clone(),
		trie:   trie.New(),
		fuzzy:  fuzzy.New(),
		cache:  cache.New(cfg.CacheSize, cfg.CacheTTL),
		ranker: ranking.New(cfg.Ranking),
		state:  NewState(),
		log:    log,
	}
	e.fuzzy.SetMinSimilarity(cfg.FuzzyMinSimilarity)
	e.indexer = indexing.New(cfg, e, e.state, log)
	return e
}

// SetConfig swaps the settings snapshot between queries. Cache bounds and
// ranking weights take effect immediately; a cache whose capacity or TTL
// changed is rebuilt empty.
func (e *Engine) SetConfig(cfg *config.Config) {
	e.mu.Lock()
	old := e.cfg
	e.cfg = cfg.Clone()
	e.mu.Unlock()

	e.ranker.SetFactors(cfg.Ranking)
	e.fuzzy.SetMinSimilarity(cfg.FuzzyMinSimilarity)
	e.indexer.SetConfig(cfg)
	if old.CacheSize != cfg.CacheSize || old.CacheTTL != cfg.CacheTTL {
		e.mu.Lock()
		e.cache = cache.New(cfg.CacheSize, cfg.CacheTTL)
		e.mu.Unlock()
	}
}

func (e *Engine) snapshotConfig() *config.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// Search runs the full query pipeline: cache, prefix retrieval, fuzzy
// top-up, filtering, ranking, truncation.
func (e *Engine) Search(query string) ([]searchtypes.Result, error) {
	return e.search(query, nil)
}

// SearchByExtension is Search with an extension filter applied before
// ranking. The extension list must not be empty.
func (e *Engine) SearchByExtension(query string, extensions []string) ([]searchtypes.Result, error) {
	if len(extensions) == 0 {
		return nil, pferrors.NewInvalidInput("extensions", "must not be empty")
	}
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return e.search(query, exts)
}

func (e *Engine) search(query string, exts map[string]bool) ([]searchtypes.Result, error) {
	cfg := e.snapshotConfig()
	if !cfg.SearchEngineEnabled {
		return nil, nil
	}
	if strings.TrimSpace(query) == "" {
		return nil, pferrors.NewInvalidInput("query", "must not be empty")
	}
	if cfg.MinQueryLength > 0 && len(query) < cfg.MinQueryLength {
		return nil, nil
	}

	started := time.Now()
	key := cacheKey(query, exts, cfg.CaseSensitiveSearch)

	if hit, ok := e.cache.Get(key); ok {
		e.state.RecordSearch(query, time.Since(started))
		return hit, nil
	}

	v, err, _ := e.flight.Do(key, func() (any, error) {
		return e.computeSearch(query, key, exts, cfg, started), nil
	})
	if err != nil {
		return nil, err
	}
	results := searchtypes.CloneResults(v.([]searchtypes.Result))
	e.state.RecordSearch(query, time.Since(started))
	return results, nil
}

// cacheKey is the lowercased query, extended with the sorted extension
// filter so filtered and unfiltered runs of the same query never collide.
func cacheKey(query string, exts map[string]bool, caseSensitive bool) string {
	key := query
	if !caseSensitive {
		key = strings.ToLower(query)
	}
	if len(exts) == 0 {
		return key
	}
	list := lo.Keys(exts)
	sort.Strings(list)
	return key + "|ext:" + strings.Join(list, ",")
}

func (e *Engine) computeSearch(query, key string, exts map[string]bool, cfg *config.Config, started time.Time) []searchtypes.Result {
	norm := query
	if !cfg.CaseSensitiveSearch {
		norm = strings.ToLower(query)
	}
	deadline := func() bool {
		return cfg.SearchTimeout > 0 && time.Since(started) > cfg.SearchTimeout
	}

	e.mu.RLock()
	candidates := make([]searchtypes.Result, 0, cfg.MaxResults)
	for _, p := range e.trie.FindWithPrefix(norm) {
		score := prefixBaseScore
		if cfg.PreferDirectories && (strings.HasSuffix(p, "/") || strings.HasSuffix(p, "\\")) {
			score += directoryBoost
		}
		candidates = append(candidates, searchtypes.Result{Path: p, Score: score})
	}

	timedOut := deadline()
	if timedOut {
		e.log.Warnf("search %q hit deadline after prefix phase", query)
	}
	if !timedOut && cfg.FuzzySearchEnabled && len(candidates) < cfg.MaxResults {
		for _, m := range e.fuzzy.FindMatches(norm, cfg.MaxResults) {
			if m.Score < cfg.ResultScoreThreshold {
				continue
			}
			candidates = append(candidates, m)
		}
		if deadline() {
			e.log.Warnf("search %q hit deadline after fuzzy phase", query)
		}
	}
	e.mu.RUnlock()

	candidates = lo.UniqBy(candidates, func(r searchtypes.Result) string { return r.Path })

	if len(exts) > 0 {
		candidates = lo.Filter(candidates, func(r searchtypes.Result, _ int) bool {
			return exts[pathExtension(r.Path)]
		})
	}

	now := time.Now()
	for i := range candidates {
		candidates[i].Score += e.ranker.ScoreAt(candidates[i].Path, now)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	hoistExact(candidates, norm)

	if len(candidates) > cfg.MaxResults {
		candidates = candidates[:cfg.MaxResults]
	}
	// Partial results from a timed-out search are returned but never
	// cached; the next attempt gets a full pass.
	if !timedOut && !deadline() {
		e.cache.Insert(key, candidates)
	}
	return candidates
}

// hoistExact moves a result whose path equals the query (modulo separators
// and case) to the front, so a query that is an indexed path always leads
// with it.
func hoistExact(results []searchtypes.Result, norm string) {
	want := strings.ToLower(strings.ReplaceAll(norm, "\\", "/"))
	for i, r := range results {
		if strings.ToLower(strings.ReplaceAll(r.Path, "\\", "/")) == want {
			if i > 0 {
				hit := results[i]
				copy(results[1:i+1], results[0:i])
				results[0] = hit
			}
			return
		}
	}
}

func pathExtension(p string) string {
	name := p
	if i := strings.LastIndexAny(p, "/\\"); i >= 0 {
		name = p[i+1:]
	}
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 || dot == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[dot+1:])
}

// AddPath inserts a single path into both indexes.
func (e *Engine) AddPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return pferrors.NewInvalidInput("path", "must not be empty")
	}
	return e.BatchUpdate([]string{path}, nil)
}

// RemovePath removes a single path. Removing an unknown path is a no-op.
func (e *Engine) RemovePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return pferrors.NewInvalidInput("path", "must not be empty")
	}
	return e.BatchUpdate(nil, []string{path})
}

// BatchUpdate applies adds and removes atomically under the engine lock.
// Large batches clear the cache wholesale; small ones invalidate the keys
// that could have matched the touched paths.
func (e *Engine) BatchUpdate(adds, removes []string) error {
	if len(adds) == 0 && len(removes) == 0 {
		return nil
	}

	e.mu.Lock()
	maxFiles := e.cfg.MaxIndexedFiles
	addedPaths := make([]string, 0, len(adds))
	for _, p := range adds {
		if p == "" {
			continue
		}
		if maxFiles > 0 && e.trie.Size() >= maxFiles {
			e.log.Warnf("ignoring inserts beyond max_indexed_files limit of %d", maxFiles)
			break
		}
		e.trie.Insert(p)
		e.fuzzy.Insert(p)
		addedPaths = append(addedPaths, p)
	}
	removed := make([]string, 0, len(removes))
	for _, p := range removes {
		if e.trie.Remove(p) {
			removed = append(removed, p)
		}
		e.fuzzy.Remove(p)
	}
	e.mu.Unlock()

	for _, p := range removed {
		e.ranker.Forget(p)
	}

	if len(adds)+len(removes) > wholesaleInvalidationThreshold {
		e.cache.Clear()
	} else {
		targets := make([]string, 0, (len(addedPaths)+len(removes))*3)
		for _, p := range addedPaths {
			targets = append(targets, invalidationTargets(p)...)
		}
		for _, p := range removes {
			targets = append(targets, invalidationTargets(p)...)
		}
		if len(targets) > 0 {
			e.cache.InvalidatePrefixes(targets)
		}
	}
	return nil
}

// invalidationTargets lists the strings a cached query key could prefix for
// a mutated path: the filename, its stem, and every ancestor directory
// name, all lowercased to match cache keys.
func invalidationTargets(path string) []string {
	p := strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
	segs := strings.Split(strings.Trim(p, "/"), "/")
	if len(segs) == 0 {
		return nil
	}
	name := segs[len(segs)-1]
	targets := append([]string{}, name)
	if dot := strings.LastIndexByte(name, '.'); dot > 0 {
		targets = append(targets, name[:dot])
	}
	targets = append(targets, segs[:len(segs)-1]...)
	// The full path is a valid query too.
	targets = append(targets, p)
	return targets
}

// AddPathsRecursive starts chunked background indexing of a folder.
func (e *Engine) AddPathsRecursive(folder string) error {
	cfg := e.snapshotConfig()
	return e.indexer.Start(folder, cfg.IndexingBatchSize)
}

// RemovePathsRecursive removes every indexed path at or below a folder.
func (e *Engine) RemovePathsRecursive(folder string) error {
	if strings.TrimSpace(folder) == "" {
		return pferrors.NewInvalidInput("folder", "must not be empty")
	}
	prefix := strings.ToLower(strings.ReplaceAll(folder, "\\", "/"))
	prefix = strings.TrimRight(prefix, "/")

	e.mu.RLock()
	under := e.trie.FindWithPrefix(folder)
	e.mu.RUnlock()

	matches := lo.Filter(under, func(p string, _ int) bool {
		n := strings.ToLower(strings.ReplaceAll(p, "\\", "/"))
		return n == prefix || strings.HasPrefix(n, prefix+"/")
	})
	return e.BatchUpdate(nil, matches)
}

// Clear rebuilds the indexes empty and drops the cache and ranker state.
func (e *Engine) Clear() {
	e.mu.Lock()
	e.trie = trie.New()
	e.fuzzy = fuzzy.New()
	e.fuzzy.SetMinSimilarity(e.cfg.FuzzyMinSimilarity)
	e.mu.Unlock()
	e.cache.Clear()
	e.ranker.Clear()
}

// RecordPathAccess feeds the ranker's recency and frequency signals.
func (e *Engine) RecordPathAccess(path string) {
	e.ranker.RecordAccess(path)
}

// SetCurrentDirectory anchors proximity scoring.
func (e *Engine) SetCurrentDirectory(dir string) {
	e.ranker.SetCurrentDirectory(dir)
}

// SuggestWithMetadata returns ranked hits along with their access counts
// and timestamps.
func (e *Engine) SuggestWithMetadata(query string, limit int) ([]searchtypes.Suggestion, error) {
	results, err := e.Search(query)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	suggestions := make([]searchtypes.Suggestion, len(results))
	for i, r := range results {
		suggestions[i] = searchtypes.Suggestion{
			Path:         r.Path,
			Score:        r.Score,
			Frequency:    e.ranker.Frequency(r.Path),
			LastAccessed: e.ranker.LastAccessed(r.Path),
		}
	}
	return suggestions, nil
}

// GetRecentPaths lists ranker state by most recent access.
func (e *Engine) GetRecentPaths(limit int) []string {
	return e.ranker.RecentPaths(limit)
}

// GetFrequentPaths lists ranker state by access count.
func (e *Engine) GetFrequentPaths(limit int) []string {
	return e.ranker.FrequentPaths(limit)
}

// GetSearchEngineInfo captures the observable engine state.
func (e *Engine) GetSearchEngineInfo() SearchEngineInfo {
	e.mu.RLock()
	trieSize := e.trie.Size()
	e.mu.RUnlock()
	return e.state.Snapshot(e.ranker.FrequentPaths(10), trieSize, e.cache.Len())
}

// GetIndexingProgress returns the current background-walk progress.
func (e *Engine) GetIndexingProgress() IndexingProgress {
	return e.state.Progress()
}

// GetIndexingStatus returns the status variant name.
func (e *Engine) GetIndexingStatus() string {
	return e.state.Status().String()
}

// StopIndexing cancels a running background walk; a no-op otherwise.
func (e *Engine) StopIndexing() {
	e.indexer.Stop()
}

// WaitForIndexing blocks until the background worker exits.
func (e *Engine) WaitForIndexing() {
	e.indexer.Wait()
}

// IndexingRunning reports whether a background walk is in flight.
func (e *Engine) IndexingRunning() bool {
	return e.indexer.Running()
}

// Config returns the active settings snapshot.
func (e *Engine) Config() *config.Config {
	return e.snapshotConfig()
}

// CountTerminals exposes the trie's terminal count for observability.
func (e *Engine) CountTerminals() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.trie.CountTerminals()
}

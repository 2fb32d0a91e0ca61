package engine

import (
	"sync"
	"time"
)

// Status is the indexing lifecycle phase.
type Status int

const (
	StatusIdle Status = iota
	StatusDiscovering
	StatusIndexing
	StatusCompleted
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusDiscovering:
		return "Discovering"
	case StatusIndexing:
		return "Indexing"
	case StatusCompleted:
		return "Completed"
	case StatusCancelled:
		return "Cancelled"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// IndexingProgress is a point-in-time view of the background walk.
type IndexingProgress struct {
	FilesDiscovered          int64   `json:"files_discovered"`
	FilesIndexed             int64   `json:"files_indexed"`
	CurrentPath              string  `json:"current_path,omitempty"`
	PercentageComplete       float64 `json:"percentage_complete"`
	StartedAtMs              int64   `json:"started_at"`
	EstimatedTimeRemainingMs int64   `json:"estimated_time_remaining_ms,omitempty"`
}

// EngineMetrics aggregates search and indexing timings.
type EngineMetrics struct {
	TotalSearches          int64   `json:"total_searches"`
	AverageSearchTimeMs    float64 `json:"average_search_time_ms"`
	LastIndexingDurationMs int64   `json:"last_indexing_duration_ms,omitempty"`
}

// RecentActivity lists the latest query strings and the paths accessed most.
type RecentActivity struct {
	RecentSearches    []string `json:"recent_searches"`
	MostAccessedPaths []string `json:"most_accessed_paths"`
}

// IndexStats sizes the underlying structures.
type IndexStats struct {
	TrieSize  int `json:"trie_size"`
	CacheSize int `json:"cache_size"`
}

// SearchEngineInfo is the consistent snapshot handed to observers.
type SearchEngineInfo struct {
	Status         string           `json:"status"`
	Progress       IndexingProgress `json:"progress"`
	Metrics        EngineMetrics    `json:"metrics"`
	RecentActivity RecentActivity   `json:"recent_activity"`
	Stats          IndexStats       `json:"stats"`
	LastUpdated    int64            `json:"last_updated"`
	FailureReason  string           `json:"failure_reason,omitempty"`
}

// recentQueryLimit bounds the recent-search ring buffer.
const recentQueryLimit = 50

// State collects progress, metrics and recent activity under its own lock
// so indexing writes never stall queries waiting on the engine lock.
type State struct {
	mu sync.Mutex

	status           Status
	filesDiscovered  int64
	filesIndexed     int64
	currentPath      string
	startedAt        time.Time
	lastIndexingTime time.Duration
	failureReason    string

	totalSearches   int64
	totalSearchTime time.Duration

	recentQueries []string
	lastUpdated   time.Time
}

func NewState() *State {
	return &State{status: StatusIdle, lastUpdated: time.Now()}
}

// IndexingStarted resets progress and enters the discovery phase.
func (s *State) IndexingStarted(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusDiscovering
	s.filesDiscovered = 0
	s.filesIndexed = 0
	s.currentPath = root
	s.failureReason = ""
	s.startedAt = time.Now()
	s.lastUpdated = s.startedAt
}

// FilesDiscovered counts entries encountered by the walker.
func (s *State) FilesDiscovered(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filesDiscovered += n
	s.lastUpdated = time.Now()
}

// BatchIndexed records a submitted batch. The first batch moves the status
// from Discovering to Indexing; a cancel already in effect is not undone.
func (s *State) BatchIndexed(n int64, lastPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filesIndexed += n
	s.currentPath = lastPath
	if s.status == StatusDiscovering {
		s.status = StatusIndexing
	}
	s.lastUpdated = time.Now()
}

// IndexingCompleted finalises a successful walk.
func (s *State) IndexingCompleted(duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusCompleted
	s.lastIndexingTime = duration
	s.currentPath = ""
	s.lastUpdated = time.Now()
}

// IndexingCancelled marks the walk as stopped by request.
func (s *State) IndexingCancelled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusCancelled
	s.lastUpdated = time.Now()
}

// IndexingFailed records a fatal walk error.
func (s *State) IndexingFailed(reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusFailed
	if reason != nil {
		s.failureReason = reason.Error()
	}
	s.lastUpdated = time.Now()
}

// RecordSearch tracks query metrics and the recent-search ring.
func (s *State) RecordSearch(query string, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalSearches++
	s.totalSearchTime += duration
	s.recentQueries = append(s.recentQueries, query)
	if len(s.recentQueries) > recentQueryLimit {
		s.recentQueries = s.recentQueries[len(s.recentQueries)-recentQueryLimit:]
	}
	s.lastUpdated = time.Now()
}

// Status returns the current lifecycle phase.
func (s *State) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Progress returns the current indexing progress.
func (s *State) Progress() IndexingProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

func (s *State) progressLocked() IndexingProgress {
	p := IndexingProgress{
		FilesDiscovered: s.filesDiscovered,
		FilesIndexed:    s.filesIndexed,
		CurrentPath:     s.currentPath,
	}
	if !s.startedAt.IsZero() {
		p.StartedAtMs = s.startedAt.UnixMilli()
	}

	divisor := s.filesDiscovered
	if divisor < 1 {
		divisor = 1
	}
	pct := float64(s.filesIndexed) / float64(divisor) * 100.0
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	p.PercentageComplete = pct

	if s.filesIndexed > 0 && (s.status == StatusDiscovering || s.status == StatusIndexing) {
		elapsed := time.Since(s.startedAt)
		remaining := s.filesDiscovered - s.filesIndexed
		if remaining > 0 {
			eta := time.Duration(float64(elapsed) * float64(remaining) / float64(s.filesIndexed))
			p.EstimatedTimeRemainingMs = eta.Milliseconds()
		}
	}
	return p
}

// Snapshot captures everything observers see in one lock acquisition.
// Trie/cache sizes and the most-accessed list are sampled by the caller
// immediately beforehand so the snapshot is consistent within itself.
func (s *State) Snapshot(mostAccessed []string, trieSize, cacheSize int) SearchEngineInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	metrics := EngineMetrics{TotalSearches: s.totalSearches}
	if s.totalSearches > 0 {
		avg := s.totalSearchTime / time.Duration(s.totalSearches)
		metrics.AverageSearchTimeMs = float64(avg.Microseconds()) / 1000.0
	}
	if s.lastIndexingTime > 0 {
		metrics.LastIndexingDurationMs = s.lastIndexingTime.Milliseconds()
	}

	recent := make([]string, len(s.recentQueries))
	copy(recent, s.recentQueries)

	return SearchEngineInfo{
		Status:   s.status.String(),
		Progress: s.progressLocked(),
		Metrics:  metrics,
		RecentActivity: RecentActivity{
			RecentSearches:    recent,
			MostAccessedPaths: mostAccessed,
		},
		Stats:         IndexStats{TrieSize: trieSize, CacheSize: cacheSize},
		LastUpdated:   s.lastUpdated.UnixMilli(),
		FailureReason: s.failureReason,
	}
}

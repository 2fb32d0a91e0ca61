package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusStrings(t *testing.T) {
	cases := map[Status]string{
		StatusIdle:        "Idle",
		StatusDiscovering: "Discovering",
		StatusIndexing:    "Indexing",
		StatusCompleted:   "Completed",
		StatusCancelled:   "Cancelled",
		StatusFailed:      "Failed",
	}
	for status, want := range cases {
		assert.Equal(t, want, status.String())
	}
}

func TestStateLifecycle(t *testing.T) {
	s := NewState()
	assert.Equal(t, StatusIdle, s.Status())

	s.IndexingStarted("/root")
	assert.Equal(t, StatusDiscovering, s.Status())

	s.FilesDiscovered(10)
	s.BatchIndexed(4, "/root/a/file4.txt")
	assert.Equal(t, StatusIndexing, s.Status())

	p := s.Progress()
	assert.Equal(t, int64(10), p.FilesDiscovered)
	assert.Equal(t, int64(4), p.FilesIndexed)
	assert.Equal(t, "/root/a/file4.txt", p.CurrentPath)
	assert.InDelta(t, 40.0, p.PercentageComplete, 1e-9)
	assert.NotZero(t, p.StartedAtMs)
	assert.Greater(t, p.EstimatedTimeRemainingMs, int64(-1))

	s.IndexingCompleted(2 * time.Second)
	assert.Equal(t, StatusCompleted, s.Status())

	info := s.Snapshot(nil, 10, 0)
	assert.Equal(t, "Completed", info.Status)
	assert.Equal(t, int64(2000), info.Metrics.LastIndexingDurationMs)
}

func TestStatePercentageClampedAndSafe(t *testing.T) {
	s := NewState()
	// No discovery at all: divisor clamps to 1, percentage to [0,100].
	p := s.Progress()
	assert.Equal(t, 0.0, p.PercentageComplete)

	s.IndexingStarted("/r")
	s.FilesDiscovered(2)
	s.BatchIndexed(2, "/r/x")
	assert.Equal(t, 100.0, s.Progress().PercentageComplete)
}

func TestStateCancelNotOverriddenByLateBatch(t *testing.T) {
	s := NewState()
	s.IndexingStarted("/r")
	s.IndexingCancelled()
	s.BatchIndexed(5, "/r/straggler")

	assert.Equal(t, StatusCancelled, s.Status(), "a draining batch must not resurrect the walk")
}

func TestStateFailure(t *testing.T) {
	s := NewState()
	s.IndexingStarted("/r")
	s.IndexingFailed(errors.New("permission denied"))

	info := s.Snapshot(nil, 0, 0)
	assert.Equal(t, "Failed", info.Status)
	assert.Equal(t, "permission denied", info.FailureReason)
}

func TestRecordSearchMetrics(t *testing.T) {
	s := NewState()
	s.RecordSearch("alpha", 2*time.Millisecond)
	s.RecordSearch("beta", 4*time.Millisecond)

	info := s.Snapshot(nil, 0, 0)
	assert.Equal(t, int64(2), info.Metrics.TotalSearches)
	assert.InDelta(t, 3.0, info.Metrics.AverageSearchTimeMs, 0.01)
	assert.Equal(t, []string{"alpha", "beta"}, info.RecentActivity.RecentSearches)
}

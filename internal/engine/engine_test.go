package engine

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/pathfinder/internal/config"
	pferrors "github.com/standardbeagle/pathfinder/internal/errors"
	"github.com/standardbeagle/pathfinder/internal/logging"
	"github.com/standardbeagle/pathfinder/internal/searchtypes"
)

func newTestEngine(t *testing.T, mutate func(*config.Config)) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.SearchTimeout = 0
	if mutate != nil {
		mutate(cfg)
	}
	return New(cfg, logging.New(logging.NopSink{}))
}

func paths(results []searchtypes.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Path
	}
	return out
}

func TestSearchPrefixHit(t *testing.T) {
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddPath("/home/user/documents/report.pdf"))

	results, err := e.Search("rep")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "/home/user/documents/report.pdf", results[0].Path)
	assert.Greater(t, results[0].Score, 0.0)
}

func TestSearchWindowsSeparators(t *testing.T) {
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddPath(`C:\Users\me\notes.txt`))

	results, err := e.Search("C:/Users/me")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, `C:\Users\me\notes.txt`, results[0].Path)

	back, err := e.Search(`C:\Users\me`)
	require.NoError(t, err)
	assert.Equal(t, paths(results), paths(back))
}

func TestRoundTripExactQueryLeads(t *testing.T) {
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddPath("/a/file.txt"))
	require.NoError(t, e.AddPath("/a/file.txt.bak"))
	e.RecordPathAccess("/a/file.txt.bak")
	e.RecordPathAccess("/a/file.txt.bak")

	results, err := e.Search("/a/file.txt")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "/a/file.txt", results[0].Path,
		"a query equal to an inserted path leads the results regardless of ranking")
}

func TestCurrentDirectoryProximityOrdering(t *testing.T) {
	e := newTestEngine(t, nil)
	for _, p := range []string{"/a/file1.txt", "/a/file2.txt", "/a/file3.txt",
		"/b/file4.txt", "/b/file5.txt", "/b/file6.txt"} {
		require.NoError(t, e.AddPath(p))
	}
	e.SetCurrentDirectory("/a")

	results, err := e.Search("file")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(results), 6)

	seenB := false
	for _, r := range results {
		underA := r.Path[:3] == "/a/"
		if !underA {
			seenB = true
		}
		if underA {
			assert.False(t, seenB, "files under /a must appear before files under /b, got %v", paths(results))
		}
	}
}

func TestTypoToleratedSearch(t *testing.T) {
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddPath("/docs/report.pdf"))

	results, err := e.Search("reoprt")
	require.NoError(t, err)
	assert.Contains(t, paths(results), "/docs/report.pdf")
}

func TestExtensionWeightOrdering(t *testing.T) {
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddPath("/x.rs"))
	require.NoError(t, e.AddPath("/x.txt"))

	results, err := e.Search("x")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(results), 2)
	assert.Equal(t, "/x.rs", results[0].Path)
}

func TestRemoveExcludesFromSubsequentSearches(t *testing.T) {
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddPath("/p"))

	results, err := e.Search("p")
	require.NoError(t, err)
	require.Contains(t, paths(results), "/p")

	require.NoError(t, e.RemovePath("/p"))

	results, err = e.Search("p")
	require.NoError(t, err)
	assert.NotContains(t, paths(results), "/p")
}

func TestRemoveMissingPathIsNoOp(t *testing.T) {
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddPath("/a/x.txt"))
	before := e.CountTerminals()

	require.NoError(t, e.RemovePath("/never/indexed.txt"))
	assert.Equal(t, before, e.CountTerminals())
}

func TestSearchByExtension(t *testing.T) {
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddPath("/a/report.pdf"))
	require.NoError(t, e.AddPath("/a/report.txt"))

	results, err := e.SearchByExtension("report", []string{".pdf"})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, "/a/report.pdf", r.Path)
	}

	_, err = e.SearchByExtension("report", nil)
	require.Error(t, err)
	assert.True(t, pferrors.Is(err, pferrors.CategoryInvalidInput))
}

func TestEmptyQueryRejected(t *testing.T) {
	e := newTestEngine(t, nil)
	_, err := e.Search("   ")
	require.Error(t, err)
	assert.True(t, pferrors.Is(err, pferrors.CategoryInvalidInput))
	assert.Contains(t, err.Error(), "InvalidInput")
}

func TestMinQueryLength(t *testing.T) {
	e := newTestEngine(t, func(cfg *config.Config) { cfg.MinQueryLength = 3 })
	require.NoError(t, e.AddPath("/a/ab.txt"))

	results, err := e.Search("ab")
	require.NoError(t, err)
	assert.Empty(t, results, "queries below min_query_length return empty without error")
}

func TestDisabledEngineReturnsNothing(t *testing.T) {
	e := newTestEngine(t, func(cfg *config.Config) { cfg.SearchEngineEnabled = false })
	require.NoError(t, e.AddPath("/a/x.txt"))
	results, err := e.Search("x")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCacheHitMatchesMissPath(t *testing.T) {
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddPath("/a/report.pdf"))

	first, err := e.Search("report")
	require.NoError(t, err)
	second, err := e.Search("report")
	require.NoError(t, err)
	assert.Equal(t, first, second, "hit must equal what the miss path computed")
}

func TestCacheTTLExpiry(t *testing.T) {
	e := newTestEngine(t, func(cfg *config.Config) { cfg.CacheTTL = 20 * time.Millisecond })
	require.NoError(t, e.AddPath("/a/report.pdf"))

	_, err := e.Search("report")
	require.NoError(t, err)

	// "report" is not a prefix of "final_report.pdf", its stem or its
	// directory, so the cached entry survives the insert and keeps
	// serving the stale result until the TTL expires.
	require.NoError(t, e.AddPath("/b/final_report.pdf"))
	stale, err := e.Search("report")
	require.NoError(t, err)
	assert.NotContains(t, paths(stale), "/b/final_report.pdf")

	time.Sleep(40 * time.Millisecond)

	fresh, err := e.Search("report")
	require.NoError(t, err)
	assert.Contains(t, paths(fresh), "/b/final_report.pdf")
}

func TestMutationInvalidatesAffectedCacheEntries(t *testing.T) {
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddPath("/docs/report.pdf"))

	first, err := e.Search("report")
	require.NoError(t, err)
	require.Len(t, first, 1)

	require.NoError(t, e.AddPath("/docs/report_final.pdf"))

	second, err := e.Search("report")
	require.NoError(t, err)
	assert.Len(t, second, 2, "insert must invalidate the cached query it affects")
}

func TestBatchUpdateWholesaleClear(t *testing.T) {
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddPath("/a/seed.txt"))
	_, err := e.Search("seed")
	require.NoError(t, err)

	adds := make([]string, 25)
	for i := range adds {
		adds[i] = fmt.Sprintf("/bulk/file%02d.dat", i)
	}
	require.NoError(t, e.BatchUpdate(adds, nil))

	results, err := e.Search("file")
	require.NoError(t, err)
	assert.NotEmpty(t, results)
	assert.Equal(t, 26, e.CountTerminals())
}

func TestClear(t *testing.T) {
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddPath("/a/x.txt"))
	e.RecordPathAccess("/a/x.txt")

	e.Clear()

	assert.Zero(t, e.CountTerminals())
	results, err := e.Search("x")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, e.GetFrequentPaths(10))
}

func TestSuggestWithMetadata(t *testing.T) {
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddPath("/a/report.pdf"))
	e.RecordPathAccess("/a/report.pdf")
	e.RecordPathAccess("/a/report.pdf")

	suggestions, err := e.SuggestWithMetadata("report", 5)
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	s := suggestions[0]
	assert.Equal(t, "/a/report.pdf", s.Path)
	assert.Equal(t, 2, s.Frequency)
	assert.False(t, s.LastAccessed.IsZero())
	assert.Greater(t, s.Score, 0.0)
}

func TestRecentAndFrequentPaths(t *testing.T) {
	e := newTestEngine(t, nil)
	e.RecordPathAccess("/a/one.txt")
	e.RecordPathAccess("/a/two.txt")
	e.RecordPathAccess("/a/two.txt")

	frequent := e.GetFrequentPaths(10)
	require.NotEmpty(t, frequent)
	assert.Equal(t, "/a/two.txt", frequent[0])

	recent := e.GetRecentPaths(1)
	assert.Len(t, recent, 1)
}

func TestSearchEngineInfoSnapshot(t *testing.T) {
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddPath("/a/report.pdf"))
	e.RecordPathAccess("/a/report.pdf")

	_, err := e.Search("report")
	require.NoError(t, err)

	info := e.GetSearchEngineInfo()
	assert.Equal(t, "Idle", info.Status)
	assert.Equal(t, int64(1), info.Metrics.TotalSearches)
	assert.Equal(t, 1, info.Stats.TrieSize)
	assert.GreaterOrEqual(t, info.Stats.CacheSize, 1)
	assert.Contains(t, info.RecentActivity.RecentSearches, "report")
	assert.Contains(t, info.RecentActivity.MostAccessedPaths, "/a/report.pdf")
	assert.NotZero(t, info.LastUpdated)
}

func TestRecentSearchRingIsBounded(t *testing.T) {
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddPath("/a/x.txt"))
	for i := 0; i < recentQueryLimit+10; i++ {
		_, err := e.Search(fmt.Sprintf("query%d", i))
		require.NoError(t, err)
	}
	info := e.GetSearchEngineInfo()
	assert.Len(t, info.RecentActivity.RecentSearches, recentQueryLimit)
	assert.Equal(t, fmt.Sprintf("query%d", recentQueryLimit+9),
		info.RecentActivity.RecentSearches[recentQueryLimit-1])
}

func TestTimeoutReturnsPartialResults(t *testing.T) {
	e := newTestEngine(t, func(cfg *config.Config) { cfg.SearchTimeout = time.Nanosecond })
	require.NoError(t, e.AddPath("/a/report.pdf"))

	results, err := e.Search("/a/report.pdf")
	require.NoError(t, err, "a timed-out search returns partial results, not an error")
	assert.NotEmpty(t, results)
}

func TestRemovePathsRecursive(t *testing.T) {
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddPath("/proj/src/main.go"))
	require.NoError(t, e.AddPath("/proj/src/util.go"))
	require.NoError(t, e.AddPath("/project/other.go"))

	require.NoError(t, e.RemovePathsRecursive("/proj"))

	assert.Equal(t, 1, e.CountTerminals(), "sibling directory sharing the name prefix must survive")
	results, err := e.Search("other.go")
	require.NoError(t, err)
	assert.Contains(t, paths(results), "/project/other.go")
}

func TestCaseSensitiveSearch(t *testing.T) {
	e := newTestEngine(t, func(cfg *config.Config) { cfg.CaseSensitiveSearch = true })
	require.NoError(t, e.AddPath("/a/Report.pdf"))

	lower, err := e.Search("report")
	require.NoError(t, err)
	upper, err := e.Search("Report")
	require.NoError(t, err)

	// Both still find the file (the trie and trigram layers are
	// case-folded) but the two queries occupy distinct cache keys.
	assert.NotEmpty(t, lower)
	assert.NotEmpty(t, upper)
}

func TestSetConfigSwapsSnapshot(t *testing.T) {
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddPath("/a/one.txt"))
	require.NoError(t, e.AddPath("/a/two.txt"))

	cfg := e.Config().Clone()
	cfg.MaxResults = 1
	e.SetConfig(cfg)

	results, err := e.Search("txt")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestConcurrentSearchesAndInserts(t *testing.T) {
	e := newTestEngine(t, nil)
	for i := 0; i < 50; i++ {
		require.NoError(t, e.AddPath(fmt.Sprintf("/base/file%02d.txt", i)))
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = e.AddPath(fmt.Sprintf("/extra/w%d/file%02d.txt", w, i))
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				results, err := e.Search("file")
				assert.NoError(t, err)
				for _, res := range results {
					assert.Contains(t, res.Path, "file")
				}
			}
		}()
	}
	wg.Wait()

	// Everything inserted before this point is findable afterwards.
	results, err := e.Search("/base/file00.txt")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "/base/file00.txt", results[0].Path)
}

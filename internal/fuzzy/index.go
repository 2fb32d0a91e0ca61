// Package fuzzy implements the trigram-indexed typo-tolerant matcher that
// backs autocomplete when prefix retrieval comes up short.
package fuzzy

import (
	"math/bits"
	"sort"
	"strings"
	"sync"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/pathfinder/internal/searchtypes"
)

const (
	// Bonus for a candidate filename that contains the query verbatim.
	substringBonus = 0.30
	// Bonus for a query carrying an extension the candidate shares.
	extensionBonus = 0.15
	// Typo-variant hits are worth less than direct hits.
	variantScale = 0.9

	defaultMaxEditDistance = 2
)

// Index maps packed trigrams to stable path indices. Removal erases postings
// immediately and drops trigram entries whose lists empty out, so every
// index in a posting list always refers to a live path.
type Index struct {
	mu        sync.RWMutex
	postings  map[uint32][]int32
	firstChar map[byte][]int32
	paths     []string // original path per id; "" marks a free slot
	names     []string // lowercased filename per id
	sets      [][]uint32
	free      []int32
	byPath    map[string]int32

	minSimilarity   float64
	maxEditDistance int
}

func New() *Index {
	return &Index{
		postings:        make(map[uint32][]int32),
		firstChar:       make(map[byte][]int32),
		byPath:          make(map[string]int32),
		maxEditDistance: defaultMaxEditDistance,
	}
}

// SetMinSimilarity sets the score floor a candidate must clear after the
// substring and extension bonuses are applied.
func (ix *Index) SetMinSimilarity(v float64) {
	ix.mu.Lock()
	ix.minSimilarity = v
	ix.mu.Unlock()
}

// Insert indexes the filename of a path. Re-inserting a known path is a
// no-op.
func (ix *Index) Insert(path string) {
	if path == "" {
		return
	}
	name := strings.ToLower(fileName(path))
	if name == "" {
		return
	}
	set := trigramSet(name)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, exists := ix.byPath[path]; exists {
		return
	}

	var id int32
	if n := len(ix.free); n > 0 {
		id = ix.free[n-1]
		ix.free = ix.free[:n-1]
		ix.paths[id] = path
		ix.names[id] = name
		ix.sets[id] = set
	} else {
		id = int32(len(ix.paths))
		ix.paths = append(ix.paths, path)
		ix.names = append(ix.names, name)
		ix.sets = append(ix.sets, set)
	}
	ix.byPath[path] = id

	for _, tri := range set {
		ix.postings[tri] = append(ix.postings[tri], id)
	}
	// First character alone also indexes the path, so single-letter
	// queries have somewhere to start.
	ix.firstChar[name[0]] = append(ix.firstChar[name[0]], id)
}

// Remove erases a path from every posting list it appears in. Returns true
// iff the path was indexed.
func (ix *Index) Remove(path string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	id, ok := ix.byPath[path]
	if !ok {
		return false
	}
	for _, tri := range ix.sets[id] {
		filtered := removeID(ix.postings[tri], id)
		if len(filtered) == 0 {
			delete(ix.postings, tri)
		} else {
			ix.postings[tri] = filtered
		}
	}
	first := ix.names[id][0]
	filtered := removeID(ix.firstChar[first], id)
	if len(filtered) == 0 {
		delete(ix.firstChar, first)
	} else {
		ix.firstChar[first] = filtered
	}

	delete(ix.byPath, path)
	ix.paths[id] = ""
	ix.names[id] = ""
	ix.sets[id] = nil
	ix.free = append(ix.free, id)
	return true
}

func removeID(list []int32, id int32) []int32 {
	filtered := list[:0]
	for _, v := range list {
		if v != id {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

// Count returns the number of live indexed paths.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byPath)
}

// Clear drops the whole index.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.postings = make(map[uint32][]int32)
	ix.firstChar = make(map[byte][]int32)
	ix.byPath = make(map[string]int32)
	ix.paths = nil
	ix.names = nil
	ix.sets = nil
	ix.free = nil
}

// FindMatches returns similarity-scored candidates for a query, best first.
// When no candidate survives the direct pass, typo variants of the query
// are expanded and their hits merged in at a reduced score.
func (ix *Index) FindMatches(query string, limit int) []searchtypes.Result {
	q := strings.ToLower(query)
	qset := trigramSet(q)
	if len(qset) == 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if direct := ix.score(ix.gather(qset, q), q, qset, 1.0); len(direct) > 0 {
		return truncate(direct, limit)
	}

	var merged []searchtypes.Result
	seen := make(map[string]bool)
	for _, v := range typoVariants(q) {
		vset := trigramSet(v)
		vids := ix.gather(vset, v)
		if len(vids) == 0 {
			continue
		}
		for _, r := range truncate(ix.score(vids, v, vset, variantScale), limit) {
			if !seen[r.Path] {
				seen[r.Path] = true
				merged = append(merged, r)
			}
		}
	}
	return truncate(merged, limit)
}

// gather unions posting lists over the query trigrams into a bitmap over
// the path space, then materialises the set bits.
func (ix *Index) gather(qset []uint32, q string) []int32 {
	if len(ix.paths) == 0 {
		return nil
	}
	bitmap := make([]uint64, (len(ix.paths)+63)/64)
	mark := func(id int32) {
		bitmap[id>>6] |= 1 << (uint(id) & 63)
	}
	for _, tri := range qset {
		for _, id := range ix.postings[tri] {
			mark(id)
		}
	}
	if len(q) == 1 {
		for _, id := range ix.firstChar[q[0]] {
			mark(id)
		}
	}

	var ids []int32
	for word, w := range bitmap {
		for w != 0 {
			id := int32(word<<6) + int32(bits.TrailingZeros64(w))
			if ix.paths[id] != "" {
				ids = append(ids, id)
			}
			w &= w - 1
		}
	}
	return ids
}

// score computes Jaccard similarity plus bonuses for each candidate and
// sorts descending, breaking score ties with edit distance to the query.
func (ix *Index) score(ids []int32, q string, qset []uint32, scale float64) []searchtypes.Result {
	results := make([]searchtypes.Result, 0, len(ids))
	for _, id := range ids {
		set := ix.sets[id]
		common := mergeCount(qset, set)
		if common == 0 {
			continue
		}
		score := float64(common) / float64(len(qset)+len(set)-common)
		name := ix.names[id]
		if strings.Contains(name, q) {
			score += substringBonus
		}
		if dot := strings.LastIndexByte(q, '.'); dot >= 0 && dot+1 < len(q) {
			if strings.HasSuffix(name, q[dot:]) {
				score += extensionBonus
			}
		}
		// The floor applies to the bonused score, so a weak trigram overlap
		// backed by an exact substring hit still qualifies.
		if score < ix.minSimilarity {
			continue
		}
		results = append(results, searchtypes.Result{Path: ix.paths[id], Score: score * scale})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return editDistance(q, fileName(results[i].Path), ix.maxEditDistance) <
			editDistance(q, fileName(results[j].Path), ix.maxEditDistance)
	})
	return results
}

// editDistance is Levenshtein with a length short-circuit: once the length
// difference alone exceeds the cap, the exact distance no longer matters.
func editDistance(a, b string, max int) int {
	diff := len(a) - len(b)
	if diff < 0 {
		diff = -diff
	}
	if diff > max {
		return max + 1
	}
	return edlib.LevenshteinDistance(a, b)
}

func truncate(results []searchtypes.Result, limit int) []searchtypes.Result {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}

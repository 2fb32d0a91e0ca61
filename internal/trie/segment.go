package trie

import "strings"

// minSegmentLength is the shortest bare name that still gets broken into
// 2-grams; anything at or below this length is a single segment.
const minSegmentLength = 2

// Normalize rewrites backslash separators to forward slashes so both
// conventions address the same trie nodes.
func Normalize(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

// Segments splits a path into the alternating name/"/" segment sequence the
// trie is keyed by. Segmentation is a pure function of the input:
//
//	"/home/user"  -> ["/", "home", "/", "user"]
//	"C:/tmp/a.txt" -> ["C:", "/", "tmp", "/", "a.txt"]
//	"readme"      -> ["re", "ad", "me"]   (2-gram fallback)
//	"ab"          -> ["ab"]
//
// Bare names longer than minSegmentLength fall back to non-overlapping
// 2-grams so short names share internal structure.
func Segments(path string) []string {
	p := Normalize(path)
	if p == "" {
		return nil
	}

	if strings.ContainsRune(p, '/') {
		segs := make([]string, 0, strings.Count(p, "/")*2+1)
		start := 0
		for i := 0; i < len(p); i++ {
			if p[i] != '/' {
				continue
			}
			if i > start {
				segs = append(segs, p[start:i])
			}
			// Collapse runs of separators into one "/" segment.
			if len(segs) == 0 || segs[len(segs)-1] != "/" {
				segs = append(segs, "/")
			}
			start = i + 1
		}
		if start < len(p) {
			segs = append(segs, p[start:])
		}
		return segs
	}

	if len(p) <= minSegmentLength {
		return []string{p}
	}
	segs := make([]string, 0, (len(p)+1)/2)
	for i := 0; i < len(p); i += 2 {
		end := i + 2
		if end > len(p) {
			end = len(p)
		}
		segs = append(segs, p[i:end])
	}
	return segs
}

package fuzzy

import (
	"sort"
	"strings"
)

// Trigrams are packed into the low 24 bits of a uint32 with byte shifts,
// the same representation the rest of the index keys posting lists by.
func pack(a, b, c byte) uint32 {
	return uint32(a)<<16 | uint32(b)<<8 | uint32(c)
}

// trigramSet returns the sorted unique trigrams of a lowercased name padded
// with two spaces on each side. Padding guarantees the first and last
// characters each appear in at least one trigram.
func trigramSet(name string) []uint32 {
	if name == "" {
		return nil
	}
	padded := "  " + strings.ToLower(name) + "  "
	set := make(map[uint32]struct{}, len(padded))
	for i := 0; i+3 <= len(padded); i++ {
		set[pack(padded[i], padded[i+1], padded[i+2])] = struct{}{}
	}
	out := make([]uint32, 0, len(set))
	for tri := range set {
		out = append(out, tri)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// mergeCount walks two sorted trigram sets and counts common elements.
func mergeCount(a, b []uint32) int {
	common, i, j := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			common++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return common
}

// fileName extracts the final path segment, tolerating both separators and
// trailing slashes.
func fileName(path string) string {
	p := strings.ReplaceAll(path, "\\", "/")
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		p = p[i+1:]
	}
	return p
}

package fuzzy

// Substitution classes used for short queries, where a single wrong
// character destroys most trigrams and deletion/transposition variants are
// not enough.
const (
	vowels    = "aeiou"
	sibilants = "szc"

	// Queries longer than this skip substitution variants; the variant
	// count grows quadratically and longer queries retain enough intact
	// trigrams to match without them.
	substitutionMaxLen = 5
)

// typoVariants generates adjacent-character deletions and transpositions of
// a query, plus vowel/sibilant substitutions for short queries. The query
// itself is never included.
func typoVariants(q string) []string {
	if len(q) < 2 {
		return nil
	}
	seen := map[string]bool{q: true}
	var out []string
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}

	for i := 0; i < len(q); i++ {
		add(q[:i] + q[i+1:])
	}
	for i := 0; i+1 < len(q); i++ {
		if q[i] == q[i+1] {
			continue
		}
		b := []byte(q)
		b[i], b[i+1] = b[i+1], b[i]
		add(string(b))
	}
	if len(q) <= substitutionMaxLen {
		for i := 0; i < len(q); i++ {
			for _, class := range []string{vowels, sibilants} {
				if !containsByte(class, q[i]) {
					continue
				}
				for j := 0; j < len(class); j++ {
					if class[j] == q[i] {
						continue
					}
					add(q[:i] + string(class[j]) + q[i+1:])
				}
			}
		}
	}
	return out
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}
